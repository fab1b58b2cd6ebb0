package evm

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/did-ledger-adapter/interfaces"
	"github.com/ruteri/did-ledger-adapter/signer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const testSignerKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

var testContract = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEngineConfig(url string) Config {
	return Config{
		RPCURL:          url,
		ChainID:         big.NewInt(1337),
		ContractAddress: testContract,
		Timeout:         2 * time.Second,
		ReceiptAttempts: 3,
		ReceiptInterval: 10 * time.Millisecond,
	}
}

func newTestClient(t *testing.T, url string) (*Client, *signer.LocalSigner) {
	s, err := signer.NewLocalSigner(testSignerKey)
	require.NoError(t, err)

	engine, err := NewEngine(testEngineConfig(url), s, testLogger())
	require.NoError(t, err)
	return NewClient(engine, Codec{}, testLogger()), s
}

func TestClient_DidDocumentLifecycle(t *testing.T) {
	node := newFakeNode(t, big.NewInt(1337))
	client, s := newTestClient(t, node.URL())
	ctx := context.Background()

	doc := testDidDocument()
	require.NoError(t, client.RegisterDidDoc(ctx, doc, interfaces.RoleIssuer))
	assert.Equal(t, s.Address(), node.lastSent().from)

	got, err := client.GetDidDoc(ctx, "did:omn:issuer?versionId=1#assert")
	require.NoError(t, err)
	assert.Equal(t, interfaces.DidDocActivated, got.Status)
	assert.Equal(t, doc, got.Document)

	res, err := client.UpdateDidDocStatus(ctx, "did:omn:issuer?versionId=1", interfaces.DidDocDeactivated, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "DEACTIVATED", res.Status)
	assert.NotEmpty(t, res.TxHash)
	sent := node.lastSent()
	assert.Equal(t, methodUpdateStatusService, sent.method)
	assert.Equal(t, []any{"did:omn:issuer", "DEACTIVATED", "1"}, sent.args)

	_, err = client.UpdateDidDocStatus(ctx, "did:omn:issuer?versionId=1", interfaces.DidDocRevoked, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{"did:omn:issuer", "REVOKED", ""}, node.lastSent().args)

	terminatedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	res, err = client.UpdateDidDocStatus(ctx, "did:omn:issuer", interfaces.DidDocTerminated, &terminatedAt)
	require.NoError(t, err)
	assert.Equal(t, "TERMINATED", res.Status)
	sent = node.lastSent()
	assert.Equal(t, methodUpdateStatusRevoke, sent.method)
	assert.Equal(t, []any{"did:omn:issuer", "TERMINATED", "2024-05-01T12:00:00Z"}, sent.args)

	got, err = client.GetDidDoc(ctx, "did:omn:issuer")
	require.NoError(t, err)
	assert.Equal(t, interfaces.DidDocTerminated, got.Status)
}

func TestClient_TerminatedWithoutTimeMakesNoNetworkCall(t *testing.T) {
	node := newFakeNode(t, big.NewInt(1337))
	client, _ := newTestClient(t, node.URL())

	_, err := client.UpdateDidDocStatus(context.Background(), "did:omn:issuer", interfaces.DidDocTerminated, nil)
	assert.ErrorIs(t, err, interfaces.ErrInvalidArgument)
	assert.Equal(t, int64(0), node.requests.Load())

	err = client.RegisterDidDoc(context.Background(), nil, interfaces.RoleIssuer)
	assert.ErrorIs(t, err, interfaces.ErrInvalidArgument)
	_, err = client.GetVcMetadata(context.Background(), "")
	assert.ErrorIs(t, err, interfaces.ErrInvalidArgument)
	err = client.UpdateVcStatus(context.Background(), "vc-1", interfaces.VcStatus("SUSPENDED"))
	assert.ErrorIs(t, err, interfaces.ErrInvalidArgument)
	assert.Equal(t, int64(0), node.requests.Load())
}

func TestClient_CredentialRecords(t *testing.T) {
	node := newFakeNode(t, big.NewInt(1337))
	client, _ := newTestClient(t, node.URL())
	ctx := context.Background()

	meta := &interfaces.VcMeta{
		ID:               "vc-1",
		Issuer:           interfaces.Provider{DID: "did:omn:issuer", CertVcRef: "https://issuer.example.com/cert"},
		Subject:          "did:omn:holder",
		CredentialSchema: interfaces.CredentialSchemaRef{ID: "https://schema.example.com/mdl", Type: "OsdSchemaCredential"},
		Status:           string(interfaces.VcActive),
		IssuanceDate:     "2024-01-01T00:00:00Z",
		FormatVersion:    "1.0",
		Language:         "ko",
	}
	require.NoError(t, client.RegisterVcMetadata(ctx, meta))
	require.NoError(t, client.UpdateVcStatus(ctx, "vc-1", interfaces.VcRevoked))

	gotMeta, err := client.GetVcMetadata(ctx, "vc-1")
	require.NoError(t, err)
	assert.Equal(t, string(interfaces.VcRevoked), gotMeta.Status)
	assert.Equal(t, meta.Issuer, gotMeta.Issuer)

	schema := testVcSchema()
	require.NoError(t, client.RegisterVcSchema(ctx, schema))
	gotSchema, err := client.GetVcSchema(ctx, schema.ID)
	require.NoError(t, err)
	assert.Equal(t, schema, gotSchema)

	zkpSchema := testZKPSchema()
	require.NoError(t, client.RegisterZKPCredentialSchema(ctx, zkpSchema))
	gotZKPSchema, err := client.GetZKPCredentialSchema(ctx, zkpSchema.ID)
	require.NoError(t, err)
	assert.Equal(t, zkpSchema, gotZKPSchema)

	def := testZKPDefinition()
	require.NoError(t, client.RegisterZKPCredentialDefinition(ctx, def))
	gotDef, err := client.GetZKPCredentialDefinition(ctx, def.ID)
	require.NoError(t, err)
	assert.Equal(t, def, gotDef)
}

func TestClient_ContractRejectionIsTransactionError(t *testing.T) {
	node := newFakeNode(t, big.NewInt(1337))
	client, _ := newTestClient(t, node.URL())
	ctx := context.Background()

	_, err := client.GetDidDoc(ctx, "did:omn:unknown")
	assert.ErrorIs(t, err, interfaces.ErrTransaction)

	node.configure(func(n *fakeNode) { n.revertWrites = true })
	err = client.RegisterDidDoc(ctx, testDidDocument(), interfaces.RoleIssuer)
	assert.ErrorIs(t, err, interfaces.ErrTransaction)
	assert.NotErrorIs(t, err, interfaces.ErrConnection)
}

func TestClient_FailedReceiptIsTransactionError(t *testing.T) {
	node := newFakeNode(t, big.NewInt(1337))
	client, _ := newTestClient(t, node.URL())

	node.configure(func(n *fakeNode) { n.failReceipts = true })
	err := client.RegisterVcSchema(context.Background(), testVcSchema())
	assert.ErrorIs(t, err, interfaces.ErrTransaction)
}

func TestClient_ReceiptPolling(t *testing.T) {
	node := newFakeNode(t, big.NewInt(1337))
	client, _ := newTestClient(t, node.URL())
	ctx := context.Background()

	node.configure(func(n *fakeNode) { n.pendingPolls = 2 })
	require.NoError(t, client.RegisterDidDoc(ctx, testDidDocument(), interfaces.RoleIssuer))

	node.configure(func(n *fakeNode) { n.dropReceipts = true })
	err := client.RegisterVcSchema(ctx, testVcSchema())
	assert.ErrorIs(t, err, interfaces.ErrConnection)
	assert.ErrorContains(t, err, "after 3 attempts")
}

func TestClient_TimeoutBoundsReceiptPolling(t *testing.T) {
	node := newFakeNode(t, big.NewInt(1337))
	cfg := testEngineConfig(node.URL())
	cfg.Timeout = 200 * time.Millisecond
	cfg.ReceiptAttempts = 1000
	cfg.ReceiptInterval = 20 * time.Millisecond

	s, err := signer.NewLocalSigner(testSignerKey)
	require.NoError(t, err)
	engine, err := NewEngine(cfg, s, testLogger())
	require.NoError(t, err)
	client := NewClient(engine, Codec{}, testLogger())

	node.configure(func(n *fakeNode) { n.dropReceipts = true })
	start := time.Now()
	err = client.RegisterVcSchema(context.Background(), testVcSchema())
	assert.ErrorIs(t, err, interfaces.ErrConnection)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestClient_UnreachableNodeIsConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, _ := newTestClient(t, url)
	_, err := client.GetDidDoc(context.Background(), "did:omn:issuer")
	assert.ErrorIs(t, err, interfaces.ErrConnection)

	err = client.RegisterDidDoc(context.Background(), testDidDocument(), interfaces.RoleIssuer)
	assert.ErrorIs(t, err, interfaces.ErrConnection)
}

func TestEngine_ReadOnlyWithoutSigner(t *testing.T) {
	node := newFakeNode(t, big.NewInt(1337))
	engine, err := NewEngine(testEngineConfig(node.URL()), nil, testLogger())
	require.NoError(t, err)
	client := NewClient(engine, Codec{}, testLogger())

	err = client.RegisterDidDoc(context.Background(), testDidDocument(), interfaces.RoleIssuer)
	assert.ErrorIs(t, err, interfaces.ErrInvalidArgument)
	assert.ErrorIs(t, err, ErrNoSigner)
	assert.Equal(t, int64(0), node.requests.Load())

	_, err = client.GetDidDoc(context.Background(), "did:omn:issuer")
	assert.ErrorIs(t, err, interfaces.ErrTransaction)
}

func TestEngine_ConfigValidation(t *testing.T) {
	_, err := NewEngine(Config{}, nil, testLogger())
	assert.ErrorIs(t, err, interfaces.ErrInvalidArgument)

	cfg := testEngineConfig("http://127.0.0.1:8545")
	cfg.ChainID = nil
	_, err = NewEngine(cfg, nil, testLogger())
	assert.ErrorIs(t, err, interfaces.ErrInvalidArgument)

	cfg = testEngineConfig("http://127.0.0.1:8545")
	cfg.ContractAddress = common.Address{}
	_, err = NewEngine(cfg, nil, testLogger())
	assert.ErrorIs(t, err, interfaces.ErrInvalidArgument)

	cfg = testEngineConfig("http://127.0.0.1:8545")
	cfg.GasLimit = 0
	cfg.ReceiptAttempts = 0
	engine, err := NewEngine(cfg, nil, testLogger())
	require.NoError(t, err)
	assert.Equal(t, DefaultGasLimit, engine.cfg.GasLimit)
	assert.Equal(t, DefaultReceiptAttempts, engine.cfg.ReceiptAttempts)
}

func TestEngine_TearsDownPerCallClients(t *testing.T) {
	node := newFakeNode(t, big.NewInt(1337))
	client, _ := newTestClient(t, node.URL())
	ctx := context.Background()

	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	require.NoError(t, client.RegisterDidDoc(ctx, testDidDocument(), interfaces.RoleIssuer))
	for i := 0; i < 5; i++ {
		_, err := client.GetDidDoc(ctx, "did:omn:issuer")
		require.NoError(t, err)
	}
}
