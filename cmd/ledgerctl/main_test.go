package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ruteri/did-ledger-adapter/config"
	"github.com/ruteri/did-ledger-adapter/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) RegisterDidDoc(ctx context.Context, doc *interfaces.DidDocument, role interfaces.RoleType) error {
	return m.Called(doc, role).Error(0)
}

func (m *mockLedger) GetDidDoc(ctx context.Context, didKeyURL string) (*interfaces.DidDocAndStatus, error) {
	args := m.Called(didKeyURL)
	res, _ := args.Get(0).(*interfaces.DidDocAndStatus)
	return res, args.Error(1)
}

func (m *mockLedger) UpdateDidDocStatus(ctx context.Context, didKeyURL string, status interfaces.DidDocStatus, terminatedTime *time.Time) (*interfaces.TransactionResult, error) {
	args := m.Called(didKeyURL, status, terminatedTime)
	res, _ := args.Get(0).(*interfaces.TransactionResult)
	return res, args.Error(1)
}

func (m *mockLedger) RegisterVcMetadata(ctx context.Context, meta *interfaces.VcMeta) error {
	return m.Called(meta).Error(0)
}

func (m *mockLedger) GetVcMetadata(ctx context.Context, vcID string) (*interfaces.VcMeta, error) {
	args := m.Called(vcID)
	res, _ := args.Get(0).(*interfaces.VcMeta)
	return res, args.Error(1)
}

func (m *mockLedger) UpdateVcStatus(ctx context.Context, vcID string, status interfaces.VcStatus) error {
	return m.Called(vcID, status).Error(0)
}

func (m *mockLedger) RegisterVcSchema(ctx context.Context, schema *interfaces.VcSchema) error {
	return m.Called(schema).Error(0)
}

func (m *mockLedger) GetVcSchema(ctx context.Context, schemaID string) (*interfaces.VcSchema, error) {
	args := m.Called(schemaID)
	res, _ := args.Get(0).(*interfaces.VcSchema)
	return res, args.Error(1)
}

func (m *mockLedger) RegisterZKPCredentialSchema(ctx context.Context, schema *interfaces.ZKPCredentialSchema) error {
	return m.Called(schema).Error(0)
}

func (m *mockLedger) GetZKPCredentialSchema(ctx context.Context, schemaID string) (*interfaces.ZKPCredentialSchema, error) {
	args := m.Called(schemaID)
	res, _ := args.Get(0).(*interfaces.ZKPCredentialSchema)
	return res, args.Error(1)
}

func (m *mockLedger) RegisterZKPCredentialDefinition(ctx context.Context, def *interfaces.ZKPCredentialDefinition) error {
	return m.Called(def).Error(0)
}

func (m *mockLedger) GetZKPCredentialDefinition(ctx context.Context, definitionID string) (*interfaces.ZKPCredentialDefinition, error) {
	args := m.Called(definitionID)
	res, _ := args.Get(0).(*interfaces.ZKPCredentialDefinition)
	return res, args.Error(1)
}

func (m *mockLedger) Close() error {
	return m.Called().Error(0)
}

const testConfig = `
ledger: evm
evm:
  network:
    url: http://127.0.0.1:8545
  chainid: 1337
  contract:
    address: "0x5FbDB2315678afecb367f032d93F642f64180aa3"
    privatekey: b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291
`

type harness struct {
	ledger *mockLedger
	cfg    *config.Config
	path   string
}

func newHarness(t *testing.T) *harness {
	path := filepath.Join(t.TempDir(), "ledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))

	m := &mockLedger{}
	m.On("Close").Return(nil)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return &harness{ledger: m, path: path}
}

// run executes ledgerctl with the harness config and returns stdout.
func (h *harness) run(t *testing.T, args ...string) (string, error) {
	app := newApp(func(ctx context.Context, cfg *config.Config, log *slog.Logger) (interfaces.ContractAPI, error) {
		h.cfg = cfg
		return h.ledger, nil
	})
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &bytes.Buffer{}

	err := app.Run(append([]string{"ledgerctl", "--config", h.path}, args...))
	return out.String(), err
}

func TestDidGet(t *testing.T) {
	h := newHarness(t)
	h.ledger.On("GetDidDoc", "did:omn:issuer?versionId=1#pin").Return(&interfaces.DidDocAndStatus{
		Document: &interfaces.DidDocument{ID: "did:omn:issuer", VersionID: "1"},
		Status:   interfaces.DidDocDeactivated,
	}, nil)

	out, err := h.run(t, "did", "get", "did:omn:issuer?versionId=1#pin")
	require.NoError(t, err)

	var got didDocOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "DEACTIVATED", got.Status)
	assert.Equal(t, "did:omn:issuer", got.Document.ID)
	assert.Equal(t, "evm", h.cfg.Ledger)
}

func TestDidStatus(t *testing.T) {
	h := newHarness(t)
	terminated := time.Date(2024, 6, 30, 14, 59, 59, 0, time.UTC)
	h.ledger.On("UpdateDidDocStatus", "did:omn:issuer", interfaces.DidDocTerminated, mock.MatchedBy(func(ts *time.Time) bool {
		return ts != nil && ts.Equal(terminated)
	})).Return(&interfaces.TransactionResult{StatusCode: 200, Status: "success", TxHash: "0xabc"}, nil)

	out, err := h.run(t, "did", "status", "--status", "terminated", "--terminated-time", "2024-06-30T14:59:59Z", "did:omn:issuer")
	require.NoError(t, err)

	var got interfaces.TransactionResult
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "0xabc", got.TxHash)
}

func TestDidStatus_UnknownStatus(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "did", "status", "--status", "SUSPENDED", "did:omn:issuer")
	assert.ErrorIs(t, err, interfaces.ErrInvalidArgument)
	h.ledger.AssertNotCalled(t, "UpdateDidDocStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestDidRegisterFromFile(t *testing.T) {
	h := newHarness(t)
	docPath := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(docPath, []byte(`{"id":"did:omn:tas","controller":"did:omn:tas","versionId":"1"}`), 0o600))

	h.ledger.On("RegisterDidDoc", mock.MatchedBy(func(doc *interfaces.DidDocument) bool {
		return doc.ID == "did:omn:tas" && doc.VersionID == "1"
	}), interfaces.RoleTas).Return(nil)

	out, err := h.run(t, "did", "register", "--role", "Tas", "--file", docPath)
	require.NoError(t, err)
	assert.Contains(t, out, `"registered"`)
}

func TestVcCommands(t *testing.T) {
	h := newHarness(t)
	h.ledger.On("GetVcMetadata", "vc-1").Return(&interfaces.VcMeta{ID: "vc-1", Status: "ACTIVE"}, nil)
	h.ledger.On("UpdateVcStatus", "vc-1", interfaces.VcRevoked).Return(nil)

	out, err := h.run(t, "vc", "get", "vc-1")
	require.NoError(t, err)
	var meta interfaces.VcMeta
	require.NoError(t, json.Unmarshal([]byte(out), &meta))
	assert.Equal(t, "ACTIVE", meta.Status)

	out, err = h.run(t, "vc", "status", "--status", "revoked", "vc-1")
	require.NoError(t, err)
	assert.Contains(t, out, `"REVOKED"`)
}

func TestSchemaAndZKPLookups(t *testing.T) {
	h := newHarness(t)
	h.ledger.On("GetVcSchema", "schema-1").Return(&interfaces.VcSchema{ID: "schema-1"}, nil)
	h.ledger.On("GetZKPCredentialSchema", "zkp-schema-1").Return(&interfaces.ZKPCredentialSchema{ID: "zkp-schema-1", Tag: "v1"}, nil)
	h.ledger.On("GetZKPCredentialDefinition", "def-1").Return(nil, interfaces.ErrTransaction)

	out, err := h.run(t, "schema", "get", "schema-1")
	require.NoError(t, err)
	assert.Contains(t, out, `"schema-1"`)

	out, err = h.run(t, "zkp", "schema", "zkp-schema-1")
	require.NoError(t, err)
	assert.Contains(t, out, `"v1"`)

	_, err = h.run(t, "zkp", "definition", "def-1")
	assert.ErrorIs(t, err, interfaces.ErrTransaction)
}

func TestMissingArgument(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "vc", "get")
	assert.ErrorContains(t, err, "expected exactly one argument")
}

func TestOpenFailure(t *testing.T) {
	h := newHarness(t)
	app := newApp(func(ctx context.Context, cfg *config.Config, log *slog.Logger) (interfaces.ContractAPI, error) {
		return nil, interfaces.ErrConnection
	})
	app.Writer = &bytes.Buffer{}
	app.ErrWriter = &bytes.Buffer{}

	err := app.Run([]string{"ledgerctl", "--config", h.path, "vc", "get", "vc-1"})
	assert.True(t, errors.Is(err, interfaces.ErrConnection))
	// Close is never reached without a backend.
	h.ledger.ExpectedCalls = nil
}

func TestLogsStayOffStdout(t *testing.T) {
	h := newHarness(t)
	h.ledger.On("GetVcMetadata", "vc-1").Return(&interfaces.VcMeta{ID: "vc-1", Status: "ACTIVE"}, nil)

	app := newApp(func(ctx context.Context, cfg *config.Config, log *slog.Logger) (interfaces.ContractAPI, error) {
		log.Info("Connected to ledger", "backend", cfg.Ledger)
		return h.ledger, nil
	})
	var out, errOut bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &errOut

	require.NoError(t, app.Run([]string{"ledgerctl", "--config", h.path, "vc", "get", "vc-1"}))

	var meta interfaces.VcMeta
	require.NoError(t, json.Unmarshal(out.Bytes(), &meta))
	assert.Equal(t, "vc-1", meta.ID)
	assert.Contains(t, errOut.String(), "Connected to ledger")
	assert.NotContains(t, out.String(), "Connected to ledger")
}
