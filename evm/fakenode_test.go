package evm

import (
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/ruteri/did-ledger-adapter/interfaces"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

// revertError is encoded by the RPC server as a JSON-RPC error with code 3.
type revertError struct{ reason string }

func (e revertError) Error() string          { return "execution reverted: " + e.reason }
func (e revertError) ErrorCode() int         { return 3 }
func (e revertError) ErrorData() interface{} { return "0x" }

type sentTx struct {
	method string
	from   common.Address
	args   []any
}

// fakeNode is an in-memory OpenDID registry behind a go-ethereum RPC server.
type fakeNode struct {
	t       *testing.T
	abi     abi.ABI
	chainID *big.Int
	server  *httptest.Server

	requests atomic.Int64

	mu           sync.Mutex
	nonce        uint64
	docs         map[string]DocumentAndStatusRecord
	vcMeta       map[string]VcMetaRecord
	vcSchemas    map[string]VcSchemaRecord
	zkpSchemas   map[string]ZKPCredentialSchemaRecord
	zkpDefs      map[string]CredentialDefinitionRecord
	receipts     map[common.Hash]*types.Receipt
	sent         []sentTx
	revertWrites bool
	failReceipts bool
	pendingPolls int
	dropReceipts bool
}

func newFakeNode(t *testing.T, chainID *big.Int) *fakeNode {
	contractABI, err := ContractABI()
	require.NoError(t, err)

	n := &fakeNode{
		t:          t,
		abi:        contractABI,
		chainID:    chainID,
		docs:       map[string]DocumentAndStatusRecord{},
		vcMeta:     map[string]VcMetaRecord{},
		vcSchemas:  map[string]VcSchemaRecord{},
		zkpSchemas: map[string]ZKPCredentialSchemaRecord{},
		zkpDefs:    map[string]CredentialDefinitionRecord{},
		receipts:   map[common.Hash]*types.Receipt{},
	}

	srv := rpc.NewServer()
	require.NoError(t, srv.RegisterName("eth", &ethService{n: n}))

	n.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n.requests.Inc()
		srv.ServeHTTP(w, r)
	}))
	t.Cleanup(func() {
		n.server.Close()
		srv.Stop()
	})
	return n
}

func (n *fakeNode) URL() string {
	return n.server.URL
}

func (n *fakeNode) configure(fn func(n *fakeNode)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fn(n)
}

func (n *fakeNode) lastSent() sentTx {
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(n.t, n.sent)
	return n.sent[len(n.sent)-1]
}

func (n *fakeNode) apply(method string, args []any) error {
	switch method {
	case methodRegisterDidDoc:
		rec := *abi.ConvertType(args[0], new(DocumentRecord)).(*DocumentRecord)
		n.docs[rec.Id] = DocumentAndStatusRecord{Diddoc: rec, Status: uint8(interfaces.DidDocActivated)}
	case methodUpdateStatusService, methodUpdateStatusRevoke:
		did := args[0].(string)
		entry, ok := n.docs[did]
		if !ok {
			return revertError{reason: "DID not found"}
		}
		status, err := interfaces.ParseDidDocStatus(args[1].(string))
		if err != nil {
			return revertError{reason: "invalid status"}
		}
		entry.Status = uint8(status)
		n.docs[did] = entry
	case methodRegisterVcMeta:
		rec := *abi.ConvertType(args[0], new(VcMetaRecord)).(*VcMetaRecord)
		n.vcMeta[rec.Id] = rec
	case methodUpdateVcStatus:
		rec, ok := n.vcMeta[args[0].(string)]
		if !ok {
			return revertError{reason: "VC not found"}
		}
		rec.Status = args[1].(string)
		n.vcMeta[rec.Id] = rec
	case methodRegisterVcSchema:
		rec := *abi.ConvertType(args[0], new(VcSchemaRecord)).(*VcSchemaRecord)
		n.vcSchemas[rec.Id] = rec
	case methodRegisterZKPSchema:
		rec := *abi.ConvertType(args[0], new(ZKPCredentialSchemaRecord)).(*ZKPCredentialSchemaRecord)
		n.zkpSchemas[rec.Id] = rec
	case methodRegisterZKPDef:
		rec := *abi.ConvertType(args[0], new(CredentialDefinitionRecord)).(*CredentialDefinitionRecord)
		n.zkpDefs[rec.Id] = rec
	default:
		return revertError{reason: "unknown method " + method}
	}
	return nil
}

func (n *fakeNode) read(method *abi.Method, id string) ([]byte, error) {
	var (
		rec any
		ok  bool
	)
	switch method.Name {
	case methodGetDidDoc:
		rec, ok = n.docs[id]
	case methodGetVcMeta:
		rec, ok = n.vcMeta[id]
	case methodGetVcSchema:
		rec, ok = n.vcSchemas[id]
	case methodGetZKPSchema:
		rec, ok = n.zkpSchemas[id]
	case methodGetZKPDef:
		rec, ok = n.zkpDefs[id]
	}
	if !ok {
		return nil, revertError{reason: "not found"}
	}
	return method.Outputs.Pack(rec)
}

type ethService struct {
	n *fakeNode
}

type callArgs struct {
	From  *common.Address `json:"from"`
	To    *common.Address `json:"to"`
	Data  hexutil.Bytes   `json:"data"`
	Input hexutil.Bytes   `json:"input"`
}

func (s *ethService) ChainId() *hexutil.Big {
	return (*hexutil.Big)(s.n.chainID)
}

func (s *ethService) GasPrice() *hexutil.Big {
	return (*hexutil.Big)(big.NewInt(1_000_000_000))
}

func (s *ethService) GetTransactionCount(addr common.Address, block string) hexutil.Uint64 {
	s.n.mu.Lock()
	defer s.n.mu.Unlock()
	return hexutil.Uint64(s.n.nonce)
}

func (s *ethService) GetCode(addr common.Address, block string) hexutil.Bytes {
	return hexutil.Bytes{0x60, 0x80}
}

func (s *ethService) Call(args callArgs, block string) (hexutil.Bytes, error) {
	n := s.n
	n.mu.Lock()
	defer n.mu.Unlock()

	data := args.Input
	if len(data) == 0 {
		data = args.Data
	}
	if len(data) < 4 {
		return nil, errors.New("missing call data")
	}
	method, err := n.abi.MethodById(data[:4])
	if err != nil {
		return nil, err
	}
	inputs, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, err
	}
	return n.read(method, inputs[0].(string))
}

func (s *ethService) SendRawTransaction(input hexutil.Bytes) (common.Hash, error) {
	n := s.n
	n.mu.Lock()
	defer n.mu.Unlock()

	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(input); err != nil {
		return common.Hash{}, err
	}
	from, err := types.Sender(types.NewEIP155Signer(n.chainID), tx)
	if err != nil {
		return common.Hash{}, err
	}
	if n.revertWrites {
		return common.Hash{}, revertError{reason: "caller is not authorized"}
	}

	method, err := n.abi.MethodById(tx.Data()[:4])
	if err != nil {
		return common.Hash{}, err
	}
	args, err := method.Inputs.Unpack(tx.Data()[4:])
	if err != nil {
		return common.Hash{}, err
	}

	status := types.ReceiptStatusSuccessful
	if err := n.apply(method.Name, args); err != nil || n.failReceipts {
		status = types.ReceiptStatusFailed
	}

	n.nonce++
	n.sent = append(n.sent, sentTx{method: method.Name, from: from, args: args})
	n.receipts[tx.Hash()] = &types.Receipt{
		Status:            status,
		TxHash:            tx.Hash(),
		GasUsed:           21000,
		CumulativeGasUsed: 21000,
		BlockNumber:       big.NewInt(int64(n.nonce)),
		Logs:              []*types.Log{},
	}
	return tx.Hash(), nil
}

func (s *ethService) GetTransactionReceipt(hash common.Hash) (*types.Receipt, error) {
	n := s.n
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.dropReceipts {
		return nil, nil
	}
	if n.pendingPolls > 0 {
		n.pendingPolls--
		return nil, nil
	}
	return n.receipts[hash], nil
}
