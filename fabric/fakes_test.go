package fabric

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/ruteri/did-ledger-adapter/interfaces"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

var errChaincode = errors.New("chaincode returned error status 500")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type invocation struct {
	channel   string
	chaincode string
	fn        string
	args      []string
}

// fakeLedger is an in-memory stand-in for the OpenDID chaincode.
type fakeLedger struct {
	calls atomic.Int64

	mu          sync.Mutex
	docs        map[string]DocumentAndStatusRecord
	roles       map[string]string
	vcMeta      map[string]VcMetaRecord
	raw         map[string]map[string]string
	invocations []invocation
	failSubmit  bool
	txCount     int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		docs:   map[string]DocumentAndStatusRecord{},
		roles:  map[string]string{},
		vcMeta: map[string]VcMetaRecord{},
		raw:    map[string]map[string]string{},
	}
}

func (l *fakeLedger) configure(fn func(l *fakeLedger)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l)
}

func (l *fakeLedger) last() invocation {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.invocations) == 0 {
		return invocation{}
	}
	return l.invocations[len(l.invocations)-1]
}

func (l *fakeLedger) evaluate(inv invocation) ([]byte, error) {
	l.calls.Inc()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.invocations = append(l.invocations, inv)

	id := inv.args[0]
	switch inv.fn {
	case fnGetDidDoc:
		rec, ok := l.docs[id]
		if !ok {
			return nil, errChaincode
		}
		return json.Marshal(rec)
	case fnGetVcMeta:
		rec, ok := l.vcMeta[id]
		if !ok {
			return nil, errChaincode
		}
		return json.Marshal(rec)
	case fnGetVcSchema, fnGetZKPSchema, fnGetZKPDef:
		raw, ok := l.raw[inv.fn][id]
		if !ok {
			return nil, errChaincode
		}
		return []byte(raw), nil
	}
	return nil, fmt.Errorf("unknown function %s", inv.fn)
}

var registerToGet = map[string]string{
	fnRegisterVcSchema:  fnGetVcSchema,
	fnRegisterZKPSchema: fnGetZKPSchema,
	fnRegisterZKPDef:    fnGetZKPDef,
}

func (l *fakeLedger) submit(inv invocation) (*SubmitResult, error) {
	l.calls.Inc()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.invocations = append(l.invocations, inv)

	if l.failSubmit {
		return nil, fmt.Errorf("%w: transaction tx-failed: ENDORSEMENT_POLICY_FAILURE", ErrCommitFailed)
	}

	switch inv.fn {
	case fnRegisterDidDoc:
		var req RegisterDidDocRequest
		if err := json.Unmarshal([]byte(inv.args[0]), &req); err != nil {
			return nil, err
		}
		l.docs[req.Document.ID] = DocumentAndStatusRecord{Document: req.Document, Status: 0}
		l.roles[req.Document.ID] = req.Role
	case fnUpdateStatusServe, fnUpdateStatusRevoke:
		rec, ok := l.docs[inv.args[0]]
		if !ok {
			return nil, errChaincode
		}
		status, err := interfaces.ParseDidDocStatus(inv.args[1])
		if err != nil {
			return nil, err
		}
		rec.Status = int(status)
		l.docs[inv.args[0]] = rec
	case fnRegisterVcMeta:
		var rec VcMetaRecord
		if err := json.Unmarshal([]byte(inv.args[0]), &rec); err != nil {
			return nil, err
		}
		l.vcMeta[rec.ID] = rec
	case fnUpdateVcStatus:
		rec, ok := l.vcMeta[inv.args[0]]
		if !ok {
			return nil, errChaincode
		}
		rec.Status = inv.args[1]
		l.vcMeta[rec.ID] = rec
	case fnRegisterVcSchema, fnRegisterZKPSchema, fnRegisterZKPDef:
		var head struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal([]byte(inv.args[0]), &head); err != nil {
			return nil, err
		}
		getFn := registerToGet[inv.fn]
		if l.raw[getFn] == nil {
			l.raw[getFn] = map[string]string{}
		}
		l.raw[getFn][head.ID] = inv.args[0]
	default:
		return nil, fmt.Errorf("unknown function %s", inv.fn)
	}

	l.txCount++
	return &SubmitResult{TransactionID: fmt.Sprintf("tx-%d", l.txCount), BlockNumber: uint64(l.txCount)}, nil
}

type fakeGateway struct {
	id     int64
	ledger *fakeLedger
	closed atomic.Bool
}

func (g *fakeGateway) Evaluate(ctx context.Context, channel, chaincode, fn string, args ...string) ([]byte, error) {
	return g.ledger.evaluate(invocation{channel: channel, chaincode: chaincode, fn: fn, args: args})
}

func (g *fakeGateway) Submit(ctx context.Context, channel, chaincode, fn string, args ...string) (*SubmitResult, error) {
	return g.ledger.submit(invocation{channel: channel, chaincode: chaincode, fn: fn, args: args})
}

func (g *fakeGateway) Close() error {
	g.closed.Store(true)
	return nil
}

type fakeFactory struct {
	ledger *fakeLedger

	created    atomic.Int64
	destroyed  atomic.Int64
	closeCalls atomic.Int64

	mu        sync.Mutex
	createErr error
	invalid   func(gw *fakeGateway) bool
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{ledger: newFakeLedger()}
}

func (f *fakeFactory) Create(ctx context.Context) (Gateway, error) {
	f.mu.Lock()
	createErr := f.createErr
	f.mu.Unlock()
	if createErr != nil {
		return nil, createErr
	}
	return &destroyTracking{
		fakeGateway: &fakeGateway{id: f.created.Inc(), ledger: f.ledger},
		destroyed:   &f.destroyed,
	}, nil
}

func (f *fakeFactory) Validate(gw Gateway) bool {
	g := gw.(*destroyTracking)
	f.mu.Lock()
	invalid := f.invalid
	f.mu.Unlock()
	if invalid != nil && invalid(g.fakeGateway) {
		return false
	}
	return !g.closed.Load()
}

func (f *fakeFactory) Close() error {
	f.closeCalls.Inc()
	return nil
}

type destroyTracking struct {
	*fakeGateway
	destroyed *atomic.Int64
}

func (d *destroyTracking) Close() error {
	d.destroyed.Inc()
	return d.fakeGateway.Close()
}

func gatewayID(gw Gateway) int64 {
	return gw.(*destroyTracking).id
}

func newTestPool(t *testing.T, cfg PoolConfig, factory *fakeFactory) *GatewayPool {
	pool, err := NewGatewayPool(context.Background(), cfg, factory, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })
	return pool
}
