// Package fabric implements the ledger adapter for Hyperledger Fabric.
//
// Gateways share one TLS gRPC connection to the peer and are kept in a
// bounded pool. Each operation checks out one gateway, runs a single
// evaluate or submit against the configured channel and chaincode, and
// always returns the gateway.
package fabric

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hyperledger/fabric-gateway/pkg/client"
	"github.com/hyperledger/fabric-gateway/pkg/hash"
	"github.com/hyperledger/fabric-gateway/pkg/identity"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
)

// DefaultCallTimeout bounds evaluate, endorse, submit and commit-status calls.
const DefaultCallTimeout = 7 * time.Second

var (
	ErrCommitFailed   = errors.New("transaction commit failed")
	ErrGatewayInvalid = errors.New("gateway connection is no longer usable")
)

// Gateway is one pooled connection to the Fabric gateway service.
type Gateway interface {
	Evaluate(ctx context.Context, channel, chaincode, fn string, args ...string) ([]byte, error)
	Submit(ctx context.Context, channel, chaincode, fn string, args ...string) (*SubmitResult, error)
	Close() error
}

// SubmitResult is the outcome of a committed transaction.
type SubmitResult struct {
	Payload       []byte
	TransactionID string
	BlockNumber   uint64
}

// GatewayFactory creates and validates pooled gateways. Close releases
// whatever the gateways share.
type GatewayFactory interface {
	Create(ctx context.Context) (Gateway, error)
	Validate(gw Gateway) bool
	Close() error
}

// IdentityMaterial is the PEM encoded material a gateway connection needs.
type IdentityMaterial struct {
	CertificatePEM []byte
	PrivateKeyPEM  []byte
	TLSRootPEM     []byte
}

type GRPCFactoryConfig struct {
	MSPID        string
	Endpoint     string
	HostOverride string
	CallTimeout  time.Duration
	Identity     IdentityMaterial
}

// GRPCGatewayFactory connects gateways over a single shared gRPC channel.
type GRPCGatewayFactory struct {
	conn    *grpc.ClientConn
	id      *identity.X509Identity
	sign    identity.Sign
	timeout time.Duration
	log     *slog.Logger
}

// NewGRPCGatewayFactory parses the identity material and opens the shared
// TLS channel. The channel connects lazily.
func NewGRPCGatewayFactory(cfg GRPCFactoryConfig, log *slog.Logger) (*GRPCGatewayFactory, error) {
	if err := VerifyKeyPair(cfg.Identity.CertificatePEM, cfg.Identity.PrivateKeyPEM); err != nil {
		return nil, err
	}

	cert, err := identity.CertificateFromPEM(cfg.Identity.CertificatePEM)
	if err != nil {
		return nil, fmt.Errorf("could not parse client certificate: %w", err)
	}
	id, err := identity.NewX509Identity(cfg.MSPID, cert)
	if err != nil {
		return nil, fmt.Errorf("could not create identity: %w", err)
	}

	privateKey, err := identity.PrivateKeyFromPEM(cfg.Identity.PrivateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("could not parse private key: %w", err)
	}
	sign, err := identity.NewPrivateKeySign(privateKey)
	if err != nil {
		return nil, fmt.Errorf("could not create signer: %w", err)
	}

	roots := x509.NewCertPool()
	if !roots.AppendCertsFromPEM(cfg.Identity.TLSRootPEM) {
		return nil, errors.New("no TLS root certificates found")
	}

	conn, err := grpc.NewClient(cfg.Endpoint,
		grpc.WithTransportCredentials(credentials.NewClientTLSFromCert(roots, cfg.HostOverride)))
	if err != nil {
		return nil, fmt.Errorf("could not create gRPC connection: %w", err)
	}

	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}

	return &GRPCGatewayFactory{
		conn:    conn,
		id:      id,
		sign:    sign,
		timeout: timeout,
		log:     log,
	}, nil
}

func (f *GRPCGatewayFactory) Create(ctx context.Context) (Gateway, error) {
	if f.conn.GetState() == connectivity.Shutdown {
		return nil, ErrGatewayInvalid
	}
	gw, err := client.Connect(f.id,
		client.WithSign(f.sign),
		client.WithHash(hash.SHA256),
		client.WithClientConnection(f.conn),
		client.WithEvaluateTimeout(f.timeout),
		client.WithEndorseTimeout(f.timeout),
		client.WithSubmitTimeout(f.timeout),
		client.WithCommitStatusTimeout(f.timeout),
	)
	if err != nil {
		f.log.Error("Failed to connect gateway", "err", err)
		return nil, err
	}
	return &grpcGateway{gw: gw}, nil
}

// Validate reports whether the shared channel can still carry calls.
func (f *GRPCGatewayFactory) Validate(gw Gateway) bool {
	g, ok := gw.(*grpcGateway)
	if !ok || g.closed {
		return false
	}
	return f.conn.GetState() != connectivity.Shutdown
}

func (f *GRPCGatewayFactory) Close() error {
	return f.conn.Close()
}

type grpcGateway struct {
	gw     *client.Gateway
	closed bool
}

func (g *grpcGateway) Evaluate(ctx context.Context, channel, chaincode, fn string, args ...string) ([]byte, error) {
	contract := g.gw.GetNetwork(channel).GetContract(chaincode)
	proposal, err := contract.NewProposal(fn, client.WithArguments(args...))
	if err != nil {
		return nil, err
	}
	return proposal.EvaluateWithContext(ctx)
}

func (g *grpcGateway) Submit(ctx context.Context, channel, chaincode, fn string, args ...string) (*SubmitResult, error) {
	contract := g.gw.GetNetwork(channel).GetContract(chaincode)
	proposal, err := contract.NewProposal(fn, client.WithArguments(args...))
	if err != nil {
		return nil, err
	}
	tx, err := proposal.EndorseWithContext(ctx)
	if err != nil {
		return nil, err
	}
	commit, err := tx.SubmitWithContext(ctx)
	if err != nil {
		return nil, err
	}
	status, err := commit.StatusWithContext(ctx)
	if err != nil {
		return nil, err
	}
	if !status.Successful {
		return nil, fmt.Errorf("%w: transaction %s: %s", ErrCommitFailed, status.TransactionID, status.Code.String())
	}
	return &SubmitResult{
		Payload:       tx.Result(),
		TransactionID: status.TransactionID,
		BlockNumber:   status.BlockNumber,
	}, nil
}

func (g *grpcGateway) Close() error {
	g.closed = true
	return g.gw.Close()
}
