package interfaces

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// LedgerType selects the ledger backend.
type LedgerType string

const (
	LedgerEVM    LedgerType = "evm"
	LedgerFabric LedgerType = "fabric"
)

// ContractAPI is the backend-agnostic capability set exposed to the DID platform.
// Every implementation validates its arguments before touching the network and
// reports failures through ErrInvalidArgument, ErrConversion, ErrTransaction or
// ErrConnection.
type ContractAPI interface {
	// RegisterDidDoc records a new DID Document on behalf of an entity with the given role.
	RegisterDidDoc(ctx context.Context, doc *DidDocument, role RoleType) error

	// GetDidDoc returns the DID Document and status for the DID of a DID key URL.
	GetDidDoc(ctx context.Context, didKeyURL string) (*DidDocAndStatus, error)

	// UpdateDidDocStatus changes the lifecycle status of a DID Document.
	// DidDocTerminated requires a non-nil terminatedTime. When terminatedTime is
	// set the revocation path of the ledger is used for any status.
	UpdateDidDocStatus(ctx context.Context, didKeyURL string, status DidDocStatus, terminatedTime *time.Time) (*TransactionResult, error)

	RegisterVcMetadata(ctx context.Context, meta *VcMeta) error
	GetVcMetadata(ctx context.Context, vcID string) (*VcMeta, error)
	UpdateVcStatus(ctx context.Context, vcID string, status VcStatus) error

	RegisterVcSchema(ctx context.Context, schema *VcSchema) error
	GetVcSchema(ctx context.Context, schemaID string) (*VcSchema, error)

	RegisterZKPCredentialSchema(ctx context.Context, schema *ZKPCredentialSchema) error
	GetZKPCredentialSchema(ctx context.Context, schemaID string) (*ZKPCredentialSchema, error)

	RegisterZKPCredentialDefinition(ctx context.Context, def *ZKPCredentialDefinition) error
	GetZKPCredentialDefinition(ctx context.Context, definitionID string) (*ZKPCredentialDefinition, error)

	// Close releases long-lived resources. It is safe to call more than once.
	Close() error
}

// TransactionResult is returned by status-mutation operations.
type TransactionResult struct {
	StatusCode int    `json:"statusCode"`
	Status     string `json:"status"`
	TxHash     string `json:"txHash"`
}

// Signer signs transaction hashes for the EVM backend. Implementations may
// hold the key locally or delegate to a remote signing service.
type Signer interface {
	Address() common.Address
	SignHash(ctx context.Context, hash []byte) ([]byte, error)
}

// StatusUpdate is a validated DID Document status change.
type StatusUpdate struct {
	Key            DidKeyURL
	Status         DidDocStatus
	TerminatedTime *time.Time
}

// UseRevocationPath reports whether the update goes through the ledger's
// revocation entry point, which records a timestamp.
func (u StatusUpdate) UseRevocationPath() bool {
	return u.TerminatedTime != nil
}

// InServiceVersionID returns the version id sent with an in-service update.
// Revocations carry no version.
func (u StatusUpdate) InServiceVersionID() string {
	if u.Status == DidDocRevoked {
		return ""
	}
	return u.Key.VersionID
}

// ValidateStatusUpdate checks a status change without any network access.
func ValidateStatusUpdate(didKeyURL string, status DidDocStatus, terminatedTime *time.Time) (StatusUpdate, error) {
	key, err := ParseDidKeyURL(didKeyURL)
	if err != nil {
		return StatusUpdate{}, err
	}
	if !status.Valid() {
		return StatusUpdate{}, fmt.Errorf("%w: unknown DID document status %d", ErrInvalidArgument, int(status))
	}
	if status == DidDocTerminated && terminatedTime == nil {
		return StatusUpdate{}, fmt.Errorf("%w: TERMINATED status requires a termination time", ErrInvalidArgument)
	}
	return StatusUpdate{Key: key, Status: status, TerminatedTime: terminatedTime}, nil
}

// RequireID rejects empty identifiers.
func RequireID(kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty %s", ErrInvalidArgument, kind)
	}
	return nil
}

// RequireRecord rejects nil records.
func RequireRecord[T any](kind string, rec *T) error {
	if rec == nil {
		return fmt.Errorf("%w: nil %s", ErrInvalidArgument, kind)
	}
	return nil
}
