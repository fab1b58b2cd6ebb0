// Package interfaces defines the domain model and the contracts shared by the
// ledger backends, separating interface definitions from implementations.
//
// # Domain Model
//
// DidDocument, VcMeta, VcSchema, ZKPCredentialSchema and ZKPCredentialDefinition
// are plain records. The enumerations DidDocStatus, VcStatus and
// AttributeValueType, and the verification key type names, carry the integer or
// string encodings the ledgers use.
//
// # Capability Set
//
// ContractAPI is implemented once per ledger (evm, fabric) and selected by the
// ledger package from configuration. Callers never see which backend is in use.
//
// # Supporting Interfaces
//
//   - Signer: signs EVM transaction hashes, locally or through a remote service
//   - KeyMaterialSource: reads certificates, keys and TLS roots from file, Vault or S3
//
// # Error Types
//
//   - ErrInvalidArgument: argument rejected before any network call
//   - ErrConversion: record could not be converted to or from a ledger representation
//   - ErrTransaction: the ledger or contract rejected the operation
//   - ErrConnection: transport, I/O, timeout or connection checkout failure
//
// Errors are wrapped with fmt.Errorf("%w: %v", sentinel, cause), so callers
// use errors.Is and never see backend-specific error types.
package interfaces
