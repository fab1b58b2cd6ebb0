package interfaces

import "errors"

var (
	// ErrInvalidArgument is returned when a caller-supplied argument is rejected
	// before any network call is made.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConversion is returned when a record cannot be converted between the
	// domain model and a ledger representation.
	ErrConversion = errors.New("record conversion failed")

	// ErrTransaction is returned when the ledger or contract rejects an operation.
	ErrTransaction = errors.New("ledger transaction failed")

	// ErrConnection is returned for transport, I/O, timeout and connection
	// checkout failures.
	ErrConnection = errors.New("ledger connection failed")
)

// ErrorCode is a stable numeric code for the error taxonomy, suitable for
// surfacing to remote callers.
type ErrorCode int

const (
	CodeUnknown ErrorCode = iota
	CodeInvalidArgument
	CodeConversion
	CodeTransaction
	CodeConnection
)

// String returns the symbolic name of the code.
func (c ErrorCode) String() string {
	switch c {
	case CodeInvalidArgument:
		return "INVALID_ARGUMENT"
	case CodeConversion:
		return "CONVERSION_ERROR"
	case CodeTransaction:
		return "TRANSACTION_ERROR"
	case CodeConnection:
		return "CONNECTION_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}

// ErrorCodeOf maps an error returned by a ContractAPI implementation to its code.
func ErrorCodeOf(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return CodeInvalidArgument
	case errors.Is(err, ErrConversion):
		return CodeConversion
	case errors.Is(err, ErrTransaction):
		return CodeTransaction
	case errors.Is(err, ErrConnection):
		return CodeConnection
	default:
		return CodeUnknown
	}
}
