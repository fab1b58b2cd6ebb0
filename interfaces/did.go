package interfaces

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// DidDocument is a W3C-style DID Document as stored by the ledger.
type DidDocument struct {
	Context              []string             `json:"@context"`
	ID                   string               `json:"id"`
	Controller           string               `json:"controller"`
	Created              string               `json:"created"`
	Updated              string               `json:"updated"`
	VersionID            string               `json:"versionId"`
	Deactivated          bool                 `json:"deactivated"`
	VerificationMethod   []VerificationMethod `json:"verificationMethod"`
	AssertionMethod      []string             `json:"assertionMethod,omitempty"`
	Authentication       []string             `json:"authentication,omitempty"`
	KeyAgreement         []string             `json:"keyAgreement,omitempty"`
	CapabilityInvocation []string             `json:"capabilityInvocation,omitempty"`
	CapabilityDelegation []string             `json:"capabilityDelegation,omitempty"`
	Service              []Service            `json:"service,omitempty"`
}

// VerificationMethod describes one public key of a DID subject.
type VerificationMethod struct {
	ID                 string `json:"id"`
	Type               string `json:"type"`
	Controller         string `json:"controller"`
	PublicKeyMultibase string `json:"publicKeyMultibase"`
	AuthType           int    `json:"authType"`
}

// Service is a service endpoint advertised by a DID Document.
type Service struct {
	ID              string   `json:"id"`
	Type            string   `json:"type"`
	ServiceEndpoint []string `json:"serviceEndpoint"`
}

// DidDocAndStatus pairs a DID Document with its lifecycle status.
type DidDocAndStatus struct {
	Document *DidDocument `json:"document"`
	Status   DidDocStatus `json:"status"`
}

// DidDocStatus is the lifecycle status of a DID Document. The numeric values
// match the ledger encoding.
type DidDocStatus int

const (
	DidDocActivated DidDocStatus = iota
	DidDocDeactivated
	DidDocRevoked
	DidDocTerminated
)

var didDocStatusNames = [...]string{"ACTIVATED", "DEACTIVATED", "REVOKED", "TERMINATED"}

// String returns the raw status value sent to the ledger.
func (s DidDocStatus) String() string {
	if s < 0 || int(s) >= len(didDocStatusNames) {
		return fmt.Sprintf("DidDocStatus(%d)", int(s))
	}
	return didDocStatusNames[s]
}

// Valid reports whether s is one of the four defined statuses.
func (s DidDocStatus) Valid() bool {
	return s >= DidDocActivated && s <= DidDocTerminated
}

// ParseDidDocStatus parses the raw string value of a status, case-insensitively.
func ParseDidDocStatus(raw string) (DidDocStatus, error) {
	for i, name := range didDocStatusNames {
		if strings.EqualFold(raw, name) {
			return DidDocStatus(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown DID document status %q", ErrInvalidArgument, raw)
}

// DidDocStatusFromLedger decodes a ledger status integer. Values outside the
// defined range fall back to DidDocActivated; ok is false in that case.
func DidDocStatusFromLedger(v int) (status DidDocStatus, ok bool) {
	if v < 0 || v >= len(didDocStatusNames) {
		return DidDocActivated, false
	}
	return DidDocStatus(v), true
}

// Verification key type names and their ledger encoding.
const (
	KeyTypeRsa       = "RsaVerificationKey2018"
	KeyTypeSecp256k1 = "Secp256k1VerificationKey2018"
	KeyTypeSecp256r1 = "Secp256r1VerificationKey2018"
)

var keyTypeNames = [...]string{KeyTypeRsa, KeyTypeSecp256k1, KeyTypeSecp256r1}

// KeyTypeCode maps a key type name to its ledger integer. Unknown or empty
// names map to 0.
func KeyTypeCode(name string) int {
	for i, n := range keyTypeNames {
		if n == name {
			return i
		}
	}
	return 0
}

// KeyTypeName maps a ledger integer to its key type name.
func KeyTypeName(code int) (string, error) {
	if code < 0 || code >= len(keyTypeNames) {
		return "", fmt.Errorf("%w: key type %d out of range", ErrConversion, code)
	}
	return keyTypeNames[code], nil
}

// RoleType identifies the kind of entity registering a DID Document.
type RoleType string

const (
	RoleTas                  RoleType = "Tas"
	RoleWallet               RoleType = "Wallet"
	RoleWalletProvider       RoleType = "WalletProvider"
	RoleAppProvider          RoleType = "AppProvider"
	RoleListProvider         RoleType = "ListProvider"
	RoleOpProvider           RoleType = "OpProvider"
	RoleKycProvider          RoleType = "KycProvider"
	RoleNotificationProvider RoleType = "NotificationProvider"
	RoleLogProvider          RoleType = "LogProvider"
	RolePortalProvider       RoleType = "PortalProvider"
	RoleDelegationProvider   RoleType = "DelegationProvider"
	RoleStorageProvider      RoleType = "StorageProvider"
	RoleBackupProvider       RoleType = "BackupProvider"
	RoleIssuer               RoleType = "Issuer"
	RoleVerifier             RoleType = "Verifier"
	RoleEtc                  RoleType = "Etc"
)

// DidKeyURL is a parsed DID URL such as did:omn:abc?versionId=2#key-1.
type DidKeyURL struct {
	Raw       string
	DID       string
	VersionID string
	Fragment  string
}

// ParseDidKeyURL splits a DID URL into the bare DID, the versionId query
// parameter and the fragment.
func ParseDidKeyURL(raw string) (DidKeyURL, error) {
	if strings.TrimSpace(raw) == "" {
		return DidKeyURL{}, fmt.Errorf("%w: empty DID key URL", ErrInvalidArgument)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return DidKeyURL{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if u.Scheme != "did" || u.Opaque == "" || !strings.Contains(u.Opaque, ":") {
		return DidKeyURL{}, fmt.Errorf("%w: %q is not a DID URL", ErrInvalidArgument, raw)
	}

	return DidKeyURL{
		Raw:       raw,
		DID:       "did:" + u.Opaque,
		VersionID: u.Query().Get("versionId"),
		Fragment:  u.Fragment,
	}, nil
}

// FormatLedgerTime formats a termination timestamp the way the ledgers store it.
func FormatLedgerTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
