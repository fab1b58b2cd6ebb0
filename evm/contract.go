package evm

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

//go:embed opendid_abi.json
var openDIDABIJSON []byte

var (
	parsedABI    abi.ABI
	parseABIOnce sync.Once
	errParseABI  error
)

// Contract method names.
const (
	methodRegisterDidDoc      = "registDidDoc"
	methodGetDidDoc           = "getDidDoc"
	methodUpdateStatusService = "updateDidDocStatusInService"
	methodUpdateStatusRevoke  = "updateDidDocStatusRevocation"
	methodRegisterVcMeta      = "registVcMetaData"
	methodGetVcMeta           = "getVcmetaData"
	methodUpdateVcStatus      = "updateVcStats"
	methodRegisterVcSchema    = "registVcSchema"
	methodGetVcSchema         = "getVcSchema"
	methodRegisterZKPSchema   = "registZKPCredential"
	methodGetZKPSchema        = "getZKPCredential"
	methodRegisterZKPDef      = "registZKPCredentialDefinition"
	methodGetZKPDef           = "getZKPCredentialDefinition"
)

// ContractABI returns the parsed OpenDID registry ABI. It is parsed once.
func ContractABI() (abi.ABI, error) {
	parseABIOnce.Do(func() {
		parsedABI, errParseABI = abi.JSON(bytes.NewReader(openDIDABIJSON))
		if errParseABI != nil {
			errParseABI = fmt.Errorf("failed to parse OpenDID ABI: %w", errParseABI)
		}
	})
	return parsedABI, errParseABI
}

// The record types below mirror the contract tuples. Field order and names
// must match the ABI components.

type DocumentRecord struct {
	Context              []string
	Id                   string
	Controller           string
	Created              string
	Updated              string
	VersionId            string
	Deactivated          bool
	VerificationMethod   []VerificationMethodRecord
	AssertionMethod      []string
	Authentication       []string
	KeyAgreement         []string
	CapabilityInvocation []string
	CapabilityDelegation []string
	Services             []ServiceRecord
}

type VerificationMethodRecord struct {
	Id                 string
	KeyType            uint8
	Controller         string
	PublicKeyMultibase string
	AuthType           uint8
}

type ServiceRecord struct {
	Id              string
	ServiceType     string
	ServiceEndpoint []string
}

type DocumentAndStatusRecord struct {
	Diddoc DocumentRecord
	Status uint8
}

type VcMetaRecord struct {
	Id               string
	Issuer           ProviderRecord
	Subject          string
	CredentialSchema CredentialSchemaRefRecord
	Status           string
	IssuanceDate     string
	ValidFrom        string
	ValidUntil       string
	FormatVersion    string
	Language         string
}

type ProviderRecord struct {
	Did       string
	CertVcRef string
}

type CredentialSchemaRefRecord struct {
	Id                   string
	CredentialSchemaType string
}

type VcSchemaRecord struct {
	Id                string
	Schema            string
	Title             string
	Description       string
	Metadata          SchemaMetadataRecord
	CredentialSubject CredentialSubjectRecord
}

type SchemaMetadataRecord struct {
	FormatVersion string
	Language      string
}

type CredentialSubjectRecord struct {
	Claims []SchemaClaimsRecord
}

type SchemaClaimsRecord struct {
	Items     []ClaimDefRecord
	Namespace NamespaceRecord
}

type ClaimDefRecord struct {
	Caption   string
	Format    string
	HideValue bool
	Id        string
	Type      string
}

type NamespaceRecord struct {
	Id   string
	Name string
	Ref  string
}

type ZKPCredentialSchemaRecord struct {
	Id        string
	Name      string
	Version   string
	AttrNames []string
	AttrTypes []AttributeTypeRecord
	Tag       string
}

type AttributeTypeRecord struct {
	Namespace NamespaceRecord
	Items     []AttributeItemRecord
}

type AttributeItemRecord struct {
	Label   string
	Caption string
	Type    string
	I18n    []I18nRecord
}

type I18nRecord struct {
	LanguageType string
	Value        string
}

type CredentialDefinitionRecord struct {
	Id       string
	SchemaId string
	Ver      string
	Type     string
	Value    string
	Tag      string
}
