package fabric

// Chaincode function names of the OpenDID Fabric contract.
const (
	fnRegisterDidDoc     = "RegistDidDoc"
	fnGetDidDoc          = "GetDidDoc"
	fnUpdateStatusServe  = "UpdateDidDocStatusInService"
	fnUpdateStatusRevoke = "UpdateDidDocStatusRevocation"
	fnRegisterVcMeta     = "RegistVcMetadata"
	fnGetVcMeta          = "GetVcMetadata"
	fnUpdateVcStatus     = "UpdateVcStatus"
	fnRegisterVcSchema   = "RegistVcSchema"
	fnGetVcSchema        = "GetVcSchema"
	fnRegisterZKPSchema  = "RegistZKPCredential"
	fnGetZKPSchema       = "GetZKPCredential"
	fnRegisterZKPDef     = "RegistZKPCredentialDefinition"
	fnGetZKPDef          = "GetZKPCredentialDefinition"
)

// DocumentRecord is the chaincode JSON form of a DID Document. Key types are
// stored as integers.
type DocumentRecord struct {
	Context              []string                   `json:"@context"`
	ID                   string                     `json:"id"`
	Controller           string                     `json:"controller"`
	Created              string                     `json:"created"`
	Updated              string                     `json:"updated"`
	VersionID            string                     `json:"versionId"`
	Deactivated          bool                       `json:"deactivated"`
	VerificationMethod   []VerificationMethodRecord `json:"verificationMethod"`
	AssertionMethod      []string                   `json:"assertionMethod"`
	Authentication       []string                   `json:"authentication"`
	KeyAgreement         []string                   `json:"keyAgreement"`
	CapabilityInvocation []string                   `json:"capabilityInvocation"`
	CapabilityDelegation []string                   `json:"capabilityDelegation"`
	Service              []ServiceRecord            `json:"service"`
}

type VerificationMethodRecord struct {
	ID                 string `json:"id"`
	KeyType            int    `json:"type"`
	Controller         string `json:"controller"`
	PublicKeyMultibase string `json:"publicKeyMultibase"`
	AuthType           int    `json:"authType"`
}

type ServiceRecord struct {
	ID              string   `json:"id"`
	Type            string   `json:"type"`
	ServiceEndpoint []string `json:"serviceEndpoint"`
}

// DocumentAndStatusRecord is returned by GetDidDoc.
type DocumentAndStatusRecord struct {
	Document DocumentRecord `json:"document"`
	Status   int            `json:"status"`
}

// RegisterDidDocRequest wraps a document with the role of the registering entity.
type RegisterDidDocRequest struct {
	Document DocumentRecord `json:"document"`
	Role     string         `json:"roleType"`
}

type VcMetaRecord struct {
	ID               string          `json:"id"`
	Issuer           ProviderRecord  `json:"issuer"`
	Subject          string          `json:"subject"`
	CredentialSchema SchemaRefRecord `json:"credentialSchema"`
	Status           string          `json:"status"`
	IssuanceDate     string          `json:"issuanceDate"`
	ValidFrom        string          `json:"validFrom"`
	ValidUntil       string          `json:"validUntil"`
	FormatVersion    string          `json:"formatVersion"`
	Language         string          `json:"language"`
}

type ProviderRecord struct {
	DID       string `json:"did"`
	CertVcRef string `json:"certVcRef"`
}

type SchemaRefRecord struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type VcSchemaRecord struct {
	ID                string               `json:"id"`
	Schema            string               `json:"@schema"`
	Title             string               `json:"title"`
	Description       string               `json:"description"`
	Metadata          SchemaMetadataRecord `json:"metadata"`
	CredentialSubject SubjectRecord        `json:"credentialSubject"`
}

type SchemaMetadataRecord struct {
	FormatVersion string `json:"formatVersion"`
	Language      string `json:"language"`
}

type SubjectRecord struct {
	Claims []ClaimsRecord `json:"claims"`
}

type ClaimsRecord struct {
	Namespace NamespaceRecord  `json:"namespace"`
	Items     []ClaimDefRecord `json:"items"`
}

type NamespaceRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Ref  string `json:"ref"`
}

type ClaimDefRecord struct {
	ID        string `json:"id"`
	Caption   string `json:"caption"`
	Type      string `json:"type"`
	Format    string `json:"format"`
	HideValue bool   `json:"hideValue"`
}

type ZKPSchemaRecord struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Version   string           `json:"version"`
	AttrNames []string         `json:"attrNames"`
	AttrTypes []AttrTypeRecord `json:"attrTypes"`
	Tag       string           `json:"tag"`
}

type AttrTypeRecord struct {
	Namespace NamespaceRecord  `json:"namespace"`
	Items     []AttrItemRecord `json:"items"`
}

type AttrItemRecord struct {
	Label   string       `json:"label"`
	Caption string       `json:"caption"`
	Type    string       `json:"type"`
	I18n    []I18nRecord `json:"i18n"`
}

type I18nRecord struct {
	Language string `json:"languageType"`
	Value    string `json:"value"`
}

// DefinitionRecord carries the opaque definition value as a JSON string.
type DefinitionRecord struct {
	ID       string `json:"id"`
	SchemaID string `json:"schemaId"`
	Ver      string `json:"ver"`
	Type     string `json:"type"`
	Value    string `json:"value"`
	Tag      string `json:"tag"`
}
