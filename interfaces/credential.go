package interfaces

import (
	"fmt"
	"strings"
)

// VcStatus is the lifecycle status of an issued verifiable credential.
type VcStatus string

const (
	VcActive   VcStatus = "ACTIVE"
	VcInactive VcStatus = "INACTIVE"
	VcRevoked  VcStatus = "REVOKED"
)

// Valid reports whether s is a known credential status.
func (s VcStatus) Valid() bool {
	switch s {
	case VcActive, VcInactive, VcRevoked:
		return true
	default:
		return false
	}
}

// VcMeta is the on-ledger metadata of an issued verifiable credential.
type VcMeta struct {
	ID               string              `json:"id"`
	Issuer           Provider            `json:"issuer"`
	Subject          string              `json:"subject"`
	CredentialSchema CredentialSchemaRef `json:"credentialSchema"`
	Status           string              `json:"status"`
	IssuanceDate     string              `json:"issuanceDate"`
	ValidFrom        string              `json:"validFrom"`
	ValidUntil       string              `json:"validUntil"`
	FormatVersion    string              `json:"formatVersion"`
	Language         string              `json:"language"`
}

// Provider identifies a credential issuer.
type Provider struct {
	DID       string `json:"did"`
	CertVcRef string `json:"certVcRef"`
}

// CredentialSchemaRef points at the schema a credential was issued against.
type CredentialSchemaRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// VcSchema is a credential schema published on the ledger.
type VcSchema struct {
	ID                string                  `json:"id"`
	Schema            string                  `json:"schema"`
	Title             string                  `json:"title"`
	Description       string                  `json:"description"`
	Metadata          SchemaMetadata          `json:"metadata"`
	CredentialSubject SchemaCredentialSubject `json:"credentialSubject"`
}

type SchemaMetadata struct {
	FormatVersion string `json:"formatVersion"`
	Language      string `json:"language"`
}

type SchemaCredentialSubject struct {
	Claims []SchemaClaims `json:"claims"`
}

// SchemaClaims groups claim definitions under one namespace. Order of
// namespaces and of items within a namespace is significant.
type SchemaClaims struct {
	Namespace ClaimNamespace `json:"namespace"`
	Items     []ClaimDef     `json:"items"`
}

type ClaimNamespace struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Ref  string `json:"ref"`
}

type ClaimDef struct {
	ID        string `json:"id"`
	Caption   string `json:"caption"`
	Type      string `json:"type"`
	Format    string `json:"format"`
	HideValue bool   `json:"hideValue"`
}

// ZKPCredentialSchema is an anonymous-credential schema.
type ZKPCredentialSchema struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Version   string          `json:"version"`
	AttrNames []string        `json:"attrNames"`
	AttrTypes []AttributeType `json:"attrTypes"`
	Tag       string          `json:"tag"`
}

type AttributeType struct {
	Namespace ClaimNamespace `json:"namespace"`
	Items     []AttributeDef `json:"items"`
}

// AttributeDef describes one attribute. I18n maps a language tag to the
// localized caption.
type AttributeDef struct {
	Label   string             `json:"label"`
	Caption string             `json:"caption"`
	Type    AttributeValueType `json:"type"`
	I18n    map[string]string  `json:"i18n,omitempty"`
}

// AttributeValueType is the value type of a ZKP attribute.
type AttributeValueType string

const (
	AttrTypeString AttributeValueType = "String"
	AttrTypeNumber AttributeValueType = "Number"
)

// ParseAttributeValueType parses a stored attribute type case-insensitively.
// An empty value is treated as AttrTypeString.
func ParseAttributeValueType(raw string) (AttributeValueType, error) {
	switch strings.ToUpper(raw) {
	case "", "STRING":
		return AttrTypeString, nil
	case "NUMBER":
		return AttrTypeNumber, nil
	default:
		return "", fmt.Errorf("%w: unknown attribute type %q", ErrConversion, raw)
	}
}

// ZKPCredentialDefinition binds a ZKP schema to an issuer's public key
// material. Value is opaque to the adapter.
type ZKPCredentialDefinition struct {
	ID       string         `json:"id"`
	SchemaID string         `json:"schemaId"`
	Ver      string         `json:"ver"`
	Type     string         `json:"type"`
	Tag      string         `json:"tag"`
	Value    map[string]any `json:"value"`
}
