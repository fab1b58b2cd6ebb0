package fabric

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ruteri/did-ledger-adapter/interfaces"
)

// Codec converts domain records to chaincode JSON arguments and back.
// It performs no I/O.
type Codec struct {
	StrictStatus bool
}

func (c Codec) EncodeDidDocument(doc *interfaces.DidDocument, role interfaces.RoleType) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("%w: nil DID document", interfaces.ErrConversion)
	}
	return encode(RegisterDidDocRequest{Document: documentToRecord(doc), Role: string(role)})
}

func (c Codec) DecodeDidDocAndStatus(payload []byte) (*interfaces.DidDocAndStatus, error) {
	var rec DocumentAndStatusRecord
	if err := decode(payload, &rec); err != nil {
		return nil, err
	}

	doc, err := documentFromRecord(rec.Document)
	if err != nil {
		return nil, err
	}
	status, ok := interfaces.DidDocStatusFromLedger(rec.Status)
	if !ok && c.StrictStatus {
		return nil, fmt.Errorf("%w: DID document status %d out of range", interfaces.ErrConversion, rec.Status)
	}
	return &interfaces.DidDocAndStatus{Document: doc, Status: status}, nil
}

func (c Codec) EncodeVcMeta(meta *interfaces.VcMeta) (string, error) {
	if meta == nil {
		return "", fmt.Errorf("%w: nil VC metadata", interfaces.ErrConversion)
	}
	return encode(VcMetaRecord{
		ID:               meta.ID,
		Issuer:           ProviderRecord{DID: meta.Issuer.DID, CertVcRef: meta.Issuer.CertVcRef},
		Subject:          meta.Subject,
		CredentialSchema: SchemaRefRecord{ID: meta.CredentialSchema.ID, Type: meta.CredentialSchema.Type},
		Status:           meta.Status,
		IssuanceDate:     meta.IssuanceDate,
		ValidFrom:        meta.ValidFrom,
		ValidUntil:       meta.ValidUntil,
		FormatVersion:    meta.FormatVersion,
		Language:         meta.Language,
	})
}

func (c Codec) DecodeVcMeta(payload []byte) (*interfaces.VcMeta, error) {
	var rec VcMetaRecord
	if err := decode(payload, &rec); err != nil {
		return nil, err
	}
	return &interfaces.VcMeta{
		ID:               rec.ID,
		Issuer:           interfaces.Provider{DID: rec.Issuer.DID, CertVcRef: rec.Issuer.CertVcRef},
		Subject:          rec.Subject,
		CredentialSchema: interfaces.CredentialSchemaRef{ID: rec.CredentialSchema.ID, Type: rec.CredentialSchema.Type},
		Status:           rec.Status,
		IssuanceDate:     rec.IssuanceDate,
		ValidFrom:        rec.ValidFrom,
		ValidUntil:       rec.ValidUntil,
		FormatVersion:    rec.FormatVersion,
		Language:         rec.Language,
	}, nil
}

func (c Codec) EncodeVcSchema(schema *interfaces.VcSchema) (string, error) {
	if schema == nil {
		return "", fmt.Errorf("%w: nil VC schema", interfaces.ErrConversion)
	}

	claims := make([]ClaimsRecord, 0, len(schema.CredentialSubject.Claims))
	for _, group := range schema.CredentialSubject.Claims {
		items := make([]ClaimDefRecord, 0, len(group.Items))
		for _, item := range group.Items {
			items = append(items, ClaimDefRecord(item))
		}
		claims = append(claims, ClaimsRecord{Namespace: NamespaceRecord(group.Namespace), Items: items})
	}

	return encode(VcSchemaRecord{
		ID:                schema.ID,
		Schema:            schema.Schema,
		Title:             schema.Title,
		Description:       schema.Description,
		Metadata:          SchemaMetadataRecord(schema.Metadata),
		CredentialSubject: SubjectRecord{Claims: claims},
	})
}

func (c Codec) DecodeVcSchema(payload []byte) (*interfaces.VcSchema, error) {
	var rec VcSchemaRecord
	if err := decode(payload, &rec); err != nil {
		return nil, err
	}

	claims := make([]interfaces.SchemaClaims, 0, len(rec.CredentialSubject.Claims))
	for _, group := range rec.CredentialSubject.Claims {
		items := make([]interfaces.ClaimDef, 0, len(group.Items))
		for _, item := range group.Items {
			items = append(items, interfaces.ClaimDef(item))
		}
		claims = append(claims, interfaces.SchemaClaims{Namespace: interfaces.ClaimNamespace(group.Namespace), Items: items})
	}

	return &interfaces.VcSchema{
		ID:                rec.ID,
		Schema:            rec.Schema,
		Title:             rec.Title,
		Description:       rec.Description,
		Metadata:          interfaces.SchemaMetadata(rec.Metadata),
		CredentialSubject: interfaces.SchemaCredentialSubject{Claims: claims},
	}, nil
}

func (c Codec) EncodeZKPSchema(schema *interfaces.ZKPCredentialSchema) (string, error) {
	if schema == nil {
		return "", fmt.Errorf("%w: nil ZKP credential schema", interfaces.ErrConversion)
	}

	attrTypes := make([]AttrTypeRecord, 0, len(schema.AttrTypes))
	for _, at := range schema.AttrTypes {
		items := make([]AttrItemRecord, 0, len(at.Items))
		for _, item := range at.Items {
			valueType, err := interfaces.ParseAttributeValueType(string(item.Type))
			if err != nil {
				return "", err
			}
			items = append(items, AttrItemRecord{
				Label:   item.Label,
				Caption: item.Caption,
				Type:    string(valueType),
				I18n:    i18nToRecord(item.I18n),
			})
		}
		attrTypes = append(attrTypes, AttrTypeRecord{Namespace: NamespaceRecord(at.Namespace), Items: items})
	}

	return encode(ZKPSchemaRecord{
		ID:        schema.ID,
		Name:      schema.Name,
		Version:   schema.Version,
		AttrNames: orEmpty(schema.AttrNames),
		AttrTypes: attrTypes,
		Tag:       schema.Tag,
	})
}

func (c Codec) DecodeZKPSchema(payload []byte) (*interfaces.ZKPCredentialSchema, error) {
	var rec ZKPSchemaRecord
	if err := decode(payload, &rec); err != nil {
		return nil, err
	}

	attrTypes := make([]interfaces.AttributeType, 0, len(rec.AttrTypes))
	for _, at := range rec.AttrTypes {
		items := make([]interfaces.AttributeDef, 0, len(at.Items))
		for _, item := range at.Items {
			valueType, err := interfaces.ParseAttributeValueType(item.Type)
			if err != nil {
				return nil, err
			}
			items = append(items, interfaces.AttributeDef{
				Label:   item.Label,
				Caption: item.Caption,
				Type:    valueType,
				I18n:    i18nFromRecord(item.I18n),
			})
		}
		attrTypes = append(attrTypes, interfaces.AttributeType{Namespace: interfaces.ClaimNamespace(at.Namespace), Items: items})
	}

	return &interfaces.ZKPCredentialSchema{
		ID:        rec.ID,
		Name:      rec.Name,
		Version:   rec.Version,
		AttrNames: orEmpty(rec.AttrNames),
		AttrTypes: attrTypes,
		Tag:       rec.Tag,
	}, nil
}

func (c Codec) EncodeZKPDefinition(def *interfaces.ZKPCredentialDefinition) (string, error) {
	if def == nil {
		return "", fmt.Errorf("%w: nil ZKP credential definition", interfaces.ErrConversion)
	}
	value, err := json.Marshal(def.Value)
	if err != nil {
		return "", fmt.Errorf("%w: credential definition value: %v", interfaces.ErrConversion, err)
	}
	return encode(DefinitionRecord{
		ID:       def.ID,
		SchemaID: def.SchemaID,
		Ver:      def.Ver,
		Type:     def.Type,
		Value:    string(value),
		Tag:      def.Tag,
	})
}

func (c Codec) DecodeZKPDefinition(payload []byte) (*interfaces.ZKPCredentialDefinition, error) {
	var rec DefinitionRecord
	if err := decode(payload, &rec); err != nil {
		return nil, err
	}
	var value map[string]any
	if err := json.Unmarshal([]byte(rec.Value), &value); err != nil {
		return nil, fmt.Errorf("%w: credential definition value: %v", interfaces.ErrConversion, err)
	}
	return &interfaces.ZKPCredentialDefinition{
		ID:       rec.ID,
		SchemaID: rec.SchemaID,
		Ver:      rec.Ver,
		Type:     rec.Type,
		Tag:      rec.Tag,
		Value:    value,
	}, nil
}

func documentToRecord(doc *interfaces.DidDocument) DocumentRecord {
	methods := make([]VerificationMethodRecord, 0, len(doc.VerificationMethod))
	for _, vm := range doc.VerificationMethod {
		methods = append(methods, VerificationMethodRecord{
			ID:                 vm.ID,
			KeyType:            interfaces.KeyTypeCode(vm.Type),
			Controller:         vm.Controller,
			PublicKeyMultibase: vm.PublicKeyMultibase,
			AuthType:           vm.AuthType,
		})
	}

	services := make([]ServiceRecord, 0, len(doc.Service))
	for _, svc := range doc.Service {
		services = append(services, ServiceRecord{
			ID:              svc.ID,
			Type:            svc.Type,
			ServiceEndpoint: orEmpty(svc.ServiceEndpoint),
		})
	}

	return DocumentRecord{
		Context:              orEmpty(doc.Context),
		ID:                   doc.ID,
		Controller:           doc.Controller,
		Created:              doc.Created,
		Updated:              doc.Updated,
		VersionID:            doc.VersionID,
		Deactivated:          doc.Deactivated,
		VerificationMethod:   methods,
		AssertionMethod:      orEmpty(doc.AssertionMethod),
		Authentication:       orEmpty(doc.Authentication),
		KeyAgreement:         orEmpty(doc.KeyAgreement),
		CapabilityInvocation: orEmpty(doc.CapabilityInvocation),
		CapabilityDelegation: orEmpty(doc.CapabilityDelegation),
		Service:              services,
	}
}

func documentFromRecord(rec DocumentRecord) (*interfaces.DidDocument, error) {
	methods := make([]interfaces.VerificationMethod, 0, len(rec.VerificationMethod))
	for _, vm := range rec.VerificationMethod {
		keyType, err := interfaces.KeyTypeName(vm.KeyType)
		if err != nil {
			return nil, err
		}
		methods = append(methods, interfaces.VerificationMethod{
			ID:                 vm.ID,
			Type:               keyType,
			Controller:         vm.Controller,
			PublicKeyMultibase: vm.PublicKeyMultibase,
			AuthType:           vm.AuthType,
		})
	}

	services := make([]interfaces.Service, 0, len(rec.Service))
	for _, svc := range rec.Service {
		services = append(services, interfaces.Service{
			ID:              svc.ID,
			Type:            svc.Type,
			ServiceEndpoint: orEmpty(svc.ServiceEndpoint),
		})
	}

	return &interfaces.DidDocument{
		Context:              orEmpty(rec.Context),
		ID:                   rec.ID,
		Controller:           rec.Controller,
		Created:              rec.Created,
		Updated:              rec.Updated,
		VersionID:            rec.VersionID,
		Deactivated:          rec.Deactivated,
		VerificationMethod:   methods,
		AssertionMethod:      orEmpty(rec.AssertionMethod),
		Authentication:       orEmpty(rec.Authentication),
		KeyAgreement:         orEmpty(rec.KeyAgreement),
		CapabilityInvocation: orEmpty(rec.CapabilityInvocation),
		CapabilityDelegation: orEmpty(rec.CapabilityDelegation),
		Service:              services,
	}, nil
}

// i18nToRecord orders pairs by language so the encoding is deterministic.
func i18nToRecord(m map[string]string) []I18nRecord {
	langs := make([]string, 0, len(m))
	for lang := range m {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	out := make([]I18nRecord, 0, len(langs))
	for _, lang := range langs {
		out = append(out, I18nRecord{Language: lang, Value: m[lang]})
	}
	return out
}

// i18nFromRecord keeps the last value for a repeated language.
func i18nFromRecord(pairs []I18nRecord) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		out[p.Language] = p.Value
	}
	return out
}

func encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: %v", interfaces.ErrConversion, err)
	}
	return string(b), nil
}

func decode(payload []byte, v any) error {
	if len(payload) == 0 {
		return fmt.Errorf("%w: empty chaincode response", interfaces.ErrConversion)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrConversion, err)
	}
	return nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
