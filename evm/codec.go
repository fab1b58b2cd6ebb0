package evm

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ruteri/did-ledger-adapter/interfaces"
)

// Codec converts domain records to contract tuples and back. It performs no I/O.
//
// With StrictStatus set, a ledger status outside the defined range is a
// conversion error instead of decoding to ACTIVATED.
type Codec struct {
	StrictStatus bool
}

func (c Codec) DidDocumentToChain(doc *interfaces.DidDocument) (DocumentRecord, error) {
	if doc == nil {
		return DocumentRecord{}, fmt.Errorf("%w: nil DID document", interfaces.ErrConversion)
	}

	methods := make([]VerificationMethodRecord, 0, len(doc.VerificationMethod))
	for _, vm := range doc.VerificationMethod {
		authType, err := toUint8("authType", vm.AuthType)
		if err != nil {
			return DocumentRecord{}, err
		}
		methods = append(methods, VerificationMethodRecord{
			Id:                 vm.ID,
			KeyType:            uint8(interfaces.KeyTypeCode(vm.Type)),
			Controller:         vm.Controller,
			PublicKeyMultibase: vm.PublicKeyMultibase,
			AuthType:           authType,
		})
	}

	services := make([]ServiceRecord, 0, len(doc.Service))
	for _, svc := range doc.Service {
		services = append(services, ServiceRecord{
			Id:              svc.ID,
			ServiceType:     svc.Type,
			ServiceEndpoint: orEmpty(svc.ServiceEndpoint),
		})
	}

	return DocumentRecord{
		Context:              orEmpty(doc.Context),
		Id:                   doc.ID,
		Controller:           doc.Controller,
		Created:              doc.Created,
		Updated:              doc.Updated,
		VersionId:            doc.VersionID,
		Deactivated:          doc.Deactivated,
		VerificationMethod:   methods,
		AssertionMethod:      orEmpty(doc.AssertionMethod),
		Authentication:       orEmpty(doc.Authentication),
		KeyAgreement:         orEmpty(doc.KeyAgreement),
		CapabilityInvocation: orEmpty(doc.CapabilityInvocation),
		CapabilityDelegation: orEmpty(doc.CapabilityDelegation),
		Services:             services,
	}, nil
}

func (c Codec) DidDocumentFromChain(rec DocumentRecord) (*interfaces.DidDocument, error) {
	methods := make([]interfaces.VerificationMethod, 0, len(rec.VerificationMethod))
	for _, vm := range rec.VerificationMethod {
		keyType, err := interfaces.KeyTypeName(int(vm.KeyType))
		if err != nil {
			return nil, err
		}
		methods = append(methods, interfaces.VerificationMethod{
			ID:                 vm.Id,
			Type:               keyType,
			Controller:         vm.Controller,
			PublicKeyMultibase: vm.PublicKeyMultibase,
			AuthType:           int(vm.AuthType),
		})
	}

	services := make([]interfaces.Service, 0, len(rec.Services))
	for _, svc := range rec.Services {
		services = append(services, interfaces.Service{
			ID:              svc.Id,
			Type:            svc.ServiceType,
			ServiceEndpoint: orEmpty(svc.ServiceEndpoint),
		})
	}

	return &interfaces.DidDocument{
		Context:              orEmpty(rec.Context),
		ID:                   rec.Id,
		Controller:           rec.Controller,
		Created:              rec.Created,
		Updated:              rec.Updated,
		VersionID:            rec.VersionId,
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

func (c Codec) DidDocAndStatusFromChain(rec DocumentAndStatusRecord) (*interfaces.DidDocAndStatus, error) {
	doc, err := c.DidDocumentFromChain(rec.Diddoc)
	if err != nil {
		return nil, err
	}
	status, err := c.StatusFromChain(int(rec.Status))
	if err != nil {
		return nil, err
	}
	return &interfaces.DidDocAndStatus{Document: doc, Status: status}, nil
}

// StatusFromChain decodes a ledger status integer.
func (c Codec) StatusFromChain(v int) (interfaces.DidDocStatus, error) {
	status, ok := interfaces.DidDocStatusFromLedger(v)
	if !ok && c.StrictStatus {
		return 0, fmt.Errorf("%w: DID document status %d out of range", interfaces.ErrConversion, v)
	}
	return status, nil
}

func (c Codec) VcMetaToChain(meta *interfaces.VcMeta) (VcMetaRecord, error) {
	if meta == nil {
		return VcMetaRecord{}, fmt.Errorf("%w: nil VC metadata", interfaces.ErrConversion)
	}
	return VcMetaRecord{
		Id:      meta.ID,
		Issuer:  ProviderRecord{Did: meta.Issuer.DID, CertVcRef: meta.Issuer.CertVcRef},
		Subject: meta.Subject,
		CredentialSchema: CredentialSchemaRefRecord{
			Id:                   meta.CredentialSchema.ID,
			CredentialSchemaType: meta.CredentialSchema.Type,
		},
		Status:        meta.Status,
		IssuanceDate:  meta.IssuanceDate,
		ValidFrom:     meta.ValidFrom,
		ValidUntil:    meta.ValidUntil,
		FormatVersion: meta.FormatVersion,
		Language:      meta.Language,
	}, nil
}

func (c Codec) VcMetaFromChain(rec VcMetaRecord) (*interfaces.VcMeta, error) {
	return &interfaces.VcMeta{
		ID:      rec.Id,
		Issuer:  interfaces.Provider{DID: rec.Issuer.Did, CertVcRef: rec.Issuer.CertVcRef},
		Subject: rec.Subject,
		CredentialSchema: interfaces.CredentialSchemaRef{
			ID:   rec.CredentialSchema.Id,
			Type: rec.CredentialSchema.CredentialSchemaType,
		},
		Status:        rec.Status,
		IssuanceDate:  rec.IssuanceDate,
		ValidFrom:     rec.ValidFrom,
		ValidUntil:    rec.ValidUntil,
		FormatVersion: rec.FormatVersion,
		Language:      rec.Language,
	}, nil
}

func (c Codec) VcSchemaToChain(schema *interfaces.VcSchema) (VcSchemaRecord, error) {
	if schema == nil {
		return VcSchemaRecord{}, fmt.Errorf("%w: nil VC schema", interfaces.ErrConversion)
	}

	claims := make([]SchemaClaimsRecord, 0, len(schema.CredentialSubject.Claims))
	for _, group := range schema.CredentialSubject.Claims {
		items := make([]ClaimDefRecord, 0, len(group.Items))
		for _, item := range group.Items {
			items = append(items, ClaimDefRecord{
				Caption:   item.Caption,
				Format:    item.Format,
				HideValue: item.HideValue,
				Id:        item.ID,
				Type:      item.Type,
			})
		}
		claims = append(claims, SchemaClaimsRecord{
			Items:     items,
			Namespace: namespaceToChain(group.Namespace),
		})
	}

	return VcSchemaRecord{
		Id:          schema.ID,
		Schema:      schema.Schema,
		Title:       schema.Title,
		Description: schema.Description,
		Metadata: SchemaMetadataRecord{
			FormatVersion: schema.Metadata.FormatVersion,
			Language:      schema.Metadata.Language,
		},
		CredentialSubject: CredentialSubjectRecord{Claims: claims},
	}, nil
}

func (c Codec) VcSchemaFromChain(rec VcSchemaRecord) (*interfaces.VcSchema, error) {
	claims := make([]interfaces.SchemaClaims, 0, len(rec.CredentialSubject.Claims))
	for _, group := range rec.CredentialSubject.Claims {
		items := make([]interfaces.ClaimDef, 0, len(group.Items))
		for _, item := range group.Items {
			items = append(items, interfaces.ClaimDef{
				ID:        item.Id,
				Caption:   item.Caption,
				Type:      item.Type,
				Format:    item.Format,
				HideValue: item.HideValue,
			})
		}
		claims = append(claims, interfaces.SchemaClaims{
			Namespace: namespaceFromChain(group.Namespace),
			Items:     items,
		})
	}

	return &interfaces.VcSchema{
		ID:          rec.Id,
		Schema:      rec.Schema,
		Title:       rec.Title,
		Description: rec.Description,
		Metadata: interfaces.SchemaMetadata{
			FormatVersion: rec.Metadata.FormatVersion,
			Language:      rec.Metadata.Language,
		},
		CredentialSubject: interfaces.SchemaCredentialSubject{Claims: claims},
	}, nil
}

func (c Codec) ZKPSchemaToChain(schema *interfaces.ZKPCredentialSchema) (ZKPCredentialSchemaRecord, error) {
	if schema == nil {
		return ZKPCredentialSchemaRecord{}, fmt.Errorf("%w: nil ZKP credential schema", interfaces.ErrConversion)
	}

	attrTypes := make([]AttributeTypeRecord, 0, len(schema.AttrTypes))
	for _, at := range schema.AttrTypes {
		items := make([]AttributeItemRecord, 0, len(at.Items))
		for _, item := range at.Items {
			valueType, err := interfaces.ParseAttributeValueType(string(item.Type))
			if err != nil {
				return ZKPCredentialSchemaRecord{}, err
			}
			items = append(items, AttributeItemRecord{
				Label:   item.Label,
				Caption: item.Caption,
				Type:    string(valueType),
				I18n:    i18nToChain(item.I18n),
			})
		}
		attrTypes = append(attrTypes, AttributeTypeRecord{
			Namespace: namespaceToChain(at.Namespace),
			Items:     items,
		})
	}

	return ZKPCredentialSchemaRecord{
		Id:        schema.ID,
		Name:      schema.Name,
		Version:   schema.Version,
		AttrNames: orEmpty(schema.AttrNames),
		AttrTypes: attrTypes,
		Tag:       schema.Tag,
	}, nil
}

func (c Codec) ZKPSchemaFromChain(rec ZKPCredentialSchemaRecord) (*interfaces.ZKPCredentialSchema, error) {
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
				I18n:    i18nFromChain(item.I18n),
			})
		}
		attrTypes = append(attrTypes, interfaces.AttributeType{
			Namespace: namespaceFromChain(at.Namespace),
			Items:     items,
		})
	}

	return &interfaces.ZKPCredentialSchema{
		ID:        rec.Id,
		Name:      rec.Name,
		Version:   rec.Version,
		AttrNames: orEmpty(rec.AttrNames),
		AttrTypes: attrTypes,
		Tag:       rec.Tag,
	}, nil
}

func (c Codec) ZKPDefinitionToChain(def *interfaces.ZKPCredentialDefinition) (CredentialDefinitionRecord, error) {
	if def == nil {
		return CredentialDefinitionRecord{}, fmt.Errorf("%w: nil ZKP credential definition", interfaces.ErrConversion)
	}
	value, err := json.Marshal(def.Value)
	if err != nil {
		return CredentialDefinitionRecord{}, fmt.Errorf("%w: credential definition value: %v", interfaces.ErrConversion, err)
	}
	return CredentialDefinitionRecord{
		Id:       def.ID,
		SchemaId: def.SchemaID,
		Ver:      def.Ver,
		Type:     def.Type,
		Value:    string(value),
		Tag:      def.Tag,
	}, nil
}

func (c Codec) ZKPDefinitionFromChain(rec CredentialDefinitionRecord) (*interfaces.ZKPCredentialDefinition, error) {
	var value map[string]any
	if err := json.Unmarshal([]byte(rec.Value), &value); err != nil {
		return nil, fmt.Errorf("%w: credential definition value: %v", interfaces.ErrConversion, err)
	}
	return &interfaces.ZKPCredentialDefinition{
		ID:       rec.Id,
		SchemaID: rec.SchemaId,
		Ver:      rec.Ver,
		Type:     rec.Type,
		Tag:      rec.Tag,
		Value:    value,
	}, nil
}

func namespaceToChain(ns interfaces.ClaimNamespace) NamespaceRecord {
	return NamespaceRecord{Id: ns.ID, Name: ns.Name, Ref: ns.Ref}
}

func namespaceFromChain(ns NamespaceRecord) interfaces.ClaimNamespace {
	return interfaces.ClaimNamespace{ID: ns.Id, Name: ns.Name, Ref: ns.Ref}
}

// i18nToChain orders pairs by language so the encoding is deterministic.
func i18nToChain(m map[string]string) []I18nRecord {
	langs := make([]string, 0, len(m))
	for lang := range m {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	out := make([]I18nRecord, 0, len(langs))
	for _, lang := range langs {
		out = append(out, I18nRecord{LanguageType: lang, Value: m[lang]})
	}
	return out
}

// i18nFromChain keeps the last value for a repeated language.
func i18nFromChain(pairs []I18nRecord) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		out[p.LanguageType] = p.Value
	}
	return out
}

func toUint8(field string, v int) (uint8, error) {
	if v < 0 || v > 255 {
		return 0, fmt.Errorf("%w: %s %d out of range", interfaces.ErrConversion, field, v)
	}
	return uint8(v), nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
