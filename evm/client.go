package evm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ruteri/did-ledger-adapter/interfaces"
)

var _ interfaces.ContractAPI = (*Client)(nil)

// Client implements interfaces.ContractAPI on top of an Engine.
type Client struct {
	engine *Engine
	codec  Codec
	log    *slog.Logger
}

// NewClient returns a Client that encodes records with codec and sends them through engine.
func NewClient(engine *Engine, codec Codec, log *slog.Logger) *Client {
	return &Client{engine: engine, codec: codec, log: log}
}

// RegisterDidDoc submits doc and waits for the receipt. The contract derives the role itself.
func (c *Client) RegisterDidDoc(ctx context.Context, doc *interfaces.DidDocument, role interfaces.RoleType) error {
	if err := interfaces.RequireRecord("DID document", doc); err != nil {
		return err
	}
	rec, err := c.codec.DidDocumentToChain(doc)
	if err != nil {
		return err
	}

	// The contract derives the role from the document controller.
	c.log.Debug("Registering DID document", slog.String("did", doc.ID), slog.String("role", string(role)))
	_, err = c.engine.Transact(ctx, methodRegisterDidDoc, rec)
	return err
}

// GetDidDoc reads the document for the DID in didKeyURL. Query and fragment are ignored.
func (c *Client) GetDidDoc(ctx context.Context, didKeyURL string) (*interfaces.DidDocAndStatus, error) {
	key, err := interfaces.ParseDidKeyURL(didKeyURL)
	if err != nil {
		return nil, err
	}

	out, err := c.engine.Call(ctx, methodGetDidDoc, key.DID)
	if err != nil {
		return nil, err
	}
	rec, err := unpackOne[DocumentAndStatusRecord](out)
	if err != nil {
		return nil, err
	}
	return c.codec.DidDocAndStatusFromChain(rec)
}

// UpdateDidDocStatus changes the status of a DID document. TERMINATED goes through the
// revocation method and requires terminatedTime.
func (c *Client) UpdateDidDocStatus(ctx context.Context, didKeyURL string, status interfaces.DidDocStatus, terminatedTime *time.Time) (*interfaces.TransactionResult, error) {
	update, err := interfaces.ValidateStatusUpdate(didKeyURL, status, terminatedTime)
	if err != nil {
		return nil, err
	}

	method := methodUpdateStatusService
	args := []any{update.Key.DID, update.Status.String(), update.InServiceVersionID()}
	if update.UseRevocationPath() {
		method = methodUpdateStatusRevoke
		args = []any{update.Key.DID, update.Status.String(), interfaces.FormatLedgerTime(*update.TerminatedTime)}
	}

	receipt, err := c.engine.Transact(ctx, method, args...)
	if err != nil {
		return nil, err
	}

	return &interfaces.TransactionResult{
		StatusCode: http.StatusOK,
		Status:     update.Status.String(),
		TxHash:     receipt.TxHash.Hex(),
	}, nil
}

// RegisterVcMetadata submits credential metadata.
func (c *Client) RegisterVcMetadata(ctx context.Context, meta *interfaces.VcMeta) error {
	if err := interfaces.RequireRecord("VC metadata", meta); err != nil {
		return err
	}
	rec, err := c.codec.VcMetaToChain(meta)
	if err != nil {
		return err
	}
	_, err = c.engine.Transact(ctx, methodRegisterVcMeta, rec)
	return err
}

// GetVcMetadata reads the metadata of a credential.
func (c *Client) GetVcMetadata(ctx context.Context, vcID string) (*interfaces.VcMeta, error) {
	if err := interfaces.RequireID("VC id", vcID); err != nil {
		return nil, err
	}
	out, err := c.engine.Call(ctx, methodGetVcMeta, vcID)
	if err != nil {
		return nil, err
	}
	rec, err := unpackOne[VcMetaRecord](out)
	if err != nil {
		return nil, err
	}
	return c.codec.VcMetaFromChain(rec)
}

// UpdateVcStatus sets the status of a credential. Unknown statuses are rejected before any call.
func (c *Client) UpdateVcStatus(ctx context.Context, vcID string, status interfaces.VcStatus) error {
	if err := interfaces.RequireID("VC id", vcID); err != nil {
		return err
	}
	if !status.Valid() {
		return fmt.Errorf("%w: unknown VC status %q", interfaces.ErrInvalidArgument, status)
	}
	_, err := c.engine.Transact(ctx, methodUpdateVcStatus, vcID, string(status))
	return err
}

// RegisterVcSchema submits a credential schema.
func (c *Client) RegisterVcSchema(ctx context.Context, schema *interfaces.VcSchema) error {
	if err := interfaces.RequireRecord("VC schema", schema); err != nil {
		return err
	}
	rec, err := c.codec.VcSchemaToChain(schema)
	if err != nil {
		return err
	}
	_, err = c.engine.Transact(ctx, methodRegisterVcSchema, rec)
	return err
}

// GetVcSchema reads a credential schema by id.
func (c *Client) GetVcSchema(ctx context.Context, schemaID string) (*interfaces.VcSchema, error) {
	if err := interfaces.RequireID("schema id", schemaID); err != nil {
		return nil, err
	}
	out, err := c.engine.Call(ctx, methodGetVcSchema, schemaID)
	if err != nil {
		return nil, err
	}
	rec, err := unpackOne[VcSchemaRecord](out)
	if err != nil {
		return nil, err
	}
	return c.codec.VcSchemaFromChain(rec)
}

// RegisterZKPCredentialSchema submits a ZKP credential schema.
func (c *Client) RegisterZKPCredentialSchema(ctx context.Context, schema *interfaces.ZKPCredentialSchema) error {
	if err := interfaces.RequireRecord("ZKP credential schema", schema); err != nil {
		return err
	}
	rec, err := c.codec.ZKPSchemaToChain(schema)
	if err != nil {
		return err
	}
	_, err = c.engine.Transact(ctx, methodRegisterZKPSchema, rec)
	return err
}

// GetZKPCredentialSchema reads a ZKP credential schema by id.
func (c *Client) GetZKPCredentialSchema(ctx context.Context, schemaID string) (*interfaces.ZKPCredentialSchema, error) {
	if err := interfaces.RequireID("schema id", schemaID); err != nil {
		return nil, err
	}
	out, err := c.engine.Call(ctx, methodGetZKPSchema, schemaID)
	if err != nil {
		return nil, err
	}
	rec, err := unpackOne[ZKPCredentialSchemaRecord](out)
	if err != nil {
		return nil, err
	}
	return c.codec.ZKPSchemaFromChain(rec)
}

// RegisterZKPCredentialDefinition submits a ZKP credential definition.
func (c *Client) RegisterZKPCredentialDefinition(ctx context.Context, def *interfaces.ZKPCredentialDefinition) error {
	if err := interfaces.RequireRecord("ZKP credential definition", def); err != nil {
		return err
	}
	rec, err := c.codec.ZKPDefinitionToChain(def)
	if err != nil {
		return err
	}
	_, err = c.engine.Transact(ctx, methodRegisterZKPDef, rec)
	return err
}

// GetZKPCredentialDefinition reads a ZKP credential definition by id.
func (c *Client) GetZKPCredentialDefinition(ctx context.Context, definitionID string) (*interfaces.ZKPCredentialDefinition, error) {
	if err := interfaces.RequireID("credential definition id", definitionID); err != nil {
		return nil, err
	}
	out, err := c.engine.Call(ctx, methodGetZKPDef, definitionID)
	if err != nil {
		return nil, err
	}
	rec, err := unpackOne[CredentialDefinitionRecord](out)
	if err != nil {
		return nil, err
	}
	return c.codec.ZKPDefinitionFromChain(rec)
}

// Close is a no-op; the EVM backend holds no connections between calls.
func (c *Client) Close() error {
	return nil
}
