package fabric

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ruteri/did-ledger-adapter/interfaces"
)

var _ interfaces.ContractAPI = (*Client)(nil)

// Client implements interfaces.ContractAPI on top of a Sender.
type Client struct {
	sender *Sender
	codec  Codec
	log    *slog.Logger
}

// NewClient returns a Client that encodes records with codec and dispatches them through sender.
func NewClient(sender *Sender, codec Codec, log *slog.Logger) *Client {
	return &Client{sender: sender, codec: codec, log: log}
}

// RegisterDidDoc submits doc together with the registering role.
func (c *Client) RegisterDidDoc(ctx context.Context, doc *interfaces.DidDocument, role interfaces.RoleType) error {
	if err := interfaces.RequireRecord("DID document", doc); err != nil {
		return err
	}
	arg, err := c.codec.EncodeDidDocument(doc, role)
	if err != nil {
		return err
	}
	_, err = c.sender.Invoke(ctx, fnRegisterDidDoc, arg)
	return err
}

// GetDidDoc reads the document for the DID in didKeyURL. Query and fragment are ignored.
func (c *Client) GetDidDoc(ctx context.Context, didKeyURL string) (*interfaces.DidDocAndStatus, error) {
	key, err := interfaces.ParseDidKeyURL(didKeyURL)
	if err != nil {
		return nil, err
	}
	payload, err := c.sender.Query(ctx, fnGetDidDoc, key.DID)
	if err != nil {
		return nil, err
	}
	return c.codec.DecodeDidDocAndStatus(payload)
}

// UpdateDidDocStatus changes the status of a DID document. TERMINATED requires
// terminatedTime and uses the revocation function.
func (c *Client) UpdateDidDocStatus(ctx context.Context, didKeyURL string, status interfaces.DidDocStatus, terminatedTime *time.Time) (*interfaces.TransactionResult, error) {
	update, err := interfaces.ValidateStatusUpdate(didKeyURL, status, terminatedTime)
	if err != nil {
		return nil, err
	}

	fn, last := fnUpdateStatusServe, update.InServiceVersionID()
	if update.UseRevocationPath() {
		fn, last = fnUpdateStatusRevoke, interfaces.FormatLedgerTime(*update.TerminatedTime)
	}

	result, err := c.sender.Invoke(ctx, fn, update.Key.DID, update.Status.String(), last)
	if err != nil {
		return nil, err
	}
	return &interfaces.TransactionResult{
		StatusCode: http.StatusOK,
		Status:     update.Status.String(),
		TxHash:     result.TransactionID,
	}, nil
}

// RegisterVcMetadata submits credential metadata.
func (c *Client) RegisterVcMetadata(ctx context.Context, meta *interfaces.VcMeta) error {
	if err := interfaces.RequireRecord("VC metadata", meta); err != nil {
		return err
	}
	arg, err := c.codec.EncodeVcMeta(meta)
	if err != nil {
		return err
	}
	_, err = c.sender.Invoke(ctx, fnRegisterVcMeta, arg)
	return err
}

// GetVcMetadata reads the metadata of a credential.
func (c *Client) GetVcMetadata(ctx context.Context, vcID string) (*interfaces.VcMeta, error) {
	if err := interfaces.RequireID("VC id", vcID); err != nil {
		return nil, err
	}
	payload, err := c.sender.Query(ctx, fnGetVcMeta, vcID)
	if err != nil {
		return nil, err
	}
	return c.codec.DecodeVcMeta(payload)
}

// UpdateVcStatus sets the status of a credential. Unknown statuses are rejected before any call.
func (c *Client) UpdateVcStatus(ctx context.Context, vcID string, status interfaces.VcStatus) error {
	if err := interfaces.RequireID("VC id", vcID); err != nil {
		return err
	}
	if !status.Valid() {
		return fmt.Errorf("%w: unknown VC status %q", interfaces.ErrInvalidArgument, status)
	}
	_, err := c.sender.Invoke(ctx, fnUpdateVcStatus, vcID, string(status))
	return err
}

// RegisterVcSchema submits a credential schema.
func (c *Client) RegisterVcSchema(ctx context.Context, schema *interfaces.VcSchema) error {
	if err := interfaces.RequireRecord("VC schema", schema); err != nil {
		return err
	}
	arg, err := c.codec.EncodeVcSchema(schema)
	if err != nil {
		return err
	}
	_, err = c.sender.Invoke(ctx, fnRegisterVcSchema, arg)
	return err
}

// GetVcSchema reads a credential schema by id.
func (c *Client) GetVcSchema(ctx context.Context, schemaID string) (*interfaces.VcSchema, error) {
	if err := interfaces.RequireID("schema id", schemaID); err != nil {
		return nil, err
	}
	payload, err := c.sender.Query(ctx, fnGetVcSchema, schemaID)
	if err != nil {
		return nil, err
	}
	return c.codec.DecodeVcSchema(payload)
}

// RegisterZKPCredentialSchema submits a ZKP credential schema.
func (c *Client) RegisterZKPCredentialSchema(ctx context.Context, schema *interfaces.ZKPCredentialSchema) error {
	if err := interfaces.RequireRecord("ZKP credential schema", schema); err != nil {
		return err
	}
	arg, err := c.codec.EncodeZKPSchema(schema)
	if err != nil {
		return err
	}
	_, err = c.sender.Invoke(ctx, fnRegisterZKPSchema, arg)
	return err
}

// GetZKPCredentialSchema reads a ZKP credential schema by id.
func (c *Client) GetZKPCredentialSchema(ctx context.Context, schemaID string) (*interfaces.ZKPCredentialSchema, error) {
	if err := interfaces.RequireID("schema id", schemaID); err != nil {
		return nil, err
	}
	payload, err := c.sender.Query(ctx, fnGetZKPSchema, schemaID)
	if err != nil {
		return nil, err
	}
	return c.codec.DecodeZKPSchema(payload)
}

// RegisterZKPCredentialDefinition submits a ZKP credential definition.
func (c *Client) RegisterZKPCredentialDefinition(ctx context.Context, def *interfaces.ZKPCredentialDefinition) error {
	if err := interfaces.RequireRecord("ZKP credential definition", def); err != nil {
		return err
	}
	arg, err := c.codec.EncodeZKPDefinition(def)
	if err != nil {
		return err
	}
	_, err = c.sender.Invoke(ctx, fnRegisterZKPDef, arg)
	return err
}

// GetZKPCredentialDefinition reads a ZKP credential definition by id.
func (c *Client) GetZKPCredentialDefinition(ctx context.Context, definitionID string) (*interfaces.ZKPCredentialDefinition, error) {
	if err := interfaces.RequireID("credential definition id", definitionID); err != nil {
		return nil, err
	}
	payload, err := c.sender.Query(ctx, fnGetZKPDef, definitionID)
	if err != nil {
		return nil, err
	}
	return c.codec.DecodeZKPDefinition(payload)
}

// Close shuts down the gateway pool and the shared gRPC channel.
func (c *Client) Close() error {
	return c.sender.Close()
}
