package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ruteri/did-ledger-adapter/interfaces"
	"github.com/urfave/cli/v2"
)

var flagFile = &cli.StringFlag{
	Name:     "file",
	Aliases:  []string{"f"},
	Required: true,
	Usage:    "JSON record to register, - for stdin",
}

var flagRole = &cli.StringFlag{
	Name:  "role",
	Value: string(interfaces.RoleEtc),
	Usage: "role of the entity registering the DID document",
}

var flagStatus = &cli.StringFlag{
	Name:     "status",
	Required: true,
	Usage:    "new status",
}

// Timestamp flags keep their parsed value, so each app gets its own.
func newTerminatedTimeFlag() *cli.TimestampFlag {
	return &cli.TimestampFlag{
		Name:   "terminated-time",
		Layout: time.RFC3339,
		Usage:  "termination time (RFC 3339), required for TERMINATED",
	}
}

type registered struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type didDocOutput struct {
	Document *interfaces.DidDocument `json:"document"`
	Status   string                  `json:"status"`
}

func didCommand(r *runner) *cli.Command {
	flagTerminatedTime := newTerminatedTimeFlag()
	return &cli.Command{
		Name:  "did",
		Usage: "DID documents",
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "print a DID document and its status",
				ArgsUsage: "<did key url>",
				Action: r.with(func(ctx context.Context, cCtx *cli.Context, api interfaces.ContractAPI) (any, error) {
					didKeyURL, err := requireArg(cCtx, "did key url")
					if err != nil {
						return nil, err
					}
					res, err := api.GetDidDoc(ctx, didKeyURL)
					if err != nil {
						return nil, fmt.Errorf("could not get DID document: %w", err)
					}
					return &didDocOutput{Document: res.Document, Status: res.Status.String()}, nil
				}),
			},
			{
				Name:  "register",
				Usage: "register a DID document",
				Flags: []cli.Flag{flagFile, flagRole},
				Action: r.with(func(ctx context.Context, cCtx *cli.Context, api interfaces.ContractAPI) (any, error) {
					var doc interfaces.DidDocument
					if err := readJSON(cCtx, cCtx.String(flagFile.Name), &doc); err != nil {
						return nil, err
					}
					if err := api.RegisterDidDoc(ctx, &doc, interfaces.RoleType(cCtx.String(flagRole.Name))); err != nil {
						return nil, fmt.Errorf("could not register DID document: %w", err)
					}
					return &registered{ID: doc.ID, Status: "registered"}, nil
				}),
			},
			{
				Name:      "status",
				Usage:     "update the status of a DID document",
				ArgsUsage: "<did key url>",
				Flags:     []cli.Flag{flagStatus, flagTerminatedTime},
				Action: r.with(func(ctx context.Context, cCtx *cli.Context, api interfaces.ContractAPI) (any, error) {
					didKeyURL, err := requireArg(cCtx, "did key url")
					if err != nil {
						return nil, err
					}
					status, err := interfaces.ParseDidDocStatus(cCtx.String(flagStatus.Name))
					if err != nil {
						return nil, err
					}
					res, err := api.UpdateDidDocStatus(ctx, didKeyURL, status, cCtx.Timestamp(flagTerminatedTime.Name))
					if err != nil {
						return nil, fmt.Errorf("could not update DID document status: %w", err)
					}
					return res, nil
				}),
			},
		},
	}
}

func vcCommand(r *runner) *cli.Command {
	return &cli.Command{
		Name:  "vc",
		Usage: "verifiable credential metadata",
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "print credential metadata",
				ArgsUsage: "<vc id>",
				Action: r.with(func(ctx context.Context, cCtx *cli.Context, api interfaces.ContractAPI) (any, error) {
					vcID, err := requireArg(cCtx, "vc id")
					if err != nil {
						return nil, err
					}
					return api.GetVcMetadata(ctx, vcID)
				}),
			},
			{
				Name:  "register",
				Usage: "register credential metadata",
				Flags: []cli.Flag{flagFile},
				Action: r.with(func(ctx context.Context, cCtx *cli.Context, api interfaces.ContractAPI) (any, error) {
					var meta interfaces.VcMeta
					if err := readJSON(cCtx, cCtx.String(flagFile.Name), &meta); err != nil {
						return nil, err
					}
					if err := api.RegisterVcMetadata(ctx, &meta); err != nil {
						return nil, fmt.Errorf("could not register credential metadata: %w", err)
					}
					return &registered{ID: meta.ID, Status: "registered"}, nil
				}),
			},
			{
				Name:      "status",
				Usage:     "update the status of a credential",
				ArgsUsage: "<vc id>",
				Flags:     []cli.Flag{flagStatus},
				Action: r.with(func(ctx context.Context, cCtx *cli.Context, api interfaces.ContractAPI) (any, error) {
					vcID, err := requireArg(cCtx, "vc id")
					if err != nil {
						return nil, err
					}
					status := interfaces.VcStatus(strings.ToUpper(cCtx.String(flagStatus.Name)))
					if err := api.UpdateVcStatus(ctx, vcID, status); err != nil {
						return nil, fmt.Errorf("could not update credential status: %w", err)
					}
					return &registered{ID: vcID, Status: string(status)}, nil
				}),
			},
		},
	}
}

func schemaCommand(r *runner) *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "verifiable credential schemas",
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "print a credential schema",
				ArgsUsage: "<schema id>",
				Action: r.with(func(ctx context.Context, cCtx *cli.Context, api interfaces.ContractAPI) (any, error) {
					schemaID, err := requireArg(cCtx, "schema id")
					if err != nil {
						return nil, err
					}
					return api.GetVcSchema(ctx, schemaID)
				}),
			},
			{
				Name:  "register",
				Usage: "register a credential schema",
				Flags: []cli.Flag{flagFile},
				Action: r.with(func(ctx context.Context, cCtx *cli.Context, api interfaces.ContractAPI) (any, error) {
					var schema interfaces.VcSchema
					if err := readJSON(cCtx, cCtx.String(flagFile.Name), &schema); err != nil {
						return nil, err
					}
					if err := api.RegisterVcSchema(ctx, &schema); err != nil {
						return nil, fmt.Errorf("could not register credential schema: %w", err)
					}
					return &registered{ID: schema.ID, Status: "registered"}, nil
				}),
			},
		},
	}
}

func zkpCommand(r *runner) *cli.Command {
	return &cli.Command{
		Name:  "zkp",
		Usage: "zero-knowledge proof credential schemas and definitions",
		Subcommands: []*cli.Command{
			{
				Name:      "schema",
				Usage:     "print a ZKP credential schema",
				ArgsUsage: "<schema id>",
				Action: r.with(func(ctx context.Context, cCtx *cli.Context, api interfaces.ContractAPI) (any, error) {
					schemaID, err := requireArg(cCtx, "schema id")
					if err != nil {
						return nil, err
					}
					return api.GetZKPCredentialSchema(ctx, schemaID)
				}),
			},
			{
				Name:      "definition",
				Usage:     "print a ZKP credential definition",
				ArgsUsage: "<definition id>",
				Action: r.with(func(ctx context.Context, cCtx *cli.Context, api interfaces.ContractAPI) (any, error) {
					definitionID, err := requireArg(cCtx, "definition id")
					if err != nil {
						return nil, err
					}
					return api.GetZKPCredentialDefinition(ctx, definitionID)
				}),
			},
			{
				Name:  "register-schema",
				Usage: "register a ZKP credential schema",
				Flags: []cli.Flag{flagFile},
				Action: r.with(func(ctx context.Context, cCtx *cli.Context, api interfaces.ContractAPI) (any, error) {
					var schema interfaces.ZKPCredentialSchema
					if err := readJSON(cCtx, cCtx.String(flagFile.Name), &schema); err != nil {
						return nil, err
					}
					if err := api.RegisterZKPCredentialSchema(ctx, &schema); err != nil {
						return nil, fmt.Errorf("could not register ZKP credential schema: %w", err)
					}
					return &registered{ID: schema.ID, Status: "registered"}, nil
				}),
			},
			{
				Name:  "register-definition",
				Usage: "register a ZKP credential definition",
				Flags: []cli.Flag{flagFile},
				Action: r.with(func(ctx context.Context, cCtx *cli.Context, api interfaces.ContractAPI) (any, error) {
					var def interfaces.ZKPCredentialDefinition
					if err := readJSON(cCtx, cCtx.String(flagFile.Name), &def); err != nil {
						return nil, err
					}
					if err := api.RegisterZKPCredentialDefinition(ctx, &def); err != nil {
						return nil, fmt.Errorf("could not register ZKP credential definition: %w", err)
					}
					return &registered{ID: def.ID, Status: "registered"}, nil
				}),
			},
		},
	}
}
