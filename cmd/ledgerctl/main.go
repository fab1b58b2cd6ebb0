package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/ruteri/did-ledger-adapter/cmd/flags"
	"github.com/ruteri/did-ledger-adapter/config"
	"github.com/ruteri/did-ledger-adapter/interfaces"
	"github.com/ruteri/did-ledger-adapter/ledger"
	"github.com/urfave/cli/v2"
)

const usage string = `Inspect and update DID documents, credential metadata and schemas on an
EVM or Hyperledger Fabric ledger. Results are printed as JSON.`

func main() {
	app := newApp(openLedger)
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// opener builds the backend for a command.
type opener func(ctx context.Context, cfg *config.Config, log *slog.Logger) (interfaces.ContractAPI, error)

func openLedger(ctx context.Context, cfg *config.Config, log *slog.Logger) (interfaces.ContractAPI, error) {
	return ledger.New(ctx, cfg, log)
}

func newApp(open opener) *cli.App {
	r := &runner{open: open}
	return &cli.App{
		Name:  "ledgerctl",
		Usage: usage,
		Flags: append(flags.CommonFlags, flags.LogServiceFlagFn("ledgerctl")),
		Commands: []*cli.Command{
			didCommand(r),
			vcCommand(r),
			schemaCommand(r),
			zkpCommand(r),
		},
	}
}
