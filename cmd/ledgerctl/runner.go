package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ruteri/did-ledger-adapter/cmd/flags"
	"github.com/ruteri/did-ledger-adapter/config"
	"github.com/ruteri/did-ledger-adapter/interfaces"
	"github.com/urfave/cli/v2"
)

type runner struct {
	open opener
}

// with opens the configured backend, runs fn and prints its result.
func (r *runner) with(fn func(ctx context.Context, cCtx *cli.Context, api interfaces.ContractAPI) (any, error)) cli.ActionFunc {
	return func(cCtx *cli.Context) error {
		logger := flags.SetupLogger(cCtx)

		overrides := map[string]any{}
		if ledgerType := cCtx.String(flags.LedgerFlag.Name); ledgerType != "" {
			overrides["ledger"] = ledgerType
		}
		cfg, err := config.LoadWithOverrides(cCtx.String(flags.ConfigFileFlag.Name), overrides)
		if err != nil {
			return fmt.Errorf("could not load configuration: %w", err)
		}

		ctx := cCtx.Context
		if timeout := cCtx.Duration(flags.TimeoutFlag.Name); timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		api, err := r.open(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("could not connect to ledger: %w", err)
		}
		defer api.Close()

		result, err := fn(ctx, cCtx, api)
		if err != nil {
			return err
		}
		return printJSON(cCtx.App.Writer, result)
	}
}

func printJSON(w io.Writer, v any) error {
	if v == nil {
		return nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readJSON decodes a record from a file, or from stdin when path is "-".
func readJSON(cCtx *cli.Context, path string, v any) error {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cCtx.App.Reader)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("could not read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("could not parse %s: %w", path, err)
	}
	return nil
}

func requireArg(cCtx *cli.Context, name string) (string, error) {
	if cCtx.NArg() != 1 {
		return "", fmt.Errorf("expected exactly one argument: %s", name)
	}
	return cCtx.Args().First(), nil
}
