package flags

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/ruteri/did-ledger-adapter/common"
	"github.com/urfave/cli/v2"
)

// SetupLogger builds the command logger. Records go to the app error writer.
func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String("log-service")

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
		Output:  cCtx.App.ErrWriter,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

var ConfigFileFlag = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	EnvVars: []string{"LEDGER_CONFIG"},
	Usage:   "YAML configuration file. LEDGER_ environment variables override its values",
}

var LedgerFlag = &cli.StringFlag{
	Name:  "ledger",
	Usage: "override the configured backend (evm or fabric)",
}

var TimeoutFlag = &cli.DurationFlag{
	Name:  "timeout",
	Value: 0,
	Usage: "deadline for the whole command, 0 for none",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var LogServiceFlagFn = func(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "log-service",
		Value: service,
		Usage: "add 'service' tag to logs",
	}
}

var CommonFlags = []cli.Flag{
	ConfigFileFlag,
	LedgerFlag,
	TimeoutFlag,
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
}
