package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mchmarny/defaultrisk/pkg/config"
	"github.com/mchmarny/defaultrisk/pkg/logging"
	urfave "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	appName      = "defaultrisk"
	appConfigKey = "app-config"

	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""

	outputFormat = formatJSON

	debugFlag = &urfave.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs (optional, default: false)",
	}

	configFlag = &urfave.StringFlag{
		Name:    "config",
		Usage:   "Path to the YAML config file (optional)",
		Sources: urfave.EnvVars("DEFAULTRISK_CONFIG"),
	}

	formatFlag = &urfave.StringFlag{
		Name:  "format",
		Usage: "Output format [json, yaml]",
		Value: formatJSON,
	}

	modelFlag = &urfave.StringFlag{
		Name:    "model",
		Usage:   "Model artifact file (JSON or YAML) or URL of a remote scoring endpoint",
		Sources: urfave.EnvVars("MODEL_PATH"),
	}

	validationFlag = &urfave.StringFlag{
		Name:  "validation",
		Usage: "Domain validation mode [strict, lenient]",
	}
)

// Execute creates and runs the CLI application.
func Execute() {
	initLogging(false)

	app := newApp()
	if err := app.Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

type appConfig struct {
	*config.Config
	Debug bool
}

func getConfig(cmd *urfave.Command) *appConfig {
	return cmd.Root().Metadata[appConfigKey].(*appConfig)
}

func newApp() *urfave.Command {
	return &urfave.Command{
		Name:                  appName,
		Version:               fmt.Sprintf("%s (%s - %s)", version, commit, date),
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Usage:                 "Credit card default risk scoring service",
		Metadata:              map[string]any{},
		Flags: []urfave.Flag{
			debugFlag,
			configFlag,
			formatFlag,
			modelFlag,
			validationFlag,
		},
		Commands: []*urfave.Command{
			serverCmd,
			scoreCmd,
			schemaCmd,
		},
		Before: func(ctx context.Context, cmd *urfave.Command) (context.Context, error) {
			debug := cmd.Bool(debugFlag.Name)
			if debug {
				initLogging(true)
			}

			f := cmd.String(formatFlag.Name)
			if f == formatYAML || f == "yml" {
				outputFormat = formatYAML
			}

			cfg, err := config.Read(cmd.String(configFlag.Name))
			if err != nil {
				return ctx, fmt.Errorf("reading config: %w", err)
			}

			if cmd.IsSet(modelFlag.Name) {
				cfg.ModelPath = cmd.String(modelFlag.Name)
			}
			if cmd.IsSet(validationFlag.Name) {
				cfg.Validation = cmd.String(validationFlag.Name)
			}
			if debug {
				cfg.LogLevel = "debug"
			}

			if err := cfg.Validate(); err != nil {
				return ctx, err
			}

			cmd.Root().Metadata[appConfigKey] = &appConfig{
				Config: cfg,
				Debug:  debug,
			}
			return ctx, nil
		},
	}
}

func initLogging(debug bool) {
	level := "info"
	if debug {
		level = "debug"
	}
	logging.SetDefaultCLILogger(level)
}

func encode(w io.Writer, v any) error {
	if outputFormat == formatYAML {
		return yaml.NewEncoder(w).Encode(v)
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
