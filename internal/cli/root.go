// Package cli implements the cobra-based CLI commands for compose-combine.
//
// The root command combines compose files directly, so the common case
// needs no subcommand. Each subcommand (combine, list) is defined in its
// own file within this package. This file defines the root command, the
// global flags, and the shared configuration/logging setup.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shinji-kodama/compose-combine/internal/config"
	"github.com/shinji-kodama/compose-combine/internal/logging"
	"github.com/shinji-kodama/compose-combine/internal/model"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command,
// which makes them available to every subcommand automatically.
var (
	// jsonOutput controls whether command output is formatted as JSON.
	jsonOutput bool

	// verbose forces debug-level logging on stderr.
	verbose bool

	// configFile is an optional YAML/JSON config file.
	configFile string
)

// Resolved once per invocation in PersistentPreRunE.
var (
	cfg    *config.Config
	logger = zap.NewNop().Sugar()
)

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
//
// Running the root command without a subcommand performs the combine, the
// same as `compose-combine combine`.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "compose-combine",
		Short: "Combine per-directory docker-compose.yml files into one",
		Long: `compose-combine merges the docker-compose.yml files found in the
subdirectories of a root directory into a single compose file.

Every service, volume, and network is prefixed with its directory name
(svcA/docker-compose.yml: web → svcA_web), and relative "./" bind mount
paths are rewritten to stay valid from the root (./data → ./svcA/data).
A docker-compose.yml directly in the root is never read.

Examples:
  compose-combine
  compose-combine --root ./stacks --output deploy/docker-compose.yml
  compose-combine --output - | docker compose -f - config
  compose-combine list --json`,

		// SilenceUsage prevents cobra from printing usage on every error.
		SilenceUsage: true,

		// SilenceErrors prevents cobra from printing errors automatically.
		// We format errors ourselves (text or JSON based on --json flag).
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		Args: cobra.NoArgs,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},

		RunE: func(cmd *cobra.Command, args []string) error {
			return runCombine(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output (same as --log-level debug)")
	flags.StringVar(&configFile, "config", "", "Config file (.yaml, .yml, .json or .jsonc)")
	flags.String("root", ".", "Directory whose subdirectories are scanned")
	flags.StringP("output", "o", "", `Output file (default: <root>/<file-name>; "-" for stdout)`)
	flags.String("file-name", model.DefaultComposeFileName, "Compose file name to look for")
	flags.String("compose-version", model.DefaultComposeVersion, "Value of `version` in the combined file")
	flags.String("log-level", "warn", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(NewCombineCommand())
	rootCmd.AddCommand(NewListCommand())

	return rootCmd
}

// setup resolves the configuration and builds the logger. It runs once
// before any command's RunE.
func setup(cmd *cobra.Command) error {
	loaded, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return model.WrapCLIError(model.ExitInvalidConfig, "invalid configuration", err)
	}
	if err := loaded.Validate(); err != nil {
		return model.WrapCLIError(model.ExitInvalidConfig, "invalid configuration", err)
	}

	level := loaded.LogLevel
	if verbose {
		level = "debug"
	}
	l, err := logging.New(cmd.ErrOrStderr(), level)
	if err != nil {
		return model.WrapCLIError(model.ExitInvalidConfig, "invalid configuration", err)
	}

	cfg = loaded
	logger = l
	VerboseLog("Root: %s, file name: %s, output: %s", cfg.Root, cfg.FileName, cfg.OutputPath())
	return nil
}

// Execute runs the root command and handles exit codes.
// This is the main entry point called from main.go.
//
// CLIError types carry their own exit codes; other errors default to
// exit code 1.
func Execute(rootCmd *cobra.Command) {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err == nil {
		return
	}

	if cliErr, ok := err.(*model.CLIError); ok {
		printError(cliErr.Message, cliErr.Err)
		os.Exit(int(cliErr.Code))
	}

	printError(err.Error(), nil)
	os.Exit(int(model.ExitGeneralError))
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag.
func printError(message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		// stdout is reserved for successful command output.
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		if underlying != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, underlying)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", message)
		}
	}
}

// VerboseLog writes a debug message. It is shown only with --verbose or
// --log-level debug.
func VerboseLog(format string, args ...interface{}) {
	logger.Debugf(format, args...)
}

// IsJSONOutput returns whether the --json flag is set.
// Subcommands use this to decide their output format.
func IsJSONOutput() bool {
	return jsonOutput
}
