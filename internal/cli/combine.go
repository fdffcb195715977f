// Package cli — combine.go implements the combine operation, which is also
// what the root command runs.
//
// Orchestration steps:
//  1. Discover compose files below the root
//  2. Load, transform, and merge each file in discovery order
//  3. Serialize the combined document
//  4. Write it to the output file (or stdout)
//  5. Print the confirmation (text or JSON)
//
// Any failure aborts the run before the output file is touched, so a
// broken input never leaves a partial combined file behind.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/compose-combine/internal/compose"
	"github.com/shinji-kodama/compose-combine/internal/discovery"
	"github.com/shinji-kodama/compose-combine/internal/model"
)

// NewCombineCommand creates the "combine" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewCombineCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "combine",
		Short: "Combine subdirectory compose files into one (default command)",
		Long: `Combine every docker-compose.yml found in a subdirectory of the root
into a single compose file.

Examples:
  compose-combine combine
  compose-combine combine --root ./stacks -o combined.yml
  compose-combine combine --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runCombine(cmd)
		},
	}
}

// runCombine is the main orchestration function for the combine operation.
func runCombine(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	outputPath := cfg.OutputPath()

	// Step 1: Discover compose files. The output file is excluded so a
	// combined file written into a subdirectory is never read back in.
	var exclude []string
	if !cfg.IsStdout() {
		exclude = append(exclude, outputPath)
	}
	sources, err := discovery.NewFinder(cfg.FileName, exclude...).Find(cfg.Root)
	if err != nil {
		return translateError(err)
	}
	VerboseLog("Found %d compose file(s) below %s", len(sources), cfg.Root)

	// Step 2: Load and merge. Combine stops at the first bad file.
	agg, err := compose.Combine(sources,
		compose.WithVersion(cfg.ComposeVersion),
		compose.WithLogger(logger),
	)
	if err != nil {
		return translateError(err)
	}

	// Step 3: Serialize.
	data, err := compose.Marshal(agg.Document())
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to serialize combined compose file", err)
	}

	summary := agg.Summary()
	VerboseLog("Merged %d compose file(s): %s", len(summary.Sources), summary.Tokens())
	for _, m := range summary.Relocated() {
		VerboseLog("Relocated %s", m)
	}

	// Step 4: Write. With "-" the YAML itself is the command output.
	if cfg.IsStdout() {
		if _, err := out.Write(data); err != nil {
			return model.WrapCLIError(model.ExitIOError, "failed to write combined compose file to stdout", err)
		}
		return nil
	}
	if err := compose.WriteOutput(outputPath, data); err != nil {
		return translateError(err)
	}

	// Step 5: Report.
	summary.Root = cfg.Root
	summary.Output = outputPath
	return printCombineResult(out, &summary)
}

// printCombineResult outputs the run summary in text or JSON format,
// depending on the global --json flag.
func printCombineResult(w io.Writer, summary *model.RunSummary) error {
	if IsJSONOutput() {
		return printCombineResultJSON(w, summary)
	}
	_, err := fmt.Fprintf(w, "Combined Docker Compose file created at: %s\n", summary.Output)
	return err
}

// printCombineResultJSON writes the full run summary as indented JSON.
func printCombineResultJSON(w io.Writer, summary *model.RunSummary) error {
	// Use empty slices instead of nil so JSON output shows [] instead of null.
	if summary.Sources == nil {
		summary.Sources = []model.SourceSummary{}
	}
	if summary.Mounts == nil {
		summary.Mounts = []model.MountEntry{}
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to serialize summary", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// translateError maps errors from discovery and the compose package to a
// CLIError with the matching exit code. The message names the failure
// kind; the wrapped error names the offending file.
func translateError(err error) error {
	var (
		cliErr       *model.CLIError
		parseErr     *compose.ParseError
		ioErr        *compose.IOError
		shapeErr     *compose.ShapeError
		collisionErr *compose.CollisionError
		pathErr      *fs.PathError
	)

	switch {
	case errors.As(err, &cliErr):
		return cliErr
	case errors.As(err, &parseErr):
		return model.WrapCLIError(model.ExitParseError, "invalid compose file", err)
	case errors.As(err, &shapeErr):
		return model.WrapCLIError(model.ExitShapeError, "unexpected compose structure", err)
	case errors.As(err, &collisionErr):
		return model.WrapCLIError(model.ExitCollision, "name collision in combined file", err)
	case errors.As(err, &ioErr), errors.As(err, &pathErr):
		return model.WrapCLIError(model.ExitIOError, "file access failed", err)
	default:
		return model.WrapCLIError(model.ExitGeneralError, "combine failed", err)
	}
}
