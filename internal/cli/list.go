// Package cli — list.go implements the "compose-combine list" command.
//
// The list command is a dry run of discovery: it shows every compose file
// that a combine would read, with its token and what it defines, without
// writing anything. Each file is parsed, so a file that would make the
// combine fail makes list fail the same way.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/compose-combine/internal/compose"
	"github.com/shinji-kodama/compose-combine/internal/discovery"
	"github.com/shinji-kodama/compose-combine/internal/model"
)

// NewListCommand creates the "list" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the compose files that would be combined",
		Long: `List every compose file below the root that a combine would read.

Each file is shown with its directory token (the prefix given to its
services, volumes, and networks) and the number of entries it defines.

Examples:
  compose-combine list
  compose-combine list --root ./stacks
  compose-combine list --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd)
		},
	}
}

// runList discovers and parses the compose files, then prints them.
func runList(cmd *cobra.Command) error {
	var exclude []string
	if !cfg.IsStdout() {
		exclude = append(exclude, cfg.OutputPath())
	}
	sources, err := discovery.NewFinder(cfg.FileName, exclude...).Find(cfg.Root)
	if err != nil {
		return translateError(err)
	}
	VerboseLog("Found %d compose file(s) below %s", len(sources), cfg.Root)

	summaries := make([]model.SourceSummary, 0, len(sources))
	for _, src := range sources {
		doc, err := compose.LoadDocument(src.Path)
		if err != nil {
			return translateError(err)
		}
		services, volumes, networks := doc.Counts()
		summaries = append(summaries, model.SourceSummary{
			ComposeSource: src,
			Services:      services,
			Volumes:       volumes,
			Networks:      networks,
		})
	}

	return printListResult(cmd.OutOrStdout(), summaries)
}

// printListResult outputs the sources in text or JSON format,
// depending on the global --json flag.
func printListResult(w io.Writer, summaries []model.SourceSummary) error {
	if IsJSONOutput() {
		return printListResultJSON(w, summaries)
	}
	printListResultText(w, summaries)
	return nil
}

// printListResultJSON outputs the sources as structured JSON.
// The top-level key is "sources" containing an array of source objects.
func printListResultJSON(w io.Writer, summaries []model.SourceSummary) error {
	type resultJSON struct {
		Sources []model.SourceSummary `json:"sources"`
	}

	data, err := json.MarshalIndent(resultJSON{Sources: summaries}, "", "  ")
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to serialize list output", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// printListResultText outputs the sources as a text table:
//
//	TOKEN                SERVICES   VOLUMES    NETWORKS   PATH
//	backend_db           1          1          0          backend/db/docker-compose.yml
//	svcA                 2          0          1          svcA/docker-compose.yml
func printListResultText(w io.Writer, summaries []model.SourceSummary) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No compose files found.")
		return
	}

	fmt.Fprintf(w, "%-20s %-10s %-10s %-10s %s\n",
		"TOKEN", "SERVICES", "VOLUMES", "NETWORKS", "PATH")

	for _, s := range summaries {
		fmt.Fprintf(w, "%-20s %-10d %-10d %-10d %s\n",
			s.Token,
			s.Services,
			s.Volumes,
			s.Networks,
			s.Path,
		)
	}
}
