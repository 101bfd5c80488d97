package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/chatlog/pkg/config"
	"github.com/ccollicutt/chatlog/pkg/parser"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate a chatlog configuration file without parsing transcripts.

Checks:
  - YAML or TOML syntax
  - Date and time layouts
  - Time zone name
  - Filter expression
  - Webhook settings
  - Transcript file existence (warning only)`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := Context(cmd)
	w := cmd.OutOrStdout()
	p := func(format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

	p("Validating %s...\n", configPath)

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	p("\nConfiguration valid!\n")
	p("  Transcripts:  %d pattern(s)\n", len(cfg.Transcripts))
	p("  Date layouts: %v\n", cfg.Timestamp.DateLayouts)
	p("  Time layouts: %v\n", cfg.Timestamp.TimeLayouts)
	p("  Location:     %s\n", cfg.Timestamp.LoadedLocation())
	if cfg.Filter != "" {
		p("  Filter:       %s\n", cfg.Filter)
	}
	p("  Merge:        %t\n", cfg.Merge)
	p("  Webhooks:     %d\n", len(cfg.Webhooks))

	reportTranscripts(w, cfg.Transcripts)
	return nil
}

// reportTranscripts lists the files the transcript patterns match.
// Missing files are only a warning; they may be exported later.
func reportTranscripts(w io.Writer, patterns []string) {
	if len(patterns) == 0 {
		_, _ = fmt.Fprintf(w, "\nNo transcripts configured; pass them to 'chatlog parse'.\n")
		return
	}

	files, err := parser.ExpandGlobs(patterns)
	if err != nil {
		_, _ = fmt.Fprintf(w, "\nWarning: Error expanding transcript patterns: %v\n", err)
		return
	}

	var found []string
	for _, f := range files {
		if fileExists(f) {
			found = append(found, f)
		}
	}
	if len(found) == 0 {
		_, _ = fmt.Fprintf(w, "\nWarning: No files match transcript patterns\n")
		return
	}

	_, _ = fmt.Fprintf(w, "\nTranscripts matched: %d\n", len(found))
	for _, f := range found {
		_, _ = fmt.Fprintf(w, "  - %s\n", f)
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
