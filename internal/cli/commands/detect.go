package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ccollicutt/chatlog/pkg/config"
	"github.com/ccollicutt/chatlog/pkg/detector"
)

// DetectOptions holds command-line options for the detect command.
type DetectOptions struct {
	Output      string
	SampleSize  int
	ShowAll     bool
	WriteConfig string
}

// NewDetectCommand creates the detect command.
func NewDetectCommand() *cobra.Command {
	opts := &DetectOptions{}

	cmd := &cobra.Command{
		Use:   "detect <transcript>",
		Short: "Detect how dates are written in a transcript",
		Long: `Sample a transcript and work out its date layout.

Exports write dates either month first (3/6/21) or day first (6/3/21),
with two or four digit years. Every sampled entry is tried against each
ordering; the layout that accepts the most dates wins. When both orderings
accept every date, the result is reported as ambiguous and month first is
assumed.

Also reports how many lines start an entry and how many entries carry an
author, which shows quickly whether the file is a chat export at all.

Example:
  chatlog detect chat.txt
  chatlog detect --sample 2000 chat.txt
  chatlog detect --write-config chatlog.yaml chat.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().IntVarP(&opts.SampleSize, "sample", "n", 500, "Number of lines to sample")
	cmd.Flags().BoolVar(&opts.ShowAll, "all", false, "Show all matching layouts, not just the best match")
	cmd.Flags().StringVarP(&opts.WriteConfig, "write-config", "w", "", "Write starter config to file (will not overwrite)")

	return cmd
}

func runDetect(cmd *cobra.Command, args []string, opts *DetectOptions) error {
	file := args[0]
	ctx := Context(cmd)
	w := cmd.OutOrStdout()

	if _, err := os.Stat(file); os.IsNotExist(err) {
		return fmt.Errorf("transcript not found: %s", file)
	}

	d := detector.New(detector.WithSampleSize(opts.SampleSize))

	result, err := d.DetectFromFile(ctx, file)
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}

	if opts.WriteConfig != "" {
		if err := writeStarterConfig(result, file, opts.WriteConfig); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "Wrote starter config to: %s\n\n", opts.WriteConfig)
	}

	switch opts.Output {
	case "json":
		return outputDetectJSON(w, result, file, opts)
	case "text", "":
		return outputDetectText(w, result, file, opts)
	default:
		return fmt.Errorf("unknown output format %q (use text or json)", opts.Output)
	}
}

func outputDetectText(w io.Writer, result *detector.DetectionResult, file string, opts *DetectOptions) error {
	p := func(format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

	p("=== Date Layout Detection ===\n\n")
	p("File: %s\n", file)
	p("Lines sampled: %d\n", result.SampledLines)
	p("Entry lines: %d (%.1f%%)\n", result.EntryLines, result.EntryRatio()*100)
	p("Entries with author: %d\n\n", result.AuthoredLines)

	if !result.HasMatch() {
		p("No date layout detected.\n\n")
		if result.EntryLines == 0 {
			p("Tip: No line looks like \"M/D/YY, H:MM am - \". The file may not be a chat export.\n")
		} else {
			p("Tip: Entry dates did not parse with any known layout; set timestamp.date_layouts by hand.\n")
		}
		return nil
	}

	best := result.BestMatch()
	p("Detected Layout: %s (%s)\n", best.Format.Name, best.Format.Layout)
	p("Confidence: %.1f%% (%d/%d entries parsed)\n\n", best.Confidence*100, best.MatchCount, result.EntryLines)
	p("Sample entry:\n  %s\n", truncate(best.SampleLine, 100))
	p("Parsed as: %s\n\n", best.ParsedTime.Format("Monday, 2 January 2006"))

	if result.AmbiguityNote != "" {
		p("WARNING: %s\n", result.AmbiguityNote)
		p("Check a date with a day above 12 in the transcript, or pass --date-layout.\n\n")
	}

	p("--- Configuration snippet (copy to your config file) ---\n\n")
	p("timestamp:\n")
	p("  date_layouts:\n")
	for _, layout := range result.Layouts() {
		p("    - %q\n", layout)
	}
	p("\n")

	if opts.ShowAll && len(result.Matches) > 1 {
		p("--- Alternative layouts ---\n")
		for i, m := range result.Matches[1:] {
			p("%d. %s %q (%.1f%% confidence)\n", i+2, m.Format.Name, m.Format.Layout, m.Confidence*100)
		}
		p("\n")
	}

	return nil
}

// JSONMatch represents a layout match in JSON output.
type JSONMatch struct {
	Name       string  `json:"name"`
	Layout     string  `json:"layout"`
	DayFirst   bool    `json:"day_first"`
	Confidence float64 `json:"confidence"`
	MatchCount int     `json:"match_count"`
	SampleLine string  `json:"sample_line"`
}

// JSONOutput represents the full JSON output.
type JSONOutput struct {
	File          string      `json:"file"`
	Matches       []JSONMatch `json:"matches"`
	Layouts       []string    `json:"layouts"`
	SampledLines  int         `json:"sampled_lines"`
	EntryLines    int         `json:"entry_lines"`
	AuthoredLines int         `json:"authored_lines"`
	AmbiguityNote string      `json:"ambiguity_note,omitempty"`
}

func outputDetectJSON(w io.Writer, result *detector.DetectionResult, file string, opts *DetectOptions) error {
	out := JSONOutput{
		File:          file,
		Matches:       make([]JSONMatch, 0),
		Layouts:       result.Layouts(),
		SampledLines:  result.SampledLines,
		EntryLines:    result.EntryLines,
		AuthoredLines: result.AuthoredLines,
		AmbiguityNote: result.AmbiguityNote,
	}
	if out.Layouts == nil {
		out.Layouts = []string{}
	}

	matches := result.Matches
	if !opts.ShowAll && len(matches) > 1 {
		matches = matches[:1] // Only show best match
	}

	for _, m := range matches {
		out.Matches = append(out.Matches, JSONMatch{
			Name:       m.Format.Name,
			Layout:     m.Format.Layout,
			DayFirst:   m.Format.DayFirst,
			Confidence: m.Confidence,
			MatchCount: m.MatchCount,
			SampleLine: m.SampleLine,
		})
	}

	data, err := sonic.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding detection result: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// writeStarterConfig generates a starter config file with the detected layout.
func writeStarterConfig(result *detector.DetectionResult, file, configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s (will not overwrite)", configPath)
	}

	if !result.HasMatch() {
		return fmt.Errorf("cannot generate config: no date layout detected")
	}

	content, err := generateStarterConfig(file, result)
	if err != nil {
		return err
	}

	// #nosec G306 - config file doesn't need restrictive permissions
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// generateStarterConfig renders a YAML config for the detected layout.
func generateStarterConfig(file string, result *detector.DetectionResult) ([]byte, error) {
	absFile := file
	if abs, err := filepath.Abs(file); err == nil {
		absFile = abs
	}

	cfg := config.DefaultConfig()
	cfg.Transcripts = []string{absFile}
	cfg.Timestamp.DateLayouts = result.Layouts()
	cfg.Logging = config.LoggingConfig{}

	body, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}

	best := result.BestMatch()
	header := fmt.Sprintf(`# chatlog configuration
# Generated by: chatlog detect
# Detected layout: %s (%.0f%% confidence)
`, best.Format.Name, best.Confidence*100)
	if result.AmbiguityNote != "" {
		header += "# WARNING: " + result.AmbiguityNote + "\n"
	}
	footer := `
# Optional settings:
# filter: 'Author != ""'
# merge: true
# webhooks:
#   - name: archive
#     url: https://example.com/hooks/chatlog
#     trigger: on_records
`
	return append(append([]byte(header+"\n"), body...), footer...), nil
}
