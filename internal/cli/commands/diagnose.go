package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/ccollicutt/chatlog/pkg/config"
	"github.com/ccollicutt/chatlog/pkg/detector"
	"github.com/ccollicutt/chatlog/pkg/resolver"
	"github.com/ccollicutt/chatlog/pkg/transcript"
)

// diagnoseSample is how many records of a transcript are resolved when
// checking the configured layouts.
const diagnoseSample = 200

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	Verbose bool
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose <config-file>",
		Short: "Diagnose common configuration issues",
		Long: `Diagnose common configuration issues.

This command checks your configuration file for common problems:
- Config file syntax and structure
- Transcript existence and accessibility
- Date and time layouts against the first transcript
- Filter expression and webhook settings

Example:
  chatlog diagnose chatlog.yaml
  chatlog diagnose -v chatlog.yaml  # verbose output`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(Context(cmd), args[0], opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")

	return cmd
}

func runDiagnose(ctx context.Context, configPath string, opts *DiagnoseOptions, w io.Writer) error {
	results := []DiagnosticResult{}

	// 1. Check config file existence
	result := checkConfigExists(configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 2. Parse config file
	cfg, result := checkConfigParseable(ctx, configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 3. Check transcripts
	results = append(results, checkTranscripts(cfg)...)

	// 4. Check layouts against the first transcript
	results = append(results, checkTimestampLayouts(ctx, cfg, opts)...)

	// 5. Check filter
	results = append(results, checkFilter(cfg, opts)...)

	// 6. Check webhooks configuration
	results = append(results, checkWebhooks(cfg, opts)...)

	printDiagnostics(w, results, opts)
	return nil
}

func checkConfigExists(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Config File",
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = "error"
		result.Message = fmt.Sprintf("Config file not found: %s", path)
		result.Suggests = []string{
			"Check the file path is correct",
			"Use 'chatlog detect <transcript> --write-config chatlog.yaml' to generate a starter config",
		}
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access config file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}
	if info.IsDir() {
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
		return result
	}
	if info.Size() == 0 {
		result.Status = "error"
		result.Message = "Config file is empty"
		result.Suggests = []string{
			"Use 'chatlog detect <transcript> --write-config chatlog.yaml' to generate a starter config",
		}
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Found: %s (%d bytes)", path, info.Size())
	return result
}

func checkConfigParseable(ctx context.Context, path string) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Config Syntax",
	}

	cfg, err := config.Load(ctx, path)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Failed to parse config: %v", err)
		switch {
		case strings.Contains(err.Error(), "yaml"):
			result.Suggests = []string{
				"Check YAML syntax - ensure proper indentation (use spaces, not tabs)",
			}
		case strings.Contains(err.Error(), "toml"):
			result.Suggests = []string{
				"Check TOML syntax - strings must be quoted and tables written as [name]",
			}
		case strings.Contains(err.Error(), "date_layouts"), strings.Contains(err.Error(), "time_layouts"):
			result.Suggests = []string{
				"Layouts use Go reference time, e.g. \"1/2/06\" for 3/6/21 or \"3:04 PM\" for 2:30 am",
			}
		}
		return nil, result
	}

	result.Status = "ok"
	result.Message = "Config file parsed successfully"
	result.Details = []string{
		fmt.Sprintf("Transcripts: %d", len(cfg.Transcripts)),
		fmt.Sprintf("Date layouts: %s", strings.Join(cfg.Timestamp.DateLayouts, ", ")),
		fmt.Sprintf("Time layouts: %s", strings.Join(cfg.Timestamp.TimeLayouts, ", ")),
	}
	return cfg, result
}

func isGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

func checkTranscripts(cfg *config.Config) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Transcripts) == 0 {
		results = append(results, DiagnosticResult{
			Check:   "Transcripts",
			Status:  "warning",
			Message: "No transcripts defined",
			Suggests: []string{
				"Pass transcripts on the command line: chatlog parse -c <config> chat.txt",
				"Or add a transcripts section: transcripts:\n  - exports/*.txt",
			},
		})
		return results
	}

	totalFiles := 0
	for _, source := range cfg.Transcripts {
		result := DiagnosticResult{
			Check: fmt.Sprintf("Transcript: %s", source),
		}

		if isGlob(source) {
			matches, err := doublestar.FilepathGlob(source, doublestar.WithFilesOnly())
			switch {
			case err != nil:
				result.Status = "error"
				result.Message = fmt.Sprintf("Invalid glob pattern: %v", err)
			case len(matches) == 0:
				result.Status = "warning"
				result.Message = "Glob pattern matches no files"
				result.Suggests = []string{
					"Check if the exported transcripts exist at this path",
					"Use ** to match nested directories, e.g. exports/**/*.txt",
				}
			default:
				result.Status = "ok"
				result.Message = fmt.Sprintf("Matches %d file(s)", len(matches))
				result.Details = append(result.Details, matches...)
				totalFiles += len(matches)
			}
			results = append(results, result)
			continue
		}

		info, err := os.Stat(source)
		switch {
		case os.IsNotExist(err):
			result.Status = "error"
			result.Message = "File does not exist"
			result.Suggests = []string{
				"Check if the transcript path is correct",
			}
		case err != nil:
			result.Status = "error"
			result.Message = fmt.Sprintf("Cannot access file: %v", err)
			result.Suggests = []string{"Check file permissions"}
		case info.IsDir():
			result.Status = "error"
			result.Message = "Path is a directory, not a file"
			result.Suggests = []string{
				"Use a glob pattern to match files in directory",
				"Example: " + filepath.Join(source, "*.txt"),
			}
		case info.Size() == 0:
			result.Status = "warning"
			result.Message = "File is empty (0 bytes)"
		default:
			result.Status = "ok"
			result.Message = fmt.Sprintf("File exists (%d bytes)", info.Size())
			totalFiles++
		}
		results = append(results, result)
	}

	if totalFiles == 0 {
		results = append(results, DiagnosticResult{
			Check:   "Transcripts Summary",
			Status:  "error",
			Message: "No accessible transcripts found",
			Suggests: []string{
				"Ensure at least one transcript exists and is readable",
			},
		})
	}

	return results
}

// firstTranscript returns the first existing file named by the config.
func firstTranscript(cfg *config.Config) string {
	for _, source := range cfg.Transcripts {
		if !isGlob(source) {
			if info, err := os.Stat(source); err == nil && !info.IsDir() {
				return source
			}
			continue
		}
		if matches, _ := doublestar.FilepathGlob(source, doublestar.WithFilesOnly()); len(matches) > 0 {
			return matches[0]
		}
	}
	return ""
}

// layoutSample resolves up to diagnoseSample records of path. It returns
// the number of records carrying a timestamp, how many of those resolved,
// and the first one that did not.
func layoutSample(path string, res *resolver.Resolver) (timestamped, resolved int, failed string, err error) {
	f, err := os.Open(path) // #nosec G304 -- transcript paths come from the config
	if err != nil {
		return 0, 0, "", err
	}
	defer f.Close()

	s := transcript.NewScanner(f)
	for i := 0; i < diagnoseSample; i++ {
		rec, err := s.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, 0, "", err
		}
		if !rec.HasTimestamp() {
			continue
		}
		timestamped++
		if _, err := res.Resolve(*rec); err != nil {
			if failed == "" {
				failed = fmt.Sprintf("%s, %s", rec.Date, rec.Time)
			}
			continue
		}
		resolved++
	}
	return timestamped, resolved, failed, nil
}

func checkTimestampLayouts(ctx context.Context, cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	file := firstTranscript(cfg)
	if file == "" {
		return nil
	}

	result := DiagnosticResult{
		Check: fmt.Sprintf("Layout Test: %s", filepath.Base(file)),
	}

	timestamped, resolved, failed, err := layoutSample(file, cfg.Resolver())
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot read transcript: %v", err)
		return []DiagnosticResult{result}
	}

	d := detector.New(detector.WithSampleSize(diagnoseSample))
	detected, _ := d.DetectFromFile(ctx, file)

	switch {
	case timestamped == 0:
		result.Status = "error"
		result.Message = "No entry lines found in transcript"
		result.Suggests = []string{
			"Entries must start like \"3/6/21, 2:30 am - \"",
			"Use 'chatlog classify " + file + "' to see how each line is read",
		}
	case resolved == 0:
		result.Status = "error"
		result.Message = "Configured layouts resolve no entry timestamps"
		result.Details = []string{"Sample timestamp that didn't resolve:", failed}
		result.Suggests = layoutSuggestions(detected)
	case resolved < timestamped:
		result.Status = "warning"
		result.Message = fmt.Sprintf("Layouts resolve %d/%d sampled entries; the rest will be dropped", resolved, timestamped)
		result.Details = []string{"Sample timestamp that didn't resolve:", failed}
		result.Suggests = layoutSuggestions(detected)
	default:
		result.Status = "ok"
		result.Message = fmt.Sprintf("Layouts resolve %d/%d sampled entries", resolved, timestamped)
	}

	if detected != nil && detected.Ambiguous() {
		if result.Status == "ok" {
			result.Status = "warning"
		}
		result.Details = append(result.Details, detected.AmbiguityNote)
		result.Suggests = append(result.Suggests, "Confirm whether the export writes the month or the day first")
	} else if opts.Verbose && detected != nil && detected.HasMatch() {
		result.Details = append(result.Details, fmt.Sprintf("Detected layout: %s", detected.BestMatch().Format.Layout))
	}

	return []DiagnosticResult{result}
}

func layoutSuggestions(detected *detector.DetectionResult) []string {
	if detected == nil || !detected.HasMatch() {
		return []string{"Set timestamp.date_layouts to match the dates in the transcript"}
	}
	best := detected.BestMatch()
	return []string{
		fmt.Sprintf("Detected layout: %s", best.Format.Name),
		fmt.Sprintf("Suggested date_layouts: %s", strings.Join(detected.Layouts(), ", ")),
	}
}

func checkFilter(cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	if cfg.Filter == "" {
		if opts.Verbose {
			return []DiagnosticResult{{
				Check:   "Filter",
				Status:  "ok",
				Message: "No filter configured (optional)",
			}}
		}
		return nil
	}

	// Load already compiled the expression; reaching here means it is valid
	return []DiagnosticResult{{
		Check:   "Filter",
		Status:  "ok",
		Message: "Expression compiles",
		Details: []string{cfg.CompiledFilter().String()},
	}}
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	p := func(format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

	p("=== chatlog Configuration Diagnostics ===\n\n")

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		var icon string
		switch r.Status {
		case "ok":
			icon = "PASS"
			okCount++
		case "warning":
			icon = "WARN"
			warnCount++
		case "error":
			icon = "FAIL"
			errCount++
		}

		p("[%s] %s\n", icon, r.Check)
		p("    %s\n", r.Message)

		if opts.Verbose || r.Status != "ok" {
			for _, d := range r.Details {
				p("      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			p("      Hint: %s\n", s)
		}

		p("\n")
	}

	p("---\n")
	p("Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	switch {
	case errCount > 0:
		p("\nFix the errors above before parsing.\n")
	case warnCount > 0:
		p("\nConfiguration is usable but has warnings.\n")
	default:
		p("\nConfiguration looks good!\n")
	}
}

func checkWebhooks(cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Webhooks) == 0 {
		if opts.Verbose {
			results = append(results, DiagnosticResult{
				Check:   "Webhooks",
				Status:  "ok",
				Message: "No webhooks configured (optional)",
			})
		}
		return results
	}

	for _, wh := range cfg.Webhooks {
		name := wh.Name
		if name == "" {
			name = wh.URL
		}

		result := DiagnosticResult{
			Check: fmt.Sprintf("Webhook: %s", name),
		}

		issues := []string{}
		warnings := []string{}

		if wh.URL == "" {
			issues = append(issues, "Missing url")
		} else {
			u, err := url.Parse(wh.URL)
			if err != nil {
				issues = append(issues, fmt.Sprintf("Invalid URL: %v", err))
			} else if u.Scheme != "http" && u.Scheme != "https" {
				issues = append(issues, fmt.Sprintf("URL scheme must be http or https, got %q", u.Scheme))
			} else if u.Host == "" {
				issues = append(issues, "URL must have a host")
			}
		}

		if wh.Trigger != "" {
			switch wh.Trigger {
			case config.WebhookTriggerOnRecords, config.WebhookTriggerAlways, config.WebhookTriggerNever:
				// Valid
			default:
				issues = append(issues, fmt.Sprintf("Invalid trigger %q (use on_records, always, or never)", wh.Trigger))
			}
		}

		if wh.BatchSize < 0 || wh.Retries < 0 {
			issues = append(issues, "batch_size and retries must not be negative")
		}

		// Check if token looks like an unexpanded env var
		if strings.HasPrefix(wh.Token, "$") {
			warnings = append(warnings, fmt.Sprintf("Token appears to be an unresolved env var: %s", wh.Token))
		}

		switch {
		case len(issues) > 0:
			result.Status = "error"
			result.Message = fmt.Sprintf("%d configuration issue(s)", len(issues))
			result.Details = issues
		case len(warnings) > 0:
			result.Status = "warning"
			result.Message = fmt.Sprintf("%d warning(s)", len(warnings))
			result.Details = warnings
		default:
			result.Status = "ok"
			result.Message = fmt.Sprintf("Trigger: %s", wh.Trigger)
			if opts.Verbose {
				result.Details = []string{
					fmt.Sprintf("URL: %s", wh.URL),
					fmt.Sprintf("Timeout: %s", wh.Timeout),
				}
				if wh.BatchSize > 0 {
					result.Details = append(result.Details, fmt.Sprintf("Batch size: %d messages", wh.BatchSize))
				}
				if wh.Retries > 0 {
					result.Details = append(result.Details, fmt.Sprintf("Retries: %d", wh.Retries))
				}
				if wh.Token != "" {
					result.Details = append(result.Details, "Token: configured")
				}
			}
		}

		results = append(results, result)
	}

	// Test webhook connectivity in verbose mode
	if opts.Verbose {
		for _, wh := range cfg.Webhooks {
			if wh.URL == "" {
				continue
			}

			name := wh.Name
			if name == "" {
				name = wh.URL
			}

			result := checkWebhookConnectivity(wh)
			result.Check = fmt.Sprintf("Webhook Connectivity: %s", name)
			results = append(results, result)
		}
	}

	return results
}

func checkWebhookConnectivity(wh config.WebhookConfig) DiagnosticResult {
	result := DiagnosticResult{}

	// A HEAD request is enough to see if the endpoint is reachable
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(http.MethodHead, wh.URL, nil)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot create request: %v", err)
		return result
	}

	if wh.Token != "" {
		req.Header.Set("Authorization", "Bearer "+wh.Token)
	}

	resp, err := client.Do(req)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot connect: %v", err)
		result.Suggests = []string{
			"Check if the webhook URL is correct",
			"Verify network connectivity",
		}
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.Status = "ok"
		result.Message = fmt.Sprintf("Reachable (status %d)", resp.StatusCode)
	} else {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Reachable but returned status %d", resp.StatusCode)
		result.Suggests = []string{
			"The endpoint may require POST method (will work during actual webhook send)",
			"Check authentication if using a token",
		}
	}

	return result
}

// truncate shortens s to maxLen runes, marking the cut with "...".
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
