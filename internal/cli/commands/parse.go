package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/chatlog/internal/logging"
	"github.com/ccollicutt/chatlog/pkg/config"
	"github.com/ccollicutt/chatlog/pkg/output"
	"github.com/ccollicutt/chatlog/pkg/parser"
	"github.com/ccollicutt/chatlog/pkg/webhook"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// ParseOptions holds command-line options for the parse command.
type ParseOptions struct {
	Config      string
	Output      string
	Where       string
	Merge       bool
	Strict      bool
	Verbose     bool
	Quiet       bool
	DateLayouts []string
	Location    string

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string
}

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	opts := &ParseOptions{}

	cmd := &cobra.Command{
		Use:   "parse [transcript...]",
		Short: "Rebuild messages from exported chat transcripts",
		Long: `Parse chat transcripts into one record per message.

Each line that opens a timestamped entry starts a new message; every other
line is joined onto the message before it. Records whose date or time does
not resolve are dropped and counted.

Transcripts may be files or glob patterns (exports/**/*.txt). When none are
given on the command line, the transcripts listed in the config file are used.

Exit codes:
  0 - Transcripts parsed
  1 - Records were dropped and --strict was given
  2 - Configuration or runtime error`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, args, opts)
		},
	}

	// Flags
	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "Config file (YAML, or TOML by .toml extension)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json|csv)")
	cmd.Flags().StringVar(&opts.Where, "where", "", `Keep only messages matching an expression (e.g. 'Author == "RK" && Hour >= 22')`)
	cmd.Flags().BoolVar(&opts.Merge, "merge", false, "Interleave messages from all transcripts chronologically")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "Exit 1 if any record was dropped")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show source locations and run details")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only, no messages")
	cmd.Flags().StringSliceVar(&opts.DateLayouts, "date-layout", nil, "Go layout for entry dates, tried in order (can be repeated)")
	cmd.Flags().StringVar(&opts.Location, "location", "", "IANA time zone the transcript was exported in")

	// Webhook flags
	cmd.Flags().StringVar(&opts.WebhookURL, "webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&opts.WebhookToken, "webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().StringVar(&opts.WebhookTrigger, "webhook-trigger", string(config.WebhookTriggerOnRecords), "When to fire webhook (on_records|always|never)")

	return cmd
}

func runParse(cmd *cobra.Command, args []string, opts *ParseOptions) error {
	ctx := Context(cmd)

	cfg, err := loadConfig(ctx, opts)
	if err != nil {
		return err
	}
	if err := configureLogging(cmd, cfg.Logging); err != nil {
		return err
	}
	ctx = Context(cmd)

	files, err := resolveTranscripts(args, cfg)
	if err != nil {
		return err
	}

	report, err := runPipeline(ctx, cfg, files, opts.Config)
	if err != nil {
		return err
	}

	formatter, err := createFormatter(opts, os.Stdout)
	if err != nil {
		return err
	}

	if err := writeReport(ctx, formatter, report, cmd.OutOrStdout()); err != nil {
		return err
	}

	// Send webhooks (errors logged but don't fail the run)
	sendWebhooks(ctx, cfg, opts, report)

	if opts.Strict && report.Summary.Dropped > 0 {
		ExitCode = 1
	}

	return nil
}

// Context returns the command's context, or a background context when the
// command is run outside of Execute.
func Context(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// loadConfig reads the config file, if any, and applies flag overrides.
// Without a config file the defaults and environment overrides are used.
func loadConfig(ctx context.Context, opts *ParseOptions) (*config.Config, error) {
	cfg := config.FromEnvironment()
	if opts.Config != "" {
		loaded, err := config.Load(ctx, opts.Config)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	if len(opts.DateLayouts) > 0 {
		cfg.Timestamp.DateLayouts = opts.DateLayouts
	}
	if opts.Location != "" {
		cfg.Timestamp.Location = opts.Location
	}
	if opts.Where != "" {
		cfg.Filter = opts.Where
	}
	if opts.Merge {
		cfg.Merge = true
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	return cfg, nil
}

// configureLogging rebuilds the logger from the config's logging section.
// The --debug flag wins over the configured level.
func configureLogging(cmd *cobra.Command, lc config.LoggingConfig) error {
	level := lc.Level
	if f := cmd.Flag("debug"); f != nil && f.Value.String() == "true" {
		level = "debug"
	}

	err := logging.Init(logging.Options{
		Level:      level,
		Path:       lc.Path,
		MaxSize:    lc.MaxSize,
		MaxBackups: lc.MaxBackups,
		MaxAge:     lc.MaxAge,
		Compress:   lc.Compress,
	})
	if err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}

	cmd.SetContext(logging.WithContext(Context(cmd), logging.Get(context.Background())))
	return nil
}

// resolveTranscripts expands the transcript arguments, falling back to the
// transcripts named in the config.
func resolveTranscripts(args []string, cfg *config.Config) ([]string, error) {
	patterns := args
	if len(patterns) == 0 {
		patterns = cfg.Transcripts
	}
	if len(patterns) == 0 {
		return nil, errors.New("no transcripts given (pass files or set transcripts in the config)")
	}

	files, err := parser.ExpandGlobs(patterns)
	if err != nil {
		return nil, fmt.Errorf("expanding transcripts: %w", err)
	}
	return files, nil
}

// buildSource reads the files in order, or merges them chronologically.
func buildSource(cfg *config.Config, files []string) parser.MessageSource {
	res := cfg.Resolver()
	if !cfg.Merge || len(files) < 2 {
		return parser.NewFileSource(files, res)
	}

	// Each transcript gets its own reconstruction so no state is shared
	sources := make([]parser.MessageSource, len(files))
	for i, file := range files {
		sources[i] = parser.NewFileSource([]string{file}, res)
	}
	return parser.NewMergedSource(sources...)
}

// runPipeline parses files, applies the filter and builds the report.
func runPipeline(ctx context.Context, cfg *config.Config, files []string, configPath string) (*output.Report, error) {
	start := time.Now()
	log := logging.Get(ctx)

	source := buildSource(cfg, files)
	defer source.Close()

	messages, err := parser.Collect(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("parsing transcripts: %w", err)
	}

	total := len(messages)
	if f := cfg.CompiledFilter(); f != nil {
		messages, err = f.Apply(messages)
		if err != nil {
			return nil, fmt.Errorf("applying filter: %w", err)
		}
	}

	stats := source.Stats()
	log.Debugw("parsed transcripts",
		"files", stats.Files,
		"records", stats.Records,
		"dropped", stats.Dropped,
		"filtered", total-len(messages),
	)

	return output.NewReport(messages, stats, total-len(messages), output.Metadata{
		ConfigFile: configPath,
		Sources:    files,
		Filter:     cfg.Filter,
		Merged:     cfg.Merge && len(files) > 1,
		ParsedAt:   time.Now(),
		Duration:   time.Since(start),
	}), nil
}

func createFormatter(opts *ParseOptions, terminal *os.File) (output.Formatter, error) {
	return output.NewFormatter(opts.Output, output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
		Width:   output.TerminalWidth(terminal),
	})
}

// sendWebhooks sends the report to all configured webhooks.
// Errors are logged to stderr but don't fail the run.
func sendWebhooks(ctx context.Context, cfg *config.Config, opts *ParseOptions, report *output.Report) {
	webhooks := collectWebhooks(cfg, opts)
	if len(webhooks) == 0 {
		return
	}

	client := webhook.NewClient()
	log := logging.Get(ctx)

	for _, wh := range webhooks {
		if !shouldFireWebhook(wh.Trigger, report.HasMessages()) {
			continue
		}

		resp := client.Send(ctx, report, webhook.SendOptions{
			URL:       wh.URL,
			Token:     wh.Token,
			Timeout:   wh.Timeout,
			BatchSize: wh.BatchSize,
			Retries:   wh.Retries,
		})

		name := wh.Name
		if name == "" {
			name = wh.URL
		}

		if resp.Success() {
			log.Infow("webhook sent", "name", name, "status", resp.StatusCode,
				"batches", resp.Batches, "attempts", resp.Attempts, "duration", resp.Duration)
		} else {
			log.Warnw("webhook failed", "name", name, "attempts", resp.Attempts, "error", resp.Error)
			_, _ = fmt.Fprintf(os.Stderr, "Webhook %s: failed (%v)\n", name, resp.Error)
		}
	}
}

// collectWebhooks merges config file webhooks with the CLI webhook.
func collectWebhooks(cfg *config.Config, opts *ParseOptions) []config.WebhookConfig {
	webhooks := make([]config.WebhookConfig, 0, len(cfg.Webhooks)+1)
	webhooks = append(webhooks, cfg.Webhooks...)

	if opts.WebhookURL != "" {
		trigger := config.WebhookTrigger(opts.WebhookTrigger)
		if trigger == "" {
			trigger = config.WebhookTriggerOnRecords
		}

		webhooks = append(webhooks, config.WebhookConfig{
			Name:    "cli",
			URL:     opts.WebhookURL,
			Token:   opts.WebhookToken,
			Trigger: trigger,
			Timeout: config.DefaultWebhookTimeout,
		})
	}

	return webhooks
}

// shouldFireWebhook determines if a webhook should fire based on its trigger.
func shouldFireWebhook(trigger config.WebhookTrigger, hasMessages bool) bool {
	switch trigger {
	case config.WebhookTriggerAlways:
		return true
	case config.WebhookTriggerNever:
		return false
	default:
		return hasMessages
	}
}

// writeReport formats report to w.
func writeReport(ctx context.Context, formatter output.Formatter, report *output.Report, w io.Writer) error {
	if err := formatter.Format(ctx, report, w); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	return nil
}
