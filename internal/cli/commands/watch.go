package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/chatlog/internal/logging"
	"github.com/ccollicutt/chatlog/pkg/config"
	"github.com/ccollicutt/chatlog/pkg/output"
	"github.com/ccollicutt/chatlog/pkg/watcher"
)

// WatchOptions holds command-line options for the watch command.
type WatchOptions struct {
	ParseOptions
	Debounce time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	opts := &WatchOptions{}

	cmd := &cobra.Command{
		Use:   "watch [transcript...]",
		Short: "Re-parse transcripts whenever they change",
		Long: `Parse transcripts, then parse them again each time one is written.

Takes the same transcripts, config and output flags as parse. Each run
prints a complete report and fires the configured webhooks. Runs until
interrupted.

Example:
  chatlog watch -o json exports/*.txt
  chatlog watch -c chatlog.yaml --webhook-url https://example.com/hook`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(Context(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)
			return runWatch(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "Config file (YAML, or TOML by .toml extension)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json|csv)")
	cmd.Flags().StringVar(&opts.Where, "where", "", "Keep only messages matching an expression")
	cmd.Flags().BoolVar(&opts.Merge, "merge", false, "Interleave messages from all transcripts chronologically")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show source locations and run details")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only, no messages")
	cmd.Flags().StringSliceVar(&opts.DateLayouts, "date-layout", nil, "Go layout for entry dates, tried in order (can be repeated)")
	cmd.Flags().StringVar(&opts.Location, "location", "", "IANA time zone the transcript was exported in")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", watcher.DefaultDebounce, "Wait this long for writes to settle before re-parsing")

	cmd.Flags().StringVar(&opts.WebhookURL, "webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&opts.WebhookToken, "webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().StringVar(&opts.WebhookTrigger, "webhook-trigger", string(config.WebhookTriggerOnRecords), "When to fire webhook (on_records|always|never)")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string, opts *WatchOptions) error {
	cfg, err := loadConfig(Context(cmd), &opts.ParseOptions)
	if err != nil {
		return err
	}
	if err := configureLogging(cmd, cfg.Logging); err != nil {
		return err
	}
	ctx := Context(cmd)

	files, err := resolveTranscripts(args, cfg)
	if err != nil {
		return err
	}

	formatter, err := createFormatter(&opts.ParseOptions, os.Stdout)
	if err != nil {
		return err
	}

	w, err := watcher.New(files, watcher.WithDebounce(opts.Debounce))
	if err != nil {
		return err
	}

	go w.Start(ctx)

	return watchLoop(ctx, cfg, files, opts, formatter, w.Events, cmd.OutOrStdout())
}

// watchLoop parses once, then again for every batch of changes, until
// events is closed.
func watchLoop(ctx context.Context, cfg *config.Config, files []string, opts *WatchOptions,
	formatter output.Formatter, events <-chan []string, out io.Writer) error {
	log := logging.Get(ctx)

	run := func() error {
		report, err := runPipeline(ctx, cfg, files, opts.Config)
		if err != nil {
			return err
		}
		if err := writeReport(ctx, formatter, report, out); err != nil {
			return err
		}
		sendWebhooks(ctx, cfg, &opts.ParseOptions, report)
		return nil
	}

	// The first run fails the command; later failures are usually a
	// transcript caught mid-write and only get logged.
	if err := run(); err != nil {
		return err
	}
	log.Infow("watching transcripts", "files", len(files))

	for changed := range events {
		log.Infow("transcripts changed", "files", strings.Join(changed, ", "))
		if err := run(); err != nil {
			log.Warnw("re-parse failed", "error", err)
			_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	return nil
}
