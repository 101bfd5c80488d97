package output

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/ccollicutt/chatlog/pkg/resolver"
)

const (
	// systemAuthor marks system notices in the author column.
	systemAuthor = "*"

	// maxAuthorWidth caps the author column; longer names are truncated.
	maxAuthorWidth = 24

	// minMessageWidth keeps the message column usable on narrow terminals.
	minMessageWidth = 20
)

// TextFormatter formats reports as a human-readable table.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.formatQuiet(report, w)
	}
	return f.formatFull(report, w)
}

func (f *TextFormatter) formatQuiet(report *Report, w io.Writer) error {
	_, err := fmt.Fprintf(w, "chatlog: %d transcripts, %d messages, %d authors, %d dropped\n",
		report.Summary.Transcripts,
		report.Summary.Messages,
		report.Summary.Authors,
		report.Summary.Dropped)
	return err
}

func (f *TextFormatter) formatFull(report *Report, w io.Writer) error {
	authorWidth := runewidth.StringWidth("AUTHOR")
	for _, msg := range report.Messages {
		if width := runewidth.StringWidth(authorLabel(msg)); width > authorWidth {
			authorWidth = width
		}
	}
	if authorWidth > maxAuthorWidth {
		authorWidth = maxAuthorWidth
	}

	// DATE and TIME have fixed widths: YYYY-MM-DD and HH:MM
	messageWidth := 0
	if f.opts.Width > 0 {
		messageWidth = f.opts.Width - (10 + 2 + 5 + 2 + authorWidth + 2)
		if messageWidth < minMessageWidth {
			messageWidth = minMessageWidth
		}
	}

	fmt.Fprintf(w, "%-10s  %-5s  %s  %s\n", "DATE", "TIME", pad("AUTHOR", authorWidth), "MESSAGE")
	for _, msg := range report.Messages {
		text := msg.Text
		if messageWidth > 0 {
			text = runewidth.Truncate(text, messageWidth, "…")
		}
		fmt.Fprintf(w, "%s  %s  %s  %s\n",
			msg.Date(),
			msg.TimeOfDay(),
			pad(runewidth.Truncate(authorLabel(msg), authorWidth, "…"), authorWidth),
			text)
		if f.opts.Verbose && msg.Source != "" {
			fmt.Fprintf(w, "%s  %s:%d\n", strings.Repeat(" ", 10+2+5), msg.Source, msg.LineNum)
		}
	}

	// Summary
	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d messages from %d authors in %d transcripts\n",
		report.Summary.Messages,
		report.Summary.Authors,
		report.Summary.Transcripts)

	if report.Summary.Dropped > 0 {
		fmt.Fprintf(w, "Dropped: %d records with unparseable timestamps\n", report.Summary.Dropped)
	}

	if f.opts.Verbose {
		fmt.Fprintf(w, "Lines read: %d (%d entries, %d records)\n",
			report.Summary.Lines, report.Summary.Entries, report.Summary.Records)
		if report.Metadata.Filter != "" {
			fmt.Fprintf(w, "Filter: %s (%d removed)\n", report.Metadata.Filter, report.Summary.Filtered)
		}
		fmt.Fprintf(w, "Duration: %s\n", report.Metadata.Duration.Round(1e6))
	}

	return nil
}

func authorLabel(msg *resolver.Message) string {
	if msg.System() {
		return systemAuthor
	}
	return msg.Author
}

// pad right-pads s with spaces to width display cells.
func pad(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// TerminalWidth returns the width of f if it is a terminal, or 0.
func TerminalWidth(f *os.File) int {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	width, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return width
}
