package output

import (
	"context"
	"io"
	"time"

	"github.com/bytedance/sonic"

	"github.com/ccollicutt/chatlog/pkg/resolver"
)

// JSONFormatter formats reports as JSON.
type JSONFormatter struct {
	opts FormatOptions
}

// NewJSONFormatter creates a new JSON formatter with the given options.
func NewJSONFormatter(opts FormatOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Name returns the format name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// JSONMessage is one message in JSON output. Author is null for system
// notices.
type JSONMessage struct {
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Timestamp time.Time `json:"timestamp"`
	Author    *string   `json:"author"`
	Message   string    `json:"message"`
	Source    string    `json:"source,omitempty"`
	Line      int       `json:"line,omitempty"`
}

// JSONSummary mirrors Summary with snake_case keys.
type JSONSummary struct {
	Transcripts int `json:"transcripts"`
	Lines       int `json:"lines"`
	Entries     int `json:"entries"`
	Records     int `json:"records"`
	Dropped     int `json:"dropped"`
	Filtered    int `json:"filtered"`
	Messages    int `json:"messages"`
	Authors     int `json:"authors"`
}

// JSONMetadata mirrors Metadata with snake_case keys.
type JSONMetadata struct {
	ConfigFile string   `json:"config_file,omitempty"`
	Sources    []string `json:"sources"`
	Filter     string   `json:"filter,omitempty"`
	Merged     bool     `json:"merged"`
	ParsedAt   string   `json:"parsed_at"`
	DurationMS int64    `json:"duration_ms"`
}

// JSONReport is the full JSON document.
type JSONReport struct {
	Summary  JSONSummary   `json:"summary"`
	Messages []JSONMessage `json:"messages"`
	Metadata JSONMetadata  `json:"metadata"`
}

// Format renders the report as JSON.
func (f *JSONFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	var v interface{}
	if f.opts.Quiet {
		// Quiet mode: just summary
		v = jsonSummary(report.Summary)
	} else {
		v = f.jsonReport(report)
	}

	data, err := sonic.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func (f *JSONFormatter) jsonReport(report *Report) JSONReport {
	out := JSONReport{
		Summary:  jsonSummary(report.Summary),
		Messages: make([]JSONMessage, 0, len(report.Messages)),
		Metadata: JSONMetadata{
			ConfigFile: report.Metadata.ConfigFile,
			Sources:    report.Metadata.Sources,
			Filter:     report.Metadata.Filter,
			Merged:     report.Metadata.Merged,
			DurationMS: report.Metadata.Duration.Milliseconds(),
		},
	}
	if out.Metadata.Sources == nil {
		out.Metadata.Sources = []string{}
	}
	if !report.Metadata.ParsedAt.IsZero() {
		out.Metadata.ParsedAt = report.Metadata.ParsedAt.Format(time.RFC3339)
	}

	for _, msg := range report.Messages {
		out.Messages = append(out.Messages, f.jsonMessage(msg))
	}
	return out
}

func (f *JSONFormatter) jsonMessage(msg *resolver.Message) JSONMessage {
	jm := JSONMessage{
		Date:      msg.Date(),
		Time:      msg.TimeOfDay(),
		Timestamp: msg.Timestamp,
		Message:   msg.Text,
	}
	if !msg.System() {
		author := msg.Author
		jm.Author = &author
	}
	if f.opts.Verbose {
		jm.Source = msg.Source
		jm.Line = msg.LineNum
	}
	return jm
}

func jsonSummary(s Summary) JSONSummary {
	return JSONSummary{
		Transcripts: s.Transcripts,
		Lines:       s.Lines,
		Entries:     s.Entries,
		Records:     s.Records,
		Dropped:     s.Dropped,
		Filtered:    s.Filtered,
		Messages:    s.Messages,
		Authors:     s.Authors,
	}
}
