// Package output provides formatting and output generation for parse results.
package output

import (
	"time"

	"github.com/ccollicutt/chatlog/pkg/parser"
	"github.com/ccollicutt/chatlog/pkg/resolver"
)

// Report is the complete parse output.
type Report struct {
	// Summary provides aggregate statistics.
	Summary Summary

	// Messages are the resolved messages, in output order.
	Messages []*resolver.Message

	// Metadata provides context about the run.
	Metadata Metadata
}

// Summary provides aggregate statistics.
type Summary struct {
	// Transcripts is the number of transcript files read.
	Transcripts int

	// Lines is the number of physical lines read.
	Lines int

	// Entries is the number of entry-start lines seen.
	Entries int

	// Records is the number of records reconstructed.
	Records int

	// Dropped is the number of records whose timestamp did not resolve.
	Dropped int

	// Filtered is the number of messages removed by the filter expression.
	Filtered int

	// Messages is the number of messages in the report.
	Messages int

	// Authors is the number of distinct authors among the messages.
	Authors int
}

// Metadata provides context about the run.
type Metadata struct {
	// ConfigFile is the path to the configuration file used, if any.
	ConfigFile string

	// Sources lists the transcripts that were read.
	Sources []string

	// Filter is the filter expression applied, if any.
	Filter string

	// Merged is true when transcripts were merged chronologically.
	Merged bool

	// ParsedAt is when the run finished.
	ParsedAt time.Time

	// Duration is how long the run took.
	Duration time.Duration
}

// NewReport creates a Report from the messages a source produced.
// filtered is the number of messages the filter removed.
func NewReport(messages []*resolver.Message, stats parser.Stats, filtered int, meta Metadata) *Report {
	authors := make(map[string]struct{})
	for _, msg := range messages {
		if !msg.System() {
			authors[msg.Author] = struct{}{}
		}
	}

	return &Report{
		Messages: messages,
		Metadata: meta,
		Summary: Summary{
			Transcripts: stats.Files,
			Lines:       stats.Lines,
			Entries:     stats.Entries,
			Records:     stats.Records,
			Dropped:     stats.Dropped,
			Filtered:    filtered,
			Messages:    len(messages),
			Authors:     len(authors),
		},
	}
}

// HasMessages returns true if the report carries at least one message.
func (r *Report) HasMessages() bool {
	return r.Summary.Messages > 0
}
