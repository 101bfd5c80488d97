// Package detector samples a transcript and works out how its dates are
// written.
//
// Entry starts carry dates such as "3/6/21" that read the same whether the
// exporter wrote month or day first. The detector tries every known
// ordering against each sampled entry and ranks them by how many dates
// each one accepts.
package detector

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ccollicutt/chatlog/pkg/classifier"
	"github.com/ccollicutt/chatlog/pkg/transcript"
)

// DetectionResult holds the result of analyzing a transcript.
type DetectionResult struct {
	Matches       []FormatMatch // Formats that matched, sorted by confidence descending
	SampledLines  int           // Number of lines sampled
	EntryLines    int           // Number of sampled lines that start an entry
	AuthoredLines int           // Number of entries with an author prefix
	AmbiguityNote string        // Warning about date ordering if applicable
}

// FormatMatch represents a format that matched with its confidence score.
type FormatMatch struct {
	Format     *DateFormat
	Confidence float64   // 0.0 to 1.0 (share of entries whose date parsed)
	MatchCount int       // Number of entries that parsed
	SampleLine string    // Example entry that parsed
	ParsedTime time.Time // Parsed date from sample
}

// Detector analyzes transcripts to identify their date ordering.
type Detector struct {
	formats    []*DateFormat
	sampleSize int
}

// Option configures the Detector.
type Option func(*Detector)

// WithSampleSize sets the number of lines to sample (default 500).
func WithSampleSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.sampleSize = n
		}
	}
}

// New creates a new Detector with default formats.
func New(opts ...Option) *Detector {
	d := &Detector{
		formats:    DefaultFormats(),
		sampleSize: 500,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DetectFromFile analyzes a transcript and returns detected formats.
func (d *Detector) DetectFromFile(ctx context.Context, path string) (*DetectionResult, error) {
	lines, err := d.sampleFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return d.DetectFromLines(lines), nil
}

// DetectFromLines analyzes a slice of transcript lines.
func (d *Detector) DetectFromLines(lines []string) *DetectionResult {
	result := &DetectionResult{
		SampledLines: len(lines),
	}

	type formatStats struct {
		index      int
		matchCount int
		sampleLine string
		parsedTime time.Time
	}
	stats := make(map[string]*formatStats)

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if !classifier.IsEntryStart(line) {
			continue
		}
		entry, err := transcript.ParseEntry(line)
		if err != nil {
			continue
		}
		result.EntryLines++
		if classifier.HasAuthorPrefix(entry.Remainder) {
			result.AuthoredLines++
		}

		for i, format := range d.formats {
			parsed, err := time.Parse(format.Layout, entry.Date)
			if err != nil {
				continue
			}
			s := stats[format.Name]
			if s == nil {
				s = &formatStats{index: i, sampleLine: line, parsedTime: parsed}
				stats[format.Name] = s
			}
			s.matchCount++
		}
	}

	if result.EntryLines == 0 {
		return result
	}

	for _, s := range stats {
		result.Matches = append(result.Matches, FormatMatch{
			Format:     d.formats[s.index],
			Confidence: float64(s.matchCount) / float64(result.EntryLines),
			MatchCount: s.matchCount,
			SampleLine: s.sampleLine,
			ParsedTime: s.parsedTime,
		})
	}

	// Confidence descending, then the order formats were declared in
	order := make(map[*DateFormat]int, len(d.formats))
	for i, f := range d.formats {
		order[f] = i
	}
	sort.Slice(result.Matches, func(i, j int) bool {
		if result.Matches[i].Confidence != result.Matches[j].Confidence {
			return result.Matches[i].Confidence > result.Matches[j].Confidence
		}
		return order[result.Matches[i].Format] < order[result.Matches[j].Format]
	})

	if len(result.Matches) > 1 {
		best, runnerUp := result.Matches[0], result.Matches[1]
		if best.MatchCount == runnerUp.MatchCount && best.Format.DayFirst != runnerUp.Format.DayFirst {
			result.AmbiguityNote = fmt.Sprintf(
				"No sampled date has a day above 12, so %q and %q fit equally. "+
					"Set timestamp.date_layouts if the transcript is day first.",
				best.Format.Layout, runnerUp.Format.Layout)
		}
	}

	return result
}

// sampleFile reads up to sampleSize lines from a file.
func (d *Detector) sampleFile(ctx context.Context, path string) ([]string, error) {
	// #nosec G304 - path is provided by user via CLI
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), transcript.MaxLineSize)

	for len(lines) < d.sampleSize && scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := scanner.Text()
		if len(lines) == 0 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		lines = append(lines, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return lines, nil
}

// BestMatch returns the highest confidence match, or nil if none found.
func (r *DetectionResult) BestMatch() *FormatMatch {
	if len(r.Matches) == 0 {
		return nil
	}
	return &r.Matches[0]
}

// HasMatch returns true if at least one format matched.
func (r *DetectionResult) HasMatch() bool {
	return len(r.Matches) > 0
}

// Ambiguous reports whether month-first and day-first orderings tied.
func (r *DetectionResult) Ambiguous() bool {
	return r.AmbiguityNote != ""
}

// EntryRatio is the share of sampled lines that start an entry. A low
// ratio suggests the file is not a chat transcript.
func (r *DetectionResult) EntryRatio() float64 {
	if r.SampledLines == 0 {
		return 0
	}
	return float64(r.EntryLines) / float64(r.SampledLines)
}

// Layouts returns the date layouts to configure: the best match first,
// then any other format with the same ordering that accepted a date.
func (r *DetectionResult) Layouts() []string {
	best := r.BestMatch()
	if best == nil {
		return nil
	}
	layouts := []string{best.Format.Layout}
	for _, m := range r.Matches[1:] {
		if m.Format.DayFirst == best.Format.DayFirst {
			layouts = append(layouts, m.Format.Layout)
		}
	}
	return layouts
}
