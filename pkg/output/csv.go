package output

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
)

// CSVFormatter formats reports as CSV, one message per row.
type CSVFormatter struct {
	opts FormatOptions
}

// NewCSVFormatter creates a new CSV formatter with the given options.
func NewCSVFormatter(opts FormatOptions) *CSVFormatter {
	return &CSVFormatter{opts: opts}
}

// Name returns the format name.
func (f *CSVFormatter) Name() string {
	return "csv"
}

// Format renders the report as CSV. System notices have an empty author.
// Quiet mode writes the summary counts as a single row.
func (f *CSVFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	cw := csv.NewWriter(w)

	if f.opts.Quiet {
		s := report.Summary
		rows := [][]string{
			{"transcripts", "records", "dropped", "filtered", "messages", "authors"},
			{
				strconv.Itoa(s.Transcripts),
				strconv.Itoa(s.Records),
				strconv.Itoa(s.Dropped),
				strconv.Itoa(s.Filtered),
				strconv.Itoa(s.Messages),
				strconv.Itoa(s.Authors),
			},
		}
		if err := cw.WriteAll(rows); err != nil {
			return err
		}
		return nil
	}

	headers := []string{"Date", "Time", "Author", "Message"}
	if f.opts.Verbose {
		headers = append(headers, "Source", "Line")
	}
	if err := cw.Write(headers); err != nil {
		return err
	}

	for _, msg := range report.Messages {
		record := []string{msg.Date(), msg.TimeOfDay(), msg.Author, msg.Text}
		if f.opts.Verbose {
			record = append(record, msg.Source, strconv.Itoa(msg.LineNum))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
