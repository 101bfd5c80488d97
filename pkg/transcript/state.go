package transcript

import (
	"fmt"
	"strings"

	"github.com/ccollicutt/chatlog/pkg/classifier"
)

// byteOrderMark is stripped from the first line; some exporters write one.
const byteOrderMark = "\ufeff"

// Phase is the position of the reconstruction in its input.
type Phase int

const (
	// AwaitingFirstEntry is the initial phase; no entry start seen yet.
	AwaitingFirstEntry Phase = iota

	// Accumulating means an entry is open and continuation lines join it.
	Accumulating
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case AwaitingFirstEntry:
		return "awaiting_first_entry"
	case Accumulating:
		return "accumulating"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is the data carried from one line to the next.
type State struct {
	Phase Phase

	// Date, Time and Author describe the open entry.
	Date   string
	Time   string
	Author string

	// Buffer holds the message fragments of the open entry in order.
	Buffer []string

	// StartLine is the line on which the buffered record started.
	StartLine int

	// Lines is the number of lines consumed so far.
	Lines int

	// Entries is the number of entry-start lines seen so far.
	Entries int
}

// Step consumes one raw line and returns the next state. When the line
// starts a new entry and text is buffered, the buffered text is returned
// as a completed record. Step never modifies s or its buffer, so the same
// state can be stepped more than once.
func Step(s State, line string) (State, *Record, error) {
	s.Lines++
	if s.Lines == 1 {
		line = strings.TrimPrefix(line, byteOrderMark)
	}
	line = strings.TrimSpace(line)

	if !classifier.IsEntryStart(line) {
		if len(s.Buffer) == 0 {
			s.StartLine = s.Lines
		}
		s.Buffer = append(s.Buffer[:len(s.Buffer):len(s.Buffer)], line)
		return s, nil, nil
	}

	var flushed *Record
	if len(s.Buffer) > 0 {
		rec := s.record()
		flushed = &rec
	}

	entry, err := ParseEntry(line)
	if err != nil {
		return s, nil, fmt.Errorf("line %d: %w", s.Lines, err)
	}
	author, fragment := messageFragment(entry)

	s.Phase = Accumulating
	s.Entries++
	s.Date = entry.Date
	s.Time = entry.Time
	s.Author = author
	s.Buffer = []string{fragment}
	s.StartLine = s.Lines

	return s, flushed, nil
}

// Finish returns the record for whatever is buffered at end of input. It
// always produces a record, so the last entry is never lost; for input
// without any entry start the record has no date, time or author.
func Finish(s State) Record {
	return s.record()
}

func (s State) record() Record {
	return Record{
		Date:    s.Date,
		Time:    s.Time,
		Author:  s.Author,
		Message: strings.Join(s.Buffer, " "),
		LineNum: s.StartLine,
	}
}

// Reconstruct folds Step over lines in order and returns every record.
func Reconstruct(lines []string) ([]Record, error) {
	var (
		s       State
		records []Record
	)
	for _, line := range lines {
		next, rec, err := Step(s, line)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			records = append(records, *rec)
		}
		s = next
	}
	return append(records, Finish(s)), nil
}
