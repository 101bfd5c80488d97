package transcript

import (
	"bufio"
	"fmt"
	"io"
)

// MaxLineSize is the longest physical line the Scanner accepts.
const MaxLineSize = 1024 * 1024

// Scanner reconstructs records from a reader one at a time.
// It is not safe for concurrent use; use one Scanner per transcript.
type Scanner struct {
	lines *bufio.Scanner
	state State
	done  bool
}

// NewScanner returns a Scanner reading lines from r.
func NewScanner(r io.Reader) *Scanner {
	lines := bufio.NewScanner(r)
	lines.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	return &Scanner{lines: lines}
}

// Next returns the next record in input order.
// Returns io.EOF after the final record has been returned.
func (s *Scanner) Next() (*Record, error) {
	if s.done {
		return nil, io.EOF
	}

	for s.lines.Scan() {
		next, rec, err := Step(s.state, s.lines.Text())
		if err != nil {
			s.done = true
			return nil, err
		}
		s.state = next
		if rec != nil {
			return rec, nil
		}
	}

	s.done = true
	if err := s.lines.Err(); err != nil {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}

	rec := Finish(s.state)
	return &rec, nil
}

// Lines returns the number of lines consumed so far.
func (s *Scanner) Lines() int {
	return s.state.Lines
}

// Entries returns the number of entry-start lines seen so far.
func (s *Scanner) Entries() int {
	return s.state.Entries
}

// ReadAll reconstructs every record in r.
func ReadAll(r io.Reader) ([]Record, error) {
	s := NewScanner(r)
	var records []Record
	for {
		rec, err := s.Next()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
}
