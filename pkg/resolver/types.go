// Package resolver turns reconstructed records into dated messages.
//
// Records carry their date and time as raw text. The resolver parses them
// and rejects records whose tokens are not a real date or time of day;
// callers drop rejected records without reporting them per row.
package resolver

import "time"

// Message is a record whose timestamp has been parsed.
type Message struct {
	// Timestamp is the entry's date and time of day in the resolver's location.
	Timestamp time.Time

	// Author is the sender, empty for system notices.
	Author string

	// Text is the full message body.
	Text string

	// Source is the transcript the message was read from, if known.
	Source string

	// LineNum is the 1-based line on which the message started.
	LineNum int
}

// System reports whether the message is a notice rather than a sent message.
func (m *Message) System() bool {
	return m.Author == ""
}

// Date returns the calendar date formatted as YYYY-MM-DD.
func (m *Message) Date() string {
	return m.Timestamp.Format("2006-01-02")
}

// TimeOfDay returns the wall-clock time formatted as HH:MM.
func (m *Message) TimeOfDay() string {
	return m.Timestamp.Format("15:04")
}
