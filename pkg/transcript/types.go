// Package transcript reconstructs message records from an exported chat
// transcript, where one message may span several physical lines.
package transcript

// Entry is a line recognised as the start of a new message, split into its
// raw parts. Date and Time are not validated.
type Entry struct {
	// Date is the raw date token, e.g. "3/6/21".
	Date string

	// Time is the raw time token, e.g. "2:30 am".
	Time string

	// Remainder is everything after the entry delimiter. It may start
	// with an author prefix.
	Remainder string
}

// Record is one reconstructed message. An empty Date, Time or Author means
// the value is absent: Author is empty for system notices, and all three are
// empty for text that appeared before the first entry.
type Record struct {
	// Date is the raw date token of the entry.
	Date string

	// Time is the raw time token of the entry.
	Time string

	// Author is the text before the first colon of an author-prefixed entry.
	Author string

	// Message is the entry text followed by every continuation line,
	// joined with single spaces.
	Message string

	// LineNum is the 1-based line on which the record started.
	LineNum int
}

// HasAuthor reports whether the record was attributed to a sender.
func (r *Record) HasAuthor() bool {
	return r.Author != ""
}

// HasTimestamp reports whether the record came from an entry line.
func (r *Record) HasTimestamp() bool {
	return r.Date != "" || r.Time != ""
}
