package transcript

import (
	"errors"
	"strings"
	"unicode"

	"github.com/ccollicutt/chatlog/pkg/classifier"
)

// ErrMissingSeparator is returned by ParseEntry for a line that is not an
// entry start. Step only parses lines the classifier accepted, so it never
// sees this error.
var ErrMissingSeparator = errors.New("entry start without separator")

// ParseEntry splits an entry-start line into date, time and remainder.
// The split uses the same pattern that classifies the line, right after the
// first delimiter; later " - " sequences stay in the remainder.
func ParseEntry(line string) (Entry, error) {
	date, tm, remainder, ok := classifier.SplitEntryStart(line)
	if !ok {
		return Entry{}, ErrMissingSeparator
	}
	return Entry{Date: date, Time: tm, Remainder: remainder}, nil
}

// SplitAuthor separates an author prefix from the rest of an entry.
// If the remainder has no author prefix, author is empty, ok is false and
// message is the remainder unchanged. Otherwise the remainder is cut at
// every colon; the first piece is the author and the rest are joined with
// single spaces, so "RK: hello" yields "RK" and " hello".
func SplitAuthor(remainder string) (author, message string, ok bool) {
	if !classifier.HasAuthorPrefix(remainder) {
		return "", remainder, false
	}
	parts := strings.Split(remainder, ":")
	return parts[0], strings.Join(parts[1:], " "), true
}

// messageFragment returns the first message fragment of an entry and its
// author, if any.
func messageFragment(e Entry) (author, fragment string) {
	author, message, ok := SplitAuthor(e.Remainder)
	if !ok {
		return "", message
	}
	return author, strings.TrimLeftFunc(message, unicode.IsSpace)
}
