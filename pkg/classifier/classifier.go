// Package classifier decides the role of raw transcript lines.
//
// It answers two questions: does a line open a new timestamped entry, and
// does an entry's remainder begin with an author prefix. Both checks are
// syntactic; numeric values are never validated here. SplitEntryStart cuts
// an accepted line with the same pattern that accepted it.
package classifier

import (
	"regexp"
	"strings"
)

// Character classes shared by every pattern. Exported transcripts are UTF-8
// and names are rarely ASCII, so word, space and digit match Unicode rather
// than RE2's ASCII-only \w, \s and \d.
const (
	word  = `[\p{L}\p{N}_]`
	space = `[\s\v\p{Z}]`
	digit = `\p{Nd}`
)

// entryStart matches "M/D/YY, H:MM am -" anchored at the first character.
// Group 1 is the date and group 2 the time with its marker. One space after
// the delimiter is part of the prefix.
var entryStart = regexp.MustCompile(
	`^([0-9]+/[0-9]+/[0-9]+),` + space + `([0-9]+:[0-9][0-9]` + space + `(?:am|pm|AM|PM))` + space + `-` + space + `?`,
)

// Role is the part a line plays in a transcript.
type Role string

const (
	// RoleEntry marks a line that starts a new timestamped entry.
	RoleEntry Role = "entry"

	// RoleContinuation marks a line appended to the current entry's message.
	RoleContinuation Role = "continuation"
)

// IsEntryStart reports whether line begins with a date, a time with an
// am/pm marker, and the entry delimiter.
func IsEntryStart(line string) bool {
	return entryStart.MatchString(line)
}

// SplitEntryStart cuts an entry-start line after its delimiter and returns
// the date, the time with its am/pm marker, and the rest of the line, which
// may be empty. ok is false exactly when IsEntryStart(line) is false.
func SplitEntryStart(line string) (date, tm, rest string, ok bool) {
	m := entryStart.FindStringSubmatchIndex(line)
	if m == nil {
		return "", "", "", false
	}
	return line[m[2]:m[3]], line[m[4]:m[5]], line[m[1]:], true
}

// Classify returns the role of a single line. Leading and trailing
// whitespace is ignored, matching how lines are normalised before scanning.
func Classify(line string) Role {
	if IsEntryStart(strings.TrimSpace(line)) {
		return RoleEntry
	}
	return RoleContinuation
}
