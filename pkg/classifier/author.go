package classifier

import "regexp"

// Matcher is one author-prefix rule. Rules overlap on purpose; a message
// has an author prefix if any rule matches.
type Matcher struct {
	// Name identifies the rule in tests and diagnostics.
	Name string

	// Pattern is anchored at the start of the message.
	Pattern *regexp.Regexp
}

// Match reports whether the rule accepts message.
func (m Matcher) Match(message string) bool {
	return m.Pattern.MatchString(message)
}

var authorMatchers = []Matcher{
	{
		Name:    "single-name",
		Pattern: regexp.MustCompile(`^` + word + `+:`),
	},
	{
		Name:    "first-last",
		Pattern: regexp.MustCompile(`^` + word + `+` + space + `+` + word + `+:`),
	},
	{
		Name: "first-middle-last-digits",
		Pattern: regexp.MustCompile(
			`^` + word + `+` + space + `+` + word + `+` + space + `+` + word + `+` + space + `*` + digit + `*:`,
		),
	},
	{
		Name:    "phone-in",
		Pattern: regexp.MustCompile(`^\+` + digit + `{2} ` + digit + `{5} ` + digit + `{5}:`),
	},
	{
		Name:    "phone-us",
		Pattern: regexp.MustCompile(`^\+` + digit + `{2} ` + digit + `{3} ` + digit + `{3} ` + digit + `{4}:`),
	},
	{
		Name:    "name-emoji",
		Pattern: regexp.MustCompile(`^` + word + `+[\x{263a}-\x{1f999}]+:`),
	},
	{
		Name:    "name-run",
		Pattern: regexp.MustCompile(`^` + word + `+(?:` + space + `+` + word + `+)*:`),
	},
}

// AuthorMatchers returns the author-prefix rules in evaluation order.
// The returned slice is a copy and may be modified by the caller.
func AuthorMatchers() []Matcher {
	out := make([]Matcher, len(authorMatchers))
	copy(out, authorMatchers)
	return out
}

// HasAuthorPrefix reports whether message starts with something shaped
// like "Name:" or "+CC NNNNN NNNNN:". Only match/no-match is meaningful;
// callers split the author off at the first colon themselves.
func HasAuthorPrefix(message string) bool {
	for _, m := range authorMatchers {
		if m.Match(message) {
			return true
		}
	}
	return false
}
