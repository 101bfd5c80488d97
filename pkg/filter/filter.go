// Package filter selects messages with boolean expressions.
//
// Expressions are written in the expr language and evaluated against an
// Env built from each message, for example:
//
//	Author == "RK" && Hour >= 22
//	!System && Contains("meeting")
//	Match("(?i)^ok$") || Date == "2021-03-06"
package filter

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/ccollicutt/chatlog/pkg/resolver"
)

// Env is the environment an expression is evaluated in.
type Env struct {
	Author  string
	Text    string
	Date    string // YYYY-MM-DD
	Time    string // HH:MM
	Year    int
	Month   int
	Day     int
	Hour    int
	Minute  int
	Weekday string
	System  bool
	Source  string
	Line    int
}

// Contains reports whether the message text contains s, ignoring case.
func (e Env) Contains(s string) bool {
	return strings.Contains(strings.ToLower(e.Text), strings.ToLower(s))
}

// Match reports whether the message text matches the regular expression.
// An invalid pattern never matches.
func (e Env) Match(pattern string) bool {
	re, err := compiledPattern(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(e.Text)
}

// Words returns the whitespace-separated words of the message text.
func (e Env) Words() []string {
	return strings.Fields(e.Text)
}

var regexCache sync.Map

func compiledPattern(pattern string) (*regexp.Regexp, error) {
	if re, ok := regexCache.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	regexCache.Store(pattern, re)
	return re, nil
}

// NewEnv builds the evaluation environment for msg.
func NewEnv(msg *resolver.Message) Env {
	ts := msg.Timestamp
	return Env{
		Author:  msg.Author,
		Text:    msg.Text,
		Date:    msg.Date(),
		Time:    msg.TimeOfDay(),
		Year:    ts.Year(),
		Month:   int(ts.Month()),
		Day:     ts.Day(),
		Hour:    ts.Hour(),
		Minute:  ts.Minute(),
		Weekday: ts.Weekday().String(),
		System:  msg.System(),
		Source:  msg.Source,
		Line:    msg.LineNum,
	}
}

// Filter is a compiled expression.
type Filter struct {
	source  string
	program *vm.Program
}

// Compile parses and type-checks src. The expression must evaluate to a bool.
func Compile(src string) (*Filter, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, fmt.Errorf("empty filter expression")
	}
	program, err := expr.Compile(src, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compiling filter %q: %w", src, err)
	}
	return &Filter{source: src, program: program}, nil
}

// String returns the expression source.
func (f *Filter) String() string {
	return f.source
}

// Match evaluates the filter against msg. A nil Filter matches everything.
func (f *Filter) Match(msg *resolver.Message) (bool, error) {
	if f == nil {
		return true, nil
	}
	out, err := expr.Run(f.program, NewEnv(msg))
	if err != nil {
		return false, fmt.Errorf("evaluating filter %q: %w", f.source, err)
	}
	matched, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("filter %q returned %T, want bool", f.source, out)
	}
	return matched, nil
}

// Apply returns the messages that match f, in order.
func (f *Filter) Apply(messages []*resolver.Message) ([]*resolver.Message, error) {
	if f == nil {
		return messages, nil
	}
	kept := make([]*resolver.Message, 0, len(messages))
	for _, msg := range messages {
		ok, err := f.Match(msg)
		if err != nil {
			return nil, err
		}
		if ok {
			kept = append(kept, msg)
		}
	}
	return kept, nil
}
