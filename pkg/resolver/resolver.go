package resolver

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/ccollicutt/chatlog/pkg/transcript"
)

// Default layouts. Dates are month first; times are tried as 12-hour
// first and 24-hour second.
var (
	DefaultDateLayouts = []string{"1/2/06", "1/2/2006"}
	DefaultTimeLayouts = []string{"3:04 PM", "15:04"}
)

var (
	// ErrNoTimestamp is returned for records that precede the first entry.
	ErrNoTimestamp = errors.New("record has no timestamp")

	// ErrBadDate is returned when no date layout accepts the date token.
	ErrBadDate = errors.New("unparseable date")

	// ErrBadTime is returned when no time layout accepts the time token.
	ErrBadTime = errors.New("unparseable time")
)

// Resolver parses record timestamps.
type Resolver struct {
	dateLayouts []string
	timeLayouts []string
	location    *time.Location
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithDateLayouts sets the Go layouts tried, in order, for date tokens.
func WithDateLayouts(layouts ...string) Option {
	return func(r *Resolver) {
		if len(layouts) > 0 {
			r.dateLayouts = layouts
		}
	}
}

// WithTimeLayouts sets the Go layouts tried, in order, for time tokens.
func WithTimeLayouts(layouts ...string) Option {
	return func(r *Resolver) {
		if len(layouts) > 0 {
			r.timeLayouts = layouts
		}
	}
}

// WithLocation sets the location timestamps are interpreted in (default UTC).
func WithLocation(loc *time.Location) Option {
	return func(r *Resolver) {
		if loc != nil {
			r.location = loc
		}
	}
}

// New creates a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		dateLayouts: DefaultDateLayouts,
		timeLayouts: DefaultTimeLayouts,
		location:    time.UTC,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve parses the date and time of rec.
func (r *Resolver) Resolve(rec transcript.Record) (*Message, error) {
	if !rec.HasTimestamp() {
		return nil, ErrNoTimestamp
	}

	date, err := r.ParseDate(rec.Date)
	if err != nil {
		return nil, err
	}
	hour, minute, err := r.ParseTime(rec.Time)
	if err != nil {
		return nil, err
	}

	return &Message{
		Timestamp: time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, r.location),
		Author:    rec.Author,
		Text:      rec.Message,
		LineNum:   rec.LineNum,
	}, nil
}

// ResolveAll resolves records in order, skipping those that fail.
// It returns the resolved messages and the number skipped.
func (r *Resolver) ResolveAll(records []transcript.Record) ([]*Message, int) {
	messages := make([]*Message, 0, len(records))
	dropped := 0
	for _, rec := range records {
		msg, err := r.Resolve(rec)
		if err != nil {
			dropped++
			continue
		}
		messages = append(messages, msg)
	}
	return messages, dropped
}

// ParseDate parses a raw date token with the first layout that accepts it.
func (r *Resolver) ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range r.dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w %q", ErrBadDate, s)
}

// ParseTime parses a raw time token and returns the hour and minute.
// The am/pm marker is matched case-insensitively and any Unicode space
// is treated as a plain space.
func (r *Resolver) ParseTime(s string) (hour, minute int, err error) {
	s = normalizeTime(s)
	for _, layout := range r.timeLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		// time.Parse accepts hour 0 on a 12-hour clock.
		if strings.Contains(layout, "PM") && t.Hour()%12 == 0 && !strings.HasPrefix(s, "12") {
			continue
		}
		return t.Hour(), t.Minute(), nil
	}
	return 0, 0, fmt.Errorf("%w %q", ErrBadTime, s)
}

func normalizeTime(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, s)
	return strings.ToUpper(strings.TrimSpace(s))
}
