// Package config provides configuration loading and validation for chatlog.
package config

import (
	"time"

	"github.com/ccollicutt/chatlog/pkg/filter"
)

// Config is the root configuration structure loaded from YAML or TOML.
type Config struct {
	Transcripts []string        `yaml:"transcripts" toml:"transcripts"`
	Timestamp   TimestampConfig `yaml:"timestamp" toml:"timestamp"`
	Filter      string          `yaml:"filter,omitempty" toml:"filter,omitempty"`
	Merge       bool            `yaml:"merge,omitempty" toml:"merge,omitempty"`
	Logging     LoggingConfig   `yaml:"logging,omitempty" toml:"logging,omitempty"`
	Webhooks    []WebhookConfig `yaml:"webhooks,omitempty" toml:"webhooks,omitempty"`

	// compiledFilter is populated during validation.
	compiledFilter *filter.Filter
}

// CompiledFilter returns the compiled filter expression, or nil if none
// is configured.
func (c *Config) CompiledFilter() *filter.Filter {
	return c.compiledFilter
}

// TimestampConfig defines how entry dates and times are parsed.
type TimestampConfig struct {
	// DateLayouts are Go time layouts tried in order for the date token.
	// See https://pkg.go.dev/time#pkg-constants for format.
	DateLayouts []string `yaml:"date_layouts" toml:"date_layouts"`

	// TimeLayouts are Go time layouts tried in order for the time token.
	TimeLayouts []string `yaml:"time_layouts" toml:"time_layouts"`

	// Location is an IANA zone name timestamps are interpreted in.
	// Defaults to UTC.
	Location string `yaml:"location,omitempty" toml:"location,omitempty"`

	location *time.Location
}

// LoadedLocation returns the parsed Location (populated during validation).
func (t *TimestampConfig) LoadedLocation() *time.Location {
	if t.location == nil {
		return time.UTC
	}
	return t.location
}

// LoggingConfig configures the diagnostic log.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level,omitempty" toml:"level,omitempty"`

	// Path is a file to log to, rotated by size. Empty logs to stderr.
	Path string `yaml:"path,omitempty" toml:"path,omitempty"`

	MaxSize    int  `yaml:"max_size,omitempty" toml:"max_size,omitempty"` // megabytes
	MaxBackups int  `yaml:"max_backups,omitempty" toml:"max_backups,omitempty"`
	MaxAge     int  `yaml:"max_age,omitempty" toml:"max_age,omitempty"` // days
	Compress   bool `yaml:"compress,omitempty" toml:"compress,omitempty"`
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnRecords fires only when at least one message was produced (default).
	WebhookTriggerOnRecords WebhookTrigger = "on_records"
	// WebhookTriggerAlways fires after every run.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines a webhook endpoint for sending parse reports.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty" toml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url" toml:"url"`

	// Token is an optional bearer token for authentication.
	Token string `yaml:"token,omitempty" toml:"token,omitempty"`

	// Trigger determines when the webhook fires.
	// Defaults to "on_records" if not specified.
	Trigger WebhookTrigger `yaml:"trigger,omitempty" toml:"trigger,omitempty"`

	// Timeout is the HTTP request timeout.
	// Defaults to 10s if not specified.
	Timeout time.Duration `yaml:"timeout,omitempty" toml:"timeout,omitempty"`

	// BatchSize caps the messages sent per request; zero sends the whole
	// report in one request.
	BatchSize int `yaml:"batch_size,omitempty" toml:"batch_size,omitempty"`

	// Retries is how many times a request failing with a network error or
	// a 5xx status is repeated.
	Retries int `yaml:"retries,omitempty" toml:"retries,omitempty"`
}
