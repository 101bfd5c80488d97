package config

import (
	"os"
	"strings"
	"time"

	"github.com/ccollicutt/chatlog/pkg/resolver"
)

// Default values for configuration.
const (
	DefaultWebhookTimeout = 10 * time.Second
	DefaultLogLevel       = "info"
	DefaultLogMaxSize     = 10 // megabytes
	DefaultLogMaxBackups  = 3
	DefaultLogMaxAge      = 28 // days
)

// Environment variable names.
const (
	EnvTranscripts = "CHATLOG_TRANSCRIPTS"
	EnvDateLayout  = "CHATLOG_DATE_LAYOUT"
	EnvLogLevel    = "CHATLOG_LOG_LEVEL"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Transcripts: []string{},
		Timestamp: TimestampConfig{
			DateLayouts: append([]string(nil), resolver.DefaultDateLayouts...),
			TimeLayouts: append([]string(nil), resolver.DefaultTimeLayouts...),
		},
		Logging: LoggingConfig{
			Level:      DefaultLogLevel,
			MaxSize:    DefaultLogMaxSize,
			MaxBackups: DefaultLogMaxBackups,
			MaxAge:     DefaultLogMaxAge,
		},
	}
}

// FromEnvironment returns the defaults with environment overrides applied,
// for runs without a config file. The result is not validated.
func FromEnvironment() *Config {
	cfg := DefaultConfig()
	cfg.applyEnvironmentOverrides()
	return cfg
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() {
	if transcripts := os.Getenv(EnvTranscripts); transcripts != "" {
		var globs []string
		for _, g := range strings.Split(transcripts, ",") {
			if g = strings.TrimSpace(g); g != "" {
				globs = append(globs, g)
			}
		}
		c.Transcripts = globs
	}

	// A single layout replaces the list
	if layout := os.Getenv(EnvDateLayout); layout != "" {
		c.Timestamp.DateLayouts = []string{layout}
	}

	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Logging.Level = level
	}
}

// Resolver builds the timestamp resolver the configuration describes.
func (c *Config) Resolver() *resolver.Resolver {
	return resolver.New(
		resolver.WithDateLayouts(c.Timestamp.DateLayouts...),
		resolver.WithTimeLayouts(c.Timestamp.TimeLayouts...),
		resolver.WithLocation(c.Timestamp.LoadedLocation()),
	)
}
