package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata" // location names resolve without a system zoneinfo

	"github.com/BurntSushi/toml"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/ccollicutt/chatlog/pkg/filter"
)

// Load reads and validates a configuration file. Files ending in .toml are
// decoded as TOML; anything else is decoded as YAML.
func Load(_ context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := decode(path, data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		_, err := toml.Decode(string(data), cfg)
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks a configuration for errors, fills defaults and compiles
// the filter expression.
func Validate(cfg *Config) error {
	if err := validateTimestamp(&cfg.Timestamp); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}

	if cfg.Filter != "" {
		f, err := filter.Compile(cfg.Filter)
		if err != nil {
			return fmt.Errorf("filter: %w", err)
		}
		cfg.compiledFilter = f
	}

	if err := validateLogging(&cfg.Logging); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	// Webhooks are optional, but validate if present
	for i := range cfg.Webhooks {
		if err := validateWebhook(&cfg.Webhooks[i]); err != nil {
			name := cfg.Webhooks[i].Name
			if name == "" {
				name = cfg.Webhooks[i].URL
			}
			return fmt.Errorf("webhooks[%d] (%s): %w", i, name, err)
		}
	}

	return nil
}

// probe is formatted with each layout and parsed back; a layout that loses
// part of it cannot describe a transcript date or time.
var probe = time.Date(2021, time.December, 31, 23, 59, 0, 0, time.UTC)

func validateTimestamp(ts *TimestampConfig) error {
	if len(ts.DateLayouts) == 0 {
		return errors.New("date_layouts: at least one layout is required")
	}
	for _, layout := range ts.DateLayouts {
		t, err := time.Parse(layout, probe.Format(layout))
		if err != nil || t.Year() != probe.Year() || t.Month() != probe.Month() || t.Day() != probe.Day() {
			return fmt.Errorf("date_layouts: %q does not describe a full date", layout)
		}
	}

	if len(ts.TimeLayouts) == 0 {
		return errors.New("time_layouts: at least one layout is required")
	}
	for _, layout := range ts.TimeLayouts {
		t, err := time.Parse(layout, probe.Format(layout))
		if err != nil || t.Hour() != probe.Hour() || t.Minute() != probe.Minute() {
			return fmt.Errorf("time_layouts: %q does not describe an hour and minute", layout)
		}
	}

	if ts.Location != "" {
		loc, err := time.LoadLocation(ts.Location)
		if err != nil {
			return fmt.Errorf("location: %w", err)
		}
		ts.location = loc
	}

	return nil
}

func validateLogging(lc *LoggingConfig) error {
	if lc.Level == "" {
		lc.Level = DefaultLogLevel
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		return fmt.Errorf("invalid level %q (must be debug, info, warn, or error)", lc.Level)
	}
	if lc.MaxSize < 0 || lc.MaxBackups < 0 || lc.MaxAge < 0 {
		return errors.New("max_size, max_backups and max_age must not be negative")
	}
	return nil
}

func validateWebhook(wh *WebhookConfig) error {
	if wh.URL == "" {
		return errors.New("url is required")
	}

	// Validate URL format
	u, err := url.Parse(wh.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("url must have a host")
	}

	// Expand environment variables in token
	wh.Token = expandEnvVar(wh.Token)

	// Validate trigger if specified
	if wh.Trigger != "" {
		switch wh.Trigger {
		case WebhookTriggerOnRecords, WebhookTriggerAlways, WebhookTriggerNever:
			// Valid
		default:
			return fmt.Errorf("invalid trigger %q (must be on_records, always, or never)", wh.Trigger)
		}
	} else {
		wh.Trigger = WebhookTriggerOnRecords
	}

	if wh.BatchSize < 0 || wh.Retries < 0 {
		return errors.New("batch_size and retries must not be negative")
	}

	// Default timeout
	if wh.Timeout <= 0 {
		wh.Timeout = DefaultWebhookTimeout
	}

	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	// Handle ${VAR} format
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		varName := s[2 : len(s)-1]
		return os.Getenv(varName)
	}

	// Handle $VAR format (no braces)
	if strings.HasPrefix(s, "$") && !strings.HasPrefix(s, "${") {
		varName := s[1:]
		return os.Getenv(varName)
	}

	return s
}
