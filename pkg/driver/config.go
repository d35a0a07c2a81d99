package driver

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nooga/cadence/pkg/interp"
	"github.com/nooga/cadence/pkg/runtime"
)

// RejectionMode selects what the engine does with promises that are still
// rejected without a handler once the job queues drain.
type RejectionMode string

const (
	// RejectionsWarn prints each unhandled rejection to stderr.
	RejectionsWarn RejectionMode = "warn"
	// RejectionsStrict turns the first unhandled rejection into an error.
	RejectionsStrict RejectionMode = "strict"
	RejectionsIgnore RejectionMode = "ignore"
)

// Config is the engine configuration, usually read from cadence.yml.
type Config struct {
	// Queues lists extra job queues after PromiseJobs and ScriptJobs.
	Queues []string `yaml:"queues"`
	// MaxJobs bounds the jobs one run may execute; 0 is unbounded.
	MaxJobs      int    `yaml:"max_jobs"`
	MaxCallDepth int    `yaml:"max_call_depth"`
	LogLevel     string `yaml:"log_level"`
	// TraceJobs logs every job at info level.
	TraceJobs           bool          `yaml:"trace_jobs"`
	UnhandledRejections RejectionMode `yaml:"unhandled_rejections"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		MaxJobs:             1_000_000,
		MaxCallDepth:        interp.DefaultMaxCallDepth,
		LogLevel:            "warn",
		UnhandledRejections: RejectionsWarn,
	}
}

// ConfigError aggregates configuration validation failures.
type ConfigError struct {
	Issues []string
}

func (e *ConfigError) Error() string {
	if len(e.Issues) == 0 {
		return "config: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("config validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n  - ")
		b.WriteString(issue)
	}
	return b.String()
}

// LoadConfig reads a YAML configuration file. Fields the file leaves out
// keep their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	cfg, err := ParseConfig(f)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes and validates YAML configuration from r. Unknown keys
// are rejected.
func ParseConfig(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, err
	}
	cfg := DefaultConfig()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var issues []string
	if c.MaxJobs < 0 {
		issues = append(issues, fmt.Sprintf("max_jobs must not be negative (got %d)", c.MaxJobs))
	}
	if c.MaxCallDepth < 0 {
		issues = append(issues, fmt.Sprintf("max_call_depth must not be negative (got %d)", c.MaxCallDepth))
	}
	if _, err := c.Level(); err != nil {
		issues = append(issues, err.Error())
	}
	switch c.UnhandledRejections {
	case RejectionsWarn, RejectionsStrict, RejectionsIgnore:
	default:
		issues = append(issues, fmt.Sprintf("unhandled_rejections must be warn, strict or ignore (got %q)", c.UnhandledRejections))
	}
	seen := map[string]bool{runtime.PromiseJobs: true, runtime.ScriptJobs: true}
	for _, q := range c.Queues {
		switch {
		case strings.TrimSpace(q) == "":
			issues = append(issues, "queue names must not be empty")
		case seen[q]:
			issues = append(issues, fmt.Sprintf("duplicate queue %q", q))
		}
		seen[q] = true
	}
	if len(issues) > 0 {
		return &ConfigError{Issues: issues}
	}
	return nil
}

// Level parses LogLevel; the empty string means warn.
func (c Config) Level() (slog.Level, error) {
	if c.LogLevel == "" {
		return slog.LevelWarn, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// IsConfigError reports whether err came from configuration validation.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
