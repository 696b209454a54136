// SPDX-FileCopyrightText: 2026 The perfrun Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"gopkg.in/yaml.v3"

	"github.com/perfrun/perfrun/internal/perf"
)

// Config represents the complete application configuration
type (
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	}

	Run struct {
		// Events names the counters to measure, in result order, using the
		// names perf uses (cycles, instructions, page-faults, ...).
		Events []string `yaml:"events"`

		// Timeout is a Go duration string bounding the child's run time.
		// Empty means no timeout.
		Timeout string `yaml:"timeout"`
	}

	Output struct {
		// Format is "table" for the counter table or "none" for just the
		// child's own output and exit status.
		Format string `yaml:"format"`
	}

	Config struct {
		Log    Log    `yaml:"log"`
		Run    Run    `yaml:"run"`
		Output Output `yaml:"output"`
	}
)

const (
	// Flags
	LogLevelFlag     = "log.level"
	LogFormatFlag    = "log.format"
	EventFlag        = "event"
	TimeoutFlag      = "timeout"
	OutputFormatFlag = "output.format"
)

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Run: Run{
			Events: []string{
				"cycles", "instructions", "branches", "branch-misses",
				"page-faults", "context-switches",
			},
		},
		Output: Output{
			Format: "table",
		},
	}
}

// Load loads configuration from an io.Reader
func Load(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.sanitize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FromFile loads configuration from a file
func FromFile(filePath string) (*Config, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Load(file)
}

type ConfigUpdaterFn func(*Config) error

// RegisterFlags registers command-line flags with kingpin app
// and returns ConfigUpdaterFn that updates the config from parsed flags
// as command line arguments override config file settings
func RegisterFlags(app *kingpin.Application) ConfigUpdaterFn {
	// track flags that were explicitly set
	flagsSet := map[string]bool{}

	app.PreAction(func(ctx *kingpin.ParseContext) error {
		// Clear the map in case this function is called multiple times
		flagsSet = map[string]bool{}

		for _, element := range ctx.Elements {
			if flag, ok := element.Clause.(*kingpin.FlagClause); ok && element.Value != nil {
				flagsSet[flag.Model().Name] = true
			}
		}
		return nil
	})

	logLevel := app.Flag(LogLevelFlag, "Logging level: debug, info, warn, error").Default("info").Enum("debug", "info", "warn", "error")
	logFormat := app.Flag(LogFormatFlag, "Logging format: text or json").Default("text").Enum("text", "json")
	events := app.Flag(EventFlag, "Counter to measure; repeat for more (perf names, e.g. cycles)").Short('e').Strings()
	timeout := app.Flag(TimeoutFlag, "Kill the wait after this long (Go duration, e.g. 30s)").Duration()
	outputFormat := app.Flag(OutputFormatFlag, "Result output: table or none").Default("table").Enum("table", "none")

	return func(cfg *Config) error {
		if flagsSet[LogLevelFlag] {
			cfg.Log.Level = *logLevel
		}
		if flagsSet[LogFormatFlag] {
			cfg.Log.Format = *logFormat
		}
		if flagsSet[EventFlag] {
			cfg.Run.Events = *events
		}
		if flagsSet[TimeoutFlag] {
			cfg.Run.Timeout = timeout.String()
		}
		if flagsSet[OutputFormatFlag] {
			cfg.Output.Format = *outputFormat
		}

		cfg.sanitize()
		return cfg.Validate()
	}
}

func (c *Config) sanitize() {
	c.Log.Level = strings.TrimSpace(c.Log.Level)
	c.Log.Format = strings.TrimSpace(c.Log.Format)
	c.Run.Timeout = strings.TrimSpace(c.Run.Timeout)
	c.Output.Format = strings.TrimSpace(c.Output.Format)
	for i, ev := range c.Run.Events {
		c.Run.Events[i] = strings.TrimSpace(ev)
	}
}

// Validate checks for configuration errors
func (c *Config) Validate() error {
	var errs []string
	{ // log level
		validLogLevels := map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		}
		if _, valid := validLogLevels[c.Log.Level]; !valid {
			errs = append(errs, fmt.Sprintf("invalid log level: %s", c.Log.Level))
		}
	}
	{ // log format
		validFormats := map[string]bool{
			"text": true,
			"json": true,
		}
		if _, valid := validFormats[c.Log.Format]; !valid {
			errs = append(errs, fmt.Sprintf("invalid log format: %s", c.Log.Format))
		}
	}
	{ // events
		for _, name := range c.Run.Events {
			if _, err := perf.ParseEvent(name); err != nil {
				errs = append(errs, err.Error())
			}
		}
	}
	{ // timeout
		if c.Run.Timeout != "" {
			if _, err := time.ParseDuration(c.Run.Timeout); err != nil {
				errs = append(errs, fmt.Sprintf("invalid timeout: %s", c.Run.Timeout))
			}
		}
	}
	{ // output format
		validFormats := map[string]bool{
			"table": true,
			"none":  true,
		}
		if _, valid := validFormats[c.Output.Format]; !valid {
			errs = append(errs, fmt.Sprintf("invalid output format: %s", c.Output.Format))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, ", "))
	}

	return nil
}

// Events resolves the configured event names. Call after Validate.
func (c *Config) Events() ([]perf.Event, error) {
	events := make([]perf.Event, 0, len(c.Run.Events))
	for _, name := range c.Run.Events {
		ev, err := perf.ParseEvent(name)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// Timeout resolves the configured timeout; nil means no timeout. Call after
// Validate.
func (c *Config) Timeout() (*time.Duration, error) {
	if c.Run.Timeout == "" {
		return nil, nil
	}
	d, err := time.ParseDuration(c.Run.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout: %w", err)
	}
	return &d, nil
}

func (c *Config) String() string {
	bytes, err := yaml.Marshal(c)
	if err == nil {
		return string(bytes)
	}
	// NOTE: this code path should not happen but if yaml marshal fails for
	// some reason, manually build the string
	sb := strings.Builder{}
	for _, cfg := range []struct {
		Name  string
		Value string
	}{
		{LogLevelFlag, c.Log.Level},
		{LogFormatFlag, c.Log.Format},
		{EventFlag, strings.Join(c.Run.Events, ",")},
		{TimeoutFlag, c.Run.Timeout},
		{OutputFormatFlag, c.Output.Format},
	} {
		sb.WriteString(cfg.Name)
		sb.WriteString(": ")
		sb.WriteString(cfg.Value)
		sb.WriteString("\n")
	}
	return sb.String()
}
