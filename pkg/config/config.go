// ABOUTME: Configuration loading and parsing for the tool bridge.
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing.

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete bridge configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Bridge  BridgeConfig  `yaml:"bridge"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig identifies the server in initialize responses.
type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Listen  string `yaml:"listen"` // HTTP listen address, e.g. ":8080"
}

// BridgeConfig holds protocol and dispatch configuration.
type BridgeConfig struct {
	CorrelationHeader string   `yaml:"correlation_header"`
	ForwardHeaders    []string `yaml:"forward_headers"` // copied from the inbound request into synthetic ones
	ToolAllow         []string `yaml:"tool_allow"`      // regex patterns; empty means allow all
	ToolDeny          []string `yaml:"tool_deny"`       // regex patterns; deny wins over allow

	CallTimeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	CallTimeoutRaw string `yaml:"call_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig selects the metrics sink.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // "otel" or "prometheus"
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables expand to an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all configuration fields are usable.
func (c *Config) Validate() error {
	for _, p := range append(append([]string{}, c.Bridge.ToolAllow...), c.Bridge.ToolDeny...) {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("invalid tool filter pattern %q: %w", p, err)
		}
	}
	switch c.Metrics.Exporter {
	case "", "otel", "prometheus":
	default:
		return fmt.Errorf("metrics.exporter must be \"otel\" or \"prometheus\", got %q", c.Metrics.Exporter)
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values.
func parseDurations(cfg *Config) error {
	if cfg.Bridge.CallTimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.Bridge.CallTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing call_timeout %q: %w", cfg.Bridge.CallTimeoutRaw, err)
		}
		cfg.Bridge.CallTimeout = d
	}
	return nil
}

// NameFilter compiles the allow/deny patterns into a discovery-time tool
// name predicate. Returns nil when no patterns are configured, meaning all
// candidate names are accepted.
func (c *Config) NameFilter() func(string) bool {
	if len(c.Bridge.ToolAllow) == 0 && len(c.Bridge.ToolDeny) == 0 {
		return nil
	}

	compile := func(patterns []string) []*regexp.Regexp {
		out := make([]*regexp.Regexp, 0, len(patterns))
		for _, p := range patterns {
			// Patterns are validated in Validate
			out = append(out, regexp.MustCompile(p))
		}
		return out
	}
	allow := compile(c.Bridge.ToolAllow)
	deny := compile(c.Bridge.ToolDeny)

	return func(name string) bool {
		for _, re := range deny {
			if re.MatchString(name) {
				return false
			}
		}
		if len(allow) == 0 {
			return true
		}
		for _, re := range allow {
			if re.MatchString(name) {
				return true
			}
		}
		return false
	}
}
