// Package config provides unified configuration loading for iac.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nvandessel/iac/internal/iac"
	"github.com/nvandessel/iac/internal/network"
	"gopkg.in/yaml.v3"
)

// IACConfig contains all iac configuration settings.
type IACConfig struct {
	// Model holds the constants of the update rule.
	Model iac.Config `json:"model" yaml:"model"`

	// Run contains settings for a simulation run.
	Run RunConfig `json:"run" yaml:"run"`

	// Network describes where the network comes from.
	Network NetworkConfig `json:"network" yaml:"network"`

	// Logging contains settings for operational and trace logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// RunConfig configures a simulation run.
type RunConfig struct {
	// Steps is the number of update steps. Default: 500.
	Steps int `json:"steps" yaml:"steps"`

	// Probes are the nodes receiving external input.
	Probes []string `json:"probes,omitempty" yaml:"probes,omitempty"`

	// TraceEvery writes a trace snapshot every N steps at debug level.
	// 0 only traces the start and end of a run.
	TraceEvery int `json:"trace_every,omitempty" yaml:"trace_every,omitempty"`
}

// NetworkConfig configures the network builder.
type NetworkConfig struct {
	// Source is "builtin:<name>", "store:<name>", or a path to a CSV adjacency matrix.
	Source string `json:"source" yaml:"source"`

	// Blocks lays out the CSV columns in consecutive category blocks.
	Blocks []network.BlockSpec `json:"blocks,omitempty" yaml:"blocks,omitempty"`

	// Links are extra symmetric excitatory connections, each a pair of node ids.
	Links [][]string `json:"links,omitempty" yaml:"links,omitempty"`
}

// LoggingConfig configures iac's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables run traces in .iac/trace.jsonl; "trace" traces every step.
	Level string `json:"level" yaml:"level"`
}

// Default returns an IACConfig with the standard model constants, running
// the built-in Jets and Sharks network.
func Default() *IACConfig {
	return &IACConfig{
		Model: iac.DefaultConfig(),
		Run: RunConfig{
			Steps: iac.DefaultSteps,
		},
		Network: NetworkConfig{
			Source: "builtin:" + network.JetsAndSharksName,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.iac/config.yaml -> environment variables
func Load() (*IACConfig, error) {
	return LoadWithFile("")
}

// LoadWithFile is Load with an explicit config file in place of
// ~/.iac/config.yaml. An empty path falls back to the home config, which may
// be absent; an explicit path must exist.
func LoadWithFile(path string) (*IACConfig, error) {
	config := Default()

	if path == "" {
		if homeDir, err := os.UserHomeDir(); err == nil {
			homeConfig := filepath.Join(homeDir, ".iac", "config.yaml")
			if _, statErr := os.Stat(homeConfig); statErr == nil {
				path = homeConfig
			}
		}
	}

	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		config = fileConfig
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file. Fields the
// file omits keep their defaults.
func LoadFromFile(path string) (*IACConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Network.Source = expandEnvVars(config.Network.Source)

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *IACConfig) Validate() error {
	if c.Model.MaxActivation <= c.Model.MinActivation {
		return fmt.Errorf("max_activation (%v) must be greater than min_activation (%v)",
			c.Model.MaxActivation, c.Model.MinActivation)
	}
	if c.Model.Decay < 0 || c.Model.Decay >= 2 {
		return fmt.Errorf("decay must be in [0, 2), got %v", c.Model.Decay)
	}
	if c.Model.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Model.Workers)
	}

	if c.Run.Steps < 0 {
		return fmt.Errorf("steps must be non-negative, got %d", c.Run.Steps)
	}
	if c.Run.TraceEvery < 0 {
		return fmt.Errorf("trace_every must be non-negative, got %d", c.Run.TraceEvery)
	}

	for _, b := range c.Network.Blocks {
		if b.Size <= 0 {
			return fmt.Errorf("block %q must have a positive size, got %d", b.Name, b.Size)
		}
	}
	for _, l := range c.Network.Links {
		if len(l) != 2 {
			return fmt.Errorf("link %v must name exactly two nodes", l)
		}
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Unparseable numbers are ignored.
func applyEnvOverrides(config *IACConfig) {
	floats := map[string]*float64{
		"IAC_PROBE_WEIGHT":   &config.Model.ProbeWeight,
		"IAC_EXCITATION":     &config.Model.Excitation,
		"IAC_INHIBITION":     &config.Model.Inhibition,
		"IAC_MAX_ACTIVATION": &config.Model.MaxActivation,
		"IAC_MIN_ACTIVATION": &config.Model.MinActivation,
		"IAC_DECAY":          &config.Model.Decay,
		"IAC_REST":           &config.Model.Rest,
	}
	for name, field := range floats {
		if v := os.Getenv(name); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*field = f
			}
		}
	}

	if v := os.Getenv("IAC_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Model.Workers = n
		}
	}

	if v := os.Getenv("IAC_STEPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Run.Steps = n
		}
	}

	if v := os.Getenv("IAC_PROBES"); v != "" {
		config.Run.Probes = splitList(v)
	}

	if v := os.Getenv("IAC_NETWORK"); v != "" {
		config.Network.Source = v
	}

	if v := os.Getenv("IAC_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// splitList splits a comma-separated list, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
