// Package runtimeconfig loads the YAML configuration consumed by
// cmd/agentctl: which transport to stand the runtime up on, where it
// listens, and how often it steps. Grounded on the teacher's
// internal/config.Config/Load (read file, unmarshal YAML, apply
// defaults, validate).
package runtimeconfig

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Transport names accepted by the transport field.
const (
	TransportMemory = "memory"
	TransportTCP    = "tcp"
	TransportWS     = "ws"
)

// Config is the top-level document read from a config file.
type Config struct {
	AppName string `yaml:"app_name"`
	Debug   bool   `yaml:"debug"`

	Transport string `yaml:"transport"`
	Listen    string `yaml:"listen"`

	StepIntervalMillis int `yaml:"step_interval_millis"`
}

// Load reads filename, parses it as YAML, applies defaults, and
// validates the result.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("runtimeconfig: read %s: %w", filename, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("runtimeconfig: parse %s: %w", filename, err)
	}

	if cfg.Transport == "" {
		cfg.Transport = TransportMemory
	}
	if cfg.Listen == "" {
		cfg.Listen = ":7711"
	}
	if cfg.StepIntervalMillis == 0 {
		cfg.StepIntervalMillis = 50
	}

	switch cfg.Transport {
	case TransportMemory, TransportTCP, TransportWS:
	default:
		return nil, fmt.Errorf("runtimeconfig: unknown transport %q (want memory, tcp, or ws)", cfg.Transport)
	}
	if cfg.StepIntervalMillis < 0 {
		return nil, fmt.Errorf("runtimeconfig: step_interval_millis cannot be negative: %d", cfg.StepIntervalMillis)
	}

	return &cfg, nil
}

// StepInterval returns StepIntervalMillis as a time.Duration, for
// wiring directly into a time.Ticker.
func (c *Config) StepInterval() time.Duration {
	return time.Duration(c.StepIntervalMillis) * time.Millisecond
}
