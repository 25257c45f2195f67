// Package config loads the idle-sensor daemon configuration from a YAML
// file and IDLE_SENSOR_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/idle-sensor/internal/activity"
)

// DefaultPath is where the daemon looks for its config file.
const DefaultPath = "/etc/idle-sensor/config.yaml"

// Config holds all configuration for the idle-sensor daemon.
type Config struct {
	// Activity tracking
	Idle     time.Duration `yaml:"idle"`
	Throttle time.Duration `yaml:"throttle"`
	Enabled  bool          `yaml:"enabled"`
	Events   []string      `yaml:"events"`

	// Publishing
	Broker    string        `yaml:"broker"`
	ClientID  string        `yaml:"client_id"`
	WSBroker  string        `yaml:"ws_broker"`
	Heartbeat time.Duration `yaml:"heartbeat"`

	// Status page
	HTTP string `yaml:"http"`

	// Activity sources
	Devices []string    `yaml:"devices"`
	GPIO    *GPIOConfig `yaml:"gpio,omitempty"`
}

// GPIOConfig describes an optional GPIO activity input.
type GPIOConfig struct {
	Chip      string        `yaml:"chip"`
	Pin       int           `yaml:"pin"`
	Event     string        `yaml:"event"`
	ActiveLow bool          `yaml:"active_low"`
	Debounce  time.Duration `yaml:"debounce"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	a := activity.DefaultConfig()
	return &Config{
		Idle:      a.Idle,
		Throttle:  a.Throttle,
		Enabled:   a.Enabled,
		Events:    a.Events,
		Broker:    "tcp://localhost:1883",
		ClientID:  "idle-sensor",
		Heartbeat: 15 * time.Minute,
		HTTP:      ":80",
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Read is Load without validation, for callers that layer further
// overrides on top and validate afterwards.
func Read(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := loadFromFile(cfg, path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("load from environment: %w", err)
	}
	return cfg, nil
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// An empty file decodes to io.EOF
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func loadFromEnv(cfg *Config) error {
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"IDLE_SENSOR_IDLE", &cfg.Idle},
		{"IDLE_SENSOR_THROTTLE", &cfg.Throttle},
		{"IDLE_SENSOR_HEARTBEAT", &cfg.Heartbeat},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	if v := os.Getenv("IDLE_SENSOR_ENABLED"); v != "" {
		switch v {
		case "true", "1", "yes":
			cfg.Enabled = true
		case "false", "0", "no":
			cfg.Enabled = false
		default:
			return fmt.Errorf("invalid IDLE_SENSOR_ENABLED value: %q (use true/false)", v)
		}
	}

	if v := os.Getenv("IDLE_SENSOR_BROKER"); v != "" {
		cfg.Broker = v
	}
	if v := os.Getenv("IDLE_SENSOR_WS_BROKER"); v != "" {
		cfg.WSBroker = v
	}
	if v := os.Getenv("IDLE_SENSOR_HTTP"); v != "" {
		cfg.HTTP = v
	}
	if v := os.Getenv("IDLE_SENSOR_EVENTS"); v != "" {
		cfg.Events = splitList(v)
	}
	if v := os.Getenv("IDLE_SENSOR_DEVICES"); v != "" {
		cfg.Devices = splitList(v)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := c.Activity().Validate(); err != nil {
		return err
	}
	if c.Heartbeat < 0 {
		return fmt.Errorf("heartbeat must be non-negative, got %v", c.Heartbeat)
	}
	if c.Broker == "" {
		return fmt.Errorf("broker is required")
	}
	if c.GPIO != nil {
		if c.GPIO.Pin < 0 {
			return fmt.Errorf("gpio pin must be non-negative, got %d", c.GPIO.Pin)
		}
		if c.GPIO.Event == "" {
			return fmt.Errorf("gpio event is required")
		}
	}
	return nil
}

// Activity returns the activity tracking part of the configuration.
// Source, callbacks and clock are left for the caller to fill in.
func (c *Config) Activity() activity.Config {
	events := make([]string, len(c.Events))
	copy(events, c.Events)
	return activity.Config{
		Events:   events,
		Idle:     c.Idle,
		Throttle: c.Throttle,
		Enabled:  c.Enabled,
	}
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
