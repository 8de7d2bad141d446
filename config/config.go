// Package config holds the application configuration. Files may be YAML or
// JSON; YAML is tried first.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete tradebook configuration.
type Config struct {
	Journal JournalConfig `json:"journal" yaml:"journal"`
	Rates   RatesConfig   `json:"rates" yaml:"rates"`
	Server  ServerConfig  `json:"server" yaml:"server"`
}

// JournalConfig locates the trade database and sets reporting defaults.
type JournalConfig struct {
	DBPath       string `json:"db_path" yaml:"db_path"`
	BaseCurrency string `json:"base_currency" yaml:"base_currency"`
}

// RatesConfig controls the exchange-rate provider.
type RatesConfig struct {
	SourceURL string `json:"source_url,omitempty" yaml:"source_url,omitempty"`
	CachePath string `json:"cache_path,omitempty" yaml:"cache_path,omitempty"`
	// RefreshSchedule is a cron expression for the background refresh when
	// running the server. Empty disables the job.
	RefreshSchedule string `json:"refresh_schedule,omitempty" yaml:"refresh_schedule,omitempty"`
}

// ServerConfig contains the HTTP server parameters.
type ServerConfig struct {
	Addr         string   `json:"addr" yaml:"addr"`
	AllowOrigins []string `json:"allow_origins,omitempty" yaml:"allow_origins,omitempty"`
	ReadTimeout  string   `json:"read_timeout,omitempty" yaml:"read_timeout,omitempty"`
	WriteTimeout string   `json:"write_timeout,omitempty" yaml:"write_timeout,omitempty"`
}

// ParseTimeouts converts the timeout strings to durations; empty means zero.
func (s ServerConfig) ParseTimeouts() (read, write time.Duration, err error) {
	if s.ReadTimeout != "" {
		read, err = time.ParseDuration(s.ReadTimeout)
		if err != nil {
			return 0, 0, fmt.Errorf("server.read_timeout: %w", err)
		}
	}
	if s.WriteTimeout != "" {
		write, err = time.ParseDuration(s.WriteTimeout)
		if err != nil {
			return 0, 0, fmt.Errorf("server.write_timeout: %w", err)
		}
	}
	return read, write, nil
}

// LoadFromFile loads configuration from a file (YAML or JSON).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile saves the configuration; .yaml/.yml extensions write YAML,
// anything else writes indented JSON.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Journal.DBPath == "" {
		return fmt.Errorf("journal.db_path is required")
	}
	if c.Journal.BaseCurrency == "" {
		return fmt.Errorf("journal.base_currency is required")
	}
	if c.Journal.BaseCurrency != strings.ToUpper(c.Journal.BaseCurrency) {
		return fmt.Errorf("journal.base_currency must be upper case, got %q", c.Journal.BaseCurrency)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if _, _, err := c.Server.ParseTimeouts(); err != nil {
		return err
	}
	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Journal: JournalConfig{
			DBPath:       "./tradebook.db",
			BaseCurrency: "USD",
		},
		Rates: RatesConfig{
			CachePath:       "./rates.db",
			RefreshSchedule: "0 6 * * *",
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  "10s",
			WriteTimeout: "30s",
		},
	}
}
