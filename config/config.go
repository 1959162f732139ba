// Package config loads CLI-level settings from the environment and an
// optional YAML settings file. The core library never reads files or
// environment variables; everything here is handed to it as plain values.
package config

import (
	"fmt"
	"os"
	"time"

	"a3s/pkg/proxypool"

	"gopkg.in/yaml.v3"
)

// EngineSettings overrides one engine's defaults.
type EngineSettings struct {
	Weight  float64 `yaml:"weight,omitempty"`
	Timeout int     `yaml:"timeout_seconds,omitempty"`
	Enabled *bool   `yaml:"enabled,omitempty"`
}

// BrowserSettings configures the shared headless browser.
type BrowserSettings struct {
	ChromePath string `yaml:"chrome_path,omitempty"`
	MaxTabs    int64  `yaml:"max_tabs,omitempty"`
}

// Settings is the YAML settings file shape.
type Settings struct {
	TimeoutSeconds int                       `yaml:"timeout_seconds,omitempty"`
	Proxies        []proxypool.Descriptor    `yaml:"proxies,omitempty"`
	Engines        map[string]EngineSettings `yaml:"engines,omitempty"`
	Browser        BrowserSettings           `yaml:"browser,omitempty"`
}

// Timeout returns the configured per-query deadline, or zero when unset.
func (s *Settings) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Load reads a YAML settings file. An empty path returns empty settings.
func Load(path string) (*Settings, error) {
	if path == "" {
		return &Settings{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing settings file %s: %w", path, err)
	}
	for i, d := range s.Proxies {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("settings file %s: proxy %d: %w", path, i, err)
		}
	}
	return &s, nil
}

// FromEnv applies environment overrides on top of the loaded settings.
func (s *Settings) FromEnv() {
	if path := getEnv("A3S_CHROME", ""); path != "" {
		s.Browser.ChromePath = path
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
