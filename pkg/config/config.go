// Package config loads and persists surfd configuration from a JSON file,
// by default ~/.surf/config.json. Missing files and missing fields fall
// back to defaults, so a fresh install runs with no configuration at all.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// BrowserConfig configures the browser instance surfd launches.
type BrowserConfig struct {
	// Engine is the browser engine: chromium, firefox or webkit
	Engine string `json:"engine"`

	// Headless controls whether the browser runs without a visible window
	Headless bool `json:"headless"`

	// ViewportWidth and ViewportHeight set the initial viewport
	ViewportWidth  int `json:"viewport_width"`
	ViewportHeight int `json:"viewport_height"`

	// UserDataDir enables persistent mode when set
	UserDataDir string `json:"user_data_dir,omitempty"`

	// ExecutablePath overrides the browser binary location
	ExecutablePath string `json:"executable_path,omitempty"`
}

// StreamConfig configures the broadcast server.
type StreamConfig struct {
	// Addr is the listen address for viewer connections
	Addr string `json:"addr"`

	// Quality is the JPEG quality of captured frames, 0-100
	Quality int `json:"quality"`

	// EveryNthFrame skips frames at the capture source; 1 captures all
	EveryNthFrame int `json:"every_nth_frame"`

	// MaxWidth and MaxHeight constrain frame dimensions; 0 means
	// unconstrained
	MaxWidth  int `json:"max_width,omitempty"`
	MaxHeight int `json:"max_height,omitempty"`
}

// Config is the root configuration document.
type Config struct {
	Browser BrowserConfig `json:"browser"`
	Stream  StreamConfig  `json:"stream"`
}

// Default configuration values
const (
	DefaultEngine         = "chromium"
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	DefaultStreamAddr     = "127.0.0.1:8787"
	DefaultQuality        = 80
	DefaultEveryNthFrame  = 1
)

// Default returns the configuration a fresh install runs with.
func Default() *Config {
	return &Config{
		Browser: BrowserConfig{
			Engine:         DefaultEngine,
			Headless:       true,
			ViewportWidth:  DefaultViewportWidth,
			ViewportHeight: DefaultViewportHeight,
		},
		Stream: StreamConfig{
			Addr:          DefaultStreamAddr,
			Quality:       DefaultQuality,
			EveryNthFrame: DefaultEveryNthFrame,
		},
	}
}

// DefaultPath returns ~/.surf/config.json.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".surf", "config.json"), nil
}

// Load reads the configuration at path. A missing file yields the defaults;
// fields absent from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config from %s: %w", path, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the configuration to path, creating parent directories as
// needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config to %s: %w", path, err)
	}
	return nil
}

// applyDefaults fills zero values a hand-edited file may have dropped.
func (c *Config) applyDefaults() {
	if c.Browser.Engine == "" {
		c.Browser.Engine = DefaultEngine
	}
	if c.Browser.ViewportWidth == 0 {
		c.Browser.ViewportWidth = DefaultViewportWidth
	}
	if c.Browser.ViewportHeight == 0 {
		c.Browser.ViewportHeight = DefaultViewportHeight
	}
	if c.Stream.Addr == "" {
		c.Stream.Addr = DefaultStreamAddr
	}
	if c.Stream.Quality == 0 {
		c.Stream.Quality = DefaultQuality
	}
	if c.Stream.EveryNthFrame == 0 {
		c.Stream.EveryNthFrame = DefaultEveryNthFrame
	}
}
