package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	Catalog  CatalogConfig  `json:"catalog" yaml:"catalog"`
	Playback PlaybackConfig `json:"playback" yaml:"playback"`
	Library  LibraryConfig  `json:"library" yaml:"library"`
	Session  SessionConfig  `json:"session" yaml:"session"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
	DataDir  string         `json:"data_dir" yaml:"data_dir"`
}

type CatalogConfig struct {
	BaseURL   string `json:"base_url" yaml:"base_url"`
	Token     string `json:"token,omitempty" yaml:"token,omitempty"`
	Country   string `json:"country" yaml:"country"`
	TimeoutMs int    `json:"timeout_ms" yaml:"timeout_ms"`
	MaxTracks int    `json:"max_tracks" yaml:"max_tracks"`
}

type PlaybackConfig struct {
	SampleIntervalMs int     `json:"sample_interval_ms" yaml:"sample_interval_ms"`
	BufferMs         int     `json:"buffer_ms" yaml:"buffer_ms"`
	Volume           float64 `json:"volume" yaml:"volume"`
}

type LibraryConfig struct {
	MusicDirectories []string `json:"music_directories" yaml:"music_directories"`
	Workers          int      `json:"workers" yaml:"workers"`
}

type SessionConfig struct {
	Backend string `json:"backend" yaml:"backend"` // file or postgres
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
	DSN     string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

type LoggingConfig struct {
	Level string `json:"level" yaml:"level"`
	JSON  bool   `json:"json" yaml:"json"`
}

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Sample interval bounds for the progress sampler
const (
	MinSampleIntervalMs = 70
	MaxSampleIntervalMs = 100
)

// GetDefaultConfig returns default configuration
func GetDefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			BaseURL:   "https://api.spotify.com",
			Country:   "US",
			TimeoutMs: 5000,
			MaxTracks: 10,
		},
		Playback: PlaybackConfig{
			SampleIntervalMs: 80,
			BufferMs:         100,
			Volume:           1,
		},
		Library: LibraryConfig{
			MusicDirectories: []string{},
			Workers:          4,
		},
		Session: SessionConfig{
			Backend: BackendFile,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		DataDir: "./data",
	}
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// LoadConfig reads configuration from file on top of the defaults. A missing
// file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	config := GetDefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return config, nil
}

// SaveConfig marshals and saves configuration to file
func SaveConfig(config *Config, path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(config)
	} else {
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadOrCreate loads config from path or creates default if not exists.
// Environment overrides are applied after the file is written, so secrets
// from the environment never end up on disk.
func LoadOrCreate(path string) (*Config, error) {
	config, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	// Save default config if file didn't exist
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := SaveConfig(config, path); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
	}

	config.ApplyEnv()
	return config, nil
}

// LoadDotEnv loads variables from .env files into the process environment.
// Variables already set win; missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides file settings with environment variables
func (c *Config) ApplyEnv() {
	if v := os.Getenv("STREAMER_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("SPOTIFY_TOKEN"); v != "" {
		c.Catalog.Token = v
	}
	if v := os.Getenv("SPOTIFY_COUNTRY"); v != "" {
		c.Catalog.Country = v
	}
	if v := os.Getenv("STREAMER_SESSION_DSN"); v != "" {
		c.Session.DSN = v
		c.Session.Backend = BackendPostgres
	}
	if v := os.Getenv("STREAMER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks settings that cannot be defaulted
func (c *Config) Validate() error {
	switch c.Session.Backend {
	case BackendFile, "":
	case BackendPostgres:
		if c.Session.DSN == "" {
			return errors.New("session backend postgres requires a dsn")
		}
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}

	if c.Playback.Volume < 0 || c.Playback.Volume > 1 {
		return fmt.Errorf("volume %.2f out of range 0..1", c.Playback.Volume)
	}
	return nil
}

// SampleInterval returns the progress polling cadence clamped to its bounds
func (c *Config) SampleInterval() time.Duration {
	ms := min(max(c.Playback.SampleIntervalMs, MinSampleIntervalMs), MaxSampleIntervalMs)
	return time.Duration(ms) * time.Millisecond
}

// CatalogTimeout returns the catalog request timeout
func (c *Config) CatalogTimeout() time.Duration {
	return time.Duration(c.Catalog.TimeoutMs) * time.Millisecond
}

// SessionPath returns the directory of the file session store
func (c *Config) SessionPath() string {
	if c.Session.Path != "" {
		return c.Session.Path
	}
	return c.DataDir
}

// LibraryPath returns the location of the persisted library index
func (c *Config) LibraryPath() string {
	return filepath.Join(c.DataDir, "library.json")
}

// GetConfigPath returns the default config file path
func GetConfigPath() string {
	// Check environment variable first
	if path := os.Getenv("STREAMER_CONFIG"); path != "" {
		return path
	}

	// Use XDG config directory if available
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "streamer", "config.json")
	}

	// Fall back to home directory
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}

	return filepath.Join(home, ".config", "streamer", "config.json")
}
