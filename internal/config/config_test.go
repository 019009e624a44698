package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "none.json"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Catalog.Country != "US" || cfg.Catalog.MaxTracks != 10 {
		t.Errorf("catalog defaults = %+v", cfg.Catalog)
	}
	if cfg.Playback.SampleIntervalMs != 80 || cfg.Session.Backend != BackendFile {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestLoadConfig_JSONOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"catalog":{"country":"DE"},"library":{"music_directories":["/music"]}}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Catalog.Country != "DE" {
		t.Errorf("Country = %s, want DE", cfg.Catalog.Country)
	}
	if cfg.Catalog.BaseURL != "https://api.spotify.com" {
		t.Errorf("unset field lost its default: %s", cfg.Catalog.BaseURL)
	}
	if len(cfg.Library.MusicDirectories) != 1 || cfg.Library.Workers != 4 {
		t.Errorf("library = %+v", cfg.Library)
	}
}

func TestLoadConfig_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
catalog:
  country: SE
  max_tracks: 5
playback:
  sample_interval_ms: 90
session:
  backend: postgres
  dsn: postgres://localhost/streamer
logging:
  level: debug
  json: true
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Catalog.Country != "SE" || cfg.Catalog.MaxTracks != 5 {
		t.Errorf("catalog = %+v", cfg.Catalog)
	}
	if cfg.Session.Backend != BackendPostgres || cfg.Session.DSN == "" {
		t.Errorf("session = %+v", cfg.Session)
	}
	if !cfg.Logging.JSON || cfg.Logging.Level != "debug" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{broken"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("LoadConfig() should fail on malformed JSON")
	}
}

func TestLoadOrCreate(t *testing.T) {
	for _, name := range []string{"config.json", "config.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			t.Setenv("SPOTIFY_TOKEN", "from-env")

			cfg, err := LoadOrCreate(path)
			if err != nil {
				t.Fatalf("LoadOrCreate() error = %v", err)
			}
			if cfg.Catalog.Token != "from-env" {
				t.Errorf("env override not applied: %q", cfg.Catalog.Token)
			}

			reloaded, err := LoadConfig(path)
			if err != nil {
				t.Fatalf("reloading created file: %v", err)
			}
			if reloaded.Catalog.Token != "" {
				t.Error("environment secret was written to disk")
			}
			if reloaded.Catalog.MaxTracks != 10 {
				t.Errorf("created file lost defaults: %+v", reloaded.Catalog)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("STREAMER_DATA_DIR", "/var/lib/streamer")
	t.Setenv("SPOTIFY_COUNTRY", "GB")
	t.Setenv("STREAMER_SESSION_DSN", "postgres://db/streamer")
	t.Setenv("STREAMER_LOG_LEVEL", "warn")

	cfg := GetDefaultConfig()
	cfg.ApplyEnv()

	if cfg.DataDir != "/var/lib/streamer" {
		t.Errorf("DataDir = %s", cfg.DataDir)
	}
	if cfg.Catalog.Country != "GB" {
		t.Errorf("Country = %s", cfg.Catalog.Country)
	}
	if cfg.Session.Backend != BackendPostgres || cfg.Session.DSN != "postgres://db/streamer" {
		t.Errorf("session = %+v", cfg.Session)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Level = %s", cfg.Logging.Level)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("STREAMER_TEST_DOTENV=loaded\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STREAMER_TEST_DOTENV", "")
	os.Unsetenv("STREAMER_TEST_DOTENV")

	if err := LoadDotEnv(envFile, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("STREAMER_TEST_DOTENV"); got != "loaded" {
		t.Errorf("STREAMER_TEST_DOTENV = %q, want loaded", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"postgres without dsn", func(c *Config) { c.Session.Backend = BackendPostgres }, true},
		{"postgres with dsn", func(c *Config) {
			c.Session.Backend = BackendPostgres
			c.Session.DSN = "postgres://x"
		}, false},
		{"unknown backend", func(c *Config) { c.Session.Backend = "redis" }, true},
		{"unknown level", func(c *Config) { c.Logging.Level = "loud" }, true},
		{"volume too high", func(c *Config) { c.Playback.Volume = 1.5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSampleInterval(t *testing.T) {
	tests := []struct {
		ms   int
		want time.Duration
	}{
		{80, 80 * time.Millisecond},
		{10, 70 * time.Millisecond},
		{0, 70 * time.Millisecond},
		{500, 100 * time.Millisecond},
	}

	for _, tt := range tests {
		cfg := GetDefaultConfig()
		cfg.Playback.SampleIntervalMs = tt.ms
		if got := cfg.SampleInterval(); got != tt.want {
			t.Errorf("SampleInterval(%d) = %v, want %v", tt.ms, got, tt.want)
		}
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("STREAMER_CONFIG", "/etc/streamer.yaml")
	if got := GetConfigPath(); got != "/etc/streamer.yaml" {
		t.Errorf("GetConfigPath() = %s", got)
	}

	t.Setenv("STREAMER_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := GetConfigPath(); got != filepath.Join("/xdg", "streamer", "config.json") {
		t.Errorf("GetConfigPath() = %s", got)
	}
}
