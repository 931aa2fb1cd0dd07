package config

import (
	"os"
	"path/filepath"
	"testing"
)

// validBase returns a minimal config that passes validation, for tests
// that mutate a single field.
func validBase() *Config {
	cfg := defaultConfig()
	cfg.BookStack.BaseURL = "https://wiki.example.com"
	cfg.BookStack.TokenID = "token-id"
	cfg.BookStack.TokenSecret = "token-secret"
	return cfg
}

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	content := `
bookstack:
  base_url: "https://wiki.example.com"
  token_id: "abc123"
  token_secret: "def456"
  timeout: 20
export:
  shelf_name: "Home Docs"
  book_name: "Smarthome"
  floors:
    - name: "Ground Floor"
      keywords: ["living", "kitchen"]
  fallback_floor: "Other"
inventory:
  source: "graylogic"
  graylogic:
    database_path: "/tmp/core.db"
database:
  path: "/tmp/scribe.db"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BookStack.BaseURL != "https://wiki.example.com" {
		t.Errorf("BookStack.BaseURL = %q, want %q", cfg.BookStack.BaseURL, "https://wiki.example.com")
	}

	if cfg.BookStack.Timeout != 20 {
		t.Errorf("BookStack.Timeout = %d, want 20", cfg.BookStack.Timeout)
	}

	if cfg.Export.BookName != "Smarthome" {
		t.Errorf("Export.BookName = %q, want %q", cfg.Export.BookName, "Smarthome")
	}

	if len(cfg.Export.Floors) != 1 || cfg.Export.Floors[0].Name != "Ground Floor" {
		t.Errorf("Export.Floors = %+v, want single Ground Floor rule", cfg.Export.Floors)
	}

	// Defaults survive a partial file.
	if cfg.BookStack.MaxRetries != 3 {
		t.Errorf("BookStack.MaxRetries = %d, want default 3", cfg.BookStack.MaxRetries)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want default %q", cfg.Logging.Level, "info")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
bookstack:
  base_url: ""
database:
  path: "/tmp/scribe.db"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty bookstack.base_url, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	content := `
bookstack:
  base_url: "https://wiki.example.com"
  token_id: "file-id"
  token_secret: "file-secret"
database:
  path: "/tmp/scribe.db"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	t.Setenv("GRAYSCRIBE_BOOKSTACK_TOKEN_SECRET", "env-secret")
	t.Setenv("GRAYSCRIBE_DATABASE_PATH", "/tmp/override.db")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BookStack.TokenSecret != "env-secret" {
		t.Errorf("BookStack.TokenSecret = %q, want env override %q", cfg.BookStack.TokenSecret, "env-secret")
	}
	if cfg.Database.Path != "/tmp/override.db" {
		t.Errorf("Database.Path = %q, want env override %q", cfg.Database.Path, "/tmp/override.db")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing base URL",
			mutate:  func(c *Config) { c.BookStack.BaseURL = "" },
			wantErr: true,
		},
		{
			name:    "base URL without scheme",
			mutate:  func(c *Config) { c.BookStack.BaseURL = "wiki.example.com" },
			wantErr: true,
		},
		{
			name:    "missing token ID",
			mutate:  func(c *Config) { c.BookStack.TokenID = "" },
			wantErr: true,
		},
		{
			name:    "missing token secret",
			mutate:  func(c *Config) { c.BookStack.TokenSecret = "" },
			wantErr: true,
		},
		{
			name:    "negative max retries",
			mutate:  func(c *Config) { c.BookStack.MaxRetries = -1 },
			wantErr: true,
		},
		{
			name:    "missing shelf name",
			mutate:  func(c *Config) { c.Export.ShelfName = "" },
			wantErr: true,
		},
		{
			name:    "missing fallback floor",
			mutate:  func(c *Config) { c.Export.FallbackFloor = "" },
			wantErr: true,
		},
		{
			name:    "floor rule without keywords",
			mutate:  func(c *Config) { c.Export.Floors = []FloorRule{{Name: "Ground Floor"}} },
			wantErr: true,
		},
		{
			name:    "unknown inventory source",
			mutate:  func(c *Config) { c.Inventory.Source = "csv" },
			wantErr: true,
		},
		{
			name: "invalid MQTT QoS",
			mutate: func(c *Config) {
				c.Inventory.Source = "mqtt"
				c.Inventory.MQTT.QoS = 3
			},
			wantErr: true,
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "invalid port low",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid port high",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: true,
		},
		{
			name: "disabled API skips port check",
			mutate: func(c *Config) {
				c.API.Enabled = false
				c.API.Port = 0
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBase()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
