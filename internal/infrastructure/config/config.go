package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Gray Logic Scribe.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	BookStack BookStackConfig `yaml:"bookstack"`
	Export    ExportConfig    `yaml:"export"`
	Inventory InventoryConfig `yaml:"inventory"`
	Database  DatabaseConfig  `yaml:"database"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	API       APIConfig       `yaml:"api"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// BookStackConfig contains connection settings for the target BookStack instance.
type BookStackConfig struct {
	// BaseURL is the root of the BookStack installation (e.g., "https://wiki.example.com").
	// The client appends /api/... paths to it.
	BaseURL string `yaml:"base_url"`

	// TokenID and TokenSecret form the API token pair created under
	// BookStack's "API Tokens" user settings.
	TokenID     string `yaml:"token_id"`
	TokenSecret string `yaml:"token_secret"`

	// Timeout is the per-request timeout in seconds.
	Timeout int `yaml:"timeout"`

	// MaxRetries is the number of retries after the initial attempt for
	// transient failures (rate limits, 5xx, network errors).
	MaxRetries int `yaml:"max_retries"`

	// RequestInterval is the minimum gap between requests in milliseconds.
	// BookStack rate-limits aggressively on shared hosting.
	RequestInterval int `yaml:"request_interval"`

	// NestedChapterRoutes selects the chapter-create route shape.
	// False (default): POST /api/chapters with book_id in the body, the
	// documented BookStack contract. True: POST /api/books/{id}/chapters
	// for deployments that expose the nested route instead.
	NestedChapterRoutes bool `yaml:"nested_chapter_routes"`
}

// ExportConfig controls what gets exported and where it lands in BookStack.
type ExportConfig struct {
	// ShelfName is the shelf the destination book is attached to.
	ShelfName string `yaml:"shelf_name"`

	// BookName is the book that receives one chapter per floor.
	BookName string `yaml:"book_name"`

	// BookDescription is used only when the book has to be created.
	BookDescription string `yaml:"book_description"`

	// Floors is the ordered list of classification rules. Order matters:
	// the first rule whose keywords match a location name wins.
	Floors []FloorRule `yaml:"floors"`

	// FallbackFloor receives locations that match no rule.
	FallbackFloor string `yaml:"fallback_floor"`

	// Interval is the gap between scheduled runs in minutes when running
	// in serve mode. 0 disables scheduled runs (API-triggered only).
	Interval int `yaml:"interval"`
}

// FloorRule maps location-name keywords to a floor chapter.
type FloorRule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// InventoryConfig selects and configures the inventory source.
type InventoryConfig struct {
	// Source is the provider type: "graylogic" (read the Core SQLite
	// database directly) or "mqtt" (Home Assistant MQTT discovery).
	Source string `yaml:"source"`

	GrayLogic GrayLogicInventoryConfig `yaml:"graylogic"`
	MQTT      MQTTConfig               `yaml:"mqtt"`
}

// GrayLogicInventoryConfig contains settings for reading the Gray Logic
// Core database as the inventory source.
type GrayLogicInventoryConfig struct {
	// DatabasePath is the path to the Core's SQLite database file.
	// Opened read-only; Scribe never writes to the Core database.
	DatabasePath string `yaml:"database_path"`
}

// MQTTConfig contains MQTT broker connection settings for the discovery
// inventory source.
type MQTTConfig struct {
	Broker MQTTBrokerConfig `yaml:"broker"`
	Auth   MQTTAuthConfig   `yaml:"auth"`
	QoS    int              `yaml:"qos"`

	// DiscoveryPrefix is the Home Assistant discovery topic prefix.
	DiscoveryPrefix string `yaml:"discovery_prefix"`

	// SettleSeconds is how long to collect retained discovery messages
	// before the snapshot is considered complete.
	SettleSeconds int `yaml:"settle_seconds"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// DatabaseConfig contains settings for Scribe's own SQLite database,
// which records export run history.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings for the optional
// run-metrics sink.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`

	// AuthToken protects the export trigger/status endpoints. Requests
	// must carry "Authorization: Bearer <token>". Empty disables auth,
	// which is only sensible on a trusted network.
	AuthToken string `yaml:"auth_token"`

	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from the specified YAML file.
//
// It applies values in layers: built-in defaults, then the YAML file,
// then environment variable overrides, then validation.
//
// Environment variables follow the pattern GRAYSCRIBE_SECTION_KEY.
// For example: GRAYSCRIBE_BOOKSTACK_TOKEN_SECRET, GRAYSCRIBE_API_PORT.
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		BookStack: BookStackConfig{
			Timeout:         30,
			MaxRetries:      3,
			RequestInterval: 500,
		},
		Export: ExportConfig{
			ShelfName:       "Home Assistant Documentation",
			BookName:        "Automated Smarthome Documentation",
			BookDescription: "Device and entity documentation organised by physical areas",
			Floors: []FloorRule{
				{Name: "Ground Floor", Keywords: []string{"living", "kitchen", "garage", "entrance", "dining"}},
				{Name: "First Floor", Keywords: []string{"bedroom", "bathroom", "office", "guest"}},
				{Name: "Basement", Keywords: []string{"basement", "cellar"}},
				{Name: "Attic", Keywords: []string{"attic", "loft"}},
				{Name: "Outside", Keywords: []string{"garden", "patio", "balcony", "driveway", "outside"}},
			},
			FallbackFloor: "Other",
		},
		Inventory: InventoryConfig{
			Source: "graylogic",
			GrayLogic: GrayLogicInventoryConfig{
				DatabasePath: "./data/graylogic.db",
			},
			MQTT: MQTTConfig{
				Broker: MQTTBrokerConfig{
					Host:     "localhost",
					Port:     1883,
					ClientID: "grayscribe",
				},
				QoS:             1,
				DiscoveryPrefix: "homeassistant",
				SettleSeconds:   5,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/grayscribe.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 120,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GRAYSCRIBE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// BookStack, as token values especially belong in the environment,
	// not the config file.
	if v := os.Getenv("GRAYSCRIBE_BOOKSTACK_URL"); v != "" {
		cfg.BookStack.BaseURL = v
	}
	if v := os.Getenv("GRAYSCRIBE_BOOKSTACK_TOKEN_ID"); v != "" {
		cfg.BookStack.TokenID = v
	}
	if v := os.Getenv("GRAYSCRIBE_BOOKSTACK_TOKEN_SECRET"); v != "" {
		cfg.BookStack.TokenSecret = v
	}

	// Inventory
	if v := os.Getenv("GRAYSCRIBE_INVENTORY_SOURCE"); v != "" {
		cfg.Inventory.Source = v
	}
	if v := os.Getenv("GRAYSCRIBE_GRAYLOGIC_DATABASE_PATH"); v != "" {
		cfg.Inventory.GrayLogic.DatabasePath = v
	}
	if v := os.Getenv("GRAYSCRIBE_MQTT_HOST"); v != "" {
		cfg.Inventory.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GRAYSCRIBE_MQTT_USERNAME"); v != "" {
		cfg.Inventory.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRAYSCRIBE_MQTT_PASSWORD"); v != "" {
		cfg.Inventory.MQTT.Auth.Password = v
	}

	// Database
	if v := os.Getenv("GRAYSCRIBE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// InfluxDB
	if v := os.Getenv("GRAYSCRIBE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// API
	if v := os.Getenv("GRAYSCRIBE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("GRAYSCRIBE_API_TOKEN"); v != "" {
		cfg.API.AuthToken = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// BookStack validation: the exporter cannot do anything useful
	// without a reachable, authenticated instance.
	if c.BookStack.BaseURL == "" {
		errs = append(errs, "bookstack.base_url is required")
	} else if !strings.HasPrefix(c.BookStack.BaseURL, "http://") && !strings.HasPrefix(c.BookStack.BaseURL, "https://") {
		errs = append(errs, "bookstack.base_url must start with http:// or https://")
	}
	if c.BookStack.TokenID == "" {
		errs = append(errs, "bookstack.token_id is required (set GRAYSCRIBE_BOOKSTACK_TOKEN_ID environment variable)")
	}
	if c.BookStack.TokenSecret == "" {
		errs = append(errs, "bookstack.token_secret is required (set GRAYSCRIBE_BOOKSTACK_TOKEN_SECRET environment variable)")
	}
	if c.BookStack.MaxRetries < 0 {
		errs = append(errs, "bookstack.max_retries must not be negative")
	}

	// Export validation
	if c.Export.ShelfName == "" {
		errs = append(errs, "export.shelf_name is required")
	}
	if c.Export.BookName == "" {
		errs = append(errs, "export.book_name is required")
	}
	if c.Export.FallbackFloor == "" {
		errs = append(errs, "export.fallback_floor is required")
	}
	for i, rule := range c.Export.Floors {
		if rule.Name == "" {
			errs = append(errs, fmt.Sprintf("export.floors[%d].name is required", i))
		}
		if len(rule.Keywords) == 0 {
			errs = append(errs, fmt.Sprintf("export.floors[%d].keywords must not be empty", i))
		}
	}

	// Inventory validation
	switch c.Inventory.Source {
	case "graylogic":
		if c.Inventory.GrayLogic.DatabasePath == "" {
			errs = append(errs, "inventory.graylogic.database_path is required")
		}
	case "mqtt":
		if c.Inventory.MQTT.QoS < 0 || c.Inventory.MQTT.QoS > 2 {
			errs = append(errs, "inventory.mqtt.qos must be 0, 1, or 2")
		}
	default:
		errs = append(errs, fmt.Sprintf("inventory.source must be \"graylogic\" or \"mqtt\", got %q", c.Inventory.Source))
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// API validation
	if c.API.Enabled {
		if c.API.Port < 1 || c.API.Port > 65535 {
			errs = append(errs, "api.port must be between 1 and 65535")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// RequestTimeout returns the BookStack per-request timeout as a Duration.
func (c *BookStackConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// MinRequestInterval returns the minimum gap between BookStack requests.
func (c *BookStackConfig) MinRequestInterval() time.Duration {
	return time.Duration(c.RequestInterval) * time.Millisecond
}

// SettleWindow returns the MQTT discovery collection window as a Duration.
func (c *MQTTConfig) SettleWindow() time.Duration {
	return time.Duration(c.SettleSeconds) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
