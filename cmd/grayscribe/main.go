// Gray Logic Scribe - Smarthome Documentation Exporter
//
// This is the main entry point for the Gray Logic Scribe application.
// Scribe reads a smarthome inventory (the Gray Logic Core database or an
// MQTT discovery prefix), groups locations into floors, and reconciles the
// result into a BookStack wiki as a shelf / book / chapter / page tree.
//
// It can run once and exit (-once), or stay up serving the REST API and
// re-exporting on a schedule.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/gray-logic-scribe/migrations"

	"github.com/nerrad567/gray-logic-scribe/internal/api"
	"github.com/nerrad567/gray-logic-scribe/internal/bookstack"
	"github.com/nerrad567/gray-logic-scribe/internal/classify"
	"github.com/nerrad567/gray-logic-scribe/internal/export"
	"github.com/nerrad567/gray-logic-scribe/internal/history"
	"github.com/nerrad567/gray-logic-scribe/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-scribe/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-scribe/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-scribe/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-scribe/internal/inventory"
	"github.com/nerrad567/gray-logic-scribe/internal/inventory/graylogic"
	"github.com/nerrad567/gray-logic-scribe/internal/inventory/mqttdisc"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	// This is the Go pattern for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	once := flag.Bool("once", false, "run a single export and exit")
	filter := flag.String("filter", "", "only export floors whose name contains this substring")
	flag.Parse()

	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Logic Scribe",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	runHistory := history.NewSQLiteRepository(db.DB)

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		// Set up InfluxDB error callback
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// BookStack client
	bsClient, err := bookstack.New(cfg.BookStack, log)
	if err != nil {
		return fmt.Errorf("creating BookStack client: %w", err)
	}
	if pingErr := bsClient.Ping(ctx); pingErr != nil {
		log.Warn("BookStack not reachable, exports will retry", "error", pingErr)
	} else {
		log.Info("BookStack reachable", "url", cfg.BookStack.BaseURL)
	}

	// Inventory provider
	provider, providerClose, err := newProvider(cfg, log)
	if err != nil {
		return fmt.Errorf("creating inventory provider: %w", err)
	}
	if providerClose != nil {
		defer providerClose()
	}
	log.Info("inventory provider ready", "source", cfg.Inventory.Source)

	// Floor classifier
	rules := make([]classify.Rule, 0, len(cfg.Export.Floors))
	for _, floor := range cfg.Export.Floors {
		rules = append(rules, classify.Rule{Branch: floor.Name, Keywords: floor.Keywords})
	}
	classifier := classify.New(rules, cfg.Export.FallbackFloor)

	// Exporter
	deps := export.Deps{
		Provider:        provider,
		Client:          bsClient,
		Classifier:      classifier,
		Logger:          log,
		ShelfName:       cfg.Export.ShelfName,
		BookName:        cfg.Export.BookName,
		BookDescription: cfg.Export.BookDescription,
		History:         runHistory,
	}
	if influxClient != nil {
		deps.Metrics = influxClient
	}
	exporter, err := export.New(deps)
	if err != nil {
		return fmt.Errorf("creating exporter: %w", err)
	}

	// Single-shot mode: run one export and report via exit code
	if *once {
		return runOnce(ctx, exporter, *filter, log)
	}

	// REST API (optional)
	if cfg.API.Enabled {
		server, apiErr := api.New(api.Deps{
			Config:   cfg.API,
			Logger:   log,
			Exporter: exporter,
			History:  runHistory,
			Version:  version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			log.Info("stopping API server")
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error stopping API server", "error", closeErr)
			}
		}()
		log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)
	} else {
		log.Info("API server disabled")
	}

	// Scheduled exports (optional)
	if cfg.Export.Interval > 0 {
		go scheduleExports(ctx, exporter, cfg.Export.Interval, *filter, log)
		log.Info("scheduled exports enabled", "interval_minutes", cfg.Export.Interval)
	} else {
		log.Info("scheduled exports disabled, exports run via API only")
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	log.Info("Gray Logic Scribe stopped")
	return nil
}

// newProvider builds the inventory provider selected by the configuration.
// The returned close function is nil when the provider holds no resources.
func newProvider(cfg *config.Config, log *logging.Logger) (inventory.Provider, func(), error) {
	switch cfg.Inventory.Source {
	case "graylogic":
		p, err := graylogic.New(cfg.Inventory.GrayLogic, log)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if closeErr := p.Close(); closeErr != nil {
				log.Error("error closing inventory database", "error", closeErr)
			}
		}
		return p, closeFn, nil
	case "mqtt":
		p, err := mqttdisc.New(cfg.Inventory.MQTT, log)
		if err != nil {
			return nil, nil, err
		}
		return p, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown inventory source %q", cfg.Inventory.Source)
	}
}

// runOnce performs a single export. A run that completes with partial
// failures still exits cleanly; only a fully failed run returns an error.
func runOnce(ctx context.Context, exporter *export.Exporter, filter string, log *logging.Logger) error {
	result, err := exporter.Run(ctx, export.Options{BranchFilter: filter})
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	if result.Status == export.StatusFailed {
		return fmt.Errorf("export failed: %s", result.Err)
	}
	log.Info("export finished",
		"status", result.Status,
		"pages_created", result.PagesCreated,
		"pages_updated", result.PagesUpdated,
		"failures", len(result.Failures),
	)
	return nil
}

// scheduleExports runs exports on a fixed interval until ctx is cancelled.
// An overlapping run (API-triggered, or a previous run still in flight) is
// skipped rather than queued.
func scheduleExports(ctx context.Context, exporter *export.Exporter, intervalMinutes int, filter string, log *logging.Logger) {
	ticker := time.NewTicker(time.Duration(intervalMinutes) * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := exporter.Run(ctx, export.Options{BranchFilter: filter})
			switch {
			case errors.Is(err, export.ErrRunInProgress):
				log.Info("scheduled export skipped, run already in progress")
			case err != nil:
				log.Error("scheduled export failed", "error", err)
			case result.Status == export.StatusFailed:
				log.Error("scheduled export failed", "error", result.Err)
			default:
				log.Info("scheduled export finished",
					"status", result.Status,
					"pages_created", result.PagesCreated,
					"pages_updated", result.PagesUpdated,
					"failures", len(result.Failures),
				)
			}
		}
	}
}

// getConfigPath returns the configuration file path.
// Uses GRAYSCRIBE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYSCRIBE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
