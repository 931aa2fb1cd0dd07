// Package graylogic reads the Gray Logic Core SQLite database as an
// inventory source. The database is opened read-only; Scribe documents
// the Core's world, it never mutates it.
//
// Rooms map to inventory locations. Devices map to inventory devices,
// and each device capability becomes one entity, matching how the Core
// models controllable units.
package graylogic

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nerrad567/gray-logic-scribe/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-scribe/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-scribe/internal/inventory"
)

// Provider reads inventory snapshots from a Gray Logic Core database.
type Provider struct {
	db     *sql.DB
	logger *logging.Logger
}

// New opens the Core database read-only.
//
// Parameters:
//   - cfg: Inventory source settings (database path)
//   - logger: Structured logger
//
// Returns:
//   - *Provider: Provider ready for snapshots
//   - error: If the path is empty or the database cannot be opened
func New(cfg config.GrayLogicInventoryConfig, logger *logging.Logger) (*Provider, error) {
	if cfg.DatabasePath == "" {
		return nil, fmt.Errorf("graylogic: database path is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000", cfg.DatabasePath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("graylogic: opening database: %w", err)
	}

	return &Provider{
		db:     db,
		logger: logger.With("component", "inventory", "source", "graylogic"),
	}, nil
}

// Close releases the database handle.
func (p *Provider) Close() error {
	return p.db.Close()
}

// Snapshot reads rooms and devices into an inventory snapshot.
//
// Returns:
//   - *inventory.Snapshot: Point-in-time inventory view
//   - error: inventory.ErrUnavailable (wrapped) if the database cannot
//     be read
func (p *Provider) Snapshot(ctx context.Context) (*inventory.Snapshot, error) {
	snapshot := &inventory.Snapshot{}

	if err := p.loadLocations(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("%w: %w", inventory.ErrUnavailable, err)
	}
	if err := p.loadDevices(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("%w: %w", inventory.ErrUnavailable, err)
	}

	p.logger.Debug("snapshot loaded",
		"locations", len(snapshot.Locations),
		"devices", len(snapshot.Devices),
		"entities", len(snapshot.Entities),
	)
	return snapshot, nil
}

func (p *Provider) loadLocations(ctx context.Context, snapshot *inventory.Snapshot) error {
	rows, err := p.db.QueryContext(ctx, "SELECT id, name FROM rooms ORDER BY sort_order, name")
	if err != nil {
		return fmt.Errorf("querying rooms: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var loc inventory.Location
		if err := rows.Scan(&loc.ID, &loc.Name); err != nil {
			return fmt.Errorf("scanning room: %w", err)
		}
		snapshot.Locations = append(snapshot.Locations, loc)
	}
	return rows.Err()
}

// deviceConfig is the subset of the Core's device config JSON that the
// export cares about.
type deviceConfig struct {
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
}

func (p *Provider) loadDevices(ctx context.Context, snapshot *inventory.Snapshot) error {
	rows, err := p.db.QueryContext(ctx,
		"SELECT id, name, room_id, config, capabilities FROM devices ORDER BY name")
	if err != nil {
		return fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var dev inventory.Device
		var roomID sql.NullString
		var configJSON, capsJSON sql.NullString

		if err := rows.Scan(&dev.ID, &dev.Name, &roomID, &configJSON, &capsJSON); err != nil {
			return fmt.Errorf("scanning device: %w", err)
		}
		dev.LocationID = roomID.String

		if configJSON.Valid && configJSON.String != "" {
			var cfg deviceConfig
			// Malformed config JSON degrades to empty fields rather than
			// failing the snapshot.
			if json.Unmarshal([]byte(configJSON.String), &cfg) == nil {
				dev.Manufacturer = cfg.Manufacturer
				dev.Model = cfg.Model
			}
		}
		snapshot.Devices = append(snapshot.Devices, dev)

		if capsJSON.Valid && capsJSON.String != "" {
			var caps []string
			if err := json.Unmarshal([]byte(capsJSON.String), &caps); err != nil {
				p.logger.Warn("skipping malformed capabilities",
					"device_id", dev.ID, "error", err)
				continue
			}
			for _, capability := range caps {
				snapshot.Entities = append(snapshot.Entities, inventory.Entity{
					ID:           capability + "." + dev.ID,
					FriendlyName: dev.Name + " " + capability,
					DeviceClass:  capability,
					DeviceID:     dev.ID,
				})
			}
		}
	}
	return rows.Err()
}
