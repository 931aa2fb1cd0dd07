package graylogic

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nerrad567/gray-logic-scribe/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-scribe/internal/inventory"
)

// setupCoreDB creates a Core-shaped database file and returns its path.
func setupCoreDB(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "graylogic.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	defer db.Close()

	schema := `
		CREATE TABLE rooms (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			sort_order INTEGER NOT NULL DEFAULT 0
		) STRICT;

		CREATE TABLE devices (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			room_id TEXT,
			config TEXT,
			capabilities TEXT
		) STRICT;

		INSERT INTO rooms (id, name, sort_order) VALUES
			('room-living', 'Living Room', 1),
			('room-kitchen', 'Kitchen', 2);

		INSERT INTO devices (id, name, room_id, config, capabilities) VALUES
			('dev-light', 'Ceiling Light', 'room-living',
			 '{"manufacturer":"Lutron","model":"RA2 Select"}', '["switch","dim"]'),
			('dev-therm', 'Thermostat', 'room-living', NULL, '["temperature"]'),
			('dev-spare', 'Spare Dimmer', NULL, NULL, NULL);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to seed test database: %v", err)
	}
	return path
}

func newTestProvider(t *testing.T, path string) *Provider {
	t.Helper()

	p, err := New(config.GrayLogicInventoryConfig{DatabasePath: path}, nil)
	if err != nil {
		t.Fatalf("failed to build provider: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestProvider_Snapshot(t *testing.T) {
	p := newTestProvider(t, setupCoreDB(t))

	snapshot, err := p.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}

	if len(snapshot.Locations) != 2 {
		t.Fatalf("expected 2 locations, got %d", len(snapshot.Locations))
	}
	if snapshot.Locations[0].Name != "Living Room" {
		t.Errorf("expected sort_order ordering, got %q first", snapshot.Locations[0].Name)
	}
	if len(snapshot.Devices) != 3 {
		t.Fatalf("expected 3 devices, got %d", len(snapshot.Devices))
	}
}

func TestProvider_Snapshot_DeviceConfig(t *testing.T) {
	p := newTestProvider(t, setupCoreDB(t))

	snapshot, err := p.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}

	var light *inventory.Device
	for i := range snapshot.Devices {
		if snapshot.Devices[i].ID == "dev-light" {
			light = &snapshot.Devices[i]
		}
	}
	if light == nil {
		t.Fatal("dev-light missing from snapshot")
	}
	if light.Manufacturer != "Lutron" || light.Model != "RA2 Select" {
		t.Errorf("config JSON not mapped: %+v", light)
	}
	if light.LocationID != "room-living" {
		t.Errorf("expected room assignment, got %q", light.LocationID)
	}
}

func TestProvider_Snapshot_CapabilitiesBecomeEntities(t *testing.T) {
	p := newTestProvider(t, setupCoreDB(t))

	snapshot, err := p.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}

	entities := snapshot.EntitiesForDevices(snapshot.Devices)
	if len(entities) != 3 {
		t.Fatalf("expected 3 entities, got %d", len(entities))
	}

	var found bool
	for _, e := range entities {
		if e.ID == "dim.dev-light" {
			found = true
			if e.DeviceClass != "dim" || e.DeviceID != "dev-light" {
				t.Errorf("unexpected entity: %+v", e)
			}
		}
	}
	if !found {
		t.Error("expected a dim.dev-light entity")
	}
}

func TestProvider_Snapshot_MissingDatabaseIsUnavailable(t *testing.T) {
	p := newTestProvider(t, filepath.Join(t.TempDir(), "missing.db"))

	_, err := p.Snapshot(context.Background())
	if !errors.Is(err, inventory.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestNew_RequiresPath(t *testing.T) {
	if _, err := New(config.GrayLogicInventoryConfig{}, nil); err == nil {
		t.Fatal("expected an error for empty path")
	}
}
