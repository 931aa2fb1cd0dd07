package render

import (
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"

	"github.com/nerrad567/gray-logic-scribe/internal/inventory"
)

var renderTime = time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

func TestPageTitle(t *testing.T) {
	got := PageTitle(inventory.Location{Name: "Living Room"})
	if got != "Living Room Overview" {
		t.Errorf("expected %q, got %q", "Living Room Overview", got)
	}
}

func TestPage_Golden(t *testing.T) {
	loc := inventory.Location{ID: "loc-living", Name: "Living Room"}
	devices := []inventory.Device{
		{ID: "dev-1", Name: "Ceiling Light", Manufacturer: "Lutron", Model: "RA2 Select", LocationID: "loc-living"},
		{ID: "dev-2", Name: "Thermostat", LocationID: "loc-living"},
	}
	entities := []inventory.Entity{
		{ID: "light.ceiling", FriendlyName: "Ceiling Light", DeviceClass: "light", DeviceID: "dev-1"},
		{ID: "sensor.temp", DeviceClass: "temperature", Unit: "°C", DeviceID: "dev-2"},
	}

	got := Page(loc, devices, entities, renderTime)

	g := goldie.New(t)
	g.Assert(t, "living_room", []byte(got))
}

func TestPage_Empty_Golden(t *testing.T) {
	loc := inventory.Location{ID: "loc-plant", Name: "Plant Room"}

	got := Page(loc, nil, nil, renderTime)

	g := goldie.New(t)
	g.Assert(t, "plant_room", []byte(got))
}

func TestPage_Deterministic(t *testing.T) {
	loc := inventory.Location{ID: "loc-living", Name: "Living Room"}
	devices := []inventory.Device{{ID: "dev-1", Name: "Ceiling Light"}}

	a := Page(loc, devices, nil, renderTime)
	b := Page(loc, devices, nil, renderTime)
	if a != b {
		t.Error("identical inputs rendered different pages")
	}
}

func TestPage_MissingFieldsUsePlaceholders(t *testing.T) {
	loc := inventory.Location{Name: "Garage"}
	devices := []inventory.Device{{ID: "dev-9", Name: "Door Opener"}}
	entities := []inventory.Entity{{ID: "cover.garage"}}

	got := Page(loc, devices, entities, renderTime)

	if !strings.Contains(got, "| Door Opener | Unknown | Unknown | Active |") {
		t.Error("missing manufacturer and model should render as Unknown")
	}
	if !strings.Contains(got, "| cover.garage | cover.garage | - | - |") {
		t.Error("entity without friendly name should fall back to its ID")
	}
}
