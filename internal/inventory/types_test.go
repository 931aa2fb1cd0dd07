package inventory

import "testing"

func testSnapshot() *Snapshot {
	return &Snapshot{
		Locations: []Location{
			{ID: "loc-living", Name: "Living Room"},
			{ID: "loc-kitchen", Name: "Kitchen"},
		},
		Devices: []Device{
			{ID: "dev-1", Name: "Ceiling Light", LocationID: "loc-living"},
			{ID: "dev-2", Name: "Thermostat", LocationID: "loc-living"},
			{ID: "dev-3", Name: "Hob Extractor", LocationID: "loc-kitchen"},
			{ID: "dev-4", Name: "Spare Dimmer"},
		},
		Entities: []Entity{
			{ID: "light.ceiling", DeviceID: "dev-1"},
			{ID: "sensor.temp", DeviceID: "dev-2"},
			{ID: "sensor.orphan"},
			{ID: "fan.extractor", DeviceID: "dev-3"},
		},
	}
}

func TestSnapshot_DevicesForLocation(t *testing.T) {
	s := testSnapshot()

	got := s.DevicesForLocation("loc-living")
	if len(got) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(got))
	}
	if got[0].ID != "dev-1" || got[1].ID != "dev-2" {
		t.Errorf("unexpected device order: %q, %q", got[0].ID, got[1].ID)
	}
}

func TestSnapshot_DevicesForLocation_ExcludesUnassigned(t *testing.T) {
	s := testSnapshot()

	for _, loc := range s.Locations {
		for _, d := range s.DevicesForLocation(loc.ID) {
			if d.ID == "dev-4" {
				t.Fatal("unassigned device appeared in a location rollup")
			}
		}
	}
}

func TestSnapshot_EntitiesForDevices(t *testing.T) {
	s := testSnapshot()

	got := s.EntitiesForDevices(s.DevicesForLocation("loc-living"))
	if len(got) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(got))
	}
	if got[0].ID != "light.ceiling" || got[1].ID != "sensor.temp" {
		t.Errorf("unexpected entities: %q, %q", got[0].ID, got[1].ID)
	}
}

func TestSnapshot_EntitiesForDevices_SkipsOrphans(t *testing.T) {
	s := testSnapshot()

	got := s.EntitiesForDevices(s.Devices)
	for _, e := range got {
		if e.ID == "sensor.orphan" {
			t.Fatal("device-less entity appeared in rollup")
		}
	}
}
