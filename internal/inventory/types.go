package inventory

import "context"

// Location is a physical area in the source inventory (a room).
type Location struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
}

// Device is a physical device assigned to a location. A device with an
// empty LocationID is unassigned and excluded from export.
type Device struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Model        string `json:"model,omitempty"`
	LocationID   string `json:"location_id,omitempty"`
}

// Entity is a logical capability or sensor exposed by a device. An entity
// with an empty DeviceID has no owning device and is excluded from
// location rollups.
type Entity struct {
	ID           string `json:"id"`
	FriendlyName string `json:"friendly_name,omitempty"`
	DeviceClass  string `json:"device_class,omitempty"`
	Unit         string `json:"unit,omitempty"`
	DeviceID     string `json:"device_id,omitempty"`
}

// Snapshot is one point-in-time view of the inventory. It is immutable
// once returned; a run never observes a mutating inventory.
type Snapshot struct {
	Locations []Location `json:"locations"`
	Devices   []Device   `json:"devices"`
	Entities  []Entity   `json:"entities"`
}

// Provider is the boundary to whatever holds the source inventory.
//
// Implementations must return ErrUnavailable (possibly wrapped) when the
// source cannot be reached; the exporter treats that as run-fatal.
type Provider interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// DevicesForLocation returns the devices assigned to a location, in
// snapshot order.
func (s *Snapshot) DevicesForLocation(locationID string) []Device {
	var out []Device
	for _, d := range s.Devices {
		if d.LocationID == locationID && d.LocationID != "" {
			out = append(out, d)
		}
	}
	return out
}

// EntitiesForDevices returns the entities owned by any of the given
// devices, in snapshot order. Device-less entities never appear.
func (s *Snapshot) EntitiesForDevices(devices []Device) []Entity {
	ids := make(map[string]bool, len(devices))
	for _, d := range devices {
		ids[d.ID] = true
	}
	var out []Entity
	for _, e := range s.Entities {
		if e.DeviceID != "" && ids[e.DeviceID] {
			out = append(out, e)
		}
	}
	return out
}
