package mqttdisc

import (
	"reflect"
	"testing"

	"github.com/nerrad567/gray-logic-scribe/internal/infrastructure/config"
)

func discoveryTopic(parts ...string) string {
	topic := "homeassistant"
	for _, p := range parts {
		topic += "/" + p
	}
	return topic
}

func TestParseDiscovery(t *testing.T) {
	payload := []byte(`{
		"name": "Living Room Temperature",
		"unique_id": "sensor_living_temp",
		"device_class": "temperature",
		"unit_of_measurement": "°C",
		"device": {
			"identifiers": ["therm-01"],
			"name": "Thermostat",
			"manufacturer": "Tado",
			"suggested_area": "Living Room"
		}
	}`)

	cfg, ok := parseDiscovery(discoveryTopic("sensor", "living_temp", "config"), payload, "homeassistant")
	if !ok {
		t.Fatal("expected the message to parse")
	}
	if cfg.UniqueID != "sensor_living_temp" || cfg.DeviceClass != "temperature" {
		t.Errorf("unexpected payload: %+v", cfg)
	}
	if cfg.component != "sensor" || cfg.objectID != "living_temp" {
		t.Errorf("unexpected topic parse: component=%q object=%q", cfg.component, cfg.objectID)
	}
	if len(cfg.Device.Identifiers) != 1 || cfg.Device.Identifiers[0] != "therm-01" {
		t.Errorf("unexpected identifiers: %v", cfg.Device.Identifiers)
	}
}

func TestParseDiscovery_NodeIDTopic(t *testing.T) {
	cfg, ok := parseDiscovery(discoveryTopic("light", "node1", "ceiling", "config"), []byte(`{"name":"Ceiling"}`), "homeassistant")
	if !ok {
		t.Fatal("expected the message to parse")
	}
	if cfg.component != "light" || cfg.objectID != "ceiling" {
		t.Errorf("unexpected topic parse: component=%q object=%q", cfg.component, cfg.objectID)
	}
}

func TestParseDiscovery_StringIdentifier(t *testing.T) {
	payload := []byte(`{"name":"X","device":{"identifiers":"single-id"}}`)

	cfg, ok := parseDiscovery(discoveryTopic("switch", "x", "config"), payload, "homeassistant")
	if !ok {
		t.Fatal("expected the message to parse")
	}
	if len(cfg.Device.Identifiers) != 1 || cfg.Device.Identifiers[0] != "single-id" {
		t.Errorf("string identifier not accepted: %v", cfg.Device.Identifiers)
	}
}

func TestParseDiscovery_Skips(t *testing.T) {
	cases := map[string]struct {
		topic   string
		payload string
	}{
		"non-config topic":  {discoveryTopic("sensor", "temp", "state"), `{"name":"x"}`},
		"status topic":      {discoveryTopic("status"), "online"},
		"empty payload":     {discoveryTopic("sensor", "temp", "config"), ""},
		"malformed payload": {discoveryTopic("sensor", "temp", "config"), "not json"},
		"foreign prefix":    {"zigbee2mqtt/sensor/temp/config", `{"name":"x"}`},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, ok := parseDiscovery(tc.topic, []byte(tc.payload), "homeassistant"); ok {
				t.Errorf("expected %s to be skipped", name)
			}
		})
	}
}

func TestFold(t *testing.T) {
	configs := map[string]*discoveryPayload{}
	add := func(topic string, payload string) {
		t.Helper()
		cfg, ok := parseDiscovery(topic, []byte(payload), "homeassistant")
		if !ok {
			t.Fatalf("fixture payload for %s did not parse", topic)
		}
		configs[topic] = cfg
	}

	add(discoveryTopic("sensor", "living_temp", "config"), `{
		"name": "Living Room Temperature", "unique_id": "sensor_living_temp",
		"device": {"identifiers": ["therm-01"], "name": "Thermostat", "suggested_area": "Living Room"}
	}`)
	add(discoveryTopic("climate", "living_hvac", "config"), `{
		"name": "Living Room HVAC", "unique_id": "climate_living",
		"device": {"identifiers": ["therm-01"], "name": "Thermostat", "suggested_area": "Living Room"}
	}`)
	add(discoveryTopic("light", "kitchen_main", "config"), `{
		"name": "Kitchen Main Light", "unique_id": "light_kitchen",
		"device": {"identifiers": ["light-02"], "name": "Kitchen Light", "suggested_area": "Kitchen"}
	}`)
	add(discoveryTopic("sensor", "orphan", "config"), `{"name": "Orphan Sensor"}`)

	snapshot := fold(configs)

	if len(snapshot.Locations) != 2 {
		t.Fatalf("expected 2 locations, got %d", len(snapshot.Locations))
	}
	if len(snapshot.Devices) != 2 {
		t.Fatalf("expected 2 devices (one per identifier), got %d", len(snapshot.Devices))
	}
	if len(snapshot.Entities) != 4 {
		t.Fatalf("expected 4 entities, got %d", len(snapshot.Entities))
	}

	var therm int
	for _, d := range snapshot.Devices {
		if d.ID == "therm-01" {
			therm++
			if d.LocationID == "" {
				t.Error("thermostat should be assigned to its suggested area")
			}
		}
	}
	if therm != 1 {
		t.Errorf("device with two entities should fold once, got %d", therm)
	}

	for _, e := range snapshot.Entities {
		if e.ID == "sensor.orphan" && e.DeviceID != "" {
			t.Error("device-less entity should have no device reference")
		}
	}
}

func TestFold_Deterministic(t *testing.T) {
	build := func() map[string]*discoveryPayload {
		configs := map[string]*discoveryPayload{}
		for _, fixture := range []struct{ topic, payload string }{
			{discoveryTopic("sensor", "a", "config"), `{"unique_id":"a","device":{"identifiers":["d1"],"suggested_area":"One"}}`},
			{discoveryTopic("sensor", "b", "config"), `{"unique_id":"b","device":{"identifiers":["d2"],"suggested_area":"Two"}}`},
			{discoveryTopic("sensor", "c", "config"), `{"unique_id":"c","device":{"identifiers":["d3"],"suggested_area":"Three"}}`},
		} {
			cfg, _ := parseDiscovery(fixture.topic, []byte(fixture.payload), "homeassistant")
			configs[fixture.topic] = cfg
		}
		return configs
	}

	a, b := fold(build()), fold(build())
	for i := range a.Locations {
		if !reflect.DeepEqual(a.Locations[i], b.Locations[i]) {
			t.Fatal("fold order is not deterministic")
		}
	}
}

func TestNew_Validation(t *testing.T) {
	valid := config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{Host: "localhost", Port: 1883, ClientID: "test"},
		QoS:    1,
	}

	if _, err := New(valid, nil); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	noHost := valid
	noHost.Broker.Host = ""
	if _, err := New(noHost, nil); err == nil {
		t.Error("expected an error for missing host")
	}

	badQoS := valid
	badQoS.QoS = 3
	if _, err := New(badQoS, nil); err == nil {
		t.Error("expected an error for invalid QoS")
	}
}
