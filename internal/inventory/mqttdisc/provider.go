// Package mqttdisc builds inventory snapshots from Home Assistant MQTT
// discovery announcements.
//
// Home Assistant publishes one retained config message per entity under
// {prefix}/{component}/[{node_id}/]{object_id}/config. A snapshot
// subscribes to the whole prefix, collects retained messages for a
// settle window, and folds them into locations (from suggested_area),
// devices, and entities.
package mqttdisc

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-scribe/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-scribe/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-scribe/internal/inventory"
)

const (
	defaultConnectTimeout    = 10 * time.Second
	defaultSettleWindow      = 5 * time.Second
	defaultDisconnectQuiesce = 1000 // milliseconds
	maxQoS                   = 2
)

// Provider collects Home Assistant discovery data over MQTT.
//
// Each Snapshot call opens a fresh connection, subscribes, waits for
// the settle window, and disconnects. Discovery configs are retained on
// the broker, so a fresh subscription sees the full inventory.
type Provider struct {
	cfg    config.MQTTConfig
	logger *logging.Logger
}

// New validates the broker settings and builds a Provider.
func New(cfg config.MQTTConfig, logger *logging.Logger) (*Provider, error) {
	if cfg.Broker.Host == "" {
		return nil, fmt.Errorf("mqttdisc: broker host is required")
	}
	if cfg.QoS < 0 || cfg.QoS > maxQoS {
		return nil, fmt.Errorf("mqttdisc: qos must be 0-2, got %d", cfg.QoS)
	}
	if cfg.DiscoveryPrefix == "" {
		cfg.DiscoveryPrefix = "homeassistant"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Provider{
		cfg:    cfg,
		logger: logger.With("component", "inventory", "source", "mqtt"),
	}, nil
}

// Snapshot connects to the broker and folds retained discovery configs
// into an inventory snapshot.
//
// Returns:
//   - *inventory.Snapshot: Point-in-time inventory view
//   - error: inventory.ErrUnavailable (wrapped) if the broker cannot be
//     reached, or ctx.Err() on cancellation
func (p *Provider) Snapshot(ctx context.Context) (*inventory.Snapshot, error) {
	client := pahomqtt.NewClient(p.buildClientOptions())

	token := client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: broker connect timeout", inventory.ErrUnavailable)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: broker connect: %w", inventory.ErrUnavailable, err)
	}
	defer client.Disconnect(defaultDisconnectQuiesce)

	var mu sync.Mutex
	configs := make(map[string]*discoveryPayload)

	topic := p.cfg.DiscoveryPrefix + "/#"
	handler := func(_ pahomqtt.Client, msg pahomqtt.Message) {
		payload, ok := parseDiscovery(msg.Topic(), msg.Payload(), p.cfg.DiscoveryPrefix)
		if !ok {
			return
		}
		mu.Lock()
		configs[msg.Topic()] = payload
		mu.Unlock()
	}

	sub := client.Subscribe(topic, byte(p.cfg.QoS), handler) //nolint:gosec // QoS validated in New
	if !sub.WaitTimeout(defaultConnectTimeout) || sub.Error() != nil {
		return nil, fmt.Errorf("%w: subscribe %s failed", inventory.ErrUnavailable, topic)
	}

	settle := time.Duration(p.cfg.SettleSeconds) * time.Second
	if settle <= 0 {
		settle = defaultSettleWindow
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(settle):
	}

	mu.Lock()
	defer mu.Unlock()
	snapshot := fold(configs)

	p.logger.Debug("snapshot folded",
		"configs", len(configs),
		"locations", len(snapshot.Locations),
		"devices", len(snapshot.Devices),
		"entities", len(snapshot.Entities),
	)
	return snapshot, nil
}

func (p *Provider) buildClientOptions() *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if p.cfg.Broker.TLS {
		scheme = "ssl"
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, p.cfg.Broker.Host, p.cfg.Broker.Port))
	opts.SetClientID(p.cfg.Broker.ClientID)

	if p.cfg.Auth.Username != "" {
		opts.SetUsername(p.cfg.Auth.Username)
		opts.SetPassword(p.cfg.Auth.Password)
	}

	// One-shot snapshot connection: no reconnect, fresh session so all
	// retained messages are redelivered.
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(defaultConnectTimeout)

	if p.cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	return opts
}

// identifiers accepts the device identifiers field, which Home
// Assistant allows as either a string or a list.
type identifiers []string

func (ids *identifiers) UnmarshalJSON(data []byte) error {
	var single string
	if json.Unmarshal(data, &single) == nil {
		*ids = identifiers{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*ids = identifiers(many)
	return nil
}

// discoveryPayload is the subset of a Home Assistant discovery config
// the inventory needs.
type discoveryPayload struct {
	Name        string `json:"name"`
	UniqueID    string `json:"unique_id"`
	DeviceClass string `json:"device_class"`
	Unit        string `json:"unit_of_measurement"`
	Device      struct {
		Identifiers   identifiers `json:"identifiers"`
		Name          string      `json:"name"`
		Manufacturer  string      `json:"manufacturer"`
		Model         string      `json:"model"`
		SuggestedArea string      `json:"suggested_area"`
	} `json:"device"`

	component string
	objectID  string
}

// parseDiscovery decodes one discovery message. Non-config topics and
// malformed payloads are skipped.
func parseDiscovery(topic string, payload []byte, prefix string) (*discoveryPayload, bool) {
	rest, ok := strings.CutPrefix(topic, prefix+"/")
	if !ok {
		return nil, false
	}
	parts := strings.Split(rest, "/")
	// {component}/{object_id}/config or {component}/{node_id}/{object_id}/config
	if len(parts) < 3 || len(parts) > 4 || parts[len(parts)-1] != "config" {
		return nil, false
	}
	if len(payload) == 0 {
		// Retained empty payload deletes a discovery entry.
		return nil, false
	}

	var cfg discoveryPayload
	if err := json.Unmarshal(payload, &cfg); err != nil {
		return nil, false
	}
	cfg.component = parts[0]
	cfg.objectID = parts[len(parts)-2]
	return &cfg, true
}

// fold merges collected discovery configs into a snapshot. Output order
// is deterministic regardless of message arrival order.
func fold(configs map[string]*discoveryPayload) *inventory.Snapshot {
	topics := make([]string, 0, len(configs))
	for topic := range configs {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	snapshot := &inventory.Snapshot{}
	locationIDs := make(map[string]string) // area name -> location ID
	seenDevices := make(map[string]bool)

	for _, topic := range topics {
		cfg := configs[topic]

		var locationID string
		if area := cfg.Device.SuggestedArea; area != "" {
			id, ok := locationIDs[area]
			if !ok {
				id = "area-" + slugify(area)
				locationIDs[area] = id
				snapshot.Locations = append(snapshot.Locations, inventory.Location{
					ID:   id,
					Name: area,
				})
			}
			locationID = id
		}

		var deviceID string
		if len(cfg.Device.Identifiers) > 0 {
			deviceID = cfg.Device.Identifiers[0]
			if !seenDevices[deviceID] {
				seenDevices[deviceID] = true
				name := cfg.Device.Name
				if name == "" {
					name = deviceID
				}
				snapshot.Devices = append(snapshot.Devices, inventory.Device{
					ID:           deviceID,
					Name:         name,
					Manufacturer: cfg.Device.Manufacturer,
					Model:        cfg.Device.Model,
					LocationID:   locationID,
				})
			}
		}

		entityID := cfg.UniqueID
		if entityID == "" {
			entityID = cfg.component + "." + cfg.objectID
		}
		snapshot.Entities = append(snapshot.Entities, inventory.Entity{
			ID:           entityID,
			FriendlyName: cfg.Name,
			DeviceClass:  cfg.DeviceClass,
			Unit:         cfg.Unit,
			DeviceID:     deviceID,
		})
	}
	return snapshot
}

func slugify(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}
