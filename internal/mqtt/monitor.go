// Package mqtt watches device state topics on an MQTT broker.
package mqtt

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// Config holds the monitor's broker connection.
type Config struct {
	Broker      string
	Username    string
	Password    string
	TopicPrefix string
}

// Device is the last state seen from one device.
type Device struct {
	Name     string
	Topic    string
	Payload  string
	LastSeen time.Time
}

// Monitor subscribes to <prefix>/+/state and keeps the last payload per
// device. Snapshots may be read from any goroutine.
type Monitor struct {
	client pahomqtt.Client
	prefix string
	logger *slog.Logger

	mu        sync.Mutex
	devices   map[string]*Device
	connected bool
	now       func() time.Time
}

// NewMonitor creates a monitor. It does not connect until Start.
func NewMonitor(cfg Config, logger *slog.Logger) *Monitor {
	m := &Monitor{
		prefix:  strings.TrimSuffix(cfg.TopicPrefix, "/"),
		logger:  logger.With("component", "mqtt"),
		devices: make(map[string]*Device),
		now:     time.Now,
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID("home-app-" + uuid.NewString()).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c pahomqtt.Client) {
			m.setConnected(true)
			m.logger.Info("MQTT connected")
			m.subscribe(c)
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			m.setConnected(false)
			m.logger.Warn("MQTT connection lost", "err", err)
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	m.client = pahomqtt.NewClient(opts)
	return m
}

// Start connects in the background. With connect retry enabled paho keeps
// trying until Stop, so a broker that starts later is picked up.
func (m *Monitor) Start() error {
	token := m.client.Connect()
	if token.WaitTimeout(100*time.Millisecond) && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}
	m.logger.Info("MQTT monitor started", "prefix", m.prefix)
	return nil
}

// Stop disconnects.
func (m *Monitor) Stop() {
	m.client.Disconnect(250)
	m.setConnected(false)
	m.logger.Info("MQTT monitor stopped")
}

// Connected reports whether the client is connected.
func (m *Monitor) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Devices returns a snapshot sorted by name.
func (m *Monitor) Devices() []Device {
	m.mu.Lock()
	out := make([]Device, 0, len(m.devices))
	for _, d := range m.devices {
		out = append(out, *d)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *Monitor) subscribe(c pahomqtt.Client) {
	filter := m.stateFilter()
	token := c.Subscribe(filter, 1, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		m.handleState(msg.Topic(), msg.Payload())
	})
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			m.logger.Warn("MQTT subscribe timeout", "topic", filter)
		} else if err := token.Error(); err != nil {
			m.logger.Warn("MQTT subscribe error", "topic", filter, "err", err)
		}
	}()
}

func (m *Monitor) stateFilter() string {
	if m.prefix == "" {
		return "+/state"
	}
	return m.prefix + "/+/state"
}

func (m *Monitor) handleState(topic string, payload []byte) {
	name := deviceName(m.prefix, topic)
	if name == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(payload) == 0 {
		// Empty retained payload clears the device.
		delete(m.devices, name)
		return
	}
	m.devices[name] = &Device{
		Name:     name,
		Topic:    topic,
		Payload:  string(payload),
		LastSeen: m.now(),
	}
}

func (m *Monitor) setConnected(v bool) {
	m.mu.Lock()
	m.connected = v
	m.mu.Unlock()
}

// deviceName extracts <name> from <prefix>/<name>/state.
func deviceName(prefix, topic string) string {
	rest := topic
	if prefix != "" {
		if !strings.HasPrefix(topic, prefix+"/") {
			return ""
		}
		rest = strings.TrimPrefix(topic, prefix+"/")
	}
	name, ok := strings.CutSuffix(rest, "/state")
	if !ok || name == "" || strings.Contains(name, "/") {
		return ""
	}
	return name
}
