// Package web serves a read-only view of the console over HTTP: status and
// device snapshots as JSON, and a WebSocket stream of device changes.
package web

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"home-app/internal/broker"
	"home-app/internal/mqtt"
)

// DeviceSource lists devices seen on the broker.
type DeviceSource interface {
	Devices() []mqtt.Device
	Connected() bool
}

// ServiceStatus is the read side of the broker supervisor.
type ServiceStatus interface {
	IsRunning() bool
	Stopping() bool
	Config() broker.Config
	LastErr() error
}

// ServerOption configures the web server.
type ServerOption func(*Server)

// WithAPIKey enables API key authentication on /api/ endpoints.
func WithAPIKey(key string) ServerOption {
	return func(s *Server) {
		s.apiKey = key
	}
}

// WithAllowedOrigins sets allowed WebSocket origin patterns.
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// WithVersion sets the version reported by /api/status.
func WithVersion(v string) ServerOption {
	return func(s *Server) {
		s.version = v
	}
}

// WithPushInterval sets how often the WebSocket stream checks for device
// changes.
func WithPushInterval(d time.Duration) ServerOption {
	return func(s *Server) {
		s.pushEvery = d
	}
}

// Server is the HTTP handler of the status API.
type Server struct {
	app            string
	devices        DeviceSource
	service        ServiceStatus
	hub            *Hub
	logger         *slog.Logger
	mux            *http.ServeMux
	apiKey         string
	allowedOrigins []string
	version        string
	pushEvery      time.Duration
}

// Status is the body of GET /api/status.
type Status struct {
	App           string       `json:"app"`
	Version       string       `json:"version"`
	Broker        BrokerStatus `json:"broker"`
	MQTTConnected bool         `json:"mqtt_connected"`
	Devices       int          `json:"devices"`
}

// BrokerStatus describes the embedded broker.
type BrokerStatus struct {
	State     string            `json:"state"` // "running", "stopping" or "stopped"
	LastErr   string            `json:"last_error,omitempty"`
	Endpoints []broker.Endpoint `json:"endpoints"`
}

// DeviceView is a device as served to clients.
type DeviceView struct {
	Name     string    `json:"name"`
	Topic    string    `json:"topic"`
	Payload  string    `json:"payload"`
	LastSeen time.Time `json:"last_seen"`
}

// DevicesMessage is pushed on the WebSocket when the device list changes.
type DevicesMessage struct {
	Type    string       `json:"type"` // always "devices"
	Devices []DeviceView `json:"devices"`
}

// NewServer creates the server and starts its WebSocket hub. devices and
// service may be nil.
func NewServer(app string, devices DeviceSource, service ServiceStatus, logger *slog.Logger, opts ...ServerOption) *Server {
	s := &Server{
		app:       app,
		devices:   devices,
		service:   service,
		logger:    logger.With("component", "web"),
		mux:       http.NewServeMux(),
		pushEvery: time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.pushEvery <= 0 {
		s.pushEvery = time.Second
	}

	s.hub = NewHub(s.devicesMessage, s.pushEvery, s.logger)
	go s.hub.Run()

	s.routes()
	return s
}

// Stop shuts down the WebSocket hub, closing every stream.
func (s *Server) Stop() {
	s.hub.Stop()
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/status", s.handleAPIStatus)
	s.mux.HandleFunc("GET /api/devices", s.handleAPIDevices)
	s.mux.HandleFunc("GET /ws", s.handleWS)
}

// ServeHTTP implements http.Handler, applying API key auth.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot send custom headers on a WS upgrade, so only /api/
	// requires the key.
	if s.apiKey != "" && strings.HasPrefix(r.URL.Path, "/api/") {
		key := r.Header.Get("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleAPIDevices(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.deviceViews())
}

func (s *Server) status() Status {
	st := Status{
		App:     s.app,
		Version: s.version,
		Broker:  BrokerStatus{State: "stopped", Endpoints: []broker.Endpoint{}},
	}
	if s.service != nil {
		switch {
		case s.service.IsRunning() && s.service.Stopping():
			st.Broker.State = "stopping"
		case s.service.IsRunning():
			st.Broker.State = "running"
		}
		if err := s.service.LastErr(); err != nil {
			st.Broker.LastErr = err.Error()
		}
		if eps := s.service.Config().Endpoints; len(eps) > 0 {
			st.Broker.Endpoints = eps
		}
	}
	if s.devices != nil {
		st.MQTTConnected = s.devices.Connected()
		st.Devices = len(s.devices.Devices())
	}
	return st
}

func (s *Server) deviceViews() []DeviceView {
	views := []DeviceView{}
	if s.devices == nil {
		return views
	}
	for _, d := range s.devices.Devices() {
		views = append(views, DeviceView{Name: d.Name, Topic: d.Topic, Payload: d.Payload, LastSeen: d.LastSeen})
	}
	return views
}

// devicesMessage returns the encoded device list for the stream.
func (s *Server) devicesMessage() ([]byte, error) {
	return json.Marshal(DevicesMessage{Type: "devices", Devices: s.deviceViews()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("writeJSON encode failed", "err", err)
	}
}
