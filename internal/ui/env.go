// Package ui holds the screens of the console and the terminal host that
// ticks the router.
package ui

import (
	"log/slog"

	"home-app/internal/broker"
	"home-app/internal/mqtt"
	"home-app/internal/persistence"
)

// DeviceSource lists devices seen on the broker.
type DeviceSource interface {
	Devices() []mqtt.Device
	Connected() bool
}

// ServiceControl is the part of the broker supervisor the settings screen uses.
type ServiceControl interface {
	Start() error
	Stop()
	IsRunning() bool
	Stopping() bool
	Config() broker.Config
	LastErr() error
}

// Env is what units need from the rest of the application.
type Env struct {
	AppName string
	Devices DeviceSource
	Service ServiceControl
	Health  func() persistence.Health
	Panels  *PanelManager
	Logger  *slog.Logger
}

func (e *Env) health() persistence.Health {
	if e.Health == nil {
		return persistence.Health{}
	}
	return e.Health()
}
