//go:build no_mqtt

package main

import (
	"log/slog"

	"home-app/internal/ui"
)

type monitorStopper struct{}

func (m *monitorStopper) Stop() {}

func initMonitor(_ *Config, _ *slog.Logger) (ui.DeviceSource, *monitorStopper) {
	return nil, &monitorStopper{}
}
