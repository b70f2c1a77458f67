//go:build !no_mqtt

package main

import (
	"log/slog"

	"home-app/internal/mqtt"
	"home-app/internal/ui"
)

type monitorStopper struct {
	monitor *mqtt.Monitor
}

func (m *monitorStopper) Stop() {
	if m.monitor != nil {
		m.monitor.Stop()
	}
}

func initMonitor(cfg *Config, logger *slog.Logger) (ui.DeviceSource, *monitorStopper) {
	monitor := mqtt.NewMonitor(mqtt.Config{
		Broker:      cfg.MQTT.Broker,
		Username:    cfg.MQTT.Username,
		Password:    cfg.MQTT.Password,
		TopicPrefix: cfg.MQTT.TopicPrefix,
	}, logger)
	if err := monitor.Start(); err != nil {
		logger.Error("mqtt monitor", "err", err)
		return nil, &monitorStopper{}
	}
	return monitor, &monitorStopper{monitor: monitor}
}
