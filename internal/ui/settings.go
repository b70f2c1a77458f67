package ui

import (
	"fmt"

	"home-app/internal/router"
)

// SettingsUnit controls the embedded broker.
type SettingsUnit struct {
	router.UnitBase
	env     *Env
	message string
}

// NewSettingsUnit creates the broker control screen.
func NewSettingsUnit(env *Env) *SettingsUnit {
	return &SettingsUnit{env: env}
}

func (u *SettingsUnit) TitleBar(f *router.Frame) {
	f.Title(u.env.AppName)
	f.Title("settings")
}

func (u *SettingsUnit) StatusBar(f *router.Frame) {
	f.Status("b start  x stop  esc back")
	if u.message != "" {
		f.Status(u.message)
	}
}

func (u *SettingsUnit) Content(f *router.Frame) router.Action {
	if f.Pressed("esc") {
		return router.RemoveByID(u.ParentID())
	}

	svc := u.env.Service
	if svc == nil {
		f.Println("MQTT broker is not available")
		return nil
	}

	switch {
	case f.Pressed("b"):
		if err := svc.Start(); err != nil {
			u.message = "start failed: " + err.Error()
			u.env.Logger.Warn("start broker", "err", err)
		} else {
			u.message = "broker starting"
		}
	case f.Pressed("x"):
		svc.Stop()
		u.message = "stop requested"
	}

	f.Println("MQTT broker: " + serviceState(svc))
	if err := svc.LastErr(); err != nil && !svc.IsRunning() {
		f.Println("last run ended with: " + err.Error())
	}
	f.Println("")

	cfg := svc.Config()
	if cfg.Empty() {
		f.Println("  no endpoints configured")
		return nil
	}
	f.Println("Endpoints:")
	for _, ep := range cfg.Endpoints {
		typ := ep.Type
		if typ == "" {
			typ = "tcp"
		}
		f.Println(fmt.Sprintf("  %-10s %-4s %s", ep.ID, typ, ep.Address))
	}
	return nil
}
