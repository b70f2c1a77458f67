package ui

import (
	"fmt"
	"time"

	"home-app/internal/router"
)

// DevicesUnit is the main screen: devices seen on the broker, plus entry
// points to the settings and panels pages.
type DevicesUnit struct {
	router.UnitBase
	env        *Env
	windowOpen bool
}

// NewDevicesUnit creates the device listing.
func NewDevicesUnit(env *Env) *DevicesUnit {
	return &DevicesUnit{env: env}
}

func (u *DevicesUnit) TitleBar(f *router.Frame) {
	f.Title(u.env.AppName)
	if u.env.Service != nil {
		f.Title("broker " + serviceState(u.env.Service))
	}
	if u.windowOpen {
		f.Title("[window]")
	}
}

func (u *DevicesUnit) StatusBar(f *router.Frame) {
	if u.env.Devices != nil {
		conn := "offline"
		if u.env.Devices.Connected() {
			conn = "online"
		}
		f.Status(fmt.Sprintf("%d devices (%s)", len(u.env.Devices.Devices()), conn))
	}
	f.Status(saveStatus(u.env))
}

func (u *DevicesUnit) Content(f *router.Frame) router.Action {
	f.Println("MQTT devices")
	f.Println("")

	var devices int
	if u.env.Devices != nil {
		for _, d := range u.env.Devices.Devices() {
			devices++
			f.Println(fmt.Sprintf("  %-24s %-40s %s", d.Name, truncate(d.Payload, 40), d.LastSeen.Format(time.TimeOnly)))
		}
	}
	if devices == 0 {
		f.Println("  (no devices yet)")
	}

	if f.Pressed("w") {
		u.windowOpen = !u.windowOpen
		if !u.windowOpen {
			return router.CloseWindow{}
		}
	}
	if u.windowOpen {
		f.Println("")
		f.Println("  ┌ test window ───────────┐")
		f.Println("  │ hello                  │")
		f.Println("  │ press w to close       │")
		f.Println("  └────────────────────────┘")
		return router.OpenWindow{UIEnabled: false}
	}

	switch {
	case f.Pressed("s"):
		return router.AddPage{Page: router.NewPage(NewSettingsUnit(u.env))}
	case f.Pressed("p"):
		if page := u.panelsPage(); page != nil {
			return router.AddPage{Page: page}
		}
	}
	return nil
}

func (u *DevicesUnit) panelsPage() *router.Page {
	if u.env.Panels == nil {
		return nil
	}
	units := u.env.Panels.Units(u.env)
	if len(units) == 0 {
		return nil
	}
	return router.NewPage(units...)
}

func serviceState(s ServiceControl) string {
	switch {
	case s.IsRunning() && s.Stopping():
		return "stopping"
	case s.IsRunning():
		return "running"
	default:
		return "stopped"
	}
}

func saveStatus(env *Env) string {
	h := env.health()
	switch {
	case !h.OK():
		return fmt.Sprintf("save failed (%d): %v", h.Failures, h.LastErr)
	case h.LastSave.IsZero():
		return "not saved yet"
	default:
		return "saved " + h.LastSave.Format(time.TimeOnly)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
