package ui

import (
	"context"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"home-app/internal/router"
)

// callTimeout bounds one call into a panel script per draw.
const callTimeout = 100 * time.Millisecond

// PanelUnit draws a panel by calling the script's title(), status() and
// content(keys) globals. content may return an action name as its second
// result: "back", "open_window", "open_window_bg" or "close_window".
// esc leaves the page whatever the script does.
type PanelUnit struct {
	router.UnitBase
	panel *Panel
	env   *Env
	L     *lua.LState
	err   string

	closed bool
}

// NewPanelUnit loads the panel into a sandboxed VM. A script error is shown
// in place of the panel content.
func NewPanelUnit(p *Panel, env *Env) *PanelUnit {
	L := lua.NewState()
	for _, name := range []string{"os", "io", "loadfile", "dofile", "require", "load", "debug", "package"} {
		L.SetGlobal(name, lua.LNil)
	}

	u := &PanelUnit{panel: p, env: env, L: L}
	registerHomeModule(L, env)

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	L.SetContext(ctx)
	if err := L.DoString(p.Code); err != nil {
		u.fail("load", err)
	}
	L.RemoveContext()
	return u
}

// Close releases the VM. Later calls do nothing.
func (u *PanelUnit) Close() error {
	if u.closed {
		return nil
	}
	u.closed = true
	u.L.Close()
	return nil
}

func (u *PanelUnit) TitleBar(f *router.Frame) {
	if s, ok := u.callString("title"); ok {
		f.Title(s)
		return
	}
	f.Title(u.panel.Meta.Name)
}

func (u *PanelUnit) StatusBar(f *router.Frame) {
	if s, ok := u.callString("status"); ok && s != "" {
		f.Status(s)
	}
}

func (u *PanelUnit) Content(f *router.Frame) router.Action {
	if f.Pressed("esc") {
		return router.RemoveFront()
	}
	f.Println("── " + u.panel.Meta.Name)
	if u.err != "" {
		f.Println("panel error: " + u.err)
		return nil
	}

	keys := u.L.NewTable()
	for _, k := range f.Keys {
		keys.Append(lua.LString(k))
	}
	rets, ok := u.call("content", 2, keys)
	if !ok {
		return nil
	}
	if text := lua.LVAsString(rets[0]); text != "" {
		for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
			f.Println(line)
		}
	}
	return u.action(lua.LVAsString(rets[1]))
}

func (u *PanelUnit) action(name string) router.Action {
	switch name {
	case "":
		return nil
	case "back":
		return router.RemoveFront()
	case "open_window":
		return router.OpenWindow{UIEnabled: false}
	case "open_window_bg":
		return router.OpenWindow{UIEnabled: true}
	case "close_window":
		return router.CloseWindow{}
	default:
		u.env.Logger.Warn("panel returned unknown action", "panel", u.panel.ID, "action", name)
		return nil
	}
}

func (u *PanelUnit) callString(name string) (string, bool) {
	rets, ok := u.call(name, 1)
	if !ok {
		return "", false
	}
	return lua.LVAsString(rets[0]), true
}

// call invokes a global function; ok is false when it is missing or fails.
func (u *PanelUnit) call(name string, nret int, args ...lua.LValue) ([]lua.LValue, bool) {
	if u.err != "" {
		return nil, false
	}
	fn, isFn := u.L.GetGlobal(name).(*lua.LFunction)
	if !isFn {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	u.L.SetContext(ctx)
	defer u.L.RemoveContext()

	if err := u.L.CallByParam(lua.P{Fn: fn, NRet: nret, Protect: true}, args...); err != nil {
		u.fail(name, err)
		return nil, false
	}
	rets := make([]lua.LValue, nret)
	for i := nret - 1; i >= 0; i-- {
		rets[i] = u.L.Get(-1)
		u.L.Pop(1)
	}
	return rets, true
}

func (u *PanelUnit) fail(stage string, err error) {
	msg := err.Error()
	if strings.Contains(msg, "context deadline exceeded") {
		msg = "timeout (" + callTimeout.String() + ")"
	}
	u.err = stage + ": " + msg
	u.env.Logger.Warn("panel script error", "panel", u.panel.ID, "stage", stage, "err", msg)
}

// registerHomeModule registers the `home` global table.
func registerHomeModule(L *lua.LState, env *Env) {
	mod := L.NewTable()

	mod.RawSetString("devices", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		if env.Devices != nil {
			for _, d := range env.Devices.Devices() {
				dev := L.NewTable()
				dev.RawSetString("name", lua.LString(d.Name))
				dev.RawSetString("payload", lua.LString(d.Payload))
				dev.RawSetString("last_seen", lua.LNumber(d.LastSeen.Unix()))
				tbl.Append(dev)
			}
		}
		L.Push(tbl)
		return 1
	}))

	mod.RawSetString("broker_running", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(env.Service != nil && env.Service.IsRunning()))
		return 1
	}))

	mod.RawSetString("log", L.NewFunction(func(L *lua.LState) int {
		env.Logger.Info("panel log", "msg", L.CheckString(1))
		return 0
	}))

	L.SetGlobal("home", mod)
}
