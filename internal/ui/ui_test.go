package ui

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"home-app/internal/broker"
	"home-app/internal/mqtt"
	"home-app/internal/persistence"
	"home-app/internal/router"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeDevices struct {
	devices   []mqtt.Device
	connected bool
}

func (f *fakeDevices) Devices() []mqtt.Device { return f.devices }
func (f *fakeDevices) Connected() bool        { return f.connected }

type fakeService struct {
	cfg      broker.Config
	running  bool
	stopping bool
	startErr error
	lastErr  error
	starts   int
	stops    int
}

func (s *fakeService) Start() error {
	s.starts++
	if s.startErr != nil {
		return s.startErr
	}
	s.running = true
	return nil
}

func (s *fakeService) Stop() {
	s.stops++
	s.stopping = true
}

func (s *fakeService) IsRunning() bool       { return s.running }
func (s *fakeService) Stopping() bool        { return s.stopping }
func (s *fakeService) Config() broker.Config { return s.cfg }
func (s *fakeService) LastErr() error        { return s.lastErr }

func testEnv() *Env {
	return &Env{
		AppName: "home-app",
		Devices: &fakeDevices{
			connected: true,
			devices: []mqtt.Device{
				{Name: "lamp", Payload: `{"on":true}`, LastSeen: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
			},
		},
		Service: &fakeService{cfg: broker.Config{Endpoints: []broker.Endpoint{
			{ID: "tcp1", Type: broker.TypeTCP, Address: ":1883"},
		}}},
		Logger: testLogger(),
	}
}

func TestDevicesUnitListsDevices(t *testing.T) {
	env := testEnv()
	r := router.New(testLogger())
	r.Add(router.NewPage(NewDevicesUnit(env)))

	f := router.NewFrame()
	if a := r.Dispatch(f); a != nil {
		t.Errorf("action = %#v, want nil", a)
	}
	if !strings.Contains(f.Content(), "lamp") {
		t.Errorf("content missing device:\n%s", f.Content())
	}
	if got := strings.Join(f.TitleBar(), "|"); got != "home-app|broker stopped" {
		t.Errorf("title = %q", got)
	}
	if got := f.StatusBar()[0]; got != "1 devices (online)" {
		t.Errorf("status = %q", got)
	}
}

func TestDevicesUnitTestWindow(t *testing.T) {
	r := router.New(testLogger())
	r.Add(router.NewPage(NewDevicesUnit(testEnv())))

	if _, ok := r.Dispatch(router.NewFrame("w")).(router.OpenWindow); !ok {
		t.Fatal("w did not open the window")
	}
	if r.UIEnabled() {
		t.Error("UI enabled while the window is open")
	}
	// The window keeps the background disabled until closed.
	if _, ok := r.Dispatch(router.NewFrame()).(router.OpenWindow); !ok {
		t.Error("open window not redrawn")
	}
	if _, ok := r.Dispatch(router.NewFrame("w")).(router.CloseWindow); !ok {
		t.Fatal("second w did not close the window")
	}
	if !r.UIEnabled() {
		t.Error("UI still disabled after close")
	}
}

func TestDevicesUnitOpensSettings(t *testing.T) {
	env := testEnv()
	r := router.New(testLogger())
	first := r.Add(router.NewPage(NewDevicesUnit(env)))

	r.Dispatch(router.NewFrame("s"))
	if r.Len() != 2 {
		t.Fatalf("pages = %d, want 2", r.Len())
	}
	front, _ := r.Front()
	if front.ParentID() != first {
		t.Errorf("settings parent = %d, want %d", front.ParentID(), first)
	}
	if _, ok := front.Units()[0].(*SettingsUnit); !ok {
		t.Errorf("front unit = %T, want *SettingsUnit", front.Units()[0])
	}

	r.Dispatch(router.NewFrame("esc"))
	if r.Len() != 1 {
		t.Errorf("pages after esc = %d, want 1", r.Len())
	}
}

func TestSettingsUnitEscRemovesOwnPage(t *testing.T) {
	r := router.New(testLogger())
	r.Add(router.NewPage(NewDevicesUnit(testEnv())))
	u := NewSettingsUnit(testEnv())
	id := r.Add(router.NewPage(u))

	want := router.RemoveByID(id)
	if got := u.Content(router.NewFrame("esc")); got != want {
		t.Errorf("esc action = %#v, want %#v", got, want)
	}
	r.Dispatch(router.NewFrame("esc"))
	if _, ok := r.Get(id); ok {
		t.Error("settings page still present after esc")
	}
}

func TestSettingsUnitStartFailure(t *testing.T) {
	env := testEnv()
	svc := env.Service.(*fakeService)
	svc.startErr = errors.New("no listener configured")
	u := NewSettingsUnit(env)

	f := router.NewFrame("b")
	u.StatusBar(f)
	u.Content(f)
	if svc.starts != 1 {
		t.Fatalf("starts = %d, want 1", svc.starts)
	}

	f = router.NewFrame()
	u.StatusBar(f)
	u.Content(f)
	if got := strings.Join(f.StatusBar(), "|"); !strings.Contains(got, "start failed: no listener configured") {
		t.Errorf("status = %q", got)
	}
	if !strings.Contains(f.Content(), "tcp1") {
		t.Errorf("endpoints not listed:\n%s", f.Content())
	}
}

func TestSettingsUnitStartStop(t *testing.T) {
	env := testEnv()
	svc := env.Service.(*fakeService)
	u := NewSettingsUnit(env)

	f := router.NewFrame("b")
	u.Content(f)
	if !strings.Contains(f.Content(), "MQTT broker: running") {
		t.Errorf("content:\n%s", f.Content())
	}

	f = router.NewFrame("x")
	u.Content(f)
	if svc.stops != 1 {
		t.Errorf("stops = %d, want 1", svc.stops)
	}
	if !strings.Contains(f.Content(), "MQTT broker: stopping") {
		t.Errorf("content:\n%s", f.Content())
	}
}

func TestSaveStatus(t *testing.T) {
	env := testEnv()
	if got := saveStatus(env); got != "not saved yet" {
		t.Errorf("saveStatus = %q", got)
	}
	env.Health = func() persistence.Health {
		return persistence.Health{LastErr: errors.New("disk full"), Failures: 2}
	}
	if got := saveStatus(env); got != "save failed (2): disk full" {
		t.Errorf("saveStatus = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("abcdefgh", 4); got != "abc…" {
		t.Errorf("truncate = %q", got)
	}
}
