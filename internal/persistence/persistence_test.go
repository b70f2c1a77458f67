package persistence

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"home-app/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestPersistence(t *testing.T, interval time.Duration) (*Persistence, *storage.MemStore, *fakeClock) {
	t.Helper()
	mem := storage.NewMemStore()
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	p := New(mem, WithInterval(interval), WithClock(clock.Now), WithLogger(testLogger()))
	return p, mem, clock
}

type uiState struct {
	Theme    string  `json:"theme"`
	Scale    float64 `json:"scale"`
	ShowHelp bool    `json:"show_help"`
}

func TestRoundTripWithoutFlush(t *testing.T) {
	p, mem, _ := newTestPersistence(t, time.Second)

	want := uiState{Theme: "blue", Scale: 1.25, ShowHelp: true}
	p.SetValue("app_data", want)

	got, ok := GetValue[uiState](p, "app_data")
	if !ok {
		t.Fatal("GetValue returned absent")
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if mem.Writes != 0 {
		t.Errorf("writes = %d, want 0", mem.Writes)
	}
}

func TestGetValueMissingAndMismatched(t *testing.T) {
	p, mem, _ := newTestPersistence(t, time.Second)

	if _, ok := GetValue[uiState](p, "nope"); ok {
		t.Error("missing key reported present")
	}

	mem.Set("count", `"not a number"`)
	if v, ok := GetValue[int](p, "count"); ok || v != 0 {
		t.Errorf("mismatched value = %d, %v; want 0, false", v, ok)
	}

	mem.Set("garbage", `{{{`)
	if _, ok := GetValue[uiState](p, "garbage"); ok {
		t.Error("corrupt record reported present")
	}
}

func TestSetValueUnencodablePanics(t *testing.T) {
	p, _, _ := newTestPersistence(t, time.Second)
	defer func() {
		if recover() == nil {
			t.Error("SetValue with a channel did not panic")
		}
	}()
	p.SetValue("bad", make(chan int))
}

func TestMaybeAutosaveDebounce(t *testing.T) {
	p, mem, clock := newTestPersistence(t, 10*time.Second)

	p.SetValue("app_data", uiState{Theme: "blue"})
	for i := 0; i < 50; i++ {
		clock.Advance(100 * time.Millisecond)
		p.SetValue("counter", i)
		p.MaybeAutosave()
	}
	if mem.Writes != 0 {
		t.Fatalf("writes inside interval = %d, want 0", mem.Writes)
	}

	clock.Advance(5*time.Second + time.Millisecond)
	for i := 0; i < 20; i++ {
		p.MaybeAutosave()
	}
	if mem.Writes != 1 {
		t.Errorf("writes after interval = %d, want 1", mem.Writes)
	}

	// Changes made right after an autosave wait for the next interval.
	p.SetValue("counter", 1000)
	clock.Advance(time.Second)
	p.MaybeAutosave()
	if mem.Writes != 1 {
		t.Errorf("writes = %d, want still 1", mem.Writes)
	}
}

func TestMaybeAutosaveQuiescentDoesNoIO(t *testing.T) {
	p, mem, clock := newTestPersistence(t, time.Second)

	for i := 0; i < 5; i++ {
		clock.Advance(2 * time.Second)
		p.MaybeAutosave()
	}
	if mem.Attempts != 0 {
		t.Errorf("flush attempts on a clean store = %d, want 0", mem.Attempts)
	}
}

func TestMaybeAutosaveSameValueEveryTick(t *testing.T) {
	p, mem, clock := newTestPersistence(t, time.Second)

	state := uiState{Theme: "blue"}
	p.SetValue("app_data", state)
	p.Save()
	if mem.Writes != 1 {
		t.Fatalf("writes = %d, want 1", mem.Writes)
	}

	for i := 0; i < 10; i++ {
		clock.Advance(500 * time.Millisecond)
		p.SetValue("app_data", state)
		p.MaybeAutosave()
	}
	if mem.Writes != 1 {
		t.Errorf("writes = %d, want 1 (unchanged state must not be rewritten)", mem.Writes)
	}
}

func TestFailingSaveDoesNotPanicAndRetries(t *testing.T) {
	p, mem, clock := newTestPersistence(t, time.Second)
	mem.FlushErr = errors.New("disk full")

	p.SetValue("k", "v")
	clock.Advance(2 * time.Second)
	p.MaybeAutosave()

	h := p.Health()
	if h.OK() {
		t.Fatal("health OK after failing save")
	}
	if h.Failures != 1 {
		t.Errorf("failures = %d, want 1", h.Failures)
	}
	if !mem.Dirty() {
		t.Error("store not dirty after failed save")
	}

	mem.FlushErr = nil
	clock.Advance(2 * time.Second)
	p.MaybeAutosave()

	h = p.Health()
	if !h.OK() || h.Failures != 0 {
		t.Errorf("health after recovery = %+v", h)
	}
	if mem.Writes != 1 {
		t.Errorf("writes = %d, want 1", mem.Writes)
	}
	if !h.LastSave.Equal(clock.Now()) {
		t.Errorf("last save = %v, want %v", h.LastSave, clock.Now())
	}
}

func TestSaveIsUnconditional(t *testing.T) {
	p, mem, _ := newTestPersistence(t, time.Hour)
	p.SetValue("k", 1)
	p.Save()
	if mem.Writes != 1 {
		t.Errorf("writes = %d, want 1", mem.Writes)
	}
}

func TestPersistenceOverFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "home-app.json")
	p := New(storage.NewFileStore(path, testLogger()), WithLogger(testLogger()))
	p.SetValue("broker", map[string]any{"autostart": true})
	p.Save()

	reloaded := New(storage.NewFileStore(path, testLogger()), WithLogger(testLogger()))
	got, ok := GetValue[map[string]bool](reloaded, "broker")
	if !ok || !got["autostart"] {
		t.Errorf("reloaded broker = %v, %v", got, ok)
	}
}

func TestIntervalChangeTakesEffect(t *testing.T) {
	p, mem, clock := newTestPersistence(t, 10*time.Second)
	p.SetValue("k", 1)

	clock.Advance(6 * time.Second)
	p.MaybeAutosave()
	if mem.Writes != 0 {
		t.Fatalf("writes = %d inside the 10s interval", mem.Writes)
	}

	p.SetAutoSaveInterval(5 * time.Second)
	if p.AutoSaveInterval() != 5*time.Second {
		t.Errorf("AutoSaveInterval = %v, want 5s", p.AutoSaveInterval())
	}
	p.MaybeAutosave()
	if mem.Writes != 1 {
		t.Errorf("writes = %d after shortening the interval, want 1", mem.Writes)
	}

	p.SetValue("k", 2)
	p.SetAutoSaveInterval(time.Minute)
	clock.Advance(30 * time.Second)
	p.MaybeAutosave()
	if mem.Writes != 1 {
		t.Errorf("writes = %d after lengthening the interval, want 1", mem.Writes)
	}
}

func TestNewDefault(t *testing.T) {
	p, err := NewDefault("home-app-test", testLogger())
	if err != nil {
		t.Fatalf("NewDefault: %v", err)
	}
	defer p.Close()

	if p.AutoSaveInterval() != AppInterval {
		t.Errorf("interval = %v, want %v", p.AutoSaveInterval(), AppInterval)
	}
	fs, ok := p.store.(*storage.FileStore)
	if !ok {
		t.Fatalf("store = %T, want *storage.FileStore", p.store)
	}
	want, _ := storage.DefaultPath("home-app-test")
	if fs.Path() != want {
		t.Errorf("path = %q, want %q", fs.Path(), want)
	}
}
