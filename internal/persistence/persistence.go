// Package persistence is a typed, autosaving facade over a storage.KeyValueStore.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"home-app/internal/storage"
)

const (
	// DefaultInterval is the autosave interval of New.
	DefaultInterval = 30 * time.Second
	// AppInterval is the autosave interval of NewDefault.
	AppInterval = 10 * time.Second
)

// Health describes the outcome of the most recent saves.
type Health struct {
	LastSave time.Time // last successful Save that found the store dirty
	LastErr  error     // error of the last Save, nil once a Save succeeds
	Failures int       // consecutive failed saves
}

// OK reports whether the last save succeeded.
func (h Health) OK() bool { return h.LastErr == nil }

// Option configures a Persistence.
type Option func(*Persistence)

// WithInterval sets the autosave interval.
func WithInterval(d time.Duration) Option {
	return func(p *Persistence) {
		p.interval = d
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Persistence) {
		p.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Persistence) {
		p.logger = logger
	}
}

// Persistence serializes values as JSON into a KeyValueStore and flushes it
// at most once per autosave interval.
//
// A Persistence is owned by the UI goroutine and is not safe for concurrent
// use. Hand values to it through that goroutine rather than sharing it.
type Persistence struct {
	store        storage.KeyValueStore
	lastAutoSave time.Time
	interval     time.Duration
	now          func() time.Time
	logger       *slog.Logger
	health       Health
}

// New wraps store. The autosave timer starts now.
func New(store storage.KeyValueStore, opts ...Option) *Persistence {
	p := &Persistence{
		store:    store,
		interval: DefaultInterval,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "persistence")
	p.lastAutoSave = p.now()
	return p
}

// NewDefault opens a FileStore beside the executable, named after appName,
// with a 10s autosave interval.
func NewDefault(appName string, logger *slog.Logger) (*Persistence, error) {
	path, err := storage.DefaultPath(appName)
	if err != nil {
		return nil, fmt.Errorf("default state path: %w", err)
	}
	store := storage.NewFileStore(path, logger)
	logger.Info("state file", "path", store.Path())
	return New(store, WithInterval(AppInterval), WithLogger(logger)), nil
}

// SetAutoSaveInterval changes the autosave interval.
func (p *Persistence) SetAutoSaveInterval(d time.Duration) {
	p.interval = d
}

// AutoSaveInterval returns the autosave interval.
func (p *Persistence) AutoSaveInterval() time.Duration { return p.interval }

// SetValue stores v under key. v must be JSON-encodable; anything else is a
// bug in the caller and panics.
func (p *Persistence) SetValue(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("persistence: encode %q: %v", key, err))
	}
	p.store.Set(key, string(data))
}

// GetValue decodes the value stored under key. A missing key and a value
// that does not decode into T are both reported as absent.
func GetValue[T any](p *Persistence, key string) (T, bool) {
	var out T
	raw, ok := p.store.Get(key)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		p.logger.Debug("discard undecodable value", "key", key, "err", err)
		var zero T
		return zero, false
	}
	return out, true
}

// Save flushes the store. Failures are logged and kept in Health; the store
// stays dirty and the next Save retries.
func (p *Persistence) Save() {
	dirty := p.store.Dirty()
	if err := p.store.Flush(); err != nil {
		p.health.LastErr = err
		p.health.Failures++
		p.logger.Warn("save state", "err", err, "failures", p.health.Failures)
		return
	}
	if dirty {
		p.health.LastSave = p.now()
	}
	p.health.LastErr = nil
	p.health.Failures = 0
}

// MaybeAutosave saves when more than the autosave interval has passed since
// the last autosave. Calls inside the interval do nothing.
func (p *Persistence) MaybeAutosave() {
	now := p.now()
	if now.Sub(p.lastAutoSave) > p.interval {
		p.Save()
		p.lastAutoSave = now
	}
}

// Health returns the save health.
func (p *Persistence) Health() Health { return p.health }

// Close closes the underlying store without saving.
func (p *Persistence) Close() error {
	return p.store.Close()
}
