// Package service supervises the background broker: one run at a time, a
// cooperative stop signal, and a liveness query.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"home-app/internal/broker"
)

var (
	// ErrNoConfig is returned by Start when no endpoint is configured.
	ErrNoConfig = errors.New("service has no endpoints configured")
	// ErrAlreadyRunning is returned by Start while a previous run is alive.
	ErrAlreadyRunning = errors.New("service already running")
	// ErrStopTimeout is returned by StopWait when the run outlives the timeout.
	ErrStopTimeout = errors.New("service did not stop in time")
)

// Runner is the blocking body of a service. Run must return soon after ctx
// is cancelled.
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context) error

func (f RunnerFunc) Run(ctx context.Context) error { return f(ctx) }

// Factory builds the Runner for a config on every Start.
type Factory func(cfg broker.Config) Runner

// Supervisor runs at most one Runner at a time on its own goroutine.
// Its methods are safe to call from any goroutine.
type Supervisor struct {
	name    string
	factory Factory
	logger  *slog.Logger

	stop atomic.Bool

	mu      sync.Mutex
	cfg     broker.Config
	cancel  context.CancelFunc
	done    chan struct{}
	lastErr error
}

// NewSupervisor creates an idle supervisor.
func NewSupervisor(name string, cfg broker.Config, factory Factory, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		name:    name,
		cfg:     cfg,
		factory: factory,
		logger:  logger.With("component", "service", "service", name),
	}
}

// Config returns the current config.
func (s *Supervisor) Config() broker.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// SetConfig replaces the config. It fails while running.
func (s *Supervisor) SetConfig(cfg broker.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runningLocked() {
		return ErrAlreadyRunning
	}
	s.cfg = cfg
	return nil
}

// Start launches the runner. It fails with ErrNoConfig when the endpoint
// list is empty and with ErrAlreadyRunning until a previous run finished.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.Empty() {
		return ErrNoConfig
	}
	if s.runningLocked() {
		return ErrAlreadyRunning
	}

	runner := s.factory(s.cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.stop.Store(false)
	s.cancel = cancel
	s.done = done
	s.lastErr = nil

	go s.run(ctx, runner, done)
	s.logger.Info("service started", "endpoints", len(s.cfg.Endpoints))
	return nil
}

func (s *Supervisor) run(ctx context.Context, runner Runner, done chan struct{}) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		if err != nil {
			s.logger.Error("service exited", "err", err)
		} else {
			s.logger.Info("service exited")
		}
		close(done)
	}()
	err = runner.Run(ctx)
}

// Stop raises the stop flag and returns without waiting. The runner may
// still be alive when Stop returns.
func (s *Supervisor) Stop() {
	s.stop.Store(true)
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// StopWait stops the runner and waits up to timeout for it to finish.
func (s *Supervisor) StopWait(timeout time.Duration) error {
	s.Stop()

	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		s.logger.Warn("service stop timed out", "timeout", timeout)
		return ErrStopTimeout
	}
}

// Stopping reports whether a stop was requested since the last Start.
func (s *Supervisor) Stopping() bool { return s.stop.Load() }

// IsRunning reports whether a started run has not finished yet.
func (s *Supervisor) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runningLocked()
}

// LastErr returns the error the last finished run ended with.
func (s *Supervisor) LastErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Supervisor) runningLocked() bool {
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}
