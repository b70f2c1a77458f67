//go:build !no_broker

package broker

import (
	"context"
	"fmt"
	"log/slog"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
)

// Broker serves MQTT on the configured endpoints until its context ends.
type Broker struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a broker for cfg.
func New(cfg Config, logger *slog.Logger) *Broker {
	return &Broker{
		cfg:    cfg,
		logger: logger.With("component", "broker"),
	}
}

// Run starts the listeners and blocks until ctx is cancelled, then closes
// the server.
func (b *Broker) Run(ctx context.Context) error {
	if err := b.cfg.Validate(); err != nil {
		return fmt.Errorf("broker config: %w", err)
	}

	server := mqtt.New(&mqtt.Options{
		InlineClient: true,
		Logger:       b.logger,
	})
	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		return fmt.Errorf("add auth hook: %w", err)
	}

	for i, ep := range b.cfg.Endpoints {
		l := newListener(i, ep)
		if err := server.AddListener(l); err != nil {
			server.Close()
			return fmt.Errorf("add listener %s: %w", l.ID(), err)
		}
		b.logger.Info("listener added", "id", l.ID(), "type", ep.Type, "addr", ep.Address)
	}

	if err := server.Serve(); err != nil {
		server.Close()
		return fmt.Errorf("serve: %w", err)
	}
	b.logger.Info("broker serving", "listeners", len(b.cfg.Endpoints))

	<-ctx.Done()
	b.logger.Info("broker stopping")
	if err := server.Close(); err != nil {
		return fmt.Errorf("close broker: %w", err)
	}
	return nil
}

func newListener(i int, ep Endpoint) listeners.Listener {
	lc := listeners.Config{
		Type:    ep.listenerType(),
		ID:      ep.ListenerID(i),
		Address: ep.Address,
	}
	if ep.Type == TypeWebsocket {
		return listeners.NewWebsocket(lc)
	}
	return listeners.NewTCP(lc)
}
