//go:build no_broker

package broker

import (
	"context"
	"errors"
	"log/slog"
)

// ErrDisabled is returned by Run when built with the no_broker tag.
var ErrDisabled = errors.New("broker disabled at build time")

// Broker is a no-op stub when the broker is disabled.
type Broker struct{}

// New returns a stub broker.
func New(_ Config, _ *slog.Logger) *Broker { return &Broker{} }

// Run returns ErrDisabled.
func (b *Broker) Run(_ context.Context) error { return ErrDisabled }
