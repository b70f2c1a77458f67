// Package broker runs the embedded MQTT broker.
package broker

import (
	"errors"
	"fmt"
)

// Listener types.
const (
	TypeTCP       = "tcp"
	TypeWebsocket = "ws"
)

// Endpoint is one listener of the broker.
type Endpoint struct {
	ID      string `yaml:"id" json:"id"`
	Type    string `yaml:"type" json:"type"` // "tcp" (default) or "ws"
	Address string `yaml:"address" json:"address"`
}

// Config holds the broker listeners.
type Config struct {
	Endpoints []Endpoint `yaml:"endpoints" json:"endpoints"`
}

// ListenerID returns the id of the listener for the endpoint at index i.
// An endpoint without an id is named after its type and index, e.g. "tcp0".
func (e Endpoint) ListenerID(i int) string {
	if e.ID != "" {
		return e.ID
	}
	return fmt.Sprintf("%s%d", e.listenerType(), i)
}

func (e Endpoint) listenerType() string {
	if e.Type == "" {
		return TypeTCP
	}
	return e.Type
}

// Empty reports whether no endpoint is configured.
func (c Config) Empty() bool { return len(c.Endpoints) == 0 }

// Validate checks every endpoint has an address, a known type and a unique id.
func (c Config) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(c.Endpoints))
	for i, ep := range c.Endpoints {
		id := ep.ListenerID(i)
		if ep.Address == "" {
			errs = append(errs, fmt.Errorf("endpoint %s: address is required", id))
		}
		switch ep.Type {
		case "", TypeTCP, TypeWebsocket:
		default:
			errs = append(errs, fmt.Errorf("endpoint %s: unknown type %q", id, ep.Type))
		}
		if seen[id] {
			errs = append(errs, fmt.Errorf("endpoint %s: duplicate id", id))
		}
		seen[id] = true
	}
	return errors.Join(errs...)
}
