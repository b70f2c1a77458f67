// Package storage holds the string key-value stores behind the persisted
// application state.
package storage

import "errors"

// ErrClosed is returned by Flush after Close.
var ErrClosed = errors.New("store closed")

// KeyValueStore maps string keys to string values and tracks whether the
// in-memory mapping differs from the last durable write.
//
// Implementations are not safe for concurrent use.
type KeyValueStore interface {
	// Get returns the value stored under key.
	Get(key string) (string, bool)

	// Set stores value under key. The store is marked dirty only when the
	// value actually changes.
	Set(key, value string)

	// Flush writes the full mapping if dirty. On failure the store stays
	// dirty so a later Flush can retry.
	Flush() error

	// Dirty reports whether there are unflushed changes.
	Dirty() bool

	// Close releases resources. It does not flush.
	Close() error
}
