package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FileStore implements KeyValueStore on top of a single JSON file.
type FileStore struct {
	path   string
	kv     map[string]string
	dirty  bool
	closed bool
	logger *slog.Logger
}

// NewFileStore loads path once. A missing or unreadable file, or one that
// does not decode as a flat string map, leaves the store empty.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	s := &FileStore{
		path:   path,
		kv:     make(map[string]string),
		logger: logger.With("component", "storage"),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("read state file, starting empty", "path", path, "err", err)
		}
		return s
	}

	var kv map[string]string
	if err := json.Unmarshal(data, &kv); err != nil {
		s.logger.Warn("corrupt state file, starting empty", "path", path, "err", err)
		return s
	}
	if kv != nil {
		s.kv = kv
	}
	return s
}

// DefaultPath returns <executable dir>/<appName>.json.
func DefaultPath(appName string) (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	return filepath.Join(filepath.Dir(exe), appName+".json"), nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Get(key string) (string, bool) {
	v, ok := s.kv[key]
	return v, ok
}

func (s *FileStore) Set(key, value string) {
	if cur, ok := s.kv[key]; ok && cur == value {
		return
	}
	s.kv[key] = value
	s.dirty = true
}

func (s *FileStore) Dirty() bool { return s.dirty }

// Flush writes the whole mapping as indented JSON through a temp file and a
// rename, so a crash mid-write never truncates the previous state.
func (s *FileStore) Flush() error {
	if s.closed {
		return ErrClosed
	}
	if !s.dirty {
		return nil
	}

	data, err := json.MarshalIndent(s.kv, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace state: %w", err)
	}

	s.dirty = false
	s.logger.Debug("persisted", "path", s.path, "keys", len(s.kv))
	return nil
}

func (s *FileStore) Close() error {
	s.closed = true
	return nil
}

var _ KeyValueStore = (*FileStore)(nil)
