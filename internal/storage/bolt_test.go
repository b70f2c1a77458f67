package storage

import (
	"path/filepath"
	"testing"
)

func newTestBolt(t *testing.T, path string) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(path, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestBoltStoreRoundTripAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	s := newTestBolt(t, path)
	s.Set("app_data", `{"theme":"plain"}`)
	if !s.Dirty() {
		t.Fatal("not dirty after Set")
	}
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	if s.Dirty() {
		t.Error("dirty after Flush")
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s = newTestBolt(t, path)
	t.Cleanup(func() { s.Close() })
	got, ok := s.Get("app_data")
	if !ok || got != `{"theme":"plain"}` {
		t.Errorf("app_data = %q, %v", got, ok)
	}
}

func TestBoltStoreNoOpSet(t *testing.T) {
	s := newTestBolt(t, filepath.Join(t.TempDir(), "state.db"))
	t.Cleanup(func() { s.Close() })

	s.Set("k", "v")
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	s.Set("k", "v")
	if s.Dirty() {
		t.Error("same-value Set marked dirty")
	}
	s.Set("k", "w")
	if !s.Dirty() {
		t.Error("changed Set did not mark dirty")
	}
}

func TestBoltStoreUnflushedIsLost(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	s := newTestBolt(t, path)
	s.Set("k", "v")
	s.Close()

	s = newTestBolt(t, path)
	t.Cleanup(func() { s.Close() })
	if _, ok := s.Get("k"); ok {
		t.Error("Close must not flush")
	}
}

func TestBoltStoreFlushWritesChangedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	s := newTestBolt(t, path)
	s.Set("a", "1")
	s.Set("b", "2")
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	s.Set("b", "3")
	if len(s.changed) != 1 {
		t.Errorf("changed keys = %d, want 1", len(s.changed))
	}
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s = newTestBolt(t, path)
	t.Cleanup(func() { s.Close() })
	if got, _ := s.Get("a"); got != "1" {
		t.Errorf("a = %q, want 1", got)
	}
	if got, _ := s.Get("b"); got != "3" {
		t.Errorf("b = %q, want 3", got)
	}
}
