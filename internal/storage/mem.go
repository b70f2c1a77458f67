package storage

// MemStore is an in-memory KeyValueStore for tests. It counts writes and can
// be told to fail them.
type MemStore struct {
	kv    map[string]string
	dirty bool

	// FlushErr, when set, is returned by Flush and the store stays dirty.
	FlushErr error
	// Writes counts successful flushes that actually wrote.
	Writes int
	// Attempts counts flushes that tried to write, failed or not.
	Attempts int
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{kv: make(map[string]string)}
}

func (m *MemStore) Get(key string) (string, bool) {
	v, ok := m.kv[key]
	return v, ok
}

func (m *MemStore) Set(key, value string) {
	if cur, ok := m.kv[key]; ok && cur == value {
		return
	}
	m.kv[key] = value
	m.dirty = true
}

func (m *MemStore) Dirty() bool { return m.dirty }

func (m *MemStore) Flush() error {
	if !m.dirty {
		return nil
	}
	m.Attempts++
	if m.FlushErr != nil {
		return m.FlushErr
	}
	m.Writes++
	m.dirty = false
	return nil
}

func (m *MemStore) Close() error { return nil }

var _ KeyValueStore = (*MemStore)(nil)
