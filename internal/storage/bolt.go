package storage

import (
	"fmt"
	"log/slog"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketKV = []byte("kv")

// BoltStore implements KeyValueStore using BoltDB. The whole bucket is
// mirrored in memory; Set only touches the mirror and Flush writes the
// changed keys in a single transaction.
type BoltStore struct {
	db      *bolt.DB
	kv      map[string]string
	changed map[string]struct{}
	logger  *slog.Logger
}

// NewBoltStore opens or creates a BoltDB database and loads the kv bucket.
func NewBoltStore(path string, logger *slog.Logger) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketKV)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	s := &BoltStore{
		db:      db,
		kv:      make(map[string]string),
		changed: make(map[string]struct{}),
		logger:  logger.With("component", "storage"),
	}

	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketKV)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			s.kv[string(k)] = string(v)
			return nil
		})
	})
	if err != nil {
		// Unreadable entries are treated like a corrupt JSON file.
		s.logger.Warn("load bolt state, starting empty", "path", path, "err", err)
		s.kv = make(map[string]string)
	}

	return s, nil
}

func (s *BoltStore) Get(key string) (string, bool) {
	v, ok := s.kv[key]
	return v, ok
}

func (s *BoltStore) Set(key, value string) {
	if cur, ok := s.kv[key]; ok && cur == value {
		return
	}
	s.kv[key] = value
	s.changed[key] = struct{}{}
}

func (s *BoltStore) Dirty() bool { return len(s.changed) > 0 }

func (s *BoltStore) Flush() error {
	if len(s.changed) == 0 {
		return nil
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketKV)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketKV)
		}
		for k := range s.changed {
			if err := b.Put([]byte(k), []byte(s.kv[k])); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("flush bolt: %w", err)
	}
	s.logger.Debug("persisted", "path", s.db.Path(), "keys", len(s.changed))
	clear(s.changed)
	return nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

var _ KeyValueStore = (*BoltStore)(nil)
