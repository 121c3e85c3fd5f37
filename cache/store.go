package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
)

// entryKey is the single key under which the cache entry is persisted.
var entryKey = []byte("dataset/current")

// Store persists the single cache entry across restarts. Load returns
// (nil, nil) when no entry has been stored yet.
type Store interface {
	Load() (*Entry, error)
	Save(entry *Entry) error
	Close() error
}

// MemoryStore keeps the entry in process memory only.
type MemoryStore struct {
	mu    sync.Mutex
	entry *Entry
}

// NewMemoryStore returns an empty volatile store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the stored entry, nil when empty.
func (s *MemoryStore) Load() (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entry, nil
}

// Save replaces the stored entry.
func (s *MemoryStore) Save(entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry = entry
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

// BadgerStore persists the entry in an on-disk Badger database so a
// restart within the TTL window serves the previous dataset without a
// network pass. Datasets round-trip through JSON.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) the database under dir.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Load reads and decodes the persisted entry.
func (s *BadgerStore) Load() (*Entry, error) {
	var entry *Entry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			entry = &Entry{}
			return json.Unmarshal(val, entry)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load cache entry: %w", err)
	}
	return entry, nil
}

// Save encodes and writes the entry.
func (s *BadgerStore) Save(entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entryKey, data)
	})
	if err != nil {
		return fmt.Errorf("store cache entry: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
