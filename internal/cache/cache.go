// Package cache stores answers from previous conversion runs.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// FileName is the cache file written next to the compose file. It is
// excluded from content.tar.
const FileName = ".docker2lpk-cache.db"

const bucketName = "answers"

// Store is a string key-value store.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool)
	// Set stores one value.
	Set(key, value string) error
	// Merge stores every entry of values in one step.
	Merge(values map[string]string) error
	Close() error
}

// Memory is an in-process Store. The zero value is not usable, use
// NewMemory.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: map[string]string{}}
}

func (m *Memory) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) Merge(values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

// Keys returns the stored keys in sorted order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *Memory) Close() error { return nil }

// Bolt is a Store backed by a bbolt file.
type Bolt struct {
	db   *bolt.DB
	path string
}

// OpenBolt opens or creates the cache file at path.
func OpenBolt(path string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening cache %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating %s bucket: %w", bucketName, err)
	}
	return &Bolt{db: db, path: path}, nil
}

// Path returns the cache file location.
func (b *Bolt) Path() string { return b.path }

func (b *Bolt) Get(key string) (string, bool) {
	var (
		val   string
		found bool
	)
	_ = b.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(bucketName)).Get([]byte(key)); v != nil {
			val, found = string(v), true
		}
		return nil
	})
	return val, found
}

func (b *Bolt) Set(key, value string) error {
	return b.Merge(map[string]string{key: value})
}

func (b *Bolt) Merge(values map[string]string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		for k, v := range values {
			if err := bucket.Put([]byte(k), []byte(v)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *Bolt) Close() error {
	return b.db.Close()
}
