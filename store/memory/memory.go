// Package memory implements the store contract on an in-process map.
// It backs the engine tests and serves as a dependency-free smoke
// backend; checkpoints and transactions are no-ops.
package memory

import (
	"sync"

	"kvperf/store"
)

// Store is both the Opener and the Connection: reopening an in-process
// store hands back the same map, which is exactly the persistence the
// populate/workload handover needs.
type Store struct {
	mu      sync.RWMutex
	data    map[string][]byte
	lastKey string
}

func NewStore() *Store {
	return &Store{data: make(map[string][]byte)}
}

func (s *Store) Open() (store.Connection, error) { return s, nil }

func (s *Store) OpenSession() (store.Session, error) {
	return &session{store: s}, nil
}

func (s *Store) Close() error { return nil }

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

type session struct {
	store *Store
}

func (s *session) OpenCursor(table string) (store.Cursor, error) {
	return &cursor{store: s.store}, nil
}

func (s *session) BeginTransaction() error  { return nil }
func (s *session) CommitTransaction() error { return nil }
func (s *session) Checkpoint() error        { return nil }
func (s *session) Close() error             { return nil }

type cursor struct {
	store *Store
	key   []byte
	value []byte
}

func (c *cursor) SetKey(key []byte)     { c.key = key }
func (c *cursor) SetValue(value []byte) { c.value = value }

func (c *cursor) Search() store.Result {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	v, ok := c.store.data[string(c.key)]
	if !ok {
		return store.NotFound()
	}
	c.value = append([]byte(nil), v...)
	return store.OK()
}

// Insert stores the record, overwriting any existing value. Random
// key draws make duplicate inserts routine; callers that need absence
// detection search first.
func (c *cursor) Insert() store.Result {
	k := string(c.key)
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.store.data[k] = append([]byte(nil), c.value...)
	if k > c.store.lastKey {
		c.store.lastKey = k
	}
	return store.OK()
}

func (c *cursor) Update() store.Result {
	k := string(c.key)
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if _, ok := c.store.data[k]; !ok {
		return store.NotFound()
	}
	c.store.data[k] = append([]byte(nil), c.value...)
	return store.OK()
}

func (c *cursor) Prev() store.Result {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	if c.store.lastKey == "" {
		return store.NotFound()
	}
	c.key = []byte(c.store.lastKey)
	c.value = append([]byte(nil), c.store.data[c.store.lastKey]...)
	return store.OK()
}

func (c *cursor) Key() []byte   { return c.key }
func (c *cursor) Value() []byte { return c.value }
func (c *cursor) Close() error  { return nil }
