// Package kvstore provides the persistent key-value store the record
// layer is built on: a durable, synchronous, string-keyed mapping.
//
// Data keys are "{userID}_{collection}"; identity state lives under the
// fixed keys "users", "userData" and "authToken". Reads and writes are
// whole-value; the store has a single writer and last write wins.
package kvstore

import "sync"

// KV is the persistent key-value store contract.
type KV interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error

	// Ping reports whether the backing store is reachable.
	Ping() error

	Close() error
}

// Memory is an in-process KV used by tests and the memory backend. It
// loses everything on restart.
type Memory struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *Memory) Ping() error { return nil }

func (m *Memory) Close() error { return nil }

// Keys returns a snapshot of all stored keys, for tests.
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys
}
