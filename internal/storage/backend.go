// Package storage persists the workout collection as a single string blob
// in a key-value backend.
package storage

import (
	"context"
	"fmt"
	"sync"
)

// Backend is a string-keyed blob store.
type Backend interface {
	// Get returns the value stored under key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set stores value under key, replacing any previous value in one write.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
	Close() error
}

// Memory is a map-backed Backend.
type Memory struct {
	mu   sync.Mutex
	data map[string]string
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *Memory) Close() error { return nil }

// Open returns the backend selected by driver.
func Open(ctx context.Context, driver, sqlitePath, postgresDSN string) (Backend, error) {
	switch driver {
	case "memory":
		return NewMemory(), nil
	case "sqlite":
		return OpenSQLite(sqlitePath)
	case "postgres":
		if err := RunMigrations(postgresDSN, "migrations"); err != nil {
			return nil, err
		}
		return NewPostgres(ctx, postgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
