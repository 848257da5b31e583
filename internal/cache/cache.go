// Package cache defines the read-through cache port used by the services.
// The cache is a performance shim, never a source of truth: services
// invalidate keys after every successful mutation and a miss always falls
// through to the database.
package cache

import (
	"sync"
	"time"
)

// Cache is the capability injected into services and handlers.
type Cache interface {
	// Get returns the cached value and true on a hit.
	Get(key string) (string, bool)
	// Set stores a value with a TTL.
	Set(key string, value string, ttl time.Duration)
	// Invalidate removes the given keys.
	Invalidate(keys ...string)
}

// Well-known key builders so services and handlers agree on naming.
func BalanceKey(userID string) string { return "balance:" + userID }
func RoomKey(code string) string      { return "room:" + code }

// ──────────────────────────────────────────────────────────────────────────────
// NoOp
// ──────────────────────────────────────────────────────────────────────────────

// NoOp is the default cache: every read misses, writes are discarded.
// Tests and the backoffice binary run with this.
type NoOp struct{}

func (NoOp) Get(string) (string, bool)         { return "", false }
func (NoOp) Set(string, string, time.Duration) {}
func (NoOp) Invalidate(...string)              {}

// ──────────────────────────────────────────────────────────────────────────────
// Memory
// ──────────────────────────────────────────────────────────────────────────────

type entry struct {
	value     string
	expiresAt time.Time
}

// Memory is an in-process TTL cache.  Expired entries are dropped lazily on
// read and swept periodically by a janitor goroutine.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	done    chan struct{}
}

// NewMemory creates a Memory cache and starts its janitor.
func NewMemory() *Memory {
	m := &Memory{
		entries: make(map[string]entry),
		done:    make(chan struct{}),
	}
	go m.janitor()
	return m
}

// Stop terminates the janitor goroutine.  The cache remains usable after
// Stop; expired entries are then only dropped lazily on read.
func (m *Memory) Stop() {
	close(m.done)
}

// Get returns the cached value and true on a fresh hit.
func (m *Memory) Get(key string) (string, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return "", false
	}
	if time.Now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return "", false
	}
	return e.value, true
}

// Set stores a value with a TTL.
func (m *Memory) Set(key string, value string, ttl time.Duration) {
	m.mu.Lock()
	m.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
	m.mu.Unlock()
}

// Invalidate removes the given keys.
func (m *Memory) Invalidate(keys ...string) {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	m.mu.Unlock()
}

// janitor sweeps expired entries every minute so the map cannot grow without
// bound.
func (m *Memory) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			now := time.Now()
			m.mu.Lock()
			for k, e := range m.entries {
				if now.After(e.expiresAt) {
					delete(m.entries, k)
				}
			}
			m.mu.Unlock()
		}
	}
}
