// Package keylock provides mutual exclusion per string key.
package keylock

import "sync"

// Map serializes work per key. Entries are dropped once no goroutine holds
// or waits on them, so the table only grows with concurrent keys.
type Map struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

// New returns an empty lock table.
func New() *Map {
	return &Map{locks: make(map[string]*refMutex)}
}

// Lock acquires the lock for key and returns its release func.
func (k *Map) Lock(key string) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// Len returns the number of keys currently held or awaited.
func (k *Map) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
