package storage

import "sync"

// KeyedMutex provides per-key mutual exclusion.
//
// The engines use one KeyedMutex per state family to serialize
// read-modify-write cycles for a single user while leaving operations for
// different users fully parallel. Mutexes are created lazily on first use
// and kept for the lifetime of the owner.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyedMutex creates an empty keyed mutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it if needed, and returns the
// matching unlock function.
//
//	unlock := locks.Lock(userID)
//	defer unlock()
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
