package service

import "sync"

// keyedMutex serializes operations per QR code id. Entries are kept for the
// process lifetime; the map is bounded by the number of distinct codes
// touched.
type keyedMutex struct {
	mutex sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{
		locks: make(map[string]*sync.Mutex),
	}
}

// Lock acquires the mutex for the given key, creating it on first use.
func (k *keyedMutex) Lock(key string) {
	k.mutex.Lock()
	m, exists := k.locks[key]
	if !exists {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mutex.Unlock()

	m.Lock()
}

// Unlock releases the mutex for the given key. The key must be held.
func (k *keyedMutex) Unlock(key string) {
	k.mutex.Lock()
	m := k.locks[key]
	k.mutex.Unlock()

	m.Unlock()
}
