package shared

import (
	"fmt"
	"sync"

	"github.com/gofrs/flock"
)

// CatalogLock is an advisory file lock held next to the catalog while a run mutates it.
type CatalogLock struct {
	path string
	lock *flock.Flock
}

// NewCatalogLock returns a lock for the catalog at dbPath. The lock file is "<dbPath>.lock".
func NewCatalogLock(dbPath string) *CatalogLock {
	path := dbPath + ".lock"
	return &CatalogLock{path: path, lock: flock.New(path)}
}

// Acquire takes the lock without blocking; [ErrCatalogLocked] means another process holds it.
func (l *CatalogLock) Acquire() error {
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire catalog lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrCatalogLocked, l.path)
	}
	return nil
}

// Release drops the lock.
func (l *CatalogLock) Release() error {
	return l.lock.Unlock()
}

// Path returns the lock file location.
func (l *CatalogLock) Path() string { return l.path }

// KeyedMutex serializes work per key. Unused keys are released after Unlock.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

// Lock blocks until key is free and returns the matching unlock func.
func (k *KeyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedEntry)
	}
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
