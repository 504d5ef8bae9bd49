// Package flock maintains a registry of per-path file locks, so that
// concurrent writes to distinct files proceed in parallel while repeated
// writes to the same file serialize.
package flock

import (
	"path/filepath"
	"sync"
)

// A Registry lazily creates one mutex per normalized absolute file path.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// CreateRegistry is a factory for Registries
func CreateRegistry() *Registry {
	return &Registry{locks: make(map[string]*sync.Mutex)}
}

// Normalize resolves a path to the canonical form used as a lock key
func Normalize(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		// fall back to a cleaned relative path; still stable per spelling
		return filepath.Clean(path)
	}
	return filepath.Clean(abs)
}

// Get returns the lock dedicated to the given path, creating it on first use.
// Two paths naming the same file receive the same lock regardless of how they
// are spelled.
func (r *Registry) Get(path string) *sync.Mutex {
	key := Normalize(path)
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[key] = lock
	}
	return lock
}

// Len returns the number of distinct paths with registered locks
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}
