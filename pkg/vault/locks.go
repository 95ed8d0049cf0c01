package vault

import (
	"sort"
	"sync"
)

// PathLocker serializes mutations per path while letting mutations on
// distinct paths proceed in parallel.
//
// This is the store-side half of the optimistic concurrency scheme: the lock
// only covers the short read-compare-apply-append-publish window of one
// mutation, never a whole client interaction. Locks are created on demand and
// reference counted, so the map does not grow with the number of paths ever
// touched, only with the number of paths currently under mutation.
//
// The admin mutex guards only the map itself and is never held while a path
// lock is held, so contention on one path cannot stall unrelated paths.
type PathLocker struct {
	mu    sync.Mutex
	locks map[string]*pathLock
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

// NewPathLocker returns an empty locker.
func NewPathLocker() *PathLocker {
	return &PathLocker{locks: make(map[string]*pathLock)}
}

// Lock acquires the mutation lock for a single path.
func (l *PathLocker) Lock(path string) {
	l.mu.Lock()
	pl, ok := l.locks[path]
	if !ok {
		pl = &pathLock{}
		l.locks[path] = pl
	}
	pl.refs++
	l.mu.Unlock()

	pl.mu.Lock()
}

// Unlock releases the mutation lock for a path and drops the lock entry once
// nobody is waiting on it.
func (l *PathLocker) Unlock(path string) {
	l.mu.Lock()
	pl, ok := l.locks[path]
	if !ok {
		l.mu.Unlock()
		panic("vault: unlock of unlocked path " + path)
	}
	pl.refs--
	if pl.refs == 0 {
		delete(l.locks, path)
	}
	l.mu.Unlock()

	pl.mu.Unlock()
}

// LockPair acquires the mutation locks for two distinct paths in a
// deterministic order, so concurrent MOVEs touching the same pair cannot
// deadlock. The paths must differ.
func (l *PathLocker) LockPair(a, b string) {
	paths := []string{a, b}
	sort.Strings(paths)
	l.Lock(paths[0])
	l.Lock(paths[1])
}

// UnlockPair releases the locks taken by LockPair.
func (l *PathLocker) UnlockPair(a, b string) {
	paths := []string{a, b}
	sort.Strings(paths)
	l.Unlock(paths[1])
	l.Unlock(paths[0])
}
