package cache

import (
	"runtime"
	"sync"
)

type entryState uint8

const (
	// entryFresh is a new entry held by the goroutine that created it and not yet linked.
	entryFresh entryState = iota
	entryLinked
	// entryUnlinked is an indexed entry detached from the list, e.g. between the two halves of a promotion.
	entryUnlinked
	// entryRetired entries were dropped from the index and must never be linked again.
	entryRetired
)

func (s entryState) String() string {
	switch s {
	case entryFresh:
		return "fresh"
	case entryLinked:
		return "linked"
	case entryUnlinked:
		return "unlinked"
	case entryRetired:
		return "retired"
	default:
		return "unknown"
	}
}

// Entry is a single cached record. Its links, value and state are guarded by
// its own lock, and that lock is only ever taken with TryLock.
type Entry[K comparable, V any] struct {
	key   K
	value V
	state entryState
	prev  *Entry[K, V]
	next  *Entry[K, V]
	mutex sync.Mutex
}

func newEntry[K comparable, V any](key K, value V) *Entry[K, V] {
	return &Entry[K, V]{key: key, value: value}
}

// newLockedEntry returns a fresh entry already held by the caller. Nobody
// else can see the entry yet, so the spin never actually waits.
func newLockedEntry[K comparable, V any](key K, value V) *Entry[K, V] {
	entry := newEntry(key, value)
	entry.spinLock()
	return entry
}

func newSentinel[K comparable, V any]() *Entry[K, V] {
	return &Entry[K, V]{state: entryLinked}
}

// Key is immutable and safe to read without the lock.
func (e *Entry[K, V]) Key() K { return e.key }

// TryLock never waits. Go mutexes are not re-entrant: a goroutine must not
// try to lock an entry it already holds.
func (e *Entry[K, V]) TryLock() bool { return e.mutex.TryLock() }

func (e *Entry[K, V]) Unlock() { e.mutex.Unlock() }

// spinLock retries TryLock, yielding between attempts. Callers must not hold
// any other entry lock while spinning.
func (e *Entry[K, V]) spinLock() {
	for !e.TryLock() {
		runtime.Gosched()
	}
}
