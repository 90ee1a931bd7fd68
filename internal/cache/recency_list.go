package cache

import (
	"runtime"

	"lccache/internal/metrics"
)

// RecencyList is a doubly linked chain of entries between two permanent
// sentinels, ordered most recently used (after head) to least recently used
// (before tail).
//
// Every splice holds the locks of the three entries it touches for its whole
// duration. Locks are only taken with TryLock; a failed attempt releases
// everything acquired so far and the whole step is retried after yielding.
type RecencyList[K comparable, V any] struct {
	head             *Entry[K, V]
	tail             *Entry[K, V]
	logger           Logger
	retryLogInterval int
}

func NewRecencyList[K comparable, V any](logger Logger, retryLogInterval int) *RecencyList[K, V] {
	if logger == nil {
		logger = defaultLogger
	}
	if retryLogInterval <= 0 {
		retryLogInterval = DefaultRetryLogInterval
	}

	head, tail := newSentinel[K, V](), newSentinel[K, V]()
	head.next = tail
	tail.prev = head

	return &RecencyList[K, V]{
		head:             head,
		tail:             tail,
		logger:           logger,
		retryLogInterval: retryLogInterval,
	}
}

// PushFront links an unlinked entry right after the head sentinel. It is a
// no-op when the entry is already linked or has been retired.
func (l *RecencyList[K, V]) PushFront(entry *Entry[K, V]) {
	l.pushFront(entry, false)
}

// pushFrontHeld is PushFront for an entry whose lock the caller already
// holds. The lock is still held on return.
func (l *RecencyList[K, V]) pushFrontHeld(entry *Entry[K, V]) {
	l.pushFront(entry, true)
}

func (l *RecencyList[K, V]) pushFront(entry *Entry[K, V], held bool) {
	for attempt := 1; !l.tryPushFront(entry, held); attempt++ {
		l.backoff("push front", entry.key, attempt)
	}
}

// tryPushFront makes a single locking attempt. It returns false only when a
// lock could not be taken.
func (l *RecencyList[K, V]) tryPushFront(entry *Entry[K, V], held bool) bool {
	head := l.head
	if !head.TryLock() {
		return false
	}
	defer head.Unlock()

	if !held {
		if !entry.TryLock() {
			return false
		}
		defer entry.Unlock()
	}

	if entry.state == entryLinked || entry.state == entryRetired {
		return true
	}
	next := head.next
	if next == entry {
		return true
	}
	if !next.TryLock() {
		return false
	}
	defer next.Unlock()

	entry.prev = head
	entry.next = next
	head.next = entry
	next.prev = entry
	entry.state = entryLinked
	return true
}

// Remove unlinks the entry from wherever it sits. It returns true when this
// call detached the entry and false when it was already out of the list.
func (l *RecencyList[K, V]) Remove(entry *Entry[K, V]) bool {
	return l.remove(entry, false)
}

// retire detaches the entry for good. Once it returns the entry is out of the
// list and will never be linked again, whichever goroutine detached it.
func (l *RecencyList[K, V]) retire(entry *Entry[K, V]) bool {
	return l.remove(entry, true)
}

func (l *RecencyList[K, V]) remove(entry *Entry[K, V], retire bool) bool {
	for attempt := 1; ; attempt++ {
		removed, done := l.tryRemove(entry, retire)
		if done {
			return removed
		}
		l.backoff("remove", entry.key, attempt)
	}
}

func (l *RecencyList[K, V]) tryRemove(entry *Entry[K, V], retire bool) (removed, done bool) {
	if !entry.TryLock() {
		return false, false
	}
	if entry.state != entryLinked {
		if retire {
			entry.state = entryRetired
		}
		entry.Unlock()
		return false, true
	}
	prev := entry.prev
	entry.Unlock()

	if !prev.TryLock() {
		return false, false
	}
	defer prev.Unlock()
	// entry moved between releasing it and locking prev
	if prev.next != entry {
		return false, false
	}

	if !entry.TryLock() {
		return false, false
	}
	defer entry.Unlock()

	next := entry.next
	if !next.TryLock() {
		return false, false
	}
	defer next.Unlock()

	prev.next = next
	next.prev = prev
	entry.prev, entry.next = nil, nil
	if retire {
		entry.state = entryRetired
	} else {
		entry.state = entryUnlinked
	}
	return true, true
}

// Promote moves a linked entry right after the head sentinel. Between the
// remove and the re-insert the entry is reachable from the index only.
func (l *RecencyList[K, V]) Promote(entry *Entry[K, V]) {
	if l.head.TryLock() {
		atFront := l.head.next == entry
		l.head.Unlock()
		if atFront {
			return
		}
	}
	// a concurrent promote or eviction already detached it
	if l.Remove(entry) {
		l.PushFront(entry)
	}
}

// Front returns the most recently used entry, or nil when the list is empty.
// The result is a snapshot; no lock is held on return.
func (l *RecencyList[K, V]) Front() *Entry[K, V] {
	l.head.spinLock()
	first := l.head.next
	l.head.Unlock()

	if first == l.tail {
		return nil
	}
	return first
}

// Back returns the least recently used entry, or nil when the list is empty.
// The result is a snapshot; no lock is held on return.
func (l *RecencyList[K, V]) Back() *Entry[K, V] {
	l.tail.spinLock()
	last := l.tail.prev
	l.tail.Unlock()

	if last == l.head {
		return nil
	}
	return last
}

// walk visits entries from head to tail, holding one entry lock at a time.
// Under concurrent mutation it may stop early or see an entry twice; use it
// on a quiesced list.
func (l *RecencyList[K, V]) walk(visit func(entry *Entry[K, V]) bool) {
	current := l.head
	for {
		current.spinLock()
		next := current.next
		current.Unlock()

		if next == nil || next == l.tail {
			return
		}
		if !visit(next) {
			return
		}
		current = next
	}
}

// Len counts the entries between the sentinels.
func (l *RecencyList[K, V]) Len() int {
	count := 0
	l.walk(func(*Entry[K, V]) bool {
		count++
		return true
	})
	return count
}

func (l *RecencyList[K, V]) backoff(operation string, key K, attempt int) {
	metrics.IncrementLockRetryCount()
	if attempt%l.retryLogInterval == 0 {
		l.logger.Info("retry %s key=%v attempts=%d", operation, key, attempt)
	}
	runtime.Gosched()
}
