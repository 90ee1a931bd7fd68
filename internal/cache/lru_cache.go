package cache

import (
	"runtime"
	"sync/atomic"

	"lccache/internal/logger"
	"lccache/internal/metrics"

	"github.com/pkg/errors"
)

const (
	DefaultSizeVariance     = 2
	DefaultRetryLogInterval = 100
	minimumCapacity         = 1
)

var (
	ErrInvalidCapacity = errors.New("cache capacity must be at least 1")
	ErrInvalidKey      = errors.New("cache key must not be the zero value")
)

// Logger receives diagnostic events only; nothing in the cache depends on
// what it does with them.
type Logger interface {
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
}

var defaultLogger Logger = logger.Sink{}

type Option func(*options)

type options struct {
	logger           Logger
	sizeVariance     int
	retryLogInterval int
}

func WithLogger(l Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSizeVariance sets how far the cache may run over capacity while
// another goroutine is already evicting.
func WithSizeVariance(variance int) Option {
	return func(o *options) {
		if variance >= 0 {
			o.sizeVariance = variance
		}
	}
}

// WithRetryLogInterval logs every n-th retry of a contended list operation.
func WithRetryLogInterval(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.retryLogInterval = n
		}
	}
}

// LruCache is a bounded key-value cache with least recently used eviction.
// The key index and the recency list are locked independently: the index per
// shard, the list per entry. Recency order is approximate under contention.
type LruCache[K comparable, V any] struct {
	capacity     int
	sizeVariance int
	itemsIndex   *Index[K, V]
	recencyList  *RecencyList[K, V]
	logger       Logger
	evicting     atomic.Bool
}

func NewLruCache[K comparable, V any](capacity int, opts ...Option) (*LruCache[K, V], error) {
	if capacity < minimumCapacity {
		return nil, errors.Wrapf(ErrInvalidCapacity, "got %d", capacity)
	}

	o := options{
		logger:           defaultLogger,
		sizeVariance:     DefaultSizeVariance,
		retryLogInterval: DefaultRetryLogInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &LruCache[K, V]{
		capacity:     capacity,
		sizeVariance: o.sizeVariance,
		itemsIndex:   NewIndex[K, V](),
		recencyList:  NewRecencyList[K, V](o.logger, o.retryLogInterval),
		logger:       o.logger,
	}, nil
}

func (c *LruCache[K, V]) Capacity() int     { return c.capacity }
func (c *LruCache[K, V]) SizeVariance() int { return c.sizeVariance }

// Len is the index-derived element count. It may run over capacity by up to
// the size variance while evictions catch up.
func (c *LruCache[K, V]) Len() int {
	return c.itemsIndex.Len()
}

// AddOrUpdate inserts the value or overwrites it in place and marks the key
// as most recently used.
func (c *LruCache[K, V]) AddOrUpdate(key K, value V) error {
	var zero K
	if key == zero {
		return ErrInvalidKey
	}

	for !c.addOrUpdate(key, value) {
		runtime.Gosched()
	}
	c.evictIfNeeded()
	return nil
}

// addOrUpdate returns false when the entry it found was evicted before the
// write could land, in which case the caller starts over.
func (c *LruCache[K, V]) addOrUpdate(key K, value V) bool {
	entry, created := c.itemsIndex.GetOrInsert(key, func(k K) *Entry[K, V] {
		return newLockedEntry(k, value)
	})
	if created {
		c.recencyList.pushFrontHeld(entry)
		entry.Unlock()
		return true
	}

	entry.spinLock()
	if entry.state == entryRetired {
		entry.Unlock()
		return false
	}
	entry.value = value
	entry.Unlock()

	c.recencyList.Promote(entry)
	return true
}

// TryGet returns a copy of the value and marks the key as most recently used.
func (c *LruCache[K, V]) TryGet(key K) (V, bool) {
	var zero V

	entry, ok := c.itemsIndex.Get(key)
	if !ok {
		return zero, false
	}

	entry.spinLock()
	if entry.state == entryRetired {
		entry.Unlock()
		return zero, false
	}
	value := entry.value
	entry.Unlock()

	c.recencyList.Promote(entry)
	return value, true
}

// Keys returns the keys in most to least recently used order.
func (c *LruCache[K, V]) Keys() []K {
	keys := make([]K, 0, c.itemsIndex.Len())
	c.recencyList.walk(func(entry *Entry[K, V]) bool {
		keys = append(keys, entry.key)
		return true
	})
	return keys
}

// evictIfNeeded shrinks the index back to capacity. Only one goroutine
// evicts at a time unless the overflow exceeds the size variance, in which
// case every inserting goroutine helps.
func (c *LruCache[K, V]) evictIfNeeded() {
	count := c.itemsIndex.Len()
	if count <= c.capacity {
		return
	}

	owner := c.evicting.CompareAndSwap(false, true)
	if !owner && count <= c.capacity+c.sizeVariance {
		return
	}
	if owner {
		defer c.evicting.Store(false)
	}

	for c.itemsIndex.Len() > c.capacity {
		if !c.evictLeastRecentlyUsed() {
			return
		}
	}
}

// evictLeastRecentlyUsed drops one entry from the tail end. It returns false
// when the list is empty although the index is over capacity.
func (c *LruCache[K, V]) evictLeastRecentlyUsed() bool {
	last := c.recencyList.Back()
	if last == nil {
		metrics.IncrementInconsistencyCount()
		c.logger.Warn("recency list is empty while index holds %d entries (capacity %d)", c.itemsIndex.Len(), c.capacity)
		return false
	}

	// the index goes first so no lookup can find the value being evicted
	victim, ok := c.itemsIndex.Remove(last.key)
	if !ok {
		// another goroutine is evicting the same entry
		runtime.Gosched()
		return true
	}

	if !c.recencyList.retire(victim) {
		c.logger.Info("evicted key=%v was already detached from the recency list", victim.key)
	}
	metrics.IncrementEvictionCount()
	return true
}
