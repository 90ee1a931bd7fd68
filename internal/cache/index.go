package cache

import (
	"hash/maphash"
	"sync"
	"sync/atomic"
)

const indexShards = 32

type indexShard[K comparable, V any] struct {
	entries map[K]*Entry[K, V]
	mu      sync.RWMutex
}

// Index is a sharded concurrent map from key to entry. Get-or-insert is
// atomic per key; the count is maintained alongside every mutation.
type Index[K comparable, V any] struct {
	shards []*indexShard[K, V]
	seed   maphash.Seed
	count  atomic.Int64
}

func NewIndex[K comparable, V any]() *Index[K, V] {
	index := &Index[K, V]{
		shards: make([]*indexShard[K, V], indexShards),
		seed:   maphash.MakeSeed(),
	}
	for i := range index.shards {
		index.shards[i] = &indexShard[K, V]{entries: make(map[K]*Entry[K, V])}
	}
	return index
}

func (ix *Index[K, V]) shardFor(key K) *indexShard[K, V] {
	return ix.shards[maphash.Comparable(ix.seed, key)%indexShards]
}

// GetOrInsert returns the entry stored under key. When there is none, create
// is called under the shard lock and its result is installed; inserted
// reports whether that happened in this call.
func (ix *Index[K, V]) GetOrInsert(key K, create func(K) *Entry[K, V]) (entry *Entry[K, V], inserted bool) {
	shard := ix.shardFor(key)

	shard.mu.RLock()
	entry, ok := shard.entries[key]
	shard.mu.RUnlock()
	if ok {
		return entry, false
	}

	shard.mu.Lock()
	defer shard.mu.Unlock()
	if entry, ok = shard.entries[key]; ok {
		return entry, false
	}
	entry = create(key)
	shard.entries[key] = entry
	ix.count.Add(1)
	return entry, true
}

func (ix *Index[K, V]) Get(key K) (*Entry[K, V], bool) {
	shard := ix.shardFor(key)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	entry, ok := shard.entries[key]
	return entry, ok
}

// Remove deletes key and returns the entry that was stored under it.
func (ix *Index[K, V]) Remove(key K) (*Entry[K, V], bool) {
	shard := ix.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	entry, ok := shard.entries[key]
	if !ok {
		return nil, false
	}
	delete(shard.entries, key)
	ix.count.Add(-1)
	return entry, true
}

func (ix *Index[K, V]) Len() int {
	return int(ix.count.Load())
}
