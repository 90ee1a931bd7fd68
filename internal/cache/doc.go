// Package cache implements a bounded, concurrency-safe key-value cache with
// least recently used eviction.
//
// Lookups go through a sharded Index. Recency is tracked by a RecencyList
// whose splices lock the previous, current and next entries (lock coupling)
// using TryLock only, so no goroutine ever waits while holding a lock and
// contention turns into retries instead of deadlocks.
//
// The cache may run over capacity by a small size variance while another
// goroutine is evicting, and recency order is approximate while promotions
// and evictions race.
package cache
