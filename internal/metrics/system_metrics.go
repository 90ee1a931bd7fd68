package metrics

import (
	"sync/atomic"
)

type SystemMetricsRegistry struct {
	WriteOperationsCount int64  `json:"write_operations_count"`
	ReadOperationsCount  int64  `json:"read_operations_count"`
	CacheHitCount        int64  `json:"cache_hit_count"`
	CacheMissCount       int64  `json:"cache_miss_count"`
	EvictionCount        int64  `json:"eviction_count"`
	LockRetryCount       int64  `json:"lock_retry_count"`
	InconsistencyCount   int64  `json:"inconsistency_count"`
	CacheSize            int64  `json:"cache_size"`
	HeapAllocBytes       uint64 `json:"heap_alloc_bytes"`
	Goroutines           int64  `json:"goroutines"`
}

var Global SystemMetricsRegistry

func IncrementWriteOperationsCount() {
	atomic.AddInt64(&Global.WriteOperationsCount, 1)
}

func IncrementReadOperationsCount() {
	atomic.AddInt64(&Global.ReadOperationsCount, 1)
}

func IncrementCacheHitCount() {
	atomic.AddInt64(&Global.CacheHitCount, 1)
}

func IncrementCacheMissCount() {
	atomic.AddInt64(&Global.CacheMissCount, 1)
}

func IncrementEvictionCount() {
	atomic.AddInt64(&Global.EvictionCount, 1)
}

// IncrementLockRetryCount counts failed lock-coupling attempts in the recency list.
func IncrementLockRetryCount() {
	atomic.AddInt64(&Global.LockRetryCount, 1)
}

// IncrementInconsistencyCount counts eviction passes that found the recency
// list empty while the index was over capacity.
func IncrementInconsistencyCount() {
	atomic.AddInt64(&Global.InconsistencyCount, 1)
}

func SetCacheSize(size int) {
	atomic.StoreInt64(&Global.CacheSize, int64(size))
}

// Reset zeroes every counter.
func Reset() {
	Global.store(SystemMetricsRegistry{})
}

// Snapshot returns a consistent-enough copy for the API.
func Snapshot() SystemMetricsRegistry {
	return SystemMetricsRegistry{
		WriteOperationsCount: atomic.LoadInt64(&Global.WriteOperationsCount),
		ReadOperationsCount:  atomic.LoadInt64(&Global.ReadOperationsCount),
		CacheHitCount:        atomic.LoadInt64(&Global.CacheHitCount),
		CacheMissCount:       atomic.LoadInt64(&Global.CacheMissCount),
		EvictionCount:        atomic.LoadInt64(&Global.EvictionCount),
		LockRetryCount:       atomic.LoadInt64(&Global.LockRetryCount),
		InconsistencyCount:   atomic.LoadInt64(&Global.InconsistencyCount),
		CacheSize:            atomic.LoadInt64(&Global.CacheSize),
		HeapAllocBytes:       atomic.LoadUint64(&Global.HeapAllocBytes),
		Goroutines:           atomic.LoadInt64(&Global.Goroutines),
	}
}

func (r *SystemMetricsRegistry) store(v SystemMetricsRegistry) {
	atomic.StoreInt64(&r.WriteOperationsCount, v.WriteOperationsCount)
	atomic.StoreInt64(&r.ReadOperationsCount, v.ReadOperationsCount)
	atomic.StoreInt64(&r.CacheHitCount, v.CacheHitCount)
	atomic.StoreInt64(&r.CacheMissCount, v.CacheMissCount)
	atomic.StoreInt64(&r.EvictionCount, v.EvictionCount)
	atomic.StoreInt64(&r.LockRetryCount, v.LockRetryCount)
	atomic.StoreInt64(&r.InconsistencyCount, v.InconsistencyCount)
	atomic.StoreInt64(&r.CacheSize, v.CacheSize)
	atomic.StoreUint64(&r.HeapAllocBytes, v.HeapAllocBytes)
	atomic.StoreInt64(&r.Goroutines, v.Goroutines)
}

// GetCurrentState returns the headline counters for log lines.
func GetCurrentState() map[string]int64 {
	return map[string]int64{
		"write_ops":    atomic.LoadInt64(&Global.WriteOperationsCount),
		"read_ops":     atomic.LoadInt64(&Global.ReadOperationsCount),
		"cache_hits":   atomic.LoadInt64(&Global.CacheHitCount),
		"cache_misses": atomic.LoadInt64(&Global.CacheMissCount),
		"evictions":    atomic.LoadInt64(&Global.EvictionCount),
	}
}
