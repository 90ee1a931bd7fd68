package metrics

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"
)

// StartSystemMonitor samples heap usage, goroutine count and the cache size
// until ctx is cancelled.
func StartSystemMonitor(ctx context.Context, interval time.Duration, cacheSize func() int) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				SampleSystem(cacheSize)
			}
		}
	}()
}

func SampleSystem(cacheSize func() int) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	atomic.StoreUint64(&Global.HeapAllocBytes, m.HeapAlloc)
	atomic.StoreInt64(&Global.Goroutines, int64(runtime.NumGoroutine()))

	if cacheSize != nil {
		SetCacheSize(cacheSize())
	}
}
