package metrics

import (
	"context"
	"testing"
	"time"
)

func TestSampleSystem(t *testing.T) {
	SampleSystem(func() int { return 42 })

	snapshot := Snapshot()
	if snapshot.CacheSize != 42 {
		t.Errorf("Expected cache size 42, got %d", snapshot.CacheSize)
	}
	if snapshot.HeapAllocBytes == 0 || snapshot.Goroutines == 0 {
		t.Error("runtime stats not sampled")
	}
}

func TestStartSystemMonitorStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	StartSystemMonitor(ctx, 5*time.Millisecond, func() int { return 7 })

	deadline := time.Now().Add(time.Second)
	for Snapshot().CacheSize != 7 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if Snapshot().CacheSize != 7 {
		t.Error("monitor never sampled the cache size")
	}
}
