package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"lccache/internal/cache"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// glogSink routes cache diagnostics to glog.
type glogSink struct{}

func (glogSink) Info(format string, args ...interface{}) { glog.Infof(format, args...) }
func (glogSink) Warn(format string, args ...interface{}) { glog.Warningf(format, args...) }

var workloadKeys = []string{"one", "two", "three"}

func main() {
	if err := run(os.Args[1:]); err != nil {
		glog.Fatal("run failed: " + err.Error())
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("stress", flag.ContinueOnError)
	capacity := fs.Int("capacity", 2, "Cache capacity used by the parallel workload")
	workers := fs.Int("workers", 8, "Concurrent goroutines per workload")
	iterations := fs.Int("iterations", 10000, "Operations per goroutine")
	if err := fs.Parse(args); err != nil {
		return err
	}
	defer glog.Flush()

	if err := checkCornerCases(); err != nil {
		return errors.Wrap(err, "corner cases")
	}
	glog.Info("corner cases passed")

	if err := checkEviction(); err != nil {
		return errors.Wrap(err, "eviction")
	}
	glog.Info("eviction passed")

	c, err := cache.NewLruCache[string, int](*capacity, cache.WithLogger(glogSink{}))
	if err != nil {
		return errors.Wrap(err, "failed to create cache")
	}
	if err := runParallelWorkload(context.Background(), c, *workers, *iterations); err != nil {
		return errors.Wrap(err, "parallel workload")
	}
	if err := c.CheckConsistency(); err != nil {
		return errors.Wrap(err, "consistency after parallel workload")
	}
	glog.Infof("parallel workload passed: workers=%d iterations=%d size=%d", *workers, *iterations, c.Len())
	fmt.Println("OK")
	return nil
}

func checkCornerCases() error {
	if _, err := cache.NewLruCache[string, int](0); !errors.Is(err, cache.ErrInvalidCapacity) {
		return errors.Errorf("capacity 0 accepted: %v", err)
	}

	c, err := cache.NewLruCache[string, int](1, cache.WithLogger(glogSink{}))
	if err != nil {
		return err
	}
	if err := c.AddOrUpdate("", 1); !errors.Is(err, cache.ErrInvalidKey) {
		return errors.Errorf("empty key accepted: %v", err)
	}
	if err := c.AddOrUpdate("one", 1); err != nil {
		return err
	}
	if err := c.AddOrUpdate("two", 2); err != nil {
		return err
	}
	if _, ok := c.TryGet("one"); ok {
		return errors.New("key one survived at capacity 1")
	}
	if v, ok := c.TryGet("two"); !ok || v != 2 {
		return errors.Errorf("key two = %d, %t", v, ok)
	}
	return c.CheckConsistency()
}

func checkEviction() error {
	c, err := cache.NewLruCache[string, int](2, cache.WithLogger(glogSink{}))
	if err != nil {
		return err
	}
	for i, key := range workloadKeys[:2] {
		if err := c.AddOrUpdate(key, i+1); err != nil {
			return err
		}
	}
	// touching one leaves two as the eviction victim
	if _, ok := c.TryGet("one"); !ok {
		return errors.New("key one missing before eviction")
	}
	if err := c.AddOrUpdate("three", 3); err != nil {
		return err
	}
	if _, ok := c.TryGet("two"); ok {
		return errors.New("least recently used key two was not evicted")
	}
	for _, key := range []string{"one", "three"} {
		if _, ok := c.TryGet(key); !ok {
			return errors.Errorf("key %s evicted out of order", key)
		}
	}
	return c.CheckConsistency()
}

// tagFor maps a workload key to the digit every value written under it ends in.
func tagFor(key string) int {
	for i, k := range workloadKeys {
		if k == key {
			return i + 1
		}
	}
	return 0
}

// runParallelWorkload writes and reads the workload keys from every worker.
// Each value carries its key's tag so a read that returns another key's
// value is detected.
func runParallelWorkload(ctx context.Context, c *cache.LruCache[string, int], workers, iterations int) error {
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := 0; i < iterations; i++ {
				if i%1024 == 0 && ctx.Err() != nil {
					return nil
				}
				key := workloadKeys[(w+i)%len(workloadKeys)]
				tag := tagFor(key)
				if err := c.AddOrUpdate(key, i*10+tag); err != nil {
					return err
				}
				probe := workloadKeys[(w+i+1)%len(workloadKeys)]
				if v, ok := c.TryGet(probe); ok && v%10 != tagFor(probe) {
					return errors.Errorf("worker %d read %d under %s", w, v, probe)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if size, limit := c.Len(), c.Capacity()+c.SizeVariance(); size > limit {
		return errors.Errorf("size %d exceeds capacity plus variance %d", size, limit)
	}
	return nil
}
