package testing

import (
	"lccache/internal/config"
	"lccache/internal/core"
	"os"
	"testing"
)

type TestSystemFactory struct {
	t       *testing.T
	RootDir string
}

func NewTestFactory(t *testing.T) *TestSystemFactory {
	dir := "./test_data_factory_" + t.Name()
	os.RemoveAll(dir)
	os.MkdirAll(dir, 0755)

	return &TestSystemFactory{
		t:       t,
		RootDir: dir,
	}
}

func (f *TestSystemFactory) Cleanup() {
	os.RemoveAll(f.RootDir)
}

func (f *TestSystemFactory) CreateSystem(opts ...func(*config.SystemConfiguration)) *core.SystemState {
	cfg := config.DefaultConfiguration()
	cfg.LogDirectoryPath = f.RootDir
	cfg.CacheCapacityCount = 16
	cfg.MaximumCpuCount = 1

	for _, opt := range opts {
		opt(&cfg)
	}

	state, err := core.NewSystemState(cfg)
	if err != nil {
		f.t.Fatalf("Factory failed to create system: %v", err)
	}
	return state
}

// Populate writes key/value pairs in order, so the last pair ends up most recently used.
func (f *TestSystemFactory) Populate(state *core.SystemState, pairs ...string) {
	if len(pairs)%2 != 0 {
		f.t.Fatalf("Populate needs key/value pairs, got %d strings", len(pairs))
	}
	for i := 0; i < len(pairs); i += 2 {
		if err := state.KeyCache.AddOrUpdate(pairs[i], []byte(pairs[i+1])); err != nil {
			f.t.Fatalf("Populate %q: %v", pairs[i], err)
		}
	}
}
