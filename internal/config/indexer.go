package config

import (
	"fmt"

	"github.com/mvp-joe/symgraph/internal/adapters"
	"github.com/mvp-joe/symgraph/internal/indexer"
)

// Runtime is the engine assembled from a Config.
type Runtime struct {
	Adapters *adapters.Registry
	Indexer  *indexer.Indexer
	caches   []*adapters.CachedAdapter
}

// Close releases the extraction caches.
func (r *Runtime) Close() {
	for _, c := range r.caches {
		c.Close()
	}
	r.caches = nil
}

// Discovery returns file discovery rooted at rootDir using the configured
// patterns, limited to files an enabled adapter claims.
func (r *Runtime) Discovery(cfg *Config, rootDir string) (*indexer.FileDiscovery, error) {
	return indexer.NewFileDiscovery(rootDir, cfg.Paths.Code, cfg.Paths.Ignore, r.Adapters.Supports)
}

// NewRuntime builds the adapter registry (wrapped in caches when
// cache_size is positive) and an indexer over it for the project at root.
func (c *Config) NewRuntime(root string, progress indexer.ProgressReporter) (*Runtime, error) {
	reg, err := adapters.Default(c.Adapters.Enabled)
	if err != nil {
		return nil, fmt.Errorf("failed to build adapters: %w", err)
	}

	rt := &Runtime{Adapters: reg}
	if c.Indexer.CacheSize > 0 {
		var cacheErr error
		reg.Wrap(func(a adapters.Adapter) adapters.Adapter {
			cached, err := adapters.NewCachedAdapter(a, c.Indexer.CacheSize)
			if err != nil {
				cacheErr = err
				return a
			}
			rt.caches = append(rt.caches, cached)
			return cached
		})
		if cacheErr != nil {
			rt.Close()
			return nil, cacheErr
		}
	}

	deny, err := indexer.NewDenyList(c.Limits.Deny)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.Indexer = indexer.New(reg,
		indexer.WithWorkers(c.Indexer.Workers),
		indexer.WithProgress(progress),
		indexer.WithRoot(root),
		indexer.WithMaxFileBytes(c.Limits.MaxFileBytes),
		indexer.WithDenyList(deny),
	)
	return rt, nil
}
