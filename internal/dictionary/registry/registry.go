// Package registry maps backing word-list files to their dictionary
// indexes. An index is built the first time its file is referenced and kept
// for the lifetime of the Registry; aggregate queries and challenges OR the
// per-file answers.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/word-verifier/internal/dictionary"
)

// Registry is safe for concurrent use. Concurrent first references to the
// same file share one construction.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*dictionary.Index
	group   singleflight.Group

	baseDir string
	opts    dictionary.Options
	logger  *slog.Logger
}

// New creates an empty Registry. Relative file ids resolve against baseDir.
func New(opts dictionary.Options, baseDir string) *Registry {
	return &Registry{
		entries: make(map[string]*dictionary.Index),
		baseDir: baseDir,
		opts:    opts,
		logger:  slog.Default().With("component", "registry"),
	}
}

// Query runs an optimistic lookup against every named file and reports
// whether any of them holds word. Every file is consulted so each index's
// caches see the word.
func (r *Registry) Query(ctx context.Context, files []string, word string) (bool, error) {
	var found bool
	for _, file := range files {
		idx, err := r.Get(ctx, file)
		if err != nil {
			return false, err
		}
		if idx.Query(word) {
			found = true
		}
	}
	return found, nil
}

// Challenge runs an authoritative lookup against every named file. An I/O
// error on any file fails the whole challenge.
func (r *Registry) Challenge(ctx context.Context, files []string, word string) (bool, error) {
	var found bool
	for _, file := range files {
		idx, err := r.Get(ctx, file)
		if err != nil {
			return false, err
		}
		ok, err := idx.Challenge(ctx, word)
		if err != nil {
			return false, err
		}
		if ok {
			found = true
		}
	}
	return found, nil
}

// Get returns the index for file, building it on first use. A failed build
// leaves no entry behind, so a later reference retries.
func (r *Registry) Get(ctx context.Context, file string) (*dictionary.Index, error) {
	key := r.resolve(file)

	r.mu.RLock()
	idx, ok := r.entries[key]
	r.mu.RUnlock()
	if ok {
		return idx, nil
	}

	v, err, shared := r.group.Do(key, func() (any, error) {
		r.mu.RLock()
		idx, ok := r.entries[key]
		r.mu.RUnlock()
		if ok {
			return idx, nil
		}

		start := time.Now()
		idx, err := dictionary.Open(ctx, r.opts, key)
		if err != nil {
			r.logger.Error("dictionary construction failed", "file", key, "error", err)
			return nil, err
		}

		r.mu.Lock()
		r.entries[key] = idx
		size := len(r.entries)
		r.mu.Unlock()

		r.logger.Info("dictionary registered",
			"file", key,
			"dictionaries", size,
			"duration", time.Since(start),
		)
		return idx, nil
	})
	if err != nil {
		return nil, fmt.Errorf("materializing dictionary %s: %w", file, err)
	}
	if shared {
		r.logger.Debug("dictionary construction shared", "file", key)
	}
	return v.(*dictionary.Index), nil
}

// Preload materializes files concurrently and returns the first error.
func (r *Registry) Preload(ctx context.Context, files []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, file := range files {
		g.Go(func() error {
			_, err := r.Get(gctx, file)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("preloading dictionaries: %w", err)
	}
	r.logger.Info("dictionaries preloaded", "count", len(files))
	return nil
}

// Size returns the number of materialized dictionaries.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Stats returns every materialized dictionary's stats, ordered by name.
func (r *Registry) Stats() []dictionary.Stats {
	r.mu.RLock()
	indexes := make([]*dictionary.Index, 0, len(r.entries))
	for _, idx := range r.entries {
		indexes = append(indexes, idx)
	}
	r.mu.RUnlock()

	stats := make([]dictionary.Stats, 0, len(indexes))
	for _, idx := range indexes {
		stats = append(stats, idx.Stats())
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}

func (r *Registry) resolve(file string) string {
	if r.baseDir == "" || filepath.IsAbs(file) {
		return filepath.Clean(file)
	}
	return filepath.Join(r.baseDir, file)
}
