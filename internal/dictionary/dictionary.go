// Package dictionary binds a membership filter, a present-word cache, an
// absent-word cache and the backing word-list files into one Index that
// answers optimistic queries and authoritative challenges.
package dictionary

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/word-verifier/internal/dictionary/cache"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/internal/dictionary/eviction"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/internal/dictionary/filter"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/internal/dictionary/search"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/metrics"
)

// Options controls filter sizing and cache capacities.
type Options struct {
	// FilterBits fixes the bit-array length; 0 derives it from the token
	// count of the backing files and FalsePositiveRate.
	FilterBits        uint
	FalsePositiveRate float64
	HashAlgorithms    []string
	PresentCacheSize  int
	AbsentCacheSize   int
	Metrics           *metrics.Metrics
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		FalsePositiveRate: 0.01,
		HashAlgorithms:    []string{"SHA1", "MD5"},
		PresentCacheSize:  400,
		AbsentCacheSize:   100,
	}
}

// OptionsFromConfig builds Options from the dictionary config section.
func OptionsFromConfig(cfg config.DictionaryConfig, m *metrics.Metrics) Options {
	return Options{
		FilterBits:        cfg.FilterBits,
		FalsePositiveRate: cfg.FalsePositiveRate,
		HashAlgorithms:    cfg.HashAlgorithms,
		PresentCacheSize:  cfg.PresentCacheSize,
		AbsentCacheSize:   cfg.AbsentCacheSize,
		Metrics:           m,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.FalsePositiveRate <= 0 || o.FalsePositiveRate >= 1 {
		o.FalsePositiveRate = d.FalsePositiveRate
	}
	if len(o.HashAlgorithms) == 0 {
		o.HashAlgorithms = d.HashAlgorithms
	}
	if o.PresentCacheSize <= 0 {
		o.PresentCacheSize = d.PresentCacheSize
	}
	if o.AbsentCacheSize <= 0 {
		o.AbsentCacheSize = d.AbsentCacheSize
	}
	return o
}

// Index is safe for concurrent use. A single mutex guards the filter and
// both caches; authoritative scans run outside it.
type Index struct {
	mu      sync.Mutex
	name    string
	files   []string
	filter  *filter.Filter
	present *cache.ResultCache
	absent  *cache.ResultCache

	words        uint
	loadDuration time.Duration
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// Open scans files once to populate the membership filter. Unknown hash
// algorithms and missing files fail here.
func Open(ctx context.Context, opts Options, files ...string) (*Index, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("opening dictionary: no files given")
	}
	opts = opts.withDefaults()
	if err := filter.CheckAlgorithms(opts.HashAlgorithms...); err != nil {
		return nil, fmt.Errorf("opening dictionary %s: %w", files[0], err)
	}

	start := time.Now()
	name := strings.Join(files, ",")
	logger := slog.Default().With("component", "dictionary", "dictionary", filepath.Base(name))

	bits := opts.FilterBits
	if bits == 0 {
		var total uint
		for _, path := range files {
			n, err := search.CountTokens(ctx, path)
			if err != nil {
				return nil, fmt.Errorf("sizing filter for %s: %w", path, err)
			}
			total += n
		}
		bits = filter.OptimalBits(total, opts.FalsePositiveRate)
		if k := filter.OptimalK(total, opts.FalsePositiveRate); int(k) != len(opts.HashAlgorithms) {
			logger.Debug("hash count differs from optimum",
				"configured", len(opts.HashAlgorithms),
				"optimal", k,
			)
		}
	}

	f, err := filter.New(bits, opts.HashAlgorithms...)
	if err != nil {
		return nil, fmt.Errorf("opening dictionary %s: %w", name, err)
	}

	var words uint
	for _, path := range files {
		err := search.ForEachToken(ctx, path, func(tok string) error {
			f.Add(tok)
			words++
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("loading dictionary %s: %w", path, err)
		}
	}

	idx := &Index{
		name:         name,
		files:        append([]string(nil), files...),
		filter:       f,
		present:      cache.New(opts.PresentCacheSize, eviction.Recency),
		absent:       cache.New(opts.AbsentCacheSize, eviction.Frequency),
		words:        words,
		loadDuration: time.Since(start),
		metrics:      opts.Metrics,
		logger:       logger,
	}
	idx.metrics.ObserveDictionaryLoad(filepath.Base(name), idx.loadDuration, f.FillRatio())
	logger.Info("dictionary loaded",
		"files", len(files),
		"words", words,
		"filter_bits", bits,
		"hashes", f.Algorithms(),
		"fill_ratio", f.FillRatio(),
		"duration", idx.loadDuration,
	)
	return idx, nil
}

// Query answers from the caches first, then trusts the membership filter.
// A filter false positive is cached as present until a challenge corrects
// it.
func (d *Index) Query(word string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.present.Contains(word) {
		d.metrics.ObserveLookup(metrics.TierPresentCache)
		return true
	}
	if d.absent.Contains(word) {
		d.metrics.ObserveLookup(metrics.TierAbsentCache)
		return false
	}
	if d.filter.Contains(word) {
		d.metrics.ObserveLookup(metrics.TierFilterPositive)
		d.addPresent(word)
		return true
	}
	d.metrics.ObserveLookup(metrics.TierFilterNegative)
	d.addAbsent(word)
	return false
}

// Challenge scans the backing files and records the authoritative answer,
// moving the word out of the opposite cache if an earlier query put it
// there. Answers already returned to callers are not revisited.
func (d *Index) Challenge(ctx context.Context, word string) (bool, error) {
	found, err := search.Search(ctx, word, d.files...)
	if err != nil {
		return false, fmt.Errorf("challenging %q in %s: %w", word, d.name, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.metrics.ObserveLookup(metrics.TierAuthoritative)
	if found {
		if d.absent.Remove(word) {
			d.logger.Debug("challenge corrected absent entry", "word", word)
		}
		d.addPresent(word)
	} else {
		if d.present.Remove(word) {
			d.logger.Debug("challenge corrected false positive", "word", word)
		}
		d.addAbsent(word)
	}
	return found, nil
}

func (d *Index) addPresent(word string) {
	if _, evicted := d.present.Add(word); evicted {
		d.metrics.ObserveEviction("present")
	}
}

func (d *Index) addAbsent(word string) {
	if _, evicted := d.absent.Add(word); evicted {
		d.metrics.ObserveEviction("absent")
	}
}

// Stats is a point-in-time view of an Index.
type Stats struct {
	Name                string   `json:"name"`
	Files               []string `json:"files"`
	Words               uint     `json:"words"`
	FilterBits          uint     `json:"filter_bits"`
	HashAlgorithms      []string `json:"hash_algorithms"`
	FillRatio           float64  `json:"fill_ratio"`
	EstimatedFPRate     float64  `json:"estimated_fp_rate"`
	PresentCached       int      `json:"present_cached"`
	PresentCapacity     int      `json:"present_capacity"`
	AbsentCached        int      `json:"absent_cached"`
	AbsentCapacity      int      `json:"absent_capacity"`
	LoadDurationSeconds float64  `json:"load_duration_seconds"`
}

// Stats returns the current filter and cache occupancy.
func (d *Index) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Stats{
		Name:                d.name,
		Files:               append([]string(nil), d.files...),
		Words:               d.words,
		FilterBits:          d.filter.Cap(),
		HashAlgorithms:      d.filter.Algorithms(),
		FillRatio:           d.filter.FillRatio(),
		EstimatedFPRate:     d.filter.EstimatedFalsePositiveRate(),
		PresentCached:       d.present.Len(),
		PresentCapacity:     d.present.Cap(),
		AbsentCached:        d.absent.Len(),
		AbsentCapacity:      d.absent.Cap(),
		LoadDurationSeconds: d.loadDuration.Seconds(),
	}
}

// Name returns the comma-joined file list the index was opened with.
func (d *Index) Name() string {
	return d.name
}
