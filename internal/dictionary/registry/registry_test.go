package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/word-verifier/internal/dictionary"
	apperrors "github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/errors"
)

func setup(t *testing.T) (*Registry, string) {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"animals.txt": "cat dog\nbird",
		"fruit.txt":   "apple\nbanana pear",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	return New(dictionary.DefaultOptions(), dir), dir
}

func TestQueryAggregatesWithOR(t *testing.T) {
	r, _ := setup(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		files []string
		word  string
		want  bool
	}{
		{"first file", []string{"animals.txt"}, "cat", true},
		{"only in second", []string{"animals.txt", "fruit.txt"}, "banana", true},
		{"only in first", []string{"animals.txt", "fruit.txt"}, "bird", true},
		{"in neither", []string{"animals.txt", "fruit.txt"}, "zzzzz", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Query(ctx, tt.files, tt.word)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if got != tt.want {
				t.Errorf("Query(%v, %q) = %v, want %v", tt.files, tt.word, got, tt.want)
			}
		})
	}
	if r.Size() != 2 {
		t.Errorf("Size = %d, want 2", r.Size())
	}
}

func TestChallengeAggregatesWithOR(t *testing.T) {
	r, _ := setup(t)
	ctx := context.Background()

	got, err := r.Challenge(ctx, []string{"animals.txt", "fruit.txt"}, "pear")
	if err != nil || !got {
		t.Fatalf("Challenge(pear) = %v, %v", got, err)
	}
	got, err = r.Challenge(ctx, []string{"animals.txt", "fruit.txt"}, "zzzzz")
	if err != nil || got {
		t.Fatalf("Challenge(zzzzz) = %v, %v", got, err)
	}
}

func TestEveryFileConsulted(t *testing.T) {
	r, _ := setup(t)
	ctx := context.Background()

	if _, err := r.Query(ctx, []string{"animals.txt", "fruit.txt"}, "cat"); err != nil {
		t.Fatalf("Query: %v", err)
	}
	for _, st := range r.Stats() {
		if st.PresentCached+st.AbsentCached != 1 {
			t.Errorf("%s cached %d entries, want 1", st.Name, st.PresentCached+st.AbsentCached)
		}
	}
}

func TestMissingFileDoesNotCorruptRegistry(t *testing.T) {
	r, _ := setup(t)
	ctx := context.Background()

	if _, err := r.Query(ctx, []string{"animals.txt"}, "cat"); err != nil {
		t.Fatalf("Query: %v", err)
	}
	_, err := r.Query(ctx, []string{"animals.txt", "missing.txt"}, "cat")
	if !errors.Is(err, apperrors.ErrDictionaryNotFound) {
		t.Fatalf("error = %v, want ErrDictionaryNotFound", err)
	}
	if r.Size() != 1 {
		t.Fatalf("Size = %d after failed construction, want 1", r.Size())
	}
	got, err := r.Query(ctx, []string{"animals.txt"}, "dog")
	if err != nil || !got {
		t.Fatalf("Query(dog) = %v, %v", got, err)
	}
}

func TestFailedConstructionRetries(t *testing.T) {
	r, dir := setup(t)
	ctx := context.Background()

	if _, err := r.Get(ctx, "late.txt"); err == nil {
		t.Fatal("expected error for missing file")
	}
	if err := os.WriteFile(filepath.Join(dir, "late.txt"), []byte("owl"), 0644); err != nil {
		t.Fatalf("writing: %v", err)
	}
	got, err := r.Query(ctx, []string{"late.txt"}, "owl")
	if err != nil || !got {
		t.Fatalf("Query(owl) = %v, %v", got, err)
	}
}

func TestConcurrentFirstReferenceBuildsOnce(t *testing.T) {
	r, _ := setup(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]*dictionary.Index, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			idx, err := r.Get(ctx, "animals.txt")
			if err != nil {
				t.Errorf("Get: %v", err)
				return
			}
			results[i] = idx
		}(i)
	}
	wg.Wait()
	for i, idx := range results {
		if idx != results[0] {
			t.Fatalf("result %d is a different index", i)
		}
	}
	if r.Size() != 1 {
		t.Errorf("Size = %d, want 1", r.Size())
	}
}

func TestAbsolutePathIgnoresBaseDir(t *testing.T) {
	r, dir := setup(t)
	abs := filepath.Join(dir, "fruit.txt")
	a, err := r.Get(context.Background(), abs)
	if err != nil {
		t.Fatalf("Get(abs): %v", err)
	}
	b, err := r.Get(context.Background(), "fruit.txt")
	if err != nil {
		t.Fatalf("Get(rel): %v", err)
	}
	if a != b {
		t.Error("relative and absolute ids of one file built two indexes")
	}
}

func TestPreload(t *testing.T) {
	r, _ := setup(t)
	if err := r.Preload(context.Background(), []string{"animals.txt", "fruit.txt"}); err != nil {
		t.Fatalf("Preload: %v", err)
	}
	stats := r.Stats()
	if len(stats) != 2 {
		t.Fatalf("Stats len = %d, want 2", len(stats))
	}
	if stats[0].Name > stats[1].Name {
		t.Error("Stats not ordered by name")
	}

	err := r.Preload(context.Background(), []string{"nope.txt"})
	if !errors.Is(err, apperrors.ErrDictionaryNotFound) {
		t.Errorf("Preload missing: error = %v", err)
	}
}
