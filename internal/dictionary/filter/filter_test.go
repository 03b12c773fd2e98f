package filter

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/errors"
)

func TestFilterBasic(t *testing.T) {
	f, err := New(256, "SHA1", "MD5")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.Add("cat")
	f.Add("dog")

	if !f.Contains("cat") {
		t.Error("expected cat to be present")
	}
	if !f.Contains("dog") {
		t.Error("expected dog to be present")
	}
	if f.Contains("zzzzz") {
		t.Log("warning: false positive for 'zzzzz'")
	}
	if f.Count() != 2 {
		t.Errorf("Count = %d, want 2", f.Count())
	}
	if f.K() != 2 || f.Cap() != 256 {
		t.Errorf("K/Cap = %d/%d, want 2/256", f.K(), f.Cap())
	}
}

func TestFilterEmptyContainsNothing(t *testing.T) {
	f, err := New(1024, "XXH3")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, w := range []string{"a", "cat", ""} {
		if f.Contains(w) {
			t.Errorf("empty filter reports %q present", w)
		}
	}
	if f.String() != "" {
		t.Errorf("String of empty filter = %q", f.String())
	}
}

func TestFilterNoFalseNegatives(t *testing.T) {
	algs := [][]string{
		{"SHA1", "MD5"},
		{"SHA256"},
		{"XXH3", "XXH64", "MURMUR3"},
	}
	rng := rand.New(rand.NewSource(42))
	for _, a := range algs {
		t.Run(strings.Join(a, "+"), func(t *testing.T) {
			// Deliberately undersized so collisions are frequent.
			f, err := New(512, a...)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			words := make([]string, 2000)
			for i := range words {
				words[i] = randomWord(rng)
				f.Add(words[i])
			}
			for _, w := range words {
				if !f.Contains(w) {
					t.Fatalf("false negative for %q", w)
				}
			}
		})
	}
}

func TestFilterFalsePositiveRate(t *testing.T) {
	const n = 10000
	target := 0.01
	m := OptimalBits(n, target)
	k := OptimalK(n, target)

	names := []string{"XXH3", "XXH64", "MURMUR3", "SHA1", "MD5", "SHA256"}
	if int(k) < len(names) {
		names = names[:k]
	}
	f, err := New(m, names...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < n; i++ {
		f.Add(fmt.Sprintf("item-%d", i))
	}
	var fp int
	for i := 0; i < n; i++ {
		if f.Contains(fmt.Sprintf("absent-%d", i)) {
			fp++
		}
	}
	rate := float64(fp) / n
	// Allow a wide margin: the digest hashes only contribute 31 bits each.
	if rate > target*5 {
		t.Errorf("false positive rate too high: got %.4f, want <= %.4f", rate, target*5)
	}
	t.Logf("FP rate: %.4f (estimated %.4f, m=%d, k=%d)", rate, f.EstimatedFalsePositiveRate(), m, f.K())
}

func TestFilterUnknownAlgorithm(t *testing.T) {
	_, err := New(128, "SHA1", "CRC99")
	if err == nil {
		t.Fatal("expected error for unknown algorithm")
	}
	if !errors.Is(err, apperrors.ErrUnknownHashAlgorithm) {
		t.Errorf("error = %v, want ErrUnknownHashAlgorithm", err)
	}
}

func TestFilterInvalidSize(t *testing.T) {
	if _, err := New(0, "MD5"); !errors.Is(err, apperrors.ErrInvalidFilterSize) {
		t.Errorf("error = %v, want ErrInvalidFilterSize", err)
	}
	if _, err := New(64); !errors.Is(err, apperrors.ErrUnknownHashAlgorithm) {
		t.Errorf("error = %v, want ErrUnknownHashAlgorithm for empty list", err)
	}
}

func TestLookupCaseInsensitive(t *testing.T) {
	for _, name := range []string{"md5", "Sha-256", " xxh3 ", "murmur3"} {
		if _, err := Lookup(name); err != nil {
			t.Errorf("Lookup(%q): %v", name, err)
		}
	}
}

func TestDigestHashDeterministic(t *testing.T) {
	h, err := Lookup("SHA1")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if h("scrabble") != h("scrabble") {
		t.Fatal("digest hash is not deterministic")
	}
	if h("scrabble") > 1<<31 {
		t.Errorf("digest hash exceeds 31-bit magnitude: %d", h("scrabble"))
	}
}

func TestFilterString(t *testing.T) {
	f, err := New(64, "XXH3")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.Add("hello")
	s := f.String()
	if s == "" || s[len(s)-1] != '1' {
		t.Fatalf("String = %q, want trailing set bit", s)
	}
	if strings.Count(s, "1") != 1 {
		t.Errorf("String = %q, want exactly one set bit", s)
	}
	if strings.Trim(s, "01") != "" {
		t.Errorf("String contains non-bit characters: %q", s)
	}
}

func TestOptimalBits(t *testing.T) {
	if got := OptimalBits(0, 0.01); got < minBits {
		t.Errorf("OptimalBits(0) = %d, want >= %d", got, minBits)
	}
	small := OptimalBits(1000, 0.01)
	large := OptimalBits(100000, 0.01)
	if large <= small {
		t.Errorf("OptimalBits not monotonic: %d <= %d", large, small)
	}
	if k := OptimalK(1000, 0.01); k < 1 {
		t.Errorf("OptimalK = %d", k)
	}
}

func randomWord(rng *rand.Rand) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	n := 1 + rng.Intn(12)
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[rng.Intn(len(letters))]
	}
	return string(b)
}

func TestAlgorithmAliasesShareOneHash(t *testing.T) {
	tests := []struct {
		names []string
		want  error
	}{
		{[]string{"SHA1", "MD5"}, nil},
		{[]string{"SHA1", "SHA-1"}, apperrors.ErrDuplicateHashAlgorithm},
		{[]string{"sha-256", "MD5", "SHA256"}, apperrors.ErrDuplicateHashAlgorithm},
		{[]string{"XXH3", " xxh3 "}, apperrors.ErrDuplicateHashAlgorithm},
		{[]string{"MD5", "CRC32"}, apperrors.ErrUnknownHashAlgorithm},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.names, "+"), func(t *testing.T) {
			_, err := New(64, tt.names...)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("New: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAlgorithmsReportCanonicalNames(t *testing.T) {
	f, err := New(64, "sha-1", "Sha-256")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got := f.Algorithms()
	if len(got) != 2 || got[0] != "SHA1" || got[1] != "SHA256" {
		t.Errorf("Algorithms = %v, want [SHA1 SHA256]", got)
	}
}
