// Package search scans word-list files token by token. It backs the
// authoritative challenge path and the one-time population of each
// dictionary's membership filter.
package search

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	apperrors "github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/errors"
)

// maxTokenSize bounds a single whitespace-delimited token.
const maxTokenSize = 1 << 20

// checkEvery is how many tokens are read between context checks.
const checkEvery = 4096

// errStop ends a scan early without reporting an error.
var errStop = errors.New("stop scan")

// Search reports whether word appears as an exact token in any of files,
// scanning them in order and stopping at the first match. An unreadable
// file fails the whole search.
func Search(ctx context.Context, word string, files ...string) (bool, error) {
	for _, path := range files {
		found := false
		err := ForEachToken(ctx, path, func(tok string) error {
			if tok == word {
				found = true
				return errStop
			}
			return nil
		})
		if err != nil {
			return false, err
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}

// ForEachToken calls fn for each whitespace-delimited token of path. A
// non-nil error from fn stops the scan; errStop is swallowed.
func ForEachToken(ctx context.Context, path string, fn func(tok string) error) error {
	f, err := Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxTokenSize)
	scanner.Split(bufio.ScanWords)
	n := 0
	for scanner.Scan() {
		n++
		if n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("scanning %s: %w", path, err)
			}
		}
		if err := fn(scanner.Text()); err != nil {
			if errors.Is(err, errStop) {
				return nil
			}
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: %s: %v", apperrors.ErrDictionaryRead, path, err)
	}
	return nil
}

// CountTokens returns the number of tokens in path.
func CountTokens(ctx context.Context, path string) (uint, error) {
	var n uint
	err := ForEachToken(ctx, path, func(string) error {
		n++
		return nil
	})
	return n, err
}

// Open opens a word list, mapping a missing file to ErrDictionaryNotFound
// and any other failure to ErrDictionaryRead.
func Open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.Newf(apperrors.ErrDictionaryNotFound, "%s", path)
		}
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrDictionaryRead, path, err)
	}
	return f, nil
}
