package client

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/word-verifier/internal/protocol"
	apperrors "github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/errors"
)

// BatchResult summarises a Batch run.
type BatchResult struct {
	Total         int      `json:"total"`
	Accepted      int      `json:"accepted"`
	Rejected      int      `json:"rejected"`
	Dropped       int      `json:"dropped"`
	Errors        int      `json:"errors"`
	ElapsedMs     int64    `json:"elapsed_ms"`
	RejectedWords []string `json:"rejected_words"`
}

// Batch verifies every word against files with at most concurrency
// requests in flight. progress, if set, is called once per finished word.
// Per-word failures are counted, not returned; the error is non-nil only
// when ctx ends the run early.
func (c *Client) Batch(ctx context.Context, action protocol.Action, files, words []string, concurrency int, progress func()) (BatchResult, error) {
	start := time.Now()
	if concurrency <= 0 {
		concurrency = 1
	}

	var (
		mu  sync.Mutex
		res = BatchResult{Total: len(words), RejectedWords: []string{}}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, word := range words {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			ok, err := c.Do(gctx, protocol.Request{Action: action, Files: files, Word: word})

			mu.Lock()
			switch {
			case errors.Is(err, apperrors.ErrNoResponse):
				res.Dropped++
			case err != nil:
				res.Errors++
				c.logger.Warn("verification failed", "word", word, "error", err)
			case ok:
				res.Accepted++
			default:
				res.Rejected++
				res.RejectedWords = append(res.RejectedWords, word)
			}
			mu.Unlock()

			if progress != nil {
				progress()
			}
			return nil
		})
	}
	g.Wait()

	sort.Strings(res.RejectedWords)
	res.ElapsedMs = time.Since(start).Milliseconds()
	return res, ctx.Err()
}
