// Package client speaks the verification protocol to a remote server. The
// server answers one request per connection, so every call dials afresh.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"golang.org/x/time/rate"

	"github.com/Adithya-Monish-Kumar-K/word-verifier/internal/protocol"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/resilience"
)

// Client is safe for concurrent use.
type Client struct {
	addr        string
	dialTimeout time.Duration
	limiter     *rate.Limiter
	retry       resilience.RetryConfig
	dialer      net.Dialer
	logger      *slog.Logger
}

// New creates a Client. A non-positive RequestsPerSecond disables rate
// limiting.
func New(cfg config.ClientConfig) *Client {
	c := &Client{
		addr:        cfg.Addr,
		dialTimeout: cfg.DialTimeout,
		retry: resilience.RetryConfig{
			MaxAttempts:  cfg.MaxAttempts,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			ShouldRetry:  retryable,
		},
		logger: slog.Default().With("component", "client", "addr", cfg.Addr),
	}
	if c.dialTimeout <= 0 {
		c.dialTimeout = 5 * time.Second
	}
	c.dialer.Timeout = c.dialTimeout
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c
}

// Query asks whether any of files may contain word.
func (c *Client) Query(ctx context.Context, files []string, word string) (bool, error) {
	return c.Do(ctx, protocol.Request{Action: protocol.ActionQuery, Files: files, Word: word})
}

// Challenge asks whether any of files contains word, verified on disk.
func (c *Client) Challenge(ctx context.Context, files []string, word string) (bool, error) {
	return c.Do(ctx, protocol.Request{Action: protocol.ActionChallenge, Files: files, Word: word})
}

// Do sends req and returns the server's answer. A request the line format
// cannot carry fails before dialing. Connection failures are retried; a
// request the server drops fails with ErrNoResponse at once.
func (c *Client) Do(ctx context.Context, req protocol.Request) (bool, error) {
	if err := req.Validate(); err != nil {
		return false, err
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return false, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	var result bool
	err := resilience.Retry(ctx, "verify", c.retry, func() error {
		var err error
		result, err = c.roundTrip(ctx, req)
		return err
	})
	return result, err
}

func (c *Client) roundTrip(ctx context.Context, req protocol.Request) (bool, error) {
	conn, err := c.dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return false, fmt.Errorf("dialing %s: %w", c.addr, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if err := protocol.WriteRequest(conn, req); err != nil {
		return false, err
	}
	result, err := protocol.ReadResponse(bufio.NewReader(conn))
	if errors.Is(err, io.EOF) {
		return false, apperrors.Newf(apperrors.ErrNoResponse, "%s", req.String())
	}
	if err != nil {
		return false, fmt.Errorf("reading response: %w", err)
	}
	return result, nil
}

func retryable(err error) bool {
	return !errors.Is(err, apperrors.ErrNoResponse) &&
		!errors.Is(err, apperrors.ErrMalformedRequest) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}
