package client

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/word-verifier/internal/protocol"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/errors"
)

// stubServer answers every request with respond(req); a nil answer closes
// the connection silently.
func stubServer(t *testing.T, respond func(protocol.Request) *bool) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			req, err := protocol.ReadRequest(bufio.NewReader(conn))
			if err == nil {
				if answer := respond(req); answer != nil {
					protocol.WriteResponse(conn, *answer)
				}
			}
			conn.Close()
		}
	}()
	return ln.Addr().String()
}

func answer(b bool) *bool { return &b }

func newClient(addr string) *Client {
	return New(config.ClientConfig{Addr: addr, DialTimeout: time.Second, MaxAttempts: 2})
}

func TestQueryAndChallenge(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []protocol.Request
	)
	addr := stubServer(t, func(req protocol.Request) *bool {
		mu.Lock()
		seen = append(seen, req)
		mu.Unlock()
		return answer(req.Action == protocol.ActionQuery)
	})
	c := newClient(addr)
	ctx := context.Background()

	got, err := c.Query(ctx, []string{"a.txt", "b.txt"}, "cat")
	if err != nil || !got {
		t.Fatalf("Query = %v, %v", got, err)
	}
	got, err = c.Challenge(ctx, []string{"a.txt"}, "cat")
	if err != nil || got {
		t.Fatalf("Challenge = %v, %v", got, err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0].String() != "Q,a.txt,b.txt,cat" {
		t.Errorf("requests = %+v", seen)
	}
}

func TestDroppedRequestNotRetried(t *testing.T) {
	var calls atomic.Int32
	addr := stubServer(t, func(req protocol.Request) *bool {
		calls.Add(1)
		return nil
	})
	_, err := newClient(addr).Query(context.Background(), []string{"missing.txt"}, "cat")
	if !errors.Is(err, apperrors.ErrNoResponse) {
		t.Fatalf("error = %v, want ErrNoResponse", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("server saw %d requests, want 1", n)
	}
}

func TestDialFailureRetried(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	_, err = newClient(addr).Query(context.Background(), []string{"a.txt"}, "cat")
	if err == nil {
		t.Fatal("expected dial error")
	}
	if errors.Is(err, apperrors.ErrNoResponse) {
		t.Errorf("dial failure reported as dropped request: %v", err)
	}
}

func TestNoFiles(t *testing.T) {
	_, err := newClient("127.0.0.1:1").Query(context.Background(), nil, "cat")
	if !errors.Is(err, apperrors.ErrMalformedRequest) {
		t.Fatalf("error = %v", err)
	}
}

func TestRateLimited(t *testing.T) {
	addr := stubServer(t, func(protocol.Request) *bool { return answer(true) })
	c := New(config.ClientConfig{Addr: addr, RequestsPerSecond: 20, Burst: 1, MaxAttempts: 1})

	start := time.Now()
	for i := 0; i < 5; i++ {
		if _, err := c.Query(context.Background(), []string{"a.txt"}, "cat"); err != nil {
			t.Fatalf("Query: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("5 requests at 20/s took %v", elapsed)
	}
}

func TestContextCancelled(t *testing.T) {
	addr := stubServer(t, func(protocol.Request) *bool { return answer(true) })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := New(config.ClientConfig{Addr: addr, RequestsPerSecond: 1, Burst: 1})
	if _, err := c.Query(ctx, []string{"a.txt"}, "cat"); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestBatch(t *testing.T) {
	addr := stubServer(t, func(req protocol.Request) *bool {
		switch req.Word {
		case "drop":
			return nil
		case "zzz", "qqq":
			return answer(false)
		}
		return answer(true)
	})
	c := newClient(addr)

	var progressed atomic.Int32
	res, err := c.Batch(context.Background(), protocol.ActionChallenge, []string{"a.txt"},
		[]string{"cat", "zzz", "dog", "drop", "qqq"}, 3, func() { progressed.Add(1) })
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if res.Total != 5 || res.Accepted != 2 || res.Rejected != 2 || res.Dropped != 1 || res.Errors != 0 {
		t.Errorf("result = %+v", res)
	}
	if len(res.RejectedWords) != 2 || res.RejectedWords[0] != "qqq" || res.RejectedWords[1] != "zzz" {
		t.Errorf("RejectedWords = %v", res.RejectedWords)
	}
	if progressed.Load() != 5 {
		t.Errorf("progress called %d times", progressed.Load())
	}
}

func TestUnframeableRequestNotSent(t *testing.T) {
	var calls atomic.Int32
	addr := stubServer(t, func(protocol.Request) *bool {
		calls.Add(1)
		return answer(true)
	})
	c := newClient(addr)

	tests := []struct {
		name  string
		files []string
		word  string
	}{
		{"comma in word", []string{"dict.txt"}, "cat,dog"},
		{"newline in word", []string{"dict.txt"}, "cat\nQ,dict.txt,dog"},
		{"comma in file", []string{"a.txt,b.txt"}, "cat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Query(context.Background(), tt.files, tt.word)
			if !errors.Is(err, apperrors.ErrMalformedRequest) {
				t.Fatalf("error = %v, want ErrMalformedRequest", err)
			}
		})
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("server saw %d requests, want 0", n)
	}
}
