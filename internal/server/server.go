// Package server accepts verification-protocol connections and hands each
// one to a ConnHandler.
//
// The accept loop polls: every accept is bounded by the poll interval so a
// Close request is noticed within one interval even when no client
// connects. With MaxConcurrentConns of 1 every connection is handled to
// completion inside the loop before the next accept; larger values hand
// connections to at most that many goroutines.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/metrics"
)

// ConnHandler serves one accepted connection. The server closes the
// connection once HandleConn returns.
type ConnHandler interface {
	HandleConn(ctx context.Context, conn net.Conn)
}

// Server is the polling accept loop.
type Server struct {
	cfg     config.ServerConfig
	handler ConnHandler
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu       sync.Mutex
	listener *net.TCPListener
	started  bool

	stop     atomic.Bool
	sem      chan struct{}
	wg       sync.WaitGroup
	done     chan struct{}
	nextConn atomic.Uint64
}

// New creates a Server. Zero PollInterval and MaxConcurrentConns fall back
// to one second and one connection.
func New(cfg config.ServerConfig, handler ConnHandler, m *metrics.Metrics) *Server {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.MaxConcurrentConns <= 0 {
		cfg.MaxConcurrentConns = 1
	}
	return &Server{
		cfg:     cfg,
		handler: handler,
		metrics: m,
		logger:  slog.Default().With("component", "server"),
		sem:     make(chan struct{}, cfg.MaxConcurrentConns),
		done:    make(chan struct{}),
	}
}

// Start binds the listener and runs the accept loop in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("starting server: already started")
	}
	if s.stop.Load() {
		return apperrors.ErrServerClosed
	}

	addr, err := net.ResolveTCPAddr("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", s.cfg.Addr, err)
	}
	ln, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	s.listener = ln
	s.started = true

	go s.acceptLoop()
	s.logger.Info("server listening",
		"addr", ln.Addr().String(),
		"poll_interval", s.cfg.PollInterval,
		"max_concurrent_conns", s.cfg.MaxConcurrentConns,
	)
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close asks the accept loop to stop and waits for it and for connections
// in flight. The loop notices within one poll interval; in-flight requests
// run to completion.
func (s *Server) Close() error {
	return s.Shutdown(context.Background())
}

// Shutdown is Close bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stop.Store(true)

	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return nil
	}

	drained := make(chan struct{})
	go func() {
		<-s.done
		s.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		s.logger.Info("server stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for server to stop: %w", ctx.Err())
	}
}

func (s *Server) acceptLoop() {
	defer close(s.done)
	defer s.listener.Close()

	for !s.stop.Load() {
		if err := s.listener.SetDeadline(time.Now().Add(s.cfg.PollInterval)); err != nil {
			s.logger.Error("setting accept deadline", "error", err)
			return
		}
		conn, err := s.listener.Accept()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("accept error", "error", err)
			continue
		}
		s.dispatch(conn)
	}
}

func (s *Server) dispatch(conn net.Conn) {
	if s.cfg.MaxConcurrentConns == 1 {
		s.serve(conn)
		return
	}
	s.sem <- struct{}{}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() { <-s.sem }()
		s.serve(conn)
	}()
}

func (s *Server) serve(conn net.Conn) {
	defer conn.Close()
	s.metrics.ConnOpened()
	defer s.metrics.ConnClosed()

	id := fmt.Sprintf("conn-%d", s.nextConn.Add(1))
	ctx := logger.WithConnID(context.Background(), id)
	logger.FromContext(ctx).Debug("connection accepted", "remote", conn.RemoteAddr().String())

	if s.cfg.ReadTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
			logger.FromContext(ctx).Warn("setting read deadline", "error", err)
			return
		}
	}
	if s.cfg.WriteTimeout > 0 {
		conn = &writeDeadlineConn{Conn: conn, timeout: s.cfg.WriteTimeout}
	}
	s.handler.HandleConn(ctx, conn)
}

// writeDeadlineConn arms the write deadline before every Write, so the
// timeout covers the response rather than the time spent dispatching.
type writeDeadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (c *writeDeadlineConn) Write(b []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Write(b)
}
