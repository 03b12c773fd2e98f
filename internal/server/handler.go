package server

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/word-verifier/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/internal/protocol"
	apperrors "github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/metrics"
)

// Verifier answers aggregate queries and challenges over a set of files.
// *registry.Registry satisfies it.
type Verifier interface {
	Query(ctx context.Context, files []string, word string) (bool, error)
	Challenge(ctx context.Context, files []string, word string) (bool, error)
}

// EventTracker receives one event per answered or failed request.
type EventTracker interface {
	Track(event analytics.VerificationEvent)
}

// VerificationHandler reads one request line, answers it and returns.
// Requests that do not parse, and requests whose dictionaries fail, are
// closed without a response.
type VerificationHandler struct {
	verifier Verifier
	tracker  EventTracker
	metrics  *metrics.Metrics
}

// NewVerificationHandler creates a handler. tracker and m may be nil.
func NewVerificationHandler(v Verifier, tracker EventTracker, m *metrics.Metrics) *VerificationHandler {
	return &VerificationHandler{verifier: v, tracker: tracker, metrics: m}
}

func (h *VerificationHandler) HandleConn(ctx context.Context, conn net.Conn) {
	log := logger.FromContext(ctx)
	start := time.Now()

	req, err := protocol.ReadRequest(bufio.NewReader(conn))
	if err != nil {
		if apperrors.IsProtocol(err) {
			log.Debug("dropping request", "error", err)
			h.metrics.ObserveRequest("invalid", "dropped", time.Since(start))
		} else {
			log.Debug("no request read", "error", err)
		}
		return
	}

	var result bool
	switch req.Action {
	case protocol.ActionQuery:
		result, err = h.verifier.Query(ctx, req.Files, req.Word)
	case protocol.ActionChallenge:
		result, err = h.verifier.Challenge(ctx, req.Files, req.Word)
	}
	elapsed := time.Since(start)
	h.track(ctx, req, result, err, elapsed)

	action := string(req.Action)
	if err != nil {
		log.Error("request failed",
			"action", action,
			"files", req.Files,
			"word", req.Word,
			"error", err,
		)
		h.metrics.ObserveRequest(action, "error", elapsed)
		return
	}

	if err := protocol.WriteResponse(conn, result); err != nil {
		log.Warn("writing response", "error", err)
		h.metrics.ObserveRequest(action, "error", time.Since(start))
		return
	}
	h.metrics.ObserveRequest(action, strconv.FormatBool(result), time.Since(start))
	log.Debug("request answered",
		"action", action,
		"files", len(req.Files),
		"word", req.Word,
		"result", result,
		"duration", elapsed,
	)
}

func (h *VerificationHandler) track(ctx context.Context, req protocol.Request, result bool, err error, elapsed time.Duration) {
	if h.tracker == nil {
		return
	}
	event := analytics.VerificationEvent{
		Action:    req.Action,
		Files:     req.Files,
		Word:      req.Word,
		Result:    result,
		LatencyUs: elapsed.Microseconds(),
		ConnID:    logger.ConnID(ctx),
		Timestamp: time.Now().UTC(),
	}
	if err != nil {
		event.Error = err.Error()
	}
	h.tracker.Track(event)
}
