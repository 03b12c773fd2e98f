package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

const maxListLimit = 1000

// RejectedRanking serves the rejected-word leaderboard.
type RejectedRanking interface {
	Top(ctx context.Context, n int) ([]WordCount, error)
}

// ChallengeLog serves the challenge audit trail.
type ChallengeLog interface {
	LatestChallenges(ctx context.Context, limit int) ([]ChallengeRecord, error)
}

// Handler exposes the aggregated stats, leaderboard and audit trail. The
// leaderboard and audit trail are optional.
type Handler struct {
	aggregator *Aggregator
	ranking    RejectedRanking
	audit      ChallengeLog
	logger     *slog.Logger
}

func NewHandler(aggregator *Aggregator, ranking RejectedRanking, audit ChallengeLog) *Handler {
	return &Handler{
		aggregator: aggregator,
		ranking:    ranking,
		audit:      audit,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
}

// Register mounts the handler's routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/analytics", h.Stats)
	mux.HandleFunc("GET /api/v1/analytics/rejected", h.Rejected)
	mux.HandleFunc("GET /api/v1/analytics/challenges", h.Challenges)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.aggregator.Stats())
}

func (h *Handler) Rejected(w http.ResponseWriter, r *http.Request) {
	if h.ranking == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "leaderboard not configured"})
		return
	}
	top, err := h.ranking.Top(r.Context(), limitParam(r, 10))
	if err != nil {
		h.logger.Error("reading leaderboard", "error", err)
		h.writeJSON(w, http.StatusBadGateway, map[string]string{"error": "leaderboard unavailable"})
		return
	}
	h.writeJSON(w, http.StatusOK, top)
}

func (h *Handler) Challenges(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "audit store not configured"})
		return
	}
	records, err := h.audit.LatestChallenges(r.Context(), limitParam(r, 50))
	if err != nil {
		h.logger.Error("reading challenge audit", "error", err)
		h.writeJSON(w, http.StatusBadGateway, map[string]string{"error": "audit store unavailable"})
		return
	}
	if records == nil {
		records = []ChallengeRecord{}
	}
	h.writeJSON(w, http.StatusOK, records)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}

func limitParam(r *http.Request, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("n"))
	if err != nil || n <= 0 {
		return def
	}
	return min(n, maxListLimit)
}
