package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/word-verifier/internal/protocol"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/resilience"
)

// Schema creates the audit tables. EnsureSchema applies it.
const Schema = `
CREATE TABLE IF NOT EXISTS challenge_audit (
    id            BIGSERIAL PRIMARY KEY,
    word          TEXT        NOT NULL,
    files         TEXT[]      NOT NULL,
    result        BOOLEAN     NOT NULL,
    error         TEXT        NOT NULL DEFAULT '',
    conn_id       TEXT        NOT NULL DEFAULT '',
    latency_us    BIGINT      NOT NULL,
    challenged_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS challenge_audit_word_idx ON challenge_audit (word);
CREATE TABLE IF NOT EXISTS analytics_snapshots (
    id          BIGSERIAL PRIMARY KEY,
    data        JSONB       NOT NULL,
    captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// ChallengeRecord is one row of the challenge audit trail.
type ChallengeRecord struct {
	ID           int64     `json:"id"`
	Word         string    `json:"word"`
	Files        []string  `json:"files"`
	Result       bool      `json:"result"`
	Error        string    `json:"error,omitempty"`
	ConnID       string    `json:"conn_id,omitempty"`
	LatencyUs    int64     `json:"latency_us"`
	ChallengedAt time.Time `json:"challenged_at"`
}

// AuditStore records every challenge in PostgreSQL and keeps periodic
// snapshots of the aggregated stats. Writes go through a circuit breaker so
// an unavailable database fails fast instead of stalling the consumer.
type AuditStore struct {
	db      *postgres.Client
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
}

func NewAuditStore(db *postgres.Client) *AuditStore {
	return &AuditStore{
		db: db,
		breaker: resilience.NewCircuitBreaker("postgres-audit", resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
			CallTimeout:      3 * time.Second,
		}),
		logger: slog.Default().With("component", "analytics-audit"),
	}
}

// EnsureSchema creates the audit tables if they do not exist.
func (s *AuditStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("applying audit schema: %w", err)
	}
	return nil
}

// Record stores challenge events; other events are ignored.
func (s *AuditStore) Record(ctx context.Context, event VerificationEvent) error {
	if event.Action != protocol.ActionChallenge {
		return nil
	}
	at := event.Timestamp
	if at.IsZero() {
		at = time.Now()
	}
	return s.breaker.ExecuteContext(ctx, func(ctx context.Context) error {
		return s.db.InTx(ctx, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO challenge_audit (word, files, result, error, conn_id, latency_us, challenged_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				event.Word, pq.Array(event.Files), event.Result, event.Error, event.ConnID,
				event.LatencyUs, at.UTC(),
			)
			if err != nil {
				return fmt.Errorf("inserting challenge audit for %q: %w", event.Word, err)
			}
			return nil
		})
	})
}

// LatestChallenges returns the newest limit challenge records.
func (s *AuditStore) LatestChallenges(ctx context.Context, limit int) ([]ChallengeRecord, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT id, word, files, result, error, conn_id, latency_us, challenged_at
		   FROM challenge_audit ORDER BY challenged_at DESC, id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing challenges: %w", err)
	}
	defer rows.Close()

	var records []ChallengeRecord
	for rows.Next() {
		var r ChallengeRecord
		if err := rows.Scan(&r.ID, &r.Word, pq.Array(&r.Files), &r.Result, &r.Error, &r.ConnID, &r.LatencyUs, &r.ChallengedAt); err != nil {
			return nil, fmt.Errorf("scanning challenge row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// SaveSnapshot persists a stats snapshot.
func (s *AuditStore) SaveSnapshot(ctx context.Context, stats AggregatedStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}
	err = s.breaker.ExecuteContext(ctx, func(ctx context.Context) error {
		_, err := s.db.DB.ExecContext(ctx,
			`INSERT INTO analytics_snapshots (data, captured_at) VALUES ($1, $2)`,
			data, time.Now().UTC(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}
	s.logger.Debug("analytics snapshot saved", "total_requests", stats.TotalRequests)
	return nil
}

// LatestSnapshot loads the most recent snapshot. It returns nil, nil when
// none exists yet.
func (s *AuditStore) LatestSnapshot(ctx context.Context) (*AggregatedStats, error) {
	var data []byte
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT data FROM analytics_snapshots ORDER BY captured_at DESC LIMIT 1`,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}

	var stats AggregatedStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return &stats, nil
}

// StartPeriodicSave snapshots agg every interval until ctx is cancelled,
// then takes a final snapshot.
func (s *AuditStore) StartPeriodicSave(ctx context.Context, agg *Aggregator, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := s.SaveSnapshot(ctx, agg.Stats()); err != nil {
					s.logger.Error("periodic snapshot failed", "error", err)
				}
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := s.SaveSnapshot(shutdownCtx, agg.Stats()); err != nil {
					s.logger.Error("final snapshot failed", "error", err)
				}
				return
			}
		}
	}()
	s.logger.Info("periodic snapshot started", "interval", interval)
}
