package analytics

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/word-verifier/internal/protocol"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/postgres"
)

// skipIfNoPostgres skips the test when PostgreSQL is unavailable.
func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	port, _ := strconv.Atoi(envOrDefault("TEST_POSTGRES_PORT", "5432"))
	db, err := postgres.New(config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            port,
		Database:        envOrDefault("TEST_POSTGRES_DB", "wordverifier_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "wordverifier"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	})
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func TestAuditStoreRecordsChallenges(t *testing.T) {
	db := skipIfNoPostgres(t)
	store := NewAuditStore(db)
	ctx := context.Background()
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	word := "audit" + strconv.FormatInt(time.Now().UnixNano(), 36)
	ch := event(protocol.ActionChallenge, word, false)
	ch.Files = []string{"a.txt", "b.txt"}
	if err := store.Record(ctx, ch); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Record(ctx, event(protocol.ActionQuery, word+"q", true)); err != nil {
		t.Fatalf("Record query: %v", err)
	}

	records, err := store.LatestChallenges(ctx, 20)
	if err != nil {
		t.Fatalf("LatestChallenges: %v", err)
	}
	var found bool
	for _, r := range records {
		if r.Word == word+"q" {
			t.Error("query event was audited")
		}
		if r.Word == word {
			found = true
			if len(r.Files) != 2 || r.Files[1] != "b.txt" || r.Result {
				t.Errorf("record = %+v", r)
			}
		}
	}
	if !found {
		t.Errorf("challenge for %q not found", word)
	}
}

func TestAuditStoreSnapshots(t *testing.T) {
	db := skipIfNoPostgres(t)
	store := NewAuditStore(db)
	ctx := context.Background()
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	agg := NewAggregator(3)
	agg.Record(event(protocol.ActionQuery, "cat", true))
	if err := store.SaveSnapshot(ctx, agg.Stats()); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	snap, err := store.LatestSnapshot(ctx)
	if err != nil || snap == nil {
		t.Fatalf("LatestSnapshot = %v, %v", snap, err)
	}
	if snap.TotalRequests < 1 {
		t.Errorf("snapshot = %+v", snap)
	}
}
