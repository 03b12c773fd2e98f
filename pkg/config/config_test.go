package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.MaxConcurrentConns != 1 {
		t.Errorf("MaxConcurrentConns = %d, want 1", cfg.Server.MaxConcurrentConns)
	}
	if cfg.Server.PollInterval != time.Second {
		t.Errorf("PollInterval = %v, want 1s", cfg.Server.PollInterval)
	}
	if cfg.Dictionary.PresentCacheSize != 400 || cfg.Dictionary.AbsentCacheSize != 100 {
		t.Errorf("cache sizes = %d/%d, want 400/100",
			cfg.Dictionary.PresentCacheSize, cfg.Dictionary.AbsentCacheSize)
	}
	if len(cfg.Dictionary.HashAlgorithms) != 2 {
		t.Errorf("HashAlgorithms = %v, want two defaults", cfg.Dictionary.HashAlgorithms)
	}
}

func TestLoadFile(t *testing.T) {
	content := `server:
  addr: "127.0.0.1:7000"
  pollInterval: 250ms
  maxConcurrentConns: 4
dictionary:
  baseDir: /srv/words
  filterBits: 4096
  hashAlgorithms: ["XXH3", "MURMUR3"]
  presentCacheSize: 10
  absentCacheSize: 5
  preload: ["alice.txt"]
logging:
  level: debug
  format: text
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:7000" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Server.PollInterval != 250*time.Millisecond {
		t.Errorf("PollInterval = %v", cfg.Server.PollInterval)
	}
	if cfg.Dictionary.FilterBits != 4096 {
		t.Errorf("FilterBits = %d", cfg.Dictionary.FilterBits)
	}
	if got := cfg.Dictionary.HashAlgorithms; len(got) != 2 || got[0] != "XXH3" {
		t.Errorf("HashAlgorithms = %v", got)
	}
	if cfg.Dictionary.FalsePositiveRate != 0.01 {
		t.Errorf("FalsePositiveRate default lost: %v", cfg.Dictionary.FalsePositiveRate)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format = %q", cfg.Logging.Format)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("WV_SERVER_ADDR", ":6100")
	t.Setenv("WV_DICTIONARY_PRELOAD", "a.txt,b.txt")
	t.Setenv("WV_KAFKA_ENABLED", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":6100" {
		t.Errorf("Addr = %q, want :6100", cfg.Server.Addr)
	}
	if len(cfg.Dictionary.Preload) != 2 || cfg.Dictionary.Preload[1] != "b.txt" {
		t.Errorf("Preload = %v", cfg.Dictionary.Preload)
	}
	if !cfg.Kafka.Enabled {
		t.Error("Kafka.Enabled not overridden")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no hashes", "dictionary:\n  hashAlgorithms: []\n"},
		{"zero cache", "dictionary:\n  presentCacheSize: -1\n"},
		{"bad fp rate", "dictionary:\n  falsePositiveRate: 1.5\n"},
		{"zero conns", "server:\n  maxConcurrentConns: -2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("writing config: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
