package analytics

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/word-verifier/internal/protocol"
)

// VerificationEvent describes one answered (or failed) protocol request.
// Dropped protocol errors produce no event.
type VerificationEvent struct {
	Action    protocol.Action `json:"action"`
	Files     []string        `json:"files"`
	Word      string          `json:"word"`
	Result    bool            `json:"result"`
	Error     string          `json:"error,omitempty"`
	LatencyUs int64           `json:"latency_us"`
	ConnID    string          `json:"conn_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Rejected reports whether the event answered false without error.
func (e VerificationEvent) Rejected() bool {
	return e.Error == "" && !e.Result
}
