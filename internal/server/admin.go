package server

import (
	"encoding/json"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/word-verifier/internal/dictionary"
)

// StatsSource reports the materialized dictionaries.
// *registry.Registry satisfies it.
type StatsSource interface {
	Stats() []dictionary.Stats
}

type dictionariesResponse struct {
	Count        int                `json:"count"`
	Dictionaries []dictionary.Stats `json:"dictionaries"`
}

// DictionariesHandler serves GET /api/v1/dictionaries.
func DictionariesHandler(src StatsSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := src.Stats()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(dictionariesResponse{
			Count:        len(stats),
			Dictionaries: stats,
		})
	}
}
