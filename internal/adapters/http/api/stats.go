package api

import (
	"context"
	"net/http"

	service "github.com/ralucacrepcea/scoreapp/internal/app"
)

// StatsProvider reports the engine's monitoring summary.
type StatsProvider interface {
	GetStats(ctx context.Context) service.Stats
}

// StatsHandler serves GET /stats.
type StatsHandler struct {
	stats StatsProvider
}

// NewStatsHandler returns a StatsHandler over p.
func NewStatsHandler(p StatsProvider) *StatsHandler {
	return &StatsHandler{stats: p}
}

// HandleStats writes queue depth, worker count and roster sizes.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats.GetStats(r.Context()))
}
