package api

import (
	"net/http"
)

// LeaderboardHandler serves grades, the ranking and the round benchmarks.
type LeaderboardHandler struct {
	svc      Service
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(svc Service, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{svc: svc, maxLimit: maxLimit}
}

// HandleRanking handles GET /ranking?limit=&live=.
func (h *LeaderboardHandler) HandleRanking(w http.ResponseWriter, r *http.Request) {
	limit := h.maxLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := intParam(raw, "limit")
		if err != nil {
			writeError(w, err)
			return
		}
		if n > 0 && (h.maxLimit <= 0 || n < h.maxLimit) {
			limit = n
		}
	}
	entries, err := h.svc.Ranking(r.Context(), view(r), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleTeamGrade handles GET /teams/{id}/grade?live=.
func (h *LeaderboardHandler) HandleTeamGrade(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.TeamGrade(r.Context(), r.PathValue("id"), view(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// HandleBenchmarks handles GET /benchmarks.
func (h *LeaderboardHandler) HandleBenchmarks(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Benchmarks(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// HandleProgress handles GET /progress.
func (h *LeaderboardHandler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Progress(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
