package api

import (
	"net/http"
)

// RoundsHandler handles round administration.
type RoundsHandler struct {
	svc Service
}

// NewRoundsHandler creates a new rounds handler.
func NewRoundsHandler(svc Service) *RoundsHandler {
	return &RoundsHandler{svc: svc}
}

type createRoundRequest struct {
	ID    string `json:"id" validate:"required"`
	Total *int   `json:"total" validate:"omitempty,gte=0"`
}

type totalRequest struct {
	Total *int `json:"total" validate:"required,gte=0"`
}

type renameRequest struct {
	To string `json:"to" validate:"required"`
}

type refsRequest struct {
	Temps    []*float64 `json:"temps"`
	Humidity []*float64 `json:"humidity"`
}

type targetsRequest struct {
	Temp     *float64 `json:"temp"`
	Humidity *float64 `json:"humidity"`
}

// HandleList handles GET /rounds.
func (h *RoundsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	rounds, err := h.svc.Rounds(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rounds)
}

// HandleGet handles GET /rounds/{id}.
func (h *RoundsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	rd, err := h.svc.Round(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rd)
}

// HandleCreate handles POST /rounds.
func (h *RoundsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRoundRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rd, res, err := h.svc.CreateRound(r.Context(), req.ID, req.Total)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"round": rd, "reconcile": res})
}

// HandleDelete handles DELETE /rounds/{id}.
func (h *RoundsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.DeleteRound(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleSetTotal handles PUT /rounds/{id}/total.
func (h *RoundsHandler) HandleSetTotal(w http.ResponseWriter, r *http.Request) {
	var req totalRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.svc.SetRoundTotal(r.Context(), r.PathValue("id"), *req.Total)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleReconcile handles POST /rounds/{id}/reconcile.
func (h *RoundsHandler) HandleReconcile(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ReconcileRound(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleRename handles POST /rounds/{id}/rename.
func (h *RoundsHandler) HandleRename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	report, err := h.svc.RenameRound(r.Context(), r.PathValue("id"), req.To)
	writeReport(w, report, err)
}

// HandleSetRefs handles PUT /rounds/{id}/refs.
func (h *RoundsHandler) HandleSetRefs(w http.ResponseWriter, r *http.Request) {
	var req refsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rd, err := h.svc.SetRoundRefs(r.Context(), r.PathValue("id"), req.Temps, req.Humidity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rd)
}

// HandleSetTargets handles PUT /rounds/{id}/targets.
func (h *RoundsHandler) HandleSetTargets(w http.ResponseWriter, r *http.Request) {
	var req targetsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rd, err := h.svc.SetRoundTargets(r.Context(), r.PathValue("id"), req.Temp, req.Humidity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rd)
}
