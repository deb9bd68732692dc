package api

import (
	"net/http"

	service "github.com/ralucacrepcea/scoreapp/internal/app"
)

// TopicsHandler handles rubric administration.
type TopicsHandler struct {
	svc Service
}

// NewTopicsHandler creates a new topics handler.
func NewTopicsHandler(svc Service) *TopicsHandler {
	return &TopicsHandler{svc: svc}
}

type addTopicRequest struct {
	Name string `json:"name" validate:"required"`
}

type weightRequest struct {
	Weight *float64 `json:"weight" validate:"required"`
}

type columnsRequest struct {
	Columns []service.ColumnInput `json:"columns" validate:"dive"`
}

// HandleList handles GET /topics.
func (h *TopicsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Topics(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// HandleAdd handles POST /topics.
func (h *TopicsHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req addTopicRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	topic, report, err := h.svc.AddTopic(r.Context(), req.Name)
	if err != nil {
		writeReport(w, map[string]any{"topic": topic, "seeded": report}, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"topic": topic, "seeded": report})
}

// HandleRename handles POST /topics/{id}/rename.
func (h *TopicsHandler) HandleRename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	report, err := h.svc.RenameTopic(r.Context(), r.PathValue("id"), req.To)
	writeReport(w, report, err)
}

// HandleDelete handles DELETE /topics/{id}.
func (h *TopicsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.DeleteTopic(r.Context(), r.PathValue("id"))
	writeReport(w, report, err)
}

// HandleSetWeight handles PUT /topics/{id}/weight.
func (h *TopicsHandler) HandleSetWeight(w http.ResponseWriter, r *http.Request) {
	var req weightRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sum, err := h.svc.SetTopicWeight(r.Context(), r.PathValue("id"), *req.Weight)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// HandleSetColumns handles PUT /topics/{id}/columns.
func (h *TopicsHandler) HandleSetColumns(w http.ResponseWriter, r *http.Request) {
	var req columnsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	topic, err := h.svc.SetTopicColumns(r.Context(), r.PathValue("id"), req.Columns)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, topic)
}
