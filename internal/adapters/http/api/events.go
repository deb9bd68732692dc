package api

import (
	"context"
	"net/http"

	service "github.com/ralucacrepcea/scoreapp/internal/app"
	"github.com/ralucacrepcea/scoreapp/pkg/logger"
)

// EventsHandler handles checkpoint scan events and the scan lock admin.
type EventsHandler struct {
	svc Service
	log logger.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(svc Service, log logger.Logger) *EventsHandler {
	return &EventsHandler{svc: svc, log: log}
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// HandlePostScan handles POST /scans.
func (h *EventsHandler) HandlePostScan(w http.ResponseWriter, r *http.Request) {
	var req service.ScanRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	status, err := h.svc.IngestScan(r.Context(), req)
	if err != nil {
		h.log.Debug(r.Context(), "scan rejected",
			logger.String("team", req.TeamID), logger.String("checkpoint", req.CheckpointID), logger.Error(err))
		writeError(w, err)
		return
	}
	if status == service.IngestDuplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: string(status), Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: string(status)})
}

type scanAction func(ctx context.Context, teamID, roundID string, order int) (service.ScanStatus, error)

func serveScan(w http.ResponseWriter, r *http.Request, action scanAction) {
	order, err := intParam(r.PathValue("order"), "order")
	if err != nil {
		writeError(w, err)
		return
	}
	st, err := action(r.Context(), r.PathValue("team"), r.PathValue("id"), order)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HandleStatus handles GET /rounds/{id}/scans/{team}/{order}.
func (h *EventsHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	serveScan(w, r, h.svc.Status)
}

// HandleReopen handles POST /rounds/{id}/scans/{team}/{order}/reopen.
func (h *EventsHandler) HandleReopen(w http.ResponseWriter, r *http.Request) {
	serveScan(w, r, h.svc.Reopen)
}

// HandleLock handles POST /rounds/{id}/scans/{team}/{order}/lock.
func (h *EventsHandler) HandleLock(w http.ResponseWriter, r *http.Request) {
	serveScan(w, r, h.svc.Lock)
}
