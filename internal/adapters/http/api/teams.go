package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ralucacrepcea/scoreapp/internal/domain/model"
)

// TeamsHandler handles the roster, judge edits and the audit trail.
type TeamsHandler struct {
	svc Service
}

// NewTeamsHandler creates a new teams handler.
func NewTeamsHandler(svc Service) *TeamsHandler {
	return &TeamsHandler{svc: svc}
}

type teamRequest struct {
	Name string `json:"name" validate:"required"`
}

type fieldRequest struct {
	TeamID string `json:"teamId" validate:"required"`
	Field  string `json:"field" validate:"required"`
	Sub    string `json:"sub"`
}

func (f fieldRequest) ref() model.FieldRef {
	return model.FieldRef{TeamID: f.TeamID, Field: f.Field, Sub: f.Sub}
}

type editRequest struct {
	fieldRequest
	Value json.RawMessage `json:"value"`
	Note  *string         `json:"note"`
}

type saveRequest struct {
	fieldRequest
	ExpectedHash *string `json:"expectedHash"`
}

// HandleList handles GET /teams.
func (h *TeamsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	teams, err := h.svc.Teams(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

// HandleAdd handles POST /teams.
func (h *TeamsHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req teamRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	team, err := h.svc.AddTeam(r.Context(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

// HandleRename handles PUT /teams/{id}.
func (h *TeamsHandler) HandleRename(w http.ResponseWriter, r *http.Request) {
	var req teamRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	team, err := h.svc.RenameTeam(r.Context(), r.PathValue("id"), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

// HandleAudits handles GET /teams/{id}/audits.
func (h *TeamsHandler) HandleAudits(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := intParam(raw, "limit")
		if err != nil {
			writeError(w, err)
			return
		}
		limit = n
	}
	audits, err := h.svc.Audits(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, audits)
}

// HandlePending handles GET /edits.
func (h *TeamsHandler) HandlePending(w http.ResponseWriter, r *http.Request) {
	who, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Pending(who))
}

// HandleEdit handles PUT /edits: buffers a value and/or note.
func (h *TeamsHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	who, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req editRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Value) == 0 && req.Note == nil {
		writeError(w, fmt.Errorf("%w: value or note required", ErrBadRequest))
		return
	}
	if len(req.Value) > 0 {
		var raw any
		if err := json.Unmarshal(req.Value, &raw); err != nil {
			writeError(w, fmt.Errorf("%w: %w", ErrBadRequest, err))
			return
		}
		if err := h.svc.SetValue(who, req.ref(), raw); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.Note != nil {
		if err := h.svc.SetNote(who, req.ref(), *req.Note); err != nil {
			writeError(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDiscard handles DELETE /edits?teamId=&field=&sub=.
func (h *TeamsHandler) HandleDiscard(w http.ResponseWriter, r *http.Request) {
	who, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	h.svc.Discard(who, model.FieldRef{TeamID: q.Get("teamId"), Field: q.Get("field"), Sub: q.Get("sub")})
	w.WriteHeader(http.StatusNoContent)
}

// HandleSave handles POST /edits/save.
func (h *TeamsHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	who, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req saveRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.svc.Save(r.Context(), who, req.ref(), req.ExpectedHash)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleSaveAll handles POST /edits/save-all.
func (h *TeamsHandler) HandleSaveAll(w http.ResponseWriter, r *http.Request) {
	who, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.svc.SaveAll(r.Context(), who)
	if err != nil {
		writeJSON(w, http.StatusMultiStatus, map[string]any{
			"saved":   res,
			"message": err.Error(),
			"pending": len(h.svc.Pending(who)),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"saved": res})
}
