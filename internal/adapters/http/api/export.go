package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/ralucacrepcea/scoreapp/internal/export"
)

// ExportHandler serves the CSV downloads.
type ExportHandler struct {
	svc Service
}

// NewExportHandler creates a new export handler.
func NewExportHandler(svc Service) *ExportHandler {
	return &ExportHandler{svc: svc}
}

// HandleExport handles GET /export/{kind}.csv?live=.
func (h *ExportHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	file := r.PathValue("file")
	name, ok := strings.CutSuffix(file, ".csv")
	if !ok {
		writeError(w, fmt.Errorf("%w: %q", export.ErrUnknownKind, file))
		return
	}
	v := view(r)
	if name == string(export.KindLive) {
		v.Live = true
	}
	report, err := h.svc.Report(r.Context(), v)
	if err != nil {
		writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, export.Kind(name), report); err != nil {
		writeError(w, err)
		return
	}
	stamp := report.GeneratedAt.UTC().Format("2006-01-02-15-04-05")
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-%s.csv"`, name, stamp))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
