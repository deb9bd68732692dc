// Package api exposes the scoreboard over HTTP.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/ralucacrepcea/scoreapp/internal/adapters/repository"
	service "github.com/ralucacrepcea/scoreapp/internal/app"
	"github.com/ralucacrepcea/scoreapp/internal/domain/checkpoint"
	"github.com/ralucacrepcea/scoreapp/internal/domain/editbuf"
	"github.com/ralucacrepcea/scoreapp/internal/domain/model"
	"github.com/ralucacrepcea/scoreapp/internal/domain/ranking"
	"github.com/ralucacrepcea/scoreapp/internal/domain/rubric"
	"github.com/ralucacrepcea/scoreapp/internal/export"
	"github.com/ralucacrepcea/scoreapp/pkg/logger"
)

// actorHeader names the judge an edit or live view belongs to. Identity is
// established upstream; the API trusts the header.
const actorHeader = "X-Actor"

// Service is the scoreboard surface the handlers call.
type Service interface {
	IngestScan(ctx context.Context, r service.ScanRequest) (service.IngestStatus, error)
	Status(ctx context.Context, teamID, roundID string, order int) (service.ScanStatus, error)
	Reopen(ctx context.Context, teamID, roundID string, order int) (service.ScanStatus, error)
	Lock(ctx context.Context, teamID, roundID string, order int) (service.ScanStatus, error)

	Rounds(ctx context.Context) ([]model.Round, error)
	Round(ctx context.Context, id string) (service.RoundView, error)
	CreateRound(ctx context.Context, id string, total *int) (model.Round, checkpoint.Result, error)
	SetRoundTotal(ctx context.Context, id string, total int) (checkpoint.Result, error)
	ReconcileRound(ctx context.Context, id string) (checkpoint.Result, error)
	DeleteRound(ctx context.Context, id string) (checkpoint.Result, error)
	RenameRound(ctx context.Context, from, to string) (service.RenameReport, error)
	SetRoundRefs(ctx context.Context, id string, temps, hums []*float64) (model.Round, error)
	SetRoundTargets(ctx context.Context, id string, temp, hum *float64) (model.Round, error)

	Topics(ctx context.Context) (service.WeightSummary, error)
	AddTopic(ctx context.Context, name string) (rubric.Topic, repository.BatchReport, error)
	RenameTopic(ctx context.Context, from, to string) (repository.BatchReport, error)
	DeleteTopic(ctx context.Context, name string) (repository.BatchReport, error)
	SetTopicWeight(ctx context.Context, id string, weight float64) (service.WeightSummary, error)
	SetTopicColumns(ctx context.Context, id string, in []service.ColumnInput) (rubric.Topic, error)

	Teams(ctx context.Context) ([]model.Team, error)
	AddTeam(ctx context.Context, name string) (model.Team, error)
	RenameTeam(ctx context.Context, id, name string) (model.Team, error)
	Audits(ctx context.Context, teamID string, limit int) ([]model.AuditRecord, error)

	SetValue(actor string, ref model.FieldRef, raw any) error
	SetNote(actor string, ref model.FieldRef, note string) error
	Discard(actor string, ref model.FieldRef)
	Pending(actor string) []service.PendingEdit
	Save(ctx context.Context, actor string, ref model.FieldRef, expectedHash *string) (editbuf.SaveResult, error)
	SaveAll(ctx context.Context, actor string) ([]editbuf.SaveResult, error)

	TeamGrade(ctx context.Context, teamID string, v service.View) (service.TeamGrade, error)
	Ranking(ctx context.Context, v service.View, limit int) ([]ranking.Entry, error)
	Benchmarks(ctx context.Context) (service.Benchmarks, error)
	Progress(ctx context.Context) ([]service.TeamProgress, error)
	Report(ctx context.Context, v service.View) (export.Report, error)

	GetStats(ctx context.Context) service.Stats
}

var _ Service = (*service.Service)(nil)

// Server wires HTTP routes for the scoreboard API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	eventsHandler      *EventsHandler
	roundsHandler      *RoundsHandler
	topicsHandler      *TopicsHandler
	teamsHandler       *TeamsHandler
	leaderboardHandler *LeaderboardHandler
	exportHandler      *ExportHandler
}

// NewServer creates the API server. maxLimit caps ranking page sizes.
func NewServer(svc Service, maxLimit int, log logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(svc),
		eventsHandler:      NewEventsHandler(svc, log),
		roundsHandler:      NewRoundsHandler(svc),
		topicsHandler:      NewTopicsHandler(svc),
		teamsHandler:       NewTeamsHandler(svc),
		leaderboardHandler: NewLeaderboardHandler(svc, maxLimit),
		exportHandler:      NewExportHandler(svc),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, MetricsMiddleware(h, endpoint))
	}

	route("GET /healthz", "healthz", s.healthHandler.HandleHealth)
	mux.Handle("GET /metrics", s.healthHandler.Metrics())
	route("GET /stats", "stats", s.statsHandler.HandleStats)

	route("POST /scans", "scans", s.eventsHandler.HandlePostScan)

	route("GET /rounds", "rounds", s.roundsHandler.HandleList)
	route("POST /rounds", "rounds", s.roundsHandler.HandleCreate)
	route("GET /rounds/{id}", "round", s.roundsHandler.HandleGet)
	route("DELETE /rounds/{id}", "round", s.roundsHandler.HandleDelete)
	route("PUT /rounds/{id}/total", "round_total", s.roundsHandler.HandleSetTotal)
	route("POST /rounds/{id}/reconcile", "round_reconcile", s.roundsHandler.HandleReconcile)
	route("POST /rounds/{id}/rename", "round_rename", s.roundsHandler.HandleRename)
	route("PUT /rounds/{id}/refs", "round_refs", s.roundsHandler.HandleSetRefs)
	route("PUT /rounds/{id}/targets", "round_targets", s.roundsHandler.HandleSetTargets)
	route("GET /rounds/{id}/scans/{team}/{order}", "scan_status", s.eventsHandler.HandleStatus)
	route("POST /rounds/{id}/scans/{team}/{order}/reopen", "scan_reopen", s.eventsHandler.HandleReopen)
	route("POST /rounds/{id}/scans/{team}/{order}/lock", "scan_lock", s.eventsHandler.HandleLock)

	route("GET /topics", "topics", s.topicsHandler.HandleList)
	route("POST /topics", "topics", s.topicsHandler.HandleAdd)
	route("DELETE /topics/{id}", "topic", s.topicsHandler.HandleDelete)
	route("POST /topics/{id}/rename", "topic_rename", s.topicsHandler.HandleRename)
	route("PUT /topics/{id}/weight", "topic_weight", s.topicsHandler.HandleSetWeight)
	route("PUT /topics/{id}/columns", "topic_columns", s.topicsHandler.HandleSetColumns)

	route("GET /teams", "teams", s.teamsHandler.HandleList)
	route("POST /teams", "teams", s.teamsHandler.HandleAdd)
	route("PUT /teams/{id}", "team", s.teamsHandler.HandleRename)
	route("GET /teams/{id}/grade", "team_grade", s.leaderboardHandler.HandleTeamGrade)
	route("GET /teams/{id}/audits", "team_audits", s.teamsHandler.HandleAudits)

	route("GET /edits", "edits", s.teamsHandler.HandlePending)
	route("PUT /edits", "edits", s.teamsHandler.HandleEdit)
	route("DELETE /edits", "edits", s.teamsHandler.HandleDiscard)
	route("POST /edits/save", "edits_save", s.teamsHandler.HandleSave)
	route("POST /edits/save-all", "edits_save_all", s.teamsHandler.HandleSaveAll)

	route("GET /ranking", "ranking", s.leaderboardHandler.HandleRanking)
	route("GET /benchmarks", "benchmarks", s.leaderboardHandler.HandleBenchmarks)
	route("GET /progress", "progress", s.leaderboardHandler.HandleProgress)
	route("GET /export/{file}", "export", s.exportHandler.HandleExport)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, code := statusOf(err)
	writeJSON(w, status, errorResponse{Code: code, Message: err.Error()})
}

// writeReport writes a batch result. A partial batch still returns its report.
func writeReport(w http.ResponseWriter, v any, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, v)
		return
	}
	status, code := statusOf(err)
	if status == http.StatusMultiStatus {
		writeJSON(w, status, map[string]any{"code": code, "message": err.Error(), "report": v})
		return
	}
	writeError(w, err)
}

func view(r *http.Request) service.View {
	live, _ := strconv.ParseBool(r.URL.Query().Get("live"))
	return service.View{Actor: r.Header.Get(actorHeader), Live: live}
}

func readBody(r *http.Request) io.Reader {
	return io.LimitReader(r.Body, maxBodyBytes)
}
