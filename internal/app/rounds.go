package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ralucacrepcea/scoreapp/internal/adapters/docstore"
	"github.com/ralucacrepcea/scoreapp/internal/adapters/repository"
	"github.com/ralucacrepcea/scoreapp/internal/domain/checkpoint"
	"github.com/ralucacrepcea/scoreapp/internal/domain/model"
	"github.com/ralucacrepcea/scoreapp/internal/domain/rubric"
	"github.com/ralucacrepcea/scoreapp/pkg/logger"
	"github.com/ralucacrepcea/scoreapp/pkg/metrics"
)

// RoundView is a round with its checkpoints, secrets included.
type RoundView struct {
	model.Round
	Checkpoints []CheckpointView `json:"checkpoints"`
}

// CheckpointView exposes the secret of a checkpoint to administrators.
type CheckpointView struct {
	model.Checkpoint
	Secret string `json:"secret"`
}

// RenameReport lists what a round rename moved.
type RenameReport struct {
	From        string                 `json:"from"`
	To          string                 `json:"to"`
	Checkpoints repository.BatchReport `json:"checkpoints"`
	Scans       repository.BatchReport `json:"scans"`
	Teams       repository.BatchReport `json:"teams"`
}

func validName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, "/_") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return name, nil
}

// Rounds lists every round.
func (s *Service) Rounds(ctx context.Context) ([]model.Round, error) {
	return s.repo.Rounds(ctx)
}

// Round returns a round with all of its checkpoints.
func (s *Service) Round(ctx context.Context, id string) (RoundView, error) {
	rd, err := s.repo.Round(ctx, id)
	if err != nil {
		return RoundView{}, err
	}
	cps, err := s.repo.Checkpoints(ctx, id)
	if err != nil {
		return RoundView{}, err
	}
	view := RoundView{Round: rd, Checkpoints: make([]CheckpointView, 0, len(cps))}
	for _, cp := range cps {
		view.Checkpoints = append(view.Checkpoints, CheckpointView{Checkpoint: cp, Secret: cp.Secret})
	}
	return view, nil
}

// CreateRound stores a new round and reconciles its checkpoints. A nil
// total uses the configured default.
func (s *Service) CreateRound(ctx context.Context, id string, total *int) (model.Round, checkpoint.Result, error) {
	id, err := validName(id)
	if err != nil {
		return model.Round{}, checkpoint.Result{}, err
	}
	if _, err := s.repo.Round(ctx, id); err == nil {
		return model.Round{}, checkpoint.Result{}, fmt.Errorf("%w: round %s", ErrExists, id)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return model.Round{}, checkpoint.Result{}, err
	}

	n := s.defaultCheckpoints
	if total != nil {
		n = *total
	}
	n = s.reconciler.Clamp(n)
	now := s.now().UnixMilli()
	rd := model.Round{
		ID:               id,
		TotalCheckpoints: n,
		RefTemps:         model.PadRefs(nil, n),
		RefHumidity:      model.PadRefs(nil, n),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.PutRound(ctx, rd); err != nil {
		return model.Round{}, checkpoint.Result{}, err
	}
	res, err := s.reconcile(ctx, id, n)
	if err != nil {
		return rd, res, err
	}
	s.logger.Info(ctx, "round created", logger.String("round", id), logger.Int("checkpoints", n))
	return rd, res, nil
}

// SetRoundTotal changes the checkpoint count of a round, resizes its
// references and reconciles its checkpoints.
func (s *Service) SetRoundTotal(ctx context.Context, id string, total int) (checkpoint.Result, error) {
	rd, err := s.repo.Round(ctx, id)
	if err != nil {
		return checkpoint.Result{}, err
	}
	n := s.reconciler.Clamp(total)
	rd.TotalCheckpoints = n
	rd.RefTemps = model.PadRefs(rd.RefTemps, n)
	rd.RefHumidity = model.PadRefs(rd.RefHumidity, n)
	rd.UpdatedAt = s.now().UnixMilli()
	if err := s.repo.PutRound(ctx, rd); err != nil {
		return checkpoint.Result{}, err
	}
	return s.reconcile(ctx, id, n)
}

// ReconcileRound reconciles a round against its stored checkpoint count.
func (s *Service) ReconcileRound(ctx context.Context, id string) (checkpoint.Result, error) {
	rd, err := s.repo.Round(ctx, id)
	if err != nil {
		return checkpoint.Result{}, err
	}
	return s.reconcile(ctx, id, rd.TotalCheckpoints)
}

func (s *Service) reconcile(ctx context.Context, roundID string, target int) (checkpoint.Result, error) {
	res, err := s.reconciler.Reconcile(ctx, roundID, target)
	metrics.RecordReconcile(res.Created, res.Activated, res.Secured, res.Deactivated)
	if err != nil {
		metrics.RecordErrorByComponent("reconciler", "store")
		return res, fmt.Errorf("reconcile %s: %w", roundID, err)
	}
	return res, nil
}

// DeleteRound deactivates every checkpoint of a round and deletes the round.
// Checkpoints and scans are kept for history.
func (s *Service) DeleteRound(ctx context.Context, id string) (checkpoint.Result, error) {
	if _, err := s.repo.Round(ctx, id); err != nil {
		return checkpoint.Result{}, err
	}
	res, err := s.reconciler.DeactivateAll(ctx, id)
	metrics.RecordReconcile(0, 0, 0, res.Deactivated)
	if err != nil {
		return res, fmt.Errorf("deactivate checkpoints of %s: %w", id, err)
	}
	if err := s.repo.DeleteRound(ctx, id); err != nil {
		return res, err
	}
	s.logger.Info(ctx, "round deleted", logger.String("round", id), logger.Int("deactivated", res.Deactivated))
	return res, nil
}

// RenameRound copies a round under a new id, moves its checkpoints, scans
// and mission scores across, then deletes the old round. The copy is marked
// with the old id until the move completes; failed chunks are reported, the
// old round is kept and calling RenameRound again resumes the move.
func (s *Service) RenameRound(ctx context.Context, from, to string) (RenameReport, error) {
	report := RenameReport{From: from}
	to, err := validName(to)
	if err != nil {
		return report, err
	}
	report.To = to
	if from == to {
		return report, nil
	}

	rd, err := s.repo.Round(ctx, from)
	if err != nil {
		return report, err
	}
	target, err := s.repo.Round(ctx, to)
	switch {
	case err == nil:
		if target.RenamedFrom != from {
			return report, fmt.Errorf("%w: round %s", ErrExists, to)
		}
		s.logger.Info(ctx, "resuming round rename", logger.String("from", from), logger.String("to", to))
	case errors.Is(err, repository.ErrNotFound):
		target = rd
		target.ID = to
		target.RenamedFrom = from
		target.UpdatedAt = s.now().UnixMilli()
		if err := s.repo.PutRound(ctx, target); err != nil {
			return report, err
		}
	default:
		return report, err
	}

	var errs []error
	report.Checkpoints, err = s.repo.RehomeCheckpoints(ctx, from, to)
	errs = append(errs, err)
	report.Scans, err = s.repo.RekeyScans(ctx, from, to)
	errs = append(errs, err)
	report.Teams, err = s.repo.MigrateRoster(ctx, func(t model.Team) []docstore.FieldWrite {
		var writes []docstore.FieldWrite
		for _, field := range fieldsOf(t) {
			if round, col, ok := rubric.ParseMissionKey(field); ok && round == from {
				writes = append(writes, moveField(t, field, rubric.MissionKey(to, col))...)
			}
		}
		return writes
	})
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		s.logger.Error(ctx, "round rename incomplete",
			logger.String("from", from), logger.String("to", to), logger.Error(err))
		return report, err
	}
	if err := s.repo.DeleteRound(ctx, from); err != nil {
		return report, err
	}
	target.RenamedFrom = ""
	target.UpdatedAt = s.now().UnixMilli()
	if err := s.repo.PutRound(ctx, target); err != nil {
		return report, err
	}
	s.logger.Info(ctx, "round renamed",
		logger.String("from", from),
		logger.String("to", to),
		logger.Int("teams", len(report.Teams.Migrated)),
		logger.Int("scans", len(report.Scans.Migrated)))
	return report, nil
}

// SetRoundRefs stores per-checkpoint reference readings, padded or cut to
// the round's checkpoint count.
func (s *Service) SetRoundRefs(ctx context.Context, id string, temps, hums []*float64) (model.Round, error) {
	rd, err := s.repo.Round(ctx, id)
	if err != nil {
		return model.Round{}, err
	}
	rd.RefTemps = model.PadRefs(temps, rd.TotalCheckpoints)
	rd.RefHumidity = model.PadRefs(hums, rd.TotalCheckpoints)
	rd.UpdatedAt = s.now().UnixMilli()
	return rd, s.repo.PutRound(ctx, rd)
}

// SetRoundTargets stores the round-level target readings; nil clears one.
func (s *Service) SetRoundTargets(ctx context.Context, id string, temp, hum *float64) (model.Round, error) {
	rd, err := s.repo.Round(ctx, id)
	if err != nil {
		return model.Round{}, err
	}
	rd.TargetTemp, rd.TargetHumidity = temp, hum
	rd.UpdatedAt = s.now().UnixMilli()
	return rd, s.repo.PutRound(ctx, rd)
}

// fieldsOf lists every field a team carries a score, note or meta for.
func fieldsOf(t model.Team) []string {
	seen := make(map[string]struct{}, len(t.Scores))
	var out []string
	add := func(f string) {
		if _, ok := seen[f]; !ok {
			seen[f] = struct{}{}
			out = append(out, f)
		}
	}
	for f := range t.Scores {
		add(f)
	}
	for f := range t.Notes {
		add(f)
	}
	for f := range t.Meta {
		add(f)
	}
	return out
}

// moveField returns the writes moving the score, note and meta of field
// from to field to.
func moveField(t model.Team, from, to string) []docstore.FieldWrite {
	var writes []docstore.FieldWrite
	if v, ok := t.Scores[from]; ok {
		writes = append(writes,
			docstore.Set(v, model.FieldScores, to),
			docstore.Remove(model.FieldScores, from))
	}
	if n, ok := t.Notes[from]; ok {
		writes = append(writes,
			docstore.Set(n, model.FieldNotes, to),
			docstore.Remove(model.FieldNotes, from))
	}
	if m, ok := t.Meta[from]; ok {
		writes = append(writes,
			docstore.Set(m, model.FieldMetaKey, to),
			docstore.Remove(model.FieldMetaKey, from))
	}
	return writes
}
