package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ralucacrepcea/scoreapp/internal/domain/editbuf"
	"github.com/ralucacrepcea/scoreapp/internal/domain/model"
	"github.com/ralucacrepcea/scoreapp/pkg/logger"
	"github.com/ralucacrepcea/scoreapp/pkg/metrics"
)

// Teams lists the roster.
func (s *Service) Teams(ctx context.Context) ([]model.Team, error) {
	return s.repo.Teams(ctx)
}

// AddTeam registers a team under a generated id.
func (s *Service) AddTeam(ctx context.Context, name string) (model.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Team{}, fmt.Errorf("%w: empty team name", ErrInvalidName)
	}
	id := uuid.NewString()
	if err := s.repo.PutTeam(ctx, id, name); err != nil {
		return model.Team{}, err
	}
	return s.repo.Team(ctx, id)
}

// RenameTeam changes the display name of a team.
func (s *Service) RenameTeam(ctx context.Context, id, name string) (model.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Team{}, fmt.Errorf("%w: empty team name", ErrInvalidName)
	}
	if _, err := s.repo.Team(ctx, id); err != nil {
		return model.Team{}, err
	}
	if err := s.repo.PutTeam(ctx, id, name); err != nil {
		return model.Team{}, err
	}
	return s.repo.Team(ctx, id)
}

func (s *Service) editBuffer(actor string) (*editbuf.Buffer, error) {
	if strings.TrimSpace(actor) == "" {
		return nil, ErrNoActor
	}
	return s.buffers.For(actor), nil
}

func checkRef(ref model.FieldRef) error {
	if ref.TeamID == "" || ref.Field == "" {
		return editbuf.ErrInvalidRef
	}
	return nil
}

// SetValue buffers an unsaved value typed by actor. Nothing is persisted.
func (s *Service) SetValue(actor string, ref model.FieldRef, raw any) error {
	if err := checkRef(ref); err != nil {
		return err
	}
	buf, err := s.editBuffer(actor)
	if err != nil {
		return err
	}
	buf.SetValue(ref, raw)
	metrics.UpdateBufferedEdits(s.buffers.Total())
	return nil
}

// SetNote buffers an unsaved note typed by actor.
func (s *Service) SetNote(actor string, ref model.FieldRef, note string) error {
	if err := checkRef(ref); err != nil {
		return err
	}
	buf, err := s.editBuffer(actor)
	if err != nil {
		return err
	}
	buf.SetNote(ref, note)
	metrics.UpdateBufferedEdits(s.buffers.Total())
	return nil
}

// Discard drops actor's unsaved edit of ref.
func (s *Service) Discard(actor string, ref model.FieldRef) {
	if buf := s.buffers.Peek(actor); buf != nil {
		buf.Discard(ref)
		metrics.UpdateBufferedEdits(s.buffers.Total())
	}
}

// PendingEdit is one unsaved field of a judge.
type PendingEdit struct {
	Ref model.FieldRef `json:"ref"`
	editbuf.Entry
}

// Pending lists actor's unsaved edits.
func (s *Service) Pending(actor string) []PendingEdit {
	buf := s.buffers.Peek(actor)
	if buf == nil {
		return nil
	}
	refs := buf.Refs()
	out := make([]PendingEdit, 0, len(refs))
	for _, ref := range refs {
		if e, ok := buf.Get(ref); ok {
			out = append(out, PendingEdit{Ref: ref, Entry: e})
		}
	}
	return out
}

// Save commits actor's edit of ref. expectedHash, when non-nil, must match
// the persisted fingerprint.
func (s *Service) Save(ctx context.Context, actor string, ref model.FieldRef, expectedHash *string) (editbuf.SaveResult, error) {
	buf, err := s.editBuffer(actor)
	if err != nil {
		return editbuf.SaveResult{}, err
	}
	res, err := s.saver.Save(ctx, actor, buf, ref, editbuf.SaveOptions{ExpectedHash: expectedHash})
	metrics.UpdateBufferedEdits(s.buffers.Total())
	if err != nil {
		return editbuf.SaveResult{}, err
	}
	s.logger.Info(ctx, "score saved",
		logger.String("actor", actor), logger.String("ref", ref.String()), logger.Float64("value", res.Value))
	return res, nil
}

// SaveAll commits every unsaved edit of actor. Fields that fail stay buffered.
func (s *Service) SaveAll(ctx context.Context, actor string) ([]editbuf.SaveResult, error) {
	buf, err := s.editBuffer(actor)
	if err != nil {
		return nil, err
	}
	res, err := s.saver.SaveAll(ctx, actor, buf)
	metrics.UpdateBufferedEdits(s.buffers.Total())
	if err != nil {
		s.logger.Warn(ctx, "some saves failed",
			logger.String("actor", actor), logger.Int("saved", len(res)), logger.Error(err))
	}
	return res, err
}

// Audits returns the newest audit records of a team. limit <= 0 returns all.
func (s *Service) Audits(ctx context.Context, teamID string, limit int) ([]model.AuditRecord, error) {
	return s.repo.Audits(ctx, teamID, limit)
}
