package editbuf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ralucacrepcea/scoreapp/internal/domain/model"
	"github.com/ralucacrepcea/scoreapp/internal/domain/scoring"
	"github.com/ralucacrepcea/scoreapp/pkg/logger"
	"github.com/ralucacrepcea/scoreapp/pkg/metrics"
)

// FieldWrite sets the value at a document path.
type FieldWrite struct {
	Path  []string
	Value any
}

// Store is the persistence a Saver needs. CommitSave must apply the writes
// to the team and append the audit record atomically.
type Store interface {
	Team(ctx context.Context, id string) (model.Team, error)
	CommitSave(ctx context.Context, teamID string, writes []FieldWrite, audit model.AuditRecord) error
}

// Fingerprint identifies a saved value and note: a JSON array of the value
// rounded to three decimals and the trimmed note.
func Fingerprint(value float64, note string) string {
	b, err := json.Marshal([]any{scoring.Round3(value), strings.TrimSpace(note)})
	if err != nil {
		return ""
	}
	return string(b)
}

// SaveOptions tunes one save.
type SaveOptions struct {
	// ExpectedHash, when set, must equal the persisted fingerprint or the
	// save is rejected with ErrConflict.
	ExpectedHash *string
}

// SaveResult describes a committed save.
type SaveResult struct {
	Ref     model.FieldRef `json:"ref"`
	Value   float64        `json:"value"`
	Note    string         `json:"note"`
	Hash    string         `json:"hash"`
	SavedAt int64          `json:"savedAt"`
	AuditID string         `json:"auditId"`
}

// Saver commits buffered edits.
type Saver struct {
	store Store
	now   func() time.Time
	log   logger.Logger
}

// SaverOption configures a Saver.
type SaverOption func(*Saver)

// WithClock sets the time source.
func WithClock(now func() time.Time) SaverOption {
	return func(s *Saver) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) SaverOption {
	return func(s *Saver) {
		if l != nil {
			s.log = l
		}
	}
}

// NewSaver creates a Saver over store.
func NewSaver(store Store, opts ...SaverOption) *Saver {
	s := &Saver{store: store, now: time.Now, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save commits the buffered value and note of ref, falling back to the
// persisted ones for any part not buffered. The value is clamped and the
// note trimmed. On success an audit record is appended and the buffer entry
// cleared; on failure the buffer is left exactly as it was.
func (s *Saver) Save(ctx context.Context, actor string, buf *Buffer, ref model.FieldRef, opts SaveOptions) (SaveResult, error) {
	if ref.TeamID == "" || ref.Field == "" {
		return SaveResult{}, ErrInvalidRef
	}
	team, err := s.store.Team(ctx, ref.TeamID)
	if err != nil {
		return SaveResult{}, fmt.Errorf("load team %s: %w", ref.TeamID, err)
	}

	before := model.Snapshot{Note: team.NoteFor(ref.Field, ref.Sub)}
	before.Value, _ = team.Raw(ref.Field, ref.Sub)

	if opts.ExpectedHash != nil && *opts.ExpectedHash != team.MetaFor(ref.Field, ref.Sub).Hash {
		metrics.RecordSaveConflict()
		return SaveResult{}, fmt.Errorf("%w: %s", ErrConflict, ref)
	}

	entry, buffered := Entry{}, false
	if buf != nil {
		entry, buffered = buf.Get(ref)
	}
	raw, note := before.Value, before.Note
	if buffered && entry.HasValue {
		raw = entry.Value
	}
	if buffered && entry.Note != nil {
		note = *entry.Note
	}

	value := scoring.ParseScore(raw)
	note = strings.TrimSpace(note)
	at := s.now().UnixMilli()
	hash := Fingerprint(value, note)
	meta := ref.MetaPath()

	writes := []FieldWrite{
		{Path: ref.ScorePath(), Value: value},
		{Path: ref.NotePath(), Value: note},
		{Path: append(append([]string{}, meta...), "hash"), Value: hash},
		{Path: append(append([]string{}, meta...), "lastSavedAt"), Value: at},
	}
	audit := model.AuditRecord{
		ID:     uuid.NewString(),
		Actor:  actor,
		TeamID: ref.TeamID,
		Field:  ref.Field,
		Sub:    ref.Sub,
		Before: before,
		After:  model.Snapshot{Value: value, Note: note},
		At:     at,
	}

	if err := s.store.CommitSave(ctx, ref.TeamID, writes, audit); err != nil {
		metrics.RecordSaveFailed()
		s.log.Warn(ctx, "save failed, edit kept in buffer",
			logger.String("ref", ref.String()), logger.String("actor", actor), logger.Error(err))
		return SaveResult{}, fmt.Errorf("commit %s: %w", ref, err)
	}

	if buffered {
		buf.discardIf(ref, entry.version)
	}
	metrics.RecordSaveCommitted()
	s.log.Debug(ctx, "field saved", logger.String("ref", ref.String()), logger.String("actor", actor))

	return SaveResult{Ref: ref, Value: value, Note: note, Hash: hash, SavedAt: at, AuditID: audit.ID}, nil
}

// SaveAll commits every buffered field of buf, continuing past failures.
// It returns the committed results and the joined errors.
func (s *Saver) SaveAll(ctx context.Context, actor string, buf *Buffer) ([]SaveResult, error) {
	var (
		out  []SaveResult
		errs []error
	)
	for _, ref := range buf.Refs() {
		res, err := s.Save(ctx, actor, buf, ref, SaveOptions{})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, res)
	}
	return out, errors.Join(errs...)
}
