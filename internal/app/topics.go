package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ralucacrepcea/scoreapp/internal/adapters/docstore"
	"github.com/ralucacrepcea/scoreapp/internal/adapters/repository"
	"github.com/ralucacrepcea/scoreapp/internal/domain/grading"
	"github.com/ralucacrepcea/scoreapp/internal/domain/model"
	"github.com/ralucacrepcea/scoreapp/internal/domain/rubric"
	"github.com/ralucacrepcea/scoreapp/pkg/logger"
)

// ColumnInput is a column as submitted by an administrator.
type ColumnInput struct {
	Label  string   `json:"label" validate:"required"`
	Key    string   `json:"key"`
	Weight *float64 `json:"weight"`
}

// WeightSummary tells whether the rubric yields defined grades.
type WeightSummary struct {
	Topics   []rubric.Topic `json:"topics"`
	Total    float64        `json:"total"`
	Complete bool           `json:"complete"`
}

// Topics lists every topic with the weight total.
func (s *Service) Topics(ctx context.Context) (WeightSummary, error) {
	topics, err := s.repo.Topics(ctx)
	if err != nil {
		return WeightSummary{}, err
	}
	total := grading.WeightTotal(topics)
	return WeightSummary{Topics: topics, Total: total, Complete: grading.IsComplete(total)}, nil
}

// EnsureMission creates the Mission Performance topic when it is missing.
func (s *Service) EnsureMission(ctx context.Context) (rubric.Topic, error) {
	mp, err := s.repo.Topic(ctx, rubric.MissionTopicID)
	if err == nil {
		return mp, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return rubric.Topic{}, err
	}
	mp = rubric.Topic{
		ID:      rubric.MissionTopicID,
		Weight:  rubric.ClampWeight(s.missionWeight),
		Columns: []rubric.Column{rubric.DefaultColumn},
	}
	if err := s.repo.PutTopic(ctx, mp); err != nil {
		return rubric.Topic{}, err
	}
	s.logger.Info(ctx, "mission performance topic created", logger.Float64("weight", mp.Weight))
	return mp, nil
}

func (s *Service) topicMissing(ctx context.Context, name string) error {
	_, err := s.repo.Topic(ctx, name)
	switch {
	case err == nil:
		return fmt.Errorf("%w: topic %s", ErrExists, name)
	case errors.Is(err, repository.ErrNotFound):
		return nil
	}
	return err
}

// AddTopic creates a topic with weight 0 and the default column, and seeds
// its score field to 0 on every team that lacks it.
func (s *Service) AddTopic(ctx context.Context, name string) (rubric.Topic, repository.BatchReport, error) {
	name = strings.TrimSpace(name)
	if err := rubric.ValidTopicName(name); err != nil {
		return rubric.Topic{}, repository.BatchReport{}, fmt.Errorf("%w: %w", ErrInvalidName, err)
	}
	if err := s.topicMissing(ctx, name); err != nil {
		return rubric.Topic{}, repository.BatchReport{}, err
	}

	t := rubric.Topic{ID: name, Columns: []rubric.Column{rubric.DefaultColumn}}
	if err := s.repo.PutTopic(ctx, t); err != nil {
		return rubric.Topic{}, repository.BatchReport{}, err
	}
	report, err := s.repo.MigrateRoster(ctx, func(team model.Team) []docstore.FieldWrite {
		if _, ok := team.Scores[name]; ok {
			return nil
		}
		return []docstore.FieldWrite{docstore.Set(0, model.FieldScores, name)}
	})
	s.logger.Info(ctx, "topic added", logger.String("topic", name), logger.Int("seeded", len(report.Migrated)))
	return t, report, err
}

// RenameTopic moves a topic and every team's scores, notes and save meta
// for it to a new name. Mission Performance cannot be renamed.
func (s *Service) RenameTopic(ctx context.Context, from, to string) (repository.BatchReport, error) {
	if from == rubric.MissionTopicID {
		return repository.BatchReport{}, rubric.ErrReservedTopic
	}
	to = strings.TrimSpace(to)
	if err := rubric.ValidTopicName(to); err != nil {
		return repository.BatchReport{}, fmt.Errorf("%w: %w", ErrInvalidName, err)
	}
	if from == to {
		return repository.BatchReport{}, nil
	}
	t, err := s.repo.Topic(ctx, from)
	if err != nil {
		return repository.BatchReport{}, err
	}
	if err := s.topicMissing(ctx, to); err != nil {
		return repository.BatchReport{}, err
	}

	t.ID = to
	if err := s.repo.PutTopic(ctx, t); err != nil {
		return repository.BatchReport{}, err
	}
	report, err := s.repo.MigrateRoster(ctx, func(team model.Team) []docstore.FieldWrite {
		return moveField(team, from, to)
	})
	if err != nil {
		return report, err
	}
	if err := s.repo.DeleteTopic(ctx, from); err != nil {
		return report, err
	}
	s.logger.Info(ctx, "topic renamed", logger.String("from", from), logger.String("to", to))
	return report, nil
}

// DeleteTopic removes a topic and its field from every team. Mission
// Performance cannot be deleted.
func (s *Service) DeleteTopic(ctx context.Context, name string) (repository.BatchReport, error) {
	if name == rubric.MissionTopicID {
		return repository.BatchReport{}, rubric.ErrReservedTopic
	}
	if _, err := s.repo.Topic(ctx, name); err != nil {
		return repository.BatchReport{}, err
	}
	if err := s.repo.DeleteTopic(ctx, name); err != nil {
		return repository.BatchReport{}, err
	}
	report, err := s.repo.MigrateRoster(ctx, func(team model.Team) []docstore.FieldWrite {
		var writes []docstore.FieldWrite
		if _, ok := team.Scores[name]; ok {
			writes = append(writes, docstore.Remove(model.FieldScores, name))
		}
		if _, ok := team.Notes[name]; ok {
			writes = append(writes, docstore.Remove(model.FieldNotes, name))
		}
		if _, ok := team.Meta[name]; ok {
			writes = append(writes, docstore.Remove(model.FieldMetaKey, name))
		}
		return writes
	})
	s.logger.Info(ctx, "topic deleted", logger.String("topic", name), logger.Int("teams", len(report.Migrated)))
	return report, err
}

// SetTopicWeight stores a weight clamped to [0,100] and returns the new
// weight summary. Totals other than 100 are accepted and leave grades
// undefined.
func (s *Service) SetTopicWeight(ctx context.Context, id string, weight float64) (WeightSummary, error) {
	if err := s.repo.SetTopicWeight(ctx, id, rubric.ClampWeight(weight)); err != nil {
		return WeightSummary{}, err
	}
	return s.Topics(ctx)
}

// SetTopicColumns validates and stores the columns of a topic. Columns are
// de-duplicated by key, the first one winning.
func (s *Service) SetTopicColumns(ctx context.Context, id string, in []ColumnInput) (rubric.Topic, error) {
	cols := make([]rubric.Column, 0, len(in))
	for i, c := range in {
		col, err := rubric.NewColumn(c.Label, c.Key, c.Weight)
		if err != nil {
			return rubric.Topic{}, fmt.Errorf("column %d: %w", i+1, err)
		}
		cols = append(cols, col)
	}
	cols = rubric.Normalize(cols)
	if err := s.repo.SetTopicColumns(ctx, id, cols); err != nil {
		return rubric.Topic{}, err
	}
	return s.repo.Topic(ctx, id)
}
