package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/ralucacrepcea/scoreapp/internal/adapters/docstore"
	"github.com/ralucacrepcea/scoreapp/internal/domain/rubric"
)

func topicData(t rubric.Topic) map[string]any {
	cols := make([]any, 0, len(t.Columns))
	for _, c := range t.Columns {
		col := map[string]any{"key": c.Key, "label": c.Label}
		if c.Weight != nil {
			col["weight"] = *c.Weight
		}
		cols = append(cols, col)
	}
	return map[string]any{"weight": t.Weight, "columns": cols}
}

// Topics returns every topic, Mission Performance first, then by id.
func (r *Repository) Topics(ctx context.Context) ([]rubric.Topic, error) {
	docs, err := r.store.Find(ctx, docstore.Collection(CollTopics))
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	topics := decodeAll[rubric.Topic](docs, r.skip(ctx, CollTopics))
	sortTopics(topics)
	return topics, nil
}

// Topic returns one topic.
func (r *Repository) Topic(ctx context.Context, id string) (rubric.Topic, error) {
	var t rubric.Topic
	if err := r.get(ctx, CollTopics, id, &t); err != nil {
		return rubric.Topic{}, err
	}
	return t, nil
}

// PutTopic replaces a topic document.
func (r *Repository) PutTopic(ctx context.Context, t rubric.Topic) error {
	if err := r.store.Set(ctx, CollTopics, t.ID, topicData(t), false); err != nil {
		return fmt.Errorf("put topic %s: %w", t.ID, err)
	}
	return nil
}

// SetTopicWeight updates only the weight of a topic.
func (r *Repository) SetTopicWeight(ctx context.Context, id string, weight float64) error {
	if err := r.store.Update(ctx, CollTopics, id, docstore.Set(weight, "weight")); err != nil {
		return r.notFound(err, CollTopics, id)
	}
	return nil
}

// SetTopicColumns replaces the columns of a topic.
func (r *Repository) SetTopicColumns(ctx context.Context, id string, cols []rubric.Column) error {
	data := topicData(rubric.Topic{Columns: cols})
	if err := r.store.Update(ctx, CollTopics, id, docstore.Set(data["columns"], "columns")); err != nil {
		return r.notFound(err, CollTopics, id)
	}
	return nil
}

// DeleteTopic removes a topic document.
func (r *Repository) DeleteTopic(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, CollTopics, id); err != nil {
		return fmt.Errorf("delete topic %s: %w", id, err)
	}
	return nil
}

func sortTopics(topics []rubric.Topic) {
	sort.Slice(topics, func(i, j int) bool {
		if topics[i].IsMission() != topics[j].IsMission() {
			return topics[i].IsMission()
		}
		return topics[i].ID < topics[j].ID
	})
}
