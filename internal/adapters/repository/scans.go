package repository

import (
	"context"
	"fmt"

	"github.com/ralucacrepcea/scoreapp/internal/adapters/docstore"
	"github.com/ralucacrepcea/scoreapp/internal/domain/model"
)

func scanData(s model.Scan) map[string]any {
	data := map[string]any{
		"teamId":      s.TeamID,
		"roundId":     s.RoundID,
		"cpId":        s.CheckpointID,
		"createdAtMs": s.CreatedAtMs,
		"updatedAtMs": s.UpdatedAtMs,
		"locked":      s.Locked,
	}
	if s.Temp != nil {
		data["temp"] = *s.Temp
	}
	if s.Humidity != nil {
		data["humidity"] = *s.Humidity
	}
	if s.ReopenedAtMs > 0 {
		data["reopenedAtMs"] = s.ReopenedAtMs
	}
	return data
}

// Scan returns one scan by its document id.
func (r *Repository) Scan(ctx context.Context, id string) (model.Scan, error) {
	var s model.Scan
	if err := r.get(ctx, CollScans, id, &s); err != nil {
		return model.Scan{}, err
	}
	return s, nil
}

// UpsertScan merges s into the document at its canonical key. Readings
// absent from s are left as stored.
func (r *Repository) UpsertScan(ctx context.Context, s model.Scan) error {
	if err := r.store.Set(ctx, CollScans, s.Key(), scanData(s), true); err != nil {
		return fmt.Errorf("upsert scan %s: %w", s.Key(), err)
	}
	return nil
}

// LockScan sets the explicit lock of a scan.
func (r *Repository) LockScan(ctx context.Context, id string, locked bool, now int64) error {
	err := r.store.Update(ctx, CollScans, id,
		docstore.Set(locked, "locked"),
		docstore.Set(now, "updatedAtMs"))
	if err != nil {
		return r.notFound(err, CollScans, id)
	}
	return nil
}

// RoundScans returns every scan of a round.
func (r *Repository) RoundScans(ctx context.Context, roundID string) ([]model.Scan, error) {
	q := docstore.Collection(CollScans).Where("roundId", docstore.OpEq, roundID)
	docs, err := r.store.Find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list scans of %s: %w", roundID, err)
	}
	return decodeAll[model.Scan](docs, r.skip(ctx, CollScans)), nil
}

// RecentScans returns scans created at or after sinceMs, newest first.
func (r *Repository) RecentScans(ctx context.Context, sinceMs int64, limit int) ([]model.Scan, error) {
	docs, err := r.store.Find(ctx, recentScans(sinceMs, limit))
	if err != nil {
		return nil, fmt.Errorf("list recent scans: %w", err)
	}
	return decodeAll[model.Scan](docs, r.skip(ctx, CollScans)), nil
}

func recentScans(sinceMs int64, limit int) docstore.Query {
	return docstore.Collection(CollScans).
		Where("createdAtMs", docstore.OpGte, sinceMs).
		Order("createdAtMs", true).
		Take(limit)
}

// RekeyScans moves every scan of round from under the canonical key of round
// to. Each scan is moved by one delete and one set in the same batch.
func (r *Repository) RekeyScans(ctx context.Context, from, to string) (BatchReport, error) {
	scans, err := r.RoundScans(ctx, from)
	if err != nil {
		return BatchReport{}, err
	}
	changes := make([]Change, 0, len(scans))
	for _, s := range scans {
		oldID := s.ID
		s.RoundID = to
		changes = append(changes, Change{ID: oldID, Writes: []docstore.Write{
			{Kind: docstore.KindDelete, Collection: CollScans, ID: oldID},
			{Kind: docstore.KindSet, Collection: CollScans, ID: s.Key(), Data: scanData(s), Merge: true},
		}})
	}
	return r.Commit(ctx, changes)
}

// TouchScan records a later touch of an existing scan along with any new
// readings. The creation time is left alone.
func (r *Repository) TouchScan(ctx context.Context, id string, at int64, temp, hum *float64) error {
	fields := []docstore.FieldWrite{docstore.Set(at, "updatedAtMs")}
	if temp != nil {
		fields = append(fields, docstore.Set(*temp, "temp"))
	}
	if hum != nil {
		fields = append(fields, docstore.Set(*hum, "humidity"))
	}
	if err := r.store.Update(ctx, CollScans, id, fields...); err != nil {
		return r.notFound(err, CollScans, id)
	}
	return nil
}

// BackdateScan moves the first-reach time of a scan back to at.
func (r *Repository) BackdateScan(ctx context.Context, id string, at int64) error {
	if err := r.store.Update(ctx, CollScans, id, docstore.Set(at, "createdAtMs")); err != nil {
		return r.notFound(err, CollScans, id)
	}
	return nil
}
