package dedupe

import (
	"sort"

	"github.com/ralucacrepcea/scoreapp/internal/domain/model"
)

// Prefer reports whether candidate should replace current as the record of
// their shared scan key. A record stored under the canonical key always
// wins; otherwise the more recently touched one does.
func Prefer(current, candidate model.Scan) bool {
	curCanon := current.ID == current.Key()
	candCanon := candidate.ID == candidate.Key()
	if curCanon != candCanon {
		return candCanon
	}
	return candidate.Touched() > current.Touched()
}

// MergeScans collapses scans to one record per canonical key, most recently
// created first. Records written by older clients under random ids are
// folded into the canonical one.
func MergeScans(scans []model.Scan) []model.Scan {
	byKey := make(map[string]model.Scan, len(scans))
	for _, s := range scans {
		key := s.Key()
		cur, ok := byKey[key]
		if !ok || Prefer(cur, s) {
			byKey[key] = s
		}
	}
	out := make([]model.Scan, 0, len(byKey))
	for _, s := range byKey {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAtMs != out[j].CreatedAtMs {
			return out[i].CreatedAtMs > out[j].CreatedAtMs
		}
		return out[i].Key() < out[j].Key()
	})
	return out
}
