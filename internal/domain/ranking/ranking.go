// Package ranking orders teams by final grade and derives the round
// benchmarks (speed and sensor accuracy) from checkpoint scans.
package ranking

import (
	"math"
	"sort"

	"github.com/ralucacrepcea/scoreapp/internal/domain/grading"
)

const gradeEpsilon = 1e-9

// Entry is one team in the ranking.
type Entry struct {
	Rank   int           `json:"rank"`
	TeamID string        `json:"teamId"`
	Name   string        `json:"name"`
	Grade  grading.Grade `json:"grade"`
}

// Rank sorts entries by grade descending and assigns standard competition
// ranks: tied teams share a rank and the next rank skips past them.
// Undefined grades sort as 0 but stay undefined. Ties are listed by name,
// then id, so the output is deterministic.
func Rank(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)

	sort.SliceStable(out, func(i, j int) bool {
		gi, gj := out[i].Grade.Or(0), out[j].Grade.Or(0)
		if !sameGrade(gi, gj) {
			return gi > gj
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].TeamID < out[j].TeamID
	})

	for i := range out {
		if i > 0 && sameGrade(out[i].Grade.Or(0), out[i-1].Grade.Or(0)) {
			out[i].Rank = out[i-1].Rank
			continue
		}
		out[i].Rank = i + 1
	}
	return out
}

func sameGrade(a, b float64) bool {
	return math.Abs(a-b) < gradeEpsilon
}
