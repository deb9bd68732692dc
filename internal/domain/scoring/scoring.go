// Package scoring turns raw judge input into bounded field scores and
// aggregates them over weighted rubric columns.
package scoring

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/ralucacrepcea/scoreapp/internal/domain/rubric"
)

// Score bounds.
const (
	MinScore = 0
	MaxScore = 10
)

// Lookup resolves the raw value stored under a column key.
type Lookup func(col string) any

// FieldLookup resolves the raw value of a field or one of its columns.
type FieldLookup func(field, sub string) any

// ParseScore converts raw judge input to a score in [0,10].
// Absent or unparseable input scores 0 and a decimal comma is accepted.
func ParseScore(raw any) float64 {
	return Clamp(parse(raw))
}

// Clamp bounds v to [0,10]; NaN becomes 0.
func Clamp(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < MinScore:
		return MinScore
	case v > MaxScore:
		return MaxScore
	}
	return v
}

// Round3 rounds v to three decimals.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func parse(raw any) float64 {
	switch v := raw.(type) {
	case nil:
		return 0
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(v), ",", ".")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

// Aggregate combines column scores. When any column declares a positive
// weight the result is the weighted sum over the normalised declared weights,
// with undeclared weights counting as zero. Otherwise it is the plain mean.
// No columns aggregate to 0.
func Aggregate(cols []rubric.Column, lookup Lookup) float64 {
	if len(cols) == 0 {
		return 0
	}
	var total float64
	weighted := false
	for _, c := range cols {
		if c.W() > 0 {
			weighted = true
		}
		total += c.W()
	}
	var sum float64
	if weighted {
		for _, c := range cols {
			sum += ParseScore(lookup(c.Key)) * c.W() / total
		}
		return sum
	}
	for _, c := range cols {
		sum += ParseScore(lookup(c.Key))
	}
	return sum / float64(len(cols))
}

// FieldScore scores one field: a scalar when cols is empty, otherwise the
// aggregate of its columns.
func FieldScore(field string, cols []rubric.Column, lookup FieldLookup) float64 {
	if len(cols) == 0 {
		return ParseScore(lookup(field, ""))
	}
	return Aggregate(cols, func(col string) any { return lookup(field, col) })
}

// TopicScore scores a judged topic of a team.
func TopicScore(t rubric.Topic, lookup FieldLookup) float64 {
	return FieldScore(t.ID, t.Columns, lookup)
}
