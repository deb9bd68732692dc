// Package rubric models the judged topics of the competition and the
// columns a topic is split into.
package rubric

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// MissionTopicID is the reserved topic scored per round from checkpoint runs.
	MissionTopicID = "Mission Performance"

	maxSlugLen = 40
	maxWeight  = 100
)

// DefaultColumn is the single column given to new topics.
var DefaultColumn = Column{Key: "score", Label: "Score"}

// Column is one judged criterion of a topic.
// A nil Weight means no weight was declared.
type Column struct {
	Key    string   `mapstructure:"key" json:"key"`
	Label  string   `mapstructure:"label" json:"label"`
	Weight *float64 `mapstructure:"weight" json:"weight,omitempty"`
}

// W returns the declared weight or zero.
func (c Column) W() float64 {
	if c.Weight == nil {
		return 0
	}
	return *c.Weight
}

// NewColumn builds a validated column. The key defaults to the slug of the
// label and the weight, when given, is clamped to [0,100].
func NewColumn(label, key string, weight *float64) (Column, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return Column{}, ErrEmptyLabel
	}
	if strings.TrimSpace(key) == "" {
		key = label
	}
	key = Slug(key)
	if key == "" {
		return Column{}, ErrEmptyKey
	}
	c := Column{Key: key, Label: label}
	if weight != nil && !math.IsNaN(*weight) && !math.IsInf(*weight, 0) {
		w := ClampWeight(*weight)
		c.Weight = &w
	}
	return c, nil
}

// Normalize rebuilds cols through NewColumn, drops invalid entries and keeps
// the first column of each key.
func Normalize(cols []Column) []Column {
	out := make([]Column, 0, len(cols))
	seen := make(map[string]struct{}, len(cols))
	for _, raw := range cols {
		label := raw.Label
		if strings.TrimSpace(label) == "" {
			label = raw.Key
		}
		c, err := NewColumn(label, raw.Key, raw.Weight)
		if err != nil {
			continue
		}
		if _, dup := seen[c.Key]; dup {
			continue
		}
		seen[c.Key] = struct{}{}
		out = append(out, c)
	}
	return out
}

// FromDocument reads loosely shaped column data as stored by older clients:
// the label may live under label, name, title or key.
func FromDocument(raw any) []Column {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	cols := make([]Column, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		c := Column{Label: firstString(m, "label", "name", "title", "key")}
		c.Key, _ = m["key"].(string)
		if w, ok := toFloat(m["weight"]); ok {
			c.Weight = &w
		}
		cols = append(cols, c)
	}
	return Normalize(cols)
}

// Slug lowercases s, strips diacritics and joins alphanumeric runs with '-'.
func Slug(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		folded = strings.ToLower(strings.TrimSpace(s))
	}

	var b strings.Builder
	dash := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	out := b.String()
	if len(out) > maxSlugLen {
		out = strings.TrimRight(out[:maxSlugLen], "-")
	}
	return out
}

// ClampWeight bounds w to [0,100]; NaN becomes 0.
func ClampWeight(w float64) float64 {
	if math.IsNaN(w) || w < 0 {
		return 0
	}
	if w > maxWeight {
		return maxWeight
	}
	return w
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
