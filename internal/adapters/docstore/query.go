package docstore

import (
	"sort"
	"strings"
)

// Op is a filter comparison.
type Op int

const (
	OpEq Op = iota
	OpGte
	OpLte
)

// Filter compares the value at a dotted field path.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Query selects documents of one collection.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Desc       bool
	Limit      int
}

// Collection starts a query over name.
func Collection(name string) Query { return Query{Collection: name} }

// Where adds a filter.
func (q Query) Where(field string, op Op, value any) Query {
	q.Filters = append(append([]Filter{}, q.Filters...), Filter{Field: field, Op: op, Value: value})
	return q
}

// Order sorts by field.
func (q Query) Order(field string, desc bool) Query {
	q.OrderBy, q.Desc = field, desc
	return q
}

// Take limits the result size; 0 means no limit.
func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}

func (q Query) matches(d Document) bool {
	for _, f := range q.Filters {
		v, ok := lookupPath(d.Data, strings.Split(f.Field, "."))
		if !ok {
			return false
		}
		c, comparable := compare(v, f.Value)
		if !comparable {
			return false
		}
		switch f.Op {
		case OpEq:
			if c != 0 {
				return false
			}
		case OpGte:
			if c < 0 {
				return false
			}
		case OpLte:
			if c > 0 {
				return false
			}
		}
	}
	return true
}

// apply filters, orders and limits docs. Documents without the order field
// are dropped, as document stores do.
func (q Query) apply(docs []Document) []Document {
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if !q.matches(d) {
			continue
		}
		if q.OrderBy != "" {
			if _, ok := lookupPath(d.Data, strings.Split(q.OrderBy, ".")); !ok {
				continue
			}
		}
		out = append(out, d)
	}

	path := strings.Split(q.OrderBy, ".")
	sort.SliceStable(out, func(i, j int) bool {
		if q.OrderBy != "" {
			a, _ := lookupPath(out[i].Data, path)
			b, _ := lookupPath(out[j].Data, path)
			if c, ok := compare(a, b); ok && c != 0 {
				if q.Desc {
					return c > 0
				}
				return c < 0
			}
		}
		return out[i].ID < out[j].ID
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// compare orders two JSON scalars of the same kind.
func compare(a, b any) (int, bool) {
	if fa, ok := number(a); ok {
		fb, ok := number(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		if av == bv {
			return 0, true
		}
		if !av {
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}
