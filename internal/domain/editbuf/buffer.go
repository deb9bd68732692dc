// Package editbuf holds a judge's unsaved edits apart from persisted scores
// and commits them one field at a time with an audit trail.
package editbuf

import (
	"sort"
	"sync"

	"github.com/ralucacrepcea/scoreapp/internal/domain/model"
	"github.com/ralucacrepcea/scoreapp/internal/domain/scoring"
)

// Entry is the unsaved state of one field. Either part may be unset.
type Entry struct {
	Value    any     `json:"value,omitempty"`
	HasValue bool    `json:"hasValue"`
	Note     *string `json:"note,omitempty"`
	version  uint64
}

// Buffer is the edit buffer of one judge. It is safe for concurrent use.
type Buffer struct {
	mu      sync.RWMutex
	entries map[model.FieldRef]Entry
	seq     uint64
}

// NewBuffer returns an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{entries: make(map[model.FieldRef]Entry)}
}

// SetValue buffers a raw value for ref. The raw input is kept as typed.
func (b *Buffer) SetValue(ref model.FieldRef, raw any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := b.entries[ref]
	e.Value, e.HasValue = raw, true
	b.seq++
	e.version = b.seq
	b.entries[ref] = e
}

// SetNote buffers a note for ref.
func (b *Buffer) SetNote(ref model.FieldRef, note string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := b.entries[ref]
	e.Note = &note
	b.seq++
	e.version = b.seq
	b.entries[ref] = e
}

// Get returns the buffered entry of ref.
func (b *Buffer) Get(ref model.FieldRef) (Entry, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.entries[ref]
	return e, ok
}

// Discard drops the entry of ref.
func (b *Buffer) Discard(ref model.FieldRef) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, ref)
}

// discardIf drops the entry of ref only if it was not edited since version.
func (b *Buffer) discardIf(ref model.FieldRef, version uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.entries[ref]; ok && e.version == version {
		delete(b.entries, ref)
	}
}

// Len is the number of buffered fields.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Refs lists the buffered fields in a stable order.
func (b *Buffer) Refs() []model.FieldRef {
	b.mu.RLock()
	out := make([]model.FieldRef, 0, len(b.entries))
	for ref := range b.entries {
		out = append(out, ref)
	}
	b.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Lookup resolves field values of team, preferring buffered ones, so live
// grades can show unsaved edits.
func (b *Buffer) Lookup(team model.Team) scoring.FieldLookup {
	return func(field, sub string) any {
		if b != nil {
			if e, ok := b.Get(model.FieldRef{TeamID: team.ID, Field: field, Sub: sub}); ok && e.HasValue {
				return e.Value
			}
		}
		v, _ := team.Raw(field, sub)
		return v
	}
}

// Buffers keeps one Buffer per judge.
type Buffers struct {
	mu   sync.Mutex
	byID map[string]*Buffer
}

// NewBuffers returns an empty registry.
func NewBuffers() *Buffers {
	return &Buffers{byID: make(map[string]*Buffer)}
}

// For returns the buffer of actor, creating it on first use.
func (bs *Buffers) For(actor string) *Buffer {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	b, ok := bs.byID[actor]
	if !ok {
		b = NewBuffer()
		bs.byID[actor] = b
	}
	return b
}

// Peek returns the buffer of actor without creating one.
func (bs *Buffers) Peek(actor string) *Buffer {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	return bs.byID[actor]
}

// Total counts buffered fields across all judges.
func (bs *Buffers) Total() int {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	n := 0
	for _, b := range bs.byID {
		n += b.Len()
	}
	return n
}
