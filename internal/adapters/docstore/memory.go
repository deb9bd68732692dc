package docstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ralucacrepcea/scoreapp/pkg/metrics"
)

// MemoryStore keeps documents in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	colls  map[string]map[string]Document
	hub    *hub
	now    func() time.Time
	closed bool
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryClock sets the clock used for UpdatedAt.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		colls: make(map[string]map[string]Document),
		hub:   newHub(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Document, error) {
	defer observe("get", time.Now())
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Document{}, ErrClosed
	}
	d, ok := s.colls[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return copyDoc(d)
}

func (s *MemoryStore) Find(ctx context.Context, q Query) ([]Document, error) {
	defer observe("find", time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if q.Collection == "" {
		return nil, ErrNoCollection
	}
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrClosed
	}
	all := make([]Document, 0, len(s.colls[q.Collection]))
	for _, d := range s.colls[q.Collection] {
		all = append(all, d)
	}
	s.mu.RUnlock()

	matched := q.apply(all)
	out := make([]Document, len(matched))
	for i, d := range matched {
		c, err := copyDoc(d)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func (s *MemoryStore) Set(ctx context.Context, collection, id string, data map[string]any, merge bool) error {
	return s.Batch(ctx, []Write{{Kind: KindSet, Collection: collection, ID: id, Data: data, Merge: merge}})
}

func (s *MemoryStore) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, data, false); err != nil {
		return "", err
	}
	return id, nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, writes ...FieldWrite) error {
	return s.Batch(ctx, []Write{{Kind: KindUpdate, Collection: collection, ID: id, Fields: writes}})
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	return s.Batch(ctx, []Write{{Kind: KindDelete, Collection: collection, ID: id}})
}

// Batch stages every write against copies and publishes them together, so
// a failing write leaves the store untouched.
func (s *MemoryStore) Batch(ctx context.Context, writes []Write) error {
	defer observe("batch", time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(writes) > MaxBatchWrites {
		return ErrBatchTooLarge
	}
	if len(writes) == 0 {
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	type key struct{ coll, id string }
	staged := make(map[key]*Document)
	now := s.now().UnixMilli()

	current := func(k key) (*Document, error) {
		if d, ok := staged[k]; ok {
			return d, nil
		}
		d, ok := s.colls[k.coll][k.id]
		if !ok {
			staged[k] = nil
			return nil, nil
		}
		c, err := copyDoc(d)
		if err != nil {
			return nil, err
		}
		staged[k] = &c
		return &c, nil
	}

	for _, w := range writes {
		if w.Collection == "" || w.ID == "" {
			s.mu.Unlock()
			return ErrNoCollection
		}
		k := key{w.Collection, w.ID}
		cur, err := current(k)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		next, err := applyWrite(cur, w, now)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		staged[k] = next
	}

	changed := make([]string, 0, len(staged))
	for k, d := range staged {
		if s.colls[k.coll] == nil {
			s.colls[k.coll] = make(map[string]Document)
		}
		if d == nil {
			delete(s.colls[k.coll], k.id)
		} else {
			s.colls[k.coll][k.id] = *d
		}
		changed = append(changed, k.coll)
	}
	s.mu.Unlock()

	s.hub.notify(changed...)
	return nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, q Query, fn func([]Document)) (Subscription, error) {
	return s.hub.subscribe(ctx, q, fn, s.Find)
}

// Close drops all subscriptions; later calls fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.hub.closeAll()
	return nil
}

// applyWrite returns the document after w, or nil when w deletes it.
func applyWrite(cur *Document, w Write, now int64) (*Document, error) {
	switch w.Kind {
	case KindDelete:
		return nil, nil
	case KindUpdate:
		if cur == nil {
			return nil, ErrNotFound
		}
		if err := applyFields(cur.Data, w.Fields); err != nil {
			return nil, err
		}
		cur.UpdatedAt = now
		return cur, nil
	case KindSet:
		data, err := normalize(w.Data)
		if err != nil {
			return nil, err
		}
		if w.Merge && cur != nil {
			deepMerge(cur.Data, data)
			cur.UpdatedAt = now
			return cur, nil
		}
		return &Document{ID: w.ID, Data: data, UpdatedAt: now}, nil
	}
	return nil, ErrInvalidData
}

func copyDoc(d Document) (Document, error) {
	data, err := normalize(d.Data)
	if err != nil {
		return Document{}, err
	}
	return Document{ID: d.ID, Data: data, UpdatedAt: d.UpdatedAt}, nil
}
