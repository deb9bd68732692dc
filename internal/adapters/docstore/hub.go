package docstore

import (
	"context"
	"sync"
)

// hub fans change notifications out to live queries.
type hub struct {
	mu   sync.Mutex
	subs map[*subscription]struct{}
}

type subscription struct {
	h      *hub
	q      Query
	fn     func([]Document)
	find   func(context.Context, Query) ([]Document, error)
	ctx    context.Context
	cancel context.CancelFunc

	// serializes deliveries
	deliver sync.Mutex
}

func newHub() *hub {
	return &hub{subs: make(map[*subscription]struct{})}
}

func (h *hub) subscribe(ctx context.Context, q Query, fn func([]Document),
	find func(context.Context, Query) ([]Document, error)) (*subscription, error) {
	if q.Collection == "" {
		return nil, ErrNoCollection
	}
	sctx, cancel := context.WithCancel(ctx)
	s := &subscription{h: h, q: q, fn: fn, find: find, ctx: sctx, cancel: cancel}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-sctx.Done()
		h.remove(s)
	}()

	s.refresh()
	return s, nil
}

func (h *hub) remove(s *subscription) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
}

// notify re-runs every live query on the changed collections.
func (h *hub) notify(collections ...string) {
	changed := make(map[string]struct{}, len(collections))
	for _, c := range collections {
		changed[c] = struct{}{}
	}
	h.mu.Lock()
	targets := make([]*subscription, 0, len(h.subs))
	for s := range h.subs {
		if _, ok := changed[s.q.Collection]; ok {
			targets = append(targets, s)
		}
	}
	h.mu.Unlock()

	for _, s := range targets {
		s.refresh()
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	subs := make([]*subscription, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()
	for _, s := range subs {
		s.Close()
	}
}

func (s *subscription) refresh() {
	s.deliver.Lock()
	defer s.deliver.Unlock()
	if s.ctx.Err() != nil {
		return
	}
	docs, err := s.find(s.ctx, s.q)
	if err != nil {
		return
	}
	s.fn(docs)
}

// Close stops deliveries.
func (s *subscription) Close() {
	s.cancel()
	s.h.remove(s)
}
