package service

import (
	"context"
	"fmt"

	"github.com/ralucacrepcea/scoreapp/internal/adapters/docstore"
	"github.com/ralucacrepcea/scoreapp/internal/domain/dedupe"
	"github.com/ralucacrepcea/scoreapp/internal/domain/model"
	"github.com/ralucacrepcea/scoreapp/internal/domain/rubric"
	"github.com/ralucacrepcea/scoreapp/internal/domain/scoring"
	"github.com/ralucacrepcea/scoreapp/pkg/metrics"
)

// Snapshot is a consistent view of every collection the engine reads.
type Snapshot struct {
	Teams       []model.Team
	Topics      []rubric.Topic
	Rounds      []model.Round
	Checkpoints []model.Checkpoint
	Scans       []model.Scan
}

func (s *Service) update(fn func(*Snapshot)) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	next := Snapshot{}
	if cur := s.state.Load(); cur != nil {
		next = *cur
	}
	fn(&next)
	s.state.Store(&next)
}

// watch subscribes every collection into the live snapshot. Callbacks only
// swap the snapshot and never write back to the store.
func (s *Service) watch(ctx context.Context) error {
	subs := make([]docstore.Subscription, 0, 5)
	fail := func(err error) error {
		for _, sub := range subs {
			sub.Close()
		}
		return err
	}

	sub, err := s.repo.WatchTeams(ctx, func(teams []model.Team) {
		metrics.UpdateTeamsTotal(len(teams))
		s.update(func(st *Snapshot) { st.Teams = teams })
	})
	if err != nil {
		return fail(err)
	}
	subs = append(subs, sub)

	if sub, err = s.repo.WatchTopics(ctx, func(topics []rubric.Topic) {
		s.update(func(st *Snapshot) { st.Topics = topics })
	}); err != nil {
		return fail(err)
	}
	subs = append(subs, sub)

	if sub, err = s.repo.WatchRounds(ctx, func(rounds []model.Round) {
		s.update(func(st *Snapshot) { st.Rounds = rounds })
	}); err != nil {
		return fail(err)
	}
	subs = append(subs, sub)

	if sub, err = s.repo.WatchCheckpoints(ctx, func(cps []model.Checkpoint) {
		s.update(func(st *Snapshot) { st.Checkpoints = cps })
	}); err != nil {
		return fail(err)
	}
	subs = append(subs, sub)

	since := s.now().Add(-s.lookback).UnixMilli()
	if sub, err = s.repo.WatchScans(ctx, since, s.scanLimit, func(scans []model.Scan) {
		merged := dedupe.MergeScans(scans)
		s.update(func(st *Snapshot) { st.Scans = merged })
	}); err != nil {
		return fail(err)
	}
	subs = append(subs, sub)

	s.subs = subs
	return nil
}

// snapshot returns the live view when the service runs, or reads every
// collection once otherwise.
func (s *Service) snapshot(ctx context.Context) (*Snapshot, error) {
	if st := s.state.Load(); st != nil && s.isStarted() {
		return st, nil
	}

	var (
		st  Snapshot
		err error
	)
	if st.Teams, err = s.repo.Teams(ctx); err != nil {
		return nil, err
	}
	if st.Topics, err = s.repo.Topics(ctx); err != nil {
		return nil, err
	}
	if st.Rounds, err = s.repo.Rounds(ctx); err != nil {
		return nil, err
	}
	if st.Checkpoints, err = s.repo.AllCheckpoints(ctx); err != nil {
		return nil, err
	}
	since := s.now().Add(-s.lookback).UnixMilli()
	scans, err := s.repo.RecentScans(ctx, since, s.scanLimit)
	if err != nil {
		return nil, fmt.Errorf("load scans: %w", err)
	}
	st.Scans = dedupe.MergeScans(scans)
	return &st, nil
}

// pendingRenames maps the old id of every unfinished round rename to the
// new one.
func (st *Snapshot) pendingRenames() map[string]string {
	exists := make(map[string]bool, len(st.Rounds))
	for _, r := range st.Rounds {
		exists[r.ID] = true
	}
	var out map[string]string
	for _, r := range st.Rounds {
		if r.RenamedFrom == "" || !exists[r.RenamedFrom] {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[r.RenamedFrom] = r.ID
	}
	return out
}

// roundIDs lists the graded rounds. A round being renamed counts once,
// under its new id.
func (st *Snapshot) roundIDs() []string {
	pending := st.pendingRenames()
	ids := make([]string, 0, len(st.Rounds))
	for _, r := range st.Rounds {
		if _, moving := pending[r.ID]; !moving {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// lookup resolves mission scores of a round being renamed from the old key
// for teams the rename has not reached yet.
func (st *Snapshot) lookup(base scoring.FieldLookup) scoring.FieldLookup {
	pending := st.pendingRenames()
	if len(pending) == 0 {
		return base
	}
	oldID := make(map[string]string, len(pending))
	for from, to := range pending {
		oldID[to] = from
	}
	return func(field, sub string) any {
		if v := base(field, sub); v != nil {
			return v
		}
		round, col, ok := rubric.ParseMissionKey(field)
		if !ok {
			return nil
		}
		from, ok := oldID[round]
		if !ok {
			return nil
		}
		return base(rubric.MissionKey(from, col), sub)
	}
}

func (st *Snapshot) names() map[string]string {
	out := make(map[string]string, len(st.Teams))
	for _, t := range st.Teams {
		out[t.ID] = t.DisplayName()
	}
	return out
}

// orders maps the active checkpoint ids of round to their order.
func (st *Snapshot) orders(roundID string) map[string]int {
	out := make(map[string]int)
	for _, cp := range st.Checkpoints {
		if cp.RoundID == roundID && cp.Active {
			out[cp.ID] = cp.Order
		}
	}
	return out
}

func (st *Snapshot) team(id string) (model.Team, bool) {
	for _, t := range st.Teams {
		if t.ID == id {
			return t, true
		}
	}
	return model.Team{}, false
}
