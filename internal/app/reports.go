package service

import (
	"context"

	"github.com/ralucacrepcea/scoreapp/internal/domain/grading"
	"github.com/ralucacrepcea/scoreapp/internal/domain/ranking"
	"github.com/ralucacrepcea/scoreapp/internal/export"
)

// Report gathers what the CSV exports print.
func (s *Service) Report(ctx context.Context, v View) (export.Report, error) {
	st, err := s.snapshot(ctx)
	if err != nil {
		return export.Report{}, err
	}
	buf := s.buffer(v)
	roundIDs := st.roundIDs()
	metricsByRound := st.roundMetrics()

	r := export.Report{
		GeneratedAt: s.now(),
		Live:        v.Live,
		Topics:      st.Topics,
		RoundIDs:    roundIDs,
		Teams:       make([]export.Team, 0, len(st.Teams)),
	}
	entries := make([]ranking.Entry, 0, len(st.Teams))
	for _, team := range st.Teams {
		lookup := st.lookup(buf.Lookup(team))
		t := export.Team{
			Team:      team,
			Lookup:    lookup,
			Breakdown: grading.Compute(st.Topics, roundIDs, lookup),
			Rounds:    make(map[string]export.Hits, len(st.Rounds)),
		}
		for i, rd := range st.Rounds {
			h := export.Hits{Total: rd.TotalCheckpoints}
			if tr := metricsByRound[i][team.ID]; tr != nil {
				h.Hits = tr.Hits
			}
			t.Rounds[rd.ID] = h
		}
		r.Teams = append(r.Teams, t)
		entries = append(entries, ranking.Entry{TeamID: team.ID, Name: team.DisplayName(), Grade: t.Breakdown.Grade})
	}
	r.Ranking = ranking.Rank(entries)
	return r, nil
}
