package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ralucacrepcea/scoreapp/internal/domain/editbuf"
	"github.com/ralucacrepcea/scoreapp/internal/domain/grading"
	"github.com/ralucacrepcea/scoreapp/internal/domain/ranking"
	"github.com/ralucacrepcea/scoreapp/internal/domain/rubric"
	"github.com/ralucacrepcea/scoreapp/pkg/metrics"
)

// View selects whose values a grade is computed from. The zero View uses
// persisted scores only; a Live view overlays the actor's unsaved edits.
type View struct {
	Actor string
	Live  bool
}

func (s *Service) buffer(v View) *editbuf.Buffer {
	if !v.Live || v.Actor == "" {
		return nil
	}
	return s.buffers.Peek(v.Actor)
}

// TeamGrade is the grade breakdown of one team.
type TeamGrade struct {
	TeamID string `json:"teamId"`
	Name   string `json:"name"`
	grading.Breakdown
}

// Grades is every team's breakdown along with the rubric it was computed on.
type Grades struct {
	Topics   []rubric.Topic `json:"topics"`
	RoundIDs []string       `json:"roundIds"`
	Teams    []TeamGrade    `json:"teams"`
}

// Grades computes the breakdown of every team.
func (s *Service) Grades(ctx context.Context, v View) (Grades, error) {
	st, err := s.snapshot(ctx)
	if err != nil {
		return Grades{}, err
	}
	buf := s.buffer(v)
	roundIDs := st.roundIDs()
	out := Grades{Topics: st.Topics, RoundIDs: roundIDs, Teams: make([]TeamGrade, 0, len(st.Teams))}
	for _, team := range st.Teams {
		out.Teams = append(out.Teams, TeamGrade{
			TeamID:    team.ID,
			Name:      team.DisplayName(),
			Breakdown: grading.Compute(st.Topics, roundIDs, st.lookup(buf.Lookup(team))),
		})
	}
	return out, nil
}

// TeamGrade computes the breakdown of one team.
func (s *Service) TeamGrade(ctx context.Context, teamID string, v View) (TeamGrade, error) {
	st, err := s.snapshot(ctx)
	if err != nil {
		return TeamGrade{}, err
	}
	team, ok := st.team(teamID)
	if !ok {
		// the live view may lag a write that just happened
		if team, err = s.repo.Team(ctx, teamID); err != nil {
			return TeamGrade{}, err
		}
	}
	return TeamGrade{
		TeamID:    team.ID,
		Name:      team.DisplayName(),
		Breakdown: grading.Compute(st.Topics, st.roundIDs(), st.lookup(s.buffer(v).Lookup(team))),
	}, nil
}

// Ranking orders teams by final grade. limit <= 0 returns every team.
func (s *Service) Ranking(ctx context.Context, v View, limit int) ([]ranking.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRankingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	grades, err := s.Grades(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("grade teams: %w", err)
	}
	entries := make([]ranking.Entry, len(grades.Teams))
	for i, g := range grades.Teams {
		entries[i] = ranking.Entry{TeamID: g.TeamID, Name: g.Name, Grade: g.Grade}
	}
	ranked := ranking.Rank(entries)
	if limit > 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// Benchmarks are the cross-round speed and sensor accuracy rankings.
type Benchmarks struct {
	Speed    []ranking.SpeedRow    `json:"speed"`
	Temp     []ranking.AccuracyRow `json:"temp"`
	Humidity []ranking.AccuracyRow `json:"humidity"`
}

func (st *Snapshot) roundMetrics() []map[string]*ranking.TeamRound {
	out := make([]map[string]*ranking.TeamRound, 0, len(st.Rounds))
	for _, rd := range st.Rounds {
		out = append(out, ranking.RoundMetrics(rd, st.orders(rd.ID), st.Scans))
	}
	return out
}

// Benchmarks ranks teams by round wins and by sensor accuracy.
func (s *Service) Benchmarks(ctx context.Context) (Benchmarks, error) {
	st, err := s.snapshot(ctx)
	if err != nil {
		return Benchmarks{}, err
	}
	rounds, names := st.roundMetrics(), st.names()
	return Benchmarks{
		Speed:    ranking.SpeedTop(rounds, names),
		Temp:     ranking.AccuracyTop(rounds, names, ranking.SensorTemp),
		Humidity: ranking.AccuracyTop(rounds, names, ranking.SensorHumidity),
	}, nil
}

// RoundProgress is how far a team got in one round.
type RoundProgress struct {
	RoundID  string `json:"roundId"`
	Hits     int    `json:"hits"`
	Total    int    `json:"total"`
	Finished bool   `json:"finished"`
}

// TeamProgress is a team's checkpoint hits per round and overall.
type TeamProgress struct {
	TeamID string          `json:"teamId"`
	Name   string          `json:"name"`
	Rounds []RoundProgress `json:"rounds"`
	Hits   int             `json:"hits"`
	Total  int             `json:"total"`
}

// Progress reports checkpoint hits of every team, ordered by overall hits
// then name.
func (s *Service) Progress(ctx context.Context) ([]TeamProgress, error) {
	st, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	perRound := st.roundMetrics()
	out := make([]TeamProgress, 0, len(st.Teams))
	for _, team := range st.Teams {
		p := TeamProgress{TeamID: team.ID, Name: team.DisplayName(), Rounds: make([]RoundProgress, 0, len(st.Rounds))}
		for i, rd := range st.Rounds {
			rp := RoundProgress{RoundID: rd.ID, Total: rd.TotalCheckpoints}
			if tr := perRound[i][team.ID]; tr != nil {
				rp.Hits, rp.Finished = tr.Hits, tr.Finished
			}
			p.Rounds = append(p.Rounds, rp)
			p.Hits += rp.Hits
			p.Total += rp.Total
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Hits != out[j].Hits {
			return out[i].Hits > out[j].Hits
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}
