// Package export renders rankings and grade breakdowns as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/ralucacrepcea/scoreapp/internal/domain/grading"
	"github.com/ralucacrepcea/scoreapp/internal/domain/model"
	"github.com/ralucacrepcea/scoreapp/internal/domain/ranking"
	"github.com/ralucacrepcea/scoreapp/internal/domain/rubric"
	"github.com/ralucacrepcea/scoreapp/internal/domain/scoring"
)

// NA marks a value that cannot be computed, such as an undefined grade.
const NA = "N/A"

// Kind names one of the export layouts.
type Kind string

const (
	KindRanking Kind = "ranking"
	KindLive    Kind = "live"
	KindFull    Kind = "full"
)

// Hits is the checkpoint progress of a team in one round.
type Hits struct {
	Hits  int
	Total int
}

// Team is one team with everything the exports print about it.
type Team struct {
	Team      model.Team
	Breakdown grading.Breakdown
	// Lookup resolves field values, unsaved edits included for live exports.
	Lookup scoring.FieldLookup
	Rounds map[string]Hits
}

// Report is the input of every export.
type Report struct {
	GeneratedAt time.Time
	Live        bool
	Topics      []rubric.Topic
	RoundIDs    []string
	Ranking     []ranking.Entry
	Teams       []Team
}

// Write renders r in the layout named by kind.
func Write(w io.Writer, kind Kind, r Report) error {
	switch kind {
	case KindRanking:
		return Ranking(w, r)
	case KindLive:
		return Live(w, r)
	case KindFull:
		return Full(w, r)
	}
	return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

func grade(g grading.Grade) string {
	if !g.Defined {
		return NA
	}
	return num(g.Value)
}

func flush(cw *csv.Writer) error {
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

// Ranking writes one row per ranked team.
func Ranking(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"Rank", "Team", "FinalGrade"})
	for _, e := range r.Ranking {
		_ = cw.Write([]string{strconv.Itoa(e.Rank), e.Name, grade(e.Grade)})
	}
	return flush(cw)
}

func (r Report) mission() (rubric.Topic, bool) {
	for _, t := range r.Topics {
		if t.IsMission() {
			return t, true
		}
	}
	return rubric.Topic{}, false
}

func (r Report) judged() []rubric.Topic {
	out := make([]rubric.Topic, 0, len(r.Topics))
	for _, t := range r.Topics {
		if !t.IsMission() {
			out = append(out, t)
		}
	}
	return out
}

func (r Report) meta(title string) [][]string {
	total := grading.WeightTotal(r.Topics)
	mp, _ := r.mission()
	values := "persisted"
	if r.Live {
		values = "live (unsaved edits included)"
	}
	return [][]string{
		{"Export", title},
		{"Generated at", r.GeneratedAt.UTC().Format(time.RFC3339)},
		{"Weights", "MP " + num(mp.Weight) + "%", "Topics " + num(total-mp.Weight) + "%", "Total", num(total) + "%"},
		{"Values", values},
		{"Mission Performance", "mean of per-round scores; rounds without scores count as 0"},
		{},
	}
}

// ordered returns the teams in ranking order, unranked teams last.
func (r Report) ordered() ([]Team, map[string]ranking.Entry) {
	byID := make(map[string]ranking.Entry, len(r.Ranking))
	for _, e := range r.Ranking {
		byID[e.TeamID] = e
	}
	pos := func(t Team) int {
		if e, ok := byID[t.Team.ID]; ok {
			return e.Rank
		}
		return int(^uint(0) >> 1)
	}
	out := make([]Team, len(r.Teams))
	copy(out, r.Teams)
	sort.SliceStable(out, func(i, j int) bool { return pos(out[i]) < pos(out[j]) })
	return out, byID
}

func rankOf(byID map[string]ranking.Entry, id string) string {
	if e, ok := byID[id]; ok {
		return strconv.Itoa(e.Rank)
	}
	return ""
}

// Live writes one summary row per team.
func Live(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(r.meta("Live grades (summary)")); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	mp, _ := r.mission()
	judged := r.judged()

	header := []string{"Rank", "Team", "Final", "Topics subtotal", "MP mean", "MP weighted", "MP weight (%)"}
	for _, t := range judged {
		header = append(header, t.ID+" (topic)")
	}
	for _, id := range r.RoundIDs {
		header = append(header, "MP round "+id)
	}
	_ = cw.Write(header)

	teams, byID := r.ordered()
	for _, t := range teams {
		b := t.Breakdown
		row := []string{
			rankOf(byID, t.Team.ID), t.Team.DisplayName(), grade(b.Grade),
			num(b.TopicsSubtotal), num(b.Mission), num(b.MissionWeighted), num(mp.Weight),
		}
		for _, topic := range judged {
			row = append(row, num(scoring.TopicScore(topic, t.Lookup)))
		}
		for _, id := range r.RoundIDs {
			row = append(row, num(grading.RoundMissionScore(mp, id, t.Lookup)))
		}
		_ = cw.Write(row)
	}
	return flush(cw)
}

// Full writes a vertical per-field breakdown: every topic column with its
// note, a topic summary, every round's mission score and hits, and totals.
func Full(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(r.meta("Full breakdown")); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	_ = cw.Write([]string{
		"Rank", "Team", "Section", "Topic / Round", "Criterion", "Weight (%)", "Score", "Note",
		"Hits", "Weighted", "Topics subtotal", "MP mean", "MP weighted", "Final",
	})
	mp, _ := r.mission()

	teams, byID := r.ordered()
	for _, t := range teams {
		b := t.Breakdown
		rank, name := rankOf(byID, t.Team.ID), t.Team.DisplayName()
		tail := []string{num(b.TopicsSubtotal), num(b.Mission), num(b.MissionWeighted), grade(b.Grade)}
		row := func(cells ...string) {
			_ = cw.Write(append(append([]string{rank, name}, cells...), tail...))
		}

		for _, topic := range r.judged() {
			weight := num(topic.Weight)
			if len(topic.Columns) == 0 {
				score := scoring.ParseScore(t.Lookup(topic.ID, ""))
				row("Topic", topic.ID, "", weight, num(score), t.Team.NoteFor(topic.ID, ""), "",
					num(score*topic.Weight/grading.FullWeight))
				continue
			}
			for _, c := range topic.Columns {
				row("Topic", topic.ID, c.Label, weight, num(scoring.ParseScore(t.Lookup(topic.ID, c.Key))),
					t.Team.NoteFor(topic.ID, c.Key), "", "")
			}
			score := scoring.TopicScore(topic, t.Lookup)
			row("Topic summary", topic.ID, "AVG", weight, num(score), "", "",
				num(score*topic.Weight/grading.FullWeight))
		}

		for _, id := range r.RoundIDs {
			h := t.Rounds[id]
			row("MP round", id, "", "", num(grading.RoundMissionScore(mp, id, t.Lookup)), "",
				strconv.Itoa(h.Hits)+"/"+strconv.Itoa(h.Total), "")
		}
		row("MP summary", mp.ID, "mean of rounds", num(mp.Weight), num(b.Mission), "", "", num(b.MissionWeighted))
		row("TOTAL", "", "", "", "", "", "", "")
	}
	return flush(cw)
}
