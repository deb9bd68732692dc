// Package grading combines topic scores and per-round mission scores into a
// team's final grade.
package grading

import (
	"math"

	"github.com/ralucacrepcea/scoreapp/internal/domain/rubric"
	"github.com/ralucacrepcea/scoreapp/internal/domain/scoring"
)

// FullWeight is the weight total required for a defined final grade.
const FullWeight = 100

const weightEpsilon = 1e-9

// Grade is a final grade. An undefined grade carries no value and must never
// be read as zero.
type Grade struct {
	Value   float64 `json:"value"`
	Defined bool    `json:"defined"`
}

// Defined returns a defined grade of v.
func Defined(v float64) Grade { return Grade{Value: v, Defined: true} }

// Undefined is the grade of a misconfigured rubric.
var Undefined = Grade{}

// Or returns the value of g, or fallback when g is undefined.
func (g Grade) Or(fallback float64) float64 {
	if !g.Defined {
		return fallback
	}
	return g.Value
}

// TopicLine is one judged topic in a breakdown.
type TopicLine struct {
	ID       string  `json:"id"`
	Weight   float64 `json:"weight"`
	Score    float64 `json:"score"`
	Weighted float64 `json:"weighted"`
}

// RoundLine is the mission score of one round.
type RoundLine struct {
	RoundID string  `json:"roundId"`
	Score   float64 `json:"score"`
}

// Breakdown is everything that goes into a team's final grade.
type Breakdown struct {
	Topics          []TopicLine `json:"topics"`
	TopicsSubtotal  float64     `json:"topicsSubtotal"`
	Rounds          []RoundLine `json:"rounds"`
	Mission         float64     `json:"mission"`
	MissionWeight   float64     `json:"missionWeight"`
	MissionWeighted float64     `json:"missionWeighted"`
	WeightTotal     float64     `json:"weightTotal"`
	Grade           Grade       `json:"grade"`
}

// WeightTotal sums the weights of all topics, Mission Performance included.
func WeightTotal(topics []rubric.Topic) float64 {
	var total float64
	for _, t := range topics {
		total += t.Weight
	}
	return total
}

// IsComplete reports whether the weights total exactly 100.
func IsComplete(total float64) bool {
	return math.Abs(total-FullWeight) < weightEpsilon
}

// RoundMissionScore aggregates the MP columns of one round. Without MP
// columns there is nothing to grade and the score is 0.
func RoundMissionScore(mp rubric.Topic, roundID string, lookup scoring.FieldLookup) float64 {
	if len(mp.Columns) == 0 {
		return 0
	}
	return scoring.Aggregate(mp.Columns, func(col string) any {
		return lookup(rubric.MissionKey(roundID, col), "")
	})
}

// MissionScore is the mean of RoundMissionScore over every round; a round the
// team never ran contributes 0.
func MissionScore(mp rubric.Topic, roundIDs []string, lookup scoring.FieldLookup) float64 {
	if len(roundIDs) == 0 || len(mp.Columns) == 0 {
		return 0
	}
	var sum float64
	for _, id := range roundIDs {
		sum += RoundMissionScore(mp, id, lookup)
	}
	return sum / float64(len(roundIDs))
}

// Compute grades one team. topics holds every topic including Mission
// Performance; roundIDs lists every configured round.
func Compute(topics []rubric.Topic, roundIDs []string, lookup scoring.FieldLookup) Breakdown {
	var b Breakdown
	var mp rubric.Topic
	hasMission := false

	for _, t := range topics {
		if t.IsMission() {
			mp, hasMission = t, true
			continue
		}
		score := scoring.TopicScore(t, lookup)
		line := TopicLine{ID: t.ID, Weight: t.Weight, Score: score, Weighted: score * t.Weight / FullWeight}
		b.Topics = append(b.Topics, line)
		b.TopicsSubtotal += line.Weighted
	}

	b.Rounds = make([]RoundLine, 0, len(roundIDs))
	if hasMission {
		for _, id := range roundIDs {
			b.Rounds = append(b.Rounds, RoundLine{RoundID: id, Score: RoundMissionScore(mp, id, lookup)})
		}
		b.Mission = MissionScore(mp, roundIDs, lookup)
		b.MissionWeight = mp.Weight
		b.MissionWeighted = b.Mission * mp.Weight / FullWeight
	}

	b.WeightTotal = WeightTotal(topics)
	if IsComplete(b.WeightTotal) {
		b.Grade = Defined(b.TopicsSubtotal + b.MissionWeighted)
	}
	return b
}
