package ranking

import (
	"math"
	"sort"

	"github.com/ralucacrepcea/scoreapp/internal/domain/model"
)

// Accuracy is a mean absolute error and the number of samples behind it.
// N == 0 means no data.
type Accuracy struct {
	MAE float64 `json:"mae"`
	N   int     `json:"n"`
}

// Available reports whether a has samples.
func (a Accuracy) Available() bool { return a.N > 0 }

// TeamRound is the progress of one team in one round.
type TeamRound struct {
	TeamID   string          `json:"teamId"`
	RoundID  string          `json:"roundId"`
	Hits     int             `json:"hits"`
	Total    int             `json:"total"`
	Finished bool            `json:"finished"`
	FinishMs int64           `json:"finishMs"`
	Times    map[int]int64   `json:"times"`
	Temps    map[int]float64 `json:"temps,omitempty"`
	Hums     map[int]float64 `json:"humidity,omitempty"`
	Temp     Accuracy        `json:"tempAccuracy"`
	Humidity Accuracy        `json:"humidityAccuracy"`
}

// RoundMetrics derives per-team progress for round. orders maps active
// checkpoint ids of the round to their order; scans at unknown checkpoints
// or outside 1..TotalCheckpoints are ignored.
func RoundMetrics(round model.Round, orders map[string]int, scans []model.Scan) map[string]*TeamRound {
	out := make(map[string]*TeamRound)
	latest := make(map[string]map[int]int64)

	for _, s := range scans {
		if s.RoundID != round.ID {
			continue
		}
		order, ok := orders[s.CheckpointID]
		if !ok || order < 1 || order > round.TotalCheckpoints {
			continue
		}
		tr := out[s.TeamID]
		if tr == nil {
			tr = &TeamRound{
				TeamID:  s.TeamID,
				RoundID: round.ID,
				Total:   round.TotalCheckpoints,
				Times:   make(map[int]int64),
				Temps:   make(map[int]float64),
				Hums:    make(map[int]float64),
			}
			out[s.TeamID] = tr
			latest[s.TeamID] = make(map[int]int64)
		}
		if t, seen := tr.Times[order]; !seen || s.CreatedAtMs < t {
			tr.Times[order] = s.CreatedAtMs
		}
		if s.CreatedAtMs > tr.FinishMs {
			tr.FinishMs = s.CreatedAtMs
		}
		// Readings come from the most recently touched scan of the order.
		if at, seen := latest[s.TeamID][order]; !seen || s.Touched() >= at {
			latest[s.TeamID][order] = s.Touched()
			if s.Temp != nil {
				tr.Temps[order] = *s.Temp
			}
			if s.Humidity != nil {
				tr.Hums[order] = *s.Humidity
			}
		}
	}

	for _, tr := range out {
		tr.Hits = len(tr.Times)
		tr.Finished = round.TotalCheckpoints > 0 && tr.Hits == round.TotalCheckpoints
		if !tr.Finished {
			tr.FinishMs = 0
		}
		tr.Temp = accuracy(tr.Temps, round.RefTemps, round.TargetTemp)
		tr.Humidity = accuracy(tr.Hums, round.RefHumidity, round.TargetHumidity)
	}
	return out
}

// accuracy compares readings against per-checkpoint references. When no
// reading has a reference it falls back to |mean(readings) - target| as a
// single sample.
func accuracy(readings map[int]float64, refs []*float64, target *float64) Accuracy {
	var sum float64
	n := 0
	for order, v := range readings {
		if order < 1 || order > len(refs) || refs[order-1] == nil {
			continue
		}
		sum += math.Abs(v - *refs[order-1])
		n++
	}
	if n > 0 {
		return Accuracy{MAE: sum / float64(n), N: n}
	}
	if target == nil || len(readings) == 0 {
		return Accuracy{}
	}
	var total float64
	for _, v := range readings {
		total += v
	}
	return Accuracy{MAE: math.Abs(total/float64(len(readings)) - *target), N: 1}
}

// SpeedRow summarises how fast a team finished across rounds.
type SpeedRow struct {
	TeamID   string   `json:"teamId"`
	Name     string   `json:"name"`
	Wins     int      `json:"wins"`
	MeanRank *float64 `json:"meanRank"`
	Finished int      `json:"finished"`
}

func (r SpeedRow) meanRank() float64 {
	if r.MeanRank == nil {
		return math.Inf(1)
	}
	return *r.MeanRank
}

// SpeedTop ranks teams by round wins, then mean finish rank, then rounds
// finished. Within a round finishers are ordered by finish time. names maps
// team id to display name and defines the teams reported.
func SpeedTop(rounds []map[string]*TeamRound, names map[string]string) []SpeedRow {
	rows := make(map[string]*SpeedRow, len(names))
	rankSum := make(map[string]int, len(names))
	for id, name := range names {
		rows[id] = &SpeedRow{TeamID: id, Name: name}
	}

	for _, metrics := range rounds {
		finishers := make([]*TeamRound, 0, len(metrics))
		for _, tr := range metrics {
			if tr.Finished {
				finishers = append(finishers, tr)
			}
		}
		sort.Slice(finishers, func(i, j int) bool {
			if finishers[i].FinishMs != finishers[j].FinishMs {
				return finishers[i].FinishMs < finishers[j].FinishMs
			}
			return finishers[i].TeamID < finishers[j].TeamID
		})
		for i, tr := range finishers {
			row := rows[tr.TeamID]
			if row == nil {
				continue
			}
			if i == 0 {
				row.Wins++
			}
			row.Finished++
			rankSum[tr.TeamID] += i + 1
		}
	}

	out := make([]SpeedRow, 0, len(rows))
	for id, row := range rows {
		if row.Finished > 0 {
			mean := float64(rankSum[id]) / float64(row.Finished)
			row.MeanRank = &mean
		}
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		if a.meanRank() != b.meanRank() {
			return a.meanRank() < b.meanRank()
		}
		if a.Finished != b.Finished {
			return a.Finished > b.Finished
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.TeamID < b.TeamID
	})
	return out
}

// AccuracyRow is a team's cross-round sensor accuracy.
type AccuracyRow struct {
	TeamID  string   `json:"teamId"`
	Name    string   `json:"name"`
	MAE     *float64 `json:"mae"`
	Samples int      `json:"samples"`
}

func (r AccuracyRow) mae() float64 {
	if r.MAE == nil {
		return math.Inf(1)
	}
	return *r.MAE
}

// Sensor selects which reading an accuracy ranking uses.
type Sensor int

const (
	SensorTemp Sensor = iota
	SensorHumidity
)

// AccuracyTop ranks teams by sample-weighted MAE across rounds, ascending.
// Teams without samples sort last with a nil MAE.
func AccuracyTop(rounds []map[string]*TeamRound, names map[string]string, sensor Sensor) []AccuracyRow {
	weighted := make(map[string]float64, len(names))
	samples := make(map[string]int, len(names))
	for _, metrics := range rounds {
		for id, tr := range metrics {
			a := tr.Temp
			if sensor == SensorHumidity {
				a = tr.Humidity
			}
			if !a.Available() {
				continue
			}
			weighted[id] += a.MAE * float64(a.N)
			samples[id] += a.N
		}
	}

	out := make([]AccuracyRow, 0, len(names))
	for id, name := range names {
		row := AccuracyRow{TeamID: id, Name: name, Samples: samples[id]}
		if n := samples[id]; n > 0 {
			mae := weighted[id] / float64(n)
			row.MAE = &mae
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].mae() != out[j].mae() {
			return out[i].mae() < out[j].mae()
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].TeamID < out[j].TeamID
	})
	return out
}
