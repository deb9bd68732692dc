package ranking_test

import (
	"testing"

	"github.com/ralucacrepcea/scoreapp/internal/domain/model"
	"github.com/ralucacrepcea/scoreapp/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

func f(v float64) *float64 { return &v }

func scan(team, round, cp string, at int64, temp, hum *float64) model.Scan {
	return model.Scan{TeamID: team, RoundID: round, CheckpointID: cp, CreatedAtMs: at, UpdatedAtMs: at, Temp: temp, Humidity: hum}
}

var (
	orders = map[string]int{"cpA": 1, "cpB": 2, "cpC": 3}
	names  = map[string]string{"t1": "Orbit", "t2": "Nova", "t3": "Comet"}
)

func TestRoundMetrics(t *testing.T) {
	Convey("Given a three-checkpoint round", t, func() {
		round := model.Round{
			ID:               "R1",
			TotalCheckpoints: 3,
			RefTemps:         []*float64{f(20), f(21), nil},
			TargetHumidity:   f(40),
		}
		scans := []model.Scan{
			scan("t1", "R1", "cpA", 100, f(21), nil),
			scan("t1", "R1", "cpB", 200, f(21), nil),
			scan("t1", "R1", "cpC", 300, f(30), nil),
			scan("t2", "R1", "cpA", 100, nil, f(44)),
			scan("t2", "R1", "cpB", 150, nil, f(38)),
			scan("t2", "R1", "cpC", 250, nil, nil),
			scan("t3", "R1", "cpA", 120, nil, nil),
			scan("t3", "R1", "cpX", 130, nil, nil),
			scan("t3", "R2", "cpB", 140, nil, nil),
		}

		m := ranking.RoundMetrics(round, orders, scans)

		Convey("Then finishers are those who reached every order", func() {
			So(m["t1"].Finished, ShouldBeTrue)
			So(m["t1"].FinishMs, ShouldEqual, int64(300))
			So(m["t2"].FinishMs, ShouldEqual, int64(250))
			So(m["t3"].Finished, ShouldBeFalse)
			So(m["t3"].Hits, ShouldEqual, 1)
			So(m["t3"].Total, ShouldEqual, 3)
			So(m["t1"].Times[2], ShouldEqual, int64(200))
		})

		Convey("Then temperature error uses checkpoints with a reference", func() {
			So(m["t1"].Temp.MAE, ShouldAlmostEqual, 0.5, 1e-9)
			So(m["t1"].Temp.N, ShouldEqual, 2)
			So(m["t2"].Temp.Available(), ShouldBeFalse)
		})

		Convey("Then humidity falls back to the round target", func() {
			So(m["t2"].Humidity.MAE, ShouldAlmostEqual, 1.0, 1e-9)
			So(m["t2"].Humidity.N, ShouldEqual, 1)
		})
	})
}

func TestSpeedTop(t *testing.T) {
	Convey("Given two rounds", t, func() {
		r1 := map[string]*ranking.TeamRound{
			"t1": {TeamID: "t1", Finished: true, FinishMs: 300},
			"t2": {TeamID: "t2", Finished: true, FinishMs: 250},
			"t3": {TeamID: "t3"},
		}
		r2 := map[string]*ranking.TeamRound{
			"t1": {TeamID: "t1", Finished: true, FinishMs: 900},
		}

		rows := ranking.SpeedTop([]map[string]*ranking.TeamRound{r1, r2}, names)

		Convey("Then wins tie and the better mean rank leads", func() {
			So(rows[0].TeamID, ShouldEqual, "t2")
			So(rows[0].Wins, ShouldEqual, 1)
			So(*rows[0].MeanRank, ShouldEqual, 1.0)
			So(rows[1].TeamID, ShouldEqual, "t1")
			So(*rows[1].MeanRank, ShouldEqual, 1.5)
			So(rows[1].Finished, ShouldEqual, 2)
		})

		Convey("Then teams that never finished come last without a mean rank", func() {
			So(rows[2].TeamID, ShouldEqual, "t3")
			So(rows[2].MeanRank, ShouldBeNil)
		})
	})
}

func TestAccuracyTop(t *testing.T) {
	Convey("Given accuracy from two rounds", t, func() {
		r1 := map[string]*ranking.TeamRound{
			"t1": {TeamID: "t1", Temp: ranking.Accuracy{MAE: 1, N: 3}},
			"t2": {TeamID: "t2", Temp: ranking.Accuracy{MAE: 0.5, N: 1}},
		}
		r2 := map[string]*ranking.TeamRound{
			"t1": {TeamID: "t1", Temp: ranking.Accuracy{MAE: 0, N: 1}},
			"t2": {TeamID: "t2", Temp: ranking.Accuracy{MAE: 1.5, N: 1}},
		}

		rows := ranking.AccuracyTop([]map[string]*ranking.TeamRound{r1, r2}, names, ranking.SensorTemp)

		Convey("Then MAE is weighted by samples and sorted ascending", func() {
			So(rows[0].TeamID, ShouldEqual, "t1")
			So(*rows[0].MAE, ShouldAlmostEqual, 0.75, 1e-9)
			So(rows[0].Samples, ShouldEqual, 4)
			So(*rows[1].MAE, ShouldAlmostEqual, 1.0, 1e-9)
		})

		Convey("Then teams without samples are last and unavailable", func() {
			So(rows[2].TeamID, ShouldEqual, "t3")
			So(rows[2].MAE, ShouldBeNil)
		})

		Convey("Then the humidity ranking has no data at all", func() {
			hum := ranking.AccuracyTop([]map[string]*ranking.TeamRound{r1, r2}, names, ranking.SensorHumidity)
			So(len(hum), ShouldEqual, 3)
			So(hum[0].MAE, ShouldBeNil)
			So(hum[0].TeamID, ShouldEqual, "t3")
		})
	})
}
