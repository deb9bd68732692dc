package scoring_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/ralucacrepcea/scoreapp/internal/domain/rubric"
	"github.com/ralucacrepcea/scoreapp/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func w(f float64) *float64 { return &f }

func values(m map[string]any) scoring.Lookup {
	return func(col string) any { return m[col] }
}

func TestParseScore(t *testing.T) {
	Convey("Given raw judge input", t, func() {
		So(scoring.ParseScore(7.5), ShouldEqual, 7.5)
		So(scoring.ParseScore("7,5"), ShouldEqual, 7.5)
		So(scoring.ParseScore(" 8.25 "), ShouldEqual, 8.25)
		So(scoring.ParseScore(json.Number("3")), ShouldEqual, 3.0)
		So(scoring.ParseScore(12), ShouldEqual, 10.0)
		So(scoring.ParseScore(-4.0), ShouldEqual, 0.0)
		So(scoring.ParseScore("abc"), ShouldEqual, 0.0)
		So(scoring.ParseScore(nil), ShouldEqual, 0.0)
		So(scoring.ParseScore(true), ShouldEqual, 0.0)
		So(scoring.ParseScore(math.NaN()), ShouldEqual, 0.0)
		So(scoring.ParseScore(math.Inf(1)), ShouldEqual, 10.0)
	})

	Convey("Round3 keeps three decimals", t, func() {
		So(scoring.Round3(4.66666), ShouldEqual, 4.667)
		So(scoring.Round3(2), ShouldEqual, 2.0)
	})
}

func TestAggregate(t *testing.T) {
	Convey("Given columns without positive weights", t, func() {
		cols := []rubric.Column{{Key: "a", Weight: w(0)}, {Key: "b", Weight: w(0)}}

		Convey("Then the arithmetic mean is used", func() {
			So(scoring.Aggregate(cols, values(map[string]any{"a": 4.0, "b": 6.0})), ShouldEqual, 5.0)
		})
	})

	Convey("Given weighted columns", t, func() {
		cols := []rubric.Column{{Key: "a", Weight: w(70)}, {Key: "b", Weight: w(30)}}

		Convey("Then the weighted sum is used", func() {
			So(scoring.Aggregate(cols, values(map[string]any{"a": 10.0, "b": 0.0})), ShouldAlmostEqual, 7.0, 1e-9)
		})
	})

	Convey("Given weights that do not sum to 100", t, func() {
		cols := []rubric.Column{{Key: "a", Weight: w(1)}, {Key: "b", Weight: w(3)}, {Key: "c"}}

		Convey("Then weights are normalised and undeclared ones count as zero", func() {
			got := scoring.Aggregate(cols, values(map[string]any{"a": 8.0, "b": 4.0, "c": 10.0}))
			So(got, ShouldAlmostEqual, 5.0, 1e-9)
		})
	})

	Convey("Given missing column values", t, func() {
		cols := []rubric.Column{{Key: "a"}, {Key: "b"}}

		So(scoring.Aggregate(cols, values(map[string]any{"a": "9"})), ShouldEqual, 4.5)
	})

	Convey("Given no columns", t, func() {
		So(scoring.Aggregate(nil, values(nil)), ShouldEqual, 0.0)
	})
}

func TestTopicScore(t *testing.T) {
	Convey("Given a team's persisted scores", t, func() {
		scores := map[string]any{
			"Pitch":  "6,5",
			"Design": map[string]any{"cad": 9.0, "build": 7.0},
		}
		lookup := func(field, sub string) any {
			v := scores[field]
			if sub == "" {
				return v
			}
			m, _ := v.(map[string]any)
			return m[sub]
		}

		Convey("Then a topic without columns is scored as a scalar", func() {
			So(scoring.TopicScore(rubric.Topic{ID: "Pitch"}, lookup), ShouldEqual, 6.5)
		})

		Convey("Then a topic with columns aggregates them", func() {
			topic := rubric.Topic{ID: "Design", Columns: []rubric.Column{{Key: "cad"}, {Key: "build"}}}
			So(scoring.TopicScore(topic, lookup), ShouldEqual, 8.0)
		})

		Convey("Then an unknown topic scores 0", func() {
			So(scoring.TopicScore(rubric.Topic{ID: "Outreach"}, lookup), ShouldEqual, 0.0)
		})
	})
}
