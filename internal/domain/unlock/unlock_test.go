package unlock_test

import (
	"testing"
	"time"

	"github.com/ralucacrepcea/scoreapp/internal/domain/model"
	"github.com/ralucacrepcea/scoreapp/internal/domain/unlock"
	. "github.com/smartystreets/goconvey/convey"
)

func TestOf(t *testing.T) {
	Convey("Given a scan created at t0", t, func() {
		t0 := time.UnixMilli(1_700_000_000_000)
		s := model.Scan{CreatedAtMs: t0.UnixMilli()}

		Convey("Then it is unlocked throughout [t0, t0+60s)", func() {
			for _, d := range []time.Duration{0, time.Millisecond, 30 * time.Second, 59_999 * time.Millisecond} {
				So(unlock.Of(s, t0.Add(d), unlock.DefaultGrace).Unlocked, ShouldBeTrue)
			}
		})

		Convey("Then it locks at exactly t0+60s", func() {
			st := unlock.Of(s, t0.Add(60*time.Second), unlock.DefaultGrace)
			So(st.Unlocked, ShouldBeFalse)
			So(st.LeftSeconds, ShouldEqual, int64(0))
		})

		Convey("Then seconds left round up", func() {
			So(unlock.Of(s, t0, unlock.DefaultGrace).LeftSeconds, ShouldEqual, int64(60))
			So(unlock.Of(s, t0.Add(59_001*time.Millisecond), unlock.DefaultGrace).LeftSeconds, ShouldEqual, int64(1))
			So(unlock.Of(s, t0.Add(10*time.Minute), unlock.DefaultGrace).LeftSeconds, ShouldEqual, int64(0))
		})

		Convey("Then an explicit lock wins over the window", func() {
			s.Locked = true
			st := unlock.Of(s, t0.Add(time.Second), unlock.DefaultGrace)
			So(st.Unlocked, ShouldBeFalse)
			So(st.LeftSeconds, ShouldEqual, int64(59))
		})

		Convey("Then a custom grace window is honoured", func() {
			So(unlock.Of(s, t0.Add(15*time.Second), 10*time.Second).Unlocked, ShouldBeFalse)
			So(unlock.Of(s, t0.Add(5*time.Second), 0).Unlocked, ShouldBeTrue)
		})
	})
}

func TestReopened(t *testing.T) {
	Convey("Reopening starts a fresh unlocked window", t, func() {
		now := time.UnixMilli(42_000)
		s := unlock.Reopened("t1", "R1", "cp1", now)

		So(s.Key(), ShouldEqual, "t1_R1_cp1")
		So(s.CreatedAtMs, ShouldEqual, int64(42_000))
		So(s.UpdatedAtMs, ShouldEqual, int64(42_000))
		So(s.ReopenedAtMs, ShouldEqual, int64(42_000))
		So(s.Locked, ShouldBeFalse)
		So(unlock.Of(s, now, unlock.DefaultGrace).Unlocked, ShouldBeTrue)
		So(s.Backdates(41_000), ShouldBeFalse)
	})
}
