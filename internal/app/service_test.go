package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ralucacrepcea/scoreapp/internal/adapters/docstore"
	"github.com/ralucacrepcea/scoreapp/internal/adapters/repository"
	service "github.com/ralucacrepcea/scoreapp/internal/app"
	"github.com/ralucacrepcea/scoreapp/internal/domain/checkpoint"
	"github.com/ralucacrepcea/scoreapp/internal/domain/editbuf"
	"github.com/ralucacrepcea/scoreapp/internal/domain/model"
	"github.com/ralucacrepcea/scoreapp/internal/domain/rubric"
	. "github.com/smartystreets/goconvey/convey"
)

const t0 = int64(1_700_000_000_000)

func f(v float64) *float64 { return &v }

func newService(opts ...service.Option) (*service.Service, *repository.Repository) {
	repo := repository.New(docstore.NewMemoryStore())
	clock := func() time.Time { return time.UnixMilli(t0) }
	opts = append([]service.Option{
		service.WithClock(clock),
		service.WithWorkerCount(2),
		service.WithGraceWindow(60 * time.Second),
	}, opts...)
	return service.New(repo, opts...), repo
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestRoundAdmin(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service", t, func() {
		svc, repo := newService()

		Convey("Creating a round without a count uses the default", func() {
			rd, res, err := svc.CreateRound(ctx, "R1", nil)
			So(err, ShouldBeNil)
			So(rd.TotalCheckpoints, ShouldEqual, 6)
			So(len(rd.RefTemps), ShouldEqual, 6)
			So(res.Created, ShouldEqual, 6)

			view, err := svc.Round(ctx, "R1")
			So(err, ShouldBeNil)
			So(len(view.Checkpoints), ShouldEqual, 6)
			So(view.Checkpoints[0].Secret, ShouldNotBeEmpty)

			_, _, err = svc.CreateRound(ctx, "R1", nil)
			So(errors.Is(err, service.ErrExists), ShouldBeTrue)
		})

		Convey("Round names may not contain separators", func() {
			_, _, err := svc.CreateRound(ctx, "a_b", nil)
			So(errors.Is(err, service.ErrInvalidName), ShouldBeTrue)
			_, _, err = svc.CreateRound(ctx, "  ", nil)
			So(errors.Is(err, service.ErrInvalidName), ShouldBeTrue)
		})

		Convey("Counts are clamped", func() {
			n := 80
			rd, res, err := svc.CreateRound(ctx, "Big", &n)
			So(err, ShouldBeNil)
			So(rd.TotalCheckpoints, ShouldEqual, checkpoint.DefaultMax)
			So(res.Target, ShouldEqual, checkpoint.DefaultMax)
		})

		Convey("Shrinking a round deactivates its extra checkpoints", func() {
			n := 3
			_, _, err := svc.CreateRound(ctx, "R1", &n)
			So(err, ShouldBeNil)
			res, err := svc.SetRoundTotal(ctx, "R1", 1)
			So(err, ShouldBeNil)
			So(res.Deactivated, ShouldEqual, 2)

			rd, err := repo.Round(ctx, "R1")
			So(err, ShouldBeNil)
			So(len(rd.RefTemps), ShouldEqual, 1)

			Convey("And a reconcile with the same count writes nothing", func() {
				again, err := svc.ReconcileRound(ctx, "R1")
				So(err, ShouldBeNil)
				So(again.Writes, ShouldEqual, 0)
			})
		})

		Convey("Deleting a round keeps its checkpoints inactive", func() {
			n := 2
			_, _, err := svc.CreateRound(ctx, "R1", &n)
			So(err, ShouldBeNil)
			res, err := svc.DeleteRound(ctx, "R1")
			So(err, ShouldBeNil)
			So(res.Deactivated, ShouldEqual, 2)

			_, err = repo.Round(ctx, "R1")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			cps, _ := repo.Checkpoints(ctx, "R1")
			So(len(cps), ShouldEqual, 2)
			So(checkpoint.ActiveOrders(cps), ShouldBeEmpty)
		})

		Convey("References are padded to the checkpoint count", func() {
			n := 3
			_, _, err := svc.CreateRound(ctx, "R1", &n)
			So(err, ShouldBeNil)
			rd, err := svc.SetRoundRefs(ctx, "R1", []*float64{f(20)}, nil)
			So(err, ShouldBeNil)
			So(len(rd.RefTemps), ShouldEqual, 3)
			So(*rd.RefTemps[0], ShouldEqual, 20.0)
			So(len(rd.RefHumidity), ShouldEqual, 3)

			rd, err = svc.SetRoundTargets(ctx, "R1", f(22), nil)
			So(err, ShouldBeNil)
			So(*rd.TargetTemp, ShouldEqual, 22.0)
			So(rd.TargetHumidity, ShouldBeNil)
		})

		Convey("Renaming a round moves checkpoints, scans and mission scores", func() {
			n := 2
			_, _, err := svc.CreateRound(ctx, "R1", &n)
			So(err, ShouldBeNil)
			So(repo.PutTeam(ctx, "t1", "Orbit"), ShouldBeNil)
			So(repo.Store().Update(ctx, repository.CollTeams, "t1",
				docstore.Set(8, model.FieldScores, rubric.MissionKey("R1", "score"))), ShouldBeNil)
			cps, _ := repo.Checkpoints(ctx, "R1")
			So(repo.UpsertScan(ctx, model.Scan{TeamID: "t1", RoundID: "R1", CheckpointID: cps[0].ID, CreatedAtMs: t0}), ShouldBeNil)

			report, err := svc.RenameRound(ctx, "R1", "Final")
			So(err, ShouldBeNil)
			So(len(report.Checkpoints.Migrated), ShouldEqual, 2)
			So(len(report.Scans.Migrated), ShouldEqual, 1)
			So(len(report.Teams.Migrated), ShouldEqual, 1)

			_, err = repo.Round(ctx, "R1")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			moved, _ := repo.Checkpoints(ctx, "Final")
			So(len(moved), ShouldEqual, 2)

			scan, err := repo.Scan(ctx, model.ScanKey("t1", "Final", cps[0].ID))
			So(err, ShouldBeNil)
			So(scan.RoundID, ShouldEqual, "Final")

			team, _ := repo.Team(ctx, "t1")
			v, ok := team.Raw(rubric.MissionKey("Final", "score"), "")
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, 8.0)
			_, ok = team.Raw(rubric.MissionKey("R1", "score"), "")
			So(ok, ShouldBeFalse)
		})
	})
}

// rejectingStore refuses any batch that writes one of the blocked ids.
type rejectingStore struct {
	*docstore.MemoryStore
	blocked map[string]bool
}

func (s *rejectingStore) Batch(ctx context.Context, writes []docstore.Write) error {
	for _, w := range writes {
		if s.blocked[w.ID] {
			return errors.New("write rejected")
		}
	}
	return s.MemoryStore.Batch(ctx, writes)
}

func TestRoundRenameResume(t *testing.T) {
	ctx := context.Background()

	Convey("Given a rename that fails on one team", t, func() {
		store := &rejectingStore{MemoryStore: docstore.NewMemoryStore(), blocked: map[string]bool{"t2": true}}
		repo := repository.New(store, repository.WithBatchSize(1))
		svc := service.New(repo, service.WithClock(func() time.Time { return time.UnixMilli(t0) }))
		_, err := svc.EnsureMission(ctx)
		So(err, ShouldBeNil)

		n := 2
		_, _, err = svc.CreateRound(ctx, "R1", &n)
		So(err, ShouldBeNil)
		for id, score := range map[string]float64{"t1": 8, "t2": 6} {
			So(repo.PutTeam(ctx, id, id), ShouldBeNil)
			So(store.Update(ctx, repository.CollTeams, id,
				docstore.Set(score, model.FieldScores, rubric.MissionKey("R1", "score"))), ShouldBeNil)
		}

		_, err = svc.RenameRound(ctx, "R1", "Final")
		So(errors.Is(err, repository.ErrPartialBatch), ShouldBeTrue)

		Convey("Then both rounds exist and the new one is marked", func() {
			_, err := repo.Round(ctx, "R1")
			So(err, ShouldBeNil)
			final, err := repo.Round(ctx, "Final")
			So(err, ShouldBeNil)
			So(final.RenamedFrom, ShouldEqual, "R1")
		})

		Convey("Then grades count the round once and read unmoved scores", func() {
			grades, err := svc.Grades(ctx, service.View{})
			So(err, ShouldBeNil)
			So(grades.RoundIDs, ShouldResemble, []string{"Final"})
			byTeam := map[string]float64{}
			for _, g := range grades.Teams {
				byTeam[g.TeamID] = g.Mission
			}
			So(byTeam["t1"], ShouldEqual, 8.0)
			So(byTeam["t2"], ShouldEqual, 6.0)
		})

		Convey("When the rename is retried after the store recovers", func() {
			delete(store.blocked, "t2")
			report, err := svc.RenameRound(ctx, "R1", "Final")

			Convey("Then it finishes the move", func() {
				So(err, ShouldBeNil)
				So(report.Teams.Migrated, ShouldResemble, []string{"t2"})

				_, err = repo.Round(ctx, "R1")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				final, err := repo.Round(ctx, "Final")
				So(err, ShouldBeNil)
				So(final.RenamedFrom, ShouldBeEmpty)

				team, _ := repo.Team(ctx, "t2")
				v, ok := team.Raw(rubric.MissionKey("Final", "score"), "")
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, 6.0)
			})
		})

		Convey("When the target name belongs to an unrelated round", func() {
			_, _, err := svc.CreateRound(ctx, "Other", &n)
			So(err, ShouldBeNil)
			_, err = svc.RenameRound(ctx, "R1", "Other")
			So(errors.Is(err, service.ErrExists), ShouldBeTrue)
		})
	})
}

func TestTopicAdmin(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service with mission performance and one team", t, func() {
		svc, repo := newService()
		mp, err := svc.EnsureMission(ctx)
		So(err, ShouldBeNil)
		So(mp.Weight, ShouldEqual, 20.0)
		So(repo.PutTeam(ctx, "t1", "Orbit"), ShouldBeNil)

		Convey("Adding a topic seeds every team", func() {
			topic, report, err := svc.AddTopic(ctx, "Pitch")
			So(err, ShouldBeNil)
			So(topic.Weight, ShouldEqual, 0.0)
			So(report.Migrated, ShouldResemble, []string{"t1"})

			team, _ := repo.Team(ctx, "t1")
			v, ok := team.Raw("Pitch", "")
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, 0.0)

			_, _, err = svc.AddTopic(ctx, "Pitch")
			So(errors.Is(err, service.ErrExists), ShouldBeTrue)

			Convey("Weights summing to 100 complete the rubric", func() {
				sum, err := svc.SetTopicWeight(ctx, "Pitch", 80)
				So(err, ShouldBeNil)
				So(sum.Total, ShouldEqual, 100.0)
				So(sum.Complete, ShouldBeTrue)

				sum, err = svc.SetTopicWeight(ctx, "Pitch", 250)
				So(err, ShouldBeNil)
				So(sum.Complete, ShouldBeFalse)
			})

			Convey("Renaming moves the field on every team", func() {
				_, err := svc.RenameTopic(ctx, "Pitch", "Talk")
				So(err, ShouldBeNil)
				team, _ := repo.Team(ctx, "t1")
				_, ok := team.Raw("Talk", "")
				So(ok, ShouldBeTrue)
				_, ok = team.Raw("Pitch", "")
				So(ok, ShouldBeFalse)
			})

			Convey("Deleting removes the field", func() {
				_, err := svc.DeleteTopic(ctx, "Pitch")
				So(err, ShouldBeNil)
				team, _ := repo.Team(ctx, "t1")
				_, ok := team.Raw("Pitch", "")
				So(ok, ShouldBeFalse)
			})

			Convey("Columns are validated and de-duplicated", func() {
				topic, err := svc.SetTopicColumns(ctx, "Pitch", []service.ColumnInput{
					{Label: "Story"}, {Label: "Story"}, {Label: "Slides", Weight: f(40)},
				})
				So(err, ShouldBeNil)
				So(len(topic.Columns), ShouldEqual, 2)

				_, err = svc.SetTopicColumns(ctx, "Pitch", []service.ColumnInput{{Label: " "}})
				So(err, ShouldNotBeNil)
			})
		})

		Convey("Mission performance is protected", func() {
			_, _, err := svc.AddTopic(ctx, rubric.MissionTopicID)
			So(errors.Is(err, rubric.ErrReservedTopic), ShouldBeTrue)
			_, err = svc.RenameTopic(ctx, rubric.MissionTopicID, "Other")
			So(errors.Is(err, rubric.ErrReservedTopic), ShouldBeTrue)
			_, err = svc.DeleteTopic(ctx, rubric.MissionTopicID)
			So(errors.Is(err, rubric.ErrReservedTopic), ShouldBeTrue)
		})
	})
}

func TestGradesAndEdits(t *testing.T) {
	ctx := context.Background()

	Convey("Given a complete rubric and two teams", t, func() {
		svc, repo := newService()
		_, err := svc.EnsureMission(ctx)
		So(err, ShouldBeNil)
		_, _, err = svc.AddTopic(ctx, "Pitch")
		So(err, ShouldBeNil)
		_, err = svc.SetTopicWeight(ctx, "Pitch", 80)
		So(err, ShouldBeNil)
		n := 1
		_, _, err = svc.CreateRound(ctx, "R1", &n)
		So(err, ShouldBeNil)

		So(repo.PutTeam(ctx, "t1", "Orbit"), ShouldBeNil)
		So(repo.PutTeam(ctx, "t2", "Apex"), ShouldBeNil)
		So(repo.Store().Update(ctx, repository.CollTeams, "t1",
			docstore.Set(7.5, model.FieldScores, "Pitch", "score"),
			docstore.Set(10, model.FieldScores, rubric.MissionKey("R1", "score"))), ShouldBeNil)

		Convey("Grades combine topics and mission scores", func() {
			g, err := svc.TeamGrade(ctx, "t1", service.View{})
			So(err, ShouldBeNil)
			So(g.Grade.Defined, ShouldBeTrue)
			So(g.Grade.Value, ShouldAlmostEqual, 8.0, 1e-9)

			ranked, err := svc.Ranking(ctx, service.View{}, 0)
			So(err, ShouldBeNil)
			So(len(ranked), ShouldEqual, 2)
			So(ranked[0].TeamID, ShouldEqual, "t1")
			So(ranked[1].Rank, ShouldEqual, 2)

			top, err := svc.Ranking(ctx, service.View{}, 1)
			So(err, ShouldBeNil)
			So(len(top), ShouldEqual, 1)
		})

		Convey("An incomplete rubric leaves grades undefined", func() {
			_, err := svc.SetTopicWeight(ctx, "Pitch", 50)
			So(err, ShouldBeNil)
			g, err := svc.TeamGrade(ctx, "t1", service.View{})
			So(err, ShouldBeNil)
			So(g.Grade.Defined, ShouldBeFalse)
		})

		Convey("Unsaved edits only show in the live view", func() {
			ref := model.FieldRef{TeamID: "t2", Field: "Pitch", Sub: "score"}
			So(svc.SetValue("judge", ref, "10"), ShouldBeNil)
			So(len(svc.Pending("judge")), ShouldEqual, 1)

			live := service.View{Actor: "judge", Live: true}
			g, _ := svc.TeamGrade(ctx, "t2", live)
			So(g.Grade.Value, ShouldAlmostEqual, 8.0, 1e-9)
			g, _ = svc.TeamGrade(ctx, "t2", service.View{})
			So(g.Grade.Value, ShouldAlmostEqual, 0.0, 1e-9)
			other, _ := svc.TeamGrade(ctx, "t2", service.View{Actor: "someone", Live: true})
			So(other.Grade.Value, ShouldAlmostEqual, 0.0, 1e-9)

			Convey("Saving persists the value with an audit record", func() {
				res, err := svc.Save(ctx, "judge", ref, nil)
				So(err, ShouldBeNil)
				So(res.Value, ShouldEqual, 10.0)
				So(svc.Pending("judge"), ShouldBeEmpty)

				audits, err := svc.Audits(ctx, "t2", 10)
				So(err, ShouldBeNil)
				So(len(audits), ShouldEqual, 1)
				So(audits[0].Actor, ShouldEqual, "judge")

				Convey("And a stale fingerprint is a conflict", func() {
					So(svc.SetValue("judge", ref, 4), ShouldBeNil)
					stale := "old"
					_, err := svc.Save(ctx, "judge", ref, &stale)
					So(errors.Is(err, editbuf.ErrConflict), ShouldBeTrue)
					So(len(svc.Pending("judge")), ShouldEqual, 1)

					_, err = svc.Save(ctx, "judge", ref, &res.Hash)
					So(err, ShouldBeNil)
				})
			})

			Convey("Discarding drops the edit", func() {
				svc.Discard("judge", ref)
				So(svc.Pending("judge"), ShouldBeEmpty)
			})
		})

		Convey("Edits need an actor and a field", func() {
			So(errors.Is(svc.SetValue(" ", model.FieldRef{TeamID: "t1", Field: "Pitch"}, 1), service.ErrNoActor), ShouldBeTrue)
			So(errors.Is(svc.SetNote("judge", model.FieldRef{TeamID: "t1"}, "x"), editbuf.ErrInvalidRef), ShouldBeTrue)
		})

		Convey("Save all commits every buffered field", func() {
			So(svc.SetValue("judge", model.FieldRef{TeamID: "t1", Field: "Pitch"}, 9), ShouldBeNil)
			So(svc.SetNote("judge", model.FieldRef{TeamID: "t2", Field: "Pitch"}, " ok "), ShouldBeNil)
			res, err := svc.SaveAll(ctx, "judge")
			So(err, ShouldBeNil)
			So(len(res), ShouldEqual, 2)
			team, _ := repo.Team(ctx, "t2")
			So(team.NoteFor("Pitch", ""), ShouldEqual, "ok")
		})
	})
}

func TestScanPipeline(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service with a two-checkpoint round", t, func() {
		svc, repo := newService()
		n := 2
		_, _, err := svc.CreateRound(ctx, "R1", &n)
		So(err, ShouldBeNil)
		So(repo.PutTeam(ctx, "t1", "Orbit"), ShouldBeNil)
		view, _ := svc.Round(ctx, "R1")
		cp := view.Checkpoints[0]

		req := service.ScanRequest{
			EventID: "e1", TeamID: "t1", RoundID: "R1", CheckpointID: cp.ID,
			TS: t0, Temp: f(21.5),
		}
		req.Signature = service.Sign(cp.Secret, req.TeamID, req.RoundID, req.CheckpointID, req.TS)

		Convey("Ingestion needs a started service", func() {
			_, err := svc.IngestScan(ctx, req)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("When the service runs", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop(ctx)

			Convey("A signed scan is stored and counted once", func() {
				status, err := svc.IngestScan(ctx, req)
				So(err, ShouldBeNil)
				So(status, ShouldEqual, service.IngestQueued)

				status, err = svc.IngestScan(ctx, req)
				So(err, ShouldBeNil)
				So(status, ShouldEqual, service.IngestDuplicate)

				So(eventually(func() bool {
					_, err := repo.Scan(ctx, model.ScanKey("t1", "R1", cp.ID))
					return err == nil
				}), ShouldBeTrue)
				So(eventually(func() bool {
					p, err := svc.Progress(ctx)
					return err == nil && len(p) == 1 && p[0].Hits == 1
				}), ShouldBeTrue)
			})

			Convey("A bad signature is rejected", func() {
				bad := req
				bad.Signature = service.Sign("wrong", req.TeamID, req.RoundID, req.CheckpointID, req.TS)
				_, err := svc.IngestScan(ctx, bad)
				So(errors.Is(err, service.ErrSignature), ShouldBeTrue)
			})

			Convey("A checkpoint of another round is rejected", func() {
				other := req
				other.RoundID = "R9"
				_, err := svc.IngestScan(ctx, other)
				So(errors.Is(err, service.ErrCheckpointNotFound), ShouldBeTrue)
			})

			Convey("An unknown team is rejected", func() {
				ghost := req
				ghost.TeamID = "ghost"
				ghost.Signature = service.Sign(cp.Secret, "ghost", req.RoundID, req.CheckpointID, req.TS)
				_, err := svc.IngestScan(ctx, ghost)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestApplyScans(t *testing.T) {
	ctx := context.Background()

	Convey("Given scan events for one checkpoint", t, func() {
		svc, repo := newService()
		key := model.ScanKey("t1", "R1", "c1")
		event := func(ts int64, temp *float64) model.ScanEvent {
			return model.ScanEvent{TeamID: "t1", RoundID: "R1", CheckpointID: "c1", TS: ts, Temp: temp}
		}
		So(svc.Apply(ctx, event(t0, f(20))), ShouldBeNil)

		Convey("A later event inside the window replaces the reading", func() {
			So(svc.Apply(ctx, event(t0+1000, f(21))), ShouldBeNil)
			s, _ := repo.Scan(ctx, key)
			So(*s.Temp, ShouldEqual, 21.0)
			So(s.CreatedAtMs, ShouldEqual, t0)

			Convey("And an older event is dropped", func() {
				So(svc.Apply(ctx, event(t0+500, f(99))), ShouldBeNil)
				s, _ := repo.Scan(ctx, key)
				So(*s.Temp, ShouldEqual, 21.0)
				So(s.UpdatedAtMs, ShouldEqual, t0+1000)
			})
		})

		Convey("An older event arriving late moves the reach time back", func() {
			So(svc.Apply(ctx, event(t0+3000, f(25))), ShouldBeNil)
			So(svc.Apply(ctx, event(t0-2000, f(18))), ShouldBeNil)
			s, _ := repo.Scan(ctx, key)
			So(s.CreatedAtMs, ShouldEqual, t0-2000)
			So(s.UpdatedAtMs, ShouldEqual, t0+3000)
			So(*s.Temp, ShouldEqual, 25.0)
		})

		Convey("After the window only the touch is recorded", func() {
			So(svc.Apply(ctx, event(t0+61_000, f(30))), ShouldBeNil)
			s, _ := repo.Scan(ctx, key)
			So(*s.Temp, ShouldEqual, 20.0)
			So(s.UpdatedAtMs, ShouldEqual, t0+61_000)
		})

		Convey("Events with the same key settle on the latest one", func() {
			done := make(chan struct{})
			for i := 1; i <= 20; i++ {
				go func() {
					_ = svc.Apply(ctx, event(t0+int64(i)*100, f(float64(i))))
					done <- struct{}{}
				}()
			}
			for i := 0; i < 20; i++ {
				<-done
			}
			s, _ := repo.Scan(ctx, key)
			So(s.UpdatedAtMs, ShouldEqual, t0+2000)
			So(*s.Temp, ShouldEqual, 20.0)
		})
	})
}

func TestScanLocking(t *testing.T) {
	ctx := context.Background()

	Convey("Given a round with a scanned checkpoint", t, func() {
		svc, repo := newService()
		n := 1
		_, _, err := svc.CreateRound(ctx, "R1", &n)
		So(err, ShouldBeNil)
		cps, _ := repo.Checkpoints(ctx, "R1")
		So(repo.UpsertScan(ctx, model.Scan{
			TeamID: "t1", RoundID: "R1", CheckpointID: cps[0].ID,
			CreatedAtMs: t0 - 10_500, UpdatedAtMs: t0 - 10_500,
		}), ShouldBeNil)

		Convey("Its status counts down the grace window", func() {
			st, err := svc.Status(ctx, "t1", "R1", 1)
			So(err, ShouldBeNil)
			So(st.Status.Unlocked, ShouldBeTrue)
			So(st.Status.LeftSeconds, ShouldEqual, int64(50))
		})

		Convey("An explicit lock closes it", func() {
			st, err := svc.Lock(ctx, "t1", "R1", 1)
			So(err, ShouldBeNil)
			So(st.Status.Unlocked, ShouldBeFalse)
			So(st.Status.Locked, ShouldBeTrue)

			Convey("And reopening starts a fresh window", func() {
				st, err := svc.Reopen(ctx, "t1", "R1", 1)
				So(err, ShouldBeNil)
				So(st.Status.Unlocked, ShouldBeTrue)
				So(st.Status.LeftSeconds, ShouldEqual, int64(60))
				So(st.Scan.CreatedAtMs, ShouldEqual, t0)

				Convey("And an event from before the reopen keeps the new window", func() {
					So(svc.Apply(ctx, model.ScanEvent{
						TeamID: "t1", RoundID: "R1", CheckpointID: cps[0].ID, TS: t0 - 5000,
					}), ShouldBeNil)
					st, err := svc.Status(ctx, "t1", "R1", 1)
					So(err, ShouldBeNil)
					So(st.Scan.CreatedAtMs, ShouldEqual, t0)
					So(st.Status.LeftSeconds, ShouldEqual, int64(60))
				})
			})
		})

		Convey("An order without an active checkpoint writes nothing", func() {
			_, err := svc.Reopen(ctx, "t1", "R1", 5)
			So(errors.Is(err, service.ErrCheckpointNotFound), ShouldBeTrue)
			_, err = repo.Scan(ctx, model.ScanKey("t1", "R1", "nope"))
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}
