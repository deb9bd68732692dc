package repository_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/ralucacrepcea/scoreapp/internal/adapters/docstore"
	"github.com/ralucacrepcea/scoreapp/internal/adapters/repository"
	"github.com/ralucacrepcea/scoreapp/internal/domain/checkpoint"
	"github.com/ralucacrepcea/scoreapp/internal/domain/editbuf"
	"github.com/ralucacrepcea/scoreapp/internal/domain/model"
	"github.com/ralucacrepcea/scoreapp/internal/domain/rubric"
	. "github.com/smartystreets/goconvey/convey"
)

func f(v float64) *float64 { return &v }

// failingStore rejects any batch touching one of the poisoned ids.
type failingStore struct {
	*docstore.MemoryStore
	poison map[string]bool
}

func (s *failingStore) Batch(ctx context.Context, writes []docstore.Write) error {
	for _, w := range writes {
		if s.poison[w.ID] {
			return errors.New("write rejected")
		}
	}
	return s.MemoryStore.Batch(ctx, writes)
}

// cancellingStore cancels the caller's context once its first batch commits.
type cancellingStore struct {
	*docstore.MemoryStore
	cancel  context.CancelFunc
	batches int
}

func (s *cancellingStore) Batch(ctx context.Context, writes []docstore.Write) error {
	if err := s.MemoryStore.Batch(ctx, writes); err != nil {
		return err
	}
	s.batches++
	if s.batches == 1 {
		s.cancel()
	}
	return nil
}

func TestTeamsAndSaves(t *testing.T) {
	ctx := context.Background()

	Convey("Given a repository with two teams", t, func() {
		repo := repository.New(docstore.NewMemoryStore())
		So(repo.PutTeam(ctx, "t2", "bravo"), ShouldBeNil)
		So(repo.PutTeam(ctx, "t1", "Alpha"), ShouldBeNil)

		Convey("Teams are listed by name", func() {
			teams, err := repo.Teams(ctx)
			So(err, ShouldBeNil)
			So(len(teams), ShouldEqual, 2)
			So(teams[0].ID, ShouldEqual, "t1")
			So(teams[1].Name, ShouldEqual, "bravo")
		})

		Convey("A committed save lands on the team and in the audit log", func() {
			ref := model.FieldRef{TeamID: "t1", Field: "Design", Sub: "ux"}
			writes := []editbuf.FieldWrite{
				{Path: ref.ScorePath(), Value: 8.5},
				{Path: ref.NotePath(), Value: "clean"},
				{Path: append(ref.MetaPath(), "hash"), Value: "h1"},
				{Path: append(ref.MetaPath(), "lastSavedAt"), Value: int64(1000)},
			}
			audit := model.AuditRecord{
				ID: "a1", Actor: "judge", TeamID: "t1", Field: "Design", Sub: "ux",
				After: model.Snapshot{Value: 8.5, Note: "clean"}, At: 1000,
			}
			So(repo.CommitSave(ctx, "t1", writes, audit), ShouldBeNil)

			team, err := repo.Team(ctx, "t1")
			So(err, ShouldBeNil)
			raw, ok := team.Raw("Design", "ux")
			So(ok, ShouldBeTrue)
			So(raw, ShouldEqual, 8.5)
			So(team.NoteFor("Design", "ux"), ShouldEqual, "clean")
			So(team.MetaFor("Design", "ux").Hash, ShouldEqual, "h1")
			So(team.MetaFor("Design", "ux").LastSavedAt, ShouldEqual, int64(1000))

			audits, err := repo.Audits(ctx, "t1", 0)
			So(err, ShouldBeNil)
			So(len(audits), ShouldEqual, 1)
			So(audits[0].Actor, ShouldEqual, "judge")
			So(audits[0].Sub, ShouldEqual, "ux")
			So(audits[0].Before.Value, ShouldBeNil)
		})

		Convey("A save on a missing team writes nothing", func() {
			err := repo.CommitSave(ctx, "ghost", []editbuf.FieldWrite{{Path: []string{"scores", "x"}, Value: 1}},
				model.AuditRecord{ID: "a2", TeamID: "ghost"})
			So(err, ShouldNotBeNil)
			audits, _ := repo.Audits(ctx, "ghost", 0)
			So(audits, ShouldBeEmpty)
		})

		Convey("A missing team is ErrNotFound", func() {
			_, err := repo.Team(ctx, "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestTopicsAndRounds(t *testing.T) {
	ctx := context.Background()

	Convey("Given stored topics and rounds", t, func() {
		repo := repository.New(docstore.NewMemoryStore())
		So(repo.PutTopic(ctx, rubric.Topic{ID: "Pitch", Weight: 30}), ShouldBeNil)
		So(repo.PutTopic(ctx, rubric.Topic{
			ID: rubric.MissionTopicID, Weight: 20,
			Columns: []rubric.Column{{Key: "score", Label: "Score", Weight: f(100)}},
		}), ShouldBeNil)
		So(repo.PutRound(ctx, model.Round{
			ID: "R2", TotalCheckpoints: 2, CreatedAt: 20,
			RefTemps: []*float64{f(21.5), nil}, TargetTemp: f(22),
		}), ShouldBeNil)
		So(repo.PutRound(ctx, model.Round{ID: "R1", TotalCheckpoints: 6, CreatedAt: 10}), ShouldBeNil)

		Convey("Mission Performance is listed first with its columns", func() {
			topics, err := repo.Topics(ctx)
			So(err, ShouldBeNil)
			So(len(topics), ShouldEqual, 2)
			So(topics[0].IsMission(), ShouldBeTrue)
			So(len(topics[0].Columns), ShouldEqual, 1)
			So(topics[0].Columns[0].W(), ShouldEqual, 100.0)
			So(topics[1].Columns, ShouldBeEmpty)
		})

		Convey("Weights and columns can be changed in place", func() {
			So(repo.SetTopicWeight(ctx, "Pitch", 45), ShouldBeNil)
			So(repo.SetTopicColumns(ctx, "Pitch", []rubric.Column{{Key: "a", Label: "A"}, {Key: "b", Label: "B"}}), ShouldBeNil)
			topic, err := repo.Topic(ctx, "Pitch")
			So(err, ShouldBeNil)
			So(topic.Weight, ShouldEqual, 45.0)
			So(len(topic.Columns), ShouldEqual, 2)
			So(topic.Columns[1].Weight, ShouldBeNil)

			err = repo.SetTopicWeight(ctx, "Nope", 1)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Rounds keep creation order and nullable references", func() {
			rounds, err := repo.Rounds(ctx)
			So(err, ShouldBeNil)
			So(repository.RoundIDs(rounds), ShouldResemble, []string{"R1", "R2"})
			r2 := rounds[1]
			So(len(r2.RefTemps), ShouldEqual, 2)
			So(*r2.RefTemps[0], ShouldEqual, 21.5)
			So(r2.RefTemps[1], ShouldBeNil)
			So(*r2.TargetTemp, ShouldEqual, 22.0)
			So(r2.TargetHumidity, ShouldBeNil)
		})
	})
}

func TestCheckpointStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given a reconciler over the repository", t, func() {
		repo := repository.New(docstore.NewMemoryStore())
		rec := checkpoint.NewReconciler(repo)

		Convey("Reconciling creates active secured checkpoints", func() {
			res, err := rec.Reconcile(ctx, "R1", 3)
			So(err, ShouldBeNil)
			So(res.Created, ShouldEqual, 3)

			cps, err := repo.Checkpoints(ctx, "R1")
			So(err, ShouldBeNil)
			So(len(cps), ShouldEqual, 3)
			for i, cp := range cps {
				So(cp.Order, ShouldEqual, i+1)
				So(cp.Active, ShouldBeTrue)
				So(len(cp.Secret), ShouldEqual, 32)
			}

			Convey("And shrinking deactivates without deleting", func() {
				res, err := rec.Reconcile(ctx, "R1", 1)
				So(err, ShouldBeNil)
				So(res.Deactivated, ShouldEqual, 2)
				cps, _ := repo.Checkpoints(ctx, "R1")
				So(len(cps), ShouldEqual, 3)
				So(checkpoint.ActiveOrders(cps), ShouldHaveLength, 1)

				again, err := rec.Reconcile(ctx, "R1", 1)
				So(err, ShouldBeNil)
				So(again.Writes, ShouldEqual, 0)
			})

			Convey("And a checkpoint is found by id", func() {
				cp, err := repo.Checkpoint(ctx, cps[0].ID)
				So(err, ShouldBeNil)
				So(cp.RoundID, ShouldEqual, "R1")

				_, err = repo.Checkpoint(ctx, "missing")
				So(errors.Is(err, checkpoint.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("Patching a missing checkpoint is ErrNotFound", func() {
			on := true
			err := repo.PatchCheckpoint(ctx, "missing", checkpoint.Patch{Active: &on})
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestScans(t *testing.T) {
	ctx := context.Background()

	Convey("Given a stored scan", t, func() {
		repo := repository.New(docstore.NewMemoryStore())
		s := model.Scan{TeamID: "t1", RoundID: "R1", CheckpointID: "c1", CreatedAtMs: 5000, UpdatedAtMs: 5000, Temp: f(20.5)}
		So(repo.UpsertScan(ctx, s), ShouldBeNil)

		Convey("An upsert without readings keeps the stored ones", func() {
			s2 := model.Scan{TeamID: "t1", RoundID: "R1", CheckpointID: "c1", CreatedAtMs: 9000, UpdatedAtMs: 9000}
			So(repo.UpsertScan(ctx, s2), ShouldBeNil)
			got, err := repo.Scan(ctx, s.Key())
			So(err, ShouldBeNil)
			So(got.CreatedAtMs, ShouldEqual, int64(9000))
			So(*got.Temp, ShouldEqual, 20.5)
			So(got.ID, ShouldEqual, "t1_R1_c1")
		})

		Convey("Locking sets the flag and touches the scan", func() {
			So(repo.LockScan(ctx, s.Key(), true, 7000), ShouldBeNil)
			got, _ := repo.Scan(ctx, s.Key())
			So(got.Locked, ShouldBeTrue)
			So(got.Touched(), ShouldEqual, int64(7000))
		})

		Convey("Recent scans respect the lookback", func() {
			old := model.Scan{TeamID: "t2", RoundID: "R1", CheckpointID: "c1", CreatedAtMs: 100}
			So(repo.UpsertScan(ctx, old), ShouldBeNil)
			recent, err := repo.RecentScans(ctx, 1000, 10)
			So(err, ShouldBeNil)
			So(len(recent), ShouldEqual, 1)
			all, err := repo.RoundScans(ctx, "R1")
			So(err, ShouldBeNil)
			So(len(all), ShouldEqual, 2)
		})

		Convey("A watcher sees the current scans and later ones", func() {
			var seen []int
			sub, err := repo.WatchScans(ctx, 0, 10, func(scans []model.Scan) {
				seen = append(seen, len(scans))
			})
			So(err, ShouldBeNil)
			defer sub.Close()
			So(seen, ShouldResemble, []int{1})
		})
	})
}

func TestMigrateRoster(t *testing.T) {
	ctx := context.Background()

	Convey("Given a roster of seven teams", t, func() {
		mem := docstore.NewMemoryStore()
		store := &failingStore{MemoryStore: mem, poison: map[string]bool{}}
		repo := repository.New(store, repository.WithBatchSize(2), repository.WithConcurrency(3))
		for i := 1; i <= 7; i++ {
			So(repo.PutTeam(ctx, fmt.Sprintf("t%d", i), fmt.Sprintf("Team %d", i)), ShouldBeNil)
		}
		seed := func(t model.Team) []docstore.FieldWrite {
			return []docstore.FieldWrite{docstore.Set(0, model.FieldScores, "Pitch")}
		}

		Convey("When every chunk commits", func() {
			report, err := repo.MigrateRoster(ctx, seed)

			Convey("Then every team is migrated", func() {
				So(err, ShouldBeNil)
				So(len(report.Migrated), ShouldEqual, 7)
				So(report.Failed, ShouldBeEmpty)
				team, _ := repo.Team(ctx, "t7")
				raw, ok := team.Raw("Pitch", "")
				So(ok, ShouldBeTrue)
				So(raw, ShouldEqual, 0.0)
			})
		})

		Convey("When one chunk fails", func() {
			store.poison["t3"] = true
			report, err := repo.MigrateRoster(ctx, seed)

			Convey("Then the report names its teams and the rest commit", func() {
				So(errors.Is(err, repository.ErrPartialBatch), ShouldBeTrue)
				So(len(report.Failed), ShouldEqual, 2)
				So(slices.Contains(report.Failed, "t3"), ShouldBeTrue)
				So(len(report.Migrated), ShouldEqual, 5)

				failedTeam, _ := repo.Team(ctx, "t3")
				_, ok := failedTeam.Raw("Pitch", "")
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the last chunk fails while others run concurrently", func() {
			store.poison["t7"] = true
			report, err := repo.MigrateRoster(ctx, seed)

			Convey("Then only that chunk is reported as failed", func() {
				So(errors.Is(err, repository.ErrPartialBatch), ShouldBeTrue)
				So(report.Failed, ShouldResemble, []string{"t7"})
				So(len(report.Migrated), ShouldEqual, 6)
			})
		})

		Convey("Teams the migration skips are not written", func() {
			report, err := repo.MigrateRoster(ctx, func(t model.Team) []docstore.FieldWrite {
				if t.ID == "t1" {
					return []docstore.FieldWrite{docstore.Remove(model.FieldScores, "Pitch")}
				}
				return nil
			})
			So(err, ShouldBeNil)
			So(report.Migrated, ShouldResemble, []string{"t1"})
		})
	})
}

func TestCommitCancelled(t *testing.T) {
	Convey("Given a store that cancels the migration after one chunk", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		store := &cancellingStore{MemoryStore: docstore.NewMemoryStore(), cancel: cancel}
		repo := repository.New(store, repository.WithBatchSize(1), repository.WithConcurrency(1))
		for _, id := range []string{"a", "b", "c"} {
			So(repo.PutTeam(context.Background(), id, id), ShouldBeNil)
		}

		report, err := repo.MigrateRoster(ctx, func(model.Team) []docstore.FieldWrite {
			return []docstore.FieldWrite{docstore.Set(1, model.FieldScores, "Pitch")}
		})

		Convey("Then every team is accounted for", func() {
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			So(report.Migrated, ShouldResemble, []string{"a"})
			So(report.Failed, ShouldResemble, []string{"b", "c"})
			So(len(report.Migrated)+len(report.Failed), ShouldEqual, 3)
		})

		Convey("Then the skipped teams were not written", func() {
			team, err := repo.Team(context.Background(), "c")
			So(err, ShouldBeNil)
			_, ok := team.Raw("Pitch", "")
			So(ok, ShouldBeFalse)
		})
	})
}
