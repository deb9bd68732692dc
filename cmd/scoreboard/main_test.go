package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/ralucacrepcea/scoreapp/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scoreboard.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	convey.Convey("Given a memory-backed configuration", t, func() {
		path := writeConfig(t, "store_driver: memory\nlog_level: error\n")

		convey.Convey("When exporting the ranking of an empty scoreboard", func() {
			out, err := run("export", "ranking", "--config", path)

			convey.Convey("Then only the header is written", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldEqual, "Rank,Team,FinalGrade\n")
			})
		})

		convey.Convey("When exporting to a file", func() {
			target := filepath.Join(t.TempDir(), "full.csv")
			_, err := run("export", "full", "-c", path, "-o", target)

			convey.Convey("Then the file holds the full layout", func() {
				convey.So(err, convey.ShouldBeNil)
				data, readErr := os.ReadFile(target)
				convey.So(readErr, convey.ShouldBeNil)
				convey.So(string(data), convey.ShouldContainSubstring, "Full breakdown")
			})
		})

		convey.Convey("When the export kind is unknown", func() {
			_, err := run("export", "summary", "-c", path)
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When reconciling a missing round", func() {
			_, err := run("reconcile", "R9", "-c", path)
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When the total is not a number", func() {
			_, err := run("reconcile", "R1", "six", "-c", path)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "invalid checkpoint total")
		})
	})

	convey.Convey("Given a config file that does not exist", t, func() {
		_, err := run("export", "ranking", "-c", filepath.Join(t.TempDir(), "missing.yaml"))
		convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
	})
}

func TestOpenStore(t *testing.T) {
	convey.Convey("Given store drivers", t, func() {
		convey.Convey("The sqlite driver opens a database file", func() {
			cfg := config.New()
			cfg.StoreDriver = config.DriverSQLite
			cfg.SQLitePath = filepath.Join(t.TempDir(), "scores.db")
			store, err := openStore(cfg)
			convey.So(err, convey.ShouldBeNil)
			convey.So(store.Close(), convey.ShouldBeNil)
		})

		convey.Convey("An unknown driver is rejected", func() {
			cfg := config.New()
			cfg.StoreDriver = "postgres"
			_, err := openStore(cfg)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}
