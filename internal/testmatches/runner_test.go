package testmatches

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/pmr/internal/adapters/http/api"
	service "github.com/okian/pmr/internal/app"
	"github.com/okian/pmr/pkg/logger"
)

func newTestService(t *testing.T) (*service.Service, *httptest.Server) {
	t.Helper()
	svc := service.New(service.WithWorkerCount(4), service.WithLogger(logger.NewNop()))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	r := chi.NewRouter()
	api.NewServer(svc, 100, api.WithLogger(logger.NewNop())).Register(context.Background(), r)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		_ = svc.Stop()
	})
	return svc, srv
}

func TestRun(t *testing.T) {
	Convey("Given a running rating service", t, func() {
		svc, srv := newTestService(t)
		out := filepath.Join(t.TempDir(), "out", "matches.json")
		cfg := &Config{
			BaseURL:    srv.URL,
			NumMatches: 60,
			NumPlayers: 12,
			Duplicates: 5,
			TopN:       20,
			Workers:    4,
			Timeout:    5 * time.Second,
			Settle:     10 * time.Second,
			Seed:       7,
			OutputFile: out,
		}

		Convey("When the match test runs", func() {
			err := Run(context.Background(), cfg)

			Convey("Then every match is rated once and the results verify", func() {
				So(err, ShouldBeNil)
				stats := svc.GetStats()
				So(stats["matches_rated"], ShouldEqual, int64(60))
				So(stats["players"], ShouldEqual, 12)
			})

			Convey("And the generated matches are saved", func() {
				data, err := os.ReadFile(out)
				So(err, ShouldBeNil)
				var saved []Match
				So(json.Unmarshal(data, &saved), ShouldBeNil)
				So(saved, ShouldHaveLength, 60)
			})
		})
	})

	Convey("Given no service at the url", t, func() {
		cfg := &Config{BaseURL: "http://127.0.0.1:1", NumMatches: 1, NumPlayers: 4, TopN: 1, Workers: 1, Timeout: time.Second}

		Convey("Then the health check fails", func() {
			So(Run(context.Background(), cfg), ShouldNotBeNil)
		})
	})
}

func TestWaitForProcessing(t *testing.T) {
	Convey("Given a service that never reaches the target", t, func() {
		_, srv := newTestService(t)
		cfg := &Config{BaseURL: srv.URL, Settle: 300 * time.Millisecond}

		Convey("Then waiting gives up with ErrNotSettled", func() {
			err := waitForProcessing(context.Background(), newHTTPClient(time.Second), cfg, 1)
			So(errors.Is(err, ErrNotSettled), ShouldBeTrue)
		})
	})
}

func TestParseArgs(t *testing.T) {
	Convey("Given command-line arguments", t, func() {
		Convey("When only defaults are used", func() {
			cfg, opts, err := ParseArgs(nil)
			So(err, ShouldBeNil)
			So(cfg.BaseURL, ShouldEqual, "http://localhost:9080")
			So(cfg.NumMatches, ShouldEqual, 10000)
			So(cfg.Workers, ShouldBeGreaterThan, 0)
			So(cfg.Seed, ShouldNotEqual, 0)
			So(opts.Log, ShouldBeEmpty)
		})

		Convey("When flags are given", func() {
			cfg, _, err := ParseArgs([]string{"--url", "http://svc:8080", "--matches", "5", "--players", "9", "--seed", "3", "--settle", "5s", "-v"})
			So(err, ShouldBeNil)
			So(cfg.BaseURL, ShouldEqual, "http://svc:8080")
			So(cfg.NumMatches, ShouldEqual, 5)
			So(cfg.NumPlayers, ShouldEqual, 9)
			So(cfg.Seed, ShouldEqual, 3)
			So(cfg.Settle, ShouldEqual, 5*time.Second)
			So(cfg.Verbose, ShouldBeTrue)
		})

		Convey("When a positional argument is left over", func() {
			_, _, err := ParseArgs([]string{"extra"})
			So(err, ShouldNotBeNil)
		})

		Convey("When the match count is not positive", func() {
			_, _, err := ParseArgs([]string{"--matches", "0"})
			So(err, ShouldNotBeNil)
		})
	})
}
