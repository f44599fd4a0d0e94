package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/pmr/internal/config"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldResemble, config.New(ctx))
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("PMR_ADDR", ":8080")
			_ = os.Setenv("PMR_QUEUE_SIZE", "1000")
			_ = os.Setenv("PMR_WORKER_COUNT", "16")
			_ = os.Setenv("PMR_LOG_FORMAT", "json")
			_ = os.Setenv("PMR_INITIAL_PMR", "4.25")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.InitialPMR, convey.ShouldEqual, 4.25)
			})
		})

		convey.Convey("When a rating parameter is set through a nested env key", func() {
			_ = os.Setenv("PMR_RATING__K", "0.4")
			_ = os.Setenv("PMR_RATING__ELO_SCALE", "2")

			cfg, err := config.Load(ctx)

			convey.Convey("Then only those parameters change", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Params().K, convey.ShouldEqual, 0.4)
				convey.So(cfg.Params().EloScale, convey.ShouldEqual, 2)
				convey.So(cfg.Rating.MarginMin, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			path := writeTempFile("config.yaml", `
# comment
addr: ":9090"
queue_size: 300000
worker_count: 24
store: postgres
database_url: postgres://pmr@localhost/pmr
rating:
  k: 0.3
  v_max: 2.5
`)
			_ = os.Setenv("PMR_CONFIG", path)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 300000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 24)
				convey.So(cfg.Store, convey.ShouldEqual, config.StorePostgres)
				convey.So(cfg.DatabaseURL, convey.ShouldEqual, "postgres://pmr@localhost/pmr")
				convey.So(cfg.Params().K, convey.ShouldEqual, 0.3)
				convey.So(cfg.Params().VMax, convey.ShouldEqual, 2.5)
			})

			convey.Convey("And defaults fill the missing fields", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 500_000)
				convey.So(cfg.HistorySize, convey.ShouldEqual, 50)
			})

			convey.Convey("And env vars override the file", func() {
				_ = os.Setenv("PMR_ADDR", ":7070")
				_ = os.Setenv("PMR_RATING__K", "0.5")

				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 300000)
				convey.So(cfg.Params().K, convey.ShouldEqual, 0.5)
				convey.So(cfg.Params().VMax, convey.ShouldEqual, 2.5)
			})
		})

		convey.Convey("When a dotenv file is named", func() {
			path := writeTempFile("pmr.env", "PMR_ADDR=:6060\nPMR_HISTORY_SIZE=7\nOTHER_SETTING=ignored\n")
			_ = os.Setenv("PMR_ENV_FILE", path)

			cfg, err := config.Load(ctx)

			convey.Convey("Then its PMR_ variables are applied", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":6060")
				convey.So(cfg.HistorySize, convey.ShouldEqual, 7)
			})

			convey.Convey("And the process environment is left alone", func() {
				_, set := os.LookupEnv("PMR_HISTORY_SIZE")
				convey.So(set, convey.ShouldBeFalse)
			})

			convey.Convey("And real env vars still win", func() {
				_ = os.Setenv("PMR_ADDR", ":5050")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":5050")
				convey.So(cfg.HistorySize, convey.ShouldEqual, 7)
			})
		})

		convey.Convey("When the named dotenv file does not exist", func() {
			_ = os.Setenv("PMR_ENV_FILE", "/non/existent/pmr.env")
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			_ = os.Setenv("PMR_CONFIG", writeTempFile("bad.yaml", `invalid: yaml: content: [`))
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("PMR_CONFIG", "/non/existent/file.yaml")
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("PMR_ADDR", "")
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the rating overrides are invalid", func() {
			_ = os.Setenv("PMR_RATING__PMR_MIN", "9")
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"PMR_CONFIG",
		"PMR_ENV_FILE",
		"PMR_ADDR",
		"PMR_QUEUE_SIZE",
		"PMR_WORKER_COUNT",
		"PMR_LOG_FORMAT",
		"PMR_INITIAL_PMR",
		"PMR_HISTORY_SIZE",
		"PMR_RATING__K",
		"PMR_RATING__ELO_SCALE",
		"PMR_RATING__PMR_MIN",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func writeTempFile(name, content string) string {
	dir, err := os.MkdirTemp("", "pmr-config-*")
	if err != nil {
		panic(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		panic(err)
	}
	return path
}
