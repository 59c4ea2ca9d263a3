package config_test

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/clicker/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.AppName, convey.ShouldEqual, "44clicker")
			convey.So(cfg.StoreDriver, convey.ShouldEqual, "sqlite")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
			convey.So(cfg.PublishedCacheSize, convey.ShouldEqual, 10000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.ReplayInterval(), convey.ShouldEqual, 10*time.Millisecond)
			convey.So(cfg.JitterThreshold, convey.ShouldEqual, 0.05)
			convey.So(cfg.PreRollSeconds, convey.ShouldEqual, 5)
			convey.So(cfg.KeyPositive, convey.ShouldEqual, "1")
			convey.So(cfg.KeyNegative, convey.ShouldEqual, "0")
			convey.So(cfg.JudgeNameLimit, convey.ShouldEqual, 30)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		convey.Convey("When the key bindings collide", func() {
			cfg.KeyNegative = cfg.KeyPositive

			convey.Convey("Then validation fails", func() {
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "key bindings")
			})
		})

		convey.Convey("When a binding is longer than one character", func() {
			cfg.KeyPositive = "ab"

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When postgres is selected without a DSN", func() {
			cfg.StoreDriver = "postgres"

			convey.Convey("Then validation fails", func() {
				convey.So(cfg.Validate().Error(), convey.ShouldContainSubstring, "postgres_dsn")
			})
		})

		convey.Convey("When the http store is selected without a server url", func() {
			cfg.StoreDriver = "http"

			convey.Convey("Then validation fails", func() {
				convey.So(cfg.Validate().Error(), convey.ShouldContainSubstring, "score_server_url")
			})
		})

		convey.Convey("When websocket origins are listed", func() {
			cfg.WSOrigins = " example.com, *.judge.tv ,"

			convey.Convey("Then they are split and trimmed", func() {
				convey.So(cfg.OriginPatterns(), convey.ShouldResemble, []string{"example.com", "*.judge.tv"})
			})
		})

		convey.Convey("When an unknown store driver is selected", func() {
			cfg.StoreDriver = "redis"

			convey.Convey("Then validation fails", func() {
				convey.So(cfg.Validate().Error(), convey.ShouldContainSubstring, "unknown store_driver")
				convey.So(errors.Is(cfg.Validate(), config.ErrUnknownDriver), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When s3 export is selected without a bucket", func() {
			cfg.ExportDriver = "s3"

			convey.Convey("Then validation fails", func() {
				convey.So(cfg.Validate().Error(), convey.ShouldContainSubstring, "s3_bucket")
			})
		})

		convey.Convey("When the replay interval is zero", func() {
			cfg.ReplayIntervalMS = 0

			convey.Convey("Then validation fails", func() {
				convey.So(cfg.Validate().Error(), convey.ShouldContainSubstring, "replay_interval_ms")
			})
		})
	})
}
