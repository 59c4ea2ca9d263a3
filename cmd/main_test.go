package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/clicker/internal/adapters/export"
	"github.com/okian/clicker/internal/adapters/http/client"
	"github.com/okian/clicker/internal/adapters/repository"
	"github.com/okian/clicker/internal/adapters/ws"
	"github.com/okian/clicker/internal/config"
	"github.com/okian/clicker/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigFromEnv(t *testing.T) {
	convey.Convey("Given clicker environment variables", t, func() {
		_ = os.Setenv("CLICKER_ADDR", ":8080")
		_ = os.Setenv("CLICKER_QUEUE_SIZE", "100")
		_ = os.Setenv("CLICKER_STORE_DRIVER", "memory")
		defer func() {
			_ = os.Unsetenv("CLICKER_ADDR")
			_ = os.Unsetenv("CLICKER_QUEUE_SIZE")
			_ = os.Unsetenv("CLICKER_STORE_DRIVER")
		}()

		convey.Convey("Then configuration should be loadable", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 100)
			convey.So(cfg.StoreDriver, convey.ShouldEqual, "memory")
		})
	})
}

func TestOpenStore(t *testing.T) {
	convey.Convey("Given a store driver", t, func() {
		ctx := context.Background()
		cfg := config.New()

		convey.Convey("When it is memory", func() {
			cfg.StoreDriver = "memory"
			s, err := openStore(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			defer s.Close()
			_, ok := s.(*repository.MemoryStore)
			convey.So(ok, convey.ShouldBeTrue)
		})

		convey.Convey("When it is sqlite", func() {
			cfg.StoreDriver = "sqlite"
			cfg.SQLitePath = filepath.Join(t.TempDir(), "db", "scores.db")
			s, err := openStore(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			defer s.Close()
			n, err := s.Count(ctx)
			convey.So(err, convey.ShouldBeNil)
			convey.So(n, convey.ShouldEqual, 0)
		})

		convey.Convey("When it is http", func() {
			cfg.StoreDriver = "http"
			cfg.ScoreServerURL = "http://scores.example"
			s, err := openStore(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			_, ok := s.(*client.Store)
			convey.So(ok, convey.ShouldBeTrue)
		})

		convey.Convey("When it is unknown", func() {
			cfg.StoreDriver = "redis"
			_, err := openStore(ctx, cfg)
			convey.So(errors.Is(err, config.ErrUnknownDriver), convey.ShouldBeTrue)
		})
	})
}

func TestOpenSink(t *testing.T) {
	convey.Convey("Given an export driver", t, func() {
		ctx := context.Background()
		cfg := config.New()

		convey.Convey("When it is dir", func() {
			cfg.ExportDir = t.TempDir()
			s, err := openSink(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			convey.So(s.Kind(), convey.ShouldEqual, "dir")
		})

		convey.Convey("When it is s3 with static credentials", func() {
			cfg.ExportDriver = "s3"
			cfg.S3Bucket = "scores"
			cfg.S3Endpoint = "http://localhost:9000"
			cfg.S3AccessKey = "key"
			cfg.S3SecretKey = "secret"
			s, err := openSink(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			convey.So(s.Kind(), convey.ShouldEqual, "s3")
		})

		convey.Convey("When it is unknown", func() {
			cfg.ExportDriver = "ftp"
			_, err := openSink(ctx, cfg)
			convey.So(errors.Is(err, config.ErrUnknownDriver), convey.ShouldBeTrue)
		})
	})
}

func TestRouter(t *testing.T) {
	convey.Convey("Given the assembled server", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.PrefsPath = filepath.Join(t.TempDir(), "prefs.json")
		log := logger.Nop()

		svc := newService(cfg, repository.NewMemoryStore(ctx), export.NewDirSink(t.TempDir()), log)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()
		srv := httptest.NewServer(newRouter(svc, ws.NewHandler(svc), log))
		defer srv.Close()

		convey.Convey("Then every surface answers", func() {
			for _, path := range []string{"/healthz", "/metrics", "/stats", "/openapi.yaml", "/api-docs", "/", "/app.js"} {
				resp, err := http.Get(srv.URL + path)
				convey.So(err, convey.ShouldBeNil)
				_ = resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("Then unknown scores are not found", func() {
			resp, err := http.Get(srv.URL + "/api/scores/nope")
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusNotFound)
		})

		convey.Convey("Then the metrics updater reads the stats", func() {
			convey.So(func() { updateServiceMetrics(ctx, svc) }, convey.ShouldNotPanic)
		})
	})
}
