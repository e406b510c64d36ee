package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	app "github.com/okian/topicsink/internal/app"
	"github.com/okian/topicsink/internal/config"
	"github.com/okian/topicsink/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When testing system metrics updater", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() {
				startSystemMetricsUpdater(ctx)
			}, convey.ShouldNotPanic)
		})

		convey.Convey("When testing system metrics update", func() {
			convey.So(func() {
				updateSystemMetrics()
			}, convey.ShouldNotPanic)
		})

		convey.Convey("When building the HTTP server", func() {
			svc := app.New()
			srv := newHTTPServer(context.Background(), ":0", svc)

			convey.Convey("Then the ops routes should be wired", func() {
				for _, path := range []string{"/healthz", "/metrics", "/readyz", "/stats"} {
					w := httptest.NewRecorder()
					srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
					convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				}
				convey.So(srv.ReadHeaderTimeout, convey.ShouldEqual, readHeaderTimeout)
			})
		})
	})
}

func TestSetupLogging(t *testing.T) {
	convey.Convey("Given a loaded config", t, func() {
		cfg := config.New()

		convey.Convey("When the format is unknown", func() {
			cfg.LogFormat = "xml"

			convey.Convey("Then setup should fail", func() {
				convey.So(setupLogging(cfg), convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the level is invalid", func() {
			cfg.LogLevel = "loud"

			convey.Convey("Then setup should fall back to info", func() {
				convey.So(setupLogging(cfg), convey.ShouldBeNil)
			})
		})
	})
}

func TestRunWithoutStore(t *testing.T) {
	convey.Convey("Given a config without a store URI", t, func() {
		var buf bytes.Buffer
		convey.So(logger.InitWithFormat(logger.FormatJSON, &buf), convey.ShouldBeNil)
		defer func() { _ = logger.Init() }()

		cfg := config.New()
		cfg.Addr = "127.0.0.1:0"

		convey.Convey("When running until the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
			defer cancel()
			err := run(ctx, cfg)

			convey.Convey("Then it should stay up with the sink inactive and exit cleanly", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(buf.String(), convey.ShouldContainSubstring, config.ErrConfigurationMissing.Error())
				convey.So(buf.String(), convey.ShouldContainSubstring, "sink inactive")
			})
		})
	})
}
