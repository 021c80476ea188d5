package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	app "github.com/okian/covcall/internal/app"
	"github.com/okian/covcall/internal/config"
	"github.com/okian/covcall/internal/domain/pricing"
	"github.com/okian/covcall/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

const fixture = "../internal/adapters/marketdata/testdata/demo.json"

func TestNewServer(t *testing.T) {
	convey.Convey("Given a config backed by the demo fixture", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.FixturePath = fixture
		cfg.Addr = ":0"

		srv, svc, err := newServer(ctx, cfg, logger.Nop())
		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		serve := func(method, path, body string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(method, path, strings.NewReader(body))
			w := httptest.NewRecorder()
			srv.Handler.ServeHTTP(w, req)
			return w
		}

		convey.Convey("Then the server carries the configured address and timeouts", func() {
			convey.So(srv.Addr, convey.ShouldEqual, ":0")
			convey.So(srv.WriteTimeout, convey.ShouldEqual, writeTimeout)
			convey.So(srv.ReadHeaderTimeout, convey.ShouldEqual, readHeaderTimeout)
		})

		convey.Convey("Then API, docs and ops routes are registered", func() {
			convey.So(serve(http.MethodGet, "/healthz", "").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(serve(http.MethodGet, "/metrics", "").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(serve(http.MethodGet, "/stats", "").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(serve(http.MethodGet, "/api-docs", "").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(serve(http.MethodGet, "/openapi.yaml", "").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(serve(http.MethodGet, "/symbols", "").Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then screening reads the fixture", func() {
			// The fixture's expirations are in the past, so nothing qualifies.
			w := serve(http.MethodPost, "/screen", `{"symbols":["AAPL"]}`)
			convey.So(w.Code, convey.ShouldEqual, http.StatusUnprocessableEntity)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `"api_calls":1`)

			bad := serve(http.MethodPost, "/screen", `{"symbols":["BAD"]}`)
			convey.So(bad.Code, convey.ShouldEqual, http.StatusBadGateway)
			convey.So(bad.Body.String(), convey.ShouldContainSubstring, "symbol not found")
		})
	})

	convey.Convey("Given an invalid config", t, func() {
		cfg := config.New()
		cfg.MinDTE, cfg.MaxDTE = 10, 1

		_, _, err := newServer(context.Background(), cfg, logger.Nop())
		convey.So(err, convey.ShouldNotBeNil)
	})

	convey.Convey("Given a missing fixture", t, func() {
		cfg := config.New()
		cfg.FixturePath = "does-not-exist.json"

		_, _, err := newServer(context.Background(), cfg, logger.Nop())
		convey.So(err, convey.ShouldNotBeNil)
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the metrics updaters", t, func() {
		src, err := app.NewSource(&config.Config{FixturePath: fixture}, logger.Nop())
		convey.So(err, convey.ShouldBeNil)
		svc := app.New(src, app.WithBasis(pricing.Mid()))

		convey.Convey("Then single updates do not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
		})

		convey.Convey("Then the loops stop with their context", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx)
				startServiceMetricsUpdater(ctx, svc)
				close(done)
			}()

			finished := false
			select {
			case <-done:
				finished = true
			case <-time.After(2 * time.Second):
			}
			convey.So(finished, convey.ShouldBeTrue)
		})
	})
}
