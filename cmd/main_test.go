package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/peerfeedback/internal/adapters/repository"
	app "github.com/okian/peerfeedback/internal/app"
	"github.com/okian/peerfeedback/internal/config"
	"github.com/okian/peerfeedback/internal/domain/rating"
	"github.com/okian/peerfeedback/pkg/logger"
	"github.com/okian/peerfeedback/pkg/metrics"
)

const seedYAML = `
users:
  - {id: "001", username: admin, name: Administrator, role: Admin}
  - {id: "002", username: pegawai1, name: Budi Santoso, role: User, position: Staff}
  - {id: "003", username: pegawai2, name: Siti Aminah, role: User, position: Staff}
`

func writeSeed(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "users.yaml")
	if err := os.WriteFile(path, []byte(seedYAML), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	seed := writeSeed(t)

	convey.Convey("Given a memory configuration with a seed file", t, func() {
		cfg := config.New(ctx)
		cfg.SeedFile = seed

		st, err := openStore(ctx, cfg, logger.Discard())

		convey.Convey("Then the store holds the seeded users", func() {
			convey.So(err, convey.ShouldBeNil)
			users, assessments := st.Count(ctx)
			convey.So(users, convey.ShouldEqual, 3)
			convey.So(assessments, convey.ShouldEqual, 0)
			convey.So(st.Close(), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given an unknown duplicate policy", t, func() {
		cfg := config.New(ctx)
		cfg.DuplicatePolicy = "overwrite"

		_, err := openStore(ctx, cfg, logger.Discard())
		convey.So(errors.Is(err, repository.ErrUnknownPolicy), convey.ShouldBeTrue)
	})

	convey.Convey("Given a missing seed file", t, func() {
		cfg := config.New(ctx)
		cfg.SeedFile = filepath.Join(t.TempDir(), "nope.yaml")

		_, err := openStore(ctx, cfg, logger.Discard())
		convey.So(err, convey.ShouldNotBeNil)
	})

	convey.Convey("Given a sheets configuration", t, func() {
		cfg := config.New(ctx)
		cfg.Store = config.StoreSheets
		cfg.SheetsURL = "https://script.example.com/exec"

		st, err := openStore(ctx, cfg, logger.Discard())

		convey.Convey("Then a client is built without contacting the endpoint", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(st, convey.ShouldNotBeNil)
			convey.So(st.Close(), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given an unknown store kind", t, func() {
		cfg := config.New(ctx)
		cfg.Store = "redis"

		_, err := openStore(ctx, cfg, logger.Discard())
		convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
	})
}

func TestNewMux(t *testing.T) {
	convey.Convey("Given a running service behind the mux", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		cfg.SeedFile = writeSeed(t)

		st, err := openStore(ctx, cfg, logger.Discard())
		convey.So(err, convey.ShouldBeNil)

		svc := app.New(app.WithStore(st), app.WithLogger(logger.Discard()))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		convey.Reset(svc.Stop)

		mux := newMux(ctx, svc, cfg)

		convey.Convey("When an employee submits an assessment", func() {
			body := fmt.Sprintf(`{"target_id":"003","ratings":%s}`, ratingsJSON(4))
			req := httptest.NewRequest(http.MethodPost, "/assessments", strings.NewReader(body))
			req.Header.Set("X-User-ID", "002")
			req.Header.Set("X-User-Role", "User")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			convey.Convey("Then it is stored and visible in the admin report", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusCreated)

				req := httptest.NewRequest(http.MethodGet, "/report", http.NoBody)
				req.Header.Set("X-User-ID", "001")
				req.Header.Set("X-User-Role", "Admin")
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)

				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Body.String(), convey.ShouldContainSubstring, `"rated":1`)
			})
		})

		convey.Convey("When the administrator tries to rate an employee", func() {
			body := fmt.Sprintf(`{"target_id":"002","ratings":%s}`, ratingsJSON(1))
			req := httptest.NewRequest(http.MethodPost, "/assessments", strings.NewReader(body))
			req.Header.Set("X-User-ID", "001")
			req.Header.Set("X-User-Role", "Admin")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			convey.Convey("Then it is forbidden and the administrator has no roster", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusForbidden)
				_, assessments := st.Count(ctx)
				convey.So(assessments, convey.ShouldEqual, 0)

				req := httptest.NewRequest(http.MethodGet, "/roster", http.NoBody)
				req.Header.Set("X-User-ID", "001")
				req.Header.Set("X-User-Role", "Admin")
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)

				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Body.String(), convey.ShouldContainSubstring, `"targets":[]`)
			})
		})

		convey.Convey("When the docs are requested", func() {
			for _, path := range []string{"/api-docs", "/openapi.yaml", "/healthz"} {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}
		})
	})
}

func TestMetricsOptions(t *testing.T) {
	convey.Convey("Given a config with metrics switched off", t, func() {
		cfg := config.New(context.Background())
		cfg.MetricsEnabled = false
		cfg.MetricsNamespace = "pfb"
		cfg.MetricsRefreshMS = 2500

		m := metrics.NewManager(append(metricsOptions(cfg), metrics.WithPrometheusRegistry(prometheus.NewRegistry()))...)

		convey.Convey("Then the manager follows it", func() {
			convey.So(m.Enabled(), convey.ShouldBeFalse)
			convey.So(m.RefreshInterval(), convey.ShouldEqual, 2500*time.Millisecond)
		})
	})
}

func TestUpdateSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.So(updateSystemMetrics, convey.ShouldNotPanic)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			startSystemMetricsUpdater(ctx, 1)
			close(done)
		}()
		cancel()
		<-done
	})
}

func ratingsJSON(score int) string {
	parts := make([]string, 0, rating.Count)
	for k, v := range rating.Uniform(score).Map() {
		parts = append(parts, fmt.Sprintf("%q:%d", k, v))
	}
	return "{" + strings.Join(parts, ",") + "}"
}
