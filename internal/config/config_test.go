package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/peerfeedback/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Store, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.DuplicatePolicy, convey.ShouldEqual, config.DuplicateReject)
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.ReportRefresh(), convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.SheetsTimeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.MetricsEnabled, convey.ShouldBeTrue)
			convey.So(cfg.MetricsRefresh(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a valid default config", t, func() {
		ctx := context.Background()

		cases := []struct {
			name   string
			mutate func(*config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = "" }},
			{"unknown log format", func(c *config.Config) { c.LogFormat = "xml" }},
			{"unknown duplicate policy", func(c *config.Config) { c.DuplicatePolicy = "merge" }},
			{"negative submit rate", func(c *config.Config) { c.SubmitRatePerSec = -1 }},
			{"zero submit burst", func(c *config.Config) { c.SubmitBurst = 0 }},
			{"zero report refresh", func(c *config.Config) { c.ReportRefreshMS = 0 }},
			{"zero report targets", func(c *config.Config) { c.MaxReportTargets = 0 }},
			{"empty metrics namespace", func(c *config.Config) { c.MetricsNamespace = "" }},
			{"zero metrics refresh", func(c *config.Config) { c.MetricsRefreshMS = 0 }},
			{"unknown store", func(c *config.Config) { c.Store = "redis" }},
			{"postgres without dsn", func(c *config.Config) { c.Store = config.StorePostgres }},
			{"sheets without url", func(c *config.Config) { c.Store = config.StoreSheets }},
			{"sheets without timeout", func(c *config.Config) {
				c.Store = config.StoreSheets
				c.SheetsURL = "https://script.example.com/exec"
				c.SheetsTimeoutMS = 0
			}},
		}

		for _, tc := range cases {
			convey.Convey("When it has "+tc.name, func() {
				cfg := config.New(ctx)
				tc.mutate(cfg)

				convey.Convey("Then validation fails with ErrInvalidConfig", func() {
					err := cfg.Validate()
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				})
			})
		}

		convey.Convey("When the selected backend is fully configured", func() {
			pg := config.New(ctx)
			pg.Store = config.StorePostgres
			pg.PostgresDSN = "postgres://localhost/peerfeedback"

			sh := config.New(ctx)
			sh.Store = config.StoreSheets
			sh.SheetsURL = "https://script.example.com/exec"

			convey.So(pg.Validate(), convey.ShouldBeNil)
			convey.So(sh.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When throttling is switched off with a zero rate", func() {
			cfg := config.New(ctx)
			cfg.SubmitRatePerSec = 0
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
