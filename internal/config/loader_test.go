package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/peerfeedback/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldResemble, config.New(ctx))
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("PEERFB_ADDR", ":8080")
			_ = os.Setenv("PEERFB_DUPLICATE_POLICY", "update")
			_ = os.Setenv("PEERFB_SUBMIT_RATE_PER_SEC", "2.5")
			_ = os.Setenv("PEERFB_SUBMIT_BURST", "4")
			_ = os.Setenv("PEERFB_REPORT_REFRESH_MS", "1500")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.DuplicatePolicy, convey.ShouldEqual, config.DuplicateUpdate)
				convey.So(cfg.SubmitRatePerSec, convey.ShouldEqual, 2.5)
				convey.So(cfg.SubmitBurst, convey.ShouldEqual, 4)
				convey.So(cfg.ReportRefreshMS, convey.ShouldEqual, 1500)
			})
		})

		convey.Convey("When env vars switch off throttling and metrics", func() {
			_ = os.Setenv("PEERFB_SUBMIT_RATE_PER_SEC", "0")
			_ = os.Setenv("PEERFB_METRICS_ENABLED", "false")
			_ = os.Setenv("PEERFB_METRICS_NAMESPACE", "pfb")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then the config is valid and carries both", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.SubmitRatePerSec, convey.ShouldEqual, 0)
				convey.So(cfg.MetricsEnabled, convey.ShouldBeFalse)
				convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "pfb")
				convey.So(cfg.MetricsSubsystem, convey.ShouldEqual, "core")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
log_format: json
store: sheets
sheets_url: "https://script.example.com/exec"
sheets_timeout_ms: 2500
max_report_targets: 200
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("PEERFB_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.Store, convey.ShouldEqual, config.StoreSheets)
				convey.So(cfg.SheetsURL, convey.ShouldEqual, "https://script.example.com/exec")
				convey.So(cfg.SheetsTimeoutMS, convey.ShouldEqual, 2500)
				convey.So(cfg.MaxReportTargets, convey.ShouldEqual, 200)
				convey.So(cfg.DuplicatePolicy, convey.ShouldEqual, config.DuplicateReject)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
store: postgres
postgres_dsn: "postgres://file/db"
submit_burst: 7
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("PEERFB_CONFIG", tmpFile)
			_ = os.Setenv("PEERFB_ADDR", ":8080")
			_ = os.Setenv("PEERFB_POSTGRES_DSN", "postgres://env/db")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.PostgresDSN, convey.ShouldEqual, "postgres://env/db")
				convey.So(cfg.Store, convey.ShouldEqual, config.StorePostgres)
				convey.So(cfg.SubmitBurst, convey.ShouldEqual, 7)
			})
		})

		convey.Convey("When the config file does not exist", func() {
			_ = os.Setenv("PEERFB_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then it should fail with ErrLoadConfig", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the config file is not valid YAML", func() {
			tmpFile := createTempConfigFile("addr: [unterminated\n")
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("PEERFB_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When an env var does not parse as a number", func() {
			_ = os.Setenv("PEERFB_SUBMIT_BURST", "lots")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When the selected store is missing its endpoint", func() {
			_ = os.Setenv("PEERFB_STORE", "sheets")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then it should fail with ErrInvalidConfig", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the sheets store is asked to replace duplicates", func() {
			_ = os.Setenv("PEERFB_STORE", "sheets")
			_ = os.Setenv("PEERFB_SHEETS_URL", "https://script.example.com/exec")
			_ = os.Setenv("PEERFB_DUPLICATE_POLICY", "update")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func clearConfigEnvVars() {
	envVars := []string{
		"PEERFB_CONFIG",
		"PEERFB_LOG_LEVEL",
		"PEERFB_LOG_FORMAT",
		"PEERFB_ADDR",
		"PEERFB_STORE",
		"PEERFB_SEED_FILE",
		"PEERFB_POSTGRES_DSN",
		"PEERFB_SHEETS_URL",
		"PEERFB_SHEETS_TIMEOUT_MS",
		"PEERFB_DUPLICATE_POLICY",
		"PEERFB_SUBMIT_RATE_PER_SEC",
		"PEERFB_SUBMIT_BURST",
		"PEERFB_REPORT_REFRESH_MS",
		"PEERFB_MAX_REPORT_TARGETS",
		"PEERFB_METRICS_ENABLED",
		"PEERFB_METRICS_NAMESPACE",
		"PEERFB_METRICS_SUBSYSTEM",
		"PEERFB_METRICS_REFRESH_MS",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "peerfb_config_*.yaml")
	if err != nil {
		panic(err)
	}
	defer func() { _ = tmpFile.Close() }()

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
