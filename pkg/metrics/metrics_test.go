package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	. "github.com/smartystreets/goconvey/convey"
)

// find returns the gathered family with the given full name, or nil.
func find(families []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

func TestMetricsOptions(t *testing.T) {
	Convey("Given a manager built with custom options", t, func() {
		registry := prometheus.NewRegistry()
		manager := NewManager(
			WithNamespace("test"),
			WithSubsystem("unit"),
			WithMetricsEnabled(false),
			WithRefreshInterval(5*time.Second),
			WithPrometheusRegistry(registry),
		)

		Convey("Then the options are applied", func() {
			So(manager.RefreshInterval(), ShouldEqual, 5*time.Second)
			So(manager.Enabled(), ShouldBeFalse)
		})

		Convey("When a counter is incremented directly", func() {
			manager.assessmentsSubmitted.Inc()
			families, err := registry.Gather()
			So(err, ShouldBeNil)

			Convey("Then its name carries namespace and subsystem", func() {
				f := find(families, "test_unit_assessments_submitted_total")
				So(f, ShouldNotBeNil)
				So(f.GetMetric()[0].GetCounter().GetValue(), ShouldEqual, 1)
			})
		})
	})

	Convey("Given empty or invalid option values", t, func() {
		registry := prometheus.NewRegistry()
		manager := NewManager(
			WithNamespace(""),
			WithSubsystem(""),
			WithRefreshInterval(-1*time.Second),
			WithPrometheusRegistry(registry),
		)

		Convey("Then defaults are kept", func() {
			So(manager.namespace, ShouldEqual, "peerfeedback")
			So(manager.subsystem, ShouldEqual, "core")
			So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			So(manager.Enabled(), ShouldBeTrue)
		})
	})
}

func TestMetricsInit(t *testing.T) {
	Convey("Given the global manager rebuilt with recording disabled", t, func() {
		Init(WithNamespace("pf"), WithSubsystem("test"), WithMetricsEnabled(false), WithRefreshInterval(time.Second))
		Reset(func() { Init() })

		RecordAssessmentSubmitted()
		UpdateTotals(7, 9)

		Convey("Then collectors are registered under the new names but stay at zero", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)

			f := find(families, "pf_test_assessments_submitted_total")
			So(f, ShouldNotBeNil)
			So(f.GetMetric()[0].GetCounter().GetValue(), ShouldEqual, 0)

			g := find(families, "pf_test_users")
			So(g, ShouldNotBeNil)
			So(g.GetMetric()[0].GetGauge().GetValue(), ShouldEqual, 0)

			So(find(families, "peerfeedback_core_assessments_submitted_total"), ShouldBeNil)
			So(SystemRefreshInterval(), ShouldEqual, time.Second)
		})
	})

	Convey("Given the global manager rebuilt with recording enabled", t, func() {
		Init(WithNamespace("pf"), WithSubsystem("test"))
		Reset(func() { Init() })

		RecordAssessmentSubmitted()

		Convey("Then the counter moves", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			f := find(families, "pf_test_assessments_submitted_total")
			So(f, ShouldNotBeNil)
			So(f.GetMetric()[0].GetCounter().GetValue(), ShouldEqual, 1)
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording business metrics", func() {
			So(func() {
				RecordAssessmentSubmitted()
				RecordAssessmentUpdated()
				RecordAssessmentDuplicate()
				RecordAssessmentRejected("invalid_rating")
				RecordSubmissionThrottled()
				RecordSummaryLatency(1.5)
				RecordProgressQuery()
				RecordLoginAttempt("success")
				RecordReportRefresh(12, 40)
				UpdateTotals(41, 300)
			}, ShouldNotPanic)

			Convey("Then the report gauge reflects the last refresh", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				f := find(families, "peerfeedback_core_report_targets")
				So(f, ShouldNotBeNil)
				So(f.GetMetric()[0].GetGauge().GetValue(), ShouldEqual, 40)
			})
		})

		Convey("When recording HTTP, repository and error metrics", func() {
			So(func() {
				RecordHTTPRequest("/assessments", "POST", "201")
				RecordHTTPRequestDuration("/assessments", "POST", "201", 3)
				RecordRepositoryInsertLatency("memory", 0.2)
				RecordRepositoryQueryLatency("memory", "list_assessments", 0.1)
				RecordErrorByComponent("repository", "not_found")
				RecordErrorByType("validation", "warning")
				RecordErrorByEndpoint("/assessments", "POST", "duplicate")
			}, ShouldNotPanic)
		})

		Convey("When recording system metrics", func() {
			So(func() {
				UpdateSystemMemoryUsage(1024 * 1024)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
		})

		Convey("When labels are empty strings", func() {
			So(func() {
				RecordHTTPRequest("", "", "200")
				RecordErrorByComponent("", "")
				RecordAssessmentRejected("")
			}, ShouldNotPanic)
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		done := make(chan struct{}, 10)
		for i := 0; i < 10; i++ {
			go func() {
				for j := 0; j < 100; j++ {
					RecordAssessmentSubmitted()
					RecordSummaryLatency(float64(j))
					RecordHTTPRequest("/progress", "GET", "200")
					UpdateTotals(j, j*3)
				}
				done <- struct{}{}
			}()
		}
		for i := 0; i < 10; i++ {
			<-done
		}

		Convey("Then the registry still gathers cleanly", func() {
			_, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
		})
	})
}
