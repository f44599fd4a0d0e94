package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a custom registry and options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then metrics are registered under the configured names", func() {
				So(manager, ShouldNotBeNil)
				manager.matchesRated.Inc()

				families, err := registry.Gather()
				So(err, ShouldBeNil)

				found := false
				for _, f := range families {
					if f.GetName() == "test_unit_matches_rated_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "test")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When two managers share a registry", func() {
			registry := prometheus.NewRegistry()
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then the duplicate registration panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording a rated match", func() {
			before := testutil.ToFloat64(globalManager.matchesRated)
			RecordMatchRated([]float64{0.12, 0.12, -0.12, -0.12}, []float64{50.9, 50.9, 50.9, 50.9})

			Convey("Then the counter increments once", func() {
				So(testutil.ToFloat64(globalManager.matchesRated), ShouldEqual, before+1)
			})
		})

		Convey("When recording rejections", func() {
			RecordMatchRejected("invalid_score")
			RecordMatchRejected("invalid_score")

			Convey("Then they are counted per reason", func() {
				So(testutil.ToFloat64(globalManager.matchesRejected.WithLabelValues("invalid_score")), ShouldBeGreaterThanOrEqualTo, 2)
			})
		})

		Convey("When updating gauges", func() {
			UpdateQueueSize(7)
			UpdatePlayersTotal(42)
			UpdateStreamClients(3)

			Convey("Then they hold the last value", func() {
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.playersTotal), ShouldEqual, 42)
				So(testutil.ToFloat64(globalManager.streamClients), ShouldEqual, 3)
			})
		})

		Convey("When calling every recorder", func() {
			Convey("Then none of them panic", func() {
				So(func() {
					RecordMatchReceived()
					RecordMatchDuplicate()
					RecordMatchNoOp()
					RecordRatingLatency(1.5)
					UpdateQueueCapacity(10)
					UpdateQueueUtilization(0.5)
					RecordQueueEnqueue()
					RecordQueueDequeue()
					RecordQueueEnqueueError()
					RecordQueueProcessingLatency(2)
					UpdateWorkerCount(4)
					IncWorkerActive()
					DecWorkerActive()
					RecordWorkerProcessingLatency(3)
					RecordWorkerError()
					UpdateRepositoryRecordsTotal(5)
					RecordRepositoryHistory(4)
					RecordRepositoryUpdateLatency(0.2)
					RecordRepositoryQueryLatency(0.1)
					RecordHTTPRequest("/matches", "POST", "202")
					RecordHTTPRequestDuration("/matches", "POST", "202", 4)
					RecordStreamDropped()
					RecordErrorByComponent("worker", "rate_failed")
				}, ShouldNotPanic)
			})
		})

		Convey("Then the registry gathers without error", func() {
			_, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
		})
	})
}
