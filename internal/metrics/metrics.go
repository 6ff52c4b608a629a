// Package metrics registers the Prometheus collectors for the server and
// serves them on a side HTTP listener.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Event plane metrics
	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sn_events_published_total",
		Help: "Bus events published, by subject",
	}, []string{"subject"})

	publishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sn_publish_failures_total",
		Help: "Bus publish failures, by subject",
	}, []string{"subject"})

	eventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sn_events_received_total",
		Help: "Bus events received by subscribers, by subject",
	}, []string{"subject"})

	decodeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sn_decode_failures_total",
		Help: "Bus payloads that failed to decode, by subject",
	}, []string{"subject"})

	// Timeline metrics
	activeTimelines = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sn_timelines_active",
		Help: "Timeline streams currently open, by kind",
	}, []string{"kind"})

	// Task manager metrics
	taskQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sn_task_queue_depth",
		Help: "Tasks queued and not yet started",
	})

	tasksCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sn_tasks_completed_total",
		Help: "Tasks run to completion, by outcome",
	}, []string{"outcome"})

	// RPC metrics
	rpcRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sn_rpc_requests_total",
		Help: "RPC calls handled, by method and status code",
	}, []string{"method", "code"})

	rpcDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sn_rpc_duration_seconds",
		Help:    "Unary RPC handling duration",
		Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
	}, []string{"method"})
)

// Timeline stream kinds.
const (
	TimelineHistorical = "historical"
	TimelineRealTime   = "realtime"
)

// Task outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
	OutcomePanic = "panic"
)

func RecordPublish(subject string)        { eventsPublished.WithLabelValues(subject).Inc() }
func RecordPublishFailure(subject string) { publishFailures.WithLabelValues(subject).Inc() }
func RecordReceive(subject string)        { eventsReceived.WithLabelValues(subject).Inc() }
func RecordDecodeFailure(subject string)  { decodeFailures.WithLabelValues(subject).Inc() }

func TimelineOpened(kind string) { activeTimelines.WithLabelValues(kind).Inc() }
func TimelineClosed(kind string) { activeTimelines.WithLabelValues(kind).Dec() }

func TaskQueued()   { taskQueueDepth.Inc() }
func TaskDequeued() { taskQueueDepth.Dec() }

func RecordTask(outcome string) { tasksCompleted.WithLabelValues(outcome).Inc() }

func RecordRPC(method, code string, elapsed time.Duration) {
	rpcRequests.WithLabelValues(method, code).Inc()
	rpcDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// Handler returns the /metrics scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
