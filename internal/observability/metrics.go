package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	activeConnections prometheus.Gauge
	activeRooms       prometheus.Gauge
	roomMembers       *prometheus.GaugeVec

	eventsRelayedTotal     *prometheus.CounterVec
	broadcastFailuresTotal prometheus.Counter

	bootstrapReadDuration prometheus.Histogram
	storeErrorsTotal      *prometheus.CounterVec

	httpRequestsTotal *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			activeConnections: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "active_connections",
					Help: "Current live websocket connection count.",
				},
			),
			activeRooms: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "active_rooms",
					Help: "Current non-empty room count.",
				},
			),
			roomMembers: prometheus.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "room_members",
					Help: "Current member count by project room.",
				},
				[]string{"project"},
			),
			eventsRelayedTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "events_relayed_total",
					Help: "Total session events relayed by event name.",
				},
				[]string{"event"},
			),
			broadcastFailuresTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "broadcast_failures_total",
					Help: "Total failed per-connection broadcast writes.",
				},
			),
			bootstrapReadDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "bootstrap_read_duration_seconds",
					Help:    "Join-time project store read duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			storeErrorsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "store_errors_total",
					Help: "Total store failures by operation.",
				},
				[]string{"op"},
			),
			httpRequestsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total HTTP requests by route and status class.",
				},
				[]string{"route", "status"},
			),
		}

		prometheus.MustRegister(
			m.activeConnections,
			m.activeRooms,
			m.roomMembers,
			m.eventsRelayedTotal,
			m.broadcastFailuresTotal,
			m.bootstrapReadDuration,
			m.storeErrorsTotal,
			m.httpRequestsTotal,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func SetActiveConnections(count int) {
	getMetrics().activeConnections.Set(float64(count))
}

func SetActiveRooms(count int) {
	getMetrics().activeRooms.Set(float64(count))
}

func SetRoomMembers(projectID string, count int) {
	m := getMetrics()
	if count <= 0 {
		m.roomMembers.DeleteLabelValues(projectID)
		return
	}
	m.roomMembers.WithLabelValues(projectID).Set(float64(count))
}

func RecordEventRelayed(event string) {
	getMetrics().eventsRelayedTotal.WithLabelValues(event).Inc()
}

func RecordBroadcastFailure() {
	getMetrics().broadcastFailuresTotal.Inc()
}

func RecordBootstrapRead(duration time.Duration) {
	getMetrics().bootstrapReadDuration.Observe(duration.Seconds())
}

func RecordStoreError(op string) {
	getMetrics().storeErrorsTotal.WithLabelValues(op).Inc()
}

func RecordHTTPRequest(route string, statusClass string) {
	getMetrics().httpRequestsTotal.WithLabelValues(route, statusClass).Inc()
}
