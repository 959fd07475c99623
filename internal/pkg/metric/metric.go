/*
Package metric exposes the server's Prometheus metrics.

Collectors are registered on the default registry at init and served by Handler.
*/
package metric

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bookchat"

// Reasons used with the dropped events counter.
const (
	DropMalformed     = "malformed"
	DropUnknownEvent  = "unknown_event"
	DropInvalid       = "invalid"
	DropTooLong       = "too_long"
	DropUnknownConn   = "unknown_connection"
	DropSlowConsumer  = "slow_consumer"
	DropPersistQueue  = "persist_queue_full"
	PersistResultOK   = "ok"
	PersistResultFail = "error"
)

var (
	wsActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ws_active_connections",
		Help:      "Number of live websocket connections.",
	})

	activeRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "rooms_active",
		Help:      "Number of rooms with at least one member.",
	})

	broadcastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcasts_total",
		Help:      "Events broadcast to rooms, by event name.",
	}, []string{"event"})

	deliveriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deliveries_total",
		Help:      "Frames queued to individual connections.",
	})

	droppedEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dropped_events_total",
		Help:      "Inbound or outbound events dropped, by reason.",
	}, []string{"reason"})

	persistTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "persist_total",
		Help:      "Message store writes, by result.",
	}, []string{"result"})

	persistDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "persist_duration_seconds",
		Help:      "Message store write latency.",
		Buckets:   prometheus.DefBuckets,
	})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests, by method, route and status.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency, by method, route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

func IncrementWSActiveConnections() { wsActiveConnections.Inc() }

func DecrementWSActiveConnections() { wsActiveConnections.Dec() }

// SetActiveRooms records the current number of non-empty rooms.
func SetActiveRooms(count int) {
	activeRooms.Set(float64(count))
}

// RecordBroadcast counts one broadcast of event reaching recipients connections.
func RecordBroadcast(event string, recipients int) {
	broadcastsTotal.WithLabelValues(event).Inc()
	deliveriesTotal.Add(float64(recipients))
}

// RecordDropped counts one dropped event.
func RecordDropped(reason string) {
	droppedEventsTotal.WithLabelValues(reason).Inc()
}

// RecordPersist counts one store write and its latency.
func RecordPersist(err error, took time.Duration) {
	result := PersistResultOK
	if err != nil {
		result = PersistResultFail
	}
	persistTotal.WithLabelValues(result).Inc()
	persistDuration.Observe(took.Seconds())
}

// RecordHTTP counts one HTTP request.
func RecordHTTP(method, route string, status int, took time.Duration) {
	strStatus := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, strStatus).Inc()
	httpRequestDuration.WithLabelValues(method, route, strStatus).Observe(took.Seconds())
}
