package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the server
type Metrics struct {
	// Session metrics
	activeSessions       prometheus.Gauge
	sessionsCreated      prometheus.Counter
	sessionsDisconnected prometheus.Counter

	// Room metrics
	rooms prometheus.Gauge

	// Event metrics
	eventsReceived *prometheus.CounterVec // by event name

	// Broadcast metrics
	broadcastFanout   prometheus.Histogram
	messagesDelivered prometheus.Counter
	framesDropped     prometheus.Counter
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		activeSessions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "relaychat_active_sessions",
				Help: "Current number of active sessions",
			},
		),
		sessionsCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "relaychat_sessions_created_total",
				Help: "Total number of sessions created",
			},
		),
		sessionsDisconnected: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "relaychat_sessions_disconnected_total",
				Help: "Total number of sessions disconnected",
			},
		),
		rooms: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "relaychat_rooms",
				Help: "Number of rooms in the directory, empty rooms included",
			},
		),
		eventsReceived: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relaychat_events_received_total",
				Help: "Total number of events received from clients by event name",
			},
			[]string{"event"},
		),
		broadcastFanout: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "relaychat_broadcast_fanout",
				Help:    "Number of connections that received each broadcast",
				Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
			},
		),
		messagesDelivered: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "relaychat_frames_delivered_total",
				Help: "Total number of frames enqueued for delivery to clients",
			},
		),
		framesDropped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "relaychat_frames_dropped_total",
				Help: "Total number of frames dropped because a send queue was full",
			},
		),
	}
}

// RecordActiveSessions updates the active session gauge
func (m *Metrics) RecordActiveSessions(count int) {
	m.activeSessions.Set(float64(count))
}

// RecordSessionCreated increments the created session counter
func (m *Metrics) RecordSessionCreated() {
	m.sessionsCreated.Inc()
}

// RecordSessionDisconnected increments the disconnected session counter
func (m *Metrics) RecordSessionDisconnected() {
	m.sessionsDisconnected.Inc()
}

// RecordRooms updates the room count gauge
func (m *Metrics) RecordRooms(count int) {
	m.rooms.Set(float64(count))
}

// RecordEventReceived counts one inbound event by name
func (m *Metrics) RecordEventReceived(event string) {
	m.eventsReceived.WithLabelValues(event).Inc()
}

// RecordBroadcastFanout observes how many connections a broadcast reached
func (m *Metrics) RecordBroadcastFanout(fanout int) {
	m.broadcastFanout.Observe(float64(fanout))
}

// RecordMessageDelivered counts one frame enqueued for delivery
func (m *Metrics) RecordMessageDelivered() {
	m.messagesDelivered.Inc()
}

// RecordFrameDropped counts one frame dropped on a full queue
func (m *Metrics) RecordFrameDropped() {
	m.framesDropped.Inc()
}
