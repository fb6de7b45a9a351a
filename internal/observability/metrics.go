package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	statusRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edgerelay",
			Subsystem: "status",
			Name:      "requests_total",
			Help:      "Total status endpoint requests.",
		},
		[]string{"role", "method", "path", "status"},
	)
	statusDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "edgerelay",
			Subsystem: "status",
			Name:      "request_duration_seconds",
			Help:      "Status endpoint request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"role", "method", "path", "status"},
	)
	relayFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edgerelay",
			Subsystem: "relay",
			Name:      "frames_total",
			Help:      "Frames relayed.",
		},
		[]string{"role"},
	)
	relayBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edgerelay",
			Subsystem: "relay",
			Name:      "payload_bytes_total",
			Help:      "Payload bytes relayed, excluding frame headers.",
		},
		[]string{"role"},
	)
	relayFrameSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "edgerelay",
			Subsystem: "relay",
			Name:      "frame_payload_bytes",
			Help:      "Payload size per frame.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		},
		[]string{"role"},
	)
	connectAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edgerelay",
			Subsystem: "sender",
			Name:      "connect_attempts_total",
			Help:      "Sender dial attempts.",
		},
		[]string{"success"},
	)
	bindAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "edgerelay",
			Subsystem: "receiver",
			Name:      "bind_attempts_total",
			Help:      "Receiver bind attempts.",
		},
	)
	relayFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edgerelay",
			Subsystem: "relay",
			Name:      "failures_total",
			Help:      "Fatal relay failures by reason.",
		},
		[]string{"role", "reason"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			statusRequests, statusDuration,
			relayFrames, relayBytes, relayFrameSize,
			connectAttempts, bindAttempts, relayFailures,
		)
	})
}

func RecordHTTPRequest(role, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	statusRequests.WithLabelValues(role, method, path, statusLabel).Inc()
	statusDuration.WithLabelValues(role, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordFrame(role string, payloadBytes int) {
	RegisterMetrics()
	relayFrames.WithLabelValues(role).Inc()
	relayBytes.WithLabelValues(role).Add(float64(payloadBytes))
	relayFrameSize.WithLabelValues(role).Observe(float64(payloadBytes))
}

func RecordConnectAttempt(success bool) {
	RegisterMetrics()
	connectAttempts.WithLabelValues(strconv.FormatBool(success)).Inc()
}

func RecordBindAttempt() {
	RegisterMetrics()
	bindAttempts.Inc()
}

func RecordFailure(role, reason string) {
	RegisterMetrics()
	relayFailures.WithLabelValues(role, reason).Inc()
}
