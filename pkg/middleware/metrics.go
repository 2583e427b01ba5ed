package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "cryoconsole").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for request duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// defaultMetricsConfig returns the default metrics configuration.
func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "cryoconsole",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus collectors.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	authChecks      *prometheus.CounterVec
	connectAttempts prometheus.Counter
	connections     prometheus.Counter
	closes          *prometheus.CounterVec
	frames          *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	liveSockets     prometheus.Gauge
}

// NewMetrics registers the collectors with the configured registry.
// It panics if they are already registered there.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	counterOpts := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}
	}

	return &Metrics{
		requestsTotal: factory.NewCounterVec(
			counterOpts("backend_requests_total", "Total backend HTTP requests"),
			[]string{"method", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "backend_request_duration_seconds",
			Help:        "Backend HTTP request duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"method"}),

		authChecks: factory.NewCounterVec(
			counterOpts("auth_checks_total", "Credential checks by result"),
			[]string{"result"}),

		connectAttempts: factory.NewCounter(
			counterOpts("channel_connect_attempts_total", "Push channel connection attempts")),

		connections: factory.NewCounter(
			counterOpts("channel_connections_total", "Push channel connections opened")),

		closes: factory.NewCounterVec(
			counterOpts("channel_closes_total", "Push channel closes by close code"),
			[]string{"code"}),

		frames: factory.NewCounterVec(
			counterOpts("channel_frames_total", "Inbound push frames by category"),
			[]string{"category"}),

		notifications: factory.NewCounterVec(
			counterOpts("notifications_total", "Stored notifications by variant"),
			[]string{"variant"}),

		liveSockets: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "channel_live_sockets",
			Help:        "Number of open push channel sockets",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// RecordAuthCheck records a credential check outcome.
func (m *Metrics) RecordAuthCheck(ok bool) {
	if m == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	m.authChecks.WithLabelValues(result).Inc()
}

// RecordConnectAttempt records a push channel dial.
func (m *Metrics) RecordConnectAttempt() {
	if m != nil {
		m.connectAttempts.Inc()
	}
}

// RecordOpen records an opened push channel socket.
func (m *Metrics) RecordOpen() {
	if m != nil {
		m.connections.Inc()
		m.liveSockets.Inc()
	}
}

// RecordClose records a push channel close with its close code. Pass
// live=true when the closed socket had been counted by RecordOpen.
func (m *Metrics) RecordClose(code int, live bool) {
	if m == nil {
		return
	}
	m.closes.WithLabelValues(strconv.Itoa(code)).Inc()
	if live {
		m.liveSockets.Dec()
	}
}

// ClientCloseLabel is the closes code label for sockets the client closed
// itself.
const ClientCloseLabel = "client"

// RecordClientClose records an open socket closed by the client.
func (m *Metrics) RecordClientClose() {
	if m == nil {
		return
	}
	m.closes.WithLabelValues(ClientCloseLabel).Inc()
	m.liveSockets.Dec()
}

// RecordFrame records an inbound frame.
func (m *Metrics) RecordFrame(category string) {
	if m != nil {
		m.frames.WithLabelValues(category).Inc()
	}
}

// RecordNotification records a stored notification.
func (m *Metrics) RecordNotification(variant string) {
	if m != nil {
		m.notifications.WithLabelValues(variant).Inc()
	}
}

// RoundTripper wraps next so every backend request is counted and timed.
func (m *Metrics) RoundTripper(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if m == nil {
		return next
	}
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		start := time.Now()
		resp, err := next.RoundTrip(req)
		m.requestDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())

		status := "error"
		if err == nil {
			status = strconv.Itoa(resp.StatusCode)
		}
		m.requestsTotal.WithLabelValues(req.Method, status).Inc()
		return resp, err
	})
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
