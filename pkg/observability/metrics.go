package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Tenant-context resolution metrics
	ContextBuildsTotal   *prometheus.CounterVec
	ContextBuildDuration prometheus.Histogram
	AccessDeniedTotal    *prometheus.CounterVec
	BootstrapRunsTotal   prometheus.Counter
	UsersProvisionedTotal prometheus.Counter

	// Membership cache metrics
	MembershipCacheHitsTotal   *prometheus.CounterVec
	MembershipCacheMissesTotal prometheus.Counter

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowdeck_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flowdeck_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		ContextBuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowdeck_tenant_context_builds_total",
				Help: "Tenant context build attempts by outcome",
			},
			[]string{"outcome"},
		),
		ContextBuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "flowdeck_tenant_context_build_duration_seconds",
				Help:    "Tenant context build duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		AccessDeniedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowdeck_access_denied_total",
				Help: "Security-relevant denials by kind (tenant, role)",
			},
			[]string{"kind"},
		),
		BootstrapRunsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "flowdeck_bootstrap_runs_total",
				Help: "First-principal bootstrap promotions performed",
			},
		),
		UsersProvisionedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "flowdeck_users_provisioned_total",
				Help: "Users auto-provisioned on first sight",
			},
		),
		MembershipCacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowdeck_membership_cache_hits_total",
				Help: "Membership cache hits by layer (l1, redis)",
			},
			[]string{"layer"},
		),
		MembershipCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "flowdeck_membership_cache_misses_total",
				Help: "Membership cache misses",
			},
		),
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "flowdeck_db_connections_active",
				Help: "Active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "flowdeck_db_connections_idle",
				Help: "Idle database connections",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ContextBuildsTotal,
		m.ContextBuildDuration,
		m.AccessDeniedTotal,
		m.BootstrapRunsTotal,
		m.UsersProvisionedTotal,
		m.MembershipCacheHitsTotal,
		m.MembershipCacheMissesTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
	)

	return m
}

// Handler returns the Prometheus scrape handler for this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records one completed HTTP request
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveContextBuild records one tenant context build attempt
func (m *Metrics) ObserveContextBuild(outcome string, duration time.Duration) {
	m.ContextBuildsTotal.WithLabelValues(outcome).Inc()
	m.ContextBuildDuration.Observe(duration.Seconds())
}
