package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标管理器
type Metrics struct {
	gatherer prometheus.Gatherer

	// HTTP请求指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 缓存指标
	cacheHitsTotal   *prometheus.CounterVec
	cacheMissesTotal *prometheus.CounterVec

	// 业务指标
	freshnessLookups   *prometheus.CounterVec
	providerFallbacks  *prometheus.CounterVec
	providerDuration   *prometheus.HistogramVec
	waterStatusChanges *prometheus.CounterVec
	alertsCreated      *prometheus.CounterVec
	alertsMarkedRead   prometheus.Counter
	refreshRuns        *prometheus.CounterVec
}

// NewMetrics 使用独立注册表创建指标，并附带 go/process 采集器
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return NewMetricsWith(reg, reg)
}

// NewMetricsForTesting 每次返回独立注册表，避免重复注册
func NewMetricsForTesting() *Metrics {
	reg := prometheus.NewRegistry()
	return NewMetricsWith(reg, reg)
}

func NewMetricsWith(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: gatherer,
		httpRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		cacheHitsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		}, []string{"kind"}),
		cacheMissesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		}, []string{"kind"}),
		freshnessLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ecowatch_freshness_lookups_total",
			Help: "Reading lookups by kind and outcome (cache, fresh, stale, miss)",
		}, []string{"kind", "outcome"}),
		providerFallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ecowatch_provider_fallbacks_total",
			Help: "Provider calls that fell back to synthetic data",
		}, []string{"kind"}),
		providerDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ecowatch_provider_duration_seconds",
			Help:    "Duration of provider fetches",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind", "source"}),
		waterStatusChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ecowatch_water_status_changes_total",
			Help: "Water level alert status transitions by new status",
		}, []string{"status"}),
		alertsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ecowatch_alerts_created_total",
			Help: "User alerts created",
		}, []string{"type"}),
		alertsMarkedRead: f.NewCounter(prometheus.CounterOpts{
			Name: "ecowatch_alerts_marked_read_total",
			Help: "Alerts transitioned to read",
		}),
		refreshRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ecowatch_refresh_runs_total",
			Help: "Scheduled refresh runs by result",
		}, []string{"result"}),
	}
}

// Handler 暴露 /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// 以下记录方法允许 nil 接收者，未启用指标时直接忽略

func (m *Metrics) RecordCacheHit(kind string) {
	if m != nil {
		m.cacheHitsTotal.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) RecordCacheMiss(kind string) {
	if m != nil {
		m.cacheMissesTotal.WithLabelValues(kind).Inc()
	}
}

// RecordFreshness outcome 取值 cache|fresh|stale|miss
func (m *Metrics) RecordFreshness(kind, outcome string) {
	if m != nil {
		m.freshnessLookups.WithLabelValues(kind, outcome).Inc()
	}
}

func (m *Metrics) RecordProviderFallback(kind string) {
	if m != nil {
		m.providerFallbacks.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) RecordProviderDuration(kind, source string, d time.Duration) {
	if m != nil {
		m.providerDuration.WithLabelValues(kind, source).Observe(d.Seconds())
	}
}

func (m *Metrics) RecordWaterStatusChange(status string) {
	if m != nil {
		m.waterStatusChanges.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) RecordAlertCreated(alertType string) {
	if m != nil {
		m.alertsCreated.WithLabelValues(alertType).Inc()
	}
}

func (m *Metrics) RecordAlertRead() {
	if m != nil {
		m.alertsMarkedRead.Inc()
	}
}

func (m *Metrics) RecordRefresh(result string) {
	if m != nil {
		m.refreshRuns.WithLabelValues(result).Inc()
	}
}

// Gatherer 测试中读取指标值
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.gatherer }
