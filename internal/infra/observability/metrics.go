package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the gateway.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration  *prometheus.HistogramVec
	upstreamErrors   *prometheus.CounterVec
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	coalescedFlights *prometheus.CounterVec
	sessionsActive   prometheus.GaugeFunc
	draftsActive     prometheus.GaugeFunc
	rateLimited      prometheus.Counter
	logins           *prometheus.CounterVec
}

// OpsSnapshot is the aggregate view served by GET /v1/metrics/ops.
type OpsSnapshot struct {
	TotalLogins        int64   `json:"totalLogins"`
	FailedLogins       int64   `json:"failedLogins"`
	CoalescedShared    int64   `json:"coalescedShared"`
	CoalescedLed       int64   `json:"coalescedLed"`
	CoalesceShareRatio float64 `json:"coalesceShareRatio"`
	CacheHitRate       float64 `json:"cacheHitRate"`
	UpstreamErrors     int64   `json:"upstreamErrors"`
	RateLimited        int64   `json:"rateLimited"`
	Period             string  `json:"period"`
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
// sessionLen and draftLen feed the gauges; pass nil to leave a gauge at zero.
func NewMetrics(sessionLen, draftLen func() int) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	gauge := func(fn func() int) func() float64 {
		return func() float64 {
			if fn == nil {
				return 0
			}
			return float64(fn())
		}
	}

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bridge_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		upstreamErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_upstream_errors_total",
				Help: "Total errors from the upstream pharmacy API.",
			},
			[]string{"endpoint"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		coalescedFlights: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_coalesced_flights_total",
				Help: "List fetches by flight outcome: led (executed) vs shared (joined).",
			},
			[]string{"outcome"},
		),
		sessionsActive: factory.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "bridge_sessions_active",
				Help: "Live sessions in the session store.",
			},
			gauge(sessionLen),
		),
		draftsActive: factory.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "bridge_quote_drafts_active",
				Help: "Quote drafts currently being composed.",
			},
			gauge(draftLen),
		),
		rateLimited: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bridge_rate_limited_total",
				Help: "Requests rejected by the auth rate limiter.",
			},
		),
		logins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_logins_total",
				Help: "Sign-in attempts by result.",
			},
			[]string{"result"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrUpstreamError increments the upstream error counter.
func (m *Metrics) IncrUpstreamError(endpoint string) {
	m.upstreamErrors.WithLabelValues(endpoint).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrCoalesced records a list fetch: shared=true means the caller joined an
// in-flight fetch instead of executing its own.
func (m *Metrics) IncrCoalesced(shared bool) {
	outcome := "led"
	if shared {
		outcome = "shared"
	}
	m.coalescedFlights.WithLabelValues(outcome).Inc()
}

// IncrRateLimited counts a request rejected by the auth rate limiter.
func (m *Metrics) IncrRateLimited() {
	m.rateLimited.Inc()
}

// IncrLogin records a sign-in attempt result ("success", "invalid", "error").
func (m *Metrics) IncrLogin(result string) {
	m.logins.WithLabelValues(result).Inc()
}

// GetOpsSnapshot returns the aggregate values for GET /v1/metrics/ops.
// Prometheus counters are cumulative, so the snapshot is all-time.
func (m *Metrics) GetOpsSnapshot() *OpsSnapshot {
	led := getCounterValue(m.coalescedFlights, "led")
	shared := getCounterValue(m.coalescedFlights, "shared")
	hits := getCounterValue(m.cacheHits, "quote_detail")
	misses := getCounterValue(m.cacheMisses, "quote_detail")
	loginsOK := getCounterValue(m.logins, "success")
	loginsBad := getCounterValue(m.logins, "invalid")

	shareRatio := float64(0)
	if led+shared > 0 {
		shareRatio = shared / (led + shared)
	}
	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	var upstreamTotal float64
	ch := make(chan prometheus.Metric, 64)
	go func() {
		m.upstreamErrors.Collect(ch)
		close(ch)
	}()
	for metric := range ch {
		var pb dto.Metric
		if err := metric.Write(&pb); err == nil && pb.Counter != nil && pb.Counter.Value != nil {
			upstreamTotal += *pb.Counter.Value
		}
	}

	return &OpsSnapshot{
		TotalLogins:        int64(loginsOK),
		FailedLogins:       int64(loginsBad),
		CoalescedShared:    int64(shared),
		CoalescedLed:       int64(led),
		CoalesceShareRatio: shareRatio,
		CacheHitRate:       hitRate,
		UpstreamErrors:     int64(upstreamTotal),
		RateLimited:        int64(getSingleCounterValue(m.rateLimited)),
		Period:             "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

func getSingleCounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
