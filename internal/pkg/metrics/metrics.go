package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "landmarkmap",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "landmarkmap",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "landmarkmap",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Viewport synchronization metrics
	FetchesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "landmarkmap",
		Subsystem: "sync",
		Name:      "fetches_issued_total",
		Help:      "Total landmark fetches issued, by query kind",
	}, []string{"kind"})

	FetchesStale = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "landmarkmap",
		Subsystem: "sync",
		Name:      "fetches_stale_total",
		Help:      "Fetch results discarded because a later fetch already resolved",
	})

	FetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "landmarkmap",
		Subsystem: "sync",
		Name:      "fetch_failures_total",
		Help:      "Accepted fetches that failed, by query kind",
	}, []string{"kind"})

	FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "landmarkmap",
		Subsystem: "sync",
		Name:      "fetch_duration_seconds",
		Help:      "Landmark fetch round-trip time",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	DebounceCoalesced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "landmarkmap",
		Subsystem: "sync",
		Name:      "debounce_coalesced_total",
		Help:      "Viewport settle events absorbed by the debounce window",
	})

	GeocodeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "landmarkmap",
		Subsystem: "geocode",
		Name:      "requests_total",
		Help:      "Geocoding lookups by result",
	}, []string{"result"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "landmarkmap",
		Subsystem: "ws",
		Name:      "active_sessions",
		Help:      "Current number of connected map widgets",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "landmarkmap",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "landmarkmap",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}
