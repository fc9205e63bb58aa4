package http

import (
	stdhttp "net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metricsOnce sync.Once

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInflight        prometheus.Gauge
)

// MetricsConfig agrupa dependencias para exponer /metrics.
type MetricsConfig struct {
	Registry prometheus.Registerer
	// PoolStats devuelve el snapshot del pool pg (nil si no hay store).
	PoolStats func() *pgxpool.Stat
}

// RegisterMetrics inicializa las métricas HTTP y, si hay pool, registra un
// collector con su estado. Devuelve el handler para /metrics.
func RegisterMetrics(cfg MetricsConfig) stdhttp.Handler {
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	metricsOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Número total de requests procesadas",
		}, []string{"method", "path", "status"})

		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latencia de los requests HTTP",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"})

		httpInflight = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Requests en vuelo",
		})

		registry.MustRegister(httpRequestsTotal, httpRequestDuration, httpInflight)

		if cfg.PoolStats != nil {
			registry.MustRegister(&poolCollector{stats: cfg.PoolStats})
		}
	})

	return promhttp.Handler()
}

// MetricsMiddleware instrumenta cada request. routePattern se resuelve con
// el pattern de chi para no explotar la cardinalidad con paths dinámicos.
func MetricsMiddleware(routePattern func(r *stdhttp.Request) string) func(stdhttp.Handler) stdhttp.Handler {
	return func(next stdhttp.Handler) stdhttp.Handler {
		return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			if httpRequestsTotal == nil {
				next.ServeHTTP(w, r)
				return
			}
			httpInflight.Inc()
			defer httpInflight.Dec()

			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, status: stdhttp.StatusOK}
			next.ServeHTTP(rw, r)

			path := routePattern(r)
			httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.status)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

type statusRecorder struct {
	stdhttp.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// poolCollector exporta el estado del pgxpool.
type poolCollector struct {
	stats func() *pgxpool.Stat
}

var (
	poolTotalDesc = prometheus.NewDesc("pg_pool_total_conns", "Conexiones totales del pool", nil, nil)
	poolIdleDesc  = prometheus.NewDesc("pg_pool_idle_conns", "Conexiones idle del pool", nil, nil)
	poolUsedDesc  = prometheus.NewDesc("pg_pool_acquired_conns", "Conexiones adquiridas del pool", nil, nil)
)

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- poolTotalDesc
	ch <- poolIdleDesc
	ch <- poolUsedDesc
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.stats()
	if st == nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(poolTotalDesc, prometheus.GaugeValue, float64(st.TotalConns()))
	ch <- prometheus.MustNewConstMetric(poolIdleDesc, prometheus.GaugeValue, float64(st.IdleConns()))
	ch <- prometheus.MustNewConstMetric(poolUsedDesc, prometheus.GaugeValue, float64(st.AcquiredConns()))
}
