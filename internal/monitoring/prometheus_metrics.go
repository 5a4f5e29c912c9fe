package monitoring

import (
	"bufio"
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"billionaire_empire/internal/game"
)

// PrometheusMetrics - система метрик Prometheus
type PrometheusMetrics struct {
	registry *prometheus.Registry
	server   *http.Server

	// Engine metrics
	engineOps        *prometheus.CounterVec
	engineDuration   *prometheus.HistogramVec
	engineRejections *prometheus.CounterVec
	monthsProcessed  prometheus.Counter
	tonStaked        prometheus.Gauge
	inflation        prometheus.Gauge
	priceIndex       prometheus.Gauge

	// Session / store metrics
	activeSessions prometheus.Gauge
	storeOps       *prometheus.CounterVec
	storeDuration  *prometheus.HistogramVec

	// HTTP metrics
	requestDuration   *prometheus.HistogramVec
	requestCount      *prometheus.CounterVec
	errorCount        *prometheus.CounterVec
	responseSize      *prometheus.HistogramVec
	activeConnections prometheus.Gauge
}

// NewPrometheusMetrics - создание системы метрик
func NewPrometheusMetrics() *PrometheusMetrics {
	pm := &PrometheusMetrics{registry: prometheus.NewRegistry()}
	pm.initializeMetrics()
	pm.registerMetrics()
	return pm
}

// initializeMetrics - инициализация метрик
func (pm *PrometheusMetrics) initializeMetrics() {
	pm.engineOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "billionaire_engine_operations_total",
		Help: "Engine operations by name and result",
	}, []string{"op", "result"})

	pm.engineDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "billionaire_engine_operation_duration_seconds",
		Help:    "Engine operation duration in seconds",
		Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
	}, []string{"op"})

	pm.engineRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "billionaire_engine_rejections_total",
		Help: "Rejected engine operations by error class",
	}, []string{"op", "class"})

	pm.monthsProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "billionaire_months_processed_total",
		Help: "Monthly steps run by AdvanceTime",
	})

	pm.tonStaked = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "billionaire_ton_staked",
		Help: "TON staked in the most recently updated game",
	})

	pm.inflation = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "billionaire_inflation_rate",
		Help: "Annual inflation of the most recently updated game",
	})

	pm.priceIndex = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "billionaire_price_index",
		Help: "Price index of the most recently updated game",
	})

	pm.activeSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "billionaire_active_sessions",
		Help: "Games currently loaded in memory",
	})

	pm.storeOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "billionaire_store_operations_total",
		Help: "State store operations",
	}, []string{"op", "result"})

	pm.storeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "billionaire_store_operation_duration_seconds",
		Help:    "State store operation duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	pm.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "billionaire_request_duration_seconds",
		Help:    "Request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	pm.requestCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "billionaire_requests_total",
		Help: "Total number of requests",
	}, []string{"method", "endpoint", "status"})

	pm.errorCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "billionaire_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "endpoint"})

	pm.responseSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "billionaire_response_size_bytes",
		Help:    "Response size in bytes",
		Buckets: prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"endpoint"})

	pm.activeConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "billionaire_ws_connections",
		Help: "Open websocket connections",
	})
}

// registerMetrics - регистрация метрик
func (pm *PrometheusMetrics) registerMetrics() {
	pm.registry.MustRegister(
		pm.engineOps,
		pm.engineDuration,
		pm.engineRejections,
		pm.monthsProcessed,
		pm.tonStaked,
		pm.inflation,
		pm.priceIndex,
		pm.activeSessions,
		pm.storeOps,
		pm.storeDuration,
		pm.requestDuration,
		pm.requestCount,
		pm.errorCount,
		pm.responseSize,
		pm.activeConnections,
	)

	// Default Go metrics
	pm.registry.MustRegister(collectors.NewGoCollector())
	pm.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// Handler exposes the registry in the Prometheus text format.
func (pm *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{})
}

// StartServer - отдельный сервер метрик на addr
func (pm *PrometheusMetrics) StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", pm.Handler())

	pm.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Printf("Prometheus metrics server starting on %s", addr)
	return pm.server.ListenAndServe()
}

// Shutdown - остановка сервера
func (pm *PrometheusMetrics) Shutdown(ctx context.Context) error {
	if pm.server != nil {
		return pm.server.Shutdown(ctx)
	}
	return nil
}

// Observe implements game.Observer.
func (pm *PrometheusMetrics) Observe(o game.Observation) {
	result := "ok"
	if o.Err != nil {
		result = "error"
		pm.engineRejections.WithLabelValues(o.Op, errorClass(o.Err)).Inc()
	}
	pm.engineOps.WithLabelValues(o.Op, result).Inc()
	pm.engineDuration.WithLabelValues(o.Op).Observe(o.Duration.Seconds())
	if o.Err != nil || o.State == nil {
		return
	}
	pm.tonStaked.Set(o.State.Staking.TotalStaked())
	pm.inflation.Set(o.State.Economy.Inflation)
	pm.priceIndex.Set(o.State.Economy.PriceIndex)
}

// RecordAdvance counts the monthly steps of one AdvanceTime call.
func (pm *PrometheusMetrics) RecordAdvance(res game.AdvanceResult) {
	pm.monthsProcessed.Add(float64(len(res.Months)))
}

func errorClass(err error) string {
	switch {
	case errors.Is(err, game.ErrUnknownEntity):
		return "unknown_entity"
	case errors.Is(err, game.ErrInsufficientCash):
		return "insufficient_cash"
	case errors.Is(err, game.ErrDailyLimit):
		return "daily_limit"
	case errors.Is(err, game.ErrInvalidDays), errors.Is(err, game.ErrInvalidInput):
		return "invalid_input"
	}
	return "rejected"
}

func (pm *PrometheusMetrics) UpdateActiveSessions(count int) {
	pm.activeSessions.Set(float64(count))
}

func (pm *PrometheusMetrics) RecordStoreOp(op string, err error, duration time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	pm.storeOps.WithLabelValues(op, result).Inc()
	pm.storeDuration.WithLabelValues(op).Observe(duration.Seconds())
}

func (pm *PrometheusMetrics) RecordRequest(method, endpoint, status string, duration time.Duration, size int64) {
	pm.requestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
	pm.requestCount.WithLabelValues(method, endpoint, status).Inc()
	pm.responseSize.WithLabelValues(endpoint).Observe(float64(size))
}

func (pm *PrometheusMetrics) RecordError(errorType, endpoint string) {
	pm.errorCount.WithLabelValues(errorType, endpoint).Inc()
}

func (pm *PrometheusMetrics) ConnectionOpened() { pm.activeConnections.Inc() }
func (pm *PrometheusMetrics) ConnectionClosed() { pm.activeConnections.Dec() }

// MetricsMiddleware - middleware для HTTP метрик. Endpoint берется из
// шаблона маршрута chi, чтобы id не раздували кардинальность.
func (pm *PrometheusMetrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		endpoint := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			endpoint = rc.RoutePattern()
		}
		pm.RecordRequest(r.Method, endpoint, strconv.Itoa(wrapped.status), time.Since(start), wrapped.written)

		if wrapped.status >= 400 {
			errorType := "client_error"
			if wrapped.status >= 500 {
				errorType = "server_error"
			}
			pm.RecordError(errorType, endpoint)
		}
	})
}

// responseWriter - обертка для захвата статуса и размера ответа
type responseWriter struct {
	http.ResponseWriter
	status  int
	written int64
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.status = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Hijack нужен для апгрейда websocket
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}
	return h.Hijack()
}

// GetMetricsSummary - получение сводки метрик
func (pm *PrometheusMetrics) GetMetricsSummary() (map[string]interface{}, error) {
	metricFamilies, err := pm.registry.Gather()
	if err != nil {
		return nil, err
	}

	summary := make(map[string]interface{})
	var ops, requests float64
	for _, mf := range metricFamilies {
		for _, m := range mf.Metric {
			switch mf.GetName() {
			case "billionaire_active_sessions":
				summary["active_sessions"] = m.GetGauge().GetValue()
			case "billionaire_ws_connections":
				summary["ws_connections"] = m.GetGauge().GetValue()
			case "billionaire_engine_operations_total":
				ops += m.GetCounter().GetValue()
			case "billionaire_requests_total":
				requests += m.GetCounter().GetValue()
			case "billionaire_months_processed_total":
				summary["months_processed"] = m.GetCounter().GetValue()
			}
		}
	}
	summary["engine_operations"] = ops
	summary["total_requests"] = requests
	summary["last_updated"] = time.Now()
	return summary, nil
}
