package metrics

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/limaJavier/roomtabling/pkg/solver"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry with the solve and HTTP collectors
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	solves          *prometheus.CounterVec
	solveDuration   *prometheus.HistogramVec
	programSize     *prometheus.HistogramVec
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	solves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_solves_total",
		Help: "Total number of solve requests by outcome",
	}, []string{"strategy", "solver", "status"})

	solveDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timetable_solve_duration_seconds",
		Help:    "Duration of compile, solve and decode in seconds",
		Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300},
	}, []string{"strategy", "solver"})

	programSize := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timetable_program_size",
		Help:    "Number of variables and constraints of compiled programs",
		Buckets: prometheus.ExponentialBuckets(10, 4, 8),
	}, []string{"kind"})

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(solves, solveDuration, programSize, requestDuration, requestTotal, goroutines)

	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		solves:          solves,
		solveDuration:   solveDuration,
		programSize:     programSize,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry is exposed for tests gathering the collected samples
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveSolve records the outcome of a solve request. Rejected requests are reported with the status of the error
// that ended them and zero program sizes are not observed.
func (m *Metrics) ObserveSolve(strategy, solver, status string, variables, constraints int, duration time.Duration) {
	if m == nil {
		return
	}
	m.solves.WithLabelValues(strategy, solver, status).Inc()
	m.solveDuration.WithLabelValues(strategy, solver).Observe(duration.Seconds())
	if variables > 0 {
		m.programSize.WithLabelValues("variables").Observe(float64(variables))
		m.programSize.WithLabelValues("constraints").Observe(float64(constraints))
	}
}

// TrackSearches exposes the occupancy of an in-process search pool. Searches left running after their time limit are
// counted apart since they hold a slot nobody waits on.
func (m *Metrics) TrackSearches(pool *solver.SearchPool) error {
	if m == nil || pool == nil {
		return nil
	}

	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "timetable_search_slots",
			Help: "Number of in-process searches allowed at once",
		}, func() float64 {
			return float64(pool.Size())
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "timetable_searches_running",
			Help: "Number of in-process searches holding a slot",
		}, func() float64 {
			return float64(pool.Running())
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "timetable_searches_abandoned",
			Help: "Number of in-process searches still running after their time limit",
		}, func() float64 {
			return float64(pool.Abandoned())
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "timetable_searches_abandoned_total",
			Help: "Total number of in-process searches abandoned at their time limit",
		}, func() float64 {
			return float64(pool.AbandonedTotal())
		}),
	}
	for _, collector := range collectors {
		if err := m.registry.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

// ObserveHTTPRequest records request metrics.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// GinMiddleware observes every request under its route template, unmatched paths are grouped together
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
