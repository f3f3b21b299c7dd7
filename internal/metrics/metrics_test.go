package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/limaJavier/roomtabling/pkg/solver"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveSolve(t *testing.T) {
	m := New()

	m.ObserveSolve("minUnusedCapacity", "gophersat", "optimal", 120, 340, 2*time.Second)
	m.ObserveSolve("minUnusedCapacity", "gophersat", "optimal", 120, 340, time.Second)
	m.ObserveSolve("", "gophersat", "MODEL_BUILD_ERROR", 0, 0, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.solves.WithLabelValues("minUnusedCapacity", "gophersat", "optimal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.solves.WithLabelValues("", "gophersat", "MODEL_BUILD_ERROR")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.programSize))
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()
	router := gin.New()
	router.Use(m.GinMiddleware())
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	for range 3 {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	}
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.requestTotal.WithLabelValues(http.MethodGet, "/health", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestTotal.WithLabelValues(http.MethodGet, "unmatched", "404")))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "http_requests_total"))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	m.ObserveSolve("maxScheduled", "cbc", "infeasible", 10, 10, time.Second)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestTrackSearches(t *testing.T) {
	m := New()
	pool := solver.NewSearchPool(3)

	require.NoError(t, m.TrackSearches(pool))

	expected := `
# HELP timetable_search_slots Number of in-process searches allowed at once
# TYPE timetable_search_slots gauge
timetable_search_slots 3
# HELP timetable_searches_abandoned Number of in-process searches still running after their time limit
# TYPE timetable_searches_abandoned gauge
timetable_searches_abandoned 0
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "timetable_search_slots", "timetable_searches_abandoned"))
	assert.Error(t, m.TrackSearches(pool))
}
