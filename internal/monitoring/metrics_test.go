package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"taskboard/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(m *Monitor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(m.MetricsMiddleware())
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	router.GET("/health", m.HealthHandler())
	router.GET("/ready", m.ReadinessHandler())
	router.GET("/live", m.LivenessHandler())
	router.GET("/metrics", m.MetricsHandler())
	return router
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestMetricsMiddlewareCounts(t *testing.T) {
	logger, _ := test.NewNullLogger()
	m := NewMonitor(logger)
	router := newTestRouter(m)

	get(router, "/ok")
	get(router, "/ok")
	get(router, "/missing")

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.RequestCount)
	assert.Equal(t, int64(1), snap.ErrorCount)
	assert.Equal(t, int64(0), snap.ActiveRequests)
	assert.Equal(t, int64(2), snap.Endpoints["GET /ok"])
	assert.Equal(t, int64(1), snap.StatusCodes["Not Found"])
}

func TestMonitorCountsBoardEvents(t *testing.T) {
	m := NewMonitor(nil)
	m.Publish(context.Background(), services.BoardEvent{Type: services.EventTaskMoved})
	m.Publish(context.Background(), services.BoardEvent{Type: services.EventTaskMoved})
	m.Publish(context.Background(), services.BoardEvent{Type: services.EventColumnsReordered})

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.BoardEvents["task.moved"])
	assert.Equal(t, int64(1), snap.BoardEvents["columns.reordered"])
}

func TestHealthChecksRunOnEveryRequest(t *testing.T) {
	logger, hook := test.NewNullLogger()
	m := NewMonitor(logger)
	router := newTestRouter(m)

	var failing bool
	m.RegisterHealthCheck("database", func(context.Context) error {
		if failing {
			return errors.New("connection refused")
		}
		return nil
	})

	w := get(router, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusOK, get(router, "/ready").Code)

	failing = true
	w = get(router, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body struct {
		Status string                 `json:"status"`
		Checks map[string]HealthCheck `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "connection refused", body.Checks["database"].Message)
	assert.Equal(t, http.StatusServiceUnavailable, get(router, "/ready").Code)
	assert.NotEmpty(t, hook.AllEntries())

	assert.Equal(t, http.StatusOK, get(router, "/live").Code)
}

func TestMetricsHandler(t *testing.T) {
	m := NewMonitor(nil)
	router := newTestRouter(m)

	w := get(router, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, "application")
	assert.Contains(t, body, "system")
}
