package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"taskboard/backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestRecoveryWithLog_NoPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, hook := test.NewNullLogger()

	router := gin.New()
	router.Use(middleware.RecoveryWithLog(logger))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req, _ := http.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	if len(hook.AllEntries()) != 0 {
		t.Errorf("Expected no log entries, got %d", len(hook.AllEntries()))
	}
}

func TestRecoveryWithLog_WithPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, hook := test.NewNullLogger()

	router := gin.New()
	router.Use(middleware.RecoveryWithLog(logger))
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	req, _ := http.NewRequest("GET", "/panic", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}

	expectedError := `{"error":"internal server error"}`
	if w.Body.String() != expectedError {
		t.Errorf("Expected error message %s, got %s", expectedError, w.Body.String())
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.ErrorLevel {
		t.Fatalf("Expected an error log entry, got %v", entry)
	}
	if entry.Data["panic"] != "test panic" {
		t.Errorf("Expected panic value to be logged, got %v", entry.Data["panic"])
	}
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, hook := test.NewNullLogger()

	router := gin.New()
	router.Use(middleware.RequestLogger(logger))
	router.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	req, _ := http.NewRequest("GET", "/items/7", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") != "req-123" {
		t.Errorf("Expected request id to be echoed, got %q", w.Header().Get("X-Request-ID"))
	}
	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("Expected a log entry")
	}
	if entry.Level != logrus.WarnLevel {
		t.Errorf("Expected warn level for 404, got %s", entry.Level)
	}
	if entry.Data["path"] != "/items/:id" || entry.Data["status"] != http.StatusNotFound {
		t.Errorf("Unexpected log fields: %v", entry.Data)
	}

	req, _ = http.NewRequest("GET", "/items/8", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected a generated request id")
	}
}
