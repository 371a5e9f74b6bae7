package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/wyfcoding/ivcalc/contextx"
	"github.com/wyfcoding/ivcalc/limiter"
	"github.com/wyfcoding/ivcalc/metrics"
)

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	e := gin.New()
	e.Use(mw...)
	return e
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	e := newEngine(Recovery(logger))
	e.GET("/panic", func(*gin.Context) { panic("kaboom") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(buf.String(), "kaboom") {
		t.Fatalf("panic not logged: %s", buf.String())
	}
}

func TestRequestID_GeneratesAndPropagates(t *testing.T) {
	var seen string
	e := newEngine(RequestID())
	e.GET("/", func(c *gin.Context) {
		seen = contextx.GetRequestID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rec.Header().Get(HeaderXRequestID) != seen {
		t.Fatalf("generated id not propagated: ctx=%q header=%q", seen, rec.Header().Get(HeaderXRequestID))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, "abc-123")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if seen != "abc-123" {
		t.Fatalf("incoming id should be kept, got %q", seen)
	}
}

func TestRateLimit_Rejects(t *testing.T) {
	e := newEngine(RateLimit(limiter.NewDynamicLocalLimiter(0.001, 1)))
	e.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}
}

func TestHTTPMetrics(t *testing.T) {
	m := metrics.NewMetrics("mw-test")
	e := newEngine(HTTPMetrics(m, "/health"))
	e.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	e.POST("/api/v1/options/iv", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, r := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/health", nil),
		httptest.NewRequest(http.MethodPost, "/api/v1/options/iv", nil),
		httptest.NewRequest(http.MethodPost, "/api/v1/options/iv", nil),
	} {
		e.ServeHTTP(httptest.NewRecorder(), r)
	}

	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/options/iv", "200")); got != 2 {
		t.Fatalf("iv requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/health", "200")); got != 0 {
		t.Fatalf("skipped path counted: %v", got)
	}
}

func TestMaxBodyBytes(t *testing.T) {
	e := newEngine(MaxBodyBytes(8))
	e.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"spot":100,"strike":100}`)))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}
