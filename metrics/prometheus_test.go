package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveOperation(t *testing.T) {
	m := NewMetrics("ivcalc-test")
	m.ObserveOperation("iv", "converged", 3*time.Millisecond)
	m.ObserveOperation("iv", "converged", time.Millisecond)
	m.ObserveOperation("price", "error", time.Millisecond)

	if got := testutil.ToFloat64(m.OperationsTotal.WithLabelValues("iv", "converged")); got != 2 {
		t.Fatalf("iv/converged = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.OperationsTotal.WithLabelValues("price", "error")); got != 1 {
		t.Fatalf("price/error = %v, want 1", got)
	}
}

func TestObserveSolveAndCache(t *testing.T) {
	m := NewMetrics("ivcalc-test")
	m.ObserveSolve("exhausted", 1000)
	m.ObserveCache("hit")
	m.ObserveCache("hit")

	if got := testutil.ToFloat64(m.SolverStatus.WithLabelValues("exhausted")); got != 1 {
		t.Fatalf("solver status = %v", got)
	}
	if got := testutil.ToFloat64(m.CacheRequests.WithLabelValues("hit")); got != 2 {
		t.Fatalf("cache hits = %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveOperation("iv", "ok", time.Second)
	m.ObserveSolve("converged", 3)
	m.ObserveCache("miss")
	m.RegisterBuildInfo("svc", "v1")
}

func TestHandlerExposesBuildInfo(t *testing.T) {
	m := NewMetrics("ivcalc-test")
	m.RegisterBuildInfo("ivcalc", "v1.2.3")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `build_info{service="ivcalc",version="v1.2.3"} 1`) {
		t.Fatalf("build_info not exposed:\n%s", rec.Body.String())
	}
}
