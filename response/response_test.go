package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/ivcalc/xerrors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func run(t *testing.T, fn func(c *gin.Context)) (*httptest.ResponseRecorder, Body) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	fn(c)

	var body Body
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return rec, body
}

func TestSuccess(t *testing.T) {
	rec, body := run(t, func(c *gin.Context) { Success(c, map[string]float64{"iv": 0.2}) })
	if rec.Code != http.StatusOK || body.Code != 0 || body.Msg != "success" {
		t.Fatalf("unexpected envelope %d %+v", rec.Code, body)
	}
}

func TestError_Mapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantHTTP int
		wantCode int
	}{
		{"business invalid", xerrors.Invalid(xerrors.ErrInvalidInput, "strike must be positive"), http.StatusBadRequest, 400002},
		{"wrapped business", fmt.Errorf("outer: %w", xerrors.ErrRateLimited), http.StatusTooManyRequests, 429001},
		{"grpc status", status.Error(codes.Unavailable, "down"), http.StatusServiceUnavailable, http.StatusServiceUnavailable},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := run(t, func(c *gin.Context) { Error(c, tc.err) })
			if rec.Code != tc.wantHTTP || body.Code != tc.wantCode {
				t.Fatalf("got http=%d code=%d, want %d/%d", rec.Code, body.Code, tc.wantHTTP, tc.wantCode)
			}
		})
	}
}

func TestError_DetailCarried(t *testing.T) {
	_, body := run(t, func(c *gin.Context) {
		Error(c, xerrors.Invalid(xerrors.ErrInvalidTolerance, "epsilon=%v", -1))
	})
	if body.Detail != "epsilon=-1" {
		t.Fatalf("unexpected detail %q", body.Detail)
	}
}
