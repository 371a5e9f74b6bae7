package contextx

import (
	"context"
	"testing"
)

func TestRequestMetadata(t *testing.T) {
	ctx := context.Background()
	if GetRequestID(ctx) != "" {
		t.Fatal("empty context should have no request id")
	}
	if GetIP(ctx) != "0.0.0.0" {
		t.Fatalf("unexpected default ip %q", GetIP(ctx))
	}

	ctx = WithIP(WithRequestID(ctx, "req-1"), "10.0.0.2")
	if got := GetRequestID(ctx); got != "req-1" {
		t.Fatalf("request id = %q", got)
	}
	if got := GetIP(ctx); got != "10.0.0.2" {
		t.Fatalf("ip = %q", got)
	}
}
