package limiter

import (
	"context"
	"testing"
)

func TestLocalLimiter_Burst(t *testing.T) {
	l := NewLocalLimiter(1, 3)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if ok, _ := l.Allow(ctx, ""); !ok {
			t.Fatalf("request %d should pass within burst", i)
		}
	}
	if ok, _ := l.Allow(ctx, ""); ok {
		t.Fatal("request beyond burst should be rejected")
	}
}

func TestDynamicLimiter_UpdateAndDisable(t *testing.T) {
	ctx := context.Background()
	d := NewDynamicLocalLimiter(0.001, 1)

	if ok, _ := d.Allow(ctx, ""); !ok {
		t.Fatal("first token should pass")
	}
	if ok, _ := d.Allow(ctx, ""); ok {
		t.Fatal("second request should be limited")
	}

	d.UpdateLocal(0, 0)
	for i := 0; i < 10; i++ {
		if ok, _ := d.Allow(ctx, ""); !ok {
			t.Fatal("disabled limiter must allow everything")
		}
	}

	d.UpdateLocal(0.001, 2)
	if ok, _ := d.Allow(ctx, ""); !ok {
		t.Fatal("rebuilt bucket should start full")
	}
}

func TestDynamicLimiter_NilAllows(t *testing.T) {
	var d *DynamicLimiter
	if ok, err := d.Allow(context.Background(), ""); !ok || err != nil {
		t.Fatal("nil limiter should allow")
	}
}
