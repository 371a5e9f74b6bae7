package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"strings"
	"testing"

	"github.com/wyfcoding/ivcalc/pricing"
	"github.com/wyfcoding/ivcalc/xerrors"
)

func TestRun_Price(t *testing.T) {
	var out, errOut bytes.Buffer
	err := run(context.Background(), []string{"price", "-spot", "100", "-strike", "100", "-rate", "0.05", "-days", "365", "-vol", "0.2"}, &out, &errOut)
	if err != nil {
		t.Fatalf("price failed: %v (%s)", err, errOut.String())
	}
	var res pricing.PriceResult
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Price < 10.4505 || res.Price > 10.4506 {
		t.Fatalf("unexpected price %v", res.Price)
	}
}

func TestRun_ImpliedVol(t *testing.T) {
	var out, errOut bytes.Buffer
	err := run(context.Background(), []string{"iv", "-spot", "100", "-price", "2.41", "-strike", "100", "-rate", "0.03", "-days", "30", "-epsilon", "50"}, &out, &errOut)
	if err != nil {
		t.Fatalf("iv failed: %v (%s)", err, errOut.String())
	}
	var res pricing.ImpliedVolResult
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Status != "vega_collapsed" || res.ImpliedVol != 0.2449 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestRun_InvalidInputReturnsTypedError(t *testing.T) {
	var out, errOut bytes.Buffer
	err := run(context.Background(), []string{"iv", "-spot", "100", "-price", "2", "-strike", "100", "-days", "30", "-type", "straddle"}, &out, &errOut)
	if !errors.Is(err, xerrors.ErrInvalidOptionType) {
		t.Fatalf("expected ErrInvalidOptionType, got %v", err)
	}
}

func TestRun_Usage(t *testing.T) {
	var out, errOut bytes.Buffer
	if err := run(context.Background(), nil, &out, &errOut); !errors.Is(err, flag.ErrHelp) {
		t.Fatalf("expected flag.ErrHelp, got %v", err)
	}
	if err := run(context.Background(), []string{"bogus"}, &out, &errOut); err == nil || !strings.Contains(err.Error(), "bogus") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
	out.Reset()
	if err := run(context.Background(), []string{"version"}, &out, &errOut); err != nil || strings.TrimSpace(out.String()) != version {
		t.Fatalf("version output %q err=%v", out.String(), err)
	}
}
