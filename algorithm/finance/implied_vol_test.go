package finance

import (
	"errors"
	"math"
	"testing"

	"github.com/wyfcoding/ivcalc/xerrors"
)

func TestImpliedVolatility_RoundTrip(t *testing.T) {
	cases := []struct {
		name                     string
		spot, strike, rate, days float64
		vol                      float64
		cp                       CallPut
		style                    OptionStyle
	}{
		{"equity call atm", 100, 100, 0.03, 30, 0.2, Call, EquityStyle},
		{"equity put atm", 100, 100, 0.03, 30, 0.2, Put, EquityStyle},
		{"equity call otm", 100, 110, 0.02, 90, 0.35, Call, EquityStyle},
		{"futures call", 3000, 3100, 0.03, 45, 0.25, Call, FuturesStyle},
		{"futures put", 3000, 3100, 0.03, 45, 0.25, Put, FuturesStyle},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Price(tc.spot, tc.strike, tc.rate, tc.days, tc.vol, tc.cp, tc.style)
			if err != nil {
				t.Fatal(err)
			}
			res, err := ImpliedVolatility(tc.spot, p, tc.strike, tc.rate, tc.days, 1e-6, tc.cp, tc.style)
			if err != nil {
				t.Fatal(err)
			}
			if res.Status != StatusConverged {
				t.Fatalf("expected converged, got %s (%+v)", res.Status, res)
			}
			if !almostEqual(res.IV, tc.vol, 1e-3) {
				t.Fatalf("recovered iv=%v, want %v", res.IV, tc.vol)
			}
		})
	}
}

func TestImpliedVolatility_KnownSolutions(t *testing.T) {
	cases := []struct {
		name                             string
		spot, price, strike, rate, days  float64
		cp                               CallPut
		style                            OptionStyle
		want                             float64
	}{
		// 远期内在价值为 -10，0.01 仍高于下界，可以解出波动率。
		{"cheap otm call", 90, 0.01, 100, 0, 30, Call, EquityStyle, 0.1509},
		{"deep premium call", 100, 30, 100, 0.03, 30, Call, EquityStyle, 2.6799},
		{"futures put", 100, 5, 100, 0.03, 30, Put, FuturesStyle, 0.4375},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := ImpliedVolatility(tc.spot, tc.price, tc.strike, tc.rate, tc.days, 1e-6, tc.cp, tc.style)
			if err != nil {
				t.Fatal(err)
			}
			if res.Status != StatusConverged {
				t.Fatalf("expected converged, got %s", res.Status)
			}
			if !almostEqual(res.IV, tc.want, 1e-4) {
				t.Fatalf("iv=%v, want %v", res.IV, tc.want)
			}
		})
	}
}

func TestImpliedVolatility_NonPositivePrice(t *testing.T) {
	for _, p := range []float64{0, -1, -1e-12} {
		for _, cp := range []CallPut{Call, Put} {
			res, err := ImpliedVolatility(100, p, 100, 0.03, 30, 1e-6, cp, EquityStyle)
			if err != nil {
				t.Fatal(err)
			}
			if res.Status != StatusNoSolution || res.Value() != 0 || res.Found() {
				t.Fatalf("price=%v %s: expected no solution, got %+v", p, cp, res)
			}
		}
	}
}

func TestImpliedVolatility_BelowIntrinsic(t *testing.T) {
	cases := []struct {
		name                            string
		spot, price, strike, rate, days float64
		cp                              CallPut
	}{
		{"itm call below intrinsic", 110, 5, 100, 0, 30, Call},
		{"itm call at intrinsic", 110, 10, 100, 0, 30, Call},
		{"itm put below intrinsic", 90, 5, 100, 0, 30, Put},
		{"itm put at discounted intrinsic", 90, 100*math.Exp(-0.05*60/DaysPerYear) - 90, 100, 0.05, 60, Put},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := ImpliedVolatility(tc.spot, tc.price, tc.strike, tc.rate, tc.days, 1e-6, tc.cp, EquityStyle)
			if err != nil {
				t.Fatal(err)
			}
			if res.Status != StatusNoSolution || res.Value() != 0 {
				t.Fatalf("expected no solution, got %+v", res)
			}
		})
	}
}

func TestImpliedVolatility_Exhausted(t *testing.T) {
	// 市价低于 S-K·e^(-rt)，任何波动率都无法匹配，迭代会在下限附近振荡直到用尽次数。
	res, err := ImpliedVolatility(100, 0.05, 100, 0.03, 30, 1e-6, Call, EquityStyle)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusExhausted {
		t.Fatalf("expected exhausted, got %s", res.Status)
	}
	if res.Iterations != MaxIterations {
		t.Fatalf("expected %d iterations, got %d", MaxIterations, res.Iterations)
	}
	if !res.Found() {
		t.Fatal("exhausted result should still report the last iterate")
	}
}

func TestImpliedVolatility_VegaCollapsed(t *testing.T) {
	// ATM vega≈11.4，epsilon=50 时第一轮即停止，返回种子值。
	res, err := ImpliedVolatility(100, 2.41, 100, 0.03, 30, 50, Call, EquityStyle)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusVegaCollapsed {
		t.Fatalf("expected vega collapse, got %s", res.Status)
	}
	if res.Iterations != 0 || res.IV != 0.2449 || res.Found() {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Value() != 0.2449 {
		t.Fatalf("legacy value should keep the current iterate, got %v", res.Value())
	}
}

func TestImpliedVolatility_FloorAppliesToSeed(t *testing.T) {
	// S=K 的期货期权种子为 0，首轮会被截断到 MinVolatility。
	p, err := Price(100, 100, 0, 30, 0.3, Call, FuturesStyle)
	if err != nil {
		t.Fatal(err)
	}
	res, err := ImpliedVolatility(100, p, 100, 0, 30, 1e-6, Call, FuturesStyle)
	if err != nil {
		t.Fatal(err)
	}
	if res.Seed.Volatility != 0 {
		t.Fatalf("expected zero seed, got %v", res.Seed.Volatility)
	}
	if res.Status != StatusConverged || !almostEqual(res.IV, 0.3, 1e-3) {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestImpliedVolatility_Deterministic(t *testing.T) {
	first, err := ImpliedVolatility(100, 3.5, 95, 0.025, 41, 1e-7, Put, EquityStyle)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 50; i++ {
		again, err := ImpliedVolatility(100, 3.5, 95, 0.025, 41, 1e-7, Put, EquityStyle)
		if err != nil {
			t.Fatal(err)
		}
		if math.Float64bits(again.IV) != math.Float64bits(first.IV) || again != first {
			t.Fatalf("non-deterministic result: %+v vs %+v", again, first)
		}
	}
}

func TestImpliedVolatility_RoundsToFourDecimals(t *testing.T) {
	for _, marketPrice := range []float64{0.37, 1.234567, 2.5, 4.75, 9.99, 15.3} {
		res, err := ImpliedVolatility(100, marketPrice, 100, 0.01, 60, 1e-6, Call, EquityStyle)
		if err != nil {
			t.Fatal(err)
		}
		scaled := res.IV * 1e4
		if !almostEqual(scaled, math.Round(scaled), 1e-6) {
			t.Fatalf("price=%v: iv %v has more than 4 decimals", marketPrice, res.IV)
		}
	}
}

func TestImpliedVolatility_InvalidInput(t *testing.T) {
	cases := []struct {
		name    string
		call    func() (Result, error)
		wantErr error
	}{
		{"zero strike", func() (Result, error) {
			return ImpliedVolatility(100, 2, 0, 0.03, 30, 1e-6, Call, EquityStyle)
		}, xerrors.ErrInvalidInput},
		{"zero days", func() (Result, error) {
			return ImpliedVolatility(100, 2, 100, 0.03, 0, 1e-6, Call, EquityStyle)
		}, xerrors.ErrInvalidInput},
		{"nan price", func() (Result, error) {
			return ImpliedVolatility(100, math.NaN(), 100, 0.03, 30, 1e-6, Call, EquityStyle)
		}, xerrors.ErrInvalidInput},
		{"rate overflows discount", func() (Result, error) {
			return ImpliedVolatility(90, 5, 100, -1e4, 30, 1e-6, Call, EquityStyle)
		}, xerrors.ErrInvalidInput},
		{"rate underflows discount", func() (Result, error) {
			return ImpliedVolatility(90, 5, 100, 1e308, 30, 1e-6, Call, EquityStyle)
		}, xerrors.ErrInvalidInput},
		{"zero epsilon", func() (Result, error) {
			return ImpliedVolatility(100, 2, 100, 0.03, 30, 0, Call, EquityStyle)
		}, xerrors.ErrInvalidTolerance},
		{"bad type", func() (Result, error) {
			return ImpliedVolatility(100, 2, 100, 0.03, 30, 1e-6, CallPut(0), EquityStyle)
		}, xerrors.ErrInvalidOptionType},
		{"bad style", func() (Result, error) {
			return ImpliedVolatility(100, 2, 100, 0.03, 30, 1e-6, Put, OptionStyle(3))
		}, xerrors.ErrInvalidOptionStyle},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := tc.call()
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v (%+v)", tc.wantErr, err, res)
			}
		})
	}
}

func TestImpliedVolatility_LargeFiniteRateStaysFinite(t *testing.T) {
	// |r·t| 接近上限时仍应得到有限结果或明确的状态。
	for _, rate := range []float64{-8000, 8000} {
		res, err := ImpliedVolatility(90, 5, 100, rate, 30, 1e-6, Call, EquityStyle)
		if err != nil {
			if !errors.Is(err, xerrors.ErrInvalidInput) {
				t.Fatalf("rate=%v: unexpected error %v", rate, err)
			}
			continue
		}
		if !isFinite(res.IV) {
			t.Fatalf("rate=%v: non-finite iv %+v", rate, res)
		}
	}
}

func TestRoundVolatility_ExactBinaryValue(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0.00015, 0.0001}, // 实际存储值 0.000149999...
		{0.30005, 0.3},    // 实际存储值 0.300049999...
		{0.03125, 0.0312}, // 精确的二进制平局，取偶数
		{0.09375, 0.0938},
		{0.24494897427831783, 0.2449},
		{-0.12345678, -0.1235},
		{2.67994, 2.6799},
	}
	for _, tc := range cases {
		if got := roundVolatility(tc.in); got != tc.want {
			t.Errorf("roundVolatility(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
