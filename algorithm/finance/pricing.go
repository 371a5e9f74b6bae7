package finance

import (
	"math"

	"github.com/wyfcoding/ivcalc/xerrors"
)

// Price 按广义 BSM 公式计算期权理论价格。
//
// 股票期权 b = r；期货期权 b = 0 且 r 视为 0。
//
//	d1 = (ln(S/K) + (b + v²/2)t) / (v√t)，d2 = d1 - v√t
//	call = S·e^((b-r)t)·Φ(d1) - K·e^(-rt)·Φ(d2)
//	put  = K·e^(-rt)·Φ(-d2) - S·e^((b-r)t)·Φ(-d1)
func Price(spot, strike, rate, daysToExpiry, vol float64, cp CallPut, style OptionStyle) (float64, error) {
	if err := validateContract(spot, strike, rate, daysToExpiry); err != nil {
		return 0, err
	}
	if !isFinite(vol) || vol <= 0 {
		return 0, xerrors.Invalid(xerrors.ErrInvalidInput, "volatility must be positive, got %v", vol)
	}
	if !cp.Valid() {
		return 0, xerrors.Invalid(xerrors.ErrInvalidOptionType, "option type %d", cp)
	}
	if !style.Valid() {
		return 0, xerrors.Invalid(xerrors.ErrInvalidOptionStyle, "option style %d", style)
	}
	return price(spot, strike, rate, daysToExpiry, vol, cp, style), nil
}

// price 是 Price 去掉参数校验后的版本，供求解器在循环内调用。
func price(spot, strike, rate, daysToExpiry, vol float64, cp CallPut, style OptionStyle) float64 {
	b, r := style.carry(rate)
	t := daysToExpiry / DaysPerYear
	volSqrtT := vol * math.Sqrt(t)

	d1 := (math.Log(spot/strike) + (b+0.5*vol*vol)*t) / volSqrtT
	d2 := d1 - volSqrtT

	carried := spot * math.Exp((b-r)*t)
	discounted := strike * math.Exp(-r*t)

	if cp == Call {
		return carried*normCDF(d1) - discounted*normCDF(d2)
	}
	return discounted*normCDF(-d2) - carried*normCDF(-d1)
}

// Vega 计算价格对波动率的一阶敏感度，作为牛顿迭代的分母。
// 波动率为负时直接返回 0。
//
// d1 不含持有成本 b，期货期权下这是一个近似值。
func Vega(spot, strike, rate, daysToExpiry, vol float64) (float64, error) {
	if vol < 0 {
		return 0, nil
	}
	if err := validateContract(spot, strike, rate, daysToExpiry); err != nil {
		return 0, err
	}
	if !isFinite(vol) || vol == 0 {
		return 0, xerrors.Invalid(xerrors.ErrInvalidInput, "volatility must be positive, got %v", vol)
	}
	return vega(spot, strike, rate, daysToExpiry, vol), nil
}

func vega(spot, strike, rate, daysToExpiry, vol float64) float64 {
	t := daysToExpiry / DaysPerYear
	sqrtT := math.Sqrt(t)
	d1 := (math.Log(spot/strike) + 0.5*vol*vol*t) / (vol * sqrtT)
	return spot * math.Exp(-rate*t) * normPDF(d1) * sqrtT
}

// SeedVolatility 计算牛顿迭代的初始波动率（Brenner-Subrahmanyam / Manaster-Koehler 类近似）。
//
//	股票期权：√(|ln(S/K) + r·t| · 2/t)
//	期货期权：√(|ln(S/K)| · 2/t)
func SeedVolatility(spot, strike, rate, daysToExpiry float64, style OptionStyle) (Seed, error) {
	if err := validateContract(spot, strike, rate, daysToExpiry); err != nil {
		return Seed{}, err
	}
	if !style.Valid() {
		return Seed{}, xerrors.Invalid(xerrors.ErrInvalidOptionStyle, "option style %d", style)
	}
	return seedVolatility(spot, strike, rate, daysToExpiry, style), nil
}

func seedVolatility(spot, strike, rate, daysToExpiry float64, style OptionStyle) Seed {
	t := daysToExpiry / DaysPerYear
	term := math.Log(spot / strike)
	if style == EquityStyle {
		term += rate * t
	}
	return Seed{
		Volatility: math.Sqrt(math.Abs(term) * (2 / t)),
		Reflected:  term < 0,
	}
}

// maxRateTime |r·t| 的上限，保证贴现因子在 float64 内有限且非零。
const maxRateTime = 700.0

func validateContract(spot, strike, rate, daysToExpiry float64) error {
	switch {
	case !isFinite(spot) || spot <= 0:
		return xerrors.Invalid(xerrors.ErrInvalidInput, "spot must be positive, got %v", spot)
	case !isFinite(strike) || strike <= 0:
		return xerrors.Invalid(xerrors.ErrInvalidInput, "strike must be positive, got %v", strike)
	case !isFinite(rate):
		return xerrors.Invalid(xerrors.ErrInvalidInput, "rate must be finite, got %v", rate)
	case !isFinite(daysToExpiry) || daysToExpiry <= 0:
		return xerrors.Invalid(xerrors.ErrInvalidInput, "days to expiry must be positive, got %v", daysToExpiry)
	case math.Abs(rate*daysToExpiry/DaysPerYear) > maxRateTime:
		// 超出后 e^(±rt) 溢出为 Inf 或下溢为 0，定价与 vega 都会退化为 NaN。
		return xerrors.Invalid(xerrors.ErrInvalidInput, "rate*t out of range, rate=%v days=%v", rate, daysToExpiry)
	}
	return nil
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
