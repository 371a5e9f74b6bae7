package finance

import (
	"math"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/ivcalc/xerrors"
)

// ImpliedVolatility 以牛顿-拉夫森法由市场价格反推隐含波动率。
//
// 求解顺序：
//  1. 市价非正 → StatusNoSolution。
//  2. 市价未超过内在价值下界（看涨 (S-K)·e^(-rt)，看跌 K·e^(-rt)-S）→ StatusNoSolution。
//  3. 以 SeedVolatility 为初值迭代至多 MaxIterations 次，每轮先把波动率下限截断到 MinVolatility。
//  4. vega 为零或小于 epsilon 时停止（StatusVegaCollapsed）；牛顿步长绝对值小于 epsilon 时收敛。
//  5. 结果按二进制精确值四舍六入五成双，保留 ResultPrecision 位小数。
//
// 参数越界返回 xerrors.ErrInvalidInput / ErrInvalidTolerance；迭代发散出非有限值同样返回 ErrInvalidInput。
// 无解不视为错误。
func ImpliedVolatility(spot, marketPrice, strike, rate, daysToExpiry, epsilon float64, cp CallPut, style OptionStyle) (Result, error) {
	if err := validateContract(spot, strike, rate, daysToExpiry); err != nil {
		return Result{}, err
	}
	if !isFinite(marketPrice) {
		return Result{}, xerrors.Invalid(xerrors.ErrInvalidInput, "market price must be finite, got %v", marketPrice)
	}
	if !isFinite(epsilon) || epsilon <= 0 {
		return Result{}, xerrors.Invalid(xerrors.ErrInvalidTolerance, "epsilon %v", epsilon)
	}
	if !cp.Valid() {
		return Result{}, xerrors.Invalid(xerrors.ErrInvalidOptionType, "option type %d", cp)
	}
	if !style.Valid() {
		return Result{}, xerrors.Invalid(xerrors.ErrInvalidOptionStyle, "option style %d", style)
	}

	if marketPrice <= 0 || !exceedsIntrinsic(spot, marketPrice, strike, rate, daysToExpiry, cp) {
		return Result{Status: StatusNoSolution}, nil
	}

	seed := seedVolatility(spot, strike, rate, daysToExpiry, style)
	iv := seed.Volatility
	res := Result{Status: StatusExhausted, Seed: seed}

	for i := 0; i < MaxIterations; i++ {
		iv = math.Max(iv, MinVolatility)

		theory := price(spot, strike, rate, daysToExpiry, iv, cp, style)
		v := vega(spot, strike, rate, daysToExpiry, iv)
		if v == 0 || v < epsilon || math.IsNaN(v) {
			res.Status = StatusVegaCollapsed
			break
		}

		step := (marketPrice - theory) / v
		if math.Abs(step) < epsilon {
			res.Status = StatusConverged
			break
		}

		iv += step
		res.Iterations++
	}

	if !isFinite(iv) {
		return Result{}, xerrors.Invalid(xerrors.ErrInvalidInput,
			"iteration diverged to %v after %d steps, spot=%v strike=%v rate=%v days=%v", iv, res.Iterations, spot, strike, rate, daysToExpiry)
	}

	res.IV = roundVolatility(iv)
	return res, nil
}

// exceedsIntrinsic 检查市价是否高于其远期内在价值。
func exceedsIntrinsic(spot, marketPrice, strike, rate, daysToExpiry float64, cp CallPut) bool {
	discount := math.Exp(-rate * daysToExpiry / DaysPerYear)
	if cp == Call {
		return marketPrice > (spot-strike)*discount
	}
	return marketPrice > strike*discount-spot
}

// exactExponent 最小次正规数的二进制指数，NewFromFloatWithExponent 以此展开得到精确十进制值。
const exactExponent = -1074

// roundVolatility 对 float64 的精确二进制值做银行家舍入。
// 0.30005 的实际存储值略小于 0.30005，因此结果为 0.3。
func roundVolatility(iv float64) float64 {
	return decimal.NewFromFloatWithExponent(iv, exactExponent).RoundBank(ResultPrecision).InexactFloat64()
}
