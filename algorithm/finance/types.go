// Package finance - 广义 Black-Scholes-Merton 期权定价与隐含波动率求解。
//
// 包内函数均为纯函数：不持有状态、不做 I/O，可被任意 goroutine 并发调用。
// 到期时间一律以自然日传入，内部按 DaysPerYear 年化。
package finance

import (
	"strings"

	"github.com/wyfcoding/ivcalc/xerrors"
)

const (
	// DaysPerYear 年化天数。
	DaysPerYear = 365.0
	// MaxIterations 牛顿迭代次数上限，也是求解耗时的唯一上界。
	MaxIterations = 1000
	// MinVolatility 迭代过程中波动率的下限。
	MinVolatility = 0.01
	// ResultPrecision 隐含波动率结果保留的小数位数。
	ResultPrecision = 4
)

// CallPut 看涨 / 看跌。
type CallPut int8

const (
	Call CallPut = iota + 1
	Put
)

// Valid 判断取值是否落在枚举内。
func (c CallPut) Valid() bool {
	return c == Call || c == Put
}

func (c CallPut) String() string {
	switch c {
	case Call:
		return "call"
	case Put:
		return "put"
	default:
		return "unknown"
	}
}

// ParseCallPut 解析 "call"/"put"（兼容 "c"/"p" 以及旧接口的 "1"/"0"）。
func ParseCallPut(s string) (CallPut, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c", "1":
		return Call, nil
	case "put", "p", "0":
		return Put, nil
	default:
		return 0, xerrors.Invalid(xerrors.ErrInvalidOptionType, "unknown option type %q", s)
	}
}

// OptionStyle 决定持有成本 b 的取法。
type OptionStyle int8

const (
	// EquityStyle 欧式股票期权，b = r。
	EquityStyle OptionStyle = iota + 1
	// FuturesStyle 期货 / 远期期权，b = 0 且 r 视为 0。
	FuturesStyle
)

// Valid 判断取值是否落在枚举内。
func (s OptionStyle) Valid() bool {
	return s == EquityStyle || s == FuturesStyle
}

func (s OptionStyle) String() string {
	switch s {
	case EquityStyle:
		return "equity"
	case FuturesStyle:
		return "futures"
	default:
		return "unknown"
	}
}

// ParseOptionStyle 解析 "equity"/"futures"（兼容 "european"/"forward" 以及旧接口的 "1"/"0"）。
func ParseOptionStyle(s string) (OptionStyle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "equity", "european", "stock", "1":
		return EquityStyle, nil
	case "futures", "future", "forward", "0":
		return FuturesStyle, nil
	default:
		return 0, xerrors.Invalid(xerrors.ErrInvalidOptionStyle, "unknown option style %q", s)
	}
}

// carry 返回持有成本 b 与实际参与折现的利率。
func (s OptionStyle) carry(rate float64) (b, r float64) {
	if s == FuturesStyle {
		return 0, 0
	}
	return rate, rate
}

// Seed 初始波动率估计。
type Seed struct {
	Volatility float64
	// Reflected 为 true 表示根号内原始项为负，已取绝对值。
	Reflected bool
}

// Status 隐含波动率求解的终止原因。
type Status int8

const (
	// StatusNoSolution 市价非正或未超过内在价值下界，模型无法从中提取时间价值。
	StatusNoSolution Status = iota
	// StatusConverged 牛顿步长小于 epsilon。
	StatusConverged
	// StatusExhausted 达到 MaxIterations 仍未收敛，IV 为最后一次迭代值。
	StatusExhausted
	// StatusVegaCollapsed vega 为零或低于 epsilon，无法继续迭代，IV 为当前迭代值。
	StatusVegaCollapsed
)

func (s Status) String() string {
	switch s {
	case StatusNoSolution:
		return "no_solution"
	case StatusConverged:
		return "converged"
	case StatusExhausted:
		return "exhausted"
	case StatusVegaCollapsed:
		return "vega_collapsed"
	default:
		return "unknown"
	}
}

// Result 隐含波动率求解结果。
type Result struct {
	IV         float64
	Status     Status
	Iterations int
	Seed       Seed
}

// Found 是否得到了可用的隐含波动率。
func (r Result) Found() bool {
	return r.Status == StatusConverged || r.Status == StatusExhausted
}

// Value 返回单一数值形式的结果：无解时为 0，其余情况为四舍五入后的 IV。
func (r Result) Value() float64 {
	if r.Status == StatusNoSolution {
		return 0
	}
	return r.IV
}
