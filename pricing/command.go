package pricing

import "github.com/wyfcoding/ivcalc/algorithm/finance"

// PriceCommand 理论价格计算命令。Type 取 call/put，Style 为空时使用服务默认风格。
type PriceCommand struct {
	Spot         float64 `json:"spot"           validate:"gt=0"`
	Strike       float64 `json:"strike"         validate:"gt=0"`
	Rate         float64 `json:"rate"`
	DaysToExpiry float64 `json:"days_to_expiry" validate:"gt=0"`
	Volatility   float64 `json:"volatility"     validate:"gt=0"`
	Type         string  `json:"type"           validate:"required"`
	Style        string  `json:"style"`
}

// PriceResult 理论价格及同参数下的 vega。
type PriceResult struct {
	Price float64 `json:"price"`
	Vega  float64 `json:"vega"`
}

// ImpliedVolCommand 隐含波动率反解命令。Epsilon 为 0 时使用配置中的默认精度。
type ImpliedVolCommand struct {
	Spot         float64 `json:"spot"           validate:"gt=0"`
	MarketPrice  float64 `json:"market_price"`
	Strike       float64 `json:"strike"         validate:"gt=0"`
	Rate         float64 `json:"rate"`
	DaysToExpiry float64 `json:"days_to_expiry" validate:"gt=0"`
	Epsilon      float64 `json:"epsilon"`
	Type         string  `json:"type"           validate:"required"`
	Style        string  `json:"style"`
}

// ImpliedVolResult 反解结果。Status 为 no_solution 时 ImpliedVol 恒为 0。
type ImpliedVolResult struct {
	ImpliedVol     float64 `json:"implied_vol"`
	Status         string  `json:"status"`
	Found          bool    `json:"found"`
	Iterations     int     `json:"iterations"`
	SeedVolatility float64 `json:"seed_volatility"`
	SeedReflected  bool    `json:"seed_reflected"`
	Epsilon        float64 `json:"epsilon"`
	Cached         bool    `json:"cached"`
}

// SeedCommand 初始波动率估计命令。
type SeedCommand struct {
	Spot         float64 `json:"spot"           validate:"gt=0"`
	Strike       float64 `json:"strike"         validate:"gt=0"`
	Rate         float64 `json:"rate"`
	DaysToExpiry float64 `json:"days_to_expiry" validate:"gt=0"`
	Style        string  `json:"style"`
}

// SeedResult 初始波动率估计结果。
type SeedResult struct {
	Volatility float64 `json:"volatility"`
	Reflected  bool    `json:"reflected"`
}

// VegaCommand vega 计算命令。波动率为负时结果恒为 0，因此这里不做字段约束。
type VegaCommand struct {
	Spot         float64 `json:"spot"`
	Strike       float64 `json:"strike"`
	Rate         float64 `json:"rate"`
	DaysToExpiry float64 `json:"days_to_expiry"`
	Volatility   float64 `json:"volatility"`
}

// VegaResult vega 计算结果。
type VegaResult struct {
	Vega float64 `json:"vega"`
}

func newImpliedVolResult(res finance.Result, epsilon float64) *ImpliedVolResult {
	return &ImpliedVolResult{
		ImpliedVol:     res.Value(),
		Status:         res.Status.String(),
		Found:          res.Found(),
		Iterations:     res.Iterations,
		SeedVolatility: res.Seed.Volatility,
		SeedReflected:  res.Seed.Reflected,
		Epsilon:        epsilon,
	}
}
