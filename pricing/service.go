// Package pricing 在 finance 定价内核之上提供带校验、缓存、指标与追踪的应用服务及 HTTP 接口。
package pricing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/wyfcoding/ivcalc/algorithm/finance"
	"github.com/wyfcoding/ivcalc/cache"
	"github.com/wyfcoding/ivcalc/config"
	"github.com/wyfcoding/ivcalc/logging"
	"github.com/wyfcoding/ivcalc/metrics"
	"github.com/wyfcoding/ivcalc/tracing"
	"github.com/wyfcoding/ivcalc/xerrors"
)

const (
	opPrice = "price"
	opIV    = "iv"
	opSeed  = "seed"
	opVega  = "vega"

	outcomeOK    = "ok"
	outcomeError = "error"

	// DefaultEpsilon 未配置时的收敛精度。
	DefaultEpsilon = 1e-6
)

// Options NewService 的依赖项。Cache 与 Metrics 可以为空。
type Options struct {
	Logger       *logging.Logger
	Metrics      *metrics.Metrics
	Cache        cache.Cache
	CacheTTL     time.Duration
	Epsilon      float64
	DefaultStyle finance.OptionStyle
}

// Service 定价应用服务，所有方法可并发调用。
type Service struct {
	logger   *logging.Logger
	metrics  *metrics.Metrics
	cache    cache.Cache
	cacheTTL time.Duration
	validate *validator.Validate

	epsilon atomic.Uint64 // math.Float64bits
	style   atomic.Int32
}

// NewService 创建定价服务。
func NewService(opts Options) *Service {
	s := &Service{
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		validate: validator.New(),
	}
	if s.logger == nil {
		s.logger = logging.Default()
	}
	s.SetEpsilon(opts.Epsilon)
	s.SetDefaultStyle(opts.DefaultStyle)
	return s
}

// SetEpsilon 更新默认收敛精度，非正值或非有限值回退到 DefaultEpsilon。
func (s *Service) SetEpsilon(eps float64) {
	if !(eps > 0) || math.IsInf(eps, 0) {
		eps = DefaultEpsilon
	}
	s.epsilon.Store(math.Float64bits(eps))
}

// Epsilon 返回当前默认收敛精度。
func (s *Service) Epsilon() float64 {
	return math.Float64frombits(s.epsilon.Load())
}

// SetDefaultStyle 更新请求未指定风格时使用的默认风格，非法值回退到股票期权。
func (s *Service) SetDefaultStyle(style finance.OptionStyle) {
	if !style.Valid() {
		style = finance.EquityStyle
	}
	s.style.Store(int32(style))
}

// DefaultStyle 返回当前默认期权风格。
func (s *Service) DefaultStyle() finance.OptionStyle {
	return finance.OptionStyle(s.style.Load())
}

// ApplyConfig 作为配置热更新回调，刷新求解器默认参数。
func (s *Service) ApplyConfig(conf *config.Config) {
	s.SetEpsilon(conf.Solver.Epsilon)
	if conf.Solver.DefaultStyle != "" {
		if style, err := finance.ParseOptionStyle(conf.Solver.DefaultStyle); err == nil {
			s.SetDefaultStyle(style)
		}
	}
	s.logger.Info("solver defaults reloaded", "epsilon", s.Epsilon(), "default_style", s.DefaultStyle().String())
}

// Price 计算理论价格，并附带同参数下的 vega。
func (s *Service) Price(ctx context.Context, cmd PriceCommand) (res *PriceResult, err error) {
	ctx, done := s.begin(ctx, opPrice)
	defer func() { done(err, outcomeOf(err)) }()

	if err = s.check(cmd); err != nil {
		return nil, err
	}
	cp, style, err := s.parseKinds(cmd.Type, cmd.Style)
	if err != nil {
		return nil, err
	}

	price, err := finance.Price(cmd.Spot, cmd.Strike, cmd.Rate, cmd.DaysToExpiry, cmd.Volatility, cp, style)
	if err != nil {
		return nil, err
	}
	vega, err := finance.Vega(cmd.Spot, cmd.Strike, cmd.Rate, cmd.DaysToExpiry, cmd.Volatility)
	if err != nil {
		return nil, err
	}
	tracing.AddTag(ctx, "option.price", price)
	return &PriceResult{Price: price, Vega: vega}, nil
}

// ImpliedVol 从市场价格反解隐含波动率。无解与未收敛通过 Status 表达，不作为错误返回。
func (s *Service) ImpliedVol(ctx context.Context, cmd ImpliedVolCommand) (res *ImpliedVolResult, err error) {
	ctx, done := s.begin(ctx, opIV)
	outcome := outcomeError
	defer func() { done(err, outcome) }()

	if err = s.check(cmd); err != nil {
		return nil, err
	}
	cp, style, err := s.parseKinds(cmd.Type, cmd.Style)
	if err != nil {
		return nil, err
	}
	eps := cmd.Epsilon
	if eps == 0 {
		eps = s.Epsilon()
	}

	key := ivCacheKey(cmd.Spot, cmd.MarketPrice, cmd.Strike, cmd.Rate, cmd.DaysToExpiry, eps, cp, style)
	if cached, ok := s.lookup(ctx, key); ok {
		outcome = cached.Status
		tracing.AddTag(ctx, "cache.hit", true)
		return cached, nil
	}

	finish := logging.LogDuration(ctx, "implied volatility solve", "type", cp.String(), "style", style.String())
	r, err := finance.ImpliedVolatility(cmd.Spot, cmd.MarketPrice, cmd.Strike, cmd.Rate, cmd.DaysToExpiry, eps, cp, style)
	finish()
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveSolve(r.Status.String(), r.Iterations)
	if r.Status == finance.StatusExhausted {
		s.logger.WarnContext(ctx, "implied volatility did not converge within iteration cap",
			"iterations", r.Iterations, "last_iterate", r.IV, "market_price", cmd.MarketPrice)
	}

	tracing.AddTag(ctx, "solver.status", r.Status.String())
	tracing.AddTag(ctx, "solver.iterations", r.Iterations)

	res = newImpliedVolResult(r, eps)
	s.store(ctx, key, res)
	outcome = res.Status
	return res, nil
}

// Seed 返回求解器使用的解析初值。
func (s *Service) Seed(ctx context.Context, cmd SeedCommand) (res *SeedResult, err error) {
	_, done := s.begin(ctx, opSeed)
	defer func() { done(err, outcomeOf(err)) }()

	if err = s.check(cmd); err != nil {
		return nil, err
	}
	style, err := s.parseStyle(cmd.Style)
	if err != nil {
		return nil, err
	}
	seed, err := finance.SeedVolatility(cmd.Spot, cmd.Strike, cmd.Rate, cmd.DaysToExpiry, style)
	if err != nil {
		return nil, err
	}
	return &SeedResult{Volatility: seed.Volatility, Reflected: seed.Reflected}, nil
}

// Vega 计算价格对波动率的敏感度。
func (s *Service) Vega(ctx context.Context, cmd VegaCommand) (res *VegaResult, err error) {
	_, done := s.begin(ctx, opVega)
	defer func() { done(err, outcomeOf(err)) }()

	v, err := finance.Vega(cmd.Spot, cmd.Strike, cmd.Rate, cmd.DaysToExpiry, cmd.Volatility)
	if err != nil {
		return nil, err
	}
	return &VegaResult{Vega: v}, nil
}

// begin 开启 Span 并返回收尾函数，收尾时记录耗时、结果计数与错误。
func (s *Service) begin(ctx context.Context, op string) (context.Context, func(error, string)) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "pricing."+op)
	return ctx, func(err error, outcome string) {
		if err != nil {
			tracing.SetError(ctx, err)
			s.logger.WarnContext(ctx, "pricing operation rejected", "op", op, "error", err)
		}
		s.metrics.ObserveOperation(op, outcome, time.Since(start))
		span.End()
	}
}

func outcomeOf(err error) string {
	if err != nil {
		return outcomeError
	}
	return outcomeOK
}

func (s *Service) check(cmd any) error {
	if err := s.validate.Struct(cmd); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return xerrors.Invalid(xerrors.ErrInvalidInput, "%s must satisfy %s %s, got %v", fe.Field(), fe.Tag(), fe.Param(), fe.Value())
		}
		return xerrors.Invalid(xerrors.ErrInvalidInput, "%v", err)
	}
	return nil
}

func (s *Service) parseKinds(typ, style string) (finance.CallPut, finance.OptionStyle, error) {
	cp, err := finance.ParseCallPut(typ)
	if err != nil {
		return 0, 0, err
	}
	st, err := s.parseStyle(style)
	if err != nil {
		return 0, 0, err
	}
	return cp, st, nil
}

func (s *Service) parseStyle(style string) (finance.OptionStyle, error) {
	if strings.TrimSpace(style) == "" {
		return s.DefaultStyle(), nil
	}
	return finance.ParseOptionStyle(style)
}

// ivCacheKey 使用 %g 的最短往返表示，保证相同输入得到相同键。
func ivCacheKey(spot, price, strike, rate, days, eps float64, cp finance.CallPut, style finance.OptionStyle) string {
	parts := []string{
		strconv.FormatFloat(spot, 'g', -1, 64),
		strconv.FormatFloat(price, 'g', -1, 64),
		strconv.FormatFloat(strike, 'g', -1, 64),
		strconv.FormatFloat(rate, 'g', -1, 64),
		strconv.FormatFloat(days, 'g', -1, 64),
		strconv.FormatFloat(eps, 'g', -1, 64),
		cp.String(),
		style.String(),
	}
	return "iv:" + strings.Join(parts, "|")
}

func (s *Service) lookup(ctx context.Context, key string) (*ImpliedVolResult, bool) {
	if s.cache == nil {
		return nil, false
	}
	var res ImpliedVolResult
	err := s.cache.Get(ctx, key, &res)
	switch {
	case err == nil:
		s.metrics.ObserveCache("hit")
		res.Cached = true
		return &res, true
	case errors.Is(err, xerrors.ErrCacheMiss):
		s.metrics.ObserveCache("miss")
	default:
		s.metrics.ObserveCache("error")
		s.logger.WarnContext(ctx, "iv cache lookup failed", "key", key, "error", err)
	}
	return nil, false
}

func (s *Service) store(ctx context.Context, key string, res *ImpliedVolResult) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, res, s.cacheTTL); err != nil {
		s.logger.WarnContext(ctx, "iv cache store failed", "key", key, "error", fmt.Errorf("set: %w", err))
	}
}
