package xerrors

var (
	// ErrInvalidInput 定价参数越界（非正的标的价、行权价、到期天数或波动率，或出现 NaN/Inf）。
	ErrInvalidInput = New(ErrInvalidArg, 400002, "invalid input", "check your input parameters", nil)
	// ErrInvalidConfig 配置错误。
	ErrInvalidConfig = New(ErrInvalidArg, 400005, "invalid config", "configuration failed validation", nil)
	// ErrInvalidOptionType 无效的看涨/看跌类型。
	ErrInvalidOptionType = New(ErrInvalidArg, 400004, "invalid option type", "supported types: call, put", nil)
	// ErrInvalidOptionStyle 无效的期权风格。
	ErrInvalidOptionStyle = New(ErrInvalidArg, 400019, "invalid option style", "supported styles: equity, futures", nil)
	// ErrInvalidTolerance 收敛精度必须为正。
	ErrInvalidTolerance = New(ErrInvalidArg, 400020, "invalid tolerance", "epsilon must be a positive finite number", nil)
	// ErrCacheMiss 缓存未命中。
	ErrCacheMiss = New(ErrNotFound, 404001, "cache miss", "", nil)
	// ErrRateLimited 请求超过限流阈值。
	ErrRateLimited = New(ErrLimitExceeded, 429001, "too many requests", "access rate limit exceeded", nil)
)
