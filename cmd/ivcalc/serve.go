package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/wyfcoding/ivcalc/algorithm/finance"
	"github.com/wyfcoding/ivcalc/app"
	"github.com/wyfcoding/ivcalc/cache"
	"github.com/wyfcoding/ivcalc/config"
	"github.com/wyfcoding/ivcalc/health"
	"github.com/wyfcoding/ivcalc/idgen"
	"github.com/wyfcoding/ivcalc/limiter"
	"github.com/wyfcoding/ivcalc/logging"
	"github.com/wyfcoding/ivcalc/metrics"
	"github.com/wyfcoding/ivcalc/middleware"
	"github.com/wyfcoding/ivcalc/pricing"
	"github.com/wyfcoding/ivcalc/server"
	"github.com/wyfcoding/ivcalc/tracing"
)

const maxRequestBody = 64 << 10

func runServe(ctx context.Context, args []string, stderr io.Writer) error {
	flags := flag.NewFlagSet("serve", flag.ContinueOnError)
	flags.SetOutput(stderr)
	confPath := flags.String("config", "configs/ivcalc.toml", "path to config file, empty for defaults and env only")
	envFile := flags.String("env", ".env", "dotenv file loaded before the config")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}

	loader := config.NewLoader()
	conf, err := loader.Load(*confPath)
	if err != nil {
		return err
	}

	logger := logging.NewFromConfig(logging.Config{
		Service:    conf.Server.Name,
		Module:     "server",
		Level:      conf.Log.Level,
		File:       conf.Log.File,
		MaxSize:    conf.Log.MaxSize,
		MaxBackups: conf.Log.MaxBackups,
		MaxAge:     conf.Log.MaxAge,
		Compress:   conf.Log.Compress,
		Output:     stderr,
	})
	logging.SetDefault(logger)
	config.PrintWithMask(conf)

	if err := idgen.Init(conf.Snowflake); err != nil {
		return fmt.Errorf("init id generator: %w", err)
	}

	shutdownTracer, err := tracing.InitTracer(conf.Tracing)
	if err != nil {
		return err
	}

	opts := []app.Option{
		app.WithCleanup(func() {
			if err := shutdownTracer(context.Background()); err != nil {
				logger.Error("tracer shutdown failed", "error", err)
			}
		}),
	}

	m := metrics.NewMetrics(conf.Server.Name)
	m.RegisterBuildInfo(conf.Server.Name, version)

	svcOpts := pricing.Options{
		Logger:   logger,
		Metrics:  m,
		CacheTTL: conf.Cache.TTL,
		Epsilon:  conf.Solver.Epsilon,
	}
	if style, err := finance.ParseOptionStyle(conf.Solver.DefaultStyle); err == nil {
		svcOpts.DefaultStyle = style
	}
	checks := map[string]health.Checker{}
	if conf.Cache.Enabled {
		c, err := cache.NewBigCache(conf.Cache.TTL, conf.Cache.MaxMB)
		if err != nil {
			return err
		}
		ivCache := c.WithPrefix("ivcalc")
		svcOpts.Cache = ivCache
		checks["cache"] = health.CacheChecker(ivCache)
		opts = append(opts, app.WithCleanup(func() { _ = c.Close() }))
	}
	svc := pricing.NewService(svcOpts)

	rl := limiter.NewDynamicLocalLimiter(rateOf(conf.RateLimit), conf.RateLimit.Burst)

	loader.RegisterReloadHook(svc.ApplyConfig)
	loader.RegisterReloadHook(func(next *config.Config) {
		rl.UpdateLocal(rateOf(next.RateLimit), next.RateLimit.Burst)
	})
	if *confPath != "" {
		loader.Watch()
	}

	if conf.Server.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := server.NewDefaultGinEngine(
		middleware.Recovery(logger.Logger),
		middleware.RequestID(),
		middleware.Tracing(conf.Server.Name),
		middleware.Logger(logger.Logger),
		middleware.HTTPMetrics(m, "/health", conf.Metrics.Path),
		middleware.MaxBodyBytes(maxRequestBody),
	)
	engine.GET("/health", health.Handler(conf.Server.Name, version, checks))

	if conf.Metrics.Enabled {
		if conf.Metrics.Port == "" {
			engine.GET(conf.Metrics.Path, gin.WrapH(m.Handler()))
		} else {
			stopMetrics := m.ExposeHTTP(conf.Metrics.Port, conf.Metrics.Path)
			opts = append(opts, app.WithCleanup(stopMetrics))
		}
	}

	api := engine.Group("", middleware.RateLimit(rl))
	pricing.NewHandler(svc).RegisterRoutes(api)
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "msg": "route not found"})
	})

	httpServer := server.NewGinServer(engine, conf.HTTPAddr(), logger.Logger, server.Options{
		ReadTimeout:  conf.Server.HTTP.ReadTimeout,
		WriteTimeout: conf.Server.HTTP.WriteTimeout,
		IdleTimeout:  conf.Server.HTTP.IdleTimeout,
	})
	opts = append(opts, app.WithServer(httpServer))

	return app.New(conf.Server.Name, logger.Logger, opts...).Run(ctx)
}

// rateOf 限流关闭时返回 0，DynamicLimiter 会放行全部请求。
func rateOf(rc config.RateLimitConfig) float64 {
	if !rc.Enabled {
		return 0
	}
	return rc.Rate
}
