// Package app 管理服务进程的生命周期：并发启动服务器、监听退出信号、逆序清理资源。
package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/wyfcoding/ivcalc/server"
	"golang.org/x/sync/errgroup"
)

// App 应用容器。
type App struct {
	name   string
	logger *slog.Logger
	opts   options
}

// New 创建应用实例。
func New(name string, logger *slog.Logger, opts ...Option) *App {
	o := options{}
	// 依次应用 Option，配置服务器与清理函数。
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &App{name: name, logger: logger, opts: o}
}

// Run 阻塞运行直到 ctx 取消、收到 SIGINT/SIGTERM 或任一服务器失败。
// 任一服务器失败都会让其余服务器一并优雅关闭。
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("application starting", "name", a.name, "pid", os.Getpid(), "servers", len(a.opts.servers))

	// 监听中断信号（SIGINT, Ctrl+C）和终止信号（SIGTERM）。
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 每个服务器在独立 goroutine 中阻塞运行；任一返回错误都会取消 gctx。
	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range a.opts.servers {
		g.Go(func() error {
			return srv.Start(gctx)
		})
	}
	err := g.Wait()

	a.logger.Info("shutting down application", "name", a.name)
	// 按注册的逆序执行清理，后创建的资源先释放。
	for i := len(a.opts.cleanups) - 1; i >= 0; i-- {
		a.opts.cleanups[i]()
	}

	if err != nil {
		a.logger.Error("application stopped with error", "name", a.name, "error", err)
		return err
	}
	a.logger.Info("application shut down gracefully", "name", a.name)
	return nil
}

var _ server.Server = (*funcServer)(nil)

// funcServer 将一对启停函数适配为 server.Server，用于独立的指标端口等轻量服务。
type funcServer struct {
	start func(ctx context.Context) error
	stop  func(ctx context.Context) error
}

// ServerFunc 由启停函数构造 server.Server，stop 可以为空。
func ServerFunc(start, stop func(ctx context.Context) error) server.Server {
	return &funcServer{start: start, stop: stop}
}

func (s *funcServer) Start(ctx context.Context) error { return s.start(ctx) }

func (s *funcServer) Stop(ctx context.Context) error {
	if s.stop == nil {
		return nil
	}
	return s.stop(ctx)
}
