package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 5 * time.Second

var _ Server = (*GinServer)(nil)

// Options 控制 HTTP 服务器的超时参数，零值使用 net/http 默认行为。
type Options struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// GinServer 封装运行 Gin 引擎的 http.Server，支持优雅关闭。
type GinServer struct {
	server *http.Server
	addr   string
	logger *slog.Logger
}

// NewGinServer 创建 Gin 服务器实例。
func NewGinServer(engine *gin.Engine, addr string, logger *slog.Logger, opts Options) *GinServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &GinServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           engine,
			ReadTimeout:       opts.ReadTimeout,
			ReadHeaderTimeout: opts.ReadTimeout,
			WriteTimeout:      opts.WriteTimeout,
			IdleTimeout:       opts.IdleTimeout,
		},
		addr:   addr,
		logger: logger,
	}
}

// Start 启动监听并阻塞，ctx 取消时执行优雅关闭。
func (s *GinServer) Start(ctx context.Context) error {
	s.logger.Info("starting gin server", "addr", s.addr)

	errChan := make(chan error, 1)
	// 在 goroutine 中启动 HTTP 服务器
	go func() {
		// ListenAndServe 会阻塞到服务器关闭，ErrServerClosed 属于正常退出。
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// 监听上下文取消或监听失败
	select {
	case <-ctx.Done():
		// 上下文被取消，开始优雅关闭
		s.logger.Info("gin server stopping due to context cancellation")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		// 端口占用等监听错误直接上抛，由 app 取消其它服务器
		return err
	}
}

// Stop 在超时时间内等待现有请求完成。
func (s *GinServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping gin server gracefully")
	// 限定关闭耗时，避免慢请求拖住进程退出
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}
