package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/ivcalc/contextx"
	"github.com/wyfcoding/ivcalc/tracing"
)

// Logger 访问日志中间件。
func Logger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		// request_id 与 trace_id 同时落盘，便于从日志跳转到链路
		ctx := c.Request.Context()
		attrs := []any{
			"request_id", contextx.GetRequestID(ctx),
			"trace_id", tracing.GetTraceID(ctx),
			"status", c.Writer.Status(),
			"method", c.Request.Method,
			"path", path,
			"ip", c.ClientIP(),
			"cost", time.Since(start),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}
		// 输出结构化日志
		logger.InfoContext(ctx, "http request", attrs...)
	}
}
