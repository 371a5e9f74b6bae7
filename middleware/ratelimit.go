// Package middleware 提供 Gin 的通用治理中间件。
package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/ivcalc/limiter"
	"github.com/wyfcoding/ivcalc/response"
	"github.com/wyfcoding/ivcalc/xerrors"
)

// RateLimit 以客户端 IP 为标识的限流中间件。限流器故障时放行并告警。
func RateLimit(l limiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()

		allowed, err := l.Allow(c.Request.Context(), key)
		if err != nil {
			// Fail-Open：限流器故障时不阻断定价请求，但必须记录告警日志。
			slog.ErrorContext(c.Request.Context(), "rate limiter internal error, fail-open applied", "key", key, "error", err)
			c.Next()
			return
		}

		if !allowed {
			// 限流触发，记录审计日志
			slog.WarnContext(c.Request.Context(), "request rejected by rate limiter", "key", key, "path", c.Request.URL.Path)
			response.Error(c, xerrors.ErrRateLimited)
			c.Abort()
			return
		}

		c.Next()
	}
}
