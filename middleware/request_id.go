package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/ivcalc/contextx"
	"github.com/wyfcoding/ivcalc/idgen"
)

// HeaderXRequestID 请求 ID 头。
const HeaderXRequestID = "X-Request-ID"

// RequestID 透传或生成请求 ID，写入 Context 与响应头。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 优先沿用上游传入的 Request ID
		requestID := c.GetHeader(HeaderXRequestID)
		if requestID == "" {
			// 2. 没有则用 idgen 生成
			requestID = idgen.GenIDString()
		}

		// 3. 请求 ID 与客户端 IP 注入 Context，供 service 层日志使用
		ctx := contextx.WithRequestID(c.Request.Context(), requestID)
		ctx = contextx.WithIP(ctx, c.ClientIP())
		c.Request = c.Request.WithContext(ctx)
		// 4. 回写响应头，方便调用方对账
		c.Header(HeaderXRequestID, requestID)

		c.Next()
	}
}
