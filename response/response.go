// Package response 提供统一的 HTTP 响应封装，负责业务错误到 HTTP 状态码的映射。
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/ivcalc/xerrors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// HTTPStatusProvider 能够提供 HTTP 状态码的错误。
type HTTPStatusProvider interface {
	HTTPStatus() int
}

// Body 统一响应信封。
type Body struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Data   any    `json:"data,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Success HTTP 200，业务码 0。
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Body{Code: 0, Msg: "success", Data: data})
}

// SuccessWithRawData 不包装信封，用于健康检查等系统接口。
func SuccessWithRawData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Error 识别 xerrors 业务错误或 gRPC Status 并映射状态码，无法识别时返回 500。
func Error(c *gin.Context, err error) {
	if err == nil {
		Success(c, nil)
		return
	}

	// 1. 业务错误直接使用其 HTTP 状态与业务码
	if e, ok := xerrors.FromError(err); ok {
		c.JSON(e.HTTPStatus(), Body{Code: e.Code, Msg: e.Message, Detail: e.Detail})
		return
	}

	statusCode := http.StatusInternalServerError
	msg := err.Error()
	var sp HTTPStatusProvider
	// 2. 其次尝试 HTTPStatusProvider，最后把 gRPC 错误映射为标准 HTTP 状态码
	if errors.As(err, &sp) {
		statusCode = sp.HTTPStatus()
	} else if st, ok := status.FromError(err); ok {
		statusCode = grpcCodeToHTTP(st.Code())
		msg = st.Message()
	}
	c.JSON(statusCode, Body{Code: statusCode, Msg: msg})
}

// ErrorWithStatus 指定状态码、消息与详情的错误响应。
func ErrorWithStatus(c *gin.Context, statusCode int, msg, detail string) {
	c.JSON(statusCode, Body{Code: statusCode, Msg: msg, Detail: detail})
}

func grpcCodeToHTTP(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.Canceled:
		return 499 // Client Closed Request
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unimplemented:
		return http.StatusNotImplemented
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
