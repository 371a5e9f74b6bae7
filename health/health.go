// Package health 提供依赖健康检查与 /health 处理器。
package health

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/ivcalc/cache"
)

const checkTimeout = 2 * time.Second

// Checker 健康检查函数。
type Checker func(ctx context.Context) error

// CacheChecker 通过写入并读取探针键确认缓存可用。
func CacheChecker(c cache.Cache) Checker {
	return func(ctx context.Context) error {
		if c == nil {
			return errors.New("cache is nil")
		}
		const probe = "health:probe"
		if err := c.Set(ctx, probe, time.Now().Unix(), 0); err != nil {
			return err
		}
		var v int64
		return c.Get(ctx, probe, &v)
	}
}

// Report /health 响应体。
type Report struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// Handler 依次执行所有检查，任一失败时返回 503。
func Handler(service, version string, checks map[string]Checker) gin.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
		defer cancel()

		report := Report{Status: "ok", Service: service, Version: version}
		if len(names) > 0 {
			report.Checks = make(map[string]string, len(names))
		}
		code := http.StatusOK
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				report.Checks[name] = err.Error()
				report.Status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			report.Checks[name] = "ok"
		}
		c.JSON(code, report)
	}
}
