// Package limiter 提供基于令牌桶的本地限流器及其热更新封装。
package limiter

import (
	"context"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// Limiter 限流器的通用行为。
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// LocalLimiter 单实例内的全局令牌桶限流器。
type LocalLimiter struct {
	limiter *rate.Limiter
}

// NewLocalLimiter r 为每秒令牌数，b 为桶容量。
func NewLocalLimiter(r rate.Limit, b int) *LocalLimiter {
	return &LocalLimiter{limiter: rate.NewLimiter(r, b)}
}

// Allow 尝试取一个令牌。key 在本地限流中不参与计算。
func (l *LocalLimiter) Allow(_ context.Context, _ string) (bool, error) {
	// 桶中有令牌立即返回 true；桶已空则返回 false，不等待。
	return l.limiter.Allow(), nil
}

// box 包一层，使 atomic.Pointer 可以表达“已关闭”的 nil 限流器。
type box struct{ l Limiter }

// DynamicLimiter 支持热更新的限流器，未设置或已关闭时放行所有请求。
type DynamicLimiter struct {
	value atomic.Pointer[box]
}

// NewDynamicLocalLimiter 创建基于本地令牌桶的动态限流器。
func NewDynamicLocalLimiter(ratePerSec float64, burst int) *DynamicLimiter {
	d := &DynamicLimiter{}
	d.UpdateLocal(ratePerSec, burst)
	return d
}

// Update 替换当前限流器，传 nil 表示关闭限流。
func (d *DynamicLimiter) Update(l Limiter) {
	d.value.Store(&box{l: l})
}

// UpdateLocal 以新的速率重建令牌桶。ratePerSec<=0 关闭限流，burst<=0 时取速率向上取整。
func (d *DynamicLimiter) UpdateLocal(ratePerSec float64, burst int) {
	if ratePerSec <= 0 {
		d.Update(nil)
		return
	}
	// 未配置桶容量时至少容纳一秒的令牌
	if burst <= 0 {
		burst = int(ratePerSec)
		if float64(burst) < ratePerSec {
			burst++
		}
	}
	d.Update(NewLocalLimiter(rate.Limit(ratePerSec), burst))
}

// Allow 实现 Limiter 接口。
func (d *DynamicLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if d == nil {
		return true, nil
	}
	// 读取当前快照，热更新期间的请求使用旧或新限流器之一
	b := d.value.Load()
	if b == nil || b.l == nil {
		return true, nil
	}
	return b.l.Allow(ctx, key)
}
