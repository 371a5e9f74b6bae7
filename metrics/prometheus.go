// Package metrics 封装 Prometheus 注册表，预定义 HTTP 与定价求解器的标准指标。
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ivcalc"

// Metrics 封装了独立的 Prometheus 注册表及预定义指标。
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec   // 维度: method, path, status
	HTTPRequestDuration *prometheus.HistogramVec // 维度: method, path

	OperationsTotal   *prometheus.CounterVec   // 定价操作结果 (维度: op, outcome)
	OperationDuration *prometheus.HistogramVec // 定价操作耗时 (维度: op)
	SolverIterations  prometheus.Histogram     // 牛顿迭代次数分布
	SolverStatus      *prometheus.CounterVec   // 求解状态 (维度: status)
	CacheRequests     *prometheus.CounterVec   // 缓存查询 (维度: result)
	BuildInfo         *prometheus.GaugeVec
}

// NewMetrics 初始化指标采集器，同时注册 Go 运行时与进程指标。
func NewMetrics(serviceName string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: reg}

	// 初始化标准 HTTP 指标，path 取路由模板避免基数爆炸

	m.HTTPRequestsTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "http_server_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	m.HTTPRequestDuration = m.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_server_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// 定价与求解器指标
	m.OperationsTotal = m.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Pricing operations by outcome",
	}, []string{"op", "outcome"})

	m.OperationDuration = m.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Pricing operation latency in seconds",
		Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
	}, []string{"op"})

	m.SolverIterations = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "solver_iterations",
		Help:      "Newton iterations spent per implied volatility solve",
		Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 50, 100, 1000},
	})
	// 无标签直方图不走 NewHistogramVec，单独注册
	reg.MustRegister(m.SolverIterations)

	m.SolverStatus = m.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "solver_status_total",
		Help:      "Implied volatility solves by terminal status",
	}, []string{"status"})

	m.CacheRequests = m.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_requests_total",
		Help:      "Implied volatility cache lookups",
	}, []string{"result"})

	slog.Info("unified metrics registry initialized", "service", serviceName)
	return m
}

// Registry 返回内部注册表，供测试采集使用。
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// NewCounterVec 创建并注册一个新的计数器指标。
func (m *Metrics) NewCounterVec(opts prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
	cv := prometheus.NewCounterVec(opts, labelNames)
	m.registry.MustRegister(cv)
	return cv
}

// NewGaugeVec 创建并注册一个新的仪表盘指标。
func (m *Metrics) NewGaugeVec(opts prometheus.GaugeOpts, labelNames []string) *prometheus.GaugeVec {
	gv := prometheus.NewGaugeVec(opts, labelNames)
	m.registry.MustRegister(gv)
	return gv
}

// NewHistogramVec 创建并注册一个新的直方图指标。
func (m *Metrics) NewHistogramVec(opts prometheus.HistogramOpts, labelNames []string) *prometheus.HistogramVec {
	hv := prometheus.NewHistogramVec(opts, labelNames)
	m.registry.MustRegister(hv)
	return hv
}

// ObserveOperation 记录一次定价操作的耗时与结果。
func (m *Metrics) ObserveOperation(op, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(op, outcome).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveSolve 记录一次隐含波动率求解的终止状态与迭代次数。
func (m *Metrics) ObserveSolve(status string, iterations int) {
	if m == nil {
		return
	}
	m.SolverStatus.WithLabelValues(status).Inc()
	m.SolverIterations.Observe(float64(iterations))
}

// ObserveCache 记录缓存命中情况，result 取 hit / miss / error。
func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.CacheRequests.WithLabelValues(result).Inc()
}

// Handler 返回用于暴露指标的 HTTP 处理器。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ExposeHTTP 在独立端口启动指标服务，返回优雅关闭函数。
func (m *Metrics) ExposeHTTP(port, path string) func() {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown metrics server", "error", err)
		}
	}
}
