// Package config 提供了统一的配置加载与管理能力：TOML 文件 + 环境变量覆盖 + 结构体校验 + 热更新。
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/wyfcoding/ivcalc/logging"
	"github.com/wyfcoding/ivcalc/xerrors"
)

// EnvPrefix 环境变量前缀，例如 IVCALC_SOLVER_EPSILON 覆盖 solver.epsilon。
const EnvPrefix = "IVCALC"

// Config 全局顶级配置结构。
type Config struct {
	Version   string          `mapstructure:"version"   toml:"version"`
	Server    ServerConfig    `mapstructure:"server"    toml:"server"`
	Log       LogConfig       `mapstructure:"log"       toml:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"   toml:"metrics"`
	Tracing   TracingConfig   `mapstructure:"tracing"   toml:"tracing"`
	Cache     CacheConfig     `mapstructure:"cache"     toml:"cache"`
	Solver    SolverConfig    `mapstructure:"solver"    toml:"solver"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit" toml:"ratelimit"`
	Snowflake SnowflakeConfig `mapstructure:"snowflake" toml:"snowflake"`
}

// ServerConfig 定义服务器运行时的基础网络与环境参数。
type ServerConfig struct {
	Name        string `mapstructure:"name"        toml:"name"        validate:"required"`
	Environment string `mapstructure:"environment" toml:"environment" validate:"oneof=dev test prod"`
	HTTP        struct {
		Addr         string        `mapstructure:"addr"          toml:"addr"`
		Port         int           `mapstructure:"port"          toml:"port"          validate:"required,min=1,max=65535"`
		ReadTimeout  time.Duration `mapstructure:"read_timeout"  toml:"read_timeout"`
		WriteTimeout time.Duration `mapstructure:"write_timeout" toml:"write_timeout"`
		IdleTimeout  time.Duration `mapstructure:"idle_timeout"  toml:"idle_timeout"`
	} `mapstructure:"http" toml:"http"`
}

// LogConfig 定义日志输出、级别与切割策略。
type LogConfig struct {
	Level      string `mapstructure:"level"       toml:"level"       validate:"omitempty,oneof=debug info warn warning error"`
	File       string `mapstructure:"file"        toml:"file"`
	MaxSize    int    `mapstructure:"max_size"    toml:"max_size"    validate:"min=0"`
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups" validate:"min=0"`
	MaxAge     int    `mapstructure:"max_age"     toml:"max_age"     validate:"min=0"`
	Compress   bool   `mapstructure:"compress"    toml:"compress"`
}

// MetricsConfig Prometheus 指标暴露配置。Port 为空时挂在业务 HTTP 端口的 Path 上。
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
	Port    string `mapstructure:"port"    toml:"port"`
	Path    string `mapstructure:"path"    toml:"path"`
}

// TracingConfig 分布式链路追踪（OpenTelemetry）配置。
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"       toml:"enabled"`
	ServiceName  string  `mapstructure:"service_name"  toml:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" toml:"otlp_endpoint" validate:"required_if=Enabled true"`
	SampleRatio  float64 `mapstructure:"sample_ratio"  toml:"sample_ratio"  validate:"min=0,max=1"`
}

// CacheConfig 隐含波动率结果缓存（bigcache）配置。
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled" toml:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"     toml:"ttl"`
	MaxMB   int           `mapstructure:"max_mb"  toml:"max_mb" validate:"min=0"`
}

// SolverConfig 牛顿迭代默认参数，请求未指定时使用。
type SolverConfig struct {
	Epsilon      float64 `mapstructure:"epsilon"       toml:"epsilon"       validate:"gt=0"`
	DefaultStyle string  `mapstructure:"default_style" toml:"default_style" validate:"omitempty,oneof=equity futures"`
}

// RateLimitConfig HTTP 入口令牌桶限流配置。
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled" toml:"enabled"`
	Rate    float64 `mapstructure:"rate"    toml:"rate"    validate:"min=0"`
	Burst   int     `mapstructure:"burst"   toml:"burst"   validate:"min=0"`
}

// SnowflakeConfig 请求 ID 生成器参数。
type SnowflakeConfig struct {
	StartTime string `mapstructure:"start_time" toml:"start_time"`
	Type      string `mapstructure:"type"       toml:"type"       validate:"omitempty,oneof=snowflake sonyflake"`
	MachineID int64  `mapstructure:"machine_id" toml:"machine_id" validate:"min=0"`
}

// HTTPAddr 返回业务 HTTP 监听地址。
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.HTTP.Addr, c.Server.HTTP.Port)
}

// Loader 持有一个 viper 实例与热更新回调。
type Loader struct {
	v        *viper.Viper
	validate *validator.Validate

	mu       sync.Mutex
	onReload []func(*Config)
}

// NewLoader 创建加载器，并写入默认值。
func NewLoader() *Loader {
	v := viper.New()
	setDefaults(v)
	return &Loader{v: v, validate: validator.New()}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "ivcalc")
	v.SetDefault("server.environment", "dev")
	v.SetDefault("server.http.port", 8080)
	v.SetDefault("server.http.read_timeout", 5*time.Second)
	v.SetDefault("server.http.write_timeout", 10*time.Second)
	v.SetDefault("server.http.idle_timeout", 60*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("tracing.service_name", "ivcalc")
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", 10*time.Minute)
	v.SetDefault("cache.max_mb", 64)
	v.SetDefault("solver.epsilon", 1e-6)
	v.SetDefault("solver.default_style", "equity")
	v.SetDefault("ratelimit.rate", 200.0)
	v.SetDefault("ratelimit.burst", 400)
	v.SetDefault("snowflake.type", "snowflake")
}

// RegisterReloadHook 注册配置热更新回调。
func (l *Loader) RegisterReloadHook(hook func(*Config)) {
	if hook == nil {
		return
	}
	l.mu.Lock()
	l.onReload = append(l.onReload, hook)
	l.mu.Unlock()
}

// Load 读取配置文件（path 为空时只使用默认值与环境变量）、应用环境变量覆盖并校验。
func (l *Loader) Load(path string) (*Config, error) {
	if path != "" {
		l.v.SetConfigFile(path)
		l.v.SetConfigType("toml")
	}
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if path != "" {
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config error: %w", err)
		}
	}

	conf := &Config{}
	if err := l.decode(conf); err != nil {
		return nil, err
	}
	return conf, nil
}

func (l *Loader) decode(conf *Config) error {
	if err := l.v.Unmarshal(conf); err != nil {
		return fmt.Errorf("unmarshal config error: %w", err)
	}
	if err := l.validate.Struct(conf); err != nil {
		base := xerrors.ErrInvalidConfig
		return xerrors.New(base.Type, base.Code, base.Message, err.Error(), err)
	}
	return nil
}

// Watch 监听配置文件变化，校验通过后依次调用热更新回调。
func (l *Loader) Watch() {
	l.v.OnConfigChange(func(event fsnotify.Event) {
		slog.Info("detecting config change", "file", event.Name)
		// 编辑器保存常触发多次写事件，等待文件写完再读
		const debounceTimeout = 500 * time.Millisecond
		time.Sleep(debounceTimeout)

		// 校验失败时保留旧配置，不调用任何回调
		next := &Config{}
		if err := l.decode(next); err != nil {
			slog.Error("reload config failed, keeping previous configuration", "error", err)
			return
		}
		// 日志级别先于业务回调生效，回调内的日志即按新级别输出
		logging.SetLevel(next.Log.Level)

		l.mu.Lock()
		hooks := append([]func(*Config){}, l.onReload...)
		l.mu.Unlock()
		for _, hook := range hooks {
			hook(next)
		}
		slog.Info("config hot-reloaded and validated successfully")
	})
	l.v.WatchConfig()
}

// Viper 返回底层的 Viper 实例。
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// PrintWithMask 脱敏打印当前配置。
func PrintWithMask(conf any) {
	data, err := json.Marshal(conf)
	if err != nil {
		slog.Error("failed to marshal config for printing", "error", err)
		return
	}

	var configMap map[string]any
	if err := json.Unmarshal(data, &configMap); err != nil {
		slog.Error("failed to unmarshal config for masking", "error", err)
		return
	}

	mask(configMap)

	masked, err := json.MarshalIndent(configMap, "  ", "  ")
	if err != nil {
		slog.Error("failed to marshal masked config", "error", err)
		return
	}
	slog.Info("Current effective configuration", "config", string(masked))
}

func mask(configMap map[string]any) {
	sensitiveKeys := []string{"password", "secret", "token", "key"}

	for key, val := range configMap {
		if sub, ok := val.(map[string]any); ok {
			mask(sub)
			continue
		}
		for _, sk := range sensitiveKeys {
			if strings.Contains(strings.ToLower(key), sk) {
				configMap[key] = "******"
				break
			}
		}
	}
}
