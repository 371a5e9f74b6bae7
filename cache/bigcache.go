package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/wyfcoding/ivcalc/xerrors"
)

var _ Cache = (*BigCache)(nil)

// BigCache 使用 allegro/bigcache 作为底层存储的本地缓存。
// 所有条目共享 NewBigCache 中设置的全局 TTL。
type BigCache struct {
	cache  *bigcache.BigCache
	prefix string
}

// NewBigCache 创建 BigCache 实例，maxMB 为 0 表示不限制容量。
func NewBigCache(ttl time.Duration, maxMB int) (*BigCache, error) {
	// 设置全局 TTL 和最大内存占用。
	cfg := bigcache.DefaultConfig(ttl)
	cfg.HardMaxCacheSize = maxMB
	cfg.CleanWindow = cleanWindow(ttl)
	cfg.Verbose = false

	c, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("初始化 bigcache 失败: %w", err)
	}
	return &BigCache{cache: c}, nil
}

// 清理周期不超过 TTL，避免短 TTL 的条目长时间驻留。
func cleanWindow(ttl time.Duration) time.Duration {
	const maxWindow = 5 * time.Minute
	if ttl <= 0 || ttl > maxWindow {
		return maxWindow
	}
	return ttl
}

// WithPrefix 返回共享底层存储、带键前缀的视图。
func (c *BigCache) WithPrefix(prefix string) *BigCache {
	return &BigCache{cache: c.cache, prefix: prefix}
}

func (c *BigCache) buildKey(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + ":" + key
}

// Get 读取并反序列化 value，value 必须为指针。
func (c *BigCache) Get(_ context.Context, key string, value any) error {
	data, err := c.cache.Get(c.buildKey(key))
	if err != nil {
		// 未命中统一转换为 ErrCacheMiss，调用方用 errors.Is 判断
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			return xerrors.Invalid(xerrors.ErrCacheMiss, "key=%s", key)
		}
		return err
	}
	return json.Unmarshal(data, value)
}

// Set 以 JSON 序列化 value 后写入。bigcache 不支持按键过期，expiration 被忽略。
func (c *BigCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	// 将值序列化为 JSON 字节数据
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.cache.Set(c.buildKey(key), data)
}

// Delete 删除一个或多个键，键不存在时不报错。
func (c *BigCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		// 忽略“未找到”错误，只处理真正的删除失败
		if err := c.cache.Delete(c.buildKey(key)); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
			return err
		}
	}
	return nil
}

// Exists 检查键是否存在。
func (c *BigCache) Exists(_ context.Context, key string) (bool, error) {
	_, err := c.cache.Get(c.buildKey(key))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return false, nil
	}
	return false, err
}

// Len 返回当前条目数。
func (c *BigCache) Len() int {
	return c.cache.Len()
}

// Close 关闭底层缓存并停止清理协程。
func (c *BigCache) Close() error {
	return c.cache.Close()
}
