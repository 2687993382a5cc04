// internal/service/shop/infrastructure/adapter/redis_counter_adapter.go
package adapter

import (
	"context"
	"fmt"
	"time"

	"ilotel/internal/pkg/redis"
)

const counterScriptName = "ratelimit_counter"

// RedisCounterAdapter 是限流计数器的共享实现，供多实例部署使用：
// 所有副本对同一 (client, route) 累加同一个 Redis 键，
// 限流额度因此是全局的而不是按进程碎片化的。
type RedisCounterAdapter struct {
	redisClient *redis.Client
}

// NewRedisCounterAdapter 创建适配器并加载计数脚本
func NewRedisCounterAdapter(redisClient *redis.Client) (*RedisCounterAdapter, error) {
	if err := redisClient.LoadScriptFromContent(counterScriptName, counterScript); err != nil {
		return nil, fmt.Errorf("failed to load rate limit counter script: %w", err)
	}
	return &RedisCounterAdapter{redisClient: redisClient}, nil
}

// Incr 原子地累加窗口计数，返回累加后的值与窗口剩余时间。
// 首次写入时为键设置窗口长度的过期，计数与过期必须在同一脚本里完成，
// 否则崩溃在两步之间会留下永不过期的计数键。
func (a *RedisCounterAdapter) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	result, err := a.redisClient.RunScript(ctx, counterScriptName,
		[]string{"ratelimit:{" + key + "}"},
		window.Milliseconds(),
	)
	if err != nil {
		return 0, 0, fmt.Errorf("rate limit counter script failed: %w", err)
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 2 {
		return 0, 0, fmt.Errorf("unexpected result from counter script: %T", result)
	}
	count, ok1 := values[0].(int64)
	ttlMillis, ok2 := values[1].(int64)
	if !ok1 || !ok2 {
		return 0, 0, fmt.Errorf("unexpected value types from counter script")
	}

	return count, time.Duration(ttlMillis) * time.Millisecond, nil
}

var counterScript = `
-- KEYS[1]: 计数键, 例如 ratelimit:{1.2.3.4:/orders/reserve}
-- ARGV[1]: 窗口长度（毫秒）

local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
return {count, ttl}
`
