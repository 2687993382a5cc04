// internal/service/shop/interfaces/middleware/ratelimit.go
package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"ilotel/internal/pkg/bootstrap"
	"ilotel/internal/pkg/logger"
)

// CounterStore 是限流计数的存储端口。
// local 实现按进程计数，redis 实现在多实例间共享额度。
type CounterStore interface {
	// Incr 累加 key 在当前窗口内的计数，返回累加后的值与窗口剩余时间
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// LocalCounterStore 是进程内的固定窗口计数器，单实例部署下的默认选择
type LocalCounterStore struct {
	mu      sync.Mutex
	entries map[string]*localCounter
}

type localCounter struct {
	count   int64
	resetAt time.Time
}

func NewLocalCounterStore() *LocalCounterStore {
	return &LocalCounterStore{entries: make(map[string]*localCounter)}
}

func (s *LocalCounterStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || now.After(entry.resetAt) {
		entry = &localCounter{resetAt: now.Add(window)}
		s.entries[key] = entry
	}
	entry.count++
	return entry.count, entry.resetAt.Sub(now), nil
}

// RateLimiter 对每个 (客户端IP, 路由前缀) 做固定窗口限流。
// 额度解析顺序：子路由覆盖 > 路由前缀 > 全局默认。
type RateLimiter struct {
	store  CounterStore
	window time.Duration
	config bootstrap.RateLimit
}

func NewRateLimiter(store CounterStore, config bootstrap.RateLimit) *RateLimiter {
	window := time.Duration(config.WindowSeconds) * time.Second
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{store: store, window: window, config: config}
}

// Wrap 将限流逻辑套在下游 handler 外面。
// 计数器不可用时放行请求，限流是保护手段，不能成为新的故障点。
func (rl *RateLimiter) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, bucket := rl.resolveLimit(r.URL.Path)
		if limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		key := clientIP(r) + ":" + bucket
		count, resetIn, err := rl.store.Incr(r.Context(), key, rl.window)
		if err != nil {
			logger.Ctx(r.Context()).Warn().Err(err).Str("key", key).
				Msg("⚠️ rate limit counter unavailable, letting request through")
			next.ServeHTTP(w, r)
			return
		}

		if count > int64(limit) {
			retryAfter := int(resetIn.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprintf(w, `{"error":"too many requests, retry after %d seconds"}`, retryAfter)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// resolveLimit 返回路径适用的额度与计数桶。
// 同一个桶下的请求共享计数，所以子路由覆盖必须使用独立的桶名。
func (rl *RateLimiter) resolveLimit(path string) (int, string) {
	for suffix, limit := range rl.config.Overrides {
		if strings.HasSuffix(path, suffix) {
			return limit, suffix
		}
	}
	for prefix, limit := range rl.config.Routes {
		if strings.HasPrefix(path, prefix) {
			return limit, prefix
		}
	}
	return rl.config.Default, "/"
}

// clientIP 优先取反向代理透传的地址
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
