// internal/pkg/redis/client.go
package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client 封装了 go-redis 的 UniversalClient，并托管业务方注册的 Lua 脚本。
// 单机、哨兵、集群三种部署形态都可以通过地址列表自动适配。
type Client struct {
	rdb     redis.UniversalClient
	scripts map[string]*redis.Script
}

// NewClient 创建并连通一个 Redis 客户端。
// addrs 格式为 "ip1:port1,ip2:port2"。
func NewClient(addrs string) (*Client, error) {
	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: strings.Split(addrs, ","),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addrs, err)
	}

	return &Client{
		rdb:     rdb,
		scripts: make(map[string]*redis.Script),
	}, nil
}

// GetClient 暴露底层客户端，供需要 pipeline 等高级能力的调用方使用
func (c *Client) GetClient() redis.UniversalClient {
	return c.rdb
}

// LoadScriptFromContent 注册一段 Lua 脚本，后续通过名字调用。
// go-redis 的 Script 会优先走 EVALSHA，未加载时自动退回 EVAL。
func (c *Client) LoadScriptFromContent(name, content string) error {
	if _, ok := c.scripts[name]; ok {
		return fmt.Errorf("script %q already registered", name)
	}
	c.scripts[name] = redis.NewScript(content)
	return nil
}

// RunScript 执行一个已注册的脚本
func (c *Client) RunScript(ctx context.Context, name string, keys []string, args ...interface{}) (interface{}, error) {
	script, ok := c.scripts[name]
	if !ok {
		return nil, fmt.Errorf("script %q is not registered", name)
	}
	return script.Run(ctx, c.rdb, keys, args...).Result()
}

// Close 释放底层连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
