// Package limiter 固定窗口限流器实现
package limiter

import (
	"context"
	"fmt"
	"time"
)

// FixedWindowLimiter 固定窗口计数限流器
type FixedWindowLimiter struct {
	client    RedisClient
	config    *Config
	keyPrefix string
}

// NewFixedWindowLimiter 创建固定窗口限流器
func NewFixedWindowLimiter(client RedisClient, config *Config) (*FixedWindowLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = "ratelimit:fw"
	}

	return &FixedWindowLimiter{
		client:    client,
		config:    config,
		keyPrefix: prefix,
	}, nil
}

// 固定窗口Lua脚本：按窗口起点分key计数
// KEYS[1] 计数器key；ARGV: 限额、窗口秒数、请求数、当前时间戳
// 返回 {是否允许, 剩余配额, 建议重试秒数, 窗口内计数}
const fixedWindowScript = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local requests = tonumber(ARGV[3])
local now = tonumber(ARGV[4])

local window_start = math.floor(now / window) * window
local window_key = key .. ":" .. window_start

local current = tonumber(redis.call('GET', window_key) or 0)

if current + requests > limit then
    local retry_after = window_start + window - now
    return {0, limit - current, retry_after, current}
end

local count = redis.call('INCRBY', window_key, requests)
redis.call('EXPIRE', window_key, window)
return {1, limit - count, 0, count}
`

func (fw *FixedWindowLimiter) counterKey(key string) string {
	return fw.keyPrefix + ":" + key
}

// Allow 检查是否允许单个请求通过
func (fw *FixedWindowLimiter) Allow(ctx context.Context, key string) (*LimitResult, error) {
	return fw.AllowN(ctx, key, 1)
}

// AllowN 检查是否允许N个请求通过
func (fw *FixedWindowLimiter) AllowN(ctx context.Context, key string, n int64) (*LimitResult, error) {
	result := fw.client.Eval(ctx, fixedWindowScript,
		[]string{fw.counterKey(key)},
		fw.config.Rate,
		int64(fw.config.Window.Seconds()),
		n,
		time.Now().Unix(),
	)
	if result.Err() != nil {
		return nil, fmt.Errorf("execute fixed window script: %w", result.Err())
	}

	values, ok := result.Val().([]interface{})
	if !ok || len(values) != 4 {
		return nil, fmt.Errorf("unexpected fixed window script result: %v", result.Val())
	}

	return &LimitResult{
		Allowed:       values[0].(int64) == 1,
		Remaining:     values[1].(int64),
		RetryAfter:    time.Duration(values[2].(int64)) * time.Second,
		TotalRequests: values[3].(int64),
	}, nil
}

// Reset 删除该key下所有窗口计数器
func (fw *FixedWindowLimiter) Reset(ctx context.Context, key string) error {
	pattern := fw.counterKey(key) + ":*"
	iter := fw.client.Scan(ctx, 0, pattern, 0).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan window keys: %w", err)
	}

	if len(keys) > 0 {
		if err := fw.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("delete window keys: %w", err)
		}
	}

	return nil
}

// GetInfo 读取当前窗口计数
func (fw *FixedWindowLimiter) GetInfo(ctx context.Context, key string) (*LimitInfo, error) {
	now := time.Now().Unix()
	windowSeconds := int64(fw.config.Window.Seconds())
	windowStart := now / windowSeconds * windowSeconds
	windowKey := fmt.Sprintf("%s:%d", fw.counterKey(key), windowStart)

	var current int64
	if result := fw.client.Get(ctx, windowKey); result.Err() == nil {
		if count, err := result.Int64(); err == nil {
			current = count
		}
	}

	remaining := fw.config.Rate - current
	if remaining < 0 {
		remaining = 0
	}

	return &LimitInfo{
		Limit:     fw.config.Rate,
		Remaining: remaining,
		Window:    fw.config.Window,
		ResetTime: time.Unix(windowStart+windowSeconds, 0),
	}, nil
}
