// Package limiter 令牌桶限流器实现
package limiter

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// TokenBucketLimiter 令牌桶限流器，桶状态保存在Redis哈希中
type TokenBucketLimiter struct {
	client    RedisClient
	config    *Config
	keyPrefix string
}

// NewTokenBucketLimiter 创建令牌桶限流器
func NewTokenBucketLimiter(client RedisClient, config *Config) (*TokenBucketLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = "ratelimit:tb"
	}

	return &TokenBucketLimiter{
		client:    client,
		config:    config,
		keyPrefix: prefix,
	}, nil
}

// 令牌桶Lua脚本：按经过时间补充令牌后尝试扣减，整个判定在Redis侧原子完成
// KEYS[1] 桶key；ARGV: 容量、速率、窗口秒数、请求令牌数、当前时间戳
// 返回 {是否允许, 剩余令牌, 建议重试秒数}
const tokenBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local window = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])
local now = tonumber(ARGV[5])

local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
local tokens = tonumber(bucket[1]) or capacity
local last_refill = tonumber(bucket[2]) or now

local elapsed = math.max(0, now - last_refill)
tokens = math.min(capacity, tokens + math.floor(elapsed * rate / window))

if tokens >= requested then
    tokens = tokens - requested
    redis.call('HMSET', key, 'tokens', tokens, 'last_refill', now)
    redis.call('EXPIRE', key, window * 2)
    return {1, tokens, 0}
end

local deficit = requested - tokens
local retry_after = math.ceil(deficit * window / rate)
redis.call('HMSET', key, 'tokens', tokens, 'last_refill', now)
redis.call('EXPIRE', key, window * 2)
return {0, tokens, retry_after}
`

func (tb *TokenBucketLimiter) bucketKey(key string) string {
	return tb.keyPrefix + ":" + key
}

// Allow 检查是否允许单个请求通过
func (tb *TokenBucketLimiter) Allow(ctx context.Context, key string) (*LimitResult, error) {
	return tb.AllowN(ctx, key, 1)
}

// AllowN 检查是否允许N个请求通过
func (tb *TokenBucketLimiter) AllowN(ctx context.Context, key string, n int64) (*LimitResult, error) {
	result := tb.client.Eval(ctx, tokenBucketScript,
		[]string{tb.bucketKey(key)},
		tb.config.Burst,
		tb.config.Rate,
		int64(tb.config.Window.Seconds()),
		n,
		time.Now().Unix(),
	)
	if result.Err() != nil {
		return nil, fmt.Errorf("execute token bucket script: %w", result.Err())
	}

	values, ok := result.Val().([]interface{})
	if !ok || len(values) != 3 {
		return nil, fmt.Errorf("unexpected token bucket script result: %v", result.Val())
	}

	return &LimitResult{
		Allowed:    values[0].(int64) == 1,
		Remaining:  values[1].(int64),
		RetryAfter: time.Duration(values[2].(int64)) * time.Second,
	}, nil
}

// Reset 清空令牌桶状态
func (tb *TokenBucketLimiter) Reset(ctx context.Context, key string) error {
	if err := tb.client.Del(ctx, tb.bucketKey(key)).Err(); err != nil {
		return fmt.Errorf("reset token bucket: %w", err)
	}
	return nil
}

// GetInfo 读取桶状态并按补充速率推算当前可用令牌
func (tb *TokenBucketLimiter) GetInfo(ctx context.Context, key string) (*LimitInfo, error) {
	result := tb.client.HMGet(ctx, tb.bucketKey(key), "tokens", "last_refill")
	if result.Err() != nil {
		return nil, fmt.Errorf("get token bucket state: %w", result.Err())
	}

	now := time.Now().Unix()
	tokens := tb.config.Burst
	lastRefill := now

	values := result.Val()
	if len(values) == 2 {
		if s, ok := values[0].(string); ok {
			if parsed, err := strconv.ParseInt(s, 10, 64); err == nil {
				tokens = parsed
			}
		}
		if s, ok := values[1].(string); ok {
			if parsed, err := strconv.ParseInt(s, 10, 64); err == nil {
				lastRefill = parsed
			}
		}
	}

	windowSeconds := int64(tb.config.Window.Seconds())
	if windowSeconds > 0 {
		tokens += (now - lastRefill) * tb.config.Rate / windowSeconds
	}
	if tokens > tb.config.Burst {
		tokens = tb.config.Burst
	}

	return &LimitInfo{
		Limit:     tb.config.Burst,
		Remaining: tokens,
		Window:    tb.config.Window,
		ResetTime: time.Unix(lastRefill, 0).Add(tb.config.Window),
	}, nil
}
