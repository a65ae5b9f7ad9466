// Package limiter 滑动窗口限流器实现
package limiter

import (
	"context"
	"fmt"
	"time"
)

// SlidingWindowLimiter 滑动窗口计数限流器，窗口按精度切分为子窗口求和
type SlidingWindowLimiter struct {
	client    RedisClient
	config    *Config
	keyPrefix string
}

// NewSlidingWindowLimiter 创建滑动窗口限流器，精度缺省为窗口的1/10
func NewSlidingWindowLimiter(client RedisClient, config *Config) (*SlidingWindowLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = "ratelimit:sw"
	}
	if config.Precision == 0 {
		config.Precision = config.Window / 10
	}

	return &SlidingWindowLimiter{
		client:    client,
		config:    config,
		keyPrefix: prefix,
	}, nil
}

// 滑动窗口Lua脚本：清理过期子窗口后汇总计数再判定
// KEYS[1] 计数器key；ARGV: 限额、窗口秒数、精度秒数、请求数、当前时间戳
// 返回 {是否允许, 剩余配额, 建议重试秒数, 窗口内计数}
const slidingWindowScript = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local precision = tonumber(ARGV[3])
local requests = tonumber(ARGV[4])
local now = tonumber(ARGV[5])

local buckets = math.ceil(window / precision)
local bucket_size = window / buckets
local cutoff = now - window

local total = 0
for i = 0, buckets - 1 do
    local bucket_start = now - (i * bucket_size)
    local bucket_key = key .. ":" .. math.floor(bucket_start / bucket_size)
    if bucket_start < cutoff then
        redis.call('DEL', bucket_key)
    else
        total = total + tonumber(redis.call('GET', bucket_key) or 0)
    end
end

if total + requests > limit then
    local oldest_start = now - (buckets - 1) * bucket_size
    local retry_after = math.ceil(oldest_start + window - now)
    if retry_after < 1 then
        retry_after = 1
    end
    return {0, limit - total, retry_after, total}
end

local current_key = key .. ":" .. math.floor(now / bucket_size)
redis.call('INCRBY', current_key, requests)
redis.call('EXPIRE', current_key, window + precision)
total = total + requests
return {1, limit - total, 0, total}
`

func (sw *SlidingWindowLimiter) counterKey(key string) string {
	return sw.keyPrefix + ":" + key
}

// Allow 检查是否允许单个请求通过
func (sw *SlidingWindowLimiter) Allow(ctx context.Context, key string) (*LimitResult, error) {
	return sw.AllowN(ctx, key, 1)
}

// AllowN 检查是否允许N个请求通过
func (sw *SlidingWindowLimiter) AllowN(ctx context.Context, key string, n int64) (*LimitResult, error) {
	result := sw.client.Eval(ctx, slidingWindowScript,
		[]string{sw.counterKey(key)},
		sw.config.Rate,
		int64(sw.config.Window.Seconds()),
		int64(sw.config.Precision.Seconds()),
		n,
		time.Now().Unix(),
	)
	if result.Err() != nil {
		return nil, fmt.Errorf("execute sliding window script: %w", result.Err())
	}

	values, ok := result.Val().([]interface{})
	if !ok || len(values) != 4 {
		return nil, fmt.Errorf("unexpected sliding window script result: %v", result.Val())
	}

	return &LimitResult{
		Allowed:       values[0].(int64) == 1,
		Remaining:     values[1].(int64),
		RetryAfter:    time.Duration(values[2].(int64)) * time.Second,
		TotalRequests: values[3].(int64),
	}, nil
}

// Reset 删除该key下所有子窗口计数器
func (sw *SlidingWindowLimiter) Reset(ctx context.Context, key string) error {
	pattern := sw.counterKey(key) + ":*"
	iter := sw.client.Scan(ctx, 0, pattern, 0).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan window keys: %w", err)
	}

	if len(keys) > 0 {
		if err := sw.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("delete window keys: %w", err)
		}
	}

	return nil
}

// GetInfo 汇总各子窗口计数得到当前用量
func (sw *SlidingWindowLimiter) GetInfo(ctx context.Context, key string) (*LimitInfo, error) {
	now := time.Now().Unix()
	buckets := int64(sw.config.Window / sw.config.Precision)
	if buckets <= 0 {
		buckets = 1
	}
	bucketSeconds := int64(sw.config.Window.Seconds()) / buckets
	if bucketSeconds <= 0 {
		bucketSeconds = 1
	}
	cutoff := now - int64(sw.config.Window.Seconds())

	var total int64
	for i := int64(0); i < buckets; i++ {
		bucketStart := now - i*bucketSeconds
		if bucketStart < cutoff {
			continue
		}
		bucketKey := fmt.Sprintf("%s:%d", sw.counterKey(key), bucketStart/bucketSeconds)
		if result := sw.client.Get(ctx, bucketKey); result.Err() == nil {
			if count, err := result.Int64(); err == nil {
				total += count
			}
		}
	}

	remaining := sw.config.Rate - total
	if remaining < 0 {
		remaining = 0
	}

	currentStart := now / bucketSeconds * bucketSeconds
	return &LimitInfo{
		Limit:     sw.config.Rate,
		Remaining: remaining,
		Window:    sw.config.Window,
		ResetTime: time.Unix(currentStart+bucketSeconds, 0),
	}, nil
}
