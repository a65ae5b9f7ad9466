// Package limiter 提供基于Redis的限流算法实现
package limiter

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient 限流器依赖的Redis命令子集，*redis.Client与redis.Cmdable均满足
type RedisClient interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	HMGet(ctx context.Context, key string, fields ...string) *redis.SliceCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

// LimitResult 单次限流判定结果
type LimitResult struct {
	Allowed       bool          `json:"allowed"`
	Remaining     int64         `json:"remaining"`
	RetryAfter    time.Duration `json:"retry_after"`
	TotalRequests int64         `json:"total_requests"`
}

// Limiter 限流器接口
type Limiter interface {
	// Allow 检查是否允许单个请求通过
	Allow(ctx context.Context, key string) (*LimitResult, error)

	// AllowN 检查是否允许N个请求通过
	AllowN(ctx context.Context, key string, n int64) (*LimitResult, error)

	// Reset 重置指定key的限流状态
	Reset(ctx context.Context, key string) error

	// GetInfo 获取当前限流状态
	GetInfo(ctx context.Context, key string) (*LimitInfo, error)
}

// LimitInfo 限流状态快照
type LimitInfo struct {
	Limit     int64         `json:"limit"`
	Remaining int64         `json:"remaining"`
	Window    time.Duration `json:"window"`
	ResetTime time.Time     `json:"reset_time"`
}

// Config 限流配置
type Config struct {
	Rate   int64         `json:"rate"`   // 每个时间窗口允许的请求数
	Window time.Duration `json:"window"` // 时间窗口
	Burst  int64         `json:"burst"`  // 突发容量（令牌桶）

	Precision time.Duration `json:"precision"`  // 子窗口精度（滑动窗口）
	KeyPrefix string        `json:"key_prefix"` // Redis key前缀
}

// LimiterType 限流算法类型
type LimiterType string

const (
	TokenBucket   LimiterType = "token_bucket"
	SlidingWindow LimiterType = "sliding_window"
	FixedWindow   LimiterType = "fixed_window"
)

// Factory 按类型构造限流器
type Factory struct {
	client RedisClient
}

// NewFactory 创建限流器工厂
func NewFactory(client RedisClient) *Factory {
	return &Factory{client: client}
}

// Create 创建指定类型的限流器，未知类型回退为令牌桶
func (f *Factory) Create(limiterType LimiterType, config *Config) (Limiter, error) {
	switch limiterType {
	case SlidingWindow:
		return NewSlidingWindowLimiter(f.client, config)
	case FixedWindow:
		return NewFixedWindowLimiter(f.client, config)
	default:
		return NewTokenBucketLimiter(f.client, config)
	}
}

// CombineStrategy 多重限流器的组合策略
type CombineStrategy string

const (
	AllPass CombineStrategy = "all_pass" // 所有限流器都通过才允许
	AnyPass CombineStrategy = "any_pass" // 任意限流器通过即允许
)

// MultiLimiter 组合多个限流器
type MultiLimiter struct {
	limiters []Limiter
	strategy CombineStrategy
}

// NewMultiLimiter 创建多重限流器
func NewMultiLimiter(limiters []Limiter, strategy CombineStrategy) *MultiLimiter {
	return &MultiLimiter{
		limiters: limiters,
		strategy: strategy,
	}
}

// Allow 检查是否允许单个请求通过
func (m *MultiLimiter) Allow(ctx context.Context, key string) (*LimitResult, error) {
	return m.AllowN(ctx, key, 1)
}

// AllowN 依次询问每个限流器并按策略合并结果
// Remaining取最小值，RetryAfter取最大值
func (m *MultiLimiter) AllowN(ctx context.Context, key string, n int64) (*LimitResult, error) {
	var (
		allowedCount int
		minRemaining int64 = -1
		maxRetry     time.Duration
	)

	for _, lim := range m.limiters {
		result, err := lim.AllowN(ctx, key, n)
		if err != nil {
			return nil, err
		}

		if result.Allowed {
			allowedCount++
		}
		if result.Remaining >= 0 && (minRemaining == -1 || result.Remaining < minRemaining) {
			minRemaining = result.Remaining
		}
		if result.RetryAfter > maxRetry {
			maxRetry = result.RetryAfter
		}
	}

	allowed := false
	switch m.strategy {
	case AnyPass:
		allowed = allowedCount > 0
	default: // AllPass
		allowed = allowedCount == len(m.limiters)
	}

	return &LimitResult{
		Allowed:    allowed,
		Remaining:  minRemaining,
		RetryAfter: maxRetry,
	}, nil
}

// Reset 重置所有子限流器
func (m *MultiLimiter) Reset(ctx context.Context, key string) error {
	for _, lim := range m.limiters {
		if err := lim.Reset(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// GetInfo 返回第一个子限流器的状态
func (m *MultiLimiter) GetInfo(ctx context.Context, key string) (*LimitInfo, error) {
	if len(m.limiters) == 0 {
		return nil, nil
	}
	return m.limiters[0].GetInfo(ctx, key)
}
