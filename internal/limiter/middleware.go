// Package limiter 限流中间件实现
package limiter

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LeonQiao/resell_ledger/internal/resp"
)

// KeyFunc 从请求上下文生成限流key
type KeyFunc func(*gin.Context) string

// IPKey 按客户端IP限流
func IPKey(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// UserKey 按登录用户限流，未登录时退化为IP
func UserKey(c *gin.Context) string {
	if userID := c.GetInt64("user_id"); userID > 0 {
		return fmt.Sprintf("user:%d", userID)
	}
	return IPKey(c)
}

// RateLimitMiddleware 创建限流中间件
// 限流器出错时快速失败返回500，不放行请求
func RateLimitMiddleware(lim Limiter, keyFn KeyFunc) gin.HandlerFunc {
	if keyFn == nil {
		keyFn = IPKey
	}

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		result, err := lim.Allow(ctx, keyFn(c))
		if err != nil {
			requestID := c.GetString("request_id")
			traceID := c.GetString("trace_id")
			resp.Error(c.Writer, http.StatusInternalServerError, resp.CodeInternalError,
				"rate limiter unavailable", requestID, traceID)
			c.Abort()
			return
		}

		if result.Remaining >= 0 {
			c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		}

		if !result.Allowed {
			if result.RetryAfter > 0 {
				c.Header("Retry-After", strconv.FormatInt(int64(result.RetryAfter.Seconds()), 10))
			}
			requestID := c.GetString("request_id")
			traceID := c.GetString("trace_id")
			resp.Error(c.Writer, http.StatusTooManyRequests, resp.CodeInvalidParam,
				"too many requests, please retry later", requestID, traceID)
			c.Abort()
			return
		}

		c.Next()
	}
}

// GlobalRateLimitMiddleware 按客户端IP的全局限流
func GlobalRateLimitMiddleware(lim Limiter) gin.HandlerFunc {
	return RateLimitMiddleware(lim, IPKey)
}

// APIRateLimitMiddleware 按用户和接口路径的细粒度限流
func APIRateLimitMiddleware(lim Limiter) gin.HandlerFunc {
	return RateLimitMiddleware(lim, func(c *gin.Context) string {
		return UserKey(c) + ":path:" + c.FullPath()
	})
}

// MultiLevelRateLimitMiddleware 组合全局与用户级两层限流，两层都通过才放行
func MultiLevelRateLimitMiddleware(globalLimiter, userLimiter Limiter) gin.HandlerFunc {
	multi := NewMultiLimiter([]Limiter{globalLimiter, userLimiter}, AllPass)
	return RateLimitMiddleware(multi, UserKey)
}
