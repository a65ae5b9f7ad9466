package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LeonQiao/resell_ledger/internal/resp"
)

// Timeout 为每个请求的上下文设置截止时间
// 处理器内部的存储调用沿用该上下文后会在超时时被取消
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// HandleTimeout 在上下文已超时或取消时写入统一超时响应
func HandleTimeout(c *gin.Context) bool {
	if err := c.Request.Context().Err(); err == context.DeadlineExceeded || err == context.Canceled {
		resp.Error(c.Writer, resp.HTTPStatusFromCode(resp.CodeTimeout), resp.CodeTimeout,
			"request timeout", RequestIDFrom(c), TraceIDFrom(c))
		c.Abort()
		return true
	}
	return false
}
