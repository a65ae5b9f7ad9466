// Package middleware 提供 HTTP 中间件：请求 ID、恢复、访问日志、认证、幂等键等。
// 中间件统一通过 gin 上下文键传递请求级数据，键名与限流器等组件的约定保持一致。
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/LeonQiao/resell_ledger/internal/domain"
)

// 约定的 gin 上下文键集合。
const (
	ContextKeyRequestID = "request_id"
	ContextKeyTraceID   = "trace_id"
	ContextKeyUser      = "user"
	ContextKeyUserID    = "user_id"
)

// RequestIDFrom 从 gin 上下文读取请求 ID（可能为空）。
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}

// TraceIDFrom 从 gin 上下文读取追踪 ID（可能为空）。
func TraceIDFrom(c *gin.Context) string {
	return c.GetString(ContextKeyTraceID)
}

// CurrentUser 从 gin 上下文读取认证中间件注入的用户；未认证时返回 nil。
func CurrentUser(c *gin.Context) *domain.User {
	if v, exists := c.Get(ContextKeyUser); exists {
		if user, ok := v.(*domain.User); ok {
			return user
		}
	}
	return nil
}
