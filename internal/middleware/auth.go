// Package middleware 提供JWT认证和授权中间件。
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/LeonQiao/resell_ledger/internal/resp"
	"github.com/LeonQiao/resell_ledger/internal/service"
)

// Auth JWT认证中间件
// 验证请求头中的JWT令牌，从数据库加载最新的用户记录并注入到请求上下文中。
// 加载完整用户而非仅用令牌声明重建：订阅类型、币种偏好和禁用状态都必须是当前值。
func Auth(jwtService service.JWTService, userService service.UserService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := RequestIDFrom(c)

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Warn("missing authorization header", zap.String("request_id", reqID))
			abortWithError(c, http.StatusUnauthorized, "authorization header required", reqID)
			return
		}

		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			logger.Warn("invalid authorization header format", zap.String("request_id", reqID))
			abortWithError(c, http.StatusUnauthorized, "invalid authorization header format", reqID)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)
		if tokenString == "" {
			abortWithError(c, http.StatusUnauthorized, "token required", reqID)
			return
		}

		claims, err := jwtService.ValidateAccessToken(tokenString)
		if err != nil {
			logger.Warn("token validation failed",
				zap.String("request_id", reqID),
				zap.Error(err),
			)
			switch {
			case errors.Is(err, service.ErrTokenExpired):
				abortWithError(c, http.StatusUnauthorized, "token expired", reqID)
			case errors.Is(err, service.ErrTokenNotReady):
				abortWithError(c, http.StatusUnauthorized, "token not ready", reqID)
			default:
				abortWithError(c, http.StatusUnauthorized, "invalid token", reqID)
			}
			return
		}

		user, err := userService.GetUserByID(claims.UserID)
		if err != nil {
			if errors.Is(err, service.ErrUserNotFound) {
				abortWithError(c, http.StatusUnauthorized, "user no longer exists", reqID)
				return
			}
			logger.Error("failed to load user for auth",
				zap.String("request_id", reqID),
				zap.Int64("user_id", claims.UserID),
				zap.Error(err),
			)
			resp.Error(c.Writer, http.StatusInternalServerError, resp.CodeInternalError,
				"authentication failed", reqID, TraceIDFrom(c))
			c.Abort()
			return
		}

		if !user.IsActive {
			abortWithError(c, http.StatusForbidden, "user is inactive", reqID)
			return
		}

		c.Set(ContextKeyUser, user)
		c.Set(ContextKeyUserID, user.ID)
		c.Next()
	}
}

// abortWithError 写入统一错误响应并中断后续处理
func abortWithError(c *gin.Context, status int, message, reqID string) {
	resp.Error(c.Writer, status, resp.CodeInvalidParam, message, reqID, TraceIDFrom(c))
	c.Abort()
}
