// Package middleware 提供幂等性中间件
package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/LeonQiao/resell_ledger/internal/cache"
	"github.com/LeonQiao/resell_ledger/internal/resp"
)

// HeaderIdempotencyKey 是客户端声明写请求幂等键的请求头
const HeaderIdempotencyKey = "X-Idempotency-Key"

// idempotencyTTL 是幂等键的保留时长；超过后同一键的重放视为新请求
const idempotencyTTL = 24 * time.Hour

// Idempotency 幂等性中间件
// 客户端在写请求上携带X-Idempotency-Key时，用SetNX在缓存中占位：
// 占位失败说明同一键的请求已经处理过（或正在处理），直接拒绝重放。
// 未携带幂等键的请求不做检查；库存层面的幂等由销售状态机自身保证。
func Idempotency(c cache.Cache, logger *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		method := ctx.Request.Method
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
			ctx.Next()
			return
		}

		key := ctx.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			ctx.Next()
			return
		}

		userID := ctx.GetInt64(ContextKeyUserID)
		cacheKey := fmt.Sprintf("idempotency:%d:%s", userID, key)

		ok, err := c.SetNX(ctx.Request.Context(), cacheKey, true, idempotencyTTL)
		if err != nil {
			// 缓存不可用时放行：宁可放过重放，也不拒绝正常请求
			logger.Warn("idempotency check unavailable",
				zap.String("request_id", RequestIDFrom(ctx)),
				zap.Error(err),
			)
			ctx.Next()
			return
		}
		if !ok {
			logger.Info("duplicate request rejected",
				zap.String("request_id", RequestIDFrom(ctx)),
				zap.Int64("user_id", userID),
				zap.String("idempotency_key", key),
			)
			resp.Error(ctx.Writer, http.StatusConflict, resp.CodeInvalidParam,
				"duplicate request", RequestIDFrom(ctx), TraceIDFrom(ctx))
			ctx.Abort()
			return
		}

		ctx.Next()
	}
}
