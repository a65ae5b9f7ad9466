package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/LeonQiao/resell_ledger/internal/resp"
)

// Recovery captures panics and responds with a structured error.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic recovered",
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()),
					zap.String("request_id", RequestIDFrom(c)),
				)
				resp.Error(c.Writer, http.StatusInternalServerError, resp.CodeInternalError,
					"internal server error", RequestIDFrom(c), TraceIDFrom(c))
				c.Abort()
			}
		}()
		c.Next()
	}
}
