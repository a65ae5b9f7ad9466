// Package router 提供 HTTP 路由设置和中间件配置功能
package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/LeonQiao/resell_ledger/internal/api"
	"github.com/LeonQiao/resell_ledger/internal/cache"
	"github.com/LeonQiao/resell_ledger/internal/config"
	"github.com/LeonQiao/resell_ledger/internal/limiter"
	"github.com/LeonQiao/resell_ledger/internal/middleware"
	"github.com/LeonQiao/resell_ledger/internal/service"
)

// Dependencies 包含路由设置所需的所有依赖
type Dependencies struct {
	UserHandler      *api.UserHandler
	ProductHandler   *api.ProductHandler
	SaleHandler      *api.SaleHandler
	ExpenseHandler   *api.ExpenseHandler
	AnalyticsHandler *api.AnalyticsHandler
	JWTService       service.JWTService
	UserService      service.UserService
	Cache            cache.Cache
	RateLimiter      limiter.Limiter
}

// Router 路由器接口
type Router interface {
	Setup(cfg *config.Config, deps *Dependencies, lg *zap.Logger) http.Handler
}

// GinRouter Gin路由器实现
type GinRouter struct {
	engine *gin.Engine
	deps   *Dependencies
	logger *zap.Logger
}

// New 创建新的路由器实例
func New() Router {
	return &GinRouter{}
}

// Setup 设置路由和中间件
func (r *GinRouter) Setup(cfg *config.Config, deps *Dependencies, lg *zap.Logger) http.Handler {
	// 根据环境设置 Gin 模式
	if cfg.App.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	r.engine = gin.New()
	r.deps = deps
	r.logger = lg

	r.setupMiddleware(cfg)
	r.setupRoutes(cfg)

	return r.engine
}

// setupMiddleware 设置全局中间件
// 顺序敏感：请求ID必须最先注入，后续的访问日志和panic恢复都依赖它
func (r *GinRouter) setupMiddleware(cfg *config.Config) {
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.AccessLog(r.logger))
	r.engine.Use(middleware.Recovery(r.logger))
	r.engine.Use(r.corsMiddleware(cfg))

	if cfg.App.RequestTimeout > 0 {
		r.engine.Use(middleware.Timeout(cfg.App.RequestTimeout))
	}
}

// setupRoutes 设置所有路由
func (r *GinRouter) setupRoutes(cfg *config.Config) {
	// 健康检查
	r.engine.GET("/healthz", r.healthCheck(cfg))

	auth := middleware.Auth(r.deps.JWTService, r.deps.UserService, r.logger)

	// API 限流：按用户+路径维度，仅在配置开启且限流器可用时挂载
	var rateLimit gin.HandlerFunc
	if cfg.RateLimit.Enabled && r.deps.RateLimiter != nil {
		rateLimit = limiter.APIRateLimitMiddleware(r.deps.RateLimiter)
	}

	// API v1 路由组
	v1 := r.engine.Group("/api/v1")
	{
		// 认证路由（无需认证）
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", r.deps.UserHandler.Register)
			authGroup.POST("/login", r.deps.UserHandler.Login)
			authGroup.POST("/refresh", r.deps.UserHandler.RefreshToken)
		}

		// 用户路由（需要认证）
		users := v1.Group("/users")
		users.Use(auth)
		{
			users.GET("/profile", r.deps.UserHandler.GetProfile)
			users.PUT("/preferences", r.deps.UserHandler.UpdatePreferences)
		}

		// 商品与库存路由（需要认证，归属当前用户）
		products := v1.Group("/products")
		products.Use(auth)
		if rateLimit != nil {
			products.Use(rateLimit)
		}
		{
			products.POST("", r.deps.ProductHandler.Create)
			products.GET("", r.deps.ProductHandler.List)
			products.GET("/overview", r.deps.ProductHandler.Overview)
			products.POST("/import", r.deps.ProductHandler.Import)
			products.GET("/:id", r.deps.ProductHandler.Get)
			products.PUT("/:id", r.deps.ProductHandler.Update)
			products.DELETE("/:id", r.deps.ProductHandler.Archive)
		}

		// 销售路由（需要认证；写操作支持幂等键）
		idempotency := middleware.Idempotency(r.deps.Cache, r.logger)
		sales := v1.Group("/sales")
		sales.Use(auth)
		if rateLimit != nil {
			sales.Use(rateLimit)
		}
		{
			sales.POST("", idempotency, r.deps.SaleHandler.Create)
			sales.GET("", r.deps.SaleHandler.List)
			sales.GET("/:id", r.deps.SaleHandler.Get)
			sales.PUT("/:id", r.deps.SaleHandler.Update)
			sales.PUT("/:id/status", idempotency, r.deps.SaleHandler.UpdateStatus)
			sales.DELETE("/:id", r.deps.SaleHandler.Delete)
		}

		// 支出路由（需要认证）
		expenses := v1.Group("/expenses")
		expenses.Use(auth)
		if rateLimit != nil {
			expenses.Use(rateLimit)
		}
		{
			expenses.POST("", r.deps.ExpenseHandler.Create)
			expenses.GET("", r.deps.ExpenseHandler.List)
			expenses.GET("/:id", r.deps.ExpenseHandler.Get)
			expenses.PUT("/:id", r.deps.ExpenseHandler.Update)
			expenses.DELETE("/:id", r.deps.ExpenseHandler.Delete)
		}

		// 仪表盘与告警路由（需要认证）
		dashboard := v1.Group("/dashboard")
		dashboard.Use(auth)
		if rateLimit != nil {
			dashboard.Use(rateLimit)
		}
		{
			dashboard.GET("", r.deps.AnalyticsHandler.Dashboard)
			dashboard.GET("/alerts", r.deps.AnalyticsHandler.Alerts)
		}

		// 分析路由（需要认证）
		analytics := v1.Group("/analytics")
		analytics.Use(auth)
		if rateLimit != nil {
			analytics.Use(rateLimit)
		}
		{
			analytics.GET("/summary", r.deps.AnalyticsHandler.Summary)
			analytics.GET("/platforms", r.deps.AnalyticsHandler.Platforms)
			analytics.GET("/categories", r.deps.AnalyticsHandler.Categories)
			analytics.GET("/trend", r.deps.AnalyticsHandler.Trend)
			analytics.GET("/top-products", r.deps.AnalyticsHandler.TopProducts)
		}
	}
}

// healthCheck 健康检查处理器
func (r *GinRouter) healthCheck(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": cfg.App.Version,
		})
	}
}

// corsMiddleware CORS 中间件
func (r *GinRouter) corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	origins := strings.Join(cfg.CORS.AllowedOrigins, ", ")
	methods := strings.Join(cfg.CORS.AllowedMethods, ", ")
	headers := strings.Join(cfg.CORS.AllowedHeaders, ", ")

	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origins)
		c.Header("Access-Control-Allow-Methods", methods)
		c.Header("Access-Control-Allow-Headers", headers)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
