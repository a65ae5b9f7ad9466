package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/LeonQiao/resell_ledger/internal/api"
	"github.com/LeonQiao/resell_ledger/internal/cache"
	"github.com/LeonQiao/resell_ledger/internal/config"
	"github.com/LeonQiao/resell_ledger/internal/database"
	"github.com/LeonQiao/resell_ledger/internal/limiter"
	"github.com/LeonQiao/resell_ledger/internal/logger"
	"github.com/LeonQiao/resell_ledger/internal/repo"
	"github.com/LeonQiao/resell_ledger/internal/router"
	"github.com/LeonQiao/resell_ledger/internal/service"
)

// initConfigAndLogger 初始化配置和日志器
func initConfigAndLogger() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %v", err)
	}

	lg, err := logger.New(cfg.App.Env, cfg.Log.Level, cfg.Log.Encoding, cfg.App.Name, cfg.App.Version)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %v", err)
	}

	return cfg, lg, nil
}

// initDatabase 初始化数据库连接并执行迁移
// 迁移在HTTP服务器启动前完成，处理请求时数据库结构已就绪
func initDatabase(cfg *config.Config, lg *zap.Logger) (*database.DB, error) {
	db, err := database.New(cfg, lg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	migrationsDir := cfg.Migrations.Dir
	lg.Sugar().Infow("using migrations directory", "path", migrationsDir)

	if err := db.RunMigrations(migrationsDir); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %v", err)
	}

	return db, nil
}

// initCache 初始化缓存实例
func initCache(cfg *config.Config, lg *zap.Logger) cache.Cache {
	if !cfg.Cache.Enabled {
		lg.Sugar().Infow("cache disabled")
		return cache.NewNullCache()
	}

	switch cfg.Cache.Type {
	case "redis":
		redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		redisCache, err := cache.NewRedisCache(redisAddr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			lg.Sugar().Warnw("failed to connect to Redis, falling back to memory cache", "error", err)
			return cache.NewMemoryCache()
		}
		lg.Sugar().Infow("cache enabled", "type", "redis", "addr", redisAddr, "ttl", cfg.Cache.TTL)
		return redisCache
	case "memory":
		lg.Sugar().Infow("cache enabled", "type", "memory", "ttl", cfg.Cache.TTL)
		return cache.NewMemoryCache()
	default:
		lg.Sugar().Warnw("unknown cache type, using memory cache", "type", cfg.Cache.Type)
		return cache.NewMemoryCache()
	}
}

// initRateLimiter 初始化API限流器（基于Redis令牌桶）
// 限流未开启或Redis不可用时返回nil，路由层据此跳过限流中间件
func initRateLimiter(cfg *config.Config, lg *zap.Logger) limiter.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		lg.Sugar().Warnw("redis unavailable, rate limiting disabled", "error", err)
		return nil
	}

	lim, err := limiter.NewFactory(client).Create(limiter.TokenBucket, &limiter.Config{
		Rate:   cfg.RateLimit.Rate,
		Window: cfg.RateLimit.Window,
		Burst:  cfg.RateLimit.Burst,
	})
	if err != nil {
		lg.Sugar().Warnw("failed to create rate limiter, rate limiting disabled", "error", err)
		return nil
	}

	lg.Sugar().Infow("rate limiting enabled",
		"rate", cfg.RateLimit.Rate, "window", cfg.RateLimit.Window, "burst", cfg.RateLimit.Burst)
	return lim
}

// initDependencies 初始化应用依赖（仓储、服务、处理器）
func initDependencies(cfg *config.Config, db *database.DB, cacheInstance cache.Cache, rateLimiter limiter.Limiter, lg *zap.Logger) *router.Dependencies {
	// 依赖注入链：仓储 -> 服务 -> API处理器
	userRepo := repo.NewUserRepository(db)
	productRepo := repo.NewProductRepository(db.DB)
	saleRepo := repo.NewSaleRepository(db.DB)
	expenseRepo := repo.NewExpenseRepository(db.DB)

	userService := service.NewUserService(userRepo, lg)
	jwtService := service.NewJWTService(cfg, lg)
	productService := service.NewProductService(productRepo, lg)
	saleService := service.NewSaleService(saleRepo, productRepo, lg)
	expenseService := service.NewExpenseService(expenseRepo, productRepo, saleRepo, lg)
	analyticsService := service.NewAnalyticsService(saleRepo, expenseRepo, cacheInstance, lg)
	alertService := service.NewAlertService(productRepo, saleRepo, lg)
	dashboardService := service.NewDashboardService(analyticsService, productService, saleRepo, expenseRepo, cacheInstance, lg)

	return &router.Dependencies{
		UserHandler:      api.NewUserHandler(userService, jwtService, lg),
		ProductHandler:   api.NewProductHandler(productService, lg),
		SaleHandler:      api.NewSaleHandler(saleService, lg),
		ExpenseHandler:   api.NewExpenseHandler(expenseService, lg),
		AnalyticsHandler: api.NewAnalyticsHandler(dashboardService, analyticsService, alertService, lg),
		JWTService:       jwtService,
		UserService:      userService,
		Cache:            cacheInstance,
		RateLimiter:      rateLimiter,
	}
}

// startServer 启动服务器并处理优雅关闭
func startServer(cfg *config.Config, handler http.Handler, lg *zap.Logger) {
	addr := fmt.Sprintf(":%d", cfg.App.Port)
	lg.Sugar().Infow("server starting", "addr", addr)
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	select {
	case err := <-serverErrCh:
		if err != nil && err != http.ErrServerClosed {
			lg.Sugar().Fatalw("server error", "err", err)
		}
	case <-quit:
		lg.Sugar().Infow("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		lg.Sugar().Errorw("server shutdown error", "err", err)
	}
	lg.Sugar().Infow("server exited")
}

// main 为应用入口，协调各个组件的初始化和启动
func main() {
	// 1) 加载配置和初始化日志
	cfg, lg, err := initConfigAndLogger()
	if err != nil {
		log.Fatalf("failed to initialize config and logger: %v", err)
	}

	// 2) 初始化数据库连接并执行迁移
	db, err := initDatabase(cfg, lg)
	if err != nil {
		lg.Sugar().Fatalw("failed to initialize database", "err", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			lg.Sugar().Errorw("failed to close database connection", "err", err)
		}
	}()

	// 3) 初始化缓存与限流器
	cacheInstance := initCache(cfg, lg)
	rateLimiter := initRateLimiter(cfg, lg)

	// 4) 初始化应用依赖（仓储、服务、处理器）
	deps := initDependencies(cfg, db, cacheInstance, rateLimiter, lg)

	// 5) 设置路由并启动 HTTP 服务器
	handler := router.New().Setup(cfg, deps, lg)
	startServer(cfg, handler, lg)
}
