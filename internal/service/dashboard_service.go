// Package service 实现仪表盘组合逻辑。
// 组合器串联区间解析、财务聚合（当前与上一区间）和库存总览；
// 任一子查询失败则整体失败，不返回部分结果。
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/LeonQiao/resell_ledger/internal/cache"
	"github.com/LeonQiao/resell_ledger/internal/domain"
	"github.com/LeonQiao/resell_ledger/internal/repo"
)

// dashboardCacheTTL 比分析视图更短：仪表盘是落地页，数据新鲜度要求更高
const dashboardCacheTTL = 30 * time.Second

// recentSalesLimit 是仪表盘展示的最近销售条数
const recentSalesLimit = 5

// topProductsLimit 是仪表盘展示的畅销商品条数
const topProductsLimit = 5

// SalesMetrics 表示仪表盘的销售指标块
type SalesMetrics struct {
	TotalSales        int64           `json:"total_sales"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	TotalFees         decimal.Decimal `json:"total_fees"`
	NetRevenue        decimal.Decimal `json:"net_revenue"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
	SalesGrowth       decimal.Decimal `json:"sales_growth"`
	RevenueGrowth     decimal.Decimal `json:"revenue_growth"`
}

// ExpenseMetrics 表示仪表盘的支出指标块
type ExpenseMetrics struct {
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	ExpenseCount  int64           `json:"expense_count"`
}

// ProfitMetrics 表示仪表盘的利润指标块
type ProfitMetrics struct {
	NetProfit    decimal.Decimal `json:"net_profit"`
	ProfitMargin decimal.Decimal `json:"profit_margin"`
}

// DashboardMetrics 汇总四个指标块
type DashboardMetrics struct {
	Inventory *InventoryOverview `json:"inventory"`
	Sales     *SalesMetrics      `json:"sales"`
	Expenses  *ExpenseMetrics    `json:"expenses"`
	Profit    *ProfitMetrics     `json:"profit"`
}

// DashboardCharts 表示仪表盘的图表数据块
type DashboardCharts struct {
	SalesTrend          []*repo.DailyTrendRow        `json:"sales_trend"`
	PlatformPerformance []*repo.PlatformBreakdownRow `json:"platform_performance"`
	ExpenseBreakdown    []*repo.CategoryBreakdownRow `json:"expense_breakdown"`
}

// DashboardInsights 表示仪表盘的洞察数据块
type DashboardInsights struct {
	TopProducts []*repo.TopProductRow `json:"top_products"`
	RecentSales []*domain.Sale        `json:"recent_sales"`
}

// DashboardPayload 表示完整的仪表盘响应
type DashboardPayload struct {
	Period   domain.Period      `json:"period"`
	Currency domain.Currency    `json:"currency"`
	Metrics  *DashboardMetrics  `json:"metrics"`
	Charts   *DashboardCharts   `json:"charts"`
	Insights *DashboardInsights `json:"insights"`
}

// DashboardService 定义仪表盘组合服务接口
// 告警不内嵌在仪表盘里，保持独立端点以便前端用不同的刷新频率拉取
type DashboardService interface {
	Compose(ctx context.Context, user *domain.User, kind domain.PeriodKind, currency domain.Currency) (*DashboardPayload, error)
}

// dashboardService 实现DashboardService接口
type dashboardService struct {
	analytics   AnalyticsService
	products    ProductService
	saleRepo    repo.SaleRepository
	expenseRepo repo.ExpenseRepository
	cache       cache.Cache
	logger      *zap.Logger
	now         func() time.Time
}

// NewDashboardService 创建仪表盘服务实例
func NewDashboardService(
	analytics AnalyticsService,
	products ProductService,
	saleRepo repo.SaleRepository,
	expenseRepo repo.ExpenseRepository,
	c cache.Cache,
	logger *zap.Logger,
) DashboardService {
	return &dashboardService{
		analytics:   analytics,
		products:    products,
		saleRepo:    saleRepo,
		expenseRepo: expenseRepo,
		cache:       c,
		logger:      logger,
		now:         time.Now,
	}
}

// Compose 组装仪表盘响应
// 步骤：财务汇总（含上一区间增长对比）→ 图表分组 → 库存总览 → 洞察数据。
// 任何一步失败都放弃整个组合并返回ErrDataUnavailable。
func (s *dashboardService) Compose(ctx context.Context, user *domain.User, kind domain.PeriodKind, currency domain.Currency) (*DashboardPayload, error) {
	cacheKey := fmt.Sprintf("dashboard:%d:%s:%s", user.ID, kind, currency)
	cached := &DashboardPayload{}
	if err := s.cache.Get(ctx, cacheKey, cached); err == nil {
		return cached, nil
	}

	summary, err := s.analytics.Summary(ctx, user.ID, kind, currency)
	if err != nil {
		return nil, err
	}

	period := summary.Period

	trend, err := s.saleRepo.DailyTrend(user.ID, period, currency)
	if err != nil {
		return nil, s.unavailable("sales trend", user.ID, err)
	}

	platforms, err := s.saleRepo.PlatformBreakdown(user.ID, period, currency)
	if err != nil {
		return nil, s.unavailable("platform breakdown", user.ID, err)
	}

	categories, err := s.expenseRepo.CategoryBreakdown(user.ID, period, currency)
	if err != nil {
		return nil, s.unavailable("expense breakdown", user.ID, err)
	}

	inventory, err := s.products.GetInventoryOverview(user.ID)
	if err != nil {
		return nil, s.unavailable("inventory overview", user.ID, err)
	}

	topProducts, err := s.saleRepo.TopProducts(user.ID, period, currency, topProductsLimit)
	if err != nil {
		return nil, s.unavailable("top products", user.ID, err)
	}

	recentSales, err := s.saleRepo.Recent(user.ID, recentSalesLimit)
	if err != nil {
		return nil, s.unavailable("recent sales", user.ID, err)
	}

	payload := &DashboardPayload{
		Period:   period,
		Currency: currency,
		Metrics: &DashboardMetrics{
			Inventory: inventory,
			Sales: &SalesMetrics{
				TotalSales:        summary.TotalSales,
				TotalRevenue:      summary.TotalRevenue,
				TotalFees:         summary.TotalFees,
				NetRevenue:        summary.NetRevenue,
				AverageOrderValue: summary.AverageOrderValue,
				SalesGrowth:       summary.SalesGrowth,
				RevenueGrowth:     summary.RevenueGrowth,
			},
			Expenses: &ExpenseMetrics{
				TotalExpenses: summary.TotalExpenses,
				ExpenseCount:  summary.ExpenseCount,
			},
			Profit: &ProfitMetrics{
				NetProfit:    summary.NetProfit,
				ProfitMargin: summary.ProfitMargin,
			},
		},
		Charts: &DashboardCharts{
			SalesTrend:          trend,
			PlatformPerformance: platforms,
			ExpenseBreakdown:    categories,
		},
		Insights: &DashboardInsights{
			TopProducts: topProducts,
			RecentSales: recentSales,
		},
	}

	if err := s.cache.Set(ctx, cacheKey, payload, dashboardCacheTTL); err != nil {
		s.logger.Warn("failed to cache dashboard", zap.String("key", cacheKey), zap.Error(err))
	}

	return payload, nil
}

// unavailable 记录失败的子查询并包装为ErrDataUnavailable
func (s *dashboardService) unavailable(step string, userID int64, err error) error {
	s.logger.Error("dashboard sub-aggregation failed",
		zap.String("step", step),
		zap.Int64("user_id", userID),
		zap.Error(err),
	)
	return fmt.Errorf("%w: %s: %v", ErrDataUnavailable, step, err)
}
