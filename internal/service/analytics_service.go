// Package service 实现财务聚合业务逻辑：区间汇总、增长率和各类分组视图。
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/LeonQiao/resell_ledger/internal/cache"
	"github.com/LeonQiao/resell_ledger/internal/domain"
	"github.com/LeonQiao/resell_ledger/internal/repo"
)

// ErrDataUnavailable 表示底层存储查询失败，聚合结果不可用
// 组合式读取（仪表盘）遇到它时整体失败，不返回部分结果
var ErrDataUnavailable = errors.New("aggregation data unavailable")

// analyticsCacheTTL 是聚合视图的缓存时长；聚合是读多写少的幂等计算，短缓存即可明显去重
const analyticsCacheTTL = 60 * time.Second

// FinancialSummary 表示一个区间的财务汇总，含与上一等长区间的增长对比
type FinancialSummary struct {
	Period   domain.Period   `json:"period"`
	Currency domain.Currency `json:"currency"`

	TotalSales        int64           `json:"total_sales"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	TotalFees         decimal.Decimal `json:"total_fees"`
	NetRevenue        decimal.Decimal `json:"net_revenue"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`

	TotalExpenses decimal.Decimal `json:"total_expenses"`
	ExpenseCount  int64           `json:"expense_count"`

	NetProfit    decimal.Decimal `json:"net_profit"`
	ProfitMargin decimal.Decimal `json:"profit_margin"`

	RevenueGrowth decimal.Decimal `json:"revenue_growth"`
	SalesGrowth   decimal.Decimal `json:"sales_growth"`
}

// AnalyticsService 定义财务聚合服务接口
type AnalyticsService interface {
	Summary(ctx context.Context, userID int64, kind domain.PeriodKind, currency domain.Currency) (*FinancialSummary, error)
	PlatformBreakdown(ctx context.Context, userID int64, kind domain.PeriodKind, currency domain.Currency) ([]*repo.PlatformBreakdownRow, error)
	CategoryBreakdown(ctx context.Context, userID int64, kind domain.PeriodKind, currency domain.Currency) ([]*repo.CategoryBreakdownRow, error)
	SalesTrend(ctx context.Context, userID int64, kind domain.PeriodKind, currency domain.Currency) ([]*repo.DailyTrendRow, error)
	TopProducts(ctx context.Context, userID int64, kind domain.PeriodKind, currency domain.Currency, limit int) ([]*repo.TopProductRow, error)
}

// analyticsService 实现AnalyticsService接口
type analyticsService struct {
	saleRepo    repo.SaleRepository
	expenseRepo repo.ExpenseRepository
	cache       cache.Cache
	logger      *zap.Logger
	now         func() time.Time
}

// NewAnalyticsService 创建财务聚合服务实例
func NewAnalyticsService(
	saleRepo repo.SaleRepository,
	expenseRepo repo.ExpenseRepository,
	c cache.Cache,
	logger *zap.Logger,
) AnalyticsService {
	return &analyticsService{
		saleRepo:    saleRepo,
		expenseRepo: expenseRepo,
		cache:       c,
		logger:      logger,
		now:         time.Now,
	}
}

// growthPercent 计算两个数值之间的百分比增长
// 边界规则：上期为0时，本期为正返回100，否则返回0（避免除零和无穷大）
func growthPercent(current, previous decimal.Decimal) decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	if previous.IsZero() {
		if current.IsPositive() {
			return hundred
		}
		return decimal.Zero
	}
	return current.Sub(previous).Div(previous).Mul(hundred)
}

// marginPercent 计算净利润率：netRevenue不为正时返回0
func marginPercent(netProfit, netRevenue decimal.Decimal) decimal.Decimal {
	if !netRevenue.IsPositive() {
		return decimal.Zero
	}
	return netProfit.Div(netRevenue).Mul(decimal.NewFromInt(100))
}

// aggregate 对单个区间做聚合，不含增长对比
func (s *analyticsService) aggregate(userID int64, period domain.Period, currency domain.Currency) (*FinancialSummary, error) {
	salesRow, err := s.saleRepo.Summary(userID, period, currency)
	if err != nil {
		s.logger.Error("sales aggregation failed", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	expenseRow, err := s.expenseRepo.Summary(userID, period, currency)
	if err != nil {
		s.logger.Error("expense aggregation failed", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	netRevenue := salesRow.TotalRevenue.Sub(salesRow.TotalFees)
	netProfit := netRevenue.Sub(expenseRow.TotalExpenses)

	return &FinancialSummary{
		Period:            period,
		Currency:          currency,
		TotalSales:        salesRow.TotalSales,
		TotalRevenue:      salesRow.TotalRevenue,
		TotalFees:         salesRow.TotalFees,
		NetRevenue:        netRevenue,
		AverageOrderValue: salesRow.AverageOrderValue,
		TotalExpenses:     expenseRow.TotalExpenses,
		ExpenseCount:      expenseRow.Count,
		NetProfit:         netProfit,
		ProfitMargin:      marginPercent(netProfit, netRevenue),
	}, nil
}

// Summary 计算当前区间的财务汇总，并与上一等长区间对比得出增长率
func (s *analyticsService) Summary(ctx context.Context, userID int64, kind domain.PeriodKind, currency domain.Currency) (*FinancialSummary, error) {
	cacheKey := fmt.Sprintf("analytics:summary:%d:%s:%s", userID, kind, currency)
	cached := &FinancialSummary{}
	if err := s.cache.Get(ctx, cacheKey, cached); err == nil {
		return cached, nil
	}

	period, err := domain.ResolvePeriod(kind, s.now())
	if err != nil {
		return nil, err
	}
	previous := period.Previous()

	current, err := s.aggregate(userID, period, currency)
	if err != nil {
		return nil, err
	}
	prior, err := s.aggregate(userID, previous, currency)
	if err != nil {
		return nil, err
	}

	current.RevenueGrowth = growthPercent(current.TotalRevenue, prior.TotalRevenue)
	current.SalesGrowth = growthPercent(
		decimal.NewFromInt(current.TotalSales),
		decimal.NewFromInt(prior.TotalSales),
	)

	if err := s.cache.Set(ctx, cacheKey, current, analyticsCacheTTL); err != nil {
		s.logger.Warn("failed to cache summary", zap.String("key", cacheKey), zap.Error(err))
	}

	return current, nil
}

// PlatformBreakdown 按销售平台分组的区间聚合
func (s *analyticsService) PlatformBreakdown(ctx context.Context, userID int64, kind domain.PeriodKind, currency domain.Currency) ([]*repo.PlatformBreakdownRow, error) {
	period, err := domain.ResolvePeriod(kind, s.now())
	if err != nil {
		return nil, err
	}

	rows, err := s.saleRepo.PlatformBreakdown(userID, period, currency)
	if err != nil {
		s.logger.Error("platform breakdown failed", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	return rows, nil
}

// CategoryBreakdown 按支出分类分组的区间聚合
func (s *analyticsService) CategoryBreakdown(ctx context.Context, userID int64, kind domain.PeriodKind, currency domain.Currency) ([]*repo.CategoryBreakdownRow, error) {
	period, err := domain.ResolvePeriod(kind, s.now())
	if err != nil {
		return nil, err
	}

	rows, err := s.expenseRepo.CategoryBreakdown(userID, period, currency)
	if err != nil {
		s.logger.Error("category breakdown failed", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	return rows, nil
}

// SalesTrend 按日历日分桶的销售走势
func (s *analyticsService) SalesTrend(ctx context.Context, userID int64, kind domain.PeriodKind, currency domain.Currency) ([]*repo.DailyTrendRow, error) {
	period, err := domain.ResolvePeriod(kind, s.now())
	if err != nil {
		return nil, err
	}

	rows, err := s.saleRepo.DailyTrend(userID, period, currency)
	if err != nil {
		s.logger.Error("sales trend failed", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	return rows, nil
}

// TopProducts 区间内销量前N的商品
func (s *analyticsService) TopProducts(ctx context.Context, userID int64, kind domain.PeriodKind, currency domain.Currency, limit int) ([]*repo.TopProductRow, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	period, err := domain.ResolvePeriod(kind, s.now())
	if err != nil {
		return nil, err
	}

	rows, err := s.saleRepo.TopProducts(userID, period, currency, limit)
	if err != nil {
		s.logger.Error("top products failed", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	return rows, nil
}
