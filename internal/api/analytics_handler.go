// Package api 提供仪表盘、告警和分析视图的HTTP API处理器。
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/LeonQiao/resell_ledger/internal/domain"
	"github.com/LeonQiao/resell_ledger/internal/middleware"
	"github.com/LeonQiao/resell_ledger/internal/resp"
	"github.com/LeonQiao/resell_ledger/internal/service"
)

// AnalyticsHandler 仪表盘与分析相关的HTTP处理器
type AnalyticsHandler struct {
	dashboardService service.DashboardService
	analyticsService service.AnalyticsService
	alertService     service.AlertService
	logger           *zap.Logger
}

// NewAnalyticsHandler 创建分析处理器实例
func NewAnalyticsHandler(
	dashboardService service.DashboardService,
	analyticsService service.AnalyticsService,
	alertService service.AlertService,
	logger *zap.Logger,
) *AnalyticsHandler {
	return &AnalyticsHandler{
		dashboardService: dashboardService,
		analyticsService: analyticsService,
		alertService:     alertService,
		logger:           logger,
	}
}

// parsePeriodAndCurrency 解析period与currency查询参数
// period缺省month；currency缺省用户偏好。非法输入在任何聚合开始前拒绝
func (h *AnalyticsHandler) parsePeriodAndCurrency(c *gin.Context, user *domain.User) (domain.PeriodKind, domain.Currency, bool) {
	reqID := middleware.RequestIDFrom(c)

	kind, err := domain.ParsePeriodKind(c.Query("period"))
	if err != nil {
		resp.Error(c.Writer, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
		return "", "", false
	}

	currency, err := domain.ParseCurrency(c.Query("currency"), user.Currency)
	if err != nil {
		resp.Error(c.Writer, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
		return "", "", false
	}

	return kind, currency, true
}

// Dashboard 获取组合仪表盘
// GET /api/v1/dashboard?period=&currency=
func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	reqID := middleware.RequestIDFrom(c)

	user, ok := requireUser(c)
	if !ok {
		return
	}
	kind, currency, ok := h.parsePeriodAndCurrency(c, user)
	if !ok {
		return
	}

	payload, err := h.dashboardService.Compose(c.Request.Context(), user, kind, currency)
	if err != nil {
		h.writeAggregationError(c, err, "dashboard failed")
		return
	}

	resp.OK(c.Writer, payload, reqID, "")
}

// Alerts 获取派生告警列表
// GET /api/v1/dashboard/alerts
func (h *AnalyticsHandler) Alerts(c *gin.Context) {
	reqID := middleware.RequestIDFrom(c)

	user, ok := requireUser(c)
	if !ok {
		return
	}

	alerts, err := h.alertService.DeriveAlerts(user)
	if err != nil {
		h.writeAggregationError(c, err, "derive alerts failed")
		return
	}

	resp.OK(c.Writer, alerts, reqID, "")
}

// Summary 获取财务汇总
// GET /api/v1/analytics/summary?period=&currency=
func (h *AnalyticsHandler) Summary(c *gin.Context) {
	reqID := middleware.RequestIDFrom(c)

	user, ok := requireUser(c)
	if !ok {
		return
	}
	kind, currency, ok := h.parsePeriodAndCurrency(c, user)
	if !ok {
		return
	}

	summary, err := h.analyticsService.Summary(c.Request.Context(), user.ID, kind, currency)
	if err != nil {
		h.writeAggregationError(c, err, "analytics summary failed")
		return
	}

	resp.OK(c.Writer, summary, reqID, "")
}

// Platforms 获取平台分组聚合
// GET /api/v1/analytics/platforms?period=&currency=
func (h *AnalyticsHandler) Platforms(c *gin.Context) {
	reqID := middleware.RequestIDFrom(c)

	user, ok := requireUser(c)
	if !ok {
		return
	}
	kind, currency, ok := h.parsePeriodAndCurrency(c, user)
	if !ok {
		return
	}

	rows, err := h.analyticsService.PlatformBreakdown(c.Request.Context(), user.ID, kind, currency)
	if err != nil {
		h.writeAggregationError(c, err, "platform breakdown failed")
		return
	}

	resp.OK(c.Writer, rows, reqID, "")
}

// Categories 获取支出分类聚合
// GET /api/v1/analytics/categories?period=&currency=
func (h *AnalyticsHandler) Categories(c *gin.Context) {
	reqID := middleware.RequestIDFrom(c)

	user, ok := requireUser(c)
	if !ok {
		return
	}
	kind, currency, ok := h.parsePeriodAndCurrency(c, user)
	if !ok {
		return
	}

	rows, err := h.analyticsService.CategoryBreakdown(c.Request.Context(), user.ID, kind, currency)
	if err != nil {
		h.writeAggregationError(c, err, "category breakdown failed")
		return
	}

	resp.OK(c.Writer, rows, reqID, "")
}

// Trend 获取按日分桶的销售走势
// GET /api/v1/analytics/trend?period=&currency=
func (h *AnalyticsHandler) Trend(c *gin.Context) {
	reqID := middleware.RequestIDFrom(c)

	user, ok := requireUser(c)
	if !ok {
		return
	}
	kind, currency, ok := h.parsePeriodAndCurrency(c, user)
	if !ok {
		return
	}

	rows, err := h.analyticsService.SalesTrend(c.Request.Context(), user.ID, kind, currency)
	if err != nil {
		h.writeAggregationError(c, err, "sales trend failed")
		return
	}

	resp.OK(c.Writer, rows, reqID, "")
}

// TopProducts 获取销量排行
// GET /api/v1/analytics/top-products?period=&currency=&limit=
func (h *AnalyticsHandler) TopProducts(c *gin.Context) {
	reqID := middleware.RequestIDFrom(c)

	user, ok := requireUser(c)
	if !ok {
		return
	}
	kind, currency, ok := h.parsePeriodAndCurrency(c, user)
	if !ok {
		return
	}

	limit := 10
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 50 {
		limit = v
	}

	rows, err := h.analyticsService.TopProducts(c.Request.Context(), user.ID, kind, currency, limit)
	if err != nil {
		h.writeAggregationError(c, err, "top products failed")
		return
	}

	resp.OK(c.Writer, rows, reqID, "")
}

// writeAggregationError 将聚合错误映射为HTTP响应
// 存储层查询失败统一返回503：聚合是组合式读取，任一子查询失败都不返回部分结果
func (h *AnalyticsHandler) writeAggregationError(c *gin.Context, err error, fallback string) {
	reqID := middleware.RequestIDFrom(c)

	switch {
	case errors.Is(err, domain.ErrInvalidPeriod), errors.Is(err, domain.ErrInvalidCurrency):
		resp.Error(c.Writer, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
	case errors.Is(err, service.ErrDataUnavailable):
		h.logger.Error(fallback, zap.String("request_id", reqID), zap.Error(err))
		resp.Error(c.Writer, http.StatusServiceUnavailable, resp.CodeUnavailable, "data temporarily unavailable", reqID, "")
	default:
		h.logger.Error(fallback, zap.String("request_id", reqID), zap.Error(err))
		resp.Error(c.Writer, http.StatusInternalServerError, resp.CodeInternalError, fallback, reqID, "")
	}
}
