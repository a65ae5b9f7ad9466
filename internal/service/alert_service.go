// Package service 实现告警派生逻辑。
// 告警不落库：每次请求基于当前库存和销售状态重新计算，是无副作用的幂等读取。
package service

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/LeonQiao/resell_ledger/internal/domain"
	"github.com/LeonQiao/resell_ledger/internal/repo"
)

// AlertType 定义告警类型
type AlertType string

const (
	AlertLowStock          AlertType = "low_stock"
	AlertOutOfStock        AlertType = "out_of_stock"
	AlertSubscriptionLimit AlertType = "subscription_limit"
	AlertPendingSales      AlertType = "pending_sales"
)

// AlertSeverity 定义告警级别
type AlertSeverity string

const (
	SeverityInfo    AlertSeverity = "info"
	SeverityWarning AlertSeverity = "warning"
	SeverityError   AlertSeverity = "error"
)

// alertProductRefs 是单条告警携带的代表性商品引用上限
const alertProductRefs = 10

// AlertProductRef 表示告警中的商品引用
type AlertProductRef struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

// Alert 表示一条派生告警
type Alert struct {
	Type           AlertType     `json:"type"`
	Severity       AlertSeverity `json:"severity"`
	Title          string        `json:"title"`
	Message        string        `json:"message"`
	Data           any           `json:"data,omitempty"`
	ActionRequired bool          `json:"action_required"`
}

// AlertListResponse 表示告警查询响应
type AlertListResponse struct {
	Alerts []*Alert `json:"alerts"`
	Count  int      `json:"count"`
}

// AlertService 定义告警派生服务接口
type AlertService interface {
	DeriveAlerts(user *domain.User) (*AlertListResponse, error)
}

// alertService 实现AlertService接口
type alertService struct {
	productRepo repo.ProductRepository
	saleRepo    repo.SaleRepository
	logger      *zap.Logger
}

// NewAlertService 创建告警服务实例
func NewAlertService(productRepo repo.ProductRepository, saleRepo repo.SaleRepository, logger *zap.Logger) AlertService {
	return &alertService{
		productRepo: productRepo,
		saleRepo:    saleRepo,
		logger:      logger,
	}
}

// DeriveAlerts 派生当前用户的告警列表
// 四条规则彼此独立评估，互不抑制；顺序固定：库存告警在前，提示类在后
func (s *alertService) DeriveAlerts(user *domain.User) (*AlertListResponse, error) {
	var alerts []*Alert

	lowStock, err := s.stockAlert(user.ID, domain.ProductStatusLowStock,
		AlertLowStock, SeverityWarning, "Low stock",
		"%d product(s) at or below restock threshold")
	if err != nil {
		return nil, err
	}
	if lowStock != nil {
		alerts = append(alerts, lowStock)
	}

	outOfStock, err := s.stockAlert(user.ID, domain.ProductStatusOutOfStock,
		AlertOutOfStock, SeverityError, "Out of stock",
		"%d product(s) with no remaining inventory")
	if err != nil {
		return nil, err
	}
	if outOfStock != nil {
		alerts = append(alerts, outOfStock)
	}

	limitAlert, err := s.subscriptionLimitAlert(user)
	if err != nil {
		return nil, err
	}
	if limitAlert != nil {
		alerts = append(alerts, limitAlert)
	}

	pendingAlert, err := s.pendingSalesAlert(user.ID)
	if err != nil {
		return nil, err
	}
	if pendingAlert != nil {
		alerts = append(alerts, pendingAlert)
	}

	return &AlertListResponse{
		Alerts: alerts,
		Count:  len(alerts),
	}, nil
}

// stockAlert 针对指定库存状态生成一条汇总告警，携带至多10个代表性商品引用
func (s *alertService) stockAlert(
	userID int64,
	status domain.ProductStatus,
	alertType AlertType,
	severity AlertSeverity,
	title, messageFormat string,
) (*Alert, error) {
	counts, err := s.productRepo.CountByStatus(userID)
	if err != nil {
		s.logger.Error("failed to count products for alerts", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	count := counts[status]
	if count == 0 {
		return nil, nil
	}

	products, err := s.productRepo.ListByStatus(userID, status, alertProductRefs)
	if err != nil {
		s.logger.Error("failed to list products for alerts", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	refs := make([]AlertProductRef, 0, len(products))
	for _, p := range products {
		refs = append(refs, AlertProductRef{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  p.Quantity,
		})
	}

	return &Alert{
		Type:           alertType,
		Severity:       severity,
		Title:          title,
		Message:        fmt.Sprintf(messageFormat, count),
		Data:           map[string]any{"count": count, "products": refs},
		ActionRequired: true,
	}, nil
}

// subscriptionLimitAlert 当free订阅的在册商品数量接近上限时生成提示告警
func (s *alertService) subscriptionLimitAlert(user *domain.User) (*Alert, error) {
	if user.Subscription != domain.SubscriptionFree {
		return nil, nil
	}

	count, err := s.productRepo.CountActive(user.ID)
	if err != nil {
		s.logger.Error("failed to count active products", zap.Int64("user_id", user.ID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	if count < domain.FreeTierWarningThreshold {
		return nil, nil
	}

	return &Alert{
		Type:     AlertSubscriptionLimit,
		Severity: SeverityInfo,
		Title:    "Approaching product limit",
		Message: fmt.Sprintf("You have %d of %d products allowed on the free plan",
			count, domain.FreeTierProductLimit),
		Data: map[string]any{
			"current_count": count,
			"limit":         domain.FreeTierProductLimit,
		},
		ActionRequired: false,
	}, nil
}

// pendingSalesAlert 当存在pending或paid状态的销售时生成提示告警
func (s *alertService) pendingSalesAlert(userID int64) (*Alert, error) {
	count, err := s.saleRepo.CountByStatuses(userID, []domain.SaleStatus{
		domain.SaleStatusPending,
		domain.SaleStatusPaid,
	})
	if err != nil {
		s.logger.Error("failed to count pending sales", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	if count == 0 {
		return nil, nil
	}

	return &Alert{
		Type:           AlertPendingSales,
		Severity:       SeverityInfo,
		Title:          "Sales awaiting action",
		Message:        fmt.Sprintf("%d sale(s) are pending or awaiting shipment", count),
		Data:           map[string]any{"count": count},
		ActionRequired: true,
	}, nil
}
