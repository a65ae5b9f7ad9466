// Package domain 定义销售记录相关的领域模型和状态机规则。
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalePlatform 定义销售渠道（交易市场）
type SalePlatform string

const (
	PlatformEbay     SalePlatform = "ebay"
	PlatformVinted   SalePlatform = "vinted"
	PlatformDepop    SalePlatform = "depop"
	PlatformEtsy     SalePlatform = "etsy"
	PlatformFacebook SalePlatform = "facebook"
	PlatformStockX   SalePlatform = "stockx"
	PlatformInPerson SalePlatform = "in_person"
	PlatformOther    SalePlatform = "other"
)

// SaleStatus 定义销售状态类型
type SaleStatus string

const (
	SaleStatusPending   SaleStatus = "pending"
	SaleStatusPaid      SaleStatus = "paid"
	SaleStatusShipped   SaleStatus = "shipped"
	SaleStatusDelivered SaleStatus = "delivered"
	SaleStatusCompleted SaleStatus = "completed"
	SaleStatusCancelled SaleStatus = "cancelled"
	SaleStatusRefunded  SaleStatus = "refunded"
)

// saleTransitions 定义状态机允许的状态迁移
// 主链：pending -> paid -> shipped -> delivered -> completed
// 侧向：completed 之前的任意状态 -> cancelled；completed -> refunded
var saleTransitions = map[SaleStatus][]SaleStatus{
	SaleStatusPending:   {SaleStatusPaid, SaleStatusCancelled},
	SaleStatusPaid:      {SaleStatusShipped, SaleStatusCancelled},
	SaleStatusShipped:   {SaleStatusDelivered, SaleStatusCancelled},
	SaleStatusDelivered: {SaleStatusCompleted, SaleStatusCancelled},
	SaleStatusCompleted: {SaleStatusRefunded},
	SaleStatusCancelled: {},
	SaleStatusRefunded:  {},
}

// CanTransitionTo 判断当前状态是否允许迁移到目标状态
func (s SaleStatus) CanTransitionTo(target SaleStatus) bool {
	for _, allowed := range saleTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal 判断是否为终态
func (s SaleStatus) IsTerminal() bool {
	return len(saleTransitions[s]) == 0
}

// SaleFees 表示一笔销售的各项费用
// 各项独立累加，promotion_discount 为减项（回加到净额）
type SaleFees struct {
	PlatformFee       decimal.Decimal `json:"platform_fee"`
	PaymentFee        decimal.Decimal `json:"payment_fee"`
	ShippingFee       decimal.Decimal `json:"shipping_fee"`
	PromotionDiscount decimal.Decimal `json:"promotion_discount"`
	Other             decimal.Decimal `json:"other"`
}

// Total 返回费用合计：platform + payment + shipping + other - promotionDiscount
func (f SaleFees) Total() decimal.Decimal {
	return f.PlatformFee.
		Add(f.PaymentFee).
		Add(f.ShippingFee).
		Add(f.Other).
		Sub(f.PromotionDiscount)
}

// Sale 表示销售记录领域模型
// sale_price 是整单金额（非单价）；派生金额在读取时计算，不落库
type Sale struct {
	ID               int64           `json:"id"`
	UserID           int64           `json:"user_id"`
	ProductID        int64           `json:"product_id"`
	Quantity         int             `json:"quantity"`
	SalePrice        decimal.Decimal `json:"sale_price"`
	Currency         Currency        `json:"currency"`
	Platform         SalePlatform    `json:"platform"`
	Fees             SaleFees        `json:"fees"`
	Status           SaleStatus      `json:"status"`
	IsReturned       bool            `json:"is_returned"`
	InventoryApplied bool            `json:"inventory_applied"` // 完成效果是否已作用于库存（幂等保护）
	SaleDate         time.Time       `json:"sale_date"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// NetAmount 返回净额：sale_price - 费用合计
func (s *Sale) NetAmount() decimal.Decimal {
	return s.SalePrice.Sub(s.Fees.Total())
}

// Profit 返回利润：净额 - 进货成本×数量
func (s *Sale) Profit(purchasePrice decimal.Decimal) decimal.Decimal {
	cost := purchasePrice.Mul(decimal.NewFromInt(int64(s.Quantity)))
	return s.NetAmount().Sub(cost)
}

// ProfitMargin 返回利润率（百分比）；净额不为正时返回0，避免除零与无穷
func (s *Sale) ProfitMargin(purchasePrice decimal.Decimal) decimal.Decimal {
	net := s.NetAmount()
	if !net.IsPositive() {
		return decimal.Zero
	}
	hundred := decimal.NewFromInt(100)
	return s.Profit(purchasePrice).Div(net).Mul(hundred)
}

// SaleWithDerived 表示带派生金额的销售记录（读取时计算）
type SaleWithDerived struct {
	*Sale
	NetAmount    decimal.Decimal `json:"net_amount"`
	Profit       decimal.Decimal `json:"profit"`
	ProfitMargin decimal.Decimal `json:"profit_margin"`
}

// CreateSaleRequest 表示创建销售记录请求
type CreateSaleRequest struct {
	ProductID int64           `json:"product_id" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required,gt=0"`
	SalePrice decimal.Decimal `json:"sale_price"`
	Currency  Currency        `json:"currency"`
	Platform  SalePlatform    `json:"platform" binding:"required"`
	Fees      SaleFees        `json:"fees"`
	SaleDate  *time.Time      `json:"sale_date"`
}

// UpdateSaleRequest 表示更新销售记录请求（仅限未进入终态的记录）
type UpdateSaleRequest struct {
	SalePrice *decimal.Decimal `json:"sale_price"`
	Platform  *SalePlatform    `json:"platform"`
	Fees      *SaleFees        `json:"fees"`
	SaleDate  *time.Time       `json:"sale_date"`
}

// UpdateSaleStatusRequest 表示销售状态迁移请求
type UpdateSaleStatusRequest struct {
	Status     SaleStatus `json:"status" binding:"required"`
	IsReturned *bool      `json:"is_returned"`
}

// SaleListRequest 表示销售列表查询请求
type SaleListRequest struct {
	Page      int           `json:"page"`
	PageSize  int           `json:"page_size"`
	Status    *SaleStatus   `json:"status"`
	Platform  *SalePlatform `json:"platform"`
	ProductID *int64        `json:"product_id"`
	From      *time.Time    `json:"from"`
	To        *time.Time    `json:"to"`
}

// SaleListResponse 表示销售列表查询响应
type SaleListResponse struct {
	Sales    []*SaleWithDerived `json:"sales"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
}
