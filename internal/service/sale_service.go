// Package service 实现销售记录业务逻辑，包含状态机迁移和库存联动。
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/LeonQiao/resell_ledger/internal/domain"
	"github.com/LeonQiao/resell_ledger/internal/repo"
)

// 销售相关业务错误
var (
	ErrSaleNotFound          = errors.New("sale not found")
	ErrSaleTerminal          = errors.New("sale is in a terminal state")
	ErrInvalidTransition     = errors.New("invalid sale status transition")
	ErrInsufficientInventory = errors.New("sale quantity exceeds product inventory")
	ErrSaleNotPending        = errors.New("only pending sales can be deleted")
)

// inventoryRetries 是乐观锁冲突后重新读取并重试的最大次数
const inventoryRetries = 3

// SaleService 定义销售记录业务逻辑接口
type SaleService interface {
	CreateSale(userID int64, req *domain.CreateSaleRequest) (*domain.SaleWithDerived, error)
	GetSale(userID, id int64) (*domain.SaleWithDerived, error)
	UpdateSale(userID, id int64, req *domain.UpdateSaleRequest) (*domain.SaleWithDerived, error)
	UpdateSaleStatus(userID, id int64, req *domain.UpdateSaleStatusRequest) (*domain.SaleWithDerived, error)
	DeleteSale(userID, id int64) error
	ListSales(userID int64, req *domain.SaleListRequest) (*domain.SaleListResponse, error)
}

// saleService 实现SaleService接口
type saleService struct {
	saleRepo    repo.SaleRepository
	productRepo repo.ProductRepository
	logger      *zap.Logger
}

// NewSaleService 创建销售服务实例
func NewSaleService(saleRepo repo.SaleRepository, productRepo repo.ProductRepository, logger *zap.Logger) SaleService {
	return &saleService{
		saleRepo:    saleRepo,
		productRepo: productRepo,
		logger:      logger,
	}
}

// withDerived 组装带派生金额的销售视图
// 找不到关联商品时进货成本按0计（商品可能已被物理清理）
func (s *saleService) withDerived(sale *domain.Sale) (*domain.SaleWithDerived, error) {
	product, err := s.productRepo.GetByID(sale.ProductID)
	if err != nil {
		return nil, fmt.Errorf("get product for sale: %w", err)
	}

	purchasePrice := decimal.Zero
	if product != nil {
		purchasePrice = product.PurchasePrice
	}

	return &domain.SaleWithDerived{
		Sale:         sale,
		NetAmount:    sale.NetAmount(),
		Profit:       sale.Profit(purchasePrice),
		ProfitMargin: sale.ProfitMargin(purchasePrice),
	}, nil
}

// CreateSale 创建销售记录
// 业务规则：
// 1. 关联商品必须存在、归属当前用户且未归档（引用完整性）
// 2. 销售数量不能超过商品当前库存
// 3. 新记录初始为pending状态，库存效果尚未作用
func (s *saleService) CreateSale(userID int64, req *domain.CreateSaleRequest) (*domain.SaleWithDerived, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}
	if req.SalePrice.IsNegative() {
		return nil, fmt.Errorf("%w: sale price cannot be negative", ErrInvalidInput)
	}

	product, err := s.productRepo.GetByIDForUser(req.ProductID, userID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if product.IsArchived {
		return nil, ErrProductArchived
	}
	if req.Quantity > product.Quantity {
		return nil, ErrInsufficientInventory
	}

	saleDate := time.Now()
	if req.SaleDate != nil {
		saleDate = *req.SaleDate
	}

	currency, err := domain.ParseCurrency(string(req.Currency), domain.CurrencyGBP)
	if err != nil {
		return nil, err
	}

	sale := &domain.Sale{
		UserID:    userID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		SalePrice: req.SalePrice,
		Currency:  currency,
		Platform:  req.Platform,
		Fees:      req.Fees,
		Status:    domain.SaleStatusPending,
		SaleDate:  saleDate,
	}

	if err := s.saleRepo.Create(sale); err != nil {
		s.logger.Error("failed to create sale", zap.Error(err))
		return nil, fmt.Errorf("create sale: %w", err)
	}

	s.logger.Info("sale created",
		zap.Int64("user_id", userID),
		zap.Int64("sale_id", sale.ID),
		zap.Int64("product_id", sale.ProductID),
		zap.Int("quantity", sale.Quantity),
	)

	return s.withDerived(sale)
}

// GetSale 获取销售详情（校验归属）
func (s *saleService) GetSale(userID, id int64) (*domain.SaleWithDerived, error) {
	sale, err := s.saleRepo.GetByIDForUser(id, userID)
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}
	if sale == nil {
		return nil, ErrSaleNotFound
	}

	return s.withDerived(sale)
}

// UpdateSale 更新销售记录的金额、渠道和费用字段
// 终态记录不可修改；状态变更走UpdateSaleStatus
func (s *saleService) UpdateSale(userID, id int64, req *domain.UpdateSaleRequest) (*domain.SaleWithDerived, error) {
	sale, err := s.saleRepo.GetByIDForUser(id, userID)
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}
	if sale == nil {
		return nil, ErrSaleNotFound
	}
	if sale.Status.IsTerminal() {
		return nil, ErrSaleTerminal
	}

	if req.SalePrice != nil {
		if req.SalePrice.IsNegative() {
			return nil, fmt.Errorf("%w: sale price cannot be negative", ErrInvalidInput)
		}
		sale.SalePrice = *req.SalePrice
	}
	if req.Platform != nil {
		sale.Platform = *req.Platform
	}
	if req.Fees != nil {
		sale.Fees = *req.Fees
	}
	if req.SaleDate != nil {
		sale.SaleDate = *req.SaleDate
	}

	if err := s.saleRepo.Update(sale); err != nil {
		s.logger.Error("failed to update sale", zap.Int64("sale_id", id), zap.Error(err))
		return nil, fmt.Errorf("update sale: %w", err)
	}

	return s.withDerived(sale)
}

// UpdateSaleStatus 执行销售状态迁移
// 业务规则：
// 1. 迁移必须被状态机允许，否则返回ErrInvalidTransition
// 2. 未退货订单进入completed时对库存作用完成效果（扣减数量，累计销量）；已退货订单不扣减
// 3. completed -> refunded 或任何状态 -> cancelled 时，若完成效果已作用则回滚
// 4. 库存效果通过inventory_applied标记保证幂等：重复触发不会二次扣减
func (s *saleService) UpdateSaleStatus(userID, id int64, req *domain.UpdateSaleStatusRequest) (*domain.SaleWithDerived, error) {
	sale, err := s.saleRepo.GetByIDForUser(id, userID)
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}
	if sale == nil {
		return nil, ErrSaleNotFound
	}

	if !sale.Status.CanTransitionTo(req.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, sale.Status, req.Status)
	}

	previous := sale.Status
	sale.Status = req.Status
	if req.IsReturned != nil {
		sale.IsReturned = *req.IsReturned
	}
	if req.Status == domain.SaleStatusRefunded {
		sale.IsReturned = true
	}

	switch req.Status {
	case domain.SaleStatusCompleted:
		// 已退货的订单完成时不作用库存效果
		if !sale.IsReturned {
			if err := s.applyCompletionEffect(sale); err != nil {
				return nil, err
			}
		}
	case domain.SaleStatusRefunded, domain.SaleStatusCancelled:
		if err := s.applyReversalEffect(sale); err != nil {
			return nil, err
		}
	}

	if err := s.saleRepo.Update(sale); err != nil {
		s.logger.Error("failed to update sale status", zap.Int64("sale_id", id), zap.Error(err))
		return nil, fmt.Errorf("update sale: %w", err)
	}

	s.logger.Info("sale status updated",
		zap.Int64("user_id", userID),
		zap.Int64("sale_id", id),
		zap.String("from", string(previous)),
		zap.String("to", string(sale.Status)),
		zap.Bool("inventory_applied", sale.InventoryApplied),
	)

	return s.withDerived(sale)
}

// applyCompletionEffect 将完成效果作用于关联商品：扣减库存并累计销量
// 已作用过（inventory_applied为真）时直接返回，保证幂等
func (s *saleService) applyCompletionEffect(sale *domain.Sale) error {
	if sale.InventoryApplied {
		return nil
	}

	err := s.adjustProductInventory(sale.ProductID, -sale.Quantity, int64(sale.Quantity))
	if err != nil {
		return err
	}

	sale.InventoryApplied = true
	return nil
}

// applyReversalEffect 回滚已作用的完成效果：恢复库存并回退销量
// 未作用过时直接返回，保证幂等
func (s *saleService) applyReversalEffect(sale *domain.Sale) error {
	if !sale.InventoryApplied {
		return nil
	}

	err := s.adjustProductInventory(sale.ProductID, sale.Quantity, -int64(sale.Quantity))
	if err != nil {
		return err
	}

	sale.InventoryApplied = false
	return nil
}

// adjustProductInventory 调整商品库存并重新派生状态
// 使用乐观锁写入，版本冲突时重新读取再重试
func (s *saleService) adjustProductInventory(productID int64, quantityDelta int, salesDelta int64) error {
	for attempt := 0; attempt < inventoryRetries; attempt++ {
		product, err := s.productRepo.GetByID(productID)
		if err != nil {
			return fmt.Errorf("get product: %w", err)
		}
		if product == nil {
			return ErrProductNotFound
		}

		newQuantity := product.Quantity + quantityDelta
		if newQuantity < 0 {
			// 并发销售可能已经耗尽库存；截断到0而不是落库负数
			newQuantity = 0
		}

		status, err := domain.DeriveStatus(newQuantity, product.RestockThreshold)
		if err != nil {
			return err
		}

		product.Quantity = newQuantity
		product.Status = status
		product.TotalSales += salesDelta
		if product.TotalSales < 0 {
			product.TotalSales = 0
		}

		err = s.productRepo.UpdateWithVersion(product)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repo.ErrVersionConflict) {
			return fmt.Errorf("update product inventory: %w", err)
		}

		s.logger.Warn("inventory version conflict, retrying",
			zap.Int64("product_id", productID),
			zap.Int("attempt", attempt+1),
		)
	}

	return fmt.Errorf("update product inventory: %w", repo.ErrVersionConflict)
}

// DeleteSale 删除销售记录；只允许删除pending状态的记录
func (s *saleService) DeleteSale(userID, id int64) error {
	sale, err := s.saleRepo.GetByIDForUser(id, userID)
	if err != nil {
		return fmt.Errorf("get sale: %w", err)
	}
	if sale == nil {
		return ErrSaleNotFound
	}
	if sale.Status != domain.SaleStatusPending {
		return ErrSaleNotPending
	}

	if err := s.saleRepo.Delete(id, userID); err != nil {
		s.logger.Error("failed to delete sale", zap.Int64("sale_id", id), zap.Error(err))
		return fmt.Errorf("delete sale: %w", err)
	}

	return nil
}

// ListSales 获取销售列表，每条附带派生金额
func (s *saleService) ListSales(userID int64, req *domain.SaleListRequest) (*domain.SaleListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	sales, total, err := s.saleRepo.List(userID, req)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}

	result := make([]*domain.SaleWithDerived, 0, len(sales))
	for _, sale := range sales {
		derived, err := s.withDerived(sale)
		if err != nil {
			return nil, err
		}
		result = append(result, derived)
	}

	return &domain.SaleListResponse{
		Sales:    result,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
	}, nil
}
