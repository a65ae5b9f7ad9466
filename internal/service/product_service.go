// Package service 实现业务逻辑层，协调各种资源完成业务需求。
package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/LeonQiao/resell_ledger/internal/domain"
	"github.com/LeonQiao/resell_ledger/internal/repo"
)

// 商品相关业务错误
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrProductNotFound  = errors.New("product not found")
	ErrProductLimit     = errors.New("product limit reached for current subscription")
	ErrProductArchived  = errors.New("product is archived")
	ErrNegativeQuantity = errors.New("quantity and restock threshold must be non-negative")
)

// InventoryOverview 表示仪表盘用的库存总览，单次遍历计数结果
type InventoryOverview struct {
	TotalProducts   int64           `json:"total_products"`
	ActiveCount     int64           `json:"active_count"`
	LowStockCount   int64           `json:"low_stock_count"`
	OutOfStockCount int64           `json:"out_of_stock_count"`
	InventoryValue  decimal.Decimal `json:"inventory_value"`
}

// ProductService 定义商品业务逻辑接口
type ProductService interface {
	// 商品管理
	CreateProduct(user *domain.User, req *domain.CreateProductRequest) (*domain.Product, error)
	GetProduct(userID, id int64) (*domain.Product, error)
	UpdateProduct(userID, id int64, req *domain.UpdateProductRequest) (*domain.Product, error)
	ArchiveProduct(userID, id int64) (*domain.Product, error)

	// 商品查询
	ListProducts(userID int64, req *domain.ProductListRequest) (*domain.ProductListResponse, error)

	// 批量导入与统计
	ImportProducts(user *domain.User, req *domain.ImportProductsRequest) (*domain.ImportProductsResponse, error)
	GetInventoryOverview(userID int64) (*InventoryOverview, error)
}

// productService 实现ProductService接口
type productService struct {
	productRepo repo.ProductRepository
	logger      *zap.Logger
}

// NewProductService 创建商品服务实例
func NewProductService(productRepo repo.ProductRepository, logger *zap.Logger) ProductService {
	return &productService{
		productRepo: productRepo,
		logger:      logger,
	}
}

// validateCreateRequest 校验创建请求的业务规则
// 数量和阈值必须非负；进货价不能为负；分类和成色必须属于枚举
func validateCreateRequest(req *domain.CreateProductRequest) error {
	if req.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if req.Quantity < 0 {
		return ErrNegativeQuantity
	}
	if req.RestockThreshold != nil && *req.RestockThreshold < 0 {
		return ErrNegativeQuantity
	}
	if req.PurchasePrice.IsNegative() {
		return fmt.Errorf("%w: purchase price cannot be negative", ErrInvalidInput)
	}
	if req.ListingPrice != nil && req.ListingPrice.IsNegative() {
		return fmt.Errorf("%w: listing price cannot be negative", ErrInvalidInput)
	}
	return nil
}

// CreateProduct 创建商品
// 业务规则：
// 1. free订阅的在册商品数量不能超过上限
// 2. 补货阈值缺省为1
// 3. 库存状态总是由数量和阈值派生，客户端不能指定
func (s *productService) CreateProduct(user *domain.User, req *domain.CreateProductRequest) (*domain.Product, error) {
	if err := validateCreateRequest(req); err != nil {
		return nil, err
	}

	if limit := user.ProductLimit(); limit > 0 {
		count, err := s.productRepo.CountActive(user.ID)
		if err != nil {
			return nil, fmt.Errorf("count active products: %w", err)
		}
		if count >= int64(limit) {
			return nil, ErrProductLimit
		}
	}

	threshold := 1
	if req.RestockThreshold != nil {
		threshold = *req.RestockThreshold
	}

	status, err := domain.DeriveStatus(req.Quantity, threshold)
	if err != nil {
		return nil, err
	}

	product := &domain.Product{
		UserID:           user.ID,
		Name:             req.Name,
		Category:         req.Category,
		Condition:        req.Condition,
		Size:             req.Size,
		Brand:            req.Brand,
		PurchasePrice:    req.PurchasePrice,
		ListingPrice:     req.ListingPrice,
		Quantity:         req.Quantity,
		RestockThreshold: threshold,
		Status:           status,
	}

	if err := s.productRepo.Create(product); err != nil {
		s.logger.Error("failed to create product", zap.Error(err))
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.logger.Info("product created",
		zap.Int64("user_id", user.ID),
		zap.Int64("product_id", product.ID),
		zap.String("status", string(product.Status)),
	)

	return product, nil
}

// GetProduct 获取商品详情（校验归属）
func (s *productService) GetProduct(userID, id int64) (*domain.Product, error) {
	product, err := s.productRepo.GetByIDForUser(id, userID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	return product, nil
}

// UpdateProduct 更新商品
// 任何改变数量或阈值的更新之后都会重新派生状态再持久化
func (s *productService) UpdateProduct(userID, id int64, req *domain.UpdateProductRequest) (*domain.Product, error) {
	product, err := s.productRepo.GetByIDForUser(id, userID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
		}
		product.Name = *req.Name
	}
	if req.Category != nil {
		product.Category = *req.Category
	}
	if req.Condition != nil {
		product.Condition = *req.Condition
	}
	if req.Size != nil {
		product.Size = *req.Size
	}
	if req.Brand != nil {
		product.Brand = *req.Brand
	}
	if req.PurchasePrice != nil {
		if req.PurchasePrice.IsNegative() {
			return nil, fmt.Errorf("%w: purchase price cannot be negative", ErrInvalidInput)
		}
		product.PurchasePrice = *req.PurchasePrice
	}
	if req.ListingPrice != nil {
		if req.ListingPrice.IsNegative() {
			return nil, fmt.Errorf("%w: listing price cannot be negative", ErrInvalidInput)
		}
		product.ListingPrice = req.ListingPrice
	}
	if req.Quantity != nil {
		if *req.Quantity < 0 {
			return nil, ErrNegativeQuantity
		}
		product.Quantity = *req.Quantity
	}
	if req.RestockThreshold != nil {
		if *req.RestockThreshold < 0 {
			return nil, ErrNegativeQuantity
		}
		product.RestockThreshold = *req.RestockThreshold
	}
	if req.IsArchived != nil {
		product.IsArchived = *req.IsArchived
	}

	// 状态总是随数量和阈值重新派生
	status, err := domain.DeriveStatus(product.Quantity, product.RestockThreshold)
	if err != nil {
		return nil, err
	}
	product.Status = status

	if err := s.productRepo.Update(product); err != nil {
		s.logger.Error("failed to update product", zap.Int64("product_id", id), zap.Error(err))
		return nil, fmt.Errorf("update product: %w", err)
	}

	return product, nil
}

// ArchiveProduct 归档商品（软删除）
// 归档商品不出现在默认列表、统计和告警中；销售历史保留
func (s *productService) ArchiveProduct(userID, id int64) (*domain.Product, error) {
	product, err := s.productRepo.GetByIDForUser(id, userID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if product.IsArchived {
		return product, nil
	}

	product.IsArchived = true
	if err := s.productRepo.Update(product); err != nil {
		s.logger.Error("failed to archive product", zap.Int64("product_id", id), zap.Error(err))
		return nil, fmt.Errorf("archive product: %w", err)
	}

	s.logger.Info("product archived",
		zap.Int64("user_id", userID),
		zap.Int64("product_id", id),
	)

	return product, nil
}

// ListProducts 获取商品列表
func (s *productService) ListProducts(userID int64, req *domain.ProductListRequest) (*domain.ProductListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	products, total, err := s.productRepo.List(userID, req)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	return &domain.ProductListResponse{
		Products: products,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
	}, nil
}

// ImportProducts 批量导入商品
// 逐条校验和插入：单条失败不中断整批，结果中携带每条失败的原因
func (s *productService) ImportProducts(user *domain.User, req *domain.ImportProductsRequest) (*domain.ImportProductsResponse, error) {
	if len(req.Products) == 0 {
		return nil, fmt.Errorf("%w: empty import", ErrInvalidInput)
	}

	result := &domain.ImportProductsResponse{}
	for i := range req.Products {
		_, err := s.CreateProduct(user, &req.Products[i])
		if err != nil {
			// 达到订阅上限后继续导入只会重复失败，直接截断剩余条目
			if errors.Is(err, ErrProductLimit) {
				remaining := len(req.Products) - i
				result.Failed += remaining
				result.Errors = append(result.Errors,
					fmt.Sprintf("row %d: %v (remaining %d rows skipped)", i+1, err, remaining-1))
				break
			}
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		result.Imported++
	}

	s.logger.Info("products imported",
		zap.Int64("user_id", user.ID),
		zap.Int("imported", result.Imported),
		zap.Int("failed", result.Failed),
	)

	return result, nil
}

// GetInventoryOverview 获取库存总览统计
func (s *productService) GetInventoryOverview(userID int64) (*InventoryOverview, error) {
	counts, err := s.productRepo.CountByStatus(userID)
	if err != nil {
		return nil, fmt.Errorf("count products by status: %w", err)
	}

	value, err := s.productRepo.TotalInventoryValue(userID)
	if err != nil {
		return nil, fmt.Errorf("total inventory value: %w", err)
	}

	overview := &InventoryOverview{
		ActiveCount:     counts[domain.ProductStatusActive],
		LowStockCount:   counts[domain.ProductStatusLowStock],
		OutOfStockCount: counts[domain.ProductStatusOutOfStock],
		InventoryValue:  value,
	}
	overview.TotalProducts = overview.ActiveCount + overview.LowStockCount + overview.OutOfStockCount

	return overview, nil
}
