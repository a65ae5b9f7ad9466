// Package domain 定义转售记账业务的领域模型和核心业务规则。
// 领域模型是业务逻辑的核心，独立于外部依赖（数据库、HTTP等）。
package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ProductStatus 定义商品库存状态类型
// 状态是派生字段：由数量与补货阈值计算得出，客户端不能直接设置
type ProductStatus string

const (
	ProductStatusActive     ProductStatus = "active"       // 正常在售
	ProductStatusLowStock   ProductStatus = "low_stock"    // 低库存
	ProductStatusOutOfStock ProductStatus = "out_of_stock" // 无库存
	ProductStatusArchived   ProductStatus = "archived"     // 已归档（仅用于展示，归档由is_archived标记）
)

// ProductCategory 定义商品分类
type ProductCategory string

const (
	CategoryClothing     ProductCategory = "clothing"
	CategoryShoes        ProductCategory = "shoes"
	CategoryAccessories  ProductCategory = "accessories"
	CategoryElectronics  ProductCategory = "electronics"
	CategoryToys         ProductCategory = "toys"
	CategoryCollectibles ProductCategory = "collectibles"
	CategoryHome         ProductCategory = "home"
	CategoryMedia        ProductCategory = "media"
	CategoryOther        ProductCategory = "other"
)

// ProductCondition 定义商品成色
type ProductCondition string

const (
	ConditionNew     ProductCondition = "new"
	ConditionLikeNew ProductCondition = "like_new"
	ConditionGood    ProductCondition = "good"
	ConditionFair    ProductCondition = "fair"
	ConditionPoor    ProductCondition = "poor"
)

// ErrInvalidState 表示库存派生函数收到了非法输入（负数数量或阈值）
// 数值应由外部输入层预先校验为非负；到达这里说明上游存在缺陷，必须显式失败而非静默修正
var ErrInvalidState = errors.New("invalid inventory state: negative quantity or threshold")

// DeriveStatus 根据数量与补货阈值派生商品库存状态
// 纯函数，必须在每次持久化库存字段前调用：
//   - quantity == 0             -> out_of_stock
//   - 0 < quantity <= threshold -> low_stock
//   - quantity > threshold      -> active
func DeriveStatus(quantity, restockThreshold int) (ProductStatus, error) {
	if quantity < 0 || restockThreshold < 0 {
		return "", ErrInvalidState
	}
	switch {
	case quantity == 0:
		return ProductStatusOutOfStock, nil
	case quantity <= restockThreshold:
		return ProductStatusLowStock, nil
	default:
		return ProductStatusActive, nil
	}
}

// Product 表示转售商品领域模型
type Product struct {
	ID               int64            `json:"id"`
	UserID           int64            `json:"user_id"`
	Name             string           `json:"name"`
	Category         ProductCategory  `json:"category"`
	Condition        ProductCondition `json:"condition"`
	Size             string           `json:"size,omitempty"`
	Brand            string           `json:"brand,omitempty"`
	PurchasePrice    decimal.Decimal  `json:"purchase_price"`
	ListingPrice     *decimal.Decimal `json:"listing_price,omitempty"`
	Quantity         int              `json:"quantity"`
	RestockThreshold int              `json:"restock_threshold"`
	Status           ProductStatus    `json:"status"`
	IsArchived       bool             `json:"is_archived"`
	TotalSales       int64            `json:"total_sales"`
	Version          int              `json:"version"` // 乐观锁版本号
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// DisplayStatus 返回面向客户端展示的状态：归档覆盖派生状态
func (p *Product) DisplayStatus() ProductStatus {
	if p.IsArchived {
		return ProductStatusArchived
	}
	return p.Status
}

// InventoryValue 返回该商品占用的进货成本（单价×数量）
func (p *Product) InventoryValue() decimal.Decimal {
	return p.PurchasePrice.Mul(decimal.NewFromInt(int64(p.Quantity)))
}

// CreateProductRequest 表示创建商品请求
type CreateProductRequest struct {
	Name             string           `json:"name" binding:"required,min=1,max=255"`
	Category         ProductCategory  `json:"category" binding:"required"`
	Condition        ProductCondition `json:"condition" binding:"required"`
	Size             string           `json:"size"`
	Brand            string           `json:"brand"`
	PurchasePrice    decimal.Decimal  `json:"purchase_price"`
	ListingPrice     *decimal.Decimal `json:"listing_price"`
	Quantity         int              `json:"quantity" binding:"min=0"`
	RestockThreshold *int             `json:"restock_threshold"` // 缺省为1
}

// UpdateProductRequest 表示更新商品请求
// 指针字段表示可选更新；状态不可直接更新，它总是重新派生
type UpdateProductRequest struct {
	Name             *string           `json:"name"`
	Category         *ProductCategory  `json:"category"`
	Condition        *ProductCondition `json:"condition"`
	Size             *string           `json:"size"`
	Brand            *string           `json:"brand"`
	PurchasePrice    *decimal.Decimal  `json:"purchase_price"`
	ListingPrice     *decimal.Decimal  `json:"listing_price"`
	Quantity         *int              `json:"quantity"`
	RestockThreshold *int              `json:"restock_threshold"`
	IsArchived       *bool             `json:"is_archived"`
}

// ProductListRequest 表示商品列表查询请求
type ProductListRequest struct {
	Page      int              `json:"page"`
	PageSize  int              `json:"page_size"`
	Category  *ProductCategory `json:"category"`
	Status    *ProductStatus   `json:"status"`
	Archived  *bool            `json:"archived"`
	Keyword   *string          `json:"keyword"`
	SortBy    *string          `json:"sort_by"`    // created_at, purchase_price, quantity
	SortOrder *string          `json:"sort_order"` // asc, desc
}

// ProductListResponse 表示商品列表查询响应
type ProductListResponse struct {
	Products []*Product `json:"products"`
	Total    int64      `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
}

// ImportProductsRequest 表示批量导入商品请求
type ImportProductsRequest struct {
	Products []CreateProductRequest `json:"products" binding:"required,min=1,max=500"`
}

// ImportProductsResponse 表示批量导入结果
type ImportProductsResponse struct {
	Imported int      `json:"imported"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}
