// Package repo 实现商品数据访问层，负责与数据库的交互。
package repo

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/LeonQiao/resell_ledger/internal/domain"
)

// ErrVersionConflict 表示乐观锁版本冲突，调用方应重读后重试
var ErrVersionConflict = fmt.Errorf("product version conflict")

// ProductRepository 定义商品数据访问接口
type ProductRepository interface {
	// 基本CRUD操作
	Create(product *domain.Product) error
	GetByID(id int64) (*domain.Product, error)
	GetByIDForUser(id, userID int64) (*domain.Product, error)
	Update(product *domain.Product) error
	UpdateWithVersion(product *domain.Product) error // 乐观锁更新

	// 查询操作
	List(userID int64, req *domain.ProductListRequest) ([]*domain.Product, int64, error)
	ListByStatus(userID int64, status domain.ProductStatus, limit int) ([]*domain.Product, error)

	// 统计操作
	CountActive(userID int64) (int64, error)
	CountByStatus(userID int64) (map[domain.ProductStatus]int64, error)
	TotalInventoryValue(userID int64) (decimal.Decimal, error)
}

// productRepo 实现ProductRepository接口
type productRepo struct {
	db *sql.DB
}

// NewProductRepository 创建商品仓储实例
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepo{db: db}
}

const productColumns = `id, user_id, name, category, item_condition, size, brand,
	purchase_price, listing_price, quantity, restock_threshold, status, is_archived,
	total_sales, version, created_at, updated_at`

// scanProduct 从行结果扫描商品
func scanProduct(scan func(dest ...any) error) (*domain.Product, error) {
	product := &domain.Product{}
	var listing decimal.NullDecimal
	err := scan(
		&product.ID,
		&product.UserID,
		&product.Name,
		&product.Category,
		&product.Condition,
		&product.Size,
		&product.Brand,
		&product.PurchasePrice,
		&listing,
		&product.Quantity,
		&product.RestockThreshold,
		&product.Status,
		&product.IsArchived,
		&product.TotalSales,
		&product.Version,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if listing.Valid {
		product.ListingPrice = &listing.Decimal
	}
	return product, nil
}

func nullListing(p *domain.Product) decimal.NullDecimal {
	if p.ListingPrice != nil {
		return decimal.NullDecimal{Decimal: *p.ListingPrice, Valid: true}
	}
	return decimal.NullDecimal{}
}

// Create 创建商品记录
func (r *productRepo) Create(product *domain.Product) error {
	query := `
		INSERT INTO products (user_id, name, category, item_condition, size, brand,
			purchase_price, listing_price, quantity, restock_threshold, status, is_archived, total_sales)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		product.UserID,
		product.Name,
		string(product.Category),
		string(product.Condition),
		product.Size,
		product.Brand,
		product.PurchasePrice,
		nullListing(product),
		product.Quantity,
		product.RestockThreshold,
		string(product.Status),
		product.IsArchived,
		product.TotalSales,
	)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	product.ID = id
	return nil
}

// GetByID 根据ID获取商品
func (r *productRepo) GetByID(id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ?`

	product, err := scanProduct(r.db.QueryRow(query, id).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}

	return product, nil
}

// GetByIDForUser 根据ID获取商品并校验归属用户
// 用于销售引用校验：商品必须属于同一用户
func (r *productRepo) GetByIDForUser(id, userID int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ? AND user_id = ?`

	product, err := scanProduct(r.db.QueryRow(query, id, userID).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product for user: %w", err)
	}

	return product, nil
}

// Update 更新商品（无版本校验）
// 状态字段由服务层在写入前通过 domain.DeriveStatus 重新派生
func (r *productRepo) Update(product *domain.Product) error {
	query := `
		UPDATE products
		SET name = ?, category = ?, item_condition = ?, size = ?, brand = ?,
			purchase_price = ?, listing_price = ?, quantity = ?, restock_threshold = ?,
			status = ?, is_archived = ?, total_sales = ?, version = version + 1
		WHERE id = ?
	`

	_, err := r.db.Exec(query,
		product.Name,
		string(product.Category),
		string(product.Condition),
		product.Size,
		product.Brand,
		product.PurchasePrice,
		nullListing(product),
		product.Quantity,
		product.RestockThreshold,
		string(product.Status),
		product.IsArchived,
		product.TotalSales,
		product.ID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}

	return nil
}

// UpdateWithVersion 乐观锁更新
// 并发销售完成对同一商品的库存扣减可能竞争；版本号不匹配时返回 ErrVersionConflict
func (r *productRepo) UpdateWithVersion(product *domain.Product) error {
	query := `
		UPDATE products
		SET name = ?, category = ?, item_condition = ?, size = ?, brand = ?,
			purchase_price = ?, listing_price = ?, quantity = ?, restock_threshold = ?,
			status = ?, is_archived = ?, total_sales = ?, version = version + 1
		WHERE id = ? AND version = ?
	`

	result, err := r.db.Exec(query,
		product.Name,
		string(product.Category),
		string(product.Condition),
		product.Size,
		product.Brand,
		product.PurchasePrice,
		nullListing(product),
		product.Quantity,
		product.RestockThreshold,
		string(product.Status),
		product.IsArchived,
		product.TotalSales,
		product.ID,
		product.Version,
	)
	if err != nil {
		return fmt.Errorf("update product with version: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}

	product.Version++
	return nil
}

// List 分页查询用户的商品列表
func (r *productRepo) List(userID int64, req *domain.ProductListRequest) ([]*domain.Product, int64, error) {
	conditions := []string{"user_id = ?"}
	args := []any{userID}

	if req.Archived != nil {
		conditions = append(conditions, "is_archived = ?")
		args = append(args, *req.Archived)
	} else {
		// 缺省只列出未归档商品
		conditions = append(conditions, "is_archived = false")
	}
	if req.Category != nil {
		conditions = append(conditions, "category = ?")
		args = append(args, string(*req.Category))
	}
	if req.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*req.Status))
	}
	if req.Keyword != nil && *req.Keyword != "" {
		conditions = append(conditions, "(name LIKE ? OR brand LIKE ?)")
		kw := "%" + *req.Keyword + "%"
		args = append(args, kw, kw)
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	// 总数
	var total int64
	countQuery := `SELECT COUNT(*) FROM products ` + where
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	// 排序：白名单校验列名，防止注入
	orderBy := "created_at"
	if req.SortBy != nil {
		switch *req.SortBy {
		case "created_at", "purchase_price", "quantity", "name":
			orderBy = *req.SortBy
		}
	}
	order := "DESC"
	if req.SortOrder != nil && strings.EqualFold(*req.SortOrder, "asc") {
		order = "ASC"
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT %s FROM products %s ORDER BY %s %s LIMIT ? OFFSET ?`,
		productColumns, where, orderBy, order)
	args = append(args, pageSize, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		product, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate products: %w", err)
	}

	return products, total, nil
}

// ListByStatus 获取用户指定派生状态的未归档商品，按更新时间倒序
func (r *productRepo) ListByStatus(userID int64, status domain.ProductStatus, limit int) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + `
		FROM products
		WHERE user_id = ? AND status = ? AND is_archived = false
		ORDER BY updated_at DESC
		LIMIT ?`

	rows, err := r.db.Query(query, userID, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("list products by status: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		product, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}

// CountActive 统计用户未归档商品数量（订阅限额依据）
func (r *productRepo) CountActive(userID int64) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM products WHERE user_id = ? AND is_archived = false`
	if err := r.db.QueryRow(query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active products: %w", err)
	}
	return count, nil
}

// CountByStatus 按派生状态统计用户未归档商品数量
func (r *productRepo) CountByStatus(userID int64) (map[domain.ProductStatus]int64, error) {
	query := `
		SELECT status, COUNT(*)
		FROM products
		WHERE user_id = ? AND is_archived = false
		GROUP BY status
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("count products by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.ProductStatus]int64)
	for rows.Next() {
		var status domain.ProductStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}

	return counts, nil
}

// TotalInventoryValue 统计用户未归档商品的进货成本总额（单价×数量求和）
func (r *productRepo) TotalInventoryValue(userID int64) (decimal.Decimal, error) {
	var value decimal.Decimal
	query := `
		SELECT COALESCE(SUM(purchase_price * quantity), 0)
		FROM products
		WHERE user_id = ? AND is_archived = false
	`
	if err := r.db.QueryRow(query, userID).Scan(&value); err != nil {
		return decimal.Zero, fmt.Errorf("total inventory value: %w", err)
	}
	return value, nil
}
