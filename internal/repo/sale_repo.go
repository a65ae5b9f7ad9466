// Package repo 实现销售记录数据访问层，包含财务聚合查询。
package repo

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/LeonQiao/resell_ledger/internal/domain"
)

// SalesSummaryRow 表示一段区间内销售聚合的原始结果
// total_sales 是记录条数（不是数量求和）；total_revenue 是整单金额的毛和
type SalesSummaryRow struct {
	TotalSales        int64           `json:"total_sales"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	TotalFees         decimal.Decimal `json:"total_fees"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
}

// PlatformBreakdownRow 表示按平台分组的聚合行
type PlatformBreakdownRow struct {
	Platform domain.SalePlatform `json:"platform"`
	Count    int64               `json:"count"`
	Revenue  decimal.Decimal     `json:"revenue"`
}

// DailyTrendRow 表示按日历日分组的聚合行
type DailyTrendRow struct {
	Date    string          `json:"date"` // YYYY-MM-DD
	Count   int64           `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}

// TopProductRow 表示按商品分组的销量排行行
type TopProductRow struct {
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name"`
	TotalSold    int64           `json:"total_sold"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

// SaleRepository 定义销售记录数据访问接口
type SaleRepository interface {
	// 基本CRUD操作
	Create(sale *domain.Sale) error
	GetByID(id int64) (*domain.Sale, error)
	GetByIDForUser(id, userID int64) (*domain.Sale, error)
	Update(sale *domain.Sale) error
	Delete(id, userID int64) error

	// 查询操作
	List(userID int64, req *domain.SaleListRequest) ([]*domain.Sale, int64, error)
	Recent(userID int64, limit int) ([]*domain.Sale, error)
	CountByStatuses(userID int64, statuses []domain.SaleStatus) (int64, error)

	// 聚合操作：区间均为左闭右开 [start, end)，币种是硬过滤条件
	Summary(userID int64, period domain.Period, currency domain.Currency) (*SalesSummaryRow, error)
	PlatformBreakdown(userID int64, period domain.Period, currency domain.Currency) ([]*PlatformBreakdownRow, error)
	DailyTrend(userID int64, period domain.Period, currency domain.Currency) ([]*DailyTrendRow, error)
	TopProducts(userID int64, period domain.Period, currency domain.Currency, limit int) ([]*TopProductRow, error)
}

// saleRepo 实现SaleRepository接口
type saleRepo struct {
	db *sql.DB
}

// NewSaleRepository 创建销售仓储实例
func NewSaleRepository(db *sql.DB) SaleRepository {
	return &saleRepo{db: db}
}

const saleColumns = `id, user_id, product_id, quantity, sale_price, currency, platform,
	platform_fee, payment_fee, shipping_fee, promotion_discount, other_fee,
	status, is_returned, inventory_applied, sale_date, created_at, updated_at`

// feeTotalExpr 费用合计表达式：promotion_discount 是减项
const feeTotalExpr = `(platform_fee + payment_fee + shipping_fee + other_fee - promotion_discount)`

// scanSale 从行结果扫描销售记录
func scanSale(scan func(dest ...any) error) (*domain.Sale, error) {
	sale := &domain.Sale{}
	err := scan(
		&sale.ID,
		&sale.UserID,
		&sale.ProductID,
		&sale.Quantity,
		&sale.SalePrice,
		&sale.Currency,
		&sale.Platform,
		&sale.Fees.PlatformFee,
		&sale.Fees.PaymentFee,
		&sale.Fees.ShippingFee,
		&sale.Fees.PromotionDiscount,
		&sale.Fees.Other,
		&sale.Status,
		&sale.IsReturned,
		&sale.InventoryApplied,
		&sale.SaleDate,
		&sale.CreatedAt,
		&sale.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// Create 创建销售记录
func (r *saleRepo) Create(sale *domain.Sale) error {
	query := `
		INSERT INTO sales (user_id, product_id, quantity, sale_price, currency, platform,
			platform_fee, payment_fee, shipping_fee, promotion_discount, other_fee,
			status, is_returned, inventory_applied, sale_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		sale.UserID,
		sale.ProductID,
		sale.Quantity,
		sale.SalePrice,
		string(sale.Currency),
		string(sale.Platform),
		sale.Fees.PlatformFee,
		sale.Fees.PaymentFee,
		sale.Fees.ShippingFee,
		sale.Fees.PromotionDiscount,
		sale.Fees.Other,
		string(sale.Status),
		sale.IsReturned,
		sale.InventoryApplied,
		sale.SaleDate,
	)
	if err != nil {
		return fmt.Errorf("create sale: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	sale.ID = id
	return nil
}

// GetByID 根据ID获取销售记录
func (r *saleRepo) GetByID(id int64) (*domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE id = ?`

	sale, err := scanSale(r.db.QueryRow(query, id).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sale by id: %w", err)
	}

	return sale, nil
}

// GetByIDForUser 根据ID获取销售记录并校验归属用户
func (r *saleRepo) GetByIDForUser(id, userID int64) (*domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE id = ? AND user_id = ?`

	sale, err := scanSale(r.db.QueryRow(query, id, userID).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sale for user: %w", err)
	}

	return sale, nil
}

// Update 更新销售记录
// 销售文档自身的写入是原子的；关联商品的库存更新是独立步骤（见服务层）
func (r *saleRepo) Update(sale *domain.Sale) error {
	query := `
		UPDATE sales
		SET quantity = ?, sale_price = ?, currency = ?, platform = ?,
			platform_fee = ?, payment_fee = ?, shipping_fee = ?, promotion_discount = ?, other_fee = ?,
			status = ?, is_returned = ?, inventory_applied = ?, sale_date = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query,
		sale.Quantity,
		sale.SalePrice,
		string(sale.Currency),
		string(sale.Platform),
		sale.Fees.PlatformFee,
		sale.Fees.PaymentFee,
		sale.Fees.ShippingFee,
		sale.Fees.PromotionDiscount,
		sale.Fees.Other,
		string(sale.Status),
		sale.IsReturned,
		sale.InventoryApplied,
		sale.SaleDate,
		sale.ID,
	)
	if err != nil {
		return fmt.Errorf("update sale: %w", err)
	}

	return nil
}

// Delete 物理删除销售记录（仅服务层允许删除pending状态的记录）
func (r *saleRepo) Delete(id, userID int64) error {
	query := `DELETE FROM sales WHERE id = ? AND user_id = ?`

	result, err := r.db.Exec(query, id, userID)
	if err != nil {
		return fmt.Errorf("delete sale: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// List 分页查询用户的销售列表
func (r *saleRepo) List(userID int64, req *domain.SaleListRequest) ([]*domain.Sale, int64, error) {
	conditions := []string{"user_id = ?"}
	args := []any{userID}

	if req.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*req.Status))
	}
	if req.Platform != nil {
		conditions = append(conditions, "platform = ?")
		args = append(args, string(*req.Platform))
	}
	if req.ProductID != nil {
		conditions = append(conditions, "product_id = ?")
		args = append(args, *req.ProductID)
	}
	if req.From != nil {
		conditions = append(conditions, "sale_date >= ?")
		args = append(args, *req.From)
	}
	if req.To != nil {
		conditions = append(conditions, "sale_date < ?")
		args = append(args, *req.To)
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) FROM sales ` + where
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sales: %w", err)
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

	query := `SELECT ` + saleColumns + ` FROM sales ` + where + ` ORDER BY sale_date DESC LIMIT ? OFFSET ?`
	args = append(args, pageSize, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	var sales []*domain.Sale
	for rows.Next() {
		sale, err := scanSale(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("scan sale: %w", err)
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate sales: %w", err)
	}

	return sales, total, nil
}

// Recent 获取用户最近的销售记录，按销售日期倒序
func (r *saleRepo) Recent(userID int64, limit int) ([]*domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE user_id = ? ORDER BY sale_date DESC LIMIT ?`

	rows, err := r.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent sales: %w", err)
	}
	defer rows.Close()

	var sales []*domain.Sale
	for rows.Next() {
		sale, err := scanSale(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales: %w", err)
	}

	return sales, nil
}

// CountByStatuses 统计用户处于给定状态集合的销售数量
func (r *saleRepo) CountByStatuses(userID int64, statuses []domain.SaleStatus) (int64, error) {
	if len(statuses) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(statuses))
	args := []any{userID}
	for i, s := range statuses {
		placeholders[i] = "?"
		args = append(args, string(s))
	}

	var count int64
	query := fmt.Sprintf(`SELECT COUNT(*) FROM sales WHERE user_id = ? AND status IN (%s)`,
		strings.Join(placeholders, ", "))
	if err := r.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count sales by statuses: %w", err)
	}

	return count, nil
}

// Summary 聚合区间内的销售汇总
// 金额列均做COALESCE处理：空集返回0而非NULL
func (r *saleRepo) Summary(userID int64, period domain.Period, currency domain.Currency) (*SalesSummaryRow, error) {
	query := `
		SELECT COUNT(*),
			COALESCE(SUM(sale_price), 0),
			COALESCE(SUM` + feeTotalExpr + `, 0),
			COALESCE(AVG(sale_price), 0)
		FROM sales
		WHERE user_id = ? AND currency = ? AND sale_date >= ? AND sale_date < ?
	`

	row := &SalesSummaryRow{}
	err := r.db.QueryRow(query, userID, string(currency), period.Start, period.End).Scan(
		&row.TotalSales,
		&row.TotalRevenue,
		&row.TotalFees,
		&row.AverageOrderValue,
	)
	if err != nil {
		return nil, fmt.Errorf("sales summary: %w", err)
	}

	return row, nil
}

// PlatformBreakdown 按平台分组聚合，按收入降序
func (r *saleRepo) PlatformBreakdown(userID int64, period domain.Period, currency domain.Currency) ([]*PlatformBreakdownRow, error) {
	query := `
		SELECT platform, COUNT(*), COALESCE(SUM(sale_price), 0)
		FROM sales
		WHERE user_id = ? AND currency = ? AND sale_date >= ? AND sale_date < ?
		GROUP BY platform
		ORDER BY SUM(sale_price) DESC
	`

	rows, err := r.db.Query(query, userID, string(currency), period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("platform breakdown: %w", err)
	}
	defer rows.Close()

	var result []*PlatformBreakdownRow
	for rows.Next() {
		row := &PlatformBreakdownRow{}
		if err := rows.Scan(&row.Platform, &row.Count, &row.Revenue); err != nil {
			return nil, fmt.Errorf("scan platform row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate platform rows: %w", err)
	}

	return result, nil
}

// DailyTrend 按日历日分组聚合，按日期升序（图表走势要求时间正序）
func (r *saleRepo) DailyTrend(userID int64, period domain.Period, currency domain.Currency) ([]*DailyTrendRow, error) {
	query := `
		SELECT DATE_FORMAT(sale_date, '%Y-%m-%d'), COUNT(*), COALESCE(SUM(sale_price), 0)
		FROM sales
		WHERE user_id = ? AND currency = ? AND sale_date >= ? AND sale_date < ?
		GROUP BY DATE_FORMAT(sale_date, '%Y-%m-%d')
		ORDER BY DATE_FORMAT(sale_date, '%Y-%m-%d') ASC
	`

	rows, err := r.db.Query(query, userID, string(currency), period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("daily trend: %w", err)
	}
	defer rows.Close()

	var result []*DailyTrendRow
	for rows.Next() {
		row := &DailyTrendRow{}
		if err := rows.Scan(&row.Date, &row.Count, &row.Revenue); err != nil {
			return nil, fmt.Errorf("scan trend row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trend rows: %w", err)
	}

	return result, nil
}

// TopProducts 按商品分组的销量排行：total_sold 是数量求和，按销量降序限制前N
func (r *saleRepo) TopProducts(userID int64, period domain.Period, currency domain.Currency, limit int) ([]*TopProductRow, error) {
	query := `
		SELECT s.product_id, p.name, COALESCE(SUM(s.quantity), 0), COALESCE(SUM(s.sale_price), 0)
		FROM sales s
		JOIN products p ON p.id = s.product_id
		WHERE s.user_id = ? AND s.currency = ? AND s.sale_date >= ? AND s.sale_date < ?
		GROUP BY s.product_id, p.name
		ORDER BY SUM(s.quantity) DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, userID, string(currency), period.Start, period.End, limit)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	defer rows.Close()

	var result []*TopProductRow
	for rows.Next() {
		row := &TopProductRow{}
		if err := rows.Scan(&row.ProductID, &row.ProductName, &row.TotalSold, &row.TotalRevenue); err != nil {
			return nil, fmt.Errorf("scan top product row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top product rows: %w", err)
	}

	return result, nil
}
