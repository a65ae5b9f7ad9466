package repo

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/LeonQiao/resell_ledger/internal/domain"
)

// ExpenseSummaryRow 表示一段区间内支出聚合的原始结果
type ExpenseSummaryRow struct {
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	Count         int64           `json:"count"`
}

// CategoryBreakdownRow 表示按支出分类分组的聚合行
type CategoryBreakdownRow struct {
	Category domain.ExpenseCategory `json:"category"`
	Count    int64                  `json:"count"`
	Amount   decimal.Decimal        `json:"amount"`
}

// ExpenseRepository 定义支出记录数据访问接口
type ExpenseRepository interface {
	Create(expense *domain.Expense) error
	GetByIDForUser(id, userID int64) (*domain.Expense, error)
	Update(expense *domain.Expense) error
	Delete(id, userID int64) error
	List(userID int64, req *domain.ExpenseListRequest) ([]*domain.Expense, int64, error)

	// 聚合操作：区间为左闭右开 [start, end)
	Summary(userID int64, period domain.Period, currency domain.Currency) (*ExpenseSummaryRow, error)
	CategoryBreakdown(userID int64, period domain.Period, currency domain.Currency) ([]*CategoryBreakdownRow, error)
}

// expenseRepo 实现ExpenseRepository接口
type expenseRepo struct {
	db *sql.DB
}

// NewExpenseRepository 创建支出仓储实例
func NewExpenseRepository(db *sql.DB) ExpenseRepository {
	return &expenseRepo{db: db}
}

const expenseColumns = `id, user_id, amount, currency, category, expense_date,
	product_id, sale_id, recurrence, notes, created_at, updated_at`

// scanExpense 从行结果扫描支出记录，处理可空外键和可空周期列
func scanExpense(scan func(dest ...any) error) (*domain.Expense, error) {
	expense := &domain.Expense{}
	var productID, saleID sql.NullInt64
	var recurrence sql.NullString

	err := scan(
		&expense.ID,
		&expense.UserID,
		&expense.Amount,
		&expense.Currency,
		&expense.Category,
		&expense.Date,
		&productID,
		&saleID,
		&recurrence,
		&expense.Notes,
		&expense.CreatedAt,
		&expense.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if productID.Valid {
		expense.ProductID = &productID.Int64
	}
	if saleID.Valid {
		expense.SaleID = &saleID.Int64
	}
	if recurrence.Valid {
		r := domain.RecurrenceInterval(recurrence.String)
		expense.Recurrence = &r
	}

	return expense, nil
}

// Create 创建支出记录
func (r *expenseRepo) Create(expense *domain.Expense) error {
	query := `
		INSERT INTO expenses (user_id, amount, currency, category, expense_date,
			product_id, sale_id, recurrence, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var recurrence *string
	if expense.Recurrence != nil {
		s := string(*expense.Recurrence)
		recurrence = &s
	}

	result, err := r.db.Exec(query,
		expense.UserID,
		expense.Amount,
		string(expense.Currency),
		string(expense.Category),
		expense.Date,
		expense.ProductID,
		expense.SaleID,
		recurrence,
		expense.Notes,
	)
	if err != nil {
		return fmt.Errorf("create expense: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	expense.ID = id
	return nil
}

// GetByIDForUser 根据ID获取支出记录并校验归属用户
func (r *expenseRepo) GetByIDForUser(id, userID int64) (*domain.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ? AND user_id = ?`

	expense, err := scanExpense(r.db.QueryRow(query, id, userID).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get expense for user: %w", err)
	}

	return expense, nil
}

// Update 更新支出记录
func (r *expenseRepo) Update(expense *domain.Expense) error {
	query := `
		UPDATE expenses
		SET amount = ?, category = ?, expense_date = ?,
			product_id = ?, sale_id = ?, recurrence = ?, notes = ?
		WHERE id = ?
	`

	var recurrence *string
	if expense.Recurrence != nil {
		s := string(*expense.Recurrence)
		recurrence = &s
	}

	_, err := r.db.Exec(query,
		expense.Amount,
		string(expense.Category),
		expense.Date,
		expense.ProductID,
		expense.SaleID,
		recurrence,
		expense.Notes,
		expense.ID,
	)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}

	return nil
}

// Delete 物理删除支出记录
func (r *expenseRepo) Delete(id, userID int64) error {
	query := `DELETE FROM expenses WHERE id = ? AND user_id = ?`

	result, err := r.db.Exec(query, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
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

// List 分页查询用户的支出列表，按支出日期倒序
func (r *expenseRepo) List(userID int64, req *domain.ExpenseListRequest) ([]*domain.Expense, int64, error) {
	conditions := []string{"user_id = ?"}
	args := []any{userID}

	if req.Category != nil {
		conditions = append(conditions, "category = ?")
		args = append(args, string(*req.Category))
	}
	if req.From != nil {
		conditions = append(conditions, "expense_date >= ?")
		args = append(args, *req.From)
	}
	if req.To != nil {
		conditions = append(conditions, "expense_date < ?")
		args = append(args, *req.To)
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) FROM expenses ` + where
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count expenses: %w", err)
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

	query := `SELECT ` + expenseColumns + ` FROM expenses ` + where + ` ORDER BY expense_date DESC LIMIT ? OFFSET ?`
	args = append(args, pageSize, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*domain.Expense
	for rows.Next() {
		expense, err := scanExpense(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate expenses: %w", err)
	}

	return expenses, total, nil
}

// Summary 聚合区间内的支出汇总
func (r *expenseRepo) Summary(userID int64, period domain.Period, currency domain.Currency) (*ExpenseSummaryRow, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0), COUNT(*)
		FROM expenses
		WHERE user_id = ? AND currency = ? AND expense_date >= ? AND expense_date < ?
	`

	row := &ExpenseSummaryRow{}
	err := r.db.QueryRow(query, userID, string(currency), period.Start, period.End).Scan(
		&row.TotalExpenses,
		&row.Count,
	)
	if err != nil {
		return nil, fmt.Errorf("expense summary: %w", err)
	}

	return row, nil
}

// CategoryBreakdown 按支出分类分组聚合，按金额降序
func (r *expenseRepo) CategoryBreakdown(userID int64, period domain.Period, currency domain.Currency) ([]*CategoryBreakdownRow, error) {
	query := `
		SELECT category, COUNT(*), COALESCE(SUM(amount), 0)
		FROM expenses
		WHERE user_id = ? AND currency = ? AND expense_date >= ? AND expense_date < ?
		GROUP BY category
		ORDER BY SUM(amount) DESC
	`

	rows, err := r.db.Query(query, userID, string(currency), period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}
	defer rows.Close()

	var result []*CategoryBreakdownRow
	for rows.Next() {
		row := &CategoryBreakdownRow{}
		if err := rows.Scan(&row.Category, &row.Count, &row.Amount); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category rows: %w", err)
	}

	return result, nil
}
