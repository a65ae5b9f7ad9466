// Package domain 定义支出记录相关的领域模型。
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseCategory 定义支出分类（封闭枚举）
type ExpenseCategory string

const (
	ExpenseSourcing  ExpenseCategory = "sourcing"  // 进货
	ExpenseShipping  ExpenseCategory = "shipping"  // 邮寄
	ExpensePackaging ExpenseCategory = "packaging" // 包装耗材
	ExpenseStorage   ExpenseCategory = "storage"   // 仓储
	ExpenseFees      ExpenseCategory = "fees"      // 平台/订阅费用
	ExpenseTravel    ExpenseCategory = "travel"    // 差旅
	ExpenseSoftware  ExpenseCategory = "software"  // 软件工具
	ExpenseOther     ExpenseCategory = "other"
)

// ValidExpenseCategory 判断分类是否属于封闭枚举
func ValidExpenseCategory(c ExpenseCategory) bool {
	switch c {
	case ExpenseSourcing, ExpenseShipping, ExpensePackaging, ExpenseStorage,
		ExpenseFees, ExpenseTravel, ExpenseSoftware, ExpenseOther:
		return true
	}
	return false
}

// RecurrenceInterval 定义重复支出的周期描述
type RecurrenceInterval string

const (
	RecurrenceWeekly  RecurrenceInterval = "weekly"
	RecurrenceMonthly RecurrenceInterval = "monthly"
	RecurrenceYearly  RecurrenceInterval = "yearly"
)

// Expense 表示支出记录领域模型
// 除币种符号格式化外没有派生字段
type Expense struct {
	ID         int64               `json:"id"`
	UserID     int64               `json:"user_id"`
	Amount     decimal.Decimal     `json:"amount"`
	Currency   Currency            `json:"currency"`
	Category   ExpenseCategory     `json:"category"`
	Date       time.Time           `json:"date"`
	ProductID  *int64              `json:"product_id,omitempty"`
	SaleID     *int64              `json:"sale_id,omitempty"`
	Recurrence *RecurrenceInterval `json:"recurrence,omitempty"`
	Notes      string              `json:"notes,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// FormattedAmount 返回带币种符号的金额展示
func (e *Expense) FormattedAmount() string {
	return e.Currency.Symbol() + e.Amount.StringFixed(2)
}

// CreateExpenseRequest 表示创建支出请求
type CreateExpenseRequest struct {
	Amount     decimal.Decimal     `json:"amount"`
	Currency   Currency            `json:"currency"`
	Category   ExpenseCategory     `json:"category" binding:"required"`
	Date       *time.Time          `json:"date"`
	ProductID  *int64              `json:"product_id"`
	SaleID     *int64              `json:"sale_id"`
	Recurrence *RecurrenceInterval `json:"recurrence"`
	Notes      string              `json:"notes"`
}

// UpdateExpenseRequest 表示更新支出请求
type UpdateExpenseRequest struct {
	Amount     *decimal.Decimal    `json:"amount"`
	Category   *ExpenseCategory    `json:"category"`
	Date       *time.Time          `json:"date"`
	ProductID  *int64              `json:"product_id"`
	SaleID     *int64              `json:"sale_id"`
	Recurrence *RecurrenceInterval `json:"recurrence"`
	Notes      *string             `json:"notes"`
}

// ExpenseListRequest 表示支出列表查询请求
type ExpenseListRequest struct {
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Category *ExpenseCategory `json:"category"`
	From     *time.Time       `json:"from"`
	To       *time.Time       `json:"to"`
}

// ExpenseListResponse 表示支出列表查询响应
type ExpenseListResponse struct {
	Expenses []*Expense `json:"expenses"`
	Total    int64      `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
}
