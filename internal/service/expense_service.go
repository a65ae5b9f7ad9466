// Package service 实现支出记录业务逻辑。
package service

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/LeonQiao/resell_ledger/internal/domain"
	"github.com/LeonQiao/resell_ledger/internal/repo"
)

// ErrExpenseNotFound 表示支出记录不存在或不属于当前用户
var ErrExpenseNotFound = errors.New("expense not found")

// ExpenseService 定义支出服务接口
type ExpenseService interface {
	CreateExpense(user *domain.User, req *domain.CreateExpenseRequest) (*domain.Expense, error)
	GetExpense(userID, id int64) (*domain.Expense, error)
	UpdateExpense(userID, id int64, req *domain.UpdateExpenseRequest) (*domain.Expense, error)
	DeleteExpense(userID, id int64) error
	ListExpenses(userID int64, req *domain.ExpenseListRequest) (*domain.ExpenseListResponse, error)
}

// expenseService 实现ExpenseService接口
type expenseService struct {
	expenseRepo repo.ExpenseRepository
	productRepo repo.ProductRepository
	saleRepo    repo.SaleRepository
	logger      *zap.Logger
}

// NewExpenseService 创建支出服务实例
func NewExpenseService(
	expenseRepo repo.ExpenseRepository,
	productRepo repo.ProductRepository,
	saleRepo repo.SaleRepository,
	logger *zap.Logger,
) ExpenseService {
	return &expenseService{
		expenseRepo: expenseRepo,
		productRepo: productRepo,
		saleRepo:    saleRepo,
		logger:      logger,
	}
}

// validateExpenseLinks 校验可选的商品/销售关联归属当前用户（引用完整性）
func (s *expenseService) validateExpenseLinks(userID int64, productID, saleID *int64) error {
	if productID != nil {
		product, err := s.productRepo.GetByIDForUser(*productID, userID)
		if err != nil {
			return fmt.Errorf("get linked product: %w", err)
		}
		if product == nil {
			return ErrProductNotFound
		}
	}
	if saleID != nil {
		sale, err := s.saleRepo.GetByIDForUser(*saleID, userID)
		if err != nil {
			return fmt.Errorf("get linked sale: %w", err)
		}
		if sale == nil {
			return ErrSaleNotFound
		}
	}
	return nil
}

// validRecurrence 校验重复周期描述符
func validRecurrence(r *domain.RecurrenceInterval) bool {
	if r == nil {
		return true
	}
	switch *r {
	case domain.RecurrenceWeekly, domain.RecurrenceMonthly, domain.RecurrenceYearly:
		return true
	}
	return false
}

// CreateExpense 创建支出记录
// 业务规则：
// 1. 金额非负，分类必须属于封闭枚举
// 2. 关联的商品/销售必须存在且归属当前用户
// 3. 币种缺省取用户偏好，日期缺省为当天
func (s *expenseService) CreateExpense(user *domain.User, req *domain.CreateExpenseRequest) (*domain.Expense, error) {
	if req.Amount.IsNegative() {
		return nil, fmt.Errorf("%w: amount cannot be negative", ErrInvalidInput)
	}
	if !domain.ValidExpenseCategory(req.Category) {
		return nil, fmt.Errorf("%w: unknown expense category %q", ErrInvalidInput, req.Category)
	}
	if !validRecurrence(req.Recurrence) {
		return nil, fmt.Errorf("%w: unknown recurrence interval %q", ErrInvalidInput, *req.Recurrence)
	}

	if err := s.validateExpenseLinks(user.ID, req.ProductID, req.SaleID); err != nil {
		return nil, err
	}

	currency, err := domain.ParseCurrency(string(req.Currency), user.Currency)
	if err != nil {
		return nil, err
	}

	date := time.Now()
	if req.Date != nil {
		date = *req.Date
	}

	expense := &domain.Expense{
		UserID:     user.ID,
		Amount:     req.Amount,
		Currency:   currency,
		Category:   req.Category,
		Date:       date,
		ProductID:  req.ProductID,
		SaleID:     req.SaleID,
		Recurrence: req.Recurrence,
		Notes:      req.Notes,
	}

	if err := s.expenseRepo.Create(expense); err != nil {
		s.logger.Error("failed to create expense", zap.Error(err))
		return nil, fmt.Errorf("create expense: %w", err)
	}

	s.logger.Info("expense created",
		zap.Int64("user_id", user.ID),
		zap.Int64("expense_id", expense.ID),
		zap.String("category", string(expense.Category)),
	)

	return expense, nil
}

// GetExpense 获取支出详情（校验归属）
func (s *expenseService) GetExpense(userID, id int64) (*domain.Expense, error) {
	expense, err := s.expenseRepo.GetByIDForUser(id, userID)
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	if expense == nil {
		return nil, ErrExpenseNotFound
	}

	return expense, nil
}

// UpdateExpense 更新支出记录
func (s *expenseService) UpdateExpense(userID, id int64, req *domain.UpdateExpenseRequest) (*domain.Expense, error) {
	expense, err := s.expenseRepo.GetByIDForUser(id, userID)
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	if expense == nil {
		return nil, ErrExpenseNotFound
	}

	if req.Amount != nil {
		if req.Amount.IsNegative() {
			return nil, fmt.Errorf("%w: amount cannot be negative", ErrInvalidInput)
		}
		expense.Amount = *req.Amount
	}
	if req.Category != nil {
		if !domain.ValidExpenseCategory(*req.Category) {
			return nil, fmt.Errorf("%w: unknown expense category %q", ErrInvalidInput, *req.Category)
		}
		expense.Category = *req.Category
	}
	if req.Date != nil {
		expense.Date = *req.Date
	}
	if req.ProductID != nil || req.SaleID != nil {
		if err := s.validateExpenseLinks(userID, req.ProductID, req.SaleID); err != nil {
			return nil, err
		}
		if req.ProductID != nil {
			expense.ProductID = req.ProductID
		}
		if req.SaleID != nil {
			expense.SaleID = req.SaleID
		}
	}
	if req.Recurrence != nil {
		if !validRecurrence(req.Recurrence) {
			return nil, fmt.Errorf("%w: unknown recurrence interval %q", ErrInvalidInput, *req.Recurrence)
		}
		expense.Recurrence = req.Recurrence
	}
	if req.Notes != nil {
		expense.Notes = *req.Notes
	}

	if err := s.expenseRepo.Update(expense); err != nil {
		s.logger.Error("failed to update expense", zap.Int64("expense_id", id), zap.Error(err))
		return nil, fmt.Errorf("update expense: %w", err)
	}

	return expense, nil
}

// DeleteExpense 删除支出记录
func (s *expenseService) DeleteExpense(userID, id int64) error {
	expense, err := s.expenseRepo.GetByIDForUser(id, userID)
	if err != nil {
		return fmt.Errorf("get expense: %w", err)
	}
	if expense == nil {
		return ErrExpenseNotFound
	}

	if err := s.expenseRepo.Delete(id, userID); err != nil {
		s.logger.Error("failed to delete expense", zap.Int64("expense_id", id), zap.Error(err))
		return fmt.Errorf("delete expense: %w", err)
	}

	return nil
}

// ListExpenses 获取支出列表
func (s *expenseService) ListExpenses(userID int64, req *domain.ExpenseListRequest) (*domain.ExpenseListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	expenses, total, err := s.expenseRepo.List(userID, req)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	return &domain.ExpenseListResponse{
		Expenses: expenses,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
	}, nil
}
