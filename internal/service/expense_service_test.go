package service

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/LeonQiao/resell_ledger/internal/domain"
)

func newTestExpenseService() (ExpenseService, *MockExpenseRepository, *MockProductRepository, *MockSaleRepository) {
	expenseRepo := NewMockExpenseRepository()
	productRepo := NewMockProductRepository()
	saleRepo := NewMockSaleRepository()
	svc := NewExpenseService(expenseRepo, productRepo, saleRepo, zap.NewNop())
	return svc, expenseRepo, productRepo, saleRepo
}

func TestExpenseService_CreateExpense(t *testing.T) {
	svc, _, _, _ := newTestExpenseService()

	expense, err := svc.CreateExpense(freeUser(1), &domain.CreateExpenseRequest{
		Amount:   decimal.NewFromFloat(12.99),
		Category: domain.ExpensePackaging,
		Notes:    "bubble mailers",
	})
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	if expense.ID == 0 {
		t.Error("expense should be assigned an ID")
	}
	// 币种缺省取用户偏好，日期缺省为当天
	if expense.Currency != domain.CurrencyGBP {
		t.Errorf("Currency = %s, want GBP", expense.Currency)
	}
	if time.Since(expense.Date) > time.Minute {
		t.Errorf("Date should default to now, got %v", expense.Date)
	}
	if expense.FormattedAmount() != "£12.99" {
		t.Errorf("FormattedAmount = %s, want £12.99", expense.FormattedAmount())
	}
}

func TestExpenseService_CreateExpense_Validation(t *testing.T) {
	svc, _, _, _ := newTestExpenseService()
	badRecurrence := domain.RecurrenceInterval("daily")

	tests := []struct {
		name string
		req  *domain.CreateExpenseRequest
		want error
	}{
		{
			name: "negative amount",
			req: &domain.CreateExpenseRequest{
				Amount:   decimal.NewFromInt(-5),
				Category: domain.ExpenseFees,
			},
			want: ErrInvalidInput,
		},
		{
			name: "unknown category",
			req: &domain.CreateExpenseRequest{
				Amount:   decimal.NewFromInt(5),
				Category: domain.ExpenseCategory("entertainment"),
			},
			want: ErrInvalidInput,
		},
		{
			name: "unknown recurrence",
			req: &domain.CreateExpenseRequest{
				Amount:     decimal.NewFromInt(5),
				Category:   domain.ExpenseSoftware,
				Recurrence: &badRecurrence,
			},
			want: ErrInvalidInput,
		},
		{
			name: "unsupported currency",
			req: &domain.CreateExpenseRequest{
				Amount:   decimal.NewFromInt(5),
				Currency: domain.Currency("JPY"),
				Category: domain.ExpenseFees,
			},
			want: domain.ErrInvalidCurrency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateExpense(freeUser(1), tt.req); !errors.Is(err, tt.want) {
				t.Errorf("CreateExpense error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestExpenseService_CreateExpense_Links(t *testing.T) {
	svc, _, productRepo, saleRepo := newTestExpenseService()

	product := &domain.Product{UserID: 1, Name: "Retro Console", Status: domain.ProductStatusActive}
	if err := productRepo.Create(product); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	sale := &domain.Sale{UserID: 1, ProductID: product.ID, Status: domain.SaleStatusCompleted}
	if err := saleRepo.Create(sale); err != nil {
		t.Fatalf("seed sale: %v", err)
	}

	expense, err := svc.CreateExpense(freeUser(1), &domain.CreateExpenseRequest{
		Amount:    decimal.NewFromFloat(3.50),
		Category:  domain.ExpenseShipping,
		ProductID: &product.ID,
		SaleID:    &sale.ID,
	})
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	if expense.ProductID == nil || *expense.ProductID != product.ID {
		t.Error("expense should keep the product link")
	}
	if expense.SaleID == nil || *expense.SaleID != sale.ID {
		t.Error("expense should keep the sale link")
	}

	// 关联必须归属当前用户
	if _, err := svc.CreateExpense(freeUser(2), &domain.CreateExpenseRequest{
		Amount:    decimal.NewFromFloat(3.50),
		Category:  domain.ExpenseShipping,
		ProductID: &product.ID,
	}); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("foreign product link error = %v, want ErrProductNotFound", err)
	}
	if _, err := svc.CreateExpense(freeUser(2), &domain.CreateExpenseRequest{
		Amount:   decimal.NewFromFloat(3.50),
		Category: domain.ExpenseShipping,
		SaleID:   &sale.ID,
	}); !errors.Is(err, ErrSaleNotFound) {
		t.Errorf("foreign sale link error = %v, want ErrSaleNotFound", err)
	}

	missing := int64(999)
	if _, err := svc.CreateExpense(freeUser(1), &domain.CreateExpenseRequest{
		Amount:    decimal.NewFromFloat(3.50),
		Category:  domain.ExpenseShipping,
		ProductID: &missing,
	}); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("missing product link error = %v, want ErrProductNotFound", err)
	}
}

func TestExpenseService_UpdateExpense(t *testing.T) {
	svc, _, _, _ := newTestExpenseService()

	expense, err := svc.CreateExpense(freeUser(1), &domain.CreateExpenseRequest{
		Amount:   decimal.NewFromInt(20),
		Category: domain.ExpenseStorage,
	})
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	newAmount := decimal.NewFromFloat(25.50)
	newCategory := domain.ExpenseFees
	monthly := domain.RecurrenceMonthly
	notes := "storage unit price increase"

	updated, err := svc.UpdateExpense(1, expense.ID, &domain.UpdateExpenseRequest{
		Amount:     &newAmount,
		Category:   &newCategory,
		Recurrence: &monthly,
		Notes:      &notes,
	})
	if err != nil {
		t.Fatalf("UpdateExpense failed: %v", err)
	}

	if !updated.Amount.Equal(newAmount) {
		t.Errorf("Amount = %s, want 25.50", updated.Amount)
	}
	if updated.Category != domain.ExpenseFees {
		t.Errorf("Category = %s, want fees", updated.Category)
	}
	if updated.Recurrence == nil || *updated.Recurrence != domain.RecurrenceMonthly {
		t.Error("Recurrence should be monthly")
	}
	if updated.Notes != notes {
		t.Errorf("Notes = %q, want %q", updated.Notes, notes)
	}
}

func TestExpenseService_UpdateExpense_Validation(t *testing.T) {
	svc, _, _, _ := newTestExpenseService()

	expense, err := svc.CreateExpense(freeUser(1), &domain.CreateExpenseRequest{
		Amount:   decimal.NewFromInt(20),
		Category: domain.ExpenseStorage,
	})
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	negative := decimal.NewFromInt(-1)
	if _, err := svc.UpdateExpense(1, expense.ID, &domain.UpdateExpenseRequest{Amount: &negative}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("negative amount error = %v, want ErrInvalidInput", err)
	}

	badCategory := domain.ExpenseCategory("misc")
	if _, err := svc.UpdateExpense(1, expense.ID, &domain.UpdateExpenseRequest{Category: &badCategory}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad category error = %v, want ErrInvalidInput", err)
	}

	if _, err := svc.UpdateExpense(1, 999, &domain.UpdateExpenseRequest{}); !errors.Is(err, ErrExpenseNotFound) {
		t.Errorf("missing expense error = %v, want ErrExpenseNotFound", err)
	}

	// 归属校验：他人的记录视同不存在
	if _, err := svc.UpdateExpense(2, expense.ID, &domain.UpdateExpenseRequest{}); !errors.Is(err, ErrExpenseNotFound) {
		t.Errorf("foreign expense error = %v, want ErrExpenseNotFound", err)
	}
}

func TestExpenseService_DeleteExpense(t *testing.T) {
	svc, _, _, _ := newTestExpenseService()

	expense, err := svc.CreateExpense(freeUser(1), &domain.CreateExpenseRequest{
		Amount:   decimal.NewFromInt(8),
		Category: domain.ExpenseTravel,
	})
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	if err := svc.DeleteExpense(2, expense.ID); !errors.Is(err, ErrExpenseNotFound) {
		t.Errorf("foreign delete error = %v, want ErrExpenseNotFound", err)
	}

	if err := svc.DeleteExpense(1, expense.ID); err != nil {
		t.Fatalf("DeleteExpense failed: %v", err)
	}
	if _, err := svc.GetExpense(1, expense.ID); !errors.Is(err, ErrExpenseNotFound) {
		t.Errorf("deleted expense error = %v, want ErrExpenseNotFound", err)
	}
}

func TestExpenseService_ListExpenses(t *testing.T) {
	svc, _, _, _ := newTestExpenseService()

	categories := []domain.ExpenseCategory{domain.ExpenseSourcing, domain.ExpenseSourcing, domain.ExpenseShipping}
	for _, category := range categories {
		if _, err := svc.CreateExpense(freeUser(1), &domain.CreateExpenseRequest{
			Amount:   decimal.NewFromInt(10),
			Category: category,
		}); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
	}
	if _, err := svc.CreateExpense(freeUser(2), &domain.CreateExpenseRequest{
		Amount:   decimal.NewFromInt(10),
		Category: domain.ExpenseSourcing,
	}); err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	resp, err := svc.ListExpenses(1, &domain.ExpenseListRequest{})
	if err != nil {
		t.Fatalf("ListExpenses failed: %v", err)
	}
	if resp.Total != 3 {
		t.Errorf("Total = %d, want 3", resp.Total)
	}
	if resp.Page != 1 || resp.PageSize != 20 {
		t.Errorf("pagination defaults = %d/%d, want 1/20", resp.Page, resp.PageSize)
	}

	sourcing := domain.ExpenseSourcing
	resp, err = svc.ListExpenses(1, &domain.ExpenseListRequest{Category: &sourcing})
	if err != nil {
		t.Fatalf("ListExpenses with category failed: %v", err)
	}
	if resp.Total != 2 {
		t.Errorf("sourcing Total = %d, want 2", resp.Total)
	}

	resp, err = svc.ListExpenses(1, &domain.ExpenseListRequest{PageSize: 500})
	if err != nil {
		t.Fatalf("ListExpenses with oversized page failed: %v", err)
	}
	if resp.PageSize != 100 {
		t.Errorf("PageSize = %d, want capped at 100", resp.PageSize)
	}
}
