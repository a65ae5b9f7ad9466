package service

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LeonQiao/resell_ledger/internal/domain"
	"github.com/LeonQiao/resell_ledger/internal/repo"
)

// MockUserRepository 内存实现的用户仓储，用于服务层测试
type MockUserRepository struct {
	users  map[int64]*domain.User
	nextID int64
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users:  make(map[int64]*domain.User),
		nextID: 1,
	}
}

func (m *MockUserRepository) Create(user *domain.User) error {
	user.ID = m.nextID
	m.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	m.users[user.ID] = user
	return nil
}

func (m *MockUserRepository) GetByID(id int64) (*domain.User, error) {
	return m.users[id], nil
}

func (m *MockUserRepository) GetByUsername(username string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (m *MockUserRepository) GetByEmail(email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *MockUserRepository) Update(user *domain.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *MockUserRepository) Delete(id int64) error {
	delete(m.users, id)
	return nil
}

// MockProductRepository 内存实现的商品仓储
// versionFailures 控制 UpdateWithVersion 先失败几次，用于测试乐观锁重试
type MockProductRepository struct {
	products        map[int64]*domain.Product
	nextID          int64
	failErr         error
	versionFailures int
}

func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{
		products: make(map[int64]*domain.Product),
		nextID:   1,
	}
}

func (m *MockProductRepository) Create(product *domain.Product) error {
	if m.failErr != nil {
		return m.failErr
	}
	product.ID = m.nextID
	m.nextID++
	product.Version = 1
	product.CreatedAt = time.Now()
	product.UpdatedAt = time.Now()
	copied := *product
	m.products[product.ID] = &copied
	return nil
}

func (m *MockProductRepository) GetByID(id int64) (*domain.Product, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (m *MockProductRepository) GetByIDForUser(id, userID int64) (*domain.Product, error) {
	p, err := m.GetByID(id)
	if err != nil || p == nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, nil
	}
	return p, nil
}

func (m *MockProductRepository) Update(product *domain.Product) error {
	if m.failErr != nil {
		return m.failErr
	}
	copied := *product
	m.products[product.ID] = &copied
	return nil
}

func (m *MockProductRepository) UpdateWithVersion(product *domain.Product) error {
	if m.failErr != nil {
		return m.failErr
	}
	if m.versionFailures > 0 {
		m.versionFailures--
		return repo.ErrVersionConflict
	}
	product.Version++
	copied := *product
	m.products[product.ID] = &copied
	return nil
}

func (m *MockProductRepository) List(userID int64, req *domain.ProductListRequest) ([]*domain.Product, int64, error) {
	if m.failErr != nil {
		return nil, 0, m.failErr
	}
	var result []*domain.Product
	for _, p := range m.products {
		if p.UserID != userID {
			continue
		}
		if req.Archived == nil && p.IsArchived {
			continue
		}
		if req.Archived != nil && p.IsArchived != *req.Archived {
			continue
		}
		if req.Category != nil && p.Category != *req.Category {
			continue
		}
		if req.Status != nil && p.Status != *req.Status {
			continue
		}
		if req.Keyword != nil && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(*req.Keyword)) {
			continue
		}
		copied := *p
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, int64(len(result)), nil
}

func (m *MockProductRepository) ListByStatus(userID int64, status domain.ProductStatus, limit int) ([]*domain.Product, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}
	var result []*domain.Product
	for _, p := range m.products {
		if p.UserID == userID && !p.IsArchived && p.Status == status {
			copied := *p
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockProductRepository) CountActive(userID int64) (int64, error) {
	if m.failErr != nil {
		return 0, m.failErr
	}
	var count int64
	for _, p := range m.products {
		if p.UserID == userID && !p.IsArchived {
			count++
		}
	}
	return count, nil
}

func (m *MockProductRepository) CountByStatus(userID int64) (map[domain.ProductStatus]int64, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}
	counts := make(map[domain.ProductStatus]int64)
	for _, p := range m.products {
		if p.UserID == userID && !p.IsArchived {
			counts[p.Status]++
		}
	}
	return counts, nil
}

func (m *MockProductRepository) TotalInventoryValue(userID int64) (decimal.Decimal, error) {
	if m.failErr != nil {
		return decimal.Zero, m.failErr
	}
	total := decimal.Zero
	for _, p := range m.products {
		if p.UserID == userID && !p.IsArchived {
			total = total.Add(p.InventoryValue())
		}
	}
	return total, nil
}

// MockSaleRepository 内存实现的销售仓储
// 聚合查询通过可替换的函数钩子提供测试数据
type MockSaleRepository struct {
	sales   map[int64]*domain.Sale
	nextID  int64
	failErr error

	summaryFn  func(period domain.Period, currency domain.Currency) (*repo.SalesSummaryRow, error)
	trendErr   error
	platformFn func(period domain.Period, currency domain.Currency) ([]*repo.PlatformBreakdownRow, error)
}

func NewMockSaleRepository() *MockSaleRepository {
	return &MockSaleRepository{
		sales:  make(map[int64]*domain.Sale),
		nextID: 1,
	}
}

func (m *MockSaleRepository) Create(sale *domain.Sale) error {
	if m.failErr != nil {
		return m.failErr
	}
	sale.ID = m.nextID
	m.nextID++
	sale.CreatedAt = time.Now()
	sale.UpdatedAt = time.Now()
	copied := *sale
	m.sales[sale.ID] = &copied
	return nil
}

func (m *MockSaleRepository) GetByID(id int64) (*domain.Sale, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}
	s, ok := m.sales[id]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (m *MockSaleRepository) GetByIDForUser(id, userID int64) (*domain.Sale, error) {
	s, err := m.GetByID(id)
	if err != nil || s == nil {
		return nil, err
	}
	if s.UserID != userID {
		return nil, nil
	}
	return s, nil
}

func (m *MockSaleRepository) Update(sale *domain.Sale) error {
	if m.failErr != nil {
		return m.failErr
	}
	copied := *sale
	m.sales[sale.ID] = &copied
	return nil
}

func (m *MockSaleRepository) Delete(id, userID int64) error {
	if m.failErr != nil {
		return m.failErr
	}
	delete(m.sales, id)
	return nil
}

func (m *MockSaleRepository) List(userID int64, req *domain.SaleListRequest) ([]*domain.Sale, int64, error) {
	if m.failErr != nil {
		return nil, 0, m.failErr
	}
	var result []*domain.Sale
	for _, s := range m.sales {
		if s.UserID != userID {
			continue
		}
		if req.Status != nil && s.Status != *req.Status {
			continue
		}
		if req.Platform != nil && s.Platform != *req.Platform {
			continue
		}
		copied := *s
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, int64(len(result)), nil
}

func (m *MockSaleRepository) Recent(userID int64, limit int) ([]*domain.Sale, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}
	sales, _, err := m.List(userID, &domain.SaleListRequest{})
	if err != nil {
		return nil, err
	}
	if len(sales) > limit {
		sales = sales[:limit]
	}
	return sales, nil
}

func (m *MockSaleRepository) CountByStatuses(userID int64, statuses []domain.SaleStatus) (int64, error) {
	if m.failErr != nil {
		return 0, m.failErr
	}
	var count int64
	for _, s := range m.sales {
		if s.UserID != userID {
			continue
		}
		for _, status := range statuses {
			if s.Status == status {
				count++
				break
			}
		}
	}
	return count, nil
}

func (m *MockSaleRepository) Summary(userID int64, period domain.Period, currency domain.Currency) (*repo.SalesSummaryRow, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}
	if m.summaryFn != nil {
		return m.summaryFn(period, currency)
	}
	return &repo.SalesSummaryRow{
		TotalRevenue:      decimal.Zero,
		TotalFees:         decimal.Zero,
		AverageOrderValue: decimal.Zero,
	}, nil
}

func (m *MockSaleRepository) PlatformBreakdown(userID int64, period domain.Period, currency domain.Currency) ([]*repo.PlatformBreakdownRow, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}
	if m.platformFn != nil {
		return m.platformFn(period, currency)
	}
	return []*repo.PlatformBreakdownRow{}, nil
}

func (m *MockSaleRepository) DailyTrend(userID int64, period domain.Period, currency domain.Currency) ([]*repo.DailyTrendRow, error) {
	if m.trendErr != nil {
		return nil, m.trendErr
	}
	if m.failErr != nil {
		return nil, m.failErr
	}
	return []*repo.DailyTrendRow{}, nil
}

func (m *MockSaleRepository) TopProducts(userID int64, period domain.Period, currency domain.Currency, limit int) ([]*repo.TopProductRow, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}
	return []*repo.TopProductRow{}, nil
}

// MockExpenseRepository 内存实现的支出仓储
type MockExpenseRepository struct {
	expenses map[int64]*domain.Expense
	nextID   int64
	failErr  error

	summaryFn func(period domain.Period, currency domain.Currency) (*repo.ExpenseSummaryRow, error)
}

func NewMockExpenseRepository() *MockExpenseRepository {
	return &MockExpenseRepository{
		expenses: make(map[int64]*domain.Expense),
		nextID:   1,
	}
}

func (m *MockExpenseRepository) Create(expense *domain.Expense) error {
	if m.failErr != nil {
		return m.failErr
	}
	expense.ID = m.nextID
	m.nextID++
	expense.CreatedAt = time.Now()
	expense.UpdatedAt = time.Now()
	copied := *expense
	m.expenses[expense.ID] = &copied
	return nil
}

func (m *MockExpenseRepository) GetByIDForUser(id, userID int64) (*domain.Expense, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}
	e, ok := m.expenses[id]
	if !ok || e.UserID != userID {
		return nil, nil
	}
	copied := *e
	return &copied, nil
}

func (m *MockExpenseRepository) Update(expense *domain.Expense) error {
	if m.failErr != nil {
		return m.failErr
	}
	copied := *expense
	m.expenses[expense.ID] = &copied
	return nil
}

func (m *MockExpenseRepository) Delete(id, userID int64) error {
	if m.failErr != nil {
		return m.failErr
	}
	delete(m.expenses, id)
	return nil
}

func (m *MockExpenseRepository) List(userID int64, req *domain.ExpenseListRequest) ([]*domain.Expense, int64, error) {
	if m.failErr != nil {
		return nil, 0, m.failErr
	}
	var result []*domain.Expense
	for _, e := range m.expenses {
		if e.UserID != userID {
			continue
		}
		if req.Category != nil && e.Category != *req.Category {
			continue
		}
		copied := *e
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, int64(len(result)), nil
}

func (m *MockExpenseRepository) Summary(userID int64, period domain.Period, currency domain.Currency) (*repo.ExpenseSummaryRow, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}
	if m.summaryFn != nil {
		return m.summaryFn(period, currency)
	}
	return &repo.ExpenseSummaryRow{TotalExpenses: decimal.Zero}, nil
}

func (m *MockExpenseRepository) CategoryBreakdown(userID int64, period domain.Period, currency domain.Currency) ([]*repo.CategoryBreakdownRow, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}
	return []*repo.CategoryBreakdownRow{}, nil
}
