package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/LeonQiao/resell_ledger/internal/domain"
)

func newTestProductService() (ProductService, *MockProductRepository) {
	productRepo := NewMockProductRepository()
	svc := NewProductService(productRepo, zap.NewNop())
	return svc, productRepo
}

func freeUser(id int64) *domain.User {
	return &domain.User{
		ID:           id,
		Username:     "reseller",
		Currency:     domain.CurrencyGBP,
		Subscription: domain.SubscriptionFree,
		IsActive:     true,
	}
}

func proUser(id int64) *domain.User {
	u := freeUser(id)
	u.Subscription = domain.SubscriptionPro
	return u
}

func TestProductService_CreateProduct(t *testing.T) {
	svc, _ := newTestProductService()

	product, err := svc.CreateProduct(freeUser(1), &domain.CreateProductRequest{
		Name:          "Vintage Levi's 501",
		Category:      domain.CategoryClothing,
		Condition:     domain.ConditionGood,
		PurchasePrice: decimal.NewFromInt(12),
		Quantity:      3,
	})
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}

	if product.RestockThreshold != 1 {
		t.Errorf("default restock threshold = %d, want 1", product.RestockThreshold)
	}
	if product.Status != domain.ProductStatusActive {
		t.Errorf("derived status = %q, want active", product.Status)
	}
}

func TestProductService_CreateProduct_DerivedStatus(t *testing.T) {
	svc, _ := newTestProductService()
	threshold := 5

	tests := []struct {
		quantity int
		want     domain.ProductStatus
	}{
		{0, domain.ProductStatusOutOfStock},
		{3, domain.ProductStatusLowStock},
		{5, domain.ProductStatusLowStock},
		{6, domain.ProductStatusActive},
	}

	for _, tt := range tests {
		product, err := svc.CreateProduct(proUser(1), &domain.CreateProductRequest{
			Name:             fmt.Sprintf("item-%d", tt.quantity),
			Category:         domain.CategoryOther,
			Condition:        domain.ConditionNew,
			Quantity:         tt.quantity,
			RestockThreshold: &threshold,
		})
		if err != nil {
			t.Fatalf("CreateProduct(%d) failed: %v", tt.quantity, err)
		}
		if product.Status != tt.want {
			t.Errorf("quantity %d: status = %q, want %q", tt.quantity, product.Status, tt.want)
		}
	}
}

func TestProductService_CreateProduct_Validation(t *testing.T) {
	svc, _ := newTestProductService()
	negative := -1

	tests := []struct {
		name    string
		req     *domain.CreateProductRequest
		wantErr error
	}{
		{"empty name", &domain.CreateProductRequest{Category: domain.CategoryOther, Condition: domain.ConditionNew}, ErrInvalidInput},
		{"negative quantity", &domain.CreateProductRequest{Name: "x", Category: domain.CategoryOther, Condition: domain.ConditionNew, Quantity: -1}, ErrNegativeQuantity},
		{"negative threshold", &domain.CreateProductRequest{Name: "x", Category: domain.CategoryOther, Condition: domain.ConditionNew, RestockThreshold: &negative}, ErrNegativeQuantity},
		{"negative price", &domain.CreateProductRequest{Name: "x", Category: domain.CategoryOther, Condition: domain.ConditionNew, PurchasePrice: decimal.NewFromInt(-5)}, ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateProduct(freeUser(1), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestProductService_FreeTierLimit(t *testing.T) {
	svc, productRepo := newTestProductService()
	user := freeUser(1)

	// 预置到上限
	for i := 0; i < domain.FreeTierProductLimit; i++ {
		productRepo.Create(&domain.Product{
			UserID:   user.ID,
			Name:     fmt.Sprintf("seed-%d", i),
			Quantity: 1,
			Status:   domain.ProductStatusActive,
		})
	}

	_, err := svc.CreateProduct(user, &domain.CreateProductRequest{
		Name:      "one too many",
		Category:  domain.CategoryOther,
		Condition: domain.ConditionNew,
		Quantity:  1,
	})
	if !errors.Is(err, ErrProductLimit) {
		t.Errorf("error at limit = %v, want ErrProductLimit", err)
	}

	// pro订阅不受上限约束
	if _, err := svc.CreateProduct(proUser(1), &domain.CreateProductRequest{
		Name:      "pro unlimited",
		Category:  domain.CategoryOther,
		Condition: domain.ConditionNew,
		Quantity:  1,
	}); err != nil {
		t.Errorf("pro user create at limit failed: %v", err)
	}
}

func TestProductService_UpdateProduct_RederivesStatus(t *testing.T) {
	svc, _ := newTestProductService()
	user := freeUser(1)

	product, err := svc.CreateProduct(user, &domain.CreateProductRequest{
		Name:      "PS5 controller",
		Category:  domain.CategoryElectronics,
		Condition: domain.ConditionLikeNew,
		Quantity:  10,
	})
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}
	if product.Status != domain.ProductStatusActive {
		t.Fatalf("initial status = %q, want active", product.Status)
	}

	zero := 0
	updated, err := svc.UpdateProduct(user.ID, product.ID, &domain.UpdateProductRequest{Quantity: &zero})
	if err != nil {
		t.Fatalf("UpdateProduct failed: %v", err)
	}
	if updated.Status != domain.ProductStatusOutOfStock {
		t.Errorf("status after quantity 0 = %q, want out_of_stock", updated.Status)
	}

	// 提高阈值也会触发重新派生
	five := 5
	three := 3
	if _, err := svc.UpdateProduct(user.ID, product.ID, &domain.UpdateProductRequest{Quantity: &three, RestockThreshold: &five}); err != nil {
		t.Fatalf("UpdateProduct failed: %v", err)
	}
	got, err := svc.GetProduct(user.ID, product.ID)
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	if got.Status != domain.ProductStatusLowStock {
		t.Errorf("status after threshold raise = %q, want low_stock", got.Status)
	}
}

func TestProductService_ArchiveProduct(t *testing.T) {
	svc, _ := newTestProductService()
	user := freeUser(1)

	product, err := svc.CreateProduct(user, &domain.CreateProductRequest{
		Name:      "old stock",
		Category:  domain.CategoryOther,
		Condition: domain.ConditionFair,
		Quantity:  1,
	})
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}

	archived, err := svc.ArchiveProduct(user.ID, product.ID)
	if err != nil {
		t.Fatalf("ArchiveProduct failed: %v", err)
	}
	if !archived.IsArchived {
		t.Error("product should be archived")
	}
	if archived.DisplayStatus() != domain.ProductStatusArchived {
		t.Errorf("display status = %q, want archived", archived.DisplayStatus())
	}

	// 重复归档是幂等的
	if _, err := svc.ArchiveProduct(user.ID, product.ID); err != nil {
		t.Errorf("second archive failed: %v", err)
	}

	// 归档商品不出现在默认列表
	list, err := svc.ListProducts(user.ID, &domain.ProductListRequest{})
	if err != nil {
		t.Fatalf("ListProducts failed: %v", err)
	}
	if list.Total != 0 {
		t.Errorf("default list total = %d, want 0", list.Total)
	}
}

func TestProductService_GetProduct_NotFound(t *testing.T) {
	svc, _ := newTestProductService()
	_, err := svc.GetProduct(1, 42)
	if !errors.Is(err, ErrProductNotFound) {
		t.Errorf("error = %v, want ErrProductNotFound", err)
	}
}

func TestProductService_ImportProducts(t *testing.T) {
	svc, _ := newTestProductService()
	user := proUser(1)

	result, err := svc.ImportProducts(user, &domain.ImportProductsRequest{
		Products: []domain.CreateProductRequest{
			{Name: "a", Category: domain.CategoryOther, Condition: domain.ConditionNew, Quantity: 1},
			{Name: "", Category: domain.CategoryOther, Condition: domain.ConditionNew}, // 无名，失败
			{Name: "b", Category: domain.CategoryOther, Condition: domain.ConditionNew, Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("ImportProducts failed: %v", err)
	}

	if result.Imported != 2 {
		t.Errorf("imported = %d, want 2", result.Imported)
	}
	if result.Failed != 1 {
		t.Errorf("failed = %d, want 1", result.Failed)
	}
	if len(result.Errors) != 1 {
		t.Errorf("errors = %d entries, want 1", len(result.Errors))
	}
}

func TestProductService_ImportProducts_StopsAtLimit(t *testing.T) {
	svc, productRepo := newTestProductService()
	user := freeUser(1)

	for i := 0; i < domain.FreeTierProductLimit-1; i++ {
		productRepo.Create(&domain.Product{
			UserID:   user.ID,
			Name:     fmt.Sprintf("seed-%d", i),
			Quantity: 1,
			Status:   domain.ProductStatusActive,
		})
	}

	// 还剩1个名额，导入3条：第1条成功，其后整批截断
	result, err := svc.ImportProducts(user, &domain.ImportProductsRequest{
		Products: []domain.CreateProductRequest{
			{Name: "fits", Category: domain.CategoryOther, Condition: domain.ConditionNew, Quantity: 1},
			{Name: "over-1", Category: domain.CategoryOther, Condition: domain.ConditionNew, Quantity: 1},
			{Name: "over-2", Category: domain.CategoryOther, Condition: domain.ConditionNew, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("ImportProducts failed: %v", err)
	}

	if result.Imported != 1 {
		t.Errorf("imported = %d, want 1", result.Imported)
	}
	if result.Failed != 2 {
		t.Errorf("failed = %d, want 2", result.Failed)
	}
}

func TestProductService_GetInventoryOverview(t *testing.T) {
	svc, productRepo := newTestProductService()

	seed := []struct {
		quantity int
		status   domain.ProductStatus
		price    int64
	}{
		{10, domain.ProductStatusActive, 20},
		{1, domain.ProductStatusLowStock, 5},
		{0, domain.ProductStatusOutOfStock, 8},
	}
	for i, s := range seed {
		productRepo.Create(&domain.Product{
			UserID:        1,
			Name:          fmt.Sprintf("p-%d", i),
			Quantity:      s.quantity,
			Status:        s.status,
			PurchasePrice: decimal.NewFromInt(s.price),
		})
	}
	// 归档商品不参与统计
	productRepo.Create(&domain.Product{
		UserID:        1,
		Name:          "archived",
		Quantity:      99,
		Status:        domain.ProductStatusActive,
		IsArchived:    true,
		PurchasePrice: decimal.NewFromInt(100),
	})

	overview, err := svc.GetInventoryOverview(1)
	if err != nil {
		t.Fatalf("GetInventoryOverview failed: %v", err)
	}

	if overview.TotalProducts != 3 {
		t.Errorf("total products = %d, want 3", overview.TotalProducts)
	}
	if overview.ActiveCount != 1 || overview.LowStockCount != 1 || overview.OutOfStockCount != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/1/1",
			overview.ActiveCount, overview.LowStockCount, overview.OutOfStockCount)
	}
	// 10*20 + 1*5 + 0*8 = 205
	if want := decimal.NewFromInt(205); !overview.InventoryValue.Equal(want) {
		t.Errorf("inventory value = %s, want %s", overview.InventoryValue, want)
	}
}
