package service

import (
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/LeonQiao/resell_ledger/internal/domain"
)

func newTestAlertService() (AlertService, *MockProductRepository, *MockSaleRepository) {
	productRepo := NewMockProductRepository()
	saleRepo := NewMockSaleRepository()
	svc := NewAlertService(productRepo, saleRepo, zap.NewNop())
	return svc, productRepo, saleRepo
}

func TestAlertService_NoAlertsWhenHealthy(t *testing.T) {
	svc, productRepo, _ := newTestAlertService()
	productRepo.Create(&domain.Product{
		UserID:   1,
		Name:     "healthy stock",
		Quantity: 10,
		Status:   domain.ProductStatusActive,
	})

	result, err := svc.DeriveAlerts(freeUser(1))
	if err != nil {
		t.Fatalf("DeriveAlerts failed: %v", err)
	}
	if result.Count != 0 {
		t.Errorf("alert count = %d, want 0", result.Count)
	}
}

func TestAlertService_StockAlerts(t *testing.T) {
	svc, productRepo, _ := newTestAlertService()

	productRepo.Create(&domain.Product{
		UserID: 1, Name: "low", Quantity: 1, Status: domain.ProductStatusLowStock,
	})
	productRepo.Create(&domain.Product{
		UserID: 1, Name: "gone", Quantity: 0, Status: domain.ProductStatusOutOfStock,
	})
	// 归档商品不触发告警
	productRepo.Create(&domain.Product{
		UserID: 1, Name: "archived", Quantity: 0, Status: domain.ProductStatusOutOfStock, IsArchived: true,
	})

	result, err := svc.DeriveAlerts(freeUser(1))
	if err != nil {
		t.Fatalf("DeriveAlerts failed: %v", err)
	}
	if result.Count != 2 {
		t.Fatalf("alert count = %d, want 2", result.Count)
	}

	// 顺序固定：low_stock在前
	if result.Alerts[0].Type != AlertLowStock {
		t.Errorf("first alert type = %q, want low_stock", result.Alerts[0].Type)
	}
	if result.Alerts[0].Severity != SeverityWarning {
		t.Errorf("low stock severity = %q, want warning", result.Alerts[0].Severity)
	}
	if result.Alerts[1].Type != AlertOutOfStock {
		t.Errorf("second alert type = %q, want out_of_stock", result.Alerts[1].Type)
	}
	if result.Alerts[1].Severity != SeverityError {
		t.Errorf("out of stock severity = %q, want error", result.Alerts[1].Severity)
	}
}

func TestAlertService_StockAlertProductRefsCapped(t *testing.T) {
	svc, productRepo, _ := newTestAlertService()

	for i := 0; i < alertProductRefs+5; i++ {
		productRepo.Create(&domain.Product{
			UserID: 1, Name: fmt.Sprintf("low-%d", i), Quantity: 1, Status: domain.ProductStatusLowStock,
		})
	}

	result, err := svc.DeriveAlerts(freeUser(1))
	if err != nil {
		t.Fatalf("DeriveAlerts failed: %v", err)
	}
	if result.Count != 1 {
		t.Fatalf("alert count = %d, want 1", result.Count)
	}

	data, ok := result.Alerts[0].Data.(map[string]any)
	if !ok {
		t.Fatalf("alert data is %T, want map", result.Alerts[0].Data)
	}
	refs, ok := data["products"].([]AlertProductRef)
	if !ok {
		t.Fatalf("products entry is %T, want []AlertProductRef", data["products"])
	}
	if len(refs) != alertProductRefs {
		t.Errorf("product refs = %d, want %d", len(refs), alertProductRefs)
	}
	if count, _ := data["count"].(int64); count != int64(alertProductRefs+5) {
		t.Errorf("count in data = %v, want %d", data["count"], alertProductRefs+5)
	}
}

func TestAlertService_SubscriptionLimitAlert(t *testing.T) {
	svc, productRepo, _ := newTestAlertService()

	for i := 0; i < domain.FreeTierWarningThreshold; i++ {
		productRepo.Create(&domain.Product{
			UserID: 1, Name: fmt.Sprintf("p-%d", i), Quantity: 5, Status: domain.ProductStatusActive,
		})
	}

	result, err := svc.DeriveAlerts(freeUser(1))
	if err != nil {
		t.Fatalf("DeriveAlerts failed: %v", err)
	}

	var found *Alert
	for _, a := range result.Alerts {
		if a.Type == AlertSubscriptionLimit {
			found = a
		}
	}
	if found == nil {
		t.Fatal("expected subscription_limit alert at warning threshold")
	}
	if found.Severity != SeverityInfo {
		t.Errorf("severity = %q, want info", found.Severity)
	}
	if found.ActionRequired {
		t.Error("subscription alert should not require action")
	}

	// pro订阅不触发
	proResult, err := svc.DeriveAlerts(proUser(1))
	if err != nil {
		t.Fatalf("DeriveAlerts for pro failed: %v", err)
	}
	for _, a := range proResult.Alerts {
		if a.Type == AlertSubscriptionLimit {
			t.Error("pro user should not get subscription_limit alert")
		}
	}
}

func TestAlertService_PendingSalesAlert(t *testing.T) {
	svc, _, saleRepo := newTestAlertService()

	saleRepo.Create(&domain.Sale{UserID: 1, ProductID: 1, Quantity: 1, Status: domain.SaleStatusPending})
	saleRepo.Create(&domain.Sale{UserID: 1, ProductID: 1, Quantity: 1, Status: domain.SaleStatusPaid})
	saleRepo.Create(&domain.Sale{UserID: 1, ProductID: 1, Quantity: 1, Status: domain.SaleStatusCompleted})

	result, err := svc.DeriveAlerts(freeUser(1))
	if err != nil {
		t.Fatalf("DeriveAlerts failed: %v", err)
	}
	if result.Count != 1 {
		t.Fatalf("alert count = %d, want 1", result.Count)
	}

	alert := result.Alerts[0]
	if alert.Type != AlertPendingSales {
		t.Errorf("type = %q, want pending_sales", alert.Type)
	}
	data, _ := alert.Data.(map[string]any)
	if count, _ := data["count"].(int64); count != 2 {
		t.Errorf("pending count = %v, want 2", data["count"])
	}
}

func TestAlertService_RepoFailure(t *testing.T) {
	svc, productRepo, _ := newTestAlertService()
	productRepo.failErr = errors.New("connection refused")

	_, err := svc.DeriveAlerts(freeUser(1))
	if !errors.Is(err, ErrDataUnavailable) {
		t.Errorf("error = %v, want ErrDataUnavailable", err)
	}
}
