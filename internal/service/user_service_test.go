package service

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/LeonQiao/resell_ledger/internal/domain"
)

func newTestUserService() (UserService, *MockUserRepository) {
	userRepo := NewMockUserRepository()
	svc := NewUserService(userRepo, zap.NewNop())
	return svc, userRepo
}

func registerTestUser(t *testing.T, svc UserService) *domain.User {
	t.Helper()
	user, err := svc.Register(&domain.RegisterRequest{
		Username: "reseller",
		Email:    "Reseller@Example.com",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return user
}

func TestUserService_Register(t *testing.T) {
	svc, _ := newTestUserService()
	user := registerTestUser(t, svc)

	if user.Role != domain.UserRoleUser {
		t.Errorf("role = %q, want user", user.Role)
	}
	if user.Subscription != domain.SubscriptionFree {
		t.Errorf("subscription = %q, want free", user.Subscription)
	}
	if user.Currency != domain.CurrencyGBP {
		t.Errorf("default currency = %q, want GBP", user.Currency)
	}
	if !user.IsActive {
		t.Error("new user should be active")
	}
	if user.Email != "reseller@example.com" {
		t.Errorf("email = %q, want lowercased", user.Email)
	}
	if user.PasswordHash == "secret123" {
		t.Error("password must be hashed")
	}
}

func TestUserService_Register_Duplicate(t *testing.T) {
	svc, _ := newTestUserService()
	registerTestUser(t, svc)

	_, err := svc.Register(&domain.RegisterRequest{
		Username: "reseller",
		Email:    "other@example.com",
		Password: "secret123",
	})
	if !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate username error = %v, want ErrUserExists", err)
	}

	_, err = svc.Register(&domain.RegisterRequest{
		Username: "someone",
		Email:    "reseller@example.com",
		Password: "secret123",
	})
	if !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate email error = %v, want ErrUserExists", err)
	}
}

func TestUserService_Register_InvalidCurrency(t *testing.T) {
	svc, _ := newTestUserService()

	_, err := svc.Register(&domain.RegisterRequest{
		Username: "reseller",
		Email:    "reseller@example.com",
		Password: "secret123",
		Currency: "JPY",
	})
	if !errors.Is(err, domain.ErrInvalidCurrency) {
		t.Errorf("error = %v, want ErrInvalidCurrency", err)
	}
}

func TestUserService_Login(t *testing.T) {
	svc, _ := newTestUserService()
	registered := registerTestUser(t, svc)

	// 用户名登录
	user, err := svc.Login(&domain.LoginRequest{Username: "reseller", Password: "secret123"})
	if err != nil {
		t.Fatalf("Login by username failed: %v", err)
	}
	if user.ID != registered.ID {
		t.Errorf("user ID = %d, want %d", user.ID, registered.ID)
	}

	// 邮箱登录
	if _, err := svc.Login(&domain.LoginRequest{Username: "reseller@example.com", Password: "secret123"}); err != nil {
		t.Errorf("Login by email failed: %v", err)
	}

	// 错误密码
	if _, err := svc.Login(&domain.LoginRequest{Username: "reseller", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", err)
	}

	// 未知用户
	if _, err := svc.Login(&domain.LoginRequest{Username: "ghost", Password: "secret123"}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown user error = %v, want ErrUserNotFound", err)
	}
}

func TestUserService_Login_InactiveUser(t *testing.T) {
	svc, userRepo := newTestUserService()
	user := registerTestUser(t, svc)

	user.IsActive = false
	userRepo.Update(user)

	_, err := svc.Login(&domain.LoginRequest{Username: "reseller", Password: "secret123"})
	if !errors.Is(err, ErrUserInactive) {
		t.Errorf("inactive user error = %v, want ErrUserInactive", err)
	}
}

func TestUserService_UpdatePreferences(t *testing.T) {
	svc, _ := newTestUserService()
	user := registerTestUser(t, svc)

	eur := domain.CurrencyEUR
	pro := domain.SubscriptionPro
	updated, err := svc.UpdatePreferences(user.ID, &domain.UpdatePreferencesRequest{
		Currency:     &eur,
		Subscription: &pro,
	})
	if err != nil {
		t.Fatalf("UpdatePreferences failed: %v", err)
	}
	if updated.Currency != domain.CurrencyEUR {
		t.Errorf("currency = %q, want EUR", updated.Currency)
	}
	if updated.Subscription != domain.SubscriptionPro {
		t.Errorf("subscription = %q, want pro", updated.Subscription)
	}

	// 非法订阅类型
	bad := domain.SubscriptionType("enterprise")
	if _, err := svc.UpdatePreferences(user.ID, &domain.UpdatePreferencesRequest{Subscription: &bad}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("invalid subscription error = %v, want ErrInvalidInput", err)
	}

	// 未知用户
	if _, err := svc.UpdatePreferences(999, &domain.UpdatePreferencesRequest{}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown user error = %v, want ErrUserNotFound", err)
	}
}
