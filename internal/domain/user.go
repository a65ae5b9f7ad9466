// Package domain 定义用户领域模型和订阅规则。
package domain

import (
	"time"
)

// UserRole 定义用户角色类型
type UserRole string

const (
	UserRoleUser  UserRole = "user"  // 普通用户
	UserRoleAdmin UserRole = "admin" // 管理员
)

// SubscriptionType 定义订阅类型，用于功能与库存数量限制
type SubscriptionType string

const (
	SubscriptionFree SubscriptionType = "free"
	SubscriptionPro  SubscriptionType = "pro"
)

// FreeTierProductLimit 为免费订阅的在册（未归档）商品数量上限
const FreeTierProductLimit = 100

// FreeTierWarningThreshold 为接近上限时触发提示告警的数量
const FreeTierWarningThreshold = 80

// User 表示用户领域模型
type User struct {
	ID           int64            `json:"id"`
	Username     string           `json:"username"`
	Email        string           `json:"email"`
	PasswordHash string           `json:"-"` // JSON序列化时忽略密码哈希
	Role         UserRole         `json:"role"`
	Currency     Currency         `json:"currency"`
	Subscription SubscriptionType `json:"subscription_type"`
	IsActive     bool             `json:"is_active"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// ProductLimit 返回该用户订阅允许的在册商品上限；0表示不限制
func (u *User) ProductLimit() int {
	if u.Subscription == SubscriptionFree {
		return FreeTierProductLimit
	}
	return 0
}

// RegisterRequest 表示用户注册请求
type RegisterRequest struct {
	Username string   `json:"username" binding:"required,min=3,max=32"`
	Email    string   `json:"email" binding:"required,email"`
	Password string   `json:"password" binding:"required,min=6,max=72"`
	Currency Currency `json:"currency"` // 缺省GBP
}

// LoginRequest 表示用户登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 表示登录成功的响应
type LoginResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RefreshTokenRequest 表示刷新令牌请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// UpdatePreferencesRequest 表示更新用户偏好请求
type UpdatePreferencesRequest struct {
	Currency     *Currency         `json:"currency"`
	Subscription *SubscriptionType `json:"subscription_type"`
}
