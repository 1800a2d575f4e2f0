// Package users 用户服务：创建和列出用户的 HTTP API 及其存储
package users

import (
	"strings"
	"time"

	"katydid-account-register/pkg/idgen"
	"katydid-account-register/pkg/types"
	"katydid-account-register/pkg/validator"
)

// User 用户持久化模型
type User struct {
	ID           int64        `gorm:"primaryKey;autoIncrement:false"`
	Name         string       `gorm:"size:128;not null"`
	Email        string       `gorm:"size:254;not null;uniqueIndex"`
	PasswordHash string       `gorm:"size:72;not null"`
	Status       types.Status `gorm:"not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName gorm 表名
func (User) TableName() string {
	return "users"
}

// CreateRequest 创建用户请求体
type CreateRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RuleValidation 与注册表单一致的字段规则，服务端再验证一次
func (r *CreateRequest) RuleValidation() map[validator.ValidateScene]map[string]string {
	return map[validator.ValidateScene]map[string]string{
		validator.SceneCreate: {
			"Name":     "min=4,max=128",
			"Email":    "required,email,max=254",
			"Password": "min=6,max=72",
		},
	}
}

// Normalize 去除首尾空白，邮箱统一小写
func (r *CreateRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

// Response 对外的用户资源
type Response struct {
	ID        idgen.ID  `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// ToResponse 转换为对外资源
func (u *User) ToResponse() Response {
	return Response{
		ID:        idgen.ID(u.ID),
		Name:      u.Name,
		Email:     u.Email,
		Status:    u.Status.String(),
		CreatedAt: u.CreatedAt,
	}
}
