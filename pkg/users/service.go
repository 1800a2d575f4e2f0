package users

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"katydid-account-register/pkg/idgen"
	"katydid-account-register/pkg/types"
	"katydid-account-register/pkg/validator"
)

// bcryptMaxBytes bcrypt 只接受不超过 72 字节的密码
const bcryptMaxBytes = 72

// ValidationError 请求体没有通过验证
type ValidationError struct {
	Errors []*validator.FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("users: invalid request: %d field error(s)", len(e.Errors))
}

// Service 用户业务逻辑
type Service struct {
	repo   Repository
	ids    idgen.IDGenerator
	cost   int
	logger *zap.Logger
}

// NewService 创建服务；cost 为 0 时使用 bcrypt.DefaultCost
func NewService(repo Repository, ids idgen.IDGenerator, cost int, logger *zap.Logger) *Service {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, ids: ids, cost: cost, logger: logger}
}

// Create 验证请求并创建用户
// 新用户带 StatusUnverified 状态。
func (s *Service) Create(ctx context.Context, req CreateRequest) (*User, error) {
	req.Normalize()

	if errs := validator.Validate(&req, validator.SceneCreate); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	if len(req.Password) > bcryptMaxBytes {
		return nil, &ValidationError{Errors: []*validator.FieldError{
			validator.NewFieldError(nil, "Password", "password", "max", "72"),
		}}
	}

	taken, err := s.repo.ExistsEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("users: hash password: %w", err)
	}

	id, err := s.ids.NextID()
	if err != nil {
		return nil, fmt.Errorf("users: next id: %w", err)
	}

	u := &User{
		ID:           id,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Status:       types.StatusUnverified,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("user created", zap.Int64("user_id", u.ID), zap.String("status", u.Status.String()))
	return u, nil
}

// List 列出所有用户
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}
