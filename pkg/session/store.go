// Package session 注册表单的会话状态
// 会话保存字段错误状态、待展示的通知和可选的认证令牌，
// 同时提供提交中的加载锁，保证同一会话同一时间只有一个注册请求。
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"katydid-account-register/pkg/form"
)

var (
	// ErrInvalidID 会话 ID 格式不正确
	ErrInvalidID = errors.New("session: invalid id")

	errNoSessionToken = errors.New("session: no token in session")
)

// 默认值
const (
	DefaultTTL     = 30 * time.Minute
	DefaultLockTTL = time.Minute
)

// State 单个会话的状态
type State struct {
	ID string `json:"id"`
	// Tracker 字段错误状态（不含字段值）
	Tracker form.Snapshot `json:"tracker"`
	// Flash 尚未展示的通知
	Flash []form.Notification `json:"flash,omitempty"`
	// Token 调用用户服务的令牌，由外部登录流程写入
	Token string `json:"token,omitempty"`
}

// PopFlash 取出并清空通知
func (s *State) PopFlash() []form.Notification {
	out := s.Flash
	s.Flash = nil
	return out
}

// Store 会话存储
type Store interface {
	// Load 读取会话，不存在时返回只带 ID 的新状态
	Load(ctx context.Context, id string) (*State, error)
	// Save 保存会话并刷新过期时间
	Save(ctx context.Context, state *State) error
	// Delete 删除会话
	Delete(ctx context.Context, id string) error

	// Acquire 以 owner 身份获取锁，已被持有时返回 false
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	// Release 释放锁，只有持有者仍是 owner 时才删除
	Release(ctx context.Context, key, owner string) error
	// Held 锁是否被持有
	Held(ctx context.Context, key string) (bool, error)
}

// NewID 生成新的会话 ID
func NewID() string {
	return uuid.NewString()
}

// ValidID 会话 ID 必须是 UUID，防止任意字符串进入存储键
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func submitLockKey(id string) string {
	return "submit:" + id
}
