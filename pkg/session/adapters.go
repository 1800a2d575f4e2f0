package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"katydid-account-register/pkg/form"
)

// SubmissionLock 以会话为粒度的 form.SubmissionState
// 锁带 TTL，进程崩溃时不会永久卡在加载状态。每次 Begin 生成新的持有者标识，
// End 只释放自己持有的锁；调用方需要保证受保护的操作在 TTL 内结束（见 TTL）。
type SubmissionLock struct {
	store Store
	key   string
	ttl   time.Duration
	owner string
}

// NewSubmissionLock 创建会话提交锁；ttl <= 0 使用 DefaultLockTTL
func NewSubmissionLock(store Store, sessionID string, ttl time.Duration) *SubmissionLock {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &SubmissionLock{store: store, key: submitLockKey(sessionID), ttl: ttl}
}

// TTL 锁的有效期
func (l *SubmissionLock) TTL() time.Duration {
	return l.ttl
}

func (l *SubmissionLock) Begin(ctx context.Context) (bool, error) {
	owner := uuid.NewString()
	ok, err := l.store.Acquire(ctx, l.key, owner, l.ttl)
	if err != nil || !ok {
		return false, err
	}
	l.owner = owner
	return true, nil
}

// End 使用独立的 context 释放锁，请求被取消时也要清除加载状态
func (l *SubmissionLock) End(ctx context.Context) {
	if l.owner == "" {
		return
	}
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	_ = l.store.Release(releaseCtx, l.key, l.owner)
	l.owner = ""
}

func (l *SubmissionLock) IsLoading(ctx context.Context) bool {
	held, err := l.store.Held(ctx, l.key)
	return err == nil && held
}

// FlashNotifier 把通知追加到会话的 Flash 中，由调用方负责保存会话
type FlashNotifier struct {
	State *State
}

func (n FlashNotifier) Notify(_ context.Context, msg form.Notification) {
	n.State.Flash = append(n.State.Flash, msg)
}

// TokenFromState 读取会话中由登录流程写入的令牌
type TokenFromState struct {
	State *State
}

func (t TokenFromState) Token(context.Context) (string, error) {
	if t.State == nil || t.State.Token == "" {
		return "", errNoSessionToken
	}
	return t.State.Token, nil
}
