package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"katydid-account-register/pkg/form"
)

// storeContract 两种存储实现共用的行为测试
func storeContract(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("不存在的会话返回新状态", func(t *testing.T) {
		id := NewID()
		state, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, &State{ID: id}, state)
	})

	t.Run("非法ID被拒绝", func(t *testing.T) {
		_, err := store.Load(ctx, "../../etc/passwd")
		assert.ErrorIs(t, err, ErrInvalidID)
		assert.ErrorIs(t, store.Save(ctx, &State{ID: "x"}), ErrInvalidID)
	})

	t.Run("保存后读取", func(t *testing.T) {
		tr := form.NewRegistrationTracker()
		_, err := tr.Validate(form.FieldName, "joe")
		require.NoError(t, err)

		state := &State{
			ID:      NewID(),
			Tracker: tr.Snapshot(),
			Flash:   []form.Notification{{Message: form.MessageCreateFailed, Severity: form.SeverityError}},
			Token:   "tok",
		}
		require.NoError(t, store.Save(ctx, state))

		loaded, err := store.Load(ctx, state.ID)
		require.NoError(t, err)
		assert.Equal(t, state, loaded)

		require.NoError(t, store.Delete(ctx, state.ID))
		loaded, err = store.Load(ctx, state.ID)
		require.NoError(t, err)
		assert.Empty(t, loaded.Flash)
	})

	t.Run("锁互斥", func(t *testing.T) {
		key := "test:" + NewID()
		ok, err := store.Acquire(ctx, key, "a", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		held, err := store.Held(ctx, key)
		require.NoError(t, err)
		assert.True(t, held)

		ok, err = store.Acquire(ctx, key, "b", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		// 非持有者释放无效
		require.NoError(t, store.Release(ctx, key, "b"))
		held, err = store.Held(ctx, key)
		require.NoError(t, err)
		assert.True(t, held)

		require.NoError(t, store.Release(ctx, key, "a"))
		held, err = store.Held(ctx, key)
		require.NoError(t, err)
		assert.False(t, held)
	})
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore(0))
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(time.Minute)
	now := time.Now()
	m.nowFunc = func() time.Time { return now }

	state := &State{ID: NewID(), Token: "tok"}
	require.NoError(t, m.Save(ctx, state))

	ok, err := m.Acquire(ctx, "k", "a", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)

	loaded, err := m.Load(ctx, state.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded.Token)

	// 过期的锁可以重新获取
	ok, err = m.Acquire(ctx, "k", "b", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	require.NoError(t, rdb.Ping(context.Background()).Err())

	storeContract(t, NewRedisStore(rdb, "register-test:", time.Minute))
}

func TestSubmissionLock(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	id := NewID()

	a := NewSubmissionLock(store, id, 0)
	b := NewSubmissionLock(store, id, 0)
	other := NewSubmissionLock(store, NewID(), 0)

	ok, err := a.Begin(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, b.IsLoading(ctx))

	// 同一会话的第二个请求拿不到锁
	ok, err = b.Begin(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// 其他会话不受影响
	ok, err = other.Begin(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	a.End(cancelled)
	assert.False(t, b.IsLoading(ctx))
}

func TestSubmissionLock_ExpiredOwnerCannotRelease(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	now := time.Now()
	store.nowFunc = func() time.Time { return now }
	id := NewID()

	first := NewSubmissionLock(store, id, time.Second)
	second := NewSubmissionLock(store, id, time.Second)
	assert.Equal(t, time.Second, first.TTL())

	ok, err := first.Begin(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// 第一个锁过期后被第二个请求拿到
	now = now.Add(2 * time.Second)
	ok, err = second.Begin(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// 第一个请求结束时不能释放别人的锁
	first.End(ctx)
	assert.True(t, second.IsLoading(ctx))

	second.End(ctx)
	assert.False(t, second.IsLoading(ctx))

	// 没拿到锁的 End 什么也不做
	third := NewSubmissionLock(store, id, time.Second)
	ok, err = first.Begin(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	third.End(ctx)
	assert.True(t, first.IsLoading(ctx))
}

func TestFlashNotifierAndToken(t *testing.T) {
	ctx := context.Background()
	state := &State{ID: NewID()}

	FlashNotifier{State: state}.Notify(ctx, form.Notification{Message: "m", Severity: form.SeverityError})
	assert.Len(t, state.Flash, 1)
	assert.Len(t, state.PopFlash(), 1)
	assert.Empty(t, state.Flash)

	_, err := TokenFromState{State: state}.Token(ctx)
	assert.Error(t, err)

	state.Token = "tok"
	tok, err := TokenFromState{State: state}.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)
}
