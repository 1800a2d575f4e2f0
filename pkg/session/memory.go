package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	data     []byte
	deadline time.Time
}

type memoryLock struct {
	owner    string
	deadline time.Time
}

// MemoryStore 进程内会话存储，适合单实例部署和测试
// 状态以 JSON 保存，读写互不共享内存。
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	states  map[string]memoryEntry
	locks   map[string]memoryLock
	nowFunc func() time.Time
}

// NewMemoryStore 创建进程内存储；ttl <= 0 使用 DefaultTTL
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:     ttl,
		states:  make(map[string]memoryEntry),
		locks:   make(map[string]memoryLock),
		nowFunc: time.Now,
	}
}

func (m *MemoryStore) Load(_ context.Context, id string) (*State, error) {
	if !ValidID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	m.mu.Lock()
	entry, ok := m.states[id]
	if ok && m.nowFunc().After(entry.deadline) {
		delete(m.states, id)
		ok = false
	}
	m.mu.Unlock()

	if !ok {
		return &State{ID: id}, nil
	}

	state := &State{}
	if err := json.Unmarshal(entry.data, state); err != nil {
		return nil, fmt.Errorf("session: decode state: %w", err)
	}
	return state, nil
}

func (m *MemoryStore) Save(_ context.Context, state *State) error {
	if state == nil || !ValidID(state.ID) {
		return ErrInvalidID
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("session: encode state: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.ID] = memoryEntry{data: data, deadline: m.nowFunc().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, id)
	return nil
}

func (m *MemoryStore) Acquire(_ context.Context, key, owner string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowFunc()
	if l, held := m.locks[key]; held && now.Before(l.deadline) {
		return false, nil
	}
	m.locks[key] = memoryLock{owner: owner, deadline: now.Add(ttl)}
	return true, nil
}

func (m *MemoryStore) Release(_ context.Context, key, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, held := m.locks[key]; held && l.owner == owner {
		delete(m.locks, key)
	}
	return nil
}

func (m *MemoryStore) Held(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, held := m.locks[key]
	return held && m.nowFunc().Before(l.deadline), nil
}
