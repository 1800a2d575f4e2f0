package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore 基于 Redis 的会话存储，多实例部署共享会话和提交锁
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore 创建 Redis 存储；prefix 为空时使用 "register:"
func NewRedisStore(rdb redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "register:"
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *RedisStore) stateKey(id string) string {
	return r.prefix + "session:" + id
}

func (r *RedisStore) lockKey(key string) string {
	return r.prefix + "lock:" + key
}

func (r *RedisStore) Load(ctx context.Context, id string) (*State, error) {
	if !ValidID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	data, err := r.rdb.Get(ctx, r.stateKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return &State{ID: id}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: redis get: %w", err)
	}

	state := &State{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("session: decode state: %w", err)
	}
	return state, nil
}

func (r *RedisStore) Save(ctx context.Context, state *State) error {
	if state == nil || !ValidID(state.ID) {
		return ErrInvalidID
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("session: encode state: %w", err)
	}
	if err := r.rdb.Set(ctx, r.stateKey(state.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, r.stateKey(id)).Err(); err != nil {
		return fmt.Errorf("session: redis del: %w", err)
	}
	return nil
}

func (r *RedisStore) Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	ok, err := r.rdb.SetNX(ctx, r.lockKey(key), owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("session: redis setnx: %w", err)
	}
	return ok, nil
}

// releaseScript 比较持有者后再删除，原子执行
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (r *RedisStore) Release(ctx context.Context, key, owner string) error {
	if err := releaseScript.Run(ctx, r.rdb, []string{r.lockKey(key)}, owner).Err(); err != nil {
		return fmt.Errorf("session: redis release: %w", err)
	}
	return nil
}

func (r *RedisStore) Held(ctx context.Context, key string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.lockKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("session: redis exists: %w", err)
	}
	return n > 0, nil
}
