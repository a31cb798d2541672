package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore implementa Store com strings do Redis. As transações acumulam as
// escritas e enviam tudo num único MULTI/EXEC.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore cria uma nova instância de RedisStore
func NewRedisStore(addr string, password string, db int) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisStore{client: rdb}
}

// Ping verifica se o servidor responde
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return value, nil
}

func (s *RedisStore) BeginTx(ctx context.Context) (Tx, error) {
	return &redisTx{ctx: ctx, client: s.client, pending: make(map[string]string)}, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

type redisTx struct {
	ctx     context.Context
	client  *redis.Client
	pending map[string]string
	done    bool
}

func (t *redisTx) Set(_ context.Context, key, value string) error {
	if t.done {
		return ErrTxDone
	}
	t.pending[key] = value
	return nil
}

func (t *redisTx) Commit() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true

	_, err := t.client.TxPipelined(t.ctx, func(pipe redis.Pipeliner) error {
		for key, value := range t.pending {
			pipe.Set(t.ctx, key, value, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to commit redis transaction: %w", err)
	}
	return nil
}

func (t *redisTx) Rollback() error {
	t.done = true
	t.pending = nil
	return nil
}
