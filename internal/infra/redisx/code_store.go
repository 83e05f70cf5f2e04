package redisx

import (
	"context"
	"errors"
	"fmt"
	"time"

	repo "storefront/internal/repository"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// code:{kind}:{email} -> code
const keyCode = "code:%s:%s"

// Redis実装のCodeStore。
// TTL付きで持つので再起動しても消えないし、複数プロセスでも共有できる。
type CodeStore struct {
	rdb *redis.Client
}

func NewCodeStore(rdb *redis.Client) *CodeStore {
	return &CodeStore{rdb: rdb}
}

func (s *CodeStore) Set(ctx context.Context, kind repo.CodeKind, email string, code string, ttl time.Duration) error {
	key := fmt.Sprintf(keyCode, kind, email)
	return s.rdb.Set(ctx, key, code, ttl).Err()
}

func (s *CodeStore) Get(ctx context.Context, kind repo.CodeKind, email string) (string, error) {
	key := fmt.Sprintf(keyCode, kind, email)
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", repo.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (s *CodeStore) Delete(ctx context.Context, kind repo.CodeKind, email string) error {
	key := fmt.Sprintf(keyCode, kind, email)
	return s.rdb.Del(ctx, key).Err()
}
