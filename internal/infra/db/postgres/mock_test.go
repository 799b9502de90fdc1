//go:build !integration

package postgres

import (
	"context"
	"time"

	"telegram-digital-shop/internal/domain/model"
	"telegram-digital-shop/internal/domain/ports/repository"
	red "telegram-digital-shop/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerItemRepo mocks the database repository the item decorator wraps.
type mockInnerItemRepo struct {
	SaveFunc        func(ctx context.Context, tx repository.Tx, it *model.Item) error
	FindByIDFunc    func(ctx context.Context, tx repository.Tx, id string) (*model.Item, error)
	ListVisibleFunc func(ctx context.Context, tx repository.Tx, limit int) ([]*model.Item, error)
}

func (m *mockInnerItemRepo) Save(ctx context.Context, tx repository.Tx, it *model.Item) error {
	return m.SaveFunc(ctx, tx, it)
}
func (m *mockInnerItemRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Item, error) {
	return m.FindByIDFunc(ctx, tx, id)
}
func (m *mockInnerItemRepo) ListVisible(ctx context.Context, tx repository.Tx, limit int) ([]*model.Item, error) {
	return m.ListVisibleFunc(ctx, tx, limit)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc    func(ctx context.Context, keys ...string) error
	PingFunc   func(ctx context.Context) error
	IncrFunc   func(ctx context.Context, key string) (int64, error)
	ExpireFunc func(ctx context.Context, key string, expiration time.Duration) error
	CloseFunc  func() error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc == nil {
		return nil
	}
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc == nil {
		return nil
	}
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return m.PingFunc(ctx) }
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return m.IncrFunc(ctx, key)
}
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return m.ExpireFunc(ctx, key, expiration)
}
func (m *mockRedisClient) Close() error { return m.CloseFunc() }
