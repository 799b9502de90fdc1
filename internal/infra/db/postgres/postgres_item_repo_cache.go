package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"telegram-digital-shop/internal/domain/model"
	"telegram-digital-shop/internal/domain/ports/repository"
	"telegram-digital-shop/internal/infra/metrics"
	red "telegram-digital-shop/internal/infra/redis"
)

var _ repository.ItemRepository = (*itemRepoCacheDecorator)(nil)

const visibleItemsKey = "items:visible"

// itemRepoCacheDecorator caches catalog reads in Redis. Reads inside a
// transaction bypass the cache.
type itemRepoCacheDecorator struct {
	inner repository.ItemRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewItemRepoCacheDecorator(inner repository.ItemRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.ItemRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &itemRepoCacheDecorator{
		inner: inner,
		cache: cache,
		ttl:   ttl,
		log:   logger,
	}
}

func itemKey(id string) string { return fmt.Sprintf("item:%s", id) }

func (d *itemRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Item, error) {
	if tx != nil {
		return d.inner.FindByID(ctx, tx, id)
	}
	key := itemKey(id)
	var cached model.Item
	if d.lookup(ctx, "item", key, &cached) {
		return &cached, nil
	}

	it, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	d.store(ctx, key, it)
	return it, nil
}

func (d *itemRepoCacheDecorator) ListVisible(ctx context.Context, tx repository.Tx, limit int) ([]*model.Item, error) {
	if tx != nil {
		return d.inner.ListVisible(ctx, tx, limit)
	}
	key := fmt.Sprintf("%s:%d", visibleItemsKey, limit)
	var items []*model.Item
	if d.lookup(ctx, "item_list", key, &items) {
		return items, nil
	}

	items, err := d.inner.ListVisible(ctx, tx, limit)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		d.store(ctx, key, items)
	}
	return items, nil
}

// Save writes through and invalidates the item and the default list page.
func (d *itemRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, it *model.Item) error {
	if err := d.inner.Save(ctx, tx, it); err != nil {
		return err
	}
	if err := d.cache.Del(ctx, itemKey(it.ID), fmt.Sprintf("%s:%d", visibleItemsKey, DefaultCatalogPage)); err != nil {
		d.log.Warn().Err(err).Str("item_id", it.ID).Msg("item cache invalidation failed")
	}
	return nil
}

// DefaultCatalogPage is the list size the bot asks for.
const DefaultCatalogPage = 50

func (d *itemRepoCacheDecorator) lookup(ctx context.Context, name, key string, dst interface{}) bool {
	val, err := d.cache.Get(ctx, key)
	switch {
	case err == nil:
		if json.Unmarshal([]byte(val), dst) == nil {
			metrics.IncCacheRequest(name, "hit")
			return true
		}
	case !red.IsMiss(err):
		metrics.IncCacheRequest(name, "error")
		d.log.Warn().Err(err).Str("key", key).Msg("item cache read failed")
		return false
	}
	metrics.IncCacheRequest(name, "miss")
	return false
}

func (d *itemRepoCacheDecorator) store(ctx context.Context, key string, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, key, b, d.ttl); err != nil {
		d.log.Warn().Err(err).Str("key", key).Msg("item cache write failed")
	}
}
