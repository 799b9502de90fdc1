package application

import (
	"context"

	"telegram-digital-shop/internal/domain/model"
	"telegram-digital-shop/internal/domain/ports/adapter"
	"telegram-digital-shop/internal/domain/ports/repository"
)

// Reply is a ready-to-render answer: Text is MarkdownV2-safe.
type Reply struct {
	Text string
	Rows [][]adapter.InlineButton
}

// Catalog is the read side of the item store the bot needs.
type Catalog interface {
	ListVisible(ctx context.Context, limit int) ([]*model.Item, error)
}

type itemCatalog struct {
	items repository.ItemRepository
}

// NewCatalog reads the catalog outside any transaction.
func NewCatalog(items repository.ItemRepository) Catalog {
	return itemCatalog{items: items}
}

func (c itemCatalog) ListVisible(ctx context.Context, limit int) ([]*model.Item, error) {
	return c.items.ListVisible(ctx, repository.NoTX, limit)
}
