package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-digital-shop/internal/domain"
	"telegram-digital-shop/internal/domain/model"
	"telegram-digital-shop/internal/domain/ports/repository"
)

var _ repository.ItemRepository = (*itemRepo)(nil)

type itemRepo struct{ pool *pgxpool.Pool }

func NewItemRepo(pool *pgxpool.Pool) *itemRepo {
	return &itemRepo{pool: pool}
}

const itemColumns = `id, title, scenario, price, discount, hidden`

func (r *itemRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Item, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+itemColumns+` FROM items WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	it := &model.Item{}
	if err := row.Scan(&it.ID, &it.Title, &it.Scenario, &it.Price, &it.Discount, &it.Hidden); err != nil {
		return nil, readErr(err)
	}
	return it, nil
}

func (r *itemRepo) ListVisible(ctx context.Context, tx repository.Tx, limit int) ([]*model.Item, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+itemColumns+` FROM items WHERE NOT hidden ORDER BY title ASC LIMIT $1;`, limit)
	if err != nil {
		return nil, writeErr(err)
	}
	defer rows.Close()

	var out []*model.Item
	for rows.Next() {
		it := new(model.Item)
		if err := rows.Scan(&it.ID, &it.Title, &it.Scenario, &it.Price, &it.Discount, &it.Hidden); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, writeErr(err)
	}
	return out, nil
}

func (r *itemRepo) Save(ctx context.Context, tx repository.Tx, it *model.Item) error {
	const q = `
INSERT INTO items (id, title, scenario, price, discount, hidden)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET
  title=$2, scenario=$3, price=$4, discount=$5, hidden=$6;`
	_, err := execSQL(ctx, r.pool, tx, q, it.ID, it.Title, it.Scenario, it.Price, it.Discount, it.Hidden)
	return writeErr(err)
}
