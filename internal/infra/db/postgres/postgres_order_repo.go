package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-digital-shop/internal/domain"
	"telegram-digital-shop/internal/domain/model"
	"telegram-digital-shop/internal/domain/ports/repository"
)

var _ repository.OrderRepository = (*orderRepo)(nil)

type orderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepo(pool *pgxpool.Pool) *orderRepo {
	return &orderRepo{pool: pool}
}

func (r *orderRepo) Create(ctx context.Context, tx repository.Tx, o *model.Order) error {
	data, err := marshalData(o.Data)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO orders (
  order_id, client, item_id, item_title, price_amount, price_region, paid, status, data, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);`
	_, err = execSQL(ctx, r.pool, tx, q,
		o.OrderID, o.Client, o.Item.ID, o.Item.Title, o.Price.Amount, string(o.Price.Region),
		o.Paid, string(o.Status), data, o.CreatedAt)
	return writeErr(err)
}

func (r *orderRepo) FindByOrderID(ctx context.Context, tx repository.Tx, orderID int64) (*model.Order, error) {
	q := `
SELECT order_id, client, item_id, item_title, price_amount, price_region, paid, status, data, created_at, closed_at
  FROM orders WHERE order_id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", orderID)
	if err != nil {
		return nil, err
	}

	var (
		o              model.Order
		region, status string
		data           []byte
	)
	if err := row.Scan(&o.OrderID, &o.Client, &o.Item.ID, &o.Item.Title, &o.Price.Amount, &region, &o.Paid, &status, &data, &o.CreatedAt, &o.ClosedAt); err != nil {
		return nil, readErr(err)
	}
	o.Price.Region = model.ParseRegion(region)
	o.Status = model.OrderStatus(status)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &o.Data); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return &o, nil
}

// MarkPaid finalizes an open order; the WHERE clause is the guard.
func (r *orderRepo) MarkPaid(ctx context.Context, tx repository.Tx, orderID int64, price model.Price, data map[string]string) (bool, error) {
	raw, err := marshalData(data)
	if err != nil {
		return false, err
	}
	const q = `
UPDATE orders
   SET paid = TRUE,
       status = 'untaken',
       price_amount = $2,
       price_region = $3,
       data = $4,
       closed_at = NOW()
 WHERE order_id = $1
   AND status = 'processing'
   AND NOT paid;`
	cmd, err := execSQL(ctx, r.pool, tx, q, orderID, price.Amount, string(price.Region), raw)
	if err != nil {
		return false, writeErr(err)
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *orderRepo) CancelIfOpen(ctx context.Context, tx repository.Tx, orderID int64) (bool, error) {
	const q = `
UPDATE orders SET status = 'canceled', closed_at = NOW()
 WHERE order_id = $1 AND status = 'processing' AND NOT paid;`
	cmd, err := execSQL(ctx, r.pool, tx, q, orderID)
	if err != nil {
		return false, writeErr(err)
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *orderRepo) CancelStale(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
UPDATE orders SET status = 'canceled', closed_at = NOW()
 WHERE order_id IN (
   SELECT order_id FROM orders
    WHERE status = 'processing' AND NOT paid AND created_at < $1
    ORDER BY created_at ASC
    LIMIT $2
    FOR UPDATE SKIP LOCKED
 )
   AND status = 'processing' AND NOT paid;`
	cmd, err := execSQL(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		return 0, writeErr(err)
	}
	return int(cmd.RowsAffected()), nil
}

func marshalData(data map[string]string) ([]byte, error) {
	if data == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, domain.ErrInvalidArgument
	}
	return b, nil
}
