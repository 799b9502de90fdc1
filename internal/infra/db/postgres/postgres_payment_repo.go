package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-digital-shop/internal/domain/model"
	"telegram-digital-shop/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `payment_id, user_id, amount, region, platform, status, telegram_message, transaction_id, created_at, paid_at`

func (r *paymentRepo) Create(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (` + paymentColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);`
	_, err := execSQL(ctx, r.pool, tx, q,
		p.PaymentID, p.User, p.Price.Amount, string(p.Price.Region), string(p.Platform),
		string(p.Status), p.TelegramMessage, p.TransactionID, p.CreatedAt, p.PaidAt)
	return writeErr(err)
}

func (r *paymentRepo) FindByPaymentID(ctx context.Context, tx repository.Tx, paymentID int64) (*model.Payment, error) {
	return r.find(ctx, tx, `SELECT `+paymentColumns+` FROM payments WHERE payment_id=$1;`, paymentID)
}

// FindUnpaid filters out settled payments; inside a tx it locks the row so a
// concurrent settlement waits and then finds nothing.
func (r *paymentRepo) FindUnpaid(ctx context.Context, tx repository.Tx, paymentID int64) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE payment_id=$1 AND status <> 'paid'`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	return r.find(ctx, tx, q+";", paymentID)
}

func (r *paymentRepo) SetTelegramMessage(ctx context.Context, tx repository.Tx, paymentID int64, messageID int) error {
	_, err := execSQL(ctx, r.pool, tx, `UPDATE payments SET telegram_message=$2 WHERE payment_id=$1;`, paymentID, messageID)
	return writeErr(err)
}

// Close is the idempotency boundary: only a non-paid row transitions.
func (r *paymentRepo) Close(ctx context.Context, tx repository.Tx, paymentID int64, transactionID *string, paidAt time.Time) (bool, error) {
	const q = `
UPDATE payments
   SET status = 'paid',
       transaction_id = COALESCE($2, transaction_id),
       paid_at = $3
 WHERE payment_id = $1
   AND status <> 'paid';`
	cmd, err := execSQL(ctx, r.pool, tx, q, paymentID, transactionID, paidAt)
	if err != nil {
		return false, writeErr(err)
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *paymentRepo) find(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.Payment, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	var (
		p                        model.Payment
		region, platform, status string
	)
	if err := row.Scan(&p.PaymentID, &p.User, &p.Price.Amount, &region, &platform, &status, &p.TelegramMessage, &p.TransactionID, &p.CreatedAt, &p.PaidAt); err != nil {
		return nil, readErr(err)
	}
	p.Price.Region = model.ParseRegion(region)
	p.Platform = model.PaymentPlatform(platform)
	p.Status = model.PaymentStatus(status)
	return &p, nil
}
