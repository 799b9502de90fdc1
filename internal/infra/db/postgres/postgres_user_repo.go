package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-digital-shop/internal/domain"
	"telegram-digital-shop/internal/domain/model"
	"telegram-digital-shop/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*PostgresUserRepo)(nil)

type PostgresUserRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{pool: pool}
}

// Save upserts the profile. Balance and refills are only written on insert;
// afterwards they change through Debit and Credit alone.
func (r *PostgresUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (
  telegram_id, username, role, status, region, balance, refills, joined_at, last_action
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9
) ON CONFLICT (telegram_id) DO UPDATE SET
  username=$2, role=$3, status=$4, region=$5, last_action=$9;`

	_, err := execSQL(ctx, r.pool, tx, q,
		u.TelegramID, u.Username, string(u.Role), string(u.Status), string(u.Region),
		u.Balance, u.Refills, u.JoinedAt, u.LastAction)
	return writeErr(err)
}

func (r *PostgresUserRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.User, error) {
	const q = `
SELECT telegram_id, username, role, status, region, balance, refills, joined_at, last_action
  FROM users WHERE telegram_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, tgID)
	if err != nil {
		return nil, err
	}
	var (
		u                    model.User
		role, status, region string
	)
	if err := row.Scan(&u.TelegramID, &u.Username, &role, &status, &region, &u.Balance, &u.Refills, &u.JoinedAt, &u.LastAction); err != nil {
		return nil, readErr(err)
	}
	u.Role = model.UserRole(role)
	u.Status = model.UserStatus(status)
	u.Region = model.ParseRegion(region)
	return &u, nil
}

func (r *PostgresUserRepo) Touch(ctx context.Context, tx repository.Tx, tgID int64) error {
	_, err := execSQL(ctx, r.pool, tx, `UPDATE users SET last_action=NOW() WHERE telegram_id=$1;`, tgID)
	return writeErr(err)
}

// Debit is a single conditional update; it never takes the balance below zero.
func (r *PostgresUserRepo) Debit(ctx context.Context, tx repository.Tx, tgID int64, amount int64) (bool, error) {
	if amount < 0 {
		return false, domain.ErrInvalidArgument
	}
	const q = `UPDATE users SET balance = balance - $2 WHERE telegram_id=$1 AND balance >= $2;`
	cmd, err := execSQL(ctx, r.pool, tx, q, tgID, amount)
	if err != nil {
		return false, writeErr(err)
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *PostgresUserRepo) Credit(ctx context.Context, tx repository.Tx, tgID int64, amount int64) error {
	if amount < 0 {
		return domain.ErrInvalidArgument
	}
	const q = `UPDATE users SET balance = balance + $2, refills = refills + 1 WHERE telegram_id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, tgID, amount)
	if err != nil {
		return writeErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
