package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-digital-shop/internal/domain"
	"telegram-digital-shop/internal/domain/model"
	"telegram-digital-shop/internal/domain/ports/repository"
	"telegram-digital-shop/internal/infra/logging"
)

// Compile-time check
var _ OrderUseCase = (*orderUC)(nil)

type FinalizeOutcome int

const (
	FinalizePaid FinalizeOutcome = iota + 1
	FinalizeInsufficientBalance
)

// FinalizeResult is either a paid order or the amount still missing,
// expressed in the customer's region.
type FinalizeResult struct {
	Outcome   FinalizeOutcome
	Order     *model.Order
	Shortfall model.Price
}

// OrderUseCase is the order ledger.
type OrderUseCase interface {
	// Open creates a processing order with the item's price snapshot in region.
	Open(ctx context.Context, item *model.Item, client int64, region model.Region) (*model.Order, error)
	// Finalize debits the live item price and marks the order paid as one unit.
	Finalize(ctx context.Context, orderID, client int64, data map[string]string) (*FinalizeResult, error)
	// Cancel moves an open order to canceled; false when it was not open.
	Cancel(ctx context.Context, orderID int64) (bool, error)
	Get(ctx context.Context, orderID int64) (*model.Order, error)
	// ExpireStale cancels open orders created more than olderThan ago.
	ExpireStale(ctx context.Context, olderThan time.Duration) (int, error)
}

const expireBatch = 500

type orderUC struct {
	orders repository.OrderRepository
	items  repository.ItemRepository
	users  repository.UserRepository
	tm     repository.TransactionManager
	log    *zerolog.Logger
}

func NewOrderUseCase(
	orders repository.OrderRepository,
	items repository.ItemRepository,
	users repository.UserRepository,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *orderUC {
	return &orderUC{orders: orders, items: items, users: users, tm: tm, log: logger}
}

func (u *orderUC) Open(ctx context.Context, item *model.Item, client int64, region model.Region) (*model.Order, error) {
	defer logging.TraceDuration(u.log, "OrderUC.Open")()

	var order *model.Order
	_, err := createWithRandomID(ctx, orderIDDigits, func(id int64) error {
		o, err := model.NewOrder(id, client, item, region)
		if err != nil {
			return err
		}
		if err := u.orders.Create(ctx, repository.NoTX, o); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("open order: %w", err)
	}
	return order, nil
}

func (u *orderUC) Finalize(ctx context.Context, orderID, client int64, data map[string]string) (*FinalizeResult, error) {
	defer logging.TraceDuration(u.log, "OrderUC.Finalize")()

	order, err := u.orders.FindByOrderID(ctx, repository.NoTX, orderID)
	if err != nil {
		return nil, err
	}
	if order.Client != client || !order.IsOpen() || !order.CanTransition(model.OrderEventFinalize) {
		return nil, domain.ErrOrderNotOpen
	}
	item, err := u.items.FindByID(ctx, repository.NoTX, order.Item.ID)
	if err != nil {
		return nil, fmt.Errorf("load item %s: %w", order.Item.ID, err)
	}

	var result *FinalizeResult
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	err = u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		user, err := u.users.FindByTelegramID(ctx, tx, client)
		if err != nil {
			return err
		}
		region := user.Region
		debit := item.RealPrice()

		ok, err := u.users.Debit(ctx, tx, client, debit)
		if err != nil {
			return err
		}
		if !ok {
			// The balance may have moved since it was read; report against a fresh read.
			if fresh, ferr := u.users.FindByTelegramID(ctx, tx, client); ferr == nil {
				user = fresh
			}
			missing := debit - user.Balance
			if missing < 1 {
				missing = 1
			}
			result = &FinalizeResult{
				Outcome:   FinalizeInsufficientBalance,
				Order:     order,
				Shortfall: model.Price{Amount: region.FromBase(missing), Region: region},
			}
			return nil
		}

		price := model.Price{Amount: item.RealPriceIn(region), Region: region}
		changed, err := u.orders.MarkPaid(ctx, tx, orderID, price, data)
		if err != nil {
			return err
		}
		if !changed {
			// Rolls the debit back.
			return domain.ErrOrderNotOpen
		}
		if err := order.Transition(ctx, model.OrderEventFinalize); err != nil {
			return err
		}
		now := time.Now()
		order.Paid = true
		order.Price = price
		order.Data = data
		order.ClosedAt = &now
		result = &FinalizeResult{Outcome: FinalizePaid, Order: order}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (u *orderUC) Cancel(ctx context.Context, orderID int64) (bool, error) {
	defer logging.TraceDuration(u.log, "OrderUC.Cancel")()
	return u.orders.CancelIfOpen(ctx, repository.NoTX, orderID)
}

func (u *orderUC) Get(ctx context.Context, orderID int64) (*model.Order, error) {
	return u.orders.FindByOrderID(ctx, repository.NoTX, orderID)
}

func (u *orderUC) ExpireStale(ctx context.Context, olderThan time.Duration) (int, error) {
	defer logging.TraceDuration(u.log, "OrderUC.ExpireStale")()

	cutoff := time.Now().Add(-olderThan)
	total := 0
	for {
		n, err := u.orders.CancelStale(ctx, repository.NoTX, cutoff, expireBatch)
		total += n
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return total, nil
			}
			return total, err
		}
		if n < expireBatch {
			return total, nil
		}
	}
}
