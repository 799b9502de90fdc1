package usecase

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"telegram-digital-shop/internal/domain"
	"telegram-digital-shop/internal/domain/model"
	"telegram-digital-shop/internal/domain/ports/adapter"
	"telegram-digital-shop/internal/domain/ports/repository"
	"telegram-digital-shop/internal/infra/i18n"
	"telegram-digital-shop/internal/infra/logging"
)

// Compile-time check
var _ SettlementUseCase = (*settlementUC)(nil)

// StatusPaid is the only callback status that settles a payment.
const StatusPaid = "paid"

// Settlement is a payment that was closed and credited by this call.
type Settlement struct {
	Payment  *model.Payment
	Credited int64
	// Notified is false when the customer could not be told; the credit stands.
	Notified bool
}

// SettlementUseCase reconciles provider callbacks with the payment ledger.
type SettlementUseCase interface {
	// Settle authenticates and applies a provider callback. Every rejection
	// wraps domain.ErrSettlementRejected and leaves all records untouched.
	Settle(ctx context.Context, cb adapter.Callback) (*Settlement, error)
	// ConfirmManual settles a card payment an operator has checked by hand.
	ConfirmManual(ctx context.Context, paymentID int64) (*Settlement, error)
}

type settlementUC struct {
	payments PaymentUseCase
	paymentR repository.PaymentRepository
	users    repository.UserRepository
	provider adapter.PaymentProvider
	renderer adapter.Renderer
	tm       repository.TransactionManager
	tr       *i18n.Translator
	log      *zerolog.Logger
}

func NewSettlementUseCase(
	payments PaymentUseCase,
	paymentRepo repository.PaymentRepository,
	users repository.UserRepository,
	provider adapter.PaymentProvider,
	renderer adapter.Renderer,
	tm repository.TransactionManager,
	tr *i18n.Translator,
	logger *zerolog.Logger,
) *settlementUC {
	return &settlementUC{
		payments: payments,
		paymentR: paymentRepo,
		users:    users,
		provider: provider,
		renderer: renderer,
		tm:       tm,
		tr:       tr,
		log:      logger,
	}
}

func (u *settlementUC) Settle(ctx context.Context, cb adapter.Callback) (*Settlement, error) {
	defer logging.TraceDuration(u.log, "SettlementUC.Settle")()

	// Authenticate
	if !u.provider.VerifyCallback(cb) {
		return nil, domain.ErrBadSignature
	}
	// Authorize
	if cb.Status != StatusPaid {
		return nil, domain.ErrPaymentNotPaid
	}
	paymentID, err := strconv.ParseInt(strings.TrimSpace(cb.PayID), 10, 64)
	if err != nil {
		return nil, domain.ErrPaymentNotFound
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(cb.Amount))
	if err != nil {
		return nil, domain.ErrAmountMismatch
	}

	var txnID *string
	if cb.TransactionID != "" {
		id := cb.TransactionID
		txnID = &id
	}
	check := func(p *model.Payment) error {
		if !amount.Equal(decimal.NewFromInt(p.Price.Amount)) {
			return domain.ErrAmountMismatch
		}
		return nil
	}
	return u.apply(ctx, paymentID, txnID, check)
}

func (u *settlementUC) ConfirmManual(ctx context.Context, paymentID int64) (*Settlement, error) {
	defer logging.TraceDuration(u.log, "SettlementUC.ConfirmManual")()

	check := func(p *model.Payment) error {
		if p.Platform != model.PlatformCard {
			return domain.ErrInvalidArgument
		}
		return nil
	}
	return u.apply(ctx, paymentID, nil, check)
}

// apply closes the payment and credits the balance in one transaction, then
// notifies the customer outside of it.
func (u *settlementUC) apply(ctx context.Context, paymentID int64, txnID *string, check func(*model.Payment) error) (*Settlement, error) {
	var payment *model.Payment
	var credited int64

	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.paymentR.FindUnpaid(ctx, tx, paymentID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrPaymentNotFound
			}
			return err
		}
		if err := check(p); err != nil {
			return err
		}
		changed, err := u.payments.Close(ctx, tx, paymentID, txnID)
		if err != nil {
			return err
		}
		if !changed {
			return domain.ErrAlreadySettled
		}
		credited = p.Credit()
		if err := u.users.Credit(ctx, tx, p.User, credited); err != nil {
			return err
		}
		p.Status = model.PaymentStatusPaid
		p.TransactionID = txnID
		payment = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.log.Info().
		Int64("payment_id", payment.PaymentID).
		Int64("tg_id", payment.User).
		Int64("credited", credited).
		Msg("payment settled")

	return &Settlement{Payment: payment, Credited: credited, Notified: u.notify(ctx, payment)}, nil
}

func (u *settlementUC) notify(ctx context.Context, p *model.Payment) bool {
	text := ProtectMarkdown(u.tr.T("refill_paid", p.Price.Amount, p.Price.Region.CurrencySign()))
	rows := BackToMenu(u.tr)

	var err error
	if p.TelegramMessage != 0 {
		err = u.renderer.Edit(ctx, model.RenderTarget{ChatID: p.User, MessageID: p.TelegramMessage}, text, rows)
	} else {
		_, err = u.renderer.Send(ctx, p.User, text, rows)
	}
	if err != nil {
		u.log.Warn().Err(err).Int64("payment_id", p.PaymentID).Msg("settlement notification failed")
		return false
	}
	return true
}
