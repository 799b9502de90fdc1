package usecase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"telegram-digital-shop/internal/domain"
	"telegram-digital-shop/internal/domain/model"
	"telegram-digital-shop/internal/domain/ports/adapter"
	"telegram-digital-shop/internal/domain/ports/repository"
	"telegram-digital-shop/internal/infra/i18n"
	"telegram-digital-shop/internal/infra/logging"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// Callback data prefix of the "I have paid" control on card invoices.
const CardPaidPrefix = "card_paid#"

const maxRefillAmount = 1_000_000

// PaymentUseCase is the payment ledger.
type PaymentUseCase interface {
	// CreateRefill opens a waiting payment and posts the invoice to the customer.
	CreateRefill(ctx context.Context, customer, amount int64, region model.Region) (*model.Payment, error)
	// Close marks a payment paid; false means it was already settled.
	Close(ctx context.Context, tx repository.Tx, paymentID int64, transactionID *string) (bool, error)
	Get(ctx context.Context, paymentID int64) (*model.Payment, error)
}

type paymentUC struct {
	payments repository.PaymentRepository
	provider adapter.PaymentProvider
	renderer adapter.Renderer
	tr       *i18n.Translator
	card     string
	log      *zerolog.Logger
}

// NewPaymentUseCase wires the ledger; cardNumber is shown on manual card invoices.
func NewPaymentUseCase(
	payments repository.PaymentRepository,
	provider adapter.PaymentProvider,
	renderer adapter.Renderer,
	tr *i18n.Translator,
	cardNumber string,
	logger *zerolog.Logger,
) *paymentUC {
	return &paymentUC{
		payments: payments,
		provider: provider,
		renderer: renderer,
		tr:       tr,
		card:     cardNumber,
		log:      logger,
	}
}

func (u *paymentUC) CreateRefill(ctx context.Context, customer, amount int64, region model.Region) (*model.Payment, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.CreateRefill")()

	if customer <= 0 || amount < 1 || amount > maxRefillAmount {
		return nil, domain.ErrInvalidArgument
	}
	platform, ok := model.PlatformFor(region)
	if !ok {
		return nil, domain.ErrUnsupportedRegion
	}

	var payment *model.Payment
	_, err := createWithRandomID(ctx, paymentIDDigits, func(id int64) error {
		p := &model.Payment{
			PaymentID: id,
			User:      customer,
			Price:     model.Price{Amount: amount, Region: region},
			Platform:  platform,
			Status:    model.PaymentStatusWaiting,
			CreatedAt: time.Now(),
		}
		if err := u.payments.Create(ctx, repository.NoTX, p); err != nil {
			return err
		}
		payment = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	text := ProtectMarkdown(u.tr.T("refill_created", amount, region.CurrencySign()))
	var rows [][]adapter.InlineButton
	switch platform {
	case model.PlatformAnyPay:
		rows = [][]adapter.InlineButton{{{Text: u.tr.T("refill_pay_button"), URL: u.provider.PaymentLink(payment)}}}
	case model.PlatformCard:
		text += ProtectMarkdown(u.tr.T("refill_card", u.card))
		rows = [][]adapter.InlineButton{{{
			Text: u.tr.T("refill_card_paid_button"),
			Data: CardPaidPrefix + strconv.FormatInt(payment.PaymentID, 10),
		}}}
	}

	target, err := u.renderer.Send(ctx, customer, text, rows)
	if err != nil {
		return nil, fmt.Errorf("send invoice: %w", err)
	}
	payment.TelegramMessage = target.MessageID
	if err := u.payments.SetTelegramMessage(ctx, repository.NoTX, payment.PaymentID, target.MessageID); err != nil {
		// The invoice is out; settlement falls back to a new message.
		u.log.Error().Err(err).Int64("payment_id", payment.PaymentID).Msg("failed to store invoice message")
	}

	u.log.Info().
		Int64("payment_id", payment.PaymentID).
		Int64("amount", amount).
		Str("region", string(region)).
		Str("platform", string(platform)).
		Msg("refill created")
	return payment, nil
}

func (u *paymentUC) Close(ctx context.Context, tx repository.Tx, paymentID int64, transactionID *string) (bool, error) {
	return u.payments.Close(ctx, tx, paymentID, transactionID, time.Now())
}

func (u *paymentUC) Get(ctx context.Context, paymentID int64) (*model.Payment, error) {
	return u.payments.FindByPaymentID(ctx, repository.NoTX, paymentID)
}
