package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"telegram-digital-shop/internal/domain"
	"telegram-digital-shop/internal/domain/model"
	"telegram-digital-shop/internal/domain/ports/adapter"
	"telegram-digital-shop/internal/infra/i18n"
	"telegram-digital-shop/internal/usecase"
)

// ItemPrefix is the callback data of a catalog button: item:<id>.
const ItemPrefix = "item:"

const catalogPage = 50

// BotFacade composes usecases into the bot's commands and menu actions.
// It returns replies; the transport decides whether to send or edit.
type BotFacade struct {
	UserUC       usecase.UserUseCase
	SellUC       usecase.SellUseCase
	PayUC        usecase.PaymentUseCase
	SettlementUC usecase.SettlementUseCase
	Catalog      Catalog

	tr  *i18n.Translator
	log *zerolog.Logger
}

func NewBotFacade(
	userUC usecase.UserUseCase,
	sellUC usecase.SellUseCase,
	payUC usecase.PaymentUseCase,
	settlementUC usecase.SettlementUseCase,
	catalog Catalog,
	tr *i18n.Translator,
	logger *zerolog.Logger,
) *BotFacade {
	return &BotFacade{
		UserUC:       userUC,
		SellUC:       sellUC,
		PayUC:        payUC,
		SettlementUC: settlementUC,
		Catalog:      catalog,
		tr:           tr,
		log:          logger,
	}
}

// HandleStart registers the customer on first contact and shows the main menu.
// created reports a new registration.
func (b *BotFacade) HandleStart(ctx context.Context, tgID int64, username, languageCode string) (Reply, bool, error) {
	_, created, err := b.UserUC.RegisterOrFetch(ctx, tgID, username, languageCode)
	if errors.Is(err, domain.ErrUserBlocked) {
		return b.plain("account_blocked"), false, nil
	}
	if err != nil {
		return Reply{}, false, fmt.Errorf("register/fetch user: %w", err)
	}
	return b.HandleMenu(), created, nil
}

func (b *BotFacade) HandleMenu() Reply {
	text, rows := usecase.MainMenu(b.tr)
	return Reply{Text: text, Rows: rows}
}

// HandleShop lists visible items priced in the customer's region.
func (b *BotFacade) HandleShop(ctx context.Context, tgID int64) (Reply, error) {
	user, err := b.UserUC.GetByTelegramID(ctx, tgID)
	if err != nil {
		return Reply{}, fmt.Errorf("user not found: %w", err)
	}
	items, err := b.Catalog.ListVisible(ctx, catalogPage)
	if err != nil {
		return Reply{}, fmt.Errorf("list items: %w", err)
	}
	if len(items) == 0 {
		return Reply{Text: usecase.ProtectMarkdown(b.tr.T("shop_empty")), Rows: usecase.BackToMenu(b.tr)}, nil
	}

	rows := make([][]adapter.InlineButton, 0, len(items)+1)
	for _, it := range items {
		label := fmt.Sprintf("%s · %d %s", it.Title, it.RealPriceIn(user.Region), user.Region.CurrencySign())
		rows = append(rows, []adapter.InlineButton{{Text: label, Data: ItemPrefix + it.ID}})
	}
	rows = append(rows, usecase.BackToMenu(b.tr)...)
	return Reply{Text: usecase.ProtectMarkdown(b.tr.T("shop_title")), Rows: rows}, nil
}

// HandleBalance shows the balance in the customer's currency.
func (b *BotFacade) HandleBalance(ctx context.Context, tgID int64) (Reply, error) {
	bal, err := b.UserUC.Balance(ctx, tgID)
	if err != nil {
		return Reply{}, fmt.Errorf("balance: %w", err)
	}
	text := usecase.ProtectMarkdown(b.tr.T("balance", bal.Amount, bal.Region.CurrencySign()))
	return Reply{Text: text, Rows: usecase.BackToMenu(b.tr)}, nil
}

// HandleBuy enters the item's scenario. A zero target posts a new message.
// It returns a reply only when the customer must be told something here.
func (b *BotFacade) HandleBuy(ctx context.Context, tgID int64, itemID string, target model.RenderTarget) (*Reply, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		r := b.plain("buy_usage")
		return &r, nil
	}
	err := b.SellUC.Enter(ctx, tgID, itemID, target)
	switch {
	case err == nil:
		return nil, nil
	case errors.Is(err, domain.ErrUserBlocked):
		r := b.plain("account_blocked")
		return &r, nil
	case errors.Is(err, domain.ErrNotFound):
		// unknown item, or a customer who never sent /start
		r := Reply{Text: usecase.ProtectMarkdown(b.tr.T("error_generic")), Rows: usecase.BackToMenu(b.tr)}
		return &r, nil
	case errors.Is(err, domain.ErrFatalSession):
		// already reported to the customer by the executor
		return nil, nil
	default:
		return nil, err
	}
}

// HandleRefillCommand parses "/refill <amount>" in the customer's own region.
func (b *BotFacade) HandleRefillCommand(ctx context.Context, tgID int64, arg string) (*Reply, error) {
	amount, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil {
		r := b.plain("refill_usage")
		return &r, nil
	}
	user, err := b.UserUC.GetByTelegramID(ctx, tgID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}
	return b.refill(ctx, tgID, amount, user.Region)
}

// HandleRefillControl handles refill#<amount>#<region> from a shortfall message.
func (b *BotFacade) HandleRefillControl(ctx context.Context, tgID int64, data string) (*Reply, error) {
	parts := strings.Split(strings.TrimPrefix(data, usecase.RefillPrefix), "#")
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: refill control %q", domain.ErrInvalidArgument, data)
	}
	amount, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: refill amount %q", domain.ErrInvalidArgument, parts[0])
	}
	return b.refill(ctx, tgID, amount, model.ParseRegion(parts[1]))
}

func (b *BotFacade) refill(ctx context.Context, tgID, amount int64, region model.Region) (*Reply, error) {
	_, err := b.PayUC.CreateRefill(ctx, tgID, amount, region)
	switch {
	case err == nil:
		return nil, nil
	case errors.Is(err, domain.ErrUnsupportedRegion):
		r := b.plain("refill_unsupported")
		return &r, nil
	case errors.Is(err, domain.ErrInvalidArgument):
		r := b.plain("refill_amount_invalid")
		return &r, nil
	default:
		b.log.Error().Err(err).Int64("tg_id", tgID).Int64("amount", amount).Msg("refill failed")
		r := b.plain("refill_failed")
		return &r, nil
	}
}

// HandleCardPaid acknowledges the customer's "paid" tap and returns the
// payment an operator must confirm.
func (b *BotFacade) HandleCardPaid(ctx context.Context, tgID int64, data string) (*model.Payment, Reply, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(data, usecase.CardPaidPrefix), 10, 64)
	if err != nil {
		return nil, Reply{}, fmt.Errorf("%w: card control %q", domain.ErrInvalidArgument, data)
	}
	p, err := b.PayUC.Get(ctx, id)
	if err != nil {
		return nil, Reply{}, err
	}
	if p.User != tgID || p.Platform != model.PlatformCard {
		return nil, Reply{}, domain.ErrNotFound
	}
	return p, b.plain("refill_card_notice"), nil
}

// HandleConfirm settles a card payment on an operator's command.
func (b *BotFacade) HandleConfirm(ctx context.Context, arg string) (string, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil {
		return "usage: /confirm <payment id>", nil
	}
	s, err := b.SettlementUC.ConfirmManual(ctx, id)
	if err != nil {
		return fmt.Sprintf("payment %d not confirmed: %v", id, err), nil
	}
	return fmt.Sprintf("payment %d confirmed, credited %d", id, s.Credited), nil
}

func (b *BotFacade) HandleHelp() Reply {
	return b.plain("help")
}

func (b *BotFacade) plain(key string) Reply {
	return Reply{Text: usecase.ProtectMarkdown(b.tr.T(key))}
}
