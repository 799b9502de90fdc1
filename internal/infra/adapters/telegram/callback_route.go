package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-digital-shop/internal/application"
	"telegram-digital-shop/internal/domain/model"
	"telegram-digital-shop/internal/infra/logging"
	"telegram-digital-shop/internal/infra/metrics"
	"telegram-digital-shop/internal/usecase"
)

// cbHandler receives the customer and the message the button belongs to.
type cbHandler func(ctx context.Context, customer int64, target model.RenderTarget, data string) error

type prefixCB struct {
	Prefix string
	Fn     cbHandler
}

// Exact-match callbacks
func (r *RealTelegramBotAdapter) cbRoutes() map[string]cbHandler {
	return map[string]cbHandler{
		usecase.MenuData:    r.menuCBRoute,
		usecase.ShopData:    r.shopCBRoute,
		usecase.BalanceData: r.balanceCBRoute,
	}
}

// Prefix-match callbacks
func (r *RealTelegramBotAdapter) cbPrefixRoutes() []prefixCB {
	return []prefixCB{
		{Prefix: application.ItemPrefix, Fn: r.itemCBRoute},
		{Prefix: "MOVE#", Fn: r.controlCBRoute},
		{Prefix: "SELL#", Fn: r.controlCBRoute},
		{Prefix: "CANCEL#", Fn: r.controlCBRoute},
		{Prefix: usecase.RefillPrefix, Fn: r.refillCBRoute},
		{Prefix: usecase.CardPaidPrefix, Fn: r.cardPaidCBRoute},
	}
}

func (r *RealTelegramBotAdapter) handleQuery(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	defer r.answer(query.ID)

	target := model.RenderTarget{ChatID: query.From.ID}
	if query.Message != nil && query.Message.Chat != nil {
		target = model.RenderTarget{ChatID: query.Message.Chat.ID, MessageID: query.Message.MessageID}
	}
	data := strings.TrimSpace(query.Data)

	if fn, ok := r.cbRoutes()[data]; ok {
		return r.handled(ctx, target.ChatID, fn(ctx, query.From.ID, target, data))
	}
	for _, pr := range r.cbPrefixRoutes() {
		if strings.HasPrefix(data, pr.Prefix) {
			return r.handled(ctx, target.ChatID, pr.Fn(ctx, query.From.ID, target, data))
		}
	}
	logging.With(ctx, r.log).Debug().Str("data", data).Msg("unknown callback data")
	return nil
}

// show edits the button's message, or posts a new one when there is none.
func (r *RealTelegramBotAdapter) show(ctx context.Context, target model.RenderTarget, rep application.Reply) error {
	if target.MessageID == 0 {
		return r.reply(ctx, target.ChatID, rep)
	}
	return r.renderer.Edit(ctx, target, rep.Text, rep.Rows)
}

func (r *RealTelegramBotAdapter) menuCBRoute(ctx context.Context, _ int64, target model.RenderTarget, _ string) error {
	return r.show(ctx, target, r.facade.HandleMenu())
}

func (r *RealTelegramBotAdapter) shopCBRoute(ctx context.Context, customer int64, target model.RenderTarget, _ string) error {
	rep, err := r.facade.HandleShop(ctx, customer)
	if err != nil {
		return err
	}
	return r.show(ctx, target, rep)
}

func (r *RealTelegramBotAdapter) balanceCBRoute(ctx context.Context, customer int64, target model.RenderTarget, _ string) error {
	rep, err := r.facade.HandleBalance(ctx, customer)
	if err != nil {
		return err
	}
	return r.show(ctx, target, rep)
}

// itemCBRoute enters the item's scenario in place of the catalog message.
func (r *RealTelegramBotAdapter) itemCBRoute(ctx context.Context, customer int64, target model.RenderTarget, data string) error {
	rep, err := r.facade.HandleBuy(ctx, customer, strings.TrimPrefix(data, application.ItemPrefix), target)
	if err != nil {
		return err
	}
	if rep != nil {
		return r.show(ctx, target, *rep)
	}
	metrics.IncSellEvent("enter")
	return nil
}

func (r *RealTelegramBotAdapter) controlCBRoute(ctx context.Context, customer int64, _ model.RenderTarget, data string) error {
	if err := r.facade.SellUC.Control(ctx, customer, data); err != nil {
		return err
	}
	metrics.IncSellEvent(strings.ToLower(data[:strings.IndexByte(data, '#')]))
	return nil
}

func (r *RealTelegramBotAdapter) refillCBRoute(ctx context.Context, customer int64, target model.RenderTarget, data string) error {
	rep, err := r.facade.HandleRefillControl(ctx, customer, data)
	if err != nil {
		return err
	}
	if rep != nil {
		return r.reply(ctx, target.ChatID, *rep)
	}
	return nil
}

// cardPaidCBRoute thanks the customer and asks the operators to confirm.
func (r *RealTelegramBotAdapter) cardPaidCBRoute(ctx context.Context, customer int64, target model.RenderTarget, data string) error {
	p, rep, err := r.facade.HandleCardPaid(ctx, customer, data)
	if err != nil {
		return err
	}
	if err := r.reply(ctx, target.ChatID, rep); err != nil {
		return err
	}
	note := fmt.Sprintf("card payment %d: %d %s from %d\n/confirm %d",
		p.PaymentID, p.Price.Amount, p.Price.Region.CurrencySign(), p.User, p.PaymentID)
	for id := range r.adminIDsMap {
		if err := r.renderer.Alert(ctx, id, note); err != nil {
			logging.With(ctx, r.log).Warn().Err(err).Int64("admin_id", id).Msg("failed to notify operator")
		}
	}
	return nil
}
