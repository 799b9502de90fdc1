package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-digital-shop/internal/domain/model"
	"telegram-digital-shop/internal/infra/metrics"
)

type commandHandler func(ctx context.Context, message *tgbotapi.Message) error

// commandRoutes defines all available bot commands and their handlers.
func (r *RealTelegramBotAdapter) commandRoutes() map[string]commandHandler {
	return map[string]commandHandler{
		"start":   r.handleStartCommand,
		"shop":    r.handleShopCommand,
		"buy":     r.handleBuyCommand,
		"balance": r.handleBalanceCommand,
		"refill":  r.handleRefillCommand,
		"help":    r.handleHelpCommand,

		"confirm": r.adminOnly(r.handleConfirmCommand),
	}
}

func (r *RealTelegramBotAdapter) adminOnly(next commandHandler) commandHandler {
	return func(ctx context.Context, message *tgbotapi.Message) error {
		if !r.isAdmin(message.From.ID) {
			metrics.IncAdminRequest("/"+message.Command(), "unauthorized")
			return r.reply(ctx, message.Chat.ID, r.facade.HandleHelp())
		}
		metrics.IncAdminRequest("/"+message.Command(), "authorized")
		return next(ctx, message)
	}
}

func (r *RealTelegramBotAdapter) handleStartCommand(ctx context.Context, message *tgbotapi.Message) error {
	rep, created, err := r.facade.HandleStart(ctx, message.From.ID, message.From.UserName, message.From.LanguageCode)
	if err != nil {
		return err
	}
	if created {
		metrics.IncUsersRegistered()
	}
	return r.reply(ctx, message.Chat.ID, rep)
}

func (r *RealTelegramBotAdapter) handleShopCommand(ctx context.Context, message *tgbotapi.Message) error {
	rep, err := r.facade.HandleShop(ctx, message.From.ID)
	if err != nil {
		return err
	}
	return r.reply(ctx, message.Chat.ID, rep)
}

// handleBuyCommand posts the first act as a new message.
func (r *RealTelegramBotAdapter) handleBuyCommand(ctx context.Context, message *tgbotapi.Message) error {
	target := model.RenderTarget{ChatID: message.Chat.ID}
	rep, err := r.facade.HandleBuy(ctx, message.From.ID, message.CommandArguments(), target)
	if err != nil {
		return err
	}
	if rep != nil {
		return r.reply(ctx, message.Chat.ID, *rep)
	}
	metrics.IncSellEvent("enter")
	return nil
}

func (r *RealTelegramBotAdapter) handleBalanceCommand(ctx context.Context, message *tgbotapi.Message) error {
	rep, err := r.facade.HandleBalance(ctx, message.From.ID)
	if err != nil {
		return err
	}
	return r.reply(ctx, message.Chat.ID, rep)
}

func (r *RealTelegramBotAdapter) handleRefillCommand(ctx context.Context, message *tgbotapi.Message) error {
	rep, err := r.facade.HandleRefillCommand(ctx, message.From.ID, message.CommandArguments())
	if err != nil {
		return err
	}
	if rep != nil {
		return r.reply(ctx, message.Chat.ID, *rep)
	}
	return nil
}

func (r *RealTelegramBotAdapter) handleHelpCommand(ctx context.Context, message *tgbotapi.Message) error {
	return r.reply(ctx, message.Chat.ID, r.facade.HandleHelp())
}

// handleConfirmCommand settles a card payment: /confirm <payment id>.
func (r *RealTelegramBotAdapter) handleConfirmCommand(ctx context.Context, message *tgbotapi.Message) error {
	text, err := r.facade.HandleConfirm(ctx, strings.TrimSpace(message.CommandArguments()))
	if err != nil {
		return err
	}
	return r.renderer.Alert(ctx, message.Chat.ID, text)
}
