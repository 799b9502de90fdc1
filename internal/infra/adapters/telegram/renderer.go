package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-digital-shop/internal/domain/model"
	"telegram-digital-shop/internal/domain/ports/adapter"
)

var _ adapter.Renderer = (*Renderer)(nil)

// BotAPI is the part of *tgbotapi.BotAPI the adapter uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Renderer posts MarkdownV2 messages with inline keyboards.
type Renderer struct {
	api BotAPI
}

func NewRenderer(api BotAPI) *Renderer {
	return &Renderer{api: api}
}

func (r *Renderer) Edit(ctx context.Context, target model.RenderTarget, text string, rows [][]adapter.InlineButton) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewEditMessageText(target.ChatID, target.MessageID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	kb := keyboard(rows)
	msg.ReplyMarkup = &kb

	_, err := r.api.Request(msg)
	if isNotModified(err) {
		return nil
	}
	return err
}

func (r *Renderer) Send(ctx context.Context, chatID int64, text string, rows [][]adapter.InlineButton) (model.RenderTarget, error) {
	if err := ctx.Err(); err != nil {
		return model.RenderTarget{}, err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if len(rows) > 0 {
		msg.ReplyMarkup = keyboard(rows)
	}

	sent, err := r.api.Send(msg)
	if err != nil {
		return model.RenderTarget{}, err
	}
	target := model.RenderTarget{ChatID: chatID, MessageID: sent.MessageID}
	if sent.Chat != nil {
		target.ChatID = sent.Chat.ID
	}
	return target, nil
}

// Alert sends plain text, no parse mode.
func (r *Renderer) Alert(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := r.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// keyboard lays out rows; a button opens its URL when set, otherwise it
// sends its data, falling back to the label.
func keyboard(rows [][]adapter.InlineButton) tgbotapi.InlineKeyboardMarkup {
	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			label := strings.TrimSpace(btn.Text)
			if label == "" {
				label = "•"
			}
			switch {
			case btn.URL != "":
				r = append(r, tgbotapi.NewInlineKeyboardButtonURL(label, btn.URL))
			case btn.Data != "":
				r = append(r, tgbotapi.NewInlineKeyboardButtonData(label, btn.Data))
			default:
				r = append(r, tgbotapi.NewInlineKeyboardButtonData(label, label))
			}
		}
		kbRows = append(kbRows, r)
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: kbRows}
}

func isNotModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}
