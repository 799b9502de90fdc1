// File: internal/domain/ports/adapter/telegram.go
package adapter

import (
	"context"

	"telegram-digital-shop/internal/domain/model"
)

type InlineButton struct {
	Text string
	Data string
	URL  string
}

// Renderer is the render boundary. Text arrives fully substituted and escaped
// for MarkdownV2; the adapter only lays out the buttons.
type Renderer interface {
	// Edit replaces the text and buttons of a message in place.
	Edit(ctx context.Context, target model.RenderTarget, text string, rows [][]InlineButton) error
	// Send posts a new message and returns where it landed.
	Send(ctx context.Context, chatID int64, text string, rows [][]InlineButton) (model.RenderTarget, error)
	// Alert shows a short plain-text notice to the customer.
	Alert(ctx context.Context, chatID int64, text string) error
}
