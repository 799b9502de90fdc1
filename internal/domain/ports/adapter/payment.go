package adapter

import (
	"telegram-digital-shop/internal/domain/model"
)

// Callback is an inbound provider notification as key/value pairs.
type Callback struct {
	PayID         string
	Amount        string
	Status        string
	TransactionID string
	Sign          string
	Fields        map[string]string
}

// PaymentProvider is the hex port for the refill provider.
type PaymentProvider interface {
	Name() string
	// PaymentLink builds the signed checkout URL for a payment.
	PaymentLink(p *model.Payment) string
	// VerifyCallback recomputes the callback signature and compares it.
	VerifyCallback(cb Callback) bool
}
