package model

import "time"

type PaymentStatus string

const (
	PaymentStatusWaiting  PaymentStatus = "waiting"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRejected PaymentStatus = "rejected"
)

type PaymentPlatform string

const (
	PlatformAnyPay PaymentPlatform = "anypay" // provider link + signed callback
	PlatformCard   PaymentPlatform = "card"   // manual transfer, confirmed by an admin
)

// PlatformFor returns the refill platform for a region, false when the region
// cannot refill at all.
func PlatformFor(r Region) (PaymentPlatform, bool) {
	switch r {
	case RegionRU:
		return PlatformAnyPay, true
	case RegionUA:
		return PlatformCard, true
	default:
		return "", false
	}
}

// Payment is a balance refill. Price is in the region's currency; the
// credited amount is converted to base currency on settlement.
type Payment struct {
	PaymentID       int64
	User            int64
	Price           Price
	Platform        PaymentPlatform
	Status          PaymentStatus
	TelegramMessage int
	TransactionID   *string
	CreatedAt       time.Time
	PaidAt          *time.Time
}

// Credit is the base-currency amount a settled payment adds to the balance.
func (p *Payment) Credit() int64 { return p.Price.Region.ToBase(p.Price.Amount) }

func (p *Payment) IsPaid() bool { return p.Status == PaymentStatusPaid }
