package model

import (
	"github.com/shopspring/decimal"

	"telegram-digital-shop/internal/domain"
)

// Item is the catalog view the sell process needs. Price is in base currency.
type Item struct {
	ID       string
	Title    string
	Scenario string
	Price    int64
	Discount int // percent, 0..100
	Hidden   bool
}

func NewItem(id, title, scenario string, price int64, discount int) (*Item, error) {
	if id == "" || title == "" || scenario == "" {
		return nil, domain.ErrInvalidArgument
	}
	if price < 1 || discount < 0 || discount > 100 {
		return nil, domain.ErrInvalidArgument
	}
	return &Item{ID: id, Title: title, Scenario: scenario, Price: price, Discount: discount}, nil
}

// PriceIn is the undiscounted price converted into the region's currency.
func (i *Item) PriceIn(r Region) int64 {
	return r.FromBase(i.Price)
}

// RealPriceIn is ceil(ceil(price / course) * (100 - discount) / 100).
func (i *Item) RealPriceIn(r Region) int64 {
	return applyDiscount(i.PriceIn(r), i.Discount)
}

// RealPrice is the discounted price in base currency; this is what gets debited.
func (i *Item) RealPrice() int64 {
	return applyDiscount(i.Price, i.Discount)
}

func applyDiscount(amount int64, discount int) int64 {
	if discount <= 0 {
		return amount
	}
	if discount > 100 {
		discount = 100
	}
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(int64(100 - discount))).
		Div(decimal.NewFromInt(100)).
		Ceil().
		IntPart()
}
