package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Region is the currency zone a customer pays in. Balances are kept in the
// base currency (RU); every other region converts through its course.
type Region string

const (
	RegionRU Region = "ru"
	RegionUA Region = "ua"
	RegionBY Region = "by"
	RegionEU Region = "eu"
)

var courses = map[Region]decimal.Decimal{
	RegionRU: decimal.NewFromInt(1),
	RegionUA: decimal.RequireFromString("2.22"),
	RegionBY: decimal.RequireFromString("32.35"),
	RegionEU: decimal.RequireFromString("89.17"),
}

var currencySigns = map[Region]string{
	RegionRU: "руб",
	RegionUA: "грн",
	RegionBY: "руб",
	RegionEU: "евро",
}

// Telegram language codes that name a region differently.
var languageRegions = map[string]Region{
	"uk": RegionUA,
	"be": RegionBY,
}

// ParseRegion maps a Telegram language code to a region, falling back to RU.
func ParseRegion(code string) Region {
	code = strings.ToLower(strings.TrimSpace(code))
	if r, ok := languageRegions[code]; ok {
		return r
	}
	r := Region(code)
	if _, ok := courses[r]; ok {
		return r
	}
	return RegionRU
}

func (r Region) Valid() bool {
	_, ok := courses[r]
	return ok
}

// Course is how many base units one unit of the region's currency is worth.
func (r Region) Course() decimal.Decimal {
	if c, ok := courses[r]; ok {
		return c
	}
	return courses[RegionRU]
}

func (r Region) CurrencySign() string {
	if s, ok := currencySigns[r]; ok {
		return s
	}
	return currencySigns[RegionRU]
}

// FromBase converts a base-currency amount into the region's currency, rounding up.
func (r Region) FromBase(amount int64) int64 {
	return decimal.NewFromInt(amount).Div(r.Course()).Ceil().IntPart()
}

// ToBase converts an amount in the region's currency into base currency, rounding up.
func (r Region) ToBase(amount int64) int64 {
	return decimal.NewFromInt(amount).Mul(r.Course()).Ceil().IntPart()
}

// Price is an amount tagged with the region it is denominated in.
type Price struct {
	Amount int64  `json:"amount"`
	Region Region `json:"region"`
}
