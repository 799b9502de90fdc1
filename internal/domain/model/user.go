package model

import (
	"time"

	"github.com/shopspring/decimal"

	"telegram-digital-shop/internal/domain"
)

type UserRole string

const (
	RoleClient  UserRole = "client"
	RoleManager UserRole = "manager"
	RoleAdmin   UserRole = "admin"
)

type UserStatus string

const (
	UserStatusNormal  UserStatus = "normal"
	UserStatusBlocked UserStatus = "blocked"
)

// User is a storefront customer. Balance is in base currency.
type User struct {
	TelegramID int64
	Username   string
	Role       UserRole
	Status     UserStatus
	Region     Region
	Balance    int64
	Refills    int
	JoinedAt   time.Time
	LastAction time.Time
}

func NewUser(tgID int64, username string, region Region) (*User, error) {
	if tgID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if username == "" {
		username = "unknown"
	}
	if !region.Valid() {
		region = RegionRU
	}
	now := time.Now()
	return &User{
		TelegramID: tgID,
		Username:   username,
		Role:       RoleClient,
		Status:     UserStatusNormal,
		Region:     region,
		JoinedAt:   now,
		LastAction: now,
	}, nil
}

func (u *User) IsZero() bool    { return u == nil || u.TelegramID == 0 }
func (u *User) IsBlocked() bool { return u != nil && u.Status == UserStatusBlocked }

// BalanceIn is the balance converted into the user's region, rounded down.
func (u *User) BalanceIn(r Region) int64 {
	return decimal.NewFromInt(u.Balance).Div(r.Course()).Floor().IntPart()
}
