package usecase

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-digital-shop/internal/domain"
	"telegram-digital-shop/internal/domain/model"
	"telegram-digital-shop/internal/domain/ports/repository"
	"telegram-digital-shop/internal/infra/logging"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

// UserUseCase exposes customer operations used by the bot flows.
type UserUseCase interface {
	// RegisterOrFetch returns the customer, creating it on first contact with
	// a region derived from the Telegram language code. Blocked customers are
	// returned together with domain.ErrUserBlocked.
	RegisterOrFetch(ctx context.Context, tgID int64, username, languageCode string) (*model.User, bool, error)
	GetByTelegramID(ctx context.Context, tgID int64) (*model.User, error)
	// Balance is the customer's balance converted into their region.
	Balance(ctx context.Context, tgID int64) (model.Price, error)
}

type userUC struct {
	users repository.UserRepository
	tm    repository.TransactionManager
	log   *zerolog.Logger
}

func NewUserUseCase(users repository.UserRepository, tm repository.TransactionManager, logger *zerolog.Logger) *userUC {
	return &userUC{
		users: users,
		tm:    tm,
		log:   logger,
	}
}

func (u *userUC) RegisterOrFetch(ctx context.Context, tgID int64, username, languageCode string) (*model.User, bool, error) {
	defer logging.TraceDuration(u.log, "UserUC.RegisterOrFetch")()

	var user *model.User
	created := false
	txOpts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		usr, err := u.users.FindByTelegramID(ctx, tx, tgID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		if usr != nil {
			if username != "" && usr.Username != username {
				usr.Username = username
				if err := u.users.Save(ctx, tx, usr); err != nil {
					u.log.Error().Err(err).Int64("tg_id", tgID).Msg("failed to update user")
					return err
				}
			}
			if err := u.users.Touch(ctx, tx, tgID); err != nil {
				return err
			}
			user = usr
			return nil
		}

		nu, err := model.NewUser(tgID, username, model.ParseRegion(languageCode))
		if err != nil {
			return err
		}
		if err := u.users.Save(ctx, tx, nu); err != nil {
			return err
		}
		user = nu
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		u.log.Info().Int64("tg_id", tgID).Str("region", string(user.Region)).Msg("user registered")
	}
	if user.IsBlocked() {
		return user, created, domain.ErrUserBlocked
	}
	return user, created, nil
}

func (u *userUC) GetByTelegramID(ctx context.Context, tgID int64) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.GetByTelegramID")()
	return u.users.FindByTelegramID(ctx, repository.NoTX, tgID)
}

func (u *userUC) Balance(ctx context.Context, tgID int64) (model.Price, error) {
	user, err := u.users.FindByTelegramID(ctx, repository.NoTX, tgID)
	if err != nil {
		return model.Price{}, err
	}
	return model.Price{Amount: user.BalanceIn(user.Region), Region: user.Region}, nil
}
