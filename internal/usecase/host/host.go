package usecase_host

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/humanbelnik/gamenight/internal/apperr"
	"github.com/humanbelnik/gamenight/internal/model"
	"github.com/humanbelnik/gamenight/internal/service/validation"
)

var (
	ErrUnauthenticated = apperr.Unauthenticated("sign in required")
	ErrNotInvited      = apperr.PermissionDenied("hosting has not been granted to this account")
)

//go:generate mockery --name=AccountRepository --output=../../../mocks/repository --filename=account.go
type AccountRepository interface {
	// GetUser returns nil and no error for an identity never seen before.
	GetUser(ctx context.Context, uid string) (*model.User, error)
	// ProvisionUser creates the record if absent, model.ErrAlreadyExists otherwise.
	ProvisionUser(ctx context.Context, user model.User) error
}

type Usecase struct {
	accounts      AccountRepository
	autoProvision bool
	now           func() time.Time
	logger        *slog.Logger
}

func New(accounts AccountRepository, autoProvision bool) *Usecase {
	return &Usecase{
		accounts:      accounts,
		autoProvision: autoProvision,
		now:           func() time.Time { return time.Now().UTC() },
		logger:        slog.Default(),
	}
}

// EnsureHost lets through invited accounts whose grant was not revoked.
// A never-seen identity is provisioned as invited when auto provisioning is on
// and rejected otherwise.
func (u *Usecase) EnsureHost(ctx context.Context, uid string) error {
	if uid == "" {
		return ErrUnauthenticated
	}

	user, err := u.accounts.GetUser(ctx, uid)
	if err != nil {
		return apperr.Internal(err)
	}
	if user == nil {
		return u.provision(ctx, uid)
	}
	return u.check(*user)
}

func (u *Usecase) check(user model.User) error {
	if !user.Invited {
		return ErrNotInvited
	}
	// Expiry and exhaustion only gate redeeming a grant, revocation also
	// withdraws it from accounts that already hold it.
	if user.Invite != nil {
		if err := validation.ValidateInvite(*user.Invite, u.now()); errors.Is(err, validation.ErrInviteRevoked) {
			return err
		}
	}
	return nil
}

func (u *Usecase) provision(ctx context.Context, uid string) error {
	if !u.autoProvision {
		return ErrNotInvited
	}

	err := u.accounts.ProvisionUser(ctx, model.User{UID: uid, Invited: true, CreatedAt: u.now()})
	if errors.Is(err, model.ErrAlreadyExists) {
		user, err := u.accounts.GetUser(ctx, uid)
		if err != nil {
			return apperr.Internal(err)
		}
		if user == nil {
			return ErrNotInvited
		}
		return u.check(*user)
	}
	if err != nil {
		return apperr.Internal(err)
	}

	u.logger.Info("provisioned host account", slog.String("uid", uid))
	return nil
}
