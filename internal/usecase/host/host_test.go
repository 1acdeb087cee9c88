package usecase_host

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/humanbelnik/gamenight/internal/apperr"
	"github.com/humanbelnik/gamenight/internal/model"
	"github.com/humanbelnik/gamenight/internal/service/validation"
	repo_mocks "github.com/humanbelnik/gamenight/mocks/repository"
	"github.com/ozontech/allure-go/pkg/framework/provider"
	"github.com/ozontech/allure-go/pkg/framework/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"google.golang.org/grpc/codes"
)

const uid = "uid-host"

var now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type resources struct {
	accounts *repo_mocks.AccountRepository
}

func initResources(t provider.T) *resources {
	return &resources{accounts: repo_mocks.NewAccountRepository(t)}
}

func past() *time.Time {
	t := now.Add(-time.Hour)
	return &t
}

type UsecaseHostSuite struct {
	suite.Suite
}

func (s *UsecaseHostSuite) TestEnsureHost(t provider.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		uid           string
		autoProvision bool
		setupMocks    func(r *resources)
		expectError   bool
		expectedError error
	}{
		{
			name:          "invited account",
			uid:           uid,
			autoProvision: false,
			setupMocks: func(r *resources) {
				r.accounts.On("GetUser", mock.Anything, uid).Return(&model.User{UID: uid, Invited: true}, nil).Once()
			},
		},
		{
			name:          "expired and used up invites still grant",
			uid:           uid,
			autoProvision: false,
			setupMocks: func(r *resources) {
				r.accounts.On("GetUser", mock.Anything, uid).Return(&model.User{
					UID:     uid,
					Invited: true,
					Invite:  &model.Invite{Code: "abc", MaxUses: 1, UsedCount: 1, ExpiresAt: past()},
				}, nil).Once()
			},
		},
		{
			name:          "revoked invite withdraws grant",
			uid:           uid,
			autoProvision: true,
			setupMocks: func(r *resources) {
				r.accounts.On("GetUser", mock.Anything, uid).Return(&model.User{
					UID:     uid,
					Invited: true,
					Invite:  &model.Invite{Code: "abc", Revoked: true},
				}, nil).Once()
			},
			expectError:   true,
			expectedError: validation.ErrInviteRevoked,
		},
		{
			name:          "known account without grant",
			uid:           uid,
			autoProvision: true,
			setupMocks: func(r *resources) {
				r.accounts.On("GetUser", mock.Anything, uid).Return(&model.User{UID: uid}, nil).Once()
			},
			expectError:   true,
			expectedError: ErrNotInvited,
		},
		{
			name:          "new account is provisioned",
			uid:           uid,
			autoProvision: true,
			setupMocks: func(r *resources) {
				r.accounts.On("GetUser", mock.Anything, uid).Return(nil, nil).Once()
				r.accounts.On("ProvisionUser", mock.Anything, mock.MatchedBy(func(u model.User) bool {
					return u.UID == uid && u.Invited
				})).Return(nil).Once()
			},
		},
		{
			name:          "new account rejected without auto provisioning",
			uid:           uid,
			autoProvision: false,
			setupMocks: func(r *resources) {
				r.accounts.On("GetUser", mock.Anything, uid).Return(nil, nil).Once()
			},
			expectError:   true,
			expectedError: ErrNotInvited,
		},
		{
			name:          "provisioning race rereads the winner",
			uid:           uid,
			autoProvision: true,
			setupMocks: func(r *resources) {
				r.accounts.On("GetUser", mock.Anything, uid).Return(nil, nil).Once()
				r.accounts.On("ProvisionUser", mock.Anything, mock.Anything).Return(model.ErrAlreadyExists).Once()
				r.accounts.On("GetUser", mock.Anything, uid).Return(&model.User{UID: uid, Invited: true}, nil).Once()
			},
		},
		{
			name:          "anonymous caller",
			uid:           "",
			autoProvision: true,
			setupMocks:    func(r *resources) {},
			expectError:   true,
			expectedError: ErrUnauthenticated,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t provider.T) {
			r := initResources(t)
			tc.setupMocks(r)
			uc := New(r.accounts, tc.autoProvision)
			uc.now = func() time.Time { return now }

			err := uc.EnsureHost(context.Background(), tc.uid)

			if tc.expectError {
				assert.ErrorIs(t, err, tc.expectedError)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func (s *UsecaseHostSuite) TestEnsureHostStoreFailure(t provider.T) {
	t.Parallel()
	r := initResources(t)
	r.accounts.On("GetUser", mock.Anything, uid).Return(nil, errors.New("timeout")).Once()

	err := New(r.accounts, true).EnsureHost(context.Background(), uid)

	assert.Equal(t, codes.Internal, apperr.KindOf(err))
}

func TestUsecaseHostSuite(t *testing.T) {
	suite.RunSuite(t, new(UsecaseHostSuite))
}
