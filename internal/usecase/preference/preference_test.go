package usecase_preference

import (
	"context"
	"testing"
	"time"

	infra_memory_session "github.com/humanbelnik/gamenight/internal/infra/memory/session"
	"github.com/humanbelnik/gamenight/internal/model"
	"github.com/humanbelnik/gamenight/internal/service/preference_view"
	usecase_host "github.com/humanbelnik/gamenight/internal/usecase/host"
	usecase_session "github.com/humanbelnik/gamenight/internal/usecase/session"
	"github.com/ozontech/allure-go/pkg/framework/provider"
	"github.com/ozontech/allure-go/pkg/framework/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	hostUID  = "uid-host"
	guestUID = "uid-guest"
	bobUID   = "uid-bob"
)

var baseTime = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type resources struct {
	store    *infra_memory_session.Store
	sessions *usecase_session.Usecase
	usecase  *Usecase
}

func initResources() *resources {
	store := infra_memory_session.New()
	now := func() time.Time { return baseTime }
	return &resources{
		store:    store,
		sessions: usecase_session.New(store, usecase_host.New(store, true), nil, usecase_session.WithClock(now)),
		usecase:  New(store, now),
	}
}

func boolPtr(v bool) *bool { return &v }
func intPtr(v int) *int    { return &v }

// seedSession creates a four-seat session with one named seat (Bob, with
// pre-shared picks) and returns its id. Carol joins an open seat.
func (r *resources) seedSession(t provider.T, shareMode string, showPicks *bool) string {
	ctx := context.Background()
	res, err := r.sessions.Create(ctx, hostUID, usecase_session.CreateInput{
		Title:                      "Game night",
		ScheduledFor:               baseTime.Add(24 * time.Hour),
		Capacity:                   intPtr(4),
		HostDisplayName:            "Alice",
		ShareMode:                  shareMode,
		ShowOtherParticipantsPicks: showPicks,
		GameIDs:                    []string{"azul", "catan", "brass"},
		Games: []model.SharedGame{
			{ID: "azul", Name: "Azul"},
			{ID: "catan", Name: "Catan"},
			{ID: "brass", Name: "Brass"},
		},
		NamedParticipants: []usecase_session.NamedParticipantInput{
			{DisplayName: "Bob", Preferences: []model.PreferenceEntry{{GameID: "brass", IsTopPick: true}}},
		},
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := r.sessions.Claim(ctx, guestUID, res.SessionID, usecase_session.ClaimInput{DisplayName: "Carol"}); err != nil {
		t.Fatalf("claim: %v", err)
	}
	return res.SessionID
}

type UsecasePreferenceSuite struct {
	suite.Suite
}

func (s *UsecasePreferenceSuite) TestSubmit(t provider.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		uid           string
		prepare       func(t provider.T, r *resources, id string)
		input         SubmitInput
		expectError   bool
		expectedError error
		expectedCount int
		check         func(t provider.T, agg *model.Aggregate)
	}{
		{
			name: "guest submission lands on both rows",
			uid:  guestUID,
			input: SubmitInput{Preferences: []model.PreferenceEntry{
				{GameID: "azul", IsTopPick: true, IsDisliked: true},
				{GameID: "catan", Rank: intPtr(2)},
				{GameID: "unknown", IsTopPick: true},
				{GameID: "bad id!", IsTopPick: true},
			}},
			expectedCount: 2,
			check: func(t provider.T, agg *model.Aggregate) {
				gp := agg.GuestPreferences[guestUID]
				require.NotNil(t, gp)
				assert.Equal(t, model.OpenParticipantID(1), gp.ParticipantID)
				assert.Equal(t, "Carol", gp.DisplayName)
				assert.Nil(t, gp.LocalUserID)
				require.Len(t, gp.Preferences, 2)
				assert.True(t, gp.Preferences[0].IsDisliked)
				assert.False(t, gp.Preferences[0].IsTopPick)

				sp := agg.SharedPreferences[model.OpenParticipantID(1)]
				require.NotNil(t, sp)
				assert.Equal(t, gp.Preferences, sp.Preferences)
				assert.Equal(t, guestUID, sp.SharedByUID)
				assert.Nil(t, agg.Session.HostPreferencesSyncedAt)
			},
		},
		{
			name:          "host submission marks host synced",
			uid:           hostUID,
			input:         SubmitInput{Preferences: []model.PreferenceEntry{{GameID: "brass", Rank: intPtr(1)}}},
			expectedCount: 1,
			check: func(t provider.T, agg *model.Aggregate) {
				require.NotNil(t, agg.Session.HostPreferencesSyncedAt)
				assert.Contains(t, agg.SharedPreferences, model.HostParticipantID)
				assert.Contains(t, agg.GuestPreferences, hostUID)
			},
		},
		{
			name: "host submits for a local player without a seat",
			uid:  hostUID,
			input: SubmitInput{
				Preferences:  []model.PreferenceEntry{{GameID: "azul", IsTopPick: true}},
				ForLocalUser: &model.LocalUser{ID: "kid1", DisplayName: "Dana"},
			},
			expectedCount: 1,
			check: func(t provider.T, agg *model.Aggregate) {
				gp := agg.GuestPreferences[model.GuestPreferenceKey(hostUID, "kid1")]
				require.NotNil(t, gp)
				require.NotNil(t, gp.LocalUserID)
				assert.Equal(t, "kid1", *gp.LocalUserID)
				assert.Equal(t, model.LocalParticipantID("kid1"), gp.ParticipantID)
				assert.Contains(t, agg.SharedPreferences, model.LocalParticipantID("kid1"))
				assert.Nil(t, agg.Session.HostPreferencesSyncedAt)
			},
		},
		{
			name: "host submits for a local player on a free named seat",
			uid:  hostUID,
			input: SubmitInput{
				Preferences:  []model.PreferenceEntry{{GameID: "catan", IsDisliked: true}},
				ForLocalUser: &model.LocalUser{ID: "bob", DisplayName: "Bob", ParticipantID: model.NamedParticipantID(1)},
			},
			expectedCount: 1,
			check: func(t provider.T, agg *model.Aggregate) {
				sp := agg.SharedPreferences[model.NamedParticipantID(1)]
				require.NotNil(t, sp)
				require.Len(t, sp.Preferences, 1)
				assert.Equal(t, "catan", sp.Preferences[0].GameID)
			},
		},
		{
			name: "local player cannot take a seat held by someone else",
			uid:  hostUID,
			prepare: func(t provider.T, r *resources, id string) {
				_, err := r.sessions.Claim(context.Background(), bobUID, id, usecase_session.ClaimInput{DisplayName: "Bob"})
				require.NoError(t, err)
			},
			input: SubmitInput{
				ForLocalUser: &model.LocalUser{ID: "bob", DisplayName: "Bob", ParticipantID: model.NamedParticipantID(1)},
			},
			expectError:   true,
			expectedError: ErrSeatHeldByOther,
		},
		{
			name: "local player cannot use an open seat",
			uid:  hostUID,
			input: SubmitInput{
				ForLocalUser: &model.LocalUser{ID: "kid", DisplayName: "Dana", ParticipantID: model.OpenParticipantID(2)},
			},
			expectError:   true,
			expectedError: ErrSeatHeldByOther,
		},
		{
			name: "guest cannot submit for a local player",
			uid:  guestUID,
			input: SubmitInput{
				ForLocalUser: &model.LocalUser{ID: "kid", DisplayName: "Dana"},
			},
			expectError:   true,
			expectedError: ErrLocalUserHostOnly,
		},
		{
			name: "malformed local player id",
			uid:  hostUID,
			input: SubmitInput{
				ForLocalUser: &model.LocalUser{ID: "kid one", DisplayName: "Dana"},
			},
			expectError:   true,
			expectedError: ErrInvalidLocalUser,
		},
		{
			name:          "outsider cannot submit",
			uid:           "uid-outsider",
			input:         SubmitInput{},
			expectError:   true,
			expectedError: ErrNotMember,
		},
		{
			name:          "anonymous caller",
			uid:           "",
			input:         SubmitInput{},
			expectError:   true,
			expectedError: ErrUnauthenticated,
		},
		{
			name: "closed session",
			uid:  guestUID,
			prepare: func(t provider.T, r *resources, id string) {
				_, err := r.sessions.Close(context.Background(), hostUID, id, nil)
				require.NoError(t, err)
			},
			input:         SubmitInput{},
			expectError:   true,
			expectedError: ErrSessionClosed,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t provider.T) {
			r := initResources()
			id := r.seedSession(t, "detailed", nil)
			if tc.prepare != nil {
				tc.prepare(t, r, id)
			}

			count, err := r.usecase.Submit(context.Background(), tc.uid, id, tc.input)

			if tc.expectError {
				assert.ErrorIs(t, err, tc.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedCount, count)

			agg, err := r.store.Load(context.Background(), id)
			require.NoError(t, err)
			tc.check(t, agg)
		})
	}
}

func (s *UsecasePreferenceSuite) TestResubmitReplacesEntries(t provider.T) {
	t.Parallel()
	r := initResources()
	ctx := context.Background()
	id := r.seedSession(t, "detailed", nil)

	_, err := r.usecase.Submit(ctx, guestUID, id, SubmitInput{Preferences: []model.PreferenceEntry{{GameID: "azul", IsTopPick: true}}})
	require.NoError(t, err)
	count, err := r.usecase.Submit(ctx, guestUID, id, SubmitInput{})
	require.NoError(t, err)
	assert.Zero(t, count)

	agg, err := r.store.Load(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, agg.GuestPreferences[guestUID].Preferences)
	assert.Empty(t, agg.SharedPreferences[model.OpenParticipantID(1)].Preferences)
}

func (s *UsecasePreferenceSuite) TestReadyParticipantsVisibility(t provider.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		shareMode     string
		showPicks     *bool
		uid           string
		expectError   bool
		expectedError error
	}{
		{
			name:      "guest reads detailed session",
			shareMode: "detailed",
			uid:       guestUID,
		},
		{
			name:          "guest blocked in quick session",
			shareMode:     "quick",
			uid:           guestUID,
			expectError:   true,
			expectedError: ErrPicksHidden,
		},
		{
			name:          "guest blocked when host hides picks",
			shareMode:     "detailed",
			showPicks:     boolPtr(false),
			uid:           guestUID,
			expectError:   true,
			expectedError: ErrPicksHidden,
		},
		{
			name:      "host always reads",
			shareMode: "quick",
			uid:       hostUID,
		},
		{
			name:          "outsider blocked",
			shareMode:     "detailed",
			uid:           "uid-outsider",
			expectError:   true,
			expectedError: ErrNotMember,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t provider.T) {
			r := initResources()
			id := r.seedSession(t, tc.shareMode, tc.showPicks)

			rows, err := r.usecase.ReadyParticipants(context.Background(), tc.uid, id)

			if tc.expectError {
				assert.ErrorIs(t, err, tc.expectedError)
				return
			}
			require.NoError(t, err)
			require.NotEmpty(t, rows)
			assert.Equal(t, model.NamedParticipantID(1), rows[0].ParticipantID)
			assert.Equal(t, preference_view.SourcePreShared, rows[0].Source)
		})
	}
}

func (s *UsecasePreferenceSuite) TestReadyParticipantsFlow(t provider.T) {
	t.Parallel()
	r := initResources()
	ctx := context.Background()
	id := r.seedSession(t, "detailed", nil)

	_, err := r.usecase.Submit(ctx, guestUID, id, SubmitInput{Preferences: []model.PreferenceEntry{{GameID: "azul", Rank: intPtr(1)}}})
	require.NoError(t, err)

	// Bob's seat is still unclaimed, so he is not a member.
	rows, err := r.usecase.ReadyParticipants(ctx, bobUID, id)
	assert.ErrorIs(t, err, ErrNotMember)
	assert.Nil(t, rows)

	// Carol is not ready, so her open seat stays hidden.
	rows, err = r.usecase.ReadyParticipants(ctx, hostUID, id)
	require.NoError(t, err)
	ids := participantIDs(rows)
	assert.Equal(t, []string{model.NamedParticipantID(1)}, ids)

	require.NoError(t, r.sessions.SetReady(ctx, guestUID, id))
	_, err = r.usecase.Submit(ctx, hostUID, id, SubmitInput{Preferences: []model.PreferenceEntry{{GameID: "catan", IsTopPick: true}}})
	require.NoError(t, err)

	rows, err = r.usecase.ReadyParticipants(ctx, guestUID, id)
	require.NoError(t, err)
	ids = participantIDs(rows)
	assert.Equal(t, []string{model.HostParticipantID, model.NamedParticipantID(1)}, ids)
	assert.Equal(t, preference_view.SourceSubmitted, rows[0].Source)
	assert.Equal(t, model.RoleHost, rows[0].Role)

	rows, err = r.usecase.ReadyParticipants(ctx, hostUID, id)
	require.NoError(t, err)
	ids = participantIDs(rows)
	assert.Equal(t, []string{model.OpenParticipantID(1), model.NamedParticipantID(1)}, ids)
	assert.Equal(t, preference_view.SourceSubmitted, rows[0].Source)
}

func (s *UsecasePreferenceSuite) TestUnreadySubmissionsStayHidden(t provider.T) {
	t.Parallel()
	r := initResources()
	ctx := context.Background()
	id := r.seedSession(t, "detailed", nil)

	_, err := r.sessions.Claim(ctx, bobUID, id, usecase_session.ClaimInput{DisplayName: "Bob"})
	require.NoError(t, err)
	_, err = r.usecase.Submit(ctx, bobUID, id, SubmitInput{Preferences: []model.PreferenceEntry{{GameID: "catan", IsDisliked: true}}})
	require.NoError(t, err)
	_, err = r.usecase.Submit(ctx, guestUID, id, SubmitInput{Preferences: []model.PreferenceEntry{{GameID: "azul", IsTopPick: true}}})
	require.NoError(t, err)

	rows, err := r.usecase.ReadyParticipants(ctx, hostUID, id)
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.NoError(t, r.sessions.SetReady(ctx, bobUID, id))
	rows, err = r.usecase.ReadyParticipants(ctx, hostUID, id)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, model.NamedParticipantID(1), rows[0].ParticipantID)
	assert.Equal(t, preference_view.SourceSubmitted, rows[0].Source)
	require.Len(t, rows[0].Preferences, 1)
	assert.Equal(t, "catan", rows[0].Preferences[0].GameID)
}

func participantIDs(rows []preference_view.Participant) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ParticipantID
	}
	return out
}

func TestUsecasePreferenceSuite(t *testing.T) {
	suite.RunSuite(t, new(UsecasePreferenceSuite))
}
