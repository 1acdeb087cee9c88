package usecase_preference

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/humanbelnik/gamenight/internal/apperr"
	"github.com/humanbelnik/gamenight/internal/model"
	"github.com/humanbelnik/gamenight/internal/service/preference_view"
	"github.com/humanbelnik/gamenight/internal/service/validation"
)

var (
	ErrUnauthenticated     = apperr.Unauthenticated("sign in required")
	ErrSessionNotFound     = apperr.NotFound("session not found")
	ErrParticipantNotFound = apperr.NotFound("participant not found")
	ErrNotMember           = apperr.PermissionDenied("only session members can do this")
	ErrLocalUserHostOnly   = apperr.PermissionDenied("only the host can submit for a local player")
	ErrSeatHeldByOther     = apperr.PermissionDenied("that seat belongs to someone else")
	ErrPicksHidden         = apperr.PermissionDenied("other participants' picks are hidden in this session")
	ErrInvalidLocalUser    = apperr.InvalidArgument("invalid local player")
	ErrSessionClosed       = apperr.FailedPrecondition("session is closed")
	ErrSessionExpired      = apperr.FailedPrecondition("session has expired")
)

var localUserIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

type Repository interface {
	Load(ctx context.Context, sessionID string) (*model.Aggregate, error)
	Update(ctx context.Context, sessionID string, fn func(agg *model.Aggregate) error) error
}

type Usecase struct {
	repo Repository
	now  func() time.Time
}

func New(repo Repository, now func() time.Time) *Usecase {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Usecase{
		repo: repo,
		now:  now,
	}
}

type SubmitInput struct {
	Preferences  []model.PreferenceEntry
	ForLocalUser *model.LocalUser
}

// Submit normalizes the entries and writes both projections of one submission
// in the same transaction: the tracking row keyed by identity and the seat row
// keyed by participant. It returns the number of entries kept.
func (u *Usecase) Submit(ctx context.Context, uid string, sessionID string, in SubmitInput) (int, error) {
	if uid == "" {
		return 0, ErrUnauthenticated
	}

	var count int
	err := u.repo.Update(ctx, sessionID, func(agg *model.Aggregate) error {
		now := u.now()
		switch agg.Session.Status(now) {
		case model.StatusClosed:
			return ErrSessionClosed
		case model.StatusExpired:
			return ErrSessionExpired
		}
		member, ok := agg.Members[uid]
		if !ok {
			return ErrNotMember
		}

		entries := validation.NormalizePreferences(in.Preferences, agg.HasGame)

		target, err := resolveTarget(agg, member, in.ForLocalUser)
		if err != nil {
			return err
		}

		agg.RequireOpen()
		agg.RecordSubmission(model.GuestPreference{
			Key:           model.GuestPreferenceKey(uid, target.localUserID),
			UID:           uid,
			ParticipantID: target.participantID,
			DisplayName:   target.displayName,
			LocalUserID:   target.localUserIDPtr(),
			Preferences:   entries,
			SubmittedAt:   now,
		})
		agg.ShareSlotPreferences(model.SharedPreference{
			ParticipantID: target.participantID,
			DisplayName:   target.displayName,
			Preferences:   entries,
			SharedAt:      now,
			SharedByUID:   uid,
		})
		if member.Role == model.RoleHost && target.localUserID == "" {
			agg.MarkHostSynced(now)
		}

		count = len(entries)
		return nil
	})
	if err != nil {
		return 0, translate(err)
	}
	return count, nil
}

type submitTarget struct {
	participantID string
	displayName   string
	localUserID   string
}

func (t submitTarget) localUserIDPtr() *string {
	if t.localUserID == "" {
		return nil
	}
	id := t.localUserID
	return &id
}

// resolveTarget decides whose seat a submission lands on. A local player
// either takes a named seat nobody else holds or gets a seat row of their own.
func resolveTarget(agg *model.Aggregate, member *model.Member, local *model.LocalUser) (submitTarget, error) {
	if local == nil {
		return submitTarget{participantID: member.ParticipantID, displayName: member.DisplayName}, nil
	}
	if member.Role != model.RoleHost {
		return submitTarget{}, ErrLocalUserHostOnly
	}
	if !localUserIDPattern.MatchString(local.ID) {
		return submitTarget{}, ErrInvalidLocalUser
	}
	name, err := validation.NormalizeDisplayName(local.DisplayName)
	if err != nil {
		return submitTarget{}, err
	}

	target := submitTarget{
		participantID: model.LocalParticipantID(local.ID),
		displayName:   name,
		localUserID:   local.ID,
	}
	if local.ParticipantID == "" {
		return target, nil
	}

	seat, ok := agg.Participants[local.ParticipantID]
	if !ok {
		return submitTarget{}, ErrParticipantNotFound
	}
	if seat.IsHostSeat() || seat.SlotType != model.SlotNamed {
		return submitTarget{}, ErrSeatHeldByOther
	}
	if seat.Claimed && (seat.ClaimedByUID == nil || *seat.ClaimedByUID != member.UID) {
		return submitTarget{}, ErrSeatHeldByOther
	}
	target.participantID = seat.ID
	return target, nil
}

// ReadyParticipants returns everyone else's visible picks. The host can always
// read it; guests only when the session shares picks in detail.
func (u *Usecase) ReadyParticipants(ctx context.Context, uid string, sessionID string) ([]preference_view.Participant, error) {
	if uid == "" {
		return nil, ErrUnauthenticated
	}
	agg, err := u.repo.Load(ctx, sessionID)
	if err != nil {
		return nil, translate(err)
	}
	member, ok := agg.Members[uid]
	if !ok {
		return nil, ErrNotMember
	}
	if agg.Session.Status(u.now()) == model.StatusExpired {
		return nil, ErrSessionExpired
	}
	if member.Role != model.RoleHost && !agg.Session.PicksVisibleToGuests() {
		return nil, ErrPicksHidden
	}
	return preference_view.ReadyParticipants(agg, uid), nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return ErrSessionNotFound
	case errors.Is(err, model.ErrSessionNotOpen):
		return ErrSessionClosed
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Internal(err)
}
