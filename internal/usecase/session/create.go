package usecase_session

import (
	"context"
	"errors"
	"time"

	"github.com/humanbelnik/gamenight/internal/model"
	"github.com/humanbelnik/gamenight/internal/service/validation"
)

type NamedParticipantInput struct {
	DisplayName string
	Preferences []model.PreferenceEntry
}

type CreateInput struct {
	Title                      string
	ScheduledFor               time.Time
	Capacity                   *int
	Filters                    model.Filters
	HostDisplayName            string
	ShareMode                  string
	ShowOtherParticipantsPicks *bool
	GameIDs                    []string
	Games                      []model.SharedGame
	NamedParticipants          []NamedParticipantInput
}

type CreateResult struct {
	SessionID     string
	GamesUploaded int
}

// validated create request, everything normalized
type createPlan struct {
	title     string
	hostName  string
	capacity  int
	shareMode model.ShareMode
	showPicks bool
	gameIDs   []string
	named     []NamedParticipantInput
}

func (u *Usecase) validateCreate(in CreateInput) (createPlan, error) {
	var (
		plan createPlan
		err  error
	)

	if plan.title, err = validation.NormalizeTitle(in.Title); err != nil {
		return plan, err
	}
	if in.ScheduledFor.IsZero() {
		return plan, validation.ErrScheduleRequired
	}
	if plan.capacity, err = validation.Capacity(in.Capacity); err != nil {
		return plan, err
	}
	if err = validation.Filters(in.Filters); err != nil {
		return plan, err
	}
	if validation.CleanName(in.HostDisplayName) == "" {
		return plan, validation.ErrHostNameRequired
	}
	if plan.hostName, err = validation.NormalizeDisplayName(in.HostDisplayName); err != nil {
		return plan, err
	}
	if plan.shareMode, err = validation.ShareMode(in.ShareMode); err != nil {
		return plan, err
	}
	plan.showPicks = plan.shareMode == model.ShareModeDetailed
	if plan.showPicks && in.ShowOtherParticipantsPicks != nil {
		plan.showPicks = *in.ShowOtherParticipantsPicks
	}
	if plan.gameIDs, err = validation.GameIDs(in.GameIDs); err != nil {
		return plan, err
	}

	if len(in.NamedParticipants) > plan.capacity-1 {
		return plan, validation.ErrTooManyNamed
	}
	inSession := make(map[string]bool, len(plan.gameIDs))
	for _, id := range plan.gameIDs {
		inSession[id] = true
	}
	for _, np := range in.NamedParticipants {
		name, err := validation.NormalizeDisplayName(np.DisplayName)
		if err != nil {
			return plan, err
		}
		plan.named = append(plan.named, NamedParticipantInput{
			DisplayName: name,
			Preferences: validation.NormalizePreferences(np.Preferences, func(id string) bool { return inSession[id] }),
		})
	}
	return plan, nil
}

// catalogUploads picks the uploaded metadata for the session's games and makes
// sure every game either is in the catalog already or comes with metadata.
func (u *Usecase) catalogUploads(ctx context.Context, gameIDs []string, games []model.SharedGame, now time.Time) ([]model.SharedGame, error) {
	uploads := make(map[string]model.SharedGame, len(games))
	for _, g := range games {
		if g.Name == "" {
			continue
		}
		g.CreatedAt = now
		uploads[g.ID] = g
	}

	existing, err := u.repo.CatalogGames(ctx, gameIDs)
	if err != nil {
		return nil, storeError(err)
	}
	known := make(map[string]bool, len(existing))
	for _, g := range existing {
		known[g.ID] = true
	}

	out := make([]model.SharedGame, 0, len(gameIDs))
	for _, id := range gameIDs {
		g, uploaded := uploads[id]
		if !uploaded {
			if !known[id] {
				return nil, ErrMissingGameMetadata.With(errors.New("game " + id))
			}
			continue
		}
		if !known[id] {
			out = append(out, g)
		}
	}
	return out, nil
}

func (u *Usecase) buildAggregate(id string, uid string, in CreateInput, plan createPlan, now time.Time) *model.Aggregate {
	expiresAt := now.Add(u.ttl)
	agg := model.NewAggregate(model.Session{
		ID:                         id,
		Title:                      plan.title,
		HostName:                   plan.hostName,
		HostUID:                    uid,
		ScheduledFor:               in.ScheduledFor.UTC(),
		Capacity:                   plan.capacity,
		Filters:                    in.Filters,
		StoredStatus:               model.StatusOpen,
		ShareMode:                  plan.shareMode,
		ShowOtherParticipantsPicks: plan.showPicks,
		CreatedAt:                  now,
		ExpiresAt:                  expiresAt,
	})

	for i, gameID := range plan.gameIDs {
		agg.AddGame(model.SessionGame{GameID: gameID, Position: i, AddedByUID: uid, AddedAt: now})
	}

	hostName := plan.hostName
	claimer := uid
	claimedAt := now
	agg.AddParticipant(model.Participant{
		ID:           model.HostParticipantID,
		Position:     0,
		SlotType:     model.SlotNamed,
		DisplayName:  &hostName,
		Claimed:      true,
		ClaimedByUID: &claimer,
		ClaimedAt:    &claimedAt,
		ExpiresAt:    expiresAt,
	})

	position := 1
	for i, np := range plan.named {
		name := np.DisplayName
		pid := model.NamedParticipantID(i + 1)
		agg.AddParticipant(model.Participant{
			ID:          pid,
			Position:    position,
			SlotType:    model.SlotNamed,
			DisplayName: &name,
			ExpiresAt:   expiresAt,
		})
		position++
		if len(np.Preferences) > 0 {
			agg.ShareSlotPreferences(model.SharedPreference{
				ParticipantID: pid,
				DisplayName:   name,
				Preferences:   np.Preferences,
				SharedAt:      now,
				SharedByUID:   uid,
			})
		}
	}

	for i := 1; position < plan.capacity; i++ {
		agg.AddParticipant(model.Participant{
			ID:        model.OpenParticipantID(i),
			Position:  position,
			SlotType:  model.SlotOpen,
			ExpiresAt: expiresAt,
		})
		position++
	}

	_ = agg.AddMember(model.Member{
		UID:           uid,
		ParticipantID: model.HostParticipantID,
		Role:          model.RoleHost,
		DisplayName:   plan.hostName,
		Ready:         true,
		JoinedAt:      now,
		ReadyAt:       &claimedAt,
		ExpiresAt:     expiresAt,
	})

	agg.ResetMutations()
	return agg
}

// Create validates the request, checks host eligibility and writes the
// session with its full seat roster in one transaction. Session ids are
// random, a collision is retried with a fresh id.
func (u *Usecase) Create(ctx context.Context, uid string, in CreateInput) (CreateResult, error) {
	if err := requireCaller(uid); err != nil {
		return CreateResult{}, err
	}
	plan, err := u.validateCreate(in)
	if err != nil {
		return CreateResult{}, err
	}
	if err := u.hosts.EnsureHost(ctx, uid); err != nil {
		return CreateResult{}, err
	}

	now := u.now()
	uploads, err := u.catalogUploads(ctx, plan.gameIDs, in.Games, now)
	if err != nil {
		return CreateResult{}, err
	}

	var retries = 3
	for retries > 0 {
		agg := u.buildAggregate(u.newID(), uid, in, plan, now)
		uploaded, err := u.repo.Create(ctx, agg, uploads)
		if err == nil {
			return CreateResult{SessionID: agg.Session.ID, GamesUploaded: uploaded}, nil
		}
		if !errors.Is(err, model.ErrAlreadyExists) {
			return CreateResult{}, storeError(err)
		}
		retries--
	}
	return CreateResult{}, storeError(errors.New("could not allocate a session id"))
}
