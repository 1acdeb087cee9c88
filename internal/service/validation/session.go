package validation

import (
	"regexp"

	"github.com/humanbelnik/gamenight/internal/model"
)

var gameIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func ValidGameID(id string) bool {
	return gameIDPattern.MatchString(id)
}

// Capacity applies the default when nil and enforces the inclusive bounds.
func Capacity(c *int) (int, error) {
	if c == nil {
		return model.DefaultCapacity, nil
	}
	if *c < model.MinCapacity || *c > model.MaxCapacity {
		return 0, ErrCapacityOutOfRange
	}
	return *c, nil
}

// GameIDs collapses duplicates keeping first-seen order, then enforces 1..50.
func GameIDs(ids []string) ([]string, error) {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !ValidGameID(id) {
			return nil, ErrInvalidGameID.With(errGameID(id))
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	switch {
	case len(out) == 0:
		return nil, ErrNoGames
	case len(out) > model.MaxGamesPerSession:
		return nil, ErrTooManyGames
	}
	return out, nil
}

type errGameID string

func (e errGameID) Error() string { return "game id " + string(e) }

func Filters(f model.Filters) error {
	for _, v := range []*int{f.MinPlayers, f.MaxPlayers, f.MinPlayingTimeMinutes, f.MaxPlayingTimeMinutes} {
		if v != nil && *v < 0 {
			return ErrInvalidFilters
		}
	}
	if f.MinPlayers != nil && f.MaxPlayers != nil && *f.MinPlayers > *f.MaxPlayers {
		return ErrInvalidFilters
	}
	if f.MinPlayingTimeMinutes != nil && f.MaxPlayingTimeMinutes != nil &&
		*f.MinPlayingTimeMinutes > *f.MaxPlayingTimeMinutes {
		return ErrInvalidFilters
	}
	return nil
}

// ShareMode defaults to quick.
func ShareMode(m string) (model.ShareMode, error) {
	if m == "" {
		return model.ShareModeQuick, nil
	}
	mode := model.ShareMode(m)
	if !mode.Valid() {
		return "", ErrInvalidShareMode
	}
	return mode, nil
}
