package validation

import "github.com/humanbelnik/gamenight/internal/model"

// NormalizeEntry resolves a full entry so at most one of rank, top pick and
// dislike is active. Dislike wins over top pick, top pick wins over rank.
// Ranks below 1 count as no rank.
func NormalizeEntry(e model.PreferenceEntry) model.PreferenceEntry {
	out := model.PreferenceEntry{GameID: e.GameID}
	switch {
	case e.IsDisliked:
		out.IsDisliked = true
	case e.IsTopPick:
		out.IsTopPick = true
	case e.Rank != nil && *e.Rank >= 1:
		rank := *e.Rank
		out.Rank = &rank
	}
	return out
}

// NormalizePreferences drops entries with an invalid game id or a game the
// caller does not allow, keeps the last entry per game and resolves each one.
// Input order is preserved by first appearance.
func NormalizePreferences(entries []model.PreferenceEntry, allowed func(gameID string) bool) []model.PreferenceEntry {
	index := make(map[string]int, len(entries))
	out := make([]model.PreferenceEntry, 0, len(entries))
	for _, e := range entries {
		if !ValidGameID(e.GameID) {
			continue
		}
		if allowed != nil && !allowed(e.GameID) {
			continue
		}
		n := NormalizeEntry(e)
		if i, ok := index[e.GameID]; ok {
			out[i] = n
			continue
		}
		index[e.GameID] = len(out)
		out = append(out, n)
	}
	return out
}

// PreferenceUpdate carries only the fields the caller is changing.
type PreferenceUpdate struct {
	Rank       *int
	ClearRank  bool
	IsTopPick  *bool
	IsDisliked *bool
}

// NormalizePreferenceUpdate applies u on top of prev. The explicitly changed
// field wins and clears the others. Clearing a flag leaves the entry neutral,
// a rank held before the flag was set is not restored.
func NormalizePreferenceUpdate(prev model.PreferenceEntry, u PreferenceUpdate) model.PreferenceEntry {
	neutral := model.PreferenceEntry{GameID: prev.GameID}

	switch {
	case u.IsDisliked != nil && *u.IsDisliked:
		neutral.IsDisliked = true
		return neutral
	case u.IsTopPick != nil && *u.IsTopPick:
		neutral.IsTopPick = true
		return neutral
	case u.Rank != nil:
		if *u.Rank >= 1 {
			rank := *u.Rank
			neutral.Rank = &rank
		}
		return neutral
	case u.IsDisliked != nil, u.IsTopPick != nil, u.ClearRank:
		return neutral
	}
	return NormalizeEntry(prev)
}
