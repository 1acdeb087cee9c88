package validation

import (
	"testing"

	"github.com/humanbelnik/gamenight/internal/model"
	"github.com/stretchr/testify/assert"
)

func boolPtr(v bool) *bool { return &v }

func ranked(n int) model.PreferenceEntry {
	return model.PreferenceEntry{GameID: "101", Rank: intPtr(n)}
}

func TestNormalizePreferenceUpdate(t *testing.T) {
	priors := map[string]model.PreferenceEntry{
		"neutral":  {GameID: "101"},
		"ranked":   ranked(3),
		"top pick": {GameID: "101", IsTopPick: true},
		"disliked": {GameID: "101", IsDisliked: true},
	}

	updates := []struct {
		name     string
		update   PreferenceUpdate
		expected model.PreferenceEntry
	}{
		{
			name:     "dislike",
			update:   PreferenceUpdate{IsDisliked: boolPtr(true)},
			expected: model.PreferenceEntry{GameID: "101", IsDisliked: true},
		},
		{
			name:     "top pick",
			update:   PreferenceUpdate{IsTopPick: boolPtr(true)},
			expected: model.PreferenceEntry{GameID: "101", IsTopPick: true},
		},
		{
			name:     "rank",
			update:   PreferenceUpdate{Rank: intPtr(2)},
			expected: ranked(2),
		},
		{
			name:     "clear dislike",
			update:   PreferenceUpdate{IsDisliked: boolPtr(false)},
			expected: model.PreferenceEntry{GameID: "101"},
		},
		{
			name:     "clear top pick",
			update:   PreferenceUpdate{IsTopPick: boolPtr(false)},
			expected: model.PreferenceEntry{GameID: "101"},
		},
		{
			name:     "clear rank",
			update:   PreferenceUpdate{ClearRank: true},
			expected: model.PreferenceEntry{GameID: "101"},
		},
	}

	for priorName, prior := range priors {
		for _, u := range updates {
			t.Run(u.name+" from "+priorName, func(t *testing.T) {
				assert.Equal(t, u.expected, NormalizePreferenceUpdate(prior, u.update))
			})
		}
	}
}

func TestClearingDislikeDoesNotResurrectRank(t *testing.T) {
	entry := ranked(1)
	entry = NormalizePreferenceUpdate(entry, PreferenceUpdate{IsDisliked: boolPtr(true)})
	entry = NormalizePreferenceUpdate(entry, PreferenceUpdate{IsDisliked: boolPtr(false)})

	assert.Nil(t, entry.Rank)
	assert.False(t, entry.IsTopPick)
	assert.False(t, entry.IsDisliked)
}

func TestEmptyUpdateKeepsEntry(t *testing.T) {
	assert.Equal(t, ranked(4), NormalizePreferenceUpdate(ranked(4), PreferenceUpdate{}))
}

func TestNormalizePreferences(t *testing.T) {
	inSession := func(id string) bool { return id == "101" || id == "102" || id == "103" }

	got := NormalizePreferences([]model.PreferenceEntry{
		{GameID: "101", Rank: intPtr(1), IsTopPick: true},
		{GameID: "bad id"},
		{GameID: "999", Rank: intPtr(2)},
		{GameID: "102", Rank: intPtr(0)},
		{GameID: "103", Rank: intPtr(5), IsDisliked: true, IsTopPick: true},
		{GameID: "101", Rank: intPtr(2)},
	}, inSession)

	assert.Equal(t, []model.PreferenceEntry{
		{GameID: "101", Rank: intPtr(2)},
		{GameID: "102"},
		{GameID: "103", IsDisliked: true},
	}, got)
}
