package client

import (
	"testing"

	"github.com/humanbelnik/gamenight/internal/model"
	"github.com/humanbelnik/gamenight/internal/service/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func TestBoardNormalizesInitialPicks(t *testing.T) {
	b := NewBoard([]string{"azul", "catan", "azul"}, []model.PreferenceEntry{
		{GameID: "azul", IsTopPick: true, IsDisliked: true},
		{GameID: "catan", Rank: intPtr(0)},
		{GameID: "root", IsTopPick: true},
	})

	entries := b.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, model.PreferenceEntry{GameID: "azul", IsDisliked: true}, entries[0])
}

func TestBoardEditedFieldWins(t *testing.T) {
	b := NewBoard([]string{"azul", "catan"}, nil)

	e, err := b.Apply("azul", validation.PreferenceUpdate{Rank: intPtr(2)})
	require.NoError(t, err)
	require.NotNil(t, e.Rank)
	assert.Equal(t, 2, *e.Rank)

	e, err = b.Apply("azul", validation.PreferenceUpdate{IsTopPick: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, e.IsTopPick)
	assert.Nil(t, e.Rank)

	e, err = b.Apply("azul", validation.PreferenceUpdate{IsTopPick: boolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, model.PreferenceEntry{GameID: "azul"}, e, "rank is not restored")
	assert.Empty(t, b.Entries())

	_, err = b.Apply("root", validation.PreferenceUpdate{IsDisliked: boolPtr(true)})
	assert.Error(t, err)
}

func TestBoardDisplayOrder(t *testing.T) {
	b := NewBoard([]string{"azul", "catan", "root", "wingspan"}, nil)
	_, _ = b.Apply("azul", validation.PreferenceUpdate{Rank: intPtr(2)})
	_, _ = b.Apply("catan", validation.PreferenceUpdate{IsTopPick: boolPtr(true)})
	_, _ = b.Apply("root", validation.PreferenceUpdate{IsDisliked: boolPtr(true)})
	_, _ = b.Apply("wingspan", validation.PreferenceUpdate{Rank: intPtr(1)})

	var order []string
	for _, e := range b.Display() {
		order = append(order, e.GameID)
	}
	assert.Equal(t, []string{"root", "catan", "wingspan", "azul"}, order)

	var sessionOrder []string
	for _, e := range b.Entries() {
		sessionOrder = append(sessionOrder, e.GameID)
	}
	assert.Equal(t, []string{"azul", "catan", "root", "wingspan"}, sessionOrder)
}
