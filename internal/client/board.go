package client

import (
	"fmt"
	"sync"

	"github.com/humanbelnik/gamenight/internal/model"
	"github.com/humanbelnik/gamenight/internal/service/preference_view"
	"github.com/humanbelnik/gamenight/internal/service/validation"
)

// Board is one participant's editable picks for a session's games.
type Board struct {
	mu      sync.Mutex
	order   []string
	entries map[string]model.PreferenceEntry
}

// NewBoard starts from initial, which may be the seat's pre-shared picks.
// Entries for games outside gameIDs are ignored.
func NewBoard(gameIDs []string, initial []model.PreferenceEntry) *Board {
	b := &Board{entries: make(map[string]model.PreferenceEntry, len(gameIDs))}
	for _, id := range gameIDs {
		if _, dup := b.entries[id]; dup {
			continue
		}
		b.order = append(b.order, id)
		b.entries[id] = model.PreferenceEntry{GameID: id}
	}
	for _, e := range initial {
		if _, ok := b.entries[e.GameID]; ok {
			b.entries[e.GameID] = validation.NormalizeEntry(e)
		}
	}
	return b
}

// Apply records one edit. The field the edit sets wins over the others.
func (b *Board) Apply(gameID string, u validation.PreferenceUpdate) (model.PreferenceEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	prev, ok := b.entries[gameID]
	if !ok {
		return model.PreferenceEntry{}, fmt.Errorf("game %q is not part of this session", gameID)
	}
	next := validation.NormalizePreferenceUpdate(prev, u)
	b.entries[gameID] = next
	return next, nil
}

// Entries lists games that carry a pick, in session order.
func (b *Board) Entries() []model.PreferenceEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]model.PreferenceEntry, 0, len(b.order))
	for _, id := range b.order {
		e := b.entries[id]
		if e.Rank == nil && !e.IsTopPick && !e.IsDisliked {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Display orders the picks dislikes first, then top picks, then by rank.
func (b *Board) Display() []model.PreferenceEntry {
	return preference_view.SortForDisplay(b.Entries())
}
