// Package slot_selector decides which free seat a claim gets.
// It sees only the unclaimed-slot list and the typed name, never the store.
package slot_selector

import (
	"github.com/humanbelnik/gamenight/internal/model"
	"github.com/humanbelnik/gamenight/internal/service/validation"
)

// FetchLimit bounds how many unclaimed seats a claim looks at.
const FetchLimit = 50

type Kind int

const (
	KindNone Kind = iota
	KindNamed
	KindOpen
	KindAmbiguous
)

func (k Kind) String() string {
	switch k {
	case KindNamed:
		return "named"
	case KindOpen:
		return "open"
	case KindAmbiguous:
		return "ambiguous"
	default:
		return "none"
	}
}

type Selection struct {
	Kind Kind
	Slot *model.Participant
}

// Select matches typedName against unclaimed named seats first. Exactly one
// match wins; several matches are ambiguous and nothing is guessed. Without a
// match the first unclaimed open seat is taken.
func Select(unclaimed []model.Participant, typedName string) Selection {
	var match *model.Participant
	matches := 0
	for i := range unclaimed {
		p := &unclaimed[i]
		if p.Claimed || p.SlotType != model.SlotNamed || p.IsHostSeat() {
			continue
		}
		if validation.NamesMatch(typedName, p.Name()) {
			matches++
			match = p
		}
	}

	switch {
	case matches == 1:
		return Selection{Kind: KindNamed, Slot: match}
	case matches > 1:
		return Selection{Kind: KindAmbiguous}
	}

	if open := FirstOpenUnclaimed(unclaimed); open != nil {
		return Selection{Kind: KindOpen, Slot: open}
	}
	return Selection{Kind: KindNone}
}

// FirstOpenUnclaimed returns the first seat that is both unclaimed and open,
// or nil. Named seats are never returned.
func FirstOpenUnclaimed(slots []model.Participant) *model.Participant {
	for i := range slots {
		if !slots[i].Claimed && slots[i].SlotType == model.SlotOpen {
			return &slots[i]
		}
	}
	return nil
}
