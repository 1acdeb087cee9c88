package model

type Collection string

const (
	CollectionSessions          Collection = "sessions"
	CollectionParticipants      Collection = "participants"
	CollectionMembers           Collection = "members"
	CollectionSessionGames      Collection = "sessionGames"
	CollectionSharedPreferences Collection = "sharedPreferences"
	CollectionGuestPreferences  Collection = "guestPreferences"
)

// ChildCollections lists the children in the order they are destroyed.
// The session document itself always goes last.
var ChildCollections = []Collection{
	CollectionGuestPreferences,
	CollectionSharedPreferences,
	CollectionMembers,
	CollectionParticipants,
	CollectionSessionGames,
}

type MutationOp int

const (
	OpPut MutationOp = iota + 1
	OpDelete
	// OpCheck writes nothing, it only asserts the guard at commit time.
	OpCheck
)

// Guard is a condition a backend must re-check inside the transaction
// that applies the mutation.
type Guard int

const (
	GuardNone Guard = iota
	GuardUnclaimed
	GuardAbsent
	GuardSessionOpen
)

type Mutation struct {
	Op         MutationOp
	Collection Collection
	Key        string
	Guard      Guard
}

// Conflict is the error reported when the guard does not hold.
func (m Mutation) Conflict() error {
	switch m.Guard {
	case GuardUnclaimed:
		return ErrSlotAlreadyClaimed
	case GuardAbsent:
		if m.Collection == CollectionMembers {
			return ErrMemberAlreadyExists
		}
		return ErrAlreadyExists
	case GuardSessionOpen:
		return ErrSessionNotOpen
	}
	return nil
}

type docRef struct {
	collection Collection
	key        string
}

// compact folds the log to one mutation per document: the last write wins,
// the first guard recorded for the document is kept.
func compact(log []Mutation) []Mutation {
	index := make(map[docRef]int, len(log))
	out := make([]Mutation, 0, len(log))
	for _, m := range log {
		ref := docRef{m.Collection, m.Key}
		i, seen := index[ref]
		if !seen {
			index[ref] = len(out)
			out = append(out, m)
			continue
		}
		if m.Op != OpCheck {
			out[i].Op = m.Op
		}
		if out[i].Guard == GuardNone {
			out[i].Guard = m.Guard
		}
	}
	return out
}
