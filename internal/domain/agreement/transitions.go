package agreement

// validTransitions is the closed transition table for agreement status
// edits. The generic update endpoint accepts any target status from the
// operator, so the guard lives here rather than in the UI dropdown.
//
// CANCELLED is terminal. EXPIRED can be corrected back to ACTIVE so an
// operator can fix data-entry mistakes or reinstate a lapsed contract.
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusActive, StatusCancelled},
	StatusActive:    {StatusSuspended, StatusExpired, StatusCancelled},
	StatusSuspended: {StatusActive, StatusExpired, StatusCancelled},
	StatusExpired:   {StatusActive, StatusCancelled},
	StatusCancelled: {},
}

// ValidStatus reports whether s is one of the five agreement states.
func ValidStatus(s Status) bool {
	_, ok := validTransitions[s]
	return ok
}

// CanTransition reports whether an agreement may move from one status to
// another. A same-status "transition" is always permitted so that
// field-only edits (notes, billing frequency) pass through the guard.
func CanTransition(from, to Status) bool {
	if !ValidStatus(from) || !ValidStatus(to) {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
