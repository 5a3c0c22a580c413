package storage

// transitions maps each KCS state to the states it may move to.
// Articles advance one step at a time; approved articles can be sent back
// to draft and retired articles can be reopened as draft.
var transitions = map[string][]string{
	KCSStateDraft:     {KCSStateApproved},
	KCSStateApproved:  {KCSStatePublished, KCSStateDraft},
	KCSStatePublished: {KCSStateRetired},
	KCSStateRetired:   {KCSStateDraft},
}

// AllowedTransitions returns the states reachable from the given state.
func AllowedTransitions(from string) []string {
	next := transitions[from]
	out := make([]string, len(next))
	copy(out, next)
	return out
}

// CanTransition reports whether an article may move from one state to another.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// transitionRole is the contributor role recorded for the actor of a move.
func transitionRole(to string) string {
	if to == KCSStateApproved {
		return RoleReviewer
	}
	return RoleEditor
}
