package storage

// KCS article lifecycle states
const (
	KCSStateDraft     = "draft"
	KCSStateApproved  = "approved"
	KCSStatePublished = "published"
	KCSStateRetired   = "retired"
)

// Contributor roles
const (
	RoleAuthor      = "author"
	RoleReviewer    = "reviewer"
	RoleEditor      = "editor"
	RoleContributor = "contributor"
)

// Confidence bounds for knowledge articles
const (
	MinConfidence = 0
	MaxConfidence = 100
)

// KCSStates lists every lifecycle state in lifecycle order.
var KCSStates = []string{KCSStateDraft, KCSStateApproved, KCSStatePublished, KCSStateRetired}

// Roles lists every contributor role.
var Roles = []string{RoleAuthor, RoleReviewer, RoleEditor, RoleContributor}

// ValidKCSState reports whether state is one of the four lifecycle states.
func ValidKCSState(state string) bool {
	for _, s := range KCSStates {
		if s == state {
			return true
		}
	}
	return false
}

// ValidRole reports whether role is a known contributor role.
func ValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// ValidConfidence reports whether c lies in [MinConfidence, MaxConfidence].
func ValidConfidence(c int) bool {
	return c >= MinConfidence && c <= MaxConfidence
}
