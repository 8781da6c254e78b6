// Package access maps roles to capabilities. Sets are built on every call so
// no request shares mutable permission state with another.
package access

import "github.com/fusecpt/ats/internal/model"

// Capability names an action on a resource.
type Capability string

const (
	JobsRead         Capability = "jobs:read"
	JobsWrite        Capability = "jobs:write"
	JobsDelete       Capability = "jobs:delete"
	CandidatesRead   Capability = "candidates:read"
	CandidatesWrite  Capability = "candidates:write"
	CandidatesDelete Capability = "candidates:delete"
	HistoryRead      Capability = "history:read"
	UsersRead        Capability = "users:read"
	UsersManage      Capability = "users:manage"
	ManageAdmins     Capability = "users:manage-admins"
)

// CapabilitySet is an immutable-by-convention set of capabilities.
type CapabilitySet map[Capability]struct{}

// Has reports whether cap is granted.
func (s CapabilitySet) Has(cap Capability) bool {
	_, ok := s[cap]
	return ok
}

func setOf(caps ...Capability) CapabilitySet {
	s := make(CapabilitySet, len(caps))
	for _, c := range caps {
		s[c] = struct{}{}
	}
	return s
}

// RolePermissions returns the capabilities of role. Unknown roles get none.
func RolePermissions(role model.Role) CapabilitySet {
	switch role {
	case model.RoleSuperAdmin:
		return setOf(
			JobsRead, JobsWrite, JobsDelete,
			CandidatesRead, CandidatesWrite, CandidatesDelete,
			HistoryRead, UsersRead, UsersManage, ManageAdmins,
		)
	case model.RoleAdmin:
		return setOf(
			JobsRead, JobsWrite, JobsDelete,
			CandidatesRead, CandidatesWrite, CandidatesDelete,
			HistoryRead, UsersRead, UsersManage,
		)
	case model.RoleUser:
		return setOf(JobsRead, CandidatesRead, CandidatesWrite, HistoryRead)
	default:
		return CapabilitySet{}
	}
}

// Can is shorthand for RolePermissions(role).Has(cap).
func Can(role model.Role, cap Capability) bool {
	return RolePermissions(role).Has(cap)
}

// CanManageRole reports whether actor may create, edit or delete a user that
// holds (or would hold) target. Admins only manage plain users.
func CanManageRole(actor, target model.Role) bool {
	if !Can(actor, UsersManage) {
		return false
	}
	if target == model.RoleUser {
		return true
	}
	return Can(actor, ManageAdmins)
}
