package models

// RoleAssignment is the result of a role lookup. Found reports whether
// an explicit assignment row exists for the user.
type RoleAssignment struct {
	Role  Role
	Found bool
}

// EffectiveRole maps an assignment to the role that governs access.
// Users without an explicit assignment are customers; the default is
// never written back.
func EffectiveRole(a RoleAssignment) Role {
	if !a.Found {
		return RoleCustomer
	}
	if !ValidRole(a.Role) {
		return RoleCustomer
	}
	return a.Role
}
