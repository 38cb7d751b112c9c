package auth

import "strings"

// RoleSet is a normalized set of roles. The zero value is the empty set,
// which guards interpret as "any authenticated role".
type RoleSet struct {
	members map[Role]struct{}
}

// NewRoleSet builds a set from roles, dropping unknown values.
func NewRoleSet(roles ...Role) RoleSet {
	set := RoleSet{}
	for _, r := range roles {
		if !r.Valid() {
			continue
		}
		if set.members == nil {
			set.members = make(map[Role]struct{}, len(roles))
		}
		set.members[r] = struct{}{}
	}
	return set
}

// ParseRoleSet builds a set from raw role names (case-insensitive).
// Unknown names are ignored.
func ParseRoleSet(names ...string) RoleSet {
	roles := make([]Role, 0, len(names))
	for _, n := range names {
		if r, ok := ParseRole(n); ok {
			roles = append(roles, r)
		}
	}
	return NewRoleSet(roles...)
}

// Contains reports whether r is a member of the set.
func (s RoleSet) Contains(r Role) bool {
	_, ok := s.members[r]
	return ok
}

// IsEmpty reports whether the set has no members.
func (s RoleSet) IsEmpty() bool { return len(s.members) == 0 }

// Len returns the number of members.
func (s RoleSet) Len() int { return len(s.members) }

// Roles returns the members in canonical (AllRoles) order.
func (s RoleSet) Roles() []Role {
	out := make([]Role, 0, len(s.members))
	for _, r := range AllRoles {
		if s.Contains(r) {
			out = append(out, r)
		}
	}
	return out
}

// String joins the members with " or ", e.g. "ADMIN or TECHNICIAN".
func (s RoleSet) String() string {
	roles := s.Roles()
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, " or ")
}
