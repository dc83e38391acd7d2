package models

// Evaluate derives the permitted action set for a user on a space from the
// user's global role, the space's visibility and the user's membership row
// (nil when none exists). It is consulted before every content-mutating
// and membership-mutating operation; no other code path grants access.
//
// Rules, in order:
//  1. Global admins get every permission on every space.
//  2. Public spaces are viewable by anyone, including anonymous users and
//     blocked members. Content actions need an active membership.
//  3. Private and secret spaces require an active membership for
//     everything, view included.
//  4. A blocked membership never grants content or management actions,
//     whatever role it retains.
func Evaluate(user *User, space *Space, m *SpaceMembership) Perms {
	if user.IsAdmin() {
		return PermsAdmin
	}

	perms := NewPerms()
	if space.Visibility == VisibilityPublic {
		perms = NewPerms(PermViewSpace)
	}

	if !m.Active() {
		return perms
	}
	if m.IsManager() {
		return perms.Union(PermsManager)
	}
	return perms.Union(PermsMember)
}

// ShouldAutoJoin reports whether a first qualifying content action may
// transparently create a membership: only on public spaces explicitly
// marked auto_join, only for signed-in users with no membership row at
// all. A blocked (or any existing) row never auto-joins.
func ShouldAutoJoin(user *User, space *Space, m *SpaceMembership) bool {
	return user != nil &&
		!user.IsAdmin() &&
		space.Visibility == VisibilityPublic &&
		space.AutoJoin &&
		m == nil
}

// ContentDenialError picks the error kind for a denied content action:
// blocked members and non-members get ErrForbidden, while a space whose
// visibility hides it entirely yields ErrVisibilityDenied.
func ContentDenialError(space *Space, m *SpaceMembership) error {
	if m.Blocked() {
		return ErrForbidden
	}
	if space.Visibility != VisibilityPublic && m == nil {
		return ErrVisibilityDenied
	}
	return ErrForbidden
}
