package models

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func learner() *User {
	return &User{ID: "u1", Role: RoleLearner}
}

func admin() *User {
	return &User{ID: "a1", Role: RoleAdmin}
}

func space(v Visibility, autoJoin bool) *Space {
	return &Space{ID: "s1", Visibility: v, AutoJoin: autoJoin}
}

func membership(role SpaceRole, status MembershipStatus) *SpaceMembership {
	m := &SpaceMembership{
		SpaceID:  "s1",
		UserID:   "u1",
		Role:     role,
		Status:   status,
		JoinedAt: time.Now(),
	}
	if status == StatusBlocked {
		m.BlockedAt = sql.NullTime{Time: time.Now(), Valid: true}
		m.BlockedBy = sql.NullString{String: "a1", Valid: true}
	}
	return m
}

func TestEvaluateAdminHasFullAccess(t *testing.T) {
	for _, v := range []Visibility{VisibilityPublic, VisibilityPrivate, VisibilitySecret} {
		perms := Evaluate(admin(), space(v, false), nil)
		assert.True(t, perms.Check(PermViewSpace, PermCreatePost, PermCreateComment, PermReact, PermManageMembers, PermManageSpace),
			"admin should have full access on %s space", v)
	}
}

func TestEvaluatePublicSpace(t *testing.T) {
	s := space(VisibilityPublic, false)

	// Anonymous and non-members can view but not post.
	for _, u := range []*User{nil, learner()} {
		perms := Evaluate(u, s, nil)
		assert.True(t, perms.Check(PermViewSpace))
		assert.False(t, perms.Check(PermCreatePost))
		assert.False(t, perms.Check(PermReact))
	}

	// Active members get content actions.
	perms := Evaluate(learner(), s, membership(SpaceRoleMember, StatusMember))
	assert.True(t, perms.Check(PermViewSpace, PermCreatePost, PermCreateComment, PermReact))
	assert.False(t, perms.Check(PermManageMembers))
}

func TestEvaluatePrivateSpaceRequiresMembership(t *testing.T) {
	for _, v := range []Visibility{VisibilityPrivate, VisibilitySecret} {
		s := space(v, false)

		perms := Evaluate(learner(), s, nil)
		assert.False(t, perms.Check(PermViewSpace), "%s space must not be viewable without membership", v)

		perms = Evaluate(learner(), s, membership(SpaceRoleMember, StatusMember))
		assert.True(t, perms.Check(PermViewSpace, PermCreatePost))
	}
}

func TestEvaluateBlockedMemberDeniedContent(t *testing.T) {
	// Blocked members lose content and management actions regardless of
	// the role their row retains.
	for _, role := range []SpaceRole{SpaceRoleMember, SpaceRoleManager} {
		m := membership(role, StatusBlocked)

		perms := Evaluate(learner(), space(VisibilityPublic, false), m)
		assert.True(t, perms.Check(PermViewSpace), "blocked member may still view a public space")
		assert.False(t, perms.Check(PermCreatePost))
		assert.False(t, perms.Check(PermCreateComment))
		assert.False(t, perms.Check(PermReact))
		assert.False(t, perms.Check(PermManageMembers))

		perms = Evaluate(learner(), space(VisibilityPrivate, false), m)
		assert.False(t, perms.Check(PermViewSpace))
	}
}

func TestEvaluateManager(t *testing.T) {
	perms := Evaluate(learner(), space(VisibilityPrivate, false), membership(SpaceRoleManager, StatusMember))
	assert.True(t, perms.Check(PermManageMembers))
	assert.False(t, perms.Check(PermManageSpace), "manager is scoped below admin")
}

func TestShouldAutoJoin(t *testing.T) {
	assert.True(t, ShouldAutoJoin(learner(), space(VisibilityPublic, true), nil))

	assert.False(t, ShouldAutoJoin(nil, space(VisibilityPublic, true), nil), "anonymous users never auto-join")
	assert.False(t, ShouldAutoJoin(learner(), space(VisibilityPublic, false), nil), "auto_join must be explicit")
	assert.False(t, ShouldAutoJoin(learner(), space(VisibilityPrivate, true), nil), "no auto-join on private spaces")
	assert.False(t, ShouldAutoJoin(learner(), space(VisibilityPublic, true), membership(SpaceRoleMember, StatusBlocked)),
		"an existing row, blocked included, never auto-joins")
	assert.False(t, ShouldAutoJoin(admin(), space(VisibilityPublic, true), nil), "admins need no membership")
}

func TestContentDenialError(t *testing.T) {
	assert.Equal(t, ErrForbidden, ContentDenialError(space(VisibilityPublic, false), membership(SpaceRoleMember, StatusBlocked)))
	assert.Equal(t, ErrForbidden, ContentDenialError(space(VisibilityPublic, false), nil))
	assert.Equal(t, ErrVisibilityDenied, ContentDenialError(space(VisibilitySecret, false), nil))
}
