package models

import (
	"database/sql"
	"time"
)

type SpaceRole string

const (
	SpaceRoleMember  SpaceRole = "member"
	SpaceRoleManager SpaceRole = "manager"
)

type MembershipStatus string

const (
	// StatusMember is an active, non-blocked membership.
	StatusMember  MembershipStatus = "member"
	StatusBlocked MembershipStatus = "blocked"
)

// SpaceMembership is unique per (space_id, user_id). A blocked membership
// keeps its row and role so history is preserved; BlockedAt/BlockedBy are
// set exactly when Status is blocked.
type SpaceMembership struct {
	SpaceID   string
	UserID    string
	Role      SpaceRole
	Status    MembershipStatus
	JoinedAt  time.Time
	BlockedAt sql.NullTime
	BlockedBy sql.NullString
}

func (m *SpaceMembership) Active() bool {
	return m != nil && m.Status == StatusMember
}

func (m *SpaceMembership) Blocked() bool {
	return m != nil && m.Status == StatusBlocked
}

func (m *SpaceMembership) IsManager() bool {
	return m.Active() && m.Role == SpaceRoleManager
}

// Member joins a membership row with a user summary for detailed listings.
type Member struct {
	UserID      string
	Name        string
	Role        SpaceRole
	Status      MembershipStatus
	JoinedAt    time.Time
	BlockedAt   sql.NullTime
	BlockedBy   sql.NullString
	TotalPoints int
}
