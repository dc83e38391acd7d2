package models

import (
	"database/sql"
	"errors"
	"time"
)

var (
	ErrEmailAlreadyUsed = errors.New("email already used")
	ErrInvalidFormat    = errors.New("invalid format")
	ErrBadReferralCode  = errors.New("unknown referral code")
)

type GlobalRole string

const (
	RoleLearner GlobalRole = "learner"
	RoleAdmin   GlobalRole = "admin"
)

type MembershipTier string

const (
	TierFree MembershipTier = "free"
	TierPaid MembershipTier = "paid"
)

type User struct {
	ID           string
	Name         string
	Email        string
	Role         GlobalRole
	TotalPoints  int
	ReferralCode string
	ReferredBy   sql.NullString
	Tier         MembershipTier `db:"membership_tier"`
	StreakDays   int
	LastActiveOn sql.NullTime
	CreatedAt    time.Time
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

type UserView struct {
	ID           string
	Name         string
	Role         GlobalRole
	TotalPoints  int
	ReferralCode string
	Referrals    int
	CreatedAt    time.Time
}
