package models

import (
	"math"
	"time"
)

type PointReason string

const (
	ReasonPostCreated      PointReason = "post_created"
	ReasonCommentCreated   PointReason = "comment_created"
	ReasonReactionGiven    PointReason = "reaction_given"
	ReasonReactionRemoved  PointReason = "reaction_removed"
	ReasonReferralBonus    PointReason = "referral_bonus"
	ReasonStreakMilestone  PointReason = "streak_milestone"
	ReasonCreditRedemption PointReason = "credit_redemption"
)

// PointAmounts fixes how many points each awardable reason is worth.
// Award amounts are never negative; revocations are derived from them.
var PointAmounts = map[PointReason]int{
	ReasonPostCreated:     5,
	ReasonCommentCreated:  2,
	ReasonReactionGiven:   1,
	ReasonReferralBonus:   25,
	ReasonStreakMilestone: 10,
}

// Inverse is the reason recorded when an award is undone on toggle-off.
func (r PointReason) Inverse() PointReason {
	if r == ReasonReactionGiven {
		return ReasonReactionRemoved
	}
	return r
}

// PointTransaction is an append-only ledger row. User.TotalPoints is the
// running sum of Amount over the user's rows.
type PointTransaction struct {
	ID              string
	UserID          string
	Amount          int
	Reason          PointReason
	RelatedEntityID string
	CreatedAt       time.Time
}

type Currency string

const (
	CurrencyINR Currency = "INR"
	CurrencyUSD Currency = "USD"
)

// Minor currency units per point: 1 point = 1 INR = 100 paise,
// 1 point = 0.05 USD = 5 cents.
func minorUnitsPerPoint(currency Currency) int64 {
	switch currency {
	case CurrencyUSD:
		return 5
	default:
		return 100
	}
}

type Credits struct {
	INR float64
	USD float64
}

// ComputeCredits converts accumulated points to currency credit.
// USD is rounded half-up to 2 decimal places.
func ComputeCredits(totalPoints int) Credits {
	return Credits{
		INR: float64(totalPoints),
		USD: math.Floor(float64(totalPoints)*5+0.5) / 100,
	}
}

// CreditMinor is the available credit in minor units of the currency.
func CreditMinor(totalPoints int, currency Currency) int64 {
	return int64(totalPoints) * minorUnitsPerPoint(currency)
}

// PointsToCover is the point-equivalent debited when credit pays an
// amount, rounded up so a satisfied payment never under-debits.
func PointsToCover(amountMinor int64, currency Currency) int {
	per := minorUnitsPerPoint(currency)
	return int((amountMinor + per - 1) / per)
}

// StreakMilestones are the day counts that award streak points, once each.
var StreakMilestones = []int{7, 30, 90}

// CrossedMilestone returns the milestone passed when a streak grows from
// prev to cur days, if any. Streaks grow one day at a time, so at most one
// milestone is crossed.
func CrossedMilestone(prev, cur int) (int, bool) {
	for _, m := range StreakMilestones {
		if prev < m && cur >= m {
			return m, true
		}
	}
	return 0, false
}
