package models

import "time"

type JoinRequestState string

const (
	JoinRequestPending  JoinRequestState = "pending"
	JoinRequestApproved JoinRequestState = "approved"
	JoinRequestRejected JoinRequestState = "rejected"
)

// Terminal states are never left again; approving or rejecting a request
// that is not pending is an ErrInvalidTransition.
func (s JoinRequestState) Terminal() bool {
	return s == JoinRequestApproved || s == JoinRequestRejected
}

type JoinRequest struct {
	ID        string
	SpaceID   string
	UserID    string
	Message   string
	State     JoinRequestState
	CreatedAt time.Time
}

// JoinRequestView adds the requester summary for manager review listings.
type JoinRequestView struct {
	ID        string
	SpaceID   string
	UserID    string
	UserName  string
	Message   string
	State     JoinRequestState
	CreatedAt time.Time
}
