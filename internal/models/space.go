package models

import "time"

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
	VisibilitySecret  Visibility = "secret"
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityPrivate, VisibilitySecret:
		return true
	}
	return false
}

type SpaceReq struct {
	Name            string
	Description     string
	Visibility      Visibility
	RequiresPayment bool
	AutoJoin        bool
}

type Space struct {
	ID              string
	Name            string
	Description     string
	Visibility      Visibility
	RequiresPayment bool
	AutoJoin        bool
	MemberCount     int
	CreatedAt       time.Time
}

// SpaceView is a space as seen by a specific viewer. HasPendingRequest and
// PendingRequestID let the client hide the "Request to Join" action when a
// request is already open.
type SpaceView struct {
	ID                string
	Name              string
	Description       string
	Visibility        Visibility
	RequiresPayment   bool
	AutoJoin          bool
	MemberCount       int
	IsMember          bool
	HasPendingRequest bool
	PendingRequestID  string
}
