package models

import "context"

type NotifType string

const (
	NotifTypeJoinApproved NotifType = "join_approved"
	NotifTypeJoinRejected NotifType = "join_rejected"
	NotifTypeStreak       NotifType = "streak_milestone"
	NotifTypeComment      NotifType = "comment"
)

type Notification struct {
	NotifType NotifType
	Title     string
	Text      string
}

type NotifView struct {
	ID        string
	NotifType NotifType
	Title     string
	Text      string
}

// NotificationService delivery is best-effort: callers log failures and
// never fail the primary operation on one.
type NotificationService interface {
	Send(ctx context.Context, notif *Notification, toUserID string) error
	List(ctx context.Context, userID string) ([]NotifView, error)
	Delete(ctx context.Context, userID string, notifID string) error
}
