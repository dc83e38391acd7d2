package db

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/pgxscan"
	"github.com/google/uuid"
	"gitlab.com/commonsward/commune/internal/models"
)

func (sdb *SharedDB) ListNotifications(ctx context.Context, uH UserH) ([]models.NotifView, error) {
	return sdb.notifService.List(ctx, uH.id)
}

type notificationService struct {
	db DBTX
}

func NewNotificationService(db DBTX) models.NotificationService {
	return &notificationService{db}
}

func (s *notificationService) Send(ctx context.Context, notif *models.Notification, toUserID string) error {
	sql, args, _ := psql.
		Insert("notifications").
		Columns("id", "user_id", "notif_type", "title", "text").
		Values(uuid.New().String(), toUserID, notif.NotifType, notif.Title, notif.Text).
		ToSql()
	_, err := s.db.Exec(ctx, sql, args...)
	return err
}

func (s *notificationService) List(ctx context.Context, userID string) ([]models.NotifView, error) {
	notifs := []models.NotifView{}
	sql, args, _ := psql.
		Select("id", "notif_type", "title", "text").
		From("notifications").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		ToSql()

	err := pgxscan.Select(ctx, s.db, &notifs, sql, args...)
	if err != nil {
		return nil, err
	}
	return notifs, nil
}

func (s *notificationService) Delete(ctx context.Context, userID string, notifID string) error {
	sql, args, _ := psql.
		Delete("notifications").
		Where(sq.Eq{"user_id": userID, "id": notifID}).
		ToSql()

	_, err := s.db.Exec(ctx, sql, args...)
	return err
}
