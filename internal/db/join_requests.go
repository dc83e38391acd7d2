package db

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/pgxscan"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gitlab.com/commonsward/commune/internal/models"
)

// RequestJoin opens a pending join request for a non-public space. The
// partial unique index on (space_id, user_id, pending) backs the
// at-most-one-pending invariant under concurrent requests.
func (sdb *SharedDB) RequestJoin(ctx context.Context, spaceID string, uH UserH, message string) (*models.JoinRequest, error) {
	_, err := readRawSpace(ctx, sdb.db, spaceID)
	if err != nil {
		return nil, models.ErrNotFound
	}

	membership, err := readMembership(ctx, sdb.db, spaceID, uH.id)
	if err != nil {
		return nil, err
	}
	if membership.Active() {
		return nil, models.ErrAlreadyMember
	}
	if membership.Blocked() {
		return nil, models.ErrForbidden
	}

	pending, err := findPendingRequest(ctx, sdb.db, spaceID, uH.id)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, models.ErrDuplicatePending
	}

	req := &models.JoinRequest{
		ID:        uuid.New().String(),
		SpaceID:   spaceID,
		UserID:    uH.id,
		Message:   message,
		State:     models.JoinRequestPending,
		CreatedAt: time.Now(),
	}
	sql, args, _ := psql.
		Insert("join_requests").
		Columns("id", "space_id", "user_id", "message", "state", "created_at").
		Values(req.ID, req.SpaceID, req.UserID, req.Message, req.State, req.CreatedAt).
		ToSql()

	_, err = sdb.db.Exec(ctx, sql, args...)
	if isUniqueViolation(err) {
		return nil, models.ErrDuplicatePending
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

// ApproveJoinRequest transitions a pending request to approved and
// creates (or reactivates) the membership in the same transaction, so a
// concurrent reader never sees one without the other. Approval is
// terminal.
func (h *SpaceH) ApproveJoinRequest(ctx context.Context, requestID string) error {
	if err := h.perms.Require(models.PermManageMembers); err != nil {
		return models.ErrNotAuthorized
	}

	var requesterID string
	err := execTx(ctx, h.sharedDB, func(ctx context.Context, tx DBTX) error {
		var err error
		requesterID, err = h.settleRequest(ctx, tx, requestID, models.JoinRequestApproved)
		if err != nil {
			return err
		}

		m, err := readMembership(ctx, tx, h.rawSpace.ID, requesterID)
		if err != nil {
			return err
		}
		switch {
		case m == nil:
			return insertMembership(ctx, tx, h.rawSpace.ID, requesterID, models.SpaceRoleMember)
		case m.Blocked():
			// A block issued after the request wins; approval restores
			// the row to an active plain member.
			sql, args, _ := psql.
				Update("space_memberships").
				Set("status", models.StatusMember).
				Set("role", models.SpaceRoleMember).
				Set("blocked_at", nil).
				Set("blocked_by", nil).
				Where(sq.Eq{"space_id": h.rawSpace.ID, "user_id": requesterID}).
				ToSql()
			if _, err := tx.Exec(ctx, sql, args...); err != nil {
				return err
			}
			return bumpMemberCount(ctx, tx, h.rawSpace.ID, 1)
		default:
			return nil // joined some other way meanwhile
		}
	})
	if err != nil {
		return err
	}

	h.notify(ctx, requesterID, &models.Notification{
		NotifType: models.NotifTypeJoinApproved,
		Title:     h.rawSpace.Name,
		Text:      "your request to join was approved",
	})
	return nil
}

// RejectJoinRequest is terminal and creates no membership.
func (h *SpaceH) RejectJoinRequest(ctx context.Context, requestID string) error {
	if err := h.perms.Require(models.PermManageMembers); err != nil {
		return models.ErrNotAuthorized
	}

	var requesterID string
	err := execTx(ctx, h.sharedDB, func(ctx context.Context, tx DBTX) error {
		var err error
		requesterID, err = h.settleRequest(ctx, tx, requestID, models.JoinRequestRejected)
		return err
	})
	if err != nil {
		return err
	}

	h.notify(ctx, requesterID, &models.Notification{
		NotifType: models.NotifTypeJoinRejected,
		Title:     h.rawSpace.Name,
		Text:      "your request to join was rejected",
	})
	return nil
}

// settleRequest moves a request to a terminal state with a conditional
// update: only a currently-pending row in this space transitions. A row
// that exists but is no longer pending is an invalid transition, never a
// resurrection.
func (h *SpaceH) settleRequest(ctx context.Context, tx DBTX, requestID string, to models.JoinRequestState) (requesterID string, err error) {
	row := tx.QueryRow(ctx,
		`UPDATE join_requests SET state = $1
		 WHERE id = $2 AND space_id = $3 AND state = $4
		 RETURNING user_id`,
		to, requestID, h.rawSpace.ID, models.JoinRequestPending)
	err = row.Scan(&requesterID)
	if err == nil {
		return requesterID, nil
	}

	req := &models.JoinRequest{}
	sql, args, _ := psql.
		Select("id", "space_id", "user_id", "message", "state", "created_at").
		From("join_requests").
		Where(sq.Eq{"id": requestID, "space_id": h.rawSpace.ID}).
		ToSql()
	getErr := pgxscan.Get(ctx, tx, req, sql, args...)
	if pgxscan.NotFound(getErr) {
		return "", models.ErrNotFound
	}
	if getErr != nil {
		return "", getErr
	}
	return "", models.ErrInvalidTransition
}

// ListPendingRequests returns open requests oldest-first for FIFO review.
func (h *SpaceH) ListPendingRequests(ctx context.Context) ([]models.JoinRequestView, error) {
	if err := h.perms.Require(models.PermManageMembers); err != nil {
		return nil, models.ErrNotAuthorized
	}

	sql, args, _ := psql.
		Select(
			"join_requests.id",
			"join_requests.space_id",
			"join_requests.user_id",
			"users.name AS user_name",
			"join_requests.message",
			"join_requests.state",
			"join_requests.created_at",
		).
		From("join_requests").
		Join("users ON join_requests.user_id = users.id").
		Where(sq.Eq{
			"join_requests.space_id": h.rawSpace.ID,
			"join_requests.state":    models.JoinRequestPending,
		}).
		OrderBy("join_requests.created_at ASC").
		ToSql()

	reqs := []models.JoinRequestView{}
	err := pgxscan.Select(ctx, h.sharedDB, &reqs, sql, args...)
	if err != nil {
		return nil, err
	}
	return reqs, nil
}

func (h *SpaceH) notify(ctx context.Context, toUserID string, notif *models.Notification) {
	if err := h.notifService.Send(ctx, notif, toUserID); err != nil {
		// Best-effort; the primary operation already succeeded.
		zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", toUserID).Msg("notification dispatch failed")
	}
}

func findPendingRequest(ctx context.Context, db DBTX, spaceID, userID string) (*models.JoinRequest, error) {
	req := &models.JoinRequest{}
	sql, args, _ := psql.
		Select("id", "space_id", "user_id", "message", "state", "created_at").
		From("join_requests").
		Where(sq.Eq{
			"space_id": spaceID,
			"user_id":  userID,
			"state":    models.JoinRequestPending,
		}).
		ToSql()

	err := pgxscan.Get(ctx, db, req, sql, args...)
	if pgxscan.NotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}
