package db

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"gitlab.com/commonsward/commune/internal/models"
)

// SpaceH is a capability handle over one space for one (possibly
// anonymous) viewer. Obtaining it requires view access; every method
// re-checks the evaluated permission set before touching state.
type SpaceH struct {
	sharedDB     DBTX
	rawSpace     *models.Space
	user         *models.User
	membership   *models.SpaceMembership
	perms        models.Perms
	notifService models.NotificationService
}

// GetSpaceH evaluates the viewer's access. Spaces the viewer may not see
// come back as ErrNotFound when secret (their existence is hidden) and
// ErrVisibilityDenied when private.
func (sdb *SharedDB) GetSpaceH(ctx context.Context, spaceID string, uH *UserH) (*SpaceH, error) {
	rawSpace, err := readRawSpace(ctx, sdb.db, spaceID)
	if err != nil {
		return nil, models.ErrNotFound
	}

	var user *models.User
	var membership *models.SpaceMembership
	if uH != nil {
		user, err = readUser(ctx, sdb.db, uH.id)
		if err != nil {
			return nil, err
		}
		membership, err = readMembership(ctx, sdb.db, spaceID, uH.id)
		if err != nil {
			return nil, err
		}
	}

	perms := models.Evaluate(user, rawSpace, membership)
	if !perms.Check(models.PermViewSpace) {
		if rawSpace.Visibility == models.VisibilitySecret {
			return nil, models.ErrNotFound
		}
		return nil, models.ErrVisibilityDenied
	}

	return &SpaceH{
		sharedDB:     sdb.db,
		rawSpace:     rawSpace,
		user:         user,
		membership:   membership,
		perms:        perms,
		notifService: sdb.notifService,
	}, nil
}

func (h *SpaceH) ID() string {
	return h.rawSpace.ID
}
func (h *SpaceH) Perms() models.Perms {
	return h.perms
}

func (sdb *SharedDB) CreateSpace(ctx context.Context, uH UserH, req *models.SpaceReq) (*SpaceH, error) {
	user, err := readUser(ctx, sdb.db, uH.id)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, models.ErrNotAuthorized
	}
	if req.Name == "" || !req.Visibility.Valid() {
		return nil, models.ErrInvalidFormat
	}

	rawSpace := &models.Space{
		ID:              uuid.New().String(),
		Name:            req.Name,
		Description:     req.Description,
		Visibility:      req.Visibility,
		RequiresPayment: req.RequiresPayment,
		AutoJoin:        req.AutoJoin,
		CreatedAt:       time.Now(),
	}

	err = execTx(ctx, sdb.db, func(ctx context.Context, tx DBTX) error {
		sql, args, _ := psql.
			Insert("spaces").
			Columns("id", "name", "description", "visibility", "requires_payment", "auto_join", "member_count", "created_at").
			Values(rawSpace.ID, rawSpace.Name, rawSpace.Description, rawSpace.Visibility,
				rawSpace.RequiresPayment, rawSpace.AutoJoin, 0, rawSpace.CreatedAt).
			ToSql()
		_, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return err
		}
		// The creator manages the space.
		return insertMembership(ctx, tx, rawSpace.ID, uH.id, models.SpaceRoleManager)
	})
	if err != nil {
		return nil, err
	}
	rawSpace.MemberCount = 1

	membership, err := readMembership(ctx, sdb.db, rawSpace.ID, uH.id)
	if err != nil {
		return nil, err
	}
	return &SpaceH{
		sharedDB:     sdb.db,
		rawSpace:     rawSpace,
		user:         user,
		membership:   membership,
		perms:        models.Evaluate(user, rawSpace, membership),
		notifService: sdb.notifService,
	}, nil
}

// ListSpaces returns the spaces the viewer may know about: public ones
// always, private and secret ones only where a membership row exists.
// Each row carries the viewer's membership and pending-request state.
func (sdb *SharedDB) ListSpaces(ctx context.Context, uH *UserH) ([]models.SpaceView, error) {
	var user *models.User
	var userID interface{}
	if uH != nil {
		var err error
		user, err = readUser(ctx, sdb.db, uH.id)
		if err != nil {
			return nil, err
		}
		userID = uH.id
	}

	sql, args, err := listSpacesQuery(user, userID)
	if err != nil {
		return nil, err
	}
	spaces := []models.SpaceView{}
	err = pgxscan.Select(ctx, sdb.db, &spaces, sql, args...)
	if err != nil {
		return nil, err
	}
	return spaces, nil
}

// listSpacesQuery builds the per-viewer listing. userID is nil for an
// anonymous viewer: the membership and request joins bind NULL and match
// no rows. jr.id is a uuid column, so it is cast to text before the
// coalesce with the empty string.
func listSpacesQuery(user *models.User, userID interface{}) (string, []interface{}, error) {
	builder := psql.
		Select(
			"spaces.id",
			"spaces.name",
			"spaces.description",
			"spaces.visibility",
			"spaces.requires_payment",
			"spaces.auto_join",
			"spaces.member_count",
			"m.user_id IS NOT NULL AND m.status = 'member' AS is_member",
			"jr.id IS NOT NULL AS has_pending_request",
			"COALESCE(jr.id::text, '') AS pending_request_id",
		).
		From("spaces").
		LeftJoin("space_memberships m ON m.space_id = spaces.id AND m.user_id = ?", userID).
		LeftJoin("join_requests jr ON jr.space_id = spaces.id AND jr.user_id = ? AND jr.state = 'pending'", userID).
		OrderBy("spaces.created_at ASC")

	if !user.IsAdmin() {
		builder = builder.Where(sq.Or{
			sq.Eq{"spaces.visibility": models.VisibilityPublic},
			sq.And{
				sq.Expr("m.user_id IS NOT NULL"),
				sq.Eq{"m.status": models.StatusMember},
			},
		})
	}
	return builder.ToSql()
}

// Join adds the user as a plain member. Private and secret spaces cannot
// be joined directly; access goes through the join-request workflow.
func (sdb *SharedDB) Join(ctx context.Context, spaceID string, uH UserH) error {
	rawSpace, err := readRawSpace(ctx, sdb.db, spaceID)
	if err != nil {
		return models.ErrNotFound
	}

	membership, err := readMembership(ctx, sdb.db, spaceID, uH.id)
	if err != nil {
		return err
	}
	if membership.Active() {
		return models.ErrAlreadyMember
	}
	if membership.Blocked() {
		return models.ErrForbidden
	}
	if rawSpace.Visibility != models.VisibilityPublic {
		return models.ErrVisibilityDenied
	}

	err = execTx(ctx, sdb.db, func(ctx context.Context, tx DBTX) error {
		return insertMembership(ctx, tx, spaceID, uH.id, models.SpaceRoleMember)
	})
	if isUniqueViolation(err) {
		return models.ErrAlreadyMember
	}
	return err
}

// Promote raises the target to manager. Promoting an existing manager is
// an idempotent no-op success.
func (h *SpaceH) Promote(ctx context.Context, targetID string) error {
	return h.setRole(ctx, targetID, models.SpaceRoleManager)
}

// Demote lowers the target to plain member; also an idempotent no-op when
// the target already is one.
func (h *SpaceH) Demote(ctx context.Context, targetID string) error {
	return h.setRole(ctx, targetID, models.SpaceRoleMember)
}

func (h *SpaceH) setRole(ctx context.Context, targetID string, role models.SpaceRole) error {
	if err := h.perms.Require(models.PermManageMembers); err != nil {
		return models.ErrNotAuthorized
	}

	sql, args, _ := psql.
		Update("space_memberships").
		Set("role", role).
		Where(sq.Eq{
			"space_id": h.rawSpace.ID,
			"user_id":  targetID,
			"status":   models.StatusMember,
		}).
		ToSql()

	tag, err := h.sharedDB.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotAMember
	}
	return nil
}

// Block denies the target all content actions while preserving the
// membership row, its role and history. Blocking twice is a no-op.
func (h *SpaceH) Block(ctx context.Context, targetID string) error {
	if err := h.perms.Require(models.PermManageMembers); err != nil {
		return models.ErrNotAuthorized
	}

	return execTx(ctx, h.sharedDB, func(ctx context.Context, tx DBTX) error {
		sql, args, _ := psql.
			Update("space_memberships").
			Set("status", models.StatusBlocked).
			Set("blocked_at", time.Now()).
			Set("blocked_by", h.user.ID).
			Where(sq.Eq{
				"space_id": h.rawSpace.ID,
				"user_id":  targetID,
				"status":   models.StatusMember,
			}).
			ToSql()

		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			m, err := readMembership(ctx, tx, h.rawSpace.ID, targetID)
			if err != nil {
				return err
			}
			if m.Blocked() {
				return nil // already blocked
			}
			return models.ErrNotAMember
		}
		return bumpMemberCount(ctx, tx, h.rawSpace.ID, -1)
	})
}

// Unblock restores an active membership; the row keeps the role it had.
func (h *SpaceH) Unblock(ctx context.Context, targetID string) error {
	if err := h.perms.Require(models.PermManageMembers); err != nil {
		return models.ErrNotAuthorized
	}

	return execTx(ctx, h.sharedDB, func(ctx context.Context, tx DBTX) error {
		sql, args, _ := psql.
			Update("space_memberships").
			Set("status", models.StatusMember).
			Set("blocked_at", nil).
			Set("blocked_by", nil).
			Where(sq.Eq{
				"space_id": h.rawSpace.ID,
				"user_id":  targetID,
				"status":   models.StatusBlocked,
			}).
			ToSql()

		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			m, err := readMembership(ctx, tx, h.rawSpace.ID, targetID)
			if err != nil {
				return err
			}
			if m.Active() {
				return nil // nothing to unblock
			}
			return models.ErrNotAMember
		}
		return bumpMemberCount(ctx, tx, h.rawSpace.ID, 1)
	})
}

// Remove deletes the membership row entirely. History is gone; Block is
// the softer alternative.
func (h *SpaceH) Remove(ctx context.Context, targetID string) error {
	if err := h.perms.Require(models.PermManageMembers); err != nil {
		return models.ErrNotAuthorized
	}
	return removeMembership(ctx, h.sharedDB, h.rawSpace.ID, targetID)
}

// Leave lets the viewer remove their own membership.
func (h *SpaceH) Leave(ctx context.Context) error {
	if !h.membership.Active() {
		return models.ErrNotAMember
	}
	return removeMembership(ctx, h.sharedDB, h.rawSpace.ID, h.user.ID)
}

func removeMembership(ctx context.Context, db DBTX, spaceID, targetID string) error {
	return execTx(ctx, db, func(ctx context.Context, tx DBTX) error {
		var status models.MembershipStatus
		row := tx.QueryRow(ctx,
			"DELETE FROM space_memberships WHERE space_id = $1 AND user_id = $2 RETURNING status",
			spaceID, targetID)
		err := row.Scan(&status)
		if err == pgx.ErrNoRows {
			return models.ErrNotAMember
		}
		if err != nil {
			return err
		}
		// Blocked rows were already excluded from the count.
		if status == models.StatusMember {
			return bumpMemberCount(ctx, tx, spaceID, -1)
		}
		return nil
	})
}

// ListMembers joins membership rows with user summaries, oldest join
// first.
func (h *SpaceH) ListMembers(ctx context.Context) ([]models.Member, error) {
	sql, args, _ := psql.
		Select(
			"space_memberships.user_id",
			"users.name",
			"space_memberships.role",
			"space_memberships.status",
			"space_memberships.joined_at",
			"space_memberships.blocked_at",
			"space_memberships.blocked_by",
			"users.total_points",
		).
		From("space_memberships").
		Join("users ON space_memberships.user_id = users.id").
		Where(sq.Eq{"space_memberships.space_id": h.rawSpace.ID}).
		OrderBy("space_memberships.joined_at ASC").
		ToSql()

	members := []models.Member{}
	err := pgxscan.Select(ctx, h.sharedDB, &members, sql, args...)
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (h *SpaceH) ReadView(ctx context.Context) (*models.SpaceView, error) {
	view := &models.SpaceView{
		ID:              h.rawSpace.ID,
		Name:            h.rawSpace.Name,
		Description:     h.rawSpace.Description,
		Visibility:      h.rawSpace.Visibility,
		RequiresPayment: h.rawSpace.RequiresPayment,
		AutoJoin:        h.rawSpace.AutoJoin,
		MemberCount:     h.rawSpace.MemberCount,
		IsMember:        h.membership.Active(),
	}
	if h.user == nil {
		return view, nil
	}
	req, err := findPendingRequest(ctx, h.sharedDB, h.rawSpace.ID, h.user.ID)
	if err != nil {
		return nil, err
	}
	if req != nil {
		view.HasPendingRequest = true
		view.PendingRequestID = req.ID
	}
	return view, nil
}

// ensureMember transparently creates a membership before a first
// qualifying content action on auto_join spaces, then refreshes the
// handle's evaluated permissions.
func (h *SpaceH) ensureMember(ctx context.Context) error {
	if !models.ShouldAutoJoin(h.user, h.rawSpace, h.membership) {
		return models.ContentDenialError(h.rawSpace, h.membership)
	}
	err := execTx(ctx, h.sharedDB, func(ctx context.Context, tx DBTX) error {
		return insertMembership(ctx, tx, h.rawSpace.ID, h.user.ID, models.SpaceRoleMember)
	})
	if err != nil && !isUniqueViolation(err) {
		return err
	}
	membership, err := readMembership(ctx, h.sharedDB, h.rawSpace.ID, h.user.ID)
	if err != nil {
		return err
	}
	h.membership = membership
	h.perms = models.Evaluate(h.user, h.rawSpace, membership)
	return nil
}

// insertMembership creates an active membership row and bumps the cached
// member_count in the same transaction; both persist or neither does.
func insertMembership(ctx context.Context, tx DBTX, spaceID, userID string, role models.SpaceRole) error {
	sql, args, _ := psql.
		Insert("space_memberships").
		Columns("space_id", "user_id", "role", "status", "joined_at").
		Values(spaceID, userID, role, models.StatusMember, time.Now()).
		ToSql()

	_, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	return bumpMemberCount(ctx, tx, spaceID, 1)
}

func bumpMemberCount(ctx context.Context, db DBTX, spaceID string, delta int) error {
	_, err := db.Exec(ctx,
		"UPDATE spaces SET member_count = member_count + $1 WHERE id = $2",
		delta, spaceID)
	return err
}

func readRawSpace(ctx context.Context, db DBTX, spaceID string) (*models.Space, error) {
	space := &models.Space{}
	sql, args, _ := psql.
		Select("id", "name", "description", "visibility", "requires_payment", "auto_join", "member_count", "created_at").
		From("spaces").
		Where(sq.Eq{"id": spaceID}).
		ToSql()

	err := pgxscan.Get(ctx, db, space, sql, args...)
	if err != nil {
		return nil, err
	}
	return space, nil
}

// readMembership returns nil (not an error) when no row exists.
func readMembership(ctx context.Context, db DBTX, spaceID, userID string) (*models.SpaceMembership, error) {
	m := &models.SpaceMembership{}
	sql, args, _ := psql.
		Select("space_id", "user_id", "role", "status", "joined_at", "blocked_at", "blocked_by").
		From("space_memberships").
		Where(sq.Eq{"space_id": spaceID, "user_id": userID}).
		ToSql()

	err := pgxscan.Get(ctx, db, m, sql, args...)
	if pgxscan.NotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}
