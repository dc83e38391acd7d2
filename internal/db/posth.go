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

type PostH struct {
	sharedDB     DBTX
	spaceH       *SpaceH
	id           string
	notifService models.NotificationService
}

func (h PostH) ID() string {
	return h.id
}

// CreatePost is a qualifying action: on auto_join spaces it transparently
// creates the membership first. Awards post_created points.
func (h *SpaceH) CreatePost(ctx context.Context, post *models.Post) (*PostH, error) {
	if !h.perms.Check(models.PermCreatePost) {
		if err := h.ensureMember(ctx); err != nil {
			return nil, err
		}
		if !h.perms.Check(models.PermCreatePost) {
			return nil, models.ContentDenialError(h.rawSpace, h.membership)
		}
	}
	if post.Body == "" || len(post.Body) > LimitMaxBodyCh {
		return nil, models.ErrInvalidFormat
	}

	post.ID = uuid.New().String()
	post.SpaceID = h.rawSpace.ID
	post.AuthorID = h.user.ID
	post.CreatedAt = time.Now()

	err := execTx(ctx, h.sharedDB, func(ctx context.Context, tx DBTX) error {
		sql, args, _ := psql.
			Insert("posts").
			Columns("id", "space_id", "author_id", "title", "body", "created_at").
			Values(post.ID, post.SpaceID, post.AuthorID, post.Title, post.Body, post.CreatedAt).
			ToSql()
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return err
		}
		_, err := awardPoints(ctx, tx, h.user.ID, models.ReasonPostCreated, post.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	h.touchActivityLogged(ctx)
	return &PostH{h.sharedDB, h, post.ID, h.notifService}, nil
}

func (h *SpaceH) GetPostH(ctx context.Context, postID string) (*PostH, error) {
	sql, args, _ := psql.
		Select("1").
		From("posts").
		Where(sq.Eq{"id": postID, "space_id": h.rawSpace.ID}).
		ToSql()

	var one int
	row := h.sharedDB.QueryRow(ctx, sql, args...)
	if err := row.Scan(&one); err != nil {
		return nil, models.ErrNotFound
	}
	return &PostH{h.sharedDB, h, postID, h.notifService}, nil
}

func (h *SpaceH) ListPosts(ctx context.Context) ([]models.PostView, error) {
	sql, args, _ := psql.
		Select(
			"posts.id",
			"posts.space_id",
			"posts.author_id",
			"users.name AS author_name",
			"posts.title",
			"posts.body",
			"posts.created_at",
			"COUNT(reactions.user_id) AS reaction_count",
		).
		From("posts").
		Join("users ON posts.author_id = users.id").
		LeftJoin("reactions ON reactions.post_id = posts.id").
		Where(sq.Eq{"posts.space_id": h.rawSpace.ID}).
		GroupBy("posts.id", "users.name").
		OrderBy("posts.created_at DESC").
		ToSql()

	posts := []models.PostView{}
	err := pgxscan.Select(ctx, h.sharedDB, &posts, sql, args...)
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (h PostH) Read(ctx context.Context) (*models.Post, error) {
	post := &models.Post{}
	sql, args, _ := psql.
		Select("id", "space_id", "author_id", "title", "body", "created_at").
		From("posts").
		Where(sq.Eq{"id": h.id}).
		ToSql()

	err := pgxscan.Get(ctx, h.sharedDB, post, sql, args...)
	if err != nil {
		return nil, err
	}
	return post, nil
}

// CreateComment awards comment_created points and notifies the post
// author, unless commenting on one's own post.
func (h PostH) CreateComment(ctx context.Context, comment *models.Comment) error {
	sp := h.spaceH
	if !sp.perms.Check(models.PermCreateComment) {
		if err := sp.ensureMember(ctx); err != nil {
			return err
		}
		if !sp.perms.Check(models.PermCreateComment) {
			return models.ContentDenialError(sp.rawSpace, sp.membership)
		}
	}
	if comment.Body == "" || len(comment.Body) > LimitMaxBodyCh {
		return models.ErrInvalidFormat
	}

	comment.ID = uuid.New().String()
	comment.PostID = h.id
	comment.AuthorID = sp.user.ID
	comment.CreatedAt = time.Now()

	err := execTx(ctx, h.sharedDB, func(ctx context.Context, tx DBTX) error {
		sql, args, _ := psql.
			Insert("comments").
			Columns("id", "post_id", "author_id", "body", "created_at").
			Values(comment.ID, comment.PostID, comment.AuthorID, comment.Body, comment.CreatedAt).
			ToSql()
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return err
		}
		_, err := awardPoints(ctx, tx, sp.user.ID, models.ReasonCommentCreated, comment.ID)
		return err
	})
	if err != nil {
		return err
	}

	post, err := h.Read(ctx)
	if err == nil && post.AuthorID != sp.user.ID {
		notifErr := h.notifService.Send(ctx, &models.Notification{
			NotifType: models.NotifTypeComment,
			Title:     sp.user.Name,
			Text:      "commented on your post",
		}, post.AuthorID)
		if notifErr != nil {
			zerolog.Ctx(ctx).Warn().Err(notifErr).Msg("notification dispatch failed")
		}
	}
	return sp.touchActivityLogged(ctx)
}

func (h PostH) ListComments(ctx context.Context) ([]models.CommentView, error) {
	sql, args, _ := psql.
		Select(
			"comments.id",
			"comments.post_id",
			"comments.author_id",
			"users.name AS author_name",
			"comments.body",
			"comments.created_at",
		).
		From("comments").
		Join("users ON comments.author_id = users.id").
		Where(sq.Eq{"comments.post_id": h.id}).
		OrderBy("comments.created_at ASC").
		ToSql()

	comments := []models.CommentView{}
	err := pgxscan.Select(ctx, h.sharedDB, &comments, sql, args...)
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// React toggles a reaction on. The unique (post_id, user_id) row decides
// whether a point is awarded: an insert that conflicts away awards
// nothing, so reacting twice nets a single point.
func (h PostH) React(ctx context.Context) error {
	sp := h.spaceH
	if !sp.perms.Check(models.PermReact) {
		if err := sp.ensureMember(ctx); err != nil {
			return err
		}
		if !sp.perms.Check(models.PermReact) {
			return models.ContentDenialError(sp.rawSpace, sp.membership)
		}
	}

	err := execTx(ctx, h.sharedDB, func(ctx context.Context, tx DBTX) error {
		tag, err := tx.Exec(ctx,
			`INSERT INTO reactions (post_id, user_id, created_at) VALUES ($1, $2, $3)
			 ON CONFLICT (post_id, user_id) DO NOTHING`,
			h.id, sp.user.ID, time.Now())
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil // already reacted
		}
		_, err = awardPoints(ctx, tx, sp.user.ID, models.ReasonReactionGiven, h.id)
		return err
	})
	if err != nil {
		return err
	}
	return sp.touchActivityLogged(ctx)
}

// Unreact toggles the reaction off and revokes the matching point. The
// revoke is paired with the award on (user, reason, post), so repeated
// cycles leave the total exactly where it started.
func (h PostH) Unreact(ctx context.Context) error {
	sp := h.spaceH
	if !sp.perms.Check(models.PermReact) {
		return models.ContentDenialError(sp.rawSpace, sp.membership)
	}

	return execTx(ctx, h.sharedDB, func(ctx context.Context, tx DBTX) error {
		tag, err := tx.Exec(ctx,
			"DELETE FROM reactions WHERE post_id = $1 AND user_id = $2",
			h.id, sp.user.ID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil // no reaction to remove
		}
		return revokePoints(ctx, tx, sp.user.ID, models.ReasonReactionGiven, h.id)
	})
}

func (h PostH) CountReactions(ctx context.Context) (int, error) {
	var count int
	row := h.sharedDB.QueryRow(ctx, "SELECT COUNT(*) FROM reactions WHERE post_id = $1", h.id)
	err := row.Scan(&count)
	return count, err
}

// touchActivityLogged advances the streak best-effort after a content
// action; a failure never fails the action itself.
func (h *SpaceH) touchActivityLogged(ctx context.Context) error {
	if err := touchActivity(ctx, h.sharedDB, h.notifService, h.user.ID); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("streak update failed")
	}
	return nil
}
