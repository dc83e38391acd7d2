package db

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/pgxscan"
	"github.com/google/uuid"
	"gitlab.com/commonsward/commune/internal/models"
	"gitlab.com/commonsward/commune/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

type UserH struct {
	id       string
	sharedDB DBTX
}

func (h UserH) ID() string {
	return h.id
}

// CreateUser registers an account. A non-empty refCode must resolve to an
// existing user's referral code: the new user gets the welcome bonus and a
// back-reference to the referrer. The first registered user is the
// platform admin.
func (sdb *SharedDB) CreateUser(ctx context.Context, user *models.User, passwd string, refCode string) (UserH, error) {
	userH := UserH{sharedDB: sdb.db}
	if !utils.ValidateEmail(user.Email) {
		return userH, models.ErrInvalidFormat
	}

	var exists bool
	err := pgxscan.Get(ctx, sdb.db, &exists,
		"SELECT exists(SELECT 1 FROM users WHERE email = $1)", user.Email)
	if err != nil {
		return userH, err
	}
	if exists {
		return userH, models.ErrEmailAlreadyUsed
	}

	var referrer *models.User
	if refCode != "" {
		referrer, err = findUserByReferralCode(ctx, sdb.db, refCode)
		if err != nil {
			return userH, models.ErrBadReferralCode
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(passwd), sdb.bcryptCost)
	if err != nil {
		return userH, err
	}

	user.ID = uuid.New().String()
	user.Role = models.RoleLearner
	user.Tier = models.TierFree
	user.ReferralCode = utils.GenReferralCode(ReferralLen)
	user.CreatedAt = time.Now()

	err = execTx(ctx, sdb.db, func(ctx context.Context, tx DBTX) error {
		builder := psql.
			Insert("users").
			Columns("id", "name", "email", "passwd_hash", "role", "referral_code", "membership_tier", "created_at")
		vals := []interface{}{user.ID, user.Name, user.Email, hash, user.Role, user.ReferralCode, user.Tier, user.CreatedAt}
		if referrer != nil {
			builder = builder.Columns("referred_by")
			vals = append(vals, referrer.ID)
		}
		sql, args, _ := builder.Values(vals...).ToSql()
		_, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return err
		}

		// First user becomes admin.
		var count int
		row := tx.QueryRow(ctx, "SELECT COUNT(*) FROM users")
		if err := row.Scan(&count); err != nil {
			return err
		}
		if count == 1 {
			user.Role = models.RoleAdmin
			_, err = tx.Exec(ctx, "UPDATE users SET role = $1 WHERE id = $2", models.RoleAdmin, user.ID)
			if err != nil {
				return err
			}
		}

		if referrer != nil {
			user.ReferredBy.String = referrer.ID
			user.ReferredBy.Valid = true
			_, err = awardPoints(ctx, tx, user.ID, models.ReasonReferralBonus, referrer.ID)
			if err != nil {
				return err
			}
			user.TotalPoints = models.PointAmounts[models.ReasonReferralBonus]
		}
		return nil
	})
	// The exists pre-check races with concurrent signups; the unique
	// index is the authority.
	if uniqueViolationOn(err, "users_email_key") {
		return userH, models.ErrEmailAlreadyUsed
	}
	if err != nil {
		return userH, err
	}

	userH.id = user.ID
	return userH, nil
}

func (sdb *SharedDB) Login(ctx context.Context, email string, passwd string) (token string, err error) {
	sql, args, _ := psql.
		Select("id", "passwd_hash").
		From("users").
		Where(sq.Eq{"email": email}).
		ToSql()

	var data struct {
		ID         string
		PasswdHash string
	}
	err = pgxscan.Get(ctx, sdb.db, &data, sql, args...)
	if err != nil {
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(data.PasswdHash), []byte(passwd)); err != nil {
		return "", err
	}

	token = utils.GenToken(TokenLen)
	sql, args, _ = psql.
		Insert("tokens").
		Columns("user_id", "token").
		Values(data.ID, token).
		ToSql()

	_, err = sdb.db.Exec(ctx, sql, args...)
	if err != nil {
		return "", err
	}
	return token, nil
}

func (sdb *SharedDB) Signout(ctx context.Context, token string) error {
	_, err := sdb.db.Exec(ctx, "DELETE FROM tokens WHERE tokens.token = $1", token)
	return err
}

func (sdb *SharedDB) GetUserH(ctx context.Context, token string) (UserH, error) {
	sql, args, _ := psql.
		Select("user_id").
		From("tokens").
		Where(sq.Eq{"token": token}).
		ToSql()

	uH := UserH{sharedDB: sdb.db}
	row := sdb.db.QueryRow(ctx, sql, args...)
	err := row.Scan(&uH.id)
	if err != nil {
		return uH, err
	}
	return uH, nil
}

func (h UserH) Read(ctx context.Context) (*models.User, error) {
	return readUser(ctx, h.sharedDB, h.id)
}

// ReadView is the public profile: points total plus referral stats.
func (h UserH) ReadView(ctx context.Context) (*models.UserView, error) {
	view := &models.UserView{}
	sql, args, _ := psql.
		Select(
			"users.id",
			"users.name",
			"users.role",
			"users.total_points",
			"users.referral_code",
			"users.created_at",
			"COUNT(referred.id) AS referrals",
		).
		From("users").
		LeftJoin("users AS referred ON referred.referred_by = users.id").
		Where(sq.Eq{"users.id": h.id}).
		GroupBy("users.id").
		ToSql()

	err := pgxscan.Get(ctx, h.sharedDB, view, sql, args...)
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (h UserH) ListReferredUsers(ctx context.Context) ([]models.UserView, error) {
	sql, args, _ := psql.
		Select("id", "name", "role", "total_points", "referral_code", "created_at").
		From("users").
		Where(sq.Eq{"referred_by": h.id}).
		OrderBy("created_at ASC").
		ToSql()

	users := []models.UserView{}
	err := pgxscan.Select(ctx, h.sharedDB, &users, sql, args...)
	if err != nil {
		return nil, err
	}
	return users, nil
}

func readUser(ctx context.Context, db DBTX, userID string) (*models.User, error) {
	user := &models.User{}
	sql, args, _ := psql.
		Select("id", "name", "email", "role", "total_points", "referral_code",
			"referred_by", "membership_tier", "streak_days", "last_active_on", "created_at").
		From("users").
		Where(sq.Eq{"id": userID}).
		ToSql()

	err := pgxscan.Get(ctx, db, user, sql, args...)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func findUserByReferralCode(ctx context.Context, db DBTX, code string) (*models.User, error) {
	user := &models.User{}
	sql, args, _ := psql.
		Select("id", "name", "email", "role", "total_points", "referral_code",
			"referred_by", "membership_tier", "streak_days", "last_active_on", "created_at").
		From("users").
		Where(sq.Eq{"referral_code": code}).
		ToSql()

	err := pgxscan.Get(ctx, db, user, sql, args...)
	if err != nil {
		return nil, err
	}
	return user, nil
}
