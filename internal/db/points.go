package db

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"gitlab.com/commonsward/commune/internal/models"
)

// awardPoints appends a ledger row and bumps the running total in one
// transaction scope. The amount is fixed by the reason; returns it.
func awardPoints(ctx context.Context, tx DBTX, userID string, reason models.PointReason, relatedEntityID string) (int, error) {
	amount, ok := models.PointAmounts[reason]
	if !ok {
		return 0, fmt.Errorf("no award amount for reason %q", reason)
	}
	err := appendTransaction(ctx, tx, userID, amount, reason, relatedEntityID)
	return amount, err
}

// revokePoints undoes a prior award keyed on (user, reason, entity). The
// insert is guarded by the net balance of the pair in a single compound
// statement, so concurrent toggles cannot push the pair negative: a cycle
// of award/revoke always returns the total to its pre-cycle value.
func revokePoints(ctx context.Context, tx DBTX, userID string, awardReason models.PointReason, relatedEntityID string) error {
	amount, ok := models.PointAmounts[awardReason]
	if !ok {
		return fmt.Errorf("no award amount for reason %q", awardReason)
	}

	tag, err := tx.Exec(ctx,
		`INSERT INTO point_transactions (id, user_id, amount, reason, related_entity_id, created_at)
		 SELECT $1, $2, $3, $4, $5, $6
		 WHERE (
			SELECT COALESCE(SUM(amount), 0) FROM point_transactions
			WHERE user_id = $2 AND related_entity_id = $5 AND reason IN ($7, $4)
		 ) >= $8`,
		uuid.New().String(), userID, -amount, awardReason.Inverse(), relatedEntityID,
		time.Now(), awardReason, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return nil // nothing left to revoke
	}
	_, err = tx.Exec(ctx,
		"UPDATE users SET total_points = total_points + $1 WHERE id = $2",
		-amount, userID)
	return err
}

func appendTransaction(ctx context.Context, tx DBTX, userID string, amount int, reason models.PointReason, relatedEntityID string) error {
	sql, args, _ := psql.
		Insert("point_transactions").
		Columns("id", "user_id", "amount", "reason", "related_entity_id", "created_at").
		Values(uuid.New().String(), userID, amount, reason, relatedEntityID, time.Now()).
		ToSql()

	_, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		"UPDATE users SET total_points = total_points + $1 WHERE id = $2",
		amount, userID)
	return err
}

func (sdb *SharedDB) Award(ctx context.Context, userID string, reason models.PointReason, relatedEntityID string) error {
	return execTx(ctx, sdb.db, func(ctx context.Context, tx DBTX) error {
		_, err := awardPoints(ctx, tx, userID, reason, relatedEntityID)
		return err
	})
}

func (sdb *SharedDB) Revoke(ctx context.Context, userID string, awardReason models.PointReason, relatedEntityID string) error {
	return execTx(ctx, sdb.db, func(ctx context.Context, tx DBTX) error {
		return revokePoints(ctx, tx, userID, awardReason, relatedEntityID)
	})
}

func (h UserH) PointHistory(ctx context.Context) ([]models.PointTransaction, error) {
	sql, args, _ := psql.
		Select("id", "user_id", "amount", "reason", "related_entity_id", "created_at").
		From("point_transactions").
		Where(sq.Eq{"user_id": h.id}).
		OrderBy("created_at DESC").
		ToSql()

	txs := []models.PointTransaction{}
	err := pgxscan.Select(ctx, h.sharedDB, &txs, sql, args...)
	if err != nil {
		return nil, err
	}
	return txs, nil
}

func (h UserH) Credits(ctx context.Context) (models.Credits, error) {
	user, err := readUser(ctx, h.sharedDB, h.id)
	if err != nil {
		return models.Credits{}, err
	}
	return models.ComputeCredits(user.TotalPoints), nil
}

// ApplyCredits applies available credit to an amount due. Full coverage
// debits the consumed points immediately and never contacts the gateway.
// Partial coverage charges the remainder through the gateway and defers
// the debit to ConfirmOrder, so points are never spent on an unconfirmed
// charge.
func (sdb *SharedDB) ApplyCredits(ctx context.Context, uH UserH, amountDue int64, currency models.Currency, gateway models.PaymentGateway) (*models.Payment, error) {
	if amountDue <= 0 {
		return nil, models.ErrInvalidFormat
	}

	payment := &models.Payment{
		ID:        uuid.New().String(),
		UserID:    uH.id,
		Currency:  currency,
		AmountDue: amountDue,
		CreatedAt: time.Now(),
	}

	user, err := readUser(ctx, sdb.db, uH.id)
	if err != nil {
		return nil, err
	}
	credit := models.CreditMinor(user.TotalPoints, currency)

	if credit >= amountDue {
		payment.CreditApplied = amountDue
		payment.AmountToCharge = 0
		payment.Status = models.PaymentSatisfied
		points := models.PointsToCover(amountDue, currency)

		err = execTx(ctx, sdb.db, func(ctx context.Context, tx DBTX) error {
			// Re-check under the row lock; another request may have
			// spent the points since the read above.
			row := tx.QueryRow(ctx, "SELECT total_points FROM users WHERE id = $1 FOR UPDATE", uH.id)
			var current int
			if err := row.Scan(&current); err != nil {
				return err
			}
			if models.CreditMinor(current, currency) < amountDue {
				return models.ErrForbidden
			}
			if err := appendTransaction(ctx, tx, uH.id, -points, models.ReasonCreditRedemption, payment.ID); err != nil {
				return err
			}
			return insertPayment(ctx, tx, payment)
		})
		if err != nil {
			return nil, err
		}
		return payment, nil
	}

	payment.CreditApplied = credit
	payment.AmountToCharge = amountDue - credit
	payment.Status = models.PaymentPendingGateway

	orderRef, err := gateway.CreateOrder(ctx, payment.AmountToCharge, currency)
	if err != nil {
		return nil, fmt.Errorf("creating gateway order: %w", err)
	}
	payment.OrderRef = orderRef

	err = execTx(ctx, sdb.db, func(ctx context.Context, tx DBTX) error {
		return insertPayment(ctx, tx, payment)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// ConfirmOrder settles a gateway-pending payment. The conditional status
// transition makes confirmation idempotent: a replayed or out-of-order
// confirmation can never debit twice.
func (sdb *SharedDB) ConfirmOrder(ctx context.Context, orderRef string) (*models.Payment, error) {
	payment := &models.Payment{}
	err := execTx(ctx, sdb.db, func(ctx context.Context, tx DBTX) error {
		row := tx.QueryRow(ctx,
			`UPDATE payments SET status = $1
			 WHERE order_ref = $2 AND status = $3
			 RETURNING id, user_id, currency, amount_due, credit_applied, amount_to_charge, order_ref, status, created_at`,
			models.PaymentSatisfied, orderRef, models.PaymentPendingGateway)
		err := row.Scan(&payment.ID, &payment.UserID, &payment.Currency, &payment.AmountDue,
			&payment.CreditApplied, &payment.AmountToCharge, &payment.OrderRef, &payment.Status, &payment.CreatedAt)
		if err == pgx.ErrNoRows {
			return models.ErrNotFound
		}
		if err != nil {
			return err
		}
		if payment.CreditApplied == 0 {
			return nil
		}
		points := models.PointsToCover(payment.CreditApplied, payment.Currency)
		return appendTransaction(ctx, tx, payment.UserID, -points, models.ReasonCreditRedemption, payment.ID)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func insertPayment(ctx context.Context, tx DBTX, p *models.Payment) error {
	sql, args, _ := psql.
		Insert("payments").
		Columns("id", "user_id", "currency", "amount_due", "credit_applied", "amount_to_charge", "order_ref", "status", "created_at").
		Values(p.ID, p.UserID, p.Currency, p.AmountDue, p.CreditApplied, p.AmountToCharge, p.OrderRef, p.Status, p.CreatedAt).
		ToSql()
	_, err := tx.Exec(ctx, sql, args...)
	return err
}

// touchActivity advances the user's daily streak on a qualifying action.
// Crossing a milestone awards streak points and notifies, best-effort.
func touchActivity(ctx context.Context, db DBTX, notifService models.NotificationService, userID string) error {
	var milestone int
	err := execTx(ctx, db, func(ctx context.Context, tx DBTX) error {
		row := tx.QueryRow(ctx,
			"SELECT streak_days, last_active_on FROM users WHERE id = $1 FOR UPDATE", userID)
		var user models.User
		if err := row.Scan(&user.StreakDays, &user.LastActiveOn); err != nil {
			return err
		}

		today := dateOnly(time.Now())
		prev := user.StreakDays
		switch {
		case user.LastActiveOn.Valid && sameDay(user.LastActiveOn.Time, today):
			return nil
		case user.LastActiveOn.Valid && sameDay(user.LastActiveOn.Time, today.AddDate(0, 0, -1)):
			user.StreakDays++
		default:
			user.StreakDays = 1
		}

		_, err := tx.Exec(ctx,
			"UPDATE users SET streak_days = $1, last_active_on = $2 WHERE id = $3",
			user.StreakDays, today, userID)
		if err != nil {
			return err
		}

		m, crossed := models.CrossedMilestone(prev, user.StreakDays)
		if !crossed {
			return nil
		}
		milestone = m
		_, err = awardPoints(ctx, tx, userID, models.ReasonStreakMilestone, fmt.Sprintf("streak-%d", m))
		return err
	})
	if err != nil || milestone == 0 {
		return err
	}

	notifErr := notifService.Send(ctx, &models.Notification{
		NotifType: models.NotifTypeStreak,
		Title:     "streak milestone",
		Text:      fmt.Sprintf("%d day streak, keep it up", milestone),
	}, userID)
	if notifErr != nil {
		zerolog.Ctx(ctx).Warn().Err(notifErr).Str("user_id", userID).Msg("notification dispatch failed")
	}
	return nil
}

// dateOnly keeps the calendar date in the local zone; Truncate would cut
// to UTC midnight and disagree with sameDay around day boundaries.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
