package db

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/georgysavva/scany/pgxscan"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gitlab.com/commonsward/commune/internal/models"
)

var sdb SharedDB

func TestMain(m *testing.M) {
	dbURL := os.Getenv("COMMUNE_TEST_DATABASE_URL")
	if dbURL != "" {
		if err := os.Chdir("./../.."); err != nil {
			panic(err)
		}

		// Reset database before testing
		if err := MigrateDown(dbURL); err != nil {
			panic(err)
		}
		if err := MigrateUp(dbURL); err != nil {
			panic(err)
		}

		config := &models.EnvConfig{DatabaseURL: dbURL, Debug: true}
		var err error
		sdb, err = Connect(context.Background(), config)
		if err != nil {
			panic(err)
		}
	}
	os.Exit(m.Run())
}

// requireDB skips the tests that need a live database; pure query-builder
// tests run regardless.
func requireDB(t *testing.T) {
	t.Helper()
	if sdb.db == nil {
		t.Skip("COMMUNE_TEST_DATABASE_URL not set")
	}
}

func mockUser(t *testing.T) (UserH, *models.User) {
	t.Helper()
	requireDB(t)
	user := &models.User{
		Name:  "pippo",
		Email: fmt.Sprintf("pippo+%s@strana.com", uuid.New().String()[:8]),
	}
	uH, err := sdb.CreateUser(context.Background(), user, "verysecret", "")
	require.NoError(t, err)
	return uH, user
}

func mockSpace(t *testing.T, adminH UserH, vis models.Visibility, autoJoin bool) *SpaceH {
	t.Helper()
	spaceH, err := sdb.CreateSpace(context.Background(), adminH, &models.SpaceReq{
		Name:       "space-" + uuid.New().String()[:8],
		Visibility: vis,
		AutoJoin:   autoJoin,
	})
	require.NoError(t, err)
	return spaceH
}

// adminUser returns a handle with the admin role. The first registered
// user is the admin; everyone else gets promoted directly in the table.
func adminUser(t *testing.T) UserH {
	t.Helper()
	uH, _ := mockUser(t)
	_, err := sdb.db.Exec(context.Background(),
		"UPDATE users SET role = 'admin' WHERE id = $1", uH.id)
	require.NoError(t, err)
	return uH
}

func memberCount(t *testing.T, spaceID string) int {
	t.Helper()
	var cached int
	err := pgxscan.Get(context.Background(), sdb.db, &cached,
		"SELECT member_count FROM spaces WHERE id = $1", spaceID)
	require.NoError(t, err)

	var counted int
	err = pgxscan.Get(context.Background(), sdb.db, &counted,
		"SELECT COUNT(*) FROM space_memberships WHERE space_id = $1 AND status = 'member'", spaceID)
	require.NoError(t, err)
	require.Equal(t, counted, cached, "cached member_count must equal the count of active memberships")
	return cached
}

func totalPoints(t *testing.T, userID string) int {
	t.Helper()
	var total int
	err := pgxscan.Get(context.Background(), sdb.db, &total,
		"SELECT total_points FROM users WHERE id = $1", userID)
	require.NoError(t, err)

	var summed int
	err = pgxscan.Get(context.Background(), sdb.db, &summed,
		"SELECT COALESCE(SUM(amount), 0) FROM point_transactions WHERE user_id = $1", userID)
	require.NoError(t, err)
	require.Equal(t, summed, total, "total_points must equal the ledger sum")
	return total
}

func TestMembershipLifecycle(t *testing.T) {
	ctx := context.Background()
	adminH := adminUser(t)
	spaceH := mockSpace(t, adminH, models.VisibilityPublic, false)
	uH, _ := mockUser(t)

	base := memberCount(t, spaceH.ID())

	require.NoError(t, sdb.Join(ctx, spaceH.ID(), uH))
	require.Equal(t, base+1, memberCount(t, spaceH.ID()))

	// Joining twice is a state conflict.
	require.ErrorIs(t, sdb.Join(ctx, spaceH.ID(), uH), models.ErrAlreadyMember)
	require.Equal(t, base+1, memberCount(t, spaceH.ID()))

	// Promote, then promote again: idempotent no-op success.
	require.NoError(t, spaceH.Promote(ctx, uH.ID()))
	require.NoError(t, spaceH.Promote(ctx, uH.ID()))
	m, err := readMembership(ctx, sdb.db, spaceH.ID(), uH.ID())
	require.NoError(t, err)
	require.Equal(t, models.SpaceRoleManager, m.Role)

	require.NoError(t, spaceH.Demote(ctx, uH.ID()))
	m, err = readMembership(ctx, sdb.db, spaceH.ID(), uH.ID())
	require.NoError(t, err)
	require.Equal(t, models.SpaceRoleMember, m.Role)

	// Block keeps the row but leaves the active count.
	require.NoError(t, spaceH.Block(ctx, uH.ID()))
	require.Equal(t, base, memberCount(t, spaceH.ID()))
	m, err = readMembership(ctx, sdb.db, spaceH.ID(), uH.ID())
	require.NoError(t, err)
	require.True(t, m.Blocked())
	require.True(t, m.BlockedAt.Valid)
	require.NoError(t, spaceH.Block(ctx, uH.ID()), "blocking twice is a no-op")

	require.NoError(t, spaceH.Unblock(ctx, uH.ID()))
	require.Equal(t, base+1, memberCount(t, spaceH.ID()))

	require.NoError(t, spaceH.Remove(ctx, uH.ID()))
	require.Equal(t, base, memberCount(t, spaceH.ID()))
	require.ErrorIs(t, spaceH.Remove(ctx, uH.ID()), models.ErrNotAMember)
}

func TestManageRequiresAuthority(t *testing.T) {
	ctx := context.Background()
	adminH := adminUser(t)
	spaceH := mockSpace(t, adminH, models.VisibilityPublic, false)
	uH, _ := mockUser(t)
	targetH, _ := mockUser(t)
	require.NoError(t, sdb.Join(ctx, spaceH.ID(), uH))
	require.NoError(t, sdb.Join(ctx, spaceH.ID(), targetH))

	// A plain member cannot manage.
	memberView, err := sdb.GetSpaceH(ctx, spaceH.ID(), &uH)
	require.NoError(t, err)
	require.ErrorIs(t, memberView.Promote(ctx, targetH.ID()), models.ErrNotAuthorized)
	require.ErrorIs(t, memberView.Block(ctx, targetH.ID()), models.ErrNotAuthorized)
	require.ErrorIs(t, memberView.Remove(ctx, targetH.ID()), models.ErrNotAuthorized)
	_, err = memberView.ListPendingRequests(ctx)
	require.ErrorIs(t, err, models.ErrNotAuthorized)

	// Promoting a non-member fails even with authority.
	outsiderH, _ := mockUser(t)
	require.ErrorIs(t, spaceH.Promote(ctx, outsiderH.ID()), models.ErrNotAMember)
}

func TestPrivateSpaceAccess(t *testing.T) {
	ctx := context.Background()
	adminH := adminUser(t)
	spaceH := mockSpace(t, adminH, models.VisibilityPrivate, false)
	uH, _ := mockUser(t)

	// Direct join is denied by visibility.
	require.ErrorIs(t, sdb.Join(ctx, spaceH.ID(), uH), models.ErrVisibilityDenied)

	// No handle without membership.
	_, err := sdb.GetSpaceH(ctx, spaceH.ID(), &uH)
	require.ErrorIs(t, err, models.ErrVisibilityDenied)

	// Secret spaces hide their existence.
	secretH := mockSpace(t, adminH, models.VisibilitySecret, false)
	_, err = sdb.GetSpaceH(ctx, secretH.ID(), &uH)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestJoinRequestWorkflow(t *testing.T) {
	ctx := context.Background()
	adminH := adminUser(t)
	spaceH := mockSpace(t, adminH, models.VisibilityPrivate, false)
	uH, _ := mockUser(t)

	req, err := sdb.RequestJoin(ctx, spaceH.ID(), uH, "let me in")
	require.NoError(t, err)
	require.Equal(t, models.JoinRequestPending, req.State)

	// Only one pending request per (space, user).
	_, err = sdb.RequestJoin(ctx, spaceH.ID(), uH, "again")
	require.ErrorIs(t, err, models.ErrDuplicatePending)

	pending, err := spaceH.ListPendingRequests(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, req.ID, pending[0].ID)

	base := memberCount(t, spaceH.ID())
	require.NoError(t, spaceH.ApproveJoinRequest(ctx, req.ID))
	require.Equal(t, base+1, memberCount(t, spaceH.ID()))

	// Terminal states never transition again.
	require.ErrorIs(t, spaceH.ApproveJoinRequest(ctx, req.ID), models.ErrInvalidTransition)
	require.ErrorIs(t, spaceH.RejectJoinRequest(ctx, req.ID), models.ErrInvalidTransition)

	// The member can now post.
	memberView, err := sdb.GetSpaceH(ctx, spaceH.ID(), &uH)
	require.NoError(t, err)
	_, err = memberView.CreatePost(ctx, &models.Post{Title: "hello", Body: "first post"})
	require.NoError(t, err)

	// An active member cannot open another request.
	_, err = sdb.RequestJoin(ctx, spaceH.ID(), uH, "redundant")
	require.ErrorIs(t, err, models.ErrAlreadyMember)

	// Rejection is terminal too and creates no membership.
	otherH, _ := mockUser(t)
	req2, err := sdb.RequestJoin(ctx, spaceH.ID(), otherH, "me too")
	require.NoError(t, err)
	require.NoError(t, spaceH.RejectJoinRequest(ctx, req2.ID))
	require.ErrorIs(t, spaceH.ApproveJoinRequest(ctx, req2.ID), models.ErrInvalidTransition)
	m, err := readMembership(ctx, sdb.db, spaceH.ID(), otherH.ID())
	require.NoError(t, err)
	require.Nil(t, m)

	require.ErrorIs(t, spaceH.ApproveJoinRequest(ctx, uuid.New().String()), models.ErrNotFound)
}

func TestPendingRequestVisibleInListings(t *testing.T) {
	ctx := context.Background()
	adminH := adminUser(t)
	spaceH := mockSpace(t, adminH, models.VisibilityPublic, false)
	uH, _ := mockUser(t)

	req, err := sdb.RequestJoin(ctx, spaceH.ID(), uH, "")
	require.NoError(t, err)

	spaces, err := sdb.ListSpaces(ctx, &uH)
	require.NoError(t, err)
	var found bool
	for _, s := range spaces {
		if s.ID == spaceH.ID() {
			found = true
			require.True(t, s.HasPendingRequest)
			require.Equal(t, req.ID, s.PendingRequestID)
		}
	}
	require.True(t, found)
}

func TestListSpacesQuery(t *testing.T) {
	// Anonymous viewers bind NULL for the join conditions; an empty
	// string is not a valid value for the uuid columns.
	sql, args, err := listSpacesQuery(nil, nil)
	require.NoError(t, err)
	require.Nil(t, args[0])
	require.Nil(t, args[1])
	require.Contains(t, sql, "COALESCE(jr.id::text, '')",
		"jr.id must be cast to text before coalescing with a string")
	require.Contains(t, sql, "spaces.visibility")

	// Admins see every space: no visibility filter at all.
	admin := &models.User{ID: "a1", Role: models.RoleAdmin}
	sql, args, err = listSpacesQuery(admin, admin.ID)
	require.NoError(t, err)
	require.NotContains(t, sql, "WHERE")
	require.Equal(t, []interface{}{admin.ID, admin.ID}, args)
}

func TestListSpacesAnonymous(t *testing.T) {
	ctx := context.Background()
	adminH := adminUser(t)
	public := mockSpace(t, adminH, models.VisibilityPublic, false)
	private := mockSpace(t, adminH, models.VisibilityPrivate, false)

	spaces, err := sdb.ListSpaces(ctx, nil)
	require.NoError(t, err)

	var sawPublic, sawPrivate bool
	for _, s := range spaces {
		switch s.ID {
		case public.ID():
			sawPublic = true
			require.False(t, s.IsMember)
			require.False(t, s.HasPendingRequest)
		case private.ID():
			sawPrivate = true
		}
	}
	require.True(t, sawPublic, "public spaces are listed for anonymous viewers")
	require.False(t, sawPrivate)
}

func TestBlockedMemberForbidden(t *testing.T) {
	ctx := context.Background()
	adminH := adminUser(t)
	spaceH := mockSpace(t, adminH, models.VisibilityPublic, false)
	uH, _ := mockUser(t)
	require.NoError(t, sdb.Join(ctx, spaceH.ID(), uH))

	memberView, err := sdb.GetSpaceH(ctx, spaceH.ID(), &uH)
	require.NoError(t, err)
	postH, err := memberView.CreatePost(ctx, &models.Post{Body: "pre-block post"})
	require.NoError(t, err)

	require.NoError(t, spaceH.Promote(ctx, uH.ID()))
	require.NoError(t, spaceH.Block(ctx, uH.ID()))

	// Fresh handle sees the block; content actions are Forbidden even
	// though the row still carries the manager role.
	blockedView, err := sdb.GetSpaceH(ctx, spaceH.ID(), &uH)
	require.NoError(t, err, "blocked member may still view a public space")

	_, err = blockedView.CreatePost(ctx, &models.Post{Body: "never lands"})
	require.ErrorIs(t, err, models.ErrForbidden)

	blockedPostH, err := blockedView.GetPostH(ctx, postH.ID())
	require.NoError(t, err)
	require.ErrorIs(t, blockedPostH.React(ctx), models.ErrForbidden)
	require.ErrorIs(t, blockedPostH.CreateComment(ctx, &models.Comment{Body: "nope"}), models.ErrForbidden)
	require.ErrorIs(t, blockedView.Promote(ctx, uH.ID()), models.ErrNotAuthorized)
}

func TestReactionToggleIdempotence(t *testing.T) {
	ctx := context.Background()
	adminH := adminUser(t)
	spaceH := mockSpace(t, adminH, models.VisibilityPublic, false)
	authorH, _ := mockUser(t)
	reactorH, _ := mockUser(t)
	require.NoError(t, sdb.Join(ctx, spaceH.ID(), authorH))
	require.NoError(t, sdb.Join(ctx, spaceH.ID(), reactorH))

	authorView, err := sdb.GetSpaceH(ctx, spaceH.ID(), &authorH)
	require.NoError(t, err)
	postH, err := authorView.CreatePost(ctx, &models.Post{Body: "react to me"})
	require.NoError(t, err)

	reactorView, err := sdb.GetSpaceH(ctx, spaceH.ID(), &reactorH)
	require.NoError(t, err)
	reactorPostH, err := reactorView.GetPostH(ctx, postH.ID())
	require.NoError(t, err)

	before := totalPoints(t, reactorH.ID())

	// Any number of toggle cycles returns to the pre-cycle value.
	for i := 0; i < 3; i++ {
		require.NoError(t, reactorPostH.React(ctx))
		require.Equal(t, before+1, totalPoints(t, reactorH.ID()))

		// Reacting again must not farm points.
		require.NoError(t, reactorPostH.React(ctx))
		require.Equal(t, before+1, totalPoints(t, reactorH.ID()))

		require.NoError(t, reactorPostH.Unreact(ctx))
		require.Equal(t, before, totalPoints(t, reactorH.ID()))

		// Un-reacting twice must not drain points either.
		require.NoError(t, reactorPostH.Unreact(ctx))
		require.Equal(t, before, totalPoints(t, reactorH.ID()))
	}

	count, err := reactorPostH.CountReactions(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestContentAwardsPoints(t *testing.T) {
	ctx := context.Background()
	adminH := adminUser(t)
	spaceH := mockSpace(t, adminH, models.VisibilityPublic, false)
	uH, _ := mockUser(t)
	require.NoError(t, sdb.Join(ctx, spaceH.ID(), uH))

	before := totalPoints(t, uH.ID())

	memberView, err := sdb.GetSpaceH(ctx, spaceH.ID(), &uH)
	require.NoError(t, err)
	postH, err := memberView.CreatePost(ctx, &models.Post{Body: "worth some points"})
	require.NoError(t, err)
	afterPost := totalPoints(t, uH.ID())
	require.Equal(t, before+models.PointAmounts[models.ReasonPostCreated], afterPost)

	require.NoError(t, postH.CreateComment(ctx, &models.Comment{Body: "self comment"}))
	require.Equal(t, afterPost+models.PointAmounts[models.ReasonCommentCreated], totalPoints(t, uH.ID()))
}

func TestAutoJoinOnFirstQualifyingAction(t *testing.T) {
	ctx := context.Background()
	adminH := adminUser(t)
	autoH := mockSpace(t, adminH, models.VisibilityPublic, true)
	strictH := mockSpace(t, adminH, models.VisibilityPublic, false)
	uH, _ := mockUser(t)

	// auto_join space: first post joins transparently.
	view, err := sdb.GetSpaceH(ctx, autoH.ID(), &uH)
	require.NoError(t, err)
	_, err = view.CreatePost(ctx, &models.Post{Body: "drive-by post"})
	require.NoError(t, err)
	m, err := readMembership(ctx, sdb.db, autoH.ID(), uH.ID())
	require.NoError(t, err)
	require.True(t, m.Active())

	// Without auto_join the explicit join is required.
	view, err = sdb.GetSpaceH(ctx, strictH.ID(), &uH)
	require.NoError(t, err)
	_, err = view.CreatePost(ctx, &models.Post{Body: "rejected"})
	require.ErrorIs(t, err, models.ErrForbidden)
}

func TestReferralRegistration(t *testing.T) {
	ctx := context.Background()
	_, referrer := mockUser(t)

	referred := &models.User{
		Name:  "novice",
		Email: fmt.Sprintf("novice+%s@strana.com", uuid.New().String()[:8]),
	}
	refH, err := sdb.CreateUser(ctx, referred, "verysecret", referrer.ReferralCode)
	require.NoError(t, err)

	// Welcome bonus lands on the new user's ledger.
	require.Equal(t, models.PointAmounts[models.ReasonReferralBonus], totalPoints(t, refH.ID()))

	// The referrer sees the new user in their referred list and count.
	referrerH := UserH{id: referrer.ID, sharedDB: sdb.db}
	referredList, err := referrerH.ListReferredUsers(ctx)
	require.NoError(t, err)
	require.Len(t, referredList, 1)
	require.Equal(t, refH.ID(), referredList[0].ID)

	view, err := referrerH.ReadView(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, view.Referrals)

	// A bogus code rejects the registration.
	bogus := &models.User{Name: "x", Email: fmt.Sprintf("x+%s@strana.com", uuid.New().String()[:8])}
	_, err = sdb.CreateUser(ctx, bogus, "verysecret", "NO-SUCH-CODE")
	require.ErrorIs(t, err, models.ErrBadReferralCode)
}

type fakeGateway struct {
	orders []string
}

func (g *fakeGateway) CreateOrder(ctx context.Context, amountMinor int64, currency models.Currency) (string, error) {
	ref := "order_" + uuid.New().String()
	g.orders = append(g.orders, ref)
	return ref, nil
}

func TestApplyCreditsFullCoverage(t *testing.T) {
	ctx := context.Background()
	uH, _ := mockUser(t)
	require.NoError(t, sdb.Award(ctx, uH.ID(), models.ReasonReferralBonus, "seed"))
	require.NoError(t, sdb.Award(ctx, uH.ID(), models.ReasonReferralBonus, "seed2"))
	before := totalPoints(t, uH.ID()) // 50 points = 5000 paise

	gw := &fakeGateway{}
	payment, err := sdb.ApplyCredits(ctx, uH, 3000, models.CurrencyINR, gw)
	require.NoError(t, err)
	require.Equal(t, models.PaymentSatisfied, payment.Status)
	require.Equal(t, int64(3000), payment.CreditApplied)
	require.Equal(t, int64(0), payment.AmountToCharge)
	require.Empty(t, gw.orders, "full coverage must not contact the gateway")

	// 3000 paise = 30 points debited.
	require.Equal(t, before-30, totalPoints(t, uH.ID()))
}

func TestApplyCreditsPartialCoverage(t *testing.T) {
	ctx := context.Background()
	uH, _ := mockUser(t)
	require.NoError(t, sdb.Award(ctx, uH.ID(), models.ReasonReferralBonus, "seed"))
	before := totalPoints(t, uH.ID()) // 25 points = 125 USD cents

	gw := &fakeGateway{}
	payment, err := sdb.ApplyCredits(ctx, uH, 500, models.CurrencyUSD, gw)
	require.NoError(t, err)
	require.Equal(t, models.PaymentPendingGateway, payment.Status)
	require.Equal(t, int64(125), payment.CreditApplied)
	require.Equal(t, int64(375), payment.AmountToCharge)
	require.Len(t, gw.orders, 1)

	// No debit until the gateway confirms.
	require.Equal(t, before, totalPoints(t, uH.ID()))

	confirmed, err := sdb.ConfirmOrder(ctx, payment.OrderRef)
	require.NoError(t, err)
	require.Equal(t, models.PaymentSatisfied, confirmed.Status)
	require.Equal(t, before-25, totalPoints(t, uH.ID()))

	// Replayed confirmation cannot double-debit.
	_, err = sdb.ConfirmOrder(ctx, payment.OrderRef)
	require.ErrorIs(t, err, models.ErrNotFound)
	require.Equal(t, before-25, totalPoints(t, uH.ID()))
}

func TestApplyCreditsInsufficientForFullNeverDebits(t *testing.T) {
	ctx := context.Background()
	uH, _ := mockUser(t)
	gw := &fakeGateway{}

	// Zero points: everything goes to the gateway.
	payment, err := sdb.ApplyCredits(ctx, uH, 1000, models.CurrencyINR, gw)
	require.NoError(t, err)
	require.Equal(t, int64(0), payment.CreditApplied)
	require.Equal(t, int64(1000), payment.AmountToCharge)
	require.Equal(t, 0, totalPoints(t, uH.ID()))
}

func TestStreakProgression(t *testing.T) {
	ctx := context.Background()
	uH, _ := mockUser(t)

	touch := func() {
		require.NoError(t, touchActivity(ctx, sdb.db, sdb.notifService, uH.ID()))
	}
	streak := func() int {
		var days int
		err := pgxscan.Get(ctx, sdb.db, &days,
			"SELECT streak_days FROM users WHERE id = $1", uH.ID())
		require.NoError(t, err)
		return days
	}
	seed := func(days int, lastActive time.Time) {
		_, err := sdb.db.Exec(ctx,
			"UPDATE users SET streak_days = $1, last_active_on = $2 WHERE id = $3",
			days, lastActive, uH.ID())
		require.NoError(t, err)
	}

	touch()
	require.Equal(t, 1, streak())
	before := totalPoints(t, uH.ID())

	// Repeated activity on the same day changes nothing.
	touch()
	require.Equal(t, 1, streak())
	require.Equal(t, before, totalPoints(t, uH.ID()))

	// Activity on the day after a 6-day streak crosses the 7-day
	// milestone and awards its points exactly once.
	seed(6, time.Now().AddDate(0, 0, -1))
	touch()
	require.Equal(t, 7, streak())
	require.Equal(t, before+models.PointAmounts[models.ReasonStreakMilestone], totalPoints(t, uH.ID()))
	touch()
	require.Equal(t, 7, streak())
	require.Equal(t, before+models.PointAmounts[models.ReasonStreakMilestone], totalPoints(t, uH.ID()))

	// A missed day resets the streak to one, with no award.
	seed(9, time.Now().AddDate(0, 0, -3))
	touch()
	require.Equal(t, 1, streak())
	require.Equal(t, before+models.PointAmounts[models.ReasonStreakMilestone], totalPoints(t, uH.ID()))
}

func TestApproveRestoresBlockedAsPlainMember(t *testing.T) {
	ctx := context.Background()
	adminH := adminUser(t)
	spaceH := mockSpace(t, adminH, models.VisibilityPublic, false)
	uH, _ := mockUser(t)

	// Open a request first, then join and rise to manager; the pending
	// request survives both.
	req, err := sdb.RequestJoin(ctx, spaceH.ID(), uH, "")
	require.NoError(t, err)
	require.NoError(t, sdb.Join(ctx, spaceH.ID(), uH))
	require.NoError(t, spaceH.Promote(ctx, uH.ID()))
	require.NoError(t, spaceH.Block(ctx, uH.ID()))

	base := memberCount(t, spaceH.ID())

	// Approving the request reactivates the blocked row as a plain
	// member; the old manager role does not survive the block.
	require.NoError(t, spaceH.ApproveJoinRequest(ctx, req.ID))
	require.Equal(t, base+1, memberCount(t, spaceH.ID()))

	m, err := readMembership(ctx, sdb.db, spaceH.ID(), uH.ID())
	require.NoError(t, err)
	require.True(t, m.Active())
	require.Equal(t, models.SpaceRoleMember, m.Role)
	require.False(t, m.BlockedAt.Valid)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	_, first := mockUser(t)

	dup := &models.User{Name: "copy", Email: first.Email}
	_, err := sdb.CreateUser(ctx, dup, "verysecret", "")
	require.ErrorIs(t, err, models.ErrEmailAlreadyUsed)
}
