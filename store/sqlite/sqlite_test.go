package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/points-engine/ledger"
	"github.com/warp/points-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func day(d int) time.Time {
	return time.Date(2026, time.June, d, 10, 0, 0, 0, time.UTC)
}

func credit(id string, points int64, createdAt time.Time, expiresAt *time.Time) ledger.Entry {
	return ledger.Entry{
		ID:        ledger.EntryID(id),
		UserID:    "user-1",
		Role:      "driver",
		Action:    "ride_completed",
		Points:    points,
		Source:    ledger.SourceActionAward,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}
}

func debit(id string, points int64, createdAt time.Time) ledger.Entry {
	return ledger.Entry{
		ID:        ledger.EntryID(id),
		UserID:    "user-1",
		Role:      "driver",
		Points:    -points,
		Source:    ledger.SourceRedemptionDebit,
		CreatedAt: createdAt,
	}
}

// =============================================================================
// ENTRY ROUND-TRIP
// =============================================================================

func TestStore_AppendAndReadBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	exp := day(30)
	e := credit("e1", 150, day(1), &exp)
	e.SubRole = "fleet"
	e.Reference = "ride-42"
	e.Metadata = map[string]string{"city": "austin"}
	require.NoError(t, store.Append(ctx, e))

	entries, err := store.Entries(ctx, "user-1", "driver")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got := entries[0]
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, e.SubRole, got.SubRole)
	assert.Equal(t, e.Action, got.Action)
	assert.Equal(t, e.Points, got.Points)
	assert.Equal(t, e.Reference, got.Reference)
	assert.Equal(t, e.Metadata, got.Metadata)
	assert.True(t, e.CreatedAt.Equal(got.CreatedAt))
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, exp.Equal(*got.ExpiresAt))
}

func TestStore_AppendRejectsZeroPoints(t *testing.T) {
	store := newTestStore(t)
	err := store.Append(context.Background(), credit("e1", 0, day(1), nil))
	assert.ErrorIs(t, err, ledger.ErrZeroPoints)
}

// =============================================================================
// BALANCE SQL vs GO FORMULA
// =============================================================================

func TestStore_BalanceMatchesGoFormula(t *testing.T) {
	// GIVEN: A mixed ledger (live credit, expired credit, no-expiry
	//        credit, debit)
	// WHEN: Asking SQL and the Go formula for the balance
	// THEN: Identical at every probe time

	store := newTestStore(t)
	ctx := context.Background()

	live := day(20)
	early := day(5)
	entries := []ledger.Entry{
		credit("e1", 100, day(1), &live),
		credit("e2", 40, day(2), &early),
		credit("e3", 25, day(3), nil),
		debit("e4", 60, day(4)),
	}
	for _, e := range entries {
		require.NoError(t, store.Append(ctx, e))
	}

	for _, probe := range []time.Time{day(4), day(6), day(21)} {
		want := ledger.Balance(entries, probe)
		got, err := store.BalanceAt(ctx, "user-1", "driver", probe)
		require.NoError(t, err)
		assert.Equal(t, want, got, "balance at %s", probe)
	}
}

func TestStore_DailyCreditTotalUTCDayWindow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	exp := day(30)
	require.NoError(t, store.Append(ctx, credit("e1", 100,
		time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC), &exp)))
	require.NoError(t, store.Append(ctx, credit("e2", 50,
		time.Date(2026, time.June, 1, 23, 59, 59, 0, time.UTC), &exp)))
	require.NoError(t, store.Append(ctx, credit("e3", 70,
		time.Date(2026, time.June, 2, 0, 0, 0, 0, time.UTC), &exp)))
	require.NoError(t, store.Append(ctx, debit("e4", 30, day(1))))

	total, err := store.DailyCreditTotal(ctx, "user-1", "driver", day(1))
	require.NoError(t, err)
	assert.Equal(t, int64(150), total)

	total, err = store.DailyCreditTotal(ctx, "user-1", "driver", day(2))
	require.NoError(t, err)
	assert.Equal(t, int64(70), total)
}

func TestStore_QualifyingCountIgnoresExpiry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	expired := day(2)
	live := day(30)
	require.NoError(t, store.Append(ctx, credit("e1", 100, day(1), &expired)))
	require.NoError(t, store.Append(ctx, credit("e2", 100, day(5), &live)))
	require.NoError(t, store.Append(ctx, debit("e3", 50, day(6))))

	count, err := store.QualifyingCount(ctx, "user-1", "ride_completed")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

// =============================================================================
// HISTORY
// =============================================================================

func TestStore_HistoryNewestFirstWithPaging(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	exp := day(30)
	for i, id := range []string{"e1", "e2", "e3"} {
		require.NoError(t, store.Append(ctx, credit(id, 10, day(i+1), &exp)))
	}

	page, err := store.History(ctx, "user-1", "driver", 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ledger.EntryID("e3"), page[0].ID)
	assert.Equal(t, ledger.EntryID("e2"), page[1].ID)

	page, err = store.History(ctx, "user-1", "driver", 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ledger.EntryID("e1"), page[0].ID)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestStore_WithTxRollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	exp := day(30)
	err := store.WithTx(ctx, func(tx ledger.TxOps) error {
		if err := tx.Append(ctx, credit("e1", 100, day(1), &exp)); err != nil {
			return err
		}
		if err := tx.RecordCreditRequest(ctx, ledger.CreditRequest{
			IdempotencyKey: "k1",
			UserID:         "user-1",
			Amount:         decimal.RequireFromString("1.00"),
			Currency:       "USD",
			CreatedAt:      day(1),
		}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	entries, err := store.Entries(ctx, "user-1", "driver")
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = store.GetCreditRequest(ctx, "k1")
	assert.ErrorIs(t, err, ledger.ErrCreditRequestNotFound)
}

func TestStore_WithTxSeesOwnWrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	exp := day(30)
	err := store.WithTx(ctx, func(tx ledger.TxOps) error {
		if err := tx.Append(ctx, credit("e1", 100, day(1), &exp)); err != nil {
			return err
		}
		total, err := tx.DailyCreditTotal(ctx, "user-1", "driver", day(1))
		if err != nil {
			return err
		}
		assert.Equal(t, int64(100), total)
		return nil
	})
	require.NoError(t, err)
}

// =============================================================================
// BADGES
// =============================================================================

func TestStore_GrantBadgeUniqueConstraint(t *testing.T) {
	// GIVEN: A badge already granted
	// WHEN: Inserting the same (user, badge) pair
	// THEN: (false, nil) via the primary key, not an error

	store := newTestStore(t)
	ctx := context.Background()

	grant := ledger.UserBadge{UserID: "user-1", BadgeID: "century-club", AwardedAt: day(1)}

	inserted, err := store.GrantBadge(ctx, grant)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = store.GrantBadge(ctx, grant)
	require.NoError(t, err)
	assert.False(t, inserted)

	badges, err := store.UserBadges(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, badges, 1)
	assert.Equal(t, "century-club", badges[0].BadgeID)
}

// =============================================================================
// REDEMPTIONS & CREDIT JOURNAL
// =============================================================================

func TestStore_RedemptionsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"r1", "r2"} {
		require.NoError(t, store.RecordRedemption(ctx, ledger.UserReward{
			ID: id, UserID: "user-1", Role: "driver", RewardID: "hoodie",
			Points: 200, RedeemedAt: day(i + 1),
		}))
	}

	redemptions, err := store.Redemptions(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, redemptions, 2)
	assert.Equal(t, "r2", redemptions[0].ID)
}

func TestStore_CreditJournalLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	amount := decimal.RequireFromString("12.50")
	require.NoError(t, store.RecordCreditRequest(ctx, ledger.CreditRequest{
		IdempotencyKey: "convert:e1",
		UserID:         "user-1",
		Amount:         amount,
		Currency:       "USD",
		CreatedAt:      day(1),
	}))

	// Re-recording the same key is a no-op, not an error.
	require.NoError(t, store.RecordCreditRequest(ctx, ledger.CreditRequest{
		IdempotencyKey: "convert:e1",
		UserID:         "user-1",
		Amount:         amount,
		Currency:       "USD",
		CreatedAt:      day(2),
	}))

	req, err := store.GetCreditRequest(ctx, "convert:e1")
	require.NoError(t, err)
	assert.True(t, amount.Equal(req.Amount))
	assert.False(t, req.Delivered)

	require.NoError(t, store.MarkCreditDelivered(ctx, "convert:e1"))
	req, err = store.GetCreditRequest(ctx, "convert:e1")
	require.NoError(t, err)
	assert.True(t, req.Delivered)
	assert.Equal(t, 1, req.Attempts)

	err = store.MarkCreditDelivered(ctx, "missing")
	assert.ErrorIs(t, err, ledger.ErrCreditRequestNotFound)
}

// =============================================================================
// EXPIRY QUERIES
// =============================================================================

func TestStore_ExpiringWithinAndSummaries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	e5, e10, e20 := day(5), day(10), day(20)
	require.NoError(t, store.Append(ctx, credit("e1", 10, day(1), &e5)))
	require.NoError(t, store.Append(ctx, credit("e2", 20, day(1), &e10)))
	require.NoError(t, store.Append(ctx, credit("e3", 40, day(1), &e20)))

	other := credit("e4", 70, day(1), &e10)
	other.UserID = "user-2"
	require.NoError(t, store.Append(ctx, other))

	total, err := store.ExpiringWithin(ctx, "user-1", "driver", day(4), day(10))
	require.NoError(t, err)
	assert.Equal(t, int64(30), total)

	summaries, err := store.ExpiringSummaries(ctx, day(4), day(10))
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, ledger.UserID("user-1"), summaries[0].UserID)
	assert.Equal(t, int64(30), summaries[0].Points)
	assert.Equal(t, ledger.UserID("user-2"), summaries[1].UserID)
	assert.Equal(t, int64(70), summaries[1].Points)
}

// =============================================================================
// RESET
// =============================================================================

func TestStore_ResetClearsEverything(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, credit("e1", 100, day(1), nil)))
	_, err := store.GrantBadge(ctx, ledger.UserBadge{UserID: "user-1", BadgeID: "b1", AwardedAt: day(1)})
	require.NoError(t, err)
	require.NoError(t, store.RecordCreditRequest(ctx, ledger.CreditRequest{
		IdempotencyKey: "k1",
		UserID:         "user-1",
		Amount:         decimal.RequireFromString("1.50"),
		Currency:       "USD",
		CreatedAt:      day(1),
	}))

	require.NoError(t, store.Reset(ctx))

	balance, err := store.BalanceAt(ctx, "user-1", "driver", day(2))
	require.NoError(t, err)
	assert.Zero(t, balance)

	badges, err := store.UserBadges(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, badges)

	_, err = store.GetCreditRequest(ctx, "k1")
	assert.ErrorIs(t, err, ledger.ErrCreditRequestNotFound)
}
