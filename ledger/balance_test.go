package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/warp/points-engine/ledger"
)

// =============================================================================
// TEST SETUP
// =============================================================================

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

func at(day int) time.Time {
	return time.Date(2026, time.March, day, 12, 0, 0, 0, time.UTC)
}

// =============================================================================
// BALANCE TESTS
// =============================================================================

func TestBalance_UnexpiredCreditsAndDebits(t *testing.T) {
	// GIVEN: Two live credits and one debit
	// WHEN: Computing the balance
	// THEN: All three count

	exp := at(30)
	entries := []ledger.Entry{
		credit("c1", 100, at(1), &exp),
		credit("c2", 50, at(2), &exp),
		debit("d1", 30, at(3)),
	}

	assert.Equal(t, int64(120), ledger.Balance(entries, at(5)))
}

func TestBalance_ExpiredCreditStopsCounting(t *testing.T) {
	// GIVEN: A credit that expired on day 10
	// WHEN: Computing the balance after day 10
	// THEN: The credit no longer contributes, without any ledger write

	exp := at(10)
	entries := []ledger.Entry{
		credit("c1", 100, at(1), &exp),
	}

	assert.Equal(t, int64(100), ledger.Balance(entries, at(9)))
	// Boundary: not strictly after expiry means expired
	assert.Equal(t, int64(0), ledger.Balance(entries, exp))
	assert.Equal(t, int64(0), ledger.Balance(entries, at(11)))
}

func TestBalance_DebitsNeverExpire(t *testing.T) {
	// GIVEN: A credit that expires and a debit recorded before expiry
	// WHEN: Computing the balance long after expiry
	// THEN: The debit still counts; the balance goes negative
	//
	// Spending does not shield points from expiry: a user who earns 100,
	// spends 80, and lets the credit lapse ends at -80.

	exp := at(10)
	entries := []ledger.Entry{
		credit("c1", 100, at(1), &exp),
		debit("d1", 80, at(5)),
	}

	assert.Equal(t, int64(20), ledger.Balance(entries, at(9)))
	assert.Equal(t, int64(-80), ledger.Balance(entries, at(20)))
}

func TestBalance_NilExpiryNeverExpires(t *testing.T) {
	// GIVEN: A credit with no expiry (manual adjustment style)
	// WHEN: Computing the balance far in the future
	// THEN: It still counts

	entries := []ledger.Entry{
		credit("c1", 100, at(1), nil),
	}

	assert.Equal(t, int64(100), ledger.Balance(entries, at(1).AddDate(10, 0, 0)))
}

// =============================================================================
// DAILY CREDIT TOTAL TESTS
// =============================================================================

func TestDailyCreditTotal_OnlySameUTCDay(t *testing.T) {
	// GIVEN: Credits on March 1 and March 2, plus a debit on March 1
	// WHEN: Summing March 1
	// THEN: Only March 1 credits count; debits are ignored

	exp := at(30)
	entries := []ledger.Entry{
		credit("c1", 100, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), &exp),
		credit("c2", 50, time.Date(2026, time.March, 1, 23, 59, 59, 0, time.UTC), &exp),
		credit("c3", 70, time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC), &exp),
		debit("d1", 30, at(1)),
	}

	assert.Equal(t, int64(150), ledger.DailyCreditTotal(entries, at(1)))
	assert.Equal(t, int64(70), ledger.DailyCreditTotal(entries, at(2)))
	assert.Equal(t, int64(0), ledger.DailyCreditTotal(entries, at(3)))
}

func TestDailyCreditTotal_NormalizesZonedInput(t *testing.T) {
	// GIVEN: A credit on March 2 UTC
	// WHEN: Summing with a zoned timestamp whose local day is March 1
	//       but whose UTC instant falls on March 2
	// THEN: The window is the UTC day of the instant

	exp := at(30)
	entries := []ledger.Entry{
		credit("c1", 100, time.Date(2026, time.March, 2, 3, 0, 0, 0, time.UTC), &exp),
	}

	// 22:00 March 1 at UTC-5 is 03:00 March 2 UTC.
	zoned := time.Date(2026, time.March, 1, 22, 0, 0, 0, time.FixedZone("UTC-5", -5*60*60))

	assert.Equal(t, int64(100), ledger.DailyCreditTotal(entries, zoned))
}

// =============================================================================
// QUALIFYING COUNT TESTS
// =============================================================================

func TestQualifyingCount_IgnoresExpiry(t *testing.T) {
	// GIVEN: Two ride credits, one long expired, and an unrelated action
	// WHEN: Counting qualifying entries for "ride_completed"
	// THEN: Both rides count; badges reward lifetime totals

	expired := at(2)
	live := at(30)
	entries := []ledger.Entry{
		credit("c1", 100, at(1), &expired),
		credit("c2", 100, at(5), &live),
	}
	other := credit("c3", 20, at(6), &live)
	other.Action = "five_star_rating"
	entries = append(entries, other)

	assert.Equal(t, int64(2), ledger.QualifyingCount(entries, "ride_completed"))
	assert.Equal(t, int64(1), ledger.QualifyingCount(entries, "five_star_rating"))
}

// =============================================================================
// EXPIRING WINDOW TESTS
// =============================================================================

func TestExpiringWithin_WindowBounds(t *testing.T) {
	// GIVEN: Credits expiring on days 5, 10, and 20
	// WHEN: Querying the (day 4, day 10] window
	// THEN: Days 5 and 10 are inside; day 20 is not

	e5, e10, e20 := at(5), at(10), at(20)
	entries := []ledger.Entry{
		credit("c1", 10, at(1), &e5),
		credit("c2", 20, at(1), &e10),
		credit("c3", 40, at(1), &e20),
	}

	assert.Equal(t, int64(30), ledger.ExpiringWithin(entries, at(4), at(10)))
	assert.Equal(t, int64(40), ledger.ExpiringWithin(entries, at(10), at(25)))
	assert.Equal(t, int64(0), ledger.ExpiringWithin(entries, at(21), at(30)))
}
