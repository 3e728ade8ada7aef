/*
store.go - Persistence interfaces for the points ledger

PURPOSE:
  Defines the interface between the engine and the database. The Store
  maintains append-only semantics: entries are inserted, never updated
  or deleted.

KEY INTERFACES:
  Store:         Entry persistence and derived reads (balance, daily total)
  BadgeStore:    Idempotent badge grant records
  RewardStore:   Redemption records
  CreditJournal: Wallet credit attempts keyed by idempotency key
  EngineStore:   Everything the engine needs, plus WithTx

APPEND-ONLY CONTRACT:
  - Append() is the only entry write
  - No Update() or Delete() methods exist
  - Corrections are new offsetting entries

ATOMICITY:
  WithTx() is the critical-section boundary. The daily-cap check plus the
  award insert run inside one WithTx call, as do the balance check plus
  the debit insert for conversions and redemptions. Either everything in
  the function commits, or nothing does.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite
  - ledger/store: In-memory for testing

SEE ALSO:
  - balance.go: The formula each implementation must honor
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Entry persistence (append-only)
// =============================================================================

// Store handles persistence of ledger entries and the derived reads the
// engine depends on.
// IMPORTANT: Store is APPEND-ONLY. No Update, No Delete. Ever.
type Store interface {
	// Append persists an entry. This is the ONLY entry write operation.
	// Entries with zero points are rejected with ErrZeroPoints.
	Append(ctx context.Context, e Entry) error

	// Entries returns all entries for user+role, ordered by creation time.
	Entries(ctx context.Context, userID UserID, role Role) ([]Entry, error)

	// History returns entries for user+role, newest first, paged.
	History(ctx context.Context, userID UserID, role Role, limit, offset int) ([]Entry, error)

	// DailyCreditTotal sums credits created on the same UTC day as `day`.
	DailyCreditTotal(ctx context.Context, userID UserID, role Role, day time.Time) (int64, error)

	// BalanceAt computes the spendable balance at time `at`.
	// Must reflect only committed entries.
	BalanceAt(ctx context.Context, userID UserID, role Role, at time.Time) (int64, error)

	// QualifyingCount counts credit entries for an action across all roles,
	// regardless of expiry. Used for badge thresholds.
	QualifyingCount(ctx context.Context, userID UserID, action string) (int64, error)

	// ExpiringWithin sums credit points expiring in (from, until].
	ExpiringWithin(ctx context.Context, userID UserID, role Role, from, until time.Time) (int64, error)
}

// ExpiringSummary is one user/role pair with a nonzero expiring total.
type ExpiringSummary struct {
	UserID UserID
	Role   Role
	Points int64
}

// =============================================================================
// BADGE STORE
// =============================================================================

// BadgeStore records badge grants. Protected by a uniqueness constraint on
// (user, badge), not by locking: concurrent duplicate grants must both
// succeed logically.
type BadgeStore interface {
	// GrantBadge inserts a grant record. Returns (false, nil) when the
	// pair already exists - callers treat that as success.
	GrantBadge(ctx context.Context, grant UserBadge) (inserted bool, err error)

	// UserBadges returns all grants for a user, oldest first.
	UserBadges(ctx context.Context, userID UserID) ([]UserBadge, error)
}

// =============================================================================
// REWARD STORE
// =============================================================================

type RewardStore interface {
	// RecordRedemption inserts a redemption record.
	RecordRedemption(ctx context.Context, r UserReward) error

	// Redemptions returns all redemptions for a user, newest first.
	Redemptions(ctx context.Context, userID UserID) ([]UserReward, error)
}

// =============================================================================
// CREDIT JOURNAL
// =============================================================================

// CreditJournal tracks wallet credit attempts so delivery can be retried
// by idempotency key without touching the ledger again.
type CreditJournal interface {
	RecordCreditRequest(ctx context.Context, req CreditRequest) error
	GetCreditRequest(ctx context.Context, idempotencyKey string) (*CreditRequest, error)
	MarkCreditDelivered(ctx context.Context, idempotencyKey string) error
}

// =============================================================================
// ENGINE STORE - Full surface plus transactions
// =============================================================================

// TxOps is the set of operations available inside one atomic transaction.
// Badge grants are deliberately absent: they are protected by their
// uniqueness constraint, not by the transaction.
type TxOps interface {
	Store
	RewardStore
	CreditJournal
}

// EngineStore is everything the engine needs from persistence.
type EngineStore interface {
	TxOps
	BadgeStore

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back and nothing fn wrote is visible.
	WithTx(ctx context.Context, fn func(TxOps) error) error

	// ExpiringSummaries returns every user/role with credits expiring in
	// (from, until], for the reminder job.
	ExpiringSummaries(ctx context.Context, from, until time.Time) ([]ExpiringSummary, error)
}
