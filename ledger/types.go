/*
Package ledger provides the core types for the points ledger.

PURPOSE:
  This package contains the domain-agnostic building blocks of the points
  engine: the immutable Entry, the record types for badge grants and reward
  redemptions, and the balance computation that derives a user's spendable
  total from the entry history.

KEY CONCEPTS IN THIS FILE (types.go):
  - Entry: An immutable signed point transaction for a user/role
  - UserBadge: An idempotent badge grant record
  - UserReward: A reward redemption record
  - CreditRequest: The journal row backing idempotent wallet delivery

DESIGN PRINCIPLES:
  1. Immutability: Entries are never modified; corrections are new
     offsetting entries
  2. Derived balance: There is no stored balance field that can drift;
     balance is always computed from entries
  3. Precision: Wallet amounts use decimal.Decimal, never float
  4. Type Safety: Strong typing for user and role identifiers

SEE ALSO:
  - balance.go: Balance computation from entries
  - store.go: Persistence interfaces
  - errors.go: Error taxonomy
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type Role string
type EntryID string

// =============================================================================
// ENTRY - Immutable signed point transaction
// =============================================================================

type SourceType string

const (
	// SourceActionAward is a credit produced by a qualifying user action.
	SourceActionAward SourceType = "action_award"

	// SourceRedemptionDebit is a debit produced by converting points to
	// wallet credit or redeeming a catalog reward.
	SourceRedemptionDebit SourceType = "redemption_debit"

	// SourceAdjustment is a manual admin correction, either sign.
	SourceAdjustment SourceType = "adjustment"
)

// Entry is one row of the append-only ledger.
//
// INVARIANTS:
//   - Never mutated or deleted once written
//   - Points is never zero
//   - Debits (Points < 0) never carry an expiry
//   - Credits expire at ExpiresAt; a nil ExpiresAt credit never expires
type Entry struct {
	ID        EntryID
	UserID    UserID
	Role      Role
	SubRole   string
	Action    string
	Points    int64
	Source    SourceType
	Reference string // reward ID, adjustment reason, etc.
	Metadata  map[string]string
	CreatedAt time.Time
	ExpiresAt *time.Time
}

func (e Entry) IsCredit() bool { return e.Points > 0 }
func (e Entry) IsDebit() bool  { return e.Points < 0 }

// ExpiredAt reports whether the entry has stopped contributing to balance
// at time t. Debits never expire.
func (e Entry) ExpiredAt(t time.Time) bool {
	if e.Points <= 0 || e.ExpiresAt == nil {
		return false
	}
	return !e.ExpiresAt.After(t)
}

// =============================================================================
// BADGE GRANTS
// =============================================================================

// UserBadge records a badge grant. At most one row exists per
// (UserID, BadgeID) pair; grants are idempotent.
type UserBadge struct {
	UserID    UserID
	BadgeID   string
	AwardedAt time.Time
}

// =============================================================================
// REWARD REDEMPTIONS
// =============================================================================

// UserReward records a reward redemption. Multiple redemptions of the same
// reward are allowed; single-use enforcement is external policy.
type UserReward struct {
	ID         string
	UserID     UserID
	Role       Role
	RewardID   string
	Points     int64
	RedeemedAt time.Time
}

// =============================================================================
// CREDIT REQUEST JOURNAL
// =============================================================================

// CreditRequest journals one wallet credit attempt. The idempotency key is
// derived from the ledger entry that funded it, so delivery can be retried
// after a wallet outage without re-debiting points.
type CreditRequest struct {
	IdempotencyKey string
	UserID         UserID
	Amount         decimal.Decimal
	Currency       string
	Delivered      bool
	Attempts       int
	CreatedAt      time.Time
}
