/*
errors.go - Centralized error types for the points engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Higher layers match sentinels with errors.Is and unwrap structured
  errors with errors.As.

ERROR CATEGORIES:
  1. Validation errors - Rejected before any write
  2. Balance errors    - Cap / insufficient-points rejections
  3. Delivery errors   - Post-commit wallet failures (partial success)
  4. Store errors      - Database-level failures

SEE ALSO:
  - store.go: Uses these errors
  - engine: Maps these to operation results
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidRole is returned when the role is absent from the catalog.
	ErrInvalidRole = errors.New("role not in catalog")

	// ErrInvalidAction is returned when the action is absent under the role.
	ErrInvalidAction = errors.New("action not in catalog")

	// ErrInvalidSubRole is returned when a sub-role is not allowed for
	// the action.
	ErrInvalidSubRole = errors.New("sub-role not allowed for action")

	// ErrZeroPoints is returned for entries that would carry zero points.
	ErrZeroPoints = errors.New("zero-point entry rejected")

	// ErrNonPositivePoints is returned when a debit operation is asked
	// for zero or negative points.
	ErrNonPositivePoints = errors.New("points must be positive")

	// ErrInvalidMultiplier is returned when an award carries a negative
	// multiplier. Zero means "absent" and defaults to 1.
	ErrInvalidMultiplier = errors.New("multiplier must not be negative")

	// ErrDailyCapExceeded is returned when an award would push a user's
	// credited points past the role's daily cap.
	ErrDailyCapExceeded = errors.New("daily points cap exceeded")

	// ErrInsufficientPoints is returned when balance is too low for a debit.
	ErrInsufficientPoints = errors.New("insufficient points")

	// ErrDuplicateBadge is returned by stores when the (user, badge) pair
	// already exists. The engine swallows it; a duplicate grant is success.
	ErrDuplicateBadge = errors.New("badge already granted")

	// ErrRewardNotFound is returned when a reward ID is not in the catalog.
	ErrRewardNotFound = errors.New("reward not found")

	// ErrRewardInactive is returned when the reward exists but is disabled.
	ErrRewardInactive = errors.New("reward inactive")

	// ErrCreditRequestNotFound is returned when retrying delivery for an
	// unknown idempotency key.
	ErrCreditRequestNotFound = errors.New("credit request not found")

	// ErrStorage is returned when the underlying transaction could not
	// commit. The ledger is guaranteed to hold no partial state.
	ErrStorage = errors.New("storage failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DailyCapError reports how an award would overflow the daily cap.
type DailyCapError struct {
	UserID     UserID
	Role       Role
	Cap        int64
	TodayTotal int64
	Requested  int64
}

func (e *DailyCapError) Error() string {
	return fmt.Sprintf("daily cap exceeded for %s/%s: cap %d, today %d, requested %d",
		e.UserID, e.Role, e.Cap, e.TodayTotal, e.Requested)
}

func (e *DailyCapError) Unwrap() error { return ErrDailyCapExceeded }

// InsufficientPointsError reports a balance shortfall on a debit.
type InsufficientPointsError struct {
	UserID    UserID
	Role      Role
	Available int64
	Requested int64
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient points for %s/%s: available %d, requested %d",
		e.UserID, e.Role, e.Available, e.Requested)
}

func (e *InsufficientPointsError) Unwrap() error { return ErrInsufficientPoints }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input
// or a rejected precondition. No ledger state was written.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRole) ||
		errors.Is(err, ErrInvalidAction) ||
		errors.Is(err, ErrInvalidSubRole) ||
		errors.Is(err, ErrZeroPoints) ||
		errors.Is(err, ErrNonPositivePoints) ||
		errors.Is(err, ErrInvalidMultiplier) ||
		errors.Is(err, ErrDailyCapExceeded) ||
		errors.Is(err, ErrInsufficientPoints) ||
		errors.Is(err, ErrRewardInactive)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRewardNotFound) ||
		errors.Is(err, ErrCreditRequestNotFound)
}
