/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Wallet amounts travel as decimal strings ("2.50"), never floats.

VALIDATION:
  Validation is done in handlers and the engine, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - engine/engine.go: Domain types these map from
*/
package api

import (
	"time"

	"github.com/warp/points-engine/catalog"
	"github.com/warp/points-engine/ledger"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// AwardRequest is the request body for awarding points.
type AwardRequest struct {
	UserID     string            `json:"user_id"`
	Role       string            `json:"role"`
	SubRole    string            `json:"sub_role,omitempty"`
	Action     string            `json:"action"`
	Multiplier int64             `json:"multiplier,omitempty"`
	Reference  string            `json:"reference,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// ConvertRequest is the request body for converting points to wallet credit.
type ConvertRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Points int64  `json:"points"`
}

// RedeemRequest is the request body for redeeming a catalog reward.
type RedeemRequest struct {
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	RewardID string `json:"reward_id"`
}

// AdjustmentRequest is the request body for manual admin adjustments.
type AdjustmentRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Points int64  `json:"points"`
	Reason string `json:"reason"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// EntryDTO represents a ledger entry in API responses.
type EntryDTO struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Role      string            `json:"role"`
	SubRole   string            `json:"sub_role,omitempty"`
	Action    string            `json:"action,omitempty"`
	Points    int64             `json:"points"`
	Source    string            `json:"source"`
	Reference string            `json:"reference,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt string            `json:"created_at"`
	ExpiresAt string            `json:"expires_at,omitempty"`
}

func toEntryDTO(e ledger.Entry) EntryDTO {
	dto := EntryDTO{
		ID:        string(e.ID),
		UserID:    string(e.UserID),
		Role:      string(e.Role),
		SubRole:   e.SubRole,
		Action:    e.Action,
		Points:    e.Points,
		Source:    string(e.Source),
		Reference: e.Reference,
		Metadata:  e.Metadata,
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
	}
	if e.ExpiresAt != nil {
		dto.ExpiresAt = e.ExpiresAt.Format(time.RFC3339)
	}
	return dto
}

// AwardResponse is returned after a successful award.
type AwardResponse struct {
	Entry          EntryDTO   `json:"entry"`
	UnlockedBadges []BadgeDTO `json:"unlocked_badges"`
	BonusRequested bool       `json:"bonus_requested,omitempty"`
	BonusKey       string     `json:"bonus_key,omitempty"`
	BonusPending   bool       `json:"bonus_pending,omitempty"`
}

// BalanceDTO is the balance summary for a user+role.
type BalanceDTO struct {
	UserID  string `json:"user_id"`
	Role    string `json:"role"`
	Balance int64  `json:"balance"`
	AsOf    string `json:"as_of"`
}

// ConvertResponse reports the debit and the wallet delivery outcome.
// credit_pending=true means the points were debited but the wallet call
// failed; retry with the returned key.
type ConvertResponse struct {
	Debited       int64  `json:"debited"`
	CreditAmount  string `json:"credit_amount"`
	Currency      string `json:"currency"`
	CreditKey     string `json:"credit_key"`
	CreditPending bool   `json:"credit_pending"`
}

// RedeemResponse is returned after a redemption.
type RedeemResponse struct {
	RedemptionID  string `json:"redemption_id"`
	RewardID      string `json:"reward_id"`
	Points        int64  `json:"points"`
	RedeemedAt    string `json:"redeemed_at"`
	CreditKey     string `json:"credit_key,omitempty"`
	CreditPending bool   `json:"credit_pending,omitempty"`
}

// BadgeDTO represents a badge definition, optionally with progress.
type BadgeDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Action    string `json:"action"`
	Required  int64  `json:"required"`
	Count     int64  `json:"count,omitempty"`
	Earned    bool   `json:"earned"`
	AwardedAt string `json:"awarded_at,omitempty"`
}

func toBadgeDTO(b catalog.Badge) BadgeDTO {
	return BadgeDTO{
		ID:       b.ID,
		Name:     b.Name,
		Action:   b.Action,
		Required: b.Count,
	}
}

// RedemptionDTO represents a past redemption.
type RedemptionDTO struct {
	ID         string `json:"id"`
	RewardID   string `json:"reward_id"`
	Role       string `json:"role"`
	Points     int64  `json:"points"`
	RedeemedAt string `json:"redeemed_at"`
}

// RewardDTO represents a catalog reward.
type RewardDTO struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	PointsRequired int64  `json:"points_required"`
	Type           string `json:"type"`
	Value          string `json:"value,omitempty"`
	Currency       string `json:"currency,omitempty"`
	SingleUse      bool   `json:"single_use,omitempty"`
}

// ExpiringDTO reports points about to expire for a user+role.
type ExpiringDTO struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Points int64  `json:"points"`
	Until  string `json:"until"`
}

// RetryResponse is returned by the credit retry endpoint.
type RetryResponse struct {
	Key       string `json:"key"`
	Delivered bool   `json:"delivered"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
