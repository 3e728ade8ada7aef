/*
reads.go - Pure reads, adjustments, and the expiry reminder sweep

PURPOSE:
  GetBalance and the history/badge/expiry reads have no side effects and
  reflect only committed entries. Adjust is the admin correction path:
  a new signed entry, never an edit. The expiry sweep writes nothing -
  expiry is a derived state - it only notifies users whose credits are
  about to stop counting.
*/
package engine

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/warp/points-engine/catalog"
	"github.com/warp/points-engine/ledger"
)

// =============================================================================
// BALANCE & HISTORY
// =============================================================================

// GetBalance returns the spendable balance: unexpired credits plus all
// debits. Pure read.
func (e *Engine) GetBalance(ctx context.Context, userID ledger.UserID, role ledger.Role) (int64, error) {
	if _, err := e.catalog.Role(role); err != nil {
		return 0, err
	}
	return e.store.BalanceAt(ctx, userID, role, e.now().UTC())
}

// History returns the user's ledger entries, newest first.
func (e *Engine) History(ctx context.Context, userID ledger.UserID, role ledger.Role, limit, offset int) ([]ledger.Entry, error) {
	if _, err := e.catalog.Role(role); err != nil {
		return nil, err
	}
	return e.store.History(ctx, userID, role, limit, offset)
}

// Redemptions returns the user's redemption history, newest first.
func (e *Engine) Redemptions(ctx context.Context, userID ledger.UserID) ([]ledger.UserReward, error) {
	return e.store.Redemptions(ctx, userID)
}

// =============================================================================
// BADGE PROGRESS
// =============================================================================

type BadgeProgress struct {
	Badge     catalog.Badge
	Count     int64
	Earned    bool
	AwardedAt *time.Time
}

// BadgeStatus reports every badge of the role with the user's current
// qualifying count and earned state.
func (e *Engine) BadgeStatus(ctx context.Context, userID ledger.UserID, role ledger.Role) ([]BadgeProgress, error) {
	if _, err := e.catalog.Role(role); err != nil {
		return nil, err
	}

	earned, err := e.store.UserBadges(ctx, userID)
	if err != nil {
		return nil, err
	}
	earnedAt := make(map[string]time.Time, len(earned))
	for _, g := range earned {
		earnedAt[g.BadgeID] = g.AwardedAt
	}

	var out []BadgeProgress
	for _, b := range e.catalog.Badges(role) {
		count, err := e.store.QualifyingCount(ctx, userID, b.Action)
		if err != nil {
			return nil, err
		}
		p := BadgeProgress{Badge: b, Count: count}
		if at, ok := earnedAt[b.ID]; ok {
			p.Earned = true
			t := at
			p.AwardedAt = &t
		}
		out = append(out, p)
	}
	return out, nil
}

// =============================================================================
// ADJUSTMENTS
// =============================================================================

// Adjust appends a manual correction entry. Positive adjustments expire
// like normal credits for the role; negative ones never expire.
// Adjustments bypass the daily cap but not the zero-point rule.
func (e *Engine) Adjust(ctx context.Context, userID ledger.UserID, role ledger.Role, points int64, reason string) (*ledger.Entry, error) {
	rc, err := e.catalog.Role(role)
	if err != nil {
		return nil, err
	}
	if points == 0 {
		return nil, ledger.ErrZeroPoints
	}

	now := e.now().UTC()
	entry := ledger.Entry{
		ID:        ledger.EntryID(uuid.NewString()),
		UserID:    userID,
		Role:      role,
		Points:    points,
		Source:    ledger.SourceAdjustment,
		Reference: reason,
		CreatedAt: now,
	}
	if points > 0 {
		expiresAt := now.AddDate(0, 0, rc.PointExpiryDays)
		entry.ExpiresAt = &expiresAt
	}

	if err := e.store.Append(ctx, entry); err != nil {
		return nil, err
	}
	if points > 0 {
		e.metrics.Awarded(string(role), "adjustment", points)
	} else {
		e.metrics.Debited(string(role), string(ledger.SourceAdjustment), -points)
	}
	return &entry, nil
}

// =============================================================================
// EXPIRY
// =============================================================================

// ExpiringSoon sums credits for a user/role that will expire within the
// window. Gross credit total; debits are not attributed to credits.
func (e *Engine) ExpiringSoon(ctx context.Context, userID ledger.UserID, role ledger.Role, within time.Duration) (int64, error) {
	if _, err := e.catalog.Role(role); err != nil {
		return 0, err
	}
	now := e.now().UTC()
	return e.store.ExpiringWithin(ctx, userID, role, now, now.Add(within))
}

// SendExpiryReminders notifies each user/role with credits expiring within
// the window. Best-effort: notification failures are logged and skipped.
// Returns the number of reminders sent.
func (e *Engine) SendExpiryReminders(ctx context.Context, within time.Duration) (int, error) {
	now := e.now().UTC()
	summaries, err := e.store.ExpiringSummaries(ctx, now, now.Add(within))
	if err != nil {
		return 0, err
	}

	days := int(within.Hours() / 24)
	sent := 0
	for _, s := range summaries {
		err := e.notes.Notify(ctx, s.UserID, s.Role, "points.expiring", map[string]string{
			"points": strconv.FormatInt(s.Points, 10),
			"days":   strconv.Itoa(days),
		}, PriorityNormal)
		if err != nil {
			log.WithError(err).WithField("user", s.UserID).Warn("expiry reminder failed")
			continue
		}
		sent++
	}
	return sent, nil
}
