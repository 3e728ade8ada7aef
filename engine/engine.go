/*
Package engine implements the points & rewards ledger engine.

PURPOSE:
  The engine converts qualifying user actions into ledger entries,
  enforces the per-role daily cap, unlocks badges idempotently, and
  debits points for wallet conversion and reward redemption. It is the
  only writer of the ledger.

CRITICAL INVARIANTS:
  1. The daily-cap check and the award insert are one atomic unit
     (Store.WithTx); a committed set of entries never exceeds the cap.
  2. Debit operations check balance and insert the debit in the same
     transaction; balance never goes negative under valid use.
  3. Badge grants are idempotent: the (user, badge) uniqueness constraint
     decides, and "already granted" is success.
  4. The ledger write is the consistency boundary. Wallet delivery,
     notifications, and events run after commit; their failure never
     rolls back ledger state.

CONCURRENCY:
  The engine is safe under arbitrary interleaving of callers. All
  serialization lives in the store's WithTx; the engine itself holds
  no mutable state beyond injected collaborators.

SEE ALSO:
  - ports.go: WalletCreditPort, NotificationPort, EventPort
  - redeem.go: ConvertToCredits, RedeemReward, delivery retry
  - reads.go: Balance, history, badge progress, expiry reminders
*/
package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/warp/points-engine/catalog"
	"github.com/warp/points-engine/ledger"
	"github.com/warp/points-engine/metrics"
)

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	store   ledger.EngineStore
	catalog *catalog.Catalog
	wallet  WalletCreditPort
	notes   NotificationPort
	events  EventPort
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Engine)

// WithNotifier replaces the notification port (default: LogNotifier).
func WithNotifier(n NotificationPort) Option { return func(e *Engine) { e.notes = n } }

// WithEmitter replaces the event port (default: LogEmitter).
func WithEmitter(ev EventPort) Option { return func(e *Engine) { e.events = ev } }

// WithMetrics attaches a metrics recorder.
func WithMetrics(m *metrics.Metrics) Option { return func(e *Engine) { e.metrics = m } }

// WithClock replaces the time source. Tests use this to control expiry.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func New(store ledger.EngineStore, cat *catalog.Catalog, wallet WalletCreditPort, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		catalog: cat,
		wallet:  wallet,
		notes:   LogNotifier{},
		events:  LogEmitter{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// =============================================================================
// AWARD POINTS
// =============================================================================

type AwardRequest struct {
	UserID  ledger.UserID
	Role    ledger.Role
	SubRole string
	Action  string

	// Multiplier scales the action's base points. Zero means 1; values
	// above the action's max_multiplier are clamped to it, and negative
	// values are rejected with ErrInvalidMultiplier.
	Multiplier int64

	Metadata  map[string]string
	Reference string
}

type AwardResult struct {
	Entry          ledger.Entry
	UnlockedBadges []catalog.Badge

	// Wallet bonus delivery status. The points are awarded regardless;
	// a failed bonus is retried via RetryCreditDelivery with the key.
	BonusRequested      bool
	BonusIdempotencyKey string
	BonusDeliveryFailed bool
}

// AwardPoints validates the action against the catalog, atomically enforces
// the daily cap while inserting the credit entry, then runs post-commit
// side effects (wallet bonus, badge unlocks, notification, event).
func (e *Engine) AwardPoints(ctx context.Context, req AwardRequest) (*AwardResult, error) {
	ac, err := e.catalog.Action(req.Role, req.Action, req.SubRole)
	if err != nil {
		return nil, err
	}
	rc, err := e.catalog.Role(req.Role)
	if err != nil {
		return nil, err
	}

	mult := req.Multiplier
	if mult < 0 {
		return nil, ledger.ErrInvalidMultiplier
	}
	if mult == 0 {
		mult = 1
	}
	if mult > ac.MaxMultiplier {
		mult = ac.MaxMultiplier
	}
	points := ac.BasePoints * mult

	now := e.now().UTC()
	expiresAt := now.AddDate(0, 0, rc.PointExpiryDays)
	entry := ledger.Entry{
		ID:        ledger.EntryID(uuid.NewString()),
		UserID:    req.UserID,
		Role:      req.Role,
		SubRole:   req.SubRole,
		Action:    req.Action,
		Points:    points,
		Source:    ledger.SourceActionAward,
		Reference: req.Reference,
		Metadata:  req.Metadata,
		CreatedAt: now,
		ExpiresAt: &expiresAt,
	}

	bonusKey := creditKey("bonus", entry.ID)

	// Cap check + insert: one atomic unit. No over-cap entry is ever
	// externally visible. The bonus journal row commits with the entry,
	// so a failed wallet delivery is always retryable by key.
	err = e.store.WithTx(ctx, func(tx ledger.TxOps) error {
		today, err := tx.DailyCreditTotal(ctx, req.UserID, req.Role, now)
		if err != nil {
			return fmt.Errorf("%w: %v", ledger.ErrStorage, err)
		}
		if today+points > rc.MaxPointsPerDay {
			return &ledger.DailyCapError{
				UserID:     req.UserID,
				Role:       req.Role,
				Cap:        rc.MaxPointsPerDay,
				TodayTotal: today,
				Requested:  points,
			}
		}
		if err := tx.Append(ctx, entry); err != nil {
			return err
		}
		if ac.WalletCreditBonus.IsPositive() {
			return tx.RecordCreditRequest(ctx, ledger.CreditRequest{
				IdempotencyKey: bonusKey,
				UserID:         req.UserID,
				Amount:         ac.WalletCreditBonus,
				Currency:       rc.Currency,
				CreatedAt:      now,
			})
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ledger.ErrDailyCapExceeded) {
			e.metrics.CapRejected(string(req.Role))
		}
		return nil, err
	}
	e.metrics.Awarded(string(req.Role), req.Action, points)

	result := &AwardResult{Entry: entry}

	// Points are awarded even when the bonus credit cannot be delivered.
	if ac.WalletCreditBonus.IsPositive() {
		result.BonusRequested = true
		result.BonusIdempotencyKey = bonusKey

		if err := e.deliverCredit(ctx, req.UserID, bonusKey); err != nil {
			result.BonusDeliveryFailed = true
			e.metrics.DeliveryFailed()
			log.WithError(err).WithFields(log.Fields{
				"user": req.UserID,
				"key":  bonusKey,
			}).Warn("bonus credit delivery failed; points awarded, credit pending")
		}
	}

	unlocked, err := e.CheckBadgeUnlocks(ctx, req.UserID, req.Role, req.Action)
	if err != nil {
		// The award already committed; badge unlocks will be re-checked
		// on the next qualifying award.
		log.WithError(err).WithField("user", req.UserID).Error("badge unlock check failed")
	}
	result.UnlockedBadges = unlocked

	e.notify(ctx, req.UserID, req.Role, "points.awarded", map[string]string{
		"action": req.Action,
		"points": strconv.FormatInt(points, 10),
	}, PriorityNormal)
	e.emit(ctx, "points.awarded", entry, string(req.UserID))

	return result, nil
}

// =============================================================================
// BADGE UNLOCKS
// =============================================================================

// CheckBadgeUnlocks grants every badge of the role whose criteria action
// matches and whose qualifying count has reached the threshold. Counting
// ignores expiry: badges reward lifetime engagement, not current balance.
// Race-safe via the (user, badge) uniqueness constraint; a concurrent
// duplicate grant is a no-op, not an error.
func (e *Engine) CheckBadgeUnlocks(ctx context.Context, userID ledger.UserID, role ledger.Role, action string) ([]catalog.Badge, error) {
	var unlocked []catalog.Badge
	for _, b := range e.catalog.BadgesForAction(role, action) {
		count, err := e.store.QualifyingCount(ctx, userID, b.Action)
		if err != nil {
			return unlocked, err
		}
		if count < b.Count {
			continue
		}

		inserted, err := e.store.GrantBadge(ctx, ledger.UserBadge{
			UserID:    userID,
			BadgeID:   b.ID,
			AwardedAt: e.now().UTC(),
		})
		if err != nil {
			if errors.Is(err, ledger.ErrDuplicateBadge) {
				continue
			}
			return unlocked, err
		}
		if !inserted {
			// Already granted, possibly by a concurrent request.
			continue
		}

		unlocked = append(unlocked, b)
		e.metrics.BadgeGranted()
		e.notify(ctx, userID, role, "badge.earned", map[string]string{
			"badge": b.ID,
			"name":  b.Name,
		}, PriorityHigh)
		e.emit(ctx, "badge.earned", b, string(userID))
	}
	return unlocked, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// deliverCredit sends a journaled credit request through the wallet port
// and marks it delivered. The journal row must already exist.
func (e *Engine) deliverCredit(ctx context.Context, userID ledger.UserID, key string) error {
	req, err := e.store.GetCreditRequest(ctx, key)
	if err != nil {
		return err
	}
	if req.Delivered {
		return nil
	}

	if _, err := e.wallet.Credit(ctx, userID, req.Amount, req.Currency, key); err != nil {
		return err
	}
	if err := e.store.MarkCreditDelivered(ctx, key); err != nil {
		// The wallet applied the credit; the key protects any retry.
		log.WithError(err).WithField("key", key).Error("mark credit delivered")
	}
	return nil
}

func (e *Engine) notify(ctx context.Context, userID ledger.UserID, role ledger.Role, messageKey string, params map[string]string, priority Priority) {
	if err := e.notes.Notify(ctx, userID, role, messageKey, params, priority); err != nil {
		log.WithError(err).WithField("message", messageKey).Warn("notification failed")
	}
}

func (e *Engine) emit(ctx context.Context, topic string, payload any, room string) {
	if err := e.events.Emit(ctx, topic, payload, room); err != nil {
		log.WithError(err).WithField("topic", topic).Warn("event emit failed")
	}
}

func creditKey(kind string, entryID ledger.EntryID) string {
	return kind + ":" + string(entryID)
}
