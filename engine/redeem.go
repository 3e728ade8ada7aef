/*
redeem.go - Debit operations: conversion, redemption, delivery retry

PURPOSE:
  Both debit operations share one shape: inside a single transaction,
  verify the balance and insert the debit entry (plus the redemption
  record and credit-request journal row); after commit, deliver the
  wallet credit. A wallet failure after commit is a PARTIAL SUCCESS -
  the debit stands, the result carries CreditDeliveryFailed, and the
  caller retries only the delivery step with the same idempotency key.
  Re-running the whole operation would double-debit points.

DEBITS NEVER EXPIRE:
  Debit entries carry no expiry; they reduce balance forever, even after
  the credits they "spent" have expired.
*/
package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/warp/points-engine/catalog"
	"github.com/warp/points-engine/ledger"
)

// =============================================================================
// CONVERT TO CREDITS
// =============================================================================

type CreditResult struct {
	Debited        int64
	CreditAmount   decimal.Decimal
	Currency       string
	IdempotencyKey string

	// CreditDeliveryFailed means the debit committed but the wallet call
	// failed. Retry delivery with the key; do not call ConvertToCredits
	// again for the same points.
	CreditDeliveryFailed bool
}

// ConvertToCredits debits `points` and requests a wallet credit of
// points x conversionRatio(role).
func (e *Engine) ConvertToCredits(ctx context.Context, userID ledger.UserID, role ledger.Role, points int64) (*CreditResult, error) {
	rc, err := e.catalog.Role(role)
	if err != nil {
		return nil, err
	}
	if points <= 0 {
		return nil, ledger.ErrNonPositivePoints
	}

	now := e.now().UTC()
	entry := ledger.Entry{
		ID:        ledger.EntryID(uuid.NewString()),
		UserID:    userID,
		Role:      role,
		Points:    -points,
		Source:    ledger.SourceRedemptionDebit,
		Reference: "conversion",
		CreatedAt: now,
	}
	amount := decimal.NewFromInt(points).Mul(rc.ConversionRatio)
	key := creditKey("convert", entry.ID)

	err = e.store.WithTx(ctx, func(tx ledger.TxOps) error {
		balance, err := tx.BalanceAt(ctx, userID, role, now)
		if err != nil {
			return fmt.Errorf("%w: %v", ledger.ErrStorage, err)
		}
		if balance < points {
			return &ledger.InsufficientPointsError{
				UserID:    userID,
				Role:      role,
				Available: balance,
				Requested: points,
			}
		}
		if err := tx.Append(ctx, entry); err != nil {
			return err
		}
		return tx.RecordCreditRequest(ctx, ledger.CreditRequest{
			IdempotencyKey: key,
			UserID:         userID,
			Amount:         amount,
			Currency:       rc.Currency,
			CreatedAt:      now,
		})
	})
	if err != nil {
		return nil, err
	}
	e.metrics.Debited(string(role), string(ledger.SourceRedemptionDebit), points)

	result := &CreditResult{
		Debited:        points,
		CreditAmount:   amount,
		Currency:       rc.Currency,
		IdempotencyKey: key,
	}

	if err := e.deliverCredit(ctx, userID, key); err != nil {
		result.CreditDeliveryFailed = true
		e.metrics.DeliveryFailed()
		log.WithError(err).WithFields(log.Fields{
			"user": userID,
			"key":  key,
		}).Warn("credit delivery failed; points debited, credit pending")
		return result, nil
	}

	e.notify(ctx, userID, role, "points.converted", map[string]string{
		"points": fmt.Sprintf("%d", points),
		"amount": amount.String(),
	}, PriorityNormal)
	e.emit(ctx, "points.converted", result, string(userID))

	return result, nil
}

// =============================================================================
// REDEEM REWARD
// =============================================================================

type RedemptionResult struct {
	Redemption ledger.UserReward
	Reward     catalog.Reward

	// Set only for wallet_credit rewards.
	CreditRequested      bool
	IdempotencyKey       string
	CreditDeliveryFailed bool
}

// RedeemReward debits the reward's point cost, records the redemption,
// and for wallet_credit rewards requests the wallet payout.
func (e *Engine) RedeemReward(ctx context.Context, userID ledger.UserID, role ledger.Role, rewardID string) (*RedemptionResult, error) {
	if _, err := e.catalog.Role(role); err != nil {
		return nil, err
	}
	reward, err := e.catalog.Reward(rewardID)
	if err != nil {
		return nil, err
	}
	if !reward.Active {
		return nil, ledger.ErrRewardInactive
	}

	now := e.now().UTC()
	entry := ledger.Entry{
		ID:        ledger.EntryID(uuid.NewString()),
		UserID:    userID,
		Role:      role,
		Points:    -reward.PointsRequired,
		Source:    ledger.SourceRedemptionDebit,
		Reference: reward.ID,
		CreatedAt: now,
	}
	redemption := ledger.UserReward{
		ID:         uuid.NewString(),
		UserID:     userID,
		Role:       role,
		RewardID:   reward.ID,
		Points:     reward.PointsRequired,
		RedeemedAt: now,
	}
	key := creditKey("redeem", entry.ID)

	err = e.store.WithTx(ctx, func(tx ledger.TxOps) error {
		balance, err := tx.BalanceAt(ctx, userID, role, now)
		if err != nil {
			return fmt.Errorf("%w: %v", ledger.ErrStorage, err)
		}
		if balance < reward.PointsRequired {
			return &ledger.InsufficientPointsError{
				UserID:    userID,
				Role:      role,
				Available: balance,
				Requested: reward.PointsRequired,
			}
		}
		if err := tx.Append(ctx, entry); err != nil {
			return err
		}
		if err := tx.RecordRedemption(ctx, redemption); err != nil {
			return err
		}
		if reward.Type == catalog.RewardWalletCredit {
			return tx.RecordCreditRequest(ctx, ledger.CreditRequest{
				IdempotencyKey: key,
				UserID:         userID,
				Amount:         reward.Value,
				Currency:       reward.Currency,
				CreatedAt:      now,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.metrics.Debited(string(role), string(ledger.SourceRedemptionDebit), reward.PointsRequired)

	result := &RedemptionResult{Redemption: redemption, Reward: reward}

	if reward.Type == catalog.RewardWalletCredit {
		result.CreditRequested = true
		result.IdempotencyKey = key
		if err := e.deliverCredit(ctx, userID, key); err != nil {
			result.CreditDeliveryFailed = true
			e.metrics.DeliveryFailed()
			log.WithError(err).WithFields(log.Fields{
				"user":   userID,
				"reward": reward.ID,
				"key":    key,
			}).Warn("reward credit delivery failed; redemption stands, credit pending")
			return result, nil
		}
	}

	e.notify(ctx, userID, role, "reward.redeemed", map[string]string{
		"reward": reward.ID,
		"name":   reward.Name,
	}, PriorityNormal)
	e.emit(ctx, "reward.redeemed", result, string(userID))

	return result, nil
}

// =============================================================================
// DELIVERY RETRY
// =============================================================================

// RetryCreditDelivery re-attempts a failed wallet delivery by idempotency
// key. Safe to call any number of times: a delivered request is a no-op,
// and the wallet port guarantees at most one application per key.
func (e *Engine) RetryCreditDelivery(ctx context.Context, idempotencyKey string) error {
	req, err := e.store.GetCreditRequest(ctx, idempotencyKey)
	if err != nil {
		return err
	}
	if req.Delivered {
		return nil
	}
	if err := e.deliverCredit(ctx, req.UserID, idempotencyKey); err != nil {
		e.metrics.DeliveryFailed()
		return err
	}
	return nil
}
