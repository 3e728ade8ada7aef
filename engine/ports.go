/*
ports.go - External collaborator contracts

PURPOSE:
  The engine's boundary consists of three narrow port interfaces, injected
  at construction so tests substitute fakes. Wallet credit is the only one
  whose failure the caller learns about (as a partial-success flag); the
  notification and event ports are fire-and-forget and their failures are
  logged, never propagated.

CONTRACTS:
  WalletCreditPort: At most one balance change per idempotency key, even
                    under retries. Failures reported as errors.
  NotificationPort: Best-effort user-facing notices.
  EventPort:        Best-effort live events (socket rooms, topics).
*/
package engine

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/warp/points-engine/ledger"
)

// =============================================================================
// PORT INTERFACES
// =============================================================================

// WalletCreditPort applies a wallet credit at most once per idempotency key.
type WalletCreditPort interface {
	// Credit applies the amount. `applied` is false when the key was
	// already used (the earlier application stands).
	Credit(ctx context.Context, userID ledger.UserID, amount decimal.Decimal, currency, idempotencyKey string) (applied bool, err error)
}

// Priority of a user-facing notice.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// NotificationPort delivers user-facing notices. Fire-and-forget: the
// ledger operation has already committed when Notify runs.
type NotificationPort interface {
	Notify(ctx context.Context, userID ledger.UserID, role ledger.Role, messageKey string, params map[string]string, priority Priority) error
}

// EventPort emits live events. Same failure policy as NotificationPort.
type EventPort interface {
	Emit(ctx context.Context, topic string, payload any, room string) error
}

// =============================================================================
// LOGGING IMPLEMENTATIONS - Default wiring when no real transport exists
// =============================================================================

// LogNotifier writes notices to the structured log.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, userID ledger.UserID, role ledger.Role, messageKey string, params map[string]string, priority Priority) error {
	log.WithFields(log.Fields{
		"user":     userID,
		"role":     role,
		"message":  messageKey,
		"params":   params,
		"priority": priority,
	}).Info("notification")
	return nil
}

// LogEmitter writes events to the structured log.
type LogEmitter struct{}

func (LogEmitter) Emit(_ context.Context, topic string, payload any, room string) error {
	log.WithFields(log.Fields{
		"topic":   topic,
		"room":    room,
		"payload": payload,
	}).Debug("event")
	return nil
}

// NopNotifier discards notices.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, ledger.UserID, ledger.Role, string, map[string]string, Priority) error {
	return nil
}

// NopEmitter discards events.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, string, any, string) error { return nil }

// =============================================================================
// MEMORY WALLET - Idempotent in-process wallet
// =============================================================================

// MemoryWallet is an in-process WalletCreditPort that honors the
// at-most-once-per-key contract. Used by tests and the demo server.
type MemoryWallet struct {
	mu       sync.Mutex
	applied  map[string]decimal.Decimal
	balances map[ledger.UserID]decimal.Decimal
}

func NewMemoryWallet() *MemoryWallet {
	return &MemoryWallet{
		applied:  make(map[string]decimal.Decimal),
		balances: make(map[ledger.UserID]decimal.Decimal),
	}
}

func (w *MemoryWallet) Credit(_ context.Context, userID ledger.UserID, amount decimal.Decimal, currency, idempotencyKey string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.applied[idempotencyKey]; ok {
		return false, nil
	}
	w.applied[idempotencyKey] = amount
	w.balances[userID] = w.balances[userID].Add(amount)
	return true, nil
}

// Balance returns the accumulated wallet balance for a user.
func (w *MemoryWallet) Balance(userID ledger.UserID) decimal.Decimal {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[userID]
}
