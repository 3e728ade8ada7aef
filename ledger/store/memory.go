// Package store provides an in-memory EngineStore implementation
// for testing and development.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/points-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	entries     map[userRole][]ledger.Entry
	badges      map[badgeKey]ledger.UserBadge
	redemptions map[ledger.UserID][]ledger.UserReward
	credits     map[string]ledger.CreditRequest
}

type userRole struct {
	UserID ledger.UserID
	Role   ledger.Role
}

type badgeKey struct {
	UserID  ledger.UserID
	BadgeID string
}

func NewMemory() *Memory {
	return &Memory{
		entries:     make(map[userRole][]ledger.Entry),
		badges:      make(map[badgeKey]ledger.UserBadge),
		redemptions: make(map[ledger.UserID][]ledger.UserReward),
		credits:     make(map[string]ledger.CreditRequest),
	}
}

var _ ledger.EngineStore = (*Memory)(nil)

// Append adds a single entry. Append-only.
func (m *Memory) Append(_ context.Context, e ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(e)
}

func (m *Memory) appendLocked(e ledger.Entry) error {
	if e.Points == 0 {
		return ledger.ErrZeroPoints
	}
	k := userRole{UserID: e.UserID, Role: e.Role}
	m.entries[k] = append(m.entries[k], e)
	return nil
}

func (m *Memory) Entries(_ context.Context, userID ledger.UserID, role ledger.Role) ([]ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entriesLocked(userID, role), nil
}

func (m *Memory) entriesLocked(userID ledger.UserID, role ledger.Role) []ledger.Entry {
	k := userRole{UserID: userID, Role: role}
	result := make([]ledger.Entry, len(m.entries[k]))
	copy(result, m.entries[k])
	return result
}

func (m *Memory) History(_ context.Context, userID ledger.UserID, role ledger.Role, limit, offset int) ([]ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.entriesLocked(userID, role)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (m *Memory) DailyCreditTotal(_ context.Context, userID ledger.UserID, role ledger.Role, day time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return ledger.DailyCreditTotal(m.entriesLocked(userID, role), day), nil
}

func (m *Memory) BalanceAt(_ context.Context, userID ledger.UserID, role ledger.Role, at time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return ledger.Balance(m.entriesLocked(userID, role), at), nil
}

func (m *Memory) QualifyingCount(_ context.Context, userID ledger.UserID, action string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for k, entries := range m.entries {
		if k.UserID != userID {
			continue
		}
		count += ledger.QualifyingCount(entries, action)
	}
	return count, nil
}

func (m *Memory) ExpiringWithin(_ context.Context, userID ledger.UserID, role ledger.Role, from, until time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return ledger.ExpiringWithin(m.entriesLocked(userID, role), from, until), nil
}

func (m *Memory) ExpiringSummaries(_ context.Context, from, until time.Time) ([]ledger.ExpiringSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ledger.ExpiringSummary
	for k, entries := range m.entries {
		total := ledger.ExpiringWithin(entries, from, until)
		if total > 0 {
			result = append(result, ledger.ExpiringSummary{UserID: k.UserID, Role: k.Role, Points: total})
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].UserID != result[j].UserID {
			return result[i].UserID < result[j].UserID
		}
		return result[i].Role < result[j].Role
	})
	return result, nil
}

// =============================================================================
// BADGE STORE
// =============================================================================

// GrantBadge inserts a grant. Returns (false, nil) when the pair exists,
// mirroring the unique-constraint behavior of the SQLite store.
func (m *Memory) GrantBadge(_ context.Context, grant ledger.UserBadge) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := badgeKey{UserID: grant.UserID, BadgeID: grant.BadgeID}
	if _, ok := m.badges[k]; ok {
		return false, nil
	}
	m.badges[k] = grant
	return true, nil
}

func (m *Memory) UserBadges(_ context.Context, userID ledger.UserID) ([]ledger.UserBadge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ledger.UserBadge
	for k, b := range m.badges {
		if k.UserID == userID {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].AwardedAt.Before(result[j].AwardedAt)
	})
	return result, nil
}

// =============================================================================
// REWARD STORE
// =============================================================================

func (m *Memory) RecordRedemption(_ context.Context, r ledger.UserReward) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordRedemptionLocked(r)
	return nil
}

func (m *Memory) recordRedemptionLocked(r ledger.UserReward) {
	m.redemptions[r.UserID] = append(m.redemptions[r.UserID], r)
}

func (m *Memory) Redemptions(_ context.Context, userID ledger.UserID) ([]ledger.UserReward, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]ledger.UserReward, len(m.redemptions[userID]))
	copy(result, m.redemptions[userID])
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].RedeemedAt.After(result[j].RedeemedAt)
	})
	return result, nil
}

// =============================================================================
// CREDIT JOURNAL
// =============================================================================

func (m *Memory) RecordCreditRequest(_ context.Context, req ledger.CreditRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credits[req.IdempotencyKey] = req
	return nil
}

func (m *Memory) GetCreditRequest(_ context.Context, key string) (*ledger.CreditRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	req, ok := m.credits[key]
	if !ok {
		return nil, ledger.ErrCreditRequestNotFound
	}
	return &req, nil
}

func (m *Memory) MarkCreditDelivered(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.credits[key]
	if !ok {
		return ledger.ErrCreditRequestNotFound
	}
	req.Delivered = true
	req.Attempts++
	m.credits[key] = req
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn while holding the write lock, simulated with a
// snapshot + rollback on error. Concurrent WithTx calls serialize, which
// is exactly the guarantee the cap check depends on.
func (m *Memory) WithTx(ctx context.Context, fn func(ledger.TxOps) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	view := &txView{parent: m}

	if err := fn(view); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	entries     map[userRole][]ledger.Entry
	redemptions map[ledger.UserID][]ledger.UserReward
	credits     map[string]ledger.CreditRequest
}

func (m *Memory) snapshot() memorySnapshot {
	entries := make(map[userRole][]ledger.Entry, len(m.entries))
	for k, v := range m.entries {
		entries[k] = append([]ledger.Entry{}, v...)
	}
	redemptions := make(map[ledger.UserID][]ledger.UserReward, len(m.redemptions))
	for k, v := range m.redemptions {
		redemptions[k] = append([]ledger.UserReward{}, v...)
	}
	credits := make(map[string]ledger.CreditRequest, len(m.credits))
	for k, v := range m.credits {
		credits[k] = v
	}
	return memorySnapshot{entries: entries, redemptions: redemptions, credits: credits}
}

func (m *Memory) restore(s memorySnapshot) {
	m.entries = s.entries
	m.redemptions = s.redemptions
	m.credits = s.credits
}

// txView routes TxOps calls to the parent without re-acquiring its lock.
type txView struct {
	parent *Memory
}

var _ ledger.TxOps = (*txView)(nil)

func (tv *txView) Append(_ context.Context, e ledger.Entry) error {
	return tv.parent.appendLocked(e)
}

func (tv *txView) Entries(_ context.Context, userID ledger.UserID, role ledger.Role) ([]ledger.Entry, error) {
	return tv.parent.entriesLocked(userID, role), nil
}

func (tv *txView) History(_ context.Context, userID ledger.UserID, role ledger.Role, limit, offset int) ([]ledger.Entry, error) {
	all := tv.parent.entriesLocked(userID, role)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (tv *txView) DailyCreditTotal(_ context.Context, userID ledger.UserID, role ledger.Role, day time.Time) (int64, error) {
	return ledger.DailyCreditTotal(tv.parent.entriesLocked(userID, role), day), nil
}

func (tv *txView) BalanceAt(_ context.Context, userID ledger.UserID, role ledger.Role, at time.Time) (int64, error) {
	return ledger.Balance(tv.parent.entriesLocked(userID, role), at), nil
}

func (tv *txView) QualifyingCount(_ context.Context, userID ledger.UserID, action string) (int64, error) {
	var count int64
	for k, entries := range tv.parent.entries {
		if k.UserID != userID {
			continue
		}
		count += ledger.QualifyingCount(entries, action)
	}
	return count, nil
}

func (tv *txView) ExpiringWithin(_ context.Context, userID ledger.UserID, role ledger.Role, from, until time.Time) (int64, error) {
	return ledger.ExpiringWithin(tv.parent.entriesLocked(userID, role), from, until), nil
}

func (tv *txView) RecordRedemption(_ context.Context, r ledger.UserReward) error {
	tv.parent.recordRedemptionLocked(r)
	return nil
}

func (tv *txView) Redemptions(_ context.Context, userID ledger.UserID) ([]ledger.UserReward, error) {
	result := make([]ledger.UserReward, len(tv.parent.redemptions[userID]))
	copy(result, tv.parent.redemptions[userID])
	return result, nil
}

func (tv *txView) RecordCreditRequest(_ context.Context, req ledger.CreditRequest) error {
	tv.parent.credits[req.IdempotencyKey] = req
	return nil
}

func (tv *txView) GetCreditRequest(_ context.Context, key string) (*ledger.CreditRequest, error) {
	req, ok := tv.parent.credits[key]
	if !ok {
		return nil, ledger.ErrCreditRequestNotFound
	}
	return &req, nil
}

func (tv *txView) MarkCreditDelivered(_ context.Context, key string) error {
	req, ok := tv.parent.credits[key]
	if !ok {
		return ledger.ErrCreditRequestNotFound
	}
	req.Delivered = true
	req.Attempts++
	tv.parent.credits[key] = req
	return nil
}
