/*
Package sqlite provides the SQLite-backed implementation of the ledger
storage interfaces.

PURPOSE:
  Implements ledger.EngineStore using SQLite. The same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE or DELETE statements touch the entries table
  - A CHECK constraint rejects zero-point rows at the schema level
  - Corrections are new offsetting entries

KEY TABLES:
  entries:         Immutable ledger of all point changes
  user_badges:     Badge grants; (user_id, badge_id) primary key makes
                   grants idempotent
  user_rewards:    Redemption records
  credit_requests: Wallet delivery journal keyed by idempotency key

CONCURRENCY:
  A sync.RWMutex serializes writers; WithTx holds the write lock for the
  whole transaction, so a cap check + insert pair is atomic with respect
  to every other writer. SQLite runs in WAL mode so readers do not block.

BALANCE IN SQL:
  BalanceAt expresses the formula from ledger/balance.go directly:
  debits always count, credits count only while unexpired. The store
  tests pin the SQL against the Go formula.

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/points-engine/ledger"
)

// Store implements ledger.EngineStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ ledger.EngineStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: writers are serialized by the mutex anyway, and
	// ":memory:" databases are per-connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Entries (append-only ledger)
	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		sub_role TEXT,
		action TEXT,
		points INTEGER NOT NULL CHECK (points <> 0),
		source_type TEXT NOT NULL,
		reference TEXT,
		metadata_json TEXT,
		created_at TEXT NOT NULL,
		expires_at TEXT
	);

	-- Daily-cap and balance queries (hot path)
	CREATE INDEX IF NOT EXISTS idx_entries_user_role_created
		ON entries(user_id, role, created_at);

	-- Badge threshold counting
	CREATE INDEX IF NOT EXISTS idx_entries_user_action
		ON entries(user_id, action) WHERE points > 0;

	-- Expiry window queries
	CREATE INDEX IF NOT EXISTS idx_entries_expiry
		ON entries(expires_at) WHERE expires_at IS NOT NULL;

	-- Badge grants: the primary key IS the idempotence guarantee
	CREATE TABLE IF NOT EXISTS user_badges (
		user_id TEXT NOT NULL,
		badge_id TEXT NOT NULL,
		awarded_at TEXT NOT NULL,
		PRIMARY KEY (user_id, badge_id)
	);

	-- Reward redemptions
	CREATE TABLE IF NOT EXISTS user_rewards (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		reward_id TEXT NOT NULL,
		points INTEGER NOT NULL,
		redeemed_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_user_rewards_user
		ON user_rewards(user_id, redeemed_at DESC);

	-- Wallet credit journal
	CREATE TABLE IF NOT EXISTS credit_requests (
		idempotency_key TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		delivered INTEGER NOT NULL DEFAULT 0,
		attempts INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ENTRY STORE (ledger.Store interface)
// =============================================================================

// querier is satisfied by both *sql.DB and *sql.Tx, so every query
// helper runs either on the shared connection or inside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Append adds an entry to the ledger.
func (s *Store) Append(ctx context.Context, e ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.appendEntry(ctx, s.db, e)
}

func (s *Store) appendEntry(ctx context.Context, db querier, e ledger.Entry) error {
	if e.Points == 0 {
		return ledger.ErrZeroPoints
	}

	var metadataJSON string
	if len(e.Metadata) > 0 {
		raw, _ := json.Marshal(e.Metadata)
		metadataJSON = string(raw)
	}

	var expiresAt any
	if e.ExpiresAt != nil {
		expiresAt = e.ExpiresAt.UTC().Format(time.RFC3339)
	}

	query := `
		INSERT INTO entries
		(id, user_id, role, sub_role, action, points, source_type, reference, metadata_json, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		e.ID,
		e.UserID,
		e.Role,
		nullString(e.SubRole),
		nullString(e.Action),
		e.Points,
		e.Source,
		nullString(e.Reference),
		nullString(metadataJSON),
		e.CreatedAt.UTC().Format(time.RFC3339),
		expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append entry: %w", err)
	}
	return nil
}

// Entries returns all entries for user+role, oldest first.
func (s *Store) Entries(ctx context.Context, userID ledger.UserID, role ledger.Role) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.entriesAsc(ctx, s.db, userID, role)
}

func (s *Store) entriesAsc(ctx context.Context, db querier, userID ledger.UserID, role ledger.Role) ([]ledger.Entry, error) {
	query := entrySelect + `
		WHERE user_id = ? AND role = ?
		ORDER BY created_at ASC, id ASC
	`
	return s.queryEntries(ctx, db, query, userID, role)
}

// History returns entries for user+role, newest first, paged.
// limit <= 0 means no limit.
func (s *Store) History(ctx context.Context, userID ledger.UserID, role ledger.Role, limit, offset int) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.history(ctx, s.db, userID, role, limit, offset)
}

func (s *Store) history(ctx context.Context, db querier, userID ledger.UserID, role ledger.Role, limit, offset int) ([]ledger.Entry, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	query := entrySelect + `
		WHERE user_id = ? AND role = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	return s.queryEntries(ctx, db, query, userID, role, limit, offset)
}

// DailyCreditTotal sums credits created on the same UTC day as `day`.
func (s *Store) DailyCreditTotal(ctx context.Context, userID ledger.UserID, role ledger.Role, day time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.dailyCreditTotal(ctx, s.db, userID, role, day)
}

func (s *Store) dailyCreditTotal(ctx context.Context, db querier, userID ledger.UserID, role ledger.Role, day time.Time) (int64, error) {
	day = day.UTC()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	query := `
		SELECT COALESCE(SUM(points), 0) FROM entries
		WHERE user_id = ? AND role = ? AND points > 0
		  AND created_at >= ? AND created_at < ?
	`
	var total int64
	err := db.QueryRowContext(ctx, query, userID, role,
		start.Format(time.RFC3339), end.Format(time.RFC3339)).Scan(&total)
	return total, err
}

// BalanceAt computes the spendable balance: all debits plus credits whose
// expiry is still in the future (NULL expiry never expires).
func (s *Store) BalanceAt(ctx context.Context, userID ledger.UserID, role ledger.Role, at time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.balanceAt(ctx, s.db, userID, role, at)
}

func (s *Store) balanceAt(ctx context.Context, db querier, userID ledger.UserID, role ledger.Role, at time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(points), 0) FROM entries
		WHERE user_id = ? AND role = ?
		  AND (points < 0 OR expires_at IS NULL OR expires_at > ?)
	`
	var total int64
	err := db.QueryRowContext(ctx, query, userID, role,
		at.UTC().Format(time.RFC3339)).Scan(&total)
	return total, err
}

// QualifyingCount counts credit entries for an action regardless of expiry.
func (s *Store) QualifyingCount(ctx context.Context, userID ledger.UserID, action string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.qualifyingCount(ctx, s.db, userID, action)
}

func (s *Store) qualifyingCount(ctx context.Context, db querier, userID ledger.UserID, action string) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM entries WHERE user_id = ? AND action = ? AND points > 0",
		userID, action,
	).Scan(&count)
	return count, err
}

// ExpiringWithin sums credits expiring in (from, until].
func (s *Store) ExpiringWithin(ctx context.Context, userID ledger.UserID, role ledger.Role, from, until time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.expiringWithin(ctx, s.db, userID, role, from, until)
}

func (s *Store) expiringWithin(ctx context.Context, db querier, userID ledger.UserID, role ledger.Role, from, until time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(points), 0) FROM entries
		WHERE user_id = ? AND role = ? AND points > 0
		  AND expires_at IS NOT NULL AND expires_at > ? AND expires_at <= ?
	`
	var total int64
	err := db.QueryRowContext(ctx, query, userID, role,
		from.UTC().Format(time.RFC3339), until.UTC().Format(time.RFC3339)).Scan(&total)
	return total, err
}

// ExpiringSummaries returns every user/role with credits expiring in the
// window, for the reminder sweep.
func (s *Store) ExpiringSummaries(ctx context.Context, from, until time.Time) ([]ledger.ExpiringSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT user_id, role, SUM(points) FROM entries
		WHERE points > 0
		  AND expires_at IS NOT NULL AND expires_at > ? AND expires_at <= ?
		GROUP BY user_id, role
		ORDER BY user_id, role
	`
	rows, err := s.db.QueryContext(ctx, query,
		from.UTC().Format(time.RFC3339), until.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.ExpiringSummary
	for rows.Next() {
		var sum ledger.ExpiringSummary
		if err := rows.Scan(&sum.UserID, &sum.Role, &sum.Points); err != nil {
			return nil, err
		}
		result = append(result, sum)
	}
	return result, rows.Err()
}

const entrySelect = `
	SELECT id, user_id, role, sub_role, action, points, source_type, reference, metadata_json, created_at, expires_at
	FROM entries
`

func (s *Store) queryEntries(ctx context.Context, db querier, query string, args ...any) ([]ledger.Entry, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(rows *sql.Rows) (ledger.Entry, error) {
	var (
		e            ledger.Entry
		subRole      sql.NullString
		action       sql.NullString
		reference    sql.NullString
		metadataJSON sql.NullString
		createdAt    string
		expiresAt    sql.NullString
	)

	err := rows.Scan(&e.ID, &e.UserID, &e.Role, &subRole, &action, &e.Points,
		&e.Source, &reference, &metadataJSON, &createdAt, &expiresAt)
	if err != nil {
		return e, fmt.Errorf("failed to scan entry: %w", err)
	}

	e.SubRole = subRole.String
	e.Action = action.String
	e.Reference = reference.String
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if expiresAt.Valid {
		t, _ := time.Parse(time.RFC3339, expiresAt.String)
		e.ExpiresAt = &t
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		json.Unmarshal([]byte(metadataJSON.String), &e.Metadata)
	}
	return e, nil
}

// =============================================================================
// BADGE STORE
// =============================================================================

// GrantBadge inserts a grant. The (user_id, badge_id) primary key makes
// this idempotent: a duplicate insert returns (false, nil).
func (s *Store) GrantBadge(ctx context.Context, grant ledger.UserBadge) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO user_badges (user_id, badge_id, awarded_at) VALUES (?, ?, ?)",
		grant.UserID, grant.BadgeID, grant.AwardedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to grant badge: %w", err)
	}
	return true, nil
}

// UserBadges returns all grants for a user, oldest first.
func (s *Store) UserBadges(ctx context.Context, userID ledger.UserID) ([]ledger.UserBadge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id, badge_id, awarded_at FROM user_badges WHERE user_id = ? ORDER BY awarded_at ASC, badge_id ASC",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var badges []ledger.UserBadge
	for rows.Next() {
		var b ledger.UserBadge
		var awardedAt string
		if err := rows.Scan(&b.UserID, &b.BadgeID, &awardedAt); err != nil {
			return nil, err
		}
		b.AwardedAt, _ = time.Parse(time.RFC3339, awardedAt)
		badges = append(badges, b)
	}
	return badges, rows.Err()
}

// =============================================================================
// REWARD STORE
// =============================================================================

func (s *Store) RecordRedemption(ctx context.Context, r ledger.UserReward) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.recordRedemption(ctx, s.db, r)
}

func (s *Store) recordRedemption(ctx context.Context, db querier, r ledger.UserReward) error {
	_, err := db.ExecContext(ctx,
		"INSERT INTO user_rewards (id, user_id, role, reward_id, points, redeemed_at) VALUES (?, ?, ?, ?, ?, ?)",
		r.ID, r.UserID, r.Role, r.RewardID, r.Points, r.RedeemedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record redemption: %w", err)
	}
	return nil
}

func (s *Store) Redemptions(ctx context.Context, userID ledger.UserID) ([]ledger.UserReward, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.redemptions(ctx, s.db, userID)
}

func (s *Store) redemptions(ctx context.Context, db querier, userID ledger.UserID) ([]ledger.UserReward, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, role, reward_id, points, redeemed_at
		FROM user_rewards WHERE user_id = ?
		ORDER BY redeemed_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rewards []ledger.UserReward
	for rows.Next() {
		var r ledger.UserReward
		var redeemedAt string
		if err := rows.Scan(&r.ID, &r.UserID, &r.Role, &r.RewardID, &r.Points, &redeemedAt); err != nil {
			return nil, err
		}
		r.RedeemedAt, _ = time.Parse(time.RFC3339, redeemedAt)
		rewards = append(rewards, r)
	}
	return rewards, rows.Err()
}

// =============================================================================
// CREDIT JOURNAL
// =============================================================================

func (s *Store) RecordCreditRequest(ctx context.Context, req ledger.CreditRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.recordCreditRequest(ctx, s.db, req)
}

func (s *Store) recordCreditRequest(ctx context.Context, db querier, req ledger.CreditRequest) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO credit_requests (idempotency_key, user_id, amount, currency, delivered, attempts, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(idempotency_key) DO NOTHING`,
		req.IdempotencyKey, req.UserID, req.Amount.String(), req.Currency,
		boolToInt(req.Delivered), req.Attempts,
		req.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record credit request: %w", err)
	}
	return nil
}

func (s *Store) GetCreditRequest(ctx context.Context, key string) (*ledger.CreditRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getCreditRequest(ctx, s.db, key)
}

func (s *Store) getCreditRequest(ctx context.Context, db querier, key string) (*ledger.CreditRequest, error) {
	var (
		req       ledger.CreditRequest
		amount    string
		delivered int
		createdAt string
	)
	err := db.QueryRowContext(ctx, `
		SELECT idempotency_key, user_id, amount, currency, delivered, attempts, created_at
		FROM credit_requests WHERE idempotency_key = ?`,
		key,
	).Scan(&req.IdempotencyKey, &req.UserID, &amount, &req.Currency, &delivered, &req.Attempts, &createdAt)

	if err == sql.ErrNoRows {
		return nil, ledger.ErrCreditRequestNotFound
	}
	if err != nil {
		return nil, err
	}

	req.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credit amount %q: %w", amount, err)
	}
	req.Delivered = delivered != 0
	req.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &req, nil
}

// MarkCreditDelivered flips the delivered flag. The journal is the one
// table updated in place; it tracks delivery state, not ledger state.
func (s *Store) MarkCreditDelivered(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.markCreditDelivered(ctx, s.db, key)
}

func (s *Store) markCreditDelivered(ctx context.Context, db querier, key string) error {
	res, err := db.ExecContext(ctx,
		"UPDATE credit_requests SET delivered = 1, attempts = attempts + 1 WHERE idempotency_key = ?",
		key,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ledger.ErrCreditRequestNotFound
	}
	return nil
}

// =============================================================================
// TRANSACTIONS (ledger.EngineStore interface)
// =============================================================================

// WithTx executes fn within a database transaction while holding the
// write lock, so a cap-check + insert pair is atomic with respect to
// every other writer.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.TxOps) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ledger.ErrStorage, err)
	}
	defer sqlTx.Rollback()

	ops := &txOps{tx: sqlTx, parent: s}
	if err := fn(ops); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ledger.ErrStorage, err)
	}
	return nil
}

// txOps routes every operation through the open transaction, so reads
// observe the transaction's own uncommitted writes.
type txOps struct {
	tx     *sql.Tx
	parent *Store
}

var _ ledger.TxOps = (*txOps)(nil)

func (t *txOps) Append(ctx context.Context, e ledger.Entry) error {
	return t.parent.appendEntry(ctx, t.tx, e)
}

func (t *txOps) Entries(ctx context.Context, userID ledger.UserID, role ledger.Role) ([]ledger.Entry, error) {
	return t.parent.entriesAsc(ctx, t.tx, userID, role)
}

func (t *txOps) History(ctx context.Context, userID ledger.UserID, role ledger.Role, limit, offset int) ([]ledger.Entry, error) {
	return t.parent.history(ctx, t.tx, userID, role, limit, offset)
}

func (t *txOps) DailyCreditTotal(ctx context.Context, userID ledger.UserID, role ledger.Role, day time.Time) (int64, error) {
	return t.parent.dailyCreditTotal(ctx, t.tx, userID, role, day)
}

func (t *txOps) BalanceAt(ctx context.Context, userID ledger.UserID, role ledger.Role, at time.Time) (int64, error) {
	return t.parent.balanceAt(ctx, t.tx, userID, role, at)
}

func (t *txOps) QualifyingCount(ctx context.Context, userID ledger.UserID, action string) (int64, error) {
	return t.parent.qualifyingCount(ctx, t.tx, userID, action)
}

func (t *txOps) ExpiringWithin(ctx context.Context, userID ledger.UserID, role ledger.Role, from, until time.Time) (int64, error) {
	return t.parent.expiringWithin(ctx, t.tx, userID, role, from, until)
}

func (t *txOps) RecordRedemption(ctx context.Context, r ledger.UserReward) error {
	return t.parent.recordRedemption(ctx, t.tx, r)
}

func (t *txOps) Redemptions(ctx context.Context, userID ledger.UserID) ([]ledger.UserReward, error) {
	return t.parent.redemptions(ctx, t.tx, userID)
}

func (t *txOps) RecordCreditRequest(ctx context.Context, req ledger.CreditRequest) error {
	return t.parent.recordCreditRequest(ctx, t.tx, req)
}

func (t *txOps) GetCreditRequest(ctx context.Context, key string) (*ledger.CreditRequest, error) {
	return t.parent.getCreditRequest(ctx, t.tx, key)
}

func (t *txOps) MarkCreditDelivered(ctx context.Context, key string) error {
	return t.parent.markCreditDelivered(ctx, t.tx, key)
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"entries", "user_badges", "user_rewards", "credit_requests"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
