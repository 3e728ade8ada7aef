package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/points-engine/api"
	"github.com/warp/points-engine/catalog"
	"github.com/warp/points-engine/engine"
	"github.com/warp/points-engine/ledger"
	"github.com/warp/points-engine/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const testCatalog = `
[roles.driver]
max_points_per_day = 400
point_expiry_days = 30
conversion_ratio = "0.1"
currency = "USD"

[[roles.driver.actions]]
action = "ride_completed"
base_points = 150

[[roles.driver.actions]]
action = "five_star_rating"
base_points = 20
role_agnostic = true
wallet_credit_bonus = "0.50"

[[roles.driver.badges]]
id = "road-warrior"
name = "Road Warrior"
action = "ride_completed"
count = 2

[[rewards]]
id = "hoodie"
name = "Hoodie"
points_required = 200
type = "catalog_item"
active = true
`

type testServer struct {
	router http.Handler
	wallet *brokenWallet
}

// brokenWallet can be switched into failure mode mid-test.
type brokenWallet struct {
	*engine.MemoryWallet
	broken bool
}

func (w *brokenWallet) Credit(ctx context.Context, userID ledger.UserID, amount decimal.Decimal, currency, key string) (bool, error) {
	if w.broken {
		return false, fmt.Errorf("wallet service unavailable")
	}
	return w.MemoryWallet.Credit(ctx, userID, amount, currency, key)
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cat, err := catalog.Parse(testCatalog)
	require.NoError(t, err)

	wallet := &brokenWallet{MemoryWallet: engine.NewMemoryWallet()}
	eng := engine.New(store.NewMemory(), cat, wallet,
		engine.WithNotifier(engine.NopNotifier{}),
		engine.WithEmitter(engine.NopEmitter{}),
	)

	handler := api.NewHandler(eng, cat)
	return &testServer{router: api.NewRouter(handler, nil), wallet: wallet}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func award(t *testing.T, ts *testServer, userID string) *httptest.ResponseRecorder {
	t.Helper()
	return ts.do(t, http.MethodPost, "/api/points/award", map[string]any{
		"user_id": userID,
		"role":    "driver",
		"action":  "ride_completed",
	})
}

// =============================================================================
// AWARD ENDPOINT
// =============================================================================

func TestAwardEndpoint_Success(t *testing.T) {
	ts := newTestServer(t)

	rec := award(t, ts, "driver-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[struct {
		Entry struct {
			Points    int64  `json:"points"`
			ExpiresAt string `json:"expires_at"`
		} `json:"entry"`
	}](t, rec)
	assert.Equal(t, int64(150), resp.Entry.Points)
	assert.NotEmpty(t, resp.Entry.ExpiresAt)
}

func TestAwardEndpoint_BadgeInResponse(t *testing.T) {
	ts := newTestServer(t)

	award(t, ts, "driver-1")
	rec := award(t, ts, "driver-1")
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decode[struct {
		UnlockedBadges []struct {
			ID string `json:"id"`
		} `json:"unlocked_badges"`
	}](t, rec)
	require.Len(t, resp.UnlockedBadges, 1)
	assert.Equal(t, "road-warrior", resp.UnlockedBadges[0].ID)
}

func TestAwardEndpoint_BonusFieldsInResponse(t *testing.T) {
	// GIVEN: A bonus-paying action and a broken wallet
	// WHEN: Awarding
	// THEN: 201 with bonus_requested=true and a pending retry key

	ts := newTestServer(t)
	ts.wallet.broken = true

	rec := ts.do(t, http.MethodPost, "/api/points/award", map[string]any{
		"user_id": "driver-1",
		"role":    "driver",
		"action":  "five_star_rating",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[struct {
		BonusRequested bool   `json:"bonus_requested"`
		BonusKey       string `json:"bonus_key"`
		BonusPending   bool   `json:"bonus_pending"`
	}](t, rec)
	assert.True(t, resp.BonusRequested)
	assert.True(t, resp.BonusPending)
	require.NotEmpty(t, resp.BonusKey)

	ts.wallet.broken = false
	retry := ts.do(t, http.MethodPost, "/api/credits/"+resp.BonusKey+"/retry", nil)
	require.Equal(t, http.StatusOK, retry.Code, retry.Body.String())
	assert.True(t, ts.wallet.Balance("driver-1").Equal(decimal.RequireFromString("0.5")))
}

func TestAwardEndpoint_CapReturns409(t *testing.T) {
	ts := newTestServer(t)

	require.Equal(t, http.StatusCreated, award(t, ts, "driver-1").Code)
	require.Equal(t, http.StatusCreated, award(t, ts, "driver-1").Code)

	rec := award(t, ts, "driver-1")
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

func TestAwardEndpoint_BadInput(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/points/award", map[string]any{
		"user_id": "driver-1",
		"role":    "pilot",
		"action":  "ride_completed",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/points/award", map[string]any{
		"role":   "driver",
		"action": "ride_completed",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing user_id")
}

// =============================================================================
// BALANCE & HISTORY ENDPOINTS
// =============================================================================

func TestBalanceEndpoint(t *testing.T) {
	ts := newTestServer(t)
	award(t, ts, "driver-1")

	rec := ts.do(t, http.MethodGet, "/api/users/driver-1/balance?role=driver", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[struct {
		Balance int64 `json:"balance"`
	}](t, rec)
	assert.Equal(t, int64(150), resp.Balance)
}

func TestHistoryEndpoint_NewestFirst(t *testing.T) {
	ts := newTestServer(t)
	award(t, ts, "driver-1")
	award(t, ts, "driver-1")

	rec := ts.do(t, http.MethodGet, "/api/users/driver-1/history?role=driver&limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	entries := decode[[]struct {
		Points int64 `json:"points"`
	}](t, rec)
	assert.Len(t, entries, 2)
}

// =============================================================================
// CONVERT & RETRY ENDPOINTS
// =============================================================================

func TestConvertEndpoint_PendingCreditAnd202(t *testing.T) {
	// GIVEN: A funded driver and a broken wallet
	// WHEN: Converting points
	// THEN: 202 with credit_pending=true, then the retry endpoint delivers

	ts := newTestServer(t)
	award(t, ts, "driver-1")
	award(t, ts, "driver-1")

	ts.wallet.broken = true
	rec := ts.do(t, http.MethodPost, "/api/points/convert", map[string]any{
		"user_id": "driver-1",
		"role":    "driver",
		"points":  200,
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	resp := decode[struct {
		Debited       int64  `json:"debited"`
		CreditAmount  string `json:"credit_amount"`
		CreditKey     string `json:"credit_key"`
		CreditPending bool   `json:"credit_pending"`
	}](t, rec)
	assert.Equal(t, int64(200), resp.Debited)
	assert.Equal(t, "20", resp.CreditAmount)
	assert.True(t, resp.CreditPending)
	require.NotEmpty(t, resp.CreditKey)

	ts.wallet.broken = false
	retry := ts.do(t, http.MethodPost, "/api/credits/"+resp.CreditKey+"/retry", nil)
	require.Equal(t, http.StatusOK, retry.Code, retry.Body.String())
	assert.True(t, ts.wallet.Balance("driver-1").Equal(decimal.RequireFromString("20")))
}

func TestConvertEndpoint_InsufficientReturns409(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/points/convert", map[string]any{
		"user_id": "driver-1",
		"role":    "driver",
		"points":  200,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRetryEndpoint_UnknownKeyReturns404(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/credits/convert:nope/retry", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// REDEEM & REWARDS ENDPOINTS
// =============================================================================

func TestRedeemEndpoint(t *testing.T) {
	ts := newTestServer(t)
	award(t, ts, "driver-1")
	award(t, ts, "driver-1")

	rec := ts.do(t, http.MethodPost, "/api/points/redeem", map[string]any{
		"user_id":   "driver-1",
		"role":      "driver",
		"reward_id": "hoodie",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[struct {
		RewardID string `json:"reward_id"`
		Points   int64  `json:"points"`
	}](t, rec)
	assert.Equal(t, "hoodie", resp.RewardID)
	assert.Equal(t, int64(200), resp.Points)

	list := ts.do(t, http.MethodGet, "/api/users/driver-1/redemptions", nil)
	require.Equal(t, http.StatusOK, list.Code)
	redemptions := decode[[]struct {
		RewardID string `json:"reward_id"`
	}](t, list)
	assert.Len(t, redemptions, 1)
}

func TestRedeemEndpoint_UnknownRewardReturns404(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/points/redeem", map[string]any{
		"user_id":   "driver-1",
		"role":      "driver",
		"reward_id": "no-such",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRewardsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/rewards", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rewards := decode[[]struct {
		ID string `json:"id"`
	}](t, rec)
	require.Len(t, rewards, 1)
	assert.Equal(t, "hoodie", rewards[0].ID)
}

// =============================================================================
// ADMIN & MISC ENDPOINTS
// =============================================================================

func TestAdjustmentEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/admin/adjustments", map[string]any{
		"user_id": "driver-1",
		"role":    "driver",
		"points":  -50,
		"reason":  "fraud reversal",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[struct {
		Points int64  `json:"points"`
		Source string `json:"source"`
	}](t, rec)
	assert.Equal(t, int64(-50), resp.Points)
	assert.Equal(t, "adjustment", resp.Source)
}

func TestAdjustmentEndpoint_RequiresReason(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/admin/adjustments", map[string]any{
		"user_id": "driver-1",
		"role":    "driver",
		"points":  -50,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExpiringEndpoint(t *testing.T) {
	ts := newTestServer(t)
	award(t, ts, "driver-1")

	// 30-day expiry falls outside a 7-day window but inside 31 days.
	rec := ts.do(t, http.MethodGet, "/api/users/driver-1/expiring?role=driver&days=7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	near := decode[struct {
		Points int64 `json:"points"`
	}](t, rec)
	assert.Equal(t, int64(0), near.Points)

	rec = ts.do(t, http.MethodGet, "/api/users/driver-1/expiring?role=driver&days=31", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	wide := decode[struct {
		Points int64 `json:"points"`
	}](t, rec)
	assert.Equal(t, int64(150), wide.Points)
}

func TestHealthzEndpoint(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBadgesEndpoint(t *testing.T) {
	ts := newTestServer(t)
	award(t, ts, "driver-1")

	rec := ts.do(t, http.MethodGet, "/api/users/driver-1/badges?role=driver", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	badges := decode[[]struct {
		ID     string `json:"id"`
		Count  int64  `json:"count"`
		Earned bool   `json:"earned"`
	}](t, rec)
	require.Len(t, badges, 1)
	assert.Equal(t, "road-warrior", badges[0].ID)
	assert.Equal(t, int64(1), badges[0].Count)
	assert.False(t, badges[0].Earned)
}
