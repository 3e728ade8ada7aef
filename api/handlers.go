/*
handlers.go - HTTP API handlers for the points engine

PURPOSE:
  Exposes the points engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Points:
    POST   /api/points/award            Award points for an action
    POST   /api/points/convert          Convert points to wallet credit
    POST   /api/points/redeem           Redeem a catalog reward

  Users:
    GET    /api/users/{id}/balance      Current balance (?role=)
    GET    /api/users/{id}/history      Ledger history (?role=&limit=&offset=)
    GET    /api/users/{id}/badges       Badge progress (?role=)
    GET    /api/users/{id}/redemptions  Past redemptions
    GET    /api/users/{id}/expiring     Points expiring soon (?role=&days=)

  Credits:
    POST   /api/credits/{key}/retry     Retry a failed wallet delivery

  Catalog:
    GET    /api/rewards                 Active reward catalog

  Admin:
    POST   /api/admin/adjustments       Manual point adjustment

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (engine)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Rejected preconditions (cap exceeded, insufficient points)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - engine/: Domain logic
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/points-engine/catalog"
	"github.com/warp/points-engine/engine"
	"github.com/warp/points-engine/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine  *engine.Engine
	Catalog *catalog.Catalog
}

// NewHandler creates a new handler.
func NewHandler(eng *engine.Engine, cat *catalog.Catalog) *Handler {
	return &Handler{Engine: eng, Catalog: cat}
}

// =============================================================================
// POINTS HANDLERS
// =============================================================================

// AwardPoints awards points for a completed action.
// POST /api/points/award
func (h *Handler) AwardPoints(w http.ResponseWriter, r *http.Request) {
	var req AwardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required", nil)
		return
	}

	result, err := h.Engine.AwardPoints(r.Context(), engine.AwardRequest{
		UserID:     ledger.UserID(req.UserID),
		Role:       ledger.Role(req.Role),
		SubRole:    req.SubRole,
		Action:     req.Action,
		Multiplier: req.Multiplier,
		Metadata:   req.Metadata,
		Reference:  req.Reference,
	})
	if err != nil {
		writeDomainError(w, "Failed to award points", err)
		return
	}

	resp := AwardResponse{
		Entry:          toEntryDTO(result.Entry),
		UnlockedBadges: make([]BadgeDTO, 0, len(result.UnlockedBadges)),
	}
	for _, b := range result.UnlockedBadges {
		dto := toBadgeDTO(b)
		dto.Earned = true
		resp.UnlockedBadges = append(resp.UnlockedBadges, dto)
	}
	if result.BonusRequested {
		resp.BonusRequested = true
		resp.BonusKey = result.BonusIdempotencyKey
		resp.BonusPending = result.BonusDeliveryFailed
	}

	writeJSON(w, http.StatusCreated, resp)
}

// ConvertPoints converts points into a wallet credit.
// POST /api/points/convert
func (h *Handler) ConvertPoints(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.Engine.ConvertToCredits(r.Context(),
		ledger.UserID(req.UserID), ledger.Role(req.Role), req.Points)
	if err != nil {
		writeDomainError(w, "Failed to convert points", err)
		return
	}

	// 202 when the debit committed but the wallet call is still pending.
	status := http.StatusOK
	if result.CreditDeliveryFailed {
		status = http.StatusAccepted
	}
	writeJSON(w, status, ConvertResponse{
		Debited:       result.Debited,
		CreditAmount:  result.CreditAmount.String(),
		Currency:      result.Currency,
		CreditKey:     result.IdempotencyKey,
		CreditPending: result.CreditDeliveryFailed,
	})
}

// RedeemReward redeems a catalog reward.
// POST /api/points/redeem
func (h *Handler) RedeemReward(w http.ResponseWriter, r *http.Request) {
	var req RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.Engine.RedeemReward(r.Context(),
		ledger.UserID(req.UserID), ledger.Role(req.Role), req.RewardID)
	if err != nil {
		writeDomainError(w, "Failed to redeem reward", err)
		return
	}

	status := http.StatusOK
	if result.CreditDeliveryFailed {
		status = http.StatusAccepted
	}
	resp := RedeemResponse{
		RedemptionID: string(result.Redemption.ID),
		RewardID:     result.Reward.ID,
		Points:       result.Redemption.Points,
		RedeemedAt:   result.Redemption.RedeemedAt.Format(time.RFC3339),
	}
	if result.CreditRequested {
		resp.CreditKey = result.IdempotencyKey
		resp.CreditPending = result.CreditDeliveryFailed
	}
	writeJSON(w, status, resp)
}

// RetryCredit retries a failed wallet credit delivery.
// POST /api/credits/{key}/retry
func (h *Handler) RetryCredit(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	if err := h.Engine.RetryCreditDelivery(r.Context(), key); err != nil {
		writeDomainError(w, "Failed to deliver credit", err)
		return
	}
	writeJSON(w, http.StatusOK, RetryResponse{Key: key, Delivered: true})
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// GetBalance returns the user's current spendable balance for a role.
// GET /api/users/{id}/balance?role=driver
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := ledger.UserID(chi.URLParam(r, "id"))
	role := ledger.Role(r.URL.Query().Get("role"))

	balance, err := h.Engine.GetBalance(r.Context(), userID, role)
	if err != nil {
		writeDomainError(w, "Failed to get balance", err)
		return
	}

	writeJSON(w, http.StatusOK, BalanceDTO{
		UserID:  string(userID),
		Role:    string(role),
		Balance: balance,
		AsOf:    time.Now().UTC().Format(time.RFC3339),
	})
}

// GetHistory returns the user's ledger history, newest first.
// GET /api/users/{id}/history?role=driver&limit=50&offset=0
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID := ledger.UserID(chi.URLParam(r, "id"))
	role := ledger.Role(r.URL.Query().Get("role"))
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	entries, err := h.Engine.History(r.Context(), userID, role, limit, offset)
	if err != nil {
		writeDomainError(w, "Failed to get history", err)
		return
	}

	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetBadges returns badge progress for a user+role.
// GET /api/users/{id}/badges?role=driver
func (h *Handler) GetBadges(w http.ResponseWriter, r *http.Request) {
	userID := ledger.UserID(chi.URLParam(r, "id"))
	role := ledger.Role(r.URL.Query().Get("role"))

	progress, err := h.Engine.BadgeStatus(r.Context(), userID, role)
	if err != nil {
		writeDomainError(w, "Failed to get badges", err)
		return
	}

	dtos := make([]BadgeDTO, len(progress))
	for i, p := range progress {
		dto := toBadgeDTO(p.Badge)
		dto.Count = p.Count
		dto.Earned = p.Earned
		if p.AwardedAt != nil {
			dto.AwardedAt = p.AwardedAt.Format(time.RFC3339)
		}
		dtos[i] = dto
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRedemptions returns the user's past redemptions, newest first.
// GET /api/users/{id}/redemptions
func (h *Handler) GetRedemptions(w http.ResponseWriter, r *http.Request) {
	userID := ledger.UserID(chi.URLParam(r, "id"))

	redemptions, err := h.Engine.Redemptions(r.Context(), userID)
	if err != nil {
		writeDomainError(w, "Failed to get redemptions", err)
		return
	}

	dtos := make([]RedemptionDTO, len(redemptions))
	for i, red := range redemptions {
		dtos[i] = RedemptionDTO{
			ID:         string(red.ID),
			RewardID:   red.RewardID,
			Role:       string(red.Role),
			Points:     red.Points,
			RedeemedAt: red.RedeemedAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetExpiring returns points expiring within the window (default 7 days).
// GET /api/users/{id}/expiring?role=driver&days=7
func (h *Handler) GetExpiring(w http.ResponseWriter, r *http.Request) {
	userID := ledger.UserID(chi.URLParam(r, "id"))
	role := ledger.Role(r.URL.Query().Get("role"))
	days := queryInt(r, "days", 7)

	within := time.Duration(days) * 24 * time.Hour
	points, err := h.Engine.ExpiringSoon(r.Context(), userID, role, within)
	if err != nil {
		writeDomainError(w, "Failed to get expiring points", err)
		return
	}

	writeJSON(w, http.StatusOK, ExpiringDTO{
		UserID: string(userID),
		Role:   string(role),
		Points: points,
		Until:  time.Now().UTC().Add(within).Format(time.RFC3339),
	})
}

// =============================================================================
// CATALOG HANDLERS
// =============================================================================

// ListRewards returns the active reward catalog.
// GET /api/rewards
func (h *Handler) ListRewards(w http.ResponseWriter, r *http.Request) {
	rewards := h.Catalog.ActiveRewards()

	dtos := make([]RewardDTO, len(rewards))
	for i, rw := range rewards {
		dtos[i] = RewardDTO{
			ID:             rw.ID,
			Name:           rw.Name,
			PointsRequired: rw.PointsRequired,
			Type:           string(rw.Type),
			Currency:       rw.Currency,
			SingleUse:      rw.SingleUse,
		}
		if rw.Type == catalog.RewardWalletCredit {
			dtos[i].Value = rw.Value.String()
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// CreateAdjustment appends a manual adjustment entry.
// POST /api/admin/adjustments
func (h *Handler) CreateAdjustment(w http.ResponseWriter, r *http.Request) {
	var req AdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Reason == "" {
		writeError(w, http.StatusBadRequest, "reason is required", nil)
		return
	}

	entry, err := h.Engine.Adjust(r.Context(),
		ledger.UserID(req.UserID), ledger.Role(req.Role), req.Points, req.Reason)
	if err != nil {
		writeDomainError(w, "Failed to create adjustment", err)
		return
	}

	writeJSON(w, http.StatusCreated, toEntryDTO(*entry))
}

// Healthz reports liveness.
// GET /api/healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors onto HTTP statuses. Rejected
// preconditions (cap exceeded, insufficient points) are 409 so clients
// can distinguish them from malformed input.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, ledger.ErrDailyCapExceeded),
		errors.Is(err, ledger.ErrInsufficientPoints):
		writeError(w, http.StatusConflict, message, err)
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
