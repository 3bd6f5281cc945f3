package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/JoeShih716/go-point-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-point-ledger/internal/app/core/usecase"
)

// MaxRequestAmount 單次請求允許的最大金額，在進入核心之前先擋掉
const MaxRequestAmount int64 = 1_000_000_000

// maxBodyBytes 請求 body 只會是一個數字
const maxBodyBytes = 64

type Handler struct {
	core   *usecase.PointUseCase
	logger zerolog.Logger
}

func NewHandler(core *usecase.PointUseCase, logger zerolog.Logger) *Handler {
	return &Handler{
		core:   core,
		logger: logger,
	}
}

// GetPoint GET /point/{id}
func (h *Handler) GetPoint(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_user_id", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserPointDTO(h.core.GetBalance(r.Context(), userID)))
}

// GetHistories GET /point/{id}/histories
func (h *Handler) GetHistories(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_user_id", err)
		return
	}
	writeJSON(w, http.StatusOK, toPointHistoryDTOs(h.core.GetHistory(r.Context(), userID)))
}

// Charge PATCH /point/{id}/charge
func (h *Handler) Charge(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, domain.TransactionTypeCharge, h.core.Charge)
}

// Use PATCH /point/{id}/use
func (h *Handler) Use(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, domain.TransactionTypeUse, h.core.Use)
}

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, txType domain.TransactionType,
	op func(ctx context.Context, userID uint64, amount int64) (domain.UserPoint, error)) {
	userID, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_user_id", err)
		return
	}
	amount, err := parseAmount(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_amount", err)
		return
	}

	h.logger.Info().
		Str("request_id", middleware.GetReqID(r.Context())).
		Uint64("user_id", userID).
		Stringer("type", txType).
		Str("amount", domain.FormatPoints(amount)).
		Msg("point request")

	p, err := op(r.Context(), userID, amount)
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserPointDTO(p))
}

func parseUserID(r *http.Request) (uint64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("user id %q: %w", raw, err)
	}
	return id, nil
}

// parseAmount body 是一個 JSON 數字，例如 10000
func parseAmount(body io.Reader) (int64, error) {
	var n json.Number
	dec := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return 0, fmt.Errorf("amount must be a number: %w", err)
	}
	amount, err := n.Int64()
	if err != nil {
		return 0, fmt.Errorf("amount must be an integer: %w", err)
	}
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	if amount > MaxRequestAmount {
		return 0, fmt.Errorf("amount must not exceed %s", domain.FormatPoints(MaxRequestAmount))
	}
	return amount, nil
}

// statusFor 業務錯誤對應的 HTTP status 與錯誤代碼
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusConflict, "insufficient_balance"
	case errors.Is(err, domain.ErrBalanceLimitExceeded):
		return http.StatusUnprocessableEntity, "balance_limit_exceeded"
	case errors.Is(err, domain.ErrLockTimeout):
		return http.StatusServiceUnavailable, "lock_timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	resp := ErrorResponse{Error: code}
	if err != nil {
		resp.Message = err.Error()
	}
	writeJSON(w, status, resp)
}
