package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"hoctap/internal/i18n"
	"hoctap/internal/service"
	"hoctap/internal/validation"
)

// UsageHandler serves the daily exercise limit
type UsageHandler struct {
	usage     *service.UsageService
	validator *validation.Validator
}

// NewUsageHandler creates a new usage handler
func NewUsageHandler(usage *service.UsageService, v *validation.Validator) *UsageHandler {
	return &UsageHandler{usage: usage, validator: v}
}

type recordUsageRequest struct {
	UserID string `json:"userId" validate:"required,notblank"`
	Count  *int   `json:"count" validate:"omitempty,min=1"`
}

// GetDailyLimit returns today's counters for the caller
func (h *UsageHandler) GetDailyLimit(w http.ResponseWriter, r *http.Request) {
	userID, ok := resolveTarget(w, r, r.URL.Query().Get("userId"))
	if !ok {
		return
	}

	status, err := h.usage.Check(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err, "Error checking daily usage")
		return
	}
	respondWithJSON(w, http.StatusOK, status)
}

// RecordUsage counts exercises against today's limit
func (h *UsageHandler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeValidBody[recordUsageRequest](h.validator, r, translator(r))
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	userID, ok := resolveTarget(w, r, req.UserID)
	if !ok {
		return
	}

	count := 1
	if req.Count != nil {
		count = *req.Count
	}

	status, err := h.usage.Record(r.Context(), userID, count)
	if errors.Is(err, service.ErrDailyLimitReached) {
		msg := i18n.T(translator(r), i18n.MsgDailyLimitReached, strconv.Itoa(h.usage.Limit()))
		respondWithError(w, http.StatusTooManyRequests, msg, "", nil)
		return
	}
	if err != nil {
		writeServiceError(w, r, err, "Error recording daily usage")
		return
	}
	respondWithJSON(w, http.StatusOK, status)
}
