package handlers

import (
	"net/http"

	"hoctap/internal/i18n"
	"hoctap/internal/service"
	"hoctap/internal/validation"
)

// UnlockHandler manages the per-user unlock code
type UnlockHandler struct {
	unlocks   *service.UnlockService
	validator *validation.Validator
}

// NewUnlockHandler creates a new unlock handler
func NewUnlockHandler(unlocks *service.UnlockService, v *validation.Validator) *UnlockHandler {
	return &UnlockHandler{unlocks: unlocks, validator: v}
}

type unlockRequest struct {
	UserID string `json:"userId" validate:"required,notblank"`
	Action string `json:"action" validate:"required"`
	Code   string `json:"code" validate:"required"`
}

type unlockSetResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type unlockVerifyResponse struct {
	Success          bool   `json:"success"`
	Valid            bool   `json:"valid"`
	RemainingUnlocks int    `json:"remainingUnlocks"`
	Message          string `json:"message,omitempty"`
	Error            string `json:"error,omitempty"`
}

// GetUnlockInfo returns the unlock counters for ?userId=
func (h *UnlockHandler) GetUnlockInfo(w http.ResponseWriter, r *http.Request) {
	q := userQuery{UserID: r.URL.Query().Get("userId")}
	if err := h.validator.Struct(q, translator(r)); err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	userID, ok := resolveTarget(w, r, q.UserID)
	if !ok {
		return
	}

	info, err := h.unlocks.GetInfo(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err, "Error fetching unlock info")
		return
	}
	respondWithJSON(w, http.StatusOK, info)
}

// HandleAction sets or verifies the unlock code
func (h *UnlockHandler) HandleAction(w http.ResponseWriter, r *http.Request) {
	trans := translator(r)
	req, err := validation.DecodeValidBody[unlockRequest](h.validator, r, trans)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	userID, ok := resolveTarget(w, r, req.UserID)
	if !ok {
		return
	}

	switch req.Action {
	case ActionSet:
		if err := h.unlocks.SetCode(r.Context(), userID, req.Code); err != nil {
			writeServiceError(w, r, err, "Error setting unlock code")
			return
		}
		respondWithJSON(w, http.StatusOK, unlockSetResponse{Success: true, Message: i18n.T(trans, i18n.MsgUnlockCodeSet)})

	case ActionVerify:
		res, err := h.unlocks.Verify(r.Context(), userID, req.Code)
		if err != nil {
			writeServiceError(w, r, err, "Error verifying unlock code")
			return
		}
		if !res.Valid {
			respondWithJSON(w, http.StatusBadRequest, unlockVerifyResponse{
				RemainingUnlocks: res.RemainingUnlocks,
				Error:            i18n.T(trans, i18n.MsgUnlockCodeInvalid),
			})
			return
		}
		respondWithJSON(w, http.StatusOK, unlockVerifyResponse{
			Success:          true,
			Valid:            true,
			RemainingUnlocks: res.RemainingUnlocks,
			Message:          i18n.T(trans, i18n.MsgUnlockGranted),
		})

	default:
		respondWithError(w, http.StatusBadRequest, i18n.T(trans, i18n.MsgInvalidAction), "", nil)
	}
}
