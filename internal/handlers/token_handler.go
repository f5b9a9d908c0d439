package handlers

import (
	"net/http"
	"strconv"

	"hoctap/internal/i18n"
	"hoctap/internal/service"
	"hoctap/internal/validation"
)

// TokenHandler serves AI token quota reads and administrative changes
type TokenHandler struct {
	tokens    *service.TokenService
	validator *validation.Validator
}

// NewTokenHandler creates a new token handler
func NewTokenHandler(tokens *service.TokenService, v *validation.Validator) *TokenHandler {
	return &TokenHandler{tokens: tokens, validator: v}
}

type userQuery struct {
	UserID string `json:"userId" validate:"required,notblank"`
}

type tokenActionRequest struct {
	UserID string `json:"userId" validate:"required,notblank"`
	Action string `json:"action" validate:"required"`
	Amount int    `json:"amount"`
	Plan   string `json:"plan"`
}

type tokenActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	*service.TokenInfo
}

// GetTokenInfo returns quota, usage and plan for ?userId=
func (h *TokenHandler) GetTokenInfo(w http.ResponseWriter, r *http.Request) {
	q := userQuery{UserID: r.URL.Query().Get("userId")}
	if err := h.validator.Struct(q, translator(r)); err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	userID, ok := resolveTarget(w, r, q.UserID)
	if !ok {
		return
	}

	info, err := h.tokens.GetInfo(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err, "Error fetching token info")
		return
	}
	respondWithJSON(w, http.StatusOK, info)
}

// HandleAction applies one of reset, add, set_quota, consume or set_plan.
// Only consume is open to the account owner.
func (h *TokenHandler) HandleAction(w http.ResponseWriter, r *http.Request) {
	trans := translator(r)
	req, err := validation.DecodeValidBody[tokenActionRequest](h.validator, r, trans)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	var userID string
	switch req.Action {
	case ActionConsume:
		var ok bool
		if userID, ok = resolveTarget(w, r, req.UserID); !ok {
			return
		}
	case ActionReset, ActionAdd, ActionSetQuota, ActionSetPlan:
		if _, ok := requireAdmin(w, r); !ok {
			return
		}
		userID = req.UserID
	default:
		respondWithError(w, http.StatusBadRequest, i18n.T(trans, i18n.MsgInvalidAction), "", nil)
		return
	}

	ctx := r.Context()
	amount := strconv.Itoa(req.Amount)
	var (
		info *service.TokenInfo
		msg  string
	)
	switch req.Action {
	case ActionReset:
		info, err = h.tokens.ResetDaily(ctx, userID)
		msg = i18n.T(trans, i18n.MsgTokensReset)
	case ActionAdd:
		info, err = h.tokens.AddTokens(ctx, userID, req.Amount)
		msg = i18n.T(trans, i18n.MsgTokensAdded, amount)
	case ActionSetQuota:
		info, err = h.tokens.SetQuota(ctx, userID, req.Amount)
		msg = i18n.T(trans, i18n.MsgTokenQuotaSet, amount)
	case ActionConsume:
		info, err = h.tokens.Consume(ctx, userID, req.Amount)
		msg = i18n.T(trans, i18n.MsgTokensConsumed, amount)
	case ActionSetPlan:
		info, err = h.tokens.SetPlan(ctx, userID, req.Plan)
		msg = i18n.T(trans, i18n.MsgPlanSet, req.Plan)
	}
	if err != nil {
		writeServiceError(w, r, err, "Error applying token action "+req.Action)
		return
	}

	respondWithJSON(w, http.StatusOK, tokenActionResponse{Success: true, Message: msg, TokenInfo: info})
}
