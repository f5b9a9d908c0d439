package handlers

import (
	"context"
	"net/http"
	"strconv"

	"hoctap/internal/i18n"
	"hoctap/internal/logger"
	"hoctap/internal/service"
)

// CronHandler exposes the daily resets to an external scheduler
type CronHandler struct {
	tokens  *service.TokenService
	unlocks *service.UnlockService
}

// NewCronHandler creates a new cron handler
func NewCronHandler(tokens *service.TokenService, unlocks *service.UnlockService) *CronHandler {
	return &CronHandler{tokens: tokens, unlocks: unlocks}
}

type resetResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Updated int64  `json:"updated"`
}

// ResetTokens zeroes every user's token usage
func (h *CronHandler) ResetTokens(w http.ResponseWriter, r *http.Request) {
	h.reset(w, r, "tokens", h.tokens.ResetAll)
}

// ResetUnlocks zeroes every user's unlock usage
func (h *CronHandler) ResetUnlocks(w http.ResponseWriter, r *http.Request) {
	h.reset(w, r, "unlocks", h.unlocks.ResetAllUsage)
}

func (h *CronHandler) reset(w http.ResponseWriter, r *http.Request, what string, run func(context.Context) (int64, error)) {
	n, err := run(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "Error resetting "+what)
		return
	}
	logger.Infof("Cron reset of %s updated %d users", what, n)
	respondWithJSON(w, http.StatusOK, resetResponse{
		Success: true,
		Message: i18n.T(translator(r), i18n.MsgCountersReset, strconv.FormatInt(n, 10)),
		Updated: n,
	})
}
