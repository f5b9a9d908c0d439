package handlers

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"hoctap/internal/i18n"
	"hoctap/internal/logger"
	"hoctap/internal/service"
	"hoctap/internal/validation"
)

type errorBody struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Errorf("Error encoding response: %v", err)
	}
}

// respondWithError writes the JSON error envelope. When err is set it is
// logged with logMsg and never shown to the client.
func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		logger.Errorf("%s: %v", logMsg, err)
	}

	respondWithJSON(w, status, errorBody{Error: userMsg})
}

// writeServiceError maps a service or validation error to its status code
// and localized message. Anything unrecognised is a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	trans := translator(r)

	var verr *validation.Error
	if errors.As(err, &verr) {
		respondWithJSON(w, http.StatusBadRequest, errorBody{
			Error:  verr.Error(),
			Fields: verr.Fields,
		})
		return
	}

	var retry *service.RetryError
	if errors.As(err, &retry) {
		seconds := int(math.Ceil(retry.RetryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		respondWithError(w, http.StatusTooManyRequests, i18n.T(trans, i18n.MsgOTPRateLimited, strconv.Itoa(seconds)), "", nil)
		return
	}

	var attempts *service.AttemptsError
	if errors.As(err, &attempts) {
		respondWithError(w, http.StatusBadRequest, i18n.T(trans, i18n.MsgOTPInvalid, strconv.Itoa(attempts.Remaining)), "", nil)
		return
	}

	status, key := http.StatusInternalServerError, i18n.MsgInternal
	switch {
	case errors.Is(err, validation.ErrMalformedBody):
		status, key = http.StatusBadRequest, i18n.MsgInvalidRequest
	case errors.Is(err, service.ErrInvalidAmount):
		status, key = http.StatusBadRequest, i18n.MsgInvalidAmount
	case errors.Is(err, service.ErrInvalidPlan):
		status, key = http.StatusBadRequest, i18n.MsgInvalidPlan
	case errors.Is(err, service.ErrInvalidPurpose):
		status, key = http.StatusBadRequest, i18n.MsgInvalidPurpose
	case errors.Is(err, service.ErrInvalidOTPFormat):
		status, key = http.StatusBadRequest, i18n.MsgOTPInvalidFormat
	case errors.Is(err, service.ErrOTPExpired):
		status, key = http.StatusBadRequest, i18n.MsgOTPExpired
	case errors.Is(err, service.ErrOTPAttemptsExceeded):
		status, key = http.StatusBadRequest, i18n.MsgOTPAttemptsExceeded
	case errors.Is(err, service.ErrUnlockNotConfigured):
		status, key = http.StatusBadRequest, i18n.MsgUnlockNotConfigured
	case errors.Is(err, service.ErrUnlockCodeTooShort):
		status, key = http.StatusBadRequest, i18n.MsgUnlockCodeTooShort
	case errors.Is(err, service.ErrUserNotFound):
		status, key = http.StatusNotFound, i18n.MsgUserNotFound
	case errors.Is(err, service.ErrOTPNotFound):
		status, key = http.StatusNotFound, i18n.MsgOTPNotFound
	case errors.Is(err, service.ErrTokenQuotaExceeded):
		status, key = http.StatusTooManyRequests, i18n.MsgTokenQuotaExceeded
	case errors.Is(err, service.ErrUnlockQuotaExhausted):
		status, key = http.StatusTooManyRequests, i18n.MsgUnlockQuotaExhaust
	case errors.Is(err, service.ErrOTPDispatchFailed):
		respondWithError(w, http.StatusInternalServerError, i18n.T(trans, i18n.MsgOTPDispatchFailed), "", nil)
		return
	default:
		respondWithError(w, status, i18n.T(trans, key), logMsg, err)
		return
	}

	respondWithError(w, status, i18n.T(trans, key), "", nil)
}
