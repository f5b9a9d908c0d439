package handlers

import (
	"net/http"
	"strings"
	"time"

	"hoctap/internal/i18n"
	"hoctap/internal/models"
	"hoctap/internal/service"
	"hoctap/internal/validation"
)

// OTPHandler issues and verifies emailed codes for the signed-in user
type OTPHandler struct {
	otps      *service.OTPService
	validator *validation.Validator
}

// NewOTPHandler creates a new OTP handler
func NewOTPHandler(otps *service.OTPService, v *validation.Validator) *OTPHandler {
	return &OTPHandler{otps: otps, validator: v}
}

type sendOTPRequest struct {
	UserEmail string `json:"userEmail" validate:"omitempty,email"`
	Purpose   string `json:"purpose" validate:"required"`
}

type sendOTPResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Email     string    `json:"email"`
	OTPID     string    `json:"otpId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type verifyOTPRequest struct {
	OTP     string `json:"otp" validate:"required,otp_code"`
	Purpose string `json:"purpose" validate:"required"`
	OTPID   string `json:"otpId" validate:"omitempty,uuid"`
}

type verifyOTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	OTPID   string `json:"otpId"`
}

// SendOTP emails a fresh code to the caller's own address
func (h *OTPHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	trans := translator(r)
	user := GetUserFromContext(r.Context())
	if user == nil {
		respondWithError(w, http.StatusUnauthorized, i18n.T(trans, i18n.MsgUnauthorized), "", nil)
		return
	}

	req, err := validation.DecodeValidBody[sendOTPRequest](h.validator, r, trans)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	// codes only go to the address on the account
	email := user.Email
	if req.UserEmail != "" && !strings.EqualFold(strings.TrimSpace(req.UserEmail), user.Email) {
		respondWithError(w, http.StatusBadRequest, i18n.T(trans, i18n.MsgEmailMismatch), "", nil)
		return
	}

	issued, err := h.otps.Issue(r.Context(), user.ID, email, models.Purpose(req.Purpose))
	if err != nil {
		writeServiceError(w, r, err, "Error issuing OTP")
		return
	}

	respondWithJSON(w, http.StatusOK, sendOTPResponse{
		Success:   true,
		Message:   i18n.T(trans, i18n.MsgOTPSent),
		Email:     issued.Email,
		OTPID:     issued.ID,
		ExpiresAt: issued.ExpiresAt,
	})
}

// VerifyOTP checks a code submitted by the caller
func (h *OTPHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	trans := translator(r)
	user := GetUserFromContext(r.Context())
	if user == nil {
		respondWithError(w, http.StatusUnauthorized, i18n.T(trans, i18n.MsgUnauthorized), "", nil)
		return
	}

	req, err := validation.DecodeValidBody[verifyOTPRequest](h.validator, r, trans)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	otp, err := h.otps.Verify(r.Context(), service.VerifyRequest{
		UserID:  user.ID,
		Purpose: models.Purpose(req.Purpose),
		Code:    req.OTP,
		OTPID:   req.OTPID,
	})
	if err != nil {
		writeServiceError(w, r, err, "Error verifying OTP")
		return
	}

	respondWithJSON(w, http.StatusOK, verifyOTPResponse{
		Success: true,
		Message: i18n.T(trans, i18n.MsgOTPVerified),
		OTPID:   otp.ID,
	})
}
