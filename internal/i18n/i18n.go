// Package i18n holds the user-facing messages in Vietnamese and English.
package i18n

import (
	"strings"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/vi"
	ut "github.com/go-playground/universal-translator"
)

// DefaultLocale is used when the client states no supported preference
const DefaultLocale = "vi"

// Message keys
const (
	MsgUnauthorized        = "unauthorized"
	MsgForbidden           = "forbidden"
	MsgInvalidRequest      = "invalid_request"
	MsgUserNotFound        = "user_not_found"
	MsgInternal            = "internal_error"
	MsgRateLimited         = "rate_limited"
	MsgDailyLimitReached   = "daily_limit_reached"
	MsgTokenQuotaExceeded  = "token_quota_exceeded"
	MsgInvalidAmount       = "invalid_amount"
	MsgInvalidPlan         = "invalid_plan"
	MsgInvalidAction       = "invalid_action"
	MsgInvalidPurpose      = "invalid_purpose"
	MsgEmailMismatch       = "email_mismatch"
	MsgOTPRateLimited      = "otp_rate_limited"
	MsgOTPDispatchFailed   = "otp_dispatch_failed"
	MsgOTPInvalidFormat    = "otp_invalid_format"
	MsgOTPNotFound         = "otp_not_found"
	MsgOTPExpired          = "otp_expired"
	MsgOTPInvalid          = "otp_invalid"
	MsgOTPAttemptsExceeded = "otp_attempts_exceeded"
	MsgOTPSent             = "otp_sent"
	MsgOTPVerified         = "otp_verified"
	MsgUnlockNotConfigured = "unlock_not_configured"
	MsgUnlockQuotaExhaust  = "unlock_quota_exhausted"
	MsgUnlockCodeTooShort  = "unlock_code_too_short"
	MsgUnlockCodeInvalid   = "unlock_code_invalid"
	MsgUnlockCodeSet       = "unlock_code_set"
	MsgUnlockGranted       = "unlock_granted"
	MsgTokensReset         = "tokens_reset"
	MsgTokensAdded         = "tokens_added"
	MsgTokenQuotaSet       = "token_quota_set"
	MsgTokensConsumed      = "tokens_consumed"
	MsgPlanSet             = "plan_set"
	MsgCountersReset       = "counters_reset"
)

type text struct {
	vi, en string
}

var catalog = map[string]text{
	MsgUnauthorized:        {"Bạn cần đăng nhập để tiếp tục.", "Authentication required."},
	MsgForbidden:           {"Bạn không có quyền thực hiện thao tác này.", "You are not allowed to perform this action."},
	MsgInvalidRequest:      {"Yêu cầu không hợp lệ.", "Invalid request."},
	MsgUserNotFound:        {"Không tìm thấy người dùng.", "User not found."},
	MsgInternal:            {"Đã có lỗi xảy ra. Vui lòng thử lại sau.", "Something went wrong. Please try again later."},
	MsgRateLimited:         {"Bạn thao tác quá nhanh. Vui lòng thử lại sau.", "Too many requests. Please try again later."},
	MsgDailyLimitReached:   {"Bạn đã đạt giới hạn bài tập hôm nay ({0}). Hãy quay lại vào ngày mai.", "You have reached today's exercise limit ({0}). Come back tomorrow."},
	MsgTokenQuotaExceeded:  {"Bạn đã dùng hết lượt token hôm nay.", "Your daily token quota is used up."},
	MsgInvalidAmount:       {"Số lượng phải là số nguyên dương.", "Amount must be a positive integer."},
	MsgInvalidPlan:         {"Gói dịch vụ không hợp lệ.", "Unknown plan."},
	MsgInvalidAction:       {"Thao tác không hợp lệ.", "Unknown action."},
	MsgInvalidPurpose:      {"Mục đích mã OTP không hợp lệ.", "Unknown OTP purpose."},
	MsgEmailMismatch:       {"Email không khớp với tài khoản.", "Email does not match the account."},
	MsgOTPRateLimited:      {"Bạn đã yêu cầu mã quá nhiều lần. Vui lòng thử lại sau {0} giây.", "Too many code requests. Try again in {0} seconds."},
	MsgOTPDispatchFailed:   {"Không gửi được email chứa mã OTP.", "Could not send the verification email."},
	MsgOTPInvalidFormat:    {"Mã OTP phải gồm 4 chữ số.", "The code must be exactly 4 digits."},
	MsgOTPNotFound:         {"Không tìm thấy mã OTP hợp lệ.", "No active verification code was found."},
	MsgOTPExpired:          {"Mã OTP đã hết hạn.", "The verification code has expired."},
	MsgOTPInvalid:          {"Mã OTP không đúng. Bạn còn {0} lần thử.", "Incorrect code. {0} attempts remaining."},
	MsgOTPAttemptsExceeded: {"Bạn đã nhập sai quá nhiều lần. Vui lòng yêu cầu mã mới.", "Too many incorrect attempts. Request a new code."},
	MsgOTPSent:             {"Mã OTP đã được gửi tới email của bạn.", "A verification code was sent to your email."},
	MsgOTPVerified:         {"Xác thực thành công.", "Verification succeeded."},
	MsgUnlockNotConfigured: {"Bạn chưa thiết lập mã mở khóa.", "No unlock code has been set."},
	MsgUnlockQuotaExhaust:  {"Bạn đã dùng hết lượt mở khóa.", "No unlocks remaining."},
	MsgUnlockCodeTooShort:  {"Mã mở khóa phải có ít nhất 6 ký tự.", "The unlock code must be at least 6 characters."},
	MsgUnlockCodeInvalid:   {"Mã mở khóa không đúng.", "Incorrect unlock code."},
	MsgUnlockCodeSet:       {"Đã lưu mã mở khóa.", "Unlock code saved."},
	MsgUnlockGranted:       {"Mở khóa thành công.", "Unlocked."},
	MsgTokensReset:         {"Đã đặt lại số token đã dùng.", "Token usage reset."},
	MsgTokensAdded:         {"Đã cộng thêm {0} token vào hạn mức.", "Added {0} tokens to the quota."},
	MsgTokenQuotaSet:       {"Hạn mức token mới là {0}.", "Token quota set to {0}."},
	MsgTokensConsumed:      {"Đã trừ {0} token.", "Charged {0} tokens."},
	MsgPlanSet:             {"Đã chuyển sang gói {0}.", "Plan changed to {0}."},
	MsgCountersReset:       {"Đã đặt lại {0} tài khoản.", "Reset {0} accounts."},
}

// Catalog resolves message keys for a locale
type Catalog struct {
	uni *ut.UniversalTranslator
}

// New builds the catalog with every message registered for vi and en
func New() (*Catalog, error) {
	viLocale := vi.New()
	uni := ut.New(viLocale, viLocale, en.New())

	viTrans, _ := uni.GetTranslator("vi")
	enTrans, _ := uni.GetTranslator("en")
	for key, msg := range catalog {
		if err := viTrans.Add(key, msg.vi, false); err != nil {
			return nil, err
		}
		if err := enTrans.Add(key, msg.en, false); err != nil {
			return nil, err
		}
	}
	return &Catalog{uni: uni}, nil
}

// Universal exposes the underlying translator set so validation messages
// share the same locales
func (c *Catalog) Universal() *ut.UniversalTranslator {
	return c.uni
}

// Translator picks the best translator for an Accept-Language header value
func (c *Catalog) Translator(acceptLanguage string) ut.Translator {
	trans, _ := c.uni.FindTranslator(ParseAcceptLanguage(acceptLanguage)...)
	return trans
}

// T returns the message for key, falling back to the key itself
func T(trans ut.Translator, key string, params ...string) string {
	msg, err := trans.T(key, params...)
	if err != nil || msg == "" {
		return key
	}
	return msg
}

// ParseAcceptLanguage returns base language tags in preference order,
// ignoring q-values beyond their ordering
func ParseAcceptLanguage(header string) []string {
	var langs []string
	for _, part := range strings.Split(header, ",") {
		tag, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		base, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(tag)), "-")
		if base != "" && base != "*" {
			langs = append(langs, base)
		}
	}
	if len(langs) == 0 {
		langs = append(langs, DefaultLocale)
	}
	return langs
}
