package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"sort"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	vi_translations "github.com/go-playground/validator/v10/translations/vi"

	"hoctap/internal/credentials"
)

// maxBodyBytes caps request bodies; every payload here is a handful of fields
const maxBodyBytes = 64 << 10

// custom validation tags
const (
	notBlankTag = "notblank"
	otpCodeTag  = "otp_code"
)

var customMessages = map[string]map[string]string{
	"vi": {
		notBlankTag: "{0} không được để trống",
		otpCodeTag:  "{0} phải gồm đúng 4 chữ số",
	},
	"en": {
		notBlankTag: "{0} cannot be blank",
		otpCodeTag:  "{0} must be exactly 4 digits",
	},
}

// Validator checks request DTOs and renders failures in the caller's language
type Validator struct {
	validate *validator.Validate
}

// New registers the vi and en translations on uni's translators
func New(uni *ut.UniversalTranslator) (*Validator, error) {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Use JSON tag names for errors instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation(notBlankTag, notBlank); err != nil {
		return nil, err
	}
	if err := v.RegisterValidation(otpCodeTag, otpCode); err != nil {
		return nil, err
	}

	if trans, ok := uni.GetTranslator("vi"); ok {
		if err := vi_translations.RegisterDefaultTranslations(v, trans); err != nil {
			return nil, fmt.Errorf("failed to register vi translations: %w", err)
		}
		if err := registerCustom(v, trans); err != nil {
			return nil, err
		}
	}
	if trans, ok := uni.GetTranslator("en"); ok {
		if err := en_translations.RegisterDefaultTranslations(v, trans); err != nil {
			return nil, fmt.Errorf("failed to register en translations: %w", err)
		}
		if err := registerCustom(v, trans); err != nil {
			return nil, err
		}
	}

	return &Validator{validate: v}, nil
}

func registerCustom(v *validator.Validate, trans ut.Translator) error {
	for tag, text := range customMessages[trans.Locale()] {
		register := func(tr ut.Translator) error {
			return tr.Add(tag, text, true)
		}
		translate := func(tr ut.Translator, fe validator.FieldError) string {
			msg, err := tr.T(fe.Tag(), fe.Field())
			if err != nil {
				return fe.Error()
			}
			return msg
		}
		if err := v.RegisterTranslation(tag, trans, register, translate); err != nil {
			return fmt.Errorf("failed to register %s translation: %w", tag, err)
		}
	}
	return nil
}

// Error carries one translated message per offending JSON field
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return strings.Join(msgs, "; ")
}

// ErrMalformedBody is returned when the body is not a single JSON object
var ErrMalformedBody = errors.New("malformed JSON body")

// Struct validates s and translates failures with trans
func (v *Validator) Struct(s any, trans ut.Translator) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := &Error{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields[fe.Field()] = fe.Translate(trans)
	}
	return out
}

// DecodeValidBody decodes the JSON request body into B and validates it
func DecodeValidBody[B any](v *Validator, r *http.Request, trans ut.Translator) (B, error) {
	var body B
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		return body, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	if err := v.Struct(body, trans); err != nil {
		return body, err
	}
	return body, nil
}

// Custom Validators

func notBlank(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}

func otpCode(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return credentials.IsOTPCode(str)
	}
	return false
}
