package credentials

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

const (
	otpCodeMin = 1000
	otpCodeMax = 9999
)

// GenerateOTPCode returns a 4-digit code drawn uniformly from 1000-9999
func GenerateOTPCode() (string, error) {
	num, err := rand.Int(rand.Reader, big.NewInt(otpCodeMax-otpCodeMin+1))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(num.Int64()+otpCodeMin, 10), nil
}

// IsOTPCode reports whether s has the shape of an issued code: exactly four ASCII digits
func IsOTPCode(s string) bool {
	if len(s) != 4 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
