package booking

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	OTPLength = 6
	OTPTTL    = 10 * time.Minute
)

var otpSpace = big.NewInt(1_000_000)

// OTPSource returns a number in [0, 999999].
type OTPSource func() (int64, error)

// RandomOTP draws uniformly from the 6-digit space using crypto/rand.
func RandomOTP() (int64, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return 0, err
	}
	return n.Int64(), nil
}

// FormatOTP renders n as a fixed-width, zero-padded code: 42 -> "000042".
func FormatOTP(n int64) string {
	return fmt.Sprintf("%0*d", OTPLength, n%otpSpace.Int64())
}

// ValidOTPFormat reports whether s is exactly six ASCII digits.
func ValidOTPFormat(s string) bool {
	if len(s) != OTPLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
