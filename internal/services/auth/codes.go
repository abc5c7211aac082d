package auth

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const loginCodeDigits = otp.DigitsSix

// NewCodeSecret returns a fresh base32 secret for a single login attempt.
func NewCodeSecret() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate code secret: %w", err)
	}

	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b), nil
}

// GenerateLoginCode derives the six digit code for the secret at the
// given moment. The TOTP period matches the code TTL so the code stays
// stable for the whole login window.
func GenerateLoginCode(secret string, at time.Time, ttl time.Duration) (string, error) {
	code, err := totp.GenerateCodeCustom(secret, at, codeOpts(ttl))
	if err != nil {
		return "", fmt.Errorf("generate login code: %w", err)
	}
	return code, nil
}

func VerifyLoginCode(code, secret string, at time.Time, ttl time.Duration) (bool, error) {
	ok, err := totp.ValidateCustom(code, secret, at, codeOpts(ttl))
	if err != nil {
		return false, fmt.Errorf("validate login code: %w", err)
	}
	return ok, nil
}

func codeOpts(ttl time.Duration) totp.ValidateOpts {
	period := uint(ttl / time.Second)
	if period == 0 {
		period = 300
	}

	return totp.ValidateOpts{
		Period:    period,
		Skew:      1,
		Digits:    loginCodeDigits,
		Algorithm: otp.AlgorithmSHA1,
	}
}
