package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"
)

const resetTokenSize = 32

// NewOTP returns a uniformly random numeric code of the given length.
// Leading zeros are kept, so "004211" is as likely as any other code.
func NewOTP(digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", fmt.Errorf("otp length %d out of range [4, 10]", digits)
	}

	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("read otp: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}

// NewResetToken returns an unguessable URL-safe token for password reset links.
func NewResetToken() (string, error) {
	var raw [resetTokenSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// HashToken digests a bearer token so the raw value never becomes a store key.
func HashToken(token string) [32]byte {
	return sha256.Sum256([]byte(token))
}
