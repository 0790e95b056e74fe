package util

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

const (
	resetCodeMin  = 100000
	resetCodeSpan = 900000
)

// GenerateResetCode returns a 6-digit verification code drawn uniformly from
// [100000, 999999]. The lower bound keeps the formatted code free of a
// leading zero.
func GenerateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(resetCodeSpan))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(resetCodeMin+n.Int64(), 10), nil
}
