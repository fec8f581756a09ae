// Package code mints the short confirmation codes used to prove a
// physical book handoff. Codes are six digits rendered "###-###" and
// drawn from crypto/rand, since the code is the only secret shared
// between the two parties at pickup/return time.
package code

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

// MaxAttempts bounds the retry loop on storage-level collisions.
const MaxAttempts = 5

var ErrBadFormat = errors.New("confirmation code must be 6 digits")

// Generate draws a fresh code in the range 100000-999999 and formats
// it as XXX-YYY.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	s := n.Add(n, big.NewInt(100000)).String()
	return s[:3] + "-" + s[3:], nil
}

// Canonicalize turns user input into the stored "###-###" form. Codes
// typed without the hyphen, or with spaces instead, are reformatted;
// anything else is rejected.
func Canonicalize(raw string) (string, error) {
	s := strings.ReplaceAll(raw, " ", "")
	s = strings.ReplaceAll(s, "-", "")
	if len(s) != 6 {
		return "", ErrBadFormat
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", ErrBadFormat
		}
	}
	return s[:3] + "-" + s[3:], nil
}
