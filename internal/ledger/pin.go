package ledger

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
)

// PINLength is the fixed credential length.
const PINLength = 4

// HashPIN returns the sha256 hex digest of a PIN. Comparison always happens
// digest-to-digest; the clear PIN never reaches storage or logs.
func HashPIN(pin string) string {
	sum := sha256.Sum256([]byte(pin))
	return fmt.Sprintf("%x", sum[:])
}

// ValidatePIN checks the fixed-length numeric shape of a candidate PIN.
func ValidatePIN(pin string) error {
	if len(pin) != PINLength {
		return errors.New("pin must be exactly 4 digits")
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return errors.New("pin must be exactly 4 digits")
		}
	}
	return nil
}

// GeneratePIN returns a random 4-digit PIN in [1000, 9999].
func GeneratePIN() string {
	return strconv.Itoa(rand.IntN(9000) + 1000)
}
