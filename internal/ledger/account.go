package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Class selects one of the two balances every account carries.
type Class string

const (
	Checking Class = "checking"
	Savings  Class = "savings"
)

// ParseClass converts boundary input to a Class. The single-letter forms are
// the ones the interactive prompts accept.
func ParseClass(s string) (Class, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "c", "checking":
		return Checking, nil
	case "s", "savings":
		return Savings, nil
	}
	return "", fmt.Errorf("unknown account class %q", s)
}

// Account represents an account row. PINHash is the sha256 hex digest of the
// holder's PIN; the clear PIN is never stored or logged.
type Account struct {
	ID          string
	Username    string
	DisplayName string
	PINHash     string
	Checking    decimal.Decimal
	Savings     decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Balance returns the stored balance for c. Class values other than the two
// variants do not exist; ParseClass is the only way input becomes a Class.
func (a *Account) Balance(c Class) decimal.Decimal {
	switch c {
	case Checking:
		return a.Checking
	case Savings:
		return a.Savings
	}
	return decimal.Decimal{}
}

// SetBalance stores v as the balance for c on the in-memory account.
func (a *Account) SetBalance(c Class, v decimal.Decimal) {
	switch c {
	case Checking:
		a.Checking = v
	case Savings:
		a.Savings = v
	}
}
