package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionRecord is one committed balance mutation. Records are immutable
// and append-only; they reference their account by username, never by an
// owning pointer, and satisfy NewBalance = OldBalance + Amount exactly.
type TransactionRecord struct {
	Username   string
	Class      Class
	OldBalance decimal.Decimal
	Amount     decimal.Decimal // negative = withdrawal
	NewBalance decimal.Decimal
	Timestamp  time.Time
}
