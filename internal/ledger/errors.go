package ledger

import (
	"errors"
	"fmt"
)

// Domain errors. Validation failures are handled where they are detected and
// reported to the caller without mutating state; storage failures wrap the
// underlying cause in a StorageError.
var (
	ErrNotFound           = errors.New("account not found")
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrInvalidCredential  = errors.New("invalid pin")
	ErrLocked             = errors.New("locked after too many pin attempts")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInvariantViolation = errors.New("balance must not go negative")
)

// StorageError reports an I/O failure writing or reading account or audit
// state.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage: %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }
