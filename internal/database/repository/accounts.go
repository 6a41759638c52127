package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mcalder/pocketbank/internal/database"
	"github.com/mcalder/pocketbank/internal/ledger"
)

// AccountRepo handles accounts. Balances are stored as integer cents and
// converted at the scan/exec boundary; the schema refuses negative values,
// so a broken caller cannot push a balance below zero even if its own check
// is skipped.
type AccountRepo struct {
	db *sql.DB
}

func NewAccountRepo(db *sql.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

// Create inserts a new account, assigning an ID when the caller left it
// empty. The username must not already exist.
func (r *AccountRepo) Create(ctx context.Context, a *ledger.Account) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	err := database.WithTx(r.db, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts WHERE username = ?`, a.Username).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return ledger.ErrDuplicateUsername
		}
		_, err := tx.ExecContext(ctx, `
	INSERT INTO accounts(id, username, display_name, pin_hash, checking_cents, savings_cents, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP);
	`, a.ID, a.Username, a.DisplayName, a.PINHash, ledger.ToCents(a.Checking), ledger.ToCents(a.Savings))
		return err
	})
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateUsername) {
			return err
		}
		if strings.Contains(err.Error(), "UNIQUE") {
			return ledger.ErrDuplicateUsername
		}
		if strings.Contains(err.Error(), "CHECK") {
			return ledger.ErrInvariantViolation
		}
		return &ledger.StorageError{Op: "create account", Err: err}
	}
	return nil
}

// Find returns the account with the given username, or ledger.ErrNotFound.
func (r *AccountRepo) Find(ctx context.Context, username string) (*ledger.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, username, display_name, pin_hash, checking_cents, savings_cents, created_at, updated_at FROM accounts WHERE username = ?`, username)
	a, err := scanAccount(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ledger.ErrNotFound
		}
		return nil, &ledger.StorageError{Op: "find account", Err: err}
	}
	return &a, nil
}

func (r *AccountRepo) FindByID(ctx context.Context, id string) (*ledger.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, username, display_name, pin_hash, checking_cents, savings_cents, created_at, updated_at FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ledger.ErrNotFound
		}
		return nil, &ledger.StorageError{Op: "find account", Err: err}
	}
	return &a, nil
}

// UpdateBalance writes one balance column. Negative balances are refused
// before the write is attempted.
func (r *AccountRepo) UpdateBalance(ctx context.Context, username string, class ledger.Class, balance decimal.Decimal) error {
	cents := ledger.ToCents(balance)
	if cents < 0 {
		return ledger.ErrInvariantViolation
	}
	col, err := balanceColumn(class)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET `+col+` = ?, updated_at = CURRENT_TIMESTAMP WHERE username = ?`, cents, username)
	if err != nil {
		if strings.Contains(err.Error(), "CHECK") {
			return ledger.ErrInvariantViolation
		}
		return &ledger.StorageError{Op: "update balance", Err: err}
	}
	return requireRow(res, "update balance")
}

func (r *AccountRepo) UpdatePINHash(ctx context.Context, username, pinHash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET pin_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE username = ?`, pinHash, username)
	if err != nil {
		return &ledger.StorageError{Op: "update pin", Err: err}
	}
	return requireRow(res, "update pin")
}

// Delete removes the account row only. Purging the account's audit history
// is the caller's job; this layer knows nothing about the trail.
func (r *AccountRepo) Delete(ctx context.Context, username string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE username = ?`, username)
	if err != nil {
		return &ledger.StorageError{Op: "delete account", Err: err}
	}
	return requireRow(res, "delete account")
}

func (r *AccountRepo) List(ctx context.Context) ([]ledger.Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, username, display_name, pin_hash, checking_cents, savings_cents, created_at, updated_at FROM accounts ORDER BY username`)
	if err != nil {
		return nil, &ledger.StorageError{Op: "list accounts", Err: err}
	}
	defer rows.Close()
	var out []ledger.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, &ledger.StorageError{Op: "list accounts", Err: err}
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, &ledger.StorageError{Op: "list accounts", Err: err}
	}
	return out, nil
}

// requireRow maps a zero-row write to ledger.ErrNotFound.
func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return &ledger.StorageError{Op: op, Err: err}
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func balanceColumn(c ledger.Class) (string, error) {
	switch c {
	case ledger.Checking:
		return "checking_cents", nil
	case ledger.Savings:
		return "savings_cents", nil
	}
	return "", fmt.Errorf("unknown account class %q", c)
}

// scanAccount works for both Row and Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (ledger.Account, error) {
	var a ledger.Account
	var checking, savings int64
	if err := row.Scan(&a.ID, &a.Username, &a.DisplayName, &a.PINHash, &checking, &savings, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return ledger.Account{}, err
	}
	a.Checking = ledger.FromCents(checking)
	a.Savings = ledger.FromCents(savings)
	return a, nil
}
