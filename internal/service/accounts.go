package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mcalder/pocketbank/internal/audit"
	"github.com/mcalder/pocketbank/internal/database/repository"
	"github.com/mcalder/pocketbank/internal/ledger"
)

// AuditPurger is the slice of the trail the delete cascade needs.
type AuditPurger interface {
	PurgeAccount(username string) (int, error)
}

var _ AuditPurger = (*audit.Log)(nil)

// AccountService handles account lifecycle: creation checks and the delete
// cascade across both stores.
type AccountService struct {
	Accounts *repository.AccountRepo
	Trail    AuditPurger
}

// CreateAccount validates and persists a new account. Initial balances must
// already be non-negative decimals; leniency toward sloppy text input lives
// at the prompt layer, not here. Account creation leaves no trail row — the
// trail records balance mutations only.
func (s *AccountService) CreateAccount(ctx context.Context, username, displayName, pinHash string, initialChecking, initialSavings decimal.Decimal) (*ledger.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username must not be empty")
	}
	if initialChecking.IsNegative() || initialSavings.IsNegative() {
		return nil, ledger.ErrInvariantViolation
	}
	a := &ledger.Account{
		Username:    username,
		DisplayName: strings.TrimSpace(displayName),
		PINHash:     pinHash,
		Checking:    initialChecking,
		Savings:     initialSavings,
	}
	if err := s.Accounts.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteResult reports a completed deletion. AuditErr is non-nil when the
// account row was removed but the trail purge failed; the deletion stands.
type DeleteResult struct {
	Account    *ledger.Account
	PurgedRows int
	AuditErr   error
}

// DeleteAccount removes the account row, then purges its trail rows. The
// repository keeps no knowledge of the trail; the cascade lives here.
func (s *AccountService) DeleteAccount(ctx context.Context, username string) (DeleteResult, error) {
	acct, err := s.Accounts.Find(ctx, username)
	if err != nil {
		return DeleteResult{}, err
	}
	if err := s.Accounts.Delete(ctx, acct.Username); err != nil {
		return DeleteResult{}, err
	}

	res := DeleteResult{Account: acct}
	n, err := s.Trail.PurgeAccount(acct.Username)
	res.PurgedRows = n
	if err != nil {
		log.Printf("warn: account %s deleted but audit purge failed: %v", acct.Username, err)
		res.AuditErr = err
	}
	return res, nil
}
