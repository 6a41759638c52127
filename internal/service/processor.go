package service

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mcalder/pocketbank/internal/audit"
	"github.com/mcalder/pocketbank/internal/database"
	"github.com/mcalder/pocketbank/internal/database/repository"
	"github.com/mcalder/pocketbank/internal/ledger"
)

// BalanceStore is the slice of the account repository the processor needs.
type BalanceStore interface {
	UpdateBalance(ctx context.Context, username string, class ledger.Class, balance decimal.Decimal) error
}

// AuditAppender records committed mutations in the trail.
type AuditAppender interface {
	Append(rec ledger.TransactionRecord) error
}

var (
	_ BalanceStore  = (*repository.AccountRepo)(nil)
	_ AuditAppender = (*audit.Log)(nil)
)

// Processor applies signed amounts to one balance at a time under the
// non-negative invariant and records every committed mutation in the trail.
type Processor struct {
	Balances BalanceStore
	Trail    AuditAppender

	// Clock supplies trail capture times; nil means database.Now.
	Clock func() time.Time

	lastStamp time.Time
}

// TxResult reports one committed mutation. AuditErr is non-nil when the
// balance write committed but the trail append failed; the balance is not
// rolled back in that case, so callers must not assume the two writes are
// atomic together.
type TxResult struct {
	Account  *ledger.Account
	Record   ledger.TransactionRecord
	AuditErr error
}

// Apply adds amount (negative = withdrawal) to the account's balance for
// class. A result that would go below zero is rejected with
// ledger.ErrInsufficientFunds before anything is written; a storage failure
// aborts before any trail append. On success the in-memory account carries
// the committed balance.
func (p *Processor) Apply(ctx context.Context, account *ledger.Account, class ledger.Class, amount decimal.Decimal) (TxResult, error) {
	oldBal := account.Balance(class)
	newBal := oldBal.Add(amount)
	if newBal.IsNegative() {
		return TxResult{}, ledger.ErrInsufficientFunds
	}

	if err := p.Balances.UpdateBalance(ctx, account.Username, class, newBal); err != nil {
		return TxResult{}, err
	}
	account.SetBalance(class, newBal)

	rec := ledger.TransactionRecord{
		Username:   account.Username,
		Class:      class,
		OldBalance: oldBal,
		Amount:     amount,
		NewBalance: newBal,
		Timestamp:  p.stamp(),
	}
	res := TxResult{Account: account, Record: rec}
	if err := p.Trail.Append(rec); err != nil {
		log.Printf("warn: balance for %s committed but audit append failed: %v", account.Username, err)
		res.AuditErr = err
	}
	return res, nil
}

// stamp returns a capture time that never goes backwards within this
// process, even when the wall clock does.
func (p *Processor) stamp() time.Time {
	now := database.Now()
	if p.Clock != nil {
		now = p.Clock()
	}
	if now.Before(p.lastStamp) {
		now = p.lastStamp
	}
	p.lastStamp = now
	return now
}
