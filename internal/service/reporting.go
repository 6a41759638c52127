package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mcalder/pocketbank/internal/database/repository"
	"github.com/mcalder/pocketbank/internal/ledger"
)

// Reporter computes read-only statistics over the account store.
type Reporter struct {
	Accounts *repository.AccountRepo
}

// ClassStats holds the mean balance for one class and the usernames sitting
// strictly above it, in username order.
type ClassStats struct {
	Mean      decimal.Decimal
	AboveMean []string
}

// Report is a point-in-time statistics snapshot. Count zero means an empty
// store; the class stats are meaningless then and left zero.
type Report struct {
	Count    int
	Checking ClassStats
	Savings  ClassStats
}

// Statistics snapshots every account and computes per-class means. Ties sit
// at the mean, not above it.
func (r *Reporter) Statistics(ctx context.Context) (Report, error) {
	accounts, err := r.Accounts.List(ctx)
	if err != nil {
		return Report{}, err
	}
	rep := Report{Count: len(accounts)}
	if len(accounts) == 0 {
		return rep, nil
	}

	checking := make([]decimal.Decimal, len(accounts))
	savings := make([]decimal.Decimal, len(accounts))
	for i, a := range accounts {
		checking[i] = a.Checking
		savings[i] = a.Savings
	}
	rep.Checking = classStats(accounts, checking)
	rep.Savings = classStats(accounts, savings)
	return rep, nil
}

func classStats(accounts []ledger.Account, balances []decimal.Decimal) ClassStats {
	cs := ClassStats{Mean: decimal.Avg(balances[0], balances[1:]...)}
	for i, b := range balances {
		if b.GreaterThan(cs.Mean) {
			cs.AboveMean = append(cs.AboveMean, accounts[i].Username)
		}
	}
	return cs
}
