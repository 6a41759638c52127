package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mcalder/pocketbank/internal/audit"
	"github.com/mcalder/pocketbank/internal/database"
	"github.com/mcalder/pocketbank/internal/database/repository"
	"github.com/mcalder/pocketbank/internal/ledger"
)

// setupStores opens a migrated throwaway database plus a trail path in the
// same temp dir.
func setupStores(t *testing.T) (*repository.AccountRepo, *audit.Log) {
	t.Helper()
	tmpDir := t.TempDir()
	db, err := database.Open(filepath.Join(tmpDir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	migrations, err := filepath.Abs("../database/migrations")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db, migrations))

	return repository.NewAccountRepo(db), audit.New(filepath.Join(tmpDir, "trail.csv"))
}

// seedAccount creates an account with PIN 1234 and the given balances.
func seedAccount(t *testing.T, repo *repository.AccountRepo, username, checking, savings string) *ledger.Account {
	t.Helper()
	a := &ledger.Account{
		Username: username,
		PINHash:  ledger.HashPIN("1234"),
		Checking: decimal.RequireFromString(checking),
		Savings:  decimal.RequireFromString(savings),
	}
	require.NoError(t, repo.Create(context.Background(), a))
	return a
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
