package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mcalder/pocketbank/internal/ledger"
)

type failingTrail struct{ err error }

func (f *failingTrail) Append(ledger.TransactionRecord) error { return f.err }

func TestProcessorWithdrawal(t *testing.T) {
	t.Parallel()
	repo, trail := setupStores(t)
	acct := seedAccount(t, repo, "alice", "100.00", "0.00")
	p := &Processor{Balances: repo, Trail: trail}
	ctx := context.Background()

	res, err := p.Apply(ctx, acct, ledger.Checking, dec("-25.50"))
	require.NoError(t, err)
	require.NoError(t, res.AuditErr)
	require.True(t, res.Record.OldBalance.Equal(dec("100.00")))
	require.True(t, res.Record.Amount.Equal(dec("-25.50")))
	require.True(t, res.Record.NewBalance.Equal(dec("74.50")))
	require.True(t, acct.Checking.Equal(dec("74.50")))

	stored, err := repo.Find(ctx, "alice")
	require.NoError(t, err)
	require.True(t, stored.Checking.Equal(dec("74.50")))

	recs, err := trail.Records()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "alice", recs[0].Username)
	require.Equal(t, ledger.Checking, recs[0].Class)
	require.True(t, recs[0].Amount.Equal(dec("-25.50")))
}

func TestProcessorRejectsOverdraft(t *testing.T) {
	t.Parallel()
	repo, trail := setupStores(t)
	acct := seedAccount(t, repo, "bob", "0.00", "10.00")
	p := &Processor{Balances: repo, Trail: trail}
	ctx := context.Background()

	_, err := p.Apply(ctx, acct, ledger.Savings, dec("-10.01"))
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	// Nothing may change on a rejection: not the store, not the trail, not
	// the in-memory account.
	stored, err := repo.Find(ctx, "bob")
	require.NoError(t, err)
	require.True(t, stored.Savings.Equal(dec("10.00")))
	require.True(t, acct.Savings.Equal(dec("10.00")))

	recs, err := trail.Records()
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestProcessorAllowsDrainToZero(t *testing.T) {
	t.Parallel()
	repo, trail := setupStores(t)
	acct := seedAccount(t, repo, "bob", "0.00", "10.00")
	p := &Processor{Balances: repo, Trail: trail}

	res, err := p.Apply(context.Background(), acct, ledger.Savings, dec("-10.00"))
	require.NoError(t, err)
	require.True(t, res.Record.NewBalance.IsZero())
}

func TestProcessorSequence(t *testing.T) {
	t.Parallel()
	repo, trail := setupStores(t)
	acct := seedAccount(t, repo, "carla", "20.00", "0.00")
	p := &Processor{Balances: repo, Trail: trail}
	ctx := context.Background()

	_, err := p.Apply(ctx, acct, ledger.Checking, dec("30.00"))
	require.NoError(t, err)
	require.True(t, acct.Checking.Equal(dec("50.00")))

	_, err = p.Apply(ctx, acct, ledger.Checking, dec("-60.00"))
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	require.True(t, acct.Checking.Equal(dec("50.00")))

	res, err := p.Apply(ctx, acct, ledger.Checking, dec("-50.00"))
	require.NoError(t, err)
	require.True(t, res.Record.NewBalance.IsZero())

	// Only the two committed mutations reach the trail.
	recs, err := trail.Records()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.True(t, recs[0].NewBalance.Equal(dec("50.00")))
	require.True(t, recs[1].NewBalance.IsZero())
	require.False(t, recs[1].Timestamp.Before(recs[0].Timestamp))
}

func TestProcessorAuditFailureKeepsBalance(t *testing.T) {
	t.Parallel()
	repo, _ := setupStores(t)
	acct := seedAccount(t, repo, "alice", "100.00", "0.00")
	p := &Processor{Balances: repo, Trail: &failingTrail{err: errors.New("disk full")}}
	ctx := context.Background()

	res, err := p.Apply(ctx, acct, ledger.Checking, dec("5.00"))
	require.NoError(t, err)
	require.Error(t, res.AuditErr)

	stored, err := repo.Find(ctx, "alice")
	require.NoError(t, err)
	require.True(t, stored.Checking.Equal(dec("105.00")))
}

func TestProcessorTimestampsNeverRegress(t *testing.T) {
	t.Parallel()
	repo, trail := setupStores(t)
	acct := seedAccount(t, repo, "alice", "100.00", "0.00")

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ticks := []time.Time{base, base.Add(-time.Hour)} // clock jumps backwards
	i := 0
	p := &Processor{Balances: repo, Trail: trail, Clock: func() time.Time {
		now := ticks[i]
		i++
		return now
	}}
	ctx := context.Background()

	first, err := p.Apply(ctx, acct, ledger.Checking, dec("1.00"))
	require.NoError(t, err)
	second, err := p.Apply(ctx, acct, ledger.Checking, dec("1.00"))
	require.NoError(t, err)

	require.True(t, first.Record.Timestamp.Equal(base))
	require.True(t, second.Record.Timestamp.Equal(base))
	require.False(t, second.Record.Timestamp.Before(first.Record.Timestamp))
}
