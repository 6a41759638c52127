package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatisticsEmptyStore(t *testing.T) {
	t.Parallel()
	repo, _ := setupStores(t)
	r := &Reporter{Accounts: repo}

	rep, err := r.Statistics(context.Background())
	require.NoError(t, err)
	require.Zero(t, rep.Count)
	require.Empty(t, rep.Checking.AboveMean)
	require.Empty(t, rep.Savings.AboveMean)
}

func TestStatisticsMeansAndOutliers(t *testing.T) {
	t.Parallel()
	repo, _ := setupStores(t)
	seedAccount(t, repo, "alice", "150.00", "25.00")
	seedAccount(t, repo, "bob", "50.00", "75.00")
	seedAccount(t, repo, "carla", "100.00", "200.00")
	r := &Reporter{Accounts: repo}

	rep, err := r.Statistics(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, rep.Count)

	require.True(t, rep.Checking.Mean.Equal(dec("100.00")), "checking mean = %s", rep.Checking.Mean)
	require.Equal(t, []string{"alice"}, rep.Checking.AboveMean)

	require.True(t, rep.Savings.Mean.Equal(dec("100.00")), "savings mean = %s", rep.Savings.Mean)
	require.Equal(t, []string{"carla"}, rep.Savings.AboveMean)
}

func TestStatisticsTiesSitAtMean(t *testing.T) {
	t.Parallel()
	repo, _ := setupStores(t)
	seedAccount(t, repo, "alice", "100.00", "0.00")
	seedAccount(t, repo, "bob", "100.00", "0.00")
	r := &Reporter{Accounts: repo}

	rep, err := r.Statistics(context.Background())
	require.NoError(t, err)
	require.Empty(t, rep.Checking.AboveMean)
	require.Empty(t, rep.Savings.AboveMean)
}
