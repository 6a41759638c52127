package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParseClass(t *testing.T) {
	t.Parallel()

	cases := map[string]Class{
		"C":         Checking,
		"c":         Checking,
		" checking": Checking,
		"S":         Savings,
		"s ":        Savings,
		"Savings":   Savings,
	}
	for in, want := range cases {
		got, err := ParseClass(in)
		require.NoError(t, err, "input %q", in)
		require.Equal(t, want, got, "input %q", in)
	}

	for _, in := range []string{"", "x", "check", "CS"} {
		_, err := ParseClass(in)
		require.Error(t, err, "input %q", in)
	}
}

func TestAccountBalanceByClass(t *testing.T) {
	t.Parallel()

	a := Account{
		Checking: decimal.RequireFromString("1500.00"),
		Savings:  decimal.RequireFromString("42.50"),
	}
	require.True(t, a.Balance(Checking).Equal(decimal.RequireFromString("1500.00")))
	require.True(t, a.Balance(Savings).Equal(decimal.RequireFromString("42.50")))

	a.SetBalance(Savings, decimal.RequireFromString("100.00"))
	require.Equal(t, "100.00", a.Balance(Savings).StringFixed(2))
	require.Equal(t, "1500.00", a.Balance(Checking).StringFixed(2), "other class untouched")
}
