package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestCentsRoundTrip(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"0", "0.01", "1500.00", "-20.55", "99999999.99"} {
		d := decimal.RequireFromString(s)
		require.True(t, FromCents(ToCents(d)).Equal(d), "value %s", s)
	}
	require.Equal(t, int64(123456), ToCents(decimal.RequireFromString("1234.56")))
	require.Equal(t, "-0.01", FromCents(-1).StringFixed(2))
}

func TestParseAmount(t *testing.T) {
	t.Parallel()

	got, err := ParseAmount(" 1,500.25 ")
	require.NoError(t, err)
	require.Equal(t, "1500.25", got.StringFixed(2))

	got, err = ParseAmount("-20")
	require.NoError(t, err)
	require.Equal(t, "-20.00", got.StringFixed(2))

	got, err = ParseAmount("+250.5")
	require.NoError(t, err)
	require.Equal(t, "250.50", got.StringFixed(2))

	for _, in := range []string{"", "abc", "12.345", "1.2.3", "$50"} {
		_, err := ParseAmount(in)
		require.Error(t, err, "input %q", in)
	}
}
