package tui

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mcalder/pocketbank/internal/config"
	"github.com/mcalder/pocketbank/internal/ledger"
)

func TestNextPINAcceptsValidEntry(t *testing.T) {
	t.Parallel()
	pin, attempts, note := nextPIN(" 1234 ", 0, true)
	require.Equal(t, "1234", pin)
	require.Zero(t, attempts)
	require.Empty(t, note)
}

func TestNextPINRandomLiteral(t *testing.T) {
	t.Parallel()
	pin, attempts, note := nextPIN("RANDOM", 0, false)
	require.NoError(t, ledger.ValidatePIN(pin))
	require.Zero(t, attempts)
	require.Contains(t, note, pin)
}

func TestNextPINFallbackAfterThreeInvalid(t *testing.T) {
	t.Parallel()
	attempts := 0
	var pin, note string
	for _, bad := range []string{"12", "abcd"} {
		pin, attempts, note = nextPIN(bad, attempts, true)
		require.Empty(t, pin)
		require.NotEmpty(t, note)
	}
	require.Equal(t, 2, attempts)

	pin, attempts, note = nextPIN("xyz", attempts, true)
	require.NoError(t, ledger.ValidatePIN(pin))
	require.Zero(t, attempts)
	require.Contains(t, note, "generated PIN")
}

func TestNextPINNoFallbackKeepsRejecting(t *testing.T) {
	t.Parallel()
	attempts := 0
	var pin string
	for i := 0; i < 5; i++ {
		pin, attempts, _ = nextPIN("nope", attempts, false)
		require.Empty(t, pin)
	}
	require.Equal(t, 5, attempts)
}

func TestClosestUsername(t *testing.T) {
	t.Parallel()
	users := []string{"alice", "bob", "carla"}
	require.Equal(t, "alice", closestUsername("alcie", users))
	require.Equal(t, "bob", closestUsername("bbo", users))
	require.Empty(t, closestUsername("zzzzzz", users))
	require.Empty(t, closestUsername("dave", nil))
}

func TestParseDepositLenient(t *testing.T) {
	t.Parallel()
	a := &App{cfg: config.Config{Policy: config.PolicyConfig{LenientAmounts: true}}}

	amt, ok, note := a.parseDeposit("abc")
	require.True(t, ok)
	require.True(t, amt.IsZero())
	require.NotEmpty(t, note)

	amt, ok, note = a.parseDeposit("250.50")
	require.True(t, ok)
	require.True(t, amt.Equal(decimal.RequireFromString("250.50")))
	require.Empty(t, note)

	_, ok, note = a.parseDeposit("-20")
	require.False(t, ok)
	require.Contains(t, note, "negative")
}

func TestParseDepositStrict(t *testing.T) {
	t.Parallel()
	a := &App{cfg: config.Config{Policy: config.PolicyConfig{LenientAmounts: false}}}

	_, ok, _ := a.parseDeposit("abc")
	require.False(t, ok)
}
