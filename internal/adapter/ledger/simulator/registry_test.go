package simulator

import (
	"bytes"
	"regexp"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	publicKeyRe = regexp.MustCompile(`^G[0-9A-F]{55}$`)
	secretKeyRe = regexp.MustCompile(`^S[0-9A-F]{55}$`)
)

func newTestSimulator(t *testing.T) *Simulator {
	t.Helper()
	return New(Options{Logger: zerolog.Nop()})
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func TestAccountRegistry_CreateAccount_Format(t *testing.T) {
	sim := newTestSimulator(t)

	keys, err := sim.Registry.CreateAccount()
	require.NoError(t, err)

	assert.Regexp(t, publicKeyRe, keys.PublicKey)
	assert.Regexp(t, secretKeyRe, keys.SecretKey)
	assert.Len(t, keys.PublicKey, 56)
	assert.Len(t, keys.SecretKey, 56)

	bal, err := sim.Registry.GetBalance(keys.PublicKey)
	require.NoError(t, err)
	assert.True(t, bal.Balance.IsZero())
	assert.Equal(t, "XLM", bal.Asset)
}

func TestAccountRegistry_CreateAccount_Unique(t *testing.T) {
	sim := newTestSimulator(t)
	seenPublic := make(map[string]bool)
	seenSecret := make(map[string]bool)

	for i := 0; i < 500; i++ {
		keys, err := sim.Registry.CreateAccount()
		require.NoError(t, err)
		assert.False(t, seenPublic[keys.PublicKey], "duplicate public key")
		assert.False(t, seenSecret[keys.SecretKey], "duplicate secret key")
		seenPublic[keys.PublicKey] = true
		seenSecret[keys.SecretKey] = true
	}
	assert.Equal(t, 500, sim.Stats().Accounts)
}

func TestAccountRegistry_CreateAccount_RegeneratesOnCollision(t *testing.T) {
	block := func(b byte) []byte { return bytes.Repeat([]byte{b}, 28) }

	var stream []byte
	stream = append(stream, block(0x01)...) // first account public
	stream = append(stream, block(0x02)...) // first account secret
	stream = append(stream, block(0x01)...) // colliding public
	stream = append(stream, block(0x03)...)
	stream = append(stream, block(0x04)...) // second account public
	stream = append(stream, block(0x05)...) // second account secret
	// Trailing bytes for the sequence base read in New.
	entropy := bytes.NewReader(append(bytes.Repeat([]byte{0}, 8), stream...))

	sim := New(Options{Entropy: entropy, Logger: zerolog.Nop()})

	first, err := sim.Registry.CreateAccount()
	require.NoError(t, err)
	second, err := sim.Registry.CreateAccount()
	require.NoError(t, err)

	assert.NotEqual(t, first.PublicKey, second.PublicKey)
	assert.Equal(t, "G"+string(bytes.Repeat([]byte("04"), 28))[:55], second.PublicKey)
	assert.Equal(t, "S"+string(bytes.Repeat([]byte("05"), 28))[:55], second.SecretKey)
}

func TestAccountRegistry_CreateAccount_EntropyExhausted(t *testing.T) {
	sim := New(Options{Entropy: bytes.NewReader(make([]byte, 8)), Logger: zerolog.Nop()})

	_, err := sim.Registry.CreateAccount()
	assert.Error(t, err)
	assert.Equal(t, 0, sim.Stats().Accounts)
}

func TestAccountRegistry_GetBalance_NotFound(t *testing.T) {
	sim := newTestSimulator(t)

	_, err := sim.Registry.GetBalance("GDOESNOTEXIST")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAccountRegistry_FundAccount(t *testing.T) {
	fundedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sim := New(Options{Clock: fixedClock(fundedAt), Logger: zerolog.Nop()})

	keys, err := sim.Registry.CreateAccount()
	require.NoError(t, err)

	bal, err := sim.Registry.FundAccount(keys.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, "10000.0000000", FormatAmount(bal.Balance))

	acct, ok := sim.Registry.Account(keys.PublicKey)
	require.True(t, ok)
	require.NotNil(t, acct.FundedAt)
	assert.Equal(t, fundedAt, *acct.FundedAt)
}

func TestAccountRegistry_FundAccount_ResetsInsteadOfAccumulating(t *testing.T) {
	sim := newTestSimulator(t)
	keys, err := sim.Registry.CreateAccount()
	require.NoError(t, err)

	_, err = sim.Registry.FundAccount(keys.PublicKey)
	require.NoError(t, err)
	bal, err := sim.Registry.FundAccount(keys.PublicKey)
	require.NoError(t, err)

	assert.True(t, bal.Balance.Equal(DefaultBootstrapBalance))
}

func TestAccountRegistry_FundAccount_CustomBootstrap(t *testing.T) {
	sim := New(Options{BootstrapBalance: decimal.RequireFromString("25.123456789"), Logger: zerolog.Nop()})
	keys, err := sim.Registry.CreateAccount()
	require.NoError(t, err)

	bal, err := sim.Registry.FundAccount(keys.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, "25.1234568", FormatAmount(bal.Balance))
}

func TestAccountRegistry_FundAccount_NotFound(t *testing.T) {
	sim := newTestSimulator(t)

	_, err := sim.Registry.FundAccount("GMISSING")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAccountRegistry_IsFunded(t *testing.T) {
	sim := newTestSimulator(t)
	keys, err := sim.Registry.CreateAccount()
	require.NoError(t, err)

	missing := sim.Registry.IsFunded("GMISSING")
	assert.False(t, missing.Exists)
	assert.False(t, missing.Funded)
	assert.True(t, missing.Balance.IsZero())

	fresh := sim.Registry.IsFunded(keys.PublicKey)
	assert.True(t, fresh.Exists)
	assert.False(t, fresh.Funded)

	_, err = sim.Registry.FundAccount(keys.PublicKey)
	require.NoError(t, err)

	funded := sim.Registry.IsFunded(keys.PublicKey)
	assert.True(t, funded.Exists)
	assert.True(t, funded.Funded)
	assert.True(t, funded.Balance.Equal(DefaultBootstrapBalance))
}

func TestAccountRegistry_ResolveByPrivateCredential(t *testing.T) {
	sim := newTestSimulator(t)
	keys, err := sim.Registry.CreateAccount()
	require.NoError(t, err)

	sim.st.mu.RLock()
	defer sim.st.mu.RUnlock()

	acct, ok := sim.Registry.resolveByPrivateCredential(keys.SecretKey)
	require.True(t, ok)
	assert.Equal(t, keys.PublicKey, acct.PublicKey)

	_, ok = sim.Registry.resolveByPrivateCredential(keys.PublicKey)
	assert.False(t, ok, "public key must not resolve as a credential")
}
