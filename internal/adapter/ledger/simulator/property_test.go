package simulator

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"stellar-micro-donation/internal/core/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestProperty_ConservationAndExactDeltas drives random transfers, including
// overdrafts, self transfers and bad credentials, and checks after every step
// that value is conserved exactly, a committed transfer of A moves exactly A
// from source to destination and failed transfers leave no trace.
func TestProperty_ConservationAndExactDeltas(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		seed := seed
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewSource(seed))
			sim := newTestSimulator(t)

			n := 2 + rng.Intn(5)
			keys := make([]domain.AccountKeys, n)
			for i := range keys {
				k, err := sim.Registry.CreateAccount()
				require.NoError(t, err)
				keys[i] = k
				// Leave the last account unfunded to exercise that path.
				if i < n-1 {
					_, err = sim.Registry.FundAccount(k.PublicKey)
					require.NoError(t, err)
				}
			}
			total := sim.Registry.TotalBalance()
			committed := 0

			for step := 0; step < 300; step++ {
				from := keys[rng.Intn(n)]
				to := keys[rng.Intn(n)]
				secret := from.SecretKey
				if rng.Intn(20) == 0 {
					secret = "SNOTAKEY"
				}
				// Amounts up to 12000 with 7 decimals, so some overdraw.
				amount := decimal.New(rng.Int63n(120_000_000_000), -7)

				before := snapshotBalances(t, sim, keys)
				_, err := sim.Engine.Transfer(domain.TransferRequest{
					SourceSecret: secret,
					Destination:  to.PublicKey,
					Amount:       amount.String(),
				})
				after := snapshotBalances(t, sim, keys)

				if err == nil {
					committed++
					require.True(t, before[from.PublicKey].Sub(amount).Equal(after[from.PublicKey]),
						"source delta at step %d", step)
					require.True(t, before[to.PublicKey].Add(amount).Equal(after[to.PublicKey]),
						"destination delta at step %d", step)
				} else {
					require.True(t,
						errors.Is(err, ErrInvalidCredential) ||
							errors.Is(err, ErrSelfTransfer) ||
							errors.Is(err, ErrUnfundedDestination) ||
							errors.Is(err, ErrInternal),
						"unexpected error %v", err)
					for k, v := range before {
						require.True(t, v.Equal(after[k]), "failed transfer changed %s", k)
					}
				}

				require.True(t, total.Equal(sim.Registry.TotalBalance()), "value not conserved at step %d", step)
			}

			assert.Equal(t, committed, sim.Log.Count())
		})
	}
}

// TestProperty_HistoryMatchesCommits checks every committed transfer appears
// exactly once in each party's history and in the index.
func TestProperty_HistoryMatchesCommits(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	sim := newTestSimulator(t)

	keys := make([]domain.AccountKeys, 4)
	for i := range keys {
		k, err := sim.Registry.CreateAccount()
		require.NoError(t, err)
		_, err = sim.Registry.FundAccount(k.PublicKey)
		require.NoError(t, err)
		keys[i] = k
	}

	perAccount := make(map[string]int)
	for i := 0; i < 200; i++ {
		from := keys[rng.Intn(len(keys))]
		to := keys[rng.Intn(len(keys))]
		res, err := sim.Engine.Transfer(domain.TransferRequest{
			SourceSecret: from.SecretKey,
			Destination:  to.PublicKey,
			Amount:       "0.5",
		})
		if err != nil {
			continue
		}
		perAccount[from.PublicKey]++
		perAccount[to.PublicKey]++

		v, err := sim.Log.FindByID(res.TransactionID)
		require.NoError(t, err)
		assert.Equal(t, from.PublicKey, v.Transaction.Source)
	}

	for _, k := range keys {
		hist, err := sim.Log.History(k.PublicKey, 1000)
		require.NoError(t, err)
		assert.Len(t, hist, perAccount[k.PublicKey])
		for i := 1; i < len(hist); i++ {
			assert.Greater(t, hist[i-1].Ledger, hist[i].Ledger, "history must be newest first")
		}
	}
}

func snapshotBalances(t *testing.T, sim *Simulator, keys []domain.AccountKeys) map[string]decimal.Decimal {
	t.Helper()
	out := make(map[string]decimal.Decimal, len(keys))
	for _, k := range keys {
		bal, err := sim.Registry.GetBalance(k.PublicKey)
		require.NoError(t, err)
		out[k.PublicKey] = bal.Balance
	}
	return out
}
