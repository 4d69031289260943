// Package seed loads demonstration wallets and donations into an empty
// datastore.
package seed

import (
	"context"
	"fmt"
	"time"

	"stellar-micro-donation/internal/core/domain"
	"stellar-micro-donation/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Result reports how many records each collection received.
type Result struct {
	Wallets   int
	Donations int
}

type sampleDonation struct {
	amount    int64
	donor     string
	recipient string
	at        string
}

// Two full ISO weeks so the daily and weekly reports have something to show.
var sampleDonations = []sampleDonation{
	{50, "Alice", "Red Cross", "2024-02-12T10:30:00Z"},
	{75, "Bob", "UNICEF", "2024-02-12T14:15:00Z"},
	{100, "Charlie", "Red Cross", "2024-02-13T09:00:00Z"},
	{25, "Diana", "WHO", "2024-02-13T16:45:00Z"},
	{150, "Eve", "UNICEF", "2024-02-14T11:20:00Z"},
	{60, "Frank", "Red Cross", "2024-02-14T13:30:00Z"},
	{90, "Grace", "WHO", "2024-02-15T08:15:00Z"},
	{120, "Henry", "Red Cross", "2024-02-19T10:00:00Z"},
	{45, "Iris", "UNICEF", "2024-02-19T15:30:00Z"},
	{200, "Jack", "WHO", "2024-02-20T12:00:00Z"},
	{85, "Karen", "Red Cross", "2024-02-20T14:45:00Z"},
	{110, "Leo", "UNICEF", "2024-02-21T09:30:00Z"},
	{55, "Mia", "WHO", "2024-02-21T16:00:00Z"},
	{175, "Noah", "Red Cross", "2024-02-22T11:15:00Z"},
}

var sampleWallets = []domain.Wallet{
	{ID: "1", Address: "GBRPYHIL2CI3WHZDTOOQFC6EB4KJJGUJMUC5XNODMZTQYBB5XYZXYUUA", Label: "Personal Wallet", OwnerName: "Alice"},
	{ID: "2", Address: "GBBD47UZQ5EYJYJMZXZYDUC77SAZXSQEA7XJJGTAY5XJJGUJMUC5XNOD", Label: "Savings Account", OwnerName: "Bob"},
	{ID: "3", Address: "GCZST3XVCDTUJ76ZAV2HA72KYQM4YQQ5DUJTHIGQ5ESE3JNEZUAEUA7X", Label: "Donation Receiver", OwnerName: "Red Cross"},
}

var walletCreatedAt = []string{
	"2024-01-15T10:00:00Z",
	"2024-01-20T14:30:00Z",
	"2024-01-10T08:00:00Z",
}

// Run inserts the sample records into each collection that is still empty.
// Collections that already hold data are left alone.
func Run(ctx context.Context, donations ports.DonationRepository, wallets ports.WalletRepository, log zerolog.Logger) (Result, error) {
	var res Result

	existingWallets, err := wallets.List(ctx, false)
	if err != nil {
		return res, fmt.Errorf("listing wallets: %w", err)
	}
	if len(existingWallets) == 0 {
		for i, w := range sampleWallets {
			w := w
			w.Active = true
			w.CreatedAt = mustTime(walletCreatedAt[i])
			if err := wallets.Create(ctx, &w); err != nil {
				return res, fmt.Errorf("seeding wallet %s: %w", w.ID, err)
			}
			res.Wallets++
		}
		log.Info().Int("count", res.Wallets).Msg("Seeded wallets")
	} else {
		log.Info().Int("existing", len(existingWallets)).Msg("Wallets already present, skipping")
	}

	_, total, err := donations.List(ctx, ports.DonationListParams{Limit: 1})
	if err != nil {
		return res, fmt.Errorf("listing donations: %w", err)
	}
	if total > 0 {
		log.Info().Int64("existing", total).Msg("Donations already present, skipping")
		return res, nil
	}

	for i, s := range sampleDonations {
		at := mustTime(s.at)
		txID := fmt.Sprintf("tx_%03d", i+1)
		d := &domain.Donation{
			ID:              fmt.Sprintf("%d", i+1),
			Amount:          decimal.NewFromInt(s.amount),
			Donor:           s.donor,
			Recipient:       s.recipient,
			Timestamp:       at,
			Status:          domain.DonationStatusConfirmed,
			StellarTxID:     &txID,
			StatusUpdatedAt: at,
			ConfirmedAt:     &at,
		}
		if err := donations.Create(ctx, d); err != nil {
			return res, fmt.Errorf("seeding donation %s: %w", d.ID, err)
		}
		res.Donations++
	}
	log.Info().Int("count", res.Donations).Msg("Seeded donations")
	return res, nil
}

func mustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}
