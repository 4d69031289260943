package domain

import "time"

// Wallet is a registered ledger address with display metadata.
// Deactivated wallets are kept for history and excluded from the active list.
type Wallet struct {
	ID            string     `json:"id"`
	Address       string     `json:"address"`
	Label         string     `json:"label,omitempty"`
	OwnerName     string     `json:"owner_name,omitempty"`
	Active        bool       `json:"active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
}

// SetActive toggles the wallet and stamps the change.
func (w *Wallet) SetActive(active bool, now time.Time) {
	w.Active = active
	w.UpdatedAt = &now
	if active {
		w.DeactivatedAt = nil
	} else {
		w.DeactivatedAt = &now
	}
}
