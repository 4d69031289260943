package dto

import (
	"time"

	"stellar-micro-donation/internal/core/domain"
	"stellar-micro-donation/internal/core/ports"
)

// --- Donations ---

// CreateDonationRequest is the request body for recording a donation.
// When SourceSecret is present the donation is settled on the ledger.
type CreateDonationRequest struct {
	Amount         string `json:"amount" binding:"required,decimal_amount"`
	Donor          string `json:"donor,omitempty" binding:"max=128"`
	Recipient      string `json:"recipient" binding:"required,max=128"`
	Memo           string `json:"memo,omitempty" binding:"max=28"`
	IdempotencyKey string `json:"idempotency_key,omitempty" binding:"omitempty,max=255,safe_id"`
	SourceSecret   string `json:"source_secret,omitempty" binding:"omitempty,stellar_secret"`
}

// UpdateDonationStatusRequest moves a pending donation to a terminal status.
type UpdateDonationStatusRequest struct {
	Status        string  `json:"status" binding:"required,oneof=confirmed failed"`
	TransactionID *string `json:"transaction_id,omitempty" binding:"omitempty,max=128"`
	Ledger        *int64  `json:"ledger,omitempty" binding:"omitempty,gt=0"`
	Reason        string  `json:"reason,omitempty" binding:"max=500"`
}

// VerifyDonationRequest looks a ledger transaction up by hash.
type VerifyDonationRequest struct {
	TransactionHash string `json:"transaction_hash" binding:"required,max=128"`
}

// DonationResponse is the wire form of a donation record.
type DonationResponse struct {
	ID              string  `json:"id"`
	Amount          string  `json:"amount"`
	Donor           string  `json:"donor"`
	Recipient       string  `json:"recipient"`
	Memo            string  `json:"memo,omitempty"`
	Timestamp       string  `json:"timestamp"`
	Status          string  `json:"status"`
	StellarTxID     *string `json:"stellar_tx_id,omitempty"`
	StellarLedger   *int64  `json:"stellar_ledger,omitempty"`
	StatusUpdatedAt string  `json:"status_updated_at"`
	ConfirmedAt     *string `json:"confirmed_at,omitempty"`
	FailureReason   string  `json:"failure_reason,omitempty"`
}

// DonationListResponse wraps a page of donations.
type DonationListResponse struct {
	Items   []DonationResponse `json:"items"`
	Total   int64              `json:"total"`
	Limit   int                `json:"limit"`
	Offset  int                `json:"offset"`
	HasMore bool               `json:"has_more"`
}

// VerificationResponse is the answer to a transaction lookup.
type VerificationResponse struct {
	Verified    bool                      `json:"verified"`
	Status      string                    `json:"status"`
	Transaction LedgerTransactionResponse `json:"transaction"`
	Donation    *DonationResponse         `json:"donation,omitempty"`
}

// --- Wallets ---

// CreateWalletRequest registers an existing address, or provisions a new
// ledger account when Address is empty.
type CreateWalletRequest struct {
	Address   string `json:"address,omitempty" binding:"omitempty,stellar_key"`
	Label     string `json:"label,omitempty" binding:"max=100"`
	OwnerName string `json:"owner_name,omitempty" binding:"max=100"`
	Fund      bool   `json:"fund,omitempty"`
}

// WalletResponse is the wire form of a wallet record.
type WalletResponse struct {
	ID            string  `json:"id"`
	Address       string  `json:"address"`
	Label         string  `json:"label,omitempty"`
	OwnerName     string  `json:"owner_name,omitempty"`
	Active        bool    `json:"active"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     *string `json:"updated_at,omitempty"`
	DeactivatedAt *string `json:"deactivated_at,omitempty"`
}

// CreatedWalletResponse carries the one-time secret of a provisioned account.
type CreatedWalletResponse struct {
	Wallet    WalletResponse   `json:"wallet"`
	SecretKey string           `json:"secret_key,omitempty"`
	Balance   *BalanceResponse `json:"balance,omitempty"`
}

// --- Ledger ---

// TransferRequest is the request body for a raw ledger transfer.
type TransferRequest struct {
	SourceSecret string `json:"source_secret" binding:"required,stellar_secret"`
	Destination  string `json:"destination" binding:"required,stellar_key"`
	Amount       string `json:"amount" binding:"required,decimal_amount"`
	Memo         string `json:"memo,omitempty" binding:"max=28"`
}

// AccountKeysResponse returns a fresh key pair. The secret is shown once.
type AccountKeysResponse struct {
	PublicKey string `json:"public_key"`
	SecretKey string `json:"secret_key"`
}

// BalanceResponse is the answer to a balance query.
type BalanceResponse struct {
	Balance string `json:"balance"`
	Asset   string `json:"asset"`
}

// FundingResponse reports whether an account is funded.
type FundingResponse struct {
	Funded  bool   `json:"funded"`
	Balance string `json:"balance"`
	Exists  bool   `json:"exists"`
}

// TransferResponse is returned for a committed transfer.
type TransferResponse struct {
	TransactionID string `json:"transaction_id"`
	Ledger        int64  `json:"ledger"`
	Status        string `json:"status"`
	ConfirmedAt   string `json:"confirmed_at"`
	Amount        string `json:"amount"`
}

// LedgerTransactionResponse is the wire form of a committed transaction.
type LedgerTransactionResponse struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Amount      string `json:"amount"`
	Memo        string `json:"memo"`
	Ledger      int64  `json:"ledger"`
	Timestamp   string `json:"timestamp"`
	Status      string `json:"status"`
	ConfirmedAt string `json:"confirmed_at"`
}

// --- Stats ---

// SummaryResponse holds aggregate donation figures.
type SummaryResponse struct {
	TotalAmount    string            `json:"total_amount"`
	Count          int64             `json:"count"`
	Confirmed      int64             `json:"confirmed"`
	Pending        int64             `json:"pending"`
	UniqueDonors   int64             `json:"unique_donors"`
	AverageAmount  string            `json:"average_amount"`
	LargestAmount  string            `json:"largest_amount"`
	ByRecipient    map[string]string `json:"by_recipient"`
	FirstDonation  *string           `json:"first_donation,omitempty"`
	LatestDonation *string           `json:"latest_donation,omitempty"`
}

// BucketResponse is one period of a donation time series.
type BucketResponse struct {
	Start       string `json:"start"`
	End         string `json:"end"`
	TotalAmount string `json:"total_amount"`
	Count       int64  `json:"count"`
}

// --- Receipts ---

// VerifyReceiptRequest is the request body for receipt verification.
type VerifyReceiptRequest struct {
	Token string `json:"token" binding:"required"`
}

// ReceiptResponse carries a signed receipt.
type ReceiptResponse struct {
	Token     string               `json:"token"`
	ExpiresAt string               `json:"expires_at"`
	Claims    ReceiptClaimsPayload `json:"claims"`
}

// ReceiptClaimsPayload lists the facts a receipt attests to.
type ReceiptClaimsPayload struct {
	DonationID    string `json:"donation_id"`
	TransactionID string `json:"transaction_id"`
	Amount        string `json:"amount"`
	Donor         string `json:"donor"`
	Recipient     string `json:"recipient"`
	ConfirmedAt   string `json:"confirmed_at"`
}

// --- Mapping ---

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// FromDonation converts a donation record to its wire form.
func FromDonation(d *domain.Donation) DonationResponse {
	return DonationResponse{
		ID:              d.ID,
		Amount:          d.Amount.StringFixed(domain.AmountScale),
		Donor:           d.Donor,
		Recipient:       d.Recipient,
		Memo:            d.Memo,
		Timestamp:       formatTime(d.Timestamp),
		Status:          string(d.Status),
		StellarTxID:     d.StellarTxID,
		StellarLedger:   d.StellarLedger,
		StatusUpdatedAt: formatTime(d.StatusUpdatedAt),
		ConfirmedAt:     formatTimePtr(d.ConfirmedAt),
		FailureReason:   d.FailureReason,
	}
}

// FromDonations converts a slice, never returning nil.
func FromDonations(list []domain.Donation) []DonationResponse {
	out := make([]DonationResponse, 0, len(list))
	for i := range list {
		out = append(out, FromDonation(&list[i]))
	}
	return out
}

// FromWallet converts a wallet record to its wire form.
func FromWallet(w *domain.Wallet) WalletResponse {
	return WalletResponse{
		ID:            w.ID,
		Address:       w.Address,
		Label:         w.Label,
		OwnerName:     w.OwnerName,
		Active:        w.Active,
		CreatedAt:     formatTime(w.CreatedAt),
		UpdatedAt:     formatTimePtr(w.UpdatedAt),
		DeactivatedAt: formatTimePtr(w.DeactivatedAt),
	}
}

// FromWallets converts a slice, never returning nil.
func FromWallets(list []domain.Wallet) []WalletResponse {
	out := make([]WalletResponse, 0, len(list))
	for i := range list {
		out = append(out, FromWallet(&list[i]))
	}
	return out
}

func FromBalance(b *domain.AccountBalance) BalanceResponse {
	return BalanceResponse{Balance: b.Balance.StringFixed(domain.AmountScale), Asset: b.Asset}
}

func FromFunding(f *domain.FundingStatus) FundingResponse {
	return FundingResponse{
		Funded:  f.Funded,
		Balance: f.Balance.StringFixed(domain.AmountScale),
		Exists:  f.Exists,
	}
}

func FromTransfer(r *domain.TransferResult) TransferResponse {
	return TransferResponse{
		TransactionID: r.TransactionID,
		Ledger:        r.Ledger,
		Status:        string(r.Status),
		ConfirmedAt:   formatTime(r.ConfirmedAt),
		Amount:        r.Amount.StringFixed(domain.AmountScale),
	}
}

func FromLedgerTransaction(tx domain.LedgerTransaction) LedgerTransactionResponse {
	return LedgerTransactionResponse{
		ID:          tx.ID,
		Source:      tx.Source,
		Destination: tx.Destination,
		Amount:      tx.Amount.StringFixed(domain.AmountScale),
		Memo:        tx.Memo,
		Ledger:      tx.Ledger,
		Timestamp:   formatTime(tx.CreatedAt),
		Status:      string(tx.Status),
		ConfirmedAt: formatTime(tx.ConfirmedAt),
	}
}

// FromLedgerTransactions converts a slice, never returning nil.
func FromLedgerTransactions(list []domain.LedgerTransaction) []LedgerTransactionResponse {
	out := make([]LedgerTransactionResponse, 0, len(list))
	for _, tx := range list {
		out = append(out, FromLedgerTransaction(tx))
	}
	return out
}

func FromVerification(v *ports.VerificationResult) VerificationResponse {
	resp := VerificationResponse{
		Verified:    v.Verified,
		Status:      string(v.Status),
		Transaction: FromLedgerTransaction(v.Transaction),
	}
	if v.Donation != nil {
		d := FromDonation(v.Donation)
		resp.Donation = &d
	}
	return resp
}

func FromSummary(s *ports.DonationSummary) SummaryResponse {
	byRecipient := make(map[string]string, len(s.ByRecipient))
	for k, v := range s.ByRecipient {
		byRecipient[k] = v.StringFixed(domain.AmountScale)
	}
	return SummaryResponse{
		TotalAmount:    s.TotalAmount.StringFixed(domain.AmountScale),
		Count:          s.Count,
		Confirmed:      s.Confirmed,
		Pending:        s.Pending,
		UniqueDonors:   s.UniqueDonors,
		AverageAmount:  s.AverageAmount.StringFixed(domain.AmountScale),
		LargestAmount:  s.LargestAmount.StringFixed(domain.AmountScale),
		ByRecipient:    byRecipient,
		FirstDonation:  formatTimePtr(s.FirstDonation),
		LatestDonation: formatTimePtr(s.LatestDonation),
	}
}

func FromBuckets(buckets []ports.DonationBucket) []BucketResponse {
	out := make([]BucketResponse, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, BucketResponse{
			Start:       formatTime(b.Start),
			End:         formatTime(b.End),
			TotalAmount: b.TotalAmount.StringFixed(domain.AmountScale),
			Count:       b.Count,
		})
	}
	return out
}

func FromReceiptClaims(c ports.ReceiptClaims) ReceiptClaimsPayload {
	return ReceiptClaimsPayload{
		DonationID:    c.DonationID,
		TransactionID: c.TransactionID,
		Amount:        c.Amount,
		Donor:         c.Donor,
		Recipient:     c.Recipient,
		ConfirmedAt:   formatTime(c.ConfirmedAt),
	}
}

func FromReceipt(r *ports.Receipt) ReceiptResponse {
	return ReceiptResponse{
		Token:     r.Token,
		ExpiresAt: formatTime(r.ExpiresAt),
		Claims:    FromReceiptClaims(r.Claims),
	}
}
