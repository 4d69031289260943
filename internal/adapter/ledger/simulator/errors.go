package simulator

import "errors"

// Sentinel errors returned by the simulator. Callers match with errors.Is;
// messages carry the offending identifier where one exists.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidCredential   = errors.New("invalid source secret key")
	ErrSelfTransfer        = errors.New("sender and recipient wallets must be different")
	ErrUnfundedDestination = errors.New("destination account is not funded")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInternal            = errors.New("ledger invariant violated")
)
