package simulator

import (
	"fmt"
	"io"
	"time"

	"stellar-micro-donation/internal/core/domain"

	"github.com/shopspring/decimal"
)

// AccountRegistry creates accounts, answers balance queries and funds
// accounts from the simulated faucet.
type AccountRegistry struct {
	st        *state
	asset     string
	bootstrap decimal.Decimal
	now       func() time.Time
	entropy   io.Reader
}

// CreateAccount allocates a fresh key pair with a zero balance.
func (r *AccountRegistry) CreateAccount() (domain.AccountKeys, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	for attempt := 0; attempt < maxAllocAttempts; attempt++ {
		public, err := newKey(r.entropy, publicKeyPrefix)
		if err != nil {
			return domain.AccountKeys{}, err
		}
		secret, err := newKey(r.entropy, secretKeyPrefix)
		if err != nil {
			return domain.AccountKeys{}, err
		}
		if _, taken := r.st.accounts[public]; taken {
			continue
		}
		if _, taken := r.st.credentials[secret]; taken {
			continue
		}

		r.st.accounts[public] = &domain.LedgerAccount{
			PublicKey: public,
			Balance:   decimal.Zero,
			CreatedAt: r.now().UTC(),
		}
		r.st.credentials[secret] = public
		return domain.AccountKeys{PublicKey: public, SecretKey: secret}, nil
	}
	return domain.AccountKeys{}, fmt.Errorf("%w: no unique key pair after %d attempts", ErrInternal, maxAllocAttempts)
}

// GetBalance returns the balance of publicKey in the configured asset.
func (r *AccountRegistry) GetBalance(publicKey string) (domain.AccountBalance, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	acct, ok := r.st.accounts[publicKey]
	if !ok {
		return domain.AccountBalance{}, fmt.Errorf("%w: wallet %s", ErrNotFound, publicKey)
	}
	return domain.AccountBalance{Balance: acct.Balance, Asset: r.asset}, nil
}

// FundAccount sets the balance to the bootstrap amount. Repeated calls reset
// the balance rather than add to it.
func (r *AccountRegistry) FundAccount(publicKey string) (domain.AccountBalance, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	acct, ok := r.st.accounts[publicKey]
	if !ok {
		return domain.AccountBalance{}, fmt.Errorf("%w: wallet %s", ErrNotFound, publicKey)
	}
	now := r.now().UTC()
	acct.Balance = r.bootstrap
	acct.FundedAt = &now
	return domain.AccountBalance{Balance: acct.Balance, Asset: r.asset}, nil
}

// IsFunded never fails; a missing account reports Exists=false.
func (r *AccountRegistry) IsFunded(publicKey string) domain.FundingStatus {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	acct, ok := r.st.accounts[publicKey]
	if !ok {
		return domain.FundingStatus{Balance: decimal.Zero}
	}
	return domain.FundingStatus{
		Funded:  acct.Balance.IsPositive(),
		Balance: acct.Balance,
		Exists:  true,
	}
}

// Account returns a copy of the account record.
func (r *AccountRegistry) Account(publicKey string) (domain.LedgerAccount, bool) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	acct, ok := r.st.accounts[publicKey]
	if !ok {
		return domain.LedgerAccount{}, false
	}
	return *acct, true
}

// TotalBalance sums every account balance.
func (r *AccountRegistry) TotalBalance() decimal.Decimal {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	total := decimal.Zero
	for _, acct := range r.st.accounts {
		total = total.Add(acct.Balance)
	}
	return total
}

// resolveByPrivateCredential maps a secret key to its account.
// Caller holds the state lock.
func (r *AccountRegistry) resolveByPrivateCredential(secret string) (*domain.LedgerAccount, bool) {
	public, ok := r.st.credentials[secret]
	if !ok {
		return nil, false
	}
	acct, ok := r.st.accounts[public]
	return acct, ok
}
