package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stellar-micro-donation/internal/core/domain"
	"stellar-micro-donation/internal/core/ports"
	"stellar-micro-donation/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// receiptClaims is the JWT payload of a donation receipt. The subject is the
// donation ID.
type receiptClaims struct {
	TransactionID string `json:"txid"`
	Amount        string `json:"amount"`
	Donor         string `json:"donor"`
	Recipient     string `json:"recipient"`
	ConfirmedAt   int64  `json:"confirmed_at"`
	jwt.RegisteredClaims
}

// JWTReceiptService implements ports.ReceiptService using HS256 JWT.
type JWTReceiptService struct {
	repo   ports.DonationRepository
	secret []byte
	expiry time.Duration
	issuer string
	now    func() time.Time
}

// NewJWTReceiptService creates a new receipt service.
func NewJWTReceiptService(repo ports.DonationRepository, secret string, expiry time.Duration, issuer string) *JWTReceiptService {
	return &JWTReceiptService{
		repo:   repo,
		secret: []byte(secret),
		expiry: expiry,
		issuer: issuer,
		now:    time.Now,
	}
}

// Issue signs a receipt for a confirmed donation.
func (s *JWTReceiptService) Issue(ctx context.Context, donationID string) (*ports.Receipt, error) {
	d, err := s.repo.GetByID(ctx, donationID)
	if err != nil {
		return nil, apperror.ErrStorage(err)
	}
	if d == nil {
		return nil, apperror.ErrNotFound("Donation")
	}
	if d.Status != domain.DonationStatusConfirmed || d.StellarTxID == nil || d.ConfirmedAt == nil {
		return nil, apperror.ErrReceiptUnavailable()
	}

	now := s.now()
	expiresAt := now.Add(s.expiry)
	claims := receiptClaims{
		TransactionID: *d.StellarTxID,
		Amount:        d.Amount.StringFixed(domain.AmountScale),
		Donor:         d.Donor,
		Recipient:     d.Recipient,
		ConfirmedAt:   d.ConfirmedAt.Unix(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   d.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("signing receipt: %w", err))
	}

	return &ports.Receipt{
		Token:     token,
		ExpiresAt: expiresAt,
		Claims:    claims.toPort(),
	}, nil
}

// Verify parses and validates a receipt token.
func (s *JWTReceiptService) Verify(token string) (*ports.ReceiptClaims, error) {
	claims := &receiptClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		e := apperror.ErrInvalidReceipt()
		e.Err = err
		return nil, e
	}
	if !parsed.Valid || claims.Subject == "" {
		e := apperror.ErrInvalidReceipt()
		e.Err = errors.New("missing subject claim")
		return nil, e
	}

	out := claims.toPort()
	return &out, nil
}

func (c receiptClaims) toPort() ports.ReceiptClaims {
	return ports.ReceiptClaims{
		DonationID:    c.Subject,
		TransactionID: c.TransactionID,
		Amount:        c.Amount,
		Donor:         c.Donor,
		Recipient:     c.Recipient,
		ConfirmedAt:   time.Unix(c.ConfirmedAt, 0).UTC(),
	}
}
