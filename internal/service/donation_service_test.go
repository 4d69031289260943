package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"stellar-micro-donation/internal/core/domain"
	"stellar-micro-donation/internal/core/ports"
	"stellar-micro-donation/internal/core/ports/mocks"
	"stellar-micro-donation/pkg/apperror"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var testNow = time.Date(2026, 4, 2, 9, 15, 0, 0, time.UTC)

type donationTestDeps struct {
	svc    *DonationServiceImpl
	repo   *mocks.MockDonationRepository
	cache  *mocks.MockIdempotencyCache
	ledger *mocks.MockLedger
}

func setupDonationService(t *testing.T) *donationTestDeps {
	ctrl := gomock.NewController(t)
	d := &donationTestDeps{
		repo:   mocks.NewMockDonationRepository(ctrl),
		cache:  mocks.NewMockIdempotencyCache(ctrl),
		ledger: mocks.NewMockLedger(ctrl),
	}
	d.svc = NewDonationService(d.repo, d.cache, d.ledger, newTestLogger())
	d.svc.now = func() time.Time { return testNow }
	return d
}

func TestDonationService_Create_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  ports.CreateDonationRequest
		code string
	}{
		{"unparsable amount", ports.CreateDonationRequest{Amount: "lots", Recipient: "GR"}, "VAL_001"},
		{"zero amount", ports.CreateDonationRequest{Amount: "0", Recipient: "GR"}, "VAL_001"},
		{"negative amount", ports.CreateDonationRequest{Amount: "-2", Recipient: "GR"}, "VAL_001"},
		{"rounds to zero", ports.CreateDonationRequest{Amount: "0.00000001", Recipient: "GR"}, "VAL_001"},
		{"missing recipient", ports.CreateDonationRequest{Amount: "1", Recipient: "  "}, "VAL_001"},
		{"donor is recipient", ports.CreateDonationRequest{Amount: "1", Donor: " GR ", Recipient: "GR"}, "LED_002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupDonationService(t)
			_, _, err := d.svc.Create(context.Background(), tt.req)
			assertAppError(t, err, tt.code)
		})
	}
}

func TestDonationService_Create_RecordOnly(t *testing.T) {
	d := setupDonationService(t)
	ctx := context.Background()

	d.repo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, don *domain.Donation) error {
			assert.NotEmpty(t, don.ID)
			assert.Equal(t, domain.AnonymousDonor, don.Donor)
			assert.Equal(t, "GRECIPIENT", don.Recipient)
			assert.Equal(t, "1.2345679", don.Amount.StringFixed(7))
			assert.Equal(t, domain.DonationStatusPending, don.Status)
			assert.Equal(t, testNow, don.Timestamp)
			return nil
		})

	don, replayed, err := d.svc.Create(ctx, ports.CreateDonationRequest{
		Amount:    "1.23456789",
		Recipient: " GRECIPIENT ",
		Memo:      " thanks ",
	})
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, "thanks", don.Memo)
}

func TestDonationService_Create_ReplayFromCache(t *testing.T) {
	d := setupDonationService(t)
	ctx := context.Background()

	original := domain.Donation{
		ID:             "d1",
		Amount:         decimal.RequireFromString("5"),
		Donor:          "alice",
		Recipient:      "GR",
		Status:         domain.DonationStatusConfirmed,
		IdempotencyKey: "key-1",
	}
	data, err := json.Marshal(original)
	require.NoError(t, err)

	d.cache.EXPECT().Get(ctx, "key-1").Return(data, nil)

	don, replayed, err := d.svc.Create(ctx, ports.CreateDonationRequest{
		Amount: "5", Donor: "alice", Recipient: "GR", IdempotencyKey: "key-1",
	})
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, "d1", don.ID)
}

func TestDonationService_Create_ReplayFromStore(t *testing.T) {
	d := setupDonationService(t)
	ctx := context.Background()
	existing := &domain.Donation{ID: "d1", Amount: decimal.NewFromInt(5), IdempotencyKey: "key-1"}

	d.cache.EXPECT().Get(ctx, "key-1").Return(nil, errors.New("redis down"))
	d.repo.EXPECT().GetByIdempotencyKey(ctx, "key-1").Return(existing, nil)
	d.cache.EXPECT().Set(ctx, "key-1", gomock.Any(), idempotencyTTL).Return(nil)

	don, replayed, err := d.svc.Create(ctx, ports.CreateDonationRequest{
		Amount: "5", Recipient: "GR", IdempotencyKey: "key-1",
	})
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Same(t, existing, don)
}

func TestDonationService_Create_DuplicateKeyRace(t *testing.T) {
	d := setupDonationService(t)
	ctx := context.Background()
	winner := &domain.Donation{ID: "winner", IdempotencyKey: "key-1"}

	d.cache.EXPECT().Get(ctx, "key-1").Return(nil, nil)
	gomock.InOrder(
		d.repo.EXPECT().GetByIdempotencyKey(ctx, "key-1").Return(nil, nil),
		d.repo.EXPECT().Create(ctx, gomock.Any()).Return(ports.ErrDuplicateKey),
		d.repo.EXPECT().GetByIdempotencyKey(ctx, "key-1").Return(winner, nil),
	)

	don, replayed, err := d.svc.Create(ctx, ports.CreateDonationRequest{
		Amount: "5", Recipient: "GR", IdempotencyKey: "key-1",
	})
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, "winner", don.ID)
}

func TestDonationService_Create_StorageFailure(t *testing.T) {
	d := setupDonationService(t)
	d.repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	_, _, err := d.svc.Create(context.Background(), ports.CreateDonationRequest{Amount: "5", Recipient: "GR"})
	assertAppError(t, err, "SYS_003")
}

func TestDonationService_Create_SettlesOnLedger(t *testing.T) {
	d := setupDonationService(t)
	ctx := context.Background()
	confirmedAt := testNow.Add(time.Second)
	result := &domain.TransferResult{
		TransactionID: "mock_abc",
		Ledger:        1_000_042,
		Status:        domain.LedgerTxConfirmed,
		ConfirmedAt:   confirmedAt,
	}

	var created *domain.Donation
	d.cache.EXPECT().Get(ctx, "key-2").Return(nil, nil)
	d.repo.EXPECT().GetByIdempotencyKey(ctx, "key-2").Return(nil, nil)
	d.repo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, don *domain.Donation) error {
		created = don
		return nil
	})
	d.ledger.EXPECT().Transfer(ctx, domain.TransferRequest{
		SourceSecret: "SSECRET",
		Destination:  "GR",
		Amount:       "5.0000000",
		Memo:         "hello",
	}).Return(result, nil)
	d.repo.EXPECT().UpdateStatus(ctx, gomock.Any(), domain.DonationStatusConfirmed, gomock.Any()).DoAndReturn(
		func(_ context.Context, id string, status domain.DonationStatus, upd domain.DonationStatusUpdate) (*domain.Donation, error) {
			assert.Equal(t, created.ID, id)
			assert.Equal(t, "mock_abc", *upd.TransactionID)
			assert.Equal(t, int64(1_000_042), *upd.Ledger)
			assert.Equal(t, confirmedAt, *upd.ConfirmedAt)
			out := *created
			out.Apply(status, upd, testNow)
			return &out, nil
		})
	d.cache.EXPECT().Set(ctx, "key-2", gomock.Any(), idempotencyTTL).DoAndReturn(
		func(_ context.Context, _ string, value []byte, _ time.Duration) error {
			var cached domain.Donation
			require.NoError(t, json.Unmarshal(value, &cached))
			assert.Equal(t, domain.DonationStatusConfirmed, cached.Status)
			return nil
		})

	don, replayed, err := d.svc.Create(ctx, ports.CreateDonationRequest{
		Amount: "5", Donor: "alice", Recipient: "GR", Memo: "hello",
		IdempotencyKey: "key-2", SourceSecret: "SSECRET",
	})
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, domain.DonationStatusConfirmed, don.Status)
	assert.Equal(t, "mock_abc", *don.StellarTxID)
}

func TestDonationService_Create_LedgerRejection(t *testing.T) {
	d := setupDonationService(t)
	ctx := context.Background()

	d.repo.EXPECT().Create(ctx, gomock.Any()).Return(nil)
	d.ledger.EXPECT().Transfer(ctx, gomock.Any()).Return(nil, apperror.ErrUnfundedDestination())
	d.repo.EXPECT().UpdateStatus(ctx, gomock.Any(), domain.DonationStatusFailed, domain.DonationStatusUpdate{
		Reason: "Destination account is not funded",
	}).Return(&domain.Donation{Status: domain.DonationStatusFailed}, nil)

	_, _, err := d.svc.Create(ctx, ports.CreateDonationRequest{
		Amount: "5", Recipient: "GR", SourceSecret: "SSECRET",
	})
	assertAppError(t, err, "LED_003")
}

func TestDonationService_Get(t *testing.T) {
	d := setupDonationService(t)
	ctx := context.Background()

	d.repo.EXPECT().GetByID(ctx, "d1").Return(&domain.Donation{ID: "d1"}, nil)
	d.repo.EXPECT().GetByID(ctx, "missing").Return(nil, nil)
	d.repo.EXPECT().GetByStellarTxID(ctx, "mock_x").Return(nil, nil)

	don, err := d.svc.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "d1", don.ID)

	_, err = d.svc.Get(ctx, "missing")
	assertAppError(t, err, "RES_001")

	_, err = d.svc.GetByTransaction(ctx, "mock_x")
	assertAppError(t, err, "RES_001")
}

func TestDonationService_UpdateStatus(t *testing.T) {
	d := setupDonationService(t)
	ctx := context.Background()
	reason := domain.DonationStatusUpdate{Reason: "cancelled by donor"}

	d.repo.EXPECT().GetByID(ctx, "pending").Return(&domain.Donation{ID: "pending", Status: domain.DonationStatusPending}, nil)
	d.repo.EXPECT().UpdateStatus(ctx, "pending", domain.DonationStatusFailed, reason).
		Return(&domain.Donation{ID: "pending", Status: domain.DonationStatusFailed}, nil)

	updated, err := d.svc.UpdateStatus(ctx, "pending", domain.DonationStatusFailed, reason)
	require.NoError(t, err)
	assert.Equal(t, domain.DonationStatusFailed, updated.Status)

	d.repo.EXPECT().GetByID(ctx, "done").Return(&domain.Donation{ID: "done", Status: domain.DonationStatusConfirmed}, nil)
	_, err = d.svc.UpdateStatus(ctx, "done", domain.DonationStatusFailed, reason)
	assertAppError(t, err, "RES_003")
}

func TestDonationService_UpdateStatus_LostRace(t *testing.T) {
	d := setupDonationService(t)
	ctx := context.Background()
	upd := domain.DonationStatusUpdate{Reason: "cancelled by donor"}

	gomock.InOrder(
		d.repo.EXPECT().GetByID(ctx, "d1").Return(&domain.Donation{ID: "d1", Status: domain.DonationStatusPending}, nil),
		d.repo.EXPECT().UpdateStatus(ctx, "d1", domain.DonationStatusFailed, upd).
			Return(nil, fmt.Errorf("%w: confirmed -> failed", ports.ErrStatusConflict)),
		d.repo.EXPECT().GetByID(ctx, "d1").Return(&domain.Donation{ID: "d1", Status: domain.DonationStatusConfirmed}, nil),
	)

	_, err := d.svc.UpdateStatus(ctx, "d1", domain.DonationStatusFailed, upd)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "RES_003", appErr.Code)
	assert.Equal(t, http.StatusConflict, appErr.HTTPStatus)
	assert.Contains(t, appErr.Message, "from confirmed to failed")
}

func TestDonationService_Create_SettlementRacesStatusUpdate(t *testing.T) {
	d := setupDonationService(t)
	ctx := context.Background()

	d.repo.EXPECT().Create(ctx, gomock.Any()).Return(nil)
	d.ledger.EXPECT().Transfer(ctx, gomock.Any()).Return(&domain.TransferResult{TransactionID: "mock_abc", Ledger: 1_000_001}, nil)
	d.repo.EXPECT().UpdateStatus(ctx, gomock.Any(), domain.DonationStatusConfirmed, gomock.Any()).
		Return(nil, ports.ErrStatusConflict)
	d.repo.EXPECT().GetByID(ctx, gomock.Any()).Return(&domain.Donation{Status: domain.DonationStatusFailed}, nil)

	_, _, err := d.svc.Create(ctx, ports.CreateDonationRequest{
		Amount: "5", Recipient: "GR", SourceSecret: "SSECRET",
	})
	assertAppError(t, err, "RES_003")
}

func TestDonationService_Verify(t *testing.T) {
	d := setupDonationService(t)
	ctx := context.Background()
	v := &domain.TransactionVerification{Verified: true, Status: domain.LedgerTxConfirmed, Transaction: domain.LedgerTransaction{ID: "mock_1"}}

	d.ledger.EXPECT().VerifyTransaction(ctx, "mock_1").Return(v, nil)
	d.repo.EXPECT().GetByStellarTxID(ctx, "mock_1").Return(&domain.Donation{ID: "d1"}, nil)

	res, err := d.svc.Verify(ctx, "mock_1")
	require.NoError(t, err)
	assert.True(t, res.Verified)
	require.NotNil(t, res.Donation)
	assert.Equal(t, "d1", res.Donation.ID)

	d.ledger.EXPECT().VerifyTransaction(ctx, "mock_2").Return(nil, apperror.ErrNotFound("Transaction"))
	_, err = d.svc.Verify(ctx, "mock_2")
	assertAppError(t, err, "RES_001")
}

func TestDonationService_List(t *testing.T) {
	d := setupDonationService(t)
	ctx := context.Background()
	params := ports.DonationListParams{Limit: 10}

	d.repo.EXPECT().List(ctx, params).Return([]domain.Donation{{ID: "d1"}}, int64(1), nil)
	list, total, err := d.svc.List(ctx, params)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, int64(1), total)

	d.repo.EXPECT().List(ctx, params).Return(nil, int64(0), errors.New("io"))
	_, _, err = d.svc.List(ctx, params)
	assertAppError(t, err, "SYS_003")
}
