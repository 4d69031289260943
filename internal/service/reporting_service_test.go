package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"stellar-micro-donation/internal/core/domain"
	"stellar-micro-donation/internal/core/ports"
	"stellar-micro-donation/internal/core/ports/mocks"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func reportingFixture() []domain.Donation {
	at := func(day, hour int) time.Time { return time.Date(2026, 3, day, hour, 0, 0, 0, time.UTC) }
	amt := decimal.RequireFromString
	return []domain.Donation{
		// 2026-03-09 is a Monday.
		{Donor: "alice", Recipient: "GR1", Amount: amt("10"), Status: domain.DonationStatusConfirmed, Timestamp: at(9, 10)},
		{Donor: "bob", Recipient: "GR1", Amount: amt("2.5"), Status: domain.DonationStatusPending, Timestamp: at(9, 23)},
		{Donor: domain.AnonymousDonor, Recipient: "GR2", Amount: amt("1"), Status: domain.DonationStatusConfirmed, Timestamp: at(15, 8)},
		{Donor: "alice", Recipient: "GR2", Amount: amt("0.0000001"), Status: domain.DonationStatusConfirmed, Timestamp: at(16, 0)},
		{Donor: "carol", Recipient: "GR1", Amount: amt("500"), Status: domain.DonationStatusFailed, Timestamp: at(16, 1)},
	}
}

func setupReporting(t *testing.T, donations []domain.Donation) *ReportingServiceImpl {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockDonationRepository(ctrl)
	repo.EXPECT().List(gomock.Any(), gomock.Any()).Return(donations, int64(len(donations)), nil).AnyTimes()
	return NewReportingService(repo)
}

func TestReportingService_Summary(t *testing.T) {
	svc := setupReporting(t, reportingFixture())

	sum, err := svc.Summary(context.Background(), ports.StatsWindow{})
	require.NoError(t, err)

	assert.Equal(t, int64(4), sum.Count)
	assert.Equal(t, int64(3), sum.Confirmed)
	assert.Equal(t, int64(1), sum.Pending)
	assert.Equal(t, int64(2), sum.UniqueDonors)
	assert.Equal(t, "13.5000001", sum.TotalAmount.StringFixed(7))
	assert.Equal(t, "3.3750000", sum.AverageAmount.StringFixed(7))
	assert.Equal(t, "10.0000000", sum.LargestAmount.StringFixed(7))
	assert.Equal(t, "12.5000000", sum.ByRecipient["GR1"].StringFixed(7))
	assert.Equal(t, "1.0000001", sum.ByRecipient["GR2"].StringFixed(7))
	assert.Equal(t, time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC), *sum.FirstDonation)
	assert.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), *sum.LatestDonation)
}

func TestReportingService_Summary_Empty(t *testing.T) {
	svc := setupReporting(t, nil)

	sum, err := svc.Summary(context.Background(), ports.StatsWindow{})
	require.NoError(t, err)
	assert.Zero(t, sum.Count)
	assert.True(t, sum.AverageAmount.IsZero())
	assert.Nil(t, sum.FirstDonation)
	assert.Empty(t, sum.ByRecipient)
}

func TestReportingService_Daily(t *testing.T) {
	svc := setupReporting(t, reportingFixture())

	buckets, err := svc.Daily(context.Background(), ports.StatsWindow{})
	require.NoError(t, err)
	require.Len(t, buckets, 3)

	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), buckets[0].Start)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), buckets[0].End)
	assert.Equal(t, int64(2), buckets[0].Count)
	assert.Equal(t, "12.5000000", buckets[0].TotalAmount.StringFixed(7))

	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), buckets[1].Start)
	assert.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), buckets[2].Start)
	assert.Equal(t, int64(1), buckets[2].Count, "failed donations are excluded")
}

func TestReportingService_Weekly(t *testing.T) {
	svc := setupReporting(t, reportingFixture())

	buckets, err := svc.Weekly(context.Background(), ports.StatsWindow{})
	require.NoError(t, err)
	require.Len(t, buckets, 2)

	// Sunday the 15th belongs to the week starting Monday the 9th.
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), buckets[0].Start)
	assert.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), buckets[0].End)
	assert.Equal(t, int64(3), buckets[0].Count)
	assert.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), buckets[1].Start)
	assert.Equal(t, int64(1), buckets[1].Count)
}

func TestReportingService_WindowValidation(t *testing.T) {
	svc := setupReporting(t, nil)
	from := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	to := from.Add(-time.Hour)

	_, err := svc.Summary(context.Background(), ports.StatsWindow{From: &from, To: &to})
	assertAppError(t, err, "VAL_001")
}

func TestReportingService_PassesWindowToStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockDonationRepository(ctrl)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	repo.EXPECT().List(gomock.Any(), ports.DonationListParams{From: &from, To: &to}).
		Return(nil, int64(0), errors.New("io"))

	_, err := NewReportingService(repo).Daily(context.Background(), ports.StatsWindow{From: &from, To: &to})
	assertAppError(t, err, "SYS_003")
}
