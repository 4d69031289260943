package service

import (
	"context"
	"sort"
	"time"

	"stellar-micro-donation/internal/core/domain"
	"stellar-micro-donation/internal/core/ports"
	"stellar-micro-donation/pkg/apperror"

	"github.com/shopspring/decimal"
)

// ReportingServiceImpl implements ports.ReportingService over the donation
// store. Failed donations are excluded from every figure.
type ReportingServiceImpl struct {
	repo ports.DonationRepository
}

// NewReportingService creates a new reporting service.
func NewReportingService(repo ports.DonationRepository) *ReportingServiceImpl {
	return &ReportingServiceImpl{repo: repo}
}

// Summary aggregates donations inside window. Anonymous donations do not
// count towards unique donors.
func (s *ReportingServiceImpl) Summary(ctx context.Context, window ports.StatsWindow) (*ports.DonationSummary, error) {
	donations, err := s.load(ctx, window)
	if err != nil {
		return nil, err
	}

	sum := &ports.DonationSummary{
		TotalAmount:   decimal.Zero,
		ByRecipient:   make(map[string]decimal.Decimal),
		AverageAmount: decimal.Zero,
		LargestAmount: decimal.Zero,
	}
	donors := make(map[string]struct{})

	for _, d := range donations {
		sum.Count++
		sum.TotalAmount = sum.TotalAmount.Add(d.Amount)
		sum.ByRecipient[d.Recipient] = sum.ByRecipient[d.Recipient].Add(d.Amount)
		if d.Amount.GreaterThan(sum.LargestAmount) {
			sum.LargestAmount = d.Amount
		}
		switch d.Status {
		case domain.DonationStatusConfirmed:
			sum.Confirmed++
		case domain.DonationStatusPending:
			sum.Pending++
		}
		if d.Donor != domain.AnonymousDonor {
			donors[d.Donor] = struct{}{}
		}
		ts := d.Timestamp
		if sum.FirstDonation == nil || ts.Before(*sum.FirstDonation) {
			sum.FirstDonation = &ts
		}
		if sum.LatestDonation == nil || ts.After(*sum.LatestDonation) {
			sum.LatestDonation = &ts
		}
	}

	sum.UniqueDonors = int64(len(donors))
	if sum.Count > 0 {
		sum.AverageAmount = sum.TotalAmount.DivRound(decimal.NewFromInt(sum.Count), domain.AmountScale)
	}
	return sum, nil
}

// Daily buckets donations by UTC calendar day, oldest first. Days without
// donations are omitted.
func (s *ReportingServiceImpl) Daily(ctx context.Context, window ports.StatsWindow) ([]ports.DonationBucket, error) {
	return s.bucket(ctx, window, func(t time.Time) (time.Time, time.Time) {
		start := startOfDay(t)
		return start, start.AddDate(0, 0, 1)
	})
}

// Weekly buckets donations by ISO week (Monday to Sunday, UTC), oldest first.
func (s *ReportingServiceImpl) Weekly(ctx context.Context, window ports.StatsWindow) ([]ports.DonationBucket, error) {
	return s.bucket(ctx, window, func(t time.Time) (time.Time, time.Time) {
		day := startOfDay(t)
		offset := (int(day.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7)
	})
}

func (s *ReportingServiceImpl) bucket(ctx context.Context, window ports.StatsWindow, period func(time.Time) (time.Time, time.Time)) ([]ports.DonationBucket, error) {
	donations, err := s.load(ctx, window)
	if err != nil {
		return nil, err
	}

	byStart := make(map[time.Time]*ports.DonationBucket)
	for _, d := range donations {
		start, end := period(d.Timestamp)
		b, ok := byStart[start]
		if !ok {
			b = &ports.DonationBucket{Start: start, End: end, TotalAmount: decimal.Zero}
			byStart[start] = b
		}
		b.Count++
		b.TotalAmount = b.TotalAmount.Add(d.Amount)
	}

	out := make([]ports.DonationBucket, 0, len(byStart))
	for _, b := range byStart {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (s *ReportingServiceImpl) load(ctx context.Context, window ports.StatsWindow) ([]domain.Donation, error) {
	if window.From != nil && window.To != nil && window.From.After(*window.To) {
		return nil, apperror.Validation("from must not be after to")
	}
	all, _, err := s.repo.List(ctx, ports.DonationListParams{From: window.From, To: window.To})
	if err != nil {
		return nil, apperror.ErrStorage(err)
	}
	out := make([]domain.Donation, 0, len(all))
	for _, d := range all {
		if d.Status != domain.DonationStatusFailed {
			out = append(out, d)
		}
	}
	return out, nil
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
