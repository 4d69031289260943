package handler

import (
	"context"

	"stellar-micro-donation/internal/adapter/http/dto"
	"stellar-micro-donation/internal/core/ports"
	"stellar-micro-donation/pkg/response"

	"github.com/gin-gonic/gin"
)

// StatsHandler serves donation statistics.
type StatsHandler struct {
	reportingSvc ports.ReportingService
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(reportingSvc ports.ReportingService) *StatsHandler {
	return &StatsHandler{reportingSvc: reportingSvc}
}

// Summary handles GET /api/v1/stats/summary.
func (h *StatsHandler) Summary(c *gin.Context) {
	window, err := parseWindow(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	sum, err := h.reportingSvc.Summary(c.Request.Context(), window)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromSummary(sum))
}

// Daily handles GET /api/v1/stats/daily.
func (h *StatsHandler) Daily(c *gin.Context) {
	h.series(c, h.reportingSvc.Daily)
}

// Weekly handles GET /api/v1/stats/weekly.
func (h *StatsHandler) Weekly(c *gin.Context) {
	h.series(c, h.reportingSvc.Weekly)
}

func (h *StatsHandler) series(c *gin.Context, fetch func(ctx context.Context, w ports.StatsWindow) ([]ports.DonationBucket, error)) {
	window, err := parseWindow(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	buckets, err := fetch(c.Request.Context(), window)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, dto.FromBuckets(buckets), len(buckets))
}
