package handler

import (
	"strings"

	"stellar-micro-donation/internal/adapter/http/dto"
	"stellar-micro-donation/internal/adapter/http/middleware"
	"stellar-micro-donation/internal/core/domain"
	"stellar-micro-donation/internal/core/ports"
	"stellar-micro-donation/pkg/apperror"
	"stellar-micro-donation/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"

	defaultPageSize = 20
	maxPageSize     = 100
)

// DonationHandler handles donation endpoints.
type DonationHandler struct {
	donationSvc ports.DonationService
	receiptSvc  ports.ReceiptService
}

// NewDonationHandler creates a new DonationHandler. receiptSvc may be nil.
func NewDonationHandler(donationSvc ports.DonationService, receiptSvc ports.ReceiptService) *DonationHandler {
	return &DonationHandler{donationSvc: donationSvc, receiptSvc: receiptSvc}
}

// Create handles POST /api/v1/donations.
// A replayed idempotency key answers 200 with the original record.
func (h *DonationHandler) Create(c *gin.Context) {
	var req dto.CreateDonationRequest
	if !bindJSON(c, &req) {
		return
	}

	key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
	if key == "" {
		key = req.IdempotencyKey
	} else if len(key) > 255 {
		response.Error(c, apperror.Validation("Idempotency-Key must be at most 255 characters"))
		return
	}

	d, replayed, err := h.donationSvc.Create(c.Request.Context(), ports.CreateDonationRequest{
		Amount:         req.Amount,
		Donor:          req.Donor,
		Recipient:      req.Recipient,
		Memo:           req.Memo,
		IdempotencyKey: key,
		SourceSecret:   req.SourceSecret,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if replayed {
		c.Header(HeaderReplayed, "true")
		response.OK(c, dto.FromDonation(d))
		return
	}
	c.Set(middleware.CtxResourceID, d.ID)
	response.Created(c, dto.FromDonation(d))
}

// List handles GET /api/v1/donations.
func (h *DonationHandler) List(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultPageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		response.Error(c, err)
		return
	}
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	window, err := parseWindow(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	params := ports.DonationListParams{
		From:   window.From,
		To:     window.To,
		Limit:  limit,
		Offset: offset,
	}
	if raw := c.Query("status"); raw != "" {
		status, ok := domain.ParseDonationStatus(raw)
		if !ok {
			response.Error(c, apperror.Validation("status must be one of pending, confirmed, failed"))
			return
		}
		params.Status = &status
	}

	list, total, err := h.donationSvc.List(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.DonationListResponse{
		Items:   dto.FromDonations(list),
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(list)) < total,
	})
}

// Get handles GET /api/v1/donations/:id.
func (h *DonationHandler) Get(c *gin.Context) {
	d, err := h.donationSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromDonation(d))
}

// GetByTransaction handles GET /api/v1/donations/by-transaction/:txId.
func (h *DonationHandler) GetByTransaction(c *gin.Context) {
	d, err := h.donationSvc.GetByTransaction(c.Request.Context(), c.Param("txId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromDonation(d))
}

// UpdateStatus handles PATCH /api/v1/donations/:id/status.
func (h *DonationHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateDonationStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	status, _ := domain.ParseDonationStatus(req.Status)

	d, err := h.donationSvc.UpdateStatus(c.Request.Context(), c.Param("id"), status, domain.DonationStatusUpdate{
		TransactionID: req.TransactionID,
		Ledger:        req.Ledger,
		Reason:        req.Reason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromDonation(d))
}

// Verify handles POST /api/v1/donations/verify.
func (h *DonationHandler) Verify(c *gin.Context) {
	var req dto.VerifyDonationRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.donationSvc.Verify(c.Request.Context(), req.TransactionHash)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromVerification(res))
}

// Receipt handles GET /api/v1/donations/:id/receipt.
func (h *DonationHandler) Receipt(c *gin.Context) {
	if h.receiptSvc == nil {
		response.RouteNotFound(c)
		return
	}
	receipt, err := h.receiptSvc.Issue(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromReceipt(receipt))
}
