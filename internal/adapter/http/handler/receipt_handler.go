package handler

import (
	"stellar-micro-donation/internal/adapter/http/dto"
	"stellar-micro-donation/internal/core/ports"
	"stellar-micro-donation/pkg/response"

	"github.com/gin-gonic/gin"
)

// ReceiptHandler verifies donation receipts.
type ReceiptHandler struct {
	receiptSvc ports.ReceiptService
}

// NewReceiptHandler creates a new ReceiptHandler.
func NewReceiptHandler(receiptSvc ports.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{receiptSvc: receiptSvc}
}

// Verify handles POST /api/v1/receipts/verify.
func (h *ReceiptHandler) Verify(c *gin.Context) {
	var req dto.VerifyReceiptRequest
	if !bindJSON(c, &req) {
		return
	}
	claims, err := h.receiptSvc.Verify(req.Token)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{
		"valid":  true,
		"claims": dto.FromReceiptClaims(*claims),
	})
}
