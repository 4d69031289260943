package handler

import (
	"stellar-micro-donation/internal/adapter/http/dto"
	"stellar-micro-donation/internal/adapter/http/middleware"
	"stellar-micro-donation/internal/core/domain"
	"stellar-micro-donation/internal/core/ports"
	"stellar-micro-donation/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles wallet endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
	history   HistoryLimits
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService, history HistoryLimits) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc, history: history}
}

// Create handles POST /api/v1/wallets.
func (h *WalletHandler) Create(c *gin.Context) {
	var req dto.CreateWalletRequest
	if !bindJSON(c, &req) {
		return
	}

	out, err := h.walletSvc.Create(c.Request.Context(), ports.CreateWalletRequest{
		Address:   req.Address,
		Label:     req.Label,
		OwnerName: req.OwnerName,
		Fund:      req.Fund,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.CreatedWalletResponse{
		Wallet:    dto.FromWallet(out.Wallet),
		SecretKey: out.SecretKey,
	}
	if out.Balance != nil {
		bal := dto.FromBalance(out.Balance)
		resp.Balance = &bal
	}
	c.Set(middleware.CtxResourceID, out.Wallet.ID)
	response.Created(c, resp)
}

// List handles GET /api/v1/wallets.
func (h *WalletHandler) List(c *gin.Context) {
	h.list(c, false)
}

// ListActive handles GET /api/v1/wallets/active.
func (h *WalletHandler) ListActive(c *gin.Context) {
	h.list(c, true)
}

func (h *WalletHandler) list(c *gin.Context, activeOnly bool) {
	wallets, err := h.walletSvc.List(c.Request.Context(), activeOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, dto.FromWallets(wallets), len(wallets))
}

// Get handles GET /api/v1/wallets/:id.
func (h *WalletHandler) Get(c *gin.Context) {
	w, err := h.walletSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromWallet(w))
}

// Activate handles PUT /api/v1/wallets/:id/activate.
func (h *WalletHandler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

// Deactivate handles PUT /api/v1/wallets/:id/deactivate.
func (h *WalletHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

func (h *WalletHandler) setActive(c *gin.Context, active bool) {
	w, err := h.walletSvc.SetActive(c.Request.Context(), c.Param("id"), active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromWallet(w))
}

// Balance handles GET /api/v1/wallets/:id/balance.
func (h *WalletHandler) Balance(c *gin.Context) {
	bal, err := h.walletSvc.Balance(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromBalance(bal))
}

// Fund handles POST /api/v1/wallets/:id/fund.
func (h *WalletHandler) Fund(c *gin.Context) {
	bal, err := h.walletSvc.Fund(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromBalance(bal))
}

// Transactions handles GET /api/v1/wallets/:id/transactions.
func (h *WalletHandler) Transactions(c *gin.Context) {
	limit, err := h.history.fromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	txs, err := h.walletSvc.History(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, dto.FromLedgerTransactions(txs), len(txs))
}

// Stream handles GET /api/v1/wallets/:id/stream.
func (h *WalletHandler) Stream(c *gin.Context) {
	id := c.Param("id")
	streamTransactions(c, id, func(handler domain.TransactionHandler) (func(), error) {
		return h.walletSvc.Watch(c.Request.Context(), id, handler)
	})
}
