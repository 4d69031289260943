package handler

import (
	"stellar-micro-donation/internal/adapter/http/dto"
	"stellar-micro-donation/internal/adapter/http/middleware"
	"stellar-micro-donation/internal/core/domain"
	"stellar-micro-donation/internal/core/ports"
	"stellar-micro-donation/pkg/response"

	"github.com/gin-gonic/gin"
)

// HistoryLimits clamps the ?limit= of history queries.
type HistoryLimits struct {
	Default int
	Max     int
}

func (l HistoryLimits) fromQuery(c *gin.Context) (int, error) {
	limit, err := queryInt(c, "limit", l.Default)
	if err != nil {
		return 0, err
	}
	if limit < 1 {
		limit = 1
	}
	if limit > l.Max {
		limit = l.Max
	}
	return limit, nil
}

// LedgerHandler exposes the ledger operations directly.
type LedgerHandler struct {
	ledger  ports.Ledger
	history HistoryLimits
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledger ports.Ledger, history HistoryLimits) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, history: history}
}

// CreateAccount handles POST /api/v1/ledger/accounts.
func (h *LedgerHandler) CreateAccount(c *gin.Context) {
	keys, err := h.ledger.CreateAccount(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Set(middleware.CtxResourceID, keys.PublicKey)
	response.Created(c, dto.AccountKeysResponse{PublicKey: keys.PublicKey, SecretKey: keys.SecretKey})
}

// Balance handles GET /api/v1/ledger/accounts/:id/balance.
func (h *LedgerHandler) Balance(c *gin.Context) {
	bal, err := h.ledger.GetBalance(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromBalance(bal))
}

// Fund handles POST /api/v1/ledger/accounts/:id/fund.
func (h *LedgerHandler) Fund(c *gin.Context) {
	bal, err := h.ledger.FundAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromBalance(bal))
}

// Funded handles GET /api/v1/ledger/accounts/:id/funded.
func (h *LedgerHandler) Funded(c *gin.Context) {
	status, err := h.ledger.IsFunded(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromFunding(status))
}

// Transfer handles POST /api/v1/ledger/transfers.
func (h *LedgerHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.ledger.Transfer(c.Request.Context(), domain.TransferRequest{
		SourceSecret: req.SourceSecret,
		Destination:  req.Destination,
		Amount:       req.Amount,
		Memo:         req.Memo,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Set(middleware.CtxResourceID, res.TransactionID)
	response.Created(c, dto.FromTransfer(res))
}

// Transactions handles GET /api/v1/ledger/accounts/:id/transactions.
func (h *LedgerHandler) Transactions(c *gin.Context) {
	limit, err := h.history.fromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	txs, err := h.ledger.History(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, dto.FromLedgerTransactions(txs), len(txs))
}

// Transaction handles GET /api/v1/ledger/transactions/:id.
func (h *LedgerHandler) Transaction(c *gin.Context) {
	v, err := h.ledger.VerifyTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromVerification(&ports.VerificationResult{TransactionVerification: *v}))
}

// Stream handles GET /api/v1/ledger/accounts/:id/stream. Unknown accounts
// may be watched; events start once the account transacts.
func (h *LedgerHandler) Stream(c *gin.Context) {
	account := c.Param("id")
	streamTransactions(c, account, func(handler domain.TransactionHandler) (func(), error) {
		return h.ledger.Subscribe(account, handler), nil
	})
}
