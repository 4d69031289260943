package handler

import (
	"stellar-micro-donation/internal/adapter/http/middleware"
	redisStore "stellar-micro-donation/internal/adapter/storage/redis"
	"stellar-micro-donation/internal/core/ports"
	"stellar-micro-donation/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	DonationSvc    ports.DonationService
	WalletSvc      ports.WalletService
	ReportingSvc   ports.ReportingService
	ReceiptSvc     ports.ReceiptService // nil = receipts disabled
	Ledger         ports.Ledger
	Network        string
	History        HistoryLimits
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	Mode           string             // gin mode, defaults to release
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Mode == "" {
		deps.Mode = gin.ReleaseMode
	}
	gin.SetMode(deps.Mode)
	if deps.History.Default <= 0 {
		deps.History.Default = 10
	}
	if deps.History.Max < deps.History.Default {
		deps.History.Max = 100
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(maxBodyBytes))

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.NoRoute(response.RouteNotFound)

	r.GET("/health", HealthCheck(deps.Network, deps.Ledger, deps.HealthCheckers...))

	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	donationHandler := NewDonationHandler(deps.DonationSvc, deps.ReceiptSvc)
	donations := v1.Group("/donations")
	{
		donations.POST("", rl("donations_create"), donationHandler.Create)
		donations.GET("", rl("read"), donationHandler.List)
		donations.POST("/verify", rl("read"), donationHandler.Verify)
		donations.GET("/by-transaction/:txId", rl("read"), donationHandler.GetByTransaction)
		donations.GET("/:id", rl("read"), donationHandler.Get)
		donations.PATCH("/:id/status", rl("donations_create"), donationHandler.UpdateStatus)
		if deps.ReceiptSvc != nil {
			donations.GET("/:id/receipt", rl("read"), donationHandler.Receipt)
		}
	}

	walletHandler := NewWalletHandler(deps.WalletSvc, deps.History)
	wallets := v1.Group("/wallets")
	{
		wallets.POST("", rl("wallets_write"), walletHandler.Create)
		wallets.GET("", rl("read"), walletHandler.List)
		wallets.GET("/active", rl("read"), walletHandler.ListActive)
		wallets.GET("/:id", rl("read"), walletHandler.Get)
		wallets.PUT("/:id/activate", rl("wallets_write"), walletHandler.Activate)
		wallets.PUT("/:id/deactivate", rl("wallets_write"), walletHandler.Deactivate)
		wallets.GET("/:id/balance", rl("read"), walletHandler.Balance)
		wallets.POST("/:id/fund", rl("faucet"), walletHandler.Fund)
		wallets.GET("/:id/transactions", rl("read"), walletHandler.Transactions)
		wallets.GET("/:id/stream", walletHandler.Stream)
	}

	ledgerHandler := NewLedgerHandler(deps.Ledger, deps.History)
	ledger := v1.Group("/ledger")
	{
		ledger.POST("/accounts", rl("ledger_write"), ledgerHandler.CreateAccount)
		ledger.GET("/accounts/:id/balance", rl("read"), ledgerHandler.Balance)
		ledger.POST("/accounts/:id/fund", rl("faucet"), ledgerHandler.Fund)
		ledger.GET("/accounts/:id/funded", rl("read"), ledgerHandler.Funded)
		ledger.GET("/accounts/:id/transactions", rl("read"), ledgerHandler.Transactions)
		ledger.GET("/accounts/:id/stream", ledgerHandler.Stream)
		ledger.POST("/transfers", rl("ledger_write"), ledgerHandler.Transfer)
		ledger.GET("/transactions/:id", rl("read"), ledgerHandler.Transaction)
	}

	statsHandler := NewStatsHandler(deps.ReportingSvc)
	stats := v1.Group("/stats")
	{
		stats.GET("/summary", rl("read"), statsHandler.Summary)
		stats.GET("/daily", rl("read"), statsHandler.Daily)
		stats.GET("/weekly", rl("read"), statsHandler.Weekly)
	}

	if deps.ReceiptSvc != nil {
		receiptHandler := NewReceiptHandler(deps.ReceiptSvc)
		v1.POST("/receipts/verify", rl("read"), receiptHandler.Verify)
	}

	return r
}
