package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"stellar-micro-donation/internal/core/domain"
	"stellar-micro-donation/internal/core/ports"
	"stellar-micro-donation/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CtxResourceID lets a handler name the resource it created so the audit
// entry can reference it.
const CtxResourceID = "audit_resource_id"

// AuditLog creates an audit middleware that logs successful write operations.
// Actions are resolved from the matched route pattern.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only audit successful write operations (status 2xx)
		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}

		action, resourceType := mapRouteToAction(c.FullPath(), c.Request.Method)
		if action == "" {
			return
		}

		resourceID := c.GetString(CtxResourceID)
		if resourceID == "" {
			resourceID = c.Param("id")
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			RequestID:    c.GetString(response.RequestIDKey),
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   resourceID,
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now().UTC(),
		})
	}
}

func mapRouteToAction(route, method string) (domain.AuditAction, string) {
	switch {
	case route == "/api/v1/donations" && method == http.MethodPost:
		return domain.AuditActionDonationCreate, "donation"
	case route == "/api/v1/donations/:id/status" && method == http.MethodPatch:
		return domain.AuditActionDonationStatus, "donation"
	case route == "/api/v1/wallets" && method == http.MethodPost:
		return domain.AuditActionWalletCreate, "wallet"
	case route == "/api/v1/wallets/:id/activate" && method == http.MethodPut:
		return domain.AuditActionWalletActivate, "wallet"
	case route == "/api/v1/wallets/:id/deactivate" && method == http.MethodPut:
		return domain.AuditActionWalletDeactivate, "wallet"
	case route == "/api/v1/wallets/:id/fund" && method == http.MethodPost:
		return domain.AuditActionWalletFund, "wallet"
	case route == "/api/v1/ledger/accounts" && method == http.MethodPost:
		return domain.AuditActionAccountCreate, "account"
	case route == "/api/v1/ledger/accounts/:id/fund" && method == http.MethodPost:
		return domain.AuditActionAccountFund, "account"
	case route == "/api/v1/ledger/transfers" && method == http.MethodPost:
		return domain.AuditActionTransfer, "transaction"
	}
	return "", ""
}
