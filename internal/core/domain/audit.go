package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionWalletCreate     AuditAction = "WALLET_CREATE"
	AuditActionWalletActivate   AuditAction = "WALLET_ACTIVATE"
	AuditActionWalletDeactivate AuditAction = "WALLET_DEACTIVATE"
	AuditActionWalletFund       AuditAction = "WALLET_FUND"
	AuditActionDonationCreate   AuditAction = "DONATION_CREATE"
	AuditActionDonationStatus   AuditAction = "DONATION_STATUS"
	AuditActionAccountCreate    AuditAction = "ACCOUNT_CREATE"
	AuditActionAccountFund      AuditAction = "ACCOUNT_FUND"
	AuditActionTransfer         AuditAction = "TRANSFER"
)

// AuditLog records a single audited action in the system.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	RequestID    string      `json:"request_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
