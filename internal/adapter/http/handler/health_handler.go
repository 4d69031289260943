package handler

import (
	"net/http"
	"time"

	"stellar-micro-donation/internal/core/ports"

	"github.com/gin-gonic/gin"
)

// HealthCheck creates a health endpoint that pings every dependency and
// reports the ledger network and simulator counters.
func HealthCheck(network string, ledger ports.Ledger, checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus)
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
				allHealthy = false
			} else {
				deps[checker.Name()] = depStatus{Status: "healthy"}
			}
		}

		status := "healthy"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		body := gin.H{
			"status":       status,
			"timestamp":    time.Now().UTC().Format(time.RFC3339),
			"network":      network,
			"dependencies": deps,
		}
		if ledger != nil {
			body["ledger"] = ledger.Stats()
		}
		c.JSON(httpCode, body)
	}
}
