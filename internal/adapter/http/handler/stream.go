package handler

import (
	"errors"
	"io"
	"time"

	"stellar-micro-donation/internal/adapter/http/dto"
	"stellar-micro-donation/internal/core/domain"
	"stellar-micro-donation/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	streamBuffer    = 32
	streamKeepAlive = 15 * time.Second
)

var errStreamLagging = errors.New("stream client is not keeping up")

// subscribeFunc registers a handler and returns its unsubscribe function.
type subscribeFunc func(handler domain.TransactionHandler) (func(), error)

// streamTransactions serves committed transactions as Server-Sent Events
// until the client disconnects. A "ready" event is sent once the
// subscription is live. Slow clients drop events rather than stall the
// ledger.
func streamTransactions(c *gin.Context, account string, subscribe subscribeFunc) {
	events := make(chan domain.LedgerTransaction, streamBuffer)
	unsubscribe, err := subscribe(func(tx domain.LedgerTransaction) error {
		select {
		case events <- tx:
			return nil
		default:
			return errStreamLagging
		}
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", gin.H{"account": account})
	c.Writer.Flush()

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()
	ctx := c.Request.Context()

	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case tx := <-events:
			c.SSEvent("transaction", dto.FromLedgerTransaction(tx))
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", gin.H{"time": time.Now().UTC().Format(time.RFC3339)})
			return true
		}
	})
}
