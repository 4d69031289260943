package handler_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stellar-micro-donation/internal/adapter/http/handler"
	"stellar-micro-donation/internal/adapter/ledger/simulator"
	"stellar-micro-donation/internal/adapter/storage/jsonfile"
	"stellar-micro-donation/internal/core/ports"
	"stellar-micro-donation/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiEnvelope struct {
	Data      json.RawMessage `json:"data"`
	Count     *int            `json:"count"`
	ErrorCode string          `json:"error_code"`
	RequestID string          `json:"request_id"`
}

type app struct {
	t      *testing.T
	router *gin.Engine
}

func newApp(t *testing.T) *app {
	t.Helper()
	log := zerolog.Nop()

	sim := simulator.New(simulator.Options{Logger: log})
	ledger := simulator.NewClient(sim)
	store, err := jsonfile.Open(t.TempDir(), log)
	require.NoError(t, err)

	router := handler.SetupRouter(handler.RouterDeps{
		DonationSvc:  service.NewDonationService(store.Donations, nil, ledger, log),
		WalletSvc:    service.NewWalletService(store.Wallets, ledger, log),
		ReportingSvc: service.NewReportingService(store.Donations),
		ReceiptSvc:   service.NewJWTReceiptService(store.Donations, "integration-secret", time.Hour, "stellar-micro-donation"),
		Ledger:       ledger,
		Network:      "testnet",
		History:      handler.HistoryLimits{Default: 10, Max: 50},
		HealthCheckers: []ports.HealthChecker{
			simulator.NewHealthCheck(sim),
			jsonfile.NewHealthCheck(store),
		},
		Mode:   gin.TestMode,
		Logger: log,
	})
	return &app{t: t, router: router}
}

func (a *app) call(method, path string, body interface{}, out interface{}, headers ...string) (*httptest.ResponseRecorder, apiEnvelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env apiEnvelope
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	if out != nil && len(env.Data) > 0 {
		require.NoError(a.t, json.Unmarshal(env.Data, out))
	}
	return w, env
}

type createdWallet struct {
	Wallet struct {
		ID      string `json:"id"`
		Address string `json:"address"`
	} `json:"wallet"`
	SecretKey string `json:"secret_key"`
	Balance   struct {
		Balance string `json:"balance"`
	} `json:"balance"`
}

type donation struct {
	ID            string  `json:"id"`
	Amount        string  `json:"amount"`
	Donor         string  `json:"donor"`
	Status        string  `json:"status"`
	StellarTxID   *string `json:"stellar_tx_id"`
	FailureReason string  `json:"failure_reason"`
}

func (a *app) provisionWallet(label string) createdWallet {
	a.t.Helper()
	var w createdWallet
	rec, _ := a.call(http.MethodPost, "/api/v1/wallets", map[string]interface{}{"label": label, "fund": true}, &w)
	require.Equal(a.t, http.StatusCreated, rec.Code)
	require.NotEmpty(a.t, w.SecretKey)
	return w
}

func TestRouter_DonationLifecycle(t *testing.T) {
	a := newApp(t)
	donor := a.provisionWallet("donor")
	charity := a.provisionWallet("charity")
	assert.Equal(t, "10000.0000000", donor.Balance.Balance)

	body := map[string]string{
		"amount":        "2.5",
		"donor":         "alice",
		"recipient":     charity.Wallet.Address,
		"memo":          "school books",
		"source_secret": donor.SecretKey,
	}

	var d donation
	rec, _ := a.call(http.MethodPost, "/api/v1/donations", body, &d, handler.HeaderIdempotencyKey, "order-1")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "confirmed", d.Status)
	assert.Equal(t, "2.5000000", d.Amount)
	require.NotNil(t, d.StellarTxID)

	// Same key: same record, no second transfer.
	var replay donation
	rec, _ = a.call(http.MethodPost, "/api/v1/donations", body, &replay, handler.HeaderIdempotencyKey, "order-1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true", rec.Header().Get(handler.HeaderReplayed))
	assert.Equal(t, d.ID, replay.ID)

	var bal struct {
		Balance string `json:"balance"`
	}
	a.call(http.MethodGet, "/api/v1/wallets/"+charity.Wallet.ID+"/balance", nil, &bal)
	assert.Equal(t, "10002.5000000", bal.Balance)
	a.call(http.MethodGet, "/api/v1/wallets/"+donor.Wallet.ID+"/balance", nil, &bal)
	assert.Equal(t, "9997.5000000", bal.Balance)

	var verification struct {
		Verified bool     `json:"verified"`
		Donation donation `json:"donation"`
	}
	rec, _ = a.call(http.MethodPost, "/api/v1/donations/verify", map[string]string{"transaction_hash": *d.StellarTxID}, &verification)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, verification.Verified)
	assert.Equal(t, d.ID, verification.Donation.ID)

	var byTx donation
	rec, _ = a.call(http.MethodGet, "/api/v1/donations/by-transaction/"+*d.StellarTxID, nil, &byTx)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, d.ID, byTx.ID)

	var history []struct {
		ID string `json:"id"`
	}
	_, env := a.call(http.MethodGet, "/api/v1/wallets/"+donor.Wallet.ID+"/transactions", nil, &history)
	require.NotNil(t, env.Count)
	assert.Equal(t, 1, *env.Count)
	assert.Equal(t, *d.StellarTxID, history[0].ID)

	var summary struct {
		TotalAmount  string `json:"total_amount"`
		Count        int64  `json:"count"`
		UniqueDonors int64  `json:"unique_donors"`
	}
	a.call(http.MethodGet, "/api/v1/stats/summary", nil, &summary)
	assert.Equal(t, "2.5000000", summary.TotalAmount)
	assert.Equal(t, int64(1), summary.Count)
	assert.Equal(t, int64(1), summary.UniqueDonors)

	var receipt struct {
		Token string `json:"token"`
	}
	rec, _ = a.call(http.MethodGet, "/api/v1/donations/"+d.ID+"/receipt", nil, &receipt)
	require.Equal(t, http.StatusOK, rec.Code)

	var verified struct {
		Valid  bool `json:"valid"`
		Claims struct {
			DonationID string `json:"donation_id"`
			Amount     string `json:"amount"`
		} `json:"claims"`
	}
	rec, _ = a.call(http.MethodPost, "/api/v1/receipts/verify", map[string]string{"token": receipt.Token}, &verified)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, verified.Valid)
	assert.Equal(t, d.ID, verified.Claims.DonationID)
	assert.Equal(t, "2.5000000", verified.Claims.Amount)
}

func TestRouter_RejectedSettlementIsRecordedAsFailed(t *testing.T) {
	a := newApp(t)
	donor := a.provisionWallet("donor")

	var keys struct {
		PublicKey string `json:"public_key"`
	}
	rec, _ := a.call(http.MethodPost, "/api/v1/ledger/accounts", nil, &keys)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := a.call(http.MethodPost, "/api/v1/donations", map[string]string{
		"amount":        "1",
		"recipient":     keys.PublicKey,
		"source_secret": donor.SecretKey,
	}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "LED_003", env.ErrorCode)

	var page struct {
		Items []donation `json:"items"`
		Total int64      `json:"total"`
	}
	a.call(http.MethodGet, "/api/v1/donations?status=failed", nil, &page)
	require.Equal(t, int64(1), page.Total)
	assert.Equal(t, "Anonymous", page.Items[0].Donor)
	assert.Equal(t, "Destination account is not funded", page.Items[0].FailureReason)

	// Failed donations cannot be receipted.
	rec, env = a.call(http.MethodGet, "/api/v1/donations/"+page.Items[0].ID+"/receipt", nil, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "RCP_002", env.ErrorCode)

	var bal struct {
		Balance string `json:"balance"`
	}
	a.call(http.MethodGet, "/api/v1/ledger/accounts/"+keys.PublicKey+"/balance", nil, &bal)
	assert.Equal(t, "0.0000000", bal.Balance)
}

func TestRouter_RecordOnlyDonationAndStatusUpdate(t *testing.T) {
	a := newApp(t)

	var d donation
	rec, _ := a.call(http.MethodPost, "/api/v1/donations", map[string]string{
		"amount": "0.12345678", "donor": "bob", "recipient": "GSOMEWHERE",
	}, &d)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "pending", d.Status)
	assert.Equal(t, "0.1234568", d.Amount)

	rec, _ = a.call(http.MethodPatch, "/api/v1/donations/"+d.ID+"/status", map[string]string{"status": "confirmed", "transaction_id": "mock_external"}, &d)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "confirmed", d.Status)

	rec, env := a.call(http.MethodPatch, "/api/v1/donations/"+d.ID+"/status", map[string]string{"status": "failed"}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "RES_003", env.ErrorCode)
}

func TestRouter_WalletActivation(t *testing.T) {
	a := newApp(t)
	w := a.provisionWallet("shelter")

	rec, env := a.call(http.MethodPost, "/api/v1/wallets", map[string]string{"address": w.Wallet.Address}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "RES_002", env.ErrorCode)

	a.call(http.MethodPut, "/api/v1/wallets/"+w.Wallet.ID+"/deactivate", nil, nil)

	var active []struct {
		ID string `json:"id"`
	}
	_, env = a.call(http.MethodGet, "/api/v1/wallets/active", nil, &active)
	assert.Equal(t, 0, *env.Count)

	_, env = a.call(http.MethodGet, "/api/v1/wallets", nil, nil)
	assert.Equal(t, 1, *env.Count)
}

func TestRouter_NotFoundAndHealth(t *testing.T) {
	a := newApp(t)

	rec, env := a.call(http.MethodGet, "/api/v1/unknown", nil, nil, "X-Request-ID", "trace-123")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "RES_404", env.ErrorCode)
	assert.Equal(t, "trace-123", env.RequestID)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var health struct {
		Status       string                       `json:"status"`
		Dependencies map[string]map[string]string `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Contains(t, health.Dependencies, "ledger")
	assert.Contains(t, health.Dependencies, "datastore")
}

func TestRouter_LedgerStream(t *testing.T) {
	a := newApp(t)
	donor := a.provisionWallet("donor")
	charity := a.provisionWallet("charity")

	srv := httptest.NewServer(a.router)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/ledger/accounts/"+charity.Wallet.Address+"/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	event, _ := readEvent(t, reader)
	require.Equal(t, "ready", event)

	var transfer struct {
		TransactionID string `json:"transaction_id"`
	}
	rec, _ := a.call(http.MethodPost, "/api/v1/ledger/transfers", map[string]string{
		"source_secret": donor.SecretKey,
		"destination":   charity.Wallet.Address,
		"amount":        "7",
	}, &transfer)
	require.Equal(t, http.StatusCreated, rec.Code)

	event, data := readEvent(t, reader)
	require.Equal(t, "transaction", event)
	var tx struct {
		ID     string `json:"id"`
		Amount string `json:"amount"`
	}
	require.NoError(t, json.Unmarshal([]byte(data), &tx))
	assert.Equal(t, transfer.TransactionID, tx.ID)
	assert.Equal(t, "7.0000000", tx.Amount)
}

func TestRouter_LedgerStreamWithEncodedKeySeesNoOtherTransfers(t *testing.T) {
	a := newApp(t)
	donor := a.provisionWallet("donor")
	charity := a.provisionWallet("charity")

	srv := httptest.NewServer(a.router)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/ledger/accounts/%00all/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	event, _ := readEvent(t, reader)
	require.Equal(t, "ready", event)

	rec, _ := a.call(http.MethodPost, "/api/v1/ledger/transfers", map[string]string{
		"source_secret": donor.SecretKey,
		"destination":   charity.Wallet.Address,
		"amount":        "7",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	time.AfterFunc(200*time.Millisecond, cancel)
	rest, _ := io.ReadAll(reader)
	assert.NotContains(t, string(rest), "event:transaction")
	assert.NotContains(t, string(rest), donor.Wallet.Address)
}

// readEvent returns the name and data of the next SSE event.
func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var name, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\r\n")
		switch {
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case line == "" && name != "":
			return name, data
		}
	}
}
