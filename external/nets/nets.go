package nets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"HBMartAPI/internal/payments"
)

// Client is the QR-poll ("NETS-like") sandbox integration: it requests a QR
// payload for an amount and polls a status-check endpoint keyed by the txn
// retrieval ref.
type Client struct {
	apiBase    string
	apiKey     string
	projectID  string
	txnID      string
	appBaseURL string
	http       *http.Client
	sessions   *payments.SessionStore
}

// SetSessionStore makes CreatePayment reuse cached QR sessions instead of
// requesting a fresh one per call. Set after constructing the store, which
// itself wraps this client.
func (c *Client) SetSessionStore(s *payments.SessionStore) { c.sessions = s }

func NewClient() (*Client, error) {
	apiKey := firstEnv("NETS_API_KEY", "API_KEY")
	if apiKey == "" {
		return nil, &payments.ConfigError{Missing: "NETS_API_KEY"}
	}
	projectID := firstEnv("NETS_PROJECT_ID", "PROJECT_ID")
	if projectID == "" {
		return nil, &payments.ConfigError{Missing: "NETS_PROJECT_ID"}
	}
	txnID := strings.TrimSpace(os.Getenv("NETS_TXN_ID"))
	if txnID == "" {
		return nil, &payments.ConfigError{Missing: "NETS_TXN_ID"}
	}

	apiBase := strings.TrimSpace(os.Getenv("NETS_API_BASE"))
	if apiBase == "" {
		apiBase = "https://sandbox.nets.openapipaas.com"
	}

	return &Client{
		apiBase:    strings.TrimRight(apiBase, "/"),
		apiKey:     apiKey,
		projectID:  projectID,
		txnID:      txnID,
		appBaseURL: strings.TrimRight(os.Getenv("APP_BASE_URL"), "/"),
		http:       &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(os.Getenv(n)); v != "" {
			return v
		}
	}
	return ""
}

type qrData struct {
	ResponseCode    string      `json:"response_code"`
	TxnStatus       json.Number `json:"txn_status"`
	ActionCode      string      `json:"action_code"`
	ErrorMessage    string      `json:"error_message"`
	QRCode          string      `json:"qr_code"`
	TxnRetrievalRef string      `json:"txn_retrieval_ref"`
}

type qrEnvelope struct {
	Result struct {
		Data *qrData `json:"data"`
	} `json:"result"`
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) (*qrData, error) {
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("project-id", c.projectID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &payments.ProviderError{Provider: "nets", Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &payments.ProviderError{
			Provider: "nets",
			Message:  fmt.Sprintf("HTTP %d: %s", resp.StatusCode, truncate(string(raw), 300)),
		}
	}

	var envelope qrEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Result.Data == nil {
		return nil, &payments.ProviderError{Provider: "nets", Message: "invalid response: " + truncate(string(raw), 300)}
	}
	return envelope.Result.Data, nil
}

func succeeded(d *qrData) bool {
	status, _ := d.TxnStatus.Int64()
	return d.ResponseCode == "00" && status == 1
}

// RequestQR asks the gateway for a fresh QR payload. Callers should go
// through payments.SessionStore, which dedups per correlation token.
func (c *Client) RequestQR(ctx context.Context, outTradeNo string, amount decimal.Decimal) (*payments.Session, error) {
	data, err := c.post(ctx, "/api/v1/common/payments/nets-qr/request", map[string]interface{}{
		"txn_id":         c.txnID,
		"amt_in_dollars": payments.FormatAmount(amount),
		"notify_mobile":  0,
	})
	if err != nil {
		return nil, err
	}

	if !succeeded(data) || data.QRCode == "" || data.TxnRetrievalRef == "" {
		msg := data.ErrorMessage
		if msg == "" {
			msg = "failed to generate NETS QR code"
		}
		return nil, &payments.ProviderError{Provider: "nets", Message: msg}
	}

	return &payments.Session{
		OutTradeNo:      outTradeNo,
		TxnRetrievalRef: data.TxnRetrievalRef,
		QRCodeBase64:    data.QRCode,
		CreatedAt:       time.Now(),
	}, nil
}

// CreatePayment requests a QR session and returns the local QR page plus the
// SSE status stream URL for that session.
func (c *Client) CreatePayment(ctx context.Context, req payments.CreateRequest) (*payments.CreateResult, error) {
	var (
		sess *payments.Session
		err  error
	)
	if c.sessions != nil {
		sess, err = c.sessions.GetOrCreate(ctx, req.OutTradeNo, req.Amount)
	} else {
		sess, err = c.RequestQR(ctx, req.OutTradeNo, req.Amount)
	}
	if err != nil {
		return nil, err
	}

	token := url.QueryEscape(req.OutTradeNo)
	return &payments.CreateResult{
		OutTradeNo:  req.OutTradeNo,
		URL:         fmt.Sprintf("%s/api/nets/qr?out_trade_no=%s", c.appBaseURL, token),
		ProviderRef: sess.TxnRetrievalRef,
		SSEURL: fmt.Sprintf("%s/api/nets/sse/payment-status/%s?out_trade_no=%s",
			c.appBaseURL, url.PathEscape(sess.TxnRetrievalRef), token),
	}, nil
}

// QueryPayment checks the transaction keyed by the txn retrieval ref. The
// frontend timeout flag is always 0 for server-side polling.
func (c *Client) QueryPayment(ctx context.Context, providerRef string) payments.QueryResult {
	data, err := c.post(ctx, "/api/v1/common/payments/nets-qr/query", map[string]interface{}{
		"txn_retrieval_ref":       providerRef,
		"frontend_timeout_status": 0,
	})
	if err != nil {
		return payments.QueryResult{Err: err}
	}

	status, _ := data.TxnStatus.Int64()
	raw := fmt.Sprintf("response_code=%s txn_status=%d", data.ResponseCode, status)
	if data.ActionCode != "" {
		raw += " action_code=" + data.ActionCode
	}

	return payments.QueryResult{
		Paid:          succeeded(data),
		RawStatus:     raw,
		ProviderTxnID: providerRef,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var _ payments.Provider = (*Client)(nil)
