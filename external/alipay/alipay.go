package alipay

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"HBMartAPI/internal/payments"
)

// Client is the page-pay ("alipay-like") sandbox integration: it signs a
// canonical parameter set with RSA-SHA256 and redirects the browser to the
// gateway; status is read back with a signed server-to-server trade query.
type Client struct {
	gateway    string
	appID      string
	privateKey *rsa.PrivateKey
	subject    string
	appBaseURL string
	factor     decimal.Decimal
	http       *http.Client
}

// NewClient builds the client from environment variables. ALIPAY_AMOUNT_FACTOR
// scales the transmitted amount (sandbox currency quirk); it defaults to 1.
func NewClient() (*Client, error) {
	appID := strings.TrimSpace(os.Getenv("ALIPAY_APP_ID"))
	if appID == "" {
		return nil, &payments.ConfigError{Missing: "ALIPAY_APP_ID"}
	}

	key, err := loadPrivateKey(os.Getenv("ALIPAY_PRIVATE_KEY"))
	if err != nil {
		return nil, err
	}

	gateway := strings.TrimSpace(os.Getenv("ALIPAY_GATEWAY"))
	if gateway == "" {
		gateway = "https://openapi-sandbox.dl.alipaydev.com/gateway.do"
	}

	subject := strings.TrimSpace(os.Getenv("ALIPAY_SUBJECT"))
	if subject == "" {
		subject = "Order Payment"
	}

	factor := decimal.NewFromInt(1)
	if raw := strings.TrimSpace(os.Getenv("ALIPAY_AMOUNT_FACTOR")); raw != "" {
		f, err := decimal.NewFromString(raw)
		if err != nil || f.Sign() <= 0 {
			return nil, fmt.Errorf("invalid ALIPAY_AMOUNT_FACTOR: %q", raw)
		}
		factor = f
	}

	return &Client{
		gateway:    gateway,
		appID:      appID,
		privateKey: key,
		subject:    subject,
		appBaseURL: strings.TrimRight(os.Getenv("APP_BASE_URL"), "/"),
		factor:     factor,
		http:       &http.Client{Timeout: 15 * time.Second},
	}, nil
}

var base64DerRe = regexp.MustCompile(`^[A-Za-z0-9+/=]+$`)

// loadPrivateKey accepts a PEM block (with literal "\n" escapes allowed, the
// usual .env convention) or base64 DER in PKCS8/PKCS1 form.
func loadPrivateKey(raw string) (*rsa.PrivateKey, error) {
	text := strings.TrimSpace(strings.ReplaceAll(raw, `\n`, "\n"))
	if text == "" {
		return nil, &payments.ConfigError{Missing: "ALIPAY_PRIVATE_KEY"}
	}

	var der []byte
	if strings.Contains(text, "-----BEGIN") {
		block, _ := pem.Decode([]byte(text))
		if block == nil {
			return nil, errors.New("invalid ALIPAY_PRIVATE_KEY PEM")
		}
		der = block.Bytes
	} else if len(text) >= 100 && base64DerRe.MatchString(text) {
		b, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return nil, errors.New("invalid ALIPAY_PRIVATE_KEY base64")
		}
		der = b
	} else {
		return nil, errors.New("invalid ALIPAY_PRIVATE_KEY format")
	}

	if k, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		rsaKey, ok := k.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("ALIPAY_PRIVATE_KEY is not an RSA key")
		}
		return rsaKey, nil
	}
	if k, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return k, nil
	}
	return nil, errors.New("ALIPAY_PRIVATE_KEY is not a supported private key")
}

// sign builds the deterministic key-sorted "k=v&..." concatenation of all
// non-empty params and signs it with RSA-SHA256 (sign_type RSA2).
func (c *Client) sign(params map[string]string) (string, error) {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	digest := sha256.Sum256([]byte(strings.Join(parts, "&")))

	sig, err := rsa.SignPKCS1v15(rand.Reader, c.privateKey, crypto.SHA256, digest[:])
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

func (c *Client) baseParams(method string) map[string]string {
	return map[string]string{
		"app_id":    c.appID,
		"method":    method,
		"format":    "JSON",
		"charset":   "utf-8",
		"sign_type": "RSA2",
		"timestamp": time.Now().Format("2006-01-02 15:04:05"),
		"version":   "1.0",
	}
}

// CreatePayment signs a page-pay parameter set and returns the gateway
// redirect URL. Nothing is persisted here; the caller stores the token.
func (c *Client) CreatePayment(ctx context.Context, req payments.CreateRequest) (*payments.CreateResult, error) {
	payable := req.Amount.Mul(c.factor)

	biz, _ := json.Marshal(map[string]string{
		"out_trade_no": req.OutTradeNo,
		"product_code": "FAST_INSTANT_TRADE_PAY",
		"total_amount": payments.FormatAmount(payable),
		"subject":      fmt.Sprintf("%s #%d", c.subject, req.PayableID),
	})

	params := c.baseParams("alipay.trade.page.pay")
	params["biz_content"] = string(biz)
	if c.appBaseURL != "" {
		params["return_url"] = fmt.Sprintf("%s/api/orders/%d/pay/finish", c.appBaseURL, req.PayableID)
	}

	sig, err := c.sign(params)
	if err != nil {
		return nil, &payments.ProviderError{Provider: "alipay", Message: "sign failed", Cause: err}
	}
	params["sign"] = sig

	values := url.Values{}
	for k, v := range params {
		if v != "" {
			values.Set(k, v)
		}
	}

	return &payments.CreateResult{
		OutTradeNo: req.OutTradeNo,
		URL:        c.gateway + "?" + values.Encode(),
	}, nil
}

type tradeQueryEnvelope struct {
	Response struct {
		Code        string `json:"code"`
		Msg         string `json:"msg"`
		TradeStatus string `json:"trade_status"`
		TradeNo     string `json:"trade_no"`
	} `json:"alipay_trade_query_response"`
}

// QueryPayment performs a signed alipay.trade.query call. The providerRef for
// this variant is the out_trade_no itself.
func (c *Client) QueryPayment(ctx context.Context, providerRef string) payments.QueryResult {
	biz, _ := json.Marshal(map[string]string{"out_trade_no": providerRef})

	params := c.baseParams("alipay.trade.query")
	params["biz_content"] = string(biz)

	sig, err := c.sign(params)
	if err != nil {
		return payments.QueryResult{Err: &payments.ProviderError{Provider: "alipay", Message: "sign failed", Cause: err}}
	}
	params["sign"] = sig

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gateway, strings.NewReader(form.Encode()))
	if err != nil {
		return payments.QueryResult{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return payments.QueryResult{Err: &payments.ProviderError{Provider: "alipay", Message: "query failed", Cause: err}}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var envelope tradeQueryEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return payments.QueryResult{Err: &payments.ProviderError{
			Provider: "alipay",
			Message:  "invalid response: " + truncate(string(body), 200),
		}}
	}

	r := envelope.Response
	if r.Code != "10000" {
		// Non-success envelope (e.g. trade not found yet): still pending.
		return payments.QueryResult{
			RawStatus: strings.TrimSpace(r.Code + " " + r.Msg),
		}
	}

	paid := r.TradeStatus == "TRADE_SUCCESS" || r.TradeStatus == "TRADE_FINISHED"
	return payments.QueryResult{
		Paid:          paid,
		RawStatus:     r.TradeStatus,
		ProviderTxnID: r.TradeNo,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Factor exposes the configured amount transform, mostly for tests.
func (c *Client) Factor() decimal.Decimal { return c.factor }

var _ payments.Provider = (*Client)(nil)

// SignContent is exported for signature verification in tests.
func SignContent(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" || k == "sign" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	return strings.Join(parts, "&")
}
