package paypal

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

	"HBMartAPI/internal/payments"
)

// Client is the OAuth-capture ("paypal-like") sandbox integration: a
// client-credentials token per call, a checkout order resource, and a capture
// step that QueryPayment performs itself when the buyer has approved but the
// order is not captured yet.
type Client struct {
	apiBase      string
	clientID     string
	clientSecret string
	brandName    string
	appBaseURL   string
	http         *http.Client
}

func NewClient() (*Client, error) {
	clientID := strings.TrimSpace(os.Getenv("PAYPAL_CLIENT_ID"))
	if clientID == "" {
		return nil, &payments.ConfigError{Missing: "PAYPAL_CLIENT_ID"}
	}
	clientSecret := strings.TrimSpace(os.Getenv("PAYPAL_CLIENT_SECRET"))
	if clientSecret == "" {
		return nil, &payments.ConfigError{Missing: "PAYPAL_CLIENT_SECRET"}
	}

	apiBase := strings.TrimSpace(os.Getenv("PAYPAL_API_BASE"))
	if apiBase == "" {
		apiBase = "https://api-m.sandbox.paypal.com"
	}
	brand := strings.TrimSpace(os.Getenv("PAYPAL_BRAND_NAME"))
	if brand == "" {
		brand = "HB Mart"
	}

	return &Client{
		apiBase:      strings.TrimRight(apiBase, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		brandName:    brand,
		appBaseURL:   strings.TrimRight(os.Getenv("APP_BASE_URL"), "/"),
		http:         &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &payments.ProviderError{Provider: "paypal", Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &payments.ProviderError{
			Provider: "paypal",
			Message:  fmt.Sprintf("HTTP %d: %s", resp.StatusCode, truncate(string(raw), 300)),
		}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &payments.ProviderError{Provider: "paypal", Message: "invalid response: " + truncate(string(raw), 300)}
	}
	return nil
}

// accessToken exchanges client credentials for a bearer token. Tokens are not
// cached across calls; fine at sandbox volume.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &payments.ProviderError{Provider: "paypal", Message: "token request failed", Cause: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &payments.ProviderError{
			Provider: "paypal",
			Message:  fmt.Sprintf("token HTTP %d: %s", resp.StatusCode, truncate(string(raw), 300)),
		}
	}

	var data struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(raw, &data); err != nil || data.AccessToken == "" {
		return "", &payments.ProviderError{Provider: "paypal", Message: "access token missing"}
	}
	return data.AccessToken, nil
}

type checkoutOrder struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Rel  string `json:"rel"`
		Href string `json:"href"`
	} `json:"links"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

func captureID(o *checkoutOrder) string {
	if len(o.PurchaseUnits) == 0 {
		return ""
	}
	caps := o.PurchaseUnits[0].Payments.Captures
	if len(caps) == 0 {
		return ""
	}
	return caps[0].ID
}

// CreatePayment creates a CAPTURE-intent checkout order and returns the
// approve link for the browser redirect.
func (c *Client) CreatePayment(ctx context.Context, req payments.CreateRequest) (*payments.CreateResult, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	returnURL := fmt.Sprintf("%s/api/orders/%d/pay/finish?pm=paypal&out_trade_no=%s",
		c.appBaseURL, req.PayableID, url.QueryEscape(req.OutTradeNo))

	body, _ := json.Marshal(map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{{
			"reference_id": req.OutTradeNo,
			"custom_id":    req.OutTradeNo,
			"description":  req.Subject,
			"amount": map[string]string{
				"currency_code": "USD",
				"value":         payments.FormatAmount(req.Amount),
			},
		}},
		"application_context": map[string]string{
			"brand_name":  c.brandName,
			"return_url":  returnURL,
			"cancel_url":  returnURL + "&cancel=paypal",
			"user_action": "PAY_NOW",
		},
	})

	var created checkoutOrder
	if err := c.doJSON(ctx, http.MethodPost, "/v2/checkout/orders", token, body, &created); err != nil {
		return nil, err
	}

	approveURL := ""
	for _, l := range created.Links {
		if l.Rel == "approve" && l.Href != "" {
			approveURL = l.Href
			break
		}
	}
	if created.ID == "" || approveURL == "" {
		return nil, &payments.ProviderError{Provider: "paypal", Message: "create order response missing approve link"}
	}

	return &payments.CreateResult{
		OutTradeNo:  req.OutTradeNo,
		URL:         approveURL,
		ProviderRef: created.ID,
	}, nil
}

// QueryPayment fetches the checkout order and, when the buyer approved but
// the order is not captured, performs the capture before reporting paid.
// The query advances remote state for this variant.
func (c *Client) QueryPayment(ctx context.Context, providerRef string) payments.QueryResult {
	if providerRef == "" {
		return payments.QueryResult{}
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return payments.QueryResult{Err: err}
	}

	var order checkoutOrder
	path := "/v2/checkout/orders/" + url.PathEscape(providerRef)
	if err := c.doJSON(ctx, http.MethodGet, path, token, nil, &order); err != nil {
		return payments.QueryResult{Err: err}
	}

	if order.Status == "APPROVED" {
		var captured checkoutOrder
		if err := c.doJSON(ctx, http.MethodPost, path+"/capture", token, []byte("{}"), &captured); err != nil {
			return payments.QueryResult{RawStatus: order.Status, Err: err}
		}
		if captured.Status == "COMPLETED" {
			return payments.QueryResult{Paid: true, RawStatus: "COMPLETED", ProviderTxnID: captureID(&captured)}
		}
		return payments.QueryResult{RawStatus: captured.Status}
	}

	if order.Status == "COMPLETED" {
		return payments.QueryResult{Paid: true, RawStatus: "COMPLETED", ProviderTxnID: captureID(&order)}
	}
	return payments.QueryResult{RawStatus: order.Status}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var _ payments.Provider = (*Client)(nil)
