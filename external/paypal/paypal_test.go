package paypal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HBMartAPI/internal/payments"
)

// fakeGateway mimics the sandbox: token endpoint, order create, order get and
// capture. Order state is settable per test.
type fakeGateway struct {
	t            *testing.T
	orderStatus  string
	captureState string
	captures     int
}

func (f *fakeGateway) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(f.t, ok)
		assert.Equal(f.t, "client-id", user)
		assert.Equal(f.t, "client-secret", pass)
		json.NewEncoder(w).Encode(map[string]string{"access_token": "test-token"})
	})
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(f.t, "Bearer test-token", r.Header.Get("Authorization"))
		var body map[string]interface{}
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(f.t, "CAPTURE", body["intent"])
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "PPORDER1",
			"status": "CREATED",
			"links": []map[string]string{
				{"rel": "self", "href": "https://gateway/self"},
				{"rel": "approve", "href": "https://gateway/approve/PPORDER1"},
			},
		})
	})
	mux.HandleFunc("/v2/checkout/orders/PPORDER1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"id": "PPORDER1", "status": f.orderStatus})
	})
	mux.HandleFunc("/v2/checkout/orders/PPORDER1/capture", func(w http.ResponseWriter, r *http.Request) {
		f.captures++
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "PPORDER1",
			"status": f.captureState,
			"purchase_units": []map[string]interface{}{{
				"payments": map[string]interface{}{
					"captures": []map[string]string{{"id": "CAP123", "status": f.captureState}},
				},
			}},
		})
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeGateway) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	t.Setenv("PAYPAL_CLIENT_ID", "client-id")
	t.Setenv("PAYPAL_CLIENT_SECRET", "client-secret")
	t.Setenv("PAYPAL_API_BASE", srv.URL)
	t.Setenv("APP_BASE_URL", "http://localhost:8080")
	c, err := NewClient()
	require.NoError(t, err)
	return c
}

func TestNewClientMissingConfig(t *testing.T) {
	t.Setenv("PAYPAL_CLIENT_ID", "")
	_, err := NewClient()
	var cfgErr *payments.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestCreatePaymentReturnsApproveLink(t *testing.T) {
	f := &fakeGateway{t: t}
	c := newTestClient(t, f)

	res, err := c.CreatePayment(context.Background(), payments.CreateRequest{
		PayableID:  7,
		OutTradeNo: "ORDER_7_abc",
		Amount:     decimal.RequireFromString("12.34"),
		Subject:    "HBMart Order #7",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://gateway/approve/PPORDER1", res.URL)
	assert.Equal(t, "PPORDER1", res.ProviderRef)
	assert.Equal(t, "ORDER_7_abc", res.OutTradeNo)
}

func TestQueryCapturesApprovedOrder(t *testing.T) {
	f := &fakeGateway{t: t, orderStatus: "APPROVED", captureState: "COMPLETED"}
	c := newTestClient(t, f)

	res := c.QueryPayment(context.Background(), "PPORDER1")
	require.NoError(t, res.Err)
	assert.True(t, res.Paid)
	assert.Equal(t, "COMPLETED", res.RawStatus)
	assert.Equal(t, "CAP123", res.ProviderTxnID)
	assert.Equal(t, 1, f.captures)
}

func TestQueryApprovedButCapturePending(t *testing.T) {
	f := &fakeGateway{t: t, orderStatus: "APPROVED", captureState: "PENDING"}
	c := newTestClient(t, f)

	res := c.QueryPayment(context.Background(), "PPORDER1")
	require.NoError(t, res.Err)
	assert.False(t, res.Paid)
	assert.Equal(t, "PENDING", res.RawStatus)
}

func TestQueryCompletedOrderIsPaid(t *testing.T) {
	f := &fakeGateway{t: t, orderStatus: "COMPLETED"}
	c := newTestClient(t, f)

	res := c.QueryPayment(context.Background(), "PPORDER1")
	require.NoError(t, res.Err)
	assert.True(t, res.Paid)
	assert.Equal(t, 0, f.captures)
}

func TestQueryCreatedOrderStillPending(t *testing.T) {
	f := &fakeGateway{t: t, orderStatus: "CREATED"}
	c := newTestClient(t, f)

	res := c.QueryPayment(context.Background(), "PPORDER1")
	require.NoError(t, res.Err)
	assert.False(t, res.Paid)
	assert.Equal(t, "CREATED", res.RawStatus)
}

func TestQueryEmptyRefIsNotPaid(t *testing.T) {
	f := &fakeGateway{t: t}
	c := newTestClient(t, f)

	res := c.QueryPayment(context.Background(), "")
	assert.NoError(t, res.Err)
	assert.False(t, res.Paid)
}
