package nets

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

func envelope(data map[string]interface{}) []byte {
	b, _ := json.Marshal(map[string]interface{}{
		"result": map[string]interface{}{"data": data},
	})
	return b
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("NETS_API_KEY", "key")
	t.Setenv("NETS_PROJECT_ID", "project")
	t.Setenv("NETS_TXN_ID", "txn-1")
	t.Setenv("NETS_API_BASE", srv.URL)
	t.Setenv("APP_BASE_URL", "http://localhost:8080")
	c, err := NewClient()
	require.NoError(t, err)
	return c
}

func TestNewClientMissingConfig(t *testing.T) {
	t.Setenv("NETS_API_KEY", "")
	t.Setenv("API_KEY", "")
	_, err := NewClient()
	var cfgErr *payments.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestRequestQR(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/common/payments/nets-qr/request", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("api-key"))
		assert.Equal(t, "project", r.Header.Get("project-id"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "12.00", body["amt_in_dollars"])

		w.Write(envelope(map[string]interface{}{
			"response_code":     "00",
			"txn_status":        1,
			"qr_code":           "base64-qr",
			"txn_retrieval_ref": "RREF1",
		}))
	})

	sess, err := c.RequestQR(context.Background(), "ORDER_1_x", decimal.NewFromInt(12))
	require.NoError(t, err)
	assert.Equal(t, "RREF1", sess.TxnRetrievalRef)
	assert.Equal(t, "base64-qr", sess.QRCodeBase64)
	assert.Equal(t, "ORDER_1_x", sess.OutTradeNo)
	assert.False(t, sess.CreatedAt.IsZero())
}

func TestRequestQRFailureEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(envelope(map[string]interface{}{
			"response_code": "68",
			"txn_status":    2,
			"error_message": "declined",
		}))
	})

	_, err := c.RequestQR(context.Background(), "ORDER_1_x", decimal.NewFromInt(12))
	var provErr *payments.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Contains(t, provErr.Message, "declined")
}

func TestQueryPayment(t *testing.T) {
	cases := []struct {
		name string
		data map[string]interface{}
		paid bool
	}{
		{
			name: "paid",
			data: map[string]interface{}{"response_code": "00", "txn_status": 1},
			paid: true,
		},
		{
			name: "pending status",
			data: map[string]interface{}{"response_code": "00", "txn_status": 0},
			paid: false,
		},
		{
			name: "declined code",
			data: map[string]interface{}{"response_code": "68", "txn_status": 1},
			paid: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v1/common/payments/nets-qr/query", r.URL.Path)
				var body map[string]interface{}
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "RREF1", body["txn_retrieval_ref"])
				assert.Equal(t, float64(0), body["frontend_timeout_status"])
				w.Write(envelope(tc.data))
			})

			res := c.QueryPayment(context.Background(), "RREF1")
			require.NoError(t, res.Err)
			assert.Equal(t, tc.paid, res.Paid)
		})
	}
}

func TestQueryPaymentTransportErrorIsErr(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	res := c.QueryPayment(context.Background(), "RREF1")
	require.Error(t, res.Err)
	assert.False(t, res.Paid)
}

func TestCreatePaymentBuildsLocalURLs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(envelope(map[string]interface{}{
			"response_code":     "00",
			"txn_status":        1,
			"qr_code":           "base64-qr",
			"txn_retrieval_ref": "RREF9",
		}))
	})

	res, err := c.CreatePayment(context.Background(), payments.CreateRequest{
		PayableID:  3,
		OutTradeNo: "ORDER_3_y",
		Amount:     decimal.NewFromInt(30),
	})
	require.NoError(t, err)
	assert.Equal(t, "RREF9", res.ProviderRef)
	assert.Contains(t, res.URL, "/api/nets/qr?out_trade_no=ORDER_3_y")
	assert.Contains(t, res.SSEURL, "/api/nets/sse/payment-status/RREF9")
}

func TestCreatePaymentUsesSessionCache(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write(envelope(map[string]interface{}{
			"response_code":     "00",
			"txn_status":        1,
			"qr_code":           "base64-qr",
			"txn_retrieval_ref": "RREF1",
		}))
	})
	c.SetSessionStore(payments.NewSessionStore(c))

	req := payments.CreateRequest{PayableID: 3, OutTradeNo: "ORDER_3_y", Amount: decimal.NewFromInt(30)}
	_, err := c.CreatePayment(context.Background(), req)
	require.NoError(t, err)
	_, err = c.CreatePayment(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
