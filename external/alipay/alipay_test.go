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
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HBMartAPI/internal/payments"
)

func testKeyPEM(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	return key, string(pem.EncodeToMemory(block))
}

func newTestClient(t *testing.T, gateway string) (*Client, *rsa.PrivateKey) {
	t.Helper()
	key, pemText := testKeyPEM(t)
	t.Setenv("ALIPAY_APP_ID", "test-app")
	t.Setenv("ALIPAY_PRIVATE_KEY", pemText)
	t.Setenv("ALIPAY_GATEWAY", gateway)
	t.Setenv("APP_BASE_URL", "http://localhost:8080")
	c, err := NewClient()
	require.NoError(t, err)
	return c, key
}

func TestNewClientMissingConfig(t *testing.T) {
	t.Setenv("ALIPAY_APP_ID", "")
	_, err := NewClient()
	var cfgErr *payments.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "ALIPAY_APP_ID", cfgErr.Missing)
}

func TestSignContentSortedAndSkipsEmpty(t *testing.T) {
	got := SignContent(map[string]string{
		"b":    "2",
		"a":    "1",
		"c":    "",
		"sign": "ignored",
	})
	assert.Equal(t, "a=1&b=2", got)
}

func TestCreatePaymentSignatureVerifies(t *testing.T) {
	c, key := newTestClient(t, "https://gateway.example/gateway.do")

	res, err := c.CreatePayment(context.Background(), payments.CreateRequest{
		PayableID:  42,
		OutTradeNo: "ORDER_42_abc",
		Amount:     decimal.RequireFromString("45.50"),
	})
	require.NoError(t, err)

	u, err := url.Parse(res.URL)
	require.NoError(t, err)
	q := u.Query()

	params := map[string]string{}
	for k := range q {
		params[k] = q.Get(k)
	}
	require.NotEmpty(t, params["sign"])
	assert.Equal(t, "RSA2", params["sign_type"])
	assert.Equal(t, "alipay.trade.page.pay", params["method"])
	assert.Contains(t, params["return_url"], "/api/orders/42/pay/finish")

	sig, err := base64.StdEncoding.DecodeString(params["sign"])
	require.NoError(t, err)
	digest := sha256.Sum256([]byte(SignContent(params)))
	assert.NoError(t, rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA256, digest[:], sig))

	var biz map[string]string
	require.NoError(t, json.Unmarshal([]byte(params["biz_content"]), &biz))
	assert.Equal(t, "ORDER_42_abc", biz["out_trade_no"])
	assert.Equal(t, "45.50", biz["total_amount"])
	assert.Equal(t, "FAST_INSTANT_TRADE_PAY", biz["product_code"])
}

func TestAmountFactorScalesTotal(t *testing.T) {
	t.Setenv("ALIPAY_AMOUNT_FACTOR", "2")
	c, _ := newTestClient(t, "https://gateway.example/gateway.do")
	assert.True(t, c.Factor().Equal(decimal.NewFromInt(2)))

	res, err := c.CreatePayment(context.Background(), payments.CreateRequest{
		PayableID:  1,
		OutTradeNo: "ORDER_1_x",
		Amount:     decimal.RequireFromString("10.00"),
	})
	require.NoError(t, err)

	u, _ := url.Parse(res.URL)
	var biz map[string]string
	require.NoError(t, json.Unmarshal([]byte(u.Query().Get("biz_content")), &biz))
	assert.Equal(t, "20.00", biz["total_amount"])
}

func TestQueryPayment(t *testing.T) {
	cases := []struct {
		name     string
		response string
		paid     bool
		raw      string
	}{
		{
			name:     "trade success",
			response: `{"alipay_trade_query_response":{"code":"10000","trade_status":"TRADE_SUCCESS","trade_no":"T123"}}`,
			paid:     true,
			raw:      "TRADE_SUCCESS",
		},
		{
			name:     "trade finished",
			response: `{"alipay_trade_query_response":{"code":"10000","trade_status":"TRADE_FINISHED","trade_no":"T124"}}`,
			paid:     true,
			raw:      "TRADE_FINISHED",
		},
		{
			name:     "waiting for payment",
			response: `{"alipay_trade_query_response":{"code":"10000","trade_status":"WAIT_BUYER_PAY"}}`,
			paid:     false,
			raw:      "WAIT_BUYER_PAY",
		},
		{
			name:     "trade not found yet",
			response: `{"alipay_trade_query_response":{"code":"40004","msg":"trade not exist"}}`,
			paid:     false,
			raw:      "40004 trade not exist",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, r.ParseForm())
				assert.Equal(t, "alipay.trade.query", r.FormValue("method"))
				assert.NotEmpty(t, r.FormValue("sign"))
				w.Write([]byte(tc.response))
			}))
			defer srv.Close()

			c, _ := newTestClient(t, srv.URL)
			res := c.QueryPayment(context.Background(), "ORDER_1_x")
			require.NoError(t, res.Err)
			assert.Equal(t, tc.paid, res.Paid)
			assert.Equal(t, tc.raw, res.RawStatus)
		})
	}
}

func TestQueryPaymentBadEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL)
	res := c.QueryPayment(context.Background(), "ORDER_1_x")
	require.Error(t, res.Err)
	assert.False(t, res.Paid)
}

func TestLoadPrivateKeyBase64DER(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	loaded, err := loadPrivateKey(base64.StdEncoding.EncodeToString(der))
	require.NoError(t, err)
	assert.True(t, key.Equal(loaded))
}
