package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"HBMartAPI/internal/middleware"
	"HBMartAPI/internal/payments"
	"HBMartAPI/internal/services"
)

type stubStore struct {
	mu sync.Mutex
	p  services.Payable
}

func (s *stubStore) Get(ctx context.Context, id int64) (*services.Payable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.p.ID != id {
		return nil, nil
	}
	cp := s.p
	return &cp, nil
}

func (s *stubStore) FindByToken(ctx context.Context, token string) (*services.Payable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.p.OutTradeNo != token {
		return nil, nil
	}
	cp := s.p
	return &cp, nil
}

func (s *stubStore) StartPayment(ctx context.Context, id int64, method, token string, ref *string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.p.Paid {
		return false, nil
	}
	s.p.Method = method
	s.p.OutTradeNo = token
	if ref != nil {
		s.p.ProviderRef = *ref
	}
	return true, nil
}

func (s *stubStore) MarkPaid(ctx context.Context, id int64, txn *string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.p.Paid {
		return false, nil
	}
	s.p.Paid = true
	return true, nil
}

type stubProvider struct {
	mu      sync.Mutex
	queries int
	paidAt  int
}

func (p *stubProvider) CreatePayment(ctx context.Context, req payments.CreateRequest) (*payments.CreateResult, error) {
	return &payments.CreateResult{OutTradeNo: req.OutTradeNo, URL: "https://gateway/pay", ProviderRef: "REF1"}, nil
}

func (p *stubProvider) QueryPayment(ctx context.Context, ref string) payments.QueryResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queries++
	if p.paidAt > 0 && p.queries >= p.paidAt {
		return payments.QueryResult{Paid: true, RawStatus: "COMPLETED", ProviderTxnID: "TXN1"}
	}
	return payments.QueryResult{RawStatus: "CREATED"}
}

func newTestApp(t *testing.T, provider *stubProvider, store *stubStore) *echo.Echo {
	t.Helper()
	registry := payments.NewRegistry()
	registry.Register(payments.MethodPayPal, provider)

	ps := services.NewPaymentService(registry, nil, zap.NewNop())
	ps.PollInterval = time.Millisecond
	ps.PollTimeout = 200 * time.Millisecond
	ps.RegisterPayable(services.PayableOrder, store, nil)

	e := echo.New()
	api := e.Group("/api")
	registerPaymentRoutes(api, "orders", services.PayableOrder, ps)
	registerNetsRoutes(api, ps)
	return e
}

func unpaidStore() *stubStore {
	return &stubStore{p: services.Payable{
		Kind:   services.PayableOrder,
		ID:     1,
		UserID: 10,
		Amount: decimal.RequireFromString("45.50"),
	}}
}

func TestStartAndPollStatusOverHTTP(t *testing.T) {
	provider := &stubProvider{paidAt: 2}
	store := unpaidStore()
	e := newTestApp(t, provider, store)

	token, err := middleware.GenerateToken(10, "user@example.com", "customer", 1)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/orders/1/pay", strings.NewReader(`{"method":"paypal"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "https://gateway/pay")

	outTradeNo := store.p.OutTradeNo
	require.NotEmpty(t, outTradeNo)

	// First poll: provider still pending.
	req = httptest.NewRequest(http.MethodGet, "/api/orders/1/pay/status?out_trade_no="+outTradeNo, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"paid":false`)

	// Second poll: paid.
	req = httptest.NewRequest(http.MethodGet, "/api/orders/1/pay/status?out_trade_no="+outTradeNo, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"paid":true`)
	assert.True(t, store.p.Paid)
}

func TestStatusStaleTokenConflict(t *testing.T) {
	provider := &stubProvider{}
	store := unpaidStore()
	store.p.Method = payments.MethodPayPal
	store.p.OutTradeNo = "ORDER_1_current"
	e := newTestApp(t, provider, store)

	token, err := middleware.GenerateToken(10, "user@example.com", "customer", 1)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/orders/1/pay/status?out_trade_no=ORDER_1_old", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSSEStreamEmitsEventsUntilPaid(t *testing.T) {
	provider := &stubProvider{paidAt: 3}
	store := unpaidStore()
	store.p.Method = payments.MethodPayPal
	store.p.OutTradeNo = "ORDER_1_tok"
	store.p.ProviderRef = "REF1"
	e := newTestApp(t, provider, store)

	req := httptest.NewRequest(http.MethodGet, "/api/nets/sse/payment-status/REF1?out_trade_no=ORDER_1_tok", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get(echo.HeaderContentType))

	body := rec.Body.String()
	events := strings.Split(strings.TrimSpace(body), "\n\n")
	require.GreaterOrEqual(t, len(events), 3)
	for _, ev := range events {
		assert.True(t, strings.HasPrefix(ev, "data: "), "event %q lacks data prefix", ev)
	}
	assert.Contains(t, events[len(events)-1], `"paid":true`)
	assert.True(t, store.p.Paid)
}

func TestSSEUnknownTokenIs404(t *testing.T) {
	e := newTestApp(t, &stubProvider{}, unpaidStore())

	req := httptest.NewRequest(http.MethodGet, "/api/nets/sse/payment-status/REF1?out_trade_no=ORDER_1_nope", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFinishByTokenWithoutJWT(t *testing.T) {
	provider := &stubProvider{paidAt: 1}
	store := unpaidStore()
	store.p.Method = payments.MethodPayPal
	store.p.OutTradeNo = "ORDER_1_tok"
	store.p.ProviderRef = "REF1"
	e := newTestApp(t, provider, store)

	req := httptest.NewRequest(http.MethodGet, "/api/orders/1/pay/finish?out_trade_no=ORDER_1_tok", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"paid":true`)
}
