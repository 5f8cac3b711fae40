package services

import (
	"context"
	"fmt"
	"time"

	"HBMartAPI/internal/payments"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Payable kinds. Orders and memberships share the whole payment workflow;
// only their storage and post-payment effects differ.
const (
	PayableOrder      = "order"
	PayableMembership = "membership"
)

// Payable is a uniform snapshot of something money can be collected for.
type Payable struct {
	Kind        string
	ID          int64
	UserID      int64
	Amount      decimal.Decimal
	Subject     string
	Paid        bool
	Method      string
	OutTradeNo  string
	ProviderRef string
}

// PayableStore is the persistence contract the payment workflow runs on.
// MarkPaid must be conditional: it returns false when the payable was
// already paid, and the caller must then skip side effects.
type PayableStore interface {
	Get(ctx context.Context, id int64) (*Payable, error)
	FindByToken(ctx context.Context, outTradeNo string) (*Payable, error)
	StartPayment(ctx context.Context, id int64, method, outTradeNo string, providerRef *string) (bool, error)
	MarkPaid(ctx context.Context, id int64, providerTxnID *string) (bool, error)
}

// PaidEffect runs exactly once per payable, right after the winning MarkPaid.
// The returned fields are merged into the status response; an error is logged
// and reported but never rolls the payment back.
type PaidEffect func(ctx context.Context, p *Payable) (map[string]interface{}, error)

// StartResult is returned by POST /pay.
type StartResult struct {
	AlreadyPaid bool   `json:"already_paid,omitempty"`
	OutTradeNo  string `json:"out_trade_no,omitempty"`
	URL         string `json:"url,omitempty"`
	SSEURL      string `json:"sse_url,omitempty"`
}

// StatusResult is returned by the status poll and pushed over SSE.
type StatusResult struct {
	Paid      bool                   `json:"paid"`
	RawStatus string                 `json:"raw_status,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Extra     map[string]interface{} `json:"-"`
}

type PaymentService struct {
	Providers *payments.Registry
	Sessions  *payments.SessionStore
	Log       *zap.Logger

	// Poll cadence for the SSE stream; overridable in tests.
	PollInterval time.Duration
	PollTimeout  time.Duration

	kinds   []string
	stores  map[string]PayableStore
	effects map[string]PaidEffect

	newToken func(kind string, id int64) string
}

func NewPaymentService(providers *payments.Registry, sessions *payments.SessionStore, log *zap.Logger) *PaymentService {
	return &PaymentService{
		Providers:    providers,
		Sessions:     sessions,
		Log:          log,
		PollInterval: 2 * time.Second,
		PollTimeout:  10 * time.Minute,
		stores:       make(map[string]PayableStore),
		effects:      make(map[string]PaidEffect),
		newToken:     defaultToken,
	}
}

// Tokens embed the payable id so support staff can eyeball a provider
// dashboard entry back to a row; the uuid keeps retries distinct.
func defaultToken(kind string, id int64) string {
	prefix := "ORDER"
	if kind == PayableMembership {
		prefix = "MEM"
	}
	return fmt.Sprintf("%s_%d_%s", prefix, id, uuid.NewString())
}

// RegisterPayable wires a kind's store and its optional paid effect.
func (s *PaymentService) RegisterPayable(kind string, store PayableStore, effect PaidEffect) {
	s.kinds = append(s.kinds, kind)
	s.stores[kind] = store
	s.effects[kind] = effect
}

func (s *PaymentService) load(ctx context.Context, kind string, id, userID int64, isAdmin bool) (*Payable, error) {
	store, ok := s.stores[kind]
	if !ok {
		return nil, fmt.Errorf("unknown payable kind: %s", kind)
	}
	p, err := store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	if p.UserID != userID && !isAdmin {
		return nil, ErrForbidden
	}
	return p, nil
}

// Start begins (or restarts) a payment attempt. Each call mints a fresh
// correlation token and overwrites the previous attempt; a paid payable
// short-circuits without touching the provider.
func (s *PaymentService) Start(ctx context.Context, kind string, id, userID int64, isAdmin bool, method string) (*StartResult, error) {
	if !payments.ValidMethod(method) {
		return nil, fmt.Errorf("unsupported payment method: %s", method)
	}
	p, err := s.load(ctx, kind, id, userID, isAdmin)
	if err != nil {
		return nil, err
	}
	if p.Paid {
		return &StartResult{AlreadyPaid: true}, nil
	}

	provider, err := s.Providers.Get(method)
	if err != nil {
		return nil, err
	}

	token := s.newToken(kind, id)
	created, err := provider.CreatePayment(ctx, payments.CreateRequest{
		PayableID:  id,
		OutTradeNo: token,
		Amount:     p.Amount,
		Subject:    p.Subject,
	})
	if err != nil {
		return nil, err
	}

	var refPtr *string
	if created.ProviderRef != "" {
		refPtr = &created.ProviderRef
	}
	ok, err := s.stores[kind].StartPayment(ctx, id, method, token, refPtr)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Paid while we were talking to the provider.
		return &StartResult{AlreadyPaid: true}, nil
	}

	s.Log.Info("payment started",
		zap.String("kind", kind),
		zap.Int64("id", id),
		zap.String("method", method),
		zap.String("out_trade_no", token),
	)

	return &StartResult{
		OutTradeNo: token,
		URL:        created.URL,
		SSEURL:     created.SSEURL,
	}, nil
}

// providerRef picks the query key for the payable's current attempt. Alipay
// is queried by our own token; PayPal and NETS by the provider-side ref. For
// NETS a live cached session takes precedence over the persisted ref so the
// poll follows whichever QR the user is actually looking at.
func (s *PaymentService) providerRef(p *Payable) string {
	switch p.Method {
	case payments.MethodAlipay:
		return p.OutTradeNo
	case payments.MethodNETS:
		if s.Sessions != nil {
			if sess := s.Sessions.Get(p.OutTradeNo); sess != nil {
				return sess.TxnRetrievalRef
			}
		}
		return p.ProviderRef
	default:
		return p.ProviderRef
	}
}

// CheckStatus polls the provider and, on success, performs the one Paid
// transition plus its side effects. Safe to call concurrently and repeatedly:
// only the MarkPaid winner runs effects.
func (s *PaymentService) CheckStatus(ctx context.Context, kind string, id, userID int64, isAdmin bool, token string) (*StatusResult, error) {
	p, err := s.load(ctx, kind, id, userID, isAdmin)
	if err != nil {
		return nil, err
	}
	if p.Paid {
		return &StatusResult{Paid: true}, nil
	}
	if p.Method == "" || p.OutTradeNo == "" {
		return nil, fmt.Errorf("payment not started for %s %d", kind, id)
	}
	// A stale token belongs to a superseded attempt; polling it against the
	// current attempt would confuse two provider transactions.
	if token != "" && token != p.OutTradeNo {
		return nil, ErrTokenMismatch
	}

	provider, err := s.Providers.Get(p.Method)
	if err != nil {
		return nil, err
	}

	ref := s.providerRef(p)
	if ref == "" {
		return &StatusResult{Paid: false, RawStatus: "payment session expired"}, nil
	}

	res := provider.QueryPayment(ctx, ref)
	if res.Err != nil {
		// Provider downtime reads as still-pending, never as failure.
		s.Log.Warn("provider query failed",
			zap.String("kind", kind), zap.Int64("id", id), zap.Error(res.Err))
		return &StatusResult{Paid: false, Error: res.Err.Error()}, nil
	}
	if !res.Paid {
		return &StatusResult{Paid: false, RawStatus: res.RawStatus}, nil
	}
	return s.confirmPaid(ctx, p, res), nil
}

// confirmPaid races the conditional Paid transition and runs the kind's
// effect only on the winning path.
func (s *PaymentService) confirmPaid(ctx context.Context, p *Payable, res payments.QueryResult) *StatusResult {
	var txnPtr *string
	if res.ProviderTxnID != "" {
		txnPtr = &res.ProviderTxnID
	}

	won, err := s.stores[p.Kind].MarkPaid(ctx, p.ID, txnPtr)
	if err != nil {
		s.Log.Error("mark paid failed",
			zap.String("kind", p.Kind), zap.Int64("id", p.ID), zap.Error(err))
		return &StatusResult{Paid: false, Error: err.Error()}
	}

	out := &StatusResult{Paid: true, RawStatus: res.RawStatus}
	if !won {
		return out
	}

	s.Log.Info("payment confirmed",
		zap.String("kind", p.Kind),
		zap.Int64("id", p.ID),
		zap.String("provider_txn_id", res.ProviderTxnID),
	)

	if effect := s.effects[p.Kind]; effect != nil {
		extra, err := effect(ctx, p)
		if err != nil {
			// The payment stands; the dependent effect is reported, not
			// rolled back.
			s.Log.Error("paid effect failed",
				zap.String("kind", p.Kind), zap.Int64("id", p.ID), zap.Error(err))
			out.Error = err.Error()
		}
		out.Extra = extra
	}
	return out
}

// Finish is the read-only landing check after a provider redirect. It runs
// one status poll so a redirect that beats the poller still confirms, but it
// never reports more than paid/unpaid.
func (s *PaymentService) Finish(ctx context.Context, kind string, id, userID int64, isAdmin bool, token string) (bool, error) {
	res, err := s.CheckStatus(ctx, kind, id, userID, isAdmin, token)
	if err != nil {
		return false, err
	}
	return res.Paid, nil
}

// FindByToken resolves a correlation token across all registered payable
// kinds; used by the SSE stream and the QR page, which only carry the token.
func (s *PaymentService) FindByToken(ctx context.Context, token string) (*Payable, error) {
	for _, kind := range s.kinds {
		p, err := s.stores[kind].FindByToken(ctx, token)
		if err != nil {
			return nil, err
		}
		if p != nil {
			return p, nil
		}
	}
	return nil, ErrNotFound
}

// StreamStatus drives the server-sent payment status feed: poll every
// PollInterval, give up after PollTimeout, stop early when the client goes
// away or the payment resolves. Each poll result goes through send as one
// event; the paid event goes through the same confirm path as CheckStatus,
// so a stream and a poller racing still produce one set of side effects.
func (s *PaymentService) StreamStatus(ctx context.Context, p *Payable, send func(*StatusResult) error) {
	deadline := time.NewTimer(s.PollTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(s.PollInterval)
	defer ticker.Stop()

	provider, err := s.Providers.Get(p.Method)
	if err != nil {
		_ = send(&StatusResult{Paid: false, Error: err.Error()})
		return
	}

	for {
		if p.Paid {
			_ = send(&StatusResult{Paid: true})
			return
		}

		ref := s.providerRef(p)
		if ref == "" {
			_ = send(&StatusResult{Paid: false, RawStatus: "payment session expired"})
			return
		}

		res := provider.QueryPayment(ctx, ref)
		var out *StatusResult
		switch {
		case res.Err != nil:
			out = &StatusResult{Paid: false, Error: res.Err.Error()}
		case res.Paid:
			out = s.confirmPaid(ctx, p, res)
		default:
			out = &StatusResult{Paid: false, RawStatus: res.RawStatus}
		}

		if err := send(out); err != nil {
			return
		}
		if out.Paid {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			_ = send(&StatusResult{Paid: false, RawStatus: "timeout"})
			return
		case <-ticker.C:
		}
	}
}
