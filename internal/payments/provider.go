package payments

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Payment methods accepted by the storefront.
const (
	MethodAlipay = "alipay"
	MethodPayPal = "paypal"
	MethodNETS   = "nets"
)

// ValidMethod reports whether m names a supported payment method.
func ValidMethod(m string) bool {
	return m == MethodAlipay || m == MethodPayPal || m == MethodNETS
}

// CreateRequest is a snapshot of the payable handed to a provider.
type CreateRequest struct {
	PayableID  int64
	OutTradeNo string
	Amount     decimal.Decimal
	Subject    string
}

// CreateResult is what the caller persists after starting a payment.
// ProviderRef is the provider-side id needed for later queries (PayPal order
// id, NETS txn retrieval ref); empty for providers queried by OutTradeNo.
type CreateResult struct {
	OutTradeNo  string
	URL         string
	ProviderRef string
	SSEURL      string
}

// QueryResult reports provider payment state. "Not paid yet" is not an
// error: transport and parse failures land in Err so pollers can treat
// provider downtime as still pending.
type QueryResult struct {
	Paid          bool
	RawStatus     string
	ProviderTxnID string
	Err           error
}

// Provider is the contract every gateway integration implements.
type Provider interface {
	CreatePayment(ctx context.Context, req CreateRequest) (*CreateResult, error)
	QueryPayment(ctx context.Context, providerRef string) QueryResult
}

// ConfigError means required provider credentials or environment are absent.
// It is not retryable.
type ConfigError struct {
	Missing string
}

func (e *ConfigError) Error() string {
	return "missing " + e.Missing + " in environment"
}

// ProviderError is a failed remote call or an unparseable / non-success
// provider envelope.
type ProviderError struct {
	Provider string
	Message  string
	Cause    error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// Registry maps payment methods to their adapters.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

func (r *Registry) Register(method string, p Provider) {
	r.providers[method] = p
}

// Get returns the adapter for a method, or an error for unknown/unregistered
// methods.
func (r *Registry) Get(method string) (Provider, error) {
	p, ok := r.providers[method]
	if !ok {
		return nil, fmt.Errorf("unsupported payment method: %s", method)
	}
	return p, nil
}

// FormatAmount renders a decimal amount with exactly two fraction digits,
// the form every sandbox gateway expects.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
