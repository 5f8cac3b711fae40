package payments

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
)

// Session is cached NETS QR metadata for one correlation token. Reusing it
// avoids generating a fresh provider-side QR on every poll or page load.
type Session struct {
	OutTradeNo      string
	TxnRetrievalRef string
	QRCodeBase64    string
	CreatedAt       time.Time
}

// QRRequester creates a provider-side QR session; implemented by the NETS
// client.
type QRRequester interface {
	RequestQR(ctx context.Context, outTradeNo string, amount decimal.Decimal) (*Session, error)
}

const sessionTTL = 30 * time.Minute

// SessionStore is a process-local TTL cache of QR sessions, one live session
// per correlation token. Losing it on restart is fine: the next access just
// regenerates the QR.
type SessionStore struct {
	qr    QRRequester
	cache *gocache.Cache
	now   func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSessionStore(qr QRRequester) *SessionStore {
	return &SessionStore{
		qr:    qr,
		cache: gocache.New(sessionTTL, 10*time.Minute),
		now:   time.Now,
		locks: make(map[string]*sync.Mutex),
	}
}

// Get returns the cached session for a token, or nil when absent or older
// than 30 minutes. Expiry is checked lazily against the injected clock so
// tests can simulate time passing.
func (s *SessionStore) Get(outTradeNo string) *Session {
	v, ok := s.cache.Get(outTradeNo)
	if !ok {
		return nil
	}
	sess := v.(*Session)
	if s.now().Sub(sess.CreatedAt) > sessionTTL {
		s.cache.Delete(outTradeNo)
		return nil
	}
	return sess
}

// GetOrCreate returns a fresh cached session or requests a new QR from the
// provider. A per-token mutex keeps concurrent callers from creating two
// provider-side sessions for the same token.
func (s *SessionStore) GetOrCreate(ctx context.Context, outTradeNo string, amount decimal.Decimal) (*Session, error) {
	lock := s.tokenLock(outTradeNo)
	lock.Lock()
	defer lock.Unlock()

	if sess := s.Get(outTradeNo); sess != nil {
		return sess, nil
	}

	sess, err := s.qr.RequestQR(ctx, outTradeNo, amount)
	if err != nil {
		return nil, err
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.now()
	}
	s.cache.Set(outTradeNo, sess, gocache.DefaultExpiration)
	return sess, nil
}

func (s *SessionStore) tokenLock(outTradeNo string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[outTradeNo]
	if !ok {
		l = &sync.Mutex{}
		s.locks[outTradeNo] = l
	}
	return l
}
