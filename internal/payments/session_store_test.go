package payments

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQR struct {
	calls int32
}

func (f *fakeQR) RequestQR(ctx context.Context, outTradeNo string, amount decimal.Decimal) (*Session, error) {
	n := atomic.AddInt32(&f.calls, 1)
	return &Session{
		OutTradeNo:      outTradeNo,
		TxnRetrievalRef: fmt.Sprintf("ref-%d", n),
		QRCodeBase64:    "qr-data",
	}, nil
}

func TestSessionReusedWithinTTL(t *testing.T) {
	qr := &fakeQR{}
	store := NewSessionStore(qr)

	amount := decimal.NewFromInt(10)
	first, err := store.GetOrCreate(context.Background(), "TOKEN_1", amount)
	require.NoError(t, err)

	second, err := store.GetOrCreate(context.Background(), "TOKEN_1", amount)
	require.NoError(t, err)

	assert.Equal(t, first.TxnRetrievalRef, second.TxnRetrievalRef)
	assert.Equal(t, int32(1), atomic.LoadInt32(&qr.calls))
}

func TestSessionExpiresAfterTTL(t *testing.T) {
	qr := &fakeQR{}
	store := NewSessionStore(qr)

	now := time.Now()
	store.now = func() time.Time { return now }

	first, err := store.GetOrCreate(context.Background(), "TOKEN_1", decimal.NewFromInt(10))
	require.NoError(t, err)

	// 29 minutes later the session is still live.
	now = now.Add(29 * time.Minute)
	assert.NotNil(t, store.Get("TOKEN_1"))

	// 31 minutes after creation it is gone and a new one is minted.
	now = now.Add(2 * time.Minute)
	assert.Nil(t, store.Get("TOKEN_1"))

	second, err := store.GetOrCreate(context.Background(), "TOKEN_1", decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.NotEqual(t, first.TxnRetrievalRef, second.TxnRetrievalRef)
	assert.Equal(t, int32(2), atomic.LoadInt32(&qr.calls))
}

func TestConcurrentGetOrCreateSingleFlight(t *testing.T) {
	qr := &fakeQR{}
	store := NewSessionStore(qr)

	var wg sync.WaitGroup
	refs := make([]string, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, err := store.GetOrCreate(context.Background(), "TOKEN_1", decimal.NewFromInt(10))
			require.NoError(t, err)
			refs[i] = sess.TxnRetrievalRef
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&qr.calls))
	for _, ref := range refs {
		assert.Equal(t, refs[0], ref)
	}
}

func TestDistinctTokensGetDistinctSessions(t *testing.T) {
	qr := &fakeQR{}
	store := NewSessionStore(qr)

	a, err := store.GetOrCreate(context.Background(), "TOKEN_A", decimal.NewFromInt(5))
	require.NoError(t, err)
	b, err := store.GetOrCreate(context.Background(), "TOKEN_B", decimal.NewFromInt(5))
	require.NoError(t, err)

	assert.NotEqual(t, a.TxnRetrievalRef, b.TxnRetrievalRef)
}
