package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	testLimit  = 3
	testWindow = time.Minute
)

type MemorySuite struct {
	suite.Suite
	store *Memory
	now   time.Time
	ctx   context.Context
}

func TestMemorySuite(t *testing.T) {
	suite.Run(t, new(MemorySuite))
}

func (s *MemorySuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.store = NewMemory()
	s.store.now = func() time.Time { return s.now }
	s.ctx = context.Background()
}

func (s *MemorySuite) TestAllowsUpToLimit() {
	for i := range testLimit {
		res, err := s.store.AllowN(s.ctx, "ip:1", 1, testLimit, testWindow)
		s.Require().NoError(err)
		s.True(res.Allowed)
		s.Equal(testLimit-i-1, res.Remaining)
	}
	res, err := s.store.AllowN(s.ctx, "ip:1", 1, testLimit, testWindow)
	s.Require().NoError(err)
	s.False(res.Allowed)
	s.Equal(0, res.Remaining)
	s.Equal(s.now.Add(testWindow), res.ResetAt)
}

func (s *MemorySuite) TestKeysAreIndependent() {
	for range testLimit {
		_, _ = s.store.AllowN(s.ctx, "ip:1", 1, testLimit, testWindow)
	}
	res, err := s.store.AllowN(s.ctx, "ip:2", 1, testLimit, testWindow)
	s.Require().NoError(err)
	s.True(res.Allowed)
}

func (s *MemorySuite) TestWindowSlides() {
	for range testLimit {
		_, _ = s.store.AllowN(s.ctx, "ip:1", 1, testLimit, testWindow)
		s.now = s.now.Add(10 * time.Second)
	}
	res, _ := s.store.AllowN(s.ctx, "ip:1", 1, testLimit, testWindow)
	s.False(res.Allowed)
	s.Equal(s.now.Add(-30*time.Second).Add(testWindow), res.ResetAt, "reset follows the oldest request")

	s.now = s.now.Add(31 * time.Second)
	res, _ = s.store.AllowN(s.ctx, "ip:1", 1, testLimit, testWindow)
	s.True(res.Allowed, "the oldest request left the window")
}

func (s *MemorySuite) TestDeniedCallsAreNotCounted() {
	_, _ = s.store.AllowN(s.ctx, "ip:1", 2, testLimit, testWindow)
	res, _ := s.store.AllowN(s.ctx, "ip:1", 2, testLimit, testWindow)
	s.False(res.Allowed)
	res, _ = s.store.AllowN(s.ctx, "ip:1", 1, testLimit, testWindow)
	s.True(res.Allowed)
}

func (s *MemorySuite) TestSweepDropsIdleWindows() {
	_, _ = s.store.AllowN(s.ctx, "ip:idle", 1, testLimit, testWindow)
	s.now = s.now.Add(2 * testWindow)
	s.store.sweep(s.now)
	s.NotContains(s.store.windows, "ip:idle")
}

type failingStore struct{}

func (failingStore) AllowN(context.Context, string, int, int, time.Duration) (Result, error) {
	return Result{}, errors.New("redis down")
}

func TestMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	call := func(h http.Handler, addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/stores/s1/cart/items", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("rejects over the limit", func(t *testing.T) {
		h := New(NewMemory(), 2, time.Minute, WithLogger(logger)).Middleware(ok)

		rec := call(h, "10.0.0.1:5000")
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

		call(h, "10.0.0.1:5001")
		rec = call(h, "10.0.0.1:5002")
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Contains(t, rec.Body.String(), "rate_limit_exceeded")
		retry, err := strconv.Atoi(rec.Header().Get("Retry-After"))
		require.NoError(t, err)
		assert.Positive(t, retry)

		assert.Equal(t, http.StatusNoContent, call(h, "10.0.0.2:5000").Code, "other clients unaffected")
	})

	t.Run("store failure fails open", func(t *testing.T) {
		h := New(failingStore{}, 1, time.Minute, WithLogger(logger)).Middleware(ok)
		assert.Equal(t, http.StatusNoContent, call(h, "10.0.0.1:5000").Code)
		assert.Equal(t, http.StatusNoContent, call(h, "10.0.0.1:5000").Code)
	})
}

func TestRetryAfterRoundsUp(t *testing.T) {
	now := time.Now()
	assert.Equal(t, 2, Result{ResetAt: now.Add(1500 * time.Millisecond)}.RetryAfter(now))
	assert.Equal(t, 1, Result{ResetAt: now.Add(-time.Second)}.RetryAfter(now))
}
