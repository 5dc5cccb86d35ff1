package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/cache"
	"storefront/internal/invalidation"
	"storefront/pkg/platform/middleware/admin"
	"storefront/pkg/testutil"
)

type recordingBroadcaster struct {
	events []invalidation.Event
	err    error
}

func (b *recordingBroadcaster) Broadcast(_ context.Context, ev invalidation.Event) error {
	b.events = append(b.events, ev)
	return b.err
}

func newRouter(c cache.Store, b Broadcaster) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(invalidation.New(c), b, c, logger)
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken("secret", logger))
		h.Register(r)
	})
	return r
}

const invalidatePath = "/api/stores/s1/cache/invalidate"

func TestHandleInvalidate(t *testing.T) {
	ctx := context.Background()
	token := testutil.WithAdminToken("secret")

	t.Run("invalidates and broadcasts", func(t *testing.T) {
		c := cache.NewMemory()
		c.Set(ctx, cache.ProductKey("s1", "p1"), "v", time.Hour)
		b := &recordingBroadcaster{}

		req := testutil.NewJSONRequest(t, http.MethodPost, invalidatePath,
			map[string]string{"changeType": "product_updated", "entityId": "p1"}, token)
		rr := testutil.DoRequest(newRouter(c, b), req)

		testutil.AssertStatus(t, rr, http.StatusOK)
		res := testutil.UnmarshalResponse[invalidation.Result](t, rr)
		assert.Equal(t, invalidation.ProductUpdated, res.ChangeType)
		assert.Equal(t, 1, res.Removed)
		_, ok := c.Get(ctx, cache.ProductKey("s1", "p1"))
		assert.False(t, ok)
		require.Len(t, b.events, 1)
		assert.Equal(t, "s1", b.events[0].StoreID)
	})

	t.Run("broadcast failure still succeeds locally", func(t *testing.T) {
		b := &recordingBroadcaster{err: errors.New("broker down")}
		req := testutil.NewJSONRequest(t, http.MethodPost, invalidatePath, `{"changeType":"navigation_updated"}`, token)
		rr := testutil.DoRequest(newRouter(cache.NewMemory(), b), req)
		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	t.Run("unknown change type is a bad request", func(t *testing.T) {
		b := &recordingBroadcaster{}
		req := testutil.NewJSONRequest(t, http.MethodPost, invalidatePath, `{"changeType":"nope"}`, token)
		rr := testutil.DoRequest(newRouter(cache.NewMemory(), b), req)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
		assert.Empty(t, b.events)
	})

	t.Run("missing admin token is unauthorized", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, invalidatePath, `{"changeType":"product_created"}`)
		rr := testutil.DoRequest(newRouter(cache.NewMemory(), nil), req)
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})
}

func TestHandleStats(t *testing.T) {
	c := cache.NewMemory()
	c.Set(context.Background(), "product_s1_p1", "v", time.Hour)

	req := testutil.NewRequest(t, http.MethodGet, "/api/cache/stats", testutil.WithAdminToken("secret"))
	rr := testutil.DoRequest(newRouter(c, nil), req)

	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, cache.Stats{Total: 1, Active: 1}, testutil.UnmarshalResponse[cache.Stats](t, rr))
}
