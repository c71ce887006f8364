package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cache-countdown-api/internal/cache"
	"cache-countdown-api/internal/clock"
	"cache-countdown-api/internal/models"
	"cache-countdown-api/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

type testEnv struct {
	handler *CacheHandler
	router  *gin.Engine
	clk     *clock.Fake
	hub     *realtime.Hub
	stats   *Stats
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clk := clock.NewFake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	hub := realtime.NewHub()
	stats := &Stats{}
	coordinator := cache.NewCoordinator[models.Snapshot](
		cache.NewMemoryStorage[models.Snapshot](cache.Options{ConcurrencySafe: true}),
		cache.WithClock(clk),
		cache.WithMetrics(stats),
		cache.WithEvictionListener(BroadcastEvictions(hub, nil)),
	)
	t.Cleanup(func() { _ = coordinator.ClearAll(context.Background()) })

	h := NewCacheHandler(coordinator, hub, stats, 30*time.Second, 10*time.Millisecond, nil)

	r := gin.New()
	r.GET("/api/values/:tag", h.GetValue)
	r.GET("/api/values/:tag/exists", h.Exists)
	r.GET("/api/values/:tag/ttl", h.TimeLeft)
	r.DELETE("/api/values/:tag", h.Delete)
	r.DELETE("/api/values", h.Clear)
	r.GET("/api/stats", h.GetStats)
	r.GET("/ws/values/:tag", h.Watch)

	return &testEnv{handler: h, router: r, clk: clk, hub: hub, stats: stats}
}

func (e *testEnv) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) getValue(t *testing.T, path string) ValueResponse {
	t.Helper()
	w := e.do(t, http.MethodGet, path)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp ValueResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (e *testEnv) exists(t *testing.T, tag string) bool {
	t.Helper()
	w := e.do(t, http.MethodGet, "/api/values/"+tag+"/exists")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Exists bool `json:"exists"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Exists
}

func TestGetValue_CachesUntilExpiry(t *testing.T) {
	e := newTestEnv(t)

	first := e.getValue(t, "/api/values/report?ttl=2s")
	require.False(t, first.Cached)
	require.Equal(t, "report", first.Value.Tag)
	require.NotNil(t, first.RemainingMs)
	require.Equal(t, int64(2000), *first.RemainingMs)

	second := e.getValue(t, "/api/values/report?ttl=2s")
	require.True(t, second.Cached)
	require.Equal(t, first.Value.Sequence, second.Value.Sequence)

	e.clk.Advance(2 * time.Second)
	require.Eventually(t, func() bool { return !e.exists(t, "report") }, waitFor, 5*time.Millisecond)

	third := e.getValue(t, "/api/values/report?ttl=2s")
	require.False(t, third.Cached)
	require.Greater(t, third.Value.Sequence, first.Value.Sequence)

	stats := e.stats.Snapshot()
	require.Equal(t, int64(1), stats.Hits)
	require.Equal(t, int64(2), stats.Misses)
	require.Eventually(t, func() bool {
		return e.stats.Snapshot().Expirations == 1
	}, waitFor, 5*time.Millisecond)
}

func TestGetValue_TTLNoneNeverCaches(t *testing.T) {
	e := newTestEnv(t)

	a := e.getValue(t, "/api/values/live?ttl=none")
	b := e.getValue(t, "/api/values/live?ttl=none")
	require.False(t, a.Cached)
	require.False(t, b.Cached)
	require.NotEqual(t, a.Value.Sequence, b.Value.Sequence)
	require.Nil(t, a.RemainingMs)
	require.False(t, e.exists(t, "live"))
}

func TestGetValue_TTLNoneIgnoresRunningCountdown(t *testing.T) {
	e := newTestEnv(t)

	cached := e.getValue(t, "/api/values/mixed?ttl=10s")
	require.NotNil(t, cached.RemainingMs)

	bypass := e.getValue(t, "/api/values/mixed?ttl=none")
	require.False(t, bypass.Cached)
	require.Nil(t, bypass.RemainingMs)
}

func TestGetValue_DefaultAndForeverTTL(t *testing.T) {
	e := newTestEnv(t)

	def := e.getValue(t, "/api/values/default")
	require.NotNil(t, def.RemainingMs)
	require.Equal(t, int64(30000), *def.RemainingMs)

	forever := e.getValue(t, "/api/values/pinned?ttl=forever")
	require.Nil(t, forever.RemainingMs)

	// A value without a lifetime is stored but never served from cache.
	require.True(t, e.exists(t, "pinned"))
	again := e.getValue(t, "/api/values/pinned?ttl=forever")
	require.False(t, again.Cached)
}

func TestGetValue_InvalidTTL(t *testing.T) {
	e := newTestEnv(t)

	require.Equal(t, http.StatusBadRequest, e.do(t, http.MethodGet, "/api/values/x?ttl=soon").Code)
	require.Equal(t, http.StatusBadRequest, e.do(t, http.MethodGet, "/api/values/x?ttl=-1s").Code)
}

func TestGetValue_ProducerFailureIsNotCached(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/api/values/flaky?ttl=5s&fail=true")
	require.Equal(t, http.StatusBadGateway, w.Code)
	require.False(t, e.exists(t, "flaky"))
	require.Equal(t, int64(1), e.stats.Snapshot().ProducerFailures)
}

func TestTimeLeft(t *testing.T) {
	e := newTestEnv(t)

	require.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/values/x/ttl").Code)

	e.getValue(t, "/api/values/x?ttl=10s")
	w := e.do(t, http.MethodGet, "/api/values/x/ttl")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		RemainingMs int64 `json:"remainingMs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, int64(10000), resp.RemainingMs)
}

func TestDeleteAndClear(t *testing.T) {
	e := newTestEnv(t)

	e.getValue(t, "/api/values/a?ttl=10s")
	e.getValue(t, "/api/values/b?ttl=10s")

	require.Equal(t, http.StatusOK, e.do(t, http.MethodDelete, "/api/values/a").Code)
	require.False(t, e.exists(t, "a"))
	require.True(t, e.exists(t, "b"))
	require.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/values/a/ttl").Code)

	require.Equal(t, http.StatusOK, e.do(t, http.MethodDelete, "/api/values").Code)
	require.False(t, e.exists(t, "b"))
	require.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/values/b/ttl").Code)
}

func TestGetStats(t *testing.T) {
	e := newTestEnv(t)
	e.getValue(t, "/api/values/s?ttl=10s")
	e.getValue(t, "/api/values/s?ttl=10s")

	w := e.do(t, http.MethodGet, "/api/stats")
	require.Equal(t, http.StatusOK, w.Code)
	var resp StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, StatsResponse{Hits: 1, Misses: 1}, resp)
}
