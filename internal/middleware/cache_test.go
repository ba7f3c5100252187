package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/notes-service/internal/config"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func cacheConfig() config.CacheConfig {
	return config.CacheConfig{Enabled: true, TTL: time.Minute, Prefix: "notes-cache", MaxBodyBytes: 1 << 20}
}

// listServer serves a list of strings behind the cache.  beforeWrite, when
// set, runs inside the GET handler after the list has been read.
type listServer struct {
	mu          sync.Mutex
	items       []string
	reads       int
	beforeWrite func()
	e           *echo.Echo
}

func newListServer(cache *NotesCache, items ...string) *listServer {
	s := &listServer{items: items, e: echo.New()}
	s.e.GET("/notes", func(c echo.Context) error {
		s.mu.Lock()
		s.reads++
		snapshot := append([]string{}, s.items...)
		hook := s.beforeWrite
		s.mu.Unlock()
		if hook != nil {
			hook()
		}
		return c.JSON(http.StatusOK, snapshot)
	}, cache.Read())
	s.e.POST("/notes", func(c echo.Context) error {
		s.mu.Lock()
		s.items = append(s.items, "new")
		s.mu.Unlock()
		return c.NoContent(http.StatusCreated)
	}, cache.Invalidate())
	return s
}

func (s *listServer) get() *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notes", nil))
	return rec
}

func (s *listServer) post() *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/notes", strings.NewReader("")))
	return rec
}

func (s *listServer) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func TestNotesCache_HitThenInvalidatedByWrite(t *testing.T) {
	s := newListServer(NewNotesCache(cacheConfig(), newRedis(t), zap.NewNop()), "a")

	first := s.get()
	second := s.get()

	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, first.Header().Get(echo.HeaderContentType), second.Header().Get(echo.HeaderContentType))
	assert.Equal(t, 1, s.readCount())

	require.Equal(t, http.StatusCreated, s.post().Code)

	third := s.get()
	assert.Equal(t, "MISS", third.Header().Get("X-Cache"))
	assert.JSONEq(t, `["a","new"]`, third.Body.String())
}

func TestNotesCache_OversizedListIsNeverCached(t *testing.T) {
	cfg := cacheConfig()
	cfg.MaxBodyBytes = 16
	s := newListServer(NewNotesCache(cfg, newRedis(t), zap.NewNop()), "aaaaaaaaaa", "bbbbbbbbbb")

	for i := 0; i < 3; i++ {
		rec := s.get()
		assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
		var got []string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got), "body must be complete JSON")
		assert.Equal(t, []string{"aaaaaaaaaa", "bbbbbbbbbb"}, got)
	}
	assert.Equal(t, 3, s.readCount())
}

func TestNotesCache_ReadRacingWriteDoesNotCacheStaleList(t *testing.T) {
	s := newListServer(NewNotesCache(cacheConfig(), newRedis(t), zap.NewNop()))

	read := make(chan struct{})
	release := make(chan struct{})
	s.beforeWrite = func() {
		close(read)
		<-release
	}

	done := make(chan *httptest.ResponseRecorder)
	go func() { done <- s.get() }()

	<-read // the GET holds its pre-write snapshot
	s.mu.Lock()
	s.beforeWrite = nil
	s.mu.Unlock()
	require.Equal(t, http.StatusCreated, s.post().Code)
	close(release)

	stale := <-done
	assert.JSONEq(t, `[]`, stale.Body.String())

	next := s.get()
	assert.Equal(t, "MISS", next.Header().Get("X-Cache"))
	assert.JSONEq(t, `["new"]`, next.Body.String())
	assert.Equal(t, "HIT", s.get().Header().Get("X-Cache"))
}

func TestNotesCache_DoesNotStoreErrors(t *testing.T) {
	calls := 0
	e := echo.New()
	e.GET("/notes", func(c echo.Context) error {
		calls++
		return c.String(http.StatusInternalServerError, "DB find error: down")
	}, NewNotesCache(cacheConfig(), newRedis(t), nil).Read())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notes", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	}
	assert.Equal(t, 2, calls)
}

func TestNotesCache_PassThrough(t *testing.T) {
	tests := []struct {
		name  string
		cfg   config.CacheConfig
		redis bool
	}{
		{name: "enabled without a client", cfg: cacheConfig(), redis: false},
		{name: "disabled", cfg: config.CacheConfig{}, redis: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rdb *redis.Client
			if tt.redis {
				rdb = newRedis(t)
			}
			s := newListServer(NewNotesCache(tt.cfg, rdb, nil), "a")

			for i := 0; i < 2; i++ {
				rec := s.get()
				assert.Equal(t, http.StatusOK, rec.Code)
				assert.Empty(t, rec.Header().Get("X-Cache"))
			}
			assert.Equal(t, http.StatusCreated, s.post().Code)
			assert.Equal(t, 2, s.readCount())
		})
	}
}

func TestNotesCache_InvalidateFailureIsLogged(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	core, logs := observer.New(zapcore.DebugLevel)
	s := newListServer(NewNotesCache(cacheConfig(), rdb, zap.New(core)))

	mr.Close()
	rec := s.post()

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, logs.FilterMessageSnippet("cache: invalidate failed").Len())
}
