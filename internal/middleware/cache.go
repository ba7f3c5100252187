package middleware

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/notes-service/internal/config"
)

// invalidateTimeout bounds the generation bump that follows a write.
const invalidateTimeout = 2 * time.Second

// storeIfCurrent caches a list only when no write has bumped the
// generation since the read began.  A read racing a write therefore never
// stores the snapshot it took before the write.
var storeIfCurrent = redis.NewScript(`
local gen = redis.call('GET', KEYS[1]) or '0'
if gen ~= ARGV[1] then
    return 0
end
redis.call('HSET', KEYS[2], 'type', ARGV[2], 'body', ARGV[3])
redis.call('PEXPIRE', KEYS[2], ARGV[4])
return 1
`)

// NotesCache caches GET /notes responses in Redis.  Entries are keyed by
// route and generation; Invalidate bumps the generation so every older
// entry is unreachable and simply expires with its TTL.
type NotesCache struct {
	cfg config.CacheConfig
	rdb *redis.Client
	log *zap.Logger
}

// NewNotesCache returns a cache.  With the cache disabled or a nil client
// both middlewares pass requests through untouched.
func NewNotesCache(cfg config.CacheConfig, rdb *redis.Client, log *zap.Logger) *NotesCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &NotesCache{cfg: cfg, rdb: rdb, log: log}
}

func (nc *NotesCache) active() bool { return nc.cfg.Enabled && nc.rdb != nil }

func (nc *NotesCache) genKey() string { return nc.cfg.Prefix + ":gen" }

func (nc *NotesCache) entryKey(route, gen string) string {
	return nc.cfg.Prefix + ":" + route + ":" + gen
}

// bodyRecorder keeps a copy of what the handler writes, up to limit bytes.
// A body that outgrows the limit is marked and never cached, so a hit can
// never replay a truncated JSON array.
type bodyRecorder struct {
	http.ResponseWriter
	buf      bytes.Buffer
	limit    int
	overflow bool
}

func (br *bodyRecorder) Write(b []byte) (int, error) {
	if !br.overflow {
		if br.limit > 0 && br.buf.Len()+len(b) > br.limit {
			br.overflow = true
			br.buf.Reset()
		} else {
			br.buf.Write(b)
		}
	}
	return br.ResponseWriter.Write(b)
}

// Read serves GET requests from the cache and stores successful responses.
// Responses carry X-Cache: HIT or MISS.  Redis errors degrade to a miss.
func (nc *NotesCache) Read() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if !nc.active() {
			return next
		}
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}
			ctx := c.Request().Context()

			gen, err := nc.rdb.Get(ctx, nc.genKey()).Result()
			switch {
			case err == redis.Nil:
				gen = "0"
			case err != nil:
				nc.log.Debug("cache: generation lookup failed", zap.Error(err))
				return next(c)
			}
			key := nc.entryKey(c.Path(), gen)

			if hit, err := nc.rdb.HGetAll(ctx, key).Result(); err == nil && hit["body"] != "" {
				c.Response().Header().Set("X-Cache", "HIT")
				return c.Blob(http.StatusOK, hit["type"], []byte(hit["body"]))
			}

			rec := &bodyRecorder{ResponseWriter: c.Response().Writer, limit: nc.cfg.MaxBodyBytes}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if c.Response().Status != http.StatusOK || rec.overflow || rec.buf.Len() == 0 {
				return nil
			}

			ttl := strconv.FormatInt(nc.cfg.TTL.Milliseconds(), 10)
			contentType := c.Response().Header().Get(echo.HeaderContentType)
			if err := storeIfCurrent.Run(context.WithoutCancel(ctx), nc.rdb,
				[]string{nc.genKey(), key}, gen, contentType, rec.buf.String(), ttl).Err(); err != nil {
				nc.log.Debug("cache: store failed", zap.String("key", key), zap.Error(err))
			}
			return nil
		}
	}
}

// Invalidate bumps the generation after a write handler succeeds, so the
// next read misses and sees the new data.  A failed bump is logged; stale
// lists then live until their TTL runs out.
func (nc *NotesCache) Invalidate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if !nc.active() {
			return next
		}
		return func(c echo.Context) error {
			if err := next(c); err != nil {
				return err
			}
			if st := c.Response().Status; st < 200 || st >= 300 {
				return nil
			}
			ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), invalidateTimeout)
			defer cancel()
			if err := nc.rdb.Incr(ctx, nc.genKey()).Err(); err != nil {
				nc.log.Warn("cache: invalidate failed; cached lists stay stale until TTL",
					zap.String("key", nc.genKey()), zap.Duration("ttl", nc.cfg.TTL), zap.Error(err))
			}
			return nil
		}
	}
}
