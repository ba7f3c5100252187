package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/notes-service/internal/config"
)

// takeToken refills the bucket in KEYS[1] for the whole intervals elapsed
// since its last refill, then spends one token if it can.
// ARGV: now_ms, capacity, refill_tokens, interval_ms, ttl_ms.
// Returns {allowed (0|1), tokens left, ms until the next refill}.
var takeToken = redis.NewScript(`
local now, cap, refill, interval, ttl =
    tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])

local tokens = tonumber(redis.call('HGET', KEYS[1], 'tokens'))
local stamp = tonumber(redis.call('HGET', KEYS[1], 'stamp'))
if not tokens or not stamp then
    tokens, stamp = cap, now
end

local steps = math.floor(math.max(0, now - stamp) / interval)
if steps > 0 then
    tokens = math.min(cap, tokens + steps * refill)
    stamp = stamp + steps * interval
end

local allowed = 0
if tokens > 0 then
    tokens = tokens - 1
    allowed = 1
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'stamp', stamp)
redis.call('PEXPIRE', KEYS[1], ttl)
return {allowed, tokens, math.max(0, stamp + interval - now)}
`)

// NewTokenBucket limits each client (by IP) per route with a token bucket
// kept in Redis, so every replica of the service shares one budget.  Redis
// errors let the request through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if !cfg.Enabled || rdb == nil {
			return next
		}
		if log == nil {
			log = zap.NewNop()
		}
		limit := strconv.Itoa(cfg.Capacity)
		return func(c echo.Context) error {
			key := bucketKey(cfg.Prefix, c)
			res, err := takeToken.Run(c.Request().Context(), rdb, []string{key},
				time.Now().UnixMilli(), cfg.Capacity, cfg.RefillTokens,
				cfg.RefillInterval.Milliseconds(), cfg.TTL.Milliseconds()).Int64Slice()
			if err != nil || len(res) != 3 {
				log.Debug("ratelimit: bucket unavailable", zap.String("key", key), zap.Error(err))
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(res[1], 10))
			if res[0] == 1 {
				return next(c)
			}

			retry := int(math.Ceil(float64(res[2]) / 1000))
			h.Set("Retry-After", strconv.Itoa(retry))
			log.Debug("ratelimit: rejected", zap.String("key", key), zap.Int("retry_after_s", retry))
			return c.String(http.StatusTooManyRequests, "rate limit exceeded")
		}
	}
}

// bucketKey is <prefix>:<client ip>:<method> <route>.
func bucketKey(prefix string, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	return prefix + ":" + ip + ":" + c.Request().Method + " " + c.Path()
}
