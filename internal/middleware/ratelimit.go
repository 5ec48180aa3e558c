package middleware

import (
    "log/slog"
    "math"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/exam-reservation/internal/auth"
    "github.com/iliyamo/exam-reservation/internal/config"
)

// takeToken refills the bucket at KEYS[1] by whole intervals, then takes
// one token if any is left.
//
//  ARGV: now_ms, capacity, refill_tokens, interval_ms, ttl_s
//  returns {allowed (0|1), remaining, retry_after_ms}
var takeToken = redis.NewScript(`
local now = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill = tonumber(ARGV[3])
local interval = tonumber(ARGV[4])

local tokens = tonumber(redis.call('HGET', KEYS[1], 'tokens'))
local last = tonumber(redis.call('HGET', KEYS[1], 'last_ms'))
if not tokens or not last then
    tokens, last = capacity, now
end

local steps = math.floor(math.max(0, now - last) / interval)
if steps > 0 then
    tokens = math.min(capacity, tokens + steps * refill)
    last = last + steps * interval
end

local allowed, wait = 0, 0
if tokens >= 1 then
    allowed, tokens = 1, tokens - 1
else
    wait = math.max(0, interval - (now - last))
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'last_ms', last)
redis.call('EXPIRE', KEYS[1], tonumber(ARGV[5]))
return {allowed, tokens, wait}
`)

// NewTokenBucket limits requests with a Redis token bucket per caller, as
// chosen by cfg.KeyStrategy.  Callers presenting a valid member or admin
// token get their own bucket; everyone else is bucketed by client IP.  The
// limiter fails open: without a client, or when Redis errors, requests
// pass.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, tokens *auth.TokenService, logger *slog.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    if logger == nil {
        logger = slog.Default()
    }
    limit := strconv.Itoa(cfg.Capacity)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c, tokens)
            res, err := takeToken.Run(c.Request().Context(), rdb, []string{key},
                time.Now().UnixMilli(),
                cfg.Capacity,
                cfg.RefillTokens,
                cfg.RefillInterval.Milliseconds(),
                int64(cfg.TTL/time.Second),
            ).Int64Slice()
            if err != nil || len(res) != 3 {
                logger.Warn("rate limit check skipped", "key", key, "err", err)
                return next(c)
            }
            allowed, remaining, waitMs := res[0] == 1, res[1], res[2]

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", limit)
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
            if cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }
            if allowed {
                return next(c)
            }

            retry := int(math.Ceil(float64(waitMs) / 1000))
            h.Set("Retry-After", strconv.Itoa(retry))
            if cfg.Debug {
                logger.Info("rate limited", "key", key, "retry_ms", waitMs)
            }
            return c.JSON(http.StatusTooManyRequests, echo.Map{
                "error":       "too_many_requests",
                "message":     "rate limit exceeded",
                "retry_after": retry,
            })
        }
    }
}

// buildRateKey joins the prefix with the parts named by the strategy.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context, tokens *auth.TokenService) string {
    key := cfg.Prefix
    switch cfg.KeyStrategy {
    case config.RateKeyIP:
        key += ":ip:" + clientIP(c)
    case config.RateKeyCaller:
        key += ":" + callerID(c, tokens)
    case config.RateKeyIPRoute:
        key += ":ip:" + clientIP(c) + ":route:" + c.Request().Method + " " + c.Path()
    default:
        key += ":" + callerID(c, tokens) + ":route:" + c.Request().Method + " " + c.Path()
    }
    return key
}
