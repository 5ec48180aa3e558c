package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/json"
    "errors"
    "fmt"
    "log/slog"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/exam-reservation/internal/config"
)

const headerXCache = "X-Cache"

// redisOpTimeout bounds cache writes and invalidations that run detached
// from the request context.
const redisOpTimeout = 2 * time.Second

// SearchCache keeps successful exam search responses in Redis.  Entry keys
// embed a generation number; Invalidate bumps it, so every response cached
// before an exam or reservation change is never served again and simply
// expires.  A nil *SearchCache is valid: its middleware passes through and
// Invalidate does nothing.
type SearchCache struct {
    rdb     *redis.Client
    prefix  string
    ttl     time.Duration
    methods map[string]bool
    maxBody int
    logger  *slog.Logger
}

// NewSearchCache returns nil when caching is disabled or Redis is absent.
func NewSearchCache(cfg config.CacheConfig, rdb *redis.Client, logger *slog.Logger) *SearchCache {
    if !cfg.Enabled || rdb == nil {
        return nil
    }
    if logger == nil {
        logger = slog.Default()
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 30 * time.Second
    }
    prefix := cfg.Prefix
    if prefix == "" {
        prefix = "cache"
    }
    return &SearchCache{
        rdb:     rdb,
        prefix:  prefix,
        ttl:     ttl,
        methods: cfg.Methods,
        maxBody: cfg.MaxBodyBytes,
        logger:  logger,
    }
}

// Invalidate starts a new cache generation.
func (s *SearchCache) Invalidate(ctx context.Context) error {
    if s == nil {
        return nil
    }
    ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
    defer cancel()
    return s.rdb.Incr(ctx, s.generationKey()).Err()
}

func (s *SearchCache) generationKey() string { return s.prefix + ":gen" }

func (s *SearchCache) generation(ctx context.Context) (int64, error) {
    gen, err := s.rdb.Get(ctx, s.generationKey()).Int64()
    if errors.Is(err, redis.Nil) {
        return 0, nil
    }
    return gen, err
}

// entryKey identifies a response by generation, method, route and query.
// Query parameters are re-encoded in sorted order so equivalent searches
// share an entry.
func (s *SearchCache) entryKey(gen int64, c echo.Context) string {
    r := c.Request()
    sum := sha1.Sum([]byte(r.Method + " " + c.Path() + "?" + r.URL.Query().Encode()))
    return fmt.Sprintf("%s:%d:%x", s.prefix, gen, sum)
}

type cachedResponse struct {
    Status int         `json:"status"`
    Header http.Header `json:"header"`
    Body   []byte      `json:"body"`
}

// perRequestHeader reports headers that describe one exchange rather than
// the resource, and so are neither stored nor replayed.
func perRequestHeader(name string) bool {
    switch name = http.CanonicalHeaderKey(name); name {
    case echo.HeaderXRequestID, echo.HeaderContentLength, headerXCache, echo.HeaderRetryAfter:
        return true
    }
    return strings.HasPrefix(name, "X-Ratelimit-")
}

// Middleware serves cached responses for the configured methods and stores
// 200 responses that fit in the body limit.
func (s *SearchCache) Middleware() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        if s == nil {
            return next
        }
        return func(c echo.Context) error {
            if !s.methods[c.Request().Method] {
                return next(c)
            }
            ctx := c.Request().Context()
            gen, err := s.generation(ctx)
            if err != nil {
                s.logger.Warn("search cache unavailable", "err", err)
                return next(c)
            }
            key := s.entryKey(gen, c)

            if cached, ok := s.load(ctx, key); ok {
                return replay(c, cached)
            }

            rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: s.maxBody}
            c.Response().Writer = rec
            c.Response().Header().Set(headerXCache, "MISS")
            if err := next(c); err != nil {
                return err
            }
            if rec.status == http.StatusOK && !rec.overflow {
                s.store(context.WithoutCancel(ctx), key, cachedResponse{
                    Status: rec.status,
                    Header: resourceHeaders(c.Response().Header()),
                    Body:   rec.buf.Bytes(),
                })
            }
            return nil
        }
    }
}

func (s *SearchCache) load(ctx context.Context, key string) (cachedResponse, bool) {
    bs, err := s.rdb.Get(ctx, key).Bytes()
    if err != nil {
        if !errors.Is(err, redis.Nil) {
            s.logger.Warn("search cache read failed", "key", key, "err", err)
        }
        return cachedResponse{}, false
    }
    var cr cachedResponse
    if err := json.Unmarshal(bs, &cr); err != nil || cr.Status == 0 {
        return cachedResponse{}, false
    }
    return cr, true
}

func (s *SearchCache) store(ctx context.Context, key string, cr cachedResponse) {
    bs, err := json.Marshal(cr)
    if err != nil {
        return
    }
    ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
    defer cancel()
    if err := s.rdb.Set(ctx, key, bs, s.ttl).Err(); err != nil {
        s.logger.Warn("search cache write failed", "key", key, "err", err)
    }
}

func resourceHeaders(h http.Header) http.Header {
    out := make(http.Header, len(h))
    for k, vals := range h {
        if perRequestHeader(k) {
            continue
        }
        out[k] = append([]string(nil), vals...)
    }
    return out
}

func replay(c echo.Context, cr cachedResponse) error {
    h := c.Response().Header()
    for k, vals := range cr.Header {
        if perRequestHeader(k) {
            continue
        }
        h[k] = append([]string(nil), vals...)
    }
    h.Set(headerXCache, "HIT")
    c.Response().WriteHeader(cr.Status)
    _, err := c.Response().Write(cr.Body)
    return err
}

// bodyRecorder tees the response body into buf up to limit bytes.  Past
// the limit it stops buffering and marks the response as not cacheable.
type bodyRecorder struct {
    http.ResponseWriter
    status   int
    buf      bytes.Buffer
    limit    int
    overflow bool
}

func (w *bodyRecorder) WriteHeader(code int) {
    w.status = code
    w.ResponseWriter.WriteHeader(code)
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
    if !w.overflow {
        if w.limit > 0 && w.buf.Len()+len(b) > w.limit {
            w.overflow = true
            w.buf.Reset()
        } else {
            w.buf.Write(b)
        }
    }
    return w.ResponseWriter.Write(b)
}
