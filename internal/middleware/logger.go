package middleware

import (
    "log/slog"
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/exam-reservation/internal/metrics"
)

// RequestIDKey is the context key holding the request id.
const RequestIDKey = "request_id"

// RequestID reuses an incoming X-Request-ID header or assigns a random UUID,
// echoes it in the response and stores it in the context.
func RequestID() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            id := c.Request().Header.Get(echo.HeaderXRequestID)
            if id == "" {
                id = uuid.NewString()
            }
            c.Set(RequestIDKey, id)
            c.Response().Header().Set(echo.HeaderXRequestID, id)
            return next(c)
        }
    }
}

// RequestLogger writes one structured log line per request and counts it
// in m.
func RequestLogger(logger *slog.Logger, m *metrics.Metrics) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                // let the HTTP error handler write the response so the
                // status below is final
                c.Error(err)
            }
            status := c.Response().Status
            route := c.Path()
            m.ObserveRequest(c.Request().Method, route, status)

            level := slog.LevelInfo
            if status >= 500 {
                level = slog.LevelError
            }
            id, _ := c.Get(RequestIDKey).(string)
            logger.LogAttrs(c.Request().Context(), level, "request",
                slog.String("request_id", id),
                slog.String("method", c.Request().Method),
                slog.String("path", c.Request().URL.Path),
                slog.String("route", route),
                slog.Int("status", status),
                slog.Duration("latency", time.Since(start)),
                slog.String("remote_ip", c.RealIP()),
            )
            return nil
        }
    }
}
