package handler

import (
    "log/slog"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/exam-reservation/internal/middleware"
    "github.com/iliyamo/exam-reservation/internal/service"
)

// statusFor maps a service error kind onto an HTTP status.
func statusFor(kind service.Kind) int {
    switch kind {
    case service.KindUnauthenticated, service.KindInvalidCredentials:
        return http.StatusUnauthorized
    case service.KindNotFound:
        return http.StatusNotFound
    case service.KindConflict, service.KindCapacityExceeded:
        return http.StatusConflict
    case service.KindInvalidArgument:
        return http.StatusBadRequest
    default:
        return http.StatusInternalServerError
    }
}

// respondError writes err as {"error": code, "message": msg}.  Internal
// errors are logged with their cause and answered with a generic body.
func respondError(c echo.Context, logger *slog.Logger, err error) error {
    se := service.AsError(err)
    status := statusFor(se.Kind)
    if status == http.StatusInternalServerError {
        id, _ := c.Get(middleware.RequestIDKey).(string)
        logger.Error("request failed",
            "method", c.Request().Method, "route", c.Path(), "request_id", id, "err", err)
    }
    return c.JSON(status, echo.Map{"error": se.Code, "message": se.Message})
}

func badRequest(c echo.Context, msg string) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_argument", "message": msg})
}
