package middleware

import (
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/exam-reservation/internal/auth"
    "github.com/iliyamo/exam-reservation/internal/model"
)

// callerID names the caller for rate limiting: "member:12" or "admin:3"
// for a valid bearer token, "ip:<addr>" otherwise.  The token is read
// directly because the limiter runs before any route's Authenticate.  An
// invalid token counts as anonymous; Authenticate rejects it later.
func callerID(c echo.Context, tokens *auth.TokenService) string {
    if idx, ok := SubjectIdx(c); ok {
        role, _ := c.Get(RoleKey).(model.Role)
        return subjectKey(role, idx)
    }
    if tokens != nil {
        if raw, ok := bearerToken(c); ok {
            if idx, role, err := tokens.Identify(raw); err == nil {
                return subjectKey(role, idx)
            }
        }
    }
    return "ip:" + clientIP(c)
}

func subjectKey(role model.Role, idx uint64) string {
    return string(role) + ":" + strconv.FormatUint(idx, 10)
}

func clientIP(c echo.Context) string {
    if ip := c.RealIP(); ip != "" {
        return ip
    }
    return "unknown"
}

// bearerToken extracts the JWT from "Authorization: Bearer <token>".
func bearerToken(c echo.Context) (string, bool) {
    header := c.Request().Header.Get(echo.HeaderAuthorization)
    if !strings.HasPrefix(header, "Bearer ") {
        return "", false
    }
    raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
    return raw, raw != ""
}
