package middleware // middleware provides shared request processing for handlers

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/exam-reservation/internal/auth"
    "github.com/iliyamo/exam-reservation/internal/model"
)

// Context keys set by Authenticate.
const (
    SubjectKey = "subject_idx"
    RoleKey    = "role"
)

// Authenticate returns an Echo middleware that validates a Bearer access
// token issued for role and stores the subject index and role in the
// context.  Handlers read them back with SubjectIdx.  Member tokens never
// pass an admin check and vice versa; both cases answer 401.
func Authenticate(tokens *auth.TokenService, role model.Role) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw, ok := bearerToken(c)
            if !ok {
                return unauthorized(c, "missing bearer token")
            }

            idx, err := tokens.Verify(raw, role)
            if err != nil {
                if errors.Is(err, auth.ErrWrongRole) {
                    return unauthorized(c, "token is not valid for this resource")
                }
                return unauthorized(c, "invalid or expired token")
            }
            c.Set(SubjectKey, idx)
            c.Set(RoleKey, role)
            return next(c)
        }
    }
}

// SubjectIdx returns the authenticated subject index stored by Authenticate.
func SubjectIdx(c echo.Context) (uint64, bool) {
    idx, ok := c.Get(SubjectKey).(uint64)
    return idx, ok && idx != 0
}

func unauthorized(c echo.Context, msg string) error {
    return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated", "message": msg})
}
