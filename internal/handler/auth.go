package handler

import (
    "context"
    "log/slog"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/exam-reservation/internal/middleware"
    "github.com/iliyamo/exam-reservation/internal/service"
)

// requestTimeout bounds the database work of a single request.
const requestTimeout = 5 * time.Second

// AuthHandler serves registration, login and profile endpoints for one
// subject kind.  The member and admin routes use separate instances.
type AuthHandler struct {
    Identities *service.IdentityService
    Logger     *slog.Logger
}

// NewAuthHandler returns an AuthHandler for svc.
func NewAuthHandler(svc *service.IdentityService, logger *slog.Logger) *AuthHandler {
    if svc == nil {
        panic("nil identity service passed to NewAuthHandler")
    }
    if logger == nil {
        logger = slog.Default()
    }
    return &AuthHandler{Identities: svc, Logger: logger}
}

// ----- DTOs -----

type registerReq struct {
    ID       string `json:"id"`
    Name     string `json:"name"`
    Password string `json:"password"`
}

type loginReq struct {
    ID       string `json:"id"`
    Password string `json:"password"`
}

// Register handles POST /users and POST /admin/users.  It answers 201 with
// the created record.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    subject, err := h.Identities.Register(ctx, req.ID, req.Name, req.Password)
    if err != nil {
        return respondError(c, h.Logger, err)
    }
    return c.JSON(http.StatusCreated, subject)
}

// Login handles POST /login and POST /admin/login.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    if req.ID == "" || req.Password == "" {
        return badRequest(c, "id and password are required")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    tok, err := h.Identities.Login(ctx, req.ID, req.Password)
    if err != nil {
        return respondError(c, h.Logger, err)
    }
    return c.JSON(http.StatusOK, tok)
}

// Me handles GET /users/my and returns the caller's own record.
func (h *AuthHandler) Me(c echo.Context) error {
    idx, ok := middleware.SubjectIdx(c)
    if !ok {
        return respondError(c, h.Logger, service.ErrUnauthenticated)
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    subject, err := h.Identities.Profile(ctx, idx)
    if err != nil {
        return respondError(c, h.Logger, err)
    }
    return c.JSON(http.StatusOK, subject)
}
