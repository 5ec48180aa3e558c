package handler

import (
    "context"
    "log/slog"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/exam-reservation/internal/middleware"
    "github.com/iliyamo/exam-reservation/internal/service"
)

// ReservationHandler serves the member and admin reservation endpoints.  It
// assumes Authenticate has run for the matching role.
type ReservationHandler struct {
    Reservations *service.ReservationService
    Logger       *slog.Logger
    now          func() time.Time
}

// NewReservationHandler returns a ReservationHandler.
func NewReservationHandler(reservations *service.ReservationService, logger *slog.Logger) *ReservationHandler {
    if reservations == nil {
        panic("nil reservation service passed to NewReservationHandler")
    }
    if logger == nil {
        logger = slog.Default()
    }
    return &ReservationHandler{Reservations: reservations, Logger: logger, now: time.Now}
}

type memoReq struct {
    Memo *string `json:"memo"`
}

// adminModifyReq sets the memo and/or confirms.  Confirm without
// ConfirmedAt confirms at the current time.
type adminModifyReq struct {
    Memo        *string    `json:"memo"`
    ConfirmedAt *time.Time `json:"confirmed_at"`
    Confirm     bool       `json:"confirm"`
}

// pathIdx parses a positive numeric path parameter.
func pathIdx(c echo.Context, name string) (uint64, bool) {
    v, err := strconv.ParseUint(c.Param(name), 10, 64)
    return v, err == nil && v != 0
}

// Create handles POST /reservation/:examIdx.
func (h *ReservationHandler) Create(c echo.Context) error {
    memberIdx, ok := middleware.SubjectIdx(c)
    if !ok {
        return respondError(c, h.Logger, service.ErrUnauthenticated)
    }
    examIdx, ok := pathIdx(c, "examIdx")
    if !ok {
        return badRequest(c, "invalid exam id")
    }
    var req memoReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    res, err := h.Reservations.Create(ctx, memberIdx, examIdx, req.Memo)
    if err != nil {
        return respondError(c, h.Logger, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"reservation": res, "state": res.State()})
}

// Modify handles PUT /reservation/:examIdx.
func (h *ReservationHandler) Modify(c echo.Context) error {
    memberIdx, ok := middleware.SubjectIdx(c)
    if !ok {
        return respondError(c, h.Logger, service.ErrUnauthenticated)
    }
    examIdx, ok := pathIdx(c, "examIdx")
    if !ok {
        return badRequest(c, "invalid exam id")
    }
    var req memoReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    res, err := h.Reservations.Modify(ctx, memberIdx, examIdx, req.Memo)
    if err != nil {
        return respondError(c, h.Logger, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"reservation": res, "state": res.State()})
}

// Cancel handles DELETE /reservation/:examIdx.
func (h *ReservationHandler) Cancel(c echo.Context) error {
    memberIdx, ok := middleware.SubjectIdx(c)
    if !ok {
        return respondError(c, h.Logger, service.ErrUnauthenticated)
    }
    examIdx, ok := pathIdx(c, "examIdx")
    if !ok {
        return badRequest(c, "invalid exam id")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    if err := h.Reservations.Cancel(ctx, memberIdx, examIdx); err != nil {
        return respondError(c, h.Logger, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// ListMine handles GET /reservation/my.
func (h *ReservationHandler) ListMine(c echo.Context) error {
    memberIdx, ok := middleware.SubjectIdx(c)
    if !ok {
        return respondError(c, h.Logger, service.ErrUnauthenticated)
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    out, err := h.Reservations.ListMine(ctx, memberIdx)
    if err != nil {
        return respondError(c, h.Logger, err)
    }
    return c.JSON(http.StatusOK, out)
}

// AdminList handles GET /admin/reservation.
func (h *ReservationHandler) AdminList(c echo.Context) error {
    adminIdx, ok := middleware.SubjectIdx(c)
    if !ok {
        return respondError(c, h.Logger, service.ErrUnauthenticated)
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    out, err := h.Reservations.AdminList(ctx, adminIdx)
    if err != nil {
        return respondError(c, h.Logger, err)
    }
    return c.JSON(http.StatusOK, out)
}

// AdminModify handles PUT /admin/reservation/:examIdx/:memberIdx.
func (h *ReservationHandler) AdminModify(c echo.Context) error {
    adminIdx, ok := middleware.SubjectIdx(c)
    if !ok {
        return respondError(c, h.Logger, service.ErrUnauthenticated)
    }
    examIdx, ok1 := pathIdx(c, "examIdx")
    memberIdx, ok2 := pathIdx(c, "memberIdx")
    if !ok1 || !ok2 {
        return badRequest(c, "invalid exam or member id")
    }
    var req adminModifyReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    confirmAt := req.ConfirmedAt
    if confirmAt == nil && req.Confirm {
        now := h.now()
        confirmAt = &now
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    res, err := h.Reservations.AdminModify(ctx, adminIdx, examIdx, memberIdx, req.Memo, confirmAt)
    if err != nil {
        return respondError(c, h.Logger, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"reservation": res, "state": res.State()})
}

// AdminCancel handles DELETE /admin/reservation/:examIdx/:memberIdx.
func (h *ReservationHandler) AdminCancel(c echo.Context) error {
    adminIdx, ok := middleware.SubjectIdx(c)
    if !ok {
        return respondError(c, h.Logger, service.ErrUnauthenticated)
    }
    examIdx, ok1 := pathIdx(c, "examIdx")
    memberIdx, ok2 := pathIdx(c, "memberIdx")
    if !ok1 || !ok2 {
        return badRequest(c, "invalid exam or member id")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    if err := h.Reservations.AdminCancel(ctx, adminIdx, examIdx, memberIdx); err != nil {
        return respondError(c, h.Logger, err)
    }
    return c.NoContent(http.StatusNoContent)
}
