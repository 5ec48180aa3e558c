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

// ExamHandler serves the public exam search and the admin exam creation.
type ExamHandler struct {
    Exams  *service.ExamService
    Logger *slog.Logger
}

// NewExamHandler returns an ExamHandler.
func NewExamHandler(exams *service.ExamService, logger *slog.Logger) *ExamHandler {
    if exams == nil {
        panic("nil exam service passed to NewExamHandler")
    }
    if logger == nil {
        logger = slog.Default()
    }
    return &ExamHandler{Exams: exams, Logger: logger}
}

type createExamReq struct {
    Title       string    `json:"title"`
    ScheduledAt time.Time `json:"scheduled_at"`
    Capacity    *int64    `json:"capacity"`
}

// Create handles POST /admin/exam.
func (h *ExamHandler) Create(c echo.Context) error {
    adminIdx, ok := middleware.SubjectIdx(c)
    if !ok {
        return respondError(c, h.Logger, service.ErrUnauthenticated)
    }
    var req createExamReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    exam, err := h.Exams.CreateExam(ctx, adminIdx, service.CreateExamInput{
        Title:       req.Title,
        ScheduledAt: req.ScheduledAt,
        Capacity:    req.Capacity,
    })
    if err != nil {
        return respondError(c, h.Logger, err)
    }
    return c.JSON(http.StatusCreated, exam)
}

// Search handles GET /exam.  Query parameters: title (substring), start and
// end (RFC 3339 or YYYY-MM-DD, inclusive), page (1-based) and limit.
func (h *ExamHandler) Search(c echo.Context) error {
    in := service.SearchInput{Title: c.QueryParam("title")}

    var err error
    if in.Start, err = parseTimeParam(c.QueryParam("start"), false); err != nil {
        return badRequest(c, "invalid start")
    }
    if in.End, err = parseTimeParam(c.QueryParam("end"), true); err != nil {
        return badRequest(c, "invalid end")
    }
    if in.Page, err = parseIntParam(c.QueryParam("page")); err != nil {
        return badRequest(c, "invalid page")
    }
    if in.PageSize, err = parseIntParam(c.QueryParam("limit")); err != nil {
        return badRequest(c, "invalid limit")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    out, err := h.Exams.Search(ctx, in)
    if err != nil {
        return respondError(c, h.Logger, err)
    }
    return c.JSON(http.StatusOK, out)
}

// parseTimeParam parses an RFC 3339 timestamp or a bare date.  A bare date
// used as an upper bound covers the whole day.
func parseTimeParam(s string, endOfDay bool) (*time.Time, error) {
    if s == "" {
        return nil, nil
    }
    if t, err := time.Parse(time.RFC3339, s); err == nil {
        return &t, nil
    }
    d, err := time.Parse(time.DateOnly, s)
    if err != nil {
        return nil, err
    }
    if endOfDay {
        d = d.Add(24*time.Hour - time.Second)
    }
    return &d, nil
}

// parseIntParam returns 0 for an empty value so the service default applies.
func parseIntParam(s string) (int, error) {
    if s == "" {
        return 0, nil
    }
    n, err := strconv.Atoi(s)
    if err != nil {
        return 0, err
    }
    if n == 0 {
        // an explicit 0 is out of range, not "unset"
        return -1, nil
    }
    return n, nil
}
