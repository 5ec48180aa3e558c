package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/exam-reservation/internal/auth"
    "github.com/iliyamo/exam-reservation/internal/handler"
    "github.com/iliyamo/exam-reservation/internal/middleware"
    "github.com/iliyamo/exam-reservation/internal/model"
)

// RegisterAdmin registers the administrator endpoints.  /admin/users and
// /admin/login stay public, so the admin check is attached per route rather
// than on an /admin group.
func RegisterAdmin(e *echo.Echo, exams *handler.ExamHandler, h *handler.ReservationHandler, tokens *auth.TokenService) {
    requireAdmin := middleware.Authenticate(tokens, model.RoleAdmin)

    e.POST("/admin/exam", exams.Create, requireAdmin)
    e.GET("/admin/reservation", h.AdminList, requireAdmin)
    e.PUT("/admin/reservation/:examIdx/:memberIdx", h.AdminModify, requireAdmin)
    e.DELETE("/admin/reservation/:examIdx/:memberIdx", h.AdminCancel, requireAdmin)
}
