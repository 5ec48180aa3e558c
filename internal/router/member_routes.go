package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/exam-reservation/internal/auth"
    "github.com/iliyamo/exam-reservation/internal/handler"
    "github.com/iliyamo/exam-reservation/internal/middleware"
    "github.com/iliyamo/exam-reservation/internal/model"
)

// RegisterMember registers the member reservation endpoints.  All routes
// require a member token.  The static /my segment wins over /:examIdx.
func RegisterMember(e *echo.Echo, h *handler.ReservationHandler, tokens *auth.TokenService) {
    g := e.Group("/reservation", middleware.Authenticate(tokens, model.RoleMember))
    g.GET("/my", h.ListMine)
    g.POST("/:examIdx", h.Create)
    g.PUT("/:examIdx", h.Modify)
    g.DELETE("/:examIdx", h.Cancel)
}
