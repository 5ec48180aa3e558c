package router // package router defines how HTTP routes are registered for the API

import (
    "log/slog"

    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"

    "github.com/iliyamo/exam-reservation/internal/auth"
    "github.com/iliyamo/exam-reservation/internal/handler"
    "github.com/iliyamo/exam-reservation/internal/metrics"
    "github.com/iliyamo/exam-reservation/internal/middleware"
    "github.com/iliyamo/exam-reservation/internal/model"
)

// Deps collects everything the HTTP surface needs.  RateLimit and Cache may
// be nil, in which case they are skipped.
type Deps struct {
    Logger       *slog.Logger
    Metrics      *metrics.Metrics
    DB           handler.Pinger
    Tokens       *auth.TokenService
    Members      *handler.AuthHandler
    Admins       *handler.AuthHandler
    Exams        *handler.ExamHandler
    Reservations *handler.ReservationHandler
    RateLimit    echo.MiddlewareFunc
    Cache        echo.MiddlewareFunc
}

// New builds the Echo instance with the global middleware chain and every
// route registered.
func New(d Deps) *echo.Echo {
    e := echo.New()
    e.HideBanner = true
    e.HidePort = true

    // request id and logging wrap recovery so panics are logged as 500s
    e.Use(middleware.RequestID())
    e.Use(middleware.RequestLogger(d.Logger, d.Metrics))
    e.Use(echomw.Recover())
    if d.RateLimit != nil {
        e.Use(d.RateLimit)
    }

    RegisterRoutes(e, d.DB, d.Metrics)
    RegisterAuth(e, d.Members, d.Admins, d.Tokens)
    RegisterPublic(e, d.Exams, d.Cache)
    RegisterMember(e, d.Reservations, d.Tokens)
    RegisterAdmin(e, d.Exams, d.Reservations, d.Tokens)
    return e
}

// RegisterRoutes registers operational routes that do not require
// authentication: the health check and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, m *metrics.Metrics) {
    e.GET("/healthz", handler.Health(db))
    if m != nil {
        e.GET("/metrics", echo.WrapHandler(m.Handler()))
    }
}

// RegisterAuth registers registration and login for both subject kinds and
// the member profile endpoint.
func RegisterAuth(e *echo.Echo, members, admins *handler.AuthHandler, tokens *auth.TokenService) {
    e.POST("/users", members.Register)
    e.POST("/login", members.Login)
    e.GET("/users/my", members.Me, middleware.Authenticate(tokens, model.RoleMember))

    e.POST("/admin/users", admins.Register)
    e.POST("/admin/login", admins.Login)
}

// RegisterPublic registers the unauthenticated exam search.  The response
// cache, when present, applies to this route only.
func RegisterPublic(e *echo.Echo, exams *handler.ExamHandler, cache echo.MiddlewareFunc) {
    if cache != nil {
        e.GET("/exam", exams.Search, cache)
        return
    }
    e.GET("/exam", exams.Search)
}
