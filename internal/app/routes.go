package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/identity/internal/middleware"
	"github.com/keyxmakerx/identity/internal/plugins/account"
	"github.com/keyxmakerx/identity/internal/plugins/oauthflow"
	"github.com/keyxmakerx/identity/internal/session"
	"github.com/keyxmakerx/identity/internal/templates/layouts"
)

// RegisterRoutes sets up all application routes. This is the single place
// where plugin routes are aggregated.
func (a *App) RegisterRoutes() {
	e := a.Echo

	// Copy what every page needs from the Echo context into the render
	// context.
	middleware.LayoutInjector = func(c echo.Context, ctx context.Context) context.Context {
		ctx = layouts.WithCSRFToken(ctx, middleware.GetCSRFToken(c))
		return layouts.WithSignedIn(ctx, session.TokenFromRequest(c) != "")
	}

	formLimit := middleware.RateLimit(a.Redis, "forms", a.Config.RateLimit.FormPosts, a.Config.RateLimit.Window)
	requireSession := session.RequireSession(a.Sessions)

	oauthflow.RegisterRoutes(e, a.flows, formLimit)
	account.RegisterRoutes(e, a.accounts, requireSession, formLimit)

	// --- Operations ---

	e.GET("/healthz", a.healthz)
	e.GET("/metrics", echo.WrapHandler(a.Metrics.Handler()))
}

// healthz reports whether MariaDB and Redis answer within two seconds.
func (a *App) healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"database": "ok", "redis": "ok"}
	healthy := true
	if err := a.DB.PingContext(ctx); err != nil {
		slog.Warn("health check: database unreachable", slog.Any("error", err))
		status["database"] = "unreachable"
		healthy = false
	}
	if err := a.Redis.Ping(ctx).Err(); err != nil {
		slog.Warn("health check: redis unreachable", slog.Any("error", err))
		status["redis"] = "unreachable"
		healthy = false
	}

	if !healthy {
		return c.JSON(http.StatusServiceUnavailable, status)
	}
	return c.JSON(http.StatusOK, status)
}
