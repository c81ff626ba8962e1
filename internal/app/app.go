// Package app is the application bootstrap and dependency injection root.
// It creates the shared infrastructure clients, constructs every service
// explicitly, and maps errors to responses in one place.
package app

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	netmail "net/mail"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/identity/internal/apperror"
	"github.com/keyxmakerx/identity/internal/config"
	"github.com/keyxmakerx/identity/internal/hydra"
	"github.com/keyxmakerx/identity/internal/metrics"
	"github.com/keyxmakerx/identity/internal/middleware"
	"github.com/keyxmakerx/identity/internal/plugins/account"
	"github.com/keyxmakerx/identity/internal/plugins/audit"
	"github.com/keyxmakerx/identity/internal/plugins/mail"
	"github.com/keyxmakerx/identity/internal/plugins/oauthflow"
	"github.com/keyxmakerx/identity/internal/plugins/users"
	"github.com/keyxmakerx/identity/internal/session"
	"github.com/keyxmakerx/identity/internal/templates"
)

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go and used to register all routes.
type App struct {
	// Config holds the loaded application configuration.
	Config *config.Config

	// DB is the MariaDB connection pool (users, security events).
	DB *sql.DB

	// Redis holds session revocations and rate limit counters.
	Redis *redis.Client

	// Echo is the HTTP server instance.
	Echo *echo.Echo

	// Metrics is the Prometheus registry served on /metrics.
	Metrics *metrics.Metrics

	// Sessions signs and verifies the session cookie.
	Sessions *session.Manager

	flows    *oauthflow.Handler
	accounts *account.Handler
}

// New creates a new App instance, constructs every service from cfg and
// the given clients, and configures the Echo server with global middleware
// and error handling.
func New(cfg *config.Config, db *sql.DB, rdb *redis.Client) *App {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	middleware.TrustedProxies(e, cfg.TrustedProxies)

	m := metrics.New()
	backend := hydra.New(cfg.Hydra.URL, cfg.Hydra.Timeout, hydra.WithMetrics(m))

	userSvc := users.NewUserService(users.NewUserRepository(db), users.NewHasher(cfg.Auth.SecretKey))
	events := audit.NewEventService(audit.NewEventRepository(db))
	sender := mail.NewSender(cfg.BaseURL,
		netmail.Address{Name: cfg.Mail.FromName, Address: cfg.Mail.FromAddress},
		mail.NewTransport(cfg.Mail), m)
	sessions := session.NewManager(cfg.Auth.SecretKey, cfg.BaseURL, cfg.Auth.RememberFor,
		session.NewRedisRevocations(rdb), m)

	flowSvc := oauthflow.NewFlowService(backend, userSvc, events, m, oauthflow.Config{
		RememberFor:      cfg.Auth.RememberFor,
		TrustedClientIDs: cfg.Hydra.TrustedClientIDs,
	})
	accountSvc := account.NewAccountService(userSvc, backend, sender, events)

	app := &App{
		Config:   cfg,
		DB:       db,
		Redis:    rdb,
		Echo:     e,
		Metrics:  m,
		Sessions: sessions,
		flows:    oauthflow.NewHandler(flowSvc, sessions),
		accounts: account.NewHandler(accountSvc, userSvc, cfg.Auth.AllowedReturnHosts),
	}

	app.setupMiddleware()
	e.HTTPErrorHandler = app.errorHandler
	e.StaticFS("/static", templates.Static())

	return app
}

// setupMiddleware registers global middleware on the Echo instance.
// Order matters: outermost (recovery) runs first, innermost (CSRF) runs last.
func (a *App) setupMiddleware() {
	a.Echo.Use(middleware.Recovery())
	a.Echo.Use(middleware.RequestLogger())
	a.Echo.Use(middleware.SecurityHeaders())
	a.Echo.Use(middleware.CSRF())
}

// errorHandler is the custom Echo error handler and the single place where
// errors become responses:
//
//   - input, authorization and internal errors send the browser to the
//     configured failure URL
//   - retryable backend failures render a "try again" page (503)
//   - challenges the backend rejected render a "start over" page (400)
//   - other user-facing errors render the error page with their message
func (a *App) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		// CSRF failures carry a technical message meant for the log.
		message, ok := echoErr.Message.(string)
		if !ok || message == "" || message == http.StatusText(echoErr.Code) || echoErr.Code == http.StatusForbidden {
			message = defaultErrorMessage(echoErr.Code)
		}
		a.renderError(c, templates.ErrorView{Status: echoErr.Code, Message: message})
		return
	}

	appErr := classify(err)
	switch appErr.Type {
	case apperror.TypeBackendUnavailable, apperror.TypeBackendRejected:
		slog.Warn("authorization backend error",
			slog.String("type", appErr.Type),
			slog.Any("error", appErr.Internal),
			slog.String("path", c.Request().URL.Path),
		)
		a.renderError(c, templates.ErrorView{
			Status:      appErr.Code,
			Message:     appErr.Message,
			RestartHint: appErr.Type == apperror.TypeBackendRejected,
		})

	case apperror.TypeBadRequest, apperror.TypeNotFound:
		a.renderError(c, templates.ErrorView{Status: appErr.Code, Message: appErr.Message})

	default:
		level := slog.LevelWarn
		if appErr.Type == apperror.TypeInternal {
			level = slog.LevelError
		}
		slog.Log(c.Request().Context(), level, "flow failed, redirecting to failure page",
			slog.String("type", appErr.Type),
			slog.String("message", appErr.Message),
			slog.Any("internal", appErr.Internal),
			slog.String("path", c.Request().URL.Path),
		)
		if err := c.Redirect(http.StatusFound, a.Config.FailureRedirectURL); err != nil {
			slog.Error("failed to write failure redirect", slog.Any("error", err))
		}
	}
}

// classify turns any error returned by a handler into an AppError.
// Backend errors are split into retryable outages, malformed responses and
// rejected requests; anything unknown is internal.
func classify(err error) *apperror.AppError {
	if appErr, ok := apperror.As(err); ok {
		return appErr
	}

	var backendErr *hydra.BackendError
	if errors.As(err, &backendErr) {
		switch {
		case errors.Is(err, hydra.ErrMalformedResponse):
			return apperror.NewInternal(err)
		case backendErr.Retryable():
			return apperror.NewBackendUnavailable(err)
		default:
			return apperror.NewBackendRejected(err)
		}
	}
	return apperror.NewInternal(err)
}

func (a *App) renderError(c echo.Context, view templates.ErrorView) {
	if err := middleware.Render(c, view.Status, templates.Page(templates.PageError, view)); err != nil {
		slog.Error("failed to render error page", slog.Any("error", err))
	}
}

// defaultErrorMessage returns a user-friendly message for common HTTP status codes
// when no specific message was provided by the error.
func defaultErrorMessage(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "The request was invalid or cannot be processed."
	case http.StatusForbidden:
		return "This form has expired. Go back, reload the page and try again."
	case http.StatusNotFound:
		return "The page you're looking for doesn't exist."
	case http.StatusMethodNotAllowed:
		return "This action is not allowed."
	case http.StatusTooManyRequests:
		return "You're making too many requests. Please slow down."
	case http.StatusServiceUnavailable:
		return "The service is temporarily unavailable. Please try again later."
	default:
		return "An unexpected error occurred."
	}
}

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting identity server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
	)
	return a.Echo.Start(addr)
}
