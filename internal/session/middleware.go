package session

import (
	"errors"
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/identity/internal/apperror"
)

// contextKeySubject is the Echo context key for the authenticated subject.
const contextKeySubject = "session_subject"

// RequireSession returns middleware that verifies the session cookie and
// stores its subject in the Echo context. A missing or invalid cookie is an
// authorization error; there is no fallback to an anonymous request.
func RequireSession(m *Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := TokenFromRequest(c)
			if token == "" {
				return apperror.NewUnauthorized("sign-in required")
			}

			claims, err := m.Verify(c.Request().Context(), token)
			if errors.Is(err, ErrInvalidSession) {
				ClearCookie(c)
				return apperror.NewUnauthorized("sign-in required")
			}
			if err != nil {
				slog.Error("session verification failed", slog.Any("error", err))
				return apperror.NewInternal(err)
			}

			SetSubject(c, claims.Subject)
			return next(c)
		}
	}
}

// SetSubject stores the authenticated subject in the Echo context.
func SetSubject(c echo.Context, subject string) {
	c.Set(contextKeySubject, subject)
}

// Subject returns the authenticated subject, or "" when RequireSession did
// not run.
func Subject(c echo.Context) string {
	subject, _ := c.Get(contextKeySubject).(string)
	return subject
}
