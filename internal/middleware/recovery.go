package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/identity/internal/apperror"
)

// Recovery returns middleware that turns a panic into an internal error, so
// the browser lands on the failure page instead of a dropped connection.
// The stack trace is logged, never rendered.
func Recovery() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (returnErr error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}

				slog.Error("panic recovered",
					slog.Any("panic", r),
					slog.String("method", c.Request().Method),
					slog.String("path", c.Request().URL.Path),
					slog.String("remote_ip", c.RealIP()),
					slog.String("stack", string(debug.Stack())),
				)
				returnErr = apperror.NewInternal(panicError(r))
			}()

			return next(c)
		}
	}
}

// panicError keeps error panic values in the chain for errors.Is.
func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}
