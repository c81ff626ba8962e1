package middleware

import (
	"context"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// LayoutInjector copies layout-relevant data from the Echo context (the
// CSRF token, the presence of a session cookie) into the Go context that
// page components render with. Registered once at startup in
// app/routes.go, so this package never imports the templates package.
var LayoutInjector func(echo.Context, context.Context) context.Context

// Render writes a templ component to the response with the given status
// code, running the LayoutInjector first when one is registered.
func Render(c echo.Context, statusCode int, component templ.Component) error {
	ctx := c.Request().Context()
	if LayoutInjector != nil {
		ctx = LayoutInjector(c, ctx)
	}

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(statusCode)
	return component.Render(ctx, c.Response().Writer)
}
