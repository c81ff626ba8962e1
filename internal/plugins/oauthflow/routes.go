package oauthflow

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up the login, consent and logout routes. Each route
// is entered with a backend challenge, never with a local session.
//
// The POST /login limiter guards against credential stuffing.
func RegisterRoutes(e *echo.Echo, h *Handler, formLimit echo.MiddlewareFunc) {
	e.GET("/login", h.LoginForm)
	e.POST("/login", h.Login, formLimit)
	e.GET("/logout", h.Logout)
	e.GET("/consent", h.ConsentForm)
	e.POST("/consent", h.Consent)
}
