package session

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// CookieName is the HTTP cookie holding the session token.
const CookieName = "identity_session"

// TokenFromRequest reads the session token from the cookie.
func TokenFromRequest(c echo.Context) string {
	cookie, err := c.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	return cookie.Value
}

// SetCookie sets the session cookie on the response. The cookie is
// HttpOnly, Secure behind TLS, and SameSite=Lax so the redirect back from
// the authorization backend still carries it.
func SetCookie(c echo.Context, token string, ttl time.Duration) {
	req := c.Request()
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	})
}

// ClearCookie removes the session cookie.
func ClearCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
