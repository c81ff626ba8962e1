package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/identity/internal/apperror"
)

const (
	// csrfTokenLength is the number of random bytes in a token (64 hex chars).
	csrfTokenLength = 32

	// CSRFCookieName is the cookie holding the token.
	CSRFCookieName = "identity_csrf"

	// CSRFFormField is the hidden field every form echoes the token in.
	CSRFFormField = "csrf_token"

	csrfContextKey = "csrf_token"
)

// CSRF returns middleware implementing the double-submit cookie pattern.
// Every request gets a token cookie; POSTs must echo it in the csrf_token
// form field or are rejected with 403.
func CSRF() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			var cookieToken string
			if cookie, err := req.Cookie(CSRFCookieName); err == nil && cookie.Value != "" {
				cookieToken = cookie.Value
			} else {
				token, err := generateCSRFToken()
				if err != nil {
					return apperror.NewInternal(err)
				}
				c.SetCookie(&http.Cookie{
					Name:     CSRFCookieName,
					Value:    token,
					Path:     "/",
					HttpOnly: true,
					Secure:   req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https",
					SameSite: http.SameSiteLaxMode,
				})
				c.Set(csrfContextKey, token)

				// A fresh cookie cannot match anything the browser submitted.
				if !isSafeMethod(req.Method) {
					return echo.NewHTTPError(http.StatusForbidden, "invalid or missing CSRF token")
				}
				return next(c)
			}
			c.Set(csrfContextKey, cookieToken)

			if isSafeMethod(req.Method) {
				return next(c)
			}

			submitted := req.FormValue(CSRFFormField)
			if submitted == "" || subtle.ConstantTimeCompare([]byte(submitted), []byte(cookieToken)) != 1 {
				return echo.NewHTTPError(http.StatusForbidden, "invalid or missing CSRF token")
			}
			return next(c)
		}
	}
}

// isSafeMethod returns true for HTTP methods that should not change state.
func isSafeMethod(method string) bool {
	return method == http.MethodGet ||
		method == http.MethodHead ||
		method == http.MethodOptions
}

// generateCSRFToken returns a random hex-encoded token.
func generateCSRFToken() (string, error) {
	b := make([]byte, csrfTokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GetCSRFToken returns the request's CSRF token for embedding in forms.
func GetCSRFToken(c echo.Context) string {
	token, _ := c.Get(csrfContextKey).(string)
	return token
}
