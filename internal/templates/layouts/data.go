// Package layouts carries request-scoped layout data from Echo middleware
// into the Go context that page components render with. Only simple types
// are stored, so this package imports nothing from the plugins.
//
// Data flow: Middleware → Echo Context → LayoutInjector → Go Context → page
package layouts

import "context"

// ctxKey is a private type for context keys to prevent collisions.
type ctxKey string

const (
	keyCSRFToken ctxKey = "layout_csrf_token"
	keySignedIn  ctxKey = "layout_signed_in"
)

// WithCSRFToken stores the CSRF token every form must echo back.
func WithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, keyCSRFToken, token)
}

// CSRFToken returns the stored CSRF token, or "".
func CSRFToken(ctx context.Context) string {
	token, _ := ctx.Value(keyCSRFToken).(string)
	return token
}

// WithSignedIn records whether the browser carries a session cookie.
func WithSignedIn(ctx context.Context, signedIn bool) context.Context {
	return context.WithValue(ctx, keySignedIn, signedIn)
}

// SignedIn reports whether the browser carries a session cookie.
func SignedIn(ctx context.Context) bool {
	signedIn, _ := ctx.Value(keySignedIn).(bool)
	return signedIn
}
