// Package oauthflow is the challenge-response adapter between the browser
// and the authorization backend. For each login, consent and logout
// challenge it fetches the request state from the backend, decides with the
// help of the user directory whether to accept or reject, and hands the
// browser the redirect the backend answers with.
package oauthflow

import (
	"context"

	"github.com/keyxmakerx/identity/internal/hydra"
)

// Backend is the part of the authorization backend admin API the flows
// call. *hydra.Client implements it.
type Backend interface {
	GetLoginRequest(ctx context.Context, challenge string) (*hydra.LoginRequest, error)
	AcceptLogin(ctx context.Context, challenge string, body hydra.AcceptLoginRequest) (*hydra.RedirectResponse, error)
	AcceptLogout(ctx context.Context, challenge string) (*hydra.RedirectResponse, error)
	GetConsentRequest(ctx context.Context, challenge string) (*hydra.ConsentRequest, error)
	AcceptConsent(ctx context.Context, challenge string, body hydra.AcceptConsentRequest) (*hydra.RedirectResponse, error)
	RejectConsent(ctx context.Context, challenge string, body hydra.RejectRequest) (*hydra.RedirectResponse, error)
}

// Form error messages shown on the login page.
const (
	msgInvalidCredentials = "The email / password combination is not correct"
	msgInactive           = "Please verify your e-mail address before signing in"
	msgMissingFields      = "Please enter your e-mail address and password"
)

// --- Login ---

// LoginInput is one request to the login page. Submission is nil on GET.
type LoginInput struct {
	Challenge  string
	Submission *LoginSubmission
	RemoteIP   string
}

// LogoutInput is one request to the logout page. Subject comes from the
// local session cookie and is empty when the browser has none.
type LogoutInput struct {
	Challenge string
	Subject   string
	RemoteIP  string
}

// LoginSubmission is the posted login form.
type LoginSubmission struct {
	Email    string
	Password string
	Remember bool
}

// LoginOutcome is either a redirect (RedirectTo set) or the state to
// render the login form with.
type LoginOutcome struct {
	RedirectTo string

	// Subject is the signed-in subject when RedirectTo is set. The handler
	// binds the session cookie to it.
	Subject string

	// Form state when the login page must be (re)rendered.
	Email    string
	Remember bool
	Error    string
}

// Redirected reports whether the flow finished with a redirect.
func (o *LoginOutcome) Redirected() bool {
	return o.RedirectTo != ""
}

// --- Consent ---

// ConsentInput is one request to the consent page. Decision is nil on GET.
type ConsentInput struct {
	Challenge string
	Decision  *ConsentDecision
	RemoteIP  string
}

// ConsentDecision is the posted consent form. Exactly one of Grant or Deny
// is expected; Grant wins when both are set.
type ConsentDecision struct {
	Grant    bool
	Deny     bool
	Remember bool
}

// Scope is one requested scope with its human-readable description.
type Scope struct {
	Name        string
	Description string
}

// ConsentOutcome is either a redirect (RedirectTo set) or the data for the
// consent form.
type ConsentOutcome struct {
	RedirectTo string

	Client hydra.OAuth2Client
	Scopes []Scope
}

// Redirected reports whether the flow finished with a redirect.
func (o *ConsentOutcome) Redirected() bool {
	return o.RedirectTo != ""
}

// --- Form binding ---

// loginForm is the bound POST /login body.
type loginForm struct {
	Email    string `form:"email"`
	Password string `form:"password"`
	Remember bool   `form:"remember"`
}

// consentForm is the bound POST /consent body.
type consentForm struct {
	Grant    bool `form:"grant"`
	Deny     bool `form:"deny"`
	Remember bool `form:"remember"`
}
