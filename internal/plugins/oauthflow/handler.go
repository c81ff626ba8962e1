package oauthflow

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/identity/internal/apperror"
	"github.com/keyxmakerx/identity/internal/middleware"
	"github.com/keyxmakerx/identity/internal/session"
	"github.com/keyxmakerx/identity/internal/templates"
)

// Sessions issues and revokes the local session cookie token.
// *session.Manager implements it.
type Sessions interface {
	Issue(subject string) (string, error)
	Revoke(ctx context.Context, token string) error
	Subject(token string) string
	TTL() time.Duration
}

// Handler handles the login, consent and logout pages. Handlers are thin:
// they bind the request, call the service, and render or redirect.
type Handler struct {
	service  FlowService
	sessions Sessions
}

// NewHandler creates a new flow handler.
func NewHandler(service FlowService, sessions Sessions) *Handler {
	return &Handler{service: service, sessions: sessions}
}

// --- Login ---

// LoginForm handles GET /login.
func (h *Handler) LoginForm(c echo.Context) error {
	outcome, err := h.service.Login(c.Request().Context(), LoginInput{
		Challenge: c.QueryParam("login_challenge"),
		RemoteIP:  c.RealIP(),
	})
	if err != nil {
		return err
	}
	return h.finishLogin(c, outcome)
}

// Login handles POST /login.
func (h *Handler) Login(c echo.Context) error {
	var form loginForm
	if err := c.Bind(&form); err != nil {
		return apperror.NewInput("invalid login form")
	}

	outcome, err := h.service.Login(c.Request().Context(), LoginInput{
		Challenge: c.QueryParam("login_challenge"),
		Submission: &LoginSubmission{
			Email:    form.Email,
			Password: form.Password,
			Remember: form.Remember,
		},
		RemoteIP: c.RealIP(),
	})
	if err != nil {
		return err
	}
	return h.finishLogin(c, outcome)
}

// finishLogin binds the session cookie and follows the backend redirect,
// or renders the login form.
func (h *Handler) finishLogin(c echo.Context, outcome *LoginOutcome) error {
	if !outcome.Redirected() {
		return middleware.Render(c, http.StatusOK, templates.Page(templates.PageLogin, templates.LoginView{
			Challenge: c.QueryParam("login_challenge"),
			Email:     outcome.Email,
			Remember:  outcome.Remember,
			Error:     outcome.Error,
		}))
	}

	token, err := h.sessions.Issue(outcome.Subject)
	if err != nil {
		return apperror.NewInternal(err)
	}
	session.SetCookie(c, token, h.sessions.TTL())
	return c.Redirect(http.StatusSeeOther, outcome.RedirectTo)
}

// --- Logout ---

// Logout handles GET /logout.
func (h *Handler) Logout(c echo.Context) error {
	token := session.TokenFromRequest(c)

	var subject string
	if token != "" {
		subject = h.sessions.Subject(token)
	}

	redirect, err := h.service.Logout(c.Request().Context(), LogoutInput{
		Challenge: c.QueryParam("logout_challenge"),
		Subject:   subject,
		RemoteIP:  c.RealIP(),
	})
	if err != nil {
		return err
	}

	if token != "" {
		// The cookie is cleared regardless; a failed revocation only
		// leaves a token that expires on its own.
		if err := h.sessions.Revoke(c.Request().Context(), token); err != nil {
			slog.Warn("failed to revoke session on logout", slog.Any("error", err))
		}
	}
	session.ClearCookie(c)
	return c.Redirect(http.StatusSeeOther, redirect)
}

// --- Consent ---

// ConsentForm handles GET /consent.
func (h *Handler) ConsentForm(c echo.Context) error {
	outcome, err := h.service.Consent(c.Request().Context(), ConsentInput{
		Challenge: c.QueryParam("consent_challenge"),
		RemoteIP:  c.RealIP(),
	})
	if err != nil {
		return err
	}
	return h.finishConsent(c, outcome)
}

// Consent handles POST /consent.
func (h *Handler) Consent(c echo.Context) error {
	var form consentForm
	if err := c.Bind(&form); err != nil {
		return apperror.NewInput("invalid consent form")
	}

	outcome, err := h.service.Consent(c.Request().Context(), ConsentInput{
		Challenge: c.QueryParam("consent_challenge"),
		Decision: &ConsentDecision{
			Grant:    form.Grant,
			Deny:     form.Deny,
			Remember: form.Remember,
		},
		RemoteIP: c.RealIP(),
	})
	if err != nil {
		return err
	}
	return h.finishConsent(c, outcome)
}

func (h *Handler) finishConsent(c echo.Context, outcome *ConsentOutcome) error {
	if outcome.Redirected() {
		return c.Redirect(http.StatusSeeOther, outcome.RedirectTo)
	}

	scopes := make([]templates.ScopeView, 0, len(outcome.Scopes))
	for _, s := range outcome.Scopes {
		scopes = append(scopes, templates.ScopeView{Name: s.Name, Description: s.Description})
	}
	return middleware.Render(c, http.StatusOK, templates.Page(templates.PageConsent, templates.ConsentView{
		Challenge:  c.QueryParam("consent_challenge"),
		ClientName: outcome.Client.DisplayName(),
		ClientURI:  outcome.Client.ClientURI,
		PolicyURI:  outcome.Client.PolicyURI,
		TOSURI:     outcome.Client.TOSURI,
		Scopes:     scopes,
	}))
}
