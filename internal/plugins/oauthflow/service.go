package oauthflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/keyxmakerx/identity/internal/apperror"
	"github.com/keyxmakerx/identity/internal/hydra"
	"github.com/keyxmakerx/identity/internal/metrics"
	"github.com/keyxmakerx/identity/internal/plugins/audit"
	"github.com/keyxmakerx/identity/internal/plugins/users"
)

// Flow names used as metric labels.
const (
	flowLogin   = "login"
	flowConsent = "consent"
	flowLogout  = "logout"
)

// FlowService runs the login, consent and logout flows. Backend failures
// are returned wrapped so the error handler can tell retryable outages
// from rejected challenges.
type FlowService interface {
	Login(ctx context.Context, input LoginInput) (*LoginOutcome, error)
	Logout(ctx context.Context, input LogoutInput) (string, error)
	Consent(ctx context.Context, input ConsentInput) (*ConsentOutcome, error)
}

// Config holds the policy settings of the flows.
type Config struct {
	// RememberFor is how long the backend remembers a login or consent.
	RememberFor time.Duration

	// TrustedClientIDs never see the consent prompt.
	TrustedClientIDs []string
}

// flowService implements FlowService.
type flowService struct {
	backend Backend
	users   users.UserService
	events  audit.EventService
	metrics *metrics.Metrics
	cfg     Config
	now     func() time.Time
}

// NewFlowService creates a new flow service.
func NewFlowService(backend Backend, userSvc users.UserService, events audit.EventService, m *metrics.Metrics, cfg Config) FlowService {
	return &flowService{
		backend: backend,
		users:   userSvc,
		events:  events,
		metrics: m,
		cfg:     cfg,
		now:     time.Now,
	}
}

// --- Login ---

// Login runs one step of the login flow.
func (s *flowService) Login(ctx context.Context, input LoginInput) (*LoginOutcome, error) {
	if input.Challenge == "" {
		s.metrics.Flow(flowLogin, metrics.OutcomeInvalid)
		return nil, apperror.NewInput("missing login_challenge")
	}

	req, err := s.backend.GetLoginRequest(ctx, input.Challenge)
	if err != nil {
		s.metrics.Flow(flowLogin, metrics.OutcomeError)
		return nil, fmt.Errorf("fetching login request: %w", err)
	}

	// The backend remembers this browser; confirm without prompting.
	if req.Skip {
		redirect, err := s.acceptLogin(ctx, input.Challenge, req.Subject, true)
		if err != nil {
			return nil, err
		}
		s.metrics.Flow(flowLogin, metrics.OutcomeSkipped)
		s.events.Record(ctx, audit.Event{
			Subject:  req.Subject,
			Action:   audit.ActionLoginSkipped,
			ClientID: req.Client.ClientID,
			RemoteIP: input.RemoteIP,
		})
		return &LoginOutcome{RedirectTo: redirect, Subject: req.Subject}, nil
	}

	sub := input.Submission
	if sub == nil {
		s.metrics.Flow(flowLogin, metrics.OutcomeRendered)
		return &LoginOutcome{Remember: true}, nil
	}

	form := &LoginOutcome{Email: strings.TrimSpace(sub.Email), Remember: sub.Remember}
	if form.Email == "" || sub.Password == "" {
		s.metrics.Flow(flowLogin, metrics.OutcomeInvalid)
		form.Error = msgMissingFields
		return form, nil
	}

	user, err := s.users.Authenticate(ctx, sub.Email, sub.Password)
	switch {
	case errors.Is(err, users.ErrInvalidCredentials):
		form.Error = msgInvalidCredentials
	case errors.Is(err, users.ErrInactive):
		form.Error = msgInactive
	case err != nil:
		return nil, fmt.Errorf("authenticating: %w", err)
	}
	if form.Error != "" {
		s.metrics.Flow(flowLogin, metrics.OutcomeRejected)
		s.events.Record(ctx, audit.Event{
			Action:   audit.ActionLoginFailed,
			ClientID: req.Client.ClientID,
			RemoteIP: input.RemoteIP,
			Details:  map[string]any{"email": users.NormalizeEmail(sub.Email)},
		})
		return form, nil
	}

	redirect, err := s.acceptLogin(ctx, input.Challenge, user.Subject, sub.Remember)
	if err != nil {
		return nil, err
	}
	s.metrics.Flow(flowLogin, metrics.OutcomeAccepted)
	s.events.Record(ctx, audit.Event{
		Subject:  user.Subject,
		Action:   audit.ActionLoginSucceeded,
		ClientID: req.Client.ClientID,
		RemoteIP: input.RemoteIP,
	})
	slog.Info("login accepted",
		slog.String("subject", user.Subject),
		slog.String("client_id", req.Client.ClientID),
	)
	return &LoginOutcome{RedirectTo: redirect, Subject: user.Subject}, nil
}

func (s *flowService) acceptLogin(ctx context.Context, challenge, subject string, remember bool) (string, error) {
	res, err := s.backend.AcceptLogin(ctx, challenge, hydra.AcceptLoginRequest{
		Subject:     subject,
		Remember:    remember,
		RememberFor: s.rememberSeconds(),
	})
	if err != nil {
		s.metrics.Flow(flowLogin, metrics.OutcomeError)
		return "", fmt.Errorf("accepting login: %w", err)
	}
	return res.RedirectTo, nil
}

// --- Logout ---

// Logout confirms a logout challenge and returns the redirect target.
func (s *flowService) Logout(ctx context.Context, input LogoutInput) (string, error) {
	if input.Challenge == "" {
		s.metrics.Flow(flowLogout, metrics.OutcomeInvalid)
		return "", apperror.NewInput("missing logout_challenge")
	}

	res, err := s.backend.AcceptLogout(ctx, input.Challenge)
	if err != nil {
		s.metrics.Flow(flowLogout, metrics.OutcomeError)
		return "", fmt.Errorf("accepting logout: %w", err)
	}
	s.metrics.Flow(flowLogout, metrics.OutcomeAccepted)
	s.events.Record(ctx, audit.Event{
		Subject:  input.Subject,
		Action:   audit.ActionLogout,
		RemoteIP: input.RemoteIP,
	})
	return res.RedirectTo, nil
}

// --- Consent ---

// Consent runs one step of the consent flow.
func (s *flowService) Consent(ctx context.Context, input ConsentInput) (*ConsentOutcome, error) {
	if input.Challenge == "" {
		s.metrics.Flow(flowConsent, metrics.OutcomeInvalid)
		return nil, apperror.NewInput("missing consent_challenge")
	}

	if d := input.Decision; d != nil {
		switch {
		case d.Grant:
			req, user, err := s.consentState(ctx, input.Challenge)
			if err != nil {
				return nil, err
			}
			return s.accept(ctx, input, req, user, d.Remember, metrics.OutcomeAccepted)
		case d.Deny:
			return s.deny(ctx, input)
		default:
			s.metrics.Flow(flowConsent, metrics.OutcomeInvalid)
			return nil, apperror.NewInput("consent submission without a decision")
		}
	}

	req, user, err := s.consentState(ctx, input.Challenge)
	if err != nil {
		return nil, err
	}

	if req.Skip || slices.Contains(s.cfg.TrustedClientIDs, req.Client.ClientID) {
		outcome := metrics.OutcomeSkipped
		if !req.Skip {
			outcome = metrics.OutcomeTrusted
		}
		return s.accept(ctx, input, req, user, true, outcome)
	}

	s.metrics.Flow(flowConsent, metrics.OutcomeRendered)
	return &ConsentOutcome{
		Client: req.Client,
		Scopes: describeScopes(req.RequestedScope),
	}, nil
}

func (s *flowService) accept(ctx context.Context, input ConsentInput, req *hydra.ConsentRequest, user *users.User, remember bool, outcome string) (*ConsentOutcome, error) {
	res, err := s.backend.AcceptConsent(ctx, input.Challenge, s.grantPayload(req, user, remember))
	if err != nil {
		s.metrics.Flow(flowConsent, metrics.OutcomeError)
		return nil, fmt.Errorf("accepting consent: %w", err)
	}

	s.metrics.Flow(flowConsent, outcome)
	s.events.Record(ctx, audit.Event{
		Subject:  user.Subject,
		Action:   audit.ActionConsentGranted,
		ClientID: req.Client.ClientID,
		RemoteIP: input.RemoteIP,
		Details:  map[string]any{"scopes": req.RequestedScope, "via": outcome},
	})
	return &ConsentOutcome{RedirectTo: res.RedirectTo}, nil
}

func (s *flowService) deny(ctx context.Context, input ConsentInput) (*ConsentOutcome, error) {
	res, err := s.backend.RejectConsent(ctx, input.Challenge, hydra.RejectRequest{
		Error:            "consent_required",
		ErrorDebug:       "User denied access to their data.",
		ErrorDescription: "User denied access to their data.",
		StatusCode:       403,
	})
	if err != nil {
		s.metrics.Flow(flowConsent, metrics.OutcomeError)
		return nil, fmt.Errorf("rejecting consent: %w", err)
	}

	s.metrics.Flow(flowConsent, metrics.OutcomeRejected)
	s.events.Record(ctx, audit.Event{
		Action:   audit.ActionConsentDenied,
		RemoteIP: input.RemoteIP,
	})
	return &ConsentOutcome{RedirectTo: res.RedirectTo}, nil
}

// consentState fetches the consent request and the user it names. A
// subject unknown to the directory means login and consent disagree, which
// is never recoverable.
func (s *flowService) consentState(ctx context.Context, challenge string) (*hydra.ConsentRequest, *users.User, error) {
	req, err := s.backend.GetConsentRequest(ctx, challenge)
	if err != nil {
		s.metrics.Flow(flowConsent, metrics.OutcomeError)
		return nil, nil, fmt.Errorf("fetching consent request: %w", err)
	}

	user, err := s.users.FindBySubject(ctx, req.Subject)
	if errors.Is(err, users.ErrNotFound) {
		s.metrics.Flow(flowConsent, metrics.OutcomeError)
		return nil, nil, apperror.NewInternal(fmt.Errorf("consent for unknown subject %q", req.Subject))
	}
	if err != nil {
		return nil, nil, fmt.Errorf("looking up consent subject: %w", err)
	}
	return req, user, nil
}

// grantPayload builds the accept-consent body. Every grant path goes
// through here so the skip, trusted-client and manual grants stay equal.
func (s *flowService) grantPayload(req *hydra.ConsentRequest, user *users.User, remember bool) hydra.AcceptConsentRequest {
	return hydra.AcceptConsentRequest{
		GrantAccessTokenAudience: req.RequestedAccessTokenAudience,
		GrantScope:               req.RequestedScope,
		HandledAt:                s.now().Truncate(time.Second).Format(time.RFC3339),
		Remember:                 remember,
		RememberFor:              s.rememberSeconds(),
		Session: hydra.ConsentSessionData{
			AccessToken: map[string]any{},
			IDToken:     user.IDToken(),
		},
	}
}

func (s *flowService) rememberSeconds() int {
	return int(s.cfg.RememberFor / time.Second)
}
