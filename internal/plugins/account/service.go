package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/keyxmakerx/identity/internal/apperror"
	"github.com/keyxmakerx/identity/internal/plugins/audit"
	"github.com/keyxmakerx/identity/internal/plugins/mail"
	"github.com/keyxmakerx/identity/internal/plugins/users"
)

// AccountService runs the registration, password-reset and profile flows.
// Wrong codes and taken addresses come back as users package sentinels so
// handlers can redisplay the form.
type AccountService interface {
	Register(ctx context.Context, challenge string, input users.RegisterInput, remoteIP string) (*users.User, error)
	VerifyEmail(ctx context.Context, email, token, remoteIP string) error

	RequestPasswordReset(ctx context.Context, challenge, email, remoteIP string) error
	VerifyResetCode(ctx context.Context, email, code string) error
	ChangePassword(ctx context.Context, email, code, password, remoteIP string) error

	Profile(ctx context.Context, subject string) (*Profile, error)
	UpdateProfile(ctx context.Context, subject string, input users.DetailsInput, remoteIP string) error
	RevokeConsent(ctx context.Context, subject, clientID, remoteIP string) error
}

// accountService implements AccountService.
type accountService struct {
	users   users.UserService
	backend Backend
	mail    mail.Sender
	events  audit.EventService
}

// NewAccountService creates a new account service.
func NewAccountService(userSvc users.UserService, backend Backend, sender mail.Sender, events audit.EventService) AccountService {
	return &accountService{users: userSvc, backend: backend, mail: sender, events: events}
}

// --- Registration ---

// Register creates an inactive account and e-mails its activation link.
// Returns users.ErrEmailTaken when the address is registered meanwhile.
func (s *accountService) Register(ctx context.Context, challenge string, input users.RegisterInput, remoteIP string) (*users.User, error) {
	user, err := s.users.Register(ctx, input)
	if err != nil {
		return nil, err
	}

	s.events.Record(ctx, audit.Event{
		Subject:  user.Subject,
		Action:   audit.ActionAccountRegistered,
		RemoteIP: remoteIP,
	})

	if err := s.mail.SendWelcomeEmail(ctx, user, challenge); err != nil {
		return nil, fmt.Errorf("sending welcome e-mail: %w", err)
	}
	return user, nil
}

// VerifyEmail activates the account behind an activation link.
func (s *accountService) VerifyEmail(ctx context.Context, email, token, remoteIP string) error {
	err := s.users.Activate(ctx, email, token)
	if errors.Is(err, users.ErrInvalidToken) {
		return apperror.NewBadRequest(msgInvalidLink)
	}
	if err != nil {
		return fmt.Errorf("activating account: %w", err)
	}

	if user, err := s.users.FindByEmail(ctx, email); err == nil {
		s.events.Record(ctx, audit.Event{
			Subject:  user.Subject,
			Action:   audit.ActionAccountActivated,
			RemoteIP: remoteIP,
		})
	}
	return nil
}

// --- Password reset ---

// RequestPasswordReset e-mails a fresh reset code when the address is
// registered. Unknown addresses are not reported to the caller.
func (s *accountService) RequestPasswordReset(ctx context.Context, challenge, email, remoteIP string) error {
	user, err := s.users.AssignResetToken(ctx, email)
	if errors.Is(err, users.ErrNotFound) {
		slog.Info("password reset for unknown address", slog.String("remote_ip", remoteIP))
		return nil
	}
	if err != nil {
		return fmt.Errorf("assigning reset token: %w", err)
	}

	s.events.Record(ctx, audit.Event{
		Subject:  user.Subject,
		Action:   audit.ActionPasswordResetRequested,
		RemoteIP: remoteIP,
	})

	if err := s.mail.SendResetPasswordEmail(ctx, user, challenge); err != nil {
		return fmt.Errorf("sending reset e-mail: %w", err)
	}
	return nil
}

// VerifyResetCode returns users.ErrInvalidToken unless code is the stored
// reset code.
func (s *accountService) VerifyResetCode(ctx context.Context, email, code string) error {
	return s.users.CheckResetCode(ctx, email, code)
}

// ChangePassword sets a new password and consumes the reset code.
func (s *accountService) ChangePassword(ctx context.Context, email, code, password, remoteIP string) error {
	if err := s.users.ChangePassword(ctx, email, code, password); err != nil {
		return err
	}

	if user, err := s.users.FindByEmail(ctx, email); err == nil {
		s.events.Record(ctx, audit.Event{
			Subject:  user.Subject,
			Action:   audit.ActionPasswordChanged,
			RemoteIP: remoteIP,
			Details:  map[string]any{"via": "reset"},
		})
	}
	return nil
}

// --- Profile ---

// Profile loads the signed-in user with its granted consents and recent
// security events. A failing event store only hides the activity list.
func (s *accountService) Profile(ctx context.Context, subject string) (*Profile, error) {
	user, err := s.users.FindBySubject(ctx, subject)
	if errors.Is(err, users.ErrNotFound) {
		return nil, apperror.NewUnauthorized("session subject no longer exists")
	}
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}

	profile := &Profile{User: user}

	// Grants come from the backend and events from MariaDB; load both at
	// once. A missing event list does not fail the page.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		grants, err := s.backend.GetConsents(gctx, subject)
		if err != nil {
			return fmt.Errorf("listing consents: %w", err)
		}
		profile.Grants = grants
		return nil
	})
	g.Go(func() error {
		events, err := s.events.Recent(gctx, subject)
		if err != nil {
			slog.Warn("failed to load security events", slog.String("subject", subject), slog.Any("error", err))
			return nil
		}
		profile.Events = events
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return profile, nil
}

// UpdateProfile saves the profile fields, and the password when
// input.NewPassword is set. Returns users.ErrInvalidCredentials when the
// current password does not verify.
func (s *accountService) UpdateProfile(ctx context.Context, subject string, input users.DetailsInput, remoteIP string) error {
	if err := s.users.UpdateDetails(ctx, subject, input); err != nil {
		return err
	}

	s.events.Record(ctx, audit.Event{
		Subject:  subject,
		Action:   audit.ActionProfileUpdated,
		RemoteIP: remoteIP,
	})
	if input.NewPassword != "" {
		s.events.Record(ctx, audit.Event{
			Subject:  subject,
			Action:   audit.ActionPasswordChanged,
			RemoteIP: remoteIP,
			Details:  map[string]any{"via": "profile"},
		})
	}
	return nil
}

// RevokeConsent withdraws every grant subject gave clientID.
func (s *accountService) RevokeConsent(ctx context.Context, subject, clientID, remoteIP string) error {
	if clientID == "" {
		return apperror.NewInput("missing client_id")
	}
	if err := s.backend.RevokeConsent(ctx, subject, clientID); err != nil {
		return fmt.Errorf("revoking consent: %w", err)
	}

	s.events.Record(ctx, audit.Event{
		Subject:  subject,
		Action:   audit.ActionConsentRevoked,
		ClientID: clientID,
		RemoteIP: remoteIP,
	})
	slog.Info("consent revoked", slog.String("subject", subject), slog.String("client_id", clientID))
	return nil
}
