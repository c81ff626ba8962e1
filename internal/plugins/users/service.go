package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/keyxmakerx/identity/internal/sanitize"
)

// UserService defines the credential and token operations the flows use.
// Handlers call these methods -- they never touch the repository directly.
// E-mail arguments may be un-normalized; the service normalizes them.
type UserService interface {
	Register(ctx context.Context, input RegisterInput) (*User, error)
	Authenticate(ctx context.Context, email, password string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindBySubject(ctx context.Context, subject string) (*User, error)
	EmailAvailable(ctx context.Context, email string) (bool, error)

	Activate(ctx context.Context, email, token string) error
	AssignResetToken(ctx context.Context, email string) (*User, error)
	CheckResetCode(ctx context.Context, email, code string) error
	ChangePassword(ctx context.Context, email, code, password string) error

	UpdateDetails(ctx context.Context, subject string, input DetailsInput) error
}

// userService implements UserService on top of a UserRepository.
type userService struct {
	repo   UserRepository
	hasher *Hasher
	now    func() time.Time
}

// NewUserService creates a new user service.
func NewUserService(repo UserRepository, hasher *Hasher) UserService {
	return &userService{repo: repo, hasher: hasher, now: time.Now}
}

// Register creates an inactive account with a fresh subject and activation
// token. The returned user carries the token for the welcome e-mail.
func (s *userService) Register(ctx context.Context, input RegisterInput) (*User, error) {
	details, err := cleanDetails(input.Name, input.Company, input.Phone)
	if err != nil {
		return nil, err
	}

	token, err := NewToken()
	if err != nil {
		return nil, fmt.Errorf("generating activation token: %w", err)
	}

	user := &User{
		Subject:       uuid.New().String(),
		Email:         NormalizeEmail(input.Email),
		PasswordHash:  s.hasher.Hash(input.Password),
		Name:          details.Name,
		Company:       details.Company,
		Phone:         details.Phone,
		ActivateToken: &token,
		CreatedAt:     s.now().UTC().Truncate(time.Second),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	slog.Info("user registered",
		slog.String("subject", user.Subject),
		slog.String("email", user.Email),
	)
	return user, nil
}

// Authenticate returns the account matching email and password.
// Unknown e-mail, wrong password and disabled accounts all return
// ErrInvalidCredentials; a correct password on an unverified account
// returns ErrInactive.
func (s *userService) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		// Hash anyway so response time does not reveal unknown addresses.
		s.hasher.Hash(password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if user.Disabled {
		slog.Warn("login attempt on disabled account", slog.String("subject", user.Subject))
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		return nil, ErrInactive
	}
	return user, nil
}

func (s *userService) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.FindByEmail(ctx, NormalizeEmail(email))
}

func (s *userService) FindBySubject(ctx context.Context, subject string) (*User, error) {
	return s.repo.FindBySubject(ctx, subject)
}

// EmailAvailable reports whether no account uses email.
func (s *userService) EmailAvailable(ctx context.Context, email string) (bool, error) {
	exists, err := s.repo.EmailExists(ctx, NormalizeEmail(email))
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// Activate verifies the e-mail address behind an activation link. The token
// is consumed, so a second click returns ErrInvalidToken.
func (s *userService) Activate(ctx context.Context, email, token string) error {
	if token == "" {
		return ErrInvalidToken
	}
	ok, err := s.repo.Activate(ctx, NormalizeEmail(email), token)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidToken
	}
	slog.Info("user activated", slog.String("email", NormalizeEmail(email)))
	return nil
}

// AssignResetToken stores a new password-reset token and returns the user
// with it set. Returns ErrNotFound for unknown addresses.
func (s *userService) AssignResetToken(ctx context.Context, email string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}

	token, err := NewToken()
	if err != nil {
		return nil, fmt.Errorf("generating reset token: %w", err)
	}
	ok, err := s.repo.AssignResetToken(ctx, user.Email, token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	user.ResetPasswordToken = &token
	return user, nil
}

// CheckResetCode verifies a submitted reset code without consuming it.
func (s *userService) CheckResetCode(ctx context.Context, email, code string) error {
	user, err := s.repo.FindByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return err
	}
	if !tokenMatches(user.ResetPasswordToken, code) {
		return ErrInvalidToken
	}
	return nil
}

// ChangePassword sets a new password if code is the stored reset token.
// The hash and the token reset are written in one statement, so a replayed
// code returns ErrInvalidToken.
func (s *userService) ChangePassword(ctx context.Context, email, code, password string) error {
	if code == "" {
		return ErrInvalidToken
	}
	normalized := NormalizeEmail(email)
	ok, err := s.repo.AssignPassword(ctx, normalized, code, s.hasher.Hash(password))
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidToken
	}
	slog.Info("password changed via reset", slog.String("email", normalized))
	return nil
}

// UpdateDetails saves the profile fields. When input.NewPassword is set,
// input.CurrentPassword must verify or ErrInvalidCredentials is returned
// and nothing is written.
func (s *userService) UpdateDetails(ctx context.Context, subject string, input DetailsInput) error {
	details, err := cleanDetails(input.Name, input.Company, input.Phone)
	if err != nil {
		return err
	}

	var newHash string
	if input.NewPassword != "" {
		user, err := s.repo.FindBySubject(ctx, subject)
		if err != nil {
			return err
		}
		if !s.hasher.Verify(input.CurrentPassword, user.PasswordHash) {
			return ErrInvalidCredentials
		}
		newHash = s.hasher.Hash(input.NewPassword)
	}

	return s.repo.UpdateDetails(ctx, subject, details, newHash)
}

// cleanDetails strips markup from the profile fields. Each must still hold
// text afterwards; these values end up in identity tokens.
func cleanDetails(name, company, phone string) (DetailsInput, error) {
	details := DetailsInput{
		Name:    sanitize.Text(name),
		Company: sanitize.Text(company),
		Phone:   sanitize.Text(phone),
	}
	for _, f := range []struct{ field, value string }{
		{"name", details.Name},
		{"company", details.Company},
		{"phone", details.Phone},
	} {
		if f.value == "" {
			return details, fmt.Errorf("%w: %s", ErrMissingField, f.field)
		}
	}
	return details, nil
}
