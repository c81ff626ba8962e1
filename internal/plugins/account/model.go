// Package account holds the self-service flows around the login page:
// registration with e-mail verification, password reset by e-mailed code,
// and the cookie-gated profile page with consent revocation.
package account

import (
	"context"

	"github.com/keyxmakerx/identity/internal/hydra"
	"github.com/keyxmakerx/identity/internal/plugins/audit"
	"github.com/keyxmakerx/identity/internal/plugins/users"
)

// Backend is the part of the authorization backend admin API the account
// flows call. *hydra.Client implements it.
type Backend interface {
	GetConsents(ctx context.Context, subject string) ([]hydra.ConsentSession, error)
	RevokeConsent(ctx context.Context, subject, clientID string) error
}

// Profile is everything the edit-profile page shows.
type Profile struct {
	User   *users.User
	Grants []hydra.ConsentSession
	Events []audit.Event
}

// Form error messages.
const (
	msgRequired         = "This field is required"
	msgInvalidEmail     = "Please enter a valid e-mail address"
	msgEmailTaken       = "E-mail already in use"
	msgPasswordLength   = "The password must be at least 8 characters"
	msgPasswordMismatch = "Passwords must match"
	msgAcceptTerms      = "You must accept the terms of service"
	msgWrongCode        = "The verification code is not correct"
	msgCurrentPassword  = "The current password is not correct"
	msgInvalidLink      = "This verification link is invalid or has already been used."
)

// minPasswordLength applies to registration and both password changes.
const minPasswordLength = 8

// --- Form binding ---

// registerForm is the bound POST /register body.
type registerForm struct {
	Name        string `form:"name"`
	Company     string `form:"company"`
	Phone       string `form:"phone"`
	Email       string `form:"email"`
	Password    string `form:"password"`
	Password2   string `form:"password2"`
	AcceptTerms bool   `form:"accept_terms"`
}

// resetPasswordForm is the bound POST /reset-password body.
type resetPasswordForm struct {
	Email string `form:"email"`
}

// verificationCodeForm is the bound POST /enter-verification-code body.
type verificationCodeForm struct {
	Code string `form:"verification_code"`
}

// changePasswordForm is the bound POST /change-password body.
type changePasswordForm struct {
	Password  string `form:"password"`
	Password2 string `form:"password2"`
}

// profileForm is the bound POST /edit-profile body.
type profileForm struct {
	Name            string `form:"name"`
	Company         string `form:"company"`
	Phone           string `form:"phone"`
	CurrentPassword string `form:"current_password"`
	Password        string `form:"password"`
	Password2       string `form:"password2"`
}
