// Package users is the user directory of the identity front-end: locally
// stored accounts with their credentials and one-time activation and
// password-reset tokens. The authorization backend only ever sees a user's
// subject and the claims copied from the profile fields.
package users

import (
	"errors"
	"time"
)

// User is one registered account.
type User struct {
	ID int64 `json:"id"`

	// Subject is the identifier shared with the authorization backend.
	Subject string `json:"subject"`

	// Email is stored trimmed and lower-cased.
	Email        string `json:"email"`
	PasswordHash string `json:"-"`

	Name    string `json:"name"`
	Company string `json:"company"`
	Phone   string `json:"phone"`

	// Active is false until the e-mail address has been verified.
	Active bool `json:"active"`

	// Disabled accounts cannot sign in.
	Disabled bool `json:"disabled"`

	ActivateToken      *string `json:"-"`
	ResetPasswordToken *string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// IDToken returns the claims placed in the identity token issued for this
// user.
func (u *User) IDToken() map[string]any {
	return map[string]any{
		"email":   u.Email,
		"phone":   u.Phone,
		"name":    u.Name,
		"company": u.Company,
	}
}

// --- Service Input DTOs (passed from handler to service) ---

// RegisterInput is the validated registration form.
type RegisterInput struct {
	Name     string
	Company  string
	Phone    string
	Email    string
	Password string
}

// DetailsInput is the validated edit-profile form. NewPassword is empty
// when the password is not being changed.
type DetailsInput struct {
	Name            string
	Company         string
	Phone           string
	CurrentPassword string
	NewPassword     string
}

// --- Errors ---

var (
	// ErrNotFound is returned when no user matches a lookup.
	ErrNotFound = errors.New("user not found")

	// ErrEmailTaken is returned when the e-mail address is already registered.
	ErrEmailTaken = errors.New("email already in use")

	// ErrInvalidCredentials is returned when an e-mail/password pair does not
	// match an account that may sign in.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInactive is returned when the credentials match an account whose
	// e-mail address has not been verified yet.
	ErrInactive = errors.New("account not activated")

	// ErrInvalidToken is returned when an activation or reset token does not
	// match the stored one.
	ErrInvalidToken = errors.New("invalid or used token")

	// ErrMissingField is returned when name, company or phone is empty once
	// markup has been stripped. Wrapped with the field name.
	ErrMissingField = errors.New("required profile field is empty")
)
