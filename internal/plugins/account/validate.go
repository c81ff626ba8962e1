package account

import (
	"net/mail"
	"strings"

	"github.com/keyxmakerx/identity/internal/sanitize"
)

// fieldErrors maps form field names to the message shown under the field.
// A nil map means the form is valid.
type fieldErrors map[string]string

func (e *fieldErrors) add(field, msg string) {
	if *e == nil {
		*e = make(fieldErrors)
	}
	if _, exists := (*e)[field]; !exists {
		(*e)[field] = msg
	}
}

func required(errs *fieldErrors, field, value string) {
	if strings.TrimSpace(value) == "" {
		errs.add(field, msgRequired)
	}
}

// requiredText is required for profile fields, judged on the value that
// will be stored: markup alone counts as empty.
func requiredText(errs *fieldErrors, field, value string) {
	if sanitize.Text(value) == "" {
		errs.add(field, msgRequired)
	}
}

// validEmail accepts a bare address such as "a@b.com". Display names and
// angle brackets are rejected.
func validEmail(s string) bool {
	s = strings.TrimSpace(s)
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s && addr.Name == ""
}

// newPassword checks a password and its confirmation.
func newPassword(errs *fieldErrors, password, confirm string) {
	switch {
	case password == "":
		errs.add("password", msgRequired)
	case len(password) < minPasswordLength:
		errs.add("password", msgPasswordLength)
	case password != confirm:
		errs.add("password2", msgPasswordMismatch)
	}
}

func validateRegister(f *registerForm) fieldErrors {
	var errs fieldErrors
	requiredText(&errs, "name", f.Name)
	requiredText(&errs, "company", f.Company)
	requiredText(&errs, "phone", f.Phone)
	required(&errs, "email", f.Email)
	if strings.TrimSpace(f.Email) != "" && !validEmail(f.Email) {
		errs.add("email", msgInvalidEmail)
	}
	newPassword(&errs, f.Password, f.Password2)
	if !f.AcceptTerms {
		errs.add("accept_terms", msgAcceptTerms)
	}
	return errs
}

func validateProfile(f *profileForm) fieldErrors {
	var errs fieldErrors
	requiredText(&errs, "name", f.Name)
	requiredText(&errs, "company", f.Company)
	requiredText(&errs, "phone", f.Phone)
	if f.Password != "" || f.Password2 != "" {
		required(&errs, "current_password", f.CurrentPassword)
		newPassword(&errs, f.Password, f.Password2)
	}
	return errs
}
