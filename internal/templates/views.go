package templates

// View models passed to Page. Field names are what the HTML templates read.

// LoginView is the sign-in form.
type LoginView struct {
	Challenge string
	Email     string
	Remember  bool
	Error     string
}

// RegisterView is the registration form. Complete is set once the account
// has been created and the welcome e-mail sent.
type RegisterView struct {
	Challenge string
	Name      string
	Company   string
	Phone     string
	Email     string
	Errors    map[string]string
	Complete  bool
}

// ScopeView is one requested scope with its description.
type ScopeView struct {
	Name        string
	Description string
}

// ConsentView is the consent prompt.
type ConsentView struct {
	Challenge  string
	ClientName string
	ClientURI  string
	PolicyURI  string
	TOSURI     string
	Scopes     []ScopeView
}

// ResetPasswordView asks for the e-mail address to send a reset code to.
type ResetPasswordView struct {
	Challenge string
	Email     string
	Error     string
}

// VerificationCodeView asks for the code from the reset e-mail.
type VerificationCodeView struct {
	Challenge string
	Email     string
	Error     string
}

// ChangePasswordView asks for the new password. Complete is set once the
// password has been changed.
type ChangePasswordView struct {
	Challenge string
	Email     string
	Code      string
	Errors    map[string]string
	Complete  bool
}

// GrantView is one application the user has granted access to.
type GrantView struct {
	ClientID   string
	ClientName string
	Scopes     []string
}

// EventView is one entry of the security activity list.
type EventView struct {
	Label    string
	ClientID string
	RemoteIP string
	When     string
}

// EditProfileView is the profile page.
type EditProfileView struct {
	ReturnURL string
	Email     string
	Name      string
	Company   string
	Phone     string
	Saved     bool
	Errors    map[string]string
	Grants    []GrantView
	Events    []EventView
}

// ErrorView is the error page. RestartHint is set when the user has to go
// back to the application and start again.
type ErrorView struct {
	Status      int
	Message     string
	RestartHint bool
}
