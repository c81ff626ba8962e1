// Package audit records security-relevant events of the identity flows:
// sign-ins, consent decisions, registrations, password changes. Events are
// persisted to the security_events table and the most recent ones are shown
// to the user on the edit-profile page.
//
// Recording never blocks a flow: write failures are logged and dropped.
package audit

import "time"

// --- Action Constants ---
// Each action string follows the pattern "resource.verb" for consistent
// filtering and display grouping.

const (
	ActionLoginSucceeded = "login.succeeded"
	ActionLoginFailed    = "login.failed"

	// ActionLoginSkipped is logged when the backend remembered the session
	// and the login prompt was not shown.
	ActionLoginSkipped = "login.skipped"

	ActionConsentGranted = "consent.granted"
	ActionConsentDenied  = "consent.denied"
	ActionConsentRevoked = "consent.revoked"

	ActionLogout = "logout"

	ActionAccountRegistered = "account.registered"
	ActionAccountActivated  = "account.activated"

	ActionPasswordResetRequested = "password.reset_requested"
	ActionPasswordChanged        = "password.changed"

	ActionProfileUpdated = "profile.updated"
)

// Event is a single recorded action. Subject is empty for events that
// cannot be tied to an account, such as a failed sign-in for an unknown
// address.
type Event struct {
	ID        int64          `json:"id"`
	Subject   string         `json:"subject,omitempty"`
	Action    string         `json:"action"`
	ClientID  string         `json:"clientId,omitempty"`
	RemoteIP  string         `json:"remoteIp,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Label returns a human-readable description of the action for display.
func (e Event) Label() string {
	if label, ok := actionLabels[e.Action]; ok {
		return label
	}
	return e.Action
}

var actionLabels = map[string]string{
	ActionLoginSucceeded:         "Signed in",
	ActionLoginFailed:            "Failed sign-in attempt",
	ActionLoginSkipped:           "Signed in (remembered)",
	ActionConsentGranted:         "Granted access to an application",
	ActionConsentDenied:          "Denied access to an application",
	ActionConsentRevoked:         "Revoked access for an application",
	ActionLogout:                 "Signed out",
	ActionAccountRegistered:      "Account created",
	ActionAccountActivated:       "E-mail address verified",
	ActionPasswordResetRequested: "Password reset requested",
	ActionPasswordChanged:        "Password changed",
	ActionProfileUpdated:         "Profile updated",
}
