package hydra

import (
	"errors"
	"time"
)

// OAuth2Client is a client registered with the authorization backend. The
// front-end never stores clients; they arrive embedded in login and consent
// requests and are managed through the admin CLI.
type OAuth2Client struct {
	ClientID                  string         `json:"client_id"`
	ClientName                string         `json:"client_name,omitempty"`
	ClientSecret              string         `json:"client_secret,omitempty"`
	RedirectURIs              []string       `json:"redirect_uris,omitempty"`
	GrantTypes                []string       `json:"grant_types,omitempty"`
	ResponseTypes             []string       `json:"response_types,omitempty"`
	Scope                     string         `json:"scope,omitempty"`
	Owner                     string         `json:"owner,omitempty"`
	PolicyURI                 string         `json:"policy_uri,omitempty"`
	TOSURI                    string         `json:"tos_uri,omitempty"`
	ClientURI                 string         `json:"client_uri,omitempty"`
	LogoURI                   string         `json:"logo_uri,omitempty"`
	AllowedCORSOrigins        []string       `json:"allowed_cors_origins,omitempty"`
	SubjectType               string         `json:"subject_type,omitempty"`
	Audience                  []string       `json:"audience,omitempty"`
	TokenEndpointAuthMethod   string         `json:"token_endpoint_auth_method,omitempty"`
	UserinfoSignedResponseAlg string         `json:"userinfo_signed_response_alg,omitempty"`
	Contacts                  []string       `json:"contacts,omitempty"`
	Metadata                  map[string]any `json:"metadata,omitempty"`
	CreatedAt                 *time.Time     `json:"created_at,omitempty"`
	UpdatedAt                 *time.Time     `json:"updated_at,omitempty"`
}

// DisplayName returns the client name, or the client id when no name is set.
func (c OAuth2Client) DisplayName() string {
	if c.ClientName != "" {
		return c.ClientName
	}
	return c.ClientID
}

func (c *OAuth2Client) validate() error {
	if c.ClientID == "" {
		return errors.New("client_id is missing")
	}
	return nil
}

// oauth2ClientList is the response of the list-clients endpoint.
type oauth2ClientList []OAuth2Client

func (l *oauth2ClientList) validate() error {
	for i := range *l {
		if err := (*l)[i].validate(); err != nil {
			return err
		}
	}
	return nil
}

// LoginRequest is the state the backend holds for one login challenge.
type LoginRequest struct {
	Challenge                    string       `json:"challenge"`
	Client                       OAuth2Client `json:"client"`
	RequestURL                   string       `json:"request_url"`
	RequestedScope               []string     `json:"requested_scope"`
	RequestedAccessTokenAudience []string     `json:"requested_access_token_audience"`

	// Skip is true when the backend already has a remembered session for
	// the browser; Subject is then set and must be accepted as-is.
	Skip      bool   `json:"skip"`
	Subject   string `json:"subject"`
	SessionID string `json:"session_id,omitempty"`
}

func (r *LoginRequest) validate() error {
	if r.Challenge == "" {
		return errors.New("challenge is missing")
	}
	if err := r.Client.validate(); err != nil {
		return err
	}
	if r.Skip && r.Subject == "" {
		return errors.New("subject is missing on a skipped login request")
	}
	return nil
}

// ConsentRequest is the state the backend holds for one consent challenge.
type ConsentRequest struct {
	Challenge                    string       `json:"challenge"`
	Client                       OAuth2Client `json:"client"`
	RequestURL                   string       `json:"request_url"`
	RequestedScope               []string     `json:"requested_scope"`
	RequestedAccessTokenAudience []string     `json:"requested_access_token_audience"`

	// Skip is true when the subject already consented to this client and
	// chose to be remembered.
	Skip           bool   `json:"skip"`
	Subject        string `json:"subject"`
	ACR            string `json:"acr,omitempty"`
	LoginChallenge string `json:"login_challenge,omitempty"`
	LoginSessionID string `json:"login_session_id,omitempty"`
}

func (r *ConsentRequest) validate() error {
	if r.Challenge == "" {
		return errors.New("challenge is missing")
	}
	if err := r.Client.validate(); err != nil {
		return err
	}
	if r.Subject == "" {
		return errors.New("subject is missing")
	}
	return nil
}

// AcceptLoginRequest confirms the identity of the user behind a login
// challenge. RememberFor is in seconds; zero means "as long as the backend
// allows".
type AcceptLoginRequest struct {
	Subject     string `json:"subject"`
	Remember    bool   `json:"remember"`
	RememberFor int    `json:"remember_for"`
}

// RejectRequest denies a login or consent challenge.
type RejectRequest struct {
	Error            string `json:"error"`
	ErrorDebug       string `json:"error_debug"`
	ErrorDescription string `json:"error_description"`
	ErrorHint        string `json:"error_hint"`
	StatusCode       int    `json:"status_code"`
}

// ConsentSessionData holds the claims the backend copies into the issued
// tokens.
type ConsentSessionData struct {
	AccessToken map[string]any `json:"access_token"`
	IDToken     map[string]any `json:"id_token"`
}

// AcceptConsentRequest grants a consent challenge. HandledAt is an RFC 3339
// timestamp with offset.
type AcceptConsentRequest struct {
	GrantAccessTokenAudience []string           `json:"grant_access_token_audience"`
	GrantScope               []string           `json:"grant_scope"`
	HandledAt                string             `json:"handled_at"`
	Remember                 bool               `json:"remember"`
	RememberFor              int                `json:"remember_for"`
	Session                  ConsentSessionData `json:"session"`
}

// ConsentSession is one previously granted consent, as listed for a subject.
type ConsentSession struct {
	ConsentRequest           ConsentRequest     `json:"consent_request"`
	GrantScope               []string           `json:"grant_scope"`
	GrantAccessTokenAudience []string           `json:"grant_access_token_audience"`
	Remember                 bool               `json:"remember"`
	RememberFor              int                `json:"remember_for"`
	HandledAt                string             `json:"handled_at,omitempty"`
	Session                  ConsentSessionData `json:"session"`
}

func (s *ConsentSession) validate() error {
	if err := s.ConsentRequest.Client.validate(); err != nil {
		return err
	}
	return nil
}

type consentSessionList []ConsentSession

func (l *consentSessionList) validate() error {
	for i := range *l {
		if err := (*l)[i].validate(); err != nil {
			return err
		}
	}
	return nil
}

// RedirectResponse tells the front-end where to send the browser next.
type RedirectResponse struct {
	RedirectTo string `json:"redirect_to"`
}

func (r *RedirectResponse) validate() error {
	if r.RedirectTo == "" {
		return errors.New("redirect_to is missing")
	}
	return nil
}
