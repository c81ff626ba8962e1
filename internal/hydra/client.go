// Package hydra is a typed client for the admin API of an ORY Hydra
// compatible authorization backend: login, consent and logout challenges,
// granted consent sessions, and OAuth2 client management.
//
// Every call is synchronous, bounded by the HTTP client timeout, and never
// retried. Failures are returned as *BackendError so callers can tell a
// retryable outage from a rejected request.
package hydra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/keyxmakerx/identity/internal/metrics"
)

const (
	// maxResponseSize caps how much of a response body is read (1MB).
	maxResponseSize = 1024 * 1024

	// errorPreviewSize caps the body kept on a BackendError.
	errorPreviewSize = 1024

	contentTypeJSON = "application/json"
)

// Client talks to the authorization backend admin API.
type Client struct {
	baseURL string
	http    *http.Client
	metrics *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client. The timeout passed to
// New is not applied to a replaced client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithMetrics records the latency of every call.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a client for the admin API at baseURL
// (e.g. "http://hydra:4445").
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// --- Login ---

// GetLoginRequest fetches the state of a login challenge.
func (c *Client) GetLoginRequest(ctx context.Context, challenge string) (*LoginRequest, error) {
	var out LoginRequest
	err := c.do(ctx, request{
		op:     "get_login_request",
		method: http.MethodGet,
		path:   "/oauth2/auth/requests/login",
		query:  url.Values{"login_challenge": {challenge}},
		want:   http.StatusOK,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AcceptLogin confirms the subject behind a login challenge.
func (c *Client) AcceptLogin(ctx context.Context, challenge string, body AcceptLoginRequest) (*RedirectResponse, error) {
	return c.redirect(ctx, "accept_login", "/oauth2/auth/requests/login/accept",
		url.Values{"login_challenge": {challenge}}, body)
}

// RejectLogin denies a login challenge.
func (c *Client) RejectLogin(ctx context.Context, challenge string, body RejectRequest) (*RedirectResponse, error) {
	return c.redirect(ctx, "reject_login", "/oauth2/auth/requests/login/reject",
		url.Values{"login_challenge": {challenge}}, body)
}

// --- Logout ---

// AcceptLogout confirms a logout challenge.
func (c *Client) AcceptLogout(ctx context.Context, challenge string) (*RedirectResponse, error) {
	return c.redirect(ctx, "accept_logout", "/oauth2/auth/requests/logout/accept",
		url.Values{"logout_challenge": {challenge}}, nil)
}

// --- Consent ---

// GetConsentRequest fetches the state of a consent challenge.
func (c *Client) GetConsentRequest(ctx context.Context, challenge string) (*ConsentRequest, error) {
	var out ConsentRequest
	err := c.do(ctx, request{
		op:     "get_consent_request",
		method: http.MethodGet,
		path:   "/oauth2/auth/requests/consent",
		query:  url.Values{"consent_challenge": {challenge}},
		want:   http.StatusOK,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AcceptConsent grants a consent challenge.
func (c *Client) AcceptConsent(ctx context.Context, challenge string, body AcceptConsentRequest) (*RedirectResponse, error) {
	return c.redirect(ctx, "accept_consent", "/oauth2/auth/requests/consent/accept",
		url.Values{"consent_challenge": {challenge}}, body)
}

// RejectConsent denies a consent challenge.
func (c *Client) RejectConsent(ctx context.Context, challenge string, body RejectRequest) (*RedirectResponse, error) {
	return c.redirect(ctx, "reject_consent", "/oauth2/auth/requests/consent/reject",
		url.Values{"consent_challenge": {challenge}}, body)
}

// GetConsents lists every consent the subject has granted.
func (c *Client) GetConsents(ctx context.Context, subject string) ([]ConsentSession, error) {
	var out consentSessionList
	err := c.do(ctx, request{
		op:     "get_consents",
		method: http.MethodGet,
		path:   "/oauth2/auth/sessions/consent",
		query:  url.Values{"subject": {subject}},
		want:   http.StatusOK,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RevokeConsent withdraws the consent subject gave to clientID, including
// the tokens issued under it.
func (c *Client) RevokeConsent(ctx context.Context, subject, clientID string) error {
	return c.do(ctx, request{
		op:     "revoke_consent",
		method: http.MethodDelete,
		path:   "/oauth2/auth/sessions/consent",
		query:  url.Values{"subject": {subject}, "client": {clientID}},
		want:   http.StatusNoContent,
	}, nil)
}

// --- Clients ---

// CreateOAuth2Client registers a client. The returned client carries the
// generated secret when the backend created one.
func (c *Client) CreateOAuth2Client(ctx context.Context, client OAuth2Client) (*OAuth2Client, error) {
	var out OAuth2Client
	err := c.do(ctx, request{
		op:     "create_client",
		method: http.MethodPost,
		path:   "/clients",
		body:   client,
		want:   http.StatusCreated,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListOAuth2Clients returns the registered clients.
func (c *Client) ListOAuth2Clients(ctx context.Context) ([]OAuth2Client, error) {
	var out oauth2ClientList
	err := c.do(ctx, request{
		op:     "list_clients",
		method: http.MethodGet,
		path:   "/clients",
		want:   http.StatusOK,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteOAuth2Client removes a client.
func (c *Client) DeleteOAuth2Client(ctx context.Context, clientID string) error {
	return c.do(ctx, request{
		op:     "delete_client",
		method: http.MethodDelete,
		path:   "/clients/" + url.PathEscape(clientID),
		want:   http.StatusNoContent,
	}, nil)
}

// --- Transport ---

// request describes one admin API call.
type request struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
	want   int
}

// validator is implemented by response types with required fields.
type validator interface {
	validate() error
}

// redirect performs a PUT that answers with a redirect target.
func (c *Client) redirect(ctx context.Context, op, path string, query url.Values, body any) (*RedirectResponse, error) {
	var out RedirectResponse
	err := c.do(ctx, request{
		op:     op,
		method: http.MethodPut,
		path:   path,
		query:  query,
		body:   body,
		want:   http.StatusOK,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends r and decodes the response into out (when non-nil). Unknown JSON
// fields are ignored; missing required fields fail validation.
func (c *Client) do(ctx context.Context, r request, out any) (err error) {
	start := time.Now()
	defer func() {
		c.metrics.ObserveBackend(r.op, err, time.Since(start))
	}()

	endpoint := c.baseURL + r.path
	fail := func(status int, body string, cause error) error {
		return &BackendError{Op: r.op, URL: endpoint, StatusCode: status, Body: body, Err: cause}
	}

	var reqBody io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("hydra %s: encoding request: %w", r.op, err)
		}
		reqBody = bytes.NewReader(payload)
	}

	target := endpoint
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, reqBody)
	if err != nil {
		return fmt.Errorf("hydra %s: creating request: %w", r.op, err)
	}
	req.Header.Set("Accept", contentTypeJSON)
	if reqBody != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fail(0, "", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fail(0, "", fmt.Errorf("reading response body: %w", err))
	}

	if resp.StatusCode != r.want {
		preview := string(body)
		if len(preview) > errorPreviewSize {
			preview = preview[:errorPreviewSize]
		}
		return fail(resp.StatusCode, preview, nil)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fail(resp.StatusCode, "", errors.Join(ErrMalformedResponse, err))
	}
	if v, ok := out.(validator); ok {
		if err := v.validate(); err != nil {
			return fail(resp.StatusCode, "", errors.Join(ErrMalformedResponse, err))
		}
	}
	return nil
}
