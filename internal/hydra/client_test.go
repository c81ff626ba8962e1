package hydra

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyxmakerx/identity/internal/metrics"
)

// newTestClient starts a backend stub and returns a client pointed at it.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, 2*time.Second)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestGetLoginRequest_DecodesAndIgnoresUnknownFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/oauth2/auth/requests/login", r.URL.Path)
		assert.Equal(t, "ch-1", r.URL.Query().Get("login_challenge"))
		writeJSON(w, http.StatusOK, `{
			"challenge": "ch-1",
			"client": {"client_id": "app", "client_name": "App", "jwks": {}, "frontchannel_logout_uri": ""},
			"request_url": "https://auth/oauth2/auth?x=1",
			"requested_scope": ["openid", "email"],
			"requested_access_token_audience": [],
			"skip": true,
			"subject": "sub-123",
			"session_id": "s-1",
			"oidc_context": {"ui_locales": ["da"]}
		}`)
	})

	req, err := c.GetLoginRequest(context.Background(), "ch-1")
	require.NoError(t, err)
	assert.Equal(t, "ch-1", req.Challenge)
	assert.Equal(t, "app", req.Client.ClientID)
	assert.True(t, req.Skip)
	assert.Equal(t, "sub-123", req.Subject)
	assert.Equal(t, []string{"openid", "email"}, req.RequestedScope)
}

func TestGetLoginRequest_MissingRequiredField(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"challenge": "ch-1", "client": {"client_id": "app"}, "skip": true}`)
	})

	_, err := c.GetLoginRequest(context.Background(), "ch-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)

	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.False(t, be.Retryable())
}

func TestGetLoginRequest_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"error":"Not Found","error_description":"Unable to locate the resource"}`)
	})

	_, err := c.GetLoginRequest(context.Background(), "expired")
	require.Error(t, err)

	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusNotFound, be.StatusCode)
	assert.Equal(t, "get_login_request", be.Op)
	assert.Contains(t, be.Body, "Unable to locate")
	assert.NotContains(t, be.URL, "expired", "challenge must not leak into the error URL")
	assert.False(t, be.Retryable())
	assert.True(t, IsStatus(err, http.StatusNotFound))
}

func TestBackendError_ServerErrorIsRetryable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadGateway, `upstream down`)
	})

	_, err := c.GetConsentRequest(context.Background(), "ch")
	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.True(t, be.Retryable())
}

func TestBackendError_NetworkFailureIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := New(srv.URL, time.Second)

	_, err := c.AcceptLogout(context.Background(), "ch")
	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 0, be.StatusCode)
	assert.True(t, be.Retryable())
}

func TestAcceptLogin_SendsPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/oauth2/auth/requests/login/accept", r.URL.Path)
		assert.Equal(t, "ch-1", r.URL.Query().Get("login_challenge"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var got map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, map[string]any{"subject": "sub-123", "remember": true, "remember_for": float64(3600)}, got)

		writeJSON(w, http.StatusOK, `{"redirect_to": "https://auth/oauth2/auth?login_verifier=v"}`)
	})

	res, err := c.AcceptLogin(context.Background(), "ch-1", AcceptLoginRequest{
		Subject: "sub-123", Remember: true, RememberFor: 3600,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://auth/oauth2/auth?login_verifier=v", res.RedirectTo)
}

func TestRedirect_MissingRedirectTo(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{}`)
	})

	_, err := c.RejectLogin(context.Background(), "ch", RejectRequest{Error: "access_denied"})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestRejectConsent_SendsPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth2/auth/requests/consent/reject", r.URL.Path)
		assert.Equal(t, "ch-9", r.URL.Query().Get("consent_challenge"))

		var got RejectRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "consent_required", got.Error)
		assert.Equal(t, http.StatusForbidden, got.StatusCode)

		writeJSON(w, http.StatusOK, `{"redirect_to": "https://app/cb?error=consent_required"}`)
	})

	res, err := c.RejectConsent(context.Background(), "ch-9", RejectRequest{
		Error: "consent_required", StatusCode: http.StatusForbidden,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://app/cb?error=consent_required", res.RedirectTo)
}

func TestAcceptConsent_SendsSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var got AcceptConsentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, []string{"openid"}, got.GrantScope)
		assert.Equal(t, "a@b.com", got.Session.IDToken["email"])
		assert.Empty(t, got.Session.AccessToken)
		writeJSON(w, http.StatusOK, `{"redirect_to": "https://auth/next"}`)
	})

	_, err := c.AcceptConsent(context.Background(), "ch", AcceptConsentRequest{
		GrantScope: []string{"openid"},
		Session: ConsentSessionData{
			AccessToken: map[string]any{},
			IDToken:     map[string]any{"email": "a@b.com"},
		},
	})
	require.NoError(t, err)
}

func TestGetConsents(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth2/auth/sessions/consent", r.URL.Path)
		assert.Equal(t, "sub-1", r.URL.Query().Get("subject"))
		writeJSON(w, http.StatusOK, `[{
			"consent_request": {"challenge": "c", "subject": "sub-1", "client": {"client_id": "app", "client_name": "App"}},
			"grant_scope": ["openid", "email"],
			"remember": true,
			"remember_for": 0
		}]`)
	})

	sessions, err := c.GetConsents(context.Background(), "sub-1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "App", sessions[0].ConsentRequest.Client.DisplayName())
	assert.Equal(t, []string{"openid", "email"}, sessions[0].GrantScope)
}

func TestRevokeConsent_RequiresNoContent(t *testing.T) {
	status := http.StatusNoContent
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "sub-1", r.URL.Query().Get("subject"))
		assert.Equal(t, "app", r.URL.Query().Get("client"))
		w.WriteHeader(status)
	})

	require.NoError(t, c.RevokeConsent(context.Background(), "sub-1", "app"))

	// A 200 is not the documented success status.
	status = http.StatusOK
	err := c.RevokeConsent(context.Background(), "sub-1", "app")
	assert.True(t, IsStatus(err, http.StatusOK))
}

func TestClientManagement(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/clients":
			var in OAuth2Client
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			assert.Equal(t, "portal", in.ClientID)
			writeJSON(w, http.StatusCreated, `{"client_id": "portal", "client_secret": "s3cret", "created_at": "2026-01-02T03:04:05Z"}`)
		case r.Method == http.MethodGet && r.URL.Path == "/clients":
			writeJSON(w, http.StatusOK, `[{"client_id": "portal"}, {"client_id": "admin", "client_name": "Admin"}]`)
		case r.Method == http.MethodDelete && r.URL.Path == "/clients/portal":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	created, err := c.CreateOAuth2Client(ctx, OAuth2Client{ClientID: "portal", RedirectURIs: []string{"https://portal/cb"}})
	require.NoError(t, err)
	assert.Equal(t, "s3cret", created.ClientSecret)
	require.NotNil(t, created.CreatedAt)

	list, err := c.ListOAuth2Clients(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, c.DeleteOAuth2Client(ctx, "portal"))
	assert.True(t, IsStatus(c.DeleteOAuth2Client(ctx, "missing"), http.StatusNotFound))
}

func TestClient_RecordsMetrics(t *testing.T) {
	m := metrics.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"redirect_to": "https://auth/next"}`)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, WithMetrics(m))
	_, err := c.AcceptLogout(context.Background(), "ch")
	require.NoError(t, err)

	assert.Equal(t, 1, testutil.CollectAndCount(m.BackendRequestDuration))
}

func TestClient_ContextCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"redirect_to": "x"}`)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.AcceptLogout(ctx, "ch")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
