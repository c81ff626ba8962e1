package app

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyxmakerx/identity/internal/apperror"
	"github.com/keyxmakerx/identity/internal/config"
	"github.com/keyxmakerx/identity/internal/hydra"
)

const failureURL = "https://app.example/signin-failed"

func testConfig(hydraURL string) *config.Config {
	return &config.Config{
		Env:                "development",
		BaseURL:            "http://localhost:8080",
		FailureRedirectURL: failureURL,
		Auth: config.AuthConfig{
			SecretKey:   "test-secret-key-at-least-32-characters",
			RememberFor: time.Hour,
		},
		Hydra: config.HydraConfig{
			URL:     hydraURL,
			Timeout: 2 * time.Second,
		},
		RateLimit: config.RateLimitConfig{
			FormPosts: 10,
			Window:    time.Minute,
		},
		TrustedProxies: []string{"127.0.0.0/8"},
	}
}

type testApp struct {
	*App
	db    sqlmock.Sqlmock
	redis *miniredis.Miniredis
}

func newTestApp(t *testing.T, hydraURL string) *testApp {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	a := New(testConfig(hydraURL), db, rdb)
	a.RegisterRoutes()
	return &testApp{App: a, db: mock, redis: mr}
}

func (a *testApp) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

// --- Error mapping ---

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		redirect bool
		contains string
	}{
		{
			name:     "missing challenge redirects",
			err:      apperror.NewInput("missing login_challenge"),
			status:   http.StatusFound,
			redirect: true,
		},
		{
			name:     "invalid session redirects",
			err:      apperror.NewUnauthorized("sign-in required"),
			status:   http.StatusFound,
			redirect: true,
		},
		{
			name:     "unknown error redirects",
			err:      errors.New("boom"),
			status:   http.StatusFound,
			redirect: true,
		},
		{
			name: "malformed backend response redirects",
			err: fmt.Errorf("login: %w", &hydra.BackendError{
				Op: "get_login_request", StatusCode: http.StatusOK, Err: hydra.ErrMalformedResponse,
			}),
			status:   http.StatusFound,
			redirect: true,
		},
		{
			name:     "unreachable backend",
			err:      fmt.Errorf("login: %w", &hydra.BackendError{Op: "get_login_request", Err: errors.New("connection refused")}),
			status:   http.StatusServiceUnavailable,
			contains: "temporarily unavailable",
		},
		{
			name:     "backend server error",
			err:      &hydra.BackendError{Op: "accept_login", StatusCode: http.StatusBadGateway},
			status:   http.StatusServiceUnavailable,
			contains: "temporarily unavailable",
		},
		{
			name:     "rejected challenge",
			err:      &hydra.BackendError{Op: "accept_consent", StatusCode: http.StatusNotFound},
			status:   http.StatusBadRequest,
			contains: "sign in again",
		},
		{
			name:     "user-facing bad request",
			err:      apperror.NewBadRequest("The verification link is not valid"),
			status:   http.StatusBadRequest,
			contains: "The verification link is not valid",
		},
		{
			name:     "unknown route",
			err:      echo.ErrNotFound,
			status:   http.StatusNotFound,
			contains: "doesn&#39;t exist",
		},
		{
			name:     "csrf failure hides technical message",
			err:      echo.NewHTTPError(http.StatusForbidden, "invalid or missing CSRF token"),
			status:   http.StatusForbidden,
			contains: "This form has expired",
		},
		{
			name:     "rate limited",
			err:      echo.NewHTTPError(http.StatusTooManyRequests, "Too many attempts. Please wait a minute and try again."),
			status:   http.StatusTooManyRequests,
			contains: "Too many attempts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &App{Config: testConfig("http://hydra.invalid"), Echo: echo.New()}
			req := httptest.NewRequest(http.MethodGet, "/login", nil)
			rec := httptest.NewRecorder()

			a.errorHandler(tt.err, a.Echo.NewContext(req, rec))

			assert.Equal(t, tt.status, rec.Code)
			if tt.redirect {
				assert.Equal(t, failureURL, rec.Header().Get(echo.HeaderLocation))
				return
			}
			assert.Contains(t, rec.Body.String(), tt.contains)
		})
	}
}

func TestErrorHandler_CommittedResponseIsLeftAlone(t *testing.T) {
	a := &App{Config: testConfig("http://hydra.invalid"), Echo: echo.New()}
	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	rec := httptest.NewRecorder()
	c := a.Echo.NewContext(req, rec)
	require.NoError(t, c.NoContent(http.StatusNoContent))

	a.errorHandler(apperror.NewInput("late"), c)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get(echo.HeaderLocation))
}

// --- Wired application ---

func TestApp_MissingChallengeRedirectsToFailureURL(t *testing.T) {
	a := newTestApp(t, "http://hydra.invalid")

	paths := []string{
		"/login", "/consent", "/logout", "/register", "/reset-password",
		"/verify-email", "/enter-verification-code", "/change-password",
	}
	for _, path := range paths {
		rec := a.get(path)
		assert.Equal(t, http.StatusFound, rec.Code, path)
		assert.Equal(t, failureURL, rec.Header().Get(echo.HeaderLocation), path)
	}
}

func TestApp_ProfileWithoutSessionRedirectsToFailureURL(t *testing.T) {
	a := newTestApp(t, "http://hydra.invalid")

	rec := a.get("/edit-profile?return_url=%2F")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, failureURL, rec.Header().Get(echo.HeaderLocation))
}

func TestApp_BackendFailuresRenderErrorPages(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		want     int
		contains string
	}{
		{"expired challenge", http.StatusNotFound, http.StatusBadRequest, "sign in again"},
		{"backend down", http.StatusBadGateway, http.StatusServiceUnavailable, "temporarily unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"not_found"}`))
			}))
			t.Cleanup(backend.Close)
			a := newTestApp(t, backend.URL)

			rec := a.get("/login?login_challenge=expired")

			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.contains)
			assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
		})
	}
}

func TestApp_TermsAndStatic(t *testing.T) {
	a := newTestApp(t, "http://hydra.invalid")

	rec := a.get("/terms")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/html")

	rec = a.get("/static/style.css")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestApp_Healthz(t *testing.T) {
	a := newTestApp(t, "http://hydra.invalid")
	a.db.ExpectPing()

	rec := a.get("/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"database":"ok","redis":"ok"}`, rec.Body.String())
	assert.NoError(t, a.db.ExpectationsWereMet())
}

func TestApp_HealthzReportsUnreachableRedis(t *testing.T) {
	a := newTestApp(t, "http://hydra.invalid")
	a.db.ExpectPing()
	a.redis.Close()

	rec := a.get("/healthz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"database":"ok","redis":"unreachable"}`, rec.Body.String())
}

func TestApp_Metrics(t *testing.T) {
	a := newTestApp(t, "http://hydra.invalid")

	rec := a.get("/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
