package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IndependentRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	a, b := New(), New()
	a.Flow("login", OutcomeAccepted)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.FlowOutcomes.WithLabelValues("login", OutcomeAccepted)))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.FlowOutcomes.WithLabelValues("login", OutcomeAccepted)))
}

func TestObserveBackend_LabelsOutcome(t *testing.T) {
	m := New()
	m.ObserveBackend("get_login_request", nil, 20*time.Millisecond)
	m.ObserveBackend("get_login_request", errors.New("503"), time.Second)

	assert.Equal(t, 2, testutil.CollectAndCount(m.BackendRequestDuration))
}

func TestNilMetrics_NoPanic(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveBackend("accept_login", nil, time.Millisecond)
		m.Flow("consent", OutcomeTrusted)
		m.Session("valid")
		m.Email("welcome", nil)
	})
}

func TestHandler_ExposesApplicationMetrics(t *testing.T) {
	m := New()
	m.Session("revoked")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `identity_session_checks_total{result="revoked"} 1`)
}
