package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersIncrement(t *testing.T) {
	t.Parallel()

	m := New()
	m.SignIn(ResultSuccess)
	m.SignIn(ResultFailure)
	m.SignIn(ResultFailure)
	m.Refresh(RefreshTransparent, ResultSuccess)
	m.GateRejected("TOKEN_EXPIRED")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.signIns.WithLabelValues(ResultSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.signIns.WithLabelValues(ResultFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshes.WithLabelValues(RefreshTransparent, ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gateRejections.WithLabelValues("TOKEN_EXPIRED")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	assert.NotPanics(t, func() {
		m.SignIn(ResultSuccess)
		m.Refresh(RefreshExplicit, ResultFailure)
		m.Logout("all")
		m.GateRejected("MISSING_TOKEN")
		m.Signup("verify", ResultSuccess)
	})
}

func TestHandlerExposesCounters(t *testing.T) {
	t.Parallel()

	m := New()
	m.Logout("device")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `estate_auth_logouts_total{mode="device"} 1`)
}

func TestResult(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ResultSuccess, Result(nil))
	assert.Equal(t, ResultFailure, Result(errors.New("boom")))
}
