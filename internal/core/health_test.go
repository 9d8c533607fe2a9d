package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCheck struct {
	name string
	err  error
	fn   func(ctx context.Context) error
}

func (f fakeCheck) Name() string { return f.name }

func (f fakeCheck) Check(ctx context.Context) error {
	if f.fn != nil {
		return f.fn(ctx)
	}
	return f.err
}

func getHealth(t *testing.T, srv *Server) (int, healthReport) {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var report healthReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	return rec.Code, report
}

func TestHandleHealth_HealthyWithSessionCount(t *testing.T) {
	srv := &Server{
		HealthChecks: []HealthCheck{fakeCheck{name: "forecast_provider"}, fakeCheck{name: "chat_api"}},
		SessionCount: func() int { return 3 },
	}

	code, report := getHealth(t, srv)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", report.Status)
	require.NotNil(t, report.Sessions)
	assert.Equal(t, 3, *report.Sessions)
	assert.Equal(t, map[string]string{"forecast_provider": "ok", "chat_api": "ok"}, report.Dependencies)
}

func TestHandleHealth_NoChecks(t *testing.T) {
	code, report := getHealth(t, &Server{})

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", report.Status)
	assert.Nil(t, report.Sessions)
	assert.Empty(t, report.Dependencies)
}

func TestHandleHealth_OpenBreakerIsUnavailable(t *testing.T) {
	srv := &Server{HealthChecks: []HealthCheck{
		fakeCheck{name: "forecast_provider"},
		fakeCheck{name: "chat_api", err: errors.New("chat_api circuit breaker is open")},
	}}

	code, report := getHealth(t, srv)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", report.Status)
	assert.Equal(t, "ok", report.Dependencies["forecast_provider"])
	assert.Equal(t, "chat_api circuit breaker is open", report.Dependencies["chat_api"])
}

func TestHandleHealth_SlowAndPanickingChecks(t *testing.T) {
	srv := &Server{HealthChecks: []HealthCheck{
		fakeCheck{name: "slow", fn: func(ctx context.Context) error {
			<-ctx.Done()
			time.Sleep(50 * time.Millisecond)
			return ctx.Err()
		}},
		fakeCheck{name: "broken", fn: func(context.Context) error { panic("nil client") }},
	}}

	code, report := getHealth(t, srv)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, errCheckTimedOut.Error(), report.Dependencies["slow"])
	assert.Contains(t, report.Dependencies["broken"], "nil client")
}
