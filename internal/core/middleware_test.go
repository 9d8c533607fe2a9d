package core

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"velobrief/internal/config"
)

// logLines decodes every JSON record written to buf.
func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, raw := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(raw) == 0 {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal(raw, &entry))
		out = append(out, entry)
	}
	return out
}

func findLine(lines []map[string]any, msg string) map[string]any {
	for _, l := range lines {
		if l["msg"] == msg {
			return l
		}
	}
	return nil
}

func newLoggedServer(t *testing.T, level slog.Level, registrars ...RouteRegistrar) (*Server, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: level}))
	srv, err := NewServer(&config.Config{Environment: "local"}, logger)
	require.NoError(t, err)
	srv.RouteRegistrars = registrars
	srv.MountRoutes()
	return srv, &buf
}

func TestRequestLogger_IncludesAnnotations(t *testing.T) {
	srv, logs := newLoggedServer(t, slog.LevelInfo, func(r chi.Router) {
		r.Post("/telegram/webhook", func(w http.ResponseWriter, r *http.Request) {
			Annotate(r.Context(), slog.Int64("update_id", 9), slog.Int64("chat_id", 5))
			_, _ = w.Write([]byte("ok"))
		})
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/telegram/webhook", nil))

	line := findLine(logLines(t, logs), "request completed")
	require.NotNil(t, line)
	assert.Equal(t, "INFO", line["level"])
	assert.Equal(t, float64(http.StatusOK), line["status"])
	assert.Equal(t, float64(2), line["bytes"])
	assert.Equal(t, float64(9), line["update_id"])
	assert.Equal(t, float64(5), line["chat_id"])
	assert.Equal(t, rec.Header().Get("X-Request-Id"), line["request_id"])
	assert.NotContains(t, line, "headers")
}

func TestRequestLogger_LevelFollowsStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusForbidden, "WARN"},
		{http.StatusBadGateway, "ERROR"},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv, logs := newLoggedServer(t, slog.LevelInfo, func(r chi.Router) {
				r.Get("/status", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(tt.status) })
			})
			srv.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/status", nil))

			line := findLine(logLines(t, logs), "request completed")
			require.NotNil(t, line)
			assert.Equal(t, tt.level, line["level"])
		})
	}
}

func TestRequestLogger_MasksSecretHeaderAtDebug(t *testing.T) {
	srv, logs := newLoggedServer(t, slog.LevelDebug, func(r chi.Router) {
		r.Post("/telegram/webhook", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	})

	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", nil)
	req.Header.Set("x-telegram-bot-api-secret-token", "s3cret")
	req.Header.Set("User-Agent", "TelegramBot")
	srv.Handler().ServeHTTP(httptest.NewRecorder(), req)

	assert.NotContains(t, logs.String(), "s3cret")
	line := findLine(logLines(t, logs), "request completed")
	require.NotNil(t, line)
	headers, ok := line["headers"].(map[string]any)
	require.True(t, ok, "expected headers group at debug level")
	assert.Equal(t, "[REDACTED]", headers[SecretTokenHeader])
	assert.Equal(t, "TelegramBot", headers["User-Agent"])
}

func TestRecoverer_LogsAnnotationsAndWritesEnvelope(t *testing.T) {
	srv, logs := newLoggedServer(t, slog.LevelInfo, func(r chi.Router) {
		r.Post("/telegram/webhook", func(_ http.ResponseWriter, r *http.Request) {
			Annotate(r.Context(), slog.Int64("chat_id", 5))
			panic("boom")
		})
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/telegram/webhook", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal_unexpected_error", string(body.Error.Code))
	assert.Equal(t, rec.Header().Get("X-Request-Id"), body.Error.RequestID)

	lines := logLines(t, logs)
	panicLine := findLine(lines, "panic recovered")
	require.NotNil(t, panicLine)
	assert.Equal(t, "boom", panicLine["panic"])
	assert.Equal(t, float64(5), panicLine["chat_id"])
	assert.NotEmpty(t, panicLine["stack"])
}

func TestRecoverer_ReraisesAbortHandler(t *testing.T) {
	srv, _ := newLoggedServer(t, slog.LevelInfo)
	h := srv.Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestAnnotate_OutsideChassisIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		Annotate(t.Context(), slog.String("k", "v"))
	})
}
