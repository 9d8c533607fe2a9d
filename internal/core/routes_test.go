package core

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"velobrief/internal/config"
	"velobrief/internal/types"
)

func newTestServerForRoutes(t *testing.T, registrars ...RouteRegistrar) *Server {
	t.Helper()
	cfg := &config.Config{Environment: "local"}
	cfg.Server.RequestTimeout = 5 * time.Second
	srv, err := NewServer(cfg, discardLogger())
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	srv.RouteRegistrars = registrars
	srv.MountRoutes()
	return srv
}

func TestMountRoutes_MiddlewareCount(t *testing.T) {
	srv := newTestServerForRoutes(t)
	if got := len(srv.Router().Middlewares()); got != 4 {
		t.Errorf("expected 4 middleware, got %d", got)
	}
}

func TestMountRoutes_HealthRegistered(t *testing.T) {
	srv := newTestServerForRoutes(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("expected X-Request-Id response header")
	}
}

func TestMountRoutes_RegistrarsReceiveContext(t *testing.T) {
	var (
		gotID       string
		hasDeadline bool
	)
	srv := newTestServerForRoutes(t, func(r chi.Router) {
		r.Post("/hook", func(w http.ResponseWriter, r *http.Request) {
			gotID = types.GetRequestID(r.Context())
			_, hasDeadline = r.Context().Deadline()
			w.WriteHeader(http.StatusOK)
		})
	})

	req := httptest.NewRequest(http.MethodPost, "/hook", nil)
	req.Header.Set("X-Request-Id", "upstream-id")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotID != "upstream-id" {
		t.Errorf("expected propagated request id, got %q", gotID)
	}
	if !hasDeadline {
		t.Error("expected request context deadline")
	}
}

func TestMountRoutes_PanicIsRecovered(t *testing.T) {
	srv := newTestServerForRoutes(t, func(r chi.Router) {
		r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestRequestIDMiddleware_GeneratesUUID(t *testing.T) {
	var got string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = types.GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if len(got) != 36 {
		t.Errorf("expected UUID request id, got %q", got)
	}
	if rec.Header().Get("X-Request-Id") != got {
		t.Error("response header should echo the request id")
	}
}

func TestRequestTimeout_Default(t *testing.T) {
	srv := &Server{Config: &config.Config{}}
	if got := srv.requestTimeout(); got != defaultRequestTimeout {
		t.Errorf("expected default timeout, got %v", got)
	}
}
