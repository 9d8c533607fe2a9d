package core

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"velobrief/internal/types"
)

// defaultRequestTimeout applies when the config leaves REQUEST_TIMEOUT unset.
const defaultRequestTimeout = 29 * time.Second

// SecretTokenHeader carries the webhook shared secret.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

const requestIDHeader = "X-Request-Id"

// defaultRedactedHeaders are masked in request logs.
var defaultRedactedHeaders = []string{
	"Authorization",
	"Cookie",
	SecretTokenHeader,
}

// MountRoutes registers the middleware chain, /health and every registrar.
//
// Order:
//  1. Recoverer      - outermost; opens the request annotations and turns
//     panics from everything below into a logged 500.
//  2. ContextTimeout - soft deadline under the platform hard timeout.
//  3. RequestID      - correlation id for logs and outbound calls.
//  4. RequestLogger  - one line per request carrying the annotations that
//     handlers add (update_id, chat_id).
func (s *Server) MountRoutes() {
	s.router.Use(s.Recoverer)
	s.router.Use(ContextTimeoutMiddleware(s.requestTimeout()))
	s.router.Use(RequestIDMiddleware)
	s.router.Use(RequestLogger(s.Logger, defaultRedactedHeaders))

	s.router.Get("/health", s.HandleHealth)
	for _, registrar := range s.RouteRegistrars {
		registrar(s.router)
	}
}

func (s *Server) requestTimeout() time.Duration {
	if s.Config != nil && s.Config.Server.RequestTimeout > 0 {
		return s.Config.Server.RequestTimeout
	}
	return defaultRequestTimeout
}

// ContextTimeoutMiddleware sets a deadline on the request context.
func ContextTimeoutMiddleware(duration time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), duration)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDMiddleware reuses an inbound X-Request-Id or generates a UUID,
// stores it in the context, adds it to the request annotations and echoes
// it on the response.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)
		Annotate(r.Context(), slog.String("request_id", requestID))
		next.ServeHTTP(w, r.WithContext(types.WithRequestID(r.Context(), requestID)))
	})
}
