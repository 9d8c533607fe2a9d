package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"velobrief/internal/types"
)

// trace accumulates the correlation attributes of one inbound request.
// Middleware creates it; handlers fill it through Annotate once they know
// which update and chat the request carries.
type trace struct {
	mu    sync.Mutex
	attrs []slog.Attr
}

type traceKey struct{}

func (t *trace) add(attrs ...slog.Attr) {
	t.mu.Lock()
	t.attrs = append(t.attrs, attrs...)
	t.mu.Unlock()
}

func (t *trace) snapshot() []slog.Attr {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]slog.Attr(nil), t.attrs...)
}

// withTrace returns r unchanged when it already carries a trace.
func withTrace(r *http.Request) (*http.Request, *trace) {
	if t, ok := r.Context().Value(traceKey{}).(*trace); ok {
		return r, t
	}
	t := &trace{}
	return r.WithContext(context.WithValue(r.Context(), traceKey{}, t)), t
}

// Annotate attaches attributes such as update_id and chat_id to the request
// log line and to any panic report for the current request. It is a no-op
// on contexts that did not come through the chassis.
func Annotate(ctx context.Context, attrs ...slog.Attr) {
	if t, ok := ctx.Value(traceKey{}).(*trace); ok {
		t.add(attrs...)
	}
}

// Recoverer turns a handler panic into a logged 500. http.ErrAbortHandler
// is re-raised so net/http can drop the connection.
func (s *Server) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, t := withTrace(r)
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			attrs := append([]slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("panic", fmt.Sprint(rec)),
				slog.String("stack", string(debug.Stack())),
			}, t.snapshot()...)
			s.Logger.LogAttrs(r.Context(), slog.LevelError, "panic recovered", attrs...)

			ctx := types.WithRequestID(r.Context(), w.Header().Get(requestIDHeader))
			Error(w, r.WithContext(ctx), types.NewAppError(types.ErrCodeInternalUnexpected, "internal server error", nil))
		}()
		next.ServeHTTP(w, r)
	})
}

// RequestLogger writes one line per request with status, size, latency and
// the annotations added downstream. Headers are logged only at debug level,
// with the named ones masked.
func RequestLogger(logger *slog.Logger, redacted []string) func(http.Handler) http.Handler {
	masked := make(map[string]bool, len(redacted))
	for _, name := range redacted {
		masked[http.CanonicalHeaderKey(name)] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, t := withTrace(r)
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			attrs := append([]slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote_addr", r.RemoteAddr),
			}, t.snapshot()...)

			ctx := r.Context()
			if logger.Enabled(ctx, slog.LevelDebug) {
				attrs = append(attrs, headerAttrs(r.Header, masked))
			}
			logger.LogAttrs(ctx, levelForStatus(status), "request completed", attrs...)
		})
	}
}

func headerAttrs(h http.Header, masked map[string]bool) slog.Attr {
	attrs := make([]any, 0, len(h))
	for name, values := range h {
		value := "[REDACTED]"
		if !masked[name] {
			value = strings.Join(values, ", ")
		}
		attrs = append(attrs, slog.String(name, value))
	}
	return slog.Group("headers", attrs...)
}

func levelForStatus(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
