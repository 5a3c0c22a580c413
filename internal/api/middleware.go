package api

import (
	"errors"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chis/kbcatalog/internal/logging"
)

var errInternal = errors.New("internal server error")

// CorrelationIDHeader carries the request correlation ID in both directions.
const CorrelationIDHeader = "X-Correlation-ID"

// ChainMiddleware wraps h so that the first middleware is outermost.
func ChainMiddleware(h http.Handler, middleware ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	return h
}

// CorrelationIDMiddleware tags the request context with the caller's
// X-Correlation-ID, or a fresh UUID, and echoes it on the response.
func CorrelationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(CorrelationIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(CorrelationIDHeader, id)

		ctx := logging.WithCorrelationID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RecoverMiddleware turns a handler panic into a 500 response.
func RecoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w}
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logging.ErrorContext(r.Context(), "Panic serving %s %s: %v\n%s", r.Method, r.URL.Path, rec, debug.Stack())
				if !sw.wroteHeader {
					RespondInternalError(w, errInternal)
				}
			}
		}()
		next.ServeHTTP(sw, r)
	})
}

// RequestLoggingMiddleware logs each request with its status and duration.
// Browsing endpoints that clients poll log at debug level.
func RequestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logging.WithLogFields(r.Context(), logging.Fields{
			"method":    r.Method,
			"path":      r.URL.Path,
			"client_ip": getClientIP(r),
		})

		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r.WithContext(ctx))

		status := sw.status()
		ms := time.Since(start).Milliseconds()
		ctx = logging.WithLogFields(ctx, logging.Fields{"status": status, "duration_ms": ms})

		switch {
		case status >= 500:
			logging.ErrorContext(ctx, "Request failed: %s %s - %d", r.Method, r.URL.Path, status)
		case status >= 400:
			logging.WarnContext(ctx, "Request error: %s %s - %d", r.Method, r.URL.Path, status)
		case quietPath(r.URL.Path):
			logging.DebugContext(ctx, "Request completed: %s %s - %d (%dms)", r.Method, r.URL.Path, status, ms)
		default:
			logging.InfoContext(ctx, "Request completed: %s %s - %d (%dms)", r.Method, r.URL.Path, status, ms)
		}
	})
}

func quietPath(path string) bool {
	switch path {
	case "/api/health", "/api/events", "/api/search", "/api/stats":
		return true
	}
	return strings.HasSuffix(path, "/view")
}

// statusWriter records the status code written through it.
type statusWriter struct {
	http.ResponseWriter
	code        int
	wroteHeader bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.wroteHeader {
		sw.code = code
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if !sw.wroteHeader {
		sw.WriteHeader(http.StatusOK)
	}
	return sw.ResponseWriter.Write(b)
}

func (sw *statusWriter) status() int {
	if !sw.wroteHeader {
		return http.StatusOK
	}
	return sw.code
}

// Flush keeps SSE streaming working through the wrapper.
func (sw *statusWriter) Flush() {
	if f, ok := sw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}
