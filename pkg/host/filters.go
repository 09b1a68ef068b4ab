// ABOUTME: Built-in pipeline filters: recovery, body limits, correlation, logging,
// ABOUTME: identity resolution, and role/policy authorization.

package host

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kaladinstorm84/SwaggerMCP/pkg/identity"
)

// contextKey is the type for context keys used by pipeline filters.
type contextKey string

const correlationIDKey contextKey = "correlation_id"

// CorrelationID returns the correlation id assigned to the request, or ""
// if the pipeline has not run.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

// WithCorrelationID attaches a correlation id to the context. The
// correlation filter keeps a pre-assigned id instead of generating one.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// responseWriter captures status and byte counts for logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
	wroteHeader  bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.wroteHeader = true
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// recoveryFilter converts handler panics into 500 responses.
func (a *App) recoveryFilter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				a.logger.Error("handler panic",
					"method", r.Method,
					"path", r.URL.Path,
					"panic", rec,
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// maxBodyFilter caps request body size.
func (a *App) maxBodyFilter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, a.maxBodySize)
		}
		next.ServeHTTP(w, r)
	})
}

// correlationFilter extracts or generates a correlation id and echoes it on
// the response.
func (a *App) correlationFilter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := CorrelationID(r.Context())
		if id == "" {
			id = r.Header.Get(a.correlationHeader)
		}
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(a.correlationHeader, id)
		ctx := WithCorrelationID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingFilter logs each request with status, duration, and correlation id.
func (a *App) loggingFilter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		level := slog.LevelDebug
		if rw.statusCode >= 500 {
			level = slog.LevelError
		} else if rw.statusCode >= 400 {
			level = slog.LevelWarn
		}

		a.logger.Log(r.Context(), level, "request",
			"correlation_id", CorrelationID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes", rw.bytesWritten,
		)
	})
}

// identityFilter resolves the caller identity. An identity already attached
// to the context (the synthetic request path) is kept as-is.
func (a *App) identityFilter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identity.FromContext(r.Context()) == nil && a.provider != nil {
			ident, err := a.provider.IdentityFromRequest(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid credentials")
				return
			}
			if ident != nil {
				r = r.WithContext(identity.WithIdentity(r.Context(), ident))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// authorizeFilter enforces the operation's role and policy requirements.
func (a *App) authorizeFilter(op *Operation) Filter {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(op.Roles) == 0 && op.Policy == "" {
				next.ServeHTTP(w, r)
				return
			}

			ident := identity.FromContext(r.Context())
			if ident == nil {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !ident.HasAnyRole(op.Roles) {
				writeError(w, http.StatusForbidden, "insufficient role")
				return
			}
			if op.Policy != "" {
				if a.policies == nil || !a.policies(r.Context(), ident, op.Policy) {
					writeError(w, http.StatusForbidden, "policy requirement not met")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeError writes a JSON error body with the given status.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
