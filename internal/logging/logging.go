// Package logging builds the application logger and carries request-scoped loggers through a context.
package logging

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5/middleware"
)

// New creates a [log.Logger] writing to w with timestamps enabled.
// An unrecognized level falls back to info. The writer defaults to [os.Stderr].
func New(w io.Writer, level string) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           lvl,
	})
}

// Discard returns a logger that drops everything; used by tests and optional dependencies.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

// WithContext stores l in ctx.
func WithContext(ctx context.Context, l *log.Logger) context.Context {
	return log.WithContext(ctx, l)
}

// FromContext returns the request logger stored in ctx, or the default logger.
func FromContext(ctx context.Context) *log.Logger {
	return log.FromContext(ctx)
}

// RequestLogger attaches a logger tagged with the chi request ID to every request
// and logs one line per completed request.
func RequestLogger(base *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLog := base.With("request_id", middleware.GetReqID(r.Context()))
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(WithContext(r.Context(), reqLog)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			reqLog.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"duration", time.Since(start).Round(time.Millisecond),
			)
		})
	}
}
