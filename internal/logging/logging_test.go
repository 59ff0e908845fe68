package logging

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestNew_Level(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "warn")

	l.Info("hidden")
	l.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line logged at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn line missing: %q", out)
	}
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "chatty")

	l.Debug("debug line")
	l.Info("info line")

	if strings.Contains(buf.String(), "debug line") {
		t.Error("debug line logged with fallback level")
	}
	if !strings.Contains(buf.String(), "info line") {
		t.Error("info line missing with fallback level")
	}
}

func TestFromContext_RoundTrip(t *testing.T) {
	l := Discard()
	ctx := WithContext(context.Background(), l)

	if got := FromContext(ctx); got != l {
		t.Error("FromContext() did not return the stored logger")
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := New(&buf, "info")

	var sawLogger bool
	h := middleware.RequestID(RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawLogger = FromContext(r.Context()) != nil
		w.WriteHeader(http.StatusTeapot)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search", nil))

	if !sawLogger {
		t.Error("handler did not receive a request logger")
	}
	out := buf.String()
	for _, want := range []string{"request_id", "path=/search", "status=418"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}
