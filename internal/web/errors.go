package web

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/justestif/mixtape-studio/internal/auth"
	"github.com/justestif/mixtape-studio/internal/logging"
	"github.com/justestif/mixtape-studio/internal/recommend"
	"github.com/justestif/mixtape-studio/internal/session"
)

// errorCode returns a short code shown to the user and written to the log.
func errorCode() string {
	return uuid.NewString()[24:]
}

// fail maps err to a response. sc may be nil when the session itself could not be loaded.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, sc *session.Context, err error) {
	log := logging.FromContext(r.Context())

	switch {
	case errors.Is(err, session.ErrNoSession):
		log.Debug("request without a session user, sending to login", "path", r.URL.Path)
		http.Redirect(w, r, "/", http.StatusFound)
		return

	case errors.Is(err, session.ErrNoSuchUser):
		log.Warn("session user missing from the database, sending to login", "path", r.URL.Path)
		if sc != nil {
			if err := h.sessions.Save(r, w, sc); err != nil {
				log.Error("saving cleared session", "err", err)
			}
		}
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	code := errorCode()
	data := ErrorPageData{
		PageData: PageData{Title: "Something went wrong", CurrentPath: r.URL.Path},
		Heading:  "Something went wrong",
		Code:     code,
	}
	status := http.StatusInternalServerError

	var (
		providerErr *auth.ProviderError
		backendErr  *recommend.BackendError
	)
	switch {
	case errors.Is(err, auth.ErrStateMismatch):
		status = http.StatusBadRequest
		data.Heading = "Sign-in expired"
		data.Message = "Your sign-in attempt could not be verified. Please log in again."
	case errors.As(err, &providerErr):
		status = http.StatusBadGateway
		data.Heading = "Spotify sign-in failed"
		data.Message = "We could not reach Spotify to confirm your account. Please try again."
	case errors.As(err, &backendErr):
		status = http.StatusBadGateway
		data.Heading = "Could not build your playlist"
		data.Message = backendErr.Error()
	}

	log.Error("request failed", "path", r.URL.Path, "status", status, "error_code", code, "err", err)
	h.render(w, r, status, "error", data)
}

// badRequest renders a 400 page for malformed form input.
func (h *Handlers) badRequest(w http.ResponseWriter, r *http.Request, _ *session.Context, msg string) {
	code := errorCode()
	logging.FromContext(r.Context()).Warn("bad request", "path", r.URL.Path, "reason", msg, "error_code", code)
	h.render(w, r, http.StatusBadRequest, "error", ErrorPageData{
		PageData: PageData{Title: "Bad request", CurrentPath: r.URL.Path},
		Heading:  "Bad request",
		Message:  msg,
		Code:     code,
	})
}
