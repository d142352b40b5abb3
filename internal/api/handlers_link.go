package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	respond "github.com/mythosaz/destiny2-ha/internal/api/respond"
	"github.com/mythosaz/destiny2-ha/internal/authflow"
)

// LinkHandler drives account linking over HTTP: a JSON endpoint that starts
// the authorization handshake and the browser-facing OAuth callback.
type LinkHandler struct {
	flow *authflow.Flow
	log  zerolog.Logger
}

// NewLinkHandler creates a link handler.
func NewLinkHandler(flow *authflow.Flow, log zerolog.Logger) *LinkHandler {
	return &LinkHandler{flow: flow, log: log}
}

// StartAuthorization handles POST /api/link. The body carries the registered
// Bungie application credentials; the response carries the URL the account
// holder must open in a browser.
func (h *LinkHandler) StartAuthorization(w http.ResponseWriter, r *http.Request) {
	var app authflow.AppCredentials
	if err := json.NewDecoder(r.Body).Decode(&app); err != nil {
		respond.WriteBadRequest(w, "invalid JSON body")
		return
	}

	authorizeURL, state, err := h.flow.Begin(app)
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	respond.WriteJSON(w, http.StatusOK, map[string]string{
		"authorizeUrl": authorizeURL,
		"state":        state,
	})
}

// Callback handles GET /api/destiny2/callback. Bungie redirects the browser
// here, so responses are HTML pages rather than JSON.
func (h *LinkHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	if code == "" || state == "" {
		writeHTML(w, http.StatusBadRequest,
			"<html><body><h1>Error</h1><p>Missing code or state parameter.</p></body></html>")
		return
	}

	_, err := h.flow.Complete(r.Context(), state, code)
	switch {
	case errors.Is(err, authflow.ErrUnknownState):
		writeHTML(w, http.StatusBadRequest,
			"<html><body><h1>Error</h1><p>Unknown or expired authorization request. Start the linking flow again.</p></body></html>")
	case err != nil:
		h.log.Error().Err(err).Msg("authorization callback failed")
		writeHTML(w, http.StatusInternalServerError,
			fmt.Sprintf("<html><body><h1>Error</h1><p>Failed to complete authorization: %s</p></body></html>", err))
	default:
		writeHTML(w, http.StatusOK,
			"<html><body><h1>Success!</h1><p>Authorization complete. You can close this window.</p></body></html>")
	}
}

func writeHTML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
