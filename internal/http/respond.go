package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pickup-roster/internal/match"
	"github.com/slack-go/slack"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response", "error", err)
	}
}

// writeError maps the roster error taxonomy to status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	resp := errorResponse{Error: err.Error()}

	switch {
	case errors.Is(err, match.ErrNotAuthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, match.ErrNotAuthorized):
		status = http.StatusForbidden
	case errors.Is(err, match.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, match.ErrMatchFull):
		status = http.StatusConflict
		resp.Waitlist = true
	case errors.Is(err, match.ErrAlreadyWaiting),
		errors.Is(err, match.ErrAlreadyConfirmed),
		errors.Is(err, match.ErrSlotAvailable),
		errors.Is(err, match.ErrConfirmationsClosed),
		errors.Is(err, match.ErrNotNotified):
		status = http.StatusConflict
	case errors.Is(err, match.ErrContention):
		status = http.StatusServiceUnavailable
		w.Header().Set("Retry-After", "1")
	case errors.Is(err, match.ErrBalancerUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, match.ErrInvalidInput),
		errors.Is(err, match.ErrInvalidPosition),
		errors.Is(err, match.ErrInvalidTeamCount):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		log.Error("Request failed", "error", err)
		resp.Error = "internal error"
	} else {
		log.Debug("Request rejected", "status", status, "error", err)
	}
	writeJSON(w, status, resp)
}

// decodeJSON reads the request body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", match.ErrInvalidInput, err)
	}
	return nil
}

// respondWithSlackMsg is a helper to format and write a Slack message as an HTTP response.
func respondWithSlackMsg(w http.ResponseWriter, msg slack.Message) {
	writeJSON(w, http.StatusOK, msg)
}
