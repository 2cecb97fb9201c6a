// Package handlers implements the HTTP endpoints of the gate service.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/kozaktomas/gatex/internal/database"
	"github.com/kozaktomas/gatex/internal/fact"
	"github.com/kozaktomas/gatex/internal/visit"
	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "web").Logger().Output(zerolog.ConsoleWriter{
	Out:        os.Stderr,
	TimeFormat: "15:04:05",
})

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusForError maps an ingestion or store error to an HTTP status.
// Rejected input is 400 so the producer drops it; store and collaborator
// failures are 5xx so the producer redelivers the event.
func statusForError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, fact.ErrMalformedIdentifier), errors.Is(err, fact.ErrUnknownCamera):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrTransient):
		return http.StatusServiceUnavailable
	case errors.Is(err, visit.ErrCollaborator):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// statusRank orders statuses so a batch reports the one most worth retrying.
func statusRank(status int) int {
	switch status {
	case http.StatusServiceUnavailable:
		return 4
	case http.StatusBadGateway:
		return 3
	case http.StatusInternalServerError:
		return 2
	case http.StatusBadRequest:
		return 1
	}
	return 0
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
