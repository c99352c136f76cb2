package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/farid/collabco/internal/observability"
)

// messageResponse is the generic {message} error/ack body.
type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) respondJSON(w http.ResponseWriter, route string, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			s.logger.Error().Err(err).Str("route", route).Msg("Failed to encode response")
		}
	}
	observability.RecordHTTPRequest(route, statusClass(status))
}

func (s *Server) respondMessage(w http.ResponseWriter, route string, status int, message string) {
	s.respondJSON(w, route, status, messageResponse{Message: message})
}

// respondServerError logs the cause and hides it behind a generic body.
func (s *Server) respondServerError(w http.ResponseWriter, route string, err error) {
	s.logger.Error().Err(err).Str("route", route).Msg("Request failed")
	observability.RecordStoreError(route)
	s.respondMessage(w, route, http.StatusInternalServerError, "server error")
}

func statusClass(status int) string {
	return fmt.Sprintf("%dxx", status/100)
}
