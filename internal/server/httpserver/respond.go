package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Ursa1337/account-service/internal/common"
)

// errorResponse is the wire shape of every failure. The property key is only
// present when the failure is tied to a single request field.
type errorResponse struct {
	Error      string `json:"error"`
	Property   string `json:"property,omitempty"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

type statusResponse struct {
	Status string `json:"status"`
}

var statusOK = statusResponse{Status: "ok"}

func decodeJSON(r *http.Request, dest any) error {
	if r.Body == nil {
		return common.NewValidationError("", "request body required")
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return common.NewValidationError("", "malformed request body")
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// respondError translates a domain error into the wire envelope. Anything that
// is not a *common.Error is an internal failure and deliberately opaque.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var domainErr *common.Error
	if errors.As(err, &domainErr) {
		respondJSON(w, domainErr.Status, errorResponse{
			Error:      domainErr.Code,
			Property:   domainErr.Field,
			Message:    domainErr.Message,
			StatusCode: domainErr.Status,
		})
		return
	}

	s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err.Error())
	respondJSON(w, http.StatusInternalServerError, errorResponse{
		Error:      "internal_error",
		Message:    "Internal error",
		StatusCode: http.StatusInternalServerError,
	})
}
