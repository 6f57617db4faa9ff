package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/pilacorp/go-did-sdk/did"
)

// ErrorBody is the error response envelope.
type ErrorBody struct {
	Errors []APIError `json:"errors"`
}

// APIError describes one failure.
type APIError struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Kind        string `json:"kind,omitempty"`
}

const genericDescription = "an unexpected error occurred"

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind did.Kind) int {
	switch kind {
	case did.KindInvalidIdentifier,
		did.KindMalformedDid,
		did.KindMalformedKey,
		did.KindMissingPublicKey,
		did.KindUnsupportedAlgorithm,
		did.KindUnsupportedMethod,
		did.KindInvalidArgument,
		did.KindNoAuthenticationKeys:
		return http.StatusBadRequest
	case did.KindResolutionFailed, did.KindMalformedDocument:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError answers with the status of err's kind. Uncategorized failures
// and self-certification failures never expose their detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := did.KindOf(err)
	status := StatusFor(kind)

	apiErr := APIError{
		Title:       http.StatusText(status),
		Description: err.Error(),
		Kind:        string(kind),
	}

	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"kind", kind,
			"error", err,
			"request_id", RequestID(r.Context()),
		)
		apiErr.Description = genericDescription
	} else {
		s.logger.DebugContext(r.Context(), "request rejected", "path", r.URL.Path, "error", err)
	}

	writeJSON(w, status, ErrorBody{Errors: []APIError{apiErr}})
}

func writeStatus(w http.ResponseWriter, status int, description string) {
	writeJSON(w, status, ErrorBody{Errors: []APIError{{
		Title:       http.StatusText(status),
		Description: description,
	}}})
}
