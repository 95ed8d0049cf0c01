package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/Schwartzmorn/filevault/internal/logger"
	"github.com/Schwartzmorn/filevault/pkg/vault"
)

// errorResponse is the JSON body of every error reply.
type errorResponse struct {
	Error string `json:"error"`
}

// statusOf maps a store error code to its HTTP status.
func statusOf(code vault.ErrorCode) int {
	switch code {
	case vault.ErrNotFound:
		return http.StatusNotFound
	case vault.ErrVersionConflict:
		return http.StatusPreconditionFailed
	case vault.ErrDestinationOccupied:
		return http.StatusConflict
	case vault.ErrBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps an operation error to its HTTP reply. Infrastructure
// failures are logged server-side and reported as a bare 500; their details
// stay out of the response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := vault.CodeOf(err)
	status := statusOf(code)

	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("%s %s failed: %v", r.Method, r.URL.Path, err)
		message = "internal error"
	}

	writeJSON(w, status, errorResponse{Error: message})
}

// writeBadRequest reports a malformed request (bad token, bad header) before
// any store call was made.
func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
