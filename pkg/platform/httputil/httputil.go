// Package httputil holds the JSON response helpers shared by all handlers:
// one envelope shape, one error-to-status mapping.
package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	dErrors "casefile/pkg/domain-errors"
)

// ErrorResponse is the wire shape of every error: the machine-readable kind
// (the domain error code) and a human-readable message.
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message,omitempty"`
}

// WriteJSON serializes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError maps a coded error to its HTTP status and envelope. Internal
// failures never leak their message to the client.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := statusFor(code)

	resp := ErrorResponse{Kind: string(code)}
	if status < http.StatusInternalServerError {
		resp.Message = dErrors.MessageOf(err)
	}
	WriteJSON(w, status, resp)
}

func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound, dErrors.CodeOfficerNotFound:
		return http.StatusNotFound
	case dErrors.CodeCaseClosed, dErrors.CodeConflict,
		dErrors.CodeNoActiveAssignment, dErrors.CodeNotAssignedOfficer,
		dErrors.CodeNoPendingRequest:
		return http.StatusConflict
	case dErrors.CodeNotAuthorized:
		return http.StatusForbidden
	case dErrors.CodeValidation, dErrors.CodeBadRequest,
		dErrors.CodeEmptyNote, dErrors.CodeReasonRequired:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// maxBodyBytes bounds request bodies; complaint payloads are small.
const maxBodyBytes = 1 << 20

// DecodeJSON reads the request body into dst, rejecting oversized or
// malformed payloads with a bad_request code.
func DecodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return dErrors.New(dErrors.CodeBadRequest, "request body is required")
		}
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed JSON body")
	}
	return nil
}
