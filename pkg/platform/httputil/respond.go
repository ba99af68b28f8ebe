// Package httputil centralizes the JSON result envelope. Every endpoint,
// success or failure, answers with the same shape:
//
//	{"success": true,  "status": 200, "data": ...}
//	{"success": false, "status": 400, "message": "..."}
//
// so clients can branch on a single field. Internal faults are reported with
// a generic message; the underlying error is for logs only.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "till/pkg/domain-errors"
)

// Envelope is the uniform response body.
type Envelope struct {
	Success bool   `json:"success"`
	Status  int    `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// StatusOf maps a domain error code to its HTTP status. State conflicts and
// resource rejections deliberately surface as 400: the request was
// well-formed but cannot be satisfied, and the message says why.
func StatusOf(code dErrors.Code) int {
	switch code {
	case dErrors.CodeValidation, dErrors.CodeBadRequest,
		dErrors.CodeConflict, dErrors.CodeInvariantViolation:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// WriteData writes a success envelope.
func WriteData(w http.ResponseWriter, status int, data any) {
	write(w, status, Envelope{Success: true, Status: status, Data: data})
}

// WriteError translates a domain error into a failure envelope. Errors
// without a safe message (internal faults, plain errors) get a generic one.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := StatusOf(code)
	message := dErrors.MessageOf(err)
	if code == dErrors.CodeInternal || message == "" {
		message = "internal error"
	}
	write(w, status, Envelope{Success: false, Status: status, Message: message})
}

// WriteFailure writes a failure envelope with an explicit status and message,
// for cases with no domain error in hand (404 on unmatched routes).
func WriteFailure(w http.ResponseWriter, status int, message string) {
	write(w, status, Envelope{Success: false, Status: status, Message: message})
}

func write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
