package response

import (
	"encoding/json"
	"net/http"
)

// Response is the success envelope.
type Response struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ErrorDetail names one offending field.
type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorResponse struct {
	Error   bool          `json:"error"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// WriteJSON writes v with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func Success(w http.ResponseWriter, message string, data any) error {
	return WriteJSON(w, http.StatusOK, Response{Message: message, Data: data})
}

func Created(w http.ResponseWriter, message string, data any) error {
	return WriteJSON(w, http.StatusCreated, Response{Message: message, Data: data})
}

// Fail writes an error envelope with any status.
func Fail(w http.ResponseWriter, status int, message string, details ...ErrorDetail) error {
	return WriteJSON(w, status, ErrorResponse{Error: true, Message: message, Details: details})
}

func BadRequest(w http.ResponseWriter, message string, details ...ErrorDetail) error {
	return Fail(w, http.StatusBadRequest, message, details...)
}

func Unauthorized(w http.ResponseWriter, message string) error {
	return Fail(w, http.StatusUnauthorized, message)
}

func Forbidden(w http.ResponseWriter, message string) error {
	return Fail(w, http.StatusForbidden, message)
}

func NotFound(w http.ResponseWriter, message string) error {
	return Fail(w, http.StatusNotFound, message)
}

func TooManyRequests(w http.ResponseWriter, message string) error {
	return Fail(w, http.StatusTooManyRequests, message)
}

func InternalServerError(w http.ResponseWriter, message string) error {
	return Fail(w, http.StatusInternalServerError, message)
}

// ValidationError writes a 422 with per-field details.
func ValidationError(w http.ResponseWriter, details []ErrorDetail) error {
	return Fail(w, http.StatusUnprocessableEntity, "Validation failed", details...)
}
