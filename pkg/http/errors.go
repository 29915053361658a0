package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/models"
)

// ErrorResponse represents a standard API error response
type ErrorResponse struct {
	Error      string `json:"error"`   // Machine-readable error code
	Message    string `json:"message"` // Human-readable message
	RetryAfter int    `json:"retry_after,omitempty"`
}

// WriteJSON writes v as a JSON body with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: errorCode, Message: message})
}

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// Order matters: the first match wins.
var twoFactorErrors = []errorMapping{
	{models.ErrInvalidCode, http.StatusUnprocessableEntity, "invalid_code", "The provided two-factor code is invalid."},
	// An unknown user answers exactly like a wrong code.
	{models.ErrUserNotFound, http.StatusUnprocessableEntity, "invalid_code", "The provided two-factor code is invalid."},
	{models.ErrMethodDisabled, http.StatusBadRequest, "method_disabled", "This two-factor method is not available."},
	{models.ErrAlreadyEnabled, http.StatusConflict, "already_enabled", "Two-factor authentication is already enabled."},
	{models.ErrNotEnabled, http.StatusBadRequest, "not_enabled", "Two-factor authentication is not enabled."},
	{models.ErrNoPendingSetup, http.StatusBadRequest, "no_pending_setup", "There is no two-factor setup to confirm."},
	{models.ErrDeliveryFailed, http.StatusBadGateway, "delivery_failed", "The verification code could not be sent."},
	{models.ErrInvalidInput, http.StatusBadRequest, "bad_request", "The request is invalid."},
}

// WriteTwoFactorError maps an engine error to a response. Rate limiting sets
// Retry-After; configuration faults and unknown errors are reported as 500
// without detail.
func WriteTwoFactorError(w http.ResponseWriter, err error) {
	var rle *models.RateLimitError
	if errors.As(err, &rle) {
		secs := rle.RetryAfterSeconds()
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		WriteJSON(w, http.StatusTooManyRequests, ErrorResponse{
			Error:      "rate_limit_exceeded",
			Message:    "Too many verification attempts.",
			RetryAfter: secs,
		})
		return
	}

	for _, m := range twoFactorErrors {
		if errors.Is(err, m.target) {
			WriteError(w, m.status, m.code, m.message)
			return
		}
	}

	WriteError(w, http.StatusInternalServerError, "internal_error", "An internal error occurred.")
}
