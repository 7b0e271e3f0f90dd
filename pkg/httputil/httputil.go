// Package httputil centralizes JSON encoding and domain error translation
// for HTTP handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	dErrors "veil/pkg/domain-errors"
)

// Validatable is implemented by request types that validate and parse
// themselves after decoding.
type Validatable interface {
	Validate() error
}

// errorCodes maps domain error codes to wire-level error identifiers.
var errorCodes = map[dErrors.Code]string{
	dErrors.CodeInternal:       "internal_error",
	dErrors.CodeBadRequest:     "bad_request",
	dErrors.CodeInvalidInput:   "invalid_input",
	dErrors.CodeValidation:     "validation_failed",
	dErrors.CodeNotFound:       "not_found",
	dErrors.CodeConflict:       "conflict",
	dErrors.CodeUnauthorized:   "unauthorized",
	dErrors.CodeTimeout:        "timeout",
	dErrors.CodeMissingConsent: "missing_consent",
	dErrors.CodeInvalidConsent: "invalid_consent",
}

// httpStatus maps domain error codes to HTTP status codes.
var httpStatus = map[dErrors.Code]int{
	dErrors.CodeInternal:       http.StatusInternalServerError,
	dErrors.CodeBadRequest:     http.StatusBadRequest,
	dErrors.CodeInvalidInput:   http.StatusBadRequest,
	dErrors.CodeValidation:     http.StatusUnprocessableEntity,
	dErrors.CodeNotFound:       http.StatusNotFound,
	dErrors.CodeConflict:       http.StatusConflict,
	dErrors.CodeUnauthorized:   http.StatusUnauthorized,
	dErrors.CodeTimeout:        http.StatusGatewayTimeout,
	dErrors.CodeMissingConsent: http.StatusForbidden,
	dErrors.CodeInvalidConsent: http.StatusForbidden,
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into a JSON error response.
// Internal errors omit the description so infrastructure details never
// reach clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	message := ""

	var dErr *dErrors.Error
	if errors.As(err, &dErr) {
		code = dErr.Code
		message = dErr.Message
	}

	wireCode, ok := errorCodes[code]
	if !ok {
		wireCode = "internal_error"
	}
	status, ok := httpStatus[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	body := map[string]string{"error": wireCode}
	if code != dErrors.CodeInternal && message != "" {
		body["error_description"] = message
	}
	WriteJSON(w, status, body)
}

// DecodeAndPrepare decodes the request body into T and runs its Validate
// method. On failure it writes the error response and returns ok=false.
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *zap.Logger) (PT, bool) {
	req := PT(new(T))
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		logger.Warn("invalid request body", zap.Error(err))
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}
	if err := req.Validate(); err != nil {
		logger.Warn("request validation failed", zap.Error(err))
		WriteError(w, err)
		return nil, false
	}
	return req, true
}
