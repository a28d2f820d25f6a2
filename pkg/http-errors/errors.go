package httperrors

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "github.com/RahulUpadhay-art/consents-denied/pkg/domain-errors"
)

// ToHTTPStatus maps a domain error code to an HTTP status so the transport
// layer never inspects error strings.
func ToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeValidation:
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

// Write renders the consistent JSON error envelope. Infrastructure error
// kinds (persistence, bridge, authorization, transport) are handled inside
// the coordinator and should never reach this function; if one does it is
// rendered as an internal error without leaking the cause.
func Write(w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		code = domainErr.Code
	}
	status := ToHTTPStatus(code)

	body := map[string]string{"error": string(code)}
	if status < http.StatusInternalServerError {
		body["error_description"] = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
