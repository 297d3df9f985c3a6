package redpanda

import (
	"encoding/json"
	"errors"

	"github.com/fairyhunter13/job-match-scorer/internal/domain"
)

// failureCode maps a processing error to a stable code for logs.
func failureCode(err error) string {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr), errors.Is(err, domain.ErrSchemaInvalid):
		return "SCHEMA_INVALID"
	case errors.Is(err, domain.ErrInvalidArgument):
		return "INVALID_ARGUMENT"
	case errors.Is(err, domain.ErrUpstreamTimeout):
		return "UPSTREAM_TIMEOUT"
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return "UPSTREAM_UNAVAILABLE"
	default:
		return "INTERNAL"
	}
}

// permanent reports whether redelivering the record cannot succeed.
func permanent(err error) bool {
	switch failureCode(err) {
	case "SCHEMA_INVALID", "INVALID_ARGUMENT":
		return true
	default:
		return false
	}
}
