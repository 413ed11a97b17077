package httpx

import (
	"net/http"

	"github.com/sundayezeilo/yourlsbot/internal/errx"
)

// ErrorKindToStatus maps errx.Kind to HTTP status codes.
func ErrorKindToStatus(kind errx.Kind) int {
	switch kind {
	case errx.NotFound:
		return http.StatusNotFound
	case errx.Invalid:
		return http.StatusBadRequest
	case errx.Unavailable, errx.Persistence:
		return http.StatusServiceUnavailable
	case errx.Network:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorKindToCode maps errx.Kind to error codes for JSON responses.
func ErrorKindToCode(kind errx.Kind) string {
	switch kind {
	case errx.NotFound:
		return "not_found"
	case errx.Invalid:
		return "invalid_input"
	case errx.Unavailable:
		return "unavailable"
	case errx.Persistence:
		return "persistence_failed"
	case errx.Network:
		return "upstream_unreachable"
	default:
		return "internal_error"
	}
}
