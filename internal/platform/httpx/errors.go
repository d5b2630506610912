// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for the transport layer.
var (
	ErrUnsupportedMediaType = errors.New("Content-Type must be application/json")
	ErrMethodNotAllowed     = errors.New("Method not allowed")
)

// StatusMap maps domain sentinel errors to HTTP status codes.
type StatusMap map[error]int

// RespondError writes err as an error payload. The first sentinel in statuses
// matched by errors.Is selects the status; anything else is a 500.
func RespondError(w http.ResponseWriter, err error, statuses StatusMap) {
	Error(w, StatusFor(err, statuses), err.Error())
}

// StatusFor resolves the HTTP status for err.
func StatusFor(err error, statuses StatusMap) int {
	switch {
	case errors.Is(err, ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed
	}
	for target, status := range statuses {
		if errors.Is(err, target) {
			return status
		}
	}
	return http.StatusInternalServerError
}
