// Package errhttp maps domain sentinel errors to HTTP status codes.
// Add a case to mapErrorToStatus for each new domain sentinel error.
package errhttp

import (
	"errors"
	"net/http"

	"github.com/ghuser/catalog/pkg/httpx"
	itemdomain "github.com/ghuser/catalog/services/item/domain"
)

// WriteError maps err to an HTTP status code and writes a JSON error response.
// Uses errors.Is() so wrapped sentinel errors are matched correctly.
// Defaults to 500 Internal Server Error for unrecognized errors.
func WriteError(w http.ResponseWriter, err error) {
	httpx.JSONError(w, mapErrorToStatus(err), err.Error())
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, itemdomain.ErrItemNotFound):
		return http.StatusNotFound // 404
	// Conflict before validation: uniqueness violations match both classes
	// and must surface as 409, not 422.
	case errors.Is(err, itemdomain.ErrConflict):
		return http.StatusConflict // 409
	case errors.Is(err, itemdomain.ErrValidation):
		return http.StatusUnprocessableEntity // 422
	case errors.Is(err, itemdomain.ErrServiceUnavailable):
		return http.StatusServiceUnavailable // 503
	default:
		return http.StatusInternalServerError // 500
	}
}
