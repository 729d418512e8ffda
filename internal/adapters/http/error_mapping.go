package httpadapter

import (
	"net/http"

	"github.com/processedornot/scanner/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrProductNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrDuplicateProduct):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
