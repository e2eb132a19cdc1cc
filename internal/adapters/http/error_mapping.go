package httpadapter

import (
	"net/http"

	"github.com/healthqa/testcase-search/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrInvalidConfig):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrWorkbookNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrBackendQuery):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
