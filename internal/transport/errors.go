package transport

import (
	"context"
	"errors"
	"net/http"

	"storefront-catalog/internal/catalogapi"
	"storefront-catalog/internal/filterstore"
	"storefront-catalog/internal/middleware"
	"storefront-catalog/internal/session"
)

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{session.ErrSessionNotFound, http.StatusNotFound, "session_not_found"},
	{session.ErrSessionClosed, http.StatusGone, "session_closed"},
	{session.ErrNoHistory, http.StatusConflict, "no_history"},
	{filterstore.ErrUnknownDimension, http.StatusBadRequest, "unknown_dimension"},
	{catalogapi.ErrCatalogUnavailable, http.StatusServiceUnavailable, "catalog_unavailable"},
	{catalogapi.ErrUnexpectedStatus, http.StatusBadGateway, "catalog_error"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "catalog_timeout"},
}

// respondWithDomainError maps known errors to statuses. Anything else is a
// 500 and is logged by the request logging middleware.
func respondWithDomainError(w http.ResponseWriter, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			middleware.RespondWithErrorDetails(w, m.status, m.code, err.Error(), nil)
			return
		}
	}
	middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
}
