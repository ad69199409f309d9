package handler

import (
	"errors"
	"net/http"

	"athena/internal/domain"
	"athena/internal/httputil"
)

// respondDomainError maps a domain error to its HTTP representation.
// Errors implementing domain.HTTPError carry their own status; known
// sentinels map to conventional codes; everything else is a 500 with a
// generic message (the real cause has already been logged).
func respondDomainError(w http.ResponseWriter, err error) {
	var httpErr domain.HTTPError
	if errors.As(err, &httpErr) {
		httputil.RespondError(w, httpErr.StatusCode(), httpErr.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, "unauthorized")
	default:
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}
