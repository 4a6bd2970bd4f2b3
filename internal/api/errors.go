package api

import (
	"errors"
	"net/http"

	"github.com/lherron/syncp/internal/domain"
)

// StatusFor maps an error to its HTTP status and response body
func StatusFor(err error) (int, ErrorResponse) {
	var (
		ve *domain.ValueError
		nf *domain.NotFoundError
		fe *domain.ForbiddenError
		em *domain.ETagMismatchError
	)
	switch {
	case errors.As(err, &nf):
		return http.StatusNotFound, ErrorResponse{Code: CodeNotFound, Message: err.Error(), Resource: nf.Resource, ID: nf.ID}
	case errors.As(err, &fe):
		return http.StatusForbidden, ErrorResponse{Code: CodeForbidden, Message: fe.Message}
	case errors.As(err, &em):
		return http.StatusPreconditionFailed, ErrorResponse{Code: CodeETagMismatch, Message: err.Error(), ID: em.ID, Expected: em.Expected, Actual: em.Actual}
	case errors.As(err, &ve):
		return http.StatusBadRequest, ErrorResponse{Code: CodeInvalid, Message: ve.Message}
	default:
		return http.StatusInternalServerError, ErrorResponse{Code: CodeInternal, Message: err.Error()}
	}
}

// Err rebuilds the typed error a response describes. Unknown codes give nil.
func (e ErrorResponse) Err() error {
	switch e.Code {
	case CodeNotFound:
		return &domain.NotFoundError{Resource: e.Resource, ID: e.ID}
	case CodeForbidden:
		return &domain.ForbiddenError{Message: e.Message}
	case CodeETagMismatch:
		return &domain.ETagMismatchError{ID: e.ID, Expected: e.Expected, Actual: e.Actual}
	case CodeInvalid:
		return &domain.ValueError{Message: e.Message}
	default:
		return nil
	}
}
