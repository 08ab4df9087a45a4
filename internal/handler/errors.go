package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/actuallystonmai/shelf-recommender/internal/domain"
	"github.com/actuallystonmai/shelf-recommender/internal/logging"
)

// writeServiceError maps service errors onto status codes. Anything
// unrecognised is logged and reported as a 500 without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
	case errors.Is(err, domain.ErrBookNotFound):
		writeError(w, http.StatusNotFound, "book_not_found", "Book does not exist")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "request_timeout", "Request timed out, please try again")
	case errors.Is(err, domain.ErrStoreUnavailable):
		logging.Ctx(r.Context()).Error().Err(err).Msg("store unavailable")
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "Recommendations are temporarily unavailable")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("unhandled error")
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
