package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/medicao-erp/medicao-erp/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Domain sentinels chain onto the shared ones, so one switch covers
// every package.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	var vErrs validator.ValidationErrors
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, r, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrConflict), errors.Is(err, shared.ErrIdempotencyConflict):
		Problem(w, r, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrInvalidStatus):
		Problem(w, r, http.StatusConflict, "Invalid Status", err.Error())
	case errors.Is(err, shared.ErrValidation), errors.Is(err, shared.ErrInvalidPeriod), errors.As(err, &vErrs):
		Problem(w, r, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	default:
		Problem(w, r, http.StatusInternalServerError, "Internal Error", "")
	}
}
