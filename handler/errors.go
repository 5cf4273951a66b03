package handler

import (
	"errors"
	"net/http"

	"storefront/model"
)

// fail writes the response for err. Anything the domain does not name is a
// 500 whose details only reach the log.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeErr(w, status, msg)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, model.ErrDuplicatePayment):
		return http.StatusConflict, model.ErrDuplicatePayment.Error()
	case errors.Is(err, model.ErrPaymentInProgress):
		return http.StatusConflict, model.ErrPaymentInProgress.Error()
	case errors.Is(err, model.ErrProductInUse):
		return http.StatusConflict, model.ErrProductInUse.Error()
	case errors.Is(err, model.ErrPaymentDeclined):
		return http.StatusBadRequest, model.ErrPaymentDeclined.Error()
	case errors.Is(err, model.ErrInvalidSignature):
		return http.StatusBadRequest, model.ErrInvalidSignature.Error()
	case errors.Is(err, model.ErrInvalidPayload):
		return http.StatusBadRequest, model.ErrInvalidPayload.Error()
	case model.IsValidation(err):
		return http.StatusBadRequest, err.Error()
	}
	return http.StatusInternalServerError, "internal server error"
}
