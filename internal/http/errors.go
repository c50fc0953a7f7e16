package http

import (
	"errors"
	"net/http"

	"finanote/internal/core"
	applog "finanote/internal/log"
)

// badRequestError marks input that could not be decoded at all.
type badRequestError struct {
	msg string
}

func (e badRequestError) Error() string { return e.msg }

type errorBody struct {
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// writeError maps domain errors to status codes. Internal errors are logged
// and never echoed to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBody{Message: err.Error()}
	errorType := applog.ErrorTypeInternal

	var (
		ve *core.ValidationError
		br badRequestError
	)
	switch {
	case errors.As(err, &ve):
		body.Status = http.StatusUnprocessableEntity
		body.Field = ve.Field
		body.Message = ve.Error()
		errorType = applog.ErrorTypeValidation
	case errors.As(err, &br):
		body.Status = http.StatusBadRequest
		errorType = applog.ErrorTypeValidation
	case errors.Is(err, core.ErrNotFound):
		body.Status = http.StatusNotFound
		body.Message = "resource not found"
		errorType = applog.ErrorTypeNotFound
	case errors.Is(err, core.ErrForbidden):
		body.Status = http.StatusForbidden
		body.Message = "access denied"
		errorType = applog.ErrorTypeForbidden
	default:
		body.Status = http.StatusInternalServerError
		body.Message = "internal server error"
	}
	body.Error = http.StatusText(body.Status)

	logger := applog.FromContext(r.Context())
	fields := applog.NewFields().WithError(err).WithErrorType(errorType).WithHTTPRequest(r.Method, r.URL.Path, "")
	if body.Status >= 500 {
		logger.ErrorContext(r.Context(), "Request failed", fields.ToSlice()...)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", fields.ToSlice()...)
	}

	NewJSONResponse().Status(body.Status).Body(body).Write(w)
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, err error) {
	applog.FromContext(r.Context()).DebugContext(r.Context(), "Authentication failed",
		applog.FieldError, err.Error(),
		applog.FieldErrorType, applog.ErrorTypeAuth)
	NewJSONResponse().
		Status(http.StatusUnauthorized).
		Header("WWW-Authenticate", `Bearer realm="finanote"`).
		Body(errorBody{
			Status:  http.StatusUnauthorized,
			Error:   http.StatusText(http.StatusUnauthorized),
			Message: errUnauthorized.Error(),
		}).
		Write(w)
}

func writeRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldErrorType, applog.ErrorTypeRateLimit,
		applog.FieldPath, r.URL.Path)
	NewJSONResponse().
		Status(http.StatusTooManyRequests).
		Body(errorBody{
			Status:  http.StatusTooManyRequests,
			Error:   http.StatusText(http.StatusTooManyRequests),
			Message: "rate limit exceeded, try again later",
		}).
		Write(w)
}
