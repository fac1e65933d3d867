package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/target/filetrack-api/internal/data"
	domainauth "github.com/target/filetrack-api/internal/domain/auth"
	apperrors "github.com/target/filetrack-api/internal/errors"
)

var errInternal = errors.New("internal server error")

// statusFor maps a service error to an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domainauth.ErrUnauthenticated):
		return http.StatusUnauthorized, "authentication_required"
	case errors.Is(err, data.ErrJobNotFound),
		errors.Is(err, data.ErrJobFileNotFound),
		errors.Is(err, data.ErrTagNotFound),
		apperrors.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, data.ErrJobLocked):
		return http.StatusConflict, "job_locked"
	case errors.Is(err, data.ErrJobExists),
		errors.Is(err, data.ErrTagInUse),
		apperrors.IsConflict(err),
		apperrors.GetCode(err) == apperrors.ErrCodeForeignKey:
		return http.StatusConflict, "conflict"
	case errors.Is(err, data.ErrUnknownPathTag),
		errors.Is(err, data.ErrJobIDRequired),
		apperrors.IsValidation(err):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, context.DeadlineExceeded), apperrors.IsTimeout(err):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled), apperrors.IsCanceled(err):
		// 499 is not in net/http; clients that gave up never read it anyway.
		return 499, "canceled"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// WriteServiceError maps err to a status and writes the JSON error body.
// Server errors are logged and their details are not sent to the client.
func WriteServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, err error) {
	code, errCode := statusFor(err)
	if code >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			"operation", op,
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
		err = errInternal
		if code == http.StatusGatewayTimeout {
			err = errors.New("request timed out")
		}
	}
	WriteError(w, ErrorParams{Code: code, ErrCode: errCode, Err: err})
}
