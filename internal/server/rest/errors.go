package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/nizamla/internal/common"
	"github.com/dmitrijs2005/nizamla/internal/logging"
	"github.com/dmitrijs2005/nizamla/internal/server/services"
)

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	StatusCode int      `json:"statusCode"`
	Error      string   `json:"error"`
	Details    []string `json:"details,omitempty"`
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, "validation failed"
	case errors.Is(err, common.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "service temporarily unavailable"
	case errors.Is(err, common.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid username or password"
	case errors.Is(err, common.ErrInvalidOrExpiredRefreshToken):
		return http.StatusUnauthorized, "invalid or expired refresh token"
	case errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, common.ErrTooManyAttempts):
		return http.StatusTooManyRequests, "too many failed login attempts"
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden, "access to this resource is denied"
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusConflict, "already exists"
	}
	return http.StatusInternalServerError, "internal server error"
}

// writeError maps err to a status and writes the error body. Details are
// only exposed for client errors.
func writeError(ctx context.Context, w http.ResponseWriter, logger logging.Logger, err error) {
	status, msg := classify(err)
	body := errorResponse{StatusCode: status, Error: msg}

	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		body.Details = verr.Messages()
	case status == http.StatusConflict:
		body.Details = []string{err.Error()}
	}

	if status >= http.StatusInternalServerError {
		logger.Error(ctx, "request failed", "status", status, "error", err)
	} else {
		logger.Debug(ctx, "request rejected", "status", status, "error", err)
	}
	writeJSON(w, status, body)
}

func badRequest(ctx context.Context, w http.ResponseWriter, logger logging.Logger, msg string) {
	writeError(ctx, w, logger, &services.ValidationError{Fields: []services.FieldError{{Field: "body", Message: msg}}})
}
