package server

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/certihub/pkg/errkind"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errkind.New(errkind.Forbidden, "unauthorized", "X-User-Id header is required")
	ErrInvalidRequest = errkind.New(errkind.InvalidInput, "invalid_request", "request body or query is malformed")
	ErrNotFound       = errkind.New(errkind.NotFound, "not_found", "")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError(cause error) error {
	if cause == nil {
		return ErrInvalidRequest
	}
	return errors.Mark(errors.WithHint(errors.Wrap(cause, "bind request"), "request body or query is malformed"), errkind.InvalidInput)
}

func statusFor(err error) int {
	switch errkind.KindOf(err) {
	case errkind.InvalidInput:
		return http.StatusBadRequest
	case errkind.Forbidden:
		return http.StatusForbidden
	case errkind.Conflict, errkind.InvalidState:
		return http.StatusConflict
	case errkind.NotFound:
		return http.StatusNotFound
	case errkind.UpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func mapError(err error) (int, errorPayload) {
	status := statusFor(err)
	if status == http.StatusInternalServerError || err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
	if status == http.StatusBadGateway {
		return status, errorPayload{
			Type:    errkind.Code(err),
			Message: "upstream dependency failed",
			Hint:    "the request may be retried",
		}
	}
	return status, errorPayload{
		Type:    errkind.Code(err),
		Message: errors.UnwrapAll(err).Error(),
		Hint:    errkind.Hint(err),
	}
}

// classifyErrorForLog feeds error_type and error_code into the request log.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	if errkind.KindOf(err) == nil {
		return "internal_error", "internal_error"
	}
	return errkind.Code(err), errors.UnwrapAll(err).Error()
}
