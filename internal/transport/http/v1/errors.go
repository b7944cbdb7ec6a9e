package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/AsfandAhmad/Study-ChatBot/internal/domain"
)

func statusFor(err error) int {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateSend), errors.Is(err, domain.ErrSessionClosed):
		return http.StatusConflict
	case domain.IsPersistence(err):
		return http.StatusServiceUnavailable
	case domain.IsUpstream(err):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status and body. When the store could not be
// written, a send response still carries the pending turns so the client
// can show them and retry with a flush.
func (h *Handler) writeError(c echo.Context, err error, resp *domain.SendMessageResponse) error {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.WithFields(logrus.Fields{
			"owner":  c.Param("owner_id"),
			"path":   c.Path(),
			"status": status,
		}).WithError(err).Warn("request failed")
	}

	if resp != nil && status == http.StatusServiceUnavailable {
		resp.Error = err.Error()
		return c.JSON(status, resp)
	}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return c.JSON(status, map[string]interface{}{
			"error":   err.Error(),
			"reasons": ve.Reasons,
		})
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
}
