package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// ListThreads lists an owner's threads, newest first.
// GET /v1/owners/:owner_id/threads
func (h *Handler) ListThreads(c echo.Context) error {
	limit := 0
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			limit = val
		}
	}

	resp, err := h.service.ListThreads(c.Request().Context(), c.Param("owner_id"), limit)
	if err != nil {
		return h.writeError(c, err, nil)
	}
	return c.JSON(http.StatusOK, resp)
}

// ListTurns lists the stored turns of a thread.
// GET /v1/owners/:owner_id/threads/:thread_id/turns
func (h *Handler) ListTurns(c echo.Context) error {
	resp, err := h.service.ListTurns(c.Request().Context(), c.Param("owner_id"), c.Param("thread_id"))
	if err != nil {
		return h.writeError(c, err, nil)
	}
	return c.JSON(http.StatusOK, resp)
}
