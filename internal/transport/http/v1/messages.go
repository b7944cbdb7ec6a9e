package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/AsfandAhmad/Study-ChatBot/internal/domain"
)

// SendMessage sends a message in a client session.
// POST /v1/owners/:owner_id/messages
func (h *Handler) SendMessage(c echo.Context) error {
	var req domain.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.OwnerID = c.Param("owner_id")

	resp, err := h.service.SendMessage(c.Request().Context(), req)
	if err != nil {
		return h.writeError(c, err, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

// NewConversation flushes a session and starts a new conversation.
// POST /v1/owners/:owner_id/sessions/:session_id/new
func (h *Handler) NewConversation(c echo.Context) error {
	resp, err := h.service.NewConversation(c.Request().Context(), c.Param("owner_id"), c.Param("session_id"))
	if err != nil {
		return h.writeError(c, err, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

// FlushSession retries the writes of a session's pending turns.
// POST /v1/owners/:owner_id/sessions/:session_id/flush
func (h *Handler) FlushSession(c echo.Context) error {
	resp, err := h.service.FlushSession(c.Request().Context(), c.Param("owner_id"), c.Param("session_id"))
	if err != nil {
		return h.writeError(c, err, resp)
	}
	return c.JSON(http.StatusOK, resp)
}
