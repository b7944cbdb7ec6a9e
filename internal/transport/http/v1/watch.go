package v1

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/AsfandAhmad/Study-ChatBot/internal/domain"
)

const (
	watchWriteTimeout = 10 * time.Second
	watchReadTimeout  = 60 * time.Second
	watchPingInterval = 30 * time.Second
	watchReadLimit    = 512
)

// Watch streams an owner's change events over a websocket. thread_id narrows
// the stream to one thread; session_id makes that session's view follow it.
// GET /v1/owners/:owner_id/watch
func (h *Handler) Watch(c echo.Context) error {
	ownerID := c.Param("owner_id")
	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	// Subscribe before the upgrade so nothing written after the handshake
	// is missed.
	events, unsubscribe, err := h.service.Subscribe(ctx, ownerID, c.QueryParam("thread_id"), c.QueryParam("session_id"))
	if err != nil {
		return h.writeError(c, err, nil)
	}
	defer unsubscribe()

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.WithError(err).Warn("failed to upgrade websocket")
		return nil
	}
	defer conn.Close()

	go h.watchReadPump(conn, cancel)
	h.watchWritePump(ctx, conn, events)
	return nil
}

// watchReadPump discards client frames and cancels the stream when the
// connection goes away.
func (h *Handler) watchReadPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(watchReadLimit)
	conn.SetReadDeadline(time.Now().Add(watchReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(watchReadTimeout))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.WithError(err).Debug("watch connection closed")
			}
			return
		}
	}
}

// watchWritePump writes events as JSON text frames and keeps the connection
// alive with pings.
func (h *Handler) watchWritePump(ctx context.Context, conn *websocket.Conn, events <-chan domain.ChangeEvent) {
	ticker := time.NewTicker(watchPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(watchWriteTimeout))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case ev, ok := <-events:
			conn.SetWriteDeadline(time.Now().Add(watchWriteTimeout))
			if !ok {
				// Broker closed the subscription.
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				h.log.WithError(err).Debug("failed to write change event")
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(watchWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
