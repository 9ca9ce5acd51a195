package api

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
)

// HandleWebSocket upgrades the connection and binds it to a session so that
// asynchronously produced assistant turns (welcome prompt, recall memories)
// reach the client.
// GET /ws?session_id=...
func (h *Handler) HandleWebSocket(c echo.Context) error {
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "session_id is required"})
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("Failed to upgrade WebSocket: %v", err)
		return err
	}

	conn := h.hub.NewConnection(ws, sessionID)
	h.hub.Register(conn)

	go conn.WritePump()
	conn.ReadPump(h.hub)

	return nil
}
