// Package api exposes the HTTP and WebSocket surface consumed by the browser
// client.
package api

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/anshulsoni4/whisper-well/hub"
	"github.com/anshulsoni4/whisper-well/recall"
	"github.com/anshulsoni4/whisper-well/session"
	"github.com/anshulsoni4/whisper-well/store"
)

// Handler holds the service dependencies for the HTTP handlers.
type Handler struct {
	sessions *session.Manager
	recall   *recall.Scheduler
	entries  *store.EntryStore
	hub      *hub.Hub
	upgrader websocket.Upgrader
}

// NewHandler creates a new API handler.
func NewHandler(sessions *session.Manager, rc *recall.Scheduler, entries *store.EntryStore, h *hub.Hub) *Handler {
	return &Handler{
		sessions: sessions,
		recall:   rc,
		entries:  entries,
		hub:      h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// The SPA is served from a different origin in development.
				return true
			},
		},
	}
}

// RegisterRoutes registers all routes on the Echo instance.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	e.POST("/v1/sessions", h.CreateSession)
	e.GET("/v1/sessions/:session_id/turns", h.GetSessionTurns)
	e.POST("/v1/sessions/:session_id/messages", h.PostMessage)
	e.POST("/v1/sessions/:session_id/journal-mode", h.ToggleJournalMode)
	e.DELETE("/v1/sessions/:session_id", h.ResetSession)

	e.GET("/v1/journal/entries", h.GetJournalEntries)
	e.GET("/v1/journal/themes", h.GetJournalThemes)

	e.GET("/ws", h.HandleWebSocket)
}

// Health returns service health.
// GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
