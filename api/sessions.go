package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anshulsoni4/whisper-well/llm"
	"github.com/anshulsoni4/whisper-well/session"
	"github.com/anshulsoni4/whisper-well/store"
)

// CreateSession starts a new conversation session. The welcome prompt and any
// anniversary memory arrive over the WebSocket channel.
// POST /v1/sessions
func (h *Handler) CreateSession(c echo.Context) error {
	ctx := c.Request().Context()

	sessionID := h.sessions.Start(ctx)
	h.recall.SessionStarted(ctx, sessionID)

	return c.JSON(http.StatusCreated, map[string]string{"session_id": sessionID})
}

// GetSessionTurns returns the ordered turn log for a session.
// GET /v1/sessions/:session_id/turns
func (h *Handler) GetSessionTurns(c echo.Context) error {
	sessionID := c.Param("session_id")

	turns, err := h.sessions.Turns(sessionID)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	}

	journalMode, _ := h.sessions.JournalMode(sessionID)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"turns":        turns,
		"journal_mode": journalMode,
	})
}

type postMessageRequest struct {
	Content string `json:"content"`
}

// PostMessage submits one user message and returns the resulting assistant
// turn.
// POST /v1/sessions/:session_id/messages
func (h *Handler) PostMessage(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.Param("session_id")

	var req postMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	turn, err := h.sessions.HandleMessage(ctx, sessionID, req.Content)
	if err != nil {
		return h.messageError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"turn": turn})
}

// messageError maps session errors onto transient, user-visible responses.
func (h *Handler) messageError(c echo.Context, err error) error {
	var completionErr *llm.CompletionError
	var persistenceErr *store.PersistenceError

	switch {
	case errors.Is(err, session.ErrEmptyInput):
		// Rejected silently: no turn, no error surfaced.
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, session.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	case errors.Is(err, session.ErrBusy):
		return c.JSON(http.StatusConflict, map[string]string{"error": "a response is already being generated"})
	case errors.Is(err, llm.ErrNotConfigured):
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": llm.ErrNotConfigured.Error()})
	case errors.As(err, &completionErr):
		return c.JSON(http.StatusBadGateway, map[string]string{"error": completionErr.Message})
	case errors.As(err, &persistenceErr):
		log.Printf("ERROR: journal persistence failure: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to save your journal entry"})
	default:
		log.Printf("ERROR: failed to handle message: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to generate response"})
	}
}

// ToggleJournalMode flips the journal-mode flag for the session.
// POST /v1/sessions/:session_id/journal-mode
func (h *Handler) ToggleJournalMode(c echo.Context) error {
	sessionID := c.Param("session_id")

	on, notice, err := h.sessions.ToggleJournalMode(sessionID)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	}

	resp := map[string]interface{}{"journal_mode": on}
	if notice != "" {
		resp["notice"] = notice
	}
	return c.JSON(http.StatusOK, resp)
}

// ResetSession discards the session state, as a page reload does.
// DELETE /v1/sessions/:session_id
func (h *Handler) ResetSession(c echo.Context) error {
	sessionID := c.Param("session_id")

	if err := h.sessions.Reset(sessionID); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	}
	return c.NoContent(http.StatusNoContent)
}
