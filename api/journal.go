package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anshulsoni4/whisper-well/classifier"
	"github.com/anshulsoni4/whisper-well/domain"
)

// GetJournalEntries returns journal entries, optionally filtered by range.
// GET /v1/journal/entries?range=all|today|week|on-this-day
func (h *Handler) GetJournalEntries(c echo.Context) error {
	ctx := c.Request().Context()

	var entries []domain.JournalEntry
	switch c.QueryParam("range") {
	case "", "all":
		entries = h.entries.List(ctx)
	case "today":
		entries = h.entries.ListToday(ctx)
	case "week":
		entries = h.entries.ListPastWeek(ctx)
	case "on-this-day":
		entries = h.entries.ListOnThisDay(ctx)
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown range"})
	}

	if entries == nil {
		entries = []domain.JournalEntry{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"entries": entries})
}

// GetJournalThemes returns tags recurring across the past week's entries.
// GET /v1/journal/themes
func (h *Handler) GetJournalThemes(c echo.Context) error {
	ctx := c.Request().Context()

	themes := classifier.CommonThemes(h.entries.ListPastWeek(ctx))
	if themes == nil {
		themes = []string{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"themes": themes})
}
