package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/muxfetch/muxfetch/internal/events"
)

// EventsHandler handles system event endpoints
type EventsHandler struct {
	eventBus events.EventBus
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(eventBus events.EventBus) *EventsHandler {
	return &EventsHandler{
		eventBus: eventBus,
	}
}

// GetEvents returns recent events from the in-memory buffer with optional
// type/source filtering, plus bus statistics.
func (h *EventsHandler) GetEvents(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "50")
	eventType := c.Query("type")
	source := c.Query("source")

	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}

	filter := events.EventFilter{}
	if eventType != "" {
		filter.Types = []events.EventType{events.EventType(eventType)}
	}
	if source != "" {
		filter.Sources = []string{source}
	}

	recent := h.eventBus.GetRecentEvents(filter, limit)

	c.JSON(http.StatusOK, gin.H{
		"events": recent,
		"count":  len(recent),
		"limit":  limit,
		"stats":  h.eventBus.GetStats(),
	})
}
