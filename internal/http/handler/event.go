package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/grindery-io/wallet-api/internal/http/dto"
	"github.com/grindery-io/wallet-api/internal/store"
)

type EventHandler struct {
	eventLogs store.EventLogStore
}

func NewEventHandler(eventLogs store.EventLogStore) *EventHandler {
	return &EventHandler{eventLogs: eventLogs}
}

// Get returns the delivery status of one event log row. Senders poll this to
// see whether a webhook made it through the pipeline.
func (h *EventHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event log id"})
		return
	}

	eventLog, err := h.eventLogs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to load event log", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load event"})
		return
	}

	c.JSON(http.StatusOK, dto.EventStatusResponse{
		EventLogID: eventLog.ID,
		EventID:    eventLog.EventID,
		Kind:       string(eventLog.Kind),
		Status:     string(eventLog.Status),
		Attempts:   eventLog.Attempts,
		LastError:  eventLog.LastError,
		CreatedAt:  eventLog.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  eventLog.UpdatedAt.Format(time.RFC3339),
	})
}
