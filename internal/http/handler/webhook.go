package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/grindery-io/wallet-api/internal/http/dto"
	"github.com/grindery-io/wallet-api/internal/model"
	"github.com/grindery-io/wallet-api/internal/service"
)

type WebhookHandler struct {
	service     service.EventIngestService
	traceHeader string
}

func NewWebhookHandler(service service.EventIngestService, traceHeader string) *WebhookHandler {
	return &WebhookHandler{
		service:     service,
		traceHeader: traceHeader,
	}
}

func (h *WebhookHandler) Receive(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid webhook request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var key struct {
		EventID string `json:"eventId"`
	}
	if err := json.Unmarshal(req.Params, &key); err != nil || key.EventID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "params.eventId is required"})
		return
	}

	traceID := c.GetHeader(h.traceHeader)
	if traceID == "" {
		if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
			traceID = spanCtx.TraceID().String()
		}
	}

	result, err := h.service.Ingest(ctx, service.EventIngestParams{
		Kind:    model.EventKind(req.Event),
		EventID: key.EventID,
		Payload: req.Params,
		TraceID: traceID,
	})
	if err != nil {
		if errors.Is(err, service.ErrUnknownKind) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.ErrorContext(ctx, "failed to ingest webhook event", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to ingest event"})
		return
	}

	c.JSON(http.StatusAccepted, dto.WebhookResponse{
		EventLogID: result.EventLog.ID,
		DedupeKey:  result.DedupeKey,
		Enqueued:   result.Enqueued,
		Duplicated: result.Duplicated,
	})
}
