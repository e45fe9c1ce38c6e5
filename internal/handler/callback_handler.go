package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lealta/campaign-engine/internal/domain"
	"github.com/lealta/campaign-engine/internal/queue"
)

// CallbackHandler is the ingress for provider webhooks. It validates the
// payload and hands it to the broker; the status consumer does the actual
// ledger and suppression work so a slow database never blocks the provider.
type CallbackHandler struct {
	publisher queue.Publisher
}

func NewCallbackHandler(publisher queue.Publisher) (*CallbackHandler, error) {
	if publisher == nil {
		return nil, fmt.Errorf("queue publisher is required")
	}
	return &CallbackHandler{publisher: publisher}, nil
}

func RegisterCallbackRoutes(router fiber.Router, publisher queue.Publisher) error {
	h, err := NewCallbackHandler(publisher)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/callbacks", h.ReceiveCallback)

	return nil
}

type callbackRequest struct {
	Type              string `json:"type"`
	TenantID          string `json:"tenantId"`
	ProviderMessageID string `json:"providerMessageId"`
	Status            string `json:"status"`
	PhoneNumber       string `json:"phoneNumber"`
	Body              string `json:"body"`
}

func (h *CallbackHandler) ReceiveCallback(c *fiber.Ctx) error {
	var req callbackRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	event := queue.StatusEvent{
		Type:              queue.EventType(strings.ToLower(strings.TrimSpace(req.Type))),
		TenantID:          strings.TrimSpace(req.TenantID),
		ProviderMessageID: strings.TrimSpace(req.ProviderMessageID),
		Status:            strings.TrimSpace(req.Status),
		PhoneNumber:       strings.TrimSpace(req.PhoneNumber),
		Body:              req.Body,
		Timestamp:         time.Now().UTC(),
	}

	if err := event.Validate(); err != nil {
		return toHTTPError(fmt.Errorf("%w: %s", domain.ErrValidation, err.Error()))
	}

	if err := h.publisher.Publish(c.Context(), queue.StatusQueueName, event); err != nil {
		return fmt.Errorf("failed to enqueue callback event: %w", err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status": "queued",
	})
}
