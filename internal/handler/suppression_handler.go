package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lealta/campaign-engine/internal/domain"
)

type SuppressionService interface {
	OptOut(ctx context.Context, tenantID, phoneNumber, method string) (*domain.SuppressionEntry, error)
	List(ctx context.Context, tenantID string, limit int) ([]domain.SuppressionEntry, error)
}

type SuppressionHandler struct {
	service SuppressionService
}

func NewSuppressionHandler(service SuppressionService) (*SuppressionHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("suppression service is required")
	}
	return &SuppressionHandler{service: service}, nil
}

func RegisterSuppressionRoutes(router fiber.Router, service SuppressionService) error {
	h, err := NewSuppressionHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/suppressions", h.CreateSuppression)
	v1.Get("/suppressions", h.ListSuppressions)

	return nil
}

type createSuppressionRequest struct {
	TenantID    string `json:"tenantId"`
	PhoneNumber string `json:"phoneNumber"`
}

type suppressionResponse struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenantId"`
	PhoneNumber string    `json:"phoneNumber"`
	Method      string    `json:"method"`
	OptedOutAt  time.Time `json:"optedOutAt"`
}

type listSuppressionsResponse struct {
	Data []suppressionResponse `json:"data"`
}

func (h *SuppressionHandler) CreateSuppression(c *fiber.Ctx) error {
	var req createSuppressionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	entry, err := h.service.OptOut(c.Context(), strings.TrimSpace(req.TenantID), req.PhoneNumber, domain.OptOutMethodManual)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toSuppressionResponse(entry))
}

func (h *SuppressionHandler) ListSuppressions(c *fiber.Ctx) error {
	tenantID := strings.TrimSpace(c.Query("tenantId"))
	if tenantID == "" {
		return toHTTPError(fmt.Errorf("%w: tenantId query parameter is required", domain.ErrValidation))
	}

	limit := c.QueryInt("limit", defaultListLimit)
	if limit < 1 || limit > maxListLimit {
		return toHTTPError(fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrValidation, maxListLimit))
	}

	entries, err := h.service.List(c.Context(), tenantID, limit)
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]suppressionResponse, 0, len(entries))
	for i := range entries {
		data = append(data, toSuppressionResponse(&entries[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listSuppressionsResponse{Data: data})
}

func toSuppressionResponse(e *domain.SuppressionEntry) suppressionResponse {
	if e == nil {
		return suppressionResponse{}
	}

	return suppressionResponse{
		ID:          e.ID,
		TenantID:    e.TenantID,
		PhoneNumber: e.PhoneNumber,
		Method:      e.Method,
		OptedOutAt:  e.OptedOutAt,
	}
}
