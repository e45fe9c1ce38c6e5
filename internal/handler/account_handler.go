package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lealta/campaign-engine/internal/domain"
	"github.com/lealta/campaign-engine/internal/service"
)

type AccountService interface {
	Create(ctx context.Context, tenantID string, input service.AccountInput) (*domain.SendingAccount, error)
	Update(ctx context.Context, tenantID, accountID string, input service.AccountInput) (*domain.SendingAccount, error)
	Delete(ctx context.Context, tenantID, accountID string) error
	List(ctx context.Context, tenantID string) ([]domain.SendingAccount, error)
}

type AccountHandler struct {
	service AccountService
}

func NewAccountHandler(service AccountService) (*AccountHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("account service is required")
	}
	return &AccountHandler{service: service}, nil
}

func RegisterAccountRoutes(router fiber.Router, service AccountService) error {
	h, err := NewAccountHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/accounts", h.CreateAccount)
	v1.Put("/accounts/:id", h.UpdateAccount)
	v1.Delete("/accounts/:id", h.DeleteAccount)
	v1.Get("/accounts", h.ListAccounts)

	return nil
}

type accountRequest struct {
	TenantID         string `json:"tenantId"`
	Name             string `json:"name"`
	PhoneNumber      string `json:"phoneNumber"`
	MaxDailyMessages int    `json:"maxDailyMessages"`
	IsPrimary        bool   `json:"isPrimary"`
	IsDefault        bool   `json:"isDefault"`
	Enabled          bool   `json:"enabled"`
}

type accountResponse struct {
	ID                string    `json:"id"`
	TenantID          string    `json:"tenantId"`
	Name              string    `json:"name"`
	PhoneNumber       string    `json:"phoneNumber"`
	MaxDailyMessages  int       `json:"maxDailyMessages"`
	MessagesSentToday int       `json:"messagesSentToday"`
	RemainingQuota    int       `json:"remainingQuota"`
	IsPrimary         bool      `json:"isPrimary"`
	IsDefault         bool      `json:"isDefault"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"createdAt"`
}

type listAccountsResponse struct {
	Data []accountResponse `json:"data"`
}

func (h *AccountHandler) CreateAccount(c *fiber.Ctx) error {
	var req accountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	created, err := h.service.Create(c.Context(), strings.TrimSpace(req.TenantID), toAccountInput(req))
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toAccountResponse(created))
}

func (h *AccountHandler) UpdateAccount(c *fiber.Ctx) error {
	var req accountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	id := strings.TrimSpace(c.Params("id"))
	updated, err := h.service.Update(c.Context(), strings.TrimSpace(req.TenantID), id, toAccountInput(req))
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toAccountResponse(updated))
}

func (h *AccountHandler) DeleteAccount(c *fiber.Ctx) error {
	tenantID := strings.TrimSpace(c.Query("tenantId"))
	if tenantID == "" {
		return toHTTPError(fmt.Errorf("%w: tenantId query parameter is required", domain.ErrValidation))
	}

	id := strings.TrimSpace(c.Params("id"))
	if err := h.service.Delete(c.Context(), tenantID, id); err != nil {
		return toHTTPError(err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AccountHandler) ListAccounts(c *fiber.Ctx) error {
	tenantID := strings.TrimSpace(c.Query("tenantId"))
	if tenantID == "" {
		return toHTTPError(fmt.Errorf("%w: tenantId query parameter is required", domain.ErrValidation))
	}

	accounts, err := h.service.List(c.Context(), tenantID)
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]accountResponse, 0, len(accounts))
	for i := range accounts {
		data = append(data, toAccountResponse(&accounts[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listAccountsResponse{Data: data})
}

func toAccountInput(req accountRequest) service.AccountInput {
	return service.AccountInput{
		Name:             strings.TrimSpace(req.Name),
		PhoneNumber:      strings.TrimSpace(req.PhoneNumber),
		MaxDailyMessages: req.MaxDailyMessages,
		IsPrimary:        req.IsPrimary,
		IsDefault:        req.IsDefault,
		Enabled:          req.Enabled,
	}
}

func toAccountResponse(a *domain.SendingAccount) accountResponse {
	if a == nil {
		return accountResponse{}
	}

	return accountResponse{
		ID:                a.ID,
		TenantID:          a.TenantID,
		Name:              a.Name,
		PhoneNumber:       a.PhoneNumber,
		MaxDailyMessages:  a.MaxDailyMessages,
		MessagesSentToday: a.MessagesSentToday,
		RemainingQuota:    a.RemainingQuota(),
		IsPrimary:         a.IsPrimary,
		IsDefault:         a.IsDefault,
		Status:            a.Status.String(),
		CreatedAt:         a.CreatedAt,
	}
}
