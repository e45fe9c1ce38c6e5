package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lealta/campaign-engine/internal/domain"
	"github.com/lealta/campaign-engine/internal/service"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

type CampaignService interface {
	Create(ctx context.Context, input service.CreateCampaignInput) (*domain.Campaign, error)
	Start(ctx context.Context, campaignID string) (*domain.Campaign, error)
	Control(ctx context.Context, campaignID string, action string) (*domain.Campaign, error)
	Get(ctx context.Context, campaignID string) (*service.CampaignSnapshot, error)
	List(ctx context.Context, tenantID string, limit int) ([]service.CampaignSnapshot, error)
}

type CampaignHandler struct {
	service CampaignService
}

func NewCampaignHandler(service CampaignService) (*CampaignHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("campaign service is required")
	}
	return &CampaignHandler{service: service}, nil
}

func RegisterCampaignRoutes(router fiber.Router, service CampaignService) error {
	h, err := NewCampaignHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/campaigns", h.CreateCampaign)
	v1.Post("/campaigns/:id/start", h.StartCampaign)
	v1.Post("/campaigns/:id/control", h.ControlCampaign)
	v1.Get("/campaigns/:id", h.GetCampaign)
	v1.Get("/campaigns", h.ListCampaigns)

	return nil
}

type createCampaignRequest struct {
	TenantID     string `json:"tenantId"`
	TemplateRef  string `json:"templateRef"`
	BatchSize    int    `json:"batchSize"`
	DelayMinutes int    `json:"delayMinutes"`
	StartFrom    int    `json:"startFrom"`
	MinPoints    *int   `json:"minPoints,omitempty"`
	MaxPoints    *int   `json:"maxPoints,omitempty"`
}

type controlCampaignRequest struct {
	Action string `json:"action"`
}

type campaignResponse struct {
	ID                       string     `json:"id"`
	TenantID                 string     `json:"tenantId"`
	TemplateRef              string     `json:"templateRef"`
	Status                   string     `json:"status"`
	TotalTargeted            int        `json:"totalTargeted"`
	BatchSize                int        `json:"batchSize"`
	DelayMinutes             int        `json:"delayMinutes"`
	StartFrom                int        `json:"startFrom"`
	MinPoints                *int       `json:"minPoints,omitempty"`
	MaxPoints                *int       `json:"maxPoints,omitempty"`
	Cursor                   int        `json:"cursor"`
	Sent                     int        `json:"sent"`
	Failed                   int        `json:"failed"`
	EstimatedBatches         int        `json:"estimatedBatches"`
	EstimatedDurationMinutes int        `json:"estimatedDurationMinutes"`
	PercentComplete          float64    `json:"percentComplete"`
	Running                  bool       `json:"running"`
	WorkerName               string     `json:"workerName,omitempty"`
	CreatedAt                time.Time  `json:"createdAt"`
	StartedAt                *time.Time `json:"startedAt,omitempty"`
	CompletedAt              *time.Time `json:"completedAt,omitempty"`
}

type listCampaignsResponse struct {
	ActiveCampaigns []campaignResponse `json:"activeCampaigns"`
	RecentCampaigns []campaignResponse `json:"recentCampaigns"`
}

func (h *CampaignHandler) CreateCampaign(c *fiber.Ctx) error {
	var req createCampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	created, err := h.service.Create(c.Context(), service.CreateCampaignInput{
		TenantID:     strings.TrimSpace(req.TenantID),
		TemplateRef:  strings.TrimSpace(req.TemplateRef),
		BatchSize:    req.BatchSize,
		DelayMinutes: req.DelayMinutes,
		StartFrom:    req.StartFrom,
		Filters: domain.RecipientFilters{
			MinPoints: req.MinPoints,
			MaxPoints: req.MaxPoints,
		},
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toCampaignResponse(created, false, nil))
}

func (h *CampaignHandler) StartCampaign(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	started, err := h.service.Start(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(toCampaignResponse(started, true, nil))
}

func (h *CampaignHandler) ControlCampaign(c *fiber.Ctx) error {
	var req controlCampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	id := strings.TrimSpace(c.Params("id"))
	updated, err := h.service.Control(c.Context(), id, req.Action)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toCampaignResponse(updated, false, nil))
}

func (h *CampaignHandler) GetCampaign(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	snapshot, err := h.service.Get(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toCampaignResponse(&snapshot.Campaign, snapshot.Running, snapshot))
}

func (h *CampaignHandler) ListCampaigns(c *fiber.Ctx) error {
	tenantID := strings.TrimSpace(c.Query("tenantId"))
	if tenantID == "" {
		return toHTTPError(fmt.Errorf("%w: tenantId query parameter is required", domain.ErrValidation))
	}

	limit := c.QueryInt("limit", defaultListLimit)
	if limit < 1 || limit > maxListLimit {
		return toHTTPError(fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrValidation, maxListLimit))
	}

	snapshots, err := h.service.List(c.Context(), tenantID, limit)
	if err != nil {
		return toHTTPError(err)
	}

	out := listCampaignsResponse{
		ActiveCampaigns: make([]campaignResponse, 0, len(snapshots)),
		RecentCampaigns: make([]campaignResponse, 0, len(snapshots)),
	}
	for i := range snapshots {
		item := toCampaignResponse(&snapshots[i].Campaign, snapshots[i].Running, &snapshots[i])
		status := snapshots[i].Campaign.Status
		if snapshots[i].Running || status == domain.CampaignProcessing || status == domain.CampaignPaused {
			out.ActiveCampaigns = append(out.ActiveCampaigns, item)
			continue
		}
		out.RecentCampaigns = append(out.RecentCampaigns, item)
	}

	return c.Status(fiber.StatusOK).JSON(out)
}

func toCampaignResponse(campaign *domain.Campaign, running bool, snapshot *service.CampaignSnapshot) campaignResponse {
	if campaign == nil {
		return campaignResponse{}
	}

	resp := campaignResponse{
		ID:               campaign.ID,
		TenantID:         campaign.TenantID,
		TemplateRef:      campaign.TemplateRef,
		Status:           campaign.Status.String(),
		TotalTargeted:    campaign.TotalTargeted,
		BatchSize:        campaign.BatchSize,
		DelayMinutes:     campaign.DelayMinutes,
		StartFrom:        campaign.StartFrom,
		MinPoints:        campaign.Filters.MinPoints,
		MaxPoints:        campaign.Filters.MaxPoints,
		Cursor:           campaign.Cursor,
		Sent:             campaign.Sent,
		Failed:           campaign.Failed,
		EstimatedBatches: campaign.TotalBatches(),
		Running:          running,
		WorkerName:       campaign.WorkerName,
		CreatedAt:        campaign.CreatedAt,
		StartedAt:        campaign.StartedAt,
		CompletedAt:      campaign.CompletedAt,
	}
	resp.EstimatedDurationMinutes = campaign.EstimatedDurationMinutes()

	if snapshot != nil {
		resp.Running = snapshot.Running
		resp.EstimatedBatches = snapshot.TotalBatches
		resp.EstimatedDurationMinutes = snapshot.EstimatedMinutes
		resp.PercentComplete = snapshot.PercentComplete
	}

	return resp
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
