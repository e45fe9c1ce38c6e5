package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lealta/campaign-engine/internal/domain"
	"github.com/lealta/campaign-engine/internal/repository"
)

// CreateCampaignInput carries everything needed to target a new campaign.
type CreateCampaignInput struct {
	TenantID     string
	TemplateRef  string
	BatchSize    int
	DelayMinutes int
	StartFrom    int
	Filters      domain.RecipientFilters
}

// CampaignSnapshot is a campaign plus derived progress figures for the API.
type CampaignSnapshot struct {
	Campaign         domain.Campaign
	Running          bool
	TotalBatches     int
	EstimatedMinutes int
	PercentComplete  float64
}

// CampaignService owns campaign lifecycle: targeting, start, control
// actions, and progress reads. Dispatcher loops are spawned detached from
// the request context so an HTTP disconnect never kills a running campaign.
type CampaignService struct {
	campaigns repository.CampaignRepository
	contacts  repository.ContactRepository
	templates repository.TemplateRepository
	registry  *Registry
	logger    *zap.Logger

	workerName string
	now        func() time.Time
	launch     func(campaignID string)
}

func NewCampaignService(
	runCtx context.Context,
	campaigns repository.CampaignRepository,
	contacts repository.ContactRepository,
	templates repository.TemplateRepository,
	dispatcher *Dispatcher,
	registry *Registry,
	workerName string,
	logger *zap.Logger,
) (*CampaignService, error) {
	if campaigns == nil || contacts == nil || templates == nil {
		return nil, fmt.Errorf("campaign, contact and template repositories are required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if runCtx == nil {
		runCtx = context.Background()
	}

	s := &CampaignService{
		campaigns:  campaigns,
		contacts:   contacts,
		templates:  templates,
		registry:   registry,
		logger:     logger,
		workerName: workerName,
		now:        time.Now,
	}
	s.launch = func(campaignID string) {
		go func() {
			if err := dispatcher.Run(runCtx, campaignID); err != nil && !errors.Is(err, domain.ErrConflict) {
				logger.Error("campaign loop exited with error",
					zap.String("campaignId", campaignID),
					zap.Error(err),
				)
			}
		}()
	}

	return s, nil
}

// Create targets a campaign against the current recipient population and
// stores it as DRAFT. Nothing is sent until Start.
func (s *CampaignService) Create(ctx context.Context, input CreateCampaignInput) (*domain.Campaign, error) {
	if input.StartFrom < 0 {
		return nil, fmt.Errorf("%w: startFrom must not be negative", domain.ErrValidation)
	}

	if _, err := s.templates.GetByRef(ctx, input.TenantID, input.TemplateRef); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: template %q is not approved for tenant", domain.ErrValidation, input.TemplateRef)
		}
		return nil, fmt.Errorf("failed to check template approval: %w", err)
	}

	population, err := s.contacts.CountMatching(ctx, input.TenantID, input.Filters)
	if err != nil {
		return nil, fmt.Errorf("failed to count recipients: %w", err)
	}

	totalTargeted := int(population) - input.StartFrom
	if totalTargeted <= 0 {
		return nil, fmt.Errorf("%w: no recipients targeted (population %d, startFrom %d)", domain.ErrValidation, population, input.StartFrom)
	}

	campaign := &domain.Campaign{
		ID:            uuid.NewString(),
		TenantID:      input.TenantID,
		TemplateRef:   input.TemplateRef,
		TotalTargeted: totalTargeted,
		BatchSize:     input.BatchSize,
		DelayMinutes:  input.DelayMinutes,
		StartFrom:     input.StartFrom,
		Filters:       input.Filters,
		Status:        domain.CampaignDraft,
		CreatedAt:     s.now().UTC(),
	}

	if err := campaign.Validate(); err != nil {
		return nil, err
	}

	if err := s.campaigns.Create(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	return campaign, nil
}

// Start transitions DRAFT to PROCESSING and spawns the dispatcher loop.
// Starting twice is a conflict; the status CAS catches races between
// instances and the registry catches races inside one.
func (s *CampaignService) Start(ctx context.Context, campaignID string) (*domain.Campaign, error) {
	if err := s.campaigns.MarkStarted(ctx, campaignID, s.workerName, s.now().UTC()); err != nil {
		return nil, err
	}

	s.launch(campaignID)

	return s.campaigns.GetByID(ctx, campaignID)
}

// Control applies pause, resume or cancel. Pause and cancel only flip the
// stored status and nudge the loop awake; the loop observes the change at
// the top of its next iteration, never mid-batch. Resume spawns a fresh
// loop from the persisted cursor.
func (s *CampaignService) Control(ctx context.Context, campaignID string, rawAction string) (*domain.Campaign, error) {
	action, err := domain.ParseControlAction(rawAction)
	if err != nil {
		return nil, err
	}

	campaign, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	next, err := campaign.Status.NextStatus(action)
	if err != nil {
		return nil, err
	}

	if err := s.campaigns.UpdateStatusFrom(ctx, campaignID, campaign.Status, next); err != nil {
		return nil, err
	}

	switch action {
	case domain.ActionPause, domain.ActionCancel:
		s.registry.Nudge(campaignID)
	case domain.ActionResume:
		s.launch(campaignID)
	}

	s.logger.Info("campaign control applied",
		zap.String("campaignId", campaignID),
		zap.String("action", string(action)),
		zap.String("status", next.String()),
	)

	return s.campaigns.GetByID(ctx, campaignID)
}

// Get returns the durable campaign state plus derived progress. The durable
// store is the source of truth; the registry only tells whether a loop is
// live in this process.
func (s *CampaignService) Get(ctx context.Context, campaignID string) (*CampaignSnapshot, error) {
	campaign, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	return s.snapshot(campaign), nil
}

func (s *CampaignService) List(ctx context.Context, tenantID string, limit int) ([]CampaignSnapshot, error) {
	campaigns, err := s.campaigns.ListRecentByTenant(ctx, tenantID, limit)
	if err != nil {
		return nil, err
	}

	snapshots := make([]CampaignSnapshot, 0, len(campaigns))
	for i := range campaigns {
		snapshots = append(snapshots, *s.snapshot(&campaigns[i]))
	}
	return snapshots, nil
}

func (s *CampaignService) snapshot(campaign *domain.Campaign) *CampaignSnapshot {
	percent := 0.0
	if campaign.TotalTargeted > 0 {
		percent = float64(campaign.Cursor) / float64(campaign.TotalTargeted) * 100
	}

	return &CampaignSnapshot{
		Campaign:         *campaign,
		Running:          s.registry.IsRunning(campaign.ID),
		TotalBatches:     campaign.TotalBatches(),
		EstimatedMinutes: campaign.EstimatedDurationMinutes(),
		PercentComplete:  percent,
	}
}
