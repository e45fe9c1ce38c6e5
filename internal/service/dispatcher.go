package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lealta/campaign-engine/internal/domain"
	"github.com/lealta/campaign-engine/internal/observability"
	"github.com/lealta/campaign-engine/internal/provider"
	"github.com/lealta/campaign-engine/internal/ratelimit"
	"github.com/lealta/campaign-engine/internal/repository"
)

const (
	defaultPersistRetries = 3
	persistRetryBackoff   = 500 * time.Millisecond
)

// Dispatcher runs campaign loops: one batch per iteration, a durable
// progress commit after every batch, and an inter-batch sleep that control
// actions can cut short.
//
// The cursor counts every recipient the loop has considered. Suppressed,
// exhausted, rejected and vanished recipients all consume cursor positions,
// so resume never re-sends and never skips anyone.
type Dispatcher struct {
	campaigns   repository.CampaignRepository
	contacts    repository.ContactRepository
	messages    repository.MessageRepository
	suppression repository.SuppressionRepository
	heartbeats  repository.HeartbeatRepository
	router      *AccountRouter
	provider    provider.Provider
	pacer       ratelimit.RateLimiter
	registry    *Registry
	metrics     *observability.Metrics
	logger      *zap.Logger

	workerName     string
	sendTimeout    time.Duration
	persistRetries int

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration, wake <-chan struct{}) error
}

type DispatcherDeps struct {
	Campaigns   repository.CampaignRepository
	Contacts    repository.ContactRepository
	Messages    repository.MessageRepository
	Suppression repository.SuppressionRepository
	Heartbeats  repository.HeartbeatRepository
	Router      *AccountRouter
	Provider    provider.Provider
	Pacer       ratelimit.RateLimiter
	Registry    *Registry
	Metrics     *observability.Metrics
	Logger      *zap.Logger

	WorkerName     string
	SendTimeout    time.Duration
	PersistRetries int
}

func NewDispatcher(deps DispatcherDeps) (*Dispatcher, error) {
	if deps.Campaigns == nil || deps.Contacts == nil || deps.Messages == nil || deps.Suppression == nil {
		return nil, fmt.Errorf("campaign, contact, message and suppression repositories are required")
	}
	if deps.Router == nil {
		return nil, fmt.Errorf("account router is required")
	}
	if deps.Provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.SendTimeout <= 0 {
		deps.SendTimeout = 10 * time.Second
	}
	if deps.PersistRetries < 1 {
		deps.PersistRetries = defaultPersistRetries
	}

	return &Dispatcher{
		campaigns:      deps.Campaigns,
		contacts:       deps.Contacts,
		messages:       deps.Messages,
		suppression:    deps.Suppression,
		heartbeats:     deps.Heartbeats,
		router:         deps.Router,
		provider:       deps.Provider,
		pacer:          deps.Pacer,
		registry:       deps.Registry,
		metrics:        deps.Metrics,
		logger:         deps.Logger,
		workerName:     deps.WorkerName,
		sendTimeout:    deps.SendTimeout,
		persistRetries: deps.PersistRetries,
		now:            time.Now,
		sleep:          sleepOrWake,
	}, nil
}

// Run executes the campaign loop until a terminal status, a pause, or loss
// of ownership. The campaign must already be PROCESSING. At most one loop
// per campaign runs in a process; a concurrent Run returns ErrConflict.
func (d *Dispatcher) Run(ctx context.Context, campaignID string) error {
	handle, err := d.registry.Acquire(campaignID)
	if err != nil {
		return err
	}
	defer d.registry.Release(campaignID)

	ctx = observability.WithCampaignID(ctx, campaignID)
	logger := observability.WithContextLogger(d.logger, ctx)

	d.metrics.IncActiveLoops()
	defer d.metrics.DecActiveLoops()

	finalStatus, err := d.loop(ctx, campaignID, handle, logger)
	if finalStatus != "" {
		d.metrics.IncCampaignFinished(finalStatus.String())
	}
	return err
}

func (d *Dispatcher) loop(ctx context.Context, campaignID string, handle *LoopHandle, logger *zap.Logger) (domain.CampaignStatus, error) {
	for {
		if err := ctx.Err(); err != nil {
			logger.Info("loop stopping: context canceled")
			return "", nil
		}

		// Control actions land in the store; the loop observes them here,
		// never mid-batch.
		campaign, err := d.loadCampaign(ctx, campaignID)
		if err != nil {
			return d.failCampaign(ctx, campaignID, logger, fmt.Errorf("failed to load campaign: %w", err))
		}

		switch campaign.Status {
		case domain.CampaignProcessing:
		case domain.CampaignPaused:
			logger.Info("loop stopping: campaign paused", zap.Int("cursor", campaign.Cursor))
			return campaign.Status, nil
		default:
			logger.Info("loop stopping: campaign status changed",
				zap.String("status", campaign.Status.String()),
			)
			return campaign.Status, nil
		}

		if campaign.Cursor >= campaign.TotalTargeted {
			if err := d.complete(ctx, campaign, logger); err != nil {
				return domain.CampaignFailed, err
			}
			return domain.CampaignCompleted, nil
		}

		batchStart := d.now()
		if err := d.processBatch(ctx, campaign, logger); err != nil {
			return d.failCampaign(ctx, campaign.ID, logger, err)
		}

		if err := d.persistProgress(ctx, campaign); err != nil {
			return d.handlePersistFailure(ctx, campaign, logger, err)
		}

		completed := campaign.Cursor >= campaign.TotalTargeted
		if completed {
			if err := d.complete(ctx, campaign, logger); err != nil {
				return domain.CampaignFailed, err
			}
		}

		d.beat(ctx)
		d.metrics.ObserveBatchDuration(d.now().Sub(batchStart))

		logger.Info("batch committed",
			zap.Int("cursor", campaign.Cursor),
			zap.Int("sent", campaign.Sent),
			zap.Int("failed", campaign.Failed),
			zap.Int64("version", campaign.Version),
		)

		if completed {
			return domain.CampaignCompleted, nil
		}

		delay := time.Duration(campaign.DelayMinutes) * time.Minute
		if delay > 0 {
			if err := d.sleep(ctx, delay, handle.nudged()); err != nil {
				logger.Info("loop stopping: canceled during inter-batch delay")
				return "", nil
			}
		}
	}
}

// processBatch handles one cursor window [cursor, cursor+batchSize), bounded
// by the targeted total. Per-recipient failures advance the cursor; nothing
// inside the window aborts it.
func (d *Dispatcher) processBatch(ctx context.Context, campaign *domain.Campaign, logger *zap.Logger) error {
	span := campaign.BatchSize
	if remaining := campaign.Remaining(); span > remaining {
		span = remaining
	}

	window, err := d.loadWindow(ctx, campaign, span)
	if err != nil {
		return fmt.Errorf("failed to load recipient window: %w", err)
	}

	for i := 0; i < span; i++ {
		if i < len(window) {
			d.processRecipient(ctx, campaign, &window[i], logger)
		} else {
			// Population shrank since targeting; the slot still consumes a
			// cursor position so counters stay consistent.
			d.recordFailure(ctx, campaign, "", nil, domain.FailureNotFound, logger)
		}
		campaign.Cursor++
	}

	return nil
}

func (d *Dispatcher) processRecipient(ctx context.Context, campaign *domain.Campaign, contact *domain.Contact, logger *zap.Logger) {
	phone := domain.NormalizePhone(contact.PhoneNumber)
	if phone == "" {
		d.recordFailure(ctx, campaign, contact.PhoneNumber, nil, domain.FailureRejected, logger)
		return
	}

	suppressed, err := d.suppression.IsSuppressed(ctx, campaign.TenantID, phone)
	if err != nil {
		logger.Warn("suppression check failed, skipping recipient",
			zap.String("phone", phone),
			zap.Error(err),
		)
		d.recordFailure(ctx, campaign, phone, nil, domain.FailureRejected, logger)
		return
	}
	if suppressed {
		d.recordFailure(ctx, campaign, phone, nil, domain.FailureSuppressed, logger)
		return
	}

	account, err := d.router.Route(ctx, campaign.TenantID)
	if err != nil {
		if errors.Is(err, domain.ErrExhausted) {
			d.recordFailure(ctx, campaign, phone, nil, domain.FailureExhausted, logger)
			return
		}
		logger.Warn("account routing failed",
			zap.String("phone", phone),
			zap.Error(err),
		)
		d.recordFailure(ctx, campaign, phone, nil, domain.FailureRejected, logger)
		return
	}

	if d.pacer != nil {
		if err := d.pacer.Wait(ctx, campaign.TenantID); err != nil {
			d.router.Release(ctx, account.ID)
			d.recordFailure(ctx, campaign, phone, &account.ID, domain.FailureTimeout, logger)
			return
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	result, sendErr := d.provider.Send(sendCtx, provider.SendRequest{
		TenantID:    campaign.TenantID,
		From:        account.PhoneNumber,
		To:          phone,
		TemplateRef: campaign.TemplateRef,
	})
	cancel()

	if sendErr != nil {
		d.router.Release(ctx, account.ID)
		reason := domain.FailureRejected
		if provider.IsTransient(sendErr) {
			reason = domain.FailureTimeout
		}
		logger.Warn("send failed",
			zap.String("phone", phone),
			zap.String("reason", reason.String()),
			zap.Error(sendErr),
		)
		d.recordFailure(ctx, campaign, phone, &account.ID, reason, logger)
		return
	}

	sentAt := d.now().UTC()
	record := &domain.MessageRecord{
		ID:          uuid.NewString(),
		CampaignID:  campaign.ID,
		TenantID:    campaign.TenantID,
		PhoneNumber: phone,
		AccountID:   &account.ID,
		Status:      domain.MessageSent,
		SentAt:      &sentAt,
		CreatedAt:   sentAt,
		UpdatedAt:   sentAt,
	}
	if result != nil && result.MessageID != "" {
		record.ProviderMessageID = &result.MessageID
	}

	if err := d.messages.Create(ctx, record); err != nil {
		logger.Error("failed to write ledger entry for sent message",
			zap.String("phone", phone),
			zap.Error(err),
		)
	}

	campaign.Sent++
	d.metrics.IncMessageSent()
}

func (d *Dispatcher) recordFailure(ctx context.Context, campaign *domain.Campaign, phone string, accountID *string, reason domain.FailureReason, logger *zap.Logger) {
	now := d.now().UTC()
	reasonStr := reason.String()
	record := &domain.MessageRecord{
		ID:            uuid.NewString(),
		CampaignID:    campaign.ID,
		TenantID:      campaign.TenantID,
		PhoneNumber:   phone,
		AccountID:     accountID,
		Status:        domain.MessageFailed,
		FailureReason: &reasonStr,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if record.PhoneNumber == "" {
		record.PhoneNumber = "unknown"
	}

	if err := d.messages.Create(ctx, record); err != nil {
		logger.Error("failed to write ledger entry for failure",
			zap.String("reason", reasonStr),
			zap.Error(err),
		)
	}

	campaign.Failed++
	d.metrics.IncMessageFailed(reasonStr)
}

// complete finishes the campaign once every cursor position is consumed.
// The status CAS loses only when a cancel landed in the same instant; the
// cancel wins and the loop exits quietly on its next status check.
func (d *Dispatcher) complete(ctx context.Context, campaign *domain.Campaign, logger *zap.Logger) error {
	err := d.campaigns.MarkCompleted(ctx, campaign.ID, d.now().UTC())
	if errors.Is(err, domain.ErrConflict) {
		logger.Info("completion skipped: campaign left PROCESSING")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to mark campaign completed: %w", err)
	}

	campaign.Status = domain.CampaignCompleted
	logger.Info("campaign completed",
		zap.Int("sent", campaign.Sent),
		zap.Int("failed", campaign.Failed),
	)
	return nil
}

// persistProgress is the batch commit point. Transient store errors retry
// with backoff; a stale version aborts immediately because another process
// owns the campaign.
func (d *Dispatcher) persistProgress(ctx context.Context, campaign *domain.Campaign) error {
	return d.retry(ctx, func() error {
		return d.campaigns.SaveProgress(ctx, campaign)
	}, func(err error) bool {
		return errors.Is(err, domain.ErrStaleCampaign)
	})
}

// loadCampaign reads the campaign with the same bounded retries as the
// commit point, so a store blip does not strand the loop without a durable
// FAILED mark.
func (d *Dispatcher) loadCampaign(ctx context.Context, campaignID string) (*domain.Campaign, error) {
	var campaign *domain.Campaign
	err := d.retry(ctx, func() error {
		var err error
		campaign, err = d.campaigns.GetByID(ctx, campaignID)
		return err
	}, func(err error) bool {
		return errors.Is(err, domain.ErrNotFound)
	})
	return campaign, err
}

func (d *Dispatcher) loadWindow(ctx context.Context, campaign *domain.Campaign, span int) ([]domain.Contact, error) {
	var window []domain.Contact
	err := d.retry(ctx, func() error {
		var err error
		window, err = d.contacts.Window(ctx, campaign.TenantID, campaign.Filters, campaign.StartFrom+campaign.Cursor, span)
		return err
	}, nil)
	return window, err
}

// retry runs op up to persistRetries times with linear backoff. abort
// short-circuits errors another attempt can never fix.
func (d *Dispatcher) retry(ctx context.Context, op func() error, abort func(error) bool) error {
	var lastErr error
	for attempt := 0; attempt < d.persistRetries; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if abort != nil && abort(err) {
			return err
		}
		lastErr = err

		if attempt == d.persistRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(persistRetryBackoff * time.Duration(attempt+1)):
		}
	}
	return lastErr
}

func (d *Dispatcher) handlePersistFailure(ctx context.Context, campaign *domain.Campaign, logger *zap.Logger, err error) (domain.CampaignStatus, error) {
	if errors.Is(err, domain.ErrStaleCampaign) {
		logger.Warn("loop stopping: campaign version is stale, another process owns it")
		return "", err
	}
	return d.failCampaign(ctx, campaign.ID, logger, fmt.Errorf("failed to persist campaign progress: %w", err))
}

// failCampaign durably marks the campaign FAILED after an infrastructure
// failure exhausted its retries, so operators read the outcome from the
// store instead of inferring it from a dead heartbeat.
func (d *Dispatcher) failCampaign(ctx context.Context, campaignID string, logger *zap.Logger, err error) (domain.CampaignStatus, error) {
	logger.Error("loop stopping: marking campaign failed", zap.Error(err))
	if markErr := d.campaigns.UpdateStatusFrom(ctx, campaignID, domain.CampaignProcessing, domain.CampaignFailed); markErr != nil {
		logger.Error("failed to mark campaign failed", zap.Error(markErr))
	}
	return domain.CampaignFailed, err
}

func (d *Dispatcher) beat(ctx context.Context) {
	if d.heartbeats == nil || d.workerName == "" {
		return
	}
	if err := d.heartbeats.Beat(ctx, d.workerName, d.now().UTC(), 1); err != nil {
		d.logger.Warn("heartbeat update failed", zap.Error(err))
	}
}

// sleepOrWake waits out the inter-batch delay unless canceled or nudged.
func sleepOrWake(ctx context.Context, d time.Duration, wake <-chan struct{}) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	case <-wake:
		return nil
	}
}
