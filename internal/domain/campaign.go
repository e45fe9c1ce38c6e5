package domain

import (
	"fmt"
	"strings"
	"time"
)

// CampaignStatus represents the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignDraft      CampaignStatus = "DRAFT"
	CampaignProcessing CampaignStatus = "PROCESSING"
	CampaignPaused     CampaignStatus = "PAUSED"
	CampaignCancelled  CampaignStatus = "CANCELLED"
	CampaignCompleted  CampaignStatus = "COMPLETED"
	CampaignFailed     CampaignStatus = "FAILED"
)

func (s CampaignStatus) String() string { return string(s) }

func (s CampaignStatus) IsValid() bool {
	switch s {
	case CampaignDraft, CampaignProcessing, CampaignPaused, CampaignCancelled, CampaignCompleted, CampaignFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s CampaignStatus) IsTerminal() bool {
	switch s {
	case CampaignCancelled, CampaignCompleted, CampaignFailed:
		return true
	}
	return false
}

// ControlAction is an operator command against a campaign.
type ControlAction string

const (
	ActionPause  ControlAction = "pause"
	ActionResume ControlAction = "resume"
	ActionCancel ControlAction = "cancel"
)

func ParseControlAction(s string) (ControlAction, error) {
	a := ControlAction(strings.ToLower(strings.TrimSpace(s)))
	switch a {
	case ActionPause, ActionResume, ActionCancel:
		return a, nil
	}
	return "", fmt.Errorf("%w: unknown action %q (use pause, resume, cancel)", ErrValidation, s)
}

// NextStatus resolves the target status for a control action, enforcing the
// state machine: pause only from PROCESSING, resume only from PAUSED, cancel
// from any non-terminal state.
func (s CampaignStatus) NextStatus(action ControlAction) (CampaignStatus, error) {
	switch action {
	case ActionPause:
		if s != CampaignProcessing {
			return "", fmt.Errorf("%w: cannot pause campaign in status %s", ErrInvalidTransition, s)
		}
		return CampaignPaused, nil
	case ActionResume:
		if s != CampaignPaused {
			return "", fmt.Errorf("%w: cannot resume campaign in status %s", ErrInvalidTransition, s)
		}
		return CampaignProcessing, nil
	case ActionCancel:
		if s.IsTerminal() {
			return "", fmt.Errorf("%w: cannot cancel campaign in status %s", ErrInvalidTransition, s)
		}
		return CampaignCancelled, nil
	}
	return "", fmt.Errorf("%w: unknown action %q", ErrValidation, action)
}

// RecipientFilters narrows the recipient population for a campaign. The
// filtered enumeration must be stable across batches so resuming from a
// cursor never re-sends or skips recipients.
type RecipientFilters struct {
	MinPoints *int `json:"minPoints,omitempty"`
	MaxPoints *int `json:"maxPoints,omitempty"`
}

// Campaign is one scheduled bulk-send job targeting a bounded recipient
// population. The cursor counts recipients already considered (sent, failed
// or suppressed); sent+failed <= cursor <= totalTargeted always holds for
// committed state.
type Campaign struct {
	ID            string
	TenantID      string
	TemplateRef   string
	TotalTargeted int
	BatchSize     int
	DelayMinutes  int
	StartFrom     int
	Filters       RecipientFilters
	Cursor        int
	Status        CampaignStatus
	Sent          int
	Failed        int
	WorkerName    string
	Version       int64
	CreatedAt     time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
}

func (c *Campaign) Validate() error {
	if strings.TrimSpace(c.TenantID) == "" {
		return fmt.Errorf("%w: tenantId is required", ErrValidation)
	}
	if strings.TrimSpace(c.TemplateRef) == "" {
		return fmt.Errorf("%w: templateRef is required", ErrValidation)
	}
	if c.TotalTargeted <= 0 {
		return fmt.Errorf("%w: totalRecipients must be greater than 0", ErrValidation)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batchSize must be greater than 0", ErrValidation)
	}
	if c.DelayMinutes < 0 {
		return fmt.Errorf("%w: delayMinutes must not be negative", ErrValidation)
	}
	if c.StartFrom < 0 {
		return fmt.Errorf("%w: startFrom must not be negative", ErrValidation)
	}
	if !c.Status.IsValid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, c.Status)
	}
	if c.Cursor < 0 || c.Cursor > c.TotalTargeted {
		return fmt.Errorf("%w: cursor %d out of range [0, %d]", ErrValidation, c.Cursor, c.TotalTargeted)
	}
	if c.Sent+c.Failed > c.Cursor {
		return fmt.Errorf("%w: sent+failed (%d) exceeds cursor (%d)", ErrValidation, c.Sent+c.Failed, c.Cursor)
	}
	return nil
}

// TotalBatches is the number of dispatcher iterations the campaign needs.
func (c *Campaign) TotalBatches() int {
	if c.BatchSize <= 0 {
		return 0
	}
	return (c.TotalTargeted + c.BatchSize - 1) / c.BatchSize
}

// EstimatedDurationMinutes approximates wall-clock time: one inter-batch
// delay between consecutive batches.
func (c *Campaign) EstimatedDurationMinutes() int {
	batches := c.TotalBatches()
	if batches <= 1 {
		return 0
	}
	return (batches - 1) * c.DelayMinutes
}

// Remaining is the number of recipients not yet considered.
func (c *Campaign) Remaining() int {
	if c.Cursor >= c.TotalTargeted {
		return 0
	}
	return c.TotalTargeted - c.Cursor
}
