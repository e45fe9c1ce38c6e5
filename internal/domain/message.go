package domain

import (
	"fmt"
	"strings"
	"time"
)

// MessageStatus represents the delivery state of one send attempt.
type MessageStatus string

const (
	MessageQueued    MessageStatus = "QUEUED"
	MessageSent      MessageStatus = "SENT"
	MessageDelivered MessageStatus = "DELIVERED"
	MessageRead      MessageStatus = "READ"
	MessageFailed    MessageStatus = "FAILED"
)

func (s MessageStatus) String() string { return string(s) }

func (s MessageStatus) IsValid() bool {
	switch s {
	case MessageQueued, MessageSent, MessageDelivered, MessageRead, MessageFailed:
		return true
	}
	return false
}

func ParseMessageStatusFromString(s string) (MessageStatus, error) {
	st := MessageStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid message status %q", ErrValidation, s)
	}
	return st, nil
}

// FailureReason classifies per-recipient failures. None of these abort a
// batch; each advances the cursor.
type FailureReason string

const (
	FailureSuppressed FailureReason = "SUPPRESSED"
	FailureExhausted  FailureReason = "EXHAUSTED"
	FailureRejected   FailureReason = "REJECTED"
	FailureTimeout    FailureReason = "TIMEOUT"
	FailureNotFound   FailureReason = "NOT_FOUND"
)

func (r FailureReason) String() string { return string(r) }

// MessageRecord is one row of the append-only message ledger. Created once
// per send attempt; only delivery-status callbacks mutate it afterwards.
type MessageRecord struct {
	ID                string
	CampaignID        string
	TenantID          string
	PhoneNumber       string
	AccountID         *string
	Status            MessageStatus
	FailureReason     *string
	ProviderMessageID *string
	SentAt            *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (m *MessageRecord) Validate() error {
	if strings.TrimSpace(m.CampaignID) == "" {
		return fmt.Errorf("%w: campaignId is required", ErrValidation)
	}
	if strings.TrimSpace(m.TenantID) == "" {
		return fmt.Errorf("%w: tenantId is required", ErrValidation)
	}
	if strings.TrimSpace(m.PhoneNumber) == "" {
		return fmt.Errorf("%w: phoneNumber is required", ErrValidation)
	}
	if !m.Status.IsValid() {
		return fmt.Errorf("%w: invalid message status %q", ErrValidation, m.Status)
	}
	return nil
}

// Contact is one entry of the recipient population. Enumeration is ordered
// by registration time then id, which keeps cursor windows stable across
// batches.
type Contact struct {
	ID           string
	TenantID     string
	Name         string
	PhoneNumber  string
	Points       int
	RegisteredAt time.Time
}
