package repository

import (
	"time"

	"github.com/lealta/campaign-engine/internal/domain"
)

// CampaignModel is the persistence model for the campaigns table.
type CampaignModel struct {
	ID            string                `gorm:"type:uuid;primaryKey"`
	TenantID      string                `gorm:"type:varchar(64);not null"`
	TemplateRef   string                `gorm:"type:varchar(255);not null"`
	TotalTargeted int                   `gorm:"not null"`
	BatchSize     int                   `gorm:"not null"`
	DelayMinutes  int                   `gorm:"not null"`
	StartFrom     int                   `gorm:"not null;default:0"`
	MinPoints     *int                  `gorm:"type:int"`
	MaxPoints     *int                  `gorm:"type:int"`
	Cursor        int                   `gorm:"not null;default:0"`
	Status        domain.CampaignStatus `gorm:"type:varchar(20);not null"`
	Sent          int                   `gorm:"not null;default:0"`
	Failed        int                   `gorm:"not null;default:0"`
	WorkerName    string                `gorm:"type:varchar(128)"`
	Version       int64                 `gorm:"not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	StartedAt     *time.Time `gorm:"type:timestamptz"`
	CompletedAt   *time.Time `gorm:"type:timestamptz"`
}

func (CampaignModel) TableName() string {
	return "campaigns"
}

// SendingAccountModel is the persistence model for sending_accounts.
type SendingAccountModel struct {
	ID                string               `gorm:"type:uuid;primaryKey"`
	TenantID          string               `gorm:"type:varchar(64);not null"`
	Name              string               `gorm:"type:varchar(255);not null"`
	PhoneNumber       string               `gorm:"type:varchar(32);not null"`
	MaxDailyMessages  int                  `gorm:"not null"`
	MessagesSentToday int                  `gorm:"not null;default:0"`
	QuotaDate         string               `gorm:"type:varchar(10);not null"`
	IsPrimary         bool                 `gorm:"not null;default:false"`
	IsDefault         bool                 `gorm:"not null;default:false"`
	Status            domain.AccountStatus `gorm:"type:varchar(20);not null"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (SendingAccountModel) TableName() string {
	return "sending_accounts"
}

// MessageRecordModel is the persistence model for the message ledger.
type MessageRecordModel struct {
	ID                string               `gorm:"type:uuid;primaryKey"`
	CampaignID        string               `gorm:"type:uuid;not null"`
	TenantID          string               `gorm:"type:varchar(64);not null"`
	PhoneNumber       string               `gorm:"type:varchar(32);not null"`
	AccountID         *string              `gorm:"type:uuid"`
	Status            domain.MessageStatus `gorm:"type:varchar(20);not null"`
	FailureReason     *string              `gorm:"type:varchar(32)"`
	ProviderMessageID *string              `gorm:"type:varchar(255)"`
	SentAt            *time.Time           `gorm:"type:timestamptz"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (MessageRecordModel) TableName() string {
	return "message_records"
}

// SuppressionEntryModel is the persistence model for suppression_entries.
type SuppressionEntryModel struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	TenantID    string `gorm:"type:varchar(64);not null"`
	PhoneNumber string `gorm:"type:varchar(32);not null"`
	Method      string `gorm:"type:varchar(20);not null"`
	OptedOutAt  time.Time
}

func (SuppressionEntryModel) TableName() string {
	return "suppression_entries"
}

// WorkerHeartbeatModel is the persistence model for worker_heartbeats.
type WorkerHeartbeatModel struct {
	WorkerName    string              `gorm:"type:varchar(128);primaryKey"`
	Status        domain.WorkerStatus `gorm:"type:varchar(20);not null"`
	LastHeartbeat time.Time           `gorm:"type:timestamptz;not null"`
	JobsProcessed int64               `gorm:"not null;default:0"`
	StartedAt     time.Time           `gorm:"type:timestamptz;not null"`
}

func (WorkerHeartbeatModel) TableName() string {
	return "worker_heartbeats"
}

// ContactModel is the persistence model for the recipient population.
type ContactModel struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	TenantID     string `gorm:"type:varchar(64);not null"`
	Name         string `gorm:"type:varchar(255)"`
	PhoneNumber  string `gorm:"type:varchar(32);not null"`
	Points       int    `gorm:"not null;default:0"`
	RegisteredAt time.Time
}

func (ContactModel) TableName() string {
	return "contacts"
}

// ApprovedTemplateModel is the persistence model for approved_templates.
type ApprovedTemplateModel struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	TenantID   string `gorm:"type:varchar(64);not null"`
	Ref        string `gorm:"type:varchar(255);not null"`
	Body       string `gorm:"type:text;not null"`
	ApprovedAt time.Time
}

func (ApprovedTemplateModel) TableName() string {
	return "approved_templates"
}

func campaignModelFromDomain(c *domain.Campaign) *CampaignModel {
	if c == nil {
		return nil
	}

	return &CampaignModel{
		ID:            c.ID,
		TenantID:      c.TenantID,
		TemplateRef:   c.TemplateRef,
		TotalTargeted: c.TotalTargeted,
		BatchSize:     c.BatchSize,
		DelayMinutes:  c.DelayMinutes,
		StartFrom:     c.StartFrom,
		MinPoints:     c.Filters.MinPoints,
		MaxPoints:     c.Filters.MaxPoints,
		Cursor:        c.Cursor,
		Status:        c.Status,
		Sent:          c.Sent,
		Failed:        c.Failed,
		WorkerName:    c.WorkerName,
		Version:       c.Version,
		CreatedAt:     c.CreatedAt,
		StartedAt:     c.StartedAt,
		CompletedAt:   c.CompletedAt,
	}
}

func campaignModelToDomain(m *CampaignModel) *domain.Campaign {
	if m == nil {
		return nil
	}

	return &domain.Campaign{
		ID:            m.ID,
		TenantID:      m.TenantID,
		TemplateRef:   m.TemplateRef,
		TotalTargeted: m.TotalTargeted,
		BatchSize:     m.BatchSize,
		DelayMinutes:  m.DelayMinutes,
		StartFrom:     m.StartFrom,
		Filters: domain.RecipientFilters{
			MinPoints: m.MinPoints,
			MaxPoints: m.MaxPoints,
		},
		Cursor:      m.Cursor,
		Status:      m.Status,
		Sent:        m.Sent,
		Failed:      m.Failed,
		WorkerName:  m.WorkerName,
		Version:     m.Version,
		CreatedAt:   m.CreatedAt,
		StartedAt:   m.StartedAt,
		CompletedAt: m.CompletedAt,
	}
}

func accountModelFromDomain(a *domain.SendingAccount) *SendingAccountModel {
	if a == nil {
		return nil
	}

	return &SendingAccountModel{
		ID:                a.ID,
		TenantID:          a.TenantID,
		Name:              a.Name,
		PhoneNumber:       a.PhoneNumber,
		MaxDailyMessages:  a.MaxDailyMessages,
		MessagesSentToday: a.MessagesSentToday,
		QuotaDate:         a.QuotaDate,
		IsPrimary:         a.IsPrimary,
		IsDefault:         a.IsDefault,
		Status:            a.Status,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

func accountModelToDomain(m *SendingAccountModel) *domain.SendingAccount {
	if m == nil {
		return nil
	}

	return &domain.SendingAccount{
		ID:                m.ID,
		TenantID:          m.TenantID,
		Name:              m.Name,
		PhoneNumber:       m.PhoneNumber,
		MaxDailyMessages:  m.MaxDailyMessages,
		MessagesSentToday: m.MessagesSentToday,
		QuotaDate:         m.QuotaDate,
		IsPrimary:         m.IsPrimary,
		IsDefault:         m.IsDefault,
		Status:            m.Status,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func messageModelFromDomain(r *domain.MessageRecord) *MessageRecordModel {
	if r == nil {
		return nil
	}

	return &MessageRecordModel{
		ID:                r.ID,
		CampaignID:        r.CampaignID,
		TenantID:          r.TenantID,
		PhoneNumber:       r.PhoneNumber,
		AccountID:         r.AccountID,
		Status:            r.Status,
		FailureReason:     r.FailureReason,
		ProviderMessageID: r.ProviderMessageID,
		SentAt:            r.SentAt,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func messageModelToDomain(m *MessageRecordModel) *domain.MessageRecord {
	if m == nil {
		return nil
	}

	return &domain.MessageRecord{
		ID:                m.ID,
		CampaignID:        m.CampaignID,
		TenantID:          m.TenantID,
		PhoneNumber:       m.PhoneNumber,
		AccountID:         m.AccountID,
		Status:            m.Status,
		FailureReason:     m.FailureReason,
		ProviderMessageID: m.ProviderMessageID,
		SentAt:            m.SentAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func suppressionModelFromDomain(e *domain.SuppressionEntry) *SuppressionEntryModel {
	if e == nil {
		return nil
	}

	return &SuppressionEntryModel{
		ID:          e.ID,
		TenantID:    e.TenantID,
		PhoneNumber: e.PhoneNumber,
		Method:      e.Method,
		OptedOutAt:  e.OptedOutAt,
	}
}

func suppressionModelToDomain(m *SuppressionEntryModel) *domain.SuppressionEntry {
	if m == nil {
		return nil
	}

	return &domain.SuppressionEntry{
		ID:          m.ID,
		TenantID:    m.TenantID,
		PhoneNumber: m.PhoneNumber,
		Method:      m.Method,
		OptedOutAt:  m.OptedOutAt,
	}
}

func heartbeatModelFromDomain(w *domain.WorkerHeartbeat) *WorkerHeartbeatModel {
	if w == nil {
		return nil
	}

	return &WorkerHeartbeatModel{
		WorkerName:    w.WorkerName,
		Status:        w.Status,
		LastHeartbeat: w.LastHeartbeat,
		JobsProcessed: w.JobsProcessed,
		StartedAt:     w.StartedAt,
	}
}

func heartbeatModelToDomain(m *WorkerHeartbeatModel) *domain.WorkerHeartbeat {
	if m == nil {
		return nil
	}

	return &domain.WorkerHeartbeat{
		WorkerName:    m.WorkerName,
		Status:        m.Status,
		LastHeartbeat: m.LastHeartbeat,
		JobsProcessed: m.JobsProcessed,
		StartedAt:     m.StartedAt,
	}
}

func contactModelToDomain(m *ContactModel) *domain.Contact {
	if m == nil {
		return nil
	}

	return &domain.Contact{
		ID:           m.ID,
		TenantID:     m.TenantID,
		Name:         m.Name,
		PhoneNumber:  m.PhoneNumber,
		Points:       m.Points,
		RegisteredAt: m.RegisteredAt,
	}
}

func templateModelToDomain(m *ApprovedTemplateModel) *domain.ApprovedTemplate {
	if m == nil {
		return nil
	}

	return &domain.ApprovedTemplate{
		ID:         m.ID,
		TenantID:   m.TenantID,
		Ref:        m.Ref,
		Body:       m.Body,
		ApprovedAt: m.ApprovedAt,
	}
}
