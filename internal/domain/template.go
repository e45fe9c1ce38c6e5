package domain

import "time"

// ApprovedTemplate is a message template cleared for outbound use. Campaigns
// may only reference approved templates; approval itself happens upstream.
type ApprovedTemplate struct {
	ID         string
	TenantID   string
	Ref        string
	Body       string
	ApprovedAt time.Time
}
