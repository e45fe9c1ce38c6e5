package provider

import "context"

// SendRequest carries everything the messaging provider needs for one
// outbound message.
type SendRequest struct {
	TenantID    string
	From        string
	To          string
	TemplateRef string
	Body        string
}

// SendResult stores provider call metadata for the message ledger.
type SendResult struct {
	StatusCode int
	Body       string
	MessageID  string
}

// Provider is the outbound message delivery port.
type Provider interface {
	Send(ctx context.Context, req SendRequest) (*SendResult, error)
}
