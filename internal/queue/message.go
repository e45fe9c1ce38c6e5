package queue

import (
	"fmt"
	"strings"
	"time"
)

// EventType discriminates callback payloads on the status queue.
type EventType string

const (
	// EventDeliveryStatus is a provider receipt for a message we sent.
	EventDeliveryStatus EventType = "status"
	// EventInboundMessage is a reply from a recipient, checked for opt-out
	// keywords.
	EventInboundMessage EventType = "inbound"
)

// StatusEvent is the broker payload for provider callbacks. The HTTP ingress
// publishes it; the status consumer applies it to the ledger and the
// suppression registry.
type StatusEvent struct {
	Type              EventType `json:"type"`
	TenantID          string    `json:"tenantId"`
	ProviderMessageID string    `json:"providerMessageId,omitempty"`
	Status            string    `json:"status,omitempty"`
	PhoneNumber       string    `json:"phoneNumber,omitempty"`
	Body              string    `json:"body,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

func (e StatusEvent) Validate() error {
	if strings.TrimSpace(e.TenantID) == "" {
		return fmt.Errorf("tenantId is required")
	}

	switch e.Type {
	case EventDeliveryStatus:
		if strings.TrimSpace(e.ProviderMessageID) == "" {
			return fmt.Errorf("providerMessageId is required for status events")
		}
		if strings.TrimSpace(e.Status) == "" {
			return fmt.Errorf("status is required for status events")
		}
	case EventInboundMessage:
		if strings.TrimSpace(e.PhoneNumber) == "" {
			return fmt.Errorf("phoneNumber is required for inbound events")
		}
	default:
		return fmt.Errorf("invalid event type %q", e.Type)
	}

	return nil
}
