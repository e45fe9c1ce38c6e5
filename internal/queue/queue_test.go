package queue

import (
	"testing"
	"time"
)

func TestStatusEventValidate(t *testing.T) {
	statusEvent := StatusEvent{
		Type:              EventDeliveryStatus,
		TenantID:          "tenant-1",
		ProviderMessageID: "wamid.001",
		Status:            "DELIVERED",
		Timestamp:         time.Now(),
	}
	if err := statusEvent.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}

	missingProvider := statusEvent
	missingProvider.ProviderMessageID = ""
	if err := missingProvider.Validate(); err == nil {
		t.Fatal("expected error for missing provider message id")
	}

	missingStatus := statusEvent
	missingStatus.Status = ""
	if err := missingStatus.Validate(); err == nil {
		t.Fatal("expected error for missing status")
	}

	missingTenant := statusEvent
	missingTenant.TenantID = ""
	if err := missingTenant.Validate(); err == nil {
		t.Fatal("expected error for missing tenant id")
	}
}

func TestStatusEventValidateInbound(t *testing.T) {
	inbound := StatusEvent{
		Type:        EventInboundMessage,
		TenantID:    "tenant-1",
		PhoneNumber: "+593991112233",
		Body:        "STOP",
		Timestamp:   time.Now(),
	}
	if err := inbound.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}

	inbound.PhoneNumber = ""
	if err := inbound.Validate(); err == nil {
		t.Fatal("expected error for missing phone number")
	}
}

func TestStatusEventValidateUnknownType(t *testing.T) {
	event := StatusEvent{
		Type:     EventType("bogus"),
		TenantID: "tenant-1",
	}
	if err := event.Validate(); err == nil {
		t.Fatal("expected error for unknown event type")
	}
}
