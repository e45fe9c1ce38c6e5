package service

import (
	"errors"
	"testing"

	"github.com/lealta/campaign-engine/internal/domain"
)

func TestRegistryRefusesDuplicateLoop(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()

	if _, err := registry.Acquire("c1"); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if _, err := registry.Acquire("c1"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("second Acquire() error = %v, want ErrConflict", err)
	}

	registry.Release("c1")
	if _, err := registry.Acquire("c1"); err != nil {
		t.Fatalf("Acquire() after release error = %v", err)
	}
}

func TestRegistryNudgeWakesSleepingLoop(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	handle, err := registry.Acquire("c1")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	if !registry.Nudge("c1") {
		t.Fatal("Nudge() = false, want true for a registered loop")
	}

	select {
	case <-handle.nudged():
	default:
		t.Fatal("expected the nudge channel to hold a wake signal")
	}
}

func TestRegistryNudgeUnknownCampaign(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	if registry.Nudge("unknown") {
		t.Fatal("Nudge() = true for an unregistered campaign")
	}
}

func TestRegistryNudgeNeverBlocks(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	if _, err := registry.Acquire("c1"); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	// Repeated nudges against an already pending wake must not block.
	for i := 0; i < 5; i++ {
		registry.Nudge("c1")
	}
}

func TestRegistryRunning(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	if _, err := registry.Acquire("c1"); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if _, err := registry.Acquire("c2"); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	if !registry.IsRunning("c1") || !registry.IsRunning("c2") {
		t.Fatal("expected both loops to be registered")
	}
	if got := len(registry.Running()); got != 2 {
		t.Fatalf("Running() returned %d ids, want 2", got)
	}

	registry.Release("c1")
	if registry.IsRunning("c1") {
		t.Fatal("c1 still registered after release")
	}
}
