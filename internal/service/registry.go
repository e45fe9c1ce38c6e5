package service

import (
	"fmt"
	"sync"

	"github.com/lealta/campaign-engine/internal/domain"
)

// LoopHandle is the registry's view of one running dispatcher loop. The
// nudge channel cuts the inter-batch sleep short so control actions take
// effect without waiting out the delay.
type LoopHandle struct {
	CampaignID string
	nudge      chan struct{}
}

// Nudge wakes the loop if it is sleeping. Non-blocking; a loop that is
// already awake will observe the status change at the top of its next
// iteration anyway.
func (h *LoopHandle) Nudge() {
	if h == nil {
		return
	}
	select {
	case h.nudge <- struct{}{}:
	default:
	}
}

func (h *LoopHandle) nudged() <-chan struct{} {
	if h == nil {
		return nil
	}
	return h.nudge
}

// Registry tracks which campaigns have a dispatcher loop running in this
// process. It is a cache over the durable store: restart loses it, and the
// persisted campaign status stays the source of truth.
type Registry struct {
	mu    sync.Mutex
	loops map[string]*LoopHandle
}

func NewRegistry() *Registry {
	return &Registry{
		loops: make(map[string]*LoopHandle),
	}
}

// Acquire registers a loop for the campaign. A second loop for the same
// campaign is refused with ErrConflict, which keeps start/resume idempotent
// under concurrent control requests.
func (r *Registry) Acquire(campaignID string) (*LoopHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, running := r.loops[campaignID]; running {
		return nil, fmt.Errorf("%w: campaign %s loop already running", domain.ErrConflict, campaignID)
	}

	handle := &LoopHandle{
		CampaignID: campaignID,
		nudge:      make(chan struct{}, 1),
	}
	r.loops[campaignID] = handle
	return handle, nil
}

func (r *Registry) Release(campaignID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.loops, campaignID)
}

func (r *Registry) IsRunning(campaignID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, running := r.loops[campaignID]
	return running
}

// Nudge wakes the campaign's loop if one runs here. Returns false when no
// loop is registered, e.g. after a restart or on another instance.
func (r *Registry) Nudge(campaignID string) bool {
	r.mu.Lock()
	handle, running := r.loops[campaignID]
	r.mu.Unlock()

	if !running {
		return false
	}
	handle.Nudge()
	return true
}

func (r *Registry) Running() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.loops))
	for id := range r.loops {
		ids = append(ids, id)
	}
	return ids
}
