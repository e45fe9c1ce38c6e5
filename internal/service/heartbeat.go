package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lealta/campaign-engine/internal/domain"
	"github.com/lealta/campaign-engine/internal/repository"
)

// WorkerView is one worker's heartbeat row with derived liveness.
type WorkerView struct {
	Worker domain.WorkerHeartbeat
	Alive  bool
}

// HeartbeatService keeps this process's liveness row fresh and answers
// worker queries. Liveness is derived from timestamps on read; a crashed
// worker simply stops refreshing and falls off the threshold.
type HeartbeatService struct {
	heartbeats repository.HeartbeatRepository
	workerName string
	threshold  time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

func NewHeartbeatService(
	heartbeats repository.HeartbeatRepository,
	workerName string,
	threshold time.Duration,
	logger *zap.Logger,
) (*HeartbeatService, error) {
	if heartbeats == nil {
		return nil, fmt.Errorf("heartbeat repository is required")
	}
	if workerName == "" {
		return nil, fmt.Errorf("worker name is required")
	}
	if threshold <= 0 {
		threshold = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &HeartbeatService{
		heartbeats: heartbeats,
		workerName: workerName,
		threshold:  threshold,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Register upserts this worker's row. Called once on process start.
func (s *HeartbeatService) Register(ctx context.Context) error {
	now := s.now().UTC()
	return s.heartbeats.Register(ctx, &domain.WorkerHeartbeat{
		WorkerName:    s.workerName,
		Status:        domain.WorkerActive,
		LastHeartbeat: now,
		StartedAt:     now,
	})
}

// Start refreshes the heartbeat at half the liveness threshold until the
// context is canceled, then marks the worker inactive.
func (s *HeartbeatService) Start(ctx context.Context) error {
	interval := s.threshold / 2
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil
		case <-ticker.C:
			if err := s.heartbeats.Beat(ctx, s.workerName, s.now().UTC(), 0); err != nil {
				s.logger.Warn("heartbeat refresh failed", zap.Error(err))
			}
		}
	}
}

func (s *HeartbeatService) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.heartbeats.MarkInactive(ctx, s.workerName, s.now().UTC()); err != nil {
		s.logger.Warn("failed to mark worker inactive on shutdown", zap.Error(err))
	}
}

// Workers lists every known worker with liveness derived at read time.
func (s *HeartbeatService) Workers(ctx context.Context) ([]WorkerView, error) {
	workers, err := s.heartbeats.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}

	now := s.now()
	views := make([]WorkerView, 0, len(workers))
	for i := range workers {
		views = append(views, WorkerView{
			Worker: workers[i],
			Alive:  workers[i].Alive(now, s.threshold),
		})
	}

	return views, nil
}
