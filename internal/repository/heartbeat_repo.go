package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lealta/campaign-engine/internal/domain"
)

type HeartbeatRepository interface {
	Register(ctx context.Context, w *domain.WorkerHeartbeat) error
	Beat(ctx context.Context, workerName string, at time.Time, jobsDelta int64) error
	MarkInactive(ctx context.Context, workerName string, at time.Time) error
	List(ctx context.Context) ([]domain.WorkerHeartbeat, error)
}

type GormHeartbeatRepo struct {
	db *gorm.DB
}

func NewGormHeartbeatRepo(db *gorm.DB) *GormHeartbeatRepo {
	return &GormHeartbeatRepo{db: db}
}

// Register upserts the worker row on process start. A restart under the same
// name reclaims the row and resets the started_at anchor.
func (r *GormHeartbeatRepo) Register(ctx context.Context, w *domain.WorkerHeartbeat) error {
	model := heartbeatModelFromDomain(w)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "worker_name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "last_heartbeat", "started_at",
			}),
		}).
		Create(model).Error
}

func (r *GormHeartbeatRepo) Beat(ctx context.Context, workerName string, at time.Time, jobsDelta int64) error {
	result := r.db.WithContext(ctx).
		Model(&WorkerHeartbeatModel{}).
		Where("worker_name = ?", workerName).
		Updates(map[string]any{
			"status":         domain.WorkerActive,
			"last_heartbeat": at,
			"jobs_processed": gorm.Expr("jobs_processed + ?", jobsDelta),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormHeartbeatRepo) MarkInactive(ctx context.Context, workerName string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&WorkerHeartbeatModel{}).
		Where("worker_name = ?", workerName).
		Updates(map[string]any{
			"status":         domain.WorkerInactive,
			"last_heartbeat": at,
		}).Error
}

func (r *GormHeartbeatRepo) List(ctx context.Context) ([]domain.WorkerHeartbeat, error) {
	var models []WorkerHeartbeatModel
	err := r.db.WithContext(ctx).
		Order("worker_name ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	workers := make([]domain.WorkerHeartbeat, 0, len(models))
	for i := range models {
		workers = append(workers, *heartbeatModelToDomain(&models[i]))
	}

	return workers, nil
}
