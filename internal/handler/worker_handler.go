package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lealta/campaign-engine/internal/service"
)

type WorkerService interface {
	Workers(ctx context.Context) ([]service.WorkerView, error)
}

type WorkerHandler struct {
	service WorkerService
}

func NewWorkerHandler(service WorkerService) (*WorkerHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("worker service is required")
	}
	return &WorkerHandler{service: service}, nil
}

func RegisterWorkerRoutes(router fiber.Router, service WorkerService) error {
	h, err := NewWorkerHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/workers", h.ListWorkers)

	return nil
}

type workerResponse struct {
	WorkerName    string    `json:"workerName"`
	Status        string    `json:"status"`
	Alive         bool      `json:"alive"`
	LastHeartbeat time.Time `json:"lastHeartbeat"`
	JobsProcessed int64     `json:"jobsProcessed"`
	StartedAt     time.Time `json:"startedAt"`
}

type listWorkersResponse struct {
	Data []workerResponse `json:"data"`
}

func (h *WorkerHandler) ListWorkers(c *fiber.Ctx) error {
	views, err := h.service.Workers(c.Context())
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]workerResponse, 0, len(views))
	for _, view := range views {
		data = append(data, workerResponse{
			WorkerName:    view.Worker.WorkerName,
			Status:        view.Worker.Status.String(),
			Alive:         view.Alive,
			LastHeartbeat: view.Worker.LastHeartbeat,
			JobsProcessed: view.Worker.JobsProcessed,
			StartedAt:     view.Worker.StartedAt,
		})
	}

	return c.Status(fiber.StatusOK).JSON(listWorkersResponse{Data: data})
}
