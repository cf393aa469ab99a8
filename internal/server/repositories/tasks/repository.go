// Package tasks declares the storage contract for user tasks.
package tasks

import (
	"context"

	"github.com/dmitrijs2005/nizamla/internal/server/models"
)

// Repository stores tasks. It does not check ownership; callers do.
type Repository interface {
	Create(ctx context.Context, task *models.Task) (*models.Task, error)
	GetByID(ctx context.Context, id int64) (*models.Task, error)
	// ListByUser orders open tasks first, newest first within each group.
	ListByUser(ctx context.Context, userID int64) ([]*models.Task, error)
	ListPaged(ctx context.Context, userID int64, filter models.TaskFilter) (*models.TaskPage, error)
	Update(ctx context.Context, task *models.Task) (*models.Task, error)
	Delete(ctx context.Context, id int64) error
}
