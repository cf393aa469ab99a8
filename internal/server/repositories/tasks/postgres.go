package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/nizamla/internal/common"
	"github.com/dmitrijs2005/nizamla/internal/dbx"
	"github.com/dmitrijs2005/nizamla/internal/server/models"
)

const taskColumns = `id, user_id, title, description, due_date, is_completed, created_at, updated_at`

const defaultOrder = `is_completed ASC, created_at DESC`

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	query := `
		INSERT INTO tasks (user_id, title, description, due_date, is_completed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.db.QueryRowxContext(ctx, query,
		task.UserID, task.Title, task.Description, task.DueDate, task.IsCompleted, task.CreatedAt).Scan(&task.ID)
	if err != nil {
		return nil, dbx.MapError(err)
	}
	return task, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Task, error) {
	task := &models.Task{}
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	if err := r.db.GetContext(ctx, task, query, id); err != nil {
		return nil, dbx.MapError(err)
	}
	return task, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Task, error) {
	items := []*models.Task{}
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1 ORDER BY ` + defaultOrder
	if err := r.db.SelectContext(ctx, &items, query, userID); err != nil {
		return nil, dbx.MapError(err)
	}
	return items, nil
}

func (r *PostgresRepository) ListPaged(ctx context.Context, userID int64, filter models.TaskFilter) (*models.TaskPage, error) {
	where := []string{"user_id = $1"}
	args := []any{userID}
	if filter.IsCompleted != nil {
		args = append(args, *filter.IsCompleted)
		where = append(where, fmt.Sprintf("is_completed = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	page := &models.TaskPage{Page: filter.Page, PageSize: filter.PageSize, Items: []*models.Task{}}
	if err := r.db.GetContext(ctx, &page.TotalCount, `SELECT COUNT(*) FROM tasks WHERE `+cond, args...); err != nil {
		return nil, dbx.MapError(err)
	}

	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		taskColumns, cond, orderBy(filter.SortBy), len(args)-1, len(args))
	if err := r.db.SelectContext(ctx, &page.Items, query, args...); err != nil {
		return nil, dbx.MapError(err)
	}
	return page, nil
}

func orderBy(sort models.TaskSort) string {
	switch sort {
	case models.TaskSortDueDate:
		return `due_date ASC NULLS LAST, id ASC`
	case models.TaskSortCreatedAt:
		return `created_at DESC, id DESC`
	default:
		return defaultOrder
	}
}

func (r *PostgresRepository) Update(ctx context.Context, task *models.Task) (*models.Task, error) {
	query := `
		UPDATE tasks
		SET title = $2, description = $3, due_date = $4, is_completed = $5, updated_at = $6
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		task.ID, task.Title, task.Description, task.DueDate, task.IsCompleted, task.UpdatedAt)
	if err != nil {
		return nil, dbx.MapError(err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, dbx.MapError(err)
	} else if n == 0 {
		return nil, common.ErrorNotFound
	}
	return task, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return dbx.MapError(err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return dbx.MapError(err)
	} else if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
