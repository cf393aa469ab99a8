package models

import "time"

// Task is a to-do item owned by a single user.
type Task struct {
	ID          int64      `db:"id"`
	UserID      int64      `db:"user_id"`
	Title       string     `db:"title"`
	Description string     `db:"description"`
	DueDate     *time.Time `db:"due_date"`
	IsCompleted bool       `db:"is_completed"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at"`
}

// TaskSort selects the ordering of paged task listings.
type TaskSort string

const (
	TaskSortDefault   TaskSort = ""
	TaskSortDueDate   TaskSort = "dueDate"
	TaskSortCreatedAt TaskSort = "createdAt"
)

// TaskFilter narrows a paged task listing.
type TaskFilter struct {
	IsCompleted *bool
	SortBy      TaskSort
	Page        int
	PageSize    int
}

// TaskPage is one page of a task listing.
type TaskPage struct {
	Items      []*Task
	TotalCount int
	Page       int
	PageSize   int
}

// TotalPages rounds up.
func (p *TaskPage) TotalPages() int {
	if p.PageSize <= 0 {
		return 0
	}
	return (p.TotalCount + p.PageSize - 1) / p.PageSize
}
