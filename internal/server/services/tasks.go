package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/nizamla/internal/common"
	"github.com/dmitrijs2005/nizamla/internal/logging"
	"github.com/dmitrijs2005/nizamla/internal/server/models"
	"github.com/dmitrijs2005/nizamla/internal/server/repositories/repomanager"
)

const (
	maxTitleLen       = 100
	maxDescriptionLen = 1000

	DefaultPageSize = 10
	MaxPageSize     = 100
)

// TaskInput carries the fields of a new task.
type TaskInput struct {
	Title       string
	Description string
	DueDate     *time.Time
}

// TaskUpdate changes only the fields that are set. An empty Title keeps
// the current one.
type TaskUpdate struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	IsCompleted *bool
}

// TaskQuery selects one page of a user's tasks. SortBy accepts "dueDate"
// and "createdAt" in any case; anything else keeps the default order.
type TaskQuery struct {
	Page        int
	PageSize    int
	IsCompleted *bool
	SortBy      string
}

// TaskService manages tasks on behalf of their owner. Every operation that
// names a task by id checks that it belongs to userID.
type TaskService struct {
	repos  repomanager.RepositoryManager
	logger logging.Logger
	now    func() time.Time
}

func NewTaskService(repos repomanager.RepositoryManager, logger logging.Logger) *TaskService {
	return &TaskService{repos: repos, logger: logger, now: time.Now}
}

func (s *TaskService) List(ctx context.Context, userID int64) ([]*models.Task, error) {
	items, err := s.repos.Tasks().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return items, nil
}

func (s *TaskService) ListPaged(ctx context.Context, userID int64, q TaskQuery) (*models.TaskPage, error) {
	v := &validator{}
	v.check(q.Page > 0, "page", "page must be greater than zero")
	v.check(q.PageSize > 0, "pageSize", "page size must be greater than zero")
	if err := v.err(); err != nil {
		return nil, err
	}

	filter := models.TaskFilter{
		IsCompleted: q.IsCompleted,
		SortBy:      parseTaskSort(q.SortBy),
		Page:        q.Page,
		PageSize:    min(q.PageSize, MaxPageSize),
	}
	page, err := s.repos.Tasks().ListPaged(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return page, nil
}

func (s *TaskService) Get(ctx context.Context, userID, id int64) (*models.Task, error) {
	return s.owned(ctx, userID, id)
}

func (s *TaskService) Create(ctx context.Context, userID int64, in TaskInput) (*models.Task, error) {
	now := s.now().UTC()
	title := strings.TrimSpace(in.Title)

	v := &validator{}
	v.check(title != "", "title", "title is required")
	checkTaskFields(v, title, in.Description, in.DueDate, now)
	if err := v.err(); err != nil {
		return nil, err
	}

	task, err := s.repos.Tasks().Create(ctx, &models.Task{
		UserID:      userID,
		Title:       title,
		Description: in.Description,
		DueDate:     in.DueDate,
		CreatedAt:   now,
	})
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	s.logger.Info(ctx, "task created", "task_id", task.ID, "user_id", userID)
	return task, nil
}

func (s *TaskService) Update(ctx context.Context, userID, id int64, upd TaskUpdate) (*models.Task, error) {
	now := s.now().UTC()

	v := &validator{}
	var title, description string
	if upd.Title != nil {
		title = strings.TrimSpace(*upd.Title)
	}
	if upd.Description != nil {
		description = *upd.Description
	}
	checkTaskFields(v, title, description, upd.DueDate, now)
	if err := v.err(); err != nil {
		return nil, err
	}

	task, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if title != "" {
		task.Title = title
	}
	if upd.Description != nil {
		task.Description = description
	}
	if upd.DueDate != nil {
		task.DueDate = upd.DueDate
	}
	if upd.IsCompleted != nil {
		task.IsCompleted = *upd.IsCompleted
	}
	task.UpdatedAt = &now

	updated, err := s.repos.Tasks().Update(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return updated, nil
}

func (s *TaskService) Delete(ctx context.Context, userID, id int64) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repos.Tasks().Delete(ctx, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	s.logger.Info(ctx, "task deleted", "task_id", id, "user_id", userID)
	return nil
}

func (s *TaskService) owned(ctx context.Context, userID, id int64) (*models.Task, error) {
	if id <= 0 {
		return nil, common.ErrorNotFound
	}
	task, err := s.repos.Tasks().GetByID(ctx, id)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task.UserID != userID {
		s.logger.Warn(ctx, "task access denied", "task_id", id, "user_id", userID)
		return nil, common.ErrorForbidden
	}
	return task, nil
}

func checkTaskFields(v *validator, title, description string, due *time.Time, now time.Time) {
	v.check(utf8.RuneCountInString(title) <= maxTitleLen, "title",
		fmt.Sprintf("title must be at most %d characters", maxTitleLen))
	v.check(utf8.RuneCountInString(description) <= maxDescriptionLen, "description",
		fmt.Sprintf("description must be at most %d characters", maxDescriptionLen))
	v.check(due == nil || due.After(now), "dueDate", "due date cannot be in the past")
}

func parseTaskSort(s string) models.TaskSort {
	switch {
	case strings.EqualFold(s, string(models.TaskSortDueDate)):
		return models.TaskSortDueDate
	case strings.EqualFold(s, string(models.TaskSortCreatedAt)):
		return models.TaskSortCreatedAt
	}
	return models.TaskSortDefault
}
