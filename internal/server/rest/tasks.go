package rest

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/nizamla/internal/common"
	"github.com/dmitrijs2005/nizamla/internal/server/models"
	"github.com/dmitrijs2005/nizamla/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type createTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
}

type updateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
	IsCompleted *bool      `json:"isCompleted"`
}

type taskResponse struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
	IsCompleted bool       `json:"isCompleted"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt"`
	UserID      int64      `json:"userId"`
}

type pagedTasksResponse struct {
	Items      []taskResponse `json:"items"`
	TotalCount int            `json:"totalCount"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

func newTaskResponse(t *models.Task) taskResponse {
	return taskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		IsCompleted: t.IsCompleted,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		UserID:      t.UserID,
	}
}

func newTaskResponses(items []*models.Task) []taskResponse {
	out := make([]taskResponse, 0, len(items))
	for _, t := range items {
		out = append(out, newTaskResponse(t))
	}
	return out
}

func taskID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, common.ErrorNotFound
	}
	return id, nil
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := currentUserID(ctx)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}

	items, err := h.tasks.List(ctx, userID)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newTaskResponses(items))
}

func (h *Handler) pagedTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := currentUserID(ctx)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}

	q, err := parseTaskQuery(r)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}

	page, err := h.tasks.ListPaged(ctx, userID, q)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, pagedTasksResponse{
		Items:      newTaskResponses(page.Items),
		TotalCount: page.TotalCount,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages(),
	})
}

func parseTaskQuery(r *http.Request) (services.TaskQuery, error) {
	values := r.URL.Query()
	q := services.TaskQuery{Page: 1, PageSize: services.DefaultPageSize, SortBy: values.Get("sortBy")}
	var fields []services.FieldError

	intParam := func(name string, dst *int) {
		raw := values.Get(name)
		if raw == "" {
			return
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			fields = append(fields, services.FieldError{Field: name, Message: fmt.Sprintf("%s must be an integer", name)})
			return
		}
		*dst = n
	}
	intParam("page", &q.Page)
	intParam("pageSize", &q.PageSize)

	if raw := values.Get("isCompleted"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			fields = append(fields, services.FieldError{Field: "isCompleted", Message: "isCompleted must be true or false"})
		} else {
			q.IsCompleted = &b
		}
	}

	if len(fields) > 0 {
		return q, &services.ValidationError{Fields: fields}
	}
	return q, nil
}

func (h *Handler) getTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := currentUserID(ctx)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	id, err := taskID(r)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}

	task, err := h.tasks.Get(ctx, userID, id)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newTaskResponse(task))
}

func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := currentUserID(ctx)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}

	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(ctx, w, h.logger, "malformed request body")
		return
	}

	task, err := h.tasks.Create(ctx, userID, services.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
	})
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/task/%d", task.ID))
	writeJSON(w, http.StatusCreated, newTaskResponse(task))
}

func (h *Handler) updateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := currentUserID(ctx)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	id, err := taskID(r)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}

	var req updateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(ctx, w, h.logger, "malformed request body")
		return
	}

	task, err := h.tasks.Update(ctx, userID, id, services.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		IsCompleted: req.IsCompleted,
	})
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newTaskResponse(task))
}

func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := currentUserID(ctx)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	id, err := taskID(r)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}

	if err := h.tasks.Delete(ctx, userID, id); err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
