package repomanager

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/nizamla/internal/common"
	"github.com/dmitrijs2005/nizamla/internal/server/models"
	"github.com/dmitrijs2005/nizamla/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/nizamla/internal/server/repositories/tasks"
	"github.com/dmitrijs2005/nizamla/internal/server/repositories/users"
)

type memoryState struct {
	users       map[int64]models.User
	tokens      map[string]models.RefreshToken
	tasks       map[int64]models.Task
	nextUserID  int64
	nextTokenID int64
	nextTaskID  int64
}

func newMemoryState() *memoryState {
	return &memoryState{
		users:  map[int64]models.User{},
		tokens: map[string]models.RefreshToken{},
		tasks:  map[int64]models.Task{},
	}
}

// clone copies the maps. Stored values are never mutated in place, so
// sharing their pointer fields is safe.
func (s *memoryState) clone() *memoryState {
	c := *s
	c.users = maps.Clone(s.users)
	c.tokens = maps.Clone(s.tokens)
	c.tasks = maps.Clone(s.tasks)
	return &c
}

// MemoryRepositoryManager keeps everything in process memory behind a single
// mutex. WithTx holds the mutex for the whole unit of work and restores a
// snapshot on failure, which makes transactions serializable.
type MemoryRepositoryManager struct {
	mu    sync.Mutex
	state *memoryState
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{state: newMemoryState()}
}

func (m *MemoryRepositoryManager) Users() users.Repository {
	return memoryUsers{memoryRepos{m: m}}
}

func (m *MemoryRepositoryManager) RefreshTokens() refreshtokens.Repository {
	return memoryRefreshTokens{memoryRepos{m: m}}
}

func (m *MemoryRepositoryManager) Tasks() tasks.Repository {
	return memoryTasks{memoryRepos{m: m}}
}

func (m *MemoryRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) (err error) {
	if err := ctx.Err(); err != nil {
		return storeError(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	defer func() {
		if p := recover(); p != nil {
			m.state = snapshot
			panic(p)
		}
		if err == nil && ctx.Err() != nil {
			err = storeError(ctx.Err())
		}
		if err != nil {
			m.state = snapshot
		}
	}()

	return fn(ctx, memoryRepos{m: m, inTx: true})
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context) error { return nil }
func (m *MemoryRepositoryManager) Ping(context.Context) error          { return nil }
func (m *MemoryRepositoryManager) Close() error                        { return nil }

func storeError(err error) error {
	return fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
}

// memoryRepos is bound either to the manager (locking per call) or to an
// open WithTx (the lock is already held).
type memoryRepos struct {
	m    *MemoryRepositoryManager
	inTx bool
}

func (r memoryRepos) Users() users.Repository                 { return memoryUsers{r} }
func (r memoryRepos) RefreshTokens() refreshtokens.Repository { return memoryRefreshTokens{r} }
func (r memoryRepos) Tasks() tasks.Repository                 { return memoryTasks{r} }

func (r memoryRepos) do(ctx context.Context, fn func(s *memoryState) error) error {
	if err := ctx.Err(); err != nil {
		return storeError(err)
	}
	if !r.inTx {
		r.m.mu.Lock()
		defer r.m.mu.Unlock()
	}
	return fn(r.m.state)
}

type memoryUsers struct{ memoryRepos }

func (r memoryUsers) Create(ctx context.Context, user *models.User) (*models.User, error) {
	err := r.do(ctx, func(s *memoryState) error {
		for _, u := range s.users {
			if u.Username == user.Username {
				return fmt.Errorf("%w: users_username_uq", common.ErrorAlreadyExists)
			}
			if strings.EqualFold(u.Email, user.Email) {
				return fmt.Errorf("%w: users_email_uq", common.ErrorAlreadyExists)
			}
		}
		s.nextUserID++
		user.ID = s.nextUserID
		if user.CreatedAt.IsZero() {
			user.CreatedAt = time.Now().UTC()
		}
		s.users[user.ID] = *user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r memoryUsers) find(ctx context.Context, match func(u models.User) bool) (*models.User, error) {
	var found *models.User
	err := r.do(ctx, func(s *memoryState) error {
		for _, u := range s.users {
			if match(u) {
				found = &u
				return nil
			}
		}
		return common.ErrorNotFound
	})
	return found, err
}

func (r memoryUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.find(ctx, func(u models.User) bool { return u.Username == username })
}

func (r memoryUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find(ctx, func(u models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r memoryUsers) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.find(ctx, func(u models.User) bool { return u.ID == id })
}

type memoryRefreshTokens struct{ memoryRepos }

func (r memoryRefreshTokens) Create(ctx context.Context, token *models.RefreshToken) error {
	return r.do(ctx, func(s *memoryState) error {
		if _, ok := s.tokens[token.Token]; ok {
			return fmt.Errorf("%w: refresh_tokens_token_uq", common.ErrorAlreadyExists)
		}
		if _, ok := s.users[token.UserID]; !ok {
			return fmt.Errorf("%w: refresh token owner %d does not exist", common.ErrStoreUnavailable, token.UserID)
		}
		s.nextTokenID++
		token.ID = s.nextTokenID
		stored := *token
		stored.User = nil
		s.tokens[token.Token] = stored
		return nil
	})
}

func (r memoryRefreshTokens) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var found *models.RefreshToken
	err := r.do(ctx, func(s *memoryState) error {
		rt, ok := s.tokens[token]
		if !ok {
			return common.ErrorNotFound
		}
		owner, ok := s.users[rt.UserID]
		if !ok {
			return common.ErrorNotFound
		}
		rt.User = &owner
		found = &rt
		return nil
	})
	return found, err
}

func (r memoryRefreshTokens) Revoke(ctx context.Context, token string, at time.Time) (bool, error) {
	changed := false
	err := r.do(ctx, func(s *memoryState) error {
		rt, ok := s.tokens[token]
		if !ok || rt.RevokedAt != nil {
			return nil
		}
		revokedAt := at
		rt.RevokedAt = &revokedAt
		s.tokens[token] = rt
		changed = true
		return nil
	})
	return changed, err
}

func (r memoryRefreshTokens) Consume(ctx context.Context, token string, at time.Time) (*models.RefreshToken, error) {
	var consumed *models.RefreshToken
	err := r.do(ctx, func(s *memoryState) error {
		rt, ok := s.tokens[token]
		if !ok || !rt.IsActive(at) {
			return common.ErrorNotFound
		}
		revokedAt := at
		rt.RevokedAt = &revokedAt
		s.tokens[token] = rt
		consumed = &rt
		return nil
	})
	return consumed, err
}

func (r memoryRefreshTokens) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := r.do(ctx, func(s *memoryState) error {
		for k, rt := range s.tokens {
			if rt.ExpiresAt.Before(cutoff) || (rt.RevokedAt != nil && rt.RevokedAt.Before(cutoff)) {
				delete(s.tokens, k)
				n++
			}
		}
		return nil
	})
	return n, err
}

type memoryTasks struct{ memoryRepos }

func (r memoryTasks) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	err := r.do(ctx, func(s *memoryState) error {
		if _, ok := s.users[task.UserID]; !ok {
			return fmt.Errorf("%w: task owner %d does not exist", common.ErrStoreUnavailable, task.UserID)
		}
		s.nextTaskID++
		task.ID = s.nextTaskID
		s.tasks[task.ID] = *task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r memoryTasks) GetByID(ctx context.Context, id int64) (*models.Task, error) {
	var found *models.Task
	err := r.do(ctx, func(s *memoryState) error {
		t, ok := s.tasks[id]
		if !ok {
			return common.ErrorNotFound
		}
		found = &t
		return nil
	})
	return found, err
}

func (r memoryTasks) collect(s *memoryState, userID int64, isCompleted *bool) []*models.Task {
	items := []*models.Task{}
	for _, t := range s.tasks {
		if t.UserID != userID {
			continue
		}
		if isCompleted != nil && t.IsCompleted != *isCompleted {
			continue
		}
		items = append(items, &t)
	}
	return items
}

func (r memoryTasks) ListByUser(ctx context.Context, userID int64) ([]*models.Task, error) {
	var items []*models.Task
	err := r.do(ctx, func(s *memoryState) error {
		items = r.collect(s, userID, nil)
		sortTasks(items, models.TaskSortDefault)
		return nil
	})
	return items, err
}

func (r memoryTasks) ListPaged(ctx context.Context, userID int64, filter models.TaskFilter) (*models.TaskPage, error) {
	page := &models.TaskPage{Page: filter.Page, PageSize: filter.PageSize, Items: []*models.Task{}}
	err := r.do(ctx, func(s *memoryState) error {
		all := r.collect(s, userID, filter.IsCompleted)
		sortTasks(all, filter.SortBy)
		page.TotalCount = len(all)
		start := (filter.Page - 1) * filter.PageSize
		if start < 0 || start >= len(all) {
			return nil
		}
		end := min(start+filter.PageSize, len(all))
		page.Items = all[start:end]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func sortTasks(items []*models.Task, by models.TaskSort) {
	var less func(a, b *models.Task) bool
	switch by {
	case models.TaskSortDueDate:
		less = func(a, b *models.Task) bool {
			switch {
			case a.DueDate == nil && b.DueDate == nil:
				return a.ID < b.ID
			case a.DueDate == nil:
				return false
			case b.DueDate == nil:
				return true
			case !a.DueDate.Equal(*b.DueDate):
				return a.DueDate.Before(*b.DueDate)
			}
			return a.ID < b.ID
		}
	case models.TaskSortCreatedAt:
		less = func(a, b *models.Task) bool {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID > b.ID
		}
	default:
		less = func(a, b *models.Task) bool {
			if a.IsCompleted != b.IsCompleted {
				return !a.IsCompleted
			}
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID > b.ID
		}
	}
	sort.Slice(items, func(i, j int) bool { return less(items[i], items[j]) })
}

func (r memoryTasks) Update(ctx context.Context, task *models.Task) (*models.Task, error) {
	err := r.do(ctx, func(s *memoryState) error {
		cur, ok := s.tasks[task.ID]
		if !ok {
			return common.ErrorNotFound
		}
		cur.Title = task.Title
		cur.Description = task.Description
		cur.DueDate = task.DueDate
		cur.IsCompleted = task.IsCompleted
		cur.UpdatedAt = task.UpdatedAt
		s.tasks[task.ID] = cur
		*task = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r memoryTasks) Delete(ctx context.Context, id int64) error {
	return r.do(ctx, func(s *memoryState) error {
		if _, ok := s.tasks[id]; !ok {
			return common.ErrorNotFound
		}
		delete(s.tasks, id)
		return nil
	})
}
