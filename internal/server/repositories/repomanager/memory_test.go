package repomanager

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/nizamla/internal/common"
	"github.com/dmitrijs2005/nizamla/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ RepositoryManager = (*MemoryRepositoryManager)(nil)

func seedUser(t *testing.T, m *MemoryRepositoryManager, name string) *models.User {
	t.Helper()
	u, err := m.Users().Create(context.Background(), &models.User{Username: name, Email: name + "@example.com", Role: "User", PasswordHash: "h"})
	require.NoError(t, err)
	return u
}

func TestMemoryUsers_Uniqueness(t *testing.T) {
	m := NewMemoryRepositoryManager()
	ctx := context.Background()
	seedUser(t, m, "alice")

	_, err := m.Users().Create(ctx, &models.User{Username: "alice", Email: "other@example.com"})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	_, err = m.Users().Create(ctx, &models.User{Username: "bob", Email: "ALICE@example.com"})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	got, err := m.Users().GetByEmail(ctx, "Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = m.Users().GetByID(ctx, 99)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMemoryRefreshTokens_ConsumeOnce(t *testing.T) {
	m := NewMemoryRepositoryManager()
	ctx := context.Background()
	u := seedUser(t, m, "alice")
	now := time.Now().UTC()

	rt := &models.RefreshToken{Token: "t1", UserID: u.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, m.RefreshTokens().Create(ctx, rt))
	assert.ErrorIs(t, m.RefreshTokens().Create(ctx, &models.RefreshToken{Token: "t1", UserID: u.ID}), common.ErrorAlreadyExists)

	got, err := m.RefreshTokens().Consume(ctx, "t1", now)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.UserID)

	_, err = m.RefreshTokens().Consume(ctx, "t1", now)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	changed, err := m.RefreshTokens().Revoke(ctx, "t1", now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, changed, "revoked_at is set once")

	found, err := m.RefreshTokens().FindByToken(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, found.RevokedAt)
	assert.True(t, found.RevokedAt.Equal(now))
	assert.Equal(t, "alice", found.User.Username)
}

func TestMemoryRefreshTokens_ConsumeRejectsExpired(t *testing.T) {
	m := NewMemoryRepositoryManager()
	ctx := context.Background()
	u := seedUser(t, m, "alice")
	now := time.Now().UTC()

	require.NoError(t, m.RefreshTokens().Create(ctx, &models.RefreshToken{Token: "t1", UserID: u.ID, CreatedAt: now, ExpiresAt: now}))
	_, err := m.RefreshTokens().Consume(ctx, "t1", now)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	found, err := m.RefreshTokens().FindByToken(ctx, "t1")
	require.NoError(t, err)
	assert.Nil(t, found.RevokedAt, "a failed consume leaves the row alone")
}

func TestMemoryRefreshTokens_DeleteStale(t *testing.T) {
	m := NewMemoryRepositoryManager()
	ctx := context.Background()
	u := seedUser(t, m, "alice")
	now := time.Now().UTC()

	require.NoError(t, m.RefreshTokens().Create(ctx, &models.RefreshToken{Token: "old", UserID: u.ID, ExpiresAt: now.Add(-time.Hour)}))
	require.NoError(t, m.RefreshTokens().Create(ctx, &models.RefreshToken{Token: "live", UserID: u.ID, ExpiresAt: now.Add(time.Hour)}))

	n, err := m.RefreshTokens().DeleteStale(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = m.RefreshTokens().FindByToken(ctx, "live")
	assert.NoError(t, err)
}

func TestMemoryWithTx_RollbackRestoresState(t *testing.T) {
	m := NewMemoryRepositoryManager()
	ctx := context.Background()
	u := seedUser(t, m, "alice")
	now := time.Now().UTC()
	require.NoError(t, m.RefreshTokens().Create(ctx, &models.RefreshToken{Token: "t1", UserID: u.ID, ExpiresAt: now.Add(time.Hour)}))

	boom := errors.New("boom")
	err := m.WithTx(ctx, func(ctx context.Context, repos Repositories) error {
		if _, err := repos.RefreshTokens().Consume(ctx, "t1", now); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	found, err := m.RefreshTokens().FindByToken(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, found.IsActive(now), "revocation must be rolled back")
}

func TestMemoryWithTx_CancelledContextRollsBack(t *testing.T) {
	m := NewMemoryRepositoryManager()
	u := seedUser(t, m, "alice")
	now := time.Now().UTC()
	require.NoError(t, m.RefreshTokens().Create(context.Background(), &models.RefreshToken{Token: "t1", UserID: u.ID, ExpiresAt: now.Add(time.Hour)}))

	ctx, cancel := context.WithCancel(context.Background())
	err := m.WithTx(ctx, func(ctx context.Context, repos Repositories) error {
		if _, err := repos.RefreshTokens().Consume(ctx, "t1", now); err != nil {
			return err
		}
		cancel()
		return nil
	})
	require.ErrorIs(t, err, common.ErrStoreUnavailable)
	require.ErrorIs(t, err, context.Canceled)

	found, err := m.RefreshTokens().FindByToken(context.Background(), "t1")
	require.NoError(t, err)
	assert.Nil(t, found.RevokedAt)
}

func TestMemoryWithTx_PanicRollsBack(t *testing.T) {
	m := NewMemoryRepositoryManager()
	u := seedUser(t, m, "alice")

	func() {
		defer func() { assert.NotNil(t, recover()) }()
		_ = m.WithTx(context.Background(), func(ctx context.Context, repos Repositories) error {
			_, _ = repos.Tasks().Create(ctx, &models.Task{UserID: u.ID, Title: "ghost"})
			panic("kaput")
		})
	}()

	items, err := m.Tasks().ListByUser(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMemoryConsume_ConcurrentSingleWinner(t *testing.T) {
	m := NewMemoryRepositoryManager()
	u := seedUser(t, m, "alice")
	now := time.Now().UTC()
	require.NoError(t, m.RefreshTokens().Create(context.Background(), &models.RefreshToken{Token: "t1", UserID: u.ID, ExpiresAt: now.Add(time.Hour)}))

	const workers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := m.RefreshTokens().Consume(context.Background(), "t1", now)
			if err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, winners)
}

func TestMemoryTasks_PagingAndOrder(t *testing.T) {
	m := NewMemoryRepositoryManager()
	ctx := context.Background()
	u := seedUser(t, m, "alice")
	other := seedUser(t, m, "bob")
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_, err := m.Tasks().Create(ctx, &models.Task{UserID: u.ID, Title: "t", IsCompleted: i%2 == 0, CreatedAt: base.Add(time.Duration(i) * time.Hour)})
		require.NoError(t, err)
	}
	_, err := m.Tasks().Create(ctx, &models.Task{UserID: other.ID, Title: "not mine"})
	require.NoError(t, err)

	all, err := m.Tasks().ListByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.False(t, all[0].IsCompleted)
	assert.False(t, all[1].IsCompleted)
	assert.True(t, all[0].CreatedAt.After(all[1].CreatedAt))
	assert.True(t, all[2].IsCompleted)

	done := true
	page, err := m.Tasks().ListPaged(ctx, u.ID, models.TaskFilter{IsCompleted: &done, Page: 2, PageSize: 2, SortBy: models.TaskSortCreatedAt})
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalCount)
	require.Len(t, page.Items, 1)
	assert.True(t, page.Items[0].CreatedAt.Equal(base))

	empty, err := m.Tasks().ListPaged(ctx, u.ID, models.TaskFilter{Page: 9, PageSize: 2})
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
	assert.Equal(t, 5, empty.TotalCount)
}
