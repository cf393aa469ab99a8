package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/nizamla/internal/logging"
	"github.com/dmitrijs2005/nizamla/internal/server/auth"
	"github.com/dmitrijs2005/nizamla/internal/server/models"
	"github.com/dmitrijs2005/nizamla/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/nizamla/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

const refreshLifespan = 60 * 24 * time.Hour

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newSessionManager(t *testing.T, repos repomanager.RepositoryManager, clock *testClock) *SessionManager {
	t.Helper()
	key, err := auth.NewSigningKey([]byte(testSecret), "nizamla", "nizamla-clients", 30*time.Minute)
	require.NoError(t, err)
	policy, err := auth.NewRefreshTokenPolicy(refreshLifespan)
	require.NoError(t, err)

	issuer := auth.NewTokenIssuer(key, auth.WithClock(clock.Now))
	return NewSessionManager(repos, issuer, policy, logging.Nop(), WithSessionClock(clock.Now))
}

func createUser(t *testing.T, repos repomanager.RepositoryManager, name string) *models.User {
	t.Helper()
	u, err := repos.Users().Create(context.Background(), &models.User{
		Username: name, Email: name + "@example.com", Role: "User", PasswordHash: "unused",
	})
	require.NoError(t, err)
	return u
}

// faultyManager wraps the in-memory manager and injects refresh token
// store failures, both outside and inside transactions.
type faultyManager struct {
	*repomanager.MemoryRepositoryManager
	createErr error
	findErr   error
	revokeErr error
}

func (f *faultyManager) RefreshTokens() refreshtokens.Repository {
	return faultyTokens{Repository: f.MemoryRepositoryManager.RefreshTokens(), f: f}
}

func (f *faultyManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos repomanager.Repositories) error) error {
	return f.MemoryRepositoryManager.WithTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		return fn(ctx, faultyRepos{Repositories: repos, f: f})
	})
}

type faultyRepos struct {
	repomanager.Repositories
	f *faultyManager
}

func (r faultyRepos) RefreshTokens() refreshtokens.Repository {
	return faultyTokens{Repository: r.Repositories.RefreshTokens(), f: r.f}
}

type faultyTokens struct {
	refreshtokens.Repository
	f *faultyManager
}

func (t faultyTokens) Create(ctx context.Context, rt *models.RefreshToken) error {
	if t.f.createErr != nil {
		return t.f.createErr
	}
	return t.Repository.Create(ctx, rt)
}

func (t faultyTokens) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t.f.findErr != nil {
		return nil, t.f.findErr
	}
	return t.Repository.FindByToken(ctx, token)
}

func (t faultyTokens) Revoke(ctx context.Context, token string, at time.Time) (bool, error) {
	if t.f.revokeErr != nil {
		return false, t.f.revokeErr
	}
	return t.Repository.Revoke(ctx, token, at)
}
