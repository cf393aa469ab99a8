// Package services contains server-side business logic: session issuance
// and rotation, user registration and login, and owner-scoped tasks.
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/nizamla/internal/common"
	"github.com/dmitrijs2005/nizamla/internal/logging"
	"github.com/dmitrijs2005/nizamla/internal/server/auth"
	"github.com/dmitrijs2005/nizamla/internal/server/models"
	"github.com/dmitrijs2005/nizamla/internal/server/repositories/repomanager"
)

// Session is what a successful login, registration or refresh hands back.
type Session struct {
	User                  *models.User
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}

// SessionManager issues access/refresh token pairs and rotates refresh
// tokens. A refresh token is single use: Rotate consumes it with a
// conditional update inside one transaction, so of several concurrent
// rotations exactly one wins.
type SessionManager struct {
	repos  repomanager.RepositoryManager
	issuer *auth.TokenIssuer
	policy auth.RefreshTokenPolicy
	logger logging.Logger
	now    func() time.Time
}

// SessionOption configures a SessionManager.
type SessionOption func(*SessionManager)

// WithSessionClock replaces time.Now. Pass the same clock to the TokenIssuer.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) { m.now = now }
}

func NewSessionManager(repos repomanager.RepositoryManager, issuer *auth.TokenIssuer, policy auth.RefreshTokenPolicy, logger logging.Logger, opts ...SessionOption) *SessionManager {
	m := &SessionManager{repos: repos, issuer: issuer, policy: policy, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Issue starts a new session for user. Existing sessions are left alone.
func (m *SessionManager) Issue(ctx context.Context, user *models.User) (*Session, error) {
	s, err := m.issue(ctx, m.repos, user, m.now().UTC())
	if err != nil {
		return nil, err
	}
	m.logger.Info(ctx, "session issued", "user_id", user.ID)
	return s, nil
}

// Validate returns the owner of an active refresh token. It never changes
// stored state.
func (m *SessionManager) Validate(ctx context.Context, refreshToken string) (*models.User, error) {
	if refreshToken == "" {
		return nil, common.ErrInvalidOrExpiredRefreshToken
	}

	rt, err := m.repos.RefreshTokens().FindByToken(ctx, refreshToken)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, m.rejected(ctx, "validate", refreshToken)
	}
	if err != nil {
		return nil, fmt.Errorf("find refresh token: %w", err)
	}

	if !rt.IsActive(m.now().UTC()) {
		return nil, m.rejected(ctx, "validate", refreshToken)
	}
	return rt.User, nil
}

// Rotate exchanges an active refresh token for a new session. Unknown,
// expired and already used tokens all fail with
// common.ErrInvalidOrExpiredRefreshToken. On any failure, including ctx
// cancellation, the presented token is left as it was.
func (m *SessionManager) Rotate(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, common.ErrInvalidOrExpiredRefreshToken
	}

	var session *Session
	err := m.repos.WithTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		now := m.now().UTC()

		consumed, err := repos.RefreshTokens().Consume(ctx, refreshToken, now)
		if err != nil {
			return err
		}

		user, err := repos.Users().GetByID(ctx, consumed.UserID)
		if err != nil {
			return err
		}

		session, err = m.issue(ctx, repos, user, now)
		return err
	})
	if errors.Is(err, common.ErrorNotFound) {
		return nil, m.rejected(ctx, "rotate", refreshToken)
	}
	if err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	m.logger.Info(ctx, "session rotated", "user_id", session.User.ID)
	return session, nil
}

// Revoke ends the session behind refreshToken. Unknown and already
// revoked tokens are ignored, so logout always succeeds unless the store
// itself fails.
func (m *SessionManager) Revoke(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	changed, err := m.repos.RefreshTokens().Revoke(ctx, refreshToken, m.now().UTC())
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	m.logger.Debug(ctx, "refresh token revoke", "token_fp", fingerprint(refreshToken), "changed", changed)
	return nil
}

func (m *SessionManager) issue(ctx context.Context, repos repomanager.Repositories, user *models.User, now time.Time) (*Session, error) {
	access, accessExp, err := m.issuer.CreateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	raw, err := common.MakeRandHexString(common.RefreshTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: generate refresh token: %w", common.ErrorInternal, err)
	}

	rt := &models.RefreshToken{
		Token:     raw,
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.policy.Lifespan()),
	}
	if err := repos.RefreshTokens().Create(ctx, rt); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &Session{
		User:                  user,
		AccessToken:           access,
		AccessTokenExpiresAt:  accessExp,
		RefreshToken:          rt.Token,
		RefreshTokenExpiresAt: rt.ExpiresAt,
	}, nil
}

func (m *SessionManager) rejected(ctx context.Context, op, token string) error {
	m.logger.Warn(ctx, "refresh token rejected", "op", op)
	m.logger.Debug(ctx, "refresh token rejected", "op", op, "token_fp", fingerprint(token))
	return common.ErrInvalidOrExpiredRefreshToken
}

// fingerprint identifies a token in debug logs without revealing it.
func fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:6])
}
