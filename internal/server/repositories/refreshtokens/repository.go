// Package refreshtokens declares the storage contract for refresh tokens.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/nizamla/internal/server/models"
)

// Repository persists refresh tokens. Rows are never updated except to set
// revoked_at once, and never deleted except by DeleteStale.
type Repository interface {
	// Create stores a new token row. ID is filled in on success.
	Create(ctx context.Context, token *models.RefreshToken) error

	// FindByToken returns the row with its owning user attached, or
	// common.ErrorNotFound.
	FindByToken(ctx context.Context, token string) (*models.RefreshToken, error)

	// Revoke sets revoked_at to at if it is still unset. It reports whether a
	// row changed. A missing or already revoked token is not an error.
	Revoke(ctx context.Context, token string, at time.Time) (bool, error)

	// Consume atomically revokes the token only if it is active at `at`
	// and returns the row as it was consumed. Zero changed rows yields
	// common.ErrorNotFound, so exactly one of several concurrent callers
	// can succeed.
	Consume(ctx context.Context, token string, at time.Time) (*models.RefreshToken, error)

	// DeleteStale removes rows that expired or were revoked before cutoff.
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}
