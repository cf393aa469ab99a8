// Package users declares the user lookup and storage contract.
package users

import (
	"context"

	"github.com/dmitrijs2005/nizamla/internal/server/models"
)

// Repository stores users. Lookups return common.ErrorNotFound when nothing
// matches, and Create returns common.ErrorAlreadyExists on a duplicate
// username or email.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
}
