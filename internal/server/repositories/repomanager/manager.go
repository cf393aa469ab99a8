// Package repomanager groups the repositories behind one handle and runs
// units of work against them transactionally.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/nizamla/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/nizamla/internal/server/repositories/tasks"
	"github.com/dmitrijs2005/nizamla/internal/server/repositories/users"
)

// Repositories vends repositories bound to one connection or transaction.
type Repositories interface {
	Users() users.Repository
	RefreshTokens() refreshtokens.Repository
	Tasks() tasks.Repository
}

// RepositoryManager is the storage root used by services.
//
// WithTx runs fn against repositories bound to a single transaction. It
// commits when fn returns nil and rolls back otherwise. A cancelled ctx
// also rolls back. fn must only use the Repositories it is given.
type RepositoryManager interface {
	Repositories
	WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	RunMigrations(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
