package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/nizamla/internal/dbx"
	"github.com/dmitrijs2005/nizamla/internal/server/migrations"
	"github.com/dmitrijs2005/nizamla/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/nizamla/internal/server/repositories/tasks"
	"github.com/dmitrijs2005/nizamla/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
)

// postgresRepositories binds the PostgreSQL repositories to one DBTX.
type postgresRepositories struct {
	db dbx.DBTX
}

func (r postgresRepositories) Users() users.Repository {
	return users.NewPostgresRepository(r.db)
}

func (r postgresRepositories) RefreshTokens() refreshtokens.Repository {
	return refreshtokens.NewPostgresRepository(r.db)
}

func (r postgresRepositories) Tasks() tasks.Repository {
	return tasks.NewPostgresRepository(r.db)
}

// PostgresRepositoryManager vends PostgreSQL-backed repositories and
// exposes schema migrations.
type PostgresRepositoryManager struct {
	postgresRepositories
	db *sqlx.DB
}

// NewPostgresRepositoryManager wraps an open pool.
func NewPostgresRepositoryManager(db *sqlx.DB) *PostgresRepositoryManager {
	return &PostgresRepositoryManager{postgresRepositories: postgresRepositories{db: db}, db: db}
}

// OpenPostgres opens a pgx-backed pool for dsn and checks it is reachable.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresRepositoryManager, error) {
	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, dbx.MapError(err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, dbx.MapError(err)
	}
	return NewPostgresRepositoryManager(db), nil
}

func (m *PostgresRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	var fnErr error
	err := dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		fnErr = fn(ctx, postgresRepositories{db: tx})
		return fnErr
	})
	if err != nil && fnErr == nil {
		// begin or commit failed
		return dbx.MapError(err)
	}
	return err
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, m.db.DB, ".")
}

func (m *PostgresRepositoryManager) Ping(ctx context.Context) error {
	if err := m.db.PingContext(ctx); err != nil {
		return dbx.MapError(err)
	}
	return nil
}

func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}
