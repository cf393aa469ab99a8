package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/nizamla/internal/common"
	"github.com/dmitrijs2005/nizamla/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/nizamla/internal/server/repositories/tasks"
	"github.com/dmitrijs2005/nizamla/internal/server/repositories/users"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) (*PostgresRepositoryManager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp), sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepositoryManager(sqlx.NewDb(db, "sqlmock")), mock
}

func TestPostgresRepositoryManager_ImplementsInterface(t *testing.T) {
	m, _ := newManager(t)
	var _ RepositoryManager = m

	var _ users.Repository = m.Users()
	var _ refreshtokens.Repository = m.RefreshTokens()
	var _ tasks.Repository = m.Tasks()
}

func TestWithTx_CommitsAndUsesTx(t *testing.T) {
	m, mock := newManager(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE\s+refresh_tokens`).
		WithArgs("tok", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := m.WithTx(context.Background(), func(ctx context.Context, repos Repositories) error {
		ok, err := repos.RefreshTokens().Revoke(ctx, "tok", time.Now())
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("expected a revoked row")
		}
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	m, mock := newManager(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := m.WithTx(context.Background(), func(ctx context.Context, repos Repositories) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, common.ErrStoreUnavailable, "fn errors pass through untouched")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_BeginFailureIsStoreUnavailable(t *testing.T) {
	m, mock := newManager(t)

	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	called := false
	err := m.WithTx(context.Background(), func(ctx context.Context, repos Repositories) error {
		called = true
		return nil
	})
	assert.False(t, called)
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
}

func TestWithTx_CommitFailureIsStoreUnavailable(t *testing.T) {
	m, mock := newManager(t)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

	err := m.WithTx(context.Background(), func(ctx context.Context, repos Repositories) error { return nil })
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
}

func TestPing(t *testing.T) {
	m, mock := newManager(t)

	mock.ExpectPing()
	require.NoError(t, m.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("down"))
	assert.ErrorIs(t, m.Ping(context.Background()), common.ErrStoreUnavailable)
}

func TestRunMigrations_Success(t *testing.T) {
	m, _ := newManager(t)

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "." {
			return errors.New("unexpected dir")
		}
		if len(opts) != 0 {
			return errors.New("unexpected opts")
		}
		return nil
	}
	defer func() { gooseUpContext = orig }()

	if err := m.RunMigrations(context.Background()); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
}

func TestRunMigrations_Error(t *testing.T) {
	m, _ := newManager(t)

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	if err := m.RunMigrations(context.Background()); err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom, got %v", err)
	}
}
