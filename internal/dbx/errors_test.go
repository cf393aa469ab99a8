package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/nizamla/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	assert.NoError(t, MapError(nil))

	assert.ErrorIs(t, MapError(sql.ErrNoRows), common.ErrorNotFound)
	assert.ErrorIs(t, MapError(fmt.Errorf("scan: %w", sql.ErrNoRows)), common.ErrorNotFound)

	dup := MapError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_uq"})
	assert.ErrorIs(t, dup, common.ErrorAlreadyExists)
	assert.Contains(t, dup.Error(), "users_username_uq")

	down := MapError(errors.New("connection refused"))
	assert.ErrorIs(t, down, common.ErrStoreUnavailable)
	assert.Contains(t, down.Error(), "connection refused")

	cancelled := MapError(context.Canceled)
	assert.ErrorIs(t, cancelled, common.ErrStoreUnavailable)
	assert.ErrorIs(t, cancelled, context.Canceled)
}
