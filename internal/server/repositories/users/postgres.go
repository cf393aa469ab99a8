package users

import (
	"context"

	"github.com/dmitrijs2005/nizamla/internal/dbx"
	"github.com/dmitrijs2005/nizamla/internal/server/models"
)

const selectUser = `
	SELECT id, username, email, role, password_hash, created_at
	FROM users
`

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (username, email, role, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		user.Username, user.Email, user.Role, user.PasswordHash).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return nil, dbx.MapError(err)
	}
	return user, nil
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.get(ctx, selectUser+`WHERE username = $1`, username)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.get(ctx, selectUser+`WHERE lower(email) = lower($1)`, email)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.get(ctx, selectUser+`WHERE id = $1`, id)
}

func (r *PostgresRepository) get(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	if err := r.db.GetContext(ctx, user, query, arg); err != nil {
		return nil, dbx.MapError(err)
	}
	return user, nil
}
